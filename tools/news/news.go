// Package news finds recent articles on a topic. The default provider is a
// deterministic generator; newsapi.org is used when a key is configured.
package news

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/mohammad-safakhou/webagent/tools"
)

const (
	Name              = "news_aggregator"
	DefaultDays       = 7
	DefaultMaxResults = 5

	// DateLayout renders publication dates, e.g. "March 04, 2025".
	DateLayout = "January 02, 2006"
)

type Article struct {
	Title   string `json:"title"`
	Summary string `json:"summary"`
	Source  string `json:"source"`
	Date    string `json:"date"`
	URL     string `json:"url"`
}

// Provider returns at most maxResults articles about topic from the last days.
type Provider interface {
	Articles(ctx context.Context, topic string, days, maxResults int) ([]Article, error)
}

type Input struct {
	Topic      string `json:"topic"`
	Days       *int   `json:"days,omitempty"`
	MaxResults *int   `json:"max_results,omitempty"`
}

type template struct {
	keyword, title, summary, source string
}

// Checked in order; the first keyword found in the topic wins.
var templates = []template{
	{"technology", "New %s Innovation Announced",
		"A groundbreaking development in %s has been announced. Experts say this could revolutionize the industry.",
		"Tech News Daily"},
	{"science", "Scientists Make Breakthrough in %s Research",
		"Researchers have made a significant discovery in the field of %s. The findings were published in a leading scientific journal.",
		"Science Today"},
	{"business", "Market Analysis: %s Industry Trends",
		"Recent market data shows significant growth in the %s sector. Analysts predict continued expansion in the coming years.",
		"Business Insider"},
	{"health", "New Study Reveals Health Benefits of %s",
		"A comprehensive study has found that %s may have unexpected health benefits. Medical experts are reviewing the findings.",
		"Health News"},
}

var generic = template{"", "Latest Developments in %s",
	"Recent developments in %s have captured the attention of experts and the public alike. Here's what you need to know.",
	"General News"}

// Synthetic produces placeholder articles, one per day walking back from Now.
type Synthetic struct {
	Now func() time.Time
}

func (s Synthetic) Articles(_ context.Context, topic string, days, maxResults int) ([]Article, error) {
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	today := now()
	tpl := pick(topic)
	n := max(0, min(maxResults, days))
	out := make([]Article, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, Article{
			Title:   fmt.Sprintf(tpl.title, topic),
			Summary: fmt.Sprintf(tpl.summary, topic),
			Source:  tpl.source,
			Date:    today.AddDate(0, 0, -i).Format(DateLayout),
			URL:     fmt.Sprintf("https://example.com/news/%d", i+1),
		})
	}
	return out, nil
}

func pick(topic string) template {
	lower := strings.ToLower(topic)
	for _, t := range templates {
		if strings.Contains(lower, t.keyword) {
			return t
		}
	}
	return generic
}

type Tool struct {
	provider Provider
}

func NewTool(p Provider) *Tool {
	if p == nil {
		p = Synthetic{}
	}
	return &Tool{provider: p}
}

func (t *Tool) Definition() tools.Definition {
	return tools.Definition{
		Name: Name,
		Description: "Finds and filters recent news articles on a topic. Returns articles " +
			"with titles, summaries, sources, and publication dates.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"topic": map[string]any{
					"type":        "string",
					"description": "The topic to search for news articles.",
				},
				"days": map[string]any{
					"type":        "integer",
					"description": "Number of days to look back for news articles.",
					"default":     DefaultDays,
				},
				"max_results": map[string]any{
					"type":        "integer",
					"description": "Maximum number of news articles to return.",
					"default":     DefaultMaxResults,
				},
			},
			"required": []string{"topic"},
		},
	}
}

func (t *Tool) Invoke(ctx context.Context, args json.RawMessage) tools.Result {
	var in Input
	if err := tools.DecodeArgs(args, &in); err != nil {
		return tools.Fail(err)
	}
	return t.Find(ctx, in)
}

func (t *Tool) Find(ctx context.Context, in Input) tools.Result {
	return tools.Guard(Name, func() tools.Result {
		days, maxResults := DefaultDays, DefaultMaxResults
		if in.Days != nil {
			days = *in.Days
		}
		if in.MaxResults != nil {
			maxResults = *in.MaxResults
		}
		articles, err := t.provider.Articles(ctx, in.Topic, days, maxResults)
		if err != nil {
			return tools.Failf("Error finding news articles: %v", err)
		}
		if articles == nil {
			articles = []Article{}
		}
		return tools.OK(articles)
	})
}
