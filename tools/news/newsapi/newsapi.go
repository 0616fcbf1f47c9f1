package newsapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/mohammad-safakhou/webagent/internal/helpers"
	"github.com/mohammad-safakhou/webagent/tools/news"
)

const DefaultEndpoint = "https://newsapi.org/v2/everything"

// NewsAPI caps pageSize at 100.
const maxPageSize = 100

type Article struct {
	Source struct {
		Name string `json:"name"`
	} `json:"source"`
	Author      string    `json:"author"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	URL         string    `json:"url"`
	PublishedAt time.Time `json:"publishedAt"`
}

type response struct {
	Status       string    `json:"status"`
	TotalResults int       `json:"totalResults"`
	Articles     []Article `json:"articles"`
	Message      string    `json:"message"`
}

type NewsAPI struct {
	APIKey   string
	Endpoint string
	Language string
	Client   *helpers.HTTPClient
	Now      func() time.Time
}

// Articles queries the everything endpoint for topic, newest first.
func (n NewsAPI) Articles(ctx context.Context, topic string, days, maxResults int) ([]news.Article, error) {
	if strings.TrimSpace(topic) == "" {
		return nil, errors.New("newsapi: empty topic")
	}
	size := max(0, min(maxResults, maxPageSize))
	if size == 0 || days <= 0 {
		return []news.Article{}, nil
	}
	endpoint := n.Endpoint
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	client := n.Client
	if client == nil {
		client = helpers.NewHTTPClient(helpers.DefaultHTTPTimeout, 0, 0)
	}
	now := time.Now
	if n.Now != nil {
		now = n.Now
	}

	params := url.Values{}
	params.Set("q", fmt.Sprintf(`"%s"`, topic))
	params.Set("from", now().AddDate(0, 0, -days).Format("2006-01-02"))
	params.Set("sortBy", "publishedAt")
	params.Set("pageSize", strconv.Itoa(size))
	if n.Language != "" {
		params.Set("language", n.Language)
	}
	headers := map[string]string{"X-Api-Key": n.APIKey}

	var result response
	if err := client.DoJSON(ctx, http.MethodGet, endpoint+"?"+params.Encode(), headers, nil, &result); err != nil {
		return nil, fmt.Errorf("newsapi: %w", err)
	}
	if result.Status != "" && result.Status != "ok" {
		return nil, fmt.Errorf("newsapi error: %s", result.Message)
	}

	out := make([]news.Article, 0, len(result.Articles))
	seen := make(map[string]struct{}, len(result.Articles))
	for _, a := range result.Articles {
		if len(out) == size {
			break
		}
		// Syndicated copies differ only by tracking parameters.
		if key, err := helpers.CanonicalURL(a.URL); err == nil {
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
		}
		out = append(out, news.Article{
			Title:   a.Title,
			Summary: a.Description,
			Source:  a.Source.Name,
			Date:    a.PublishedAt.Format(news.DateLayout),
			URL:     a.URL,
		})
	}
	return out, nil
}
