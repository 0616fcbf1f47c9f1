// Package web_scraper turns a fetched HTML page into bounded, structured
// fields: text, links, tables, metadata and an optional readability article.
package web_scraper

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/html"

	"github.com/mohammad-safakhou/webagent/tools"
	"github.com/mohammad-safakhou/webagent/tools/web_fetch"
)

const (
	Name = "web_scraper"

	// DefaultDelay is the courtesy pause before every fetch.
	DefaultDelay = time.Second
)

type Mode string

const (
	ModeText     Mode = "text"
	ModeLinks    Mode = "links"
	ModeTables   Mode = "tables"
	ModeMetadata Mode = "metadata"
	ModeAll      Mode = "all"
	ModeArticle  Mode = "article"
)

// Input is the argument object accepted by the tool.
type Input struct {
	URL         string `json:"url"`
	ExtractType string `json:"extract_type,omitempty"`
}

// HostPolicy decides whether a host may be fetched at all.
type HostPolicy interface {
	Permits(host string) bool
}

type Scraper struct {
	fetcher web_fetch.WebFetcher
	policy  HostPolicy
	delay   time.Duration
	sleep   func(context.Context, time.Duration) error
	logger  *log.Logger
}

type Option func(*Scraper)

// WithCrawlPolicy rejects disallowed hosts before any network I/O.
func WithCrawlPolicy(p HostPolicy) Option {
	return func(s *Scraper) { s.policy = p }
}

func WithDelay(d time.Duration) Option {
	return func(s *Scraper) { s.delay = d }
}

// WithSleep replaces the delay implementation; tests use it to avoid waiting.
func WithSleep(fn func(context.Context, time.Duration) error) Option {
	return func(s *Scraper) { s.sleep = fn }
}

func WithLogger(l *log.Logger) Option {
	return func(s *Scraper) { s.logger = l }
}

func New(fetcher web_fetch.WebFetcher, opts ...Option) *Scraper {
	s := &Scraper{
		fetcher: fetcher,
		delay:   DefaultDelay,
		sleep:   sleepContext,
		logger:  log.New(log.Writer(), "[SCRAPER] ", log.LstdFlags),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Scraper) Definition() tools.Definition {
	return tools.Definition{
		Name: Name,
		Description: "Extracts information from a web page. It can return the page text, links, " +
			"tables, metadata, a readability article view, or all of text/links/tables.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"url": map[string]any{
					"type":        "string",
					"description": "Absolute URL of the page to scrape.",
				},
				"extract_type": map[string]any{
					"type":        "string",
					"enum":        []string{"text", "links", "tables", "metadata", "article", "all"},
					"default":     "text",
					"description": "Which content to extract.",
				},
			},
			"required": []string{"url"},
		},
	}
}

func (s *Scraper) Invoke(ctx context.Context, args json.RawMessage) tools.Result {
	var in Input
	if err := tools.DecodeArgs(args, &in); err != nil {
		return tools.Fail(err)
	}
	return s.Scrape(ctx, in)
}

// Scrape validates, fetches and extracts. Every failure is returned as data.
func (s *Scraper) Scrape(ctx context.Context, in Input) tools.Result {
	return tools.Guard(Name, func() tools.Result {
		res := s.scrape(ctx, in)
		if err := res.Err(); err != nil {
			s.logger.Printf("url=%s err=%v", in.URL, err)
		}
		return res
	})
}

func (s *Scraper) scrape(ctx context.Context, in Input) tools.Result {
	mode := Mode(strings.ToLower(strings.TrimSpace(in.ExtractType)))
	if mode == "" {
		mode = ModeText
	}
	rawURL := strings.TrimSpace(in.URL)
	u, ok := ValidURL(rawURL)
	if !ok {
		return tools.Failf("Invalid URL: %s", in.URL)
	}
	if s.policy != nil && !s.policy.Permits(u.Hostname()) {
		return tools.Failf("URL not permitted by crawl policy: %s", rawURL)
	}
	if err := s.sleep(ctx, s.delay); err != nil {
		return tools.Failf("Failed to fetch URL: %v", err)
	}
	page, err := s.fetcher.Fetch(ctx, rawURL)
	if err != nil {
		return tools.Failf("Failed to fetch URL: %v", err)
	}
	doc, err := html.Parse(strings.NewReader(page.HTML))
	if err != nil {
		return tools.Failf("Error scraping webpage: %v", err)
	}

	out := make(map[string]any, 4)
	if mode == ModeText || mode == ModeAll {
		out["text"] = ExtractText(doc)
	}
	if mode == ModeLinks || mode == ModeAll {
		out["links"] = ExtractLinks(doc, u)
	}
	if mode == ModeTables || mode == ModeAll {
		out["tables"] = ExtractTables(doc)
	}
	if mode == ModeArticle {
		art, err := ExtractArticle(page.HTML, u)
		if err != nil {
			return tools.Failf("Error extracting article: %v", err)
		}
		out["article"] = art
	}
	requested := len(out) > 0 || mode == ModeMetadata

	meta := ExtractMetadata(doc)
	out["metadata"] = meta
	if !requested {
		title, ok := meta["title"]
		if !ok {
			title = "No title found"
		}
		out["summary"] = fmt.Sprintf("Could not extract %s from %s. The page title is: %s", mode, rawURL, title)
	}
	return tools.OK(out)
}

// ValidURL reports whether raw carries both a scheme and a host.
func ValidURL(raw string) (*url.URL, bool) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, false
	}
	return u, u.Scheme != "" && u.Host != ""
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
