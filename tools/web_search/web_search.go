// Package web_search exposes keyword web search as an agent tool backed by
// Serper (default) or Brave.
package web_search

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/mohammad-safakhou/webagent/internal/helpers"
	"github.com/mohammad-safakhou/webagent/tools"
	"github.com/mohammad-safakhou/webagent/tools/web_search/brave"
	"github.com/mohammad-safakhou/webagent/tools/web_search/models"
	"github.com/mohammad-safakhou/webagent/tools/web_search/serper"
)

const (
	Name              = "web_search"
	DefaultNumResults = 5
)

type WebSearcher interface {
	Discover(ctx context.Context, q string, k int) ([]models.Result, error)
}

type Provider string

const (
	SerperProvider Provider = "serper"
	BraveProvider  Provider = "brave"
)

var (
	ErrUnsupportedProvider = errors.New("unsupported search provider")
	ErrMissingAPIKey       = errors.New("search API key is not configured")
)

// Options tune the provider client. Zero values fall back to defaults.
type Options struct {
	Endpoint string
	Timeout  time.Duration
	Retries  int
}

func NewWebSearcher(provider Provider, apiKey string, opts Options) (WebSearcher, error) {
	client := helpers.NewHTTPClient(opts.Timeout, opts.Retries, 0)
	switch provider {
	case SerperProvider, "":
		return serper.Search{APIKey: apiKey, Endpoint: opts.Endpoint, Client: client}, nil
	case BraveProvider:
		return brave.Search{APIKey: apiKey, Endpoint: opts.Endpoint, Client: client}, nil
	default:
		return nil, ErrUnsupportedProvider
	}
}

type Input struct {
	Query      string `json:"query"`
	NumResults int    `json:"num_results,omitempty"`
}

// Tool adapts a WebSearcher to the agent tool contract.
type Tool struct {
	searcher   WebSearcher
	apiKey     string
	numResults int
}

type ToolOption func(*Tool)

// WithNumResults sets how many results a call without num_results asks for.
// Values <= 0 keep DefaultNumResults.
func WithNumResults(n int) ToolOption {
	return func(t *Tool) {
		if n > 0 {
			t.numResults = n
		}
	}
}

// NewTool wraps searcher. An empty apiKey makes every call fail with
// ErrMissingAPIKey instead of sending an unauthenticated request.
func NewTool(searcher WebSearcher, apiKey string, opts ...ToolOption) *Tool {
	t := &Tool{searcher: searcher, apiKey: apiKey, numResults: DefaultNumResults}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *Tool) Definition() tools.Definition {
	return tools.Definition{
		Name: Name,
		Description: "Searches the web for information related to a query. " +
			"Returns a list of results with titles, snippets, and URLs.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"query": map[string]any{
					"type":        "string",
					"description": "The search query to look up on the web.",
				},
				"num_results": map[string]any{
					"type":        "integer",
					"description": "Number of search results to return.",
					"default":     t.numResults,
				},
			},
			"required": []string{"query"},
		},
	}
}

func (t *Tool) Invoke(ctx context.Context, args json.RawMessage) tools.Result {
	var in Input
	if err := tools.DecodeArgs(args, &in); err != nil {
		return tools.Fail(err)
	}
	return t.Search(ctx, in)
}

func (t *Tool) Search(ctx context.Context, in Input) tools.Result {
	return tools.Guard(Name, func() tools.Result {
		if strings.TrimSpace(t.apiKey) == "" {
			return tools.Fail(ErrMissingAPIKey)
		}
		k := in.NumResults
		if k <= 0 {
			k = t.numResults
		}
		results, err := t.searcher.Discover(ctx, in.Query, k)
		if err != nil {
			return tools.Failf("Error performing web search: %v", err)
		}
		if results == nil {
			results = []models.Result{}
		}
		return tools.OK(results)
	})
}
