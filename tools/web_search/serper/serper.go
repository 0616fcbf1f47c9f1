package serper

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/mohammad-safakhou/webagent/internal/helpers"
	"github.com/mohammad-safakhou/webagent/tools/web_search/models"
)

const DefaultEndpoint = "https://google.serper.dev/search"

type Search struct {
	APIKey   string
	Endpoint string
	Client   *helpers.HTTPClient
}

type response struct {
	Organic []struct {
		Title   string `json:"title"`
		Link    string `json:"link"`
		Snippet string `json:"snippet"`
	} `json:"organic"`
}

// Discover returns at most k organic results for q. A response without an
// organic section yields an empty slice.
func (s Search) Discover(ctx context.Context, q string, k int) ([]models.Result, error) {
	if strings.TrimSpace(q) == "" {
		return nil, errors.New("serper: empty query")
	}
	endpoint := s.Endpoint
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	client := s.Client
	if client == nil {
		client = helpers.NewHTTPClient(helpers.DefaultHTTPTimeout, 0, 0)
	}

	var raw response
	headers := map[string]string{"X-API-KEY": s.APIKey}
	if err := client.DoJSON(ctx, http.MethodPost, endpoint, headers, map[string]any{"q": q, "num": k}, &raw); err != nil {
		return nil, fmt.Errorf("serper: %w", err)
	}

	out := make([]models.Result, 0, min(k, len(raw.Organic)))
	for i, r := range raw.Organic {
		if i >= k {
			break
		}
		out = append(out, models.Result{Title: r.Title, Snippet: r.Snippet, URL: r.Link})
	}
	return out, nil
}
