package brave

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/mohammad-safakhou/webagent/internal/helpers"
	"github.com/mohammad-safakhou/webagent/tools/web_search/models"
)

const DefaultEndpoint = "https://api.search.brave.com/res/v1/web/search"

// Brave caps count at 20 per request.
const maxCount = 20

type Search struct {
	APIKey   string
	Endpoint string
	Client   *helpers.HTTPClient
}

func (s Search) Discover(ctx context.Context, q string, k int) ([]models.Result, error) {
	if strings.TrimSpace(q) == "" {
		return nil, errors.New("brave: empty query")
	}
	endpoint := s.Endpoint
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	client := s.Client
	if client == nil {
		client = helpers.NewHTTPClient(helpers.DefaultHTTPTimeout, 0, 0)
	}

	params := url.Values{}
	params.Set("q", q)
	params.Set("count", strconv.Itoa(min(k, maxCount)))
	headers := map[string]string{
		"Accept":               "application/json",
		"X-Subscription-Token": s.APIKey,
	}

	var raw struct {
		Web struct {
			Results []struct {
				Title   string `json:"title"`
				URL     string `json:"url"`
				Snippet string `json:"description"`
			} `json:"results"`
		} `json:"web"`
	}
	if err := client.DoJSON(ctx, http.MethodGet, endpoint+"?"+params.Encode(), headers, nil, &raw); err != nil {
		return nil, fmt.Errorf("brave: %w", err)
	}
	out := make([]models.Result, 0, len(raw.Web.Results))
	for i, r := range raw.Web.Results {
		if i >= k {
			break
		}
		out = append(out, models.Result{Title: r.Title, Snippet: r.Snippet, URL: r.URL})
	}
	return out, nil
}
