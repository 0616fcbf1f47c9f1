package web_fetch

import (
	"context"
	"errors"
	"time"

	"github.com/mohammad-safakhou/webagent/tools/web_fetch/chromedp"
	"github.com/mohammad-safakhou/webagent/tools/web_fetch/httpfetch"
	"github.com/mohammad-safakhou/webagent/tools/web_fetch/models"
)

const (
	DefaultTimeout  = 15 * time.Second
	DefaultMaxBytes = 5 << 20
	// DefaultUserAgent identifies as a desktop browser; several origins refuse
	// bare Go clients.
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"
)

type WebFetcher interface {
	Fetch(ctx context.Context, url string) (models.Page, error)
}

type FetcherType string

const (
	HTTPFetcherType     FetcherType = "http"
	ChromedpFetcherType FetcherType = "chromedp"
)

var ErrUnsupportedFetcher = errors.New("unsupported fetcher type")

// Options tune a fetcher; zero values fall back to the package defaults.
type Options struct {
	Timeout   time.Duration
	UserAgent string
	MaxBytes  int64
}

func (o Options) withDefaults() Options {
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	if o.UserAgent == "" {
		o.UserAgent = DefaultUserAgent
	}
	if o.MaxBytes <= 0 {
		o.MaxBytes = DefaultMaxBytes
	}
	return o
}

func NewWebFetcher(fetcherType FetcherType, opts Options) (WebFetcher, error) {
	opts = opts.withDefaults()
	switch fetcherType {
	case HTTPFetcherType, "":
		return httpfetch.New(opts.Timeout, opts.UserAgent, opts.MaxBytes), nil
	case ChromedpFetcherType:
		return &chromedp.Fetch{Timeout: opts.Timeout, UserAgent: opts.UserAgent, MaxBytes: opts.MaxBytes}, nil
	default:
		return nil, ErrUnsupportedFetcher
	}
}
