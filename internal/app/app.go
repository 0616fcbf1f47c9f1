// Package app wires configuration into the tool set, the LLM-backed agent and
// the research runner.
package app

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/mohammad-safakhou/webagent/config"
	"github.com/mohammad-safakhou/webagent/internal/agent"
	"github.com/mohammad-safakhou/webagent/internal/checkpoint"
	"github.com/mohammad-safakhou/webagent/internal/executor"
	"github.com/mohammad-safakhou/webagent/internal/helpers"
	"github.com/mohammad-safakhou/webagent/internal/research"
	"github.com/mohammad-safakhou/webagent/internal/runner"
	"github.com/mohammad-safakhou/webagent/internal/runtime"
	"github.com/mohammad-safakhou/webagent/provider"
	"github.com/mohammad-safakhou/webagent/tools"
	"github.com/mohammad-safakhou/webagent/tools/content_analyzer"
	"github.com/mohammad-safakhou/webagent/tools/news"
	"github.com/mohammad-safakhou/webagent/tools/news/newsapi"
	"github.com/mohammad-safakhou/webagent/tools/web_fetch"
	"github.com/mohammad-safakhou/webagent/tools/web_scraper"
	"github.com/mohammad-safakhou/webagent/tools/web_search"
	"github.com/redis/go-redis/v9"
)

// App is a fully wired research process.
type App struct {
	Config   *config.Config
	Toolbox  research.Toolbox
	Registry *tools.Registry
	Metrics  *runtime.Metrics
	Runner   *runner.Runner

	redis     redis.UniversalClient
	telemetry *runtime.Telemetry
}

// NewToolbox builds the four tools from configuration. It needs no LLM
// credential, so the CLI can exercise tools on their own.
func NewToolbox(cfg *config.Config) (research.Toolbox, error) {
	fetcher, err := web_fetch.NewWebFetcher(web_fetch.FetcherType(cfg.Fetch.Mode), web_fetch.Options{
		Timeout:   cfg.Fetch.Timeout,
		UserAgent: cfg.Fetch.UserAgent,
		MaxBytes:  cfg.Fetch.MaxBytes,
	})
	if err != nil {
		return research.Toolbox{}, fmt.Errorf("fetcher: %w", err)
	}
	scraper := web_scraper.New(fetcher,
		web_scraper.WithDelay(cfg.Fetch.Delay),
		web_scraper.WithCrawlPolicy(cfg.CrawlPolicy),
		web_scraper.WithLogger(Logger(cfg, "[SCRAPER] ")),
	)

	searcher, err := web_search.NewWebSearcher(web_search.Provider(cfg.Search.Provider), cfg.Search.APIKey, web_search.Options{
		Endpoint: cfg.Search.Endpoint,
		Timeout:  cfg.Search.Timeout,
		Retries:  cfg.Search.Retries,
	})
	if err != nil {
		return research.Toolbox{}, fmt.Errorf("search: %w", err)
	}

	var articles news.Provider = news.Synthetic{}
	if cfg.News.Provider == "newsapi" {
		articles = newsapi.NewsAPI{
			APIKey:   cfg.News.APIKey,
			Endpoint: cfg.News.Endpoint,
			Language: cfg.News.Language,
			Client:   helpers.NewHTTPClient(helpers.DefaultHTTPTimeout, 0, 0),
		}
	}

	return research.Toolbox{
		Search:   web_search.NewTool(searcher, cfg.Search.APIKey, web_search.WithNumResults(cfg.Search.NumResults)),
		Scraper:  scraper,
		News:     news.NewTool(articles),
		Analyzer: content_analyzer.New(),
	}, nil
}

// Logger returns a component logger. general.debug adds microsecond
// timestamps and the calling file to every line.
func Logger(cfg *config.Config, prefix string) *log.Logger {
	flags := log.LstdFlags
	if cfg.General.Debug {
		flags |= log.Lmicroseconds | log.Lshortfile
	}
	return log.New(log.Writer(), prefix, flags)
}

// Registry indexes a toolbox by tool name.
func Registry(tb research.Toolbox) (*tools.Registry, error) {
	return tools.NewRegistry(tb.Search, tb.Scraper, tb.News, tb.Analyzer)
}

// New validates credentials and wires every component. Close releases what
// New opened.
func New(ctx context.Context, cfg *config.Config, version string) (*App, error) {
	if err := cfg.RequireCredentials(); err != nil {
		return nil, err
	}
	a := &App{Config: cfg, Metrics: runtime.NewMetrics()}

	tel, tracer, err := runtime.SetupTelemetry(ctx, cfg.Telemetry, version)
	if err != nil {
		return nil, err
	}
	a.telemetry = tel

	if a.Toolbox, err = NewToolbox(cfg); err != nil {
		return nil, a.closeWith(err)
	}
	if a.Registry, err = Registry(a.Toolbox); err != nil {
		return nil, a.closeWith(err)
	}

	llm, err := provider.NewProvider(provider.Client(cfg.LLM.Provider), provider.Settings{
		APIKey:      cfg.LLM.APIKey,
		BaseURL:     cfg.LLM.BaseURL,
		Model:       cfg.LLM.Model,
		Temperature: cfg.LLM.Temperature,
		MaxTokens:   cfg.LLM.MaxTokens,
		Timeout:     cfg.LLM.Timeout,
		Retries:     cfg.LLM.MaxRetries,
	})
	if err != nil {
		return nil, a.closeWith(err)
	}
	ag := agent.New(llm,
		agent.WithMaxToolRounds(cfg.LLM.MaxToolRounds),
		agent.WithToolObserver(a.Metrics.ObserveTool),
		agent.WithLogger(Logger(cfg, "[AGENT] ")),
	)

	crew, err := research.NewCrew(a.Toolbox)
	if err != nil {
		return nil, a.closeWith(err)
	}

	opts := []runner.Option{
		runner.WithIntermediateDir(cfg.Checkpoint.Dir),
		runner.WithExecutorOptions(
			executor.WithMetrics(a.Metrics.Executor()),
			executor.WithTracer(tracer),
			executor.WithLogger(Logger(cfg, "[PIPELINE] ")),
		),
		runner.WithOutcomeObserver(a.Metrics.ObserveRun),
		runner.WithLogger(Logger(cfg, "[RUNNER] ")),
	}
	if rc := cfg.Checkpoint.Redis; rc.Enabled {
		a.redis = redis.NewClient(&redis.Options{
			Addr:        rc.Addr(),
			Password:    rc.Password,
			DB:          rc.DB,
			DialTimeout: rc.Timeout,
		})
		if err := a.redis.Ping(ctx).Err(); err != nil {
			return nil, a.closeWith(fmt.Errorf("redis connection failed (%s): %w", rc.Addr(), err))
		}
		opts = append(opts, runner.WithCheckpointSink(checkpoint.NewRedisManager(a.redis, rc.Prefix, rc.TTL)))
	}
	a.Runner = runner.New(crew, ag, opts...)
	log.Printf("[APP] llm=%s model=%s search=%s fetch=%s news=%s", cfg.LLM.Provider, cfg.LLM.Model, cfg.Search.Provider, cfg.Fetch.Mode, cfg.News.Provider)
	return a, nil
}

// Redis returns the checkpoint client, or nil when redis is disabled.
func (a *App) Redis() redis.UniversalClient { return a.redis }

func (a *App) closeWith(err error) error {
	return errors.Join(err, a.Close(context.Background()))
}

// Close stops the runner, flushes spans and closes redis.
func (a *App) Close(ctx context.Context) error {
	if a.Runner != nil {
		a.Runner.Shutdown()
	}
	var errs []error
	if err := a.telemetry.Shutdown(ctx); err != nil {
		errs = append(errs, err)
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
