package app

import (
	"context"
	"errors"
	"log"
	"testing"

	"github.com/mohammad-safakhou/webagent/config"
)

func loadConfig(t *testing.T, llmKey string) *config.Config {
	t.Helper()
	t.Chdir(t.TempDir())
	t.Setenv("NVIDIA_NIM_API_KEY", "")
	t.Setenv("WEBAGENT_LLM_API_KEY", llmKey)
	cfg, err := config.LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	return cfg
}

func TestToolboxRegistersEveryTool(t *testing.T) {
	cfg := loadConfig(t, "")
	tb, err := NewToolbox(cfg)
	if err != nil {
		t.Fatalf("NewToolbox: %v", err)
	}
	reg, err := Registry(tb)
	if err != nil {
		t.Fatalf("Registry: %v", err)
	}
	for _, name := range []string{"web_search", "web_scraper", "news_aggregator", "content_analyzer"} {
		if _, ok := reg.Get(name); !ok {
			t.Fatalf("registry missing %s", name)
		}
	}
}

func TestToolboxRejectsUnknownFetcher(t *testing.T) {
	cfg := loadConfig(t, "")
	cfg.Fetch.Mode = "lynx"
	if _, err := NewToolbox(cfg); err == nil {
		t.Fatalf("expected fetcher error")
	}
}

func TestNewRequiresCredentials(t *testing.T) {
	cfg := loadConfig(t, "")
	if _, err := New(context.Background(), cfg, "test"); !errors.Is(err, config.ErrMissingCredential) {
		t.Fatalf("expected ErrMissingCredential, got %v", err)
	}
}

func TestNewWiresRunner(t *testing.T) {
	cfg := loadConfig(t, "test-key")
	a, err := New(context.Background(), cfg, "test")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if a.Runner == nil || a.Registry.Len() != 4 || a.Redis() != nil {
		t.Fatalf("unexpected app %+v", a)
	}
	if err := a.Close(context.Background()); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func TestLoggerDebugFlags(t *testing.T) {
	cfg := loadConfig(t, "")
	if got := Logger(cfg, "[X] ").Flags(); got != log.LstdFlags {
		t.Fatalf("default flags = %d", got)
	}
	cfg.General.Debug = true
	l := Logger(cfg, "[X] ")
	if l.Flags()&log.Lshortfile == 0 || l.Flags()&log.Lmicroseconds == 0 || l.Prefix() != "[X] " {
		t.Fatalf("debug logger flags = %d prefix %q", l.Flags(), l.Prefix())
	}
}

func TestToolboxUsesConfiguredNumResults(t *testing.T) {
	cfg := loadConfig(t, "")
	cfg.Search.NumResults = 9
	tb, err := NewToolbox(cfg)
	if err != nil {
		t.Fatalf("NewToolbox: %v", err)
	}
	props := tb.Search.Definition().Parameters["properties"].(map[string]any)
	if got := props["num_results"].(map[string]any)["default"]; got != 9 {
		t.Fatalf("search default num_results = %v", got)
	}
}
