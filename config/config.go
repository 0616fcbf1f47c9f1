package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// ErrMissingCredential is returned when a credential needed for a run is unset.
var ErrMissingCredential = errors.New("missing credential")

// Config holds all configuration for the research agent
type Config struct {
	General     GeneralConfig     `mapstructure:"general"`
	LLM         LLMConfig         `mapstructure:"llm"`
	Search      SearchConfig      `mapstructure:"search"`
	Fetch       FetchConfig       `mapstructure:"fetch"`
	News        NewsConfig        `mapstructure:"news"`
	Pipeline    PipelineConfig    `mapstructure:"pipeline"`
	Checkpoint  CheckpointConfig  `mapstructure:"checkpoint"`
	CrawlPolicy CrawlPolicyConfig `mapstructure:"crawl_policy"`
	Telemetry   TelemetryConfig   `mapstructure:"telemetry"`
	Server      ServerConfig      `mapstructure:"server"`
}

// GeneralConfig contains general application settings
type GeneralConfig struct {
	Debug      bool   `mapstructure:"debug"`
	ReportPath string `mapstructure:"report_path"`
}

// LLMConfig selects the chat backend used by every role.
type LLMConfig struct {
	Provider      string        `mapstructure:"provider"` // nvidia_nim, openai
	APIKey        string        `mapstructure:"api_key"`
	BaseURL       string        `mapstructure:"base_url"`
	Model         string        `mapstructure:"model"`
	Temperature   float64       `mapstructure:"temperature"`
	MaxTokens     int           `mapstructure:"max_tokens"`
	Timeout       time.Duration `mapstructure:"timeout"`
	MaxRetries    int           `mapstructure:"max_retries"`
	MaxToolRounds int           `mapstructure:"max_tool_rounds"`
}

func (l LLMConfig) Validate() error {
	switch l.Provider {
	case "nvidia_nim", "openai":
	default:
		return fmt.Errorf("llm.provider %q is not supported", l.Provider)
	}
	if strings.TrimSpace(l.Model) == "" {
		return fmt.Errorf("llm.model required")
	}
	if l.Temperature < 0 || l.Temperature > 2 {
		return fmt.Errorf("llm.temperature must be within [0,2]")
	}
	if l.MaxToolRounds < 0 {
		return fmt.Errorf("llm.max_tool_rounds must be >= 0")
	}
	return nil
}

// SearchConfig configures the web search tool.
type SearchConfig struct {
	Provider   string        `mapstructure:"provider"` // serper, brave
	APIKey     string        `mapstructure:"api_key"`
	Endpoint   string        `mapstructure:"endpoint"`
	NumResults int           `mapstructure:"num_results"`
	Timeout    time.Duration `mapstructure:"timeout"`
	Retries    int           `mapstructure:"retries"`
}

func (s SearchConfig) Validate() error {
	switch s.Provider {
	case "serper", "brave":
	default:
		return fmt.Errorf("search.provider %q is not supported", s.Provider)
	}
	if s.Timeout <= 0 {
		return fmt.Errorf("search.timeout must be > 0")
	}
	if s.NumResults < 0 {
		return fmt.Errorf("search.num_results must be >= 0")
	}
	return nil
}

// FetchConfig configures page retrieval for the extraction tool.
type FetchConfig struct {
	Mode      string        `mapstructure:"mode"` // http, chromedp
	UserAgent string        `mapstructure:"user_agent"`
	Timeout   time.Duration `mapstructure:"timeout"`
	Delay     time.Duration `mapstructure:"delay"`
	MaxBytes  int64         `mapstructure:"max_bytes"`
}

func (f FetchConfig) Validate() error {
	switch f.Mode {
	case "http", "chromedp":
	default:
		return fmt.Errorf("fetch.mode %q is not supported", f.Mode)
	}
	if f.Timeout <= 0 {
		return fmt.Errorf("fetch.timeout must be > 0")
	}
	if f.Delay < 0 {
		return fmt.Errorf("fetch.delay must be >= 0")
	}
	return nil
}

// NewsConfig configures the news tool. The synthetic provider needs no key.
type NewsConfig struct {
	Provider string `mapstructure:"provider"` // synthetic, newsapi
	APIKey   string `mapstructure:"api_key"`
	Endpoint string `mapstructure:"endpoint"`
	Language string `mapstructure:"language"`
}

func (n NewsConfig) Validate() error {
	switch n.Provider {
	case "synthetic", "newsapi":
		return nil
	}
	return fmt.Errorf("news.provider %q is not supported", n.Provider)
}

// PipelineConfig holds run defaults.
type PipelineConfig struct {
	Process     string `mapstructure:"process"`
	DefaultDays int    `mapstructure:"default_days"`
}

func (p PipelineConfig) Validate() error {
	if p.Process != "sequential" {
		return fmt.Errorf("pipeline.process %q is not supported", p.Process)
	}
	if p.DefaultDays < 1 || p.DefaultDays > 30 {
		return fmt.Errorf("pipeline.default_days must be within [1,30]")
	}
	return nil
}

// CheckpointConfig controls where intermediate outputs go.
type CheckpointConfig struct {
	Dir   string      `mapstructure:"dir"`
	Redis RedisConfig `mapstructure:"redis"`
}

// RedisConfig contains Redis connection settings
type RedisConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Host     string        `mapstructure:"host"`
	Port     string        `mapstructure:"port"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	Timeout  time.Duration `mapstructure:"timeout"`
	Prefix   string        `mapstructure:"prefix"`
	TTL      time.Duration `mapstructure:"ttl"`
}

func (r RedisConfig) Validate() error {
	if !r.Enabled {
		return nil
	}
	if strings.TrimSpace(r.Host) == "" {
		return fmt.Errorf("checkpoint.redis.host required")
	}
	if strings.TrimSpace(r.Port) == "" {
		return fmt.Errorf("checkpoint.redis.port required")
	}
	return nil
}

// Addr is host:port.
func (r RedisConfig) Addr() string { return r.Host + ":" + r.Port }

// TelemetryConfig contains telemetry and monitoring settings
type TelemetryConfig struct {
	Enabled      bool   `mapstructure:"enabled"`
	ServiceName  string `mapstructure:"service_name"`
	OTLPEndpoint string `mapstructure:"otlp_endpoint"`
	MetricsPort  int    `mapstructure:"metrics_port"`
}

func (t TelemetryConfig) Validate() error {
	if t.MetricsPort < 0 {
		return fmt.Errorf("telemetry.metrics_port must be >= 0")
	}
	return nil
}

// ServerConfig contains HTTP front-end settings
type ServerConfig struct {
	Address        string        `mapstructure:"address"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

func (s ServerConfig) Validate() error {
	if strings.TrimSpace(s.Address) == "" {
		return fmt.Errorf("server.address required")
	}
	return nil
}

// Validate checks every section.
func (c *Config) Validate() error {
	for _, v := range []interface{ Validate() error }{
		c.LLM, c.Search, c.Fetch, c.News, c.Pipeline,
		c.Checkpoint.Redis, c.CrawlPolicy, c.Telemetry, c.Server,
	} {
		if err := v.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// RequireCredentials fails when a credential needed to start a run is unset.
// The search key is not required: the search tool reports its absence as a
// tool error and the run continues.
func (c *Config) RequireCredentials() error {
	if strings.TrimSpace(c.LLM.APIKey) == "" {
		return fmt.Errorf("%w: llm.api_key (set NVIDIA_NIM_API_KEY or WEBAGENT_LLM_API_KEY)", ErrMissingCredential)
	}
	if c.News.Provider == "newsapi" && strings.TrimSpace(c.News.APIKey) == "" {
		return fmt.Errorf("%w: news.api_key (set NEWSAPI_API_KEY or WEBAGENT_NEWS_API_KEY)", ErrMissingCredential)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("general.debug", false)
	v.SetDefault("general.report_path", "research_report.md")
	v.SetDefault("llm.provider", "nvidia_nim")
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.base_url", "")
	v.SetDefault("llm.model", "meta/llama-3.3-70b-instruct")
	v.SetDefault("llm.temperature", 0.7)
	v.SetDefault("llm.max_tokens", 4096)
	v.SetDefault("llm.timeout", 120*time.Second)
	v.SetDefault("llm.max_retries", 2)
	v.SetDefault("llm.max_tool_rounds", 5)
	v.SetDefault("search.provider", "serper")
	v.SetDefault("search.api_key", "")
	v.SetDefault("search.endpoint", "")
	v.SetDefault("search.num_results", 5)
	v.SetDefault("search.timeout", 15*time.Second)
	v.SetDefault("search.retries", 0)
	v.SetDefault("fetch.mode", "http")
	v.SetDefault("fetch.user_agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36")
	v.SetDefault("fetch.timeout", 15*time.Second)
	v.SetDefault("fetch.delay", time.Second)
	v.SetDefault("fetch.max_bytes", 5<<20)
	v.SetDefault("news.provider", "synthetic")
	v.SetDefault("news.api_key", "")
	v.SetDefault("news.endpoint", "")
	v.SetDefault("news.language", "en")
	v.SetDefault("pipeline.process", "sequential")
	v.SetDefault("pipeline.default_days", 7)
	v.SetDefault("checkpoint.dir", "intermediate_results")
	v.SetDefault("checkpoint.redis.enabled", false)
	v.SetDefault("checkpoint.redis.host", "localhost")
	v.SetDefault("checkpoint.redis.port", "6379")
	v.SetDefault("checkpoint.redis.password", "")
	v.SetDefault("checkpoint.redis.db", 0)
	v.SetDefault("checkpoint.redis.timeout", 5*time.Second)
	v.SetDefault("checkpoint.redis.prefix", "webagent")
	v.SetDefault("checkpoint.redis.ttl", 48*time.Hour)
	v.SetDefault("crawl_policy.allow", []string{})
	v.SetDefault("crawl_policy.disallow", []string{})
	v.SetDefault("crawl_policy.paywall", []string{})
	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.service_name", "webagent")
	v.SetDefault("telemetry.otlp_endpoint", "")
	v.SetDefault("telemetry.metrics_port", 0)
	v.SetDefault("server.address", ":8080")
	v.SetDefault("server.request_timeout", 10*time.Minute)
}

// legacyEnv maps the variable names the tool has always honoured onto keys.
var legacyEnv = map[string]string{
	"llm.api_key":    "NVIDIA_NIM_API_KEY",
	"search.api_key": "SERPER_API_KEY",
	"news.api_key":   "NEWSAPI_API_KEY",
}

// LoadConfig loads config from path, or from config.{json,yaml} in ./config
// or the working directory when path is empty. A missing file is not an error
// when searching; environment variables (WEBAGENT_*) and a .env file fill in.
func LoadConfig(path string) (*Config, error) {
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(".env"); err != nil {
			return nil, fmt.Errorf("load .env: %w", err)
		}
	}

	v := viper.New()
	setDefaults(v)
	if path == "" {
		v.SetConfigName("config")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
		if exe, err := os.Executable(); err == nil {
			v.AddConfigPath(filepath.Dir(exe))
		}
	} else {
		v.SetConfigFile(path)
	}

	v.SetEnvPrefix("WEBAGENT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, legacy := range legacyEnv {
		envKey := "WEBAGENT_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, envKey, legacy); err != nil {
			return nil, err
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.CrawlPolicy = cfg.CrawlPolicy.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
