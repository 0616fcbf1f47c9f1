package provider

import (
	"context"
	"errors"
	"time"

	"github.com/mohammad-safakhou/webagent/models"
	openai_provider "github.com/mohammad-safakhou/webagent/provider/openai"
)

// Client names an LLM backend.
type Client string

const (
	NvidiaNIM Client = "nvidia_nim"
	OpenAI    Client = "openai"
)

// Default endpoints for the OpenAI-compatible backends.
const (
	NvidiaNIMBaseURL = "https://integrate.api.nvidia.com/v1"
	OpenAIBaseURL    = "https://api.openai.com/v1"
)

var ErrUnsupportedClient = errors.New("unsupported LLM provider")

// Provider is the interface that all LLM implementations must satisfy.
type Provider interface {
	Chat(ctx context.Context, req models.ChatRequest) (models.ChatResponse, error)
}

// Settings configure a provider. BaseURL defaults per client.
type Settings struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
	Retries     int
}

// NewProvider creates a new LLM client based on the provided configuration.
func NewProvider(client Client, s Settings) (Provider, error) {
	if s.APIKey == "" {
		return nil, errors.New("LLM API key not set")
	}
	base := s.BaseURL
	switch client {
	case NvidiaNIM, "":
		if base == "" {
			base = NvidiaNIMBaseURL
		}
	case OpenAI:
		if base == "" {
			base = OpenAIBaseURL
		}
	default:
		return nil, ErrUnsupportedClient
	}
	return openai_provider.NewOpenAIClient(base, s.APIKey, s.Model, s.Temperature, s.MaxTokens, s.Timeout, s.Retries), nil
}
