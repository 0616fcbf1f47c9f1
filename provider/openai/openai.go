package openai_provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/mohammad-safakhou/webagent/internal/helpers"
	"github.com/mohammad-safakhou/webagent/models"
	"github.com/mohammad-safakhou/webagent/tools"
)

// client talks to any OpenAI-compatible /chat/completions endpoint.
type client struct {
	endpoint    string
	apiKey      string
	model       string
	temperature float64
	maxTokens   int
	http        *helpers.HTTPClient
}

type toolSpec struct {
	Type     string           `json:"type"`
	Function tools.Definition `json:"function"`
}

type request struct {
	Model       string           `json:"model"`
	Messages    []models.Message `json:"messages"`
	Temperature float64          `json:"temperature"`
	MaxTokens   int              `json:"max_tokens,omitempty"`
	Tools       []toolSpec       `json:"tools,omitempty"`
	ToolChoice  string           `json:"tool_choice,omitempty"`
}

type response struct {
	Choices []struct {
		Message      models.Message `json:"message"`
		FinishReason string         `json:"finish_reason"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// NewOpenAIClient creates a new chat client rooted at baseURL (e.g. https://api.openai.com/v1).
func NewOpenAIClient(baseURL, apiKey, model string, temperature float64, maxTokens int, timeout time.Duration, retries int) *client {
	return &client{
		endpoint:    strings.TrimRight(baseURL, "/") + "/chat/completions",
		apiKey:      apiKey,
		model:       model,
		temperature: temperature,
		maxTokens:   maxTokens,
		http:        helpers.NewHTTPClient(timeout, retries, 0),
	}
}

func (c *client) Chat(ctx context.Context, req models.ChatRequest) (models.ChatResponse, error) {
	body := request{
		Model:       c.model,
		Messages:    req.Messages,
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
	}
	if len(req.Tools) > 0 {
		body.Tools = make([]toolSpec, len(req.Tools))
		for i, d := range req.Tools {
			body.Tools[i] = toolSpec{Type: "function", Function: d}
		}
		body.ToolChoice = req.ToolChoice
	}

	var resp response
	headers := map[string]string{"Authorization": "Bearer " + c.apiKey}
	if err := c.http.DoJSON(ctx, http.MethodPost, c.endpoint, headers, body, &resp); err != nil {
		return models.ChatResponse{}, fmt.Errorf("chat completion: %w", err)
	}
	if resp.Error != nil {
		return models.ChatResponse{}, fmt.Errorf("chat completion: %s", resp.Error.Message)
	}
	if len(resp.Choices) == 0 {
		return models.ChatResponse{}, errors.New("chat completion: no choices returned")
	}
	choice := resp.Choices[0]
	return models.ChatResponse{Message: choice.Message, FinishReason: choice.FinishReason}, nil
}
