package agent

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"strings"
	"testing"

	"github.com/mohammad-safakhou/webagent/internal/executor"
	"github.com/mohammad-safakhou/webagent/models"
	"github.com/mohammad-safakhou/webagent/tools"
)

// scriptedLLM replays responses in order and records every request.
type scriptedLLM struct {
	replies []models.ChatResponse
	err     error
	reqs    []models.ChatRequest
}

func (s *scriptedLLM) Chat(ctx context.Context, req models.ChatRequest) (models.ChatResponse, error) {
	s.reqs = append(s.reqs, req)
	if s.err != nil {
		return models.ChatResponse{}, s.err
	}
	if len(s.replies) == 0 {
		return models.ChatResponse{Message: models.Message{Role: models.RoleAssistant, Content: "fallback"}}, nil
	}
	r := s.replies[0]
	s.replies = s.replies[1:]
	return r, nil
}

type echoTool struct {
	name  string
	calls []string
	fail  bool
}

func (e *echoTool) Definition() tools.Definition {
	return tools.Definition{Name: e.name, Description: "echo", Parameters: map[string]any{"type": "object"}}
}

func (e *echoTool) Invoke(ctx context.Context, args json.RawMessage) tools.Result {
	e.calls = append(e.calls, string(args))
	if e.fail {
		return tools.Failf("Invalid URL: %s", "nope")
	}
	return tools.OK(map[string]string{"echo": string(args)})
}

func text(s string) models.ChatResponse {
	return models.ChatResponse{Message: models.Message{Role: models.RoleAssistant, Content: s}}
}

func calls(cs ...models.ToolCall) models.ChatResponse {
	return models.ChatResponse{Message: models.Message{Role: models.RoleAssistant, ToolCalls: cs}}
}

func call(id, name, args string) models.ToolCall {
	return models.ToolCall{ID: id, Type: "function", Function: models.FunctionCall{Name: name, Arguments: args}}
}

func role(t *testing.T, ts ...tools.Tool) *executor.Role {
	t.Helper()
	r, err := executor.NewRole(executor.WebResearcher, "find facts", "seasoned", ts...)
	if err != nil {
		t.Fatalf("NewRole: %v", err)
	}
	return r
}

func quiet() Option { return WithLogger(log.New(io.Discard, "", 0)) }

func TestPerformWithoutToolsMakesSingleCall(t *testing.T) {
	llm := &scriptedLLM{replies: []models.ChatResponse{text("  the report  ")}}
	resp, err := New(llm, quiet()).Perform(context.Background(), role(t), executor.Brief{TaskID: "a", Description: "write"})
	if err != nil {
		t.Fatalf("Perform: %v", err)
	}
	if resp.Text != "the report" {
		t.Fatalf("unexpected text %q", resp.Text)
	}
	if len(llm.reqs) != 1 || len(llm.reqs[0].Tools) != 0 || llm.reqs[0].ToolChoice != "" {
		t.Fatalf("expected one tool-less call, got %+v", llm.reqs)
	}
}

func TestPerformDispatchesToolCalls(t *testing.T) {
	echo := &echoTool{name: "web_search"}
	llm := &scriptedLLM{replies: []models.ChatResponse{
		calls(call("c1", "web_search", `{"query":"go"}`)),
		text("done"),
	}}
	resp, err := New(llm, quiet()).Perform(context.Background(), role(t, echo), executor.Brief{TaskID: "a"})
	if err != nil {
		t.Fatalf("Perform: %v", err)
	}
	if resp.Text != "done" || len(resp.ToolFailures) != 0 {
		t.Fatalf("unexpected response %+v", resp)
	}
	if len(echo.calls) != 1 || echo.calls[0] != `{"query":"go"}` {
		t.Fatalf("tool not invoked with raw args: %v", echo.calls)
	}
	second := llm.reqs[1].Messages
	last := second[len(second)-1]
	if last.Role != models.RoleTool || last.ToolCallID != "c1" || !strings.Contains(last.Content, "echo") {
		t.Fatalf("tool result not fed back: %+v", last)
	}
	if llm.reqs[0].ToolChoice != models.ToolChoiceAuto {
		t.Fatalf("expected auto tool choice, got %q", llm.reqs[0].ToolChoice)
	}
}

func TestPerformRecordsToolFailuresAndUnknownTools(t *testing.T) {
	failing := &echoTool{name: "web_scraper", fail: true}
	var observed []string
	obs := func(ctx context.Context, tool string, failed bool) {
		if failed {
			observed = append(observed, tool)
		}
	}
	llm := &scriptedLLM{replies: []models.ChatResponse{
		calls(call("c1", "web_scraper", `{}`), call("c2", "content_analyzer", `{}`)),
		text("partial"),
	}}
	resp, err := New(llm, quiet(), WithToolObserver(obs)).Perform(context.Background(), role(t, failing), executor.Brief{TaskID: "a"})
	if err != nil {
		t.Fatalf("Perform: %v", err)
	}
	if len(resp.ToolFailures) != 2 {
		t.Fatalf("expected two failures, got %+v", resp.ToolFailures)
	}
	if resp.ToolFailures[0].Error != "Invalid URL: nope" || resp.ToolFailures[1].Tool != "content_analyzer" {
		t.Fatalf("unexpected failures %+v", resp.ToolFailures)
	}
	msgs := llm.reqs[1].Messages
	unknown := msgs[len(msgs)-1].Content
	if !strings.Contains(unknown, `"error"`) || !strings.Contains(unknown, "content_analyzer") {
		t.Fatalf("unknown tool should produce an error result, got %s", unknown)
	}
	if strings.Join(observed, ",") != "web_scraper,content_analyzer" {
		t.Fatalf("observer saw %v", observed)
	}
}

func TestPerformForcesAnswerAfterRoundBudget(t *testing.T) {
	echo := &echoTool{name: "web_search"}
	llm := &scriptedLLM{replies: []models.ChatResponse{
		calls(call("c1", "web_search", `{}`)),
		calls(call("c2", "web_search", `{}`)),
		text("forced"),
	}}
	resp, err := New(llm, quiet(), WithMaxToolRounds(2)).Perform(context.Background(), role(t, echo), executor.Brief{TaskID: "a"})
	if err != nil {
		t.Fatalf("Perform: %v", err)
	}
	if resp.Text != "forced" || len(llm.reqs) != 3 {
		t.Fatalf("unexpected response %q after %d calls", resp.Text, len(llm.reqs))
	}
	if llm.reqs[2].ToolChoice != models.ToolChoiceNone {
		t.Fatalf("final call must disable tools, got %q", llm.reqs[2].ToolChoice)
	}
}

func TestPerformPropagatesProviderError(t *testing.T) {
	llm := &scriptedLLM{err: errors.New("503")}
	if _, err := New(llm, quiet()).Perform(context.Background(), role(t), executor.Brief{}); err == nil {
		t.Fatalf("expected provider error")
	}
}

func TestPerformRejectsEmptyAnswer(t *testing.T) {
	llm := &scriptedLLM{replies: []models.ChatResponse{text("   ")}}
	if _, err := New(llm, quiet()).Perform(context.Background(), role(t), executor.Brief{}); !errors.Is(err, ErrEmptyResponse) {
		t.Fatalf("expected ErrEmptyResponse, got %v", err)
	}
}

func TestPromptsCarryRoleAndContext(t *testing.T) {
	r := role(t, &echoTool{name: "web_search"})
	sys := systemPrompt(r)
	if !strings.Contains(sys, "Web Researcher") || !strings.Contains(sys, "find facts") || !strings.Contains(sys, "seasoned") {
		t.Fatalf("system prompt missing persona: %s", sys)
	}
	user := userPrompt(executor.Brief{
		Description:    "Analyze X",
		ExpectedOutput: "insights",
		Context:        "prior output",
		Dependencies:   []executor.Envelope{{TaskID: "web_scraping", Status: executor.StatusDegraded}},
	})
	for _, want := range []string{"Analyze X", "insights", "prior output", `"web_scraping"`} {
		if !strings.Contains(user, want) {
			t.Fatalf("user prompt missing %q: %s", want, user)
		}
	}
}
