// Package agent performs pipeline tasks with an LLM that may call the tools of
// the task's role.
package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/mohammad-safakhou/webagent/internal/executor"
	"github.com/mohammad-safakhou/webagent/models"
	"github.com/mohammad-safakhou/webagent/provider"
	"github.com/mohammad-safakhou/webagent/tools"
)

const DefaultMaxToolRounds = 5

var ErrEmptyResponse = errors.New("model returned an empty response")

// ToolObserver is told about every tool call the agent dispatches.
type ToolObserver func(ctx context.Context, tool string, failed bool)

type Agent struct {
	llm       provider.Provider
	maxRounds int
	observe   ToolObserver
	logger    *log.Logger
}

type Option func(*Agent)

// WithMaxToolRounds bounds the number of tool-calling rounds per task.
func WithMaxToolRounds(n int) Option {
	return func(a *Agent) {
		if n >= 0 {
			a.maxRounds = n
		}
	}
}

func WithToolObserver(fn ToolObserver) Option {
	return func(a *Agent) { a.observe = fn }
}

func WithLogger(l *log.Logger) Option {
	return func(a *Agent) { a.logger = l }
}

func New(llm provider.Provider, opts ...Option) *Agent {
	a := &Agent{
		llm:       llm,
		maxRounds: DefaultMaxToolRounds,
		logger:    log.New(log.Writer(), "[AGENT] ", log.LstdFlags),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

var _ executor.Agent = (*Agent)(nil)

// Perform runs the chat/tool loop for one task. Tool failures never abort the
// task; they are returned in the Response. Provider errors do.
func (a *Agent) Perform(ctx context.Context, role *executor.Role, brief executor.Brief) (executor.Response, error) {
	messages := []models.Message{
		{Role: models.RoleSystem, Content: systemPrompt(role)},
		{Role: models.RoleUser, Content: userPrompt(brief)},
	}
	defs := make([]tools.Definition, 0, len(role.Tools()))
	for _, t := range role.Tools() {
		defs = append(defs, t.Definition())
	}

	var failures []executor.ToolFailure
	if len(defs) > 0 {
		for round := 0; round < a.maxRounds; round++ {
			resp, err := a.llm.Chat(ctx, models.ChatRequest{Messages: messages, Tools: defs, ToolChoice: models.ToolChoiceAuto})
			if err != nil {
				return executor.Response{}, err
			}
			if len(resp.Message.ToolCalls) == 0 {
				return finish(resp.Message.Content, failures)
			}
			messages = append(messages, resp.Message)
			for _, call := range resp.Message.ToolCalls {
				res := a.dispatch(ctx, role, call)
				if err := res.Err(); err != nil {
					failures = append(failures, executor.ToolFailure{Tool: call.Function.Name, Error: err.Error()})
				}
				messages = append(messages, models.Message{Role: models.RoleTool, ToolCallID: call.ID, Content: res.String()})
			}
		}
	}

	req := models.ChatRequest{Messages: messages}
	if len(defs) > 0 {
		// Round budget spent: force a final answer.
		req.Tools = defs
		req.ToolChoice = models.ToolChoiceNone
	}
	resp, err := a.llm.Chat(ctx, req)
	if err != nil {
		return executor.Response{}, err
	}
	return finish(resp.Message.Content, failures)
}

func finish(text string, failures []executor.ToolFailure) (executor.Response, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return executor.Response{}, ErrEmptyResponse
	}
	return executor.Response{Text: text, ToolFailures: failures}, nil
}

// dispatch resolves a call against the role's own tools only.
func (a *Agent) dispatch(ctx context.Context, role *executor.Role, call models.ToolCall) tools.Result {
	name := call.Function.Name
	t, ok := role.Tool(name)
	var res tools.Result
	if !ok {
		res = tools.Failf("tool %q is not available to %s", name, role.Kind().Title())
	} else {
		res = tools.Guard(name, func() tools.Result {
			return t.Invoke(ctx, json.RawMessage(call.Function.Arguments))
		})
	}
	if res.Err() != nil {
		a.logger.Printf("tool=%s error=%v", name, res.Err())
	}
	if a.observe != nil {
		a.observe(ctx, name, res.Err() != nil)
	}
	return res
}

func systemPrompt(role *executor.Role) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are a %s. %s\n\nYour goal: %s\n", role.Kind().Title(), role.Backstory(), role.Goal())
	if len(role.Tools()) > 0 {
		b.WriteString("\nCall the available tools when they help. Tool results are JSON; ")
		b.WriteString(`an object with an "error" key means the call failed and should not be treated as data.`)
		b.WriteString("\n")
	}
	return b.String()
}

func userPrompt(brief executor.Brief) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Task: %s\n\nExpected output: %s\n", brief.Description, brief.ExpectedOutput)
	if brief.Context != "" {
		fmt.Fprintf(&b, "\nContext from previous tasks:\n%s\n", brief.Context)
	}
	for _, d := range brief.Dependencies {
		if d.Status == executor.StatusDegraded {
			fmt.Fprintf(&b, "\nNote: some tool calls failed while producing %q; its output may be incomplete.\n", d.TaskID)
		}
	}
	return b.String()
}
