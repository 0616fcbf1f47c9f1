// Package tools defines the contract shared by every capability an agent can
// call. A tool never fails past its own boundary: every outcome, including
// panics, is folded into a Result that renders as JSON.
package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mohammad-safakhou/webagent/internal/helpers"
)

// Definition describes a tool to the model: name, purpose and a JSON schema
// for its arguments.
type Definition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// Tool is a typed function exposed to agents.
type Tool interface {
	Definition() Definition
	Invoke(ctx context.Context, args json.RawMessage) Result
}

// Result is the value-or-error outcome of a tool invocation.
type Result struct {
	value any
	err   error
}

// OK wraps a successful value.
func OK(v any) Result { return Result{value: v} }

// Fail wraps an error. A nil error is replaced by a generic one so the result
// is never mistaken for success.
func Fail(err error) Result {
	if err == nil {
		err = errors.New("unknown tool failure")
	}
	return Result{err: err}
}

// Failf is Fail with fmt.Errorf formatting.
func Failf(format string, args ...any) Result { return Fail(fmt.Errorf(format, args...)) }

func (r Result) Value() any { return r.value }
func (r Result) Err() error { return r.err }

// String renders the result the way it is handed to a model: indented JSON of
// the value, or {"error": "..."}.
func (r Result) String() string {
	if r.err != nil {
		return encode(map[string]string{"error": r.err.Error()})
	}
	return encode(r.value)
}

func encode(v any) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		// Only reachable for values JSON cannot represent (NaN, channels).
		fallback, _ := json.Marshal(map[string]string{"error": "encode result: " + err.Error()})
		return string(fallback)
	}
	return strings.TrimRight(buf.String(), "\n")
}

// Guard runs fn and converts a panic into a failed Result.
func Guard(name string, fn func() Result) (res Result) {
	defer func() {
		if p := recover(); p != nil {
			res = Failf("%s: internal error: %v", name, p)
		}
	}()
	return fn()
}

// DecodeArgs unmarshals model-supplied arguments into dst. Arguments wrapped
// in fences or prose are tolerated; empty arguments leave dst untouched.
func DecodeArgs(args json.RawMessage, dst any) error {
	raw := strings.TrimSpace(string(args))
	if raw == "" || raw == "null" {
		return nil
	}
	// Some providers double-encode arguments as a JSON string.
	if strings.HasPrefix(raw, `"`) {
		var inner string
		if err := json.Unmarshal([]byte(raw), &inner); err == nil {
			raw = inner
		}
	}
	clean, err := helpers.ExtractJSON(raw)
	if err != nil {
		return fmt.Errorf("invalid arguments: %w", err)
	}
	if err := json.Unmarshal([]byte(clean), dst); err != nil {
		return fmt.Errorf("invalid arguments: %w", err)
	}
	return nil
}
