package runner

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mohammad-safakhou/webagent/internal/checkpoint"
	"github.com/mohammad-safakhou/webagent/internal/executor"
	"github.com/mohammad-safakhou/webagent/internal/research"
	"github.com/mohammad-safakhou/webagent/tools"
)

type namedTool string

func (n namedTool) Definition() tools.Definition { return tools.Definition{Name: string(n)} }
func (n namedTool) Invoke(ctx context.Context, args json.RawMessage) tools.Result {
	return tools.OK(nil)
}

func crew(t *testing.T) *research.Crew {
	t.Helper()
	c, err := research.NewCrew(research.Toolbox{
		Search:   namedTool("web_search"),
		Scraper:  namedTool("web_scraper"),
		News:     namedTool("news_aggregator"),
		Analyzer: namedTool("content_analyzer"),
	})
	if err != nil {
		t.Fatalf("NewCrew: %v", err)
	}
	return c
}

func quiet() *log.Logger { return log.New(io.Discard, "", 0) }

func newRunner(t *testing.T, agent executor.Agent, opts ...Option) *Runner {
	t.Helper()
	base := []Option{
		WithLogger(quiet()),
		WithExecutorOptions(executor.WithLogger(quiet())),
	}
	return New(crew(t), agent, append(base, opts...)...)
}

func echoAgent() executor.AgentFunc {
	return func(ctx context.Context, role *executor.Role, b executor.Brief) (executor.Response, error) {
		return executor.Response{Text: "out:" + b.TaskID}, nil
	}
}

func failingAgent(err error) executor.AgentFunc {
	return func(ctx context.Context, role *executor.Role, b executor.Brief) (executor.Response, error) {
		if b.TaskID == research.TaskNewsAggregation {
			return executor.Response{}, err
		}
		return executor.Response{Text: "ok"}, nil
	}
}

func TestRunReturnsFinalReport(t *testing.T) {
	rep, err := newRunner(t, echoAgent()).Run(context.Background(), Kickoff{Query: "rust async"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if rep.Markdown != "out:"+research.TaskReportCreation || rep.Degraded || rep.Outputs != nil {
		t.Fatalf("unexpected report %+v", rep)
	}
	if rep.RunID == "" {
		t.Fatalf("expected run id")
	}
}

func TestRunShowIntermediateWritesFiles(t *testing.T) {
	dir := t.TempDir()
	rep, err := newRunner(t, echoAgent(), WithIntermediateDir(dir)).Run(context.Background(), Kickoff{Query: "q", ShowIntermediate: true})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(rep.Outputs) != 5 || rep.Outputs[0].TaskID != research.TaskWebSearch {
		t.Fatalf("unexpected outputs %+v", rep.Outputs)
	}
	raw, err := os.ReadFile(filepath.Join(dir, research.TaskContentAnalysis+".json"))
	if err != nil {
		t.Fatalf("intermediate file missing: %v", err)
	}
	var rec checkpoint.Record
	if err := json.Unmarshal(raw, &rec); err != nil || rec.Output != "out:"+research.TaskContentAnalysis {
		t.Fatalf("unexpected record %s (%v)", raw, err)
	}
}

func TestRunFeedsConfiguredSink(t *testing.T) {
	var seen []string
	sink := executor.CheckpointFunc(func(ctx context.Context, taskID, output string) (string, error) {
		seen = append(seen, taskID)
		return "", nil
	})
	if _, err := newRunner(t, echoAgent(), WithCheckpointSink(sink)).Run(context.Background(), Kickoff{Query: "q"}); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(seen) != 5 {
		t.Fatalf("sink should see every task, saw %v", seen)
	}
}

func TestRunDegradesOnShutdownPhrase(t *testing.T) {
	for _, msg := range []string{
		"RuntimeError: cannot schedule new futures after shutdown",
		"pool: cannot schedule new tasks after shutdown",
	} {
		rep, err := newRunner(t, failingAgent(errors.New(msg))).Run(context.Background(), Kickoff{Query: "q"})
		if err != nil {
			t.Fatalf("%q: expected degraded report, got error %v", msg, err)
		}
		if !rep.Degraded || !strings.Contains(rep.Markdown, msg) {
			t.Fatalf("%q: report should carry the error:\n%s", msg, rep.Markdown)
		}
		bullets := 0
		for _, line := range strings.Split(rep.Markdown, "\n") {
			if len(line) > 2 && line[0] >= '1' && line[0] <= '9' && line[1] == '.' {
				bullets++
			}
		}
		if bullets != 3 {
			t.Fatalf("expected three remediation lines, got %d", bullets)
		}
		if len(rep.Outputs) != 1 || rep.Outputs[0].TaskID != "error" {
			t.Fatalf("unexpected outputs %+v", rep.Outputs)
		}
	}
}

func TestRunDegradesWhenShutDown(t *testing.T) {
	r := newRunner(t, echoAgent())
	r.Shutdown()
	rep, err := r.Run(context.Background(), Kickoff{Query: "q"})
	if err != nil || !rep.Degraded {
		t.Fatalf("expected degraded report after shutdown, got %+v, %v", rep, err)
	}
	if !strings.Contains(rep.Markdown, "cannot schedule new tasks after shutdown") {
		t.Fatalf("report should name the shutdown:\n%s", rep.Markdown)
	}
}

func TestRunWrapsOtherFailures(t *testing.T) {
	boom := errors.New("model unavailable")
	_, err := newRunner(t, failingAgent(boom)).Run(context.Background(), Kickoff{Query: "q"})
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped error, got %v", err)
	}
	if !strings.HasPrefix(err.Error(), "an error occurred while running the web research: ") {
		t.Fatalf("missing prefix: %v", err)
	}
	var te *executor.TaskError
	if !errors.As(err, &te) || te.TaskID != research.TaskNewsAggregation {
		t.Fatalf("expected task error for news, got %v", err)
	}
}

func TestRunCancelledRequestIsFailure(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var outcomes []string
	agent := executor.AgentFunc(func(c context.Context, role *executor.Role, b executor.Brief) (executor.Response, error) {
		cancel()
		return executor.Response{Text: "ok"}, nil
	})
	r := newRunner(t, agent, WithOutcomeObserver(func(o string) { outcomes = append(outcomes, o) }))
	rep, err := r.Run(ctx, Kickoff{Query: "q"})
	if err == nil || rep != nil {
		t.Fatalf("cancelled run must fail, got %+v", rep)
	}
	if !errors.Is(err, context.Canceled) || strings.Contains(err.Error(), "after shutdown") {
		t.Fatalf("expected wrapped cancellation, got %v", err)
	}
	if len(outcomes) != 1 || outcomes[0] != OutcomeFailed {
		t.Fatalf("unexpected outcomes %v", outcomes)
	}
}

func TestRunShutdownDuringTaskDegrades(t *testing.T) {
	var r *Runner
	agent := executor.AgentFunc(func(c context.Context, role *executor.Role, b executor.Brief) (executor.Response, error) {
		r.Shutdown()
		return executor.Response{}, context.Canceled
	})
	r = newRunner(t, agent)
	rep, err := r.Run(context.Background(), Kickoff{Query: "q"})
	if err != nil || !rep.Degraded {
		t.Fatalf("expected degraded report, got %+v, %v", rep, err)
	}
}

func TestRunRejectsInvalidKickoff(t *testing.T) {
	if _, err := newRunner(t, echoAgent()).Run(context.Background(), Kickoff{Query: "q", Days: 90}); !errors.Is(err, research.ErrInvalidDays) {
		t.Fatalf("expected ErrInvalidDays, got %v", err)
	}
}

func TestIsResourceExhaustion(t *testing.T) {
	cases := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{errors.New("timeout"), false},
		{executor.ErrShutdown, true},
		{&executor.TaskError{TaskID: "a", Err: executor.ErrShutdown}, true},
		{&executor.TaskError{TaskID: "a", Err: context.Canceled}, false},
	}
	for _, tc := range cases {
		if got := IsResourceExhaustion(tc.err); got != tc.want {
			t.Fatalf("IsResourceExhaustion(%v) = %v", tc.err, got)
		}
	}
}

func TestWriteReport(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reports", "r.md")
	if err := WriteReport(path, "# hi"); err != nil {
		t.Fatalf("WriteReport: %v", err)
	}
	raw, err := os.ReadFile(path)
	if err != nil || string(raw) != "# hi" {
		t.Fatalf("unexpected file %q (%v)", raw, err)
	}
}
