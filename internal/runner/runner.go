// Package runner wraps one research pipeline run and guarantees a report
// artifact when the executor refuses to schedule more work.
package runner

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/mohammad-safakhou/webagent/internal/checkpoint"
	"github.com/mohammad-safakhou/webagent/internal/executor"
	"github.com/mohammad-safakhou/webagent/internal/research"
)

// DefaultReportPath is where callers conventionally write the final report.
const DefaultReportPath = "research_report.md"

// Phrases that mark an exhausted execution substrate. The first is emitted by
// executor.ErrShutdown; the second is kept for callers that surface errors
// from thread-pool style backends.
var shutdownPhrases = []string{
	"cannot schedule new tasks after shutdown",
	"cannot schedule new futures after shutdown",
}

const degradedTemplate = `# Research Report

## Error

An error occurred while running the web research: %s

## Possible Solutions

1. Restart the research agent
2. Try a simpler query
3. Check your LLM API key
`

// Run outcomes passed to an outcome observer.
const (
	OutcomeSucceeded = "succeeded"
	OutcomeDegraded  = "degraded"
	OutcomeFailed    = "failed"
)

// Kickoff is the input of one run.
type Kickoff struct {
	Query            string
	Days             int
	ShowIntermediate bool
}

// Report is the outcome of a run. Outputs is populated for intermediate runs
// and for degraded reports, where it holds the single "error" entry.
type Report struct {
	RunID    string
	Markdown string
	Outputs  []executor.TaskOutput
	Degraded bool
}

// Runner executes research pipelines one at a time per call.
type Runner struct {
	crew            *research.Crew
	agent           executor.Agent
	sinks           []executor.CheckpointManager
	intermediateDir string
	execOpts        []executor.Option
	observe         func(outcome string)
	logger          *log.Logger

	mu     sync.Mutex
	closed bool
	active map[*executor.Executor]struct{}
}

type Option func(*Runner)

// WithCheckpointSink adds a manager that sees every run, such as redis.
func WithCheckpointSink(m executor.CheckpointManager) Option {
	return func(r *Runner) {
		if m != nil {
			r.sinks = append(r.sinks, m)
		}
	}
}

// WithIntermediateDir sets where ShowIntermediate runs write per-task files.
func WithIntermediateDir(dir string) Option {
	return func(r *Runner) { r.intermediateDir = dir }
}

func WithExecutorOptions(opts ...executor.Option) Option {
	return func(r *Runner) { r.execOpts = append(r.execOpts, opts...) }
}

// WithOutcomeObserver is told how every run that reached the executor ended.
func WithOutcomeObserver(fn func(outcome string)) Option {
	return func(r *Runner) { r.observe = fn }
}

func WithLogger(l *log.Logger) Option {
	return func(r *Runner) { r.logger = l }
}

func New(crew *research.Crew, agent executor.Agent, opts ...Option) *Runner {
	r := &Runner{
		crew:            crew,
		agent:           agent,
		intermediateDir: checkpoint.DefaultDir,
		active:          map[*executor.Executor]struct{}{},
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = log.New(log.Writer(), "[RUNNER] ", log.LstdFlags)
	}
	return r
}

// Run builds and executes the pipeline for k. Invalid input is returned as
// is; a shutdown failure becomes a degraded report; any other failure is
// wrapped.
func (r *Runner) Run(ctx context.Context, k Kickoff) (*Report, error) {
	p, err := r.crew.Pipeline(research.Request{Query: k.Query, Days: k.Days})
	if err != nil {
		return nil, err
	}

	sinks := append([]executor.CheckpointManager(nil), r.sinks...)
	if k.ShowIntermediate {
		sinks = append(sinks, checkpoint.NewFileManager(r.intermediateDir, nil))
	}
	opts := append([]executor.Option(nil), r.execOpts...)
	switch len(sinks) {
	case 0:
	case 1:
		opts = append(opts, executor.WithCheckpointManager(sinks[0]))
	default:
		opts = append(opts, executor.WithCheckpointManager(checkpoint.Multi(sinks)))
	}
	ex := executor.New(opts...)
	r.track(ex)
	defer r.untrack(ex)

	r.logger.Printf("research started query=%q days=%d", k.Query, k.Days)
	res, err := ex.Run(ctx, "", p, r.agent)
	if err != nil {
		if IsResourceExhaustion(err) {
			r.logger.Printf("research degraded: %v", err)
			r.outcome(OutcomeDegraded)
			return Degraded(err), nil
		}
		r.outcome(OutcomeFailed)
		return nil, fmt.Errorf("an error occurred while running the web research: %w", err)
	}
	rep := &Report{RunID: res.RunID, Markdown: res.Report}
	if k.ShowIntermediate {
		rep.Outputs = res.Outputs
	}
	r.logger.Printf("research finished run=%s", res.RunID)
	r.outcome(OutcomeSucceeded)
	return rep, nil
}

func (r *Runner) outcome(o string) {
	if r.observe != nil {
		r.observe(o)
	}
}

// Shutdown stops in-flight runs before their next task and rejects new ones.
func (r *Runner) Shutdown() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	for ex := range r.active {
		ex.Shutdown()
	}
}

func (r *Runner) track(ex *executor.Executor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		ex.Shutdown()
	}
	r.active[ex] = struct{}{}
}

func (r *Runner) untrack(ex *executor.Executor) {
	r.mu.Lock()
	delete(r.active, ex)
	r.mu.Unlock()
}

// IsResourceExhaustion reports whether err means no more work can be scheduled.
func IsResourceExhaustion(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, executor.ErrShutdown) {
		return true
	}
	msg := err.Error()
	for _, phrase := range shutdownPhrases {
		if strings.Contains(msg, phrase) {
			return true
		}
	}
	return false
}

// Degraded renders the report returned in place of a shutdown failure.
func Degraded(err error) *Report {
	return &Report{
		Markdown: fmt.Sprintf(degradedTemplate, err),
		Outputs:  []executor.TaskOutput{{TaskID: "error", Output: err.Error()}},
		Degraded: true,
	}
}

// WriteReport writes markdown to path, creating parent directories.
func WriteReport(path, markdown string) error {
	if path == "" {
		path = DefaultReportPath
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create report dir: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(markdown), 0o644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}
