package executor

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// ContextSeparator joins dependency outputs into a task's context.
const ContextSeparator = "\n\n"

// Process is the execution mode of a pipeline. Only sequential is supported.
type Process string

const Sequential Process = "sequential"

// Task is a node in the pipeline. Dependencies must appear earlier in the
// pipeline than the task itself.
type Task struct {
	ID             string
	Description    string
	ExpectedOutput string
	Role           *Role
	DependsOn      []string
}

// Pipeline is an ordered task list whose order is a valid topological order.
type Pipeline struct {
	process Process
	tasks   []Task
}

var (
	// ErrUnknownDependency indicates a dependency reference that is missing from the pipeline.
	ErrUnknownDependency = errors.New("unknown dependency")
	// ErrDependencyOrder indicates a dependency declared after its dependent.
	ErrDependencyOrder    = errors.New("dependency declared after dependent")
	ErrUnsupportedProcess = errors.New("unsupported process")
	ErrInvalidTask        = errors.New("invalid task")
	// ErrShutdown reports that no further work can be scheduled.
	ErrShutdown = errors.New("cannot schedule new tasks after shutdown")
)

// NewPipeline validates tasks in declaration order. No sorting is performed.
func NewPipeline(process Process, tasks ...Task) (*Pipeline, error) {
	if process != Sequential {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedProcess, process)
	}
	all := make(map[string]bool, len(tasks))
	for _, t := range tasks {
		all[t.ID] = true
	}
	seen := make(map[string]bool, len(tasks))
	out := make([]Task, 0, len(tasks))
	for i, t := range tasks {
		switch {
		case strings.TrimSpace(t.ID) == "":
			return nil, fmt.Errorf("%w: task %d has empty id", ErrInvalidTask, i)
		case seen[t.ID]:
			return nil, fmt.Errorf("%w: duplicate id %s", ErrInvalidTask, t.ID)
		case t.Role == nil:
			return nil, fmt.Errorf("%w: %s has no role", ErrInvalidTask, t.ID)
		}
		for _, dep := range t.DependsOn {
			if !all[dep] {
				return nil, fmt.Errorf("%w: %s -> %s", ErrUnknownDependency, t.ID, dep)
			}
			if !seen[dep] {
				return nil, fmt.Errorf("%w: %s -> %s", ErrDependencyOrder, t.ID, dep)
			}
		}
		seen[t.ID] = true
		t.DependsOn = append([]string(nil), t.DependsOn...)
		out = append(out, t)
	}
	return &Pipeline{process: process, tasks: out}, nil
}

func (p *Pipeline) Process() Process { return p.process }

// Tasks returns a copy of the pipeline's tasks in execution order.
func (p *Pipeline) Tasks() []Task {
	out := make([]Task, len(p.tasks))
	copy(out, p.tasks)
	return out
}

// Brief is everything an agent receives to perform one task.
type Brief struct {
	TaskID         string
	Description    string
	ExpectedOutput string
	// Context holds dependency payloads joined with ContextSeparator.
	Context      string
	Dependencies []Envelope
}

// ToolFailure records a tool call that returned an error result.
type ToolFailure struct {
	Tool  string
	Error string
}

type Response struct {
	Text         string
	ToolFailures []ToolFailure
}

// Agent performs a task on behalf of a role.
type Agent interface {
	Perform(ctx context.Context, role *Role, brief Brief) (Response, error)
}

// AgentFunc adapts a function to Agent.
type AgentFunc func(ctx context.Context, role *Role, brief Brief) (Response, error)

func (f AgentFunc) Perform(ctx context.Context, role *Role, brief Brief) (Response, error) {
	return f(ctx, role, brief)
}

type Status string

const (
	StatusDone     Status = "done"
	StatusDegraded Status = "degraded"
	StatusFailed   Status = "failed"
)

// Envelope is a task output with its outcome. Payload stays plain text so it
// can be handed to dependents unchanged.
type Envelope struct {
	TaskID  string `json:"task"`
	Status  Status `json:"status"`
	Payload string `json:"output"`
}

// TaskOutput is a recorded output, in execution order.
type TaskOutput struct {
	TaskID string
	Output string
}

type RunResult struct {
	RunID string
	// Report is the last task's output.
	Report string
	// Outputs is only populated when a checkpoint manager is configured.
	Outputs []TaskOutput
}

// TaskError aborts a run; tasks after TaskID never run.
type TaskError struct {
	TaskID string
	Err    error
}

func (e *TaskError) Error() string { return fmt.Sprintf("task %s: %v", e.TaskID, e.Err) }
func (e *TaskError) Unwrap() error { return e.Err }

// Metrics aggregates optional telemetry callbacks.
type Metrics struct {
	Duration func(context.Context, Task, time.Duration)
	Status   func(context.Context, Task, Status)
}

// Executor runs pipelines one task at a time.
type Executor struct {
	checkpoints CheckpointManager
	metrics     Metrics
	tracer      trace.Tracer
	logger      *log.Logger

	mu     sync.Mutex
	closed bool
}

// Option configures executor behaviour.
type Option func(*Executor)

// WithCheckpointManager sets the checkpoint manager implementation.
func WithCheckpointManager(mgr CheckpointManager) Option {
	return func(ex *Executor) {
		ex.checkpoints = mgr
	}
}

// WithMetrics sets executor metrics callbacks.
func WithMetrics(m Metrics) Option {
	return func(ex *Executor) {
		ex.metrics = m
	}
}

func WithTracer(t trace.Tracer) Option {
	return func(ex *Executor) {
		ex.tracer = t
	}
}

func WithLogger(l *log.Logger) Option {
	return func(ex *Executor) {
		ex.logger = l
	}
}

// New creates a new Executor instance.
func New(opts ...Option) *Executor {
	ex := &Executor{}
	for _, opt := range opts {
		opt(ex)
	}
	if ex.tracer == nil {
		ex.tracer = otel.Tracer("webagent/executor")
	}
	if ex.logger == nil {
		ex.logger = log.New(log.Writer(), "[PIPELINE] ", log.LstdFlags)
	}
	return ex
}

// Shutdown stops the executor from starting any further task.
func (e *Executor) Shutdown() {
	e.mu.Lock()
	e.closed = true
	e.mu.Unlock()
}

func (e *Executor) isClosed() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.closed
}

type taskState int

const (
	pending taskState = iota
	running
	done
	failed
)

// Run executes p in declaration order. A task starts only when every
// dependency is done; the first failing task aborts the run with *TaskError.
func (e *Executor) Run(ctx context.Context, runID string, p *Pipeline, agent Agent) (*RunResult, error) {
	if p == nil || agent == nil {
		return nil, errors.New("executor: nil pipeline or agent")
	}
	if e.isClosed() {
		return nil, ErrShutdown
	}
	if runID == "" {
		runID = uuid.NewString()
	}
	checkpoints := e.checkpoints
	record := checkpoints != nil
	if checkpoints == nil {
		checkpoints = NewNoopCheckpointManager()
	}
	if err := checkpoints.StartRun(ctx, runID); err != nil {
		return nil, err
	}

	ctx, span := e.tracer.Start(ctx, "pipeline.run", trace.WithAttributes(
		attribute.String("run.id", runID),
		attribute.Int("pipeline.tasks", len(p.tasks)),
	))
	defer span.End()

	res := &RunResult{RunID: runID}
	state := make(map[string]taskState, len(p.tasks))
	outputs := make(map[string]Envelope, len(p.tasks))

	for _, task := range p.tasks {
		if e.isClosed() {
			return nil, &TaskError{TaskID: task.ID, Err: ErrShutdown}
		}
		if err := ctx.Err(); err != nil {
			return nil, &TaskError{TaskID: task.ID, Err: err}
		}
		deps := make([]Envelope, 0, len(task.DependsOn))
		for _, dep := range task.DependsOn {
			if state[dep] != done {
				return nil, &TaskError{TaskID: task.ID, Err: fmt.Errorf("dependency %s is not done", dep)}
			}
			deps = append(deps, outputs[dep])
		}

		state[task.ID] = running
		env, err := e.runTask(ctx, runID, task, deps, agent, checkpoints)
		if err != nil {
			state[task.ID] = failed
			// A task cut short by Shutdown reports the shutdown, not its own error.
			if e.isClosed() && !errors.Is(err, ErrShutdown) {
				err = fmt.Errorf("%w: %w", ErrShutdown, err)
			}
			span.SetStatus(codes.Error, err.Error())
			return nil, &TaskError{TaskID: task.ID, Err: err}
		}
		state[task.ID] = done
		outputs[task.ID] = env
		res.Report = env.Payload
		if record {
			res.Outputs = append(res.Outputs, TaskOutput{TaskID: task.ID, Output: env.Payload})
		}
	}
	return res, nil
}

func (e *Executor) runTask(ctx context.Context, runID string, task Task, deps []Envelope, agent Agent, checkpoints CheckpointManager) (Envelope, error) {
	ctx, span := e.tracer.Start(ctx, "pipeline.task", trace.WithAttributes(
		attribute.String("task.id", task.ID),
		attribute.String("task.role", string(task.Role.Kind())),
	))
	defer span.End()

	start := time.Now()
	e.logger.Printf("run=%s task=%s role=%s starting", runID, task.ID, task.Role.Kind())
	if err := checkpoints.SaveTaskStart(ctx, runID, task); err != nil {
		return Envelope{}, err
	}

	payloads := make([]string, len(deps))
	for i, d := range deps {
		payloads[i] = d.Payload
	}
	brief := Brief{
		TaskID:         task.ID,
		Description:    task.Description,
		ExpectedOutput: task.ExpectedOutput,
		Context:        strings.Join(payloads, ContextSeparator),
		Dependencies:   deps,
	}

	resp, err := agent.Perform(ctx, task.Role, brief)
	if err != nil {
		e.observe(ctx, task, StatusFailed, time.Since(start))
		span.SetStatus(codes.Error, err.Error())
		e.logger.Printf("run=%s task=%s failed: %v", runID, task.ID, err)
		if cpErr := checkpoints.SaveTaskFailure(ctx, runID, task, err); cpErr != nil {
			return Envelope{}, errors.Join(err, cpErr)
		}
		return Envelope{}, err
	}

	env := Envelope{TaskID: task.ID, Status: StatusDone, Payload: resp.Text}
	if len(resp.ToolFailures) > 0 {
		env.Status = StatusDegraded
		for _, f := range resp.ToolFailures {
			e.logger.Printf("run=%s task=%s tool=%s error=%s", runID, task.ID, f.Tool, f.Error)
		}
	}
	replaced, err := checkpoints.SaveTaskSuccess(ctx, runID, task, env)
	if err != nil {
		return Envelope{}, fmt.Errorf("checkpoint: %w", err)
	}
	if replaced != "" {
		env.Payload = replaced
	}
	span.SetAttributes(attribute.String("task.status", string(env.Status)))
	e.observe(ctx, task, env.Status, time.Since(start))
	e.logger.Printf("run=%s task=%s status=%s took=%s", runID, task.ID, env.Status, time.Since(start).Round(time.Millisecond))
	return env, nil
}

func (e *Executor) observe(ctx context.Context, task Task, status Status, d time.Duration) {
	if e.metrics.Duration != nil {
		e.metrics.Duration(ctx, task, d)
	}
	if e.metrics.Status != nil {
		e.metrics.Status(ctx, task, status)
	}
}
