package executor

import "context"

// CheckpointManager observes run progress. SaveTaskSuccess runs synchronously
// after a task completes and before the next one starts; a non-empty return
// value replaces the output recorded for that task.
type CheckpointManager interface {
	StartRun(ctx context.Context, runID string) error
	SaveTaskStart(ctx context.Context, runID string, task Task) error
	SaveTaskSuccess(ctx context.Context, runID string, task Task, out Envelope) (string, error)
	SaveTaskFailure(ctx context.Context, runID string, task Task, err error) error
}

// NoopCheckpointManager is a default implementation that records nothing.
type NoopCheckpointManager struct{}

// NewNoopCheckpointManager returns a checkpoint manager that does nothing.
func NewNoopCheckpointManager() *NoopCheckpointManager { return &NoopCheckpointManager{} }

func (NoopCheckpointManager) StartRun(ctx context.Context, runID string) error { return nil }
func (NoopCheckpointManager) SaveTaskStart(ctx context.Context, runID string, task Task) error {
	return nil
}
func (NoopCheckpointManager) SaveTaskSuccess(ctx context.Context, runID string, task Task, out Envelope) (string, error) {
	return "", nil
}
func (NoopCheckpointManager) SaveTaskFailure(ctx context.Context, runID string, task Task, err error) error {
	return nil
}

// CheckpointFunc adapts a plain per-task callback to CheckpointManager.
type CheckpointFunc func(ctx context.Context, taskID, output string) (string, error)

func (f CheckpointFunc) StartRun(ctx context.Context, runID string) error { return nil }
func (f CheckpointFunc) SaveTaskStart(ctx context.Context, runID string, task Task) error {
	return nil
}
func (f CheckpointFunc) SaveTaskSuccess(ctx context.Context, runID string, task Task, out Envelope) (string, error) {
	return f(ctx, task.ID, out.Payload)
}
func (f CheckpointFunc) SaveTaskFailure(ctx context.Context, runID string, task Task, err error) error {
	return nil
}
