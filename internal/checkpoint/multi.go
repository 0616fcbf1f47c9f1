package checkpoint

import (
	"context"

	"github.com/mohammad-safakhou/webagent/internal/executor"
)

// Multi fans every call out to its managers in order. A replacement returned
// by one manager is what the next manager sees.
type Multi []executor.CheckpointManager

func (m Multi) StartRun(ctx context.Context, runID string) error {
	for _, mgr := range m {
		if err := mgr.StartRun(ctx, runID); err != nil {
			return err
		}
	}
	return nil
}

func (m Multi) SaveTaskStart(ctx context.Context, runID string, task executor.Task) error {
	for _, mgr := range m {
		if err := mgr.SaveTaskStart(ctx, runID, task); err != nil {
			return err
		}
	}
	return nil
}

func (m Multi) SaveTaskSuccess(ctx context.Context, runID string, task executor.Task, out executor.Envelope) (string, error) {
	replaced := ""
	for _, mgr := range m {
		r, err := mgr.SaveTaskSuccess(ctx, runID, task, out)
		if err != nil {
			return "", err
		}
		if r != "" {
			out.Payload = r
			replaced = r
		}
	}
	return replaced, nil
}

func (m Multi) SaveTaskFailure(ctx context.Context, runID string, task executor.Task, err error) error {
	for _, mgr := range m {
		if cpErr := mgr.SaveTaskFailure(ctx, runID, task, err); cpErr != nil {
			return cpErr
		}
	}
	return nil
}
