// Package checkpoint provides executor.CheckpointManager sinks that persist
// per-task outputs as a run progresses.
package checkpoint

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/mohammad-safakhou/webagent/internal/executor"
)

// DefaultDir is where intermediate results are written unless configured.
const DefaultDir = "intermediate_results"

// Record is the on-disk shape of one task output.
type Record struct {
	Task   string `json:"task"`
	Output string `json:"output"`
}

// FileManager writes <Dir>/<task>.json after each successful task.
type FileManager struct {
	Dir    string
	Logger *log.Logger
}

func NewFileManager(dir string, logger *log.Logger) *FileManager {
	if dir == "" {
		dir = DefaultDir
	}
	if logger == nil {
		logger = log.New(log.Writer(), "[CHECKPOINT] ", log.LstdFlags)
	}
	return &FileManager{Dir: dir, Logger: logger}
}

func (m *FileManager) StartRun(ctx context.Context, runID string) error {
	if err := os.MkdirAll(m.Dir, 0o755); err != nil {
		return fmt.Errorf("create checkpoint dir: %w", err)
	}
	return nil
}

func (m *FileManager) SaveTaskStart(ctx context.Context, runID string, task executor.Task) error {
	return nil
}

func (m *FileManager) SaveTaskSuccess(ctx context.Context, runID string, task executor.Task, out executor.Envelope) (string, error) {
	raw, err := json.MarshalIndent(Record{Task: task.ID, Output: out.Payload}, "", "  ")
	if err != nil {
		return "", err
	}
	path := filepath.Join(m.Dir, safeName(task.ID)+".json")
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return "", fmt.Errorf("write checkpoint %s: %w", path, err)
	}
	m.Logger.Printf("run=%s task=%s saved %s", runID, task.ID, path)
	return "", nil
}

func (m *FileManager) SaveTaskFailure(ctx context.Context, runID string, task executor.Task, err error) error {
	m.Logger.Printf("run=%s task=%s failed: %v", runID, task.ID, err)
	return nil
}

// safeName keeps task ids from escaping the checkpoint directory.
func safeName(id string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', 0:
			return '_'
		}
		return r
	}, strings.Trim(id, "."))
}
