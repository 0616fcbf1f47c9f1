package checkpoint

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mohammad-safakhou/webagent/internal/executor"
)

const DefaultTTL = 48 * time.Hour

// RedisManager keeps a run's outputs in redis:
//
//	webagent:run:<id>:outputs  hash task -> output
//	webagent:run:<id>:order    list of task ids in completion order
//	webagent:run:<id>:status   hash task -> running|done|degraded|failed
type RedisManager struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

func NewRedisManager(client redis.UniversalClient, prefix string, ttl time.Duration) *RedisManager {
	if prefix == "" {
		prefix = "webagent"
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisManager{client: client, prefix: prefix, ttl: ttl}
}

func (m *RedisManager) key(runID, suffix string) string {
	return fmt.Sprintf("%s:run:%s:%s", m.prefix, runID, suffix)
}

func (m *RedisManager) StartRun(ctx context.Context, runID string) error {
	pipe := m.client.TxPipeline()
	pipe.Del(ctx, m.key(runID, "outputs"), m.key(runID, "order"), m.key(runID, "status"))
	pipe.HSet(ctx, m.key(runID, "meta"), "started_at", time.Now().UTC().Format(time.RFC3339))
	pipe.Expire(ctx, m.key(runID, "meta"), m.ttl)
	_, err := pipe.Exec(ctx)
	return err
}

func (m *RedisManager) SaveTaskStart(ctx context.Context, runID string, task executor.Task) error {
	return m.setStatus(ctx, runID, task.ID, "running")
}

func (m *RedisManager) SaveTaskSuccess(ctx context.Context, runID string, task executor.Task, out executor.Envelope) (string, error) {
	pipe := m.client.TxPipeline()
	pipe.HSet(ctx, m.key(runID, "outputs"), task.ID, out.Payload)
	pipe.RPush(ctx, m.key(runID, "order"), task.ID)
	pipe.HSet(ctx, m.key(runID, "status"), task.ID, string(out.Status))
	for _, s := range []string{"outputs", "order", "status"} {
		pipe.Expire(ctx, m.key(runID, s), m.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return "", err
	}
	return "", nil
}

func (m *RedisManager) SaveTaskFailure(ctx context.Context, runID string, task executor.Task, err error) error {
	pipe := m.client.TxPipeline()
	pipe.HSet(ctx, m.key(runID, "status"), task.ID, string(executor.StatusFailed))
	pipe.HSet(ctx, m.key(runID, "meta"), "error", err.Error())
	pipe.Expire(ctx, m.key(runID, "status"), m.ttl)
	_, execErr := pipe.Exec(ctx)
	return execErr
}

func (m *RedisManager) setStatus(ctx context.Context, runID, taskID, status string) error {
	pipe := m.client.TxPipeline()
	pipe.HSet(ctx, m.key(runID, "status"), taskID, status)
	pipe.Expire(ctx, m.key(runID, "status"), m.ttl)
	_, err := pipe.Exec(ctx)
	return err
}

// Outputs reads a run's outputs back in completion order.
func (m *RedisManager) Outputs(ctx context.Context, runID string) ([]executor.TaskOutput, error) {
	order, err := m.client.LRange(ctx, m.key(runID, "order"), 0, -1).Result()
	if err != nil {
		return nil, err
	}
	if len(order) == 0 {
		return nil, nil
	}
	values, err := m.client.HMGet(ctx, m.key(runID, "outputs"), order...).Result()
	if err != nil {
		return nil, err
	}
	out := make([]executor.TaskOutput, 0, len(order))
	for i, id := range order {
		s, _ := values[i].(string)
		out = append(out, executor.TaskOutput{TaskID: id, Output: s})
	}
	return out, nil
}
