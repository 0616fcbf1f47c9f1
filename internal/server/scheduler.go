package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorhill/cronexpr"
	"github.com/mohammad-safakhou/webagent/internal/runner"
	"github.com/redis/go-redis/v9"
)

// Job is a research kickoff repeated on a cron schedule.
type Job struct {
	Name    string
	Cron    string
	Kickoff runner.Kickoff
}

// Locker is the slice of redis the scheduler needs to coordinate replicas.
// redis.UniversalClient satisfies it.
type Locker interface {
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

// Scheduler fires due jobs and writes each report to OutputDir. With a
// Locker, replicas share each job's last fire time and claim every scheduled
// slot once, so a slot runs on exactly one replica.
type Scheduler struct {
	Research  Researcher
	Jobs      []Job
	OutputDir string
	Locker    Locker
	Interval  time.Duration
	Now       func() time.Time
	Logger    *log.Logger

	mu   sync.Mutex
	last map[string]time.Time
}

// Validate parses every job's schedule.
func (s *Scheduler) Validate() error {
	for _, j := range s.Jobs {
		if j.Name == "" {
			return fmt.Errorf("scheduler: job without name")
		}
		if _, err := parseSchedule(j.Cron); err != nil {
			return fmt.Errorf("scheduler: job %s: %w", j.Name, err)
		}
	}
	return nil
}

// Run ticks until ctx is done.
func (s *Scheduler) Run(ctx context.Context) error {
	if err := s.Validate(); err != nil {
		return err
	}
	interval := s.Interval
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	s.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	now := s.now()
	for _, j := range s.Jobs {
		if s.Locker == nil {
			if isDue(j.Cron, s.lastRun(j.Name), now) {
				s.fire(ctx, j, now)
			}
			continue
		}
		last := s.sharedLast(ctx, j.Name)
		if !isDue(j.Cron, last, now) {
			continue
		}
		ok, err := s.Locker.SetNX(ctx, slotKey(j.Name, j.Cron, last), now.Unix(), slotTTL(j.Cron, now)).Result()
		if err != nil {
			s.logger().Printf("job=%s lock: %v", j.Name, err)
			continue
		}
		if !ok {
			continue
		}
		if err := s.Locker.Set(ctx, lastKey(j.Name), now.Unix(), 0).Err(); err != nil {
			s.logger().Printf("job=%s record last run: %v", j.Name, err)
		}
		s.fire(ctx, j, now)
	}
}

// sharedLast reads the job's last fire time from redis, falling back to what
// this process saw when redis has none.
func (s *Scheduler) sharedLast(ctx context.Context, name string) *time.Time {
	sec, err := s.Locker.Get(ctx, lastKey(name)).Int64()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.logger().Printf("job=%s read last run: %v", name, err)
		}
		return s.lastRun(name)
	}
	t := time.Unix(sec, 0)
	return &t
}

func lastKey(name string) string { return "webagent:sched:last:" + name }

// slotKey names the scheduled occurrence that follows last. A job that never
// ran has a single initial slot.
func slotKey(name, spec string, last *time.Time) string {
	slot := "initial"
	if last != nil {
		if sched, err := parseSchedule(spec); err == nil {
			slot = strconv.FormatInt(sched.Next(*last).Unix(), 10)
		}
	}
	return "webagent:sched:slot:" + name + ":" + slot
}

// slotTTL keeps a claimed slot for at least one schedule period.
func slotTTL(spec string, now time.Time) time.Duration {
	const floor = time.Hour
	sched, err := parseSchedule(spec)
	if err != nil {
		return floor
	}
	next := sched.Next(now)
	period := sched.Next(next).Sub(next)
	return max(2*period, floor)
}

func (s *Scheduler) fire(ctx context.Context, j Job, now time.Time) {
	s.setLast(j.Name, now)
	rep, err := s.Research.Run(ctx, j.Kickoff)
	if err != nil {
		s.logger().Printf("job=%s failed: %v", j.Name, err)
		return
	}
	path := filepath.Join(s.OutputDir, fmt.Sprintf("%s-%s.md", slug(j.Name), now.UTC().Format("20060102T150405Z")))
	if err := runner.WriteReport(path, rep.Markdown); err != nil {
		s.logger().Printf("job=%s: %v", j.Name, err)
		return
	}
	s.logger().Printf("job=%s wrote %s degraded=%v", j.Name, path, rep.Degraded)
}

func (s *Scheduler) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *Scheduler) logger() *log.Logger {
	if s.Logger == nil {
		s.Logger = log.New(log.Writer(), "[SCHED] ", log.LstdFlags)
	}
	return s.Logger
}

func (s *Scheduler) lastRun(name string) *time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.last[name]
	if !ok {
		return nil
	}
	return &t
}

func (s *Scheduler) setLast(name string, t time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.last == nil {
		s.last = map[string]time.Time{}
	}
	s.last[name] = t
}

type schedule interface{ Next(time.Time) time.Time }

type every time.Duration

func (e every) Next(t time.Time) time.Time { return t.Add(time.Duration(e)) }

// parseSchedule accepts @daily, @hourly and cron expressions.
func parseSchedule(spec string) (schedule, error) {
	switch spec {
	case "@daily":
		return every(24 * time.Hour), nil
	case "@hourly":
		return every(time.Hour), nil
	}
	return cronexpr.Parse(spec)
}

// isDue reports whether a job last run at last should run at now. A job that
// never ran is due immediately.
func isDue(spec string, last *time.Time, now time.Time) bool {
	if last == nil {
		return true
	}
	sched, err := parseSchedule(spec)
	if err != nil {
		return false
	}
	next := sched.Next(*last)
	return !next.IsZero() && !next.After(now)
}

var nonSlug = regexp.MustCompile(`[^a-z0-9]+`)

func slug(name string) string {
	s := strings.Trim(nonSlug.ReplaceAllString(strings.ToLower(name), "-"), "-")
	if s == "" {
		return "report"
	}
	return s
}
