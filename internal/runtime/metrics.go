package runtime

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/mohammad-safakhou/webagent/internal/executor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics is the Prometheus view of pipeline activity. It owns its registry
// so several instances can coexist in tests.
type Metrics struct {
	registry     *prometheus.Registry
	taskDuration *prometheus.HistogramVec
	taskStatus   *prometheus.CounterVec
	toolCalls    *prometheus.CounterVec
	runs         *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		taskDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "webagent_task_duration_seconds",
			Help:    "Wall time of one pipeline task.",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		}, []string{"task", "role"}),
		taskStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "webagent_tasks_total",
			Help: "Finished pipeline tasks by status.",
		}, []string{"task", "status"}),
		toolCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "webagent_tool_calls_total",
			Help: "Tool invocations by outcome.",
		}, []string{"tool", "outcome"}),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "webagent_pipeline_runs_total",
			Help: "Research runs by outcome.",
		}, []string{"outcome"}),
	}
	m.registry.MustRegister(m.taskDuration, m.taskStatus, m.toolCalls, m.runs)
	return m
}

// Executor adapts the metrics to executor callbacks.
func (m *Metrics) Executor() executor.Metrics {
	return executor.Metrics{
		Duration: func(ctx context.Context, t executor.Task, d time.Duration) {
			m.taskDuration.WithLabelValues(t.ID, string(t.Role.Kind())).Observe(d.Seconds())
		},
		Status: func(ctx context.Context, t executor.Task, s executor.Status) {
			m.taskStatus.WithLabelValues(t.ID, string(s)).Inc()
		},
	}
}

// ObserveTool records one tool call. Its signature matches agent.ToolObserver.
func (m *Metrics) ObserveTool(ctx context.Context, tool string, failed bool) {
	outcome := "ok"
	if failed {
		outcome = "error"
	}
	m.toolCalls.WithLabelValues(tool, outcome).Inc()
}

// ObserveRun counts one finished research run.
func (m *Metrics) ObserveRun(outcome string) {
	m.runs.WithLabelValues(outcome).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ServeMetrics exposes /metrics on port until ctx is done.
func (m *Metrics) ServeMetrics(ctx context.Context, port int, logger *log.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Printf("metrics server error: %v", err)
		}
	}()
}
