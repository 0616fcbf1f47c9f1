package runtime

import (
	"context"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/mohammad-safakhou/webagent/config"
	"github.com/mohammad-safakhou/webagent/internal/executor"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetricsRecordPipelineActivity(t *testing.T) {
	m := NewMetrics()
	role, err := executor.NewRole(executor.ReportWriter, "", "")
	if err != nil {
		t.Fatal(err)
	}
	task := executor.Task{ID: "report_creation", Role: role}
	em := m.Executor()
	em.Duration(context.Background(), task, 2*time.Second)
	em.Status(context.Background(), task, executor.StatusDegraded)
	m.ObserveTool(context.Background(), "web_scraper", true)
	m.ObserveTool(context.Background(), "web_scraper", false)
	m.ObserveRun("succeeded")

	if got := testutil.ToFloat64(m.taskStatus.WithLabelValues("report_creation", "degraded")); got != 1 {
		t.Fatalf("task status counter = %v", got)
	}
	if got := testutil.ToFloat64(m.toolCalls.WithLabelValues("web_scraper", "error")); got != 1 {
		t.Fatalf("tool error counter = %v", got)
	}
	if got := testutil.ToFloat64(m.runs.WithLabelValues("succeeded")); got != 1 {
		t.Fatalf("run counter = %v", got)
	}

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	for _, name := range []string{"webagent_task_duration_seconds", "webagent_tool_calls_total", "webagent_pipeline_runs_total"} {
		if !strings.Contains(string(body), name) {
			t.Fatalf("exposition missing %s", name)
		}
	}
}

func TestSetupTelemetryDisabledIsNoop(t *testing.T) {
	tel, tracer, err := SetupTelemetry(context.Background(), config.TelemetryConfig{}, "test")
	if err != nil || tracer == nil {
		t.Fatalf("SetupTelemetry: %v", err)
	}
	if err := tel.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
}
