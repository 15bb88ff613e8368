package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetrics_RecordQuery(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.RecordQuery("ok", "ok")
	m.RecordQuery("ok", "ok")
	m.RecordQuery("quota_exceeded", "blocked")

	if got := testutil.ToFloat64(m.queries.WithLabelValues("ok", "ok")); got != 2 {
		t.Errorf("expected 2 ok queries, got %v", got)
	}
	if got := testutil.ToFloat64(m.queries.WithLabelValues("quota_exceeded", "blocked")); got != 1 {
		t.Errorf("expected 1 blocked query, got %v", got)
	}
}

func TestMetrics_Usage(t *testing.T) {
	m := New(nil)

	m.UpdateUsage(150, 0.75)
	m.UpdateClients(4)

	if got := testutil.ToFloat64(m.accessTotal); got != 150 {
		t.Errorf("expected access total 150, got %v", got)
	}
	if got := testutil.ToFloat64(m.quotaUsage); got != 0.75 {
		t.Errorf("expected usage 0.75, got %v", got)
	}
	if got := testutil.ToFloat64(m.clients); got != 4 {
		t.Errorf("expected 4 clients, got %v", got)
	}
}

func TestMetrics_ObserveFetch(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ObserveFetch("ok", 0.12)
	m.ObserveFetch("upstream_error", 5)

	if got := testutil.CollectAndCount(m.fetchDuration); got != 2 {
		t.Errorf("expected 2 histogram series, got %d", got)
	}
}

func TestMetrics_Handler(t *testing.T) {
	m := New(prometheus.NewRegistry())
	m.RecordQuery("ok", "warn")

	app := fiber.New()
	app.Get("/metrics", m.Handler())

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), `weather_quota_queries_total{advisory="warn",outcome="ok"} 1`) {
		t.Errorf("exposition missing query counter:\n%s", body)
	}
}
