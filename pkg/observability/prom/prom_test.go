package prom

import (
	"context"
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/matzehuels/rankbars/pkg/observability"
)

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	return string(body)
}

func TestMetrics(t *testing.T) {
	m := New(prometheus.NewRegistry())
	ctx := context.Background()

	m.OnLoadComplete(ctx, 2024, 50, 10*time.Millisecond, nil)
	m.OnLoadComplete(ctx, 2030, 0, time.Millisecond, errors.New("missing"))
	m.OnDiffComplete(ctx, 2024, 3, 2)
	m.OnRenderComplete(ctx, []string{"svg", "json"}, 20*time.Millisecond, nil)
	m.OnCycle(ctx, 1, 2, 3, 4)
	m.OnClick(ctx, "Acme")
	m.OnCacheHit(ctx, "artifact")
	m.OnCacheMiss(ctx, "snapshot")
	m.OnCacheSet(ctx, "artifact", 1024)
	m.OnResponse(ctx, "GET", "/api/companies/{year}", 200, 5*time.Millisecond)
	m.OnError(ctx, "GET", "/api/companies/{year}", errors.New("boom"))

	body := scrape(t, m)
	tests := []string{
		`rankbars_pipeline_loads_total{status="ok"} 1`,
		`rankbars_pipeline_loads_total{status="error"} 1`,
		`rankbars_pipeline_last_load_records 50`,
		`rankbars_pipeline_diff_size{kind="entries",year="2024"} 3`,
		`rankbars_pipeline_renders_total{formats="svg,json",status="ok"} 1`,
		`rankbars_chart_cycles_total 1`,
		`rankbars_chart_transitions_total{kind="exit"} 3`,
		`rankbars_chart_cancelled_tracks_total 4`,
		`rankbars_chart_clicks_total 1`,
		`rankbars_cache_operations_total{key_type="artifact",result="hit"} 1`,
		`rankbars_cache_operations_total{key_type="snapshot",result="miss"} 1`,
		`rankbars_http_requests_total{method="GET",route="/api/companies/{year}",status="200"} 1`,
		`rankbars_http_errors_total{method="GET",route="/api/companies/{year}"} 1`,
	}
	for _, want := range tests {
		if !strings.Contains(body, want) {
			t.Errorf("metrics missing %q", want)
		}
	}
}

func TestRegister(t *testing.T) {
	defer observability.Reset()
	m := New(prometheus.NewRegistry())
	m.Register()

	if observability.Pipeline() != observability.PipelineHooks(m) {
		t.Error("pipeline hooks not registered")
	}
	if observability.HTTP() != observability.HTTPHooks(m) {
		t.Error("http hooks not registered")
	}

	observability.Chart().OnClick(context.Background(), "Acme")
	if !strings.Contains(scrape(t, m), "rankbars_chart_clicks_total 1") {
		t.Error("registered hooks should record events")
	}
}
