package metrics_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/m-mizutani/cultra/pkg/metrics"
	"github.com/m-mizutani/gt"
)

type countingRecorder struct {
	queries map[string]int
	stages  map[string]int
}

func (c *countingRecorder) IncQueryTotal(provenance, reason string) {
	c.queries[provenance+"/"+reason]++
}

func (c *countingRecorder) ObserveStageSeconds(stage string, success bool, seconds float64) {
	c.stages[stage]++
}

func (c *countingRecorder) IncToolTotal(tool string, success bool) {}

func TestDefaultRecorder(t *testing.T) {
	rec := &countingRecorder{queries: map[string]int{}, stages: map[string]int{}}
	metrics.SetRecorder(rec)
	defer metrics.SetRecorder(nil)

	done := metrics.TimeStage(metrics.StageRetrieve)
	done(true)
	metrics.Default().IncQueryTotal("WEB_SEARCH", "TOO_SHORT")

	gt.Equal(t, rec.stages[metrics.StageRetrieve], 1)
	gt.Equal(t, rec.queries["WEB_SEARCH/TOO_SHORT"], 1)

	metrics.SetRecorder(nil)
	// no-op recorder must accept calls
	metrics.TimeStage(metrics.StageAnswer)(false)
	metrics.Default().IncToolTotal("interpret_phrase", true)
}

func TestPrometheusHandler(t *testing.T) {
	p := metrics.NewPrometheus()
	p.IncQueryTotal("LOCAL_KB", "")
	p.IncQueryTotal("WEB_SEARCH", "EMPTY")
	p.ObserveStageSeconds(metrics.StageFallback, true, 1.5)
	p.IncToolTotal("interpret_phrase", false)

	srv := httptest.NewServer(p.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/metrics")
	gt.NoError(t, err)
	defer resp.Body.Close()
	gt.Equal(t, resp.StatusCode, http.StatusOK)

	body, err := io.ReadAll(resp.Body)
	gt.NoError(t, err)
	gt.S(t, string(body)).Contains(`cultra_queries_total{provenance="WEB_SEARCH",reason="EMPTY"} 1`)
	gt.S(t, string(body)).Contains(`cultra_stage_seconds_count{stage="fallback",success="true"} 1`)
	gt.S(t, string(body)).Contains(`cultra_tool_calls_total{success="false",tool="interpret_phrase"} 1`)

	health, err := http.Get(srv.URL + "/healthz")
	gt.NoError(t, err)
	defer health.Body.Close()
	gt.Equal(t, health.StatusCode, http.StatusOK)
}
