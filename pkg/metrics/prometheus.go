package metrics

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/m-mizutani/cultra/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Prometheus implements Recorder with its own registry
type Prometheus struct {
	registry     *prom.Registry
	queryTotal   *prom.CounterVec
	stageSeconds *prom.HistogramVec
	toolTotal    *prom.CounterVec
}

func NewPrometheus() *Prometheus {
	p := &Prometheus{
		registry: prom.NewRegistry(),
		queryTotal: prom.NewCounterVec(prom.CounterOpts{
			Name: "cultra_queries_total",
			Help: "Total number of answered queries",
		}, []string{"provenance", "reason"}),
		stageSeconds: prom.NewHistogramVec(prom.HistogramOpts{
			Name:    "cultra_stage_seconds",
			Help:    "Pipeline stage duration in seconds",
			Buckets: prom.DefBuckets,
		}, []string{"stage", "success"}),
		toolTotal: prom.NewCounterVec(prom.CounterOpts{
			Name: "cultra_tool_calls_total",
			Help: "Total number of MCP tool calls",
		}, []string{"tool", "success"}),
	}

	p.registry.MustRegister(p.queryTotal, p.stageSeconds, p.toolTotal)
	return p
}

func (p *Prometheus) IncQueryTotal(provenance, reason string) {
	p.queryTotal.WithLabelValues(provenance, reason).Inc()
}

func (p *Prometheus) ObserveStageSeconds(stage string, success bool, seconds float64) {
	p.stageSeconds.WithLabelValues(stage, strconv.FormatBool(success)).Observe(seconds)
}

func (p *Prometheus) IncToolTotal(tool string, success bool) {
	p.toolTotal.WithLabelValues(tool, strconv.FormatBool(success)).Inc()
}

// Handler serves /metrics and /healthz
func (p *Prometheus) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return mux
}

// Serve installs p as the default recorder and exposes it on addr until ctx is done
func (p *Prometheus) Serve(ctx context.Context, addr string) error {
	SetRecorder(p)

	srv := &http.Server{
		Addr:              addr,
		Handler:           p.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	logging.From(ctx).Info("metrics server started", "addr", addr)

	select {
	case err := <-errCh:
		if err != nil {
			return goerr.Wrap(err, "metrics server failed", goerr.V("addr", addr))
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return goerr.Wrap(err, "failed to shut down metrics server")
	}
	return nil
}
