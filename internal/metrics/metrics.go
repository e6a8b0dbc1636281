// Package metrics exposes Prometheus counters for the delivery pipeline and
// an optional /metrics listener used in daemon mode.
package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"marketbrief/pkg/logx"
)

var (
	RunsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "marketbrief_runs_total",
		Help: "Completed fetch-summarize-dispatch runs.",
	})

	FetchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "marketbrief_fetches_total",
		Help: "Upstream fetches by result.",
	}, []string{"result"})

	SendsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "marketbrief_channel_sends_total",
		Help: "Chunk delivery attempts by channel kind and result.",
	}, []string{"kind", "result"})

	SummariesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "marketbrief_summaries_total",
		Help: "Summarizer calls by result.",
	}, []string{"result"})

	RetriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "marketbrief_retries_total",
		Help: "Backoff waits by operation.",
	}, []string{"op"})

	DispatchOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "marketbrief_dispatch_outcomes_total",
		Help: "Per-channel dispatch outcomes.",
	}, []string{"kind", "outcome"})
)

// Serve runs the metrics listener until ctx is done. Errors other than
// graceful shutdown are logged, not fatal: metrics are best-effort.
func Serve(ctx context.Context, addr string, log logx.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(sctx)
	}()

	log.Info("metrics listener started", logx.String("addr", addr))
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Warn("metrics listener failed", logx.Err(err))
	}
}
