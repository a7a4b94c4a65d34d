// Package metrics declares the Prometheus counters and gauges shared
// across commands, named sketchsrch_* mirroring the teacher's zoekt_*
// convention.
package metrics

import (
	"net"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	CandidatesProcessed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sketchsrch_candidates_processed_total",
		Help: "Total number of candidate sketches scanned by an engine.",
	})
	CandidatesSkippedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sketchsrch_candidates_skipped_total",
		Help: "Total number of candidates skipped for incompatible selection parameters.",
	})
	CandidatesFailedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sketchsrch_candidates_failed_total",
		Help: "Total number of candidates that failed to load from storage.",
	})

	GatherRanksEmittedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sketchsrch_gather_ranks_emitted_total",
		Help: "Total number of gather ranks emitted across all queries.",
	})
	GatherDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "sketchsrch_gather_duration_seconds",
		Help:    "Duration of a single query's gather loop in seconds.",
		Buckets: prometheus.DefBuckets,
	})

	RowsWrittenTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sketchsrch_rows_written_total",
		Help: "Total number of result rows written to the sink.",
	})
	WorkersRunning = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "sketchsrch_workers_running",
		Help: "The number of concurrent engine worker goroutines running.",
	})
	Interrupted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sketchsrch_interrupted_total",
		Help: "Total number of commands that exited early due to cancellation.",
	})

	RevindexQueriesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sketchsrch_revindex_queries_total",
		Help: "Total number of queries served via the inverted-index fast path.",
	})

	ComparisonsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sketchsrch_comparisons_total",
		Help: "Total number of pairwise/cross sketch comparisons performed.",
	})
)

// Serve starts a /metrics endpoint on addr in the background, the way the
// teacher's debugserver exposes promhttp.Handler() alongside its other
// debug routes. Commands that take more than a few seconds to finish wire
// this behind a -metrics-addr flag; batch commands too short to scrape
// leave it unset. Serve logs nothing itself -- a listen error surfaces
// through the returned error so the caller's own logger can report it.
func Serve(addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	go http.Serve(ln, mux)
	return nil
}
