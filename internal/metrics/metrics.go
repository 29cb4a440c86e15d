package metrics

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reelscout_api_requests_total",
			Help: "Total HikerAPI requests by endpoint and outcome",
		},
		[]string{"endpoint", "status"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "reelscout_api_request_duration_seconds",
			Help:    "Duration of HikerAPI requests in seconds",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"endpoint"},
	)

	ReelsFetchedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "reelscout_reels_fetched_total",
			Help: "Total reels returned by clip fetches",
		},
	)

	AccountsProcessedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reelscout_accounts_processed_total",
			Help: "Accounts processed by the pipeline, by outcome",
		},
		[]string{"outcome"},
	)

	ProbeResultsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reelscout_probe_results_total",
			Help: "External link probes by outcome",
		},
		[]string{"outcome"},
	)
)

// RecordAPICall updates request metrics for one HikerAPI call. A transport
// error is recorded with status "error" regardless of statusCode.
func RecordAPICall(endpoint string, statusCode int, err error, d time.Duration) {
	status := strconv.Itoa(statusCode)
	if err != nil {
		status = "error"
	}
	APIRequestsTotal.WithLabelValues(endpoint, status).Inc()
	APIRequestDuration.WithLabelValues(endpoint).Observe(d.Seconds())
}

// RecordAccount counts one processed account: "kept", "no_profile" or
// "no_match".
func RecordAccount(outcome string) {
	AccountsProcessedTotal.WithLabelValues(outcome).Inc()
}

// RecordProbe counts one link probe: "ok", "blocked" or "error".
func RecordProbe(outcome string) {
	ProbeResultsTotal.WithLabelValues(outcome).Inc()
}

// Server exposes /metrics for the duration of a run.
type Server struct {
	srv *http.Server
}

// Start begins listening on the specified port and exposes /metrics.
func Start(port int) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: mux,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			fmt.Printf("metrics server failed: %v\n", err)
		}
	}()

	return &Server{srv: srv}
}

// Stop gracefully shuts down the metrics server.
func (s *Server) Stop(ctx context.Context) error {
	if s == nil || s.srv == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return s.srv.Shutdown(ctx)
}
