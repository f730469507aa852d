package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	SubmitAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "wingman_submit_attempts_total", Help: "Transaction submission attempts by outcome"},
		[]string{"outcome"},
	)
	SubmitRetriesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "wingman_submit_retries_total", Help: "Attempts repeated after a transient failure"},
	)
	ConfirmSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{Name: "wingman_confirm_seconds", Help: "Time from send to confirmation", Buckets: prometheus.DefBuckets},
	)
	ActionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "wingman_actions_total", Help: "CLI actions by result"},
		[]string{"action", "result"},
	)
)

func init() {
	prometheus.MustRegister(SubmitAttemptsTotal, SubmitRetriesTotal, ConfirmSeconds, ActionsTotal)
}

// Serve exposes /metrics on addr in the background.
func Serve(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() { _ = srv.ListenAndServe() }()
	return srv
}
