package metrics

import (
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

var (
	EvaluationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "evaluations_total", Help: "Completed signal evaluations"},
		[]string{"symbol"},
	)
	EvaluationErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "evaluation_errors_total", Help: "Evaluations aborted by collect or indicator errors"},
		[]string{"symbol"},
	)
	SignalChangesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "signal_changes_total", Help: "Transitions of the latest composite signal"},
		[]string{"symbol", "signal"},
	)
	LatestSignal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{Name: "latest_signal", Help: "Latest composite signal (-1 short, 0 flat, 1 long)"},
		[]string{"symbol"},
	)
	LatestSAR = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{Name: "latest_sar", Help: "SAR value of the most recent bar"},
		[]string{"symbol"},
	)
)

func init() {
	prometheus.MustRegister(EvaluationsTotal, EvaluationErrorsTotal, SignalChangesTotal, LatestSignal, LatestSAR)
}

// Serve exposes /metrics on addr in the background. Listen failures are logged.
func Serve(addr string, log zerolog.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Str("addr", addr).Msg("metrics server")
		}
	}()
	return srv
}
