package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "greeter"

// Result labels.
const (
	ResultOK    = "ok"
	ResultError = "error"
)

// Metrics instruments contract reads and writes.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	reads      *prometheus.CounterVec
	writes     *prometheus.CounterVec
	confirm    prometheus.Histogram
	submitting prometheus.Gauge
}

// New creates the collectors and registers them on reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		reads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reads_total",
			Help:      "greet() calls by result.",
		}, []string{"result"}),
		writes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "writes_total",
			Help:      "setGreeting submissions by result.",
		}, []string{"result"}),
		confirm: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "confirm_seconds",
			Help:      "Time from broadcast to block inclusion.",
			Buckets:   []float64{1, 2, 5, 10, 15, 30, 60, 120, 300},
		}),
		submitting: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "submitting",
			Help:      "1 while a setGreeting submission is in flight.",
		}),
	}
	reg.MustRegister(m.reads, m.writes, m.confirm, m.submitting)
	return m
}

// ObserveRead counts a read by outcome.
func (m *Metrics) ObserveRead(err error) {
	if m == nil {
		return
	}
	m.reads.WithLabelValues(result(err)).Inc()
}

// ObserveWrite counts a submission by outcome.
func (m *Metrics) ObserveWrite(err error) {
	if m == nil {
		return
	}
	m.writes.WithLabelValues(result(err)).Inc()
}

// ObserveConfirm records how long a transaction took to be mined.
func (m *Metrics) ObserveConfirm(d time.Duration) {
	if m == nil {
		return
	}
	m.confirm.Observe(d.Seconds())
}

// SetSubmitting mirrors the in-flight flag.
func (m *Metrics) SetSubmitting(on bool) {
	if m == nil {
		return
	}
	if on {
		m.submitting.Set(1)
		return
	}
	m.submitting.Set(0)
}

func result(err error) string {
	if err != nil {
		return ResultError
	}
	return ResultOK
}

// Serve exposes g on addr under /metrics until ctx is done.
func Serve(ctx context.Context, addr string, g prometheus.Gatherer) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(g, promhttp.HandlerOpts{}))

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
