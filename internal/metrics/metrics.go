// Package metrics exposes client-side Prometheus metrics for requests made to
// the telemetry service, dashboard poll cycles and alert resolutions.
package metrics

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	metricPrefix = "pulse_"

	ResultSuccess = "success"
	ResultError   = "error"
	// ResultDiscarded marks a response that arrived after it was superseded.
	ResultDiscarded = "discarded"
)

var (
	registerOnce sync.Once
	registry     = prometheus.NewRegistry()

	requestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: metricPrefix + "requests_total",
			Help: "Total requests to the telemetry service by endpoint and result",
		},
		[]string{"endpoint", "result"},
	)
	requestLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    metricPrefix + "request_latency_seconds",
			Help:    "Telemetry service request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)
	pollCyclesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: metricPrefix + "poll_cycles_total",
			Help: "Total dashboard poll cycles by result",
		},
		[]string{"result"},
	)
	pollCycleLatency = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    metricPrefix + "poll_cycle_latency_seconds",
			Help:    "Dashboard poll cycle latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)
	resolvesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: metricPrefix + "alert_resolves_total",
			Help: "Total alert resolve commands by result",
		},
		[]string{"result"},
	)
	pageReloadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: metricPrefix + "page_reloads_total",
			Help: "Total list view reloads by view and result",
		},
		[]string{"view", "result"},
	)
)

// Registry returns the registry holding all pulse metrics, registering them
// on first use.
func Registry() *prometheus.Registry {
	registerOnce.Do(func() {
		registry.MustRegister(
			requestsTotal,
			requestLatency,
			pollCyclesTotal,
			pollCycleLatency,
			resolvesTotal,
			pageReloadsTotal,
		)
	})
	return registry
}

// ObserveRequest records one telemetry service request.
func ObserveRequest(endpoint string, err error, elapsed time.Duration) {
	requestsTotal.WithLabelValues(endpoint, result(err)).Inc()
	requestLatency.WithLabelValues(endpoint).Observe(elapsed.Seconds())
}

// ObservePollCycle records one dashboard refresh cycle.
func ObservePollCycle(res string, elapsed time.Duration) {
	pollCyclesTotal.WithLabelValues(res).Inc()
	pollCycleLatency.Observe(elapsed.Seconds())
}

// ObserveResolve records one alert resolve command.
func ObserveResolve(err error) {
	resolvesTotal.WithLabelValues(result(err)).Inc()
}

// ObservePageReload records one list view reload.
func ObservePageReload(view, res string) {
	pageReloadsTotal.WithLabelValues(view, res).Inc()
}

// Handler serves the pulse registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry(), promhttp.HandlerOpts{})
}

// Serve runs a /metrics listener on addr until ctx is done.
func Serve(ctx context.Context, addr string, logger *slog.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("metrics listener started", slog.String("addr", addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func result(err error) string {
	if err != nil {
		return ResultError
	}
	return ResultSuccess
}
