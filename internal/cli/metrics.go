package cli

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jmball/go-m1k/logger"
	"github.com/jmball/go-m1k/m1k"
)

// newMetricsRegistry wires the client's atomic counters into a prometheus
// registry as CounterFunc/GaugeFunc collectors.
func newMetricsRegistry(m *m1k.ClientMetrics) *prometheus.Registry {
	reg := prometheus.NewRegistry()

	reg.MustRegister(
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: "m1k",
			Name:      "queries_total",
			Help:      "Number of queries started.",
		}, func() float64 { return float64(m.QueryCount.Load()) }),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: "m1k",
			Name:      "retries_total",
			Help:      "Number of retry waits performed.",
		}, func() float64 { return float64(m.RetryCount.Load()) }),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: "m1k",
			Name:      "transient_errors_total",
			Help:      "Number of attempts that failed with a transient network error.",
		}, func() float64 { return float64(m.TransientErrCount.Load()) }),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: "m1k",
			Name:      "server_errors_total",
			Help:      "Number of queries rejected by the server.",
		}, func() float64 { return float64(m.ServerErrCount.Load()) }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "m1k",
			Name:      "queries_inflight",
			Help:      "Number of queries in flight.",
		}, func() float64 { return float64(m.InflightGauge.Load()) }),
	)

	return reg
}

// exposeMetrics serves /metrics for the client on addr until the returned
// cleanup func is called.
func exposeMetrics(addr string, m *m1k.ClientMetrics) (func(), error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(newMetricsRegistry(m), promhttp.HandlerOpts{}))

	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			logger.Error("metrics listener failed", "error", err)
		}
	}()

	cleanup := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}

	return cleanup, nil
}
