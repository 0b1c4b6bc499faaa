// Package metrics holds the provisioner's prometheus collectors and the server exposing them.
package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "silo"

// Registry collects every provisioner metric.
var Registry = prometheus.NewRegistry()

var factory = promauto.With(Registry)

var (
	WorkflowsTotal = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "workflows_total",
		Help:      "Tag workflows by resolution.",
	}, []string{"resolution"})

	VerificationsTotal = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "signature_verifications_total",
		Help:      "Signature checks by result.",
	}, []string{"result"})

	LifecycleOutcomesTotal = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "lifecycle_outcomes_total",
		Help:      "Attestation record transitions by outcome.",
	}, []string{"outcome"})

	WorkflowDuration = factory.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "workflow_duration_seconds",
		Help:      "Time from card present to resolution.",
		Buckets:   []float64{1, 2, 3, 4, 5, 7.5, 10, 15, 30},
	})

	ReadersAttached = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "readers_attached",
		Help:      "Card readers currently attached.",
	})
)

func init() {
	Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
}

// RecordVerification counts one signature check.
func RecordVerification(ok bool) {
	if ok {
		VerificationsTotal.WithLabelValues("valid").Inc()
	} else {
		VerificationsTotal.WithLabelValues("invalid").Inc()
	}
}

// Handler serves the registry in the prometheus text format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{Registry: Registry})
}

type MetricsServer struct {
	srv *http.Server
}

func New(listenAddr string) (*MetricsServer, error) {
	mux := chi.NewRouter()
	mux.Handle("/metrics", Handler())

	return &MetricsServer{
		srv: &http.Server{
			Addr:              listenAddr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
	}, nil
}

func (m *MetricsServer) ListenAndServe() error {
	return m.srv.ListenAndServe()
}

func (m *MetricsServer) Shutdown(ctx context.Context) error {
	return m.srv.Shutdown(ctx)
}
