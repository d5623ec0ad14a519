package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
)

var (
	/* run metrics */
	RunsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "crnfigs_runs_total",
		Help: "Simulation runs finished, by scenario and seeding policy",
	}, []string{"scenario", "policy"})

	RunFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "crnfigs_run_failures_total",
		Help: "Simulation runs that returned an error",
	}, []string{"scenario"})

	RunLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:                        "crnfigs_run_latency",
		Help:                        "Latency of one simulation run in microseconds",
		NativeHistogramBucketFactor: 1.1,
	}, []string{"scenario"})

	CacheHits = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "crnfigs_cache_hits_total",
		Help: "Runs served from the result cache",
	})

	/* pairwise experiment metrics */
	GraphsDrawn = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "crnfigs_pairwise_graphs_total",
		Help: "Random graphs drawn by the pairwise bias experiment, by method",
	}, []string{"method"})

	// figure files written
	Figures = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "crnfigs_figures_total",
		Help: "Figure and table files written",
	})

	metricsList = []prometheus.Collector{
		RunsTotal,
		RunFailures,
		RunLatency,
		CacheHits,

		GraphsDrawn,
		Figures,
	}
)

var registerMetrics sync.Once

func Register() {
	registerMetrics.Do(func() {
		prometheus.MustRegister(metricsList...)
	})
}

// Start serves /metrics on addr in the background.
func Start(addr string) {
	Register()

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	log.WithFields(log.Fields{
		"addr":     addr,
		"endpoint": "/metrics",
	}).Info("Starting metrics server")

	go func() {
		if err := http.ListenAndServe(addr, mux); err != nil {
			log.WithFields(log.Fields{
				"error": err,
			}).Warn("metrics server stopped")
		}
	}()
}
