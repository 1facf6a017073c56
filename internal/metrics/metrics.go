package metrics

import (
    "sync"

    "github.com/prometheus/client_golang/prometheus"
    "github.com/prometheus/client_golang/prometheus/collectors"
)

// Registry is a dedicated registry so tests can re-register freely.
var Registry = prometheus.NewRegistry()

var (
    HTTPRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
        Name: "cargoroute_http_requests_total",
        Help: "HTTP requests by method, path and status.",
    }, []string{"method", "path", "status"})

    HTTPDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
        Name:    "cargoroute_http_request_duration_seconds",
        Help:    "HTTP request latency.",
        Buckets: prometheus.DefBuckets,
    }, []string{"method", "path"})

    OptimizeRuns = prometheus.NewCounterVec(prometheus.CounterOpts{
        Name: "cargoroute_optimize_runs_total",
        Help: "Optimization runs by mode and algorithm.",
    }, []string{"mode", "algorithm"})

    OptimizeBestCost = prometheus.NewGauge(prometheus.GaugeOpts{
        Name: "cargoroute_optimize_best_cost",
        Help: "Best solution cost of the most recent run.",
    })

    OptimizeGenerations = prometheus.NewHistogram(prometheus.HistogramOpts{
        Name:    "cargoroute_optimize_generations",
        Help:    "Generations executed per genetic run.",
        Buckets: []float64{10, 25, 50, 100, 200, 300, 500},
    })

    RejectedCargos = prometheus.NewCounter(prometheus.CounterOpts{
        Name: "cargoroute_rejected_cargos_total",
        Help: "Cargos rejected by fixed-fleet admission.",
    })
)

var regOnce sync.Once

// RegisterDefault wires all collectors into Registry exactly once.
func RegisterDefault() {
    regOnce.Do(func() {
        Registry.MustRegister(
            collectors.NewGoCollector(),
            collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
            HTTPRequests,
            HTTPDuration,
            OptimizeRuns,
            OptimizeBestCost,
            OptimizeGenerations,
            RejectedCargos,
        )
    })
}
