// Package metrics exports build, query and crowd instrumentation to
// Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// buildTotal counts tile builds by result
	buildTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ainav_build_total",
		Help: "Total navmesh tile builds by result",
	}, []string{"result"})

	buildDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "ainav_build_duration_seconds",
		Help:    "Navmesh tile build duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 14), // 1ms to ~16s
	})

	tilesLoaded = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ainav_tiles_loaded",
		Help: "Tiles currently added to navmeshes",
	})

	// queryTotal counts navmesh queries by operation and result
	queryTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ainav_query_total",
		Help: "Total navmesh queries by operation and result",
	}, []string{"op", "result"})

	queryDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ainav_query_duration_seconds",
		Help:    "Navmesh query duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.00001, 2, 14), // 10us to ~80ms
	}, []string{"op"})

	crowdUpdateDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "ainav_crowd_update_duration_seconds",
		Help:    "Crowd update duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.0001, 2, 12), // 0.1ms to ~200ms
	})

	crowdActiveAgents = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ainav_crowd_active_agents",
		Help: "Active agents after the last crowd update",
	})
)

func result(ok bool) string {
	if ok {
		return "ok"
	}
	return "fail"
}

// ObserveBuild records one tile build.
func ObserveBuild(ok bool, d time.Duration) {
	buildTotal.WithLabelValues(result(ok)).Inc()
	buildDuration.Observe(d.Seconds())
}

func TileAdded() { tilesLoaded.Inc() }

func TileRemoved() { tilesLoaded.Dec() }

// ObserveQuery records one query of kind op.
func ObserveQuery(op string, ok bool, d time.Duration) {
	queryTotal.WithLabelValues(op, result(ok)).Inc()
	queryDuration.WithLabelValues(op).Observe(d.Seconds())
}

// ObserveCrowdUpdate records one crowd tick.
func ObserveCrowdUpdate(d time.Duration, active int) {
	crowdUpdateDuration.Observe(d.Seconds())
	crowdActiveAgents.Set(float64(active))
}

// Handler serves the default registry.
func Handler() http.Handler { return promhttp.Handler() }
