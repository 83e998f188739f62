// Package metrics exposes pipeline and HTTP counters in Prometheus format.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sakif/social-analytics/internal/pipeline"
)

// Registry owns its own prometheus.Registry so tests can build as many as
// they like without colliding on the global one.
type Registry struct {
	reg *prometheus.Registry

	PipelineRuns     prometheus.Counter
	PipelineFailures prometheus.Counter
	PipelineDuration prometheus.Histogram
	Unattributed     prometheus.Counter

	RowsIn     *prometheus.CounterVec
	Dropped    *prometheus.CounterVec
	Imputed    *prometheus.CounterVec
	Duplicates *prometheus.CounterVec

	CacheHits   prometheus.Counter
	CacheMisses prometheus.Counter

	SnapshotUsers prometheus.Gauge

	HTTPRequests *prometheus.CounterVec
}

func NewRegistry() *Registry {
	r := prometheus.NewRegistry()

	byTable := []string{"table"}
	m := &Registry{
		reg:              r,
		PipelineRuns:     prometheus.NewCounter(prometheus.CounterOpts{Name: "analytics_pipeline_runs_total"}),
		PipelineFailures: prometheus.NewCounter(prometheus.CounterOpts{Name: "analytics_pipeline_failures_total"}),
		PipelineDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "analytics_pipeline_duration_seconds",
			Buckets: prometheus.DefBuckets,
		}),
		Unattributed: prometheus.NewCounter(prometheus.CounterOpts{Name: "analytics_pipeline_unattributed_total"}),
		RowsIn:       prometheus.NewCounterVec(prometheus.CounterOpts{Name: "analytics_rows_in_total"}, byTable),
		Dropped:      prometheus.NewCounterVec(prometheus.CounterOpts{Name: "analytics_rows_dropped_total"}, byTable),
		Imputed:      prometheus.NewCounterVec(prometheus.CounterOpts{Name: "analytics_cells_imputed_total"}, byTable),
		Duplicates:   prometheus.NewCounterVec(prometheus.CounterOpts{Name: "analytics_rows_duplicate_total"}, byTable),
		CacheHits:    prometheus.NewCounter(prometheus.CounterOpts{Name: "analytics_cache_hits_total"}),
		CacheMisses:  prometheus.NewCounter(prometheus.CounterOpts{Name: "analytics_cache_misses_total"}),
		SnapshotUsers: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "analytics_snapshot_users",
			Help: "Users in the most recently built snapshot.",
		}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{Name: "analytics_http_requests_total"},
			[]string{"method", "status"}),
	}

	r.MustRegister(m.PipelineRuns, m.PipelineFailures, m.PipelineDuration, m.Unattributed,
		m.RowsIn, m.Dropped, m.Imputed, m.Duplicates,
		m.CacheHits, m.CacheMisses, m.SnapshotUsers, m.HTTPRequests)
	return m
}

// ObserveRun records one pipeline build that took d. snap is nil when the
// build failed.
func (r *Registry) ObserveRun(snap *pipeline.Snapshot, d time.Duration) {
	r.PipelineRuns.Inc()
	r.PipelineDuration.Observe(d.Seconds())
	if snap == nil {
		r.PipelineFailures.Inc()
		return
	}
	if !snap.Attributed {
		r.Unattributed.Inc()
	}
	r.SnapshotUsers.Set(float64(len(snap.Records)))
	for _, st := range snap.Stats {
		r.RowsIn.WithLabelValues(st.Table).Add(float64(st.RowsIn))
		r.Dropped.WithLabelValues(st.Table).Add(float64(st.Dropped))
		r.Imputed.WithLabelValues(st.Table).Add(float64(st.Imputed))
		r.Duplicates.WithLabelValues(st.Table).Add(float64(st.Duplicates))
	}
}

// ObserveRequest counts one served HTTP request.
func (r *Registry) ObserveRequest(method string, status int) {
	r.HTTPRequests.WithLabelValues(method, strconv.Itoa(status)).Inc()
}

func (r *Registry) Handler() http.Handler { return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{}) }
