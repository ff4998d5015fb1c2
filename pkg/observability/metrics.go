package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the VA-File service.
type Metrics struct {
	// Request metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	RequestErrors   *prometheus.CounterVec

	// Relation lifecycle metrics
	RelationsTotal prometheus.Gauge
	BuildTotal     *prometheus.CounterVec
	BuildDuration  *prometheus.HistogramVec

	// Mutation metrics
	TuplesInserted *prometheus.CounterVec
	TuplesDeleted  *prometheus.CounterVec
	VacuumTotal    *prometheus.CounterVec
	VacuumDuration *prometheus.HistogramVec

	// Relation size/staleness metrics
	RelationTuples *prometheus.GaugeVec
	RelationPages  *prometheus.GaugeVec
	RelationStale  *prometheus.GaugeVec

	// Scan metrics
	ScansTotal        *prometheus.CounterVec
	ScanLatency       *prometheus.HistogramVec
	ScanCandidates    *prometheus.HistogramVec
	ScanPruneRate     *prometheus.HistogramVec

	// Rate limiter metrics
	RateLimitRejections *prometheus.CounterVec

	// System metrics
	GoroutinesCount prometheus.Gauge
	MemoryUsage     prometheus.Gauge
}

// NewMetrics creates and registers all Prometheus metrics.
func NewMetrics() *Metrics {
	m := &Metrics{
		RequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vafile_requests_total",
				Help: "Total number of REST requests by method and status",
			},
			[]string{"method", "status"},
		),
		RequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "vafile_request_duration_seconds",
				Help:    "Request duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method"},
		),
		RequestErrors: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vafile_request_errors_total",
				Help: "Total number of request errors by method and error kind",
			},
			[]string{"method", "error_kind"},
		),

		RelationsTotal: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "vafile_relations_total",
				Help: "Total number of relations currently registered",
			},
		),
		BuildTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vafile_build_total",
				Help: "Total number of index builds by relation and marks strategy",
			},
			[]string{"relation", "strategy"},
		),
		BuildDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "vafile_build_duration_seconds",
				Help:    "Index build duration in seconds",
				Buckets: []float64{.01, .1, .5, 1, 5, 10, 30, 60, 300},
			},
			[]string{"relation"},
		),

		TuplesInserted: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vafile_tuples_inserted_total",
				Help: "Total number of tuples inserted by relation",
			},
			[]string{"relation"},
		),
		TuplesDeleted: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vafile_tuples_deleted_total",
				Help: "Total number of tuples removed by bulkdelete, by relation",
			},
			[]string{"relation"},
		),
		VacuumTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vafile_vacuum_total",
				Help: "Total number of vacuum operations by relation",
			},
			[]string{"relation"},
		),
		VacuumDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "vafile_vacuum_duration_seconds",
				Help:    "Vacuum duration in seconds",
				Buckets: []float64{.01, .1, .5, 1, 5, 10, 30},
			},
			[]string{"relation"},
		),

		RelationTuples: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "vafile_relation_tuples",
				Help: "Current live index tuple count by relation",
			},
			[]string{"relation"},
		),
		RelationPages: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "vafile_relation_pages",
				Help: "Current data page count by relation",
			},
			[]string{"relation"},
		),
		RelationStale: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "vafile_relation_stale",
				Help: "1 if a relation is flagged stale (rebuild recommended), else 0",
			},
			[]string{"relation"},
		),

		ScansTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vafile_scans_total",
				Help: "Total number of index scans by relation",
			},
			[]string{"relation"},
		),
		ScanLatency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "vafile_scan_latency_seconds",
				Help:    "Scan latency in seconds, from BeginScan through GetBitmap",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
			},
			[]string{"relation"},
		),
		ScanCandidates: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "vafile_scan_candidates",
				Help:    "Number of candidate TIDs a scan emitted for refinement",
				Buckets: []float64{1, 5, 10, 20, 50, 100, 200, 500, 1000, 5000},
			},
			[]string{"relation"},
		),
		ScanPruneRate: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "vafile_scan_prune_rate",
				Help:    "Fraction of scanned tuples a scan pruned before refinement",
				Buckets: []float64{.5, .7, .8, .9, .95, .98, .99, .995, .999},
			},
			[]string{"relation"},
		),

		RateLimitRejections: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vafile_rate_limit_rejections_total",
				Help: "Total number of requests rejected by the REST rate limiter",
			},
			[]string{"route"},
		),

		GoroutinesCount: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "vafile_goroutines",
				Help: "Current number of goroutines",
			},
		),
		MemoryUsage: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "vafile_memory_bytes",
				Help: "Memory usage in bytes",
			},
		),
	}

	return m
}

// RecordRequest records a REST request with duration and status.
func (m *Metrics) RecordRequest(method, status string, duration time.Duration) {
	m.RequestsTotal.WithLabelValues(method, status).Inc()
	m.RequestDuration.WithLabelValues(method).Observe(duration.Seconds())
}

// RecordError records a request error.
func (m *Metrics) RecordError(method, errorKind string) {
	m.RequestErrors.WithLabelValues(method, errorKind).Inc()
}

// RecordBuild records an index build.
func (m *Metrics) RecordBuild(relation, strategy string, duration time.Duration) {
	m.BuildTotal.WithLabelValues(relation, strategy).Inc()
	m.BuildDuration.WithLabelValues(relation).Observe(duration.Seconds())
}

// RecordInsert records tuples inserted into a relation.
func (m *Metrics) RecordInsert(relation string, count int) {
	m.TuplesInserted.WithLabelValues(relation).Add(float64(count))
}

// RecordDelete records tuples removed from a relation.
func (m *Metrics) RecordDelete(relation string, count int) {
	m.TuplesDeleted.WithLabelValues(relation).Add(float64(count))
}

// RecordVacuum records a vacuum operation.
func (m *Metrics) RecordVacuum(relation string, duration time.Duration) {
	m.VacuumTotal.WithLabelValues(relation).Inc()
	m.VacuumDuration.WithLabelValues(relation).Observe(duration.Seconds())
}

// RecordScan records a completed scan: its latency, the candidates it
// emitted, and the fraction of the relation it pruned before refinement.
func (m *Metrics) RecordScan(relation string, duration time.Duration, candidates int, scanned int) {
	m.ScansTotal.WithLabelValues(relation).Inc()
	m.ScanLatency.WithLabelValues(relation).Observe(duration.Seconds())
	m.ScanCandidates.WithLabelValues(relation).Observe(float64(candidates))
	if scanned > 0 {
		pruned := float64(scanned-candidates) / float64(scanned)
		if pruned < 0 {
			pruned = 0
		}
		m.ScanPruneRate.WithLabelValues(relation).Observe(pruned)
	}
}

// UpdateRelationStats sets the gauges describing a relation's current size
// and staleness.
func (m *Metrics) UpdateRelationStats(relation string, tuples int64, pages int, stale bool) {
	m.RelationTuples.WithLabelValues(relation).Set(float64(tuples))
	m.RelationPages.WithLabelValues(relation).Set(float64(pages))
	v := 0.0
	if stale {
		v = 1.0
	}
	m.RelationStale.WithLabelValues(relation).Set(v)
}

// UpdateRelationsTotal sets the total relation count.
func (m *Metrics) UpdateRelationsTotal(count int) {
	m.RelationsTotal.Set(float64(count))
}

// RecordRateLimitRejection records a request the rate limiter rejected.
func (m *Metrics) RecordRateLimitRejection(route string) {
	m.RateLimitRejections.WithLabelValues(route).Inc()
}

// UpdateGoroutineCount updates the goroutine gauge.
func (m *Metrics) UpdateGoroutineCount(count int) {
	m.GoroutinesCount.Set(float64(count))
}

// UpdateMemoryUsage updates the memory usage gauge.
func (m *Metrics) UpdateMemoryUsage(bytes uint64) {
	m.MemoryUsage.Set(float64(bytes))
}
