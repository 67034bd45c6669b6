package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// emissions pipeline.
type Metrics struct {
	RowsParsed    prometheus.Counter
	RowsDropped   *prometheus.CounterVec // labels: reason={schema,validation}
	RendersServed *prometheus.CounterVec // labels: outcome={ok,empty,rejected,error}

	AggregationDuration prometheus.Histogram
	AggregateGroups     prometheus.Histogram

	// Batch driver metrics.
	ArchiveEntries    *prometheus.CounterVec // labels: outcome={ok,skipped,failed}
	DatasetsPublished prometheus.Counter

	PipelineReady prometheus.Gauge
}

// NewMetrics creates and registers all pipeline metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.RowsParsed,
		m.RowsDropped,
		m.RendersServed,
		m.AggregationDuration,
		m.AggregateGroups,
		m.ArchiveEntries,
		m.DatasetsPublished,
		m.PipelineReady,
	)
	return m
}

// NewMetricsForTesting creates Metrics without registering them, avoiding
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		RowsParsed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "emissions",
			Name:      "rows_parsed_total",
			Help:      "Total CSV rows read across all inputs.",
		}),
		RowsDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "emissions",
			Name:      "rows_dropped_total",
			Help:      "Rows skipped during parsing, by reason.",
		}, []string{"reason"}),
		RendersServed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "emissions",
			Name:      "renders_served_total",
			Help:      "Render requests served, by outcome.",
		}, []string{"outcome"}),
		AggregationDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "emissions",
			Name:      "aggregation_duration_seconds",
			Help:      "Duration of one complete parse-and-aggregate pass.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2.5, 5},
		}),
		AggregateGroups: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "emissions",
			Name:      "aggregate_groups",
			Help:      "Number of aggregate groups produced per pass.",
			Buckets:   []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000},
		}),
		ArchiveEntries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "emissions",
			Name:      "archive_entries_total",
			Help:      "Archive entries processed by the batch driver, by outcome.",
		}, []string{"outcome"}),
		DatasetsPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "emissions",
			Name:      "datasets_published_total",
			Help:      "Aggregate datasets published to the Kafka sink.",
		}),
		PipelineReady: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "emissions",
			Name:      "pipeline_ready",
			Help:      "1 when the pipeline has served at least one pass.",
		}),
	}
}
