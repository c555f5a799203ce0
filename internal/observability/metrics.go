package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "odor"

// Metrics holds the Prometheus counters, histograms, and gauges for the odor service.
type Metrics struct {
	MessagesConsumed prometheus.Counter
	MessageErrors    prometheus.Counter
	PipelineRunning  prometheus.Gauge

	// Batch processing metrics.
	BatchSize               prometheus.Histogram
	BatchProcessingDuration prometheus.Histogram

	// Recompute scheduling.
	RecomputeRequests *prometheus.CounterVec // labels: outcome={dispatched,unchanged,deferred,unavailable}
	DispatchErrors    prometheus.Counter

	// Dispersion worker.
	WorkerComputations prometheus.Counter
	ComputeDuration    prometheus.Histogram
	PlumesComputed     prometheus.Histogram

	// Result synchronization.
	ResultMessages  *prometheus.CounterVec // labels: kind={plumes,clusters}, outcome={published,unchanged,malformed}
	ResultsProduced prometheus.Counter

	// Complaint clustering.
	ClusterRequests prometheus.Counter
	ClustersFormed  prometheus.Histogram

	ActiveSessions prometheus.Gauge

	// Weather polling.
	WeatherPolls       *prometheus.CounterVec   // labels: outcome={success,error}
	WeatherCache       *prometheus.CounterVec   // labels: method={current,forecast}, result={hit,miss}
	WeatherAPIDuration *prometheus.HistogramVec // labels: method={current,forecast}
	WeatherEnabled     prometheus.Gauge
}

// NewMetrics creates and registers all service metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(m.collectors()...)
	return m
}

// NewMetricsForTesting creates Metrics without registering them, so tests
// can build as many as they need.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		MessagesConsumed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_consumed_total",
			Help:      "Total messages read from the source topic.",
		}),
		MessageErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "message_errors_total",
			Help:      "Source messages that could not be decoded or routed.",
		}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pipeline_running",
			Help:      "1 when the consumer loop is active, 0 when shut down.",
		}),
		BatchSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_size",
			Help:      "Number of messages per batch extracted from Kafka.",
			Buckets:   []float64{1, 5, 10, 20, 30, 40, 50, 75, 100},
		}),
		BatchProcessingDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_processing_duration_seconds",
			Help:      "Duration of routing one batch of source messages.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		}),
		RecomputeRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recompute_requests_total",
			Help:      "Recompute requests by scheduling outcome.",
		}, []string{"outcome"}),
		DispatchErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dispatch_errors_total",
			Help:      "Recompute dispatches the worker refused.",
		}),
		WorkerComputations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "worker_computations_total",
			Help:      "Dispersion computations completed by session workers.",
		}),
		ComputeDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "compute_duration_seconds",
			Help:      "Duration of one dispersion computation.",
			Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.25},
		}),
		PlumesComputed: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "plumes_per_computation",
			Help:      "Number of plumes produced by one computation.",
			Buckets:   []float64{0, 10, 50, 100, 250, 500, 1000, 2500},
		}),
		ResultMessages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "result_messages_total",
			Help:      "Results received by the synchronizer by kind and outcome.",
		}, []string{"kind", "outcome"}),
		ResultsProduced: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "results_produced_total",
			Help:      "Plume generations written to the sink topic.",
		}),
		ClusterRequests: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cluster_requests_total",
			Help:      "Complaint clustering runs.",
		}),
		ClustersFormed: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "clusters_per_request",
			Help:      "Number of clusters produced by one clustering run.",
			Buckets:   []float64{0, 1, 5, 10, 50, 100, 500, 1000},
		}),
		ActiveSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_sessions",
			Help:      "Sessions with a live scheduler and worker.",
		}),
		WeatherPolls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "weather_polls_total",
			Help:      "Weather provider polls by outcome.",
		}, []string{"outcome"}),
		WeatherCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "weather_cache_total",
			Help:      "Weather cache lookups by method and result.",
		}, []string{"method", "result"}),
		WeatherAPIDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "weather_api_duration_seconds",
			Help:      "OpenWeatherMap API request duration in seconds.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"method"}),
		WeatherEnabled: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "weather_enabled",
			Help:      "1 when weather polling is enabled, 0 otherwise.",
		}),
	}
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.MessagesConsumed,
		m.MessageErrors,
		m.PipelineRunning,
		m.BatchSize,
		m.BatchProcessingDuration,
		m.RecomputeRequests,
		m.DispatchErrors,
		m.WorkerComputations,
		m.ComputeDuration,
		m.PlumesComputed,
		m.ResultMessages,
		m.ResultsProduced,
		m.ClusterRequests,
		m.ClustersFormed,
		m.ActiveSessions,
		m.WeatherPolls,
		m.WeatherCache,
		m.WeatherAPIDuration,
		m.WeatherEnabled,
	}
}
