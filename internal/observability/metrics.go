package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the sync pipeline.
type Metrics struct {
	CyclesTotal    *prometheus.CounterVec // labels: status={success,failure,aborted}
	CycleDuration  prometheus.Histogram
	SchedulerState prometheus.Gauge // numeric scheduler state, same order as the state machine
	FailureStreak  prometheus.Gauge
	LastSuccess    prometheus.Gauge // unix seconds of the last successful cycle

	// Fetch and parse metrics.
	FetchRequests *prometheus.CounterVec // labels: source={geojson,xml}, status={success,error}
	FetchDuration *prometheus.HistogramVec
	EventsParsed  *prometheus.CounterVec // labels: source={geojson,xml}
	ParseWarnings *prometheus.CounterVec // labels: source={geojson,xml}

	// Write metrics.
	EventsInserted  prometheus.Counter
	EventsUpdated   prometheus.Counter
	EventsUnchanged prometheus.Counter
	RecordsFailed   prometheus.Counter
	WriteDuration   prometheus.Histogram
}

// NewMetrics creates and registers all pipeline metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		CyclesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "disaster_sync",
			Name:      "cycles_total",
			Help:      "Completed sync cycles by outcome.",
		}, []string{"status"}),
		CycleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "disaster_sync",
			Name:      "cycle_duration_seconds",
			Help:      "Duration of a complete fetch-parse-reconcile-diff-write cycle.",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		}),
		SchedulerState: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "disaster_sync",
			Name:      "scheduler_state",
			Help:      "Current scheduler state: 0 idle, 1 fetching, 2 parsing, 3 reconciling, 4 diffing, 5 writing, 6 sleeping.",
		}),
		FailureStreak: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "disaster_sync",
			Name:      "failure_streak",
			Help:      "Consecutive failed cycles; resets to 0 on success.",
		}),
		LastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "disaster_sync",
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last successful cycle.",
		}),
		FetchRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "disaster_sync",
			Name:      "fetch_requests_total",
			Help:      "Upstream fetches by source and outcome.",
		}, []string{"source", "status"}),
		FetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "disaster_sync",
			Name:      "fetch_duration_seconds",
			Help:      "Upstream fetch duration by source.",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}, []string{"source"}),
		EventsParsed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "disaster_sync",
			Name:      "events_parsed_total",
			Help:      "Valid events produced by the parsers, by source.",
		}, []string{"source"}),
		ParseWarnings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "disaster_sync",
			Name:      "parse_warnings_total",
			Help:      "Feed records skipped by the parsers, by source.",
		}, []string{"source"}),
		EventsInserted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "disaster_sync",
			Name:      "events_inserted_total",
			Help:      "New event rows written to the spatial store.",
		}),
		EventsUpdated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "disaster_sync",
			Name:      "events_updated_total",
			Help:      "Changed event rows updated in the spatial store.",
		}),
		EventsUnchanged: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "disaster_sync",
			Name:      "events_unchanged_total",
			Help:      "Events skipped because their fingerprint matched the stored row.",
		}),
		RecordsFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "disaster_sync",
			Name:      "records_failed_total",
			Help:      "Events excluded from writes by per-record validation.",
		}),
		WriteDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "disaster_sync",
			Name:      "write_duration_seconds",
			Help:      "Duration of the per-cycle store transaction.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30},
		}),
	}

	prometheus.MustRegister(
		m.CyclesTotal,
		m.CycleDuration,
		m.SchedulerState,
		m.FailureStreak,
		m.LastSuccess,
		m.FetchRequests,
		m.FetchDuration,
		m.EventsParsed,
		m.ParseWarnings,
		m.EventsInserted,
		m.EventsUpdated,
		m.EventsUnchanged,
		m.RecordsFailed,
		m.WriteDuration,
	)

	return m
}

// NewMetricsForTesting creates Metrics with a fresh registry to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		CyclesTotal:     prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "disaster_sync", Name: "cycles_total"}, []string{"status"}),
		CycleDuration:   prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "disaster_sync", Name: "cycle_duration_seconds"}),
		SchedulerState:  prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "disaster_sync", Name: "scheduler_state"}),
		FailureStreak:   prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "disaster_sync", Name: "failure_streak"}),
		LastSuccess:     prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "disaster_sync", Name: "last_success_timestamp_seconds"}),
		FetchRequests:   prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "disaster_sync", Name: "fetch_requests_total"}, []string{"source", "status"}),
		FetchDuration:   prometheus.NewHistogramVec(prometheus.HistogramOpts{Namespace: "disaster_sync", Name: "fetch_duration_seconds"}, []string{"source"}),
		EventsParsed:    prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "disaster_sync", Name: "events_parsed_total"}, []string{"source"}),
		ParseWarnings:   prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "disaster_sync", Name: "parse_warnings_total"}, []string{"source"}),
		EventsInserted:  prometheus.NewCounter(prometheus.CounterOpts{Namespace: "disaster_sync", Name: "events_inserted_total"}),
		EventsUpdated:   prometheus.NewCounter(prometheus.CounterOpts{Namespace: "disaster_sync", Name: "events_updated_total"}),
		EventsUnchanged: prometheus.NewCounter(prometheus.CounterOpts{Namespace: "disaster_sync", Name: "events_unchanged_total"}),
		RecordsFailed:   prometheus.NewCounter(prometheus.CounterOpts{Namespace: "disaster_sync", Name: "records_failed_total"}),
		WriteDuration:   prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "disaster_sync", Name: "write_duration_seconds"}),
	}
}
