package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics definitions
var (
	ParsingDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "greensense_parsing_seconds",
		Help:    "Time spent parsing a source file.",
		Buckets: prometheus.DefBuckets,
	}, []string{"language"})

	ParseFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "greensense_parse_failures_total",
		Help: "Total number of files skipped because they could not be read or parsed.",
	})

	RuleDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "greensense_rule_seconds",
		Help:    "Time spent running a single rule over one file or project.",
		Buckets: prometheus.DefBuckets,
	}, []string{"rule"})

	IssuesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "greensense_issues_total",
		Help: "Total number of issues emitted, by rule.",
	}, []string{"rule"})

	AnalysisDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "greensense_analysis_seconds",
		Help:    "Time spent on high-level analysis tasks.",
		Buckets: prometheus.DefBuckets,
	}, []string{"task"})

	FilesAnalyzed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "greensense_files_analyzed_total",
		Help: "Total number of files analysed.",
	})

	SmellLines = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "greensense_smell_lines",
		Help: "Lines of code covered by issues in the most recent run.",
	})

	CacheHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "greensense_cache_hits_total",
		Help: "Total number of per-file results served from the issue cache.",
	})

	WatcherEventsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "greensense_watcher_events_total",
		Help: "Total number of file system events received by the watcher.",
	})

	WatcherRunsDroppedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "greensense_watcher_runs_dropped_total",
		Help: "Total number of watch-triggered runs skipped by the rate limiter.",
	})
)
