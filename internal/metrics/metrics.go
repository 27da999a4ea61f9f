package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ProfilesGenerated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "floatchat_profiles_generated_total",
			Help: "Total synthetic profiles generated",
		},
	)

	ChatReplies = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "floatchat_chat_replies_total",
			Help: "Total chat replies by reply kind",
		},
		[]string{"kind"},
	)

	AnalysisJobs = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "floatchat_analysis_jobs_total",
			Help: "Total analysis jobs finished by terminal status",
		},
		[]string{"status"},
	)

	AnalysisJobsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "floatchat_analysis_jobs_in_flight",
			Help: "Analysis jobs currently processing",
		},
	)

	ChartCacheResults = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "floatchat_chart_cache_total",
			Help: "Profile chart cache lookups by result",
		},
		[]string{"result"},
	)

	HousekeepingDeleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "floatchat_housekeeping_deleted_total",
			Help: "Rows removed by scheduled housekeeping",
		},
		[]string{"table"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "floatchat_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "code"},
	)
)
