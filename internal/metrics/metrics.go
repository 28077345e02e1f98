package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ReportsGenerated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ecobuddy_reports_generated_total",
			Help: "Total number of emission reports generated",
		},
		[]string{"surface", "shopping_frequency"},
	)

	ReportsRejected = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ecobuddy_reports_rejected_total",
			Help: "Total number of report requests rejected for invalid inputs",
		},
	)

	ReportTotalKgCO2 = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ecobuddy_report_total_kg_co2",
			Help:    "Distribution of estimated monthly emissions in kg CO2e",
			Buckets: []float64{50, 100, 200, 300, 400, 600, 800, 1000, 1500, 2500},
		},
	)

	SuggestionOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ecobuddy_suggestion_requests_total",
			Help: "Total number of suggestion requests by outcome",
		},
		[]string{"outcome"},
	)

	AIGenerations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ecobuddy_ai_generations_total",
			Help: "Total number of language model calls by model and status",
		},
		[]string{"model", "status"},
	)

	AIGenerationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ecobuddy_ai_generation_duration_seconds",
			Help:    "Duration of language model calls in seconds",
			Buckets: prometheus.ExponentialBuckets(0.25, 2, 8),
		},
		[]string{"model"},
	)

	AITokens = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ecobuddy_ai_tokens_total",
			Help: "Total number of tokens consumed by direction",
		},
		[]string{"model", "direction"},
	)

	RateLimited = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ecobuddy_rate_limited_requests_total",
			Help: "Total number of requests rejected by a rate limiter",
		},
		[]string{"limiter"},
	)

	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ecobuddy_http_requests_total",
			Help: "Total number of HTTP requests by route, method and status class",
		},
		[]string{"route", "method", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ecobuddy_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method"},
	)
)
