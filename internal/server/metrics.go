package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP request metrics
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ticketscan_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ticketscan_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	// Scan metrics
	scansTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ticketscan_scans_total",
			Help: "Total number of scans",
		},
		[]string{"mode", "status"},
	)

	scanDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ticketscan_scan_duration_seconds",
			Help:    "Scan duration in seconds",
			Buckets: []float64{.5, 1, 2.5, 5, 10, 25, 50, 100, 250, 500},
		},
		[]string{"mode"},
	)

	pagesProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ticketscan_pages_processed_total",
			Help: "Pages processed, by where their text came from",
		},
		[]string{"source"}, // source: ocr, text_layer, cache
	)

	pageFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ticketscan_page_failures_total",
			Help: "Pages that could not be recognised",
		},
	)

	ticketsCounted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ticketscan_tickets_counted_total",
			Help: "Sum of scan counts",
		},
		[]string{"mode"},
	)

	exportsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ticketscan_exports_total",
			Help: "Total number of exports",
		},
		[]string{"format", "status"}, // format: pdf, docx
	)

	// Rate limiting metrics
	rateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ticketscan_rate_limit_hits_total",
			Help: "Total number of rate limit hits",
		},
		[]string{"type"},
	)

	uploadSizeBytes = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ticketscan_upload_size_bytes",
			Help:    "Size of uploaded files in bytes",
			Buckets: []float64{10 * 1024, 100 * 1024, 1024 * 1024, 10 * 1024 * 1024, 50 * 1024 * 1024, 100 * 1024 * 1024},
		},
	)
)
