package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	HTTPLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_requests_latency_seconds",
			Help:    "Latency of HTTP requests.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)

	SignIns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_sign_ins_total",
			Help: "Successful sign-ins by method.",
		},
		[]string{"method"}, // password|provider|oauth
	)

	ListingsCreated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "listings_created_total",
			Help: "Listings created.",
		},
	)

	ImagesUploaded = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "images_uploaded_total",
			Help: "Images stored in object storage.",
		},
	)

	ImagesRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "images_rejected_total",
			Help: "Images rejected by the classifier.",
		},
		[]string{"reason"}, // concept|error
	)

	PurgeFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "image_purge_failures_total",
			Help: "Object deletions that failed during purge.",
		},
	)

	WorkerQueueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "worker_queue_depth",
			Help: "Current worker queue depth.",
		},
	)

	initOnce sync.Once
)

// Handler serves /metrics.
var Handler = promhttp.Handler

func Init() {
	initOnce.Do(func() {
		prometheus.MustRegister(HTTPLatency, SignIns, ListingsCreated, ImagesUploaded,
			ImagesRejected, PurgeFailures, WorkerQueueDepth)
	})
}
