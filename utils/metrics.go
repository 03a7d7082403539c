package utils

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Registry holds every flipmail metric; it is served on /metrics
var Registry = prometheus.NewRegistry()

var factory = promauto.With(Registry)

var (
	GatewayRequests = factory.NewCounterVec(prometheus.CounterOpts{
		Name: "flipmail_gateway_requests_total",
		Help: "Requests made to the remote email API by operation and result.",
	}, []string{"op", "result"})

	GatewayDuration = factory.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "flipmail_gateway_request_duration_seconds",
		Help:    "Latency of requests to the remote email API.",
		Buckets: prometheus.DefBuckets,
	}, []string{"op"})

	BodyCacheHits = factory.NewCounter(prometheus.CounterOpts{
		Name: "flipmail_body_cache_hits_total",
		Help: "Email bodies served from the in-memory cache.",
	})

	StatusMutations = factory.NewCounterVec(prometheus.CounterOpts{
		Name: "flipmail_status_mutations_total",
		Help: "Read and favorite status changes.",
	}, []string{"kind"})

	StatusPersistFailures = factory.NewCounter(prometheus.CounterOpts{
		Name: "flipmail_status_persist_failures_total",
		Help: "Status snapshots that could not be written.",
	})

	RateLimited = factory.NewCounter(prometheus.CounterOpts{
		Name: "flipmail_rate_limited_total",
		Help: "Requests rejected by the per-IP rate limiter.",
	})

	StaleResponses = factory.NewCounterVec(prometheus.CounterOpts{
		Name: "flipmail_stale_responses_total",
		Help: "Gateway responses discarded because the view moved on.",
	}, []string{"op"})
)

func init() {
	Registry.MustRegister(collectors.NewGoCollector())
	Registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
}
