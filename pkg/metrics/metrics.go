package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	RateLimitAllowed = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "haikuplus", Name: "rate_limit_allowed_total", Help: "Number of allowed requests by limiter type."},
		[]string{"limiter"},
	)
	RateLimitRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "haikuplus", Name: "rate_limit_rejected_total", Help: "Number of rejected requests by limiter type."},
		[]string{"limiter"},
	)
	// AuthOutcomes counts authentication attempts by credential branch and result.
	AuthOutcomes = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "haikuplus", Name: "auth_outcomes_total", Help: "Authentication attempts by branch (code, bearer, session) and outcome."},
		[]string{"branch", "outcome"},
	)
	// ProviderCalls observes identity provider call latency by operation and result.
	ProviderCalls = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Namespace: "haikuplus", Name: "provider_call_seconds", Help: "Identity provider call latency.", Buckets: prometheus.DefBuckets},
		[]string{"operation", "result"},
	)
	ProfileRefreshes = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "haikuplus", Name: "profile_refresh_total", Help: "Cached profile refresh decisions (fresh, refreshed, failed)."},
		[]string{"result"},
	)
)

func RegisterCollectors(reg prometheus.Registerer) {
	reg.MustRegister(RateLimitAllowed)
	reg.MustRegister(RateLimitRejected)
	reg.MustRegister(AuthOutcomes)
	reg.MustRegister(ProviderCalls)
	reg.MustRegister(ProfileRefreshes)
}
