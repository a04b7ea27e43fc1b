package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Login outcomes recorded by the auth service.
const (
	LoginOutcomeSuccess     = "success"
	LoginOutcomeInvalid     = "invalid_credentials"
	LoginOutcomeRateLimited = "rate_limited"
)

var (
	LoginAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "securityapi",
		Name:      "login_attempts_total",
		Help:      "Login attempts by outcome.",
	}, []string{"outcome"})

	TokenValidations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "securityapi",
		Name:      "token_validations_total",
		Help:      "Bearer token validations by result.",
	}, []string{"result"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "securityapi",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "status"})
)
