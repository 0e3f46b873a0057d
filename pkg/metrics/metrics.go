package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "pifisio"

var (
	RateLimitAllowed = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "rate_limit_allowed_total", Help: "Number of allowed requests by limiter type."},
		[]string{"limiter"},
	)
	RateLimitRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "rate_limit_rejected_total", Help: "Number of rejected requests by limiter type."},
		[]string{"limiter"},
	)
	// AuthRequests counts gateway outcomes: authenticated, anonymous or rejected.
	AuthRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "auth_requests_total", Help: "Authentication gateway outcomes."},
		[]string{"result"},
	)
	// AuthzDenied counts authorization failures by reason (unauthenticated, forbidden).
	AuthzDenied = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "authz_denied_total", Help: "Requests denied by route authorization."},
		[]string{"reason"},
	)
	SignIns = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "sign_in_total", Help: "Sign-in attempts by outcome."},
		[]string{"outcome"},
	)
	TokenRefreshes = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "token_refresh_total", Help: "Token refresh attempts by outcome."},
		[]string{"outcome"},
	)
	TokensIssued = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "tokens_issued_total", Help: "Tokens minted by kind."},
		[]string{"kind"},
	)
)

func RegisterCollectors(reg prometheus.Registerer) {
	reg.MustRegister(RateLimitAllowed)
	reg.MustRegister(RateLimitRejected)
	reg.MustRegister(AuthRequests)
	reg.MustRegister(AuthzDenied)
	reg.MustRegister(SignIns)
	reg.MustRegister(TokenRefreshes)
	reg.MustRegister(TokensIssued)
}
