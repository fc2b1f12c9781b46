package auth

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	decisionAllowed          = "allowed"
	decisionInsufficientTier = "insufficient_tier"
	decisionScopeMismatch    = "scope_mismatch"
	decisionUnauthenticated  = "unauthenticated"
)

var authorizationDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "authorization_decisions_total",
	Help: "Authorization guard decisions broken down by result.",
}, []string{"result"})

func recordDecision(result string) {
	authorizationDecisions.WithLabelValues(result).Inc()
}
