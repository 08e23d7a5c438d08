// Package metrics defines the Prometheus collectors exposed on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Registrations counts registration attempts by outcome
	// (ok, exists, weak_password, error).
	Registrations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "deviceauth_registrations_total",
		Help: "Registration attempts by outcome.",
	}, []string{"outcome"})

	// Logins counts login attempts by outcome (ok, invalid_credentials, error).
	Logins = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "deviceauth_logins_total",
		Help: "Login attempts by outcome.",
	}, []string{"outcome"})

	// Refreshes counts token refresh attempts by outcome (ok, invalid, error).
	Refreshes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "deviceauth_token_refreshes_total",
		Help: "Refresh token exchanges by outcome.",
	}, []string{"outcome"})

	// GuardDecisions counts request guard verdicts by outcome
	// (ok, missing_token, malformed_header, expired, unauthorized, user_not_found).
	GuardDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "deviceauth_guard_decisions_total",
		Help: "Request authenticator verdicts by outcome.",
	}, []string{"outcome"})

	// SessionsSwept counts sessions deleted by the retention sweep.
	SessionsSwept = promauto.NewCounter(prometheus.CounterOpts{
		Name: "deviceauth_sessions_swept_total",
		Help: "Inactive sessions deleted by the retention sweep.",
	})
)
