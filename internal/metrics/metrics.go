// Package metrics exposes prometheus counters for authentication outcomes.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Operations.
const (
	OpRegister = "register"
	OpLogin    = "login"
	OpLogout   = "logout"
	OpWhoAmI   = "whoami"
)

// Outcomes.
const (
	OutcomeSuccess            = "success"
	OutcomeValidationError    = "validation_error"
	OutcomeDuplicateEmail     = "duplicate_email"
	OutcomeInvalidCredentials = "invalid_credentials"
	OutcomeUnauthenticated    = "unauthenticated"
	OutcomeInvalidToken       = "invalid_token"
	OutcomeNotFound           = "not_found"
	OutcomeError              = "error"
)

// AuthAttempts counts auth operations by outcome.
// Use RegisterMetrics to register this with a Prometheus registry.
var AuthAttempts = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "secrets_auth_operations_total",
		Help: "Total number of authentication operations",
	},
	[]string{"operation", "outcome"},
)

// PasswordHashDuration observes how long bcrypt takes per hash.
var PasswordHashDuration = prometheus.NewHistogram(
	prometheus.HistogramOpts{
		Name:    "secrets_password_hash_duration_seconds",
		Help:    "Password hashing duration in seconds",
		Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2},
	},
)

// RegisterMetrics registers the package metrics with the given registry.
// Panics if registration fails (following prometheus convention).
func RegisterMetrics(reg prometheus.Registerer) {
	reg.MustRegister(AuthAttempts)
	reg.MustRegister(PasswordHashDuration)
}

// Record increments the counter for operation and outcome.
func Record(operation, outcome string) {
	AuthAttempts.WithLabelValues(operation, outcome).Inc()
}
