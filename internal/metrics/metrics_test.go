package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecord(t *testing.T) {
	before := testutil.ToFloat64(AuthAttempts.WithLabelValues(OpLogin, OutcomeInvalidCredentials))

	Record(OpLogin, OutcomeInvalidCredentials)
	Record(OpLogin, OutcomeInvalidCredentials)

	after := testutil.ToFloat64(AuthAttempts.WithLabelValues(OpLogin, OutcomeInvalidCredentials))
	assert.Equal(t, before+2, after)
}

func TestRegisterMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	assert.NotPanics(t, func() { RegisterMetrics(reg) })
	assert.Panics(t, func() { RegisterMetrics(reg) })

	Record(OpRegister, OutcomeSuccess)
	count, err := testutil.GatherAndCount(reg, "secrets_auth_operations_total")
	assert.NoError(t, err)
	assert.GreaterOrEqual(t, count, 1)
}
