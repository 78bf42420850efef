package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserve(t *testing.T) {
	m := New("test")
	require.NoError(t, m.Register(prometheus.NewRegistry()))

	m.ObserveOperation("create", ResultSuccess)
	m.ObserveOperation("create", ResultSuccess)
	m.ObserveOperation("retarget", ResultPartial)
	m.ObserveCall("schedule", nil)
	m.ObserveCall("cancel", errors.New("boom"))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.ReminderOperations.WithLabelValues("create", ResultSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ReminderOperations.WithLabelValues("retarget", ResultPartial)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ExternalCalls.WithLabelValues("schedule", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ExternalCalls.WithLabelValues("cancel", "error")))
}

func TestRegisterTwiceFails(t *testing.T) {
	reg := prometheus.NewRegistry()
	require.NoError(t, New("test").Register(reg))
	assert.Error(t, New("test").Register(reg))
}
