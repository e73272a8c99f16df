package ringmetrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestTxMetricsObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewTxMetrics(reg)

	m.Observe("3", 16)
	m.Observe("3", 4)

	require.Equal(t, float64(2), testutil.ToFloat64(m.framesPublished.WithLabelValues("3")))
	require.Equal(t, float64(20), testutil.ToFloat64(m.bytesPublished.WithLabelValues("3")))
}

func TestRxMetricsObserveAndLapped(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewRxMetrics(reg)

	m.Observe("7", 12)
	m.ObserveNoElement()
	m.SetLapped(3)

	require.Equal(t, float64(1), testutil.ToFloat64(m.framesConsumed.WithLabelValues("7")))
	require.Equal(t, float64(12), testutil.ToFloat64(m.bytesConsumed.WithLabelValues("7")))
	require.Equal(t, float64(1), testutil.ToFloat64(m.noElement))
	require.Equal(t, float64(3), testutil.ToFloat64(m.lapped))
}
