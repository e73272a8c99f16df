// Package ringmetrics exposes Prometheus instrumentation for a broadcast
// ring's transmitter and receiver side, in the naming style of the
// teacher's cmd/prometheus_metrics exporter (namespace "broadcastring",
// one subsystem per role).
package ringmetrics

import "github.com/prometheus/client_golang/prometheus"

const namespace = "broadcastring"

// TxMetrics instruments a Transmitter: how many frames and bytes it has
// published, broken down by type_id.
type TxMetrics struct {
	framesPublished *prometheus.CounterVec
	bytesPublished  *prometheus.CounterVec
}

// NewTxMetrics creates transmitter metrics and registers them with reg.
func NewTxMetrics(reg prometheus.Registerer) *TxMetrics {
	m := &TxMetrics{
		framesPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "tx",
			Name:      "frames_published_total",
			Help:      "Number of records published to the ring, by type_id.",
		}, []string{"type_id"}),
		bytesPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "tx",
			Name:      "bytes_published_total",
			Help:      "Payload bytes published to the ring, by type_id.",
		}, []string{"type_id"}),
	}
	reg.MustRegister(m.framesPublished, m.bytesPublished)
	return m
}

// Observe records one successful Transmit call.
func (m *TxMetrics) Observe(typeID string, payloadBytes int) {
	m.framesPublished.WithLabelValues(typeID).Inc()
	m.bytesPublished.WithLabelValues(typeID).Add(float64(payloadBytes))
}

// RxMetrics instruments a Receiver: frames consumed, bytes consumed,
// polls that found nothing new, and its cumulative lapped count.
type RxMetrics struct {
	framesConsumed *prometheus.CounterVec
	bytesConsumed  *prometheus.CounterVec
	noElement      prometheus.Counter
	lapped         prometheus.Gauge
}

// NewRxMetrics creates receiver metrics and registers them with reg.
func NewRxMetrics(reg prometheus.Registerer) *RxMetrics {
	m := &RxMetrics{
		framesConsumed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "rx",
			Name:      "frames_consumed_total",
			Help:      "Number of records delivered to the receiver callback, by type_id.",
		}, []string{"type_id"}),
		bytesConsumed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "rx",
			Name:      "bytes_consumed_total",
			Help:      "Payload bytes delivered to the receiver callback, by type_id.",
		}, []string{"type_id"}),
		noElement: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "rx",
			Name:      "no_element_total",
			Help:      "Number of ReceiveNext calls that found nothing new.",
		}),
		lapped: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "rx",
			Name:      "lapped_count",
			Help:      "Cumulative number of times this receiver has been lapped by the transmitter.",
		}),
	}
	reg.MustRegister(m.framesConsumed, m.bytesConsumed, m.noElement, m.lapped)
	return m
}

// Observe records one delivered record.
func (m *RxMetrics) Observe(typeID string, payloadBytes int) {
	m.framesConsumed.WithLabelValues(typeID).Inc()
	m.bytesConsumed.WithLabelValues(typeID).Add(float64(payloadBytes))
}

// ObserveNoElement records a ReceiveNext call that returned ErrNoElement.
func (m *RxMetrics) ObserveNoElement() {
	m.noElement.Inc()
}

// SetLapped reports the receiver's current LappedCount.
func (m *RxMetrics) SetLapped(count uint64) {
	m.lapped.Set(float64(count))
}
