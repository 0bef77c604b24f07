// internal/metrics/metrics.go
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Counters
	RequestCount = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "modbus_gateway_requests_total",
		Help: "Requests handled, by method and result",
	}, []string{"method", "status"})

	BatchCount = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "modbus_gateway_batches_total",
		Help: "Per-interface batches executed, by result",
	}, []string{"interface", "status"})

	TransactionCount = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "modbus_gateway_transactions_total",
		Help: "Modbus transactions issued, by function and result",
	}, []string{"function", "status"})

	// Histograms
	BatchDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "modbus_gateway_batch_duration_seconds",
		Help:    "Time spent per interface batch, session open to close",
		Buckets: prometheus.DefBuckets,
	}, []string{"interface"})

	// Gauges
	InterfaceHealth = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "modbus_gateway_interface_health",
		Help: "Interface health: 0 unknown, 1 ok, 2 error",
	}, []string{"interface"})
)

// Status constants
const (
	StatusSuccess = "success"
	StatusFailed  = "failed"
)

func status(ok bool) string {
	if ok {
		return StatusSuccess
	}
	return StatusFailed
}

// IncRequest counts one handled request.
func IncRequest(method string, ok bool) {
	RequestCount.WithLabelValues(method, status(ok)).Inc()
}

// ObserveBatch counts one interface batch and its duration.
func ObserveBatch(iface string, ok bool, d time.Duration) {
	BatchCount.WithLabelValues(iface, status(ok)).Inc()
	BatchDuration.WithLabelValues(iface).Observe(d.Seconds())
}

// IncTransaction counts one Modbus transaction.
func IncTransaction(function string, ok bool) {
	TransactionCount.WithLabelValues(function, status(ok)).Inc()
}

// SetInterfaceHealth exports the health level of an interface.
func SetInterfaceHealth(iface string, level uint8) {
	InterfaceHealth.WithLabelValues(iface).Set(float64(level))
}
