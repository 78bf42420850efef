package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Operation results recorded by ReminderOperations.
const (
	ResultSuccess = "success"
	ResultPartial = "partial"
	ResultFailure = "failure"
)

// Metrics holds the reminder service metrics.
type Metrics struct {
	ReminderOperations *prometheus.CounterVec
	ExternalCalls      *prometheus.CounterVec
	RemindersSwept     prometheus.Counter
}

// New creates the metrics without registering them.
func New(namespace string) *Metrics {
	return &Metrics{
		ReminderOperations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reminder_operations_total",
			Help:      "Total number of reminder lifecycle operations by result",
		}, []string{"operation", "result"}),
		ExternalCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "external_calls_total",
			Help:      "Total number of calls made to the external messaging platform",
		}, []string{"call", "status"}),
		RemindersSwept: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reminders_swept_total",
			Help:      "Total number of expired reminders removed by the sweep",
		}),
	}
}

// Register registers all collectors with reg.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{m.ReminderOperations, m.ExternalCalls, m.RemindersSwept} {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// ObserveOperation counts one lifecycle operation.
func (m *Metrics) ObserveOperation(operation, result string) {
	m.ReminderOperations.WithLabelValues(operation, result).Inc()
}

// ObserveCall counts one external call; err decides the status label.
func (m *Metrics) ObserveCall(call string, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.ExternalCalls.WithLabelValues(call, status).Inc()
}
