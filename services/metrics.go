package services

import "github.com/prometheus/client_golang/prometheus"

const (
	outcomeOK       = "ok"
	outcomeNotFound = "not_found"
	outcomeError    = "error"
)

var todoOperations = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "todo_service_operations_total",
		Help: "Total number of todo service operations by outcome",
	},
	[]string{"operation", "outcome"},
)

// InitPrometheus registers the service metrics. Call this from main.go
func InitPrometheus(reg prometheus.Registerer) {
	reg.MustRegister(todoOperations)
}

func observeOperation(operation, outcome string) {
	todoOperations.WithLabelValues(operation, outcome).Inc()
}
