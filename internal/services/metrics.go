package services

import "github.com/prometheus/client_golang/prometheus"

// appointmentsTotal counts committed lifecycle transitions.
var appointmentsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "booking_appointments_total",
		Help: "Appointments created or canceled.",
	},
	[]string{"action"},
)

func init() {
	prometheus.MustRegister(appointmentsTotal)
}
