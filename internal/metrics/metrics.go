package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricPrefix = "smartgrowth_"

var (
	// TelemetryReports counts accepted device check-ins.
	TelemetryReports = promauto.NewCounter(prometheus.CounterOpts{
		Name: metricPrefix + "telemetry_reports_total",
		Help: "Accepted telemetry check-ins",
	})

	// TelemetryRejected counts rejected check-ins by reason.
	TelemetryRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: metricPrefix + "telemetry_rejected_total",
		Help: "Rejected telemetry check-ins",
	}, []string{"reason"})

	// DevicesCreated counts first-contact registrations.
	DevicesCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: metricPrefix + "devices_created_total",
		Help: "Devices created on first contact",
	})

	// SchedulerTicks counts irrigation recomputation passes.
	SchedulerTicks = promauto.NewCounter(prometheus.CounterOpts{
		Name: metricPrefix + "scheduler_ticks_total",
		Help: "Irrigation scheduler ticks",
	})

	// SchedulerErrors counts per-device failures inside a tick.
	SchedulerErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: metricPrefix + "scheduler_device_errors_total",
		Help: "Per-device errors during scheduler ticks",
	})
)

// RegisterDeviceGauge exposes the registered device count.
func RegisterDeviceGauge(count func() float64) {
	prometheus.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: metricPrefix + "devices",
			Help: "Registered devices",
		},
		count,
	))
}
