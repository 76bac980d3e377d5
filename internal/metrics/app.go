package metrics

import (
	"time"

	"github.com/gatewarden/gatewarden/internal/observability"
)

// Application-level metrics following Prometheus conventions
var (
	// Admission metrics
	AdmissionDecisionsTotal = "app_admission_decisions_total"
	AdmissionDeniedTotal    = "app_admission_denied_total"

	// Window state store metrics
	TrackedRecords    = "app_tracked_records"
	SweepRemovedTotal = "app_sweep_removed_total"
	SweepDuration     = "app_sweep_duration_ms"

	// Health check metrics
	HealthCheckTotal    = "app_health_check_total"
	HealthCheckDuration = "app_health_check_duration_ms"

	// Server lifecycle metrics
	ServerStartTime = "app_server_start_time_seconds"
	ServerUptime    = "app_server_uptime_seconds"
)

// RecordAdmission records one admission decision for a tier. Denials are
// routine control flow, so they are counted here rather than through the
// error metrics path.
func RecordAdmission(tier string, allowed bool) {
	outcome := "allowed"
	if !allowed {
		outcome = "denied"
	}

	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Counter(
			AdmissionDecisionsTotal,
			1,
			map[string]string{
				"tier":    tier,
				"outcome": outcome,
			},
		)

		if !allowed {
			_ = observability.TelemetrySystem.Counter(
				AdmissionDeniedTotal,
				1,
				map[string]string{
					"tier": tier,
				},
			)
		}
	}
}

// RecordSweep records the outcome of one expiry sweep pass.
func RecordSweep(removed, tracked int, duration time.Duration) {
	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Counter(
			SweepRemovedTotal,
			float64(removed),
			nil,
		)

		_ = observability.TelemetrySystem.Gauge(
			TrackedRecords,
			float64(tracked),
			nil,
		)

		_ = observability.TelemetrySystem.Histogram(
			SweepDuration,
			duration,
			nil,
		)
	}
}

// SetTrackedRecords sets the current number of tracked window records.
func SetTrackedRecords(count int64) {
	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Gauge(
			TrackedRecords,
			float64(count),
			nil,
		)
	}
}

// RecordHealthCheck records a health check execution
func RecordHealthCheck(checkName string, healthy bool, duration time.Duration) {
	status := "healthy"
	if !healthy {
		status = "unhealthy"
	}

	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Counter(
			HealthCheckTotal,
			1,
			map[string]string{
				"check":  checkName,
				"status": status,
			},
		)

		_ = observability.TelemetrySystem.Histogram(
			HealthCheckDuration,
			duration,
			map[string]string{
				"check": checkName,
			},
		)
	}
}

// SetServerStartTime records the server start time (Unix timestamp)
func SetServerStartTime(timestamp int64) {
	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Gauge(
			ServerStartTime,
			float64(timestamp),
			nil,
		)
	}
}

// SetServerUptime records the server uptime in seconds
func SetServerUptime(seconds int64) {
	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Gauge(
			ServerUptime,
			float64(seconds),
			nil,
		)
	}
}
