package metrics

import (
	"time"

	"github.com/bargainbliss/linkbot/internal/observability"
)

// Application-level metrics following Prometheus conventions
var (
	// Link relay metrics
	LinkRequestsTotal = "app_link_requests_total"
	LinkBuildDuration = "app_link_build_duration_ms"

	// Quota metrics
	QuotaDenialsTotal = "app_quota_denials_total"

	// Keep-alive heartbeat metrics
	HeartbeatTotal = "app_heartbeat_total"

	// Health check metrics
	HealthCheckTotal    = "app_health_check_total"
	HealthCheckDuration = "app_health_check_duration_ms"

	// Server lifecycle metrics
	ServerStartTime = "app_server_start_time_seconds"
	ServerUptime    = "app_server_uptime_seconds"
)

// RecordLinkRequest records a processed link request with its outcome.
// Outcomes mirror the reply categories: success, unrecognized,
// network_error, api_error, quota_denied.
func RecordLinkRequest(outcome string) {
	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Counter(
			LinkRequestsTotal,
			1,
			map[string]string{
				"outcome": outcome,
			},
		)
	}
}

// RecordLinkBuildDuration records how long an affiliate link build took
func RecordLinkBuildDuration(duration time.Duration, success bool) {
	status := "success"
	if !success {
		status = "failure"
	}

	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Histogram(
			LinkBuildDuration,
			duration,
			map[string]string{
				"status": status,
			},
		)
	}
}

// RecordQuotaDenial records a rejected request for a user over quota
func RecordQuotaDenial() {
	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Counter(
			QuotaDenialsTotal,
			1,
			nil,
		)
	}
}

// RecordHeartbeat records a keep-alive ping against a target role
func RecordHeartbeat(role string, success bool) {
	status := "success"
	if !success {
		status = "failure"
	}

	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Counter(
			HeartbeatTotal,
			1,
			map[string]string{
				"role":   role,
				"status": status,
			},
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
