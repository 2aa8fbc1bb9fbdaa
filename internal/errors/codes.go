package errors

// Common error codes
const (
	// System errors
	ErrInternal       ErrorCode = "internal_error"
	ErrAlreadyRunning ErrorCode = "already_running"

	// Configuration errors
	ErrInvalidConfig   ErrorCode = "invalid_configuration"
	ErrReadConfig      ErrorCode = "read_config_failed"
	ErrBindFlags       ErrorCode = "bind_flags_failed"
	ErrInvalidInterval ErrorCode = "invalid_interval"
	ErrInvalidLogLevel ErrorCode = "invalid_log_level"

	// Bridge errors
	ErrBridgeStart       ErrorCode = "bridge_start_failed"
	ErrBridgeUnavailable ErrorCode = "bridge_unavailable"
	ErrBridgeStop        ErrorCode = "bridge_stop_failed"
	ErrBridgeRead        ErrorCode = "bridge_read_failed"

	// Feed errors
	ErrFeedDecode ErrorCode = "feed_decode_failed"

	// Alert errors
	ErrInvalidRule     ErrorCode = "invalid_alert_rule"
	ErrReadRulesFile   ErrorCode = "read_rules_file_failed"
	ErrNotifyDispatch  ErrorCode = "notify_dispatch_failed"
	ErrNotifyQueueFull ErrorCode = "notify_queue_full"

	// Telemetry errors
	ErrInvalidDBPath   ErrorCode = "telemetry_invalid_db_path"
	ErrStorageInit     ErrorCode = "telemetry_storage_init_failed"
	ErrStorageAccess   ErrorCode = "telemetry_storage_access_failed"
	ErrStorageClose    ErrorCode = "telemetry_storage_close_failed"
	ErrInvalidSnapshot ErrorCode = "telemetry_invalid_snapshot"

	// API errors
	ErrServerStart    ErrorCode = "server_start_failed"
	ErrServerShutdown ErrorCode = "server_shutdown_failed"
)

// Common error messages
var errorMessages = map[ErrorCode]string{
	ErrInternal:          "Internal error occurred",
	ErrAlreadyRunning:    "Another instance is already running",
	ErrInvalidConfig:     "Invalid configuration",
	ErrReadConfig:        "Failed to read configuration",
	ErrBindFlags:         "Failed to bind flags",
	ErrInvalidInterval:   "Invalid interval value",
	ErrInvalidLogLevel:   "Invalid log level",
	ErrBridgeStart:       "Failed to start sensor bridge process",
	ErrBridgeUnavailable: "Sensor bridge is unavailable",
	ErrBridgeStop:        "Failed to stop sensor bridge process",
	ErrBridgeRead:        "Failed to read from sensor bridge",
	ErrFeedDecode:        "Failed to decode feed line",
	ErrInvalidRule:       "Invalid alert rule",
	ErrReadRulesFile:     "Failed to read alert rules file",
	ErrNotifyDispatch:    "Failed to dispatch notification",
	ErrNotifyQueueFull:   "Notification queue full",
	ErrInvalidDBPath:     "Invalid telemetry database path",
	ErrStorageInit:       "Failed to initialize telemetry storage",
	ErrStorageAccess:     "Failed to access telemetry storage",
	ErrStorageClose:      "Failed to close telemetry storage",
	ErrInvalidSnapshot:   "Invalid snapshot",
	ErrServerStart:       "Failed to start API server",
	ErrServerShutdown:    "Failed to shut down API server",
}

// GetErrorMessage returns the message for a given error code
func GetErrorMessage(code ErrorCode) string {
	if msg, ok := errorMessages[code]; ok {
		return msg
	}

	return string(code)
}
