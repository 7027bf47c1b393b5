// Package logging provides structured logging for Lockstep coordination.
//
// This package wraps Go's log/slog to provide JSON-formatted logs with
// context propagation support for debugging and post-hoc analysis. It is
// designed to help troubleshoot multi-agent coordination by providing
// structured, filterable logs that can be analyzed after the fact.
//
// # Features
//
//   - JSON-formatted structured logging via slog
//   - Configurable log levels (DEBUG, INFO, WARN, ERROR)
//   - Context propagation (instance ID, component, resource)
//   - Log rotation with configurable size limits
//   - Optional gzip compression for rotated logs
//   - Log aggregation and filtering utilities
//   - Export to JSON, text, or CSV formats
//
// # Thread Safety
//
// All types in this package are safe for concurrent use. The [Logger] type
// uses Go's slog internally which is designed for concurrent access. The
// [RotatingWriter] type uses a mutex to protect file operations during
// rotation. Child loggers created via With* methods share the underlying
// writer safely.
//
// # Basic Usage
//
// Create a logger for a coordination directory:
//
//	logger, err := logging.NewLogger("/repo/.lockstep/coordination", "INFO")
//	if err != nil {
//	    return err
//	}
//	defer logger.Close()
//
//	// Log messages at various levels
//	logger.Debug("detailed info", "key", "value")
//	logger.Info("lease acquired", "ttl_seconds", 300)
//	logger.Warn("lease contended", "holder", "agent-2")
//	logger.Error("store write failed", "error", err.Error())
//
// Log output never goes to stdout: hook-invoked commands reserve stdout for
// the hook response envelope, so the logger writes to a file or to stderr.
//
// # Context Propagation
//
// Create child loggers with persistent context attributes:
//
//	// Add instance context
//	instanceLogger := logger.WithInstance("agent-abc123")
//
//	// Add component context
//	managerLogger := instanceLogger.WithComponent("manager")
//
//	// Add resource context
//	resourceLogger := managerLogger.WithResource("cmd/server/main.go")
//
//	// All logs from resourceLogger will include instance_id, component, and resource
//	resourceLogger.Info("lease renewed", "expires_in", "300s")
//
// Output:
//
//	{"time":"...","level":"INFO","msg":"lease renewed","instance_id":"agent-abc123","component":"manager","resource":"cmd/server/main.go","expires_in":"300s"}
//
// # Log Rotation
//
// For long-lived agent sessions, use log rotation to prevent unbounded growth:
//
//	config := logging.RotationConfig{
//	    MaxSizeMB:  10,    // Rotate when file exceeds 10MB
//	    MaxBackups: 3,     // Keep 3 backup files
//	    Compress:   true,  // Gzip compress rotated files
//	}
//
//	logger, err := logging.NewLoggerWithRotation(dir, "INFO", config)
//	if err != nil {
//	    return err
//	}
//	defer logger.Close()
//
// Rotated files are named: debug.log.1, debug.log.2, etc., where .1 is the
// most recent backup. When compression is enabled, rotated files become
// debug.log.1.gz, etc.
//
// # Testing
//
// For testing, use [NopLogger] to discard all log output:
//
//	func TestSomething(t *testing.T) {
//	    logger := logging.NopLogger()
//	    // Use logger in tests without creating files
//	}
//
// # Log Aggregation and Filtering
//
// Read and analyze logs after a session:
//
//	// Load all logs from a coordination directory
//	entries, err := logging.AggregateLogs(dir)
//	if err != nil {
//	    return err
//	}
//
//	// Filter logs by various criteria
//	filter := logging.LogFilter{
//	    Level:      "WARN",        // Minimum level
//	    InstanceID: "agent-123",   // Specific instance
//	    Component:  "store",       // Specific component
//	    StartTime:  time.Now().Add(-1 * time.Hour),  // Last hour
//	}
//	filtered := logging.FilterLogs(entries, filter)
//
//	// Export to various formats
//	logging.ExportLogEntries(filtered, "errors.json", "json")
//	logging.ExportLogEntries(filtered, "errors.txt", "text")
//	logging.ExportLogEntries(filtered, "errors.csv", "csv")
//
// # Log Levels
//
// The package defines four log levels:
//
//   - [LevelDebug]: Detailed information for debugging
//   - [LevelInfo]: General operational information (default)
//   - [LevelWarn]: Warning conditions that may need attention
//   - [LevelError]: Error conditions that affect functionality
//
// Use [ValidLevels] to get the list of valid level strings, and [ParseLevel]
// to normalize user-provided level strings.
//
// # Configuration
//
// The logging system is typically configured via Lockstep's config file:
//
//	logging:
//	  enabled: true
//	  level: info
//	  max_size_mb: 10
//	  max_backups: 3
//
// See the Lockstep README for complete configuration documentation.
package logging
