package config

import (
	"fmt"
	"slices"
	"strings"

	"github.com/gobwas/glob"
)

// ValidationError represents a single validation failure
type ValidationError struct {
	Field   string // The config field path (e.g., "coordination.ttl_seconds")
	Value   any    // The invalid value
	Message string // Human-readable error description
}

// Error implements the error interface for ValidationError
func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface for ValidationErrors
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d validation errors:\n", len(e)))
	for i, err := range e {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return sb.String()
}

// ValidLogLevels returns the list of valid log levels
func ValidLogLevels() []string {
	return []string{"debug", "info", "warn", "error"}
}

// Validate checks the Config for invalid values and returns all validation errors found
func (c *Config) Validate() []ValidationError {
	var errors []ValidationError

	// Validate Coordination config
	errors = append(errors, c.validateCoordination()...)

	// Validate Locking config
	errors = append(errors, c.validateLocking()...)

	// Validate Redis config
	errors = append(errors, c.validateRedis()...)

	// Validate Logging config
	errors = append(errors, c.validateLogging()...)

	return errors
}

// validateCoordination validates the CoordinationConfig
func (c *Config) validateCoordination() []ValidationError {
	var errors []ValidationError

	// TTL must be positive
	if c.Coordination.TTLSeconds <= 0 {
		errors = append(errors, ValidationError{
			Field:   "coordination.ttl_seconds",
			Value:   c.Coordination.TTLSeconds,
			Message: "must be positive",
		})
	}

	// A lease longer than a day outlives any plausible edit
	const maxTTLSeconds = 86400
	if c.Coordination.TTLSeconds > maxTTLSeconds {
		errors = append(errors, ValidationError{
			Field:   "coordination.ttl_seconds",
			Value:   c.Coordination.TTLSeconds,
			Message: fmt.Sprintf("exceeds maximum of %d seconds (1 day)", maxTTLSeconds),
		})
	}

	// Guard timeout validation (0 means a single attempt without waiting)
	if c.Coordination.GuardTimeoutMs < 0 {
		errors = append(errors, ValidationError{
			Field:   "coordination.guard_timeout_ms",
			Value:   c.Coordination.GuardTimeoutMs,
			Message: "must be non-negative (0 attempts once without waiting)",
		})
	}

	// The guard wait must stay well under the TTL so lock operations
	// never stall an agent for a meaningful fraction of a lease
	const maxGuardTimeoutMs = 60000
	if c.Coordination.GuardTimeoutMs > maxGuardTimeoutMs {
		errors = append(errors, ValidationError{
			Field:   "coordination.guard_timeout_ms",
			Value:   c.Coordination.GuardTimeoutMs,
			Message: fmt.Sprintf("exceeds maximum of %dms", maxGuardTimeoutMs),
		})
	}

	// Validate backend
	if c.Coordination.Backend != "" && !IsValidBackend(c.Coordination.Backend) {
		errors = append(errors, ValidationError{
			Field:   "coordination.backend",
			Value:   c.Coordination.Backend,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidBackends(), ", ")),
		})
	}

	// Dir validation - if set, check for invalid characters
	if c.Coordination.Dir != "" {
		path := c.Coordination.Dir

		// Check for null bytes which are invalid in paths
		if strings.ContainsRune(path, '\x00') {
			errors = append(errors, ValidationError{
				Field:   "coordination.dir",
				Value:   path,
				Message: "path contains invalid null character",
			})
		}

		// Reasonable path length limit (most filesystems have limits around 4096)
		const maxPathLength = 4096
		if len(path) > maxPathLength {
			errors = append(errors, ValidationError{
				Field:   "coordination.dir",
				Value:   path,
				Message: fmt.Sprintf("path exceeds maximum length of %d characters", maxPathLength),
			})
		}
	}

	return errors
}

// validateLocking validates the LockingConfig
func (c *Config) validateLocking() []ValidationError {
	var errors []ValidationError

	const maxPatterns = 100
	if len(c.Locking.Exclude) > maxPatterns {
		errors = append(errors, ValidationError{
			Field:   "locking.exclude",
			Value:   len(c.Locking.Exclude),
			Message: fmt.Sprintf("exceeds maximum of %d patterns", maxPatterns),
		})
	}

	for i, pattern := range c.Locking.Exclude {
		fieldName := fmt.Sprintf("locking.exclude[%d]", i)

		if strings.TrimSpace(pattern) == "" {
			errors = append(errors, ValidationError{
				Field:   fieldName,
				Value:   pattern,
				Message: "pattern cannot be empty",
			})
			continue
		}

		// Patterns must compile; a typo here would silently exclude nothing
		if _, err := glob.Compile(pattern, '/'); err != nil {
			errors = append(errors, ValidationError{
				Field:   fieldName,
				Value:   pattern,
				Message: fmt.Sprintf("invalid glob pattern: %v", err),
			})
		}
	}

	return errors
}

// validateRedis validates the RedisConfig.
// Redis settings are only checked when the redis backend is selected so a
// file-backend config never fails on unused redis keys.
func (c *Config) validateRedis() []ValidationError {
	var errors []ValidationError

	if c.Coordination.Backend != "redis" {
		return errors
	}

	if c.Redis.Addr == "" {
		errors = append(errors, ValidationError{
			Field:   "redis.addr",
			Value:   c.Redis.Addr,
			Message: "cannot be empty when the redis backend is selected",
		})
	}

	if c.Redis.DB < 0 {
		errors = append(errors, ValidationError{
			Field:   "redis.db",
			Value:   c.Redis.DB,
			Message: "must be non-negative",
		})
	}

	return errors
}

// validateLogging validates the LoggingConfig
func (c *Config) validateLogging() []ValidationError {
	var errors []ValidationError

	// Validate log level
	if c.Logging.Level != "" && !slices.Contains(ValidLogLevels(), c.Logging.Level) {
		errors = append(errors, ValidationError{
			Field:   "logging.level",
			Value:   c.Logging.Level,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidLogLevels(), ", ")),
		})
	}

	// Max size must be positive
	if c.Logging.MaxSizeMB <= 0 {
		errors = append(errors, ValidationError{
			Field:   "logging.max_size_mb",
			Value:   c.Logging.MaxSizeMB,
			Message: "must be positive",
		})
	}

	// Reasonable upper bound for log file size
	const maxLogSizeMB = 1000 // 1GB
	if c.Logging.MaxSizeMB > maxLogSizeMB {
		errors = append(errors, ValidationError{
			Field:   "logging.max_size_mb",
			Value:   c.Logging.MaxSizeMB,
			Message: fmt.Sprintf("exceeds maximum of %dMB", maxLogSizeMB),
		})
	}

	// Max backups must be non-negative
	if c.Logging.MaxBackups < 0 {
		errors = append(errors, ValidationError{
			Field:   "logging.max_backups",
			Value:   c.Logging.MaxBackups,
			Message: "must be non-negative",
		})
	}

	return errors
}
