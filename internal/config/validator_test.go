package config

import (
	"fmt"
	"strings"
	"testing"
)

func TestValidationError_Error(t *testing.T) {
	err := ValidationError{
		Field:   "test.field",
		Value:   123,
		Message: "must be greater than zero",
	}

	expected := "test.field: must be greater than zero (got: 123)"
	if err.Error() != expected {
		t.Errorf("Error() = %q, want %q", err.Error(), expected)
	}
}

func TestValidationErrors_Error(t *testing.T) {
	t.Run("empty errors", func(t *testing.T) {
		var errs ValidationErrors
		if errs.Error() != "" {
			t.Errorf("Error() for empty = %q, want empty string", errs.Error())
		}
	})

	t.Run("single error", func(t *testing.T) {
		errs := ValidationErrors{
			{Field: "test.field", Value: 123, Message: "is invalid"},
		}
		expected := "test.field: is invalid (got: 123)"
		if errs.Error() != expected {
			t.Errorf("Error() = %q, want %q", errs.Error(), expected)
		}
	})

	t.Run("multiple errors", func(t *testing.T) {
		errs := ValidationErrors{
			{Field: "field1", Value: "bad", Message: "is invalid"},
			{Field: "field2", Value: -1, Message: "must be positive"},
		}
		result := errs.Error()
		if !strings.Contains(result, "2 validation errors") {
			t.Errorf("Error() should mention 2 errors: %s", result)
		}
		if !strings.Contains(result, "field1") || !strings.Contains(result, "field2") {
			t.Errorf("Error() should mention both fields: %s", result)
		}
	})
}

func TestConfig_Validate_DefaultConfig(t *testing.T) {
	cfg := Default()
	errs := cfg.Validate()
	if len(errs) != 0 {
		t.Errorf("Default config should be valid, got %d errors: %v", len(errs), errs)
	}
}

func TestConfig_Validate_Coordination(t *testing.T) {
	t.Run("zero ttl is invalid", func(t *testing.T) {
		cfg := Default()
		cfg.Coordination.TTLSeconds = 0
		errs := cfg.Validate()

		found := false
		for _, err := range errs {
			if err.Field == "coordination.ttl_seconds" {
				found = true
				break
			}
		}
		if !found {
			t.Error("expected error for zero ttl")
		}
	})

	t.Run("negative ttl is invalid", func(t *testing.T) {
		cfg := Default()
		cfg.Coordination.TTLSeconds = -5
		errs := cfg.Validate()

		found := false
		for _, err := range errs {
			if err.Field == "coordination.ttl_seconds" {
				found = true
				break
			}
		}
		if !found {
			t.Error("expected error for negative ttl")
		}
	})

	t.Run("ttl exceeding one day is invalid", func(t *testing.T) {
		cfg := Default()
		cfg.Coordination.TTLSeconds = 86401
		errs := cfg.Validate()

		found := false
		for _, err := range errs {
			if err.Field == "coordination.ttl_seconds" && strings.Contains(err.Message, "exceeds maximum") {
				found = true
				break
			}
		}
		if !found {
			t.Error("expected error for ttl above one day")
		}
	})

	t.Run("boundary ttl values are valid", func(t *testing.T) {
		for _, ttl := range []int{1, 300, 86400} {
			cfg := Default()
			cfg.Coordination.TTLSeconds = ttl
			errs := cfg.Validate()

			for _, err := range errs {
				if err.Field == "coordination.ttl_seconds" {
					t.Errorf("ttl %d should be valid, got error: %v", ttl, err)
				}
			}
		}
	})

	t.Run("negative guard timeout is invalid", func(t *testing.T) {
		cfg := Default()
		cfg.Coordination.GuardTimeoutMs = -1
		errs := cfg.Validate()

		found := false
		for _, err := range errs {
			if err.Field == "coordination.guard_timeout_ms" {
				found = true
				break
			}
		}
		if !found {
			t.Error("expected error for negative guard timeout")
		}
	})

	t.Run("zero guard timeout is valid (single attempt)", func(t *testing.T) {
		cfg := Default()
		cfg.Coordination.GuardTimeoutMs = 0
		errs := cfg.Validate()

		for _, err := range errs {
			if err.Field == "coordination.guard_timeout_ms" {
				t.Errorf("zero guard timeout should be valid: %v", err)
			}
		}
	})

	t.Run("excessive guard timeout is invalid", func(t *testing.T) {
		cfg := Default()
		cfg.Coordination.GuardTimeoutMs = 60001
		errs := cfg.Validate()

		found := false
		for _, err := range errs {
			if err.Field == "coordination.guard_timeout_ms" {
				found = true
				break
			}
		}
		if !found {
			t.Error("expected error for excessive guard timeout")
		}
	})

	t.Run("valid backends", func(t *testing.T) {
		for _, backend := range []string{"file", "redis", ""} {
			cfg := Default()
			cfg.Coordination.Backend = backend
			if backend == "redis" {
				// The redis section is validated once the backend selects it
				cfg.Redis.Addr = "localhost:6379"
			}
			errs := cfg.Validate()

			for _, err := range errs {
				if err.Field == "coordination.backend" {
					t.Errorf("backend %q should be valid, got error: %v", backend, err)
				}
			}
		}
	})

	t.Run("invalid backend", func(t *testing.T) {
		cfg := Default()
		cfg.Coordination.Backend = "etcd"
		errs := cfg.Validate()

		found := false
		for _, err := range errs {
			if err.Field == "coordination.backend" {
				found = true
				break
			}
		}
		if !found {
			t.Error("expected error for invalid backend")
		}
	})

	t.Run("case sensitive backend", func(t *testing.T) {
		cfg := Default()
		cfg.Coordination.Backend = "FILE"
		errs := cfg.Validate()

		found := false
		for _, err := range errs {
			if err.Field == "coordination.backend" {
				found = true
				break
			}
		}
		if !found {
			t.Error("expected error for uppercase backend name")
		}
	})

	t.Run("empty dir is valid", func(t *testing.T) {
		cfg := Default()
		cfg.Coordination.Dir = ""
		errs := cfg.Validate()

		for _, err := range errs {
			if err.Field == "coordination.dir" {
				t.Errorf("empty dir should be valid: %v", err)
			}
		}
	})

	t.Run("valid absolute dir", func(t *testing.T) {
		cfg := Default()
		cfg.Coordination.Dir = "/var/run/lockstep"
		errs := cfg.Validate()

		for _, err := range errs {
			if err.Field == "coordination.dir" {
				t.Errorf("absolute dir should be valid: %v", err)
			}
		}
	})

	t.Run("valid tilde dir", func(t *testing.T) {
		cfg := Default()
		cfg.Coordination.Dir = "~/lockstep-coordination"
		errs := cfg.Validate()

		for _, err := range errs {
			if err.Field == "coordination.dir" {
				t.Errorf("tilde dir should be valid: %v", err)
			}
		}
	})

	t.Run("dir with null byte is invalid", func(t *testing.T) {
		cfg := Default()
		cfg.Coordination.Dir = "/path/with\x00null"
		errs := cfg.Validate()

		found := false
		for _, err := range errs {
			if err.Field == "coordination.dir" && strings.Contains(err.Message, "null") {
				found = true
				break
			}
		}
		if !found {
			t.Error("expected error for dir with null byte")
		}
	})

	t.Run("excessively long dir is invalid", func(t *testing.T) {
		cfg := Default()
		cfg.Coordination.Dir = "/" + strings.Repeat("a", 5000)
		errs := cfg.Validate()

		found := false
		for _, err := range errs {
			if err.Field == "coordination.dir" && strings.Contains(err.Message, "length") {
				found = true
				break
			}
		}
		if !found {
			t.Error("expected error for excessively long dir")
		}
	})
}

func TestConfig_Validate_Locking(t *testing.T) {
	t.Run("empty exclude list is valid", func(t *testing.T) {
		cfg := Default()
		cfg.Locking.Exclude = []string{}
		errs := cfg.Validate()

		for _, err := range errs {
			if strings.HasPrefix(err.Field, "locking.") {
				t.Errorf("empty exclude list should be valid: %v", err)
			}
		}
	})

	t.Run("valid glob patterns", func(t *testing.T) {
		cfg := Default()
		cfg.Locking.Exclude = []string{"*.md", "docs/**", "**/generated/*", "vendor/**"}
		errs := cfg.Validate()

		for _, err := range errs {
			if strings.HasPrefix(err.Field, "locking.") {
				t.Errorf("valid patterns should not error: %v", err)
			}
		}
	})

	t.Run("empty pattern is invalid", func(t *testing.T) {
		cfg := Default()
		cfg.Locking.Exclude = []string{"*.md", "", "docs/**"}
		errs := cfg.Validate()

		found := false
		for _, err := range errs {
			if strings.HasPrefix(err.Field, "locking.exclude[") && strings.Contains(err.Message, "cannot be empty") {
				found = true
				break
			}
		}
		if !found {
			t.Error("expected error for empty pattern")
		}
	})

	t.Run("whitespace-only pattern is invalid", func(t *testing.T) {
		cfg := Default()
		cfg.Locking.Exclude = []string{"   "}
		errs := cfg.Validate()

		found := false
		for _, err := range errs {
			if strings.HasPrefix(err.Field, "locking.exclude[") && strings.Contains(err.Message, "cannot be empty") {
				found = true
				break
			}
		}
		if !found {
			t.Error("expected error for whitespace-only pattern")
		}
	})

	t.Run("malformed glob pattern is invalid", func(t *testing.T) {
		cfg := Default()
		cfg.Locking.Exclude = []string{"src/[unclosed"}
		errs := cfg.Validate()

		found := false
		for _, err := range errs {
			if strings.HasPrefix(err.Field, "locking.exclude[") && strings.Contains(err.Message, "invalid glob") {
				found = true
				break
			}
		}
		if !found {
			t.Error("expected error for malformed glob pattern")
		}
	})

	t.Run("too many patterns is invalid", func(t *testing.T) {
		patterns := make([]string, 101)
		for i := range patterns {
			patterns[i] = fmt.Sprintf("dir%d/*", i)
		}

		cfg := Default()
		cfg.Locking.Exclude = patterns
		errs := cfg.Validate()

		found := false
		for _, err := range errs {
			if err.Field == "locking.exclude" && strings.Contains(err.Message, "exceeds maximum") {
				found = true
				break
			}
		}
		if !found {
			t.Error("expected error for too many patterns")
		}
	})
}

func TestConfig_Validate_Redis(t *testing.T) {
	t.Run("redis settings ignored for file backend", func(t *testing.T) {
		cfg := Default()
		cfg.Coordination.Backend = "file"
		cfg.Redis.Addr = ""
		cfg.Redis.DB = -1
		errs := cfg.Validate()

		for _, err := range errs {
			if strings.HasPrefix(err.Field, "redis.") {
				t.Errorf("redis settings should not be validated for file backend: %v", err)
			}
		}
	})

	t.Run("empty addr with redis backend is invalid", func(t *testing.T) {
		cfg := Default()
		cfg.Coordination.Backend = "redis"
		cfg.Redis.Addr = ""
		errs := cfg.Validate()

		found := false
		for _, err := range errs {
			if err.Field == "redis.addr" {
				found = true
				break
			}
		}
		if !found {
			t.Error("expected error for empty addr with redis backend")
		}
	})

	t.Run("negative db with redis backend is invalid", func(t *testing.T) {
		cfg := Default()
		cfg.Coordination.Backend = "redis"
		cfg.Redis.DB = -1
		errs := cfg.Validate()

		found := false
		for _, err := range errs {
			if err.Field == "redis.db" {
				found = true
				break
			}
		}
		if !found {
			t.Error("expected error for negative db")
		}
	})

	t.Run("valid redis backend config", func(t *testing.T) {
		cfg := Default()
		cfg.Coordination.Backend = "redis"
		cfg.Redis.Addr = "redis.internal:6379"
		cfg.Redis.DB = 2
		errs := cfg.Validate()

		for _, err := range errs {
			if strings.HasPrefix(err.Field, "redis.") {
				t.Errorf("valid redis config should not error: %v", err)
			}
		}
	})
}

func TestConfig_Validate_Logging(t *testing.T) {
	t.Run("valid log levels", func(t *testing.T) {
		for _, level := range []string{"debug", "info", "warn", "error", ""} {
			cfg := Default()
			cfg.Logging.Level = level
			errs := cfg.Validate()

			for _, err := range errs {
				if err.Field == "logging.level" {
					t.Errorf("level %q should be valid, got error: %v", level, err)
				}
			}
		}
	})

	t.Run("invalid log level", func(t *testing.T) {
		cfg := Default()
		cfg.Logging.Level = "invalid"
		errs := cfg.Validate()

		found := false
		for _, err := range errs {
			if err.Field == "logging.level" {
				found = true
				break
			}
		}
		if !found {
			t.Error("expected error for invalid log level")
		}
	})

	t.Run("case sensitive log level", func(t *testing.T) {
		cfg := Default()
		cfg.Logging.Level = "INFO"
		errs := cfg.Validate()

		found := false
		for _, err := range errs {
			if err.Field == "logging.level" {
				found = true
				break
			}
		}
		if !found {
			t.Error("expected error for uppercase log level")
		}
	})

	t.Run("max size must be positive", func(t *testing.T) {
		cfg := Default()
		cfg.Logging.MaxSizeMB = 0
		errs := cfg.Validate()

		found := false
		for _, err := range errs {
			if err.Field == "logging.max_size_mb" {
				found = true
				break
			}
		}
		if !found {
			t.Error("expected error for zero max size")
		}
	})

	t.Run("max size too large", func(t *testing.T) {
		cfg := Default()
		cfg.Logging.MaxSizeMB = 2000
		errs := cfg.Validate()

		found := false
		for _, err := range errs {
			if err.Field == "logging.max_size_mb" {
				found = true
				break
			}
		}
		if !found {
			t.Error("expected error for excessive max size")
		}
	})

	t.Run("negative max backups", func(t *testing.T) {
		cfg := Default()
		cfg.Logging.MaxBackups = -1
		errs := cfg.Validate()

		found := false
		for _, err := range errs {
			if err.Field == "logging.max_backups" {
				found = true
				break
			}
		}
		if !found {
			t.Error("expected error for negative max backups")
		}
	})

	t.Run("zero max backups is valid", func(t *testing.T) {
		cfg := Default()
		cfg.Logging.MaxBackups = 0
		errs := cfg.Validate()

		for _, err := range errs {
			if err.Field == "logging.max_backups" {
				t.Errorf("zero max backups should be valid: %v", err)
			}
		}
	})
}

func TestValidLogLevels(t *testing.T) {
	levels := ValidLogLevels()
	expected := []string{"debug", "info", "warn", "error"}

	if len(levels) != len(expected) {
		t.Errorf("ValidLogLevels() length = %d, want %d", len(levels), len(expected))
	}

	for i, level := range expected {
		if levels[i] != level {
			t.Errorf("ValidLogLevels()[%d] = %q, want %q", i, levels[i], level)
		}
	}
}

func TestConfig_Validate_MultipleErrors(t *testing.T) {
	cfg := Default()
	// Set multiple invalid values
	cfg.Coordination.TTLSeconds = 0
	cfg.Coordination.Backend = "etcd"
	cfg.Logging.Level = "invalid"
	cfg.Locking.Exclude = []string{"src/[unclosed"}

	errs := cfg.Validate()
	if len(errs) < 4 {
		t.Errorf("expected at least 4 errors, got %d: %v", len(errs), errs)
	}
}
