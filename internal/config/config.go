package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gobwas/glob"
	"github.com/spf13/viper"
)

// Config represents the complete Lockstep configuration
type Config struct {
	Coordination CoordinationConfig `mapstructure:"coordination"`
	Locking      LockingConfig      `mapstructure:"locking"`
	Redis        RedisConfig        `mapstructure:"redis"`
	Logging      LoggingConfig      `mapstructure:"logging"`
}

// CoordinationConfig controls where and how lease records are kept
type CoordinationConfig struct {
	// Dir is the coordination directory holding lease records.
	// If empty, defaults to ".lockstep/coordination" relative to the
	// repository root (the primary checkout all worktrees share).
	// Can be an absolute path to coordinate across unrelated checkouts.
	// Supports ~ for home directory expansion.
	Dir string `mapstructure:"dir"`
	// TTLSeconds is the lease duration in seconds (default: 300).
	// A crashed holder's lease becomes reclaimable once this elapses.
	TTLSeconds int `mapstructure:"ttl_seconds"`
	// GuardTimeoutMs bounds how long an operation waits for the store
	// guard before giving up (default: 2000)
	GuardTimeoutMs int `mapstructure:"guard_timeout_ms"`
	// Backend selects the lease store: "file" or "redis" (default: "file")
	Backend string `mapstructure:"backend"`
}

// LockingConfig controls which paths participate in locking
type LockingConfig struct {
	// Exclude lists glob patterns for paths that are never locked.
	// Matching paths still heartbeat existing leases but no lease is
	// taken for them. Patterns match against the normalized relative path.
	// Examples: ["*.md", "docs/**", "**/generated/*"]
	Exclude []string `mapstructure:"exclude"`
}

// RedisConfig controls the redis lease store backend
type RedisConfig struct {
	// Addr is the redis server address (default: "localhost:6379")
	Addr string `mapstructure:"addr"`
	// Password authenticates against the redis server (default: none)
	Password string `mapstructure:"password"`
	// DB is the redis database number (default: 0)
	DB int `mapstructure:"db"`
	// Prefix namespaces all lease keys (default: "lockstep:")
	Prefix string `mapstructure:"prefix"`
}

// LoggingConfig controls debug logging behavior
type LoggingConfig struct {
	// Enabled controls whether debug logging is enabled (default: true)
	Enabled bool `mapstructure:"enabled"`
	// Level is the log level: "debug", "info", "warn", "error" (default: "info")
	Level string `mapstructure:"level"`
	// MaxSizeMB is the maximum log file size in megabytes before rotation (default: 10)
	MaxSizeMB int `mapstructure:"max_size_mb"`
	// MaxBackups is the number of backup log files to keep (default: 3)
	MaxBackups int `mapstructure:"max_backups"`
}

// CompiledExcludes compiles the exclude patterns with '/' as the
// separator, so "*.md" matches only at the top level while "docs/**"
// crosses directories. Patterns that fail to compile are skipped;
// Validate reports them.
func (c *LockingConfig) CompiledExcludes() []glob.Glob {
	globs := make([]glob.Glob, 0, len(c.Exclude))
	for _, pattern := range c.Exclude {
		g, err := glob.Compile(pattern, '/')
		if err != nil {
			continue
		}
		globs = append(globs, g)
	}
	return globs
}

// ResolveDir returns the resolved coordination directory path.
// If Dir is empty, it returns the default path relative to baseDir.
// If Dir starts with ~, it expands to the user's home directory.
// If Dir is a relative path, it's resolved relative to baseDir.
func (c *CoordinationConfig) ResolveDir(baseDir string) string {
	if c.Dir == "" {
		return filepath.Join(baseDir, ".lockstep", "coordination")
	}

	path := c.Dir

	// Expand ~ to home directory
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err == nil {
			path = filepath.Join(home, path[2:])
		}
	} else if path == "~" {
		home, err := os.UserHomeDir()
		if err == nil {
			path = home
		}
	}

	// If relative path, resolve relative to baseDir
	if !filepath.IsAbs(path) {
		path = filepath.Join(baseDir, path)
	}

	return path
}

// TTL returns the lease duration as a time.Duration
func (c *CoordinationConfig) TTL() time.Duration {
	return time.Duration(c.TTLSeconds) * time.Second
}

// GuardTimeout returns the guard wait bound as a time.Duration
func (c *CoordinationConfig) GuardTimeout() time.Duration {
	return time.Duration(c.GuardTimeoutMs) * time.Millisecond
}

// Default returns a Config with sensible default values
func Default() *Config {
	return &Config{
		Coordination: CoordinationConfig{
			Dir:            "", // Empty means use default: <repo root>/.lockstep/coordination
			TTLSeconds:     300,
			GuardTimeoutMs: 2000,
			Backend:        "file",
		},
		Locking: LockingConfig{
			Exclude: []string{},
		},
		Redis: RedisConfig{
			Addr:     "localhost:6379",
			Password: "",
			DB:       0,
			Prefix:   "lockstep:",
		},
		Logging: LoggingConfig{
			Enabled:    true,
			Level:      "info",
			MaxSizeMB:  10,
			MaxBackups: 3,
		},
	}
}

// SetDefaults registers default values with viper
func SetDefaults() {
	defaults := Default()

	// Coordination defaults
	viper.SetDefault("coordination.dir", defaults.Coordination.Dir)
	viper.SetDefault("coordination.ttl_seconds", defaults.Coordination.TTLSeconds)
	viper.SetDefault("coordination.guard_timeout_ms", defaults.Coordination.GuardTimeoutMs)
	viper.SetDefault("coordination.backend", defaults.Coordination.Backend)

	// Locking defaults
	viper.SetDefault("locking.exclude", defaults.Locking.Exclude)

	// Redis defaults
	viper.SetDefault("redis.addr", defaults.Redis.Addr)
	viper.SetDefault("redis.password", defaults.Redis.Password)
	viper.SetDefault("redis.db", defaults.Redis.DB)
	viper.SetDefault("redis.prefix", defaults.Redis.Prefix)

	// Logging defaults
	viper.SetDefault("logging.enabled", defaults.Logging.Enabled)
	viper.SetDefault("logging.level", defaults.Logging.Level)
	viper.SetDefault("logging.max_size_mb", defaults.Logging.MaxSizeMB)
	viper.SetDefault("logging.max_backups", defaults.Logging.MaxBackups)
}

// Load reads the configuration from viper into a Config struct and validates it
func Load() (*Config, error) {
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	// Validate the configuration
	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, ValidationErrors(errs)
	}

	return &cfg, nil
}

// Get returns the current configuration (convenience function)
func Get() *Config {
	cfg, err := Load()
	if err != nil {
		// Fall back to defaults if unmarshaling fails
		return Default()
	}
	return cfg
}

// ConfigDir returns the path to the user's config directory
func ConfigDir() string {
	// Check XDG_CONFIG_HOME first
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "lockstep")
	}
	// Fall back to ~/.config/lockstep
	home, err := os.UserHomeDir()
	if err != nil {
		return ".lockstep"
	}
	return filepath.Join(home, ".config", "lockstep")
}

// ConfigFile returns the path to the config file
func ConfigFile() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}

// ValidBackends returns the list of valid lease store backends
func ValidBackends() []string {
	return []string{"file", "redis"}
}

// IsValidBackend checks if the given backend is valid
func IsValidBackend(backend string) bool {
	for _, valid := range ValidBackends() {
		if backend == valid {
			return true
		}
	}
	return false
}
