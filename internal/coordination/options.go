package coordination

import (
	"github.com/lockstep-dev/lockstep/internal/lockstore"
	"github.com/lockstep-dev/lockstep/internal/logging"
)

// hubConfig holds optional configuration for a Hub.
type hubConfig struct {
	startDir         string
	instanceOverride string
	store            lockstore.Store
	logger           *logging.Logger
}

// Option configures a Hub.
type Option func(*hubConfig)

// WithStartDir anchors root discovery at dir instead of the process
// working directory.
func WithStartDir(dir string) Option {
	return func(c *hubConfig) { c.startDir = dir }
}

// WithInstance forces the coordination identity, taking precedence over
// the environment variable and the persisted instance file.
func WithInstance(id string) Option {
	return func(c *hubConfig) { c.instanceOverride = id }
}

// WithStore substitutes the lease store, bypassing backend selection.
func WithStore(s lockstore.Store) Option {
	return func(c *hubConfig) { c.store = s }
}

// WithLogger substitutes the debug logger.
func WithLogger(l *logging.Logger) Option {
	return func(c *hubConfig) { c.logger = l }
}
