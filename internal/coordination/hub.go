package coordination

import (
	"os"
	"sync"

	goredis "github.com/redis/go-redis/v9"

	"github.com/lockstep-dev/lockstep/internal/config"
	"github.com/lockstep-dev/lockstep/internal/errors"
	"github.com/lockstep-dev/lockstep/internal/filelock"
	"github.com/lockstep-dev/lockstep/internal/gitroot"
	"github.com/lockstep-dev/lockstep/internal/heartbeat"
	"github.com/lockstep-dev/lockstep/internal/hook"
	"github.com/lockstep-dev/lockstep/internal/instance"
	"github.com/lockstep-dev/lockstep/internal/lockstore"
	"github.com/lockstep-dev/lockstep/internal/logging"
)

// Config holds required inputs for creating a Hub.
type Config struct {
	// Settings is the loaded configuration. Required.
	Settings *config.Config
}

// Hub owns the wired components for a single invocation. Construction
// resolves everything up front; the accessors hand out components
// without further setup.
type Hub struct {
	settings *config.Config
	roots    gitroot.Roots
	identity *instance.Identity
	coordDir string
	logger   *logging.Logger
	store    lockstore.Store
	redis    *goredis.Client
	mgr      *filelock.Manager
	beat     *heartbeat.Service
	adapter  *hook.Adapter

	closeOnce sync.Once
	closeErr  error
}

// NewHub creates a Hub from cfg.
//
// Root discovery failure is not an error: outside any checkout the
// start directory anchors both roots, and the then-missing coordination
// directory degrades every lock operation to a pass-through instead of
// failing the invocation. An invalid instance override is an error.
func NewHub(cfg Config, opts ...Option) (*Hub, error) {
	if cfg.Settings == nil {
		return nil, errors.New("coordination: Settings is required")
	}

	hc := &hubConfig{}
	for _, opt := range opts {
		opt(hc)
	}

	startDir := hc.startDir
	if startDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, errors.Wrap(err, "coordination: resolving working directory")
		}
		startDir = wd
	}

	roots, rootsErr := gitroot.NewResolver().Discover(startDir)
	if rootsErr != nil {
		roots = gitroot.Roots{Checkout: startDir, Common: startDir}
	}

	identity, err := instance.Resolve(roots.Checkout, hc.instanceOverride)
	if err != nil {
		return nil, err
	}

	coordDir := cfg.Settings.Coordination.ResolveDir(roots.Common)

	logger := hc.logger
	if logger == nil {
		logger = buildLogger(cfg.Settings, coordDir)
	}
	logger = logger.WithInstance(identity.ID)
	if rootsErr != nil {
		logger.Debug("no enclosing checkout, coordinating from start directory", "dir", startDir)
	}

	store := hc.store
	var redisClient *goredis.Client
	if store == nil {
		if cfg.Settings.Coordination.Backend == "redis" {
			redisClient = goredis.NewClient(&goredis.Options{
				Addr:     cfg.Settings.Redis.Addr,
				Password: cfg.Settings.Redis.Password,
				DB:       cfg.Settings.Redis.DB,
			})
			store = lockstore.NewRedis(redisClient, cfg.Settings.Redis.Prefix)
		} else {
			store = lockstore.NewFS(coordDir, cfg.Settings.Coordination.GuardTimeout())
		}
	}

	mgr := filelock.NewManager(store, roots.Checkout,
		filelock.WithCoordinationDir(coordDir),
		filelock.WithDefaultTTL(cfg.Settings.Coordination.TTL()),
		filelock.WithExcludes(cfg.Settings.Locking.CompiledExcludes()),
		filelock.WithLogger(logger),
	)

	beat := heartbeat.NewService(mgr, identity.ID,
		heartbeat.WithTTL(cfg.Settings.Coordination.TTL()),
		heartbeat.WithLogger(logger),
	)

	adapter, err := hook.NewAdapter(hook.Config{
		Manager:    mgr,
		Heartbeat:  beat,
		InstanceID: identity.ID,
		Logger:     logger,
	})
	if err != nil {
		return nil, err
	}

	return &Hub{
		settings: cfg.Settings,
		roots:    roots,
		identity: identity,
		coordDir: coordDir,
		logger:   logger,
		store:    store,
		redis:    redisClient,
		mgr:      mgr,
		beat:     beat,
		adapter:  adapter,
	}, nil
}

// buildLogger builds the debug logger for coordDir. Hooks reserve
// stderr for their warning line, so a logger that cannot be set up
// becomes a no-op rather than a stderr fallback.
func buildLogger(settings *config.Config, coordDir string) *logging.Logger {
	if !settings.Logging.Enabled {
		return logging.NopLogger()
	}

	rc := logging.DefaultRotationConfig()
	if settings.Logging.MaxSizeMB > 0 {
		rc.MaxSizeMB = settings.Logging.MaxSizeMB
	}
	if settings.Logging.MaxBackups > 0 {
		rc.MaxBackups = settings.Logging.MaxBackups
	}

	logger, err := logging.NewLoggerWithRotation(coordDir, settings.Logging.Level, rc)
	if err != nil {
		return logging.NopLogger()
	}
	return logger
}

// Settings returns the configuration the Hub was built from.
func (h *Hub) Settings() *config.Config { return h.settings }

// Roots returns the discovered checkout and common roots.
func (h *Hub) Roots() gitroot.Roots { return h.roots }

// Identity returns the coordination identity for this invocation.
func (h *Hub) Identity() *instance.Identity { return h.identity }

// CoordinationDir returns the resolved coordination directory.
func (h *Hub) CoordinationDir() string { return h.coordDir }

// Logger returns the debug logger.
func (h *Hub) Logger() *logging.Logger { return h.logger }

// Store returns the lease store.
func (h *Hub) Store() lockstore.Store { return h.store }

// Manager returns the lease manager.
func (h *Hub) Manager() *filelock.Manager { return h.mgr }

// Heartbeat returns the renew-on-use service.
func (h *Hub) Heartbeat() *heartbeat.Service { return h.beat }

// Hook returns the tool-event adapter.
func (h *Hub) Hook() *hook.Adapter { return h.adapter }

// Close releases the logger and any backend client. It is idempotent.
func (h *Hub) Close() error {
	h.closeOnce.Do(func() {
		h.closeErr = h.logger.Close()
		if h.redis != nil {
			if err := h.redis.Close(); err != nil && h.closeErr == nil {
				h.closeErr = err
			}
		}
	})
	return h.closeErr
}
