// Package heartbeat keeps an instance's leases alive between tool
// invocations. There is no daemon process: a beat is piggybacked on
// each tool completion and renews every lease the instance currently
// holds. An instance that goes silent stops beating, and its leases
// age out on their own.
package heartbeat

import (
	"context"
	"time"

	"github.com/lockstep-dev/lockstep/internal/filelock"
	"github.com/lockstep-dev/lockstep/internal/logging"
)

// Service renews and releases leases in bulk for one instance.
type Service struct {
	mgr        *filelock.Manager
	instanceID string
	ttl        time.Duration
	logger     *logging.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithTTL sets the lease duration applied by each beat. Zero keeps the
// manager's default.
func WithTTL(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.ttl = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *logging.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// NewService creates a Service renewing leases held by instanceID.
func NewService(mgr *filelock.Manager, instanceID string, opts ...Option) *Service {
	s := &Service{
		mgr:        mgr,
		instanceID: instanceID,
		logger:     logging.NopLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Beat renews every lease held by the instance, including expired ones
// that nobody has reclaimed yet, and returns how many were renewed.
// Holding nothing is a cheap no-op. A store failure renews nothing and
// stays quiet; the acquire path is where degradation gets surfaced.
func (s *Service) Beat(ctx context.Context) int {
	held, err := s.mgr.Held(ctx, s.instanceID)
	if err != nil {
		s.logger.Warn("heartbeat skipped, store unavailable", "error", err)
		return 0
	}
	if len(held) == 0 {
		return 0
	}

	var opts []filelock.CallOption
	if s.ttl > 0 {
		opts = append(opts, filelock.WithTTL(s.ttl))
	}

	renewed := 0
	for _, rec := range held {
		res, err := s.mgr.RenewRecord(ctx, s.instanceID, rec, opts...)
		if err != nil {
			continue
		}
		if res.Status == filelock.StatusRenewed && !res.Degraded {
			renewed++
		}
	}
	s.logger.Debug("heartbeat complete", "held", len(held), "renewed", renewed)
	return renewed
}

// ReleaseAll removes every lease held by the instance and returns how
// many were released. Used at session teardown so a clean exit leaves
// nothing behind for others to wait out.
func (s *Service) ReleaseAll(ctx context.Context) int {
	held, err := s.mgr.Held(ctx, s.instanceID)
	if err != nil {
		s.logger.Warn("release-all skipped, store unavailable", "error", err)
		return 0
	}

	released := 0
	for _, rec := range held {
		res, err := s.mgr.ReleaseRecord(ctx, s.instanceID, rec)
		if err != nil {
			continue
		}
		if res.Status == filelock.StatusReleased && !res.Degraded {
			released++
		}
	}
	if released > 0 {
		s.logger.Info("released held leases", "count", released)
	}
	return released
}
