package filelock

import (
	"context"
	"path/filepath"
	"sort"
	"time"

	"github.com/gobwas/glob"

	"github.com/lockstep-dev/lockstep/internal/errors"
	"github.com/lockstep-dev/lockstep/internal/lockstore"
	"github.com/lockstep-dev/lockstep/internal/logging"
)

// Manager implements lease acquisition, renewal and release on top of
// a Store. It holds no lock state of its own: every invocation reads
// the store fresh, which fits the one-shot-process-per-hook execution
// model.
type Manager struct {
	store        lockstore.Store
	checkoutRoot string
	coordDir     string
	ttl          time.Duration
	excludes     []glob.Glob
	logger       *logging.Logger
	now          func() time.Time
}

// Option configures a Manager.
type Option func(*Manager)

// WithDefaultTTL sets the lease duration used when a call does not
// override it.
func WithDefaultTTL(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.ttl = d
		}
	}
}

// WithCoordinationDir marks the directory whose contents are exempt
// from locking, so coordination records never lock themselves.
func WithCoordinationDir(dir string) Option {
	return func(m *Manager) {
		m.coordDir = dir
	}
}

// WithExcludes sets compiled patterns for paths that are never locked.
// Patterns match the normalized (checkout-relative, slash-separated)
// path.
func WithExcludes(globs []glob.Glob) Option {
	return func(m *Manager) {
		m.excludes = globs
	}
}

// WithLogger sets the logger.
func WithLogger(logger *logging.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// WithClock injects the time source. Tests use this to drive expiry
// deterministically.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		m.now = now
	}
}

// NewManager creates a Manager bound to store. checkoutRoot anchors
// path normalization so the same logical file in sibling worktrees
// contends on one lease.
func NewManager(store lockstore.Store, checkoutRoot string, opts ...Option) *Manager {
	m := &Manager{
		store:        store,
		checkoutRoot: checkoutRoot,
		ttl:          DefaultTTL,
		logger:       logging.NopLogger(),
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Acquire attempts to take the lease on path for instanceID. An
// existing record whose lease has lapsed, or that cannot be parsed, is
// reclaimed in place; losing the reclaim race is retried once before
// reporting HeldByOther. The Manager never waits for a lease to free
// up. Storage failures degrade to an optimistic result so the caller's
// own work is never blocked.
func (m *Manager) Acquire(ctx context.Context, instanceID, path string, opts ...CallOption) (AcquireResult, error) {
	if instanceID == "" {
		return AcquireResult{}, errors.NewValidationError("instance id cannot be empty").WithField("instance_id")
	}
	key, normalized, abs, err := m.resolve(path)
	if err != nil {
		return AcquireResult{}, err
	}

	result := AcquireResult{Path: normalized, Key: key}
	if m.isExcluded(abs, normalized) {
		m.logger.Debug("path exempt from locking", "path", normalized)
		result.Status = StatusAcquired
		result.Holder = instanceID
		result.Excluded = true
		return result, nil
	}

	settings := m.callSettings(opts)
	now := m.now()
	rec := lockstore.Record{
		ResourceKey: key,
		Path:        normalized,
		Holder:      instanceID,
		AcquiredAt:  now,
		ExpiresAt:   now.Add(settings.ttl),
	}

	for attempt := 0; attempt < 2; attempt++ {
		err := m.store.Create(ctx, rec)
		if err == nil {
			result.Status = StatusAcquired
			result.Holder = instanceID
			result.ExpiresAt = rec.ExpiresAt
			m.logger.Debug("lease acquired",
				"path", normalized, "key", key, "expires_at", rec.ExpiresAt)
			return result, nil
		}
		if !errors.Is(err, errors.ErrRecordExists) {
			return m.acquireFallback(result, rec, err), nil
		}

		cur, rerr := m.store.Read(ctx, key)
		switch {
		case rerr == nil:
			if !cur.IsExpiredAt(now) {
				if cur.Holder == instanceID {
					// Re-acquiring a live lease of our own refreshes
					// its expiry instead of reporting it as taken.
					renewed := cur
					renewed.ExpiresAt = rec.ExpiresAt
					cerr := m.store.CompareAndSwap(ctx, key, instanceID, renewed)
					if cerr == nil {
						result.Status = StatusAcquired
						result.Holder = instanceID
						result.ExpiresAt = renewed.ExpiresAt
						m.logger.Debug("own lease refreshed",
							"path", normalized, "expires_at", renewed.ExpiresAt)
						return result, nil
					}
					if errors.Is(cerr, errors.ErrCASMismatch) || errors.Is(cerr, errors.ErrRecordNotFound) {
						continue
					}
					return m.acquireFallback(result, rec, cerr), nil
				}
				result.Status = StatusHeldByOther
				result.Holder = cur.Holder
				result.ExpiresAt = cur.ExpiresAt
				m.logger.Debug("lease held by other instance",
					"path", normalized, "holder", cur.Holder, "expires_at", cur.ExpiresAt)
				return result, nil
			}
			cerr := m.store.CompareAndSwap(ctx, key, cur.Holder, rec)
			if cerr == nil {
				result.Status = StatusAcquired
				result.Holder = instanceID
				result.ExpiresAt = rec.ExpiresAt
				result.Reclaimed = true
				m.logger.Info("expired lease reclaimed",
					"path", normalized, "previous_holder", cur.Holder)
				return result, nil
			}
			if errors.Is(cerr, errors.ErrCASMismatch) || errors.Is(cerr, errors.ErrRecordNotFound) {
				continue
			}
			return m.acquireFallback(result, rec, cerr), nil

		case errors.Is(rerr, errors.ErrRecordCorrupt):
			// The record cannot prove its holder; the store treats it
			// as reclaimable regardless of the expected holder.
			cerr := m.store.CompareAndSwap(ctx, key, "", rec)
			if cerr == nil {
				result.Status = StatusAcquired
				result.Holder = instanceID
				result.ExpiresAt = rec.ExpiresAt
				result.Reclaimed = true
				m.logger.Warn("unreadable lease record reclaimed", "path", normalized)
				return result, nil
			}
			if errors.Is(cerr, errors.ErrCASMismatch) || errors.Is(cerr, errors.ErrRecordNotFound) {
				continue
			}
			return m.acquireFallback(result, rec, cerr), nil

		case errors.Is(rerr, errors.ErrRecordNotFound):
			// Released between the create attempt and the read.
			continue

		default:
			return m.acquireFallback(result, rec, rerr), nil
		}
	}

	// Both attempts lost a race. Report whoever won it.
	result.Status = StatusHeldByOther
	if cur, rerr := m.store.Read(ctx, key); rerr == nil {
		result.Holder = cur.Holder
		result.ExpiresAt = cur.ExpiresAt
	}
	m.logger.Debug("acquire race lost", "path", normalized, "holder", result.Holder)
	return result, nil
}

// acquireFallback maps a storage failure to the soft outcome. A busy
// guard reports HeldByOther because another instance's record may
// exist; everything else degrades to optimistic success.
func (m *Manager) acquireFallback(result AcquireResult, rec lockstore.Record, err error) AcquireResult {
	if errors.Is(err, errors.ErrStoreBusy) {
		m.logger.Warn("store guard busy, treating lease as held",
			"path", result.Path, "error", err)
		result.Status = StatusHeldByOther
		return result
	}
	m.logger.Warn("store unavailable, degrading to pass-through",
		"path", result.Path, "error", err)
	result.Status = StatusAcquired
	result.Holder = rec.Holder
	result.ExpiresAt = rec.ExpiresAt
	result.Degraded = true
	return result
}

// Renew pushes the lease expiry forward to now+ttl for a lease held by
// instanceID. The expiry is absolute, never added to the previous
// value, so repeated renewals cannot drift. Renewing a lease held by
// another instance, or one with no record, is a silent NotHolder.
func (m *Manager) Renew(ctx context.Context, instanceID, path string, opts ...CallOption) (RenewResult, error) {
	if instanceID == "" {
		return RenewResult{}, errors.NewValidationError("instance id cannot be empty").WithField("instance_id")
	}
	key, normalized, _, err := m.resolve(path)
	if err != nil {
		return RenewResult{}, err
	}
	return m.renewKey(ctx, instanceID, key, normalized, m.callSettings(opts)), nil
}

// RenewRecord renews a lease already enumerated from the store, as the
// heartbeat sweep does. The record's own key and normalized path are
// used directly, so the caller's working directory plays no part.
func (m *Manager) RenewRecord(ctx context.Context, instanceID string, rec lockstore.Record, opts ...CallOption) (RenewResult, error) {
	if instanceID == "" {
		return RenewResult{}, errors.NewValidationError("instance id cannot be empty").WithField("instance_id")
	}
	return m.renewKey(ctx, instanceID, rec.ResourceKey, rec.Path, m.callSettings(opts)), nil
}

func (m *Manager) renewKey(ctx context.Context, instanceID, key, path string, settings callSettings) RenewResult {
	result := RenewResult{Path: path, Key: key}
	expiresAt := m.now().Add(settings.ttl)

	cur, rerr := m.store.Read(ctx, key)
	switch {
	case rerr == nil:
	case errors.Is(rerr, errors.ErrRecordNotFound), errors.Is(rerr, errors.ErrRecordCorrupt):
		result.Status = StatusNotHolder
		return result
	default:
		return m.renewFallback(result, expiresAt, rerr)
	}

	if cur.Holder != instanceID {
		result.Status = StatusNotHolder
		return result
	}

	renewed := cur
	renewed.ExpiresAt = expiresAt
	cerr := m.store.CompareAndSwap(ctx, key, instanceID, renewed)
	switch {
	case cerr == nil:
		result.Status = StatusRenewed
		result.ExpiresAt = expiresAt
		m.logger.Debug("lease renewed", "path", path, "expires_at", expiresAt)
		return result
	case errors.Is(cerr, errors.ErrCASMismatch), errors.Is(cerr, errors.ErrRecordNotFound):
		result.Status = StatusNotHolder
		return result
	default:
		return m.renewFallback(result, expiresAt, cerr)
	}
}

// renewFallback reports an optimistic renewal when the store cannot be
// consulted. Worst case the lease expires early and the next acquirer
// reclaims it.
func (m *Manager) renewFallback(result RenewResult, expiresAt time.Time, err error) RenewResult {
	m.logger.Warn("store unavailable during renewal",
		"path", result.Path, "error", err)
	result.Status = StatusRenewed
	result.ExpiresAt = expiresAt
	result.Degraded = true
	return result
}

// Release removes the lease on path if instanceID holds it. Releasing
// a lease held by someone else, or a path with no record, is an
// expected silent outcome, never an error.
func (m *Manager) Release(ctx context.Context, instanceID, path string) (ReleaseResult, error) {
	if instanceID == "" {
		return ReleaseResult{}, errors.NewValidationError("instance id cannot be empty").WithField("instance_id")
	}
	key, normalized, abs, err := m.resolve(path)
	if err != nil {
		return ReleaseResult{}, err
	}

	result := ReleaseResult{Path: normalized, Key: key}
	if m.isExcluded(abs, normalized) {
		result.Status = StatusReleased
		result.Excluded = true
		return result, nil
	}
	return m.deleteKey(ctx, instanceID, result), nil
}

// ReleaseRecord releases a lease already enumerated from the store, as
// the session-teardown sweep does.
func (m *Manager) ReleaseRecord(ctx context.Context, instanceID string, rec lockstore.Record) (ReleaseResult, error) {
	if instanceID == "" {
		return ReleaseResult{}, errors.NewValidationError("instance id cannot be empty").WithField("instance_id")
	}
	return m.deleteKey(ctx, instanceID, ReleaseResult{Path: rec.Path, Key: rec.ResourceKey}), nil
}

func (m *Manager) deleteKey(ctx context.Context, instanceID string, result ReleaseResult) ReleaseResult {
	derr := m.store.Delete(ctx, result.Key, instanceID)
	switch {
	case derr == nil:
		result.Status = StatusReleased
		m.logger.Debug("lease released", "path", result.Path, "key", result.Key)
	case errors.Is(derr, errors.ErrRecordNotFound):
		result.Status = StatusNotFound
	case errors.Is(derr, errors.ErrNotHolder):
		result.Status = StatusNotHolder
	default:
		m.logger.Warn("store unavailable during release",
			"path", result.Path, "error", derr)
		result.Status = StatusReleased
		result.Degraded = true
	}
	return result
}

// Held returns every lease recorded for instanceID, sorted by path.
// Expired-but-unreclaimed leases are included so a heartbeat can
// revive them.
func (m *Manager) Held(ctx context.Context, instanceID string) ([]lockstore.Record, error) {
	records, err := m.store.List(ctx)
	if err != nil {
		return nil, err
	}
	var held []lockstore.Record
	for _, rec := range records {
		if rec.Holder == instanceID {
			held = append(held, rec)
		}
	}
	sort.Slice(held, func(i, j int) bool { return held[i].Path < held[j].Path })
	return held, nil
}

// Leases returns every outstanding lease, sorted by path.
func (m *Manager) Leases(ctx context.Context) ([]lockstore.Record, error) {
	records, err := m.store.List(ctx)
	if err != nil {
		return nil, err
	}
	sort.Slice(records, func(i, j int) bool { return records[i].Path < records[j].Path })
	return records, nil
}

// Ping reports whether the underlying store is usable.
func (m *Manager) Ping(ctx context.Context) error {
	return m.store.Ping(ctx)
}

func (m *Manager) callSettings(opts []CallOption) callSettings {
	settings := callSettings{ttl: m.ttl}
	for _, opt := range opts {
		opt(&settings)
	}
	return settings
}

// resolve derives the store key, the normalized path and the cleaned
// absolute path for a caller-supplied path.
func (m *Manager) resolve(path string) (key, normalized, abs string, err error) {
	key, normalized, err = lockstore.Key(path, m.checkoutRoot)
	if err != nil {
		return "", "", "", err
	}
	abs, err = filepath.Abs(path)
	if err != nil {
		return "", "", "", errors.Wrapf(err, "cannot resolve path %s", path)
	}
	return key, normalized, abs, nil
}

// isExcluded reports whether a path is exempt from locking: anything
// under the coordination directory (self-deadlock guard) or matching a
// configured exclude pattern.
func (m *Manager) isExcluded(abs, normalized string) bool {
	if m.coordDir != "" {
		if rel, err := filepath.Rel(m.coordDir, abs); err == nil {
			if rel == "." || filepath.IsLocal(rel) {
				return true
			}
		}
	}
	for _, g := range m.excludes {
		if g.Match(normalized) {
			return true
		}
	}
	return false
}
