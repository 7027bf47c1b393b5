package filelock

import (
	"time"
)

// DefaultTTL is the lease duration applied when no TTL is configured.
// Five minutes is long enough to cover a multi-file edit sequence and
// short enough that a crashed instance's leases clear quickly.
const DefaultTTL = 300 * time.Second

// Status is the outcome of a Manager operation. The zero value is
// StatusUnknown so an uninitialized result cannot read as success.
type Status int

const (
	StatusUnknown Status = iota

	// StatusAcquired means the caller now holds the lease.
	StatusAcquired

	// StatusHeldByOther means a live lease belongs to another instance.
	// The caller proceeds without the lock; locking is advisory.
	StatusHeldByOther

	// StatusRenewed means the caller's lease expiry was pushed forward.
	StatusRenewed

	// StatusReleased means the caller's lease was removed.
	StatusReleased

	// StatusNotHolder means the record belongs to someone else (or is
	// unreadable). Expected and silent on release and renew.
	StatusNotHolder

	// StatusNotFound means no record exists for the path.
	StatusNotFound
)

// String returns the status name used in logs and CLI output.
func (s Status) String() string {
	switch s {
	case StatusAcquired:
		return "acquired"
	case StatusHeldByOther:
		return "held-by-other"
	case StatusRenewed:
		return "renewed"
	case StatusReleased:
		return "released"
	case StatusNotHolder:
		return "not-holder"
	case StatusNotFound:
		return "not-found"
	default:
		return "unknown"
	}
}

// AcquireResult reports the outcome of an Acquire call.
type AcquireResult struct {
	Status Status

	// Path is the normalized resource path (checkout-relative when
	// inside the checkout).
	Path string

	// Key is the store key derived from Path.
	Key string

	// Holder is the instance holding the lease after the call: the
	// caller on success, the competing instance on HeldByOther.
	Holder string

	// ExpiresAt is when the current lease lapses.
	ExpiresAt time.Time

	// Reclaimed is set when an expired or unreadable record was
	// replaced rather than a fresh one created.
	Reclaimed bool

	// Degraded is set when the store could not be consulted and the
	// result is optimistic.
	Degraded bool

	// Excluded is set when the path is exempt from locking and no
	// record was created.
	Excluded bool
}

// RenewResult reports the outcome of a Renew call.
type RenewResult struct {
	Status    Status
	Path      string
	Key       string
	ExpiresAt time.Time
	Degraded  bool
}

// ReleaseResult reports the outcome of a Release call.
type ReleaseResult struct {
	Status   Status
	Path     string
	Key      string
	Degraded bool
	Excluded bool
}

// CallOption adjusts a single Acquire or Renew call.
type CallOption func(*callSettings)

type callSettings struct {
	ttl time.Duration
}

// WithTTL overrides the lease duration for this call.
func WithTTL(d time.Duration) CallOption {
	return func(s *callSettings) {
		if d > 0 {
			s.ttl = d
		}
	}
}
