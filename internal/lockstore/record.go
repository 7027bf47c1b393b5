// Package lockstore is the durable representation of outstanding leases.
//
// Every lease is one Record keyed by resource. All lock-state mutation goes
// through a Store's atomic primitives (Create, CompareAndSwap, Delete); no
// component may read-then-write around them. Two backends implement Store:
// a filesystem directory of JSON records (FS) and a Redis hash keyspace
// (Redis).
package lockstore

import (
	"time"
)

// Status is the derived lifecycle state of a resource. It is never stored;
// it is computed from the record (or its absence) against a clock reading.
type Status string

const (
	// StatusFree means no lease record exists for the resource.
	StatusFree Status = "free"
	// StatusHeld means a record exists and its expiry is in the future.
	StatusHeld Status = "held"
	// StatusExpired means a record exists but its expiry has passed; any
	// instance may reclaim it.
	StatusExpired Status = "expired"
)

// Record is one lease: a contended resource and its current holder.
type Record struct {
	// ResourceKey uniquely identifies the resource; see Key.
	ResourceKey string `json:"resource_key"`

	// Path is the normalized path the key was derived from, kept for
	// status output and logs.
	Path string `json:"path"`

	// Holder is the instance that owns the lease.
	Holder string `json:"holder_instance_id"`

	// AcquiredAt is when the current holder first took the lease. Renewal
	// extends ExpiresAt but leaves AcquiredAt untouched.
	AcquiredAt time.Time `json:"acquired_at"`

	// ExpiresAt is when the lease becomes reclaimable. Set to now+ttl at
	// acquire and renew time, never extended additively, so renewal cannot
	// drift.
	ExpiresAt time.Time `json:"expires_at"`
}

// IsExpiredAt reports whether the lease is reclaimable at the given instant.
// A lease expires the moment now reaches ExpiresAt.
func (r Record) IsExpiredAt(now time.Time) bool {
	return !now.Before(r.ExpiresAt)
}

// StatusAt returns the record's state at the given instant.
func (r Record) StatusAt(now time.Time) Status {
	if r.IsExpiredAt(now) {
		return StatusExpired
	}
	return StatusHeld
}

// Age returns how long the current holder has held the lease.
func (r Record) Age(now time.Time) time.Duration {
	return now.Sub(r.AcquiredAt)
}

// Remaining returns the time until expiry, or zero for an expired lease.
func (r Record) Remaining(now time.Time) time.Duration {
	if r.IsExpiredAt(now) {
		return 0
	}
	return r.ExpiresAt.Sub(now)
}
