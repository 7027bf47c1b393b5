// Package filelock provides lease-based advisory locking over shared files.
//
// When multiple agent instances work on one repository, possibly from
// different worktrees, they may edit the same file simultaneously. The
// filelock package coordinates them with time-limited leases: an
// instance acquires a lease before writing, heartbeats extend it while
// work continues, and a lease left behind by a crashed instance simply
// ages out and is reclaimed by the next acquirer.
//
// # Architecture
//
// The [Manager] implements acquire, renew and release on top of a
// [lockstore.Store], which supplies the atomic primitives (exclusive
// create and compare-and-swap). Expiry reclamation is demand-driven:
// there is no background reaper, Acquire itself reclaims a record whose
// lease has lapsed. Losing a reclaim race is retried once and then
// reported as held.
//
// # Degraded mode
//
// Locking is an aid, never a gate. If the store is unreachable the
// Manager degrades to an optimistic pass-through: Acquire and Release
// report success, with the Degraded flag set and a warning logged. A
// busy store guard is the one exception on acquire, which reports
// HeldByOther because another instance's record may exist.
//
// # Basic Usage
//
//	mgr := filelock.NewManager(store, checkoutRoot,
//		filelock.WithDefaultTTL(5*time.Minute))
//
//	// Take the lease before editing
//	res, err := mgr.Acquire(ctx, "agent-1", "pkg/foo.go")
//
//	// Keep it alive while working
//	_, err = mgr.Renew(ctx, "agent-1", "pkg/foo.go")
//
//	// Release when done; releasing a lease you do not hold is a
//	// silent no-op
//	_, err = mgr.Release(ctx, "agent-1", "pkg/foo.go")
//
// Paths under the coordination directory and paths matching the
// configured exclude patterns are never locked; operations on them
// succeed without touching the store.
package filelock
