package lockstore

import (
	"context"
)

// Store is the sole admission and mutation point for lease state. Its
// primitives are atomic across processes so two instances racing on one
// resource cannot both believe they won.
//
// Error contract (sentinels from the errors package, matched with
// errors.Is):
//
//   - Create: ErrRecordExists when any record for the key exists, corrupt
//     or not.
//   - Read: ErrRecordNotFound when absent; ErrRecordCorrupt when present
//     but unparseable.
//   - CompareAndSwap: ErrRecordNotFound when absent; ErrCASMismatch when
//     the current holder differs from expectedHolder. A corrupt record
//     cannot prove its holder and is treated as reclaimable: the swap
//     succeeds.
//   - Delete: ErrRecordNotFound when absent; ErrNotHolder when the current
//     holder differs from expectedHolder or the record is corrupt.
//   - Any operation: ErrStoreUnavailable when the backing storage is
//     missing or unreachable; ErrStoreBusy when the store guard could not
//     be taken within its bounded wait.
type Store interface {
	// Create admits a new lease record under rec.ResourceKey.
	Create(ctx context.Context, rec Record) error

	// Read returns the current record for key.
	Read(ctx context.Context, key string) (Record, error)

	// CompareAndSwap replaces the record for key if its current holder is
	// expectedHolder.
	CompareAndSwap(ctx context.Context, key, expectedHolder string, rec Record) error

	// Delete removes the record for key if its current holder is
	// expectedHolder.
	Delete(ctx context.Context, key, expectedHolder string) error

	// List returns all parseable records. Corrupt records are skipped, not
	// errors; they surface through Read on their own key.
	List(ctx context.Context) ([]Record, error)

	// Ping verifies the store is deployed and reachable.
	Ping(ctx context.Context) error
}
