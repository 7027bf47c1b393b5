package lockstore

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"github.com/lockstep-dev/lockstep/internal/errors"
)

const (
	// RecordSuffix is appended to the resource key to form a record
	// filename. Files without the suffix (the guard file, debug logs,
	// temp files) are invisible to List.
	RecordSuffix = ".json"

	// GuardFileName is the advisory lock file that serializes
	// multi-step mutations across processes sharing the directory.
	GuardFileName = ".guard"

	// guardRetryDelay is how often a blocked process re-attempts the
	// guard lock before its deadline expires.
	guardRetryDelay = 50 * time.Millisecond

	tempPattern = ".tmp-*"
)

// FS stores lease records as JSON files in a single flat directory.
//
// Single-step operations rely on filesystem atomicity (O_EXCL creation,
// rename replacement), so concurrent readers always observe a complete
// record or none. Multi-step operations (read-check-write) additionally
// hold an advisory flock on the guard file, bounded by the guard
// timeout so a crashed or wedged peer cannot block callers forever.
type FS struct {
	dir          string
	guardTimeout time.Duration

	// flock exclusion is per-process, so an in-process mutex keeps
	// goroutines of the same process from trampling the shared guard.
	mu    sync.Mutex
	guard *flock.Flock
}

// NewFS returns a store rooted at dir. The directory must already
// exist; a missing directory surfaces as ErrStoreUnavailable on every
// operation rather than being silently created.
func NewFS(dir string, guardTimeout time.Duration) *FS {
	return &FS{
		dir:          dir,
		guardTimeout: guardTimeout,
		guard:        flock.New(filepath.Join(dir, GuardFileName)),
	}
}

// Dir returns the directory holding the records.
func (s *FS) Dir() string {
	return s.dir
}

func (s *FS) recordPath(key string) string {
	return filepath.Join(s.dir, key+RecordSuffix)
}

// lockGuard acquires the cross-process guard, waiting at most the
// configured guard timeout. The returned release function must be
// called once the mutation is complete.
func (s *FS) lockGuard(ctx context.Context) (func(), error) {
	s.mu.Lock()

	ctx, cancel := context.WithTimeout(ctx, s.guardTimeout)
	defer cancel()

	locked, err := s.guard.TryLockContext(ctx, guardRetryDelay)
	if err != nil {
		s.mu.Unlock()
		if errors.Is(err, os.ErrNotExist) {
			return nil, s.unavailable("guard file: %v", err)
		}
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return nil, errors.Wrapf(errors.ErrStoreBusy,
				"guard not acquired within %s", s.guardTimeout)
		}
		return nil, s.unavailable("guard file: %v", err)
	}
	if !locked {
		s.mu.Unlock()
		return nil, errors.Wrapf(errors.ErrStoreBusy,
			"guard not acquired within %s", s.guardTimeout)
	}

	return func() {
		_ = s.guard.Unlock()
		s.mu.Unlock()
	}, nil
}

// Create admits a new record with O_EXCL semantics. The guard is held
// so that a reader racing the write cannot mistake a half-written file
// for a corrupt record and reclaim it mid-create.
func (s *FS) Create(ctx context.Context, rec Record) error {
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return errors.Wrap(err, "marshaling record")
	}

	release, err := s.lockGuard(ctx)
	if err != nil {
		return err
	}
	defer release()

	path := s.recordPath(rec.ResourceKey)
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		if os.IsExist(err) {
			return errors.Wrapf(errors.ErrRecordExists, "record %s", rec.ResourceKey)
		}
		return s.unavailable("creating record: %v", err)
	}

	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(path)
		return s.unavailable("writing record %s: %v", rec.ResourceKey, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return s.unavailable("closing record %s: %v", rec.ResourceKey, err)
	}
	return nil
}

// Read loads a record without taking the guard. Rename-based
// replacement guarantees a complete view of whichever version wins.
func (s *FS) Read(ctx context.Context, key string) (Record, error) {
	data, err := os.ReadFile(s.recordPath(key))
	if err != nil {
		if os.IsNotExist(err) {
			// Distinguish a missing record from a missing store.
			if _, statErr := os.Stat(s.dir); statErr != nil {
				return Record{}, s.unavailable("coordination directory: %v", statErr)
			}
			return Record{}, errors.Wrapf(errors.ErrRecordNotFound, "record %s", key)
		}
		return Record{}, s.unavailable("reading record %s: %v", key, err)
	}

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return Record{}, errors.Wrapf(errors.ErrRecordCorrupt, "record %s: %v", key, err)
	}
	if rec.Holder == "" || rec.ExpiresAt.IsZero() {
		return Record{}, errors.Wrapf(errors.ErrRecordCorrupt,
			"record %s missing holder or expiry", key)
	}
	return rec, nil
}

// CompareAndSwap replaces the record only while expectedHolder still
// owns it. The replacement is written to a temp file and renamed into
// place so readers never observe a partial record. A corrupt current
// record cannot prove any holder and is overwritten unconditionally.
func (s *FS) CompareAndSwap(ctx context.Context, key, expectedHolder string, rec Record) error {
	release, err := s.lockGuard(ctx)
	if err != nil {
		return err
	}
	defer release()

	cur, err := s.Read(ctx, key)
	switch {
	case err == nil:
		if cur.Holder != expectedHolder {
			return errors.Wrapf(errors.ErrCASMismatch,
				"record %s held by %s", key, cur.Holder)
		}
	case errors.Is(err, errors.ErrRecordCorrupt):
		// Reclaimable: fall through to the write.
	default:
		return err
	}

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return errors.Wrap(err, "marshaling record")
	}
	return s.atomicWrite(s.recordPath(key), data)
}

// Delete removes the record if holder still owns it. A corrupt record
// cannot prove ownership, so deleting one reports ErrNotHolder and
// leaves reclamation to the acquire path.
func (s *FS) Delete(ctx context.Context, key, holder string) error {
	release, err := s.lockGuard(ctx)
	if err != nil {
		return err
	}
	defer release()

	cur, err := s.Read(ctx, key)
	switch {
	case err == nil:
		if cur.Holder != holder {
			return errors.Wrapf(errors.ErrNotHolder,
				"record %s held by %s", key, cur.Holder)
		}
	case errors.Is(err, errors.ErrRecordCorrupt):
		return errors.Wrapf(errors.ErrNotHolder, "record %s is unreadable", key)
	default:
		return err
	}

	if err := os.Remove(s.recordPath(key)); err != nil {
		return s.unavailable("removing record %s: %v", key, err)
	}
	return nil
}

// List scans the directory for record files. Entries without the
// record suffix and records that vanish or fail to parse mid-scan are
// skipped; a partial view is more useful to status displays than an
// error.
func (s *FS) List(ctx context.Context) ([]Record, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, s.unavailable("coordination directory: %v", err)
		}
		return nil, s.unavailable("scanning coordination directory: %v", err)
	}

	var records []Record
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), RecordSuffix) {
			continue
		}
		key := strings.TrimSuffix(entry.Name(), RecordSuffix)
		rec, err := s.Read(ctx, key)
		if err != nil {
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}

// Ping reports whether the coordination directory is usable.
func (s *FS) Ping(ctx context.Context) error {
	info, err := os.Stat(s.dir)
	if err != nil {
		return s.unavailable("coordination directory: %v", err)
	}
	if !info.IsDir() {
		return s.unavailable("coordination path %s is not a directory", s.dir)
	}
	return nil
}

// atomicWrite lands data at path via a same-directory temp file and a
// rename, which is atomic on POSIX filesystems.
func (s *FS) atomicWrite(path string, data []byte) error {
	tmp, err := os.CreateTemp(s.dir, tempPattern)
	if err != nil {
		return s.unavailable("creating temp record: %v", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return s.unavailable("writing temp record: %v", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return s.unavailable("closing temp record: %v", err)
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		os.Remove(tmpName)
		return s.unavailable("setting record permissions: %v", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return s.unavailable("replacing record: %v", err)
	}
	return nil
}

func (s *FS) unavailable(format string, args ...any) error {
	return errors.NewStoreError(fmt.Sprintf(format, args...), errors.ErrStoreUnavailable).
		WithBackend("file").
		WithPath(s.dir)
}
