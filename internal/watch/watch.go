// Package watch observes the lease store and emits lease transitions.
//
// The watcher is snapshot-driven: it lists the store, diffs against the
// previous snapshot and emits one Event per transition. On the file
// backend an fsnotify watch on the coordination directory triggers an
// immediate re-sync, so transitions surface within milliseconds; other
// backends rely on the poll interval alone.
package watch

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/lockstep-dev/lockstep/internal/errors"
	"github.com/lockstep-dev/lockstep/internal/lockstore"
	"github.com/lockstep-dev/lockstep/internal/logging"
)

const (
	// debounce coalesces the burst of fs events a single lease write
	// produces (temp file, rename, chmod) into one re-sync.
	debounce = 50 * time.Millisecond

	// defaultInterval is the poll cadence. For the file backend it is
	// only a safety net behind the fs events.
	defaultInterval = 2 * time.Second
)

// Kind classifies a lease transition.
type Kind int

const (
	// KindAcquired is a lease appearing, or changing hands on a reclaim.
	KindAcquired Kind = iota + 1
	// KindRenewed is a held lease's expiry moving forward.
	KindRenewed
	// KindReleased is a lease leaving the store.
	KindReleased
)

// String returns the event kind as a display word.
func (k Kind) String() string {
	switch k {
	case KindAcquired:
		return "acquired"
	case KindRenewed:
		return "renewed"
	case KindReleased:
		return "released"
	default:
		return "unknown"
	}
}

// Event is one observed lease transition.
type Event struct {
	Kind Kind

	// Record is the lease after the transition; for KindReleased it is
	// the last state before removal.
	Record lockstore.Record

	// At is when the watcher observed the transition, not when the
	// store wrote it.
	At time.Time
}

// Watcher turns store state changes into an event feed.
type Watcher struct {
	store    lockstore.Store
	dir      string // non-empty enables the fsnotify fast path
	interval time.Duration
	logger   *logging.Logger
	now      func() time.Time

	events chan Event
	known  map[string]lockstore.Record

	mu      sync.Mutex
	started bool
	stopCh  chan struct{}
	done    chan struct{}
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithInterval sets the poll cadence.
func WithInterval(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.interval = d
		}
	}
}

// WithLogger sets the logger for watch diagnostics.
func WithLogger(l *logging.Logger) Option {
	return func(w *Watcher) {
		if l != nil {
			w.logger = l
		}
	}
}

// WithClock sets the time source for event timestamps.
func WithClock(now func() time.Time) Option {
	return func(w *Watcher) {
		if now != nil {
			w.now = now
		}
	}
}

// New creates a Watcher over store. A file-backed store is watched with
// fsnotify; any other backend is polled at the interval.
func New(store lockstore.Store, opts ...Option) *Watcher {
	w := &Watcher{
		store:    store,
		interval: defaultInterval,
		logger:   logging.NopLogger(),
		now:      time.Now,
		events:   make(chan Event, 64),
		known:    make(map[string]lockstore.Record),
		stopCh:   make(chan struct{}),
		done:     make(chan struct{}),
	}
	if fs, ok := store.(*lockstore.FS); ok {
		w.dir = fs.Dir()
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Events returns the transition feed. It is closed when the watcher
// stops.
func (w *Watcher) Events() <-chan Event { return w.events }

// Snapshot returns a copy of the most recently observed leases, keyed
// by resource key. Taken right after Start it gives a consistent
// baseline for the event feed: replaying feed events over it is
// idempotent.
func (w *Watcher) Snapshot() map[string]lockstore.Record {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make(map[string]lockstore.Record, len(w.known))
	for key, rec := range w.known {
		out[key] = rec
	}
	return out
}

// Start seeds the snapshot and begins watching. The feed ends when ctx
// is canceled or Stop is called. Pre-existing leases seed the snapshot
// silently; they do not replay as events.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.started {
		return errors.New("watch: already started")
	}

	if recs, err := w.store.List(ctx); err == nil {
		for _, rec := range recs {
			w.known[rec.ResourceKey] = rec
		}
	}

	var fsw *fsnotify.Watcher
	if w.dir != "" {
		var err error
		fsw, err = fsnotify.NewWatcher()
		if err != nil {
			return errors.Wrap(err, "watch: creating fs watcher")
		}
		if err := fsw.Add(w.dir); err != nil {
			_ = fsw.Close()
			return errors.Wrapf(err, "watch: watching %s", w.dir)
		}
	}

	w.started = true
	go w.loop(ctx, fsw)
	return nil
}

// Stop ends the watch and waits for the feed to close. It is
// idempotent.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.started {
		w.mu.Unlock()
		return
	}
	select {
	case <-w.stopCh:
	default:
		close(w.stopCh)
	}
	w.mu.Unlock()

	<-w.done
}

func (w *Watcher) loop(ctx context.Context, fsw *fsnotify.Watcher) {
	defer close(w.done)
	defer close(w.events)
	if fsw != nil {
		defer func() { _ = fsw.Close() }()
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	resync := time.NewTimer(0)
	<-resync.C // drain so the timer only fires after a Reset

	var fsEvents <-chan fsnotify.Event
	var fsErrors <-chan error
	if fsw != nil {
		fsEvents = fsw.Events
		fsErrors = fsw.Errors
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return

		case ev, ok := <-fsEvents:
			if !ok {
				fsEvents = nil
				continue
			}
			if !relevant(ev) {
				continue
			}
			resync.Reset(debounce)

		case err, ok := <-fsErrors:
			if !ok {
				fsErrors = nil
				continue
			}
			w.logger.Warn("fs watch error", "error", err)

		case <-resync.C:
			w.sync(ctx)

		case <-ticker.C:
			w.sync(ctx)
		}
	}
}

// relevant reports whether a fs event can represent a lease change.
// Temp files, the guard file and the debug log never do.
func relevant(ev fsnotify.Event) bool {
	if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
		return false
	}
	return strings.HasSuffix(ev.Name, lockstore.RecordSuffix)
}

// sync diffs the store against the last snapshot and emits transitions.
func (w *Watcher) sync(ctx context.Context) {
	recs, err := w.store.List(ctx)
	if err != nil {
		// Transient store trouble is not a flurry of releases; keep
		// the snapshot and retry on the next tick.
		w.logger.Warn("lease list failed", "error", err)
		return
	}

	now := w.now()
	current := make(map[string]lockstore.Record, len(recs))
	for _, rec := range recs {
		current[rec.ResourceKey] = rec
	}

	var events []Event
	for key, rec := range current {
		prev, ok := w.known[key]
		switch {
		case !ok:
			events = append(events, Event{Kind: KindAcquired, Record: rec, At: now})
		case prev.Holder != rec.Holder:
			// A reclaim: the lease changed hands without ever leaving
			// the store.
			events = append(events, Event{Kind: KindAcquired, Record: rec, At: now})
		case rec.ExpiresAt.After(prev.ExpiresAt):
			events = append(events, Event{Kind: KindRenewed, Record: rec, At: now})
		}
	}
	for key, prev := range w.known {
		if _, ok := current[key]; !ok {
			events = append(events, Event{Kind: KindReleased, Record: prev, At: now})
		}
	}

	// Only the loop goroutine writes known; the lock is for Snapshot
	// readers.
	w.mu.Lock()
	w.known = current
	w.mu.Unlock()

	// A burst touching several paths lands in one sync; keep its order
	// stable.
	sort.Slice(events, func(i, j int) bool {
		if events[i].Record.Path != events[j].Record.Path {
			return events[i].Record.Path < events[j].Record.Path
		}
		return events[i].Kind < events[j].Kind
	})

	for _, ev := range events {
		select {
		case w.events <- ev:
		case <-w.stopCh:
			return
		case <-ctx.Done():
			return
		}
	}
}
