package tui

import (
	"sort"
	"time"

	"github.com/lockstep-dev/lockstep/internal/lockstore"
	"github.com/lockstep-dev/lockstep/internal/watch"
)

// feedSize bounds the recent-activity entries kept in memory. The view
// shows as many of the newest as fit on screen.
const feedSize = 100

// Model holds the watch view state
type Model struct {
	// Identity and location, shown in the header. Leases held by
	// instanceID render highlighted.
	instanceID string
	dir        string

	// Live leases keyed by resource key, seeded from the watcher
	// snapshot and folded forward by feed events.
	leases map[string]lockstore.Record

	// Recent activity, oldest first.
	feed []watch.Event

	// UI state
	width    int
	height   int
	ready    bool
	quitting bool

	now func() time.Time
}

// NewModel creates a watch view over an initial lease snapshot.
func NewModel(instanceID, dir string, snapshot map[string]lockstore.Record) Model {
	leases := make(map[string]lockstore.Record, len(snapshot))
	for key, rec := range snapshot {
		leases[key] = rec
	}
	return Model{
		instanceID: instanceID,
		dir:        dir,
		leases:     leases,
		now:        time.Now,
	}
}

// applyEvent folds one lease transition into the table and the feed.
// Replaying an event the snapshot already reflects is harmless.
func (m *Model) applyEvent(ev watch.Event) {
	if m.leases == nil {
		m.leases = make(map[string]lockstore.Record)
	}
	switch ev.Kind {
	case watch.KindAcquired, watch.KindRenewed:
		m.leases[ev.Record.ResourceKey] = ev.Record
	case watch.KindReleased:
		delete(m.leases, ev.Record.ResourceKey)
	}

	m.feed = append(m.feed, ev)
	if len(m.feed) > feedSize {
		m.feed = m.feed[len(m.feed)-feedSize:]
	}
}

// sortedLeases returns the current leases ordered by path so the table
// stays stable between redraws.
func (m Model) sortedLeases() []lockstore.Record {
	recs := make([]lockstore.Record, 0, len(m.leases))
	for _, rec := range m.leases {
		recs = append(recs, rec)
	}
	sort.Slice(recs, func(i, j int) bool {
		return recs[i].Path < recs[j].Path
	})
	return recs
}

// leaseCount returns the number of live leases.
func (m Model) leaseCount() int {
	return len(m.leases)
}
