// Package internal contains integration tests that verify the packages
// compose correctly: several instances coordinating through one store,
// the hook flow end to end, and the watcher feed over real store
// activity.
package internal

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/lockstep-dev/lockstep/internal/filelock"
	"github.com/lockstep-dev/lockstep/internal/heartbeat"
	"github.com/lockstep-dev/lockstep/internal/hook"
	"github.com/lockstep-dev/lockstep/internal/lockstore"
	"github.com/lockstep-dev/lockstep/internal/watch"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock(start time.Time) *fakeClock {
	return &fakeClock{t: start}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

var integrationStart = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// twoWorktrees builds two instances that share one store but anchor
// path normalization at different checkout roots, the sibling-worktree
// layout lockstep exists for.
func twoWorktrees(t *testing.T) (alice, bob *filelock.Manager, wtA, wtB string, clock *fakeClock) {
	t.Helper()

	base := t.TempDir()
	coordDir := filepath.Join(base, "coordination")
	if err := os.MkdirAll(coordDir, 0755); err != nil {
		t.Fatalf("creating coordination dir: %v", err)
	}
	store := lockstore.NewFS(coordDir, 2*time.Second)
	clock = newFakeClock(integrationStart)

	wtA = filepath.Join(base, "wt-a")
	wtB = filepath.Join(base, "wt-b")
	alice = filelock.NewManager(store, wtA, filelock.WithClock(clock.Now))
	bob = filelock.NewManager(store, wtB, filelock.WithClock(clock.Now))
	return alice, bob, wtA, wtB, clock
}

func TestWorktreesContendOnOneLease(t *testing.T) {
	alice, bob, wtA, wtB, clock := twoWorktrees(t)
	ctx := context.Background()

	// The same logical file in either worktree is one resource.
	res, err := alice.Acquire(ctx, "agent-alice", filepath.Join(wtA, "src/app.py"))
	if err != nil {
		t.Fatalf("alice acquire: %v", err)
	}
	if res.Status != filelock.StatusAcquired {
		t.Fatalf("alice acquire status = %v, want acquired", res.Status)
	}

	res, err = bob.Acquire(ctx, "agent-bob", filepath.Join(wtB, "src/app.py"))
	if err != nil {
		t.Fatalf("bob acquire: %v", err)
	}
	if res.Status != filelock.StatusHeldByOther || res.Holder != "agent-alice" {
		t.Fatalf("bob acquire = %v holder %q, want held-by-other by agent-alice", res.Status, res.Holder)
	}

	// A different file is free.
	if res, _ := bob.Acquire(ctx, "agent-bob", filepath.Join(wtB, "src/db.py")); res.Status != filelock.StatusAcquired {
		t.Fatalf("bob acquire on free file = %v, want acquired", res.Status)
	}

	// Release frees the contested file for bob.
	if _, err := alice.Release(ctx, "agent-alice", filepath.Join(wtA, "src/app.py")); err != nil {
		t.Fatalf("alice release: %v", err)
	}
	if res, _ := bob.Acquire(ctx, "agent-bob", filepath.Join(wtB, "src/app.py")); res.Status != filelock.StatusAcquired {
		t.Fatalf("bob acquire after release = %v, want acquired", res.Status)
	}

	// Expired leases are reclaimed in place, no reaper process needed.
	clock.Advance(filelock.DefaultTTL + time.Second)
	res, err = alice.Acquire(ctx, "agent-alice", filepath.Join(wtA, "src/app.py"))
	if err != nil {
		t.Fatalf("alice reclaim: %v", err)
	}
	if res.Status != filelock.StatusAcquired || !res.Reclaimed {
		t.Fatalf("alice reclaim = %v reclaimed=%v, want acquired reclaimed", res.Status, res.Reclaimed)
	}
}

func TestHeartbeatKeepsLeasesAhead(t *testing.T) {
	alice, bob, wtA, wtB, clock := twoWorktrees(t)
	ctx := context.Background()

	beat := heartbeat.NewService(alice, "agent-alice")
	for _, f := range []string{"src/a.py", "src/b.py"} {
		if res, _ := alice.Acquire(ctx, "agent-alice", filepath.Join(wtA, f)); res.Status != filelock.StatusAcquired {
			t.Fatalf("acquire %s = %v, want acquired", f, res.Status)
		}
	}

	// Two near-TTL waits with a beat between must keep both leases
	// out of bob's reach.
	clock.Advance(filelock.DefaultTTL - time.Second)
	if renewed := beat.Beat(ctx); renewed != 2 {
		t.Fatalf("beat renewed %d leases, want 2", renewed)
	}
	clock.Advance(filelock.DefaultTTL - time.Second)

	if res, _ := bob.Acquire(ctx, "agent-bob", filepath.Join(wtB, "src/a.py")); res.Status != filelock.StatusHeldByOther {
		t.Fatalf("bob acquire after beat = %v, want held-by-other", res.Status)
	}

	// Teardown hands everything over at once.
	if released := beat.ReleaseAll(ctx); released != 2 {
		t.Fatalf("ReleaseAll released %d, want 2", released)
	}
	if res, _ := bob.Acquire(ctx, "agent-bob", filepath.Join(wtB, "src/a.py")); res.Status != filelock.StatusAcquired {
		t.Fatalf("bob acquire after teardown = %v, want acquired", res.Status)
	}
}

func TestHookFlowAcrossInstances(t *testing.T) {
	alice, bob, wtA, wtB, _ := twoWorktrees(t)
	ctx := context.Background()

	aliceHook, err := hook.NewAdapter(hook.Config{
		Manager:    alice,
		Heartbeat:  heartbeat.NewService(alice, "agent-alice"),
		InstanceID: "agent-alice",
	})
	if err != nil {
		t.Fatalf("alice adapter: %v", err)
	}
	bobHook, err := hook.NewAdapter(hook.Config{
		Manager:    bob,
		Heartbeat:  heartbeat.NewService(bob, "agent-bob"),
		InstanceID: "agent-bob",
	})
	if err != nil {
		t.Fatalf("bob adapter: %v", err)
	}

	pre := func(path string) string {
		return `{"tool_name":"Write","tool_input":{"file_path":` + quoteJSON(path) + `}}`
	}

	// Alice's write takes the lease.
	res := aliceHook.Handle(ctx, hook.EventPreToolUse, strings.NewReader(pre(filepath.Join(wtA, "src/app.py"))))
	if !res.Continue || res.Warning != "" {
		t.Fatalf("alice pre = %+v, want silent continue", res)
	}

	// Bob's write to the same logical file continues with a warning.
	res = bobHook.Handle(ctx, hook.EventPreToolUse, strings.NewReader(pre(filepath.Join(wtB, "src/app.py"))))
	if !res.Continue {
		t.Fatal("a foreign lease must never block")
	}
	if !strings.Contains(res.Warning, "agent-alice") {
		t.Fatalf("bob's warning = %q, want the holder named", res.Warning)
	}

	// Alice's completed write releases; bob's next attempt is silent.
	res = aliceHook.Handle(ctx, hook.EventPostToolUse, strings.NewReader(pre(filepath.Join(wtA, "src/app.py"))))
	if !res.Continue {
		t.Fatalf("alice post = %+v, want continue", res)
	}
	res = bobHook.Handle(ctx, hook.EventPreToolUse, strings.NewReader(pre(filepath.Join(wtB, "src/app.py"))))
	if !res.Continue || res.Warning != "" {
		t.Fatalf("bob pre after release = %+v, want silent continue", res)
	}
}

func TestWatcherFollowsStoreActivity(t *testing.T) {
	base := t.TempDir()
	coordDir := filepath.Join(base, "coordination")
	if err := os.MkdirAll(coordDir, 0755); err != nil {
		t.Fatalf("creating coordination dir: %v", err)
	}
	store := lockstore.NewFS(coordDir, 2*time.Second)
	mgr := filelock.NewManager(store, filepath.Join(base, "wt-a"))

	ctx := context.Background()
	if res, _ := mgr.Acquire(ctx, "agent-alice", filepath.Join(base, "wt-a", "src/seeded.py")); res.Status != filelock.StatusAcquired {
		t.Fatal("seed acquire failed")
	}

	w := watch.New(store, watch.WithInterval(50*time.Millisecond))
	if err := w.Start(ctx); err != nil {
		t.Fatalf("watcher start: %v", err)
	}
	defer w.Stop()

	// Pre-start state arrives in the snapshot, not the feed.
	if snap := w.Snapshot(); len(snap) != 1 {
		t.Fatalf("snapshot has %d leases, want 1", len(snap))
	}

	if res, _ := mgr.Acquire(ctx, "agent-alice", filepath.Join(base, "wt-a", "src/live.py")); res.Status != filelock.StatusAcquired {
		t.Fatal("live acquire failed")
	}
	ev := nextEvent(t, w)
	if ev.Kind != watch.KindAcquired || ev.Record.Path != "src/live.py" {
		t.Fatalf("event = %v %q, want acquired src/live.py", ev.Kind, ev.Record.Path)
	}

	if _, err := mgr.Release(ctx, "agent-alice", filepath.Join(base, "wt-a", "src/live.py")); err != nil {
		t.Fatalf("release: %v", err)
	}
	ev = nextEvent(t, w)
	if ev.Kind != watch.KindReleased || ev.Record.Path != "src/live.py" {
		t.Fatalf("event = %v %q, want released src/live.py", ev.Kind, ev.Record.Path)
	}
}

func nextEvent(t *testing.T, w *watch.Watcher) watch.Event {
	t.Helper()
	select {
	case ev, ok := <-w.Events():
		if !ok {
			t.Fatal("event feed closed early")
		}
		return ev
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for a watcher event")
	}
	return watch.Event{}
}

func quoteJSON(s string) string {
	return `"` + strings.ReplaceAll(s, `\`, `\\`) + `"`
}
