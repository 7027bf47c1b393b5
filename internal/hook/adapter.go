// Package hook adapts agent tool-lifecycle events to lock operations.
//
// The agent runtime invokes `lockstep hook pre-tool-use` before a tool
// runs and `lockstep hook post-tool-use` after it completes, piping a
// JSON tool-execution payload on stdin. The adapter acquires a lease
// before a file write, renews every held lease on each completion, and
// releases the lease once its write has landed. Whatever happens --
// contention, a malformed payload, an unavailable store -- the adapter
// answers {"continue": true}: coordination is advisory and never
// blocks the tool call it observes.
package hook

import (
	"context"
	"fmt"
	"io"

	"github.com/lockstep-dev/lockstep/internal/errors"
	"github.com/lockstep-dev/lockstep/internal/filelock"
	"github.com/lockstep-dev/lockstep/internal/heartbeat"
	"github.com/lockstep-dev/lockstep/internal/logging"
)

// Config holds the dependencies an Adapter needs.
type Config struct {
	// Manager performs lease operations. Required.
	Manager *filelock.Manager

	// Heartbeat renews held leases on tool completion. Required.
	Heartbeat *heartbeat.Service

	// InstanceID identifies this agent session. Required.
	InstanceID string

	// Logger receives diagnostics. Defaults to a no-op logger.
	Logger *logging.Logger
}

// Adapter turns tool events into lease operations.
type Adapter struct {
	mgr      *filelock.Manager
	beat     *heartbeat.Service
	instance string
	logger   *logging.Logger
}

// NewAdapter wires an Adapter from cfg.
func NewAdapter(cfg Config) (*Adapter, error) {
	if cfg.Manager == nil {
		return nil, errors.New("hook: Manager is required")
	}
	if cfg.Heartbeat == nil {
		return nil, errors.New("hook: Heartbeat is required")
	}
	if cfg.InstanceID == "" {
		return nil, errors.New("hook: InstanceID is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.NopLogger()
	}
	return &Adapter{
		mgr:      cfg.Manager,
		beat:     cfg.Heartbeat,
		instance: cfg.InstanceID,
		logger:   logger.WithComponent("hook"),
	}, nil
}

// Result is a hook invocation's report back to the agent runtime. It
// serializes to the response envelope; Continue is always true because
// the coordinator never aborts the host tool call.
type Result struct {
	Continue bool `json:"continue"`

	// Warning is a single line for stderr, empty when the invocation
	// needs no operator attention. Not part of the envelope.
	Warning string `json:"-"`
}

// Handle decodes one payload from r and dispatches it to the handler
// for event. Undecodable payloads and unknown event names are logged
// and answered with a plain continue.
func (a *Adapter) Handle(ctx context.Context, event string, r io.Reader) Result {
	ev, err := ParseToolEvent(r)
	if err != nil {
		a.logger.Warn("hook payload rejected", "event", event, "error", err)
		return Result{Continue: true}
	}
	switch event {
	case EventPreToolUse:
		return a.PreToolUse(ctx, ev)
	case EventPostToolUse:
		return a.PostToolUse(ctx, ev)
	default:
		herr := errors.NewHookError("no handler for event", errors.ErrUnknownEvent).WithEvent(event)
		a.logger.Warn("hook event ignored", "error", herr)
		return Result{Continue: true}
	}
}

// PreToolUse acquires the lease for the file a write-shaped tool is
// about to touch. Contention produces a warning line, never a refusal.
// Tools that do not write, and write events without a file target, are
// passed through untouched.
func (a *Adapter) PreToolUse(ctx context.Context, ev ToolEvent) Result {
	res := Result{Continue: true}
	if !ev.IsWrite() || ev.Path() == "" {
		return res
	}

	acq, err := a.mgr.Acquire(ctx, a.instance, ev.Path())
	if err != nil {
		a.logger.Warn("acquire skipped", "tool", ev.ToolName, "path", ev.Path(), "error", err)
		return res
	}
	if acq.Status == filelock.StatusHeldByOther {
		holder := acq.Holder
		if holder == "" {
			holder = "another instance"
		}
		res.Warning = fmt.Sprintf("lock: %s held by %s", acq.Path, holder)
	}
	a.logger.Debug("pre-tool-use handled",
		"tool", ev.ToolName, "path", acq.Path, "status", acq.Status.String(), "degraded", acq.Degraded)
	return res
}

// PostToolUse releases a lease once its write has landed, then renews
// everything this instance still holds. A failed write keeps its lease
// so the instance can retry under it; tools that do not write get the
// heartbeat only.
func (a *Adapter) PostToolUse(ctx context.Context, ev ToolEvent) Result {
	res := Result{Continue: true}
	if ev.IsWrite() && ev.Path() != "" && !ev.Failed() {
		rel, err := a.mgr.Release(ctx, a.instance, ev.Path())
		if err != nil {
			a.logger.Warn("release skipped", "tool", ev.ToolName, "path", ev.Path(), "error", err)
		} else {
			a.logger.Debug("post-tool-use released",
				"path", rel.Path, "status", rel.Status.String(), "degraded", rel.Degraded)
		}
	}
	a.beat.Beat(ctx)
	return res
}
