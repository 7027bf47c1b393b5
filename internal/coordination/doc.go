// Package coordination provides a Hub that wires the lockstep
// components together for a single invocation.
//
// Construction resolves, in order:
//
//   - the checkout and common roots (gitroot), falling back to the
//     start directory outside a checkout
//   - the instance identity (instance), honoring the --instance
//     override and LOCKSTEP_INSTANCE_ID
//   - the debug logger, writing to the coordination directory
//   - the lease store for the configured backend (file or redis)
//   - the lease manager, heartbeat service and hook adapter on top
//
// Usage:
//
//	hub, err := coordination.NewHub(coordination.Config{
//	    Settings: cfg,
//	}, coordination.WithInstance(flagInstance))
//	if err != nil {
//	    return err
//	}
//	defer hub.Close()
//
//	res, err := hub.Manager().Acquire(ctx, hub.Identity().ID, path)
//
// The Hub runs nothing in the background: lease renewal happens on
// tool completions (hook.Adapter), not on a timer, so one-shot hook
// processes stay cheap.
package coordination
