package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lockstep-dev/lockstep/internal/hook"
)

var hookCmd = &cobra.Command{
	Use:   "hook",
	Short: "Handle agent tool lifecycle events",
	Long: `Handle a tool lifecycle event delivered on stdin. These subcommands
are wired into the agent's hook configuration and are not meant for
interactive use.

Each invocation reads the tool event JSON from stdin, answers
{"continue": true} on stdout and exits zero no matter what: a
coordination problem must never block the host tool. At most one
warning line goes to stderr when a write touches a file leased by
another instance.`,
}

var hookPreToolUseCmd = &cobra.Command{
	Use:   "pre-tool-use",
	Short: "Acquire the lease for an impending write",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runHookEvent(cmd, hook.EventPreToolUse)
	},
}

var hookPostToolUseCmd = &cobra.Command{
	Use:   "post-tool-use",
	Short: "Release after a completed write, then heartbeat",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runHookEvent(cmd, hook.EventPostToolUse)
	},
}

func init() {
	rootCmd.AddCommand(hookCmd)
	hookCmd.AddCommand(hookPreToolUseCmd)
	hookCmd.AddCommand(hookPostToolUseCmd)
}

// runHookEvent runs one hook invocation. It never returns an error:
// whatever went wrong, the host tool gets its envelope and a zero exit.
func runHookEvent(cmd *cobra.Command, event string) error {
	res := hook.Result{Continue: true}

	hub, err := newHub()
	if err == nil {
		defer func() { _ = hub.Close() }()
		res = hub.Hook().Handle(cmd.Context(), event, cmd.InOrStdin())
	}

	if res.Warning != "" {
		fmt.Fprintln(cmd.ErrOrStderr(), res.Warning)
	}
	_ = json.NewEncoder(cmd.OutOrStdout()).Encode(res)
	return nil
}
