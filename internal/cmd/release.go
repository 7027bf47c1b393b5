package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lockstep-dev/lockstep/internal/filelock"
)

var releaseCmd = &cobra.Command{
	Use:   "release [path]",
	Short: "Release this instance's lease on a file",
	Long: `Release this instance's lease on a file. Releasing a lease held by
another instance, or a path with no lease at all, is a reported no-op.

With --all, every lease this instance holds is released. Wire that into
session teardown so leases do not linger for the full TTL after an
agent exits.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRelease,
}

var releaseAll bool

func init() {
	rootCmd.AddCommand(releaseCmd)
	releaseCmd.Flags().BoolVar(&releaseAll, "all", false, "release every lease held by this instance")
}

func runRelease(cmd *cobra.Command, args []string) error {
	if releaseAll && len(args) > 0 {
		return fmt.Errorf("--all does not take a path")
	}
	if !releaseAll && len(args) == 0 {
		return fmt.Errorf("provide a path or --all")
	}

	hub, err := newHub()
	if err != nil {
		return err
	}
	defer func() { _ = hub.Close() }()

	if releaseAll {
		released := hub.Heartbeat().ReleaseAll(cmd.Context())
		fmt.Printf("Released %d lease(s)\n", released)
		return nil
	}

	res, err := hub.Manager().Release(cmd.Context(), hub.Identity().ID, args[0])
	if err != nil {
		return fmt.Errorf("failed to release lease: %w", err)
	}

	switch {
	case res.Excluded:
		fmt.Printf("%s is excluded from locking; nothing to release\n", res.Path)
	case res.Status == filelock.StatusNotFound:
		fmt.Printf("No lease on %s\n", res.Path)
	case res.Status == filelock.StatusNotHolder:
		fmt.Printf("Lease on %s belongs to another instance; left in place\n", res.Path)
	case res.Degraded:
		fmt.Printf("Coordination store unavailable; lease on %s will expire on its own\n", res.Path)
	default:
		fmt.Printf("Released %s\n", res.Path)
	}
	return nil
}
