package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/lockstep-dev/lockstep/internal/filelock"
)

var renewCmd = &cobra.Command{
	Use:   "renew <path>",
	Short: "Push forward the expiry of a held lease",
	Long: `Extend this instance's lease on a file by one TTL from now. Renewal
only works on a lease the instance actually holds; anything else is a
reported no-op. Routine renewal is the heartbeat's job, this command
covers scripted and manual use.`,
	Args: cobra.ExactArgs(1),
	RunE: runRenew,
}

var renewTTL time.Duration

func init() {
	rootCmd.AddCommand(renewCmd)
	renewCmd.Flags().DurationVar(&renewTTL, "ttl", 0, "lease duration for this call (default: configured TTL)")
}

func runRenew(cmd *cobra.Command, args []string) error {
	hub, err := newHub()
	if err != nil {
		return err
	}
	defer func() { _ = hub.Close() }()

	var opts []filelock.CallOption
	if renewTTL > 0 {
		opts = append(opts, filelock.WithTTL(renewTTL))
	}

	res, err := hub.Manager().Renew(cmd.Context(), hub.Identity().ID, args[0], opts...)
	if err != nil {
		return fmt.Errorf("failed to renew lease: %w", err)
	}

	switch {
	case res.Status == filelock.StatusNotHolder:
		fmt.Printf("No lease held on %s by this instance\n", res.Path)
	case res.Degraded:
		fmt.Printf("Coordination store unavailable; assuming %s renewed (expires %s)\n", res.Path, res.ExpiresAt.Format(time.RFC3339))
	default:
		fmt.Printf("Renewed %s (expires %s)\n", res.Path, res.ExpiresAt.Format(time.RFC3339))
	}
	return nil
}
