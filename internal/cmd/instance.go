package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lockstep-dev/lockstep/internal/instance"
)

var instanceCmd = &cobra.Command{
	Use:   "instance",
	Short: "Show this checkout's instance identity",
	Long: `Print the identity under which this checkout takes leases. Identity
is per-checkout: sibling worktrees coordinate as separate instances
while sharing one lease store.

With --regenerate the persisted identity is replaced by a fresh one.
Leases held under the old identity are not touched; they age out on
their own.`,
	RunE: runInstance,
}

var instanceRegenerate bool

func init() {
	rootCmd.AddCommand(instanceCmd)
	instanceCmd.Flags().BoolVar(&instanceRegenerate, "regenerate", false, "replace the persisted identity with a fresh one")
}

func runInstance(cmd *cobra.Command, args []string) error {
	hub, err := newHub()
	if err != nil {
		return err
	}
	defer func() { _ = hub.Close() }()

	if instanceRegenerate {
		ident, err := instance.Regenerate(hub.Roots().Checkout)
		if err != nil {
			return fmt.Errorf("failed to regenerate identity: %w", err)
		}
		fmt.Printf("New instance identity: %s\n", ident.ID)
		return nil
	}

	ident := hub.Identity()
	fmt.Printf("Instance: %s (from %s)\n", ident.ID, ident.Source)
	fmt.Printf("Identity file: %s\n", instance.FilePath(hub.Roots().Checkout))
	return nil
}
