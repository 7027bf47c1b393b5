package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Deploy the coordination store for this repository",
	Long: `Create the shared coordination directory and this checkout's
instance identity.

Until the directory exists every lock operation treats coordination as
not deployed and passes through without taking leases. init is the
explicit opt-in step, run once per repository.`,
	RunE: runInit,
}

func init() {
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	hub, err := newHub()
	if err != nil {
		return err
	}
	defer func() { _ = hub.Close() }()

	if err := os.MkdirAll(hub.CoordinationDir(), 0755); err != nil {
		return fmt.Errorf("failed to create coordination directory: %w", err)
	}

	fmt.Println("Lockstep initialized.")
	fmt.Printf("  Coordination directory: %s\n", hub.CoordinationDir())
	fmt.Printf("  Backend: %s\n", hub.Settings().Coordination.Backend)
	fmt.Printf("  Instance: %s\n", hub.Identity().ID)
	return nil
}
