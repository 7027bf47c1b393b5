package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var heartbeatCmd = &cobra.Command{
	Use:   "heartbeat",
	Short: "Renew every lease this instance holds",
	Long: `Run one renew-on-use beat: every lease this instance still holds gets
its expiry pushed forward by the TTL. The post-tool hook runs a beat
after each tool completion; the command exists for scripted use and for
agents without hook support.`,
	RunE: runHeartbeat,
}

func init() {
	rootCmd.AddCommand(heartbeatCmd)
}

func runHeartbeat(cmd *cobra.Command, args []string) error {
	hub, err := newHub()
	if err != nil {
		return err
	}
	defer func() { _ = hub.Close() }()

	renewed := hub.Heartbeat().Beat(cmd.Context())
	fmt.Printf("Renewed %d lease(s)\n", renewed)
	return nil
}
