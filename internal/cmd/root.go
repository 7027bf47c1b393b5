// Package cmd implements the lockstep command-line interface.
package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/lockstep-dev/lockstep/internal/config"
	"github.com/lockstep-dev/lockstep/internal/coordination"
)

var rootCmd = &cobra.Command{
	Use:   "lockstep",
	Short: "Advisory file leases for parallel coding agents",
	Long: `Lockstep coordinates multiple coding agent instances working on one
repository. Each write takes a short-lived lease on the file being
changed; other instances see the lease and steer around the file until
it is released or expires. Locking is advisory: a foreign lease warns,
it never blocks.

Leases live in a coordination directory shared by every checkout and
worktree of the repository, or in a redis database when several hosts
are involved. Run 'lockstep init' once per repository to deploy it.`,
}

// instanceFlag is the --instance override shared by every command.
var instanceFlag string

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// SetVersionInfo records build-time version details on the root command.
func SetVersionInfo(version, commit, date string) {
	rootCmd.Version = fmt.Sprintf("%s (commit %s, built %s)", version, commit, date)
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringP("config", "c", "", "config file (default is $HOME/.config/lockstep/config.yaml)")
	rootCmd.PersistentFlags().StringVarP(&instanceFlag, "instance", "i", "", "instance ID override (default: LOCKSTEP_INSTANCE_ID, then the persisted identity)")
	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
}

func initConfig() {
	// Set defaults first so they're available even without a config file
	config.SetDefaults()

	if cfgFile := viper.GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".lockstep")
		viper.AddConfigPath(config.ConfigDir())
		viper.AddConfigPath("$HOME/.config/lockstep")
		viper.AddConfigPath(".")
	}

	viper.AutomaticEnv()
	viper.SetEnvPrefix("LOCKSTEP")
	// Replace dots with underscores for nested keys in env vars
	// e.g., LOCKSTEP_COORDINATION_BACKEND for coordination.backend
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Read config file if it exists (ignore error if not found)
	_ = viper.ReadInConfig()
}

// newHub wires the coordination stack for one command invocation. The
// caller owns the hub and must Close it.
func newHub() (*coordination.Hub, error) {
	settings, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return coordination.NewHub(
		coordination.Config{Settings: settings},
		coordination.WithInstance(instanceFlag),
	)
}
