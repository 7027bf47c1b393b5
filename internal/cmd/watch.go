package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/lockstep-dev/lockstep/internal/tui"
	"github.com/lockstep-dev/lockstep/internal/watch"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch lease activity live",
	Long: `Follow lease activity as it happens. By default this opens a
full-screen view with the current lease table and a feed of acquire,
renew and release transitions; press q to leave it.

With --plain, one line per transition is printed instead, suitable for
logs and pipes.`,
	RunE: runWatch,
}

var watchPlain bool

func init() {
	rootCmd.AddCommand(watchCmd)
	watchCmd.Flags().BoolVar(&watchPlain, "plain", false, "print one line per transition instead of the full-screen view")
}

func runWatch(cmd *cobra.Command, args []string) error {
	hub, err := newHub()
	if err != nil {
		return err
	}
	defer func() { _ = hub.Close() }()

	w := watch.New(hub.Store(), watch.WithLogger(hub.Logger()))

	if watchPlain {
		return runWatchPlain(cmd, w)
	}

	app := tui.New(w, hub.Identity().ID, hub.CoordinationDir())
	return app.Run(cmd.Context())
}

// runWatchPlain streams transitions line by line until interrupted.
func runWatchPlain(cmd *cobra.Command, w *watch.Watcher) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := w.Start(ctx); err != nil {
		return err
	}
	defer w.Stop()

	for ev := range w.Events() {
		fmt.Println(formatTransition(ev))
	}
	return nil
}

func formatTransition(ev watch.Event) string {
	line := fmt.Sprintf("%s  %-8s  %s  holder=%s",
		ev.At.Format(time.RFC3339), ev.Kind, ev.Record.Path, ev.Record.Holder)
	if ev.Kind != watch.KindReleased {
		line += fmt.Sprintf("  expires=%s", ev.Record.ExpiresAt.Format(time.RFC3339))
	}
	return line
}
