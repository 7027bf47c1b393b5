package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/lockstep-dev/lockstep/internal/watch"
)

// tickMsg is sent periodically to refresh ages and expiry countdowns
type tickMsg time.Time

// leaseEventMsg carries one lease transition from the watcher
type leaseEventMsg struct {
	event watch.Event
}

// feedClosedMsg is sent when the watcher's event feed ends
type feedClosedMsg struct{}

// Commands

// tick returns a command that sends a tickMsg after a short delay.
// Ages and countdowns drift even when no lease changes hands, so the
// view redraws once a second regardless of feed activity.
func tick() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}
