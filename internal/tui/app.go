// Package tui provides the full-screen live view for lease activity.
// It renders the current lease table plus a scrolling feed of acquire,
// renew, and release transitions observed by the watch package.
package tui

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/lockstep-dev/lockstep/internal/watch"
)

// App wraps the Bubbletea program around a lease watcher
type App struct {
	program    *tea.Program
	watcher    *watch.Watcher
	instanceID string
	dir        string
}

// New creates a new watch application. The watcher must not be started
// yet; Run owns its lifecycle.
func New(w *watch.Watcher, instanceID, dir string) *App {
	return &App{
		watcher:    w,
		instanceID: instanceID,
		dir:        dir,
	}
}

// Run starts the watcher and the TUI and blocks until the user quits
// or ctx is canceled.
func (a *App) Run(ctx context.Context) error {
	if err := a.watcher.Start(ctx); err != nil {
		return err
	}
	defer a.watcher.Stop()

	// Seed the table after Start so the snapshot and the feed line up.
	model := NewModel(a.instanceID, a.dir, a.watcher.Snapshot())

	a.program = tea.NewProgram(
		model,
		tea.WithAltScreen(),
	)

	// Set up signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	go func() {
		<-sigChan
		if a.program != nil {
			a.program.Send(tea.Quit())
		}
	}()

	// Pump watcher events into the program. The feed closes when the
	// watcher stops, which also covers ctx cancellation.
	go func() {
		for ev := range a.watcher.Events() {
			a.program.Send(leaseEventMsg{event: ev})
		}
		a.program.Send(feedClosedMsg{})
	}()

	_, err := a.program.Run()

	signal.Stop(sigChan)

	return err
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return tick()
}

// Update handles messages and updates the model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeypress(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		return m, nil

	case tickMsg:
		// Nothing to recompute; ages and countdowns derive from the
		// clock at render time.
		return m, tick()

	case leaseEventMsg:
		m.applyEvent(msg.event)
		return m, nil

	case feedClosedMsg:
		m.quitting = true
		return m, tea.Quit
	}

	return m, nil
}

// handleKeypress handles key events
func (m Model) handleKeypress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		m.quitting = true
		return m, tea.Quit
	}
	return m, nil
}
