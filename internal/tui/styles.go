package tui

import "github.com/charmbracelet/lipgloss"

var (
	// Colors
	primaryColor   = lipgloss.Color("#A78BFA") // Purple
	secondaryColor = lipgloss.Color("#10B981") // Green
	warningColor   = lipgloss.Color("#F59E0B") // Amber
	errorColor     = lipgloss.Color("#F87171") // Red
	mutedColor     = lipgloss.Color("#9CA3AF") // Gray
	textColor      = lipgloss.Color("#F9FAFB") // Light text
	borderColor    = lipgloss.Color("#6B7280") // Gray
	blueColor      = lipgloss.Color("#60A5FA") // Blue

	// Convenience styles for colors
	textStyle    = lipgloss.NewStyle().Foreground(textColor)
	mutedStyle   = lipgloss.NewStyle().Foreground(mutedColor)
	warningStyle = lipgloss.NewStyle().Foreground(warningColor)
	errorStyle   = lipgloss.NewStyle().Foreground(errorColor)

	// Header bar across the top of the screen
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primaryColor).
			BorderStyle(lipgloss.NormalBorder()).
			BorderBottom(true).
			BorderForeground(borderColor)

	// Section titles inside the body
	sectionStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primaryColor)

	// Lease table column headings
	columnStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(mutedColor)

	// Holder column when the lease belongs to this instance
	ownHolderStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(secondaryColor)

	// Event kind colors in the activity feed
	acquiredStyle = lipgloss.NewStyle().Foreground(secondaryColor)
	renewedStyle  = lipgloss.NewStyle().Foreground(blueColor)
	releasedStyle = lipgloss.NewStyle().Foreground(mutedColor)

	// Help bar
	helpBarStyle = lipgloss.NewStyle().
			Foreground(mutedColor).
			MarginTop(1)

	helpKeyStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(secondaryColor)
)
