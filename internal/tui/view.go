package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/lockstep-dev/lockstep/internal/lockstore"
	"github.com/lockstep-dev/lockstep/internal/watch"
)

// Fixed table column widths. The path column takes whatever is left.
const (
	ageColWidth    = 9
	expiryColWidth = 10
	maxHolderWidth = 24
	minPathWidth   = 20
)

// fixedRows is the vertical space outside the two scrolling regions:
// the bordered header, section titles, column headings, separators,
// and the help bar.
const fixedRows = 10

// View renders the watch screen
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	if m.quitting {
		return ""
	}

	leaseRows, feedRows := m.regionHeights()

	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n\n")
	b.WriteString(m.renderLeases(leaseRows))
	b.WriteString("\n")
	b.WriteString(m.renderFeed(feedRows))
	b.WriteString(m.renderHelp())
	return b.String()
}

// regionHeights splits the vertical space between the lease table and
// the activity feed. The feed gets whatever the table does not use,
// and both keep a floor so tiny terminals still show something.
func (m Model) regionHeights() (leaseRows, feedRows int) {
	avail := m.height - fixedRows
	if avail < 6 {
		avail = 6
	}

	leaseRows = len(m.leases)
	if limit := avail / 2; leaseRows > limit {
		leaseRows = limit
	}
	if leaseRows < 1 {
		leaseRows = 1
	}

	feedRows = avail - leaseRows
	return leaseRows, feedRows
}

// renderHeader renders the title bar with this session's instance ID.
func (m Model) renderHeader() string {
	left := "lockstep watch"
	right := fmt.Sprintf("instance %s", m.instanceID)

	gap := m.width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 2 {
		return headerStyle.Width(m.width).Render(left)
	}
	return headerStyle.Width(m.width).Render(left + strings.Repeat(" ", gap) + right)
}

// renderLeases renders the lease table section.
func (m Model) renderLeases(rows int) string {
	recs := m.sortedLeases()
	now := m.now()

	var b strings.Builder
	b.WriteString(sectionStyle.Render(fmt.Sprintf("ACTIVE LEASES (%d)", len(recs))))
	b.WriteString("\n")

	if len(recs) == 0 {
		b.WriteString(mutedStyle.Render("No leases held."))
		b.WriteString("\n")
		return b.String()
	}

	holderW := holderWidth(recs)
	pathW := m.width - holderW - ageColWidth - expiryColWidth - 6
	if pathW < minPathWidth {
		pathW = minPathWidth
	}

	head := fmt.Sprintf("%-*s  %-*s  %*s  %*s",
		pathW, "PATH", holderW, "HOLDER", ageColWidth, "AGE", expiryColWidth, "EXPIRES IN")
	b.WriteString(columnStyle.Render(head))
	b.WriteString("\n")

	shown := recs
	overflow := 0
	if len(recs) > rows {
		shown = recs[:rows-1]
		overflow = len(recs) - len(shown)
	}
	for _, rec := range shown {
		b.WriteString(m.renderLeaseRow(rec, now, pathW, holderW))
		b.WriteString("\n")
	}
	if overflow > 0 {
		b.WriteString(mutedStyle.Render(fmt.Sprintf("... and %d more", overflow)))
		b.WriteString("\n")
	}
	return b.String()
}

// renderLeaseRow renders one table row. Cells are padded before they
// are styled so the escape codes do not skew the columns.
func (m Model) renderLeaseRow(rec lockstore.Record, now time.Time, pathW, holderW int) string {
	pathCell := fmt.Sprintf("%-*s", pathW, truncatePath(rec.Path, pathW))
	holderCell := fmt.Sprintf("%-*s", holderW, truncateTail(rec.Holder, holderW))
	ageCell := fmt.Sprintf("%*s", ageColWidth, formatDuration(now.Sub(rec.AcquiredAt)))

	holderStyle := textStyle
	if rec.Holder == m.instanceID {
		holderStyle = ownHolderStyle
	}

	var expiryCell string
	if rec.IsExpiredAt(now) {
		expiryCell = errorStyle.Render(fmt.Sprintf("%*s", expiryColWidth, "expired"))
	} else {
		remaining := rec.ExpiresAt.Sub(now)
		cell := fmt.Sprintf("%*s", expiryColWidth, formatDuration(remaining))
		if remaining < time.Minute {
			expiryCell = warningStyle.Render(cell)
		} else {
			expiryCell = textStyle.Render(cell)
		}
	}

	return textStyle.Render(pathCell) + "  " +
		holderStyle.Render(holderCell) + "  " +
		mutedStyle.Render(ageCell) + "  " +
		expiryCell
}

// renderFeed renders the newest activity entries that fit on screen.
func (m Model) renderFeed(rows int) string {
	var b strings.Builder
	b.WriteString(sectionStyle.Render("RECENT ACTIVITY"))
	b.WriteString("\n")

	if len(m.feed) == 0 {
		b.WriteString(mutedStyle.Render("Waiting for lock activity..."))
		b.WriteString("\n")
		return b.String()
	}

	entries := m.feed
	if len(entries) > rows {
		entries = entries[len(entries)-rows:]
	}
	for _, ev := range entries {
		b.WriteString(renderFeedLine(ev))
		b.WriteString("\n")
	}
	return b.String()
}

// renderFeedLine renders one activity entry.
func renderFeedLine(ev watch.Event) string {
	ts := mutedStyle.Render(ev.At.Format("15:04:05"))
	kind := kindStyle(ev.Kind).Render(fmt.Sprintf("%-8s", ev.Kind))
	return fmt.Sprintf("%s  %s  %s  %s",
		ts, kind, textStyle.Render(ev.Record.Path), mutedStyle.Render(ev.Record.Holder))
}

// renderHelp renders the bottom help bar with the store location.
func (m Model) renderHelp() string {
	left := helpKeyStyle.Render("[q]") + mutedStyle.Render(" quit")
	if m.dir == "" {
		return helpBarStyle.Render(left)
	}

	right := mutedStyle.Render(m.dir)
	gap := m.width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 2 {
		return helpBarStyle.Render(left)
	}
	return helpBarStyle.Render(left + strings.Repeat(" ", gap) + right)
}

// kindStyle returns the feed color for an event kind.
func kindStyle(k watch.Kind) lipgloss.Style {
	switch k {
	case watch.KindAcquired:
		return acquiredStyle
	case watch.KindRenewed:
		return renewedStyle
	case watch.KindReleased:
		return releasedStyle
	}
	return textStyle
}

// holderWidth sizes the holder column to its content, within bounds.
func holderWidth(recs []lockstore.Record) int {
	w := len("HOLDER")
	for _, rec := range recs {
		if len(rec.Holder) > w {
			w = len(rec.Holder)
		}
	}
	if w > maxHolderWidth {
		w = maxHolderWidth
	}
	return w
}

// formatDuration renders a duration in whole seconds. Ages and
// countdowns read better without fractions.
func formatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	return d.Truncate(time.Second).String()
}

// truncatePath shortens a long path from the left so the filename, the
// informative end, stays visible.
func truncatePath(path string, maxLen int) string {
	if len(path) <= maxLen {
		return path
	}
	if maxLen <= 3 {
		return path[len(path)-maxLen:]
	}
	return "..." + path[len(path)-maxLen+3:]
}

// truncateTail cuts an overlong value at the right.
func truncateTail(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
