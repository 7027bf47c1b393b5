package cmd

import (
	"bufio"
	"fmt"
	"io"
	"io/fs"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/lockstep-dev/lockstep/internal/errors"
	"github.com/lockstep-dev/lockstep/internal/logging"
)

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "Read the shared coordination log",
	Long: `Read the debug log all instances write into the coordination
directory. Entries from every instance are interleaved in timestamp
order, which is usually the fastest way to reconstruct who held what
when a conflict is being untangled.

Filters combine with AND. --follow streams new entries as they are
written, like tail -f. --export writes the filtered entries to a file
instead of the terminal.`,
	RunE: runLogs,
}

var (
	logsLevel     string
	logsInstance  string
	logsComponent string
	logsSince     time.Duration
	logsGrep      string
	logsTail      int
	logsFollow    bool
	logsExport    string
	logsFormat    string
)

func init() {
	rootCmd.AddCommand(logsCmd)
	logsCmd.Flags().StringVar(&logsLevel, "level", "", "minimum level (DEBUG, INFO, WARN, ERROR)")
	logsCmd.Flags().StringVarP(&logsInstance, "instance", "i", "", "only entries written by this instance")
	logsCmd.Flags().StringVar(&logsComponent, "component", "", "only entries from this component")
	logsCmd.Flags().DurationVar(&logsSince, "since", 0, "only entries newer than this (e.g. 30m, 2h)")
	logsCmd.Flags().StringVar(&logsGrep, "grep", "", "only entries whose message or resource matches this regexp")
	logsCmd.Flags().IntVarP(&logsTail, "tail", "n", 50, "show the last N matching entries (0 for all)")
	logsCmd.Flags().BoolVarP(&logsFollow, "follow", "f", false, "stream new entries as they arrive")
	logsCmd.Flags().StringVar(&logsExport, "export", "", "write matching entries to this file instead of the terminal")
	logsCmd.Flags().StringVar(&logsFormat, "format", "json", "export format: json, text or csv")
}

func runLogs(cmd *cobra.Command, args []string) error {
	hub, err := newHub()
	if err != nil {
		return err
	}
	defer func() { _ = hub.Close() }()

	filter := logging.LogFilter{
		Level:      logsLevel,
		InstanceID: logsInstance,
		Component:  logsComponent,
	}
	if logsSince > 0 {
		filter.StartTime = time.Now().Add(-logsSince)
	}

	var grep *regexp.Regexp
	if logsGrep != "" {
		grep, err = regexp.Compile(logsGrep)
		if err != nil {
			return fmt.Errorf("invalid --grep pattern: %w", err)
		}
	}

	if logsFollow {
		return followLogs(cmd, hub.CoordinationDir(), filter, grep)
	}

	entries, err := logging.AggregateLogs(hub.CoordinationDir())
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			fmt.Printf("No log file at %s\n", logging.LogPath(hub.CoordinationDir()))
			return nil
		}
		return fmt.Errorf("failed to read logs: %w", err)
	}

	entries = logging.FilterLogs(entries, filter)
	entries = grepEntries(entries, grep)

	if logsExport != "" {
		if err := logging.ExportLogEntries(entries, logsExport, logsFormat); err != nil {
			return fmt.Errorf("failed to export logs: %w", err)
		}
		fmt.Printf("Exported %d entries to %s\n", len(entries), logsExport)
		return nil
	}

	if logsTail > 0 && len(entries) > logsTail {
		entries = entries[len(entries)-logsTail:]
	}
	if len(entries) == 0 {
		fmt.Println("No matching log entries.")
		return nil
	}
	for _, entry := range entries {
		fmt.Println(formatLogLine(entry))
	}
	return nil
}

// followLogs streams entries appended after the command starts, like
// tail -f. Partial trailing lines are retried until their newline
// arrives.
func followLogs(cmd *cobra.Command, dir string, filter logging.LogFilter, grep *regexp.Regexp) error {
	path := logging.LogPath(dir)
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer func() { _ = file.Close() }()

	// Start from the end; history is what the non-follow mode is for.
	if _, err := file.Seek(0, io.SeekEnd); err != nil {
		return fmt.Errorf("failed to seek log file: %w", err)
	}

	fmt.Printf("Following %s (Ctrl+C to stop)\n", path)
	reader := bufio.NewReader(file)
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			if err == io.EOF {
				select {
				case <-cmd.Context().Done():
					return nil
				case <-time.After(100 * time.Millisecond):
				}
				continue
			}
			return fmt.Errorf("failed to read log file: %w", err)
		}

		entry, perr := logging.ParseEntry(strings.TrimSpace(line))
		if perr != nil {
			continue
		}
		if !filter.Matches(entry) || !grepMatches(entry, grep) {
			continue
		}
		fmt.Println(formatLogLine(entry))
	}
}

func grepEntries(entries []logging.LogEntry, grep *regexp.Regexp) []logging.LogEntry {
	if grep == nil {
		return entries
	}
	var matched []logging.LogEntry
	for _, entry := range entries {
		if grepMatches(entry, grep) {
			matched = append(matched, entry)
		}
	}
	return matched
}

func grepMatches(entry logging.LogEntry, grep *regexp.Regexp) bool {
	if grep == nil {
		return true
	}
	return grep.MatchString(entry.Message) || grep.MatchString(entry.Resource)
}

// ANSI colors for terminal output
const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
	colorGray   = "\033[90m"
)

func levelColor(level string) string {
	switch strings.ToUpper(level) {
	case logging.LevelError:
		return colorRed
	case logging.LevelWarn:
		return colorYellow
	case logging.LevelDebug:
		return colorGray
	default:
		return colorCyan
	}
}

func formatLogLine(entry logging.LogEntry) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s%-5s%s %s",
		entry.Timestamp.Format("15:04:05.000"),
		levelColor(entry.Level), entry.Level, colorReset,
		entry.Message)
	if entry.InstanceID != "" {
		fmt.Fprintf(&b, " %s[%s]%s", colorGray, entry.InstanceID, colorReset)
	}
	if entry.Resource != "" {
		fmt.Fprintf(&b, " %s", entry.Resource)
	}
	return b.String()
}
