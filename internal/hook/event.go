package hook

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/lockstep-dev/lockstep/internal/errors"
)

// Event names under which the agent runtime invokes hook commands.
const (
	EventPreToolUse  = "PreToolUse"
	EventPostToolUse = "PostToolUse"
)

// writeTools are the tools whose invocations mutate files on disk.
// Only these participate in locking.
var writeTools = map[string]bool{
	"Write":        true,
	"Edit":         true,
	"MultiEdit":    true,
	"NotebookEdit": true,
}

// ToolEvent is the tool-execution payload the agent runtime pipes to a
// hook command on stdin. Fields the coordinator does not read are
// ignored on decode.
type ToolEvent struct {
	ToolName  string    `json:"tool_name"`
	ToolInput ToolInput `json:"tool_input"`

	// ToolError is present only on PostToolUse payloads for tools
	// that failed. Its shape varies by tool, so it is kept raw and
	// only tested for presence.
	ToolError json.RawMessage `json:"tool_error,omitempty"`
}

// ToolInput carries the subset of tool parameters the coordinator
// reads.
type ToolInput struct {
	FilePath string `json:"file_path"`

	// NotebookEdit names its target notebook_path instead.
	NotebookPath string `json:"notebook_path"`
}

// ParseToolEvent decodes one tool-execution payload from r.
func ParseToolEvent(r io.Reader) (ToolEvent, error) {
	var ev ToolEvent
	if err := json.NewDecoder(r).Decode(&ev); err != nil {
		return ToolEvent{}, errors.NewHookError(
			fmt.Sprintf("decode tool event: %v", err), errors.ErrMalformedEvent)
	}
	return ev, nil
}

// IsWrite reports whether the event's tool is one that writes files.
func (e ToolEvent) IsWrite() bool {
	return writeTools[e.ToolName]
}

// Path returns the file the tool operated on, or "" when the tool has
// no file target.
func (e ToolEvent) Path() string {
	if e.ToolInput.FilePath != "" {
		return e.ToolInput.FilePath
	}
	return e.ToolInput.NotebookPath
}

// Failed reports whether the host tool itself reported an error. The
// runtime includes tool_error only on failure, so presence is the
// signal; an explicit JSON null counts as absent.
func (e ToolEvent) Failed() bool {
	return len(e.ToolError) > 0 && string(e.ToolError) != "null"
}
