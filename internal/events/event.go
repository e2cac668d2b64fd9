package events

import "time"

// Event type tags, named <category>:<phase>.
const (
	TypeSandboxCreating  = "sandbox:creating"
	TypeSandboxCreated   = "sandbox:created"
	TypeToolExecuting    = "tool:executing"
	TypeToolCompleted    = "tool:completed"
	TypeToolError        = "tool:error"
	TypeCommandExecuting = "command:executing"
	TypeCommandCompleted = "command:completed"
	TypeCommandError     = "command:error"
)

// Event is an immutable record describing one step of tool or
// sandbox-lifecycle execution, delivered to the session's websocket.
type Event struct {
	Type       string         `json:"type"`
	Tool       string         `json:"tool,omitempty"`
	Message    string         `json:"message"`
	Details    map[string]any `json:"details,omitempty"`
	Timestamp  int64          `json:"timestamp"`
	SandboxID  string         `json:"sandboxId,omitempty"`
	PreviewURL string         `json:"previewUrl,omitempty"`
}

// ExecError is a structured command execution error attached to
// command:completed event details.
type ExecError struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Sink receives progress events for one session.
type Sink interface {
	Emit(sessionID string, event Event)
}

// Emitter binds a Sink to a single session id and provides the
// progress-event vocabulary used by the dispatcher and registry.
// An Emitter with an empty session id drops everything.
type Emitter struct {
	sessionID string
	sink      Sink
}

// NewEmitter creates an Emitter delivering to sink under sessionID.
func NewEmitter(sessionID string, sink Sink) *Emitter {
	return &Emitter{sessionID: sessionID, sink: sink}
}

func (e *Emitter) emit(event Event) {
	if e == nil || e.sessionID == "" || e.sink == nil {
		return
	}
	event.Timestamp = time.Now().UnixMilli()
	e.sink.Emit(e.sessionID, event)
}

// SandboxCreating reports that provisioning has started.
func (e *Emitter) SandboxCreating() {
	e.emit(Event{
		Type:    TypeSandboxCreating,
		Message: "Creating sandbox...",
	})
}

// SandboxCreated reports a provisioned sandbox with its preview address.
func (e *Emitter) SandboxCreated(sandboxID, previewURL string) {
	e.emit(Event{
		Type:       TypeSandboxCreated,
		Message:    "Sandbox created successfully",
		SandboxID:  sandboxID,
		PreviewURL: previewURL,
	})
}

// ToolExecuting reports the start of a file tool invocation.
func (e *Emitter) ToolExecuting(tool, message, location string) {
	e.emit(Event{
		Type:    TypeToolExecuting,
		Tool:    tool,
		Message: message,
		Details: map[string]any{"location": location},
	})
}

// ToolCompleted reports the successful end of a file tool invocation.
func (e *Emitter) ToolCompleted(tool, message, location string) {
	e.emit(Event{
		Type:    TypeToolCompleted,
		Tool:    tool,
		Message: message,
		Details: map[string]any{"location": location},
	})
}

// CommandExecuting reports the start of a shell command.
func (e *Emitter) CommandExecuting(tool, command string) {
	e.emit(Event{
		Type:    TypeCommandExecuting,
		Tool:    tool,
		Message: "Running: " + command,
		Details: map[string]any{"command": command},
	})
}

// CommandCompleted reports a finished command with its captured output.
// execErr is the provider's structured execution error, nil when the
// command ran to completion.
func (e *Emitter) CommandCompleted(tool, command, stdout, stderr string, execErr *ExecError) {
	details := map[string]any{
		"command": command,
		"stdout":  stdout,
		"stderr":  stderr,
	}
	if execErr != nil {
		details["error"] = *execErr
	}
	e.emit(Event{
		Type:    TypeCommandCompleted,
		Tool:    tool,
		Message: "Command completed: " + command,
		Details: details,
	})
}

// CommandError reports a command that failed to execute at all.
func (e *Emitter) CommandError(tool, command, errorMessage string) {
	e.emit(Event{
		Type:    TypeCommandError,
		Tool:    tool,
		Message: errorMessage,
		Details: map[string]any{"command": command},
	})
}

// ToolError reports a tool invocation that failed.
func (e *Emitter) ToolError(tool, errorMessage string) {
	e.emit(Event{
		Type:    TypeToolError,
		Tool:    tool,
		Message: errorMessage,
	})
}
