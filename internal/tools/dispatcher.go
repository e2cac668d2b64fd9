package tools

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/tobyward/sitegen/internal/events"
	"github.com/tobyward/sitegen/internal/sandbox"
)

// Dispatcher executes tool calls against a sandbox handle, emitting
// paired executing/completed (or error) progress events around every
// operation. No tool call completes silently.
type Dispatcher struct {
	emitter *events.Emitter
	logger  *slog.Logger
}

// NewDispatcher creates a Dispatcher reporting progress through em.
func NewDispatcher(em *events.Emitter, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{emitter: em, logger: logger}
}

// Execute runs one tool call and returns its user-facing result
// string. File operation failures and unknown tools return an error
// after a tool:error event; the caller formats those as in-band error
// markers and continues the stream. Command execution failures never
// return an error: they become a descriptive result string, since
// failing commands are routine and must not derail generation.
func (d *Dispatcher) Execute(ctx context.Context, name string, arguments string, sb *sandbox.Handle) (string, error) {
	call, err := ParseCall(name, arguments)
	if err != nil {
		d.emitter.ToolError(name, err.Error())
		return "", err
	}

	d.logger.Debug("executing tool", "tool", name, "location", call.Input.Location)

	result, err := d.execute(ctx, call, sb)
	if err != nil {
		d.emitter.ToolError(name, fmt.Sprintf("Tool failed: %v", err))
		return "", err
	}
	return result, nil
}

func (d *Dispatcher) execute(ctx context.Context, call Call, sb *sandbox.Handle) (string, error) {
	switch call.Kind {
	case KindCreateFile:
		return d.writeFile(ctx, call.Kind, call.Input, sb)
	case KindUpdateFile:
		return d.writeFile(ctx, call.Kind, call.Input, sb)
	case KindDeleteFile:
		return d.deletePath(ctx, call.Input, sb)
	case KindReadFile:
		return d.readFile(ctx, call.Input, sb)
	case KindRunCommand:
		return d.runCommand(ctx, call.Input, sb)
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownTool, call.Kind)
}

// writeFile handles createFile and updateFile; both are
// create-or-overwrite, the distinction is presentational.
func (d *Dispatcher) writeFile(ctx context.Context, kind Kind, input Input, sb *sandbox.Handle) (string, error) {
	if input.Location == "" {
		return "", fmt.Errorf("%s: location is required", kind)
	}

	verb, done := "Creating", "created"
	if kind == KindUpdateFile {
		verb, done = "Updating", "updated"
	}

	d.emitter.ToolExecuting(kind.String(), fmt.Sprintf("%s file: %s", verb, input.Location), input.Location)

	if err := sb.WriteFile(ctx, input.Location, input.Content); err != nil {
		return "", fmt.Errorf("write %s: %w", input.Location, err)
	}

	result := fmt.Sprintf("File '%s' %s successfully.", input.Location, done)
	d.emitter.ToolCompleted(kind.String(), result, input.Location)
	return result, nil
}

func (d *Dispatcher) deletePath(ctx context.Context, input Input, sb *sandbox.Handle) (string, error) {
	if input.Location == "" {
		return "", fmt.Errorf("%s: location is required", NameDeleteFile)
	}

	d.emitter.ToolExecuting(NameDeleteFile, "Deleting: "+input.Location, input.Location)

	if err := sb.RemovePath(ctx, input.Location); err != nil {
		return "", fmt.Errorf("delete %s: %w", input.Location, err)
	}

	result := fmt.Sprintf("File/Directory '%s' deleted successfully.", input.Location)
	d.emitter.ToolCompleted(NameDeleteFile, result, input.Location)
	return result, nil
}

func (d *Dispatcher) readFile(ctx context.Context, input Input, sb *sandbox.Handle) (string, error) {
	if input.Location == "" {
		return "", fmt.Errorf("%s: location is required", NameReadFile)
	}

	d.emitter.ToolExecuting(NameReadFile, "Reading file: "+input.Location, input.Location)

	content, err := sb.ReadFile(ctx, input.Location)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", input.Location, err)
	}

	result := fmt.Sprintf("Content of '%s':\n```\n%s\n```", input.Location, content)
	d.emitter.ToolCompleted(NameReadFile, "File read: "+input.Location, input.Location)
	return result, nil
}

// runCommand is the only tool whose failure path is converted to a
// result string instead of an error return.
func (d *Dispatcher) runCommand(ctx context.Context, input Input, sb *sandbox.Handle) (string, error) {
	if input.Command == "" {
		return "", fmt.Errorf("%s: command is required", NameRunCommand)
	}

	d.emitter.CommandExecuting(NameRunCommand, input.Command)

	exec, err := sb.RunCommand(ctx, input.Command)
	if err != nil {
		msg := fmt.Sprintf("Error executing command '%s': %v", input.Command, err)
		d.emitter.CommandError(NameRunCommand, input.Command, msg)
		return msg, nil
	}

	output := exec.Stdout
	if exec.Stderr != "" {
		output += "\nSTDERR: " + exec.Stderr
	}
	errorMsg := ""
	if exec.Error != nil {
		errorMsg = fmt.Sprintf("\nError: %s: %s", exec.Error.Name, exec.Error.Value)
	}
	result := fmt.Sprintf("Command: `%s`\nOutput:\n```\n%s%s\n```", input.Command, output, errorMsg)

	d.emitter.CommandCompleted(NameRunCommand, input.Command, exec.Stdout, exec.Stderr, exec.Error)
	return result, nil
}
