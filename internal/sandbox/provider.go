package sandbox

import (
	"context"

	"github.com/tobyward/sitegen/internal/events"
)

// Provider provisions remote execution sandboxes.
type Provider interface {
	// Create requests a new sandbox instance built from templateID.
	Create(ctx context.Context, templateID string) (Instance, error)
}

// Instance is one live execution environment: a filesystem, shell
// command execution, and network ports exposed as public hosts.
type Instance interface {
	// ID returns the provider-assigned sandbox identifier.
	ID() string

	// Host returns the public hostname for a port exposed by the sandbox.
	Host(port int) string

	// WriteFile creates or overwrites the file at path.
	WriteFile(ctx context.Context, path, content string) error

	// ReadFile returns the content of the file at path.
	ReadFile(ctx context.Context, path string) (string, error)

	// RemovePath removes the file or directory at path recursively.
	RemovePath(ctx context.Context, path string) error

	// RunCommand executes a shell command and captures its output.
	// A command that runs but fails is reported through Execution.Error,
	// not through the returned error.
	RunCommand(ctx context.Context, command string) (*Execution, error)

	// Kill tears the sandbox down.
	Kill(ctx context.Context) error
}

// Execution holds the captured result of one sandbox command.
type Execution struct {
	Stdout string
	Stderr string
	Error  *events.ExecError
}
