package sandbox

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/tobyward/sitegen/internal/config"
	"github.com/tobyward/sitegen/internal/events"
)

// ErrNotFound reports a sandbox id the registry does not track.
var ErrNotFound = errors.New("sandbox not found")

// ProvisionError reports a failed sandbox creation.
type ProvisionError struct {
	Err error
}

func (e *ProvisionError) Error() string {
	return fmt.Sprintf("sandbox provisioning failed: %v", e.Err)
}

func (e *ProvisionError) Unwrap() error { return e.Err }

// TeardownError reports a provider failure while killing a sandbox.
type TeardownError struct {
	SandboxID string
	Err       error
}

func (e *TeardownError) Error() string {
	return fmt.Sprintf("sandbox %s teardown failed: %v", e.SandboxID, e.Err)
}

func (e *TeardownError) Unwrap() error { return e.Err }

// Handle is a tracked live sandbox. It is owned by the Registry; a
// generation request borrows it for its duration.
type Handle struct {
	SandboxID   string
	PreviewURL  string
	ProjectPath string

	inst Instance
}

// NewHandle wraps a provisioned instance in a Handle. The registry
// builds handles itself; this is for callers bringing their own
// instance, such as tests.
func NewHandle(inst Instance, previewURL, projectPath string) *Handle {
	return &Handle{
		SandboxID:   inst.ID(),
		PreviewURL:  previewURL,
		ProjectPath: projectPath,
		inst:        inst,
	}
}

// WriteFile creates or overwrites a file in the sandbox filesystem.
func (h *Handle) WriteFile(ctx context.Context, path, content string) error {
	return h.inst.WriteFile(ctx, path, content)
}

// ReadFile returns the content of a file in the sandbox filesystem.
func (h *Handle) ReadFile(ctx context.Context, path string) (string, error) {
	return h.inst.ReadFile(ctx, path)
}

// RemovePath removes a file or directory recursively.
func (h *Handle) RemovePath(ctx context.Context, path string) error {
	return h.inst.RemovePath(ctx, path)
}

// RunCommand executes a shell command inside the sandbox.
func (h *Handle) RunCommand(ctx context.Context, command string) (*Execution, error) {
	return h.inst.RunCommand(ctx, command)
}

// Info is a read-only snapshot of one tracked sandbox.
type Info struct {
	SandboxID   string `json:"sandboxId"`
	PreviewURL  string `json:"previewUrl"`
	ProjectPath string `json:"projectPath"`
}

// Registry is the single source of truth for which sandbox ids are
// known to this process. It does not re-validate liveness with the
// provider; provider-side expiry surfaces as operation failures.
type Registry struct {
	provider Provider
	cfg      config.SandboxConfig
	logger   *slog.Logger

	mu        sync.RWMutex
	sandboxes map[string]*Handle
}

// NewRegistry creates an empty registry backed by provider.
func NewRegistry(provider Provider, cfg config.SandboxConfig, logger *slog.Logger) *Registry {
	return &Registry{
		provider:  provider,
		cfg:       cfg,
		logger:    logger,
		sandboxes: make(map[string]*Handle),
	}
}

// Create provisions a sandbox, stores its handle, and reports progress
// through em. Creation is bounded by the configured timeout. A failed
// provider call returns a *ProvisionError; nothing is registered.
func (r *Registry) Create(ctx context.Context, em *events.Emitter) (*Handle, error) {
	em.SandboxCreating()

	ctx, cancel := context.WithTimeout(ctx, r.cfg.CreateTimeout)
	defer cancel()

	r.logger.Info("creating sandbox", "template", r.cfg.TemplateID)
	inst, err := r.provider.Create(ctx, r.cfg.TemplateID)
	if err != nil {
		return nil, &ProvisionError{Err: err}
	}

	handle := &Handle{
		SandboxID:   inst.ID(),
		PreviewURL:  "https://" + inst.Host(r.cfg.PreviewPort),
		ProjectPath: r.cfg.ProjectPath,
		inst:        inst,
	}

	r.mu.Lock()
	r.sandboxes[handle.SandboxID] = handle
	r.mu.Unlock()

	em.SandboxCreated(handle.SandboxID, handle.PreviewURL)
	r.logger.Info("sandbox created", "sandbox_id", handle.SandboxID, "preview_url", handle.PreviewURL)
	return handle, nil
}

// Get returns the handle for id, if tracked.
func (r *Registry) Get(id string) (*Handle, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.sandboxes[id]
	return h, ok
}

// Delete tears down the sandbox with the given id and removes it from
// the registry. Unknown ids return ErrNotFound. Provider failures
// return a *TeardownError and leave the entry in place so the caller
// can retry the deletion.
func (r *Registry) Delete(ctx context.Context, id string) error {
	r.mu.RLock()
	handle, ok := r.sandboxes[id]
	r.mu.RUnlock()

	if !ok {
		return ErrNotFound
	}

	if err := handle.inst.Kill(ctx); err != nil {
		return &TeardownError{SandboxID: id, Err: err}
	}

	r.mu.Lock()
	delete(r.sandboxes, id)
	r.mu.Unlock()

	r.logger.Info("sandbox deleted", "sandbox_id", id)
	return nil
}

// List returns a snapshot of all tracked sandboxes.
func (r *Registry) List() []Info {
	r.mu.RLock()
	defer r.mu.RUnlock()
	infos := make([]Info, 0, len(r.sandboxes))
	for _, h := range r.sandboxes {
		infos = append(infos, Info{
			SandboxID:   h.SandboxID,
			PreviewURL:  h.PreviewURL,
			ProjectPath: h.ProjectPath,
		})
	}
	return infos
}

// Count returns the number of tracked sandboxes.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sandboxes)
}
