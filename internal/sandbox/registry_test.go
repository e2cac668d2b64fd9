package sandbox

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/tobyward/sitegen/internal/config"
	"github.com/tobyward/sitegen/internal/events"
)

type fakeInstance struct {
	id     string
	files  map[string]string
	exec   *Execution
	killed int
	// optional injected failures
	writeErr error
	killErr  error
}

func newFakeInstance(id string) *fakeInstance {
	return &fakeInstance{id: id, files: make(map[string]string)}
}

func (f *fakeInstance) ID() string { return f.id }

func (f *fakeInstance) Host(port int) string {
	return fmt.Sprintf("%d-%s.e2b.dev", port, f.id)
}

func (f *fakeInstance) WriteFile(_ context.Context, path, content string) error {
	if f.writeErr != nil {
		return f.writeErr
	}
	f.files[path] = content
	return nil
}

func (f *fakeInstance) ReadFile(_ context.Context, path string) (string, error) {
	content, ok := f.files[path]
	if !ok {
		return "", fmt.Errorf("no such file: %s", path)
	}
	return content, nil
}

func (f *fakeInstance) RemovePath(_ context.Context, path string) error {
	if _, ok := f.files[path]; !ok {
		return fmt.Errorf("no such path: %s", path)
	}
	delete(f.files, path)
	return nil
}

func (f *fakeInstance) RunCommand(_ context.Context, _ string) (*Execution, error) {
	if f.exec == nil {
		return &Execution{}, nil
	}
	return f.exec, nil
}

func (f *fakeInstance) Kill(_ context.Context) error {
	if f.killErr != nil {
		return f.killErr
	}
	f.killed++
	return nil
}

type fakeProvider struct {
	next    *fakeInstance
	err     error
	creates int
}

func (p *fakeProvider) Create(_ context.Context, _ string) (Instance, error) {
	p.creates++
	if p.err != nil {
		return nil, p.err
	}
	return p.next, nil
}

type recordingSink struct {
	events []events.Event
}

func (s *recordingSink) Emit(_ string, event events.Event) {
	s.events = append(s.events, event)
}

func testRegistry(p Provider) *Registry {
	cfg := config.SandboxConfig{
		TemplateID:    "tmpl-1",
		PreviewPort:   5173,
		ProjectPath:   "/home/user/react-app",
		CreateTimeout: time.Minute,
	}
	return NewRegistry(p, cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestCreateRegistersHandleAndEmitsLifecycleEvents(t *testing.T) {
	provider := &fakeProvider{next: newFakeInstance("abc123")}
	reg := testRegistry(provider)
	sink := &recordingSink{}

	handle, err := reg.Create(context.Background(), events.NewEmitter("sess-1", sink))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if handle.SandboxID != "abc123" {
		t.Fatalf("sandbox id = %q", handle.SandboxID)
	}
	if handle.PreviewURL != "https://5173-abc123.e2b.dev" {
		t.Fatalf("preview url = %q", handle.PreviewURL)
	}
	if reg.Count() != 1 {
		t.Fatalf("registry count = %d, want 1", reg.Count())
	}
	if got, ok := reg.Get("abc123"); !ok || got != handle {
		t.Fatal("Get should return the stored handle")
	}

	if len(sink.events) != 2 {
		t.Fatalf("expected creating+created events, got %d", len(sink.events))
	}
	if sink.events[0].Type != events.TypeSandboxCreating {
		t.Fatalf("first event = %q", sink.events[0].Type)
	}
	created := sink.events[1]
	if created.Type != events.TypeSandboxCreated || created.SandboxID != "abc123" || created.PreviewURL != handle.PreviewURL {
		t.Fatalf("created event = %+v", created)
	}
}

func TestCreateFailureRegistersNothing(t *testing.T) {
	provider := &fakeProvider{err: errors.New("quota exceeded")}
	reg := testRegistry(provider)
	sink := &recordingSink{}

	_, err := reg.Create(context.Background(), events.NewEmitter("sess-1", sink))
	var provErr *ProvisionError
	if !errors.As(err, &provErr) {
		t.Fatalf("expected *ProvisionError, got %v", err)
	}
	if reg.Count() != 0 {
		t.Fatalf("registry count = %d after failed create", reg.Count())
	}
	// Only the creating event fired.
	if len(sink.events) != 1 || sink.events[0].Type != events.TypeSandboxCreating {
		t.Fatalf("events after failed create: %+v", sink.events)
	}
}

func TestDeleteRemovesAndKills(t *testing.T) {
	inst := newFakeInstance("abc123")
	reg := testRegistry(&fakeProvider{next: inst})
	if _, err := reg.Create(context.Background(), events.NewEmitter("", nil)); err != nil {
		t.Fatalf("Create: %v", err)
	}

	if err := reg.Delete(context.Background(), "abc123"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if inst.killed != 1 {
		t.Fatalf("kill calls = %d, want 1", inst.killed)
	}
	if reg.Count() != 0 {
		t.Fatalf("registry count = %d after delete", reg.Count())
	}
}

func TestDeleteUnknownIDReturnsNotFound(t *testing.T) {
	reg := testRegistry(&fakeProvider{})
	err := reg.Delete(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDeleteTeardownFailureKeepsEntry(t *testing.T) {
	inst := newFakeInstance("abc123")
	inst.killErr = errors.New("provider unavailable")
	reg := testRegistry(&fakeProvider{next: inst})
	if _, err := reg.Create(context.Background(), events.NewEmitter("", nil)); err != nil {
		t.Fatalf("Create: %v", err)
	}

	err := reg.Delete(context.Background(), "abc123")
	var tdErr *TeardownError
	if !errors.As(err, &tdErr) {
		t.Fatalf("expected *TeardownError, got %v", err)
	}
	if tdErr.SandboxID != "abc123" {
		t.Fatalf("teardown error id = %q", tdErr.SandboxID)
	}
	if reg.Count() != 1 {
		t.Fatal("entry should survive a failed teardown so deletion can be retried")
	}
}

func TestListSnapshot(t *testing.T) {
	reg := testRegistry(&fakeProvider{next: newFakeInstance("abc123")})
	if _, err := reg.Create(context.Background(), events.NewEmitter("", nil)); err != nil {
		t.Fatalf("Create: %v", err)
	}

	infos := reg.List()
	if len(infos) != 1 {
		t.Fatalf("expected 1 info, got %d", len(infos))
	}
	want := Info{
		SandboxID:   "abc123",
		PreviewURL:  "https://5173-abc123.e2b.dev",
		ProjectPath: "/home/user/react-app",
	}
	if infos[0] != want {
		t.Fatalf("info = %+v, want %+v", infos[0], want)
	}
}
