package store

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/tobyward/sitegen/internal/storage"
)

func testDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := storage.OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestCreateAndGet(t *testing.T) {
	s := NewGenerationStore(testDB(t))
	ctx := context.Background()

	gen, err := s.Create(ctx, "sess-1", "build a button")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if gen.Status != GenerationStatusStreaming {
		t.Fatalf("status = %q", gen.Status)
	}
	if gen.StartedAt == nil {
		t.Fatal("started_at not set on create")
	}

	got, err := s.GetByID(ctx, gen.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Prompt != "build a button" || got.SessionID != "sess-1" {
		t.Fatalf("roundtrip mismatch: %+v", got)
	}
}

func TestLifecycleDone(t *testing.T) {
	s := NewGenerationStore(testDB(t))
	ctx := context.Background()

	gen, err := s.Create(ctx, "", "build a page")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := s.SetSandbox(ctx, gen.ID, "abc123", "https://5173-abc123.e2b.dev"); err != nil {
		t.Fatalf("SetSandbox: %v", err)
	}
	if err := s.MarkDone(ctx, gen.ID); err != nil {
		t.Fatalf("MarkDone: %v", err)
	}

	got, err := s.GetByID(ctx, gen.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Status != GenerationStatusDone {
		t.Fatalf("status = %q", got.Status)
	}
	if got.SandboxID != "abc123" || got.PreviewURL != "https://5173-abc123.e2b.dev" {
		t.Fatalf("sandbox fields = %q %q", got.SandboxID, got.PreviewURL)
	}
	if got.CompletedAt == nil {
		t.Fatal("completed_at not set")
	}
}

func TestLifecycleFailed(t *testing.T) {
	s := NewGenerationStore(testDB(t))
	ctx := context.Background()

	gen, err := s.Create(ctx, "", "build a page")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := s.MarkFailed(ctx, gen.ID, "sandbox provisioning failed"); err != nil {
		t.Fatalf("MarkFailed: %v", err)
	}

	got, err := s.GetByID(ctx, gen.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Status != GenerationStatusFailed {
		t.Fatalf("status = %q", got.Status)
	}
	if got.Error == nil || *got.Error != "sandbox provisioning failed" {
		t.Fatalf("error = %v", got.Error)
	}
}

func TestListRecentHonorsLimit(t *testing.T) {
	s := NewGenerationStore(testDB(t))
	ctx := context.Background()

	for _, prompt := range []string{"first", "second", "third"} {
		if _, err := s.Create(ctx, "", prompt); err != nil {
			t.Fatalf("Create(%s): %v", prompt, err)
		}
	}

	gens, err := s.ListRecent(ctx, 2)
	if err != nil {
		t.Fatalf("ListRecent: %v", err)
	}
	if len(gens) != 2 {
		t.Fatalf("expected 2 records, got %d", len(gens))
	}
}
