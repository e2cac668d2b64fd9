package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// GenerationStatus represents the lifecycle state of one generation
// request.
type GenerationStatus string

const (
	GenerationStatusStreaming GenerationStatus = "streaming"
	GenerationStatusDone      GenerationStatus = "done"
	GenerationStatusFailed    GenerationStatus = "failed"
)

// Generation is the lifecycle record of one generation request. It
// holds metadata only; the transcript itself is never persisted.
type Generation struct {
	ID          string           `json:"id"`
	SessionID   string           `json:"session_id,omitempty"`
	Prompt      string           `json:"prompt"`
	SandboxID   string           `json:"sandbox_id,omitempty"`
	PreviewURL  string           `json:"preview_url,omitempty"`
	Status      GenerationStatus `json:"status"`
	Error       *string          `json:"error,omitempty"`
	StartedAt   *time.Time       `json:"started_at,omitempty"`
	CompletedAt *time.Time       `json:"completed_at,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
}

// GenerationStore provides CRUD operations on the generations table.
type GenerationStore struct {
	db *sql.DB
}

// NewGenerationStore creates a new GenerationStore.
func NewGenerationStore(db *sql.DB) *GenerationStore {
	return &GenerationStore{db: db}
}

// Create inserts a new streaming generation record.
func (s *GenerationStore) Create(ctx context.Context, sessionID, prompt string) (*Generation, error) {
	now := time.Now().UTC()
	gen := &Generation{
		ID:        uuid.New().String(),
		SessionID: sessionID,
		Prompt:    prompt,
		Status:    GenerationStatusStreaming,
		StartedAt: &now,
		CreatedAt: now,
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO generations (id, session_id, prompt, status, started_at, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		gen.ID, gen.SessionID, gen.Prompt, string(gen.Status),
		now.Format(time.RFC3339Nano), now.Format(time.RFC3339Nano),
	)
	if err != nil {
		return nil, fmt.Errorf("insert generation: %w", err)
	}
	return gen, nil
}

// SetSandbox records the provisioned sandbox for a generation.
func (s *GenerationStore) SetSandbox(ctx context.Context, id, sandboxID, previewURL string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE generations SET sandbox_id = ?, preview_url = ? WHERE id = ?`,
		sandboxID, previewURL, id,
	)
	if err != nil {
		return fmt.Errorf("set generation sandbox: %w", err)
	}
	return nil
}

// MarkDone records a successful completion.
func (s *GenerationStore) MarkDone(ctx context.Context, id string) error {
	return s.finish(ctx, id, GenerationStatusDone, nil)
}

// MarkFailed records a failure with its message.
func (s *GenerationStore) MarkFailed(ctx context.Context, id, errMsg string) error {
	return s.finish(ctx, id, GenerationStatusFailed, &errMsg)
}

func (s *GenerationStore) finish(ctx context.Context, id string, status GenerationStatus, errMsg *string) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err := s.db.ExecContext(ctx,
		`UPDATE generations SET status = ?, error = COALESCE(?, error), completed_at = ? WHERE id = ?`,
		string(status), errMsg, now, id,
	)
	if err != nil {
		return fmt.Errorf("finish generation: %w", err)
	}
	return nil
}

// GetByID retrieves one generation record.
func (s *GenerationStore) GetByID(ctx context.Context, id string) (*Generation, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, session_id, prompt, sandbox_id, preview_url, status, error, started_at, completed_at, created_at
		 FROM generations WHERE id = ?`, id)
	return scanGeneration(row)
}

// ListRecent returns up to limit records, newest first.
func (s *GenerationStore) ListRecent(ctx context.Context, limit int) ([]*Generation, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, session_id, prompt, sandbox_id, preview_url, status, error, started_at, completed_at, created_at
		 FROM generations ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list generations: %w", err)
	}
	defer rows.Close()

	var gens []*Generation
	for rows.Next() {
		g, err := scanGeneration(rows)
		if err != nil {
			return nil, err
		}
		gens = append(gens, g)
	}
	return gens, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanGeneration(row rowScanner) (*Generation, error) {
	var g Generation
	var sessionID, sandboxID, previewURL sql.NullString
	var status string
	var errMsg sql.NullString
	var startedAt, completedAt sql.NullString
	var createdAt string

	err := row.Scan(&g.ID, &sessionID, &g.Prompt, &sandboxID, &previewURL,
		&status, &errMsg, &startedAt, &completedAt, &createdAt)
	if err != nil {
		return nil, err
	}

	g.SessionID = sessionID.String
	g.SandboxID = sandboxID.String
	g.PreviewURL = previewURL.String
	g.Status = GenerationStatus(status)
	if errMsg.Valid {
		g.Error = &errMsg.String
	}
	if startedAt.Valid {
		if t, err := time.Parse(time.RFC3339Nano, startedAt.String); err == nil {
			g.StartedAt = &t
		}
	}
	if completedAt.Valid {
		if t, err := time.Parse(time.RFC3339Nano, completedAt.String); err == nil {
			g.CompletedAt = &t
		}
	}
	if t, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
		g.CreatedAt = t
	}
	return &g, nil
}
