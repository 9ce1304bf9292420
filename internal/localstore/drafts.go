package localstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
)

// Draft kinds.
const (
	DraftWorkflow = "workflow"
	DraftQuiz     = "quiz"
)

// SaveDraft stores v as JSON under (kind, key).
func (s *Store) SaveDraft(ctx context.Context, kind, key string, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s draft: %w", kind, err)
	}
	err = s.exec(ctx,
		`INSERT INTO drafts (kind, key, payload, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(kind, key) DO UPDATE SET payload = excluded.payload, updated_at = excluded.updated_at`,
		kind, key, string(payload), nowUnix())
	if err != nil {
		return fmt.Errorf("save %s draft: %w", kind, err)
	}
	return nil
}

// LoadDraft decodes the draft stored under (kind, key) into v. It reports
// false when no draft exists.
func (s *Store) LoadDraft(ctx context.Context, kind, key string, v any) (bool, error) {
	ctx = ensureContext(ctx)
	var payload string
	err := retryOnBusy(ctx, func() error {
		return s.db.QueryRowContext(ctx,
			"SELECT payload FROM drafts WHERE kind = ? AND key = ?", kind, key).Scan(&payload)
	})
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("load %s draft: %w", kind, err)
	}
	if err := json.Unmarshal([]byte(payload), v); err != nil {
		return false, fmt.Errorf("decode %s draft: %w", kind, err)
	}
	return true, nil
}

// DeleteDraft removes the draft stored under (kind, key).
func (s *Store) DeleteDraft(ctx context.Context, kind, key string) error {
	if err := s.exec(ctx, "DELETE FROM drafts WHERE kind = ? AND key = ?", kind, key); err != nil {
		return fmt.Errorf("delete %s draft: %w", kind, err)
	}
	return nil
}
