package localstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// LoadEntry returns a persisted query-cache payload and the time it was fetched.
func (s *Store) LoadEntry(ctx context.Context, key string) ([]byte, time.Time, bool, error) {
	ctx = ensureContext(ctx)
	var (
		payload   []byte
		fetchedAt int64
	)
	err := retryOnBusy(ctx, func() error {
		return s.db.QueryRowContext(ctx,
			"SELECT payload, fetched_at FROM cache_entries WHERE key = ?", key).Scan(&payload, &fetchedAt)
	})
	if errors.Is(err, sql.ErrNoRows) {
		return nil, time.Time{}, false, nil
	}
	if err != nil {
		return nil, time.Time{}, false, fmt.Errorf("load cache entry %s: %w", key, err)
	}
	return payload, time.UnixMilli(fetchedAt).UTC(), true, nil
}

// SaveEntry persists a query-cache payload.
func (s *Store) SaveEntry(ctx context.Context, key string, payload []byte, fetchedAt time.Time) error {
	err := s.exec(ctx,
		`INSERT INTO cache_entries (key, payload, fetched_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET payload = excluded.payload, fetched_at = excluded.fetched_at`,
		key, payload, fetchedAt.UTC().UnixMilli())
	if err != nil {
		return fmt.Errorf("save cache entry %s: %w", key, err)
	}
	return nil
}

// DeleteEntries removes every entry equal to prefix or nested below it
// (prefix followed by the "/" separator). An empty prefix removes everything.
func (s *Store) DeleteEntries(ctx context.Context, prefix string) error {
	if prefix == "" {
		if err := s.exec(ctx, "DELETE FROM cache_entries"); err != nil {
			return fmt.Errorf("clear cache entries: %w", err)
		}
		return nil
	}
	pattern := escapeLike(prefix) + "/%"
	err := s.exec(ctx,
		`DELETE FROM cache_entries WHERE key = ? OR key LIKE ? ESCAPE '\'`, prefix, pattern)
	if err != nil {
		return fmt.Errorf("delete cache entries %s: %w", prefix, err)
	}
	return nil
}

func escapeLike(value string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return replacer.Replace(value)
}
