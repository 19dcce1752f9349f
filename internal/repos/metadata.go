package repos

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// GetMetadata reads one bookkeeping value. ok is false when the key was never set.
func (s *LocalStore) GetMetadata(ctx context.Context, key string) (value string, ok bool, err error) {
	db, err := s.handle(ctx)
	if err != nil {
		return "", false, err
	}
	err = db.GetContext(ctx, &value, `SELECT value FROM sync_metadata WHERE key = ?`, key)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

func (s *LocalStore) SetMetadata(ctx context.Context, key, value string) error {
	db, err := s.handle(ctx)
	if err != nil {
		return err
	}
	_, err = db.ExecContext(ctx, `
		INSERT INTO sync_metadata(key, value, updated_at)
		VALUES(?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, key, value, time.Now().UnixMilli())
	return err
}
