package db

import (
	"context"
	"database/sql"
	"errors"
)

// GetSetting retrieves a setting value by key
func (q *Queries) GetSetting(ctx context.Context, key string) (string, error) {
	var value string
	err := q.q.QueryRowContext(ctx, "SELECT value FROM settings WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return value, err
}

// SetSetting sets a setting value
func (q *Queries) SetSetting(ctx context.Context, key, value string) error {
	_, err := q.q.ExecContext(ctx, `
		INSERT INTO settings (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	return err
}
