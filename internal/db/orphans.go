package db

import (
	"context"
	"fmt"
	"time"

	"github.com/tgienger/taskflow/internal/models"
)

// RecordOrphanBlob remembers a blob key whose compensating delete failed.
// Recording the same key again bumps its attempt count.
func (q *Queries) RecordOrphanBlob(ctx context.Context, key, reason string, now time.Time) error {
	_, err := q.q.ExecContext(ctx, `
		INSERT INTO orphan_blobs (storage_key, reason, attempts, created_at) VALUES (?, ?, 1, ?)
		ON CONFLICT(storage_key) DO UPDATE SET attempts = attempts + 1, reason = excluded.reason
	`, key, reason, toMillis(now))
	if err != nil {
		return fmt.Errorf("record orphan blob: %w", err)
	}
	return nil
}

// ListOrphanBlobs returns outstanding orphan blobs, oldest first
func (q *Queries) ListOrphanBlobs(ctx context.Context) ([]models.OrphanBlob, error) {
	rows, err := q.q.QueryContext(ctx, `
		SELECT storage_key, reason, attempts, created_at FROM orphan_blobs
		ORDER BY created_at ASC, storage_key ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var blobs []models.OrphanBlob
	for rows.Next() {
		var b models.OrphanBlob
		var createdAt int64
		if err := rows.Scan(&b.StorageKey, &b.Reason, &b.Attempts, &createdAt); err != nil {
			return nil, err
		}
		b.CreatedAt = fromMillis(createdAt)
		blobs = append(blobs, b)
	}
	return blobs, rows.Err()
}

// DeleteOrphanBlob forgets a reconciled blob key
func (q *Queries) DeleteOrphanBlob(ctx context.Context, key string) error {
	_, err := q.q.ExecContext(ctx, "DELETE FROM orphan_blobs WHERE storage_key = ?", key)
	return err
}
