package db

import (
	"context"
	"fmt"
	"time"

	"github.com/tgienger/taskflow/internal/models"
)

// AddWatcher subscribes a user to a task. It reports false when the user was
// already watching, in which case nothing was written.
func (q *Queries) AddWatcher(ctx context.Context, taskID, userID int64, now time.Time) (bool, error) {
	result, err := q.q.ExecContext(ctx,
		"INSERT OR IGNORE INTO watchers (task_id, user_id, created_at) VALUES (?, ?, ?)",
		taskID, userID, toMillis(now),
	)
	if err != nil {
		return false, fmt.Errorf("add watcher: %w", err)
	}
	n, err := result.RowsAffected()
	return n > 0, err
}

// RemoveWatcher unsubscribes a user. It reports false when the user was not watching.
func (q *Queries) RemoveWatcher(ctx context.Context, taskID, userID int64) (bool, error) {
	result, err := q.q.ExecContext(ctx, "DELETE FROM watchers WHERE task_id = ? AND user_id = ?", taskID, userID)
	if err != nil {
		return false, fmt.Errorf("remove watcher: %w", err)
	}
	n, err := result.RowsAffected()
	return n > 0, err
}

// GetTaskWatchers returns a task's watchers in subscription order
func (q *Queries) GetTaskWatchers(ctx context.Context, taskID int64) ([]models.Watcher, error) {
	rows, err := q.q.QueryContext(ctx, `
		SELECT task_id, user_id, created_at FROM watchers
		WHERE task_id = ?
		ORDER BY created_at ASC, user_id ASC
	`, taskID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var watchers []models.Watcher
	for rows.Next() {
		var w models.Watcher
		var createdAt int64
		if err := rows.Scan(&w.TaskID, &w.UserID, &createdAt); err != nil {
			return nil, err
		}
		w.CreatedAt = fromMillis(createdAt)
		watchers = append(watchers, w)
	}
	return watchers, rows.Err()
}
