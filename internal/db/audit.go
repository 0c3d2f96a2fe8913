package db

import (
	"context"
	"fmt"

	"github.com/tgienger/taskflow/internal/models"
)

// InsertAuditEntry appends one entry to the audit log
func (q *Queries) InsertAuditEntry(ctx context.Context, e models.AuditLogEntry) (int64, error) {
	result, err := q.q.ExecContext(ctx, `
		INSERT INTO audit_log (task_id, user_id, action, field_name, old_value, new_value, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, e.TaskID, e.UserID, string(e.Action), e.FieldName, e.OldValue, e.NewValue, toMillis(e.CreatedAt))
	if err != nil {
		return 0, fmt.Errorf("insert audit entry: %w", err)
	}
	return result.LastInsertId()
}

// GetAuditTrail returns a task's audit entries, most recent first. Entries
// remain after the task itself is deleted.
func (q *Queries) GetAuditTrail(ctx context.Context, taskID int64) ([]models.AuditLogEntry, error) {
	rows, err := q.q.QueryContext(ctx, `
		SELECT id, task_id, user_id, action, field_name, old_value, new_value, created_at
		FROM audit_log
		WHERE task_id = ?
		ORDER BY created_at DESC, id DESC
	`, taskID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []models.AuditLogEntry
	for rows.Next() {
		var e models.AuditLogEntry
		var action string
		var createdAt int64
		if err := rows.Scan(&e.ID, &e.TaskID, &e.UserID, &action, &e.FieldName, &e.OldValue, &e.NewValue, &createdAt); err != nil {
			return nil, err
		}
		e.Action = models.AuditAction(action)
		e.CreatedAt = fromMillis(createdAt)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
