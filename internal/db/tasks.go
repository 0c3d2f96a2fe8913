package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/tgienger/taskflow/internal/models"
)

const taskColumns = `id, project_id, title, description, priority, deadline, started_at, completed_at,
	is_milestone, assigned_to_user_id, created_by_user_id, parent_task_id, status_id, version,
	created_at, updated_at`

// InsertTask creates a task row at version 1 and returns its ID
func (q *Queries) InsertTask(ctx context.Context, t models.Task) (int64, error) {
	result, err := q.q.ExecContext(ctx, `
		INSERT INTO tasks (project_id, title, description, priority, deadline, started_at, completed_at,
			is_milestone, assigned_to_user_id, created_by_user_id, parent_task_id, status_id, version,
			created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 1, ?, ?)
	`,
		t.ProjectID, t.Title, t.Description, int(t.Priority), nullMillis(t.Deadline),
		nullMillis(t.StartedAt), nullMillis(t.CompletedAt), t.IsMilestone, nullID(t.AssignedToUserID),
		t.CreatedByUserID, nullID(t.ParentTaskID), t.StatusID, toMillis(t.CreatedAt), toMillis(t.UpdatedAt),
	)
	if err != nil {
		return 0, fmt.Errorf("insert task: %w", err)
	}
	return result.LastInsertId()
}

// GetTask retrieves a task by ID
func (q *Queries) GetTask(ctx context.Context, id int64) (models.Task, error) {
	row := q.q.QueryRowContext(ctx, "SELECT "+taskColumns+" FROM tasks WHERE id = ?", id)
	t, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Task{}, ErrNotFound
	}
	return t, err
}

// TaskExists reports whether a task row exists
func (q *Queries) TaskExists(ctx context.Context, id int64) (bool, error) {
	return q.exists(ctx, "SELECT 1 FROM tasks WHERE id = ?", id)
}

// UpdateTask writes every mutable field of t and bumps its version, but only
// if the stored version still equals expectedVersion. A lost race yields
// ErrStale; a missing row yields ErrNotFound.
func (q *Queries) UpdateTask(ctx context.Context, t models.Task, expectedVersion int64) error {
	result, err := q.q.ExecContext(ctx, `
		UPDATE tasks SET title = ?, description = ?, priority = ?, deadline = ?, started_at = ?,
			completed_at = ?, is_milestone = ?, assigned_to_user_id = ?, parent_task_id = ?,
			status_id = ?, version = version + 1, updated_at = ?
		WHERE id = ? AND version = ?
	`,
		t.Title, t.Description, int(t.Priority), nullMillis(t.Deadline), nullMillis(t.StartedAt),
		nullMillis(t.CompletedAt), t.IsMilestone, nullID(t.AssignedToUserID), nullID(t.ParentTaskID),
		t.StatusID, toMillis(t.UpdatedAt), t.ID, expectedVersion,
	)
	if err != nil {
		return fmt.Errorf("update task: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	found, err := q.TaskExists(ctx, t.ID)
	if err != nil {
		return err
	}
	if !found {
		return ErrNotFound
	}
	return ErrStale
}

// DeleteTask deletes a task; labels, watchers, comments and attachments
// cascade and children are detached
func (q *Queries) DeleteTask(ctx context.Context, id int64) error {
	result, err := q.q.ExecContext(ctx, "DELETE FROM tasks WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	return affected(result)
}

// ListTasks returns all tasks for a project, ordered by priority (desc) then created_at (desc)
func (q *Queries) ListTasks(ctx context.Context, projectID int64) ([]models.Task, error) {
	return q.listTasks(ctx, `
		SELECT `+taskColumns+` FROM tasks
		WHERE project_id = ?
		ORDER BY priority DESC, created_at DESC, id DESC
	`, projectID)
}

// ListChildTasks returns the immediate children of a task, oldest first
func (q *Queries) ListChildTasks(ctx context.Context, parentID int64) ([]models.Task, error) {
	return q.listTasks(ctx, `
		SELECT `+taskColumns+` FROM tasks
		WHERE parent_task_id = ?
		ORDER BY created_at ASC, id ASC
	`, parentID)
}

// ParentOf returns a task's parent ID, or nil for a root task
func (q *Queries) ParentOf(ctx context.Context, id int64) (*int64, error) {
	var parent sql.NullInt64
	err := q.q.QueryRowContext(ctx, "SELECT parent_task_id FROM tasks WHERE id = ?", id).Scan(&parent)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return idPtr(parent), nil
}

// TouchTask bumps a task's version and updated_at without other changes
func (q *Queries) TouchTask(ctx context.Context, id int64, now time.Time) error {
	result, err := q.q.ExecContext(ctx,
		"UPDATE tasks SET version = version + 1, updated_at = ? WHERE id = ?",
		toMillis(now), id,
	)
	if err != nil {
		return fmt.Errorf("touch task: %w", err)
	}
	return affected(result)
}

func (q *Queries) listTasks(ctx context.Context, query string, args ...any) ([]models.Task, error) {
	rows, err := q.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tasks []models.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

func scanTask(s scanner) (models.Task, error) {
	var t models.Task
	var priority int
	var deadline, startedAt, completedAt sql.NullInt64
	var assignee, parent sql.NullInt64
	var createdAt, updatedAt int64
	if err := s.Scan(
		&t.ID, &t.ProjectID, &t.Title, &t.Description, &priority, &deadline, &startedAt, &completedAt,
		&t.IsMilestone, &assignee, &t.CreatedByUserID, &parent, &t.StatusID, &t.Version,
		&createdAt, &updatedAt,
	); err != nil {
		return models.Task{}, err
	}
	t.Priority = models.Priority(priority)
	t.Deadline = timePtr(deadline)
	t.StartedAt = timePtr(startedAt)
	t.CompletedAt = timePtr(completedAt)
	t.AssignedToUserID = idPtr(assignee)
	t.ParentTaskID = idPtr(parent)
	t.CreatedAt = fromMillis(createdAt)
	t.UpdatedAt = fromMillis(updatedAt)
	return t, nil
}
