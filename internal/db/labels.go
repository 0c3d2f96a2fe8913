package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/tgienger/taskflow/internal/models"
)

const labelColumns = "id, name, color, project_id, created_at"

// InsertLabel creates a label. A name already used in the same scope yields
// ErrAlreadyExists.
func (q *Queries) InsertLabel(ctx context.Context, l models.Label) (models.Label, error) {
	result, err := q.q.ExecContext(ctx,
		"INSERT INTO labels (name, color, project_id, created_at) VALUES (?, ?, ?, ?)",
		l.Name, l.Color, nullID(l.ProjectID), toMillis(l.CreatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return models.Label{}, ErrAlreadyExists
		}
		return models.Label{}, fmt.Errorf("insert label: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return models.Label{}, err
	}
	return q.GetLabel(ctx, id)
}

// GetLabel retrieves a label by ID
func (q *Queries) GetLabel(ctx context.Context, id int64) (models.Label, error) {
	row := q.q.QueryRowContext(ctx, "SELECT "+labelColumns+" FROM labels WHERE id = ?", id)
	l, err := scanLabel(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Label{}, ErrNotFound
	}
	return l, err
}

// GetLabelByName retrieves a label by its name (case-insensitive) within one scope
func (q *Queries) GetLabelByName(ctx context.Context, projectID *int64, name string) (models.Label, error) {
	row := q.q.QueryRowContext(ctx,
		"SELECT "+labelColumns+" FROM labels WHERE project_id IS ? AND LOWER(name) = LOWER(?)",
		nullID(projectID), strings.TrimSpace(name),
	)
	l, err := scanLabel(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Label{}, ErrNotFound
	}
	return l, err
}

// ListLabels returns the labels visible to a project (its own plus global)
// ordered by name. projectID 0 lists only global labels.
func (q *Queries) ListLabels(ctx context.Context, projectID int64) ([]models.Label, error) {
	query := "SELECT " + labelColumns + " FROM labels WHERE project_id IS NULL"
	args := []any{}
	if projectID != 0 {
		query += " OR project_id = ?"
		args = append(args, projectID)
	}
	query += " ORDER BY name COLLATE NOCASE, id"

	rows, err := q.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var labels []models.Label
	for rows.Next() {
		l, err := scanLabel(rows)
		if err != nil {
			return nil, err
		}
		labels = append(labels, l)
	}
	return labels, rows.Err()
}

// UpdateLabel renames or recolours a label
func (q *Queries) UpdateLabel(ctx context.Context, l models.Label) error {
	result, err := q.q.ExecContext(ctx, "UPDATE labels SET name = ?, color = ? WHERE id = ?", l.Name, l.Color, l.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrAlreadyExists
		}
		return fmt.Errorf("update label: %w", err)
	}
	return affected(result)
}

// DeleteLabel deletes a label; its task associations cascade
func (q *Queries) DeleteLabel(ctx context.Context, id int64) error {
	result, err := q.q.ExecContext(ctx, "DELETE FROM labels WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete label: %w", err)
	}
	return affected(result)
}

// GetTaskLabels returns all labels for a task
func (q *Queries) GetTaskLabels(ctx context.Context, taskID int64) ([]models.Label, error) {
	rows, err := q.q.QueryContext(ctx, `
		SELECT l.id, l.name, l.color, l.project_id, l.created_at
		FROM labels l
		JOIN task_labels tl ON l.id = tl.label_id
		WHERE tl.task_id = ?
		ORDER BY l.name COLLATE NOCASE, l.id
	`, taskID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var labels []models.Label
	for rows.Next() {
		l, err := scanLabel(rows)
		if err != nil {
			return nil, err
		}
		labels = append(labels, l)
	}
	return labels, rows.Err()
}

// GetLabelNamesForTasks fetches label names for many tasks in one query
func (q *Queries) GetLabelNamesForTasks(ctx context.Context, taskIDs []int64) (map[int64][]string, error) {
	result := make(map[int64][]string, len(taskIDs))
	if len(taskIDs) == 0 {
		return result, nil
	}

	placeholders := make([]string, len(taskIDs))
	args := make([]any, len(taskIDs))
	for i, id := range taskIDs {
		placeholders[i] = "?"
		args[i] = id
	}
	rows, err := q.q.QueryContext(ctx, `
		SELECT tl.task_id, l.name
		FROM task_labels tl
		JOIN labels l ON l.id = tl.label_id
		WHERE tl.task_id IN (`+strings.Join(placeholders, ",")+`)
		ORDER BY tl.task_id, l.name COLLATE NOCASE
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("get labels for tasks: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var taskID int64
		var name string
		if err := rows.Scan(&taskID, &name); err != nil {
			return nil, err
		}
		result[taskID] = append(result[taskID], name)
	}
	return result, rows.Err()
}

// AddTaskLabel links a label to a task. It reports false when the link
// already existed.
func (q *Queries) AddTaskLabel(ctx context.Context, taskID, labelID int64) (bool, error) {
	result, err := q.q.ExecContext(ctx,
		"INSERT OR IGNORE INTO task_labels (task_id, label_id) VALUES (?, ?)",
		taskID, labelID,
	)
	if err != nil {
		return false, fmt.Errorf("add task label: %w", err)
	}
	n, err := result.RowsAffected()
	return n > 0, err
}

// RemoveTaskLabel unlinks a label from a task. It reports false when there
// was no link.
func (q *Queries) RemoveTaskLabel(ctx context.Context, taskID, labelID int64) (bool, error) {
	result, err := q.q.ExecContext(ctx, "DELETE FROM task_labels WHERE task_id = ? AND label_id = ?", taskID, labelID)
	if err != nil {
		return false, fmt.Errorf("remove task label: %w", err)
	}
	n, err := result.RowsAffected()
	return n > 0, err
}

func scanLabel(s scanner) (models.Label, error) {
	var l models.Label
	var projectID sql.NullInt64
	var createdAt int64
	if err := s.Scan(&l.ID, &l.Name, &l.Color, &projectID, &createdAt); err != nil {
		return models.Label{}, err
	}
	l.ProjectID = idPtr(projectID)
	l.CreatedAt = fromMillis(createdAt)
	return l, nil
}
