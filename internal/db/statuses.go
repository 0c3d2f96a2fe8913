package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/tgienger/taskflow/internal/models"
)

const statusColumns = "id, name, color, sort_order, is_default, kind, project_id, created_at"

// InsertStatus creates a status and returns it with its new ID
func (q *Queries) InsertStatus(ctx context.Context, s models.Status) (models.Status, error) {
	result, err := q.q.ExecContext(ctx, `
		INSERT INTO statuses (name, color, sort_order, is_default, kind, project_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, s.Name, s.Color, s.Order, s.IsDefault, string(s.Kind), nullID(s.ProjectID), toMillis(s.CreatedAt))
	if err != nil {
		return models.Status{}, fmt.Errorf("insert status: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return models.Status{}, err
	}
	return q.GetStatus(ctx, id)
}

// GetStatus retrieves a status by ID
func (q *Queries) GetStatus(ctx context.Context, id int64) (models.Status, error) {
	row := q.q.QueryRowContext(ctx, "SELECT "+statusColumns+" FROM statuses WHERE id = ?", id)
	s, err := scanStatus(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Status{}, ErrNotFound
	}
	return s, err
}

// GetStatusByName finds a status by name (case-insensitive) in exactly one scope
func (q *Queries) GetStatusByName(ctx context.Context, projectID *int64, name string) (models.Status, error) {
	row := q.q.QueryRowContext(ctx,
		"SELECT "+statusColumns+" FROM statuses WHERE project_id IS ? AND LOWER(name) = LOWER(?)",
		nullID(projectID), strings.TrimSpace(name),
	)
	s, err := scanStatus(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Status{}, ErrNotFound
	}
	return s, err
}

// ListStatuses returns the statuses visible to a project (its own plus the
// global ones) ordered for display. projectID 0 lists only global statuses.
func (q *Queries) ListStatuses(ctx context.Context, projectID int64) ([]models.Status, error) {
	query := "SELECT " + statusColumns + " FROM statuses WHERE project_id IS NULL"
	args := []any{}
	if projectID != 0 {
		query += " OR project_id = ?"
		args = append(args, projectID)
	}
	query += " ORDER BY sort_order ASC, id ASC"

	rows, err := q.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var statuses []models.Status
	for rows.Next() {
		s, err := scanStatus(rows)
		if err != nil {
			return nil, err
		}
		statuses = append(statuses, s)
	}
	return statuses, rows.Err()
}

// UpdateStatus updates a status's mutable fields
func (q *Queries) UpdateStatus(ctx context.Context, s models.Status) error {
	result, err := q.q.ExecContext(ctx, `
		UPDATE statuses SET name = ?, color = ?, sort_order = ?, is_default = ?, kind = ?
		WHERE id = ?
	`, s.Name, s.Color, s.Order, s.IsDefault, string(s.Kind), s.ID)
	if err != nil {
		return fmt.Errorf("update status: %w", err)
	}
	return affected(result)
}

// ClearDefaultStatus drops the default flag from every other status in the scope
func (q *Queries) ClearDefaultStatus(ctx context.Context, projectID *int64, keepID int64) error {
	_, err := q.q.ExecContext(ctx,
		"UPDATE statuses SET is_default = 0 WHERE project_id IS ? AND id <> ?",
		nullID(projectID), keepID,
	)
	return err
}

// DeleteStatus deletes a status
func (q *Queries) DeleteStatus(ctx context.Context, id int64) error {
	result, err := q.q.ExecContext(ctx, "DELETE FROM statuses WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete status: %w", err)
	}
	return affected(result)
}

// CountTasksWithStatus returns how many tasks currently sit in a status
func (q *Queries) CountTasksWithStatus(ctx context.Context, statusID int64) (int, error) {
	var count int
	err := q.q.QueryRowContext(ctx, "SELECT COUNT(*) FROM tasks WHERE status_id = ?", statusID).Scan(&count)
	return count, err
}

func scanStatus(s scanner) (models.Status, error) {
	var st models.Status
	var kind string
	var projectID sql.NullInt64
	var createdAt int64
	if err := s.Scan(&st.ID, &st.Name, &st.Color, &st.Order, &st.IsDefault, &kind, &projectID, &createdAt); err != nil {
		return models.Status{}, err
	}
	st.Kind = models.StatusKind(kind)
	st.ProjectID = idPtr(projectID)
	st.CreatedAt = fromMillis(createdAt)
	return st, nil
}
