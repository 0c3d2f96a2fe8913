package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/tgienger/taskflow/internal/models"
)

const commentColumns = "id, task_id, user_id, content, is_edited, created_at, updated_at"

// CreateComment creates a new comment on a task
func (q *Queries) CreateComment(ctx context.Context, taskID, userID int64, content string, now time.Time) (models.Comment, error) {
	result, err := q.q.ExecContext(ctx, `
		INSERT INTO comments (task_id, user_id, content, created_at) VALUES (?, ?, ?, ?)
	`, taskID, userID, content, toMillis(now))
	if err != nil {
		return models.Comment{}, fmt.Errorf("create comment: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return models.Comment{}, err
	}
	return q.GetComment(ctx, id)
}

// GetComment retrieves a comment by ID
func (q *Queries) GetComment(ctx context.Context, id int64) (models.Comment, error) {
	row := q.q.QueryRowContext(ctx, "SELECT "+commentColumns+" FROM comments WHERE id = ?", id)
	c, err := scanComment(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Comment{}, ErrNotFound
	}
	return c, err
}

// CountTaskComments returns how many comments a task has
func (q *Queries) CountTaskComments(ctx context.Context, taskID int64) (int, error) {
	var n int
	err := q.q.QueryRowContext(ctx, "SELECT COUNT(*) FROM comments WHERE task_id = ?", taskID).Scan(&n)
	return n, err
}

// GetTaskComments retrieves all comments for a task, ordered by creation time (oldest first)
func (q *Queries) GetTaskComments(ctx context.Context, taskID int64) ([]models.Comment, error) {
	rows, err := q.q.QueryContext(ctx, `
		SELECT `+commentColumns+`
		FROM comments
		WHERE task_id = ?
		ORDER BY created_at ASC, id ASC
	`, taskID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var comments []models.Comment
	for rows.Next() {
		c, err := scanComment(rows)
		if err != nil {
			return nil, err
		}
		comments = append(comments, c)
	}
	return comments, rows.Err()
}

// EditComment replaces a comment's content and marks it edited
func (q *Queries) EditComment(ctx context.Context, id int64, content string, now time.Time) error {
	result, err := q.q.ExecContext(ctx,
		"UPDATE comments SET content = ?, is_edited = 1, updated_at = ? WHERE id = ?",
		content, toMillis(now), id,
	)
	if err != nil {
		return fmt.Errorf("edit comment: %w", err)
	}
	return affected(result)
}

// DeleteComment deletes a comment
func (q *Queries) DeleteComment(ctx context.Context, id int64) error {
	result, err := q.q.ExecContext(ctx, "DELETE FROM comments WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete comment: %w", err)
	}
	return affected(result)
}

func scanComment(s scanner) (models.Comment, error) {
	var c models.Comment
	var createdAt int64
	var updatedAt sql.NullInt64
	if err := s.Scan(&c.ID, &c.TaskID, &c.UserID, &c.Content, &c.IsEdited, &createdAt, &updatedAt); err != nil {
		return models.Comment{}, err
	}
	c.CreatedAt = fromMillis(createdAt)
	c.UpdatedAt = timePtr(updatedAt)
	return c, nil
}
