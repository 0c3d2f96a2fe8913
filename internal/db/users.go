package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/tgienger/taskflow/internal/models"
)

// CreateUser creates a new user
func (q *Queries) CreateUser(ctx context.Context, name, email string, now time.Time) (models.User, error) {
	result, err := q.q.ExecContext(ctx,
		"INSERT INTO users (name, email, created_at) VALUES (?, ?, ?)",
		name, email, toMillis(now),
	)
	if err != nil {
		return models.User{}, fmt.Errorf("create user: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return models.User{}, err
	}
	return q.GetUser(ctx, id)
}

// GetUser retrieves a user by ID
func (q *Queries) GetUser(ctx context.Context, id int64) (models.User, error) {
	var u models.User
	var createdAt int64
	err := q.q.QueryRowContext(ctx, "SELECT id, name, email, created_at FROM users WHERE id = ?", id).
		Scan(&u.ID, &u.Name, &u.Email, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, ErrNotFound
	}
	if err != nil {
		return models.User{}, err
	}
	u.CreatedAt = fromMillis(createdAt)
	return u, nil
}

// ListUsers returns all users by name
func (q *Queries) ListUsers(ctx context.Context) ([]models.User, error) {
	rows, err := q.q.QueryContext(ctx, "SELECT id, name, email, created_at FROM users ORDER BY name, id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		var u models.User
		var createdAt int64
		if err := rows.Scan(&u.ID, &u.Name, &u.Email, &createdAt); err != nil {
			return nil, err
		}
		u.CreatedAt = fromMillis(createdAt)
		users = append(users, u)
	}
	return users, rows.Err()
}

// UserExists implements the user directory check
func (q *Queries) UserExists(ctx context.Context, id int64) (bool, error) {
	return q.exists(ctx, "SELECT 1 FROM users WHERE id = ?", id)
}
