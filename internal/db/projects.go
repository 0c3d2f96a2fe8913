package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/tgienger/taskflow/internal/models"
)

// CreateProject creates a new project
func (q *Queries) CreateProject(ctx context.Context, title, description string, now time.Time) (models.Project, error) {
	result, err := q.q.ExecContext(ctx, `
		INSERT INTO projects (title, description, created_at, updated_at) VALUES (?, ?, ?, ?)
	`, title, description, toMillis(now), toMillis(now))
	if err != nil {
		return models.Project{}, fmt.Errorf("create project: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return models.Project{}, err
	}
	return q.GetProject(ctx, id)
}

// GetProject retrieves a project by ID
func (q *Queries) GetProject(ctx context.Context, id int64) (models.Project, error) {
	row := q.q.QueryRowContext(ctx, `
		SELECT id, title, description, created_at, updated_at
		FROM projects WHERE id = ?
	`, id)
	p, err := scanProject(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Project{}, ErrNotFound
	}
	return p, err
}

// ListProjects returns all projects, most recently updated first
func (q *Queries) ListProjects(ctx context.Context) ([]models.Project, error) {
	rows, err := q.q.QueryContext(ctx, `
		SELECT id, title, description, created_at, updated_at
		FROM projects ORDER BY updated_at DESC, id DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var projects []models.Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

// ProjectExists implements the project directory check
func (q *Queries) ProjectExists(ctx context.Context, id int64) (bool, error) {
	return q.exists(ctx, "SELECT 1 FROM projects WHERE id = ?", id)
}

func scanProject(s scanner) (models.Project, error) {
	var p models.Project
	var createdAt, updatedAt int64
	if err := s.Scan(&p.ID, &p.Title, &p.Description, &createdAt, &updatedAt); err != nil {
		return models.Project{}, err
	}
	p.CreatedAt = fromMillis(createdAt)
	p.UpdatedAt = fromMillis(updatedAt)
	return p, nil
}
