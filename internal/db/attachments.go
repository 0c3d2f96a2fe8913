package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/tgienger/taskflow/internal/models"
)

const attachmentColumns = "id, task_id, file_name, storage_key, file_size, content_type, uploaded_by_user_id, uploaded_at"

// InsertAttachment records an uploaded file against a task
func (q *Queries) InsertAttachment(ctx context.Context, a models.Attachment) (models.Attachment, error) {
	result, err := q.q.ExecContext(ctx, `
		INSERT INTO attachments (task_id, file_name, storage_key, file_size, content_type, uploaded_by_user_id, uploaded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, a.TaskID, a.FileName, a.StorageKey, a.FileSize, a.ContentType, a.UploadedByUserID, toMillis(a.UploadedAt))
	if err != nil {
		return models.Attachment{}, fmt.Errorf("insert attachment: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return models.Attachment{}, err
	}
	a.ID = id
	a.UploadedAt = a.UploadedAt.UTC()
	return a, nil
}

// GetAttachment retrieves an attachment by ID
func (q *Queries) GetAttachment(ctx context.Context, id int64) (models.Attachment, error) {
	row := q.q.QueryRowContext(ctx, "SELECT "+attachmentColumns+" FROM attachments WHERE id = ?", id)
	a, err := scanAttachment(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Attachment{}, ErrNotFound
	}
	return a, err
}

// GetTaskAttachments returns a task's attachments in upload order
func (q *Queries) GetTaskAttachments(ctx context.Context, taskID int64) ([]models.Attachment, error) {
	rows, err := q.q.QueryContext(ctx, `
		SELECT `+attachmentColumns+`
		FROM attachments
		WHERE task_id = ?
		ORDER BY uploaded_at ASC, id ASC
	`, taskID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var attachments []models.Attachment
	for rows.Next() {
		a, err := scanAttachment(rows)
		if err != nil {
			return nil, err
		}
		attachments = append(attachments, a)
	}
	return attachments, rows.Err()
}

// DeleteAttachment deletes an attachment row
func (q *Queries) DeleteAttachment(ctx context.Context, id int64) error {
	result, err := q.q.ExecContext(ctx, "DELETE FROM attachments WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete attachment: %w", err)
	}
	return affected(result)
}

func scanAttachment(s scanner) (models.Attachment, error) {
	var a models.Attachment
	var uploadedAt int64
	if err := s.Scan(&a.ID, &a.TaskID, &a.FileName, &a.StorageKey, &a.FileSize, &a.ContentType, &a.UploadedByUserID, &uploadedAt); err != nil {
		return models.Attachment{}, err
	}
	a.UploadedAt = fromMillis(uploadedAt)
	return a, nil
}
