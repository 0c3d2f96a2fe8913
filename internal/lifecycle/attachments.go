package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/tgienger/taskflow/internal/audit"
	"github.com/tgienger/taskflow/internal/blob"
	"github.com/tgienger/taskflow/internal/db"
	apperrors "github.com/tgienger/taskflow/internal/errors"
	"github.com/tgienger/taskflow/internal/models"
	"go.opentelemetry.io/otel/attribute"
)

// AttachmentUpload is a file to store with a task. A zero Size is replaced
// by the number of bytes read from Body.
type AttachmentUpload struct {
	FileName    string
	ContentType string
	Size        int64
	Body        io.Reader
}

// uploadBatch tracks the blobs stored during one unit of work so they can be
// removed if it rolls back.
type uploadBatch struct {
	keys []string
}

func validateUploads(uploads []AttachmentUpload) error {
	for i, up := range uploads {
		if strings.TrimSpace(up.FileName) == "" {
			return apperrors.Invalid("attachment %d has no file name", i+1)
		}
		if up.Body == nil {
			return apperrors.Invalid("attachment %q has no content", up.FileName)
		}
	}
	return nil
}

// store uploads one file for a task and records its row and audit entry.
func (m *Manager) store(ctx context.Context, q *db.Queries, batch *uploadBatch, task models.Task, actorID int64, up AttachmentUpload) (models.Attachment, error) {
	if m.blobs == nil {
		return models.Attachment{}, apperrors.New(apperrors.CodeUploadFailed, "no blob store configured")
	}

	body := &countingReader{r: up.Body}
	key, err := m.blobs.Upload(ctx, body, up.FileName, up.ContentType, blob.TaskScope(task.ProjectID, task.ID))
	if err != nil {
		return models.Attachment{}, apperrors.Wrap(apperrors.CodeUploadFailed, fmt.Sprintf("upload %q failed", up.FileName), err)
	}
	batch.keys = append(batch.keys, key)

	size := up.Size
	if size == 0 {
		size = body.n
	}
	att, err := q.InsertAttachment(ctx, models.Attachment{
		TaskID:           task.ID,
		FileName:         up.FileName,
		StorageKey:       key,
		FileSize:         size,
		ContentType:      up.ContentType,
		UploadedByUserID: actorID,
		UploadedAt:       m.now(),
	})
	if err != nil {
		return models.Attachment{}, err
	}
	err = m.audit.RecordValue(ctx, q, task.ID, actorID, models.ActionAttachmentAdded, audit.Change{
		Field: "attachment",
		New:   att.FileName,
	})
	if err != nil {
		return models.Attachment{}, err
	}
	return att, nil
}

// compensate deletes the blobs of a rolled back unit of work. Deletes that
// fail are logged and recorded as orphans; cause is never replaced.
func (m *Manager) compensate(ctx context.Context, op string, batch *uploadBatch, cause error) {
	if len(batch.keys) == 0 {
		return
	}
	ctx = context.WithoutCancel(ctx)
	log := m.logFor(ctx, op).WithField("cause", cause.Error())
	for _, key := range batch.keys {
		m.discardBlob(ctx, log, key, fmt.Sprintf("%s rolled back", op))
	}
}

// discardBlob deletes a blob no row references any more, recording it as an
// orphan when the delete fails.
func (m *Manager) discardBlob(ctx context.Context, log *logrus.Entry, key, reason string) {
	err := m.blobs.Delete(ctx, key)
	if err == nil {
		return
	}
	log = log.WithField("storage_key", key)
	log.WithError(err).Warn("blob delete failed, recording orphan")
	if err := m.db.RecordOrphanBlob(ctx, key, reason, m.now()); err != nil {
		log.WithError(err).Error("record orphan blob failed")
	}
}

// AddAttachment uploads a file to an existing task. A failure after the
// upload rolls back and deletes the stored blob.
func (m *Manager) AddAttachment(ctx context.Context, taskID, actorID int64, up AttachmentUpload) (att models.Attachment, err error) {
	const op = "lifecycle.AddAttachment"
	ctx, span := m.startSpan(ctx, op, attribute.Int64("task.id", taskID), attribute.String("file.name", up.FileName))
	defer func() { endSpan(span, err) }()

	if err := validateUploads([]AttachmentUpload{up}); err != nil {
		return models.Attachment{}, err
	}

	batch := &uploadBatch{}
	err = m.db.RunInTx(ctx, func(q *db.Queries) error {
		task, err := loadTask(ctx, q, taskID)
		if err != nil {
			return err
		}
		if att, err = m.store(ctx, q, batch, task, actorID, up); err != nil {
			return err
		}
		return q.TouchTask(ctx, taskID, m.now())
	})
	if err != nil {
		m.compensate(ctx, op, batch, err)
		return models.Attachment{}, fmt.Errorf("add attachment to task %d: %w", taskID, err)
	}
	return att, nil
}

// RemoveAttachment deletes an attachment row and then, best effort, its blob.
func (m *Manager) RemoveAttachment(ctx context.Context, attachmentID, actorID int64) (err error) {
	const op = "lifecycle.RemoveAttachment"
	ctx, span := m.startSpan(ctx, op, attribute.Int64("attachment.id", attachmentID))
	defer func() { endSpan(span, err) }()

	var removed models.Attachment
	err = m.db.RunInTx(ctx, func(q *db.Queries) error {
		att, err := q.GetAttachment(ctx, attachmentID)
		if errors.Is(err, db.ErrNotFound) {
			return apperrors.NotFound("attachment", attachmentID)
		}
		if err != nil {
			return err
		}
		if err := q.DeleteAttachment(ctx, attachmentID); err != nil {
			return err
		}
		err = m.audit.RecordValue(ctx, q, att.TaskID, actorID, models.ActionAttachmentRemoved, audit.Change{
			Field: "attachment",
			Old:   att.FileName,
		})
		if err != nil {
			return err
		}
		removed = att
		return q.TouchTask(ctx, att.TaskID, m.now())
	})
	if err != nil {
		return fmt.Errorf("remove attachment %d: %w", attachmentID, err)
	}

	if m.blobs != nil {
		m.discardBlob(context.WithoutCancel(ctx), m.logFor(ctx, op), removed.StorageKey, "attachment removed")
	}
	return nil
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}
