package lifecycle

import (
	"context"
	"fmt"

	"github.com/tgienger/taskflow/internal/db"
	"github.com/tgienger/taskflow/internal/models"
	"go.opentelemetry.io/otel/attribute"
)

// DeleteTask records a Deleted entry and removes the task. Its comments,
// labels, watchers and attachment rows go with it, its children become
// roots, and the blobs of its attachments are deleted best effort once the
// removal commits. The audit trail stays readable.
func (m *Manager) DeleteTask(ctx context.Context, taskID, actorID int64) (err error) {
	const op = "lifecycle.DeleteTask"
	ctx, span := m.startSpan(ctx, op, attribute.Int64("task.id", taskID))
	defer func() { endSpan(span, err) }()

	var attachments []models.Attachment
	err = m.db.RunInTx(ctx, func(q *db.Queries) error {
		if _, err := loadTask(ctx, q, taskID); err != nil {
			return err
		}
		var err error
		if attachments, err = q.GetTaskAttachments(ctx, taskID); err != nil {
			return err
		}
		if err := m.audit.Record(ctx, q, taskID, actorID, models.ActionDeleted); err != nil {
			return err
		}
		return q.DeleteTask(ctx, taskID)
	})
	if err != nil {
		return fmt.Errorf("delete task %d: %w", taskID, err)
	}

	if m.blobs != nil && len(attachments) > 0 {
		cleanup := context.WithoutCancel(ctx)
		log := m.logFor(ctx, op).WithField("task_id", taskID)
		for _, att := range attachments {
			m.discardBlob(cleanup, log, att.StorageKey, fmt.Sprintf("task %d deleted", taskID))
		}
	}
	return nil
}
