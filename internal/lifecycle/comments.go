package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/tgienger/taskflow/internal/audit"
	"github.com/tgienger/taskflow/internal/db"
	apperrors "github.com/tgienger/taskflow/internal/errors"
	"github.com/tgienger/taskflow/internal/models"
	"go.opentelemetry.io/otel/attribute"
)

// AddComment posts a comment on a task as actorID.
func (m *Manager) AddComment(ctx context.Context, taskID, actorID int64, content string) (comment models.Comment, err error) {
	const op = "lifecycle.AddComment"
	ctx, span := m.startSpan(ctx, op, attribute.Int64("task.id", taskID))
	defer func() { endSpan(span, err) }()

	if strings.TrimSpace(content) == "" {
		return models.Comment{}, apperrors.Invalid("comment content is required")
	}
	if err := m.requireUser(ctx, "author", actorID); err != nil {
		return models.Comment{}, err
	}

	err = m.db.RunInTx(ctx, func(q *db.Queries) error {
		if _, err := loadTask(ctx, q, taskID); err != nil {
			return err
		}
		prior, err := q.CountTaskComments(ctx, taskID)
		if err != nil {
			return err
		}
		if comment, err = q.CreateComment(ctx, taskID, actorID, content, m.now()); err != nil {
			return err
		}
		if !m.audit.Policy().CommentAdded(prior) {
			return nil
		}
		return m.audit.Record(ctx, q, taskID, actorID, models.ActionCommentAdded)
	})
	if err != nil {
		return models.Comment{}, fmt.Errorf("add comment to task %d: %w", taskID, err)
	}
	return comment, nil
}

// EditComment replaces a comment's content. Only its author may edit it.
func (m *Manager) EditComment(ctx context.Context, commentID, actorID int64, content string) (comment models.Comment, err error) {
	const op = "lifecycle.EditComment"
	ctx, span := m.startSpan(ctx, op, attribute.Int64("comment.id", commentID))
	defer func() { endSpan(span, err) }()

	if strings.TrimSpace(content) == "" {
		return models.Comment{}, apperrors.Invalid("comment content is required")
	}

	err = m.db.RunInTx(ctx, func(q *db.Queries) error {
		current, err := authoredComment(ctx, q, commentID, actorID)
		if err != nil {
			return err
		}
		if err := q.EditComment(ctx, commentID, content, m.now()); err != nil {
			return err
		}
		err = m.audit.RecordValue(ctx, q, current.TaskID, actorID, models.ActionCommentEdited, audit.Change{
			Field: "comment",
			Old:   current.Content,
			New:   content,
		})
		if err != nil {
			return err
		}
		comment, err = q.GetComment(ctx, commentID)
		return err
	})
	if err != nil {
		return models.Comment{}, fmt.Errorf("edit comment %d: %w", commentID, err)
	}
	return comment, nil
}

// DeleteComment removes a comment. Only its author may delete it.
func (m *Manager) DeleteComment(ctx context.Context, commentID, actorID int64) (err error) {
	const op = "lifecycle.DeleteComment"
	ctx, span := m.startSpan(ctx, op, attribute.Int64("comment.id", commentID))
	defer func() { endSpan(span, err) }()

	err = m.db.RunInTx(ctx, func(q *db.Queries) error {
		current, err := authoredComment(ctx, q, commentID, actorID)
		if err != nil {
			return err
		}
		if err := q.DeleteComment(ctx, commentID); err != nil {
			return err
		}
		return m.audit.RecordValue(ctx, q, current.TaskID, actorID, models.ActionCommentDeleted, audit.Change{
			Field: "comment",
			Old:   current.Content,
		})
	})
	if err != nil {
		return fmt.Errorf("delete comment %d: %w", commentID, err)
	}
	return nil
}

// ListComments returns a task's comments, oldest first.
func (m *Manager) ListComments(ctx context.Context, taskID int64) ([]models.Comment, error) {
	if _, err := loadTask(ctx, m.db.Queries, taskID); err != nil {
		return nil, err
	}
	return m.db.GetTaskComments(ctx, taskID)
}

func authoredComment(ctx context.Context, q *db.Queries, commentID, actorID int64) (models.Comment, error) {
	c, err := q.GetComment(ctx, commentID)
	if errors.Is(err, db.ErrNotFound) {
		return models.Comment{}, apperrors.NotFound("comment", commentID)
	}
	if err != nil {
		return models.Comment{}, err
	}
	if c.UserID != actorID {
		return models.Comment{}, apperrors.WithMetadata(apperrors.CodeUnauthorized,
			fmt.Sprintf("user %d is not the author of comment %d", actorID, commentID),
			map[string]string{"entity": "comment"},
		)
	}
	return c, nil
}
