package lifecycle

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/tgienger/taskflow/internal/catalog"
	"github.com/tgienger/taskflow/internal/db"
	apperrors "github.com/tgienger/taskflow/internal/errors"
	"github.com/tgienger/taskflow/internal/models"
	"go.opentelemetry.io/otel/attribute"
)

// CreateInput describes a new task. A zero StatusID picks the project's
// default status.
type CreateInput struct {
	ProjectID        int64
	Title            string
	Description      string
	Priority         models.Priority
	Deadline         *time.Time
	IsMilestone      bool
	AssignedToUserID *int64
	ParentTaskID     *int64
	StatusID         int64
	LabelIDs         []int64
}

// CreateTask validates in, then inserts the task, uploads and records its
// attachments, links its labels, makes the actor a watcher and records the
// creation, all in one unit of work. If anything fails after an upload
// succeeded the blobs stored by this call are deleted again.
func (m *Manager) CreateTask(ctx context.Context, in CreateInput, actorID int64, uploads ...AttachmentUpload) (detail models.TaskDetail, err error) {
	const op = "lifecycle.CreateTask"
	ctx, span := m.startSpan(ctx, op,
		attribute.Int64("project.id", in.ProjectID),
		attribute.Int("attachments", len(uploads)),
	)
	defer func() { endSpan(span, err) }()

	title := strings.TrimSpace(in.Title)
	if title == "" {
		return models.TaskDetail{}, apperrors.Invalid("task title is required")
	}
	if !in.Priority.Valid() {
		return models.TaskDetail{}, apperrors.Invalid("unknown priority %d", int(in.Priority))
	}
	if err := validateUploads(uploads); err != nil {
		return models.TaskDetail{}, err
	}
	if err := m.requireProject(ctx, in.ProjectID); err != nil {
		return models.TaskDetail{}, err
	}
	if err := m.requireUser(ctx, "actor", actorID); err != nil {
		return models.TaskDetail{}, err
	}
	if in.AssignedToUserID != nil {
		if err := m.requireUser(ctx, "assignee", *in.AssignedToUserID); err != nil {
			return models.TaskDetail{}, err
		}
	}

	now := m.now()
	batch := &uploadBatch{}
	var taskID int64
	err = m.db.RunInTx(ctx, func(q *db.Queries) error {
		status, err := m.initialStatus(ctx, q, in.ProjectID, in.StatusID)
		if err != nil {
			return err
		}
		if in.ParentTaskID != nil {
			parent, err := loadTask(ctx, q, *in.ParentTaskID)
			if err != nil {
				return err
			}
			if parent.ProjectID != in.ProjectID {
				return apperrors.Invalid("parent task %d belongs to another project", parent.ID)
			}
		}
		labelIDs, err := catalog.ResolveLabels(ctx, q, in.ProjectID, in.LabelIDs)
		if err != nil {
			return err
		}

		task := models.Task{
			ProjectID:        in.ProjectID,
			Title:            title,
			Description:      in.Description,
			Priority:         in.Priority,
			Deadline:         utcPtr(in.Deadline),
			IsMilestone:      in.IsMilestone,
			AssignedToUserID: in.AssignedToUserID,
			CreatedByUserID:  actorID,
			ParentTaskID:     in.ParentTaskID,
			StatusID:         status.ID,
			CreatedAt:        now,
			UpdatedAt:        now,
		}
		applyTransition(&task, status, now)
		if task.ID, err = q.InsertTask(ctx, task); err != nil {
			return err
		}
		taskID = task.ID

		for _, up := range uploads {
			if _, err := m.store(ctx, q, batch, task, actorID, up); err != nil {
				return err
			}
		}
		for _, id := range labelIDs {
			if _, err := q.AddTaskLabel(ctx, task.ID, id); err != nil {
				return err
			}
		}
		if _, err := q.AddWatcher(ctx, task.ID, actorID, now); err != nil {
			return err
		}
		return m.audit.Record(ctx, q, task.ID, actorID, models.ActionCreated)
	})
	if err != nil {
		m.compensate(ctx, op, batch, err)
		return models.TaskDetail{}, fmt.Errorf("create task: %w", err)
	}

	span.SetAttributes(attribute.Int64("task.id", taskID))
	m.logFor(ctx, op).WithFields(logrus.Fields{
		"task_id":    taskID,
		"project_id": in.ProjectID,
	}).Debug("task created")
	return m.views.Detail(ctx, taskID)
}

func (m *Manager) initialStatus(ctx context.Context, q *db.Queries, projectID, statusID int64) (models.Status, error) {
	if statusID == 0 {
		return catalog.DefaultStatus(ctx, q, projectID)
	}
	return catalog.ResolveStatus(ctx, q, projectID, statusID)
}

// applyTransition stamps the write-once lifecycle timestamps for entering
// status.
func applyTransition(t *models.Task, status models.Status, now time.Time) {
	if status.Kind == models.StatusInProgress && t.StartedAt == nil {
		started := now
		t.StartedAt = &started
	}
	if status.IsCompleted() && t.CompletedAt == nil {
		completed := now
		t.CompletedAt = &completed
	}
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
