package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/tgienger/taskflow/internal/audit"
	"github.com/tgienger/taskflow/internal/catalog"
	"github.com/tgienger/taskflow/internal/db"
	apperrors "github.com/tgienger/taskflow/internal/errors"
	"github.com/tgienger/taskflow/internal/models"
	"go.opentelemetry.io/otel/attribute"
)

// UpdateInput holds the full set of editable task fields. Version must equal
// the task's current version. A zero StatusID keeps the current status.
type UpdateInput struct {
	Title            string
	Description      string
	Priority         models.Priority
	Deadline         *time.Time
	IsMilestone      bool
	AssignedToUserID *int64
	StatusID         int64
	LabelIDs         []int64
	Version          int64
}

// UpdateFrom returns the UpdateInput that leaves task unchanged, a starting
// point for edits.
func UpdateFrom(detail models.TaskDetail) UpdateInput {
	labels := make([]int64, len(detail.Labels))
	for i, l := range detail.Labels {
		labels[i] = l.ID
	}
	return UpdateInput{
		Title:            detail.Title,
		Description:      detail.Description,
		Priority:         detail.Priority,
		Deadline:         detail.Deadline,
		IsMilestone:      detail.IsMilestone,
		AssignedToUserID: detail.AssignedToUserID,
		StatusID:         detail.StatusID,
		LabelIDs:         labels,
		Version:          detail.Version,
	}
}

// UpdateTask applies in to a task, records one Updated entry per changed
// field and reconciles its labels to exactly in.LabelIDs. Entering an
// in-progress or done status stamps startedAt or completedAt once.
func (m *Manager) UpdateTask(ctx context.Context, taskID int64, in UpdateInput, actorID int64) (detail models.TaskDetail, err error) {
	const op = "lifecycle.UpdateTask"
	ctx, span := m.startSpan(ctx, op, attribute.Int64("task.id", taskID))
	defer func() { endSpan(span, err) }()

	title := strings.TrimSpace(in.Title)
	if title == "" {
		return models.TaskDetail{}, apperrors.Invalid("task title is required")
	}
	if !in.Priority.Valid() {
		return models.TaskDetail{}, apperrors.Invalid("unknown priority %d", int(in.Priority))
	}
	if in.AssignedToUserID != nil {
		if err := m.requireUser(ctx, "assignee", *in.AssignedToUserID); err != nil {
			return models.TaskDetail{}, err
		}
	}

	err = m.db.RunInTx(ctx, func(q *db.Queries) error {
		current, err := loadTask(ctx, q, taskID)
		if err != nil {
			return err
		}
		if in.Version != current.Version {
			return staleVersion(taskID, in.Version, current.Version)
		}

		oldStatus, err := q.GetStatus(ctx, current.StatusID)
		if err != nil {
			return fmt.Errorf("load status %d: %w", current.StatusID, err)
		}
		newStatus := oldStatus
		if in.StatusID != 0 && in.StatusID != current.StatusID {
			if newStatus, err = catalog.ResolveStatus(ctx, q, current.ProjectID, in.StatusID); err != nil {
				return err
			}
		}
		labelIDs, err := catalog.ResolveLabels(ctx, q, current.ProjectID, in.LabelIDs)
		if err != nil {
			return err
		}

		now := m.now()
		next := current
		next.Title = title
		next.Description = in.Description
		next.Priority = in.Priority
		next.Deadline = utcPtr(in.Deadline)
		next.IsMilestone = in.IsMilestone
		next.AssignedToUserID = in.AssignedToUserID
		next.StatusID = newStatus.ID
		next.UpdatedAt = now
		if newStatus.ID != oldStatus.ID {
			applyTransition(&next, newStatus, now)
		}

		var changes audit.ChangeSet
		changes.Add("title", current.Title, next.Title)
		changes.Add("description", current.Description, next.Description)
		changes.Add("priority", current.Priority.String(), next.Priority.String())
		changes.Add("assignee", idString(current.AssignedToUserID), idString(next.AssignedToUserID))
		changes.Add("status", oldStatus.Name, newStatus.Name)
		changes.Add("deadline", timeString(current.Deadline), timeString(next.Deadline))
		changes.Add("isMilestone", strconv.FormatBool(current.IsMilestone), strconv.FormatBool(next.IsMilestone))

		if err := q.UpdateTask(ctx, next, current.Version); err != nil {
			if errors.Is(err, db.ErrStale) {
				return staleVersion(taskID, in.Version, current.Version+1)
			}
			return err
		}
		if err := m.audit.RecordChanges(ctx, q, taskID, actorID, changes); err != nil {
			return err
		}
		return m.reconcileLabels(ctx, q, taskID, actorID, labelIDs)
	})
	if err != nil {
		return models.TaskDetail{}, fmt.Errorf("update task %d: %w", taskID, err)
	}
	return m.views.Detail(ctx, taskID)
}

// reconcileLabels makes the task's labels exactly want.
func (m *Manager) reconcileLabels(ctx context.Context, q *db.Queries, taskID, actorID int64, want []int64) error {
	current, err := q.GetTaskLabels(ctx, taskID)
	if err != nil {
		return err
	}
	keep := make(map[int64]bool, len(want))
	for _, id := range want {
		keep[id] = true
	}
	have := make(map[int64]bool, len(current))
	for _, l := range current {
		have[l.ID] = true
		if keep[l.ID] {
			continue
		}
		if _, err := q.RemoveTaskLabel(ctx, taskID, l.ID); err != nil {
			return err
		}
		if err := m.audit.RecordValue(ctx, q, taskID, actorID, models.ActionLabelRemoved, audit.Change{Field: "label", Old: l.Name}); err != nil {
			return err
		}
	}
	for _, id := range want {
		if have[id] {
			continue
		}
		label, err := q.GetLabel(ctx, id)
		if err != nil {
			return err
		}
		if _, err := q.AddTaskLabel(ctx, taskID, id); err != nil {
			return err
		}
		if err := m.audit.RecordValue(ctx, q, taskID, actorID, models.ActionLabelAdded, audit.Change{Field: "label", New: label.Name}); err != nil {
			return err
		}
	}
	return nil
}

// MoveTask re-parents a task; a zero newParentID makes it a root. The new
// parent must be in the same project and must not be the task or one of
// its descendants.
func (m *Manager) MoveTask(ctx context.Context, taskID, newParentID, actorID int64) (detail models.TaskDetail, err error) {
	const op = "lifecycle.MoveTask"
	ctx, span := m.startSpan(ctx, op,
		attribute.Int64("task.id", taskID),
		attribute.Int64("parent.id", newParentID),
	)
	defer func() { endSpan(span, err) }()

	err = m.db.RunInTx(ctx, func(q *db.Queries) error {
		task, err := loadTask(ctx, q, taskID)
		if err != nil {
			return err
		}
		parent := optionalID(newParentID)
		if idString(parent) == idString(task.ParentTaskID) {
			return nil
		}
		if parent != nil {
			if err := checkNewParent(ctx, q, task, *parent); err != nil {
				return err
			}
		}

		next := task
		next.ParentTaskID = parent
		next.UpdatedAt = m.now()
		if err := q.UpdateTask(ctx, next, task.Version); err != nil {
			if errors.Is(err, db.ErrStale) {
				return staleVersion(taskID, task.Version, task.Version+1)
			}
			return err
		}
		return m.audit.RecordValue(ctx, q, taskID, actorID, models.ActionMoved, audit.Change{
			Field: "parent",
			Old:   idString(task.ParentTaskID),
			New:   idString(parent),
		})
	})
	if err != nil {
		return models.TaskDetail{}, fmt.Errorf("move task %d: %w", taskID, err)
	}
	return m.views.Detail(ctx, taskID)
}

func checkNewParent(ctx context.Context, q *db.Queries, task models.Task, parentID int64) error {
	if parentID == task.ID {
		return apperrors.Invalid("task %d cannot be its own parent", task.ID)
	}
	parent, err := loadTask(ctx, q, parentID)
	if err != nil {
		return err
	}
	if parent.ProjectID != task.ProjectID {
		return apperrors.Invalid("parent task %d belongs to another project", parentID)
	}

	seen := map[int64]bool{}
	for cur := parent.ParentTaskID; cur != nil; {
		if *cur == task.ID {
			return apperrors.Invalid("task %d is a descendant of task %d", parentID, task.ID)
		}
		if seen[*cur] {
			break
		}
		seen[*cur] = true
		if cur, err = q.ParentOf(ctx, *cur); err != nil {
			if errors.Is(err, db.ErrNotFound) {
				break
			}
			return err
		}
	}
	return nil
}

func staleVersion(taskID, got, want int64) error {
	return apperrors.WithMetadata(apperrors.CodeConflict,
		fmt.Sprintf("task %d was changed by someone else (version %d, current %d)", taskID, got, want),
		map[string]string{
			"task_id":         strconv.FormatInt(taskID, 10),
			"version":         strconv.FormatInt(got, 10),
			"current_version": strconv.FormatInt(want, 10),
		},
	)
}

func timeString(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
