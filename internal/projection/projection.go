// Package projection assembles read views of tasks without mutating them.
package projection

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tgienger/taskflow/internal/db"
	apperrors "github.com/tgienger/taskflow/internal/errors"
	"github.com/tgienger/taskflow/internal/models"
)

// Reader builds views from the task store.
type Reader struct {
	q     *db.Queries
	clock func() time.Time
}

// NewReader returns a Reader over q. The clock decides what counts as
// overdue; nil uses time.Now.
func NewReader(q *db.Queries, clock func() time.Time) *Reader {
	if clock == nil {
		clock = time.Now
	}
	return &Reader{q: q, clock: clock}
}

// ListByProject returns the flat list rows of a project's tasks.
func (r *Reader) ListByProject(ctx context.Context, projectID int64) ([]models.TaskListItem, error) {
	return r.list(ctx, db.TaskFilter{ProjectID: projectID})
}

// ListByAssignee returns the flat list rows of the tasks assigned to a user
// across every project.
func (r *Reader) ListByAssignee(ctx context.Context, userID int64) ([]models.TaskListItem, error) {
	if userID <= 0 {
		return nil, apperrors.Invalid("assignee id must be positive, got %d", userID)
	}
	return r.list(ctx, db.TaskFilter{AssigneeID: userID})
}

func (r *Reader) list(ctx context.Context, filter db.TaskFilter) ([]models.TaskListItem, error) {
	items, err := r.q.ListTaskItems(ctx, filter)
	if err != nil {
		return nil, err
	}
	ids := make([]int64, len(items))
	for i := range items {
		ids[i] = items[i].ID
	}
	names, err := r.q.GetLabelNamesForTasks(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range items {
		items[i].LabelNames = names[items[i].ID]
	}
	return items, nil
}

// Detail returns a task with everything attached to it.
func (r *Reader) Detail(ctx context.Context, taskID int64) (models.TaskDetail, error) {
	task, err := r.q.GetTask(ctx, taskID)
	if errors.Is(err, db.ErrNotFound) {
		return models.TaskDetail{}, apperrors.NotFound("task", taskID)
	}
	if err != nil {
		return models.TaskDetail{}, fmt.Errorf("load task %d: %w", taskID, err)
	}

	detail := models.TaskDetail{Task: task}
	if detail.Status, err = r.q.GetStatus(ctx, task.StatusID); err != nil {
		return models.TaskDetail{}, fmt.Errorf("load status %d: %w", task.StatusID, err)
	}
	if detail.Labels, err = r.q.GetTaskLabels(ctx, taskID); err != nil {
		return models.TaskDetail{}, fmt.Errorf("load labels: %w", err)
	}
	if detail.Comments, err = r.q.GetTaskComments(ctx, taskID); err != nil {
		return models.TaskDetail{}, fmt.Errorf("load comments: %w", err)
	}
	if detail.Attachments, err = r.q.GetTaskAttachments(ctx, taskID); err != nil {
		return models.TaskDetail{}, fmt.Errorf("load attachments: %w", err)
	}
	if detail.Watchers, err = r.q.GetTaskWatchers(ctx, taskID); err != nil {
		return models.TaskDetail{}, fmt.Errorf("load watchers: %w", err)
	}
	if detail.Children, err = r.q.ListChildTasks(ctx, taskID); err != nil {
		return models.TaskDetail{}, fmt.Errorf("load children: %w", err)
	}
	if detail.AuditTrail, err = r.q.GetAuditTrail(ctx, taskID); err != nil {
		return models.TaskDetail{}, fmt.Errorf("load audit trail: %w", err)
	}
	return detail, nil
}

// Tree nests a project's tasks under their parents. Roots are tasks with no
// parent or with a parent outside the project. Tasks caught in a parent
// cycle are surfaced as roots once instead of being dropped.
func (r *Reader) Tree(ctx context.Context, projectID int64) ([]*models.TaskNode, error) {
	items, err := r.ListByProject(ctx, projectID)
	if err != nil {
		return nil, err
	}

	inProject := make(map[int64]bool, len(items))
	for _, item := range items {
		inProject[item.ID] = true
	}
	children := make(map[int64][]models.TaskListItem)
	var roots []models.TaskListItem
	for _, item := range items {
		if item.ParentTaskID == nil || !inProject[*item.ParentTaskID] {
			roots = append(roots, item)
			continue
		}
		children[*item.ParentTaskID] = append(children[*item.ParentTaskID], item)
	}

	visited := make(map[int64]bool, len(items))
	var build func(item models.TaskListItem) *models.TaskNode
	build = func(item models.TaskListItem) *models.TaskNode {
		visited[item.ID] = true
		node := &models.TaskNode{Item: item}
		for _, child := range children[item.ID] {
			if visited[child.ID] {
				continue
			}
			node.Children = append(node.Children, build(child))
		}
		return node
	}

	tree := make([]*models.TaskNode, 0, len(roots))
	for _, root := range roots {
		tree = append(tree, build(root))
	}
	for _, item := range items {
		if !visited[item.ID] {
			tree = append(tree, build(item))
		}
	}
	return tree, nil
}

// Statuses returns the ordered statuses a project sees, global ones included.
func (r *Reader) Statuses(ctx context.Context, projectID int64) ([]models.Status, error) {
	return r.q.ListStatuses(ctx, projectID)
}

// Stats summarises a project's tasks. Every visible status appears in
// ByStatus, in catalog order, even with a zero count.
func (r *Reader) Stats(ctx context.Context, projectID int64) (models.ProjectStats, error) {
	items, err := r.q.ListTaskItems(ctx, db.TaskFilter{ProjectID: projectID})
	if err != nil {
		return models.ProjectStats{}, err
	}
	statuses, err := r.q.ListStatuses(ctx, projectID)
	if err != nil {
		return models.ProjectStats{}, err
	}

	now := r.clock()
	stats := models.ProjectStats{ProjectID: projectID, Total: len(items)}
	counts := make(map[int64]int, len(statuses))
	for _, item := range items {
		counts[item.StatusID]++
		switch item.StatusKind {
		case models.StatusDone:
			stats.Completed++
			continue
		case models.StatusInProgress:
			stats.InProgress++
		}
		if item.Deadline != nil && item.Deadline.Before(now) {
			stats.Overdue++
		}
	}
	for _, st := range statuses {
		stats.ByStatus = append(stats.ByStatus, models.StatusCount{
			StatusID:   st.ID,
			StatusName: st.Name,
			Count:      counts[st.ID],
		})
	}
	return stats, nil
}

// AuditTrail returns every entry recorded for a task id, newest first. It
// works for deleted tasks too.
func (r *Reader) AuditTrail(ctx context.Context, taskID int64) ([]models.AuditLogEntry, error) {
	return r.q.GetAuditTrail(ctx, taskID)
}
