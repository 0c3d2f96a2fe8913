package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/tgienger/taskflow/internal/models"
)

// TaskFilter selects the tasks for a list view. Zero fields are ignored.
type TaskFilter struct {
	ProjectID  int64
	AssigneeID int64
}

// ListTaskItems returns list rows with status details and association
// counts, ordered by priority (desc) then created_at (desc). Label names are
// not filled in.
func (q *Queries) ListTaskItems(ctx context.Context, filter TaskFilter) ([]models.TaskListItem, error) {
	query := `
		SELECT t.id, t.project_id, t.title, t.description, t.priority, t.deadline, t.started_at,
			t.completed_at, t.is_milestone, t.assigned_to_user_id, t.created_by_user_id,
			t.parent_task_id, t.status_id, t.version, t.created_at, t.updated_at,
			s.name, s.color, s.kind,
			(SELECT COUNT(*) FROM comments c WHERE c.task_id = t.id),
			(SELECT COUNT(*) FROM attachments a WHERE a.task_id = t.id),
			(SELECT COUNT(*) FROM watchers w WHERE w.task_id = t.id),
			(SELECT COUNT(*) FROM tasks ch WHERE ch.parent_task_id = t.id)
		FROM tasks t
		JOIN statuses s ON s.id = t.status_id
		WHERE 1 = 1`
	var args []any
	if filter.ProjectID != 0 {
		query += " AND t.project_id = ?"
		args = append(args, filter.ProjectID)
	}
	if filter.AssigneeID != 0 {
		query += " AND t.assigned_to_user_id = ?"
		args = append(args, filter.AssigneeID)
	}
	query += " ORDER BY t.priority DESC, t.created_at DESC, t.id DESC"

	rows, err := q.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list task items: %w", err)
	}
	defer rows.Close()

	var items []models.TaskListItem
	for rows.Next() {
		var item models.TaskListItem
		var priority int
		var deadline, startedAt, completedAt sql.NullInt64
		var assignee, parent sql.NullInt64
		var createdAt, updatedAt int64
		var kind string
		t := &item.Task
		if err := rows.Scan(
			&t.ID, &t.ProjectID, &t.Title, &t.Description, &priority, &deadline, &startedAt,
			&completedAt, &t.IsMilestone, &assignee, &t.CreatedByUserID,
			&parent, &t.StatusID, &t.Version, &createdAt, &updatedAt,
			&item.StatusName, &item.StatusColor, &kind,
			&item.CommentCount, &item.AttachmentCount, &item.WatcherCount, &item.ChildCount,
		); err != nil {
			return nil, fmt.Errorf("list task items: %w", err)
		}
		t.Priority = models.Priority(priority)
		t.Deadline = timePtr(deadline)
		t.StartedAt = timePtr(startedAt)
		t.CompletedAt = timePtr(completedAt)
		t.AssignedToUserID = idPtr(assignee)
		t.ParentTaskID = idPtr(parent)
		t.CreatedAt = fromMillis(createdAt)
		t.UpdatedAt = fromMillis(updatedAt)
		item.StatusKind = models.StatusKind(kind)
		items = append(items, item)
	}
	return items, rows.Err()
}
