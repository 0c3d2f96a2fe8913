package lifecycle

import (
	"context"
	"fmt"
	"strconv"

	"github.com/tgienger/taskflow/internal/audit"
	"github.com/tgienger/taskflow/internal/db"
	"github.com/tgienger/taskflow/internal/models"
	"go.opentelemetry.io/otel/attribute"
)

// AddWatcher subscribes userID to a task. It reports false, writing
// nothing, when the user already watches it.
func (m *Manager) AddWatcher(ctx context.Context, taskID, userID, actorID int64) (added bool, err error) {
	const op = "lifecycle.AddWatcher"
	ctx, span := m.startSpan(ctx, op, attribute.Int64("task.id", taskID), attribute.Int64("user.id", userID))
	defer func() { endSpan(span, err) }()

	if err := m.requireUser(ctx, "watcher", userID); err != nil {
		return false, err
	}
	err = m.db.RunInTx(ctx, func(q *db.Queries) error {
		if _, err := loadTask(ctx, q, taskID); err != nil {
			return err
		}
		var err error
		if added, err = q.AddWatcher(ctx, taskID, userID, m.now()); err != nil || !added {
			return err
		}
		return m.audit.RecordValue(ctx, q, taskID, actorID, models.ActionWatcherAdded, audit.Change{
			Field: "watcher",
			New:   strconv.FormatInt(userID, 10),
		})
	})
	if err != nil {
		return false, fmt.Errorf("add watcher to task %d: %w", taskID, err)
	}
	return added, nil
}

// RemoveWatcher unsubscribes userID from a task. It reports false, writing
// nothing, when the user was not watching.
func (m *Manager) RemoveWatcher(ctx context.Context, taskID, userID, actorID int64) (removed bool, err error) {
	const op = "lifecycle.RemoveWatcher"
	ctx, span := m.startSpan(ctx, op, attribute.Int64("task.id", taskID), attribute.Int64("user.id", userID))
	defer func() { endSpan(span, err) }()

	err = m.db.RunInTx(ctx, func(q *db.Queries) error {
		if _, err := loadTask(ctx, q, taskID); err != nil {
			return err
		}
		var err error
		if removed, err = q.RemoveWatcher(ctx, taskID, userID); err != nil || !removed {
			return err
		}
		return m.audit.RecordValue(ctx, q, taskID, actorID, models.ActionWatcherRemoved, audit.Change{
			Field: "watcher",
			Old:   strconv.FormatInt(userID, 10),
		})
	})
	if err != nil {
		return false, fmt.Errorf("remove watcher from task %d: %w", taskID, err)
	}
	return removed, nil
}
