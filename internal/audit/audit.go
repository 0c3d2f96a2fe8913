// Package audit is the append-only change log for tasks.
//
// Emission is decided by a Policy rather than per call site: every mutation
// asks the Logger to record its action and the policy decides whether an
// entry is written.
package audit

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/tgienger/taskflow/internal/models"
)

// Writer persists audit entries. *db.Queries implements it inside a transaction.
type Writer interface {
	InsertAuditEntry(ctx context.Context, e models.AuditLogEntry) (int64, error)
}

// Policy is the set of actions that produce audit entries.
type Policy struct {
	name             string
	actions          map[models.AuditAction]bool
	firstCommentOnly bool
}

// NewPolicy returns a named policy emitting exactly the given actions.
func NewPolicy(name string, actions ...models.AuditAction) Policy {
	set := make(map[models.AuditAction]bool, len(actions))
	for _, a := range actions {
		set[a] = true
	}
	return Policy{name: name, actions: set}
}

// FirstCommentOnly returns a copy of p that emits CommentAdded only for the
// first comment posted on a task.
func (p Policy) FirstCommentOnly() Policy {
	p.firstCommentOnly = true
	return p
}

// CommentAdded reports whether adding a comment to a task that already
// carries prior comments produces a CommentAdded entry.
func (p Policy) CommentAdded(prior int) bool {
	if !p.Enabled(models.ActionCommentAdded) {
		return false
	}
	return prior == 0 || !p.firstCommentOnly
}

// Name returns the policy name.
func (p Policy) Name() string { return p.name }

// Enabled reports whether the policy emits entries for action.
func (p Policy) Enabled(action models.AuditAction) bool {
	return p.actions[action]
}

var (
	// Uniform records every task mutation, including label reconciliation,
	// comment edits and deletes, and attachment removal.
	Uniform = NewPolicy("uniform",
		models.ActionCreated,
		models.ActionUpdated,
		models.ActionDeleted,
		models.ActionMoved,
		models.ActionCommentAdded,
		models.ActionCommentEdited,
		models.ActionCommentDeleted,
		models.ActionAttachmentAdded,
		models.ActionAttachmentRemoved,
		models.ActionWatcherAdded,
		models.ActionWatcherRemoved,
		models.ActionLabelAdded,
		models.ActionLabelRemoved,
	)

	// Legacy records only creation, field updates, deletion, moves, added
	// attachments and watcher changes. Of the comments on a task only the
	// first is recorded.
	Legacy = NewPolicy("legacy",
		models.ActionCreated,
		models.ActionUpdated,
		models.ActionDeleted,
		models.ActionMoved,
		models.ActionCommentAdded,
		models.ActionAttachmentAdded,
		models.ActionWatcherAdded,
		models.ActionWatcherRemoved,
	).FirstCommentOnly()
)

// ParsePolicy resolves a policy by name.
func ParsePolicy(name string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", Uniform.name:
		return Uniform, nil
	case Legacy.name:
		return Legacy, nil
	}
	return Policy{}, fmt.Errorf("unknown audit policy %q", name)
}

// Change is one field-level difference.
type Change struct {
	Field string
	Old   string
	New   string
}

// ChangeSet accumulates field changes, dropping fields whose value did not change.
type ChangeSet []Change

// Add appends a change when before and after differ.
func (c *ChangeSet) Add(field, before, after string) {
	if before == after {
		return
	}
	*c = append(*c, Change{Field: field, Old: before, New: after})
}

// Logger writes audit entries according to its policy.
type Logger struct {
	policy Policy
	clock  func() time.Time
}

// NewLogger builds a Logger. A nil clock uses time.Now.
func NewLogger(policy Policy, clock func() time.Time) *Logger {
	if clock == nil {
		clock = time.Now
	}
	return &Logger{policy: policy, clock: clock}
}

// Policy returns the logger's emission policy.
func (l *Logger) Policy() Policy { return l.policy }

// Record writes one lifecycle event. It is a no-op when the policy does not
// cover action.
func (l *Logger) Record(ctx context.Context, w Writer, taskID, actorID int64, action models.AuditAction) error {
	return l.write(ctx, w, models.AuditLogEntry{
		TaskID: taskID,
		UserID: actorID,
		Action: action,
	})
}

// RecordValue writes a lifecycle event that carries an old and new value,
// such as a move or a label change.
func (l *Logger) RecordValue(ctx context.Context, w Writer, taskID, actorID int64, action models.AuditAction, change Change) error {
	return l.write(ctx, w, models.AuditLogEntry{
		TaskID:    taskID,
		UserID:    actorID,
		Action:    action,
		FieldName: change.Field,
		OldValue:  change.Old,
		NewValue:  change.New,
	})
}

// RecordChanges writes one Updated entry per change.
func (l *Logger) RecordChanges(ctx context.Context, w Writer, taskID, actorID int64, changes ChangeSet) error {
	for _, c := range changes {
		if err := l.RecordValue(ctx, w, taskID, actorID, models.ActionUpdated, c); err != nil {
			return err
		}
	}
	return nil
}

func (l *Logger) write(ctx context.Context, w Writer, e models.AuditLogEntry) error {
	if !l.policy.Enabled(e.Action) {
		return nil
	}
	e.CreatedAt = l.clock().UTC()
	if _, err := w.InsertAuditEntry(ctx, e); err != nil {
		return fmt.Errorf("audit %s for task %d: %w", e.Action, e.TaskID, err)
	}
	return nil
}
