package models

import (
	"fmt"
	"strings"
)

// Priority is the ordinal urgency of a task
type Priority int

const (
	PriorityLow Priority = iota
	PriorityMedium
	PriorityHigh
	PriorityCritical
)

var priorityNames = [...]string{"Low", "Medium", "High", "Critical"}

func (p Priority) String() string {
	if p.Valid() {
		return priorityNames[p]
	}
	return fmt.Sprintf("Priority(%d)", int(p))
}

// Valid reports whether p is one of the defined priorities
func (p Priority) Valid() bool {
	return p >= PriorityLow && p <= PriorityCritical
}

// ParsePriority accepts a priority name (any case) or its ordinal
func ParsePriority(s string) (Priority, error) {
	s = strings.TrimSpace(s)
	for i, name := range priorityNames {
		if strings.EqualFold(name, s) || s == fmt.Sprint(i) {
			return Priority(i), nil
		}
	}
	return 0, fmt.Errorf("unknown priority %q", s)
}

// StatusKind tags the lifecycle phase a status represents
type StatusKind string

const (
	StatusTodo       StatusKind = "todo"
	StatusInProgress StatusKind = "in_progress"
	StatusDone       StatusKind = "done"
)

// Valid reports whether k is a known kind
func (k StatusKind) Valid() bool {
	switch k {
	case StatusTodo, StatusInProgress, StatusDone:
		return true
	}
	return false
}

// InferStatusKind picks a kind for a status defined without one. The
// "In Progress" name and the completed flag map onto their kinds.
func InferStatusKind(name string, completed bool) StatusKind {
	if completed {
		return StatusDone
	}
	if strings.EqualFold(strings.TrimSpace(name), "In Progress") {
		return StatusInProgress
	}
	return StatusTodo
}

// AuditAction names the kind of event an audit entry records
type AuditAction string

const (
	ActionCreated           AuditAction = "Created"
	ActionUpdated           AuditAction = "Updated"
	ActionDeleted           AuditAction = "Deleted"
	ActionMoved             AuditAction = "Moved"
	ActionCommentAdded      AuditAction = "CommentAdded"
	ActionCommentEdited     AuditAction = "CommentEdited"
	ActionCommentDeleted    AuditAction = "CommentDeleted"
	ActionAttachmentAdded   AuditAction = "AttachmentAdded"
	ActionAttachmentRemoved AuditAction = "AttachmentRemoved"
	ActionWatcherAdded      AuditAction = "WatcherAdded"
	ActionWatcherRemoved    AuditAction = "WatcherRemoved"
	ActionLabelAdded        AuditAction = "LabelAdded"
	ActionLabelRemoved      AuditAction = "LabelRemoved"
)
