package models

import "time"

// Project is the local record behind the project directory
type Project struct {
	ID          int64
	Title       string
	Description string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// User is the local record behind the user directory
type User struct {
	ID        int64
	Name      string
	Email     string
	CreatedAt time.Time
}

// Status is one ordered lifecycle stage. ProjectID nil means a global template
// status that every project sees alongside its own.
type Status struct {
	ID        int64
	Name      string
	Color     string
	Order     int
	IsDefault bool
	Kind      StatusKind
	ProjectID *int64
	CreatedAt time.Time
}

// IsCompleted reports whether tasks in this status count as done
func (s Status) IsCompleted() bool {
	return s.Kind == StatusDone
}

// Label is a tag attachable to tasks. ProjectID nil means global.
type Label struct {
	ID        int64
	Name      string
	Color     string
	ProjectID *int64
	CreatedAt time.Time
}

// Task is a unit of work belonging to a project
type Task struct {
	ID               int64
	ProjectID        int64
	Title            string
	Description      string
	Priority         Priority
	Deadline         *time.Time
	StartedAt        *time.Time
	CompletedAt      *time.Time
	IsMilestone      bool
	AssignedToUserID *int64
	CreatedByUserID  int64
	ParentTaskID     *int64
	StatusID         int64
	Version          int64
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Comment is a note left on a task by a user
type Comment struct {
	ID        int64
	TaskID    int64
	UserID    int64
	Content   string
	IsEdited  bool
	CreatedAt time.Time
	UpdatedAt *time.Time
}

// Attachment references a file held in the blob store by opaque key
type Attachment struct {
	ID               int64
	TaskID           int64
	FileName         string
	StorageKey       string
	FileSize         int64
	ContentType      string
	UploadedByUserID int64
	UploadedAt       time.Time
}

// Watcher subscribes a user to a task's activity
type Watcher struct {
	TaskID    int64
	UserID    int64
	CreatedAt time.Time
}

// AuditLogEntry is one append-only record of a change to a task. FieldName,
// OldValue and NewValue are set only for field-level updates.
type AuditLogEntry struct {
	ID        int64
	TaskID    int64
	UserID    int64
	Action    AuditAction
	FieldName string
	OldValue  string
	NewValue  string
	CreatedAt time.Time
}

// OrphanBlob is an uploaded blob whose compensating delete failed
type OrphanBlob struct {
	StorageKey string
	Reason     string
	Attempts   int
	CreatedAt  time.Time
}
