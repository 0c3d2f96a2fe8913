package models

// TaskListItem is the flat board/list row for a task
type TaskListItem struct {
	Task
	StatusName      string
	StatusColor     string
	StatusKind      StatusKind
	LabelNames      []string
	CommentCount    int
	AttachmentCount int
	WatcherCount    int
	ChildCount      int
}

// TaskDetail is the full view of one task and its associations
type TaskDetail struct {
	Task
	Status      Status
	Labels      []Label
	Comments    []Comment // oldest first
	Attachments []Attachment
	Watchers    []Watcher
	Children    []Task
	AuditTrail  []AuditLogEntry // newest first
}

// TaskNode is one task in a project tree
type TaskNode struct {
	Item     TaskListItem
	Children []*TaskNode
}

// ProjectStats summarises task progress in a project
type ProjectStats struct {
	ProjectID  int64
	Total      int
	Completed  int
	InProgress int
	Overdue    int
	ByStatus   []StatusCount
}

// StatusCount is the number of tasks currently in one status
type StatusCount struct {
	StatusID   int64
	StatusName string
	Count      int
}
