package projection

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/tgienger/taskflow/internal/db"
	apperrors "github.com/tgienger/taskflow/internal/errors"
	"github.com/tgienger/taskflow/internal/models"
)

var testNow = time.Date(2026, time.May, 11, 8, 0, 0, 0, time.UTC)

type fixture struct {
	db       *db.DB
	todo     models.Status
	doing    models.Status
	done     models.Status
	reader   *Reader
	projectA int64
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	database, err := db.Open(ctx, filepath.Join(t.TempDir(), "taskflow.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = database.Close() })

	f := &fixture{db: database, projectA: 7}
	seed := []struct {
		dst  *models.Status
		name string
		kind models.StatusKind
	}{
		{&f.todo, "To Do", models.StatusTodo},
		{&f.doing, "In Progress", models.StatusInProgress},
		{&f.done, "Done", models.StatusDone},
	}
	for i, s := range seed {
		*s.dst, err = database.InsertStatus(ctx, models.Status{
			Name: s.name, Order: (i + 1) * 10, Kind: s.kind, IsDefault: i == 0, CreatedAt: testNow,
		})
		if err != nil {
			t.Fatalf("insert status %q: %v", s.name, err)
		}
	}
	f.reader = NewReader(database.Queries, func() time.Time { return testNow })
	return f
}

func (f *fixture) task(t *testing.T, title string, status models.Status, parent *int64, mutate func(*models.Task)) int64 {
	t.Helper()

	task := models.Task{
		ProjectID:       f.projectA,
		Title:           title,
		CreatedByUserID: 1,
		ParentTaskID:    parent,
		StatusID:        status.ID,
		CreatedAt:       testNow,
		UpdatedAt:       testNow,
	}
	if mutate != nil {
		mutate(&task)
	}
	id, err := f.db.InsertTask(context.Background(), task)
	if err != nil {
		t.Fatalf("insert task %q: %v", title, err)
	}
	return id
}

func TestListByProjectFillsCountsAndLabels(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()

	parent := f.task(t, "Survey", f.todo, nil, nil)
	f.task(t, "Stake corners", f.todo, &parent, nil)
	label, err := f.db.InsertLabel(ctx, models.Label{Name: "Field", CreatedAt: testNow})
	if err != nil {
		t.Fatalf("insert label: %v", err)
	}
	if _, err := f.db.AddTaskLabel(ctx, parent, label.ID); err != nil {
		t.Fatalf("add label: %v", err)
	}
	if _, err := f.db.CreateComment(ctx, parent, 1, "booked", testNow); err != nil {
		t.Fatalf("comment: %v", err)
	}
	if _, err := f.db.AddWatcher(ctx, parent, 1, testNow); err != nil {
		t.Fatalf("watch: %v", err)
	}

	items, err := f.reader.ListByProject(ctx, f.projectA)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("items = %d, want 2", len(items))
	}
	var survey models.TaskListItem
	for _, item := range items {
		if item.ID == parent {
			survey = item
		}
	}
	if survey.StatusName != "To Do" || survey.CommentCount != 1 || survey.WatcherCount != 1 || survey.ChildCount != 1 {
		t.Fatalf("survey row = %+v", survey)
	}
	if len(survey.LabelNames) != 1 || survey.LabelNames[0] != "Field" {
		t.Fatalf("label names = %v, want [Field]", survey.LabelNames)
	}
}

func TestListByAssignee(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	assignee := int64(42)
	mine := f.task(t, "Mine", f.todo, nil, func(task *models.Task) { task.AssignedToUserID = &assignee })
	f.task(t, "Theirs", f.todo, nil, nil)

	items, err := f.reader.ListByAssignee(context.Background(), assignee)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(items) != 1 || items[0].ID != mine {
		t.Fatalf("items = %+v, want only task %d", items, mine)
	}

	if _, err := f.reader.ListByAssignee(context.Background(), 0); !apperrors.HasCode(err, apperrors.CodeValidation) {
		t.Fatalf("zero assignee error = %v, want validation", err)
	}
}

func TestDetailOrdersCommentsAndAudit(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	id := f.task(t, "Inspect site", f.todo, nil, nil)

	for i, text := range []string{"first", "second"} {
		if _, err := f.db.CreateComment(ctx, id, 1, text, testNow.Add(time.Duration(i)*time.Minute)); err != nil {
			t.Fatalf("comment: %v", err)
		}
	}
	for i, action := range []models.AuditAction{models.ActionCreated, models.ActionUpdated} {
		if _, err := f.db.InsertAuditEntry(ctx, models.AuditLogEntry{
			TaskID: id, UserID: 1, Action: action, CreatedAt: testNow.Add(time.Duration(i) * time.Minute),
		}); err != nil {
			t.Fatalf("audit: %v", err)
		}
	}

	detail, err := f.reader.Detail(ctx, id)
	if err != nil {
		t.Fatalf("detail: %v", err)
	}
	if detail.Status.ID != f.todo.ID {
		t.Fatalf("status = %d, want %d", detail.Status.ID, f.todo.ID)
	}
	if len(detail.Comments) != 2 || detail.Comments[0].Content != "first" {
		t.Fatalf("comments = %+v, want oldest first", detail.Comments)
	}
	if len(detail.AuditTrail) != 2 || detail.AuditTrail[0].Action != models.ActionUpdated {
		t.Fatalf("audit = %+v, want newest first", detail.AuditTrail)
	}

	if _, err := f.reader.Detail(ctx, 999); !apperrors.HasCode(err, apperrors.CodeNotFound) {
		t.Fatalf("missing detail error = %v, want not found", err)
	}
}

func TestTreeNestsAndSurvivesCycles(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()

	root := f.task(t, "Foundation", f.todo, nil, nil)
	child := f.task(t, "Rebar", f.todo, &root, nil)
	f.task(t, "Tie wire", f.todo, &child, nil)

	a := f.task(t, "Loop A", f.todo, nil, nil)
	b := f.task(t, "Loop B", f.todo, &a, nil)
	loopA, err := f.db.GetTask(ctx, a)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	loopA.ParentTaskID = &b
	if err := f.db.UpdateTask(ctx, loopA, loopA.Version); err != nil {
		t.Fatalf("corrupt parent: %v", err)
	}

	tree, err := f.reader.Tree(ctx, f.projectA)
	if err != nil {
		t.Fatalf("tree: %v", err)
	}
	count := 0
	var walk func(nodes []*models.TaskNode)
	walk = func(nodes []*models.TaskNode) {
		for _, n := range nodes {
			count++
			walk(n.Children)
		}
	}
	walk(tree)
	if count != 5 {
		t.Fatalf("nodes = %d, want each of 5 tasks exactly once", count)
	}

	var foundation *models.TaskNode
	for _, n := range tree {
		if n.Item.ID == root {
			foundation = n
		}
	}
	if foundation == nil || len(foundation.Children) != 1 || len(foundation.Children[0].Children) != 1 {
		t.Fatalf("foundation subtree not nested: %+v", foundation)
	}
}

func TestStats(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	past := testNow.Add(-48 * time.Hour)
	future := testNow.Add(48 * time.Hour)

	f.task(t, "late", f.todo, nil, func(task *models.Task) { task.Deadline = &past })
	f.task(t, "on time", f.doing, nil, func(task *models.Task) { task.Deadline = &future })
	f.task(t, "late but done", f.done, nil, func(task *models.Task) { task.Deadline = &past })
	f.task(t, "late and doing", f.doing, nil, func(task *models.Task) { task.Deadline = &past })

	stats, err := f.reader.Stats(ctx, f.projectA)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.Total != 4 || stats.Completed != 1 || stats.InProgress != 2 || stats.Overdue != 2 {
		t.Fatalf("stats = %+v", stats)
	}
	want := []int{1, 2, 1}
	if len(stats.ByStatus) != len(want) {
		t.Fatalf("by status = %+v", stats.ByStatus)
	}
	for i, n := range want {
		if stats.ByStatus[i].Count != n {
			t.Fatalf("%s count = %d, want %d", stats.ByStatus[i].StatusName, stats.ByStatus[i].Count, n)
		}
	}
}

func TestAuditTrailOutlivesTask(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	id := f.task(t, "Temporary", f.todo, nil, nil)
	if _, err := f.db.InsertAuditEntry(ctx, models.AuditLogEntry{TaskID: id, UserID: 1, Action: models.ActionDeleted, CreatedAt: testNow}); err != nil {
		t.Fatalf("audit: %v", err)
	}
	if err := f.db.DeleteTask(ctx, id); err != nil {
		t.Fatalf("delete: %v", err)
	}

	trail, err := f.reader.AuditTrail(ctx, id)
	if err != nil {
		t.Fatalf("trail: %v", err)
	}
	if len(trail) != 1 || trail[0].Action != models.ActionDeleted {
		t.Fatalf("trail = %+v", trail)
	}
}
