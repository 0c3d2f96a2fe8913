package db

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/tgienger/taskflow/internal/models"
)

var testNow = time.Date(2026, time.March, 2, 9, 30, 0, 0, time.UTC)

func openTempDB(t *testing.T) *DB {
	t.Helper()

	database, err := Open(context.Background(), filepath.Join(t.TempDir(), "taskflow.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() {
		if err := database.Close(); err != nil {
			t.Fatalf("close db: %v", err)
		}
	})
	return database
}

func seedTask(t *testing.T, database *DB, projectID int64, parent *int64) models.Task {
	t.Helper()
	ctx := context.Background()

	status, err := database.InsertStatus(ctx, models.Status{Name: "To Do", Kind: models.StatusTodo, CreatedAt: testNow})
	if err != nil {
		t.Fatalf("insert status: %v", err)
	}
	id, err := database.InsertTask(ctx, models.Task{
		ProjectID:       projectID,
		Title:           "Inspect site",
		CreatedByUserID: 1,
		ParentTaskID:    parent,
		StatusID:        status.ID,
		CreatedAt:       testNow,
		UpdatedAt:       testNow,
	})
	if err != nil {
		t.Fatalf("insert task: %v", err)
	}
	task, err := database.GetTask(ctx, id)
	if err != nil {
		t.Fatalf("get task: %v", err)
	}
	return task
}

func TestOpenRequiresPath(t *testing.T) {
	t.Parallel()

	if _, err := Open(context.Background(), ""); err == nil {
		t.Fatal("expected empty path error")
	}
}

func TestOpenTwiceAppliesMigrationsOnce(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "taskflow.db")
	first, err := Open(context.Background(), path)
	if err != nil {
		t.Fatalf("first open: %v", err)
	}
	if err := first.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	second, err := Open(context.Background(), path)
	if err != nil {
		t.Fatalf("second open: %v", err)
	}
	defer second.Close()

	var count int
	if err := second.sqlDB.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&count); err != nil {
		t.Fatalf("count migrations: %v", err)
	}
	if count != 1 {
		t.Fatalf("migrations = %d, want 1", count)
	}
}

func TestUpSection(t *testing.T) {
	t.Parallel()

	got := upSection("-- +migrate Up\nCREATE TABLE a (id INT);\n-- +migrate Down\nDROP TABLE a;\n")
	if got != "\nCREATE TABLE a (id INT);\n" {
		t.Fatalf("up section = %q", got)
	}
	if got := upSection("SELECT 1;"); got != "SELECT 1;" {
		t.Fatalf("plain content = %q", got)
	}
}

func TestTaskRoundTripNormalizesTimes(t *testing.T) {
	t.Parallel()

	database := openTempDB(t)
	ctx := context.Background()
	status, err := database.InsertStatus(ctx, models.Status{Name: "To Do", Kind: models.StatusTodo, CreatedAt: testNow})
	if err != nil {
		t.Fatalf("insert status: %v", err)
	}
	deadline := time.Date(2026, time.April, 1, 17, 0, 0, 0, time.FixedZone("UTC+2", 2*60*60))
	assignee := int64(42)
	id, err := database.InsertTask(ctx, models.Task{
		ProjectID:        7,
		Title:            "Survey foundations",
		Description:      "North wing",
		Priority:         models.PriorityHigh,
		Deadline:         &deadline,
		IsMilestone:      true,
		AssignedToUserID: &assignee,
		CreatedByUserID:  3,
		StatusID:         status.ID,
		CreatedAt:        testNow,
		UpdatedAt:        testNow,
	})
	if err != nil {
		t.Fatalf("insert task: %v", err)
	}

	got, err := database.GetTask(ctx, id)
	if err != nil {
		t.Fatalf("get task: %v", err)
	}
	if got.Version != 1 {
		t.Fatalf("version = %d, want 1", got.Version)
	}
	if got.Deadline == nil || !got.Deadline.Equal(deadline) || got.Deadline.Location() != time.UTC {
		t.Fatalf("deadline = %v, want %v in UTC", got.Deadline, deadline)
	}
	if got.AssignedToUserID == nil || *got.AssignedToUserID != 42 {
		t.Fatalf("assignee = %v, want 42", got.AssignedToUserID)
	}
	if got.Priority != models.PriorityHigh || !got.IsMilestone {
		t.Fatalf("priority/milestone = %v/%v", got.Priority, got.IsMilestone)
	}
	if got.StartedAt != nil || got.CompletedAt != nil {
		t.Fatal("lifecycle timestamps should start unset")
	}
}

func TestUpdateTaskRejectsStaleVersion(t *testing.T) {
	t.Parallel()

	database := openTempDB(t)
	ctx := context.Background()
	task := seedTask(t, database, 1, nil)

	task.Title = "First writer"
	task.UpdatedAt = testNow.Add(time.Minute)
	if err := database.UpdateTask(ctx, task, 1); err != nil {
		t.Fatalf("first update: %v", err)
	}

	task.Title = "Second writer"
	if err := database.UpdateTask(ctx, task, 1); !errors.Is(err, ErrStale) {
		t.Fatalf("second update error = %v, want %v", err, ErrStale)
	}

	got, err := database.GetTask(ctx, task.ID)
	if err != nil {
		t.Fatalf("get task: %v", err)
	}
	if got.Title != "First writer" || got.Version != 2 {
		t.Fatalf("task = %q v%d, want %q v2", got.Title, got.Version, "First writer")
	}

	task.ID = 999
	if err := database.UpdateTask(ctx, task, 1); !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing task error = %v, want %v", err, ErrNotFound)
	}
}

func TestDeleteTaskCascadesAndKeepsAudit(t *testing.T) {
	t.Parallel()

	database := openTempDB(t)
	ctx := context.Background()
	parent := seedTask(t, database, 1, nil)
	child := seedTask(t, database, 1, &parent.ID)

	label, err := database.InsertLabel(ctx, models.Label{Name: "urgent", CreatedAt: testNow})
	if err != nil {
		t.Fatalf("insert label: %v", err)
	}
	if _, err := database.AddTaskLabel(ctx, parent.ID, label.ID); err != nil {
		t.Fatalf("add label: %v", err)
	}
	if _, err := database.AddWatcher(ctx, parent.ID, 1, testNow); err != nil {
		t.Fatalf("add watcher: %v", err)
	}
	if _, err := database.CreateComment(ctx, parent.ID, 1, "hello", testNow); err != nil {
		t.Fatalf("create comment: %v", err)
	}
	if _, err := database.InsertAuditEntry(ctx, models.AuditLogEntry{
		TaskID: parent.ID, UserID: 1, Action: models.ActionDeleted, CreatedAt: testNow,
	}); err != nil {
		t.Fatalf("insert audit: %v", err)
	}

	if err := database.DeleteTask(ctx, parent.ID); err != nil {
		t.Fatalf("delete task: %v", err)
	}

	labels, err := database.GetTaskLabels(ctx, parent.ID)
	if err != nil {
		t.Fatalf("get labels: %v", err)
	}
	if len(labels) != 0 {
		t.Fatalf("labels after delete = %d, want 0", len(labels))
	}
	watchers, err := database.GetTaskWatchers(ctx, parent.ID)
	if err != nil {
		t.Fatalf("get watchers: %v", err)
	}
	if len(watchers) != 0 {
		t.Fatalf("watchers after delete = %d, want 0", len(watchers))
	}
	gotChild, err := database.GetTask(ctx, child.ID)
	if err != nil {
		t.Fatalf("get child: %v", err)
	}
	if gotChild.ParentTaskID != nil {
		t.Fatalf("child parent = %v, want nil", *gotChild.ParentTaskID)
	}
	trail, err := database.GetAuditTrail(ctx, parent.ID)
	if err != nil {
		t.Fatalf("get audit: %v", err)
	}
	if len(trail) != 1 || trail[0].Action != models.ActionDeleted {
		t.Fatalf("audit trail = %+v, want one Deleted entry", trail)
	}
	if err := database.DeleteTask(ctx, parent.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second delete error = %v, want %v", err, ErrNotFound)
	}
}

func TestInsertLabelUniquePerScope(t *testing.T) {
	t.Parallel()

	database := openTempDB(t)
	ctx := context.Background()
	project := int64(7)
	other := int64(8)

	if _, err := database.InsertLabel(ctx, models.Label{Name: "Blocked", ProjectID: &project, CreatedAt: testNow}); err != nil {
		t.Fatalf("insert label: %v", err)
	}
	if _, err := database.InsertLabel(ctx, models.Label{Name: "blocked", ProjectID: &project, CreatedAt: testNow}); !errors.Is(err, ErrAlreadyExists) {
		t.Fatalf("duplicate error = %v, want %v", err, ErrAlreadyExists)
	}
	if _, err := database.InsertLabel(ctx, models.Label{Name: "Blocked", ProjectID: &other, CreatedAt: testNow}); err != nil {
		t.Fatalf("same name in other project: %v", err)
	}
	if _, err := database.InsertLabel(ctx, models.Label{Name: "Blocked", CreatedAt: testNow}); err != nil {
		t.Fatalf("same name globally: %v", err)
	}
	if _, err := database.InsertLabel(ctx, models.Label{Name: "Blocked", CreatedAt: testNow}); !errors.Is(err, ErrAlreadyExists) {
		t.Fatalf("duplicate global error = %v, want %v", err, ErrAlreadyExists)
	}

	labels, err := database.ListLabels(ctx, project)
	if err != nil {
		t.Fatalf("list labels: %v", err)
	}
	if len(labels) != 2 {
		t.Fatalf("visible labels = %d, want 2 (project + global)", len(labels))
	}
}

func TestListStatusesIncludesGlobalInOrder(t *testing.T) {
	t.Parallel()

	database := openTempDB(t)
	ctx := context.Background()
	project := int64(7)
	other := int64(9)

	for _, s := range []models.Status{
		{Name: "Done", Order: 30, Kind: models.StatusDone},
		{Name: "Site visit", Order: 15, Kind: models.StatusInProgress, ProjectID: &project},
		{Name: "To Do", Order: 10, Kind: models.StatusTodo},
		{Name: "Hidden", Order: 1, ProjectID: &other},
	} {
		s.CreatedAt = testNow
		if _, err := database.InsertStatus(ctx, s); err != nil {
			t.Fatalf("insert status %s: %v", s.Name, err)
		}
	}

	statuses, err := database.ListStatuses(ctx, project)
	if err != nil {
		t.Fatalf("list statuses: %v", err)
	}
	var names []string
	for _, s := range statuses {
		names = append(names, s.Name)
	}
	want := []string{"To Do", "Site visit", "Done"}
	if len(names) != len(want) {
		t.Fatalf("statuses = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("statuses = %v, want %v", names, want)
		}
	}

	global, err := database.ListStatuses(ctx, 0)
	if err != nil {
		t.Fatalf("list global: %v", err)
	}
	if len(global) != 2 {
		t.Fatalf("global statuses = %d, want 2", len(global))
	}
}

func TestWatcherAndLabelLinksAreIdempotent(t *testing.T) {
	t.Parallel()

	database := openTempDB(t)
	ctx := context.Background()
	task := seedTask(t, database, 1, nil)

	added, err := database.AddWatcher(ctx, task.ID, 5, testNow)
	if err != nil || !added {
		t.Fatalf("first add = %v, %v; want true", added, err)
	}
	added, err = database.AddWatcher(ctx, task.ID, 5, testNow)
	if err != nil || added {
		t.Fatalf("second add = %v, %v; want false", added, err)
	}
	removed, err := database.RemoveWatcher(ctx, task.ID, 6)
	if err != nil || removed {
		t.Fatalf("remove non-watcher = %v, %v; want false", removed, err)
	}

	label, err := database.InsertLabel(ctx, models.Label{Name: "rfi", CreatedAt: testNow})
	if err != nil {
		t.Fatalf("insert label: %v", err)
	}
	if ok, err := database.AddTaskLabel(ctx, task.ID, label.ID); err != nil || !ok {
		t.Fatalf("add label = %v, %v", ok, err)
	}
	if ok, err := database.AddTaskLabel(ctx, task.ID, label.ID); err != nil || ok {
		t.Fatalf("re-add label = %v, %v", ok, err)
	}
	names, err := database.GetLabelNamesForTasks(ctx, []int64{task.ID})
	if err != nil {
		t.Fatalf("label names: %v", err)
	}
	if len(names[task.ID]) != 1 || names[task.ID][0] != "rfi" {
		t.Fatalf("label names = %v", names)
	}
}

func TestRunInTxRollsBackOnError(t *testing.T) {
	t.Parallel()

	database := openTempDB(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := database.RunInTx(ctx, func(q *Queries) error {
		if _, err := q.CreateProject(ctx, "Bridge", "", testNow); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("tx error = %v, want %v", err, boom)
	}
	projects, err := database.ListProjects(ctx)
	if err != nil {
		t.Fatalf("list projects: %v", err)
	}
	if len(projects) != 0 {
		t.Fatalf("projects after rollback = %d, want 0", len(projects))
	}
}

func TestRunInTxHonoursCancelledContext(t *testing.T) {
	t.Parallel()

	database := openTempDB(t)
	ctx, cancel := context.WithCancel(context.Background())

	err := database.RunInTx(ctx, func(q *Queries) error {
		if _, err := q.CreateProject(ctx, "Bridge", "", testNow); err != nil {
			return err
		}
		cancel()
		return nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("tx error = %v, want %v", err, context.Canceled)
	}
	projects, err := database.ListProjects(context.Background())
	if err != nil {
		t.Fatalf("list projects: %v", err)
	}
	if len(projects) != 0 {
		t.Fatalf("projects after cancel = %d, want 0", len(projects))
	}
}

func TestOrphanBlobUpsert(t *testing.T) {
	t.Parallel()

	database := openTempDB(t)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if err := database.RecordOrphanBlob(ctx, "projects/1/tasks/2/a.pdf", "delete failed", testNow); err != nil {
			t.Fatalf("record orphan: %v", err)
		}
	}
	blobs, err := database.ListOrphanBlobs(ctx)
	if err != nil {
		t.Fatalf("list orphans: %v", err)
	}
	if len(blobs) != 1 || blobs[0].Attempts != 2 {
		t.Fatalf("orphans = %+v, want one with 2 attempts", blobs)
	}
	if err := database.DeleteOrphanBlob(ctx, blobs[0].StorageKey); err != nil {
		t.Fatalf("delete orphan: %v", err)
	}
	blobs, err = database.ListOrphanBlobs(ctx)
	if err != nil {
		t.Fatalf("list orphans: %v", err)
	}
	if len(blobs) != 0 {
		t.Fatalf("orphans after delete = %d, want 0", len(blobs))
	}
}

func TestSettings(t *testing.T) {
	t.Parallel()

	database := openTempDB(t)
	ctx := context.Background()

	got, err := database.GetSetting(ctx, "current_project_id")
	if err != nil || got != "" {
		t.Fatalf("missing setting = %q, %v", got, err)
	}
	if err := database.SetSetting(ctx, "current_project_id", "7"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := database.SetSetting(ctx, "current_project_id", "8"); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	got, err = database.GetSetting(ctx, "current_project_id")
	if err != nil || got != "8" {
		t.Fatalf("setting = %q, %v; want 8", got, err)
	}
}
