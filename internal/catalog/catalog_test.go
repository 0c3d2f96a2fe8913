package catalog

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/tgienger/taskflow/internal/db"
	apperrors "github.com/tgienger/taskflow/internal/errors"
	"github.com/tgienger/taskflow/internal/models"
)

var testNow = time.Date(2026, time.March, 2, 9, 30, 0, 0, time.UTC)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func openTempDB(t *testing.T) *db.DB {
	t.Helper()

	database, err := db.Open(context.Background(), filepath.Join(t.TempDir(), "taskflow.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = database.Close() })
	return database
}

func ptr(v int64) *int64 { return &v }

func TestCreateStatusInfersKind(t *testing.T) {
	t.Parallel()

	statuses := NewStatuses(openTempDB(t), fixedClock(testNow))
	ctx := context.Background()

	tests := []struct {
		in   StatusInput
		want models.StatusKind
	}{
		{StatusInput{Name: "Backlog"}, models.StatusTodo},
		{StatusInput{Name: "In Progress"}, models.StatusInProgress},
		{StatusInput{Name: "Accepted", IsCompleted: true}, models.StatusDone},
		{StatusInput{Name: "Fieldwork", Kind: models.StatusInProgress}, models.StatusInProgress},
	}
	for _, tt := range tests {
		st, err := statuses.Create(ctx, tt.in)
		if err != nil {
			t.Fatalf("create %q: %v", tt.in.Name, err)
		}
		if st.Kind != tt.want {
			t.Fatalf("%q kind = %q, want %q", tt.in.Name, st.Kind, tt.want)
		}
		if !st.CreatedAt.Equal(testNow) {
			t.Fatalf("created at = %v, want %v", st.CreatedAt, testNow)
		}
	}

	if _, err := statuses.Create(ctx, StatusInput{Name: " "}); !apperrors.HasCode(err, apperrors.CodeValidation) {
		t.Fatalf("blank name error = %v, want validation", err)
	}
	if _, err := statuses.Create(ctx, StatusInput{Name: "Odd", Kind: "paused"}); !apperrors.HasCode(err, apperrors.CodeValidation) {
		t.Fatalf("bad kind error = %v, want validation", err)
	}
	for _, kind := range []models.StatusKind{models.StatusTodo, models.StatusInProgress} {
		_, err := statuses.Create(ctx, StatusInput{Name: "Closed", Kind: kind, IsCompleted: true})
		if !apperrors.HasCode(err, apperrors.CodeValidation) {
			t.Fatalf("completed %s error = %v, want validation", kind, err)
		}
	}
	closed, err := statuses.Create(ctx, StatusInput{Name: "Closed", Kind: models.StatusDone, IsCompleted: true})
	if err != nil {
		t.Fatalf("completed done status: %v", err)
	}
	if !closed.IsCompleted() {
		t.Fatalf("status %q should be completed", closed.Name)
	}
}

func TestDefaultStatusIsUniquePerScope(t *testing.T) {
	t.Parallel()

	database := openTempDB(t)
	statuses := NewStatuses(database, fixedClock(testNow))
	ctx := context.Background()

	first, err := statuses.Create(ctx, StatusInput{Name: "Open", IsDefault: true, ProjectID: ptr(7)})
	if err != nil {
		t.Fatalf("create first: %v", err)
	}
	global, err := statuses.Create(ctx, StatusInput{Name: "To Do", IsDefault: true})
	if err != nil {
		t.Fatalf("create global: %v", err)
	}
	second, err := statuses.Create(ctx, StatusInput{Name: "Triage", IsDefault: true, ProjectID: ptr(7)})
	if err != nil {
		t.Fatalf("create second: %v", err)
	}

	got, err := statuses.Get(ctx, first.ID)
	if err != nil {
		t.Fatalf("get first: %v", err)
	}
	if got.IsDefault {
		t.Fatal("first project default should have been cleared")
	}
	got, err = statuses.Get(ctx, global.ID)
	if err != nil {
		t.Fatalf("get global: %v", err)
	}
	if !got.IsDefault {
		t.Fatal("global default lives in another scope and must survive")
	}

	def, err := statuses.Default(ctx, 7)
	if err != nil {
		t.Fatalf("default: %v", err)
	}
	if def.ID != second.ID {
		t.Fatalf("default = %d, want %d", def.ID, second.ID)
	}
	def, err = statuses.Default(ctx, 8)
	if err != nil {
		t.Fatalf("default for other project: %v", err)
	}
	if def.ID != global.ID {
		t.Fatalf("fallback default = %d, want global %d", def.ID, global.ID)
	}
}

func TestDefaultStatusWithoutAnyStatuses(t *testing.T) {
	t.Parallel()

	statuses := NewStatuses(openTempDB(t), nil)
	if _, err := statuses.Default(context.Background(), 1); !apperrors.HasCode(err, apperrors.CodeValidation) {
		t.Fatalf("error = %v, want validation", err)
	}
}

func TestUpdateStatus(t *testing.T) {
	t.Parallel()

	statuses := NewStatuses(openTempDB(t), fixedClock(testNow))
	ctx := context.Background()

	st, err := statuses.Create(ctx, StatusInput{Name: "Review", Order: 3, ProjectID: ptr(4)})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	updated, err := statuses.Update(ctx, st.ID, StatusInput{Name: "Signed off", Order: 9, IsCompleted: true})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Name != "Signed off" || updated.Order != 9 || !updated.IsCompleted() {
		t.Fatalf("updated = %+v", updated)
	}
	if updated.ProjectID == nil || *updated.ProjectID != 4 {
		t.Fatalf("scope changed: %v", updated.ProjectID)
	}
	if _, err := statuses.Update(ctx, 999, StatusInput{Name: "x"}); !errors.Is(err, apperrors.ErrNotFound) {
		t.Fatalf("missing status error = %v, want not found", err)
	}
}

func TestDeleteStatusInUseIsRefused(t *testing.T) {
	t.Parallel()

	database := openTempDB(t)
	statuses := NewStatuses(database, fixedClock(testNow))
	ctx := context.Background()

	st, err := statuses.Create(ctx, StatusInput{Name: "To Do"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	taskID, err := database.InsertTask(ctx, models.Task{
		ProjectID: 1, Title: "Pour slab", CreatedByUserID: 1, StatusID: st.ID, CreatedAt: testNow, UpdatedAt: testNow,
	})
	if err != nil {
		t.Fatalf("insert task: %v", err)
	}

	if err := statuses.Delete(ctx, st.ID); !apperrors.HasCode(err, apperrors.CodeValidation) {
		t.Fatalf("delete in use error = %v, want validation", err)
	}
	if err := database.DeleteTask(ctx, taskID); err != nil {
		t.Fatalf("delete task: %v", err)
	}
	if err := statuses.Delete(ctx, st.ID); err != nil {
		t.Fatalf("delete unused: %v", err)
	}
	if err := statuses.Delete(ctx, st.ID); !apperrors.HasCode(err, apperrors.CodeNotFound) {
		t.Fatalf("delete missing error = %v, want not found", err)
	}
}

func TestSeedGlobalIsIdempotent(t *testing.T) {
	t.Parallel()

	statuses := NewStatuses(openTempDB(t), fixedClock(testNow))
	ctx := context.Background()

	added, err := statuses.SeedGlobal(ctx)
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	if added != 4 {
		t.Fatalf("added = %d, want 4", added)
	}
	added, err = statuses.SeedGlobal(ctx)
	if err != nil {
		t.Fatalf("reseed: %v", err)
	}
	if added != 0 {
		t.Fatalf("reseed added = %d, want 0", added)
	}

	list, err := statuses.List(ctx, 1)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	want := []struct {
		name string
		kind models.StatusKind
	}{
		{"To Do", models.StatusTodo},
		{"In Progress", models.StatusInProgress},
		{"In Review", models.StatusInProgress},
		{"Done", models.StatusDone},
	}
	if len(list) != len(want) {
		t.Fatalf("statuses = %d, want %d", len(list), len(want))
	}
	for i, w := range want {
		if list[i].Name != w.name || list[i].Kind != w.kind {
			t.Fatalf("status %d = %s/%s, want %s/%s", i, list[i].Name, list[i].Kind, w.name, w.kind)
		}
	}
	if !list[0].IsDefault {
		t.Fatal("To Do should be the global default")
	}
}

func TestParseStatusDefinitionsRejectsBadYAML(t *testing.T) {
	t.Parallel()

	if _, err := ParseStatusDefinitions([]byte("statuses: [name: : x")); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestResolveStatusChecksScope(t *testing.T) {
	t.Parallel()

	database := openTempDB(t)
	statuses := NewStatuses(database, fixedClock(testNow))
	ctx := context.Background()

	own, err := statuses.Create(ctx, StatusInput{Name: "Mine", ProjectID: ptr(1)})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := ResolveStatus(ctx, database.Queries, 1, own.ID); err != nil {
		t.Fatalf("resolve own: %v", err)
	}
	if _, err := ResolveStatus(ctx, database.Queries, 2, own.ID); !apperrors.HasCode(err, apperrors.CodeValidation) {
		t.Fatalf("resolve foreign error = %v, want validation", err)
	}
	if _, err := ResolveStatus(ctx, database.Queries, 1, 404); !apperrors.HasCode(err, apperrors.CodeValidation) {
		t.Fatalf("resolve missing error = %v, want validation", err)
	}
}

func TestLabelCatalog(t *testing.T) {
	t.Parallel()

	database := openTempDB(t)
	labels := NewLabels(database, fixedClock(testNow))
	ctx := context.Background()

	rfi, err := labels.Create(ctx, LabelInput{Name: "RFI", Color: "#f7768e", ProjectID: ptr(7)})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := labels.Create(ctx, LabelInput{Name: "rfi", ProjectID: ptr(7)}); !apperrors.HasCode(err, apperrors.CodeValidation) {
		t.Fatalf("duplicate error = %v, want validation", err)
	}
	safety, err := labels.Create(ctx, LabelInput{Name: "Safety"})
	if err != nil {
		t.Fatalf("create global: %v", err)
	}

	if _, err := labels.Update(ctx, safety.ID, "Hazard", ""); err != nil {
		t.Fatalf("rename: %v", err)
	}
	other, err := labels.Create(ctx, LabelInput{Name: "Permit", ProjectID: ptr(7)})
	if err != nil {
		t.Fatalf("create permit: %v", err)
	}
	if _, err := labels.Update(ctx, other.ID, "RFI", ""); !apperrors.HasCode(err, apperrors.CodeValidation) {
		t.Fatalf("rename collision error = %v, want validation", err)
	}

	list, err := labels.List(ctx, 7)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("labels = %d, want 3", len(list))
	}

	if err := labels.Delete(ctx, rfi.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := labels.Get(ctx, rfi.ID); !apperrors.HasCode(err, apperrors.CodeNotFound) {
		t.Fatalf("get deleted error = %v, want not found", err)
	}
	if err := labels.Delete(ctx, rfi.ID); !apperrors.HasCode(err, apperrors.CodeNotFound) {
		t.Fatalf("delete missing error = %v, want not found", err)
	}
}

func TestResolveLabelsDeduplicatesAndChecksScope(t *testing.T) {
	t.Parallel()

	database := openTempDB(t)
	labels := NewLabels(database, fixedClock(testNow))
	ctx := context.Background()

	a, err := labels.Create(ctx, LabelInput{Name: "a", ProjectID: ptr(1)})
	if err != nil {
		t.Fatalf("create a: %v", err)
	}
	b, err := labels.Create(ctx, LabelInput{Name: "b"})
	if err != nil {
		t.Fatalf("create b: %v", err)
	}
	foreign, err := labels.Create(ctx, LabelInput{Name: "c", ProjectID: ptr(2)})
	if err != nil {
		t.Fatalf("create c: %v", err)
	}

	ids, err := ResolveLabels(ctx, database.Queries, 1, []int64{b.ID, a.ID, b.ID})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if len(ids) != 2 || ids[0] != a.ID || ids[1] != b.ID {
		t.Fatalf("ids = %v, want [%d %d]", ids, a.ID, b.ID)
	}
	if _, err := ResolveLabels(ctx, database.Queries, 1, []int64{foreign.ID}); !apperrors.HasCode(err, apperrors.CodeValidation) {
		t.Fatalf("foreign label error = %v, want validation", err)
	}
	if _, err := ResolveLabels(ctx, database.Queries, 1, []int64{999}); !apperrors.HasCode(err, apperrors.CodeValidation) {
		t.Fatalf("missing label error = %v, want validation", err)
	}
}
