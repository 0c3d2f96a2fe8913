package blob

import (
	"context"
	"io"
	"strings"
	"testing"
)

func TestDirUploadDelete(t *testing.T) {
	t.Parallel()

	store, err := NewDir(t.TempDir())
	if err != nil {
		t.Fatalf("new dir: %v", err)
	}
	ctx := context.Background()

	key, err := store.Upload(ctx, strings.NewReader("site photos"), "north wing.jpg", "image/jpeg", TaskScope(7, 42))
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if !strings.HasPrefix(key, "projects/7/tasks/42/") || !strings.HasSuffix(key, "-north_wing.jpg") {
		t.Fatalf("key = %q", key)
	}

	rc, err := store.Open(key)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	body, err := io.ReadAll(rc)
	_ = rc.Close()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(body) != "site photos" {
		t.Fatalf("body = %q", body)
	}

	if err := store.Delete(ctx, key); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := store.Delete(ctx, key); err != nil {
		t.Fatalf("delete missing key should succeed: %v", err)
	}
	if _, err := store.Open(key); err == nil {
		t.Fatal("expected open after delete to fail")
	}
}

func TestDirUploadKeysAreUnique(t *testing.T) {
	t.Parallel()

	store, err := NewDir(t.TempDir())
	if err != nil {
		t.Fatalf("new dir: %v", err)
	}
	ctx := context.Background()
	first, err := store.Upload(ctx, strings.NewReader("a"), "plan.pdf", "application/pdf", TaskScope(1, 1))
	if err != nil {
		t.Fatalf("first upload: %v", err)
	}
	second, err := store.Upload(ctx, strings.NewReader("b"), "plan.pdf", "application/pdf", TaskScope(1, 1))
	if err != nil {
		t.Fatalf("second upload: %v", err)
	}
	if first == second {
		t.Fatalf("keys should differ, both %q", first)
	}
}

func TestDirRejectsEscapingKeys(t *testing.T) {
	t.Parallel()

	store, err := NewDir(t.TempDir())
	if err != nil {
		t.Fatalf("new dir: %v", err)
	}
	for _, key := range []string{"", "../outside", "/etc/passwd", ".."} {
		if err := store.Delete(context.Background(), key); err == nil {
			t.Fatalf("delete %q: expected error", key)
		}
	}
}

func TestDirUploadScopeCannotEscapeRoot(t *testing.T) {
	t.Parallel()

	store, err := NewDir(t.TempDir())
	if err != nil {
		t.Fatalf("new dir: %v", err)
	}
	key, err := store.Upload(context.Background(), strings.NewReader("x"), "../../evil.sh", "", "../../up")
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if strings.Contains(key, "..") {
		t.Fatalf("key escapes root: %q", key)
	}
}

func TestNewDirRequiresRoot(t *testing.T) {
	t.Parallel()

	if _, err := NewDir(" "); err == nil {
		t.Fatal("expected error for empty root")
	}
}
