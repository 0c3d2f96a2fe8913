package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Dir stores blobs as files below a root directory. Keys have the form
// "{scope}/{uuid}-{fileName}".
type Dir struct {
	root string
}

// NewDir returns a Dir rooted at root, creating it if needed.
func NewDir(root string) (*Dir, error) {
	if strings.TrimSpace(root) == "" {
		return nil, fmt.Errorf("blob root is required")
	}
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("create blob root: %w", err)
	}
	return &Dir{root: filepath.Clean(root)}, nil
}

// Upload copies body into a new file under scope.
func (d *Dir) Upload(ctx context.Context, body io.Reader, fileName, _ string, scope string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	name := safeName(fileName)
	if name == "" {
		return "", fmt.Errorf("file name is required")
	}
	key := path.Join(path.Clean("/" + scope)[1:], uuid.NewString()+"-"+name)
	full, err := d.pathFor(key)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
		return "", fmt.Errorf("create blob dir: %w", err)
	}

	f, err := os.OpenFile(full, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return "", fmt.Errorf("create blob: %w", err)
	}
	if _, err := io.Copy(f, body); err != nil {
		_ = f.Close()
		_ = os.Remove(full)
		return "", fmt.Errorf("write blob: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(full)
		return "", fmt.Errorf("close blob: %w", err)
	}
	return key, nil
}

// Delete removes the file for key.
func (d *Dir) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	full, err := d.pathFor(key)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("delete blob: %w", err)
	}
	return nil
}

// Open returns a reader for the blob stored at key.
func (d *Dir) Open(key string) (io.ReadCloser, error) {
	full, err := d.pathFor(key)
	if err != nil {
		return nil, err
	}
	return os.Open(full)
}

func (d *Dir) pathFor(key string) (string, error) {
	clean := path.Clean(key)
	if key == "" || path.IsAbs(clean) || clean == "." || clean == ".." || strings.HasPrefix(clean, "../") {
		return "", fmt.Errorf("invalid blob key %q", key)
	}
	return filepath.Join(d.root, filepath.FromSlash(clean)), nil
}

func safeName(fileName string) string {
	name := path.Base(filepath.ToSlash(strings.TrimSpace(fileName)))
	if name == "." || name == "/" || name == ".." {
		return ""
	}
	return strings.ReplaceAll(name, " ", "_")
}

var _ Store = (*Dir)(nil)
