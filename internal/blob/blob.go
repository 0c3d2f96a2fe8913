// Package blob defines the attachment storage contract consumed by the
// lifecycle engine and a local directory implementation of it.
package blob

import (
	"context"
	"fmt"
	"io"
)

// Store saves attachment bodies and hands back opaque storage keys.
type Store interface {
	// Upload stores body under scope and returns the key it was saved as.
	Upload(ctx context.Context, body io.Reader, fileName, contentType, scope string) (string, error)
	// Delete removes a stored blob. Deleting a missing key succeeds.
	Delete(ctx context.Context, key string) error
}

// TaskScope is the key prefix for files attached to one task.
func TaskScope(projectID, taskID int64) string {
	return fmt.Sprintf("projects/%d/tasks/%d", projectID, taskID)
}
