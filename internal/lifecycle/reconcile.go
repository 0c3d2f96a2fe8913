package lifecycle

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
)

// ReconcileReport counts the outcome of one orphan sweep.
type ReconcileReport struct {
	Removed   int
	Remaining int
}

// ReconcileOrphanBlobs retries the delete of every recorded orphan blob.
// Blobs that are gone are forgotten; the rest have their attempt count
// bumped and stay recorded.
func (m *Manager) ReconcileOrphanBlobs(ctx context.Context) (report ReconcileReport, err error) {
	const op = "lifecycle.ReconcileOrphanBlobs"
	ctx, span := m.startSpan(ctx, op)
	defer func() { endSpan(span, err) }()

	if m.blobs == nil {
		return ReconcileReport{}, fmt.Errorf("reconcile orphan blobs: no blob store configured")
	}
	orphans, err := m.db.ListOrphanBlobs(ctx)
	if err != nil {
		return ReconcileReport{}, fmt.Errorf("reconcile orphan blobs: %w", err)
	}

	log := m.logFor(ctx, op)
	for _, o := range orphans {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		entry := log.WithFields(logrus.Fields{"storage_key": o.StorageKey, "attempts": o.Attempts})
		if err := m.blobs.Delete(ctx, o.StorageKey); err != nil {
			entry.WithError(err).Warn("orphan blob delete failed")
			if err := m.db.RecordOrphanBlob(ctx, o.StorageKey, o.Reason, m.now()); err != nil {
				return report, fmt.Errorf("reconcile orphan blobs: %w", err)
			}
			report.Remaining++
			continue
		}
		if err := m.db.DeleteOrphanBlob(ctx, o.StorageKey); err != nil {
			return report, fmt.Errorf("reconcile orphan blobs: %w", err)
		}
		report.Removed++
	}
	log.WithFields(logrus.Fields{"removed": report.Removed, "remaining": report.Remaining}).Info("orphan blobs reconciled")
	return report, nil
}
