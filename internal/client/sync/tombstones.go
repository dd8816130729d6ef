package sync

import (
	"context"
	"fmt"
	"time"

	"github.com/mihailsb/docsync/internal/client/repositories/tombstones"
	"github.com/mihailsb/docsync/internal/models"
)

// TombstoneTracker records deletions durably so that a reconciliation pass
// can never resurrect a deleted document. The tombstone is written before
// the remote delete is acknowledged as complete: a crash between "remote
// delete succeeded" and "local cleanup" leaves the tombstone in place.
//
// Tombstones are retained until an explicit purge; no sync operation ever
// removes them as a side effect.
type TombstoneTracker struct {
	repo  tombstones.Repository
	clock func() time.Time
}

// NewTombstoneTracker returns a tracker over the given repository.
func NewTombstoneTracker(repo tombstones.Repository) *TombstoneTracker {
	return &TombstoneTracker{repo: repo, clock: time.Now}
}

// RecordDeletion writes a tombstone for the document. Recording the same
// sync id again is a no-op that keeps the earliest record.
func (t *TombstoneTracker) RecordDeletion(ctx context.Context, syncID, userID, deletedBy, reason string) error {
	ts := &models.Tombstone{
		SyncID:    syncID,
		UserID:    userID,
		DeletedAt: t.clock().UTC(),
		DeletedBy: deletedBy,
		Reason:    reason,
	}
	if err := t.repo.Insert(ctx, ts); err != nil {
		return fmt.Errorf("recording deletion: %w", err)
	}
	return nil
}

// IsDeleted reports whether a tombstone exists for the sync id. The realtime
// channel consults it before applying any incoming create/update event.
func (t *TombstoneTracker) IsDeleted(ctx context.Context, syncID string) (bool, error) {
	return t.repo.Exists(ctx, syncID)
}

// List returns the user's tombstones, newest first.
func (t *TombstoneTracker) List(ctx context.Context, userID string) ([]*models.Tombstone, error) {
	return t.repo.ListAll(ctx, userID)
}

// PurgeOlderThan removes tombstones older than the retention window. This is
// the explicit maintenance operation; nothing calls it automatically.
func (t *TombstoneTracker) PurgeOlderThan(ctx context.Context, retention time.Duration) (int64, error) {
	return t.repo.PurgeOlderThan(ctx, t.clock().UTC().Add(-retention))
}

// PurgeKeepLatest keeps the n newest tombstones for the user and removes the
// rest.
func (t *TombstoneTracker) PurgeKeepLatest(ctx context.Context, userID string, n int) (int64, error) {
	return t.repo.PurgeKeepLatest(ctx, userID, n)
}
