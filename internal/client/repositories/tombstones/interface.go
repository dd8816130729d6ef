// Package tombstones stores durable deletion records so that reconciliation
// can never resurrect a deleted document from stale remote data.
package tombstones

import (
	"context"
	"time"

	"github.com/mihailsb/docsync/internal/models"
)

// Repository is the local tombstone store. Tombstones are only removed by
// the explicit purge operations, never as a side effect of sync.
type Repository interface {
	// Insert records a deletion. Inserting the same sync id twice keeps the
	// earliest record.
	Insert(ctx context.Context, t *models.Tombstone) error

	// Get returns the tombstone for a sync id or common.ErrNotFound.
	Get(ctx context.Context, syncID string) (*models.Tombstone, error)

	// Exists reports whether a tombstone for the sync id is present.
	Exists(ctx context.Context, syncID string) (bool, error)

	// ListAll returns the user's tombstones, newest first.
	ListAll(ctx context.Context, userID string) ([]*models.Tombstone, error)

	// PurgeOlderThan removes tombstones deleted before the cutoff and
	// returns the number removed.
	PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error)

	// PurgeKeepLatest keeps the n newest tombstones per user and removes
	// the rest, returning the number removed.
	PurgeKeepLatest(ctx context.Context, userID string, n int) (int64, error)
}
