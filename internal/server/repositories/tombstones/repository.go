// Package tombstones provides the PostgreSQL-backed deletion record
// repository. Rows are insert-only; nothing on the server ever purges them.
package tombstones

import (
	"context"

	"github.com/mihailsb/docsync/internal/server/models"
)

type Repository interface {
	// Create records the deletion. Recording the same sync id twice keeps the
	// earliest row.
	Create(ctx context.Context, t *models.Tombstone) error
	Exists(ctx context.Context, userID, syncID string) (bool, error)
	ListByUser(ctx context.Context, userID string) ([]*models.Tombstone, error)
}
