// Package documents provides the PostgreSQL-backed document repository with
// optimistic concurrency on the version column.
package documents

import (
	"context"

	"github.com/mihailsb/docsync/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, doc *models.Document) (*models.Document, error)
	// Update applies the mutation only when the stored version equals
	// expectedVersion; otherwise it returns common.ErrVersionConflict.
	Update(ctx context.Context, doc *models.Document, expectedVersion int64) (*models.Document, error)
	Get(ctx context.Context, userID, syncID string) (*models.Document, error)
	ListByUser(ctx context.Context, userID string) ([]*models.Document, error)
	Delete(ctx context.Context, userID, syncID string) error
}
