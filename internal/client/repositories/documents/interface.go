// Package documents stores the local copy of synchronized documents.
package documents

import (
	"context"

	"github.com/mihailsb/docsync/internal/models"
)

// Repository is the local document store. All engine mutations go through
// Upsert so version bookkeeping is never bypassed.
type Repository interface {
	// Upsert inserts the document or replaces the stored row by sync id.
	Upsert(ctx context.Context, doc *models.Document) error

	// GetBySyncID returns a single document or common.ErrNotFound.
	GetBySyncID(ctx context.Context, syncID string) (*models.Document, error)

	// ListAll returns every non-deleted document for the user.
	ListAll(ctx context.Context, userID string) ([]*models.Document, error)

	// ListByState returns the user's documents in the given sync state.
	ListByState(ctx context.Context, userID string, state models.SyncState) ([]*models.Document, error)

	// SetState updates only the sync state of a document.
	SetState(ctx context.Context, syncID string, state models.SyncState) error

	// Delete physically removes the row. Attachments cascade.
	Delete(ctx context.Context, syncID string) error
}
