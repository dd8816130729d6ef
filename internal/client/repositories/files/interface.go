// Package files stores file-attachment records, keyed separately from their
// owning documents and joined by the document's sync identifier.
package files

import (
	"context"

	"github.com/mihailsb/docsync/internal/models"
)

// Repository is the local attachment store.
type Repository interface {
	// Upsert inserts or replaces an attachment by id.
	Upsert(ctx context.Context, f *models.FileAttachment) error

	// GetByID returns a single attachment or common.ErrNotFound.
	GetByID(ctx context.Context, id string) (*models.FileAttachment, error)

	// ListByDocument returns the attachments of one document, ordered by id.
	ListByDocument(ctx context.Context, docSyncID string) ([]*models.FileAttachment, error)

	// Delete removes one attachment record.
	Delete(ctx context.Context, id string) error

	// DeleteByDocument removes all attachment records of a document.
	DeleteByDocument(ctx context.Context, docSyncID string) error
}
