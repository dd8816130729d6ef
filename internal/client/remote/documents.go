package remote

import (
	"context"
	"net/http"
	"net/url"

	"github.com/mihailsb/docsync/internal/api"
	"github.com/mihailsb/docsync/internal/models"
)

// Create stores a new document and returns the version assigned by the
// server.
func (c *Client) Create(ctx context.Context, doc *models.Document) (int64, error) {
	req := api.CreateDocumentRequest{Document: api.FromDocument(doc)}
	var resp api.VersionResponse
	if err := c.doJSON(ctx, http.MethodPost, "/api/documents", req, &resp); err != nil {
		return 0, err
	}
	return resp.Version, nil
}

// Update replaces the stored document iff its version still equals
// expectedVersion, returning the new version. A mismatch surfaces as
// common.ErrVersionConflict.
func (c *Client) Update(ctx context.Context, doc *models.Document, expectedVersion int64) (int64, error) {
	req := api.UpdateDocumentRequest{
		Document:        api.FromDocument(doc),
		ExpectedVersion: expectedVersion,
	}
	var resp api.VersionResponse
	if err := c.doJSON(ctx, http.MethodPut, "/api/documents/"+url.PathEscape(doc.SyncID), req, &resp); err != nil {
		return 0, err
	}
	return resp.Version, nil
}

// Delete removes the document remotely.
func (c *Client) Delete(ctx context.Context, syncID string) error {
	return c.doJSON(ctx, http.MethodDelete, "/api/documents/"+url.PathEscape(syncID), nil, nil)
}

// Get fetches the current remote snapshot of one document.
func (c *Client) Get(ctx context.Context, syncID string) (*models.Document, error) {
	var resp api.DocumentResponse
	if err := c.doJSON(ctx, http.MethodGet, "/api/documents/"+url.PathEscape(syncID), nil, &resp); err != nil {
		return nil, err
	}
	return resp.ToDocument(c.CurrentUserID()), nil
}

// ListAll returns every remote document of the user.
func (c *Client) ListAll(ctx context.Context, _ string) ([]*models.Document, error) {
	var resp api.ListDocumentsResponse
	if err := c.doJSON(ctx, http.MethodGet, "/api/documents", nil, &resp); err != nil {
		return nil, err
	}
	out := make([]*models.Document, 0, len(resp.Documents))
	for _, d := range resp.Documents {
		out = append(out, d.ToDocument(c.CurrentUserID()))
	}
	return out, nil
}
