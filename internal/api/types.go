// Package api defines the wire types shared by the HTTP server and the
// client. Field names are part of the protocol; changing a json tag is a
// breaking change.
package api

import (
	"time"

	"github.com/mihailsb/docsync/internal/models"
)

// Auth endpoints.

type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type TokenResponse struct {
	UserID       string `json:"user_id"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// Document endpoints.

type DocumentPayload struct {
	SyncID      string     `json:"sync_id"`
	Title       string     `json:"title"`
	Category    string     `json:"category"`
	Notes       string     `json:"notes"`
	Date        time.Time  `json:"date"`
	ContentHash string     `json:"content_hash"`
	Deleted     bool       `json:"deleted"`
	DeletedAt   *time.Time `json:"deleted_at,omitempty"`

	Attachments []AttachmentPayload `json:"attachments,omitempty"`
}

type AttachmentPayload struct {
	ID        string `json:"id"`
	FileName  string `json:"file_name"`
	Label     string `json:"label"`
	RemoteKey string `json:"remote_key"`
	FileSize  int64  `json:"file_size"`
	Checksum  string `json:"checksum"`
}

type CreateDocumentRequest struct {
	Document DocumentPayload `json:"document"`
}

type UpdateDocumentRequest struct {
	Document DocumentPayload `json:"document"`
	// ExpectedVersion is the optimistic-concurrency precondition: the update
	// is rejected with 409 when the stored version differs.
	ExpectedVersion int64 `json:"expected_version"`
}

type DocumentResponse struct {
	Document  DocumentPayload `json:"document"`
	Version   int64           `json:"version"`
	UpdatedAt time.Time       `json:"updated_at"`
}

type VersionResponse struct {
	Version int64 `json:"version"`
}

type ListDocumentsResponse struct {
	Documents []DocumentResponse `json:"documents"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

// Realtime channel frames.

type ChangeKind string

const (
	ChangeKindCreated ChangeKind = "created"
	ChangeKindUpdated ChangeKind = "updated"
	ChangeKindDeleted ChangeKind = "deleted"
)

// ChangeFrame is one websocket notification. Document is omitted for
// deletions.
type ChangeFrame struct {
	Kind       ChangeKind        `json:"kind"`
	DocumentID string            `json:"document_id"`
	Document   *DocumentResponse `json:"document,omitempty"`
	Timestamp  time.Time         `json:"timestamp"`
}

// FromDocument converts an engine document to its wire form.
func FromDocument(d *models.Document) DocumentPayload {
	return DocumentPayload{
		SyncID:      d.SyncID,
		Title:       d.Title,
		Category:    d.Category,
		Notes:       d.Notes,
		Date:        d.Date,
		ContentHash: d.ContentHash,
		Deleted:     d.Deleted,
		DeletedAt:   d.DeletedAt,
	}
}

// ToDocument converts a wire document back to the engine model.
func (r DocumentResponse) ToDocument(userID string) *models.Document {
	d := &models.Document{
		SyncID:      r.Document.SyncID,
		UserID:      userID,
		Title:       r.Document.Title,
		Category:    r.Document.Category,
		Notes:       r.Document.Notes,
		Date:        r.Document.Date,
		Version:     r.Version,
		ContentHash: r.Document.ContentHash,
		Deleted:     r.Document.Deleted,
		DeletedAt:   r.Document.DeletedAt,
		UpdatedAt:   r.UpdatedAt,
	}
	return d
}

// ToAttachments converts the wire attachment list to engine models.
func (r DocumentResponse) ToAttachments() []*models.FileAttachment {
	if len(r.Document.Attachments) == 0 {
		return nil
	}
	out := make([]*models.FileAttachment, 0, len(r.Document.Attachments))
	for _, a := range r.Document.Attachments {
		out = append(out, &models.FileAttachment{
			ID:             a.ID,
			DocumentSyncID: r.Document.SyncID,
			FileName:       a.FileName,
			Label:          a.Label,
			RemoteKey:      a.RemoteKey,
			FileSize:       a.FileSize,
			Checksum:       a.Checksum,
			SyncState:      models.FileSynced,
		})
	}
	return out
}
