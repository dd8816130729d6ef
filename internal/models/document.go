// Package models defines the synchronized document model: documents, file
// attachments, tombstones, queued sync operations and detected conflicts.
//
// Attachments are not embedded in Document rows; they live in their own
// keyed collection and reference the owning document by sync identifier, so
// there is never an owning pointer cycle between the two.
package models

import (
	"time"

	"github.com/mihailsb/docsync/internal/hashx"
)

// Document is the unit of synchronization.
type Document struct {
	// SyncID is the immutable UUID v4 identity of the document, assigned at
	// creation and never regenerated.
	SyncID string `json:"sync_id"`
	// UserID is the owner identity, opaque to the engine.
	UserID string `json:"user_id"`

	Title    string    `json:"title"`
	Category string    `json:"category"`
	Notes    string    `json:"notes"`
	Date     time.Time `json:"date"`

	// Version increases by one on every accepted mutation. It is the basis
	// of optimistic-concurrency conflict detection.
	Version int64 `json:"version"`
	// ContentHash is a digest over the mutable content fields, used to
	// detect no-op re-syncs.
	ContentHash string `json:"content_hash"`

	SyncState SyncState `json:"sync_state"`

	Deleted   bool       `json:"deleted"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`

	UpdatedAt time.Time `json:"updated_at"`
}

// ComputeContentHash digests the mutable content fields.
func (d *Document) ComputeContentHash() string {
	return hashx.Sum(d.Title, d.Category, d.Notes, d.Date.UTC().Format(time.RFC3339Nano))
}

// ContentEquals reports whether two documents carry the same content,
// ignoring version and sync bookkeeping.
func (d *Document) ContentEquals(other *Document) bool {
	if other == nil {
		return false
	}
	return d.ComputeContentHash() == other.ComputeContentHash()
}

// Clone returns a deep copy; the snapshot stored in queued operations and
// conflicts must not alias the live record.
func (d *Document) Clone() *Document {
	if d == nil {
		return nil
	}
	c := *d
	if d.DeletedAt != nil {
		t := *d.DeletedAt
		c.DeletedAt = &t
	}
	return &c
}

// FileAttachment is a file bound to a document by the document's sync
// identifier (one-to-many, cascade-delete).
type FileAttachment struct {
	ID             string `json:"id"`
	DocumentSyncID string `json:"document_sync_id"`

	FileName string `json:"file_name"`
	// Label is the user-facing override of FileName.
	Label string `json:"label"`
	// LocalPath is the device-local cache location, empty until downloaded.
	LocalPath string `json:"local_path,omitempty"`
	// RemoteKey is the object-store key, empty until uploaded. Once
	// assigned it always embeds the owning document's SyncID, so the file's
	// identity survives any renumbering of local keys.
	RemoteKey string `json:"remote_key,omitempty"`

	FileSize int64  `json:"file_size"`
	Checksum string `json:"checksum"`

	SyncState FileSyncState `json:"sync_state"`
}

// Clone returns a copy of the attachment.
func (f *FileAttachment) Clone() *FileAttachment {
	if f == nil {
		return nil
	}
	c := *f
	return &c
}
