package models

import "time"

// Document is the authoritative server copy of a synchronized document.
// SyncID comes from the client that created the document and never changes;
// Version is incremented by the repository on every accepted mutation.
type Document struct {
	SyncID string
	UserID string

	Title       string
	Category    string
	Notes       string
	Date        time.Time
	ContentHash string

	// Attachments is the attachment manifest, stored as a jsonb column.
	// Content bytes live in object storage, keyed by Attachment.RemoteKey.
	Attachments AttachmentList

	Version   int64
	Deleted   bool
	DeletedAt *time.Time
	UpdatedAt time.Time
}

// Attachment is one entry of a document's attachment manifest.
type Attachment struct {
	ID        string `json:"id"`
	FileName  string `json:"file_name"`
	Label     string `json:"label"`
	RemoteKey string `json:"remote_key"`
	FileSize  int64  `json:"file_size"`
	Checksum  string `json:"checksum"`
}
