package models

import "time"

// Tombstone records that a document was deleted. While a tombstone for a
// sync identifier exists, the realtime channel and reconciliation logic must
// never re-materialize a local document with that identifier from an older
// remote snapshot.
type Tombstone struct {
	SyncID    string    `json:"sync_id"`
	UserID    string    `json:"user_id"`
	DeletedAt time.Time `json:"deleted_at"`
	// DeletedBy is the device or session that performed the deletion.
	DeletedBy string `json:"deleted_by"`
	Reason    string `json:"reason"`
}
