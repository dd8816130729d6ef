package models

import "time"

// Tombstone is the server record of a deleted document. Rows are kept
// indefinitely so late-syncing devices can tell deletion apart from absence.
type Tombstone struct {
	SyncID    string
	UserID    string
	DeletedAt time.Time
	DeletedBy string
}
