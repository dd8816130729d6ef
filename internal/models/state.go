package models

// SyncState is the synchronization state of a document. The set is closed;
// switches over it should be exhaustive.
type SyncState string

const (
	StateLocalOnly       SyncState = "local_only"
	StatePendingUpload   SyncState = "pending_upload"
	StateUploading       SyncState = "uploading"
	StateSynced          SyncState = "synced"
	StatePendingDownload SyncState = "pending_download"
	StateDownloading     SyncState = "downloading"
	StateConflict        SyncState = "conflict"
	StatePendingDeletion SyncState = "pending_deletion"
	StateError           SyncState = "error"
)

// Valid reports whether s is a member of the closed state set.
func (s SyncState) Valid() bool {
	switch s {
	case StateLocalOnly, StatePendingUpload, StateUploading, StateSynced,
		StatePendingDownload, StateDownloading, StateConflict,
		StatePendingDeletion, StateError:
		return true
	}
	return false
}

// Pending reports whether the document has unsynchronized outbound work.
func (s SyncState) Pending() bool {
	switch s {
	case StatePendingUpload, StateUploading, StatePendingDeletion:
		return true
	}
	return false
}

// Drainable reports whether a queued operation for a document in this state
// may be executed. Conflicted documents are excluded from draining until
// resolved; errored ones wait for a manual retry.
func (s SyncState) Drainable() bool {
	return s != StateConflict && s != StateError
}

// FileSyncState is the per-attachment subset of the document states.
type FileSyncState string

const (
	FileNotSynced FileSyncState = "not_synced"
	FilePending   FileSyncState = "pending"
	FileSyncing   FileSyncState = "syncing"
	FileSynced    FileSyncState = "synced"
	FileError     FileSyncState = "error"
)

// Valid reports whether s is a member of the closed state set.
func (s FileSyncState) Valid() bool {
	switch s {
	case FileNotSynced, FilePending, FileSyncing, FileSynced, FileError:
		return true
	}
	return false
}
