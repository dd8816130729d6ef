package models

import "time"

// ConflictType classifies a detected divergence.
type ConflictType string

const (
	// ConflictDocumentModified: both sides changed content.
	ConflictDocumentModified ConflictType = "document_modified"
	// ConflictDeleteModify: one side deleted, the other modified.
	ConflictDeleteModify ConflictType = "delete_modify"
	// ConflictFile: attachment-level divergence only.
	ConflictFile ConflictType = "file_conflict"
)

// Valid reports whether t is a member of the closed type set.
func (t ConflictType) Valid() bool {
	switch t {
	case ConflictDocumentModified, ConflictDeleteModify, ConflictFile:
		return true
	}
	return false
}

// Conflict is a detected divergence between the local and remote versions of
// the same document. Resolving a conflict never changes the document's
// sync identifier.
type Conflict struct {
	ID         string       `json:"id"`
	DocumentID string       `json:"document_id"`
	Type       ConflictType `json:"type"`
	// LocalVersion and RemoteVersion are full document snapshots taken at
	// detection time.
	LocalVersion  *Document `json:"local_version"`
	RemoteVersion *Document `json:"remote_version"`
	DetectedAt    time.Time `json:"detected_at"`
}

// ResolutionStrategy selects how a conflict is resolved.
type ResolutionStrategy string

const (
	// ResolveKeepLocal: the local snapshot wins and is re-queued as an
	// update against a fresh version baseline.
	ResolveKeepLocal ResolutionStrategy = "keep_local"
	// ResolveKeepRemote: the remote snapshot overwrites local state.
	ResolveKeepRemote ResolutionStrategy = "keep_remote"
	// ResolveMerge: a caller-supplied field-level merge produces the result.
	ResolveMerge ResolutionStrategy = "merge"
)

// Valid reports whether s is a member of the closed strategy set.
func (s ResolutionStrategy) Valid() bool {
	switch s {
	case ResolveKeepLocal, ResolveKeepRemote, ResolveMerge:
		return true
	}
	return false
}
