package models

import "time"

// OperationType is the kind of queued sync work.
type OperationType string

const (
	OpUpload OperationType = "upload"
	OpUpdate OperationType = "update"
	OpDelete OperationType = "delete"
)

// Valid reports whether t is a member of the closed type set.
func (t OperationType) Valid() bool {
	switch t {
	case OpUpload, OpUpdate, OpDelete:
		return true
	}
	return false
}

// rank orders operation types by terminal intent for queue consolidation:
// delete beats update beats upload.
func (t OperationType) rank() int {
	switch t {
	case OpDelete:
		return 3
	case OpUpdate:
		return 2
	case OpUpload:
		return 1
	}
	return 0
}

// Beats reports whether t carries stronger terminal intent than other.
func (t OperationType) Beats(other OperationType) bool {
	return t.rank() > other.rank()
}

// SyncOperation is a queued unit of work. At most one effective operation per
// document is active in the queue at a time; later operations for the same
// document replace earlier ones.
type SyncOperation struct {
	ID         string        `json:"id"`
	DocumentID string        `json:"document_id"`
	Type       OperationType `json:"type"`
	QueuedAt   time.Time     `json:"queued_at"`
	RetryCount int           `json:"retry_count"`
	// Payload is the document snapshot taken at enqueue time.
	Payload *Document `json:"payload,omitempty"`
}
