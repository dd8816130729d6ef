package sync

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mihailsb/docsync/internal/models"
)

// Queue is the authoritative in-memory queue of sync operations. It keeps
// FIFO order per document and holds at most one effective operation per
// document at a time: a later enqueue for the same document replaces the
// earlier one in place (consolidation), so the original queue position is
// preserved.
type Queue struct {
	mu    sync.Mutex
	order []string
	ops   map[string]*models.SyncOperation
}

// NewQueue returns an empty queue.
func NewQueue() *Queue {
	return &Queue{ops: make(map[string]*models.SyncOperation)}
}

// Enqueue adds an operation for the document, consolidating with any
// operation already queued for it: delete beats update beats upload for
// terminal intent, and the most recent payload wins. The one exception is an
// update arriving while an upload is still queued — the remote store has
// never seen the document, so the effective operation stays an upload
// carrying the newest payload. Returns the effective operation.
func (q *Queue) Enqueue(docID string, typ models.OperationType, payload *models.Document) *models.SyncOperation {
	q.mu.Lock()
	defer q.mu.Unlock()

	now := time.Now()

	existing, ok := q.ops[docID]
	if !ok {
		op := &models.SyncOperation{
			ID:         uuid.NewString(),
			DocumentID: docID,
			Type:       typ,
			QueuedAt:   now,
			Payload:    payload.Clone(),
		}
		q.ops[docID] = op
		q.order = append(q.order, docID)
		return op
	}

	effective := existing.Type
	if typ.Beats(effective) {
		effective = typ
	}
	if existing.Type == models.OpUpload && effective == models.OpUpdate {
		effective = models.OpUpload
	}

	existing.Type = effective
	existing.QueuedAt = now
	existing.RetryCount = 0
	if payload != nil {
		existing.Payload = payload.Clone()
	}
	return existing
}

// Dequeue pops the oldest operation, or nil when the queue is empty.
func (q *Queue) Dequeue() *models.SyncOperation {
	q.mu.Lock()
	defer q.mu.Unlock()

	for len(q.order) > 0 {
		docID := q.order[0]
		q.order = q.order[1:]
		if op, ok := q.ops[docID]; ok {
			delete(q.ops, docID)
			return op
		}
	}
	return nil
}

// Requeue puts an operation back at the front of the queue, used when
// draining pauses on connectivity loss.
func (q *Queue) Requeue(op *models.SyncOperation) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if _, ok := q.ops[op.DocumentID]; ok {
		// A newer operation was enqueued meanwhile; it wins.
		return
	}
	q.ops[op.DocumentID] = op
	q.order = append([]string{op.DocumentID}, q.order...)
}

// Remove drops any queued operation for the document.
func (q *Queue) Remove(docID string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	delete(q.ops, docID)
}

// Len returns the number of effective operations queued.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.ops)
}

// Clear empties the queue.
func (q *Queue) Clear() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.order = nil
	q.ops = make(map[string]*models.SyncOperation)
}

// Snapshot returns the queued operations in drain order.
func (q *Queue) Snapshot() []*models.SyncOperation {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]*models.SyncOperation, 0, len(q.ops))
	for _, docID := range q.order {
		if op, ok := q.ops[docID]; ok {
			out = append(out, op)
		}
	}
	return out
}
