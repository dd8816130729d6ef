package sync

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mihailsb/docsync/internal/client/repositories/documents"
	"github.com/mihailsb/docsync/internal/common"
	"github.com/mihailsb/docsync/internal/models"
)

// MergeFunc produces the resolved document from the two sides of a conflict.
// Only content fields may be merged; the sync identifier of the result is
// forced back to the conflicted document's identifier regardless of what the
// function returns.
type MergeFunc func(local, remote *models.Document) (*models.Document, error)

// Detector recognizes divergence between a local and a remote snapshot of
// the same document.
type Detector struct {
	clock func() time.Time
}

// NewDetector returns a Detector.
func NewDetector() *Detector {
	return &Detector{clock: time.Now}
}

// Detect compares the two snapshots and returns a Conflict, or nil when the
// remote state can be applied cleanly (or ignored as a no-op).
func (d *Detector) Detect(local, remote *models.Document) *models.Conflict {
	if local == nil || remote == nil {
		return nil
	}

	var typ models.ConflictType
	switch {
	case local.Deleted != remote.Deleted:
		typ = models.ConflictDeleteModify
	case !local.ContentEquals(remote):
		typ = models.ConflictDocumentModified
	default:
		// Same content on both sides; version drift alone is a no-op
		// re-sync, not a conflict.
		return nil
	}

	return d.newConflict(typ, local, remote)
}

// NewFileConflict records an attachment-level divergence for a document
// whose content is otherwise identical on both sides.
func (d *Detector) NewFileConflict(local, remote *models.Document) *models.Conflict {
	return d.newConflict(models.ConflictFile, local, remote)
}

func (d *Detector) newConflict(typ models.ConflictType, local, remote *models.Document) *models.Conflict {
	return &models.Conflict{
		ID:            uuid.NewString(),
		DocumentID:    local.SyncID,
		Type:          typ,
		LocalVersion:  local.Clone(),
		RemoteVersion: remote.Clone(),
		DetectedAt:    d.clock().UTC(),
	}
}

// Resolver applies a resolution strategy to a detected conflict. Until
// resolved, the document sits in the conflict state and is excluded from
// queue draining.
type Resolver struct {
	docs documents.Repository
	bus  *Bus
	// enqueue re-queues the winning snapshot as an update. Wired by the
	// engine to the coordinator's Enqueue.
	enqueue func(ctx context.Context, doc *models.Document, typ models.OperationType) error
	clock   func() time.Time
}

// NewResolver returns a Resolver writing results through the given
// repository and re-queueing via enqueue.
func NewResolver(docs documents.Repository, bus *Bus, enqueue func(ctx context.Context, doc *models.Document, typ models.OperationType) error) *Resolver {
	return &Resolver{docs: docs, bus: bus, enqueue: enqueue, clock: time.Now}
}

// Resolve applies the strategy and returns the resulting document. The
// result's sync identifier always equals the conflicted document's
// identifier; no strategy may change it.
func (r *Resolver) Resolve(ctx context.Context, c *models.Conflict, strategy models.ResolutionStrategy, merge MergeFunc) (*models.Document, error) {
	if c == nil || c.LocalVersion == nil || c.RemoteVersion == nil {
		return nil, fmt.Errorf("%w: incomplete conflict", common.ErrValidation)
	}
	if !strategy.Valid() {
		return nil, fmt.Errorf("%w: unknown strategy %q", common.ErrValidation, strategy)
	}

	var (
		resolved  *models.Document
		requeue   bool
		requeueOp = models.OpUpdate
	)

	switch strategy {
	case models.ResolveKeepLocal:
		resolved = c.LocalVersion.Clone()
		// Fresh baseline: the next update is made against the version the
		// remote store actually holds.
		resolved.Version = c.RemoteVersion.Version
		resolved.SyncState = models.StatePendingUpload
		requeue = true
		if c.RemoteVersion.Deleted {
			// The remote copy is gone; keeping the local side means
			// re-creating the document rather than updating it.
			resolved.Version = 0
			resolved.Deleted = false
			requeueOp = models.OpUpload
		}

	case models.ResolveKeepRemote:
		resolved = c.RemoteVersion.Clone()
		resolved.SyncState = models.StateSynced

	case models.ResolveMerge:
		if merge == nil {
			return nil, fmt.Errorf("%w: merge strategy requires a merge function", common.ErrValidation)
		}
		merged, err := merge(c.LocalVersion.Clone(), c.RemoteVersion.Clone())
		if err != nil {
			return nil, fmt.Errorf("merge failed: %w", err)
		}
		resolved = merged.Clone()
		resolved.Version = c.RemoteVersion.Version
		resolved.SyncState = models.StatePendingUpload
		requeue = true
	}

	// The identity of the document survives any strategy.
	resolved.SyncID = c.DocumentID
	resolved.UserID = c.LocalVersion.UserID
	resolved.ContentHash = resolved.ComputeContentHash()
	resolved.UpdatedAt = r.clock().UTC()

	if err := r.docs.Upsert(ctx, resolved); err != nil {
		return nil, fmt.Errorf("storing resolution: %w", err)
	}

	if requeue {
		if err := r.enqueue(ctx, resolved, requeueOp); err != nil {
			return nil, fmt.Errorf("re-queueing resolution: %w", err)
		}
	}

	r.bus.Publish(Event{
		Type:       EventConflictResolved,
		DocumentID: c.DocumentID,
		State:      resolved.SyncState,
		Conflict:   c,
	})

	return resolved, nil
}
