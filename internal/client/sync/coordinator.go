package sync

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	gosync "sync"
	"time"

	"github.com/mihailsb/docsync/internal/client/repositories/documents"
	"github.com/mihailsb/docsync/internal/client/repositories/files"
	"github.com/mihailsb/docsync/internal/common"
	"github.com/mihailsb/docsync/internal/logging"
	"github.com/mihailsb/docsync/internal/models"
	"github.com/mihailsb/docsync/internal/retry"
	"github.com/mihailsb/docsync/internal/syncid"
)

// CoordinatorParams carries the collaborators a Coordinator needs.
type CoordinatorParams struct {
	Queue      *Queue
	Documents  documents.Repository
	Files      files.Repository
	Tombstones *TombstoneTracker
	Detector   *Detector
	Remote     RemoteStore
	Blobs      ObjectStore
	Gate       Gate
	Identity   Identity
	Conn       Connectivity
	Bus        *Bus
	Locks      *keyedMutex
	Logger     logging.Logger
	// DeviceID identifies this installation in tombstones.
	DeviceID string

	// Retry policies; zero values fall back to the package defaults.
	NetworkPolicy retry.Policy
	FilePolicy    retry.Policy
}

// Coordinator owns the operation queue and drives each document's state
// machine: it accepts upload/update/delete operations, consolidates
// redundant ones, and drains the queue through the retry manager.
type Coordinator struct {
	queue    *Queue
	docs     documents.Repository
	files    files.Repository
	tombs    *TombstoneTracker
	detector *Detector
	remote   RemoteStore
	blobs    ObjectStore
	gate     Gate
	identity Identity
	conn     Connectivity
	bus      *Bus
	locks    *keyedMutex
	log      logging.Logger
	deviceID string

	netPolicy  retry.Policy
	filePolicy retry.Policy

	mu       gosync.Mutex
	draining bool
	online   bool

	syncNow chan struct{}
	clock   func() time.Time
}

// NewCoordinator assembles a Coordinator from its parameters.
func NewCoordinator(p CoordinatorParams) *Coordinator {
	netPolicy := p.NetworkPolicy
	if netPolicy.MaxRetries == 0 && netPolicy.BaseDelay == 0 {
		netPolicy = retry.NetworkPolicy
	}
	filePolicy := p.FilePolicy
	if filePolicy.MaxRetries == 0 && filePolicy.BaseDelay == 0 {
		filePolicy = retry.FilePolicy
	}
	return &Coordinator{
		queue:      p.Queue,
		docs:       p.Documents,
		files:      p.Files,
		tombs:      p.Tombstones,
		detector:   p.Detector,
		remote:     p.Remote,
		blobs:      p.Blobs,
		gate:       p.Gate,
		identity:   p.Identity,
		conn:       p.Conn,
		bus:        p.Bus,
		locks:      p.Locks,
		log:        p.Logger,
		deviceID:   p.DeviceID,
		netPolicy:  netPolicy,
		filePolicy: filePolicy,
		syncNow:    make(chan struct{}, 1),
		clock:      time.Now,
	}
}

// Enqueue accepts an operation for the document. Gating is applied here: a
// denial routes the document straight to the local-only state and discards
// the operation, because retrying would never succeed until the gate
// reopens.
func (c *Coordinator) Enqueue(ctx context.Context, doc *models.Document, typ models.OperationType) error {
	if doc == nil || !typ.Valid() {
		return fmt.Errorf("%w: bad operation", common.ErrValidation)
	}
	if !syncid.IsValid(doc.SyncID) {
		return fmt.Errorf("%w: %q", common.ErrInvalidSyncID, doc.SyncID)
	}

	if !c.gate.CanSync() {
		reason := c.gate.DenialReason()
		c.log.Info(ctx, "sync denied, keeping document local", "sync_id", doc.SyncID, "reason", reason)
		if err := c.docs.SetState(ctx, doc.SyncID, models.StateLocalOnly); err != nil && !errors.Is(err, common.ErrNotFound) {
			return err
		}
		c.bus.Publish(Event{Type: EventSyncDenied, DocumentID: doc.SyncID, State: models.StateLocalOnly, Reason: reason})
		return nil
	}

	state := models.StatePendingUpload
	if typ == models.OpDelete {
		state = models.StatePendingDeletion
	}
	doc.SyncState = state
	if err := c.docs.SetState(ctx, doc.SyncID, state); err != nil && !errors.Is(err, common.ErrNotFound) {
		return err
	}

	c.queue.Enqueue(doc.SyncID, typ, doc)
	c.bus.Publish(Event{Type: EventStateChanged, DocumentID: doc.SyncID, State: state})
	return nil
}

// SyncNow nudges the drain loop.
func (c *Coordinator) SyncNow() {
	select {
	case c.syncNow <- struct{}{}:
	default:
	}
}

// Run consumes the connectivity signal and drains the queue on transitions
// to connected and on SyncNow triggers. It returns when ctx is done.
func (c *Coordinator) Run(ctx context.Context) {
	connCh := c.conn.Watch(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case online, ok := <-connCh:
			if !ok {
				return
			}
			c.setOnline(online)
			if online {
				if err := c.Drain(ctx); err != nil {
					c.log.Error(ctx, "drain failed", "error", err)
				}
			}
		case <-c.syncNow:
			if err := c.Drain(ctx); err != nil {
				c.log.Error(ctx, "drain failed", "error", err)
			}
		}
	}
}

func (c *Coordinator) setOnline(v bool) {
	c.mu.Lock()
	c.online = v
	c.mu.Unlock()
}

func (c *Coordinator) isOnline() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.online
}

// Drain processes all queued operations in FIFO order by document, one at a
// time. Connectivity loss pauses draining; the pending operation is put back
// at the front of the queue. Only one drain runs at a time.
func (c *Coordinator) Drain(ctx context.Context) error {
	c.mu.Lock()
	if c.draining {
		c.mu.Unlock()
		return nil
	}
	c.draining = true
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		c.draining = false
		c.mu.Unlock()
	}()

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		op := c.queue.Dequeue()
		if op == nil {
			return nil
		}
		if !c.isOnline() {
			c.queue.Requeue(op)
			return nil
		}
		c.process(ctx, op)
	}
}

// ReenqueueLocalOnly re-scans documents parked in the local-only state and
// re-queues them as uploads. Called when the gate reopens; the engine does
// not do this automatically.
func (c *Coordinator) ReenqueueLocalOnly(ctx context.Context) error {
	userID := c.identity.CurrentUserID()
	if userID == "" {
		return common.ErrUnauthorized
	}
	docs, err := c.docs.ListByState(ctx, userID, models.StateLocalOnly)
	if err != nil {
		return fmt.Errorf("listing local-only documents: %w", err)
	}
	for _, d := range docs {
		if err := c.Enqueue(ctx, d, models.OpUpload); err != nil {
			return err
		}
	}
	return nil
}

// process executes one operation under the document's lock.
func (c *Coordinator) process(ctx context.Context, op *models.SyncOperation) {
	unlock := c.locks.Lock(op.DocumentID)
	defer unlock()

	// The gate may have closed since enqueue.
	if !c.gate.CanSync() {
		if err := c.docs.SetState(ctx, op.DocumentID, models.StateLocalOnly); err != nil && !errors.Is(err, common.ErrNotFound) {
			c.log.Error(ctx, "failed to park document", "sync_id", op.DocumentID, "error", err)
		}
		c.bus.Publish(Event{Type: EventSyncDenied, DocumentID: op.DocumentID, State: models.StateLocalOnly, Reason: c.gate.DenialReason()})
		return
	}

	doc, err := c.docs.GetBySyncID(ctx, op.DocumentID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) && op.Type == models.OpDelete {
			// Local record already gone; still propagate the delete.
			c.deleteRemote(ctx, op)
			return
		}
		c.log.Error(ctx, "failed to load document for sync", "sync_id", op.DocumentID, "error", err)
		return
	}

	// Conflicted and errored documents are excluded from draining until the
	// caller intervenes.
	if !doc.SyncState.Drainable() {
		c.log.Info(ctx, "skipping non-drainable document", "sync_id", doc.SyncID, "state", doc.SyncState)
		return
	}

	switch op.Type {
	case models.OpUpload:
		c.upload(ctx, op, doc, false)
	case models.OpUpdate:
		c.upload(ctx, op, doc, true)
	case models.OpDelete:
		c.delete(ctx, op, doc)
	}
}

// upload pushes a create or update to the remote store, transferring pending
// attachments first.
func (c *Coordinator) upload(ctx context.Context, op *models.SyncOperation, doc *models.Document, isUpdate bool) {
	if err := c.docs.SetState(ctx, doc.SyncID, models.StateUploading); err != nil {
		c.log.Warn(ctx, "failed to mark uploading", "sync_id", doc.SyncID, "error", err)
	}

	if err := c.pushAttachments(ctx, doc); err != nil {
		c.fail(ctx, doc.SyncID, fmt.Errorf("pushing attachments: %w", err))
		return
	}

	payload := op.Payload
	if payload == nil {
		payload = doc
	}

	var newVersion int64
	err := retry.DoWithRefresh(ctx, c.netPolicy, c.remote.RefreshCredentials, func(ctx context.Context) error {
		var opErr error
		if isUpdate {
			newVersion, opErr = c.remote.Update(ctx, payload, payload.Version)
		} else {
			newVersion, opErr = c.remote.Create(ctx, payload)
		}
		return opErr
	})

	if err != nil {
		if errors.Is(err, common.ErrVersionConflict) {
			c.routeConflict(ctx, doc)
			return
		}
		if isUpdate && errors.Is(err, common.ErrNotFound) {
			c.routeRemoteDeletion(ctx, doc)
			return
		}
		c.fail(ctx, doc.SyncID, err)
		return
	}

	doc.Title = payload.Title
	doc.Category = payload.Category
	doc.Notes = payload.Notes
	doc.Date = payload.Date
	doc.Version = newVersion
	doc.ContentHash = doc.ComputeContentHash()
	doc.SyncState = models.StateSynced
	doc.UpdatedAt = c.clock().UTC()
	if err := c.docs.Upsert(ctx, doc); err != nil {
		c.fail(ctx, doc.SyncID, fmt.Errorf("storing synced document: %w", err))
		return
	}
	c.bus.Publish(Event{Type: EventStateChanged, DocumentID: doc.SyncID, State: models.StateSynced})
}

// pushAttachments uploads every attachment that has no remote copy yet.
func (c *Coordinator) pushAttachments(ctx context.Context, doc *models.Document) error {
	atts, err := c.files.ListByDocument(ctx, doc.SyncID)
	if err != nil {
		return err
	}
	for _, att := range atts {
		if att.SyncState == models.FileSynced && att.RemoteKey != "" {
			continue
		}
		if att.LocalPath == "" {
			continue
		}

		att.SyncState = models.FileSyncing
		if err := c.files.Upsert(ctx, att); err != nil {
			c.log.Warn(ctx, "failed to mark attachment syncing", "attachment_id", att.ID, "error", err)
		}

		key := att.RemoteKey
		if key == "" {
			key = ObjectKey(doc.UserID, doc.SyncID, att.ID, filepath.Base(att.FileName))
		}

		err := retry.Do(ctx, c.filePolicy, func(ctx context.Context) error {
			f, err := os.Open(att.LocalPath)
			if err != nil {
				return err
			}
			defer f.Close()
			_, err = c.blobs.Put(ctx, key, f)
			return err
		})
		if err != nil {
			att.SyncState = models.FileError
			if upErr := c.files.Upsert(ctx, att); upErr != nil {
				c.log.Warn(ctx, "failed to mark attachment error", "attachment_id", att.ID, "error", upErr)
			}
			return err
		}

		att.RemoteKey = key
		att.SyncState = models.FileSynced
		if err := c.files.Upsert(ctx, att); err != nil {
			return err
		}
	}
	return nil
}

// delete propagates a deletion: tombstone first, then the remote document,
// then remote objects, then local cleanup. A failure after the tombstone is
// written leaves the tombstone in place so the deletion is delivered at
// least once.
func (c *Coordinator) delete(ctx context.Context, op *models.SyncOperation, doc *models.Document) {
	if err := c.tombs.RecordDeletion(ctx, doc.SyncID, doc.UserID, c.deviceID, "user request"); err != nil {
		c.fail(ctx, doc.SyncID, err)
		return
	}

	atts, err := c.files.ListByDocument(ctx, doc.SyncID)
	if err != nil {
		c.fail(ctx, doc.SyncID, err)
		return
	}

	err = retry.DoWithRefresh(ctx, c.netPolicy, c.remote.RefreshCredentials, func(ctx context.Context) error {
		return c.remote.Delete(ctx, doc.SyncID)
	})
	if err != nil && !errors.Is(err, common.ErrNotFound) {
		c.fail(ctx, doc.SyncID, err)
		return
	}

	for _, att := range atts {
		if att.RemoteKey == "" {
			continue
		}
		err := retry.Do(ctx, c.filePolicy, func(ctx context.Context) error {
			return c.blobs.Delete(ctx, att.RemoteKey)
		})
		if err != nil {
			// The document is gone remotely; orphaned objects are
			// recoverable by key prefix, so log and continue.
			c.log.Warn(ctx, "failed to delete remote object", "key", att.RemoteKey, "error", err)
		}
	}

	if err := c.files.DeleteByDocument(ctx, doc.SyncID); err != nil {
		c.fail(ctx, doc.SyncID, err)
		return
	}
	if err := c.docs.Delete(ctx, doc.SyncID); err != nil {
		c.fail(ctx, doc.SyncID, err)
		return
	}
	c.bus.Publish(Event{Type: EventStateChanged, DocumentID: doc.SyncID, State: models.StatePendingDeletion})
}

// deleteRemote handles a delete whose local record is already gone.
func (c *Coordinator) deleteRemote(ctx context.Context, op *models.SyncOperation) {
	userID := c.identity.CurrentUserID()
	if err := c.tombs.RecordDeletion(ctx, op.DocumentID, userID, c.deviceID, "user request"); err != nil {
		c.log.Error(ctx, "failed to record tombstone", "sync_id", op.DocumentID, "error", err)
		return
	}
	err := retry.DoWithRefresh(ctx, c.netPolicy, c.remote.RefreshCredentials, func(ctx context.Context) error {
		return c.remote.Delete(ctx, op.DocumentID)
	})
	if err != nil && !errors.Is(err, common.ErrNotFound) {
		c.log.Error(ctx, "failed to delete remote document", "sync_id", op.DocumentID, "error", err)
	}
}

// routeRemoteDeletion handles an update rejected because the remote copy is
// already gone: the local edits and the remote deletion are opposite intents,
// so the document is parked as a delete-modify conflict instead of an error.
func (c *Coordinator) routeRemoteDeletion(ctx context.Context, local *models.Document) {
	remote := local.Clone()
	remote.Deleted = true
	conflict := c.detector.Detect(local, remote)
	if conflict == nil {
		return
	}
	if err := c.docs.SetState(ctx, local.SyncID, models.StateConflict); err != nil {
		c.log.Error(ctx, "failed to mark conflict", "sync_id", local.SyncID, "error", err)
	}
	c.bus.Publish(Event{Type: EventConflictDetected, DocumentID: local.SyncID, State: models.StateConflict, Conflict: conflict})
}

// routeConflict turns a remote version-conflict response into a Conflict for
// caller-driven resolution.
func (c *Coordinator) routeConflict(ctx context.Context, local *models.Document) {
	remote, err := c.remote.Get(ctx, local.SyncID)
	if err != nil {
		c.fail(ctx, local.SyncID, fmt.Errorf("fetching remote side of conflict: %w", err))
		return
	}

	conflict := c.detector.Detect(local, remote)
	if conflict == nil {
		// Same content on both sides; adopt the remote version number.
		local.Version = remote.Version
		local.SyncState = models.StateSynced
		local.UpdatedAt = c.clock().UTC()
		if err := c.docs.Upsert(ctx, local); err != nil {
			c.fail(ctx, local.SyncID, err)
		} else {
			c.bus.Publish(Event{Type: EventStateChanged, DocumentID: local.SyncID, State: models.StateSynced})
		}
		return
	}

	if err := c.docs.SetState(ctx, local.SyncID, models.StateConflict); err != nil {
		c.log.Error(ctx, "failed to mark conflict", "sync_id", local.SyncID, "error", err)
	}
	c.bus.Publish(Event{Type: EventConflictDetected, DocumentID: local.SyncID, State: models.StateConflict, Conflict: conflict})
}

// fail parks the document in the error state and surfaces the cause. The
// operation is dropped from the active queue; a manual retry is required.
func (c *Coordinator) fail(ctx context.Context, syncID string, cause error) {
	c.log.Error(ctx, "sync operation failed", "sync_id", syncID, "error", cause)
	if err := c.docs.SetState(ctx, syncID, models.StateError); err != nil && !errors.Is(err, common.ErrNotFound) {
		c.log.Error(ctx, "failed to mark error state", "sync_id", syncID, "error", err)
	}
	c.bus.Publish(Event{Type: EventSyncFailed, DocumentID: syncID, State: models.StateError, Err: cause})
}

// ObjectKey builds the object-store key for an attachment. The key embeds
// the owning document's sync identifier, so the file's identity survives any
// renumbering of local keys.
func ObjectKey(userID, docSyncID, attachmentID, fileName string) string {
	return fmt.Sprintf("users/%s/documents/%s/%s-%s", userID, docSyncID, attachmentID, fileName)
}
