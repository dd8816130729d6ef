package sync

import (
	"context"
	"errors"
	"fmt"
	"sort"
	gosync "sync"
	"time"

	"github.com/mihailsb/docsync/internal/client/repositories/documents"
	"github.com/mihailsb/docsync/internal/client/repositories/files"
	"github.com/mihailsb/docsync/internal/common"
	"github.com/mihailsb/docsync/internal/logging"
	"github.com/mihailsb/docsync/internal/models"
)

// ChannelState is the lifecycle state of the realtime channel.
type ChannelState string

const (
	ChannelInactive     ChannelState = "inactive"
	ChannelConnecting   ChannelState = "connecting"
	ChannelActive       ChannelState = "active"
	ChannelReconnecting ChannelState = "reconnecting"
	// ChannelFailed is terminal: automatic reconnection has stopped. A
	// manual Start resets the attempt counter.
	ChannelFailed ChannelState = "failed"
)

// Channel maintains the live subscription to remote create/update/delete
// events, applies them to local state through the tombstone tracker and
// conflict detector, and reconnects with exponential backoff on failure.
// While the application is backgrounded, notifications are buffered and
// deduplicated before being applied on foregrounding.
type Channel struct {
	watcher  Watcher
	identity Identity
	docs     documents.Repository
	files    files.Repository
	tombs    *TombstoneTracker
	detector *Detector
	locks    *keyedMutex
	bus      *Bus
	log      logging.Logger

	reconnectBase  time.Duration
	maxAttempts    int
	heartbeatEvery time.Duration
	clock          func() time.Time

	mu           gosync.Mutex
	state        ChannelState
	attempts     int
	backgrounded bool
	buffer       []ChangeEvent
	cancel       context.CancelFunc
	done         chan struct{}
}

// ChannelParams carries the collaborators a Channel needs.
type ChannelParams struct {
	Watcher  Watcher
	Identity Identity

	Documents  documents.Repository
	Files      files.Repository
	Tombstones *TombstoneTracker
	Detector   *Detector
	Locks      *keyedMutex
	Bus        *Bus
	Logger     logging.Logger

	// ReconnectBase defaults to 2s, doubling per attempt; MaxAttempts
	// defaults to 5; HeartbeatEvery defaults to 5 minutes.
	ReconnectBase  time.Duration
	MaxAttempts    int
	HeartbeatEvery time.Duration
}

// NewChannel assembles a Channel.
func NewChannel(p ChannelParams) *Channel {
	base := p.ReconnectBase
	if base == 0 {
		base = 2 * time.Second
	}
	maxAttempts := p.MaxAttempts
	if maxAttempts == 0 {
		maxAttempts = 5
	}
	heartbeat := p.HeartbeatEvery
	if heartbeat == 0 {
		heartbeat = 5 * time.Minute
	}
	return &Channel{
		watcher:        p.Watcher,
		identity:       p.Identity,
		docs:           p.Documents,
		files:          p.Files,
		tombs:          p.Tombstones,
		detector:       p.Detector,
		locks:          p.Locks,
		bus:            p.Bus,
		log:            p.Logger,
		reconnectBase:  base,
		maxAttempts:    maxAttempts,
		heartbeatEvery: heartbeat,
		clock:          time.Now,
		state:          ChannelInactive,
	}
}

// State returns the current lifecycle state.
func (c *Channel) State() ChannelState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Channel) setState(s ChannelState) {
	c.mu.Lock()
	changed := c.state != s
	c.state = s
	c.mu.Unlock()
	if changed {
		c.bus.Publish(Event{Type: EventChannelStateChanged, ChannelState: s})
	}
}

// Start opens the subscription. Calling Start resets the reconnection
// attempt counter, so it also restarts a failed channel.
func (c *Channel) Start(ctx context.Context) error {
	if !c.identity.IsAuthenticated() {
		return common.ErrUnauthorized
	}

	c.mu.Lock()
	if c.cancel != nil {
		c.mu.Unlock()
		return fmt.Errorf("channel already started")
	}
	runCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.done = make(chan struct{})
	c.attempts = 0
	done := c.done
	c.mu.Unlock()

	go func() {
		defer close(done)
		c.run(runCtx)
	}()
	return nil
}

// Stop closes the subscription and waits for the listen loop to exit.
func (c *Channel) Stop() {
	c.mu.Lock()
	cancel := c.cancel
	done := c.done
	c.cancel = nil
	c.done = nil
	c.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
	c.setState(ChannelInactive)
}

// run is the listen loop: connect, consume, reconnect with backoff.
func (c *Channel) run(ctx context.Context) {
	userID := c.identity.CurrentUserID()
	for {
		c.setState(ChannelConnecting)
		events, errs, err := c.watcher.Watch(ctx, userID)
		if err != nil {
			if !c.scheduleReconnect(ctx, err) {
				return
			}
			continue
		}

		c.setState(ChannelActive)
		c.mu.Lock()
		c.attempts = 0
		c.mu.Unlock()

		if !c.consume(ctx, events, errs) {
			return
		}
		if !c.scheduleReconnect(ctx, errors.New("subscription closed")) {
			return
		}
	}
}

// consume dispatches events until the subscription breaks (returns true to
// reconnect) or ctx is done (returns false).
func (c *Channel) consume(ctx context.Context, events <-chan ChangeEvent, errs <-chan error) bool {
	heartbeat := time.NewTicker(c.heartbeatEvery)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			return false
		case <-heartbeat.C:
			c.bus.Publish(Event{Type: EventChannelHeartbeat, ChannelState: ChannelActive})
		case ev, ok := <-events:
			if !ok {
				return true
			}
			c.dispatch(ctx, ev)
		case err, ok := <-errs:
			if !ok {
				return true
			}
			c.log.Warn(ctx, "subscription error", "error", err)
			return true
		}
	}
}

// scheduleReconnect sleeps the backoff delay for the next attempt. It
// returns false when ctx is done or attempts are exhausted, in which case
// the channel is terminal.
func (c *Channel) scheduleReconnect(ctx context.Context, cause error) bool {
	c.mu.Lock()
	c.attempts++
	attempt := c.attempts
	c.mu.Unlock()

	if attempt > c.maxAttempts {
		c.log.Error(ctx, "realtime channel failed, giving up", "attempts", attempt-1, "error", cause)
		c.setState(ChannelFailed)
		return false
	}

	delay := c.reconnectBase << (attempt - 1)
	c.log.Info(ctx, "scheduling realtime reconnect", "attempt", attempt, "delay", delay, "error", cause)
	c.setState(ChannelReconnecting)

	select {
	case <-ctx.Done():
		return false
	case <-time.After(delay):
		return true
	}
}

// SetBackgrounded toggles background buffering. On foregrounding, the
// buffered notifications are deduplicated (keeping only the most recent per
// (type, document) pair, in timestamp order) and applied.
func (c *Channel) SetBackgrounded(ctx context.Context, backgrounded bool) {
	c.mu.Lock()
	c.backgrounded = backgrounded
	var pending []ChangeEvent
	if !backgrounded {
		pending = dedupe(c.buffer)
		c.buffer = nil
	}
	c.mu.Unlock()

	for _, ev := range pending {
		c.apply(ctx, ev)
	}
}

// ClearBuffer drops buffered background notifications; used on session
// teardown.
func (c *Channel) ClearBuffer() {
	c.mu.Lock()
	c.buffer = nil
	c.mu.Unlock()
}

func (c *Channel) dispatch(ctx context.Context, ev ChangeEvent) {
	c.mu.Lock()
	if c.backgrounded {
		c.buffer = append(c.buffer, ev)
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()
	c.apply(ctx, ev)
}

// dedupe keeps only the most recent notification per (type, document) pair,
// ordered by timestamp. This bounds redundant churn after long backgrounding.
func dedupe(events []ChangeEvent) []ChangeEvent {
	type key struct {
		typ ChangeType
		doc string
	}
	latest := make(map[key]ChangeEvent, len(events))
	for _, ev := range events {
		k := key{ev.Type, ev.DocumentID}
		if cur, ok := latest[k]; !ok || ev.Timestamp.After(cur.Timestamp) {
			latest[k] = ev
		}
	}
	out := make([]ChangeEvent, 0, len(latest))
	for _, ev := range latest {
		out = append(out, ev)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out
}

// apply translates one remote change into local state under the document
// lock. Events for tombstoned documents are discarded: a deletion can never
// be undone by a stale snapshot.
func (c *Channel) apply(ctx context.Context, ev ChangeEvent) {
	unlock := c.locks.Lock(ev.DocumentID)
	defer unlock()

	deleted, err := c.tombs.IsDeleted(ctx, ev.DocumentID)
	if err != nil {
		c.log.Error(ctx, "tombstone check failed", "sync_id", ev.DocumentID, "error", err)
		return
	}

	switch ev.Type {
	case ChangeCreated, ChangeUpdated:
		if deleted {
			c.log.Info(ctx, "discarding event for tombstoned document", "sync_id", ev.DocumentID, "type", ev.Type)
			return
		}
		c.applyUpsert(ctx, ev)
	case ChangeDeleted:
		c.applyDelete(ctx, ev)
	}
}

func (c *Channel) applyUpsert(ctx context.Context, ev ChangeEvent) {
	remote := ev.Document
	if remote == nil {
		return
	}

	local, err := c.docs.GetBySyncID(ctx, ev.DocumentID)
	switch {
	case errors.Is(err, common.ErrNotFound):
		incoming := remote.Clone()
		incoming.SyncState = models.StateSynced
		incoming.ContentHash = incoming.ComputeContentHash()
		if err := c.docs.Upsert(ctx, incoming); err != nil {
			c.log.Error(ctx, "failed to store incoming document", "sync_id", ev.DocumentID, "error", err)
			return
		}
		c.reconcileAttachments(ctx, ev.DocumentID, ev.Attachments)
		c.bus.Publish(Event{Type: EventStateChanged, DocumentID: ev.DocumentID, State: models.StateSynced})
		return
	case err != nil:
		c.log.Error(ctx, "failed to load local document", "sync_id", ev.DocumentID, "error", err)
		return
	}

	// A conflicted document must not be silently overwritten.
	if local.SyncState == models.StateConflict {
		return
	}

	if remote.Version <= local.Version {
		// Stale or already-seen notification; version comparison, not
		// arrival order, provides correctness.
		return
	}

	if local.SyncState.Pending() {
		// Both sides hold unresolved changes.
		if conflict := c.detector.Detect(local, remote); conflict != nil {
			if err := c.docs.SetState(ctx, local.SyncID, models.StateConflict); err != nil {
				c.log.Error(ctx, "failed to mark conflict", "sync_id", local.SyncID, "error", err)
				return
			}
			c.bus.Publish(Event{Type: EventConflictDetected, DocumentID: local.SyncID, State: models.StateConflict, Conflict: conflict})
			return
		}
	}

	incoming := remote.Clone()
	incoming.SyncState = models.StateSynced
	incoming.ContentHash = incoming.ComputeContentHash()
	if err := c.docs.Upsert(ctx, incoming); err != nil {
		c.log.Error(ctx, "failed to apply incoming document", "sync_id", ev.DocumentID, "error", err)
		return
	}
	c.reconcileAttachments(ctx, ev.DocumentID, ev.Attachments)
	c.bus.Publish(Event{Type: EventStateChanged, DocumentID: ev.DocumentID, State: models.StateSynced})
}

func (c *Channel) applyDelete(ctx context.Context, ev ChangeEvent) {
	local, err := c.docs.GetBySyncID(ctx, ev.DocumentID)
	if err != nil && !errors.Is(err, common.ErrNotFound) {
		c.log.Error(ctx, "failed to load local document", "sync_id", ev.DocumentID, "error", err)
		return
	}

	// A remote delete over unsynced local edits is a delete-modify conflict:
	// the local changes must survive until the caller picks a side. A local
	// pending deletion agrees with the remote and falls through to removal.
	if err == nil && (local.SyncState == models.StatePendingUpload || local.SyncState == models.StateUploading) {
		remote := local.Clone()
		remote.Deleted = true
		if conflict := c.detector.Detect(local, remote); conflict != nil {
			if err := c.docs.SetState(ctx, local.SyncID, models.StateConflict); err != nil {
				c.log.Error(ctx, "failed to mark conflict", "sync_id", local.SyncID, "error", err)
				return
			}
			c.bus.Publish(Event{Type: EventConflictDetected, DocumentID: local.SyncID, State: models.StateConflict, Conflict: conflict})
			return
		}
	}

	// Record the tombstone first so the deletion survives a crash between
	// here and the row removal.
	if err := c.tombs.RecordDeletion(ctx, ev.DocumentID, c.identity.CurrentUserID(), "remote", "deleted on another device"); err != nil {
		c.log.Error(ctx, "failed to record remote deletion", "sync_id", ev.DocumentID, "error", err)
		return
	}
	if err := c.files.DeleteByDocument(ctx, ev.DocumentID); err != nil {
		c.log.Error(ctx, "failed to delete local attachments", "sync_id", ev.DocumentID, "error", err)
		return
	}
	if err := c.docs.Delete(ctx, ev.DocumentID); err != nil {
		c.log.Error(ctx, "failed to delete local document", "sync_id", ev.DocumentID, "error", err)
		return
	}
	c.bus.Publish(Event{Type: EventStateChanged, DocumentID: ev.DocumentID, State: models.StatePendingDeletion})
}

// reconcileAttachments aligns local attachment records with the remote list:
// new ones are added, changed remote keys and labels are updated, and local
// records absent remotely are removed.
func (c *Channel) reconcileAttachments(ctx context.Context, docSyncID string, remote []*models.FileAttachment) {
	local, err := c.files.ListByDocument(ctx, docSyncID)
	if err != nil {
		c.log.Error(ctx, "failed to list local attachments", "sync_id", docSyncID, "error", err)
		return
	}

	localByID := make(map[string]*models.FileAttachment, len(local))
	for _, f := range local {
		localByID[f.ID] = f
	}

	seen := make(map[string]struct{}, len(remote))
	for _, rf := range remote {
		seen[rf.ID] = struct{}{}
		lf, ok := localByID[rf.ID]
		if !ok {
			incoming := rf.Clone()
			incoming.DocumentSyncID = docSyncID
			incoming.LocalPath = ""
			incoming.SyncState = models.FileSynced
			if err := c.files.Upsert(ctx, incoming); err != nil {
				c.log.Error(ctx, "failed to add attachment", "attachment_id", rf.ID, "error", err)
			}
			continue
		}
		if lf.RemoteKey != rf.RemoteKey || lf.Label != rf.Label || lf.Checksum != rf.Checksum {
			lf.RemoteKey = rf.RemoteKey
			lf.Label = rf.Label
			lf.Checksum = rf.Checksum
			lf.FileSize = rf.FileSize
			lf.SyncState = models.FileSynced
			if err := c.files.Upsert(ctx, lf); err != nil {
				c.log.Error(ctx, "failed to update attachment", "attachment_id", rf.ID, "error", err)
			}
		}
	}

	for id := range localByID {
		if _, ok := seen[id]; !ok {
			if err := c.files.Delete(ctx, id); err != nil {
				c.log.Error(ctx, "failed to remove attachment", "attachment_id", id, "error", err)
			}
		}
	}
}
