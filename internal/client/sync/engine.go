package sync

import (
	"context"
	"fmt"
	gosync "sync"
	"time"

	"github.com/mihailsb/docsync/internal/client/repositories/documents"
	"github.com/mihailsb/docsync/internal/client/repositories/files"
	"github.com/mihailsb/docsync/internal/client/repositories/tombstones"
	"github.com/mihailsb/docsync/internal/common"
	"github.com/mihailsb/docsync/internal/logging"
	"github.com/mihailsb/docsync/internal/models"
)

// Engine is the per-session composition root of the sync machinery. It owns
// the queue, the coordinator, the realtime channel, the conflict resolver
// and the event bus, and ties their lifecycles to the authenticated session.
type Engine struct {
	coordinator *Coordinator
	channel     *Channel
	resolver    *Resolver
	tombstones  *TombstoneTracker
	queue       *Queue
	bus         *Bus
	identity    Identity
	log         logging.Logger

	// stopTimeout bounds Stop: workers that do not finish in time are
	// abandoned rather than blocking teardown.
	stopTimeout time.Duration

	mu      gosync.Mutex
	running bool
	cancel  context.CancelFunc
	runDone chan struct{}
}

// EngineParams carries every collaborator the engine wires together.
type EngineParams struct {
	Identity Identity
	Gate     Gate
	Remote   RemoteStore
	Blobs    ObjectStore
	Conn     Connectivity
	Watcher  Watcher

	Documents  documents.Repository
	Files      files.Repository
	Tombstones tombstones.Repository

	Logger   logging.Logger
	DeviceID string

	// StopTimeout defaults to 5s.
	StopTimeout time.Duration
}

// NewEngine wires the full engine. Nothing starts until Start.
func NewEngine(p EngineParams) *Engine {
	bus := NewBus(64)
	queue := NewQueue()
	locks := newKeyedMutex()
	tombs := NewTombstoneTracker(p.Tombstones)
	detector := NewDetector()

	coordinator := NewCoordinator(CoordinatorParams{
		Queue:      queue,
		Documents:  p.Documents,
		Files:      p.Files,
		Tombstones: tombs,
		Detector:   detector,
		Remote:     p.Remote,
		Blobs:      p.Blobs,
		Gate:       p.Gate,
		Identity:   p.Identity,
		Conn:       p.Conn,
		Bus:        bus,
		Locks:      locks,
		Logger:     p.Logger,
		DeviceID:   p.DeviceID,
	})

	channel := NewChannel(ChannelParams{
		Watcher:    p.Watcher,
		Identity:   p.Identity,
		Documents:  p.Documents,
		Files:      p.Files,
		Tombstones: tombs,
		Detector:   detector,
		Locks:      locks,
		Bus:        bus,
		Logger:     p.Logger,
	})

	resolver := NewResolver(p.Documents, bus, coordinator.Enqueue)

	timeout := p.StopTimeout
	if timeout == 0 {
		timeout = 5 * time.Second
	}

	return &Engine{
		coordinator: coordinator,
		channel:     channel,
		resolver:    resolver,
		tombstones:  tombs,
		queue:       queue,
		bus:         bus,
		identity:    p.Identity,
		log:         p.Logger,
		stopTimeout: timeout,
	}
}

// Start brings the engine up for the current authenticated session: the
// coordinator's drain loop and the realtime channel. It fails when no user
// is signed in.
func (e *Engine) Start(ctx context.Context) error {
	if !e.identity.IsAuthenticated() {
		return fmt.Errorf("starting sync engine: %w", common.ErrUnauthorized)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.running {
		return nil
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	done := make(chan struct{})

	go func() {
		defer close(done)
		e.coordinator.Run(runCtx)
	}()

	if err := e.channel.Start(runCtx); err != nil {
		cancel()
		<-done
		return fmt.Errorf("starting realtime channel: %w", err)
	}

	e.cancel = cancel
	e.runDone = done
	e.running = true
	e.log.Info(ctx, "sync engine started", "user_id", e.identity.CurrentUserID())
	return nil
}

// Stop tears the session down: it cancels the workers, waits up to the stop
// timeout for in-flight operations, then clears the queue and any buffered
// realtime notifications. Persistent state (documents, tombstones) is left
// untouched.
func (e *Engine) Stop(ctx context.Context) {
	e.mu.Lock()
	if !e.running {
		e.mu.Unlock()
		return
	}
	cancel := e.cancel
	done := e.runDone
	e.cancel = nil
	e.runDone = nil
	e.running = false
	e.mu.Unlock()

	e.channel.Stop()
	cancel()

	select {
	case <-done:
	case <-time.After(e.stopTimeout):
		e.log.Warn(ctx, "sync teardown timed out, abandoning in-flight work", "timeout", e.stopTimeout)
	}

	// The bus stays open: the engine can be restarted for the next session
	// and existing subscriptions survive the restart.
	e.queue.Clear()
	e.channel.ClearBuffer()
	e.log.Info(ctx, "sync engine stopped")
}

// Running reports whether the engine is started.
func (e *Engine) Running() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.running
}

// Events returns a subscription to engine events plus its cancel function.
func (e *Engine) Events() (<-chan Event, func()) {
	return e.bus.Subscribe()
}

// Enqueue schedules a sync operation for the document.
func (e *Engine) Enqueue(ctx context.Context, doc *models.Document, typ models.OperationType) error {
	return e.coordinator.Enqueue(ctx, doc, typ)
}

// SyncNow nudges the coordinator to drain the queue immediately.
func (e *Engine) SyncNow() {
	e.coordinator.SyncNow()
}

// ReenqueueLocalOnly re-submits documents parked in the local-only state,
// used after the gating condition clears.
func (e *Engine) ReenqueueLocalOnly(ctx context.Context) error {
	return e.coordinator.ReenqueueLocalOnly(ctx)
}

// Resolve applies a resolution strategy to a detected conflict.
func (e *Engine) Resolve(ctx context.Context, c *models.Conflict, strategy models.ResolutionStrategy, merge MergeFunc) (*models.Document, error) {
	return e.resolver.Resolve(ctx, c, strategy, merge)
}

// SetBackgrounded toggles realtime background buffering.
func (e *Engine) SetBackgrounded(ctx context.Context, backgrounded bool) {
	e.channel.SetBackgrounded(ctx, backgrounded)
}

// ChannelState returns the realtime channel's lifecycle state.
func (e *Engine) ChannelState() ChannelState {
	return e.channel.State()
}

// Tombstones exposes the tombstone tracker for maintenance commands.
func (e *Engine) Tombstones() *TombstoneTracker {
	return e.tombstones
}

// QueueLen reports the number of pending operations.
func (e *Engine) QueueLen() int {
	return e.queue.Len()
}
