package sync

import (
	"sync"
	"time"

	"github.com/mihailsb/docsync/internal/models"
)

// EventType identifies an engine event.
type EventType string

const (
	// EventStateChanged reports a document sync-state transition.
	EventStateChanged EventType = "state_changed"
	// EventSyncFailed reports retry exhaustion for a document; the document
	// stays in the error state until a manual retry.
	EventSyncFailed EventType = "sync_failed"
	// EventConflictDetected requires caller-driven resolution.
	EventConflictDetected EventType = "conflict_detected"
	// EventConflictResolved reports a completed resolution.
	EventConflictResolved EventType = "conflict_resolved"
	// EventChannelStateChanged reports realtime channel transitions.
	EventChannelStateChanged EventType = "channel_state_changed"
	// EventChannelHeartbeat is the periodic liveness signal of an active
	// channel. Its absence is the sign that reconnection has failed
	// silently.
	EventChannelHeartbeat EventType = "channel_heartbeat"
	// EventSyncDenied reports a gating denial routing a document to the
	// local-only state.
	EventSyncDenied EventType = "sync_denied"
)

// Event is a single engine notification.
type Event struct {
	Type         EventType
	DocumentID   string
	State        models.SyncState
	ChannelState ChannelState
	Conflict     *models.Conflict
	Reason       string
	Err          error
	At           time.Time
}

// Bus fans events out to subscribers over bounded channels. Backpressure
// policy: when a subscriber's channel is full the oldest buffered event is
// dropped to make room for the new one; Publish never blocks.
type Bus struct {
	mu     sync.Mutex
	subs   map[int]chan Event
	next   int
	buffer int
	closed bool
}

// NewBus returns a Bus whose subscriber channels buffer up to buffer events.
func NewBus(buffer int) *Bus {
	if buffer < 1 {
		buffer = 1
	}
	return &Bus{subs: make(map[int]chan Event), buffer: buffer}
}

// Subscribe registers a new subscriber. The returned cancel function
// unregisters it and closes the channel.
func (b *Bus) Subscribe() (<-chan Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		ch := make(chan Event)
		close(ch)
		return ch, func() {}
	}

	id := b.next
	b.next++
	ch := make(chan Event, b.buffer)
	b.subs[id] = ch

	return ch, func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if c, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(c)
		}
	}
}

// Publish delivers e to every subscriber, dropping the oldest buffered event
// of a full subscriber.
func (b *Bus) Publish(e Event) {
	if e.At.IsZero() {
		e.At = time.Now()
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	for _, ch := range b.subs {
		for {
			select {
			case ch <- e:
			default:
				// Full: drop the oldest and retry.
				select {
				case <-ch:
				default:
				}
				continue
			}
			break
		}
	}
}

// Close unregisters and closes all subscriber channels.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for id, ch := range b.subs {
		delete(b.subs, id)
		close(ch)
	}
}
