package sync

import (
	"context"
	"io"
	"time"

	"github.com/mihailsb/docsync/internal/models"
)

// Identity exposes the authenticated user. No other identity detail is used
// by the engine.
type Identity interface {
	IsAuthenticated() bool
	// CurrentUserID returns the owner id, or "" when signed out.
	CurrentUserID() string
}

// Gate is the entitlement decision consulted before every network mutation.
// A denial is not an error: the affected document is routed to the
// local-only state and the operation is discarded.
type Gate interface {
	CanSync() bool
	DenialReason() string
}

// RemoteStore is the remote document store. Update must fail with
// common.ErrVersionConflict when expectedVersion does not match the stored
// version.
type RemoteStore interface {
	// Create stores a new document and returns the assigned version.
	Create(ctx context.Context, doc *models.Document) (int64, error)

	// Update replaces a stored document iff its version still equals
	// expectedVersion, returning the new version.
	Update(ctx context.Context, doc *models.Document, expectedVersion int64) (int64, error)

	// Delete removes the document remotely.
	Delete(ctx context.Context, syncID string) error

	// Get fetches the current remote snapshot of one document.
	Get(ctx context.Context, syncID string) (*models.Document, error)

	// ListAll returns every remote document of the user.
	ListAll(ctx context.Context, userID string) ([]*models.Document, error)

	// RefreshCredentials attempts a credential refresh. The retry manager
	// calls it once before retrying an auth-classified failure.
	RefreshCredentials(ctx context.Context) error
}

// ObjectStore is the remote object store for attachment content. Keys are
// opaque strings that embed the owning document's sync identifier.
type ObjectStore interface {
	// Put stores the object and returns the key it is stored under.
	Put(ctx context.Context, key string, body io.Reader) (string, error)

	// Get returns the object body. The caller closes it.
	Get(ctx context.Context, key string) (io.ReadCloser, error)

	// Delete removes the object.
	Delete(ctx context.Context, key string) error
}

// Connectivity reports connection transitions. A transition to connected
// triggers a queue drain.
type Connectivity interface {
	// Watch returns a stream of "currently connected" values. The stream
	// closes when ctx is done.
	Watch(ctx context.Context) <-chan bool
}

// ChangeType is the kind of remote change notification.
type ChangeType string

const (
	ChangeCreated ChangeType = "created"
	ChangeUpdated ChangeType = "updated"
	ChangeDeleted ChangeType = "deleted"
)

// ChangeEvent is one remote change notification. Document is nil for
// deletions. Attachments carries the remote attachment list so the channel
// can reconcile local attachment records.
type ChangeEvent struct {
	Type        ChangeType
	DocumentID  string
	Document    *models.Document
	Attachments []*models.FileAttachment
	Timestamp   time.Time
}

// Watcher is the live subscription source feeding the realtime channel.
type Watcher interface {
	// Watch subscribes to the user's create/update/delete events. The error
	// channel reports a broken subscription; both channels close when ctx
	// is done or the subscription fails.
	Watch(ctx context.Context, userID string) (<-chan ChangeEvent, <-chan error, error)
}
