package cli

import (
	"bufio"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	gosync "sync"

	"github.com/google/uuid"

	"github.com/mihailsb/docsync/internal/client/blob"
	"github.com/mihailsb/docsync/internal/client/config"
	"github.com/mihailsb/docsync/internal/client/conn"
	"github.com/mihailsb/docsync/internal/client/remote"
	"github.com/mihailsb/docsync/internal/client/storage"
	"github.com/mihailsb/docsync/internal/client/sync"
	"github.com/mihailsb/docsync/internal/common"
	"github.com/mihailsb/docsync/internal/logging"
	"github.com/mihailsb/docsync/internal/models"
)

// entitlementGate is the sync-permission hook. The client has no
// subscription tiers; the config toggle is the only input. A denial routes
// documents to the local-only state instead of failing them.
type entitlementGate struct {
	enabled bool
}

func (g entitlementGate) CanSync() bool { return g.enabled }

func (g entitlementGate) DenialReason() string {
	if g.enabled {
		return ""
	}
	return "synchronization disabled in configuration"
}

// App owns the wired client: local storage, the remote client, the sync
// engine, and the interactive loop.
type App struct {
	config *config.Config
	repos  *storage.Repositories
	db     *sql.DB
	remote *remote.Client
	engine *sync.Engine
	log    logging.Logger
	reader *bufio.Reader

	mu gosync.Mutex
	// conflicts collects unresolved conflicts reported by the engine,
	// keyed by document sync id, for the resolve command.
	conflicts map[string]*models.Conflict

	eventsCancel func()
}

// NewApp wires the full client from config.
func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger := logging.NewSlogLogger(slog.New(slog.NewJSONHandler(os.Stderr, nil)))

	repos, db, err := storage.InitDatabase(ctx, c.DatabaseFile)
	if err != nil {
		return nil, fmt.Errorf("initializing local database: %w", err)
	}

	deviceID, err := loadOrCreateDeviceID(ctx, repos)
	if err != nil {
		db.Close()
		return nil, err
	}

	client := remote.New(c.ServerURL)

	blobs, err := blob.New(ctx, blob.Config{
		Region:       c.S3Region,
		BaseEndpoint: c.S3BaseEndpoint,
		Bucket:       c.S3Bucket,
		AccessKey:    c.S3AccessKey,
		SecretKey:    c.S3SecretKey,
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing object store: %w", err)
	}

	engine := sync.NewEngine(sync.EngineParams{
		Identity:   client,
		Gate:       entitlementGate{enabled: c.SyncEnabled},
		Remote:     client,
		Blobs:      blobs,
		Conn:       conn.NewProber(client, c.OnlineCheckInterval),
		Watcher:    client,
		Documents:  repos.Documents,
		Files:      repos.Files,
		Tombstones: repos.Tombstones,
		Logger:     logger,
		DeviceID:   deviceID,
	})

	return &App{
		config:    c,
		repos:     repos,
		db:        db,
		remote:    client,
		engine:    engine,
		log:       logger,
		reader:    bufio.NewReader(os.Stdin),
		conflicts: make(map[string]*models.Conflict),
	}, nil
}

func loadOrCreateDeviceID(ctx context.Context, repos *storage.Repositories) (string, error) {
	id, err := repos.Metadata.Get(ctx, common.DeviceIDMetadataKey)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, common.ErrNotFound) {
		return "", fmt.Errorf("reading device id: %w", err)
	}

	id = uuid.NewString()
	if err := repos.Metadata.Set(ctx, common.DeviceIDMetadataKey, id); err != nil {
		return "", fmt.Errorf("storing device id: %w", err)
	}
	return id, nil
}

// Run starts the interactive loop and blocks until the user exits.
func (a *App) Run(ctx context.Context) {
	fmt.Println("Welcome to docsync (type 'help' for commands)")
	runREPL(ctx, a, a.status, bufio.NewScanner(os.Stdin))
	a.shutdown(ctx)
}

func (a *App) shutdown(ctx context.Context) {
	a.engine.Stop(ctx)
	a.stopEventPrinter()
	if err := a.db.Close(); err != nil {
		a.log.Warn(ctx, "closing database", "error", err)
	}
}

func (a *App) isLoggedIn() bool {
	return a.remote.IsAuthenticated()
}

func (a *App) status() string {
	if !a.isLoggedIn() {
		return "logged out"
	}
	return fmt.Sprintf("%s, channel %s, %d queued", a.remote.CurrentUserID(), a.engine.ChannelState(), a.engine.QueueLen())
}

// startEventPrinter subscribes to engine events and surfaces them to the
// user; it also collects conflicts for the resolve command.
func (a *App) startEventPrinter() {
	events, cancel := a.engine.Events()
	a.eventsCancel = cancel

	go func() {
		for ev := range events {
			switch ev.Type {
			case sync.EventConflictDetected:
				a.mu.Lock()
				a.conflicts[ev.DocumentID] = ev.Conflict
				a.mu.Unlock()
				fmt.Printf("\n! conflict detected on %s (run 'resolve')\n", ev.DocumentID)
			case sync.EventConflictResolved:
				a.mu.Lock()
				delete(a.conflicts, ev.DocumentID)
				a.mu.Unlock()
			case sync.EventSyncFailed:
				fmt.Printf("\n! sync failed for %s: %v\n", ev.DocumentID, ev.Err)
			case sync.EventSyncDenied:
				fmt.Printf("\n! sync denied for %s: %s\n", ev.DocumentID, ev.Reason)
			}
		}
	}()
}

func (a *App) stopEventPrinter() {
	if a.eventsCancel != nil {
		a.eventsCancel()
		a.eventsCancel = nil
	}
}

func (a *App) takeConflict(docID string) *models.Conflict {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.conflicts[docID]
}

func (a *App) pendingConflicts() []*models.Conflict {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]*models.Conflict, 0, len(a.conflicts))
	for _, c := range a.conflicts {
		out = append(out, c)
	}
	return out
}
