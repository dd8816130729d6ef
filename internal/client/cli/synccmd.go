package cli

import (
	"context"
	"fmt"

	"github.com/mihailsb/docsync/internal/models"
)

// Sync nudges the engine to drain the queue and re-submits any documents
// parked in the local-only state.
func (a *App) Sync(ctx context.Context) error {
	if err := a.engine.ReenqueueLocalOnly(ctx); err != nil {
		fmt.Println("Failed to re-queue local-only documents:", err)
	}
	a.engine.SyncNow()
	fmt.Println("Sync triggered,", a.engine.QueueLen(), "operations queued")
	return nil
}

// Status prints the engine and channel state plus per-state document counts.
func (a *App) Status(ctx context.Context) error {
	fmt.Println("channel: ", a.engine.ChannelState())
	fmt.Println("queued:  ", a.engine.QueueLen())

	userID := a.remote.CurrentUserID()
	states := []models.SyncState{
		models.StatePendingUpload, models.StateUploading, models.StateSynced,
		models.StateConflict, models.StatePendingDeletion, models.StateLocalOnly,
		models.StateError,
	}
	for _, s := range states {
		docs, err := a.repos.Documents.ListByState(ctx, userID, s)
		if err != nil {
			return err
		}
		if len(docs) > 0 {
			fmt.Printf("%-17s %d\n", s, len(docs))
		}
	}

	if n := len(a.pendingConflicts()); n > 0 {
		fmt.Printf("%d unresolved conflict(s), run 'resolve'\n", n)
	}
	return nil
}
