package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/mihailsb/docsync/internal/models"
	"github.com/mihailsb/docsync/internal/syncid"
)

// Delete queues a document deletion. The local record stays until the
// remote delete is confirmed; the tombstone guarantees the deletion is
// never undone by a stale remote snapshot.
func (a *App) Delete(ctx context.Context) error {
	docID, err := GetSimpleText(a.reader, "Document id", os.Stdout)
	if err != nil {
		return err
	}

	doc, err := a.repos.Documents.GetBySyncID(ctx, syncid.Normalize(docID))
	if err != nil {
		fmt.Println("Document not found:", err)
		return err
	}

	confirm, err := GetSimpleText(a.reader, fmt.Sprintf("Delete %q? (y/N)", doc.Title), os.Stdout)
	if err != nil {
		return err
	}
	if confirm != "y" && confirm != "yes" {
		fmt.Println("Cancelled")
		return nil
	}

	if err := a.engine.Enqueue(ctx, doc, models.OpDelete); err != nil {
		fmt.Println("Failed to queue deletion:", err)
		return err
	}
	a.engine.SyncNow()

	fmt.Println("Deletion queued for", doc.SyncID)
	return nil
}
