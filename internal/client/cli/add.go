package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/mihailsb/docsync/internal/client/sync"
	"github.com/mihailsb/docsync/internal/models"
	"github.com/mihailsb/docsync/internal/syncid"
)

// Add creates a document locally and queues it for upload. The sync
// identifier is assigned here, at creation, and never changes afterwards.
func (a *App) Add(ctx context.Context) error {
	title, err := GetSimpleText(a.reader, "Title", os.Stdout)
	if err != nil {
		return err
	}
	category, err := GetSimpleText(a.reader, "Category", os.Stdout)
	if err != nil {
		return err
	}
	notes, err := GetMultiline(a.reader, "Notes", os.Stdout)
	if err != nil {
		return err
	}
	dateText, err := GetSimpleText(a.reader, "Date (YYYY-MM-DD, empty for today)", os.Stdout)
	if err != nil {
		return err
	}

	date := time.Now().UTC()
	if dateText != "" {
		date, err = time.Parse("2006-01-02", dateText)
		if err != nil {
			fmt.Println("Invalid date:", err)
			return err
		}
	}

	doc := &models.Document{
		SyncID:    syncid.Generate(),
		UserID:    a.remote.CurrentUserID(),
		Title:     title,
		Category:  category,
		Notes:     notes,
		Date:      date,
		SyncState: models.StatePendingUpload,
		UpdatedAt: time.Now().UTC(),
	}
	doc.ContentHash = doc.ComputeContentHash()

	if err := a.repos.Documents.Upsert(ctx, doc); err != nil {
		fmt.Println("Failed to store document:", err)
		return err
	}
	if err := a.engine.Enqueue(ctx, doc, models.OpUpload); err != nil {
		fmt.Println("Failed to queue upload:", err)
		return err
	}
	a.engine.SyncNow()

	fmt.Println("Added", doc.SyncID)
	return nil
}

// AddFile attaches a local file to an existing document and queues an
// update so the attachment is uploaded.
func (a *App) AddFile(ctx context.Context) error {
	docID, err := GetSimpleText(a.reader, "Document id", os.Stdout)
	if err != nil {
		return err
	}
	doc, err := a.repos.Documents.GetBySyncID(ctx, syncid.Normalize(docID))
	if err != nil {
		fmt.Println("Document not found:", err)
		return err
	}

	path, err := GetSimpleText(a.reader, "File path", os.Stdout)
	if err != nil {
		return err
	}
	label, err := GetSimpleText(a.reader, "Label (empty to use file name)", os.Stdout)
	if err != nil {
		return err
	}

	att, err := sync.NewLocalAttachment(doc.SyncID, path, label)
	if err != nil {
		fmt.Println("Failed to read file:", err)
		return err
	}
	if err := a.repos.Files.Upsert(ctx, att); err != nil {
		fmt.Println("Failed to store attachment:", err)
		return err
	}

	op := models.OpUpdate
	if doc.Version == 0 {
		op = models.OpUpload
	}
	if err := a.engine.Enqueue(ctx, doc, op); err != nil {
		fmt.Println("Failed to queue sync:", err)
		return err
	}
	a.engine.SyncNow()

	fmt.Println("Attached", att.FileName, "to", doc.SyncID)
	return nil
}
