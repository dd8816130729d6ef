package cli

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/mihailsb/docsync/internal/syncid"
)

// List prints the user's documents with their sync state.
func (a *App) List(ctx context.Context) error {
	docs, err := a.repos.Documents.ListAll(ctx, a.remote.CurrentUserID())
	if err != nil {
		fmt.Println("Failed to list documents:", err)
		return err
	}
	if len(docs) == 0 {
		fmt.Println("No documents")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTITLE\tCATEGORY\tVERSION\tSTATE")
	for _, d := range docs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n", d.SyncID, d.Title, d.Category, d.Version, d.SyncState)
	}
	return w.Flush()
}

// Show prints one document and its attachments.
func (a *App) Show(ctx context.Context) error {
	docID, err := GetSimpleText(a.reader, "Document id", os.Stdout)
	if err != nil {
		return err
	}

	doc, err := a.repos.Documents.GetBySyncID(ctx, syncid.Normalize(docID))
	if err != nil {
		fmt.Println("Document not found:", err)
		return err
	}

	fmt.Printf("%s\n  category: %s\n  date:     %s\n  version:  %d\n  state:    %s\n",
		doc.Title, doc.Category, doc.Date.Format("2006-01-02"), doc.Version, doc.SyncState)
	if doc.Notes != "" {
		fmt.Println("  notes:")
		fmt.Println("   ", doc.Notes)
	}

	atts, err := a.repos.Files.ListByDocument(ctx, doc.SyncID)
	if err != nil {
		fmt.Println("Failed to list attachments:", err)
		return err
	}
	for _, f := range atts {
		fmt.Printf("  file: %s (%d bytes, %s)\n", f.Label, f.FileSize, f.SyncState)
	}
	return nil
}
