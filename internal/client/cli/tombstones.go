package cli

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"
	"time"
)

// Tombstones lists the deletion records. They are kept until an explicit
// purge; nothing removes them automatically.
func (a *App) Tombstones(ctx context.Context) error {
	list, err := a.engine.Tombstones().List(ctx, a.remote.CurrentUserID())
	if err != nil {
		fmt.Println("Failed to list tombstones:", err)
		return err
	}
	if len(list) == 0 {
		fmt.Println("No tombstones")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tDELETED AT\tBY\tREASON")
	for _, t := range list {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", t.SyncID, t.DeletedAt.Format(time.RFC3339), t.DeletedBy, t.Reason)
	}
	return w.Flush()
}

// Purge removes tombstones older than the given number of days. This is the
// only way tombstones are ever removed.
func (a *App) Purge(ctx context.Context) error {
	daysText, err := GetSimpleText(a.reader, "Purge tombstones older than how many days?", os.Stdout)
	if err != nil {
		return err
	}
	days, err := strconv.Atoi(daysText)
	if err != nil || days < 1 {
		fmt.Println("Enter a positive number of days")
		return err
	}

	n, err := a.engine.Tombstones().PurgeOlderThan(ctx, time.Duration(days)*24*time.Hour)
	if err != nil {
		fmt.Println("Purge failed:", err)
		return err
	}
	fmt.Printf("Purged %d tombstone(s)\n", n)
	return nil
}
