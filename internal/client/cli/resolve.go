package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/mihailsb/docsync/internal/client/sync"
	"github.com/mihailsb/docsync/internal/models"
	"github.com/mihailsb/docsync/internal/syncid"
)

// mergeNewestFields is the built-in merge strategy: it keeps the side with
// the newer modification time per document, concatenating notes when both
// sides changed them.
func mergeNewestFields(local, remote *models.Document) (*models.Document, error) {
	out := local.Clone()
	if remote.UpdatedAt.After(local.UpdatedAt) {
		out = remote.Clone()
	}
	if local.Notes != remote.Notes && local.Notes != "" && remote.Notes != "" {
		out.Notes = local.Notes + "\n---\n" + remote.Notes
	}
	return out, nil
}

// Resolve walks the unresolved conflicts and applies the strategy the user
// picks for each.
func (a *App) Resolve(ctx context.Context) error {
	conflicts := a.pendingConflicts()
	if len(conflicts) == 0 {
		fmt.Println("No unresolved conflicts")
		return nil
	}

	for _, c := range conflicts {
		fmt.Printf("conflict %s on %s (%s)\n", c.ID, c.DocumentID, c.Type)
		fmt.Printf("  local:  %q (version %d, updated %s)\n", c.LocalVersion.Title, c.LocalVersion.Version, c.LocalVersion.UpdatedAt.Format("2006-01-02 15:04"))
		fmt.Printf("  remote: %q (version %d, updated %s)\n", c.RemoteVersion.Title, c.RemoteVersion.Version, c.RemoteVersion.UpdatedAt.Format("2006-01-02 15:04"))

		choice, err := GetSimpleText(a.reader, "Keep (l)ocal, keep (r)emote, (m)erge, (s)kip?", os.Stdout)
		if err != nil {
			return err
		}

		var strategy models.ResolutionStrategy
		var merge sync.MergeFunc
		switch syncid.Normalize(choice) {
		case "l", "local":
			strategy = models.ResolveKeepLocal
		case "r", "remote":
			strategy = models.ResolveKeepRemote
		case "m", "merge":
			strategy = models.ResolveMerge
			merge = mergeNewestFields
		default:
			fmt.Println("Skipped")
			continue
		}

		resolved, err := a.engine.Resolve(ctx, c, strategy, merge)
		if err != nil {
			fmt.Println("Resolution failed:", err)
			continue
		}
		fmt.Printf("Resolved %s with %s (now %q)\n", c.DocumentID, strategy, resolved.Title)
	}

	a.engine.SyncNow()
	return nil
}
