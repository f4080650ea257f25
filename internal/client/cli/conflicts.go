package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/iudanet/docsync/internal/models"
)

func (c *Cli) runConflicts(ctx context.Context, args []string) error {
	collection, err := c.collectionArg(args, "conflicts <collection>")
	if err != nil {
		return err
	}
	if err := c.requireSession(ctx); err != nil {
		return err
	}

	conflicts, err := c.remote.ListConflicts(ctx, collection)
	if err != nil {
		return fmt.Errorf("failed to list conflicts: %w", err)
	}

	c.io.Printf("=== Conflicts in %s ===\n", collection)
	c.io.Println()
	if len(conflicts) == 0 {
		c.io.Println("No conflicts awaiting resolution.")
		return nil
	}

	for i, cf := range conflicts {
		c.io.Printf("%d. %s\n", i+1, cf.DocumentID)
		c.io.Printf("   Queued:  %s\n", time.UnixMilli(cf.CreatedAt).Format(time.RFC3339))
		c.io.Printf("   Server:  %s\n", versionLine(cf.Server))
		c.io.Printf("   Yours:   %s\n", versionLine(cf.Client))
	}
	c.io.Println()
	c.io.Println("Use 'docsync resolve <collection> <id> [json]' to pick a version.")
	return nil
}

func (c *Cli) runResolve(ctx context.Context, args []string) error {
	usage := "resolve <collection> <id> [json]"
	collection, err := c.collectionArg(args, usage)
	if err != nil {
		return err
	}
	if len(args) < 2 {
		return fmt.Errorf("%w: docsync %s", ErrUsage, usage)
	}
	if err := c.requireSession(ctx); err != nil {
		return err
	}

	id := args[1]
	var chosen *models.Document
	if len(args) > 2 {
		chosen, err = parseDocument(args[2])
		if err != nil {
			return err
		}
		chosen.ID = id
	}

	written, err := c.remote.ResolveConflict(ctx, collection, id, chosen)
	if err != nil {
		return fmt.Errorf("failed to resolve conflict: %w", err)
	}
	c.io.Printf("✓ Conflict resolved, version %d written\n", written.UpdatedAt)

	// подтягиваем записанную версию в локальную реплику
	if _, err := c.replica.Sync(ctx, collection); err != nil {
		c.io.Printf("⚠️  Local replica not updated yet: %v\n", err)
	}
	return nil
}

func versionLine(doc *models.Document) string {
	if doc == nil {
		return "(none)"
	}
	state := "live"
	if doc.Deleted {
		state = "deleted"
	}
	return fmt.Sprintf("%s %s fields=%v", time.UnixMilli(doc.UpdatedAt).Format(time.RFC3339), state, doc.Payload.Keys())
}
