package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/iudanet/docsync/internal/client/storage"
	"github.com/iudanet/docsync/internal/models"
)

func (c *Cli) runPut(ctx context.Context, args []string) error {
	collection, err := c.collectionArg(args, "put <collection> <json>")
	if err != nil {
		return err
	}
	if len(args) < 2 {
		return fmt.Errorf("%w: docsync put <collection> <json>", ErrUsage)
	}

	doc, err := parseDocument(args[1])
	if err != nil {
		return err
	}

	saved, err := c.replica.Put(ctx, collection, doc)
	if err != nil {
		return fmt.Errorf("failed to save document: %w", err)
	}

	c.io.Println("✓ Document saved locally")
	c.io.Printf("ID: %s\n", saved.ID)
	c.io.Println("Run 'docsync sync' to send it to the server.")
	return nil
}

func (c *Cli) runGet(ctx context.Context, args []string) error {
	collection, err := c.collectionArg(args, "get <collection> <id>")
	if err != nil {
		return err
	}
	if len(args) < 2 {
		return fmt.Errorf("%w: docsync get <collection> <id>", ErrUsage)
	}

	doc, err := c.replica.Get(ctx, collection, args[1])
	if err != nil {
		if errors.Is(err, storage.ErrDocumentNotFound) {
			return fmt.Errorf("document %q not found in %q", args[1], collection)
		}
		return fmt.Errorf("failed to get document: %w", err)
	}

	return c.printDocument(doc)
}

func (c *Cli) runList(ctx context.Context, args []string) error {
	collection, err := c.collectionArg(args, "list <collection>")
	if err != nil {
		return err
	}

	docs, err := c.replica.List(ctx, collection)
	if err != nil {
		return fmt.Errorf("failed to list documents: %w", err)
	}

	c.io.Printf("=== %s ===\n", collection)
	c.io.Println()
	if len(docs) == 0 {
		c.io.Println("No documents found.")
		c.io.Printf("Use 'docsync put %s <json>' to add your first document.\n", collection)
		return nil
	}

	c.io.Printf("Found %d document(s):\n", len(docs))
	c.io.Println()
	for i, doc := range docs {
		c.io.Printf("%d. %s\n", i+1, doc.ID)
		c.io.Printf("   Updated: %s\n", time.UnixMilli(doc.UpdatedAt).Format(time.RFC3339))
		if doc.OwnerID != "" {
			c.io.Printf("   Owner:   %s\n", doc.OwnerID)
		}
		c.io.Printf("   Fields:  %v\n", doc.Payload.Keys())
	}
	return nil
}

func (c *Cli) runDelete(ctx context.Context, args []string) error {
	collection, err := c.collectionArg(args, "delete <collection> <id>")
	if err != nil {
		return err
	}
	if len(args) < 2 {
		return fmt.Errorf("%w: docsync delete <collection> <id>", ErrUsage)
	}

	if _, err := c.replica.Delete(ctx, collection, args[1]); err != nil {
		if errors.Is(err, storage.ErrDocumentNotFound) {
			return fmt.Errorf("document %q not found in %q", args[1], collection)
		}
		return fmt.Errorf("failed to delete document: %w", err)
	}

	c.io.Println("✓ Document deleted locally")
	c.io.Println("Run 'docsync sync' to propagate the deletion.")
	return nil
}

// parseDocument разбирает плоский JSON документа из аргумента команды
func parseDocument(raw string) (*models.Document, error) {
	var doc models.Document
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return nil, fmt.Errorf("invalid document json: %w", err)
	}
	return &doc, nil
}

func (c *Cli) printDocument(doc *models.Document) error {
	out, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to render document: %w", err)
	}
	c.io.Println(string(out))
	return nil
}
