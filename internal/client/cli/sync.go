package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	clientsync "github.com/iudanet/docsync/internal/client/sync"
)

func (c *Cli) runSync(ctx context.Context, args []string) error {
	c.io.Println("=== Synchronization ===")

	if err := c.requireSession(ctx); err != nil {
		return err
	}

	c.io.Println()
	c.io.Println("Starting synchronization with server...")

	var (
		results []*clientsync.Result
		err     error
	)
	if len(args) > 0 {
		collection, cerr := c.collectionArg(args, "sync [collection]")
		if cerr != nil {
			return cerr
		}
		var res *clientsync.Result
		res, err = c.replica.Sync(ctx, collection)
		if res != nil {
			results = append(results, res)
		}
	} else {
		results, err = c.replica.SyncAll(ctx)
	}

	for _, res := range results {
		c.printResult(res)
	}
	if err != nil {
		if len(c.replica.PendingOperations()) > 0 {
			c.io.Println("Changes are kept locally and queued for retry.")
		}
		return fmt.Errorf("synchronization failed: %w", err)
	}

	c.io.Println()
	c.io.Println("✓ Synchronization completed successfully!")
	return nil
}

func (c *Cli) printResult(res *clientsync.Result) {
	c.io.Println()
	c.io.Printf("[%s]\n", res.Collection)
	c.io.Printf("Pushed to server:   %d documents (%d as delta)\n", res.Pushed+res.Deltas, res.Deltas)
	c.io.Printf("Pulled from server: %d documents\n", res.Pulled)
	c.io.Printf("Merged locally:     %d documents\n", res.Merged)
	if res.Conflicts > 0 {
		c.io.Printf("Conflicts:          %d (see 'docsync conflicts %s')\n", res.Conflicts, res.Collection)
	}
	if res.Rejected > 0 {
		c.io.Printf("Rejected:           %d\n", res.Rejected)
	}
	if res.Failed+res.Resend > 0 {
		c.io.Printf("Will retry:         %d\n", res.Failed+res.Resend)
	}
}

// runWatch синхронизирует в фоне и печатает изменения состояния до отмены ctx
func (c *Cli) runWatch(ctx context.Context) error {
	if err := c.requireSession(ctx); err != nil {
		return err
	}

	c.io.Println("=== Watching (Ctrl+C to stop) ===")

	states, cancel := c.replica.Subscribe()
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- c.replica.Run(ctx) }()

	var last clientsync.State
	for {
		select {
		case err := <-done:
			if err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			c.io.Println("Stopped.")
			return nil
		case st, ok := <-states:
			if !ok {
				states = nil
				continue
			}
			if st.Syncing || st == last {
				continue
			}
			last = st
			c.printState(st)
		}
	}
}

func (c *Cli) printState(st clientsync.State) {
	status := "offline"
	if st.Online {
		status = "online"
	}
	line := fmt.Sprintf("[%s] %s pending=%d queued=%d", time.Now().Format(time.TimeOnly), status, st.Pending, st.Queued)
	if st.LastError != "" {
		line += " error=" + st.LastError
	}
	c.io.Println(line)
}
