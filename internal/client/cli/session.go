package cli

import (
	"context"
	"fmt"
	"time"
)

func (c *Cli) runLogin(ctx context.Context, args []string) error {
	c.io.Println("=== Login ===")

	var token string
	if len(args) > 0 {
		token = args[0]
	} else {
		var err error
		token, err = c.io.ReadSecret("Token: ")
		if err != nil {
			return fmt.Errorf("failed to read token: %w", err)
		}
	}
	if token == "" {
		return fmt.Errorf("token cannot be empty")
	}

	data, err := c.auth.Login(ctx, c.serverURL, token)
	if err != nil {
		return fmt.Errorf("login failed: %w", err)
	}

	c.io.Println("✓ Login successful!")
	c.io.Printf("Actor:  %s\n", data.ActorID)
	c.io.Printf("Server: %s\n", data.ServerURL)
	if data.ExpiresAt > 0 {
		c.io.Printf("Token expires: %s\n", time.Unix(data.ExpiresAt, 0).Format(time.RFC3339))
	}

	// недоступный сервер не мешает работать офлайн
	if _, err := c.remote.Health(ctx); err != nil {
		c.io.Printf("⚠️  Server is not reachable right now: %v\n", err)
	}
	return nil
}

func (c *Cli) runLogout(ctx context.Context) error {
	c.io.Println("=== Logout ===")

	if err := c.auth.Logout(ctx); err != nil {
		return fmt.Errorf("logout failed: %w", err)
	}

	c.io.Println("✓ Logout successful!")
	c.io.Println("Local documents are kept; unsynchronized changes will be sent after the next login.")
	return nil
}

func (c *Cli) runStatus(ctx context.Context) error {
	c.io.Println("=== Status ===")
	c.io.Println()

	data, err := c.auth.Stored(ctx)
	if err != nil {
		c.io.Println("Session: Not authenticated")
		c.io.Println("Run 'docsync login' to authenticate.")
	} else {
		c.io.Printf("Session: %s @ %s\n", data.ActorID, data.ServerURL)
		if data.ExpiresAt > 0 {
			expiresAt := time.Unix(data.ExpiresAt, 0)
			if remaining := time.Until(expiresAt); remaining > 0 {
				c.io.Printf("Token expires: %s (%s remaining)\n", expiresAt.Format(time.RFC3339), remaining.Round(time.Second))
			} else {
				c.io.Println("⚠️  Token has expired. Please login again.")
			}
		}
	}

	state := c.replica.State()
	c.io.Println()
	if state.Pending > 0 {
		c.io.Printf("⚠️  Pending sync: %d document(s) waiting to be synchronized\n", state.Pending)
		c.io.Println("Run 'docsync sync' to synchronize with server.")
	} else {
		c.io.Println("✓ All local changes synchronized with server")
	}

	ops := c.replica.PendingOperations()
	if len(ops) > 0 {
		c.io.Printf("\nRetry queue: %d operation(s)\n", len(ops))
		for _, op := range ops {
			c.io.Printf("  %s %s/%s retries=%d", op.Direction, op.Collection, op.DocumentID, op.Retries)
			if !op.NextAttempt.IsZero() {
				c.io.Printf(" next=%s", op.NextAttempt.Format(time.RFC3339))
			}
			if op.LastError != "" {
				c.io.Printf(" error=%q", op.LastError)
			}
			c.io.Println()
		}
	}

	return nil
}
