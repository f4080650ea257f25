// Package cli implements the docsync replica commands.
package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/iudanet/docsync/internal/client/auth"
	"github.com/iudanet/docsync/internal/client/iocli"
	clientsync "github.com/iudanet/docsync/internal/client/sync"
	"github.com/iudanet/docsync/internal/models"
	"github.com/iudanet/docsync/pkg/api"
)

// ErrUsage неверные аргументы команды
var ErrUsage = errors.New("usage")

//go:generate moq -out replica_mock.go . Replica

// Replica локальная реплика (реализуется sync.Service)
type Replica interface {
	Put(ctx context.Context, collection string, doc *models.Document) (*models.Document, error)
	Get(ctx context.Context, collection, id string) (*models.Document, error)
	List(ctx context.Context, collection string) ([]*models.Document, error)
	Delete(ctx context.Context, collection, id string) (*models.Document, error)
	Sync(ctx context.Context, collection string) (*clientsync.Result, error)
	SyncAll(ctx context.Context) ([]*clientsync.Result, error)
	State() clientsync.State
	PendingOperations() []*models.PendingOperation
	Subscribe() (<-chan clientsync.State, func())
	Run(ctx context.Context) error
}

//go:generate moq -out remote_mock.go . Remote

// Remote запросы к серверу вне обмена (реализуется api.Client)
type Remote interface {
	Health(ctx context.Context) (*api.HealthResponse, error)
	ListConflicts(ctx context.Context, collection string) ([]api.ConflictResponse, error)
	ResolveConflict(ctx context.Context, collection, documentID string, chosen *models.Document) (*models.Document, error)
}

type Cli struct {
	io          iocli.IO
	auth        auth.Service
	replica     Replica
	remote      Remote
	serverURL   string
	collections []string
}

func New(io iocli.IO, authService auth.Service, replica Replica, remote Remote, serverURL string, collections []string) *Cli {
	return &Cli{
		io:          io,
		auth:        authService,
		replica:     replica,
		remote:      remote,
		serverURL:   serverURL,
		collections: collections,
	}
}

// Run выполняет команду. args не содержит имени команды.
func (c *Cli) Run(ctx context.Context, command string, args []string) error {
	switch command {
	case "login":
		return c.runLogin(ctx, args)
	case "logout":
		return c.runLogout(ctx)
	case "status":
		return c.runStatus(ctx)
	case "put":
		return c.runPut(ctx, args)
	case "get":
		return c.runGet(ctx, args)
	case "list":
		return c.runList(ctx, args)
	case "delete":
		return c.runDelete(ctx, args)
	case "sync":
		return c.runSync(ctx, args)
	case "watch":
		return c.runWatch(ctx)
	case "conflicts":
		return c.runConflicts(ctx, args)
	case "resolve":
		return c.runResolve(ctx, args)
	case "help":
		c.PrintUsage()
		return nil
	default:
		c.PrintUsage()
		return fmt.Errorf("%w: unknown command %q", ErrUsage, command)
	}
}

// requireSession проверяет, что токен сохранен и не истек
func (c *Cli) requireSession(ctx context.Context) error {
	if _, err := c.auth.Session(ctx); err != nil {
		switch {
		case errors.Is(err, auth.ErrNotAuthenticated):
			return fmt.Errorf("not authenticated. Please run 'docsync login' first")
		case errors.Is(err, auth.ErrTokenExpired):
			return fmt.Errorf("access token has expired. Please login again")
		default:
			return err
		}
	}
	return nil
}

// collectionArg проверяет имя коллекции по конфигурации клиента
func (c *Cli) collectionArg(args []string, usage string) (string, error) {
	if len(args) == 0 {
		return "", fmt.Errorf("%w: docsync %s", ErrUsage, usage)
	}
	name := args[0]
	for _, known := range c.collections {
		if known == name {
			return name, nil
		}
	}
	return "", fmt.Errorf("collection %q is not configured (known: %v)", name, c.collections)
}

func (c *Cli) PrintUsage() {
	c.io.Println("docsync replica client")
	c.io.Println()
	c.io.Println("Usage:")
	c.io.Println("  docsync [OPTIONS] COMMAND [ARGS]")
	c.io.Println()
	c.io.Println("Options:")
	c.io.Println("  -config PATH   Configuration file (toml or yaml)")
	c.io.Println("  -server URL    Server URL (default: http://localhost:8080)")
	c.io.Println("  -db PATH       Path to local replica database (default: docsync-replica.db)")
	c.io.Println("  -version       Show version information")
	c.io.Println()
	c.io.Println("Commands:")
	c.io.Println("  login [token]                      Store the bearer token issued by the server")
	c.io.Println("  logout                             Delete the stored session")
	c.io.Println("  status                             Show session and synchronization state")
	c.io.Println("  put <collection> <json>            Create or update a document")
	c.io.Println("  get <collection> <id>              Show a document")
	c.io.Println("  list <collection>                  List live documents")
	c.io.Println("  delete <collection> <id>           Delete a document (tombstone)")
	c.io.Println("  sync [collection]                  Synchronize with the server")
	c.io.Println("  watch                              Auto-sync until interrupted")
	c.io.Println("  conflicts <collection>             List conflicts awaiting resolution")
	c.io.Println("  resolve <collection> <id> [json]   Resolve a conflict (default: keep your version)")
	c.io.Println()
	c.io.Println("Examples:")
	c.io.Println("  docsync login eyJhbGciOi...")
	c.io.Println(`  docsync put notes '{"title":"hello","body":"first note"}'`)
	c.io.Println("  docsync sync notes")
	c.io.Println("  docsync resolve tasks b692f5c0-2d88-4aa1-a9e1-13aa6e4976d5")
}
