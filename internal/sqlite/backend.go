// Package sqlite implements the SQLite item store. SQLite is the query
// engine; items.jsonl in the data directory is the source of truth and is
// rewritten atomically after every mutation.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/mesh-intelligence/grocery/pkg/types"
)

// File names inside DataDir.
const (
	dbFileName = "grocery.db"
	itemsJSONL = "items.jsonl"
)

// Compile-time interface check: Backend must implement ItemStore.
var _ types.Backend = (*Backend)(nil)

// Backend implements types.ItemStore using SQLite and an items.jsonl document
// file. All exported methods are safe for concurrent use; writes are
// serialized so each document change is applied and persisted atomically.
type Backend struct {
	mu       sync.RWMutex
	attached bool
	config   types.Config
	db       *sql.DB
	items    *itemsTable
}

// NewBackend creates a new SQLite backend instance.
// The backend is not attached; call Attach with a Config to initialize.
func NewBackend() *Backend {
	return &Backend{}
}

// Attach initializes the backend with the given configuration.
// Creates DataDir if it does not exist, rebuilds the SQLite schema, and loads
// items.jsonl into it. Returns ErrAlreadyAttached if already attached.
func (b *Backend) Attach(config types.Config) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.attached {
		return types.ErrAlreadyAttached
	}

	if err := config.Validate(); err != nil {
		return err
	}

	dataDir := config.DataDir
	if dataDir == "" {
		dataDir = "."
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return fmt.Errorf("creating data dir: %w", err)
	}
	config.DataDir = dataDir

	// The database is a cache of items.jsonl; start from a fresh schema.
	dbPath := filepath.Join(dataDir, dbFileName)
	_ = os.Remove(dbPath)

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return fmt.Errorf("opening sqlite: %w", err)
	}
	// A single connection keeps writes serialized inside SQLite as well.
	db.SetMaxOpenConns(1)

	if err := createSchema(db); err != nil {
		db.Close()
		return err
	}

	if err := initJSONLFile(filepath.Join(dataDir, itemsJSONL)); err != nil {
		db.Close()
		return err
	}

	if err := loadItemsJSONL(db, dataDir); err != nil {
		db.Close()
		return fmt.Errorf("load JSONL: %w", err)
	}

	b.db = db
	b.config = config
	b.items = &itemsTable{db: db, dataDir: dataDir}
	b.attached = true
	return nil
}

// Detach releases all resources held by the backend. After Detach, all
// operations return ErrStoreDetached. Detach is idempotent.
func (b *Backend) Detach() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.attached {
		return nil
	}

	if b.db != nil {
		if err := b.db.Close(); err != nil {
			return err
		}
		b.db = nil
	}

	b.items = nil
	b.attached = false
	return nil
}

// DataDir returns the resolved data directory of an attached backend.
func (b *Backend) DataDir() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.config.DataDir
}

// List returns all items ordered newest first.
func (b *Backend) List(ctx context.Context) ([]types.Item, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if !b.attached {
		return nil, types.ErrStoreDetached
	}
	return b.items.list(ctx)
}

// Get retrieves a single item by ID.
func (b *Backend) Get(ctx context.Context, id string) (*types.Item, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if !b.attached {
		return nil, types.ErrStoreDetached
	}
	return b.items.get(ctx, id)
}

// Create validates text and persists a new item.
func (b *Backend) Create(ctx context.Context, text string) (*types.Item, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.attached {
		return nil, types.ErrStoreDetached
	}
	return b.items.create(ctx, text)
}

// Update applies a partial update to an existing item.
func (b *Backend) Update(ctx context.Context, id string, u types.ItemUpdate) (*types.Item, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.attached {
		return nil, types.ErrStoreDetached
	}
	return b.items.update(ctx, id, u)
}

// Delete removes an item and returns its last stored state.
func (b *Backend) Delete(ctx context.Context, id string) (*types.Item, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.attached {
		return nil, types.ErrStoreDetached
	}
	return b.items.delete(ctx, id)
}

// generateUUID generates a new UUID v7 for item IDs.
func generateUUID() string {
	id, err := uuid.NewV7()
	if err != nil {
		// Fallback to UUID v4 if v7 generation fails
		return uuid.New().String()
	}
	return id.String()
}
