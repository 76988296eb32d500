package types

import "context"

// ItemStore provides CRUD operations over the persisted item collection.
type ItemStore interface {
	// List returns every item, newest first. Returns an empty slice, not nil,
	// when the collection is empty.
	List(ctx context.Context) ([]Item, error)

	// Get retrieves the item with the given ID.
	// Returns ErrNotFound if no item exists with that ID.
	Get(ctx context.Context, id string) (*Item, error)

	// Create validates text, assigns a new UUID v7 and timestamps, and
	// persists the item.
	Create(ctx context.Context, text string) (*Item, error)

	// Update applies a partial update and returns the updated item.
	// Returns ErrNotFound if no item exists with that ID.
	Update(ctx context.Context, id string, u ItemUpdate) (*Item, error)

	// Delete removes the item and returns its last stored state.
	// Returns ErrNotFound if no item exists with that ID.
	Delete(ctx context.Context, id string) (*Item, error)
}

// Backend is an ItemStore with an explicit lifecycle. Operations on a
// detached backend return ErrStoreDetached.
type Backend interface {
	ItemStore

	// Attach opens the store described by config.
	// Returns ErrAlreadyAttached if called twice without Detach.
	Attach(config Config) error

	// Detach releases resources. Detaching a detached backend is a no-op.
	Detach() error
}
