// Package sqlite exposes the SQLite item store while keeping its
// implementation internal.
package sqlite

import (
	"github.com/mesh-intelligence/grocery/internal/sqlite"
	"github.com/mesh-intelligence/grocery/pkg/types"
)

// NewBackend creates a new SQLite item store.
// The backend is not attached; call Attach with a Config to initialize.
//
// Example:
//
//	backend := sqlite.NewBackend()
//	err := backend.Attach(types.Config{
//	    Backend: types.BackendSQLite,
//	    DataDir: ".grocery-db",
//	})
//	defer backend.Detach()
func NewBackend() types.Backend {
	return sqlite.NewBackend()
}
