// Package sqlite provides the public API for the SQLite-backed store.
// It exposes the factory function while keeping implementation details
// internal.
//
// See docs/ARCHITECTURE.md § Public API.
package sqlite

import (
	"github.com/sietch-labs/sietch/internal/sqlite"
	"github.com/sietch-labs/sietch/pkg/types"
)

// NewStore creates a new SQLite store instance. The store is not
// attached; call Attach with a Config to initialize.
//
// Example:
//
//	store := sqlite.NewStore()
//	err := store.Attach(types.Config{
//	    Backend: types.BackendSQLite,
//	    DataDir: ".sietch-db",
//	})
//	defer store.Detach()
func NewStore() types.Store {
	return sqlite.NewBackend()
}
