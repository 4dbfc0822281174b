package sqlite

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/sietch-labs/sietch/pkg/types"
)

// DBFileName is the single local database file inside DataDir.
const DBFileName = "sietch.db"

// StagingDirName holds staged import files inside DataDir.
const StagingDirName = "staging"

var _ types.Store = (*Backend)(nil)

// Backend implements the Store interface on a local SQLite file.
//
// Mutations serialize through the write lock (one mutation completes
// fully before the next begins); reads take the read lock and observe
// the state as of the last completed mutation.
type Backend struct {
	mu       sync.RWMutex
	attached bool
	config   types.Config
	db       *sql.DB
}

// NewBackend creates a detached backend. Call Attach with a Config to
// open the database.
func NewBackend() *Backend {
	return &Backend{}
}

// Attach opens (or creates) the database file in DataDir, applies the
// schema, and creates the staging directory.
// Returns ErrAlreadyAttached if already attached.
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
		return err
	}
	if err := os.MkdirAll(filepath.Join(dataDir, StagingDirName), 0o755); err != nil {
		return err
	}

	db, err := sql.Open("sqlite", filepath.Join(dataDir, DBFileName))
	if err != nil {
		return err
	}

	for _, ddl := range append(append([]string{}, schemaDDL...), indexDDL...) {
		if _, err := db.Exec(ddl); err != nil {
			db.Close()
			return fmt.Errorf("applying schema: %w", err)
		}
	}

	b.db = db
	b.config = config
	b.attached = true
	return nil
}

// Detach closes the database. Idempotent; after Detach all operations
// return ErrStoreDetached.
func (b *Backend) Detach() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.attached {
		return nil // idempotent
	}

	if b.db != nil {
		if err := b.db.Close(); err != nil {
			return err
		}
		b.db = nil
	}
	b.attached = false
	return nil
}

// StagingDir returns the staged-import directory for the attached
// backend, or an empty string when detached.
func (b *Backend) StagingDir() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if !b.attached {
		return ""
	}
	dataDir := b.config.DataDir
	if dataDir == "" {
		dataDir = "."
	}
	return filepath.Join(dataDir, StagingDirName)
}

// checkAttached must be called with b.mu held (read or write).
func (b *Backend) checkAttached() error {
	if !b.attached {
		return types.ErrStoreDetached
	}
	return nil
}

// generateUUID generates a new UUID v7 for record IDs.
func generateUUID() string {
	id, err := uuid.NewV7()
	if err != nil {
		// Fallback to UUID v4 if v7 generation fails.
		return uuid.New().String()
	}
	return id.String()
}

// Timestamps are stored as RFC 3339 with nanoseconds so that a
// round-trip through export and import reproduces them exactly.
const timeLayout = time.RFC3339Nano

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(timeLayout, s)
}

// entityExistsTx reports whether (kind, id) resolves to a stored entity.
func entityExistsTx(q interface {
	QueryRow(query string, args ...any) *sql.Row
}, ref types.Ref) (bool, error) {
	var one int
	err := q.QueryRow(
		"SELECT 1 FROM entities WHERE kind = ? AND entity_id = ?",
		ref.Kind, ref.ID,
	).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
