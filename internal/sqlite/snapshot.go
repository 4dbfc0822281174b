// Consistent full-state reads for export.
package sqlite

import (
	"fmt"

	"github.com/sietch-labs/sietch/pkg/types"
)

// Snapshot reads the full store state as one batch under a single read
// lock, the inverse of ApplyBatch. No writer commits between the table
// reads, so the snapshot is internally consistent.
func (b *Backend) Snapshot() (*types.Batch, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if err := b.checkAttached(); err != nil {
		return nil, err
	}

	batch := &types.Batch{}

	rows, err := b.db.Query(
		"SELECT kind, entity_id, name, description, fields, created_at, updated_at FROM entities ORDER BY kind, entity_id",
	)
	if err != nil {
		return nil, fmt.Errorf("fetching entities: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		e, err := hydrateEntity(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("hydrating entity: %w", err)
		}
		batch.Entities = append(batch.Entities, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating entities: %w", err)
	}

	if batch.Associations, err = b.allAssociations(); err != nil {
		return nil, err
	}
	if batch.Edges, err = b.allEdges(); err != nil {
		return nil, err
	}
	if batch.Annotations, err = b.allAnnotations(); err != nil {
		return nil, err
	}
	return batch, nil
}
