// Association table operations: idempotent link, unlink, and queries
// over either side of the relation.
package sqlite

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/sietch-labs/sietch/pkg/types"
)

// Link records an association between two existing entities. Relinking
// an existing (left, right, type) triple is a no-op, not an error.
func (b *Backend) Link(left, right types.Ref, relationType, payload string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.checkAttached(); err != nil {
		return err
	}
	if relationType == "" {
		return fmt.Errorf("%w: empty relation type", types.ErrInvalidData)
	}

	for _, ref := range []types.Ref{left, right} {
		exists, err := entityExistsTx(b.db, ref)
		if err != nil {
			return fmt.Errorf("checking entity %s: %w", ref, err)
		}
		if !exists {
			return fmt.Errorf("%w: %s", types.ErrDanglingReference, ref)
		}
	}

	_, err := b.db.Exec(
		`INSERT INTO associations (left_kind, left_id, right_kind, right_id, relation_type, payload, created_at)
         VALUES (?, ?, ?, ?, ?, ?, ?)
         ON CONFLICT (left_kind, left_id, right_kind, right_id, relation_type) DO NOTHING`,
		left.Kind, left.ID, right.Kind, right.ID, relationType, payload,
		formatTime(time.Now()),
	)
	if err != nil {
		return fmt.Errorf("linking %s to %s: %w", left, right, err)
	}
	return nil
}

// Unlink removes an association. Returns ErrNotFound if no association
// of that type exists between the pair.
func (b *Backend) Unlink(left, right types.Ref, relationType string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.checkAttached(); err != nil {
		return err
	}

	res, err := b.db.Exec(
		"DELETE FROM associations WHERE left_kind = ? AND left_id = ? AND right_kind = ? AND right_id = ? AND relation_type = ?",
		left.Kind, left.ID, right.Kind, right.ID, relationType,
	)
	if err != nil {
		return fmt.Errorf("unlinking %s from %s: %w", left, right, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("unlinking %s from %s: %w", left, right, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s -[%s]-> %s", types.ErrNotFound, left, relationType, right)
	}
	return nil
}

// Associations returns every association touching ref on either side,
// ordered by creation time.
func (b *Backend) Associations(ref types.Ref) ([]types.Association, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if err := b.checkAttached(); err != nil {
		return nil, err
	}

	rows, err := b.db.Query(
		`SELECT left_kind, left_id, right_kind, right_id, relation_type, payload, created_at
         FROM associations
         WHERE (left_kind = ? AND left_id = ?) OR (right_kind = ? AND right_id = ?)
         ORDER BY created_at, relation_type`,
		ref.Kind, ref.ID, ref.Kind, ref.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("fetching associations for %s: %w", ref, err)
	}
	defer rows.Close()

	return scanAssociations(rows)
}

// allAssociations returns the full association table. The caller holds
// the backend lock.
func (b *Backend) allAssociations() ([]types.Association, error) {
	rows, err := b.db.Query(
		`SELECT left_kind, left_id, right_kind, right_id, relation_type, payload, created_at
         FROM associations ORDER BY left_kind, left_id, right_kind, right_id, relation_type`,
	)
	if err != nil {
		return nil, fmt.Errorf("fetching associations: %w", err)
	}
	defer rows.Close()

	return scanAssociations(rows)
}

func scanAssociations(rows *sql.Rows) ([]types.Association, error) {
	var results []types.Association
	for rows.Next() {
		var a types.Association
		var payload sql.NullString
		var createdAt string
		if err := rows.Scan(&a.Left.Kind, &a.Left.ID, &a.Right.Kind, &a.Right.ID, &a.RelationType, &payload, &createdAt); err != nil {
			return nil, fmt.Errorf("hydrating association: %w", err)
		}
		a.Payload = payload.String
		t, err := parseTime(createdAt)
		if err != nil {
			return nil, fmt.Errorf("parsing created_at: %w", err)
		}
		a.CreatedAt = t
		results = append(results, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating associations: %w", err)
	}
	return results, nil
}
