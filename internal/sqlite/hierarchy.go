// Hierarchy edge storage primitives. Tree invariants (acyclicity,
// single parent, sibling order) are enforced by the hierarchy manager;
// this file only stores edges and applies edit batches atomically.
package sqlite

import (
	"database/sql"
	"fmt"

	"github.com/sietch-labs/sietch/pkg/types"
)

// ParentEdge returns the edge making child a non-root node, or nil if
// the child has no parent in its tree kind.
func (b *Backend) ParentEdge(child types.Ref) (*types.HierarchyEdge, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if err := b.checkAttached(); err != nil {
		return nil, err
	}

	var e types.HierarchyEdge
	err := b.db.QueryRow(
		"SELECT tree_kind, parent_id, child_id, order_index FROM hierarchy_edges WHERE tree_kind = ? AND child_id = ?",
		child.Kind, child.ID,
	).Scan(&e.TreeKind, &e.ParentID, &e.ChildID, &e.OrderIndex)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("fetching parent edge of %s: %w", child, err)
	}
	return &e, nil
}

// ChildEdges returns parent's outgoing edges ordered by OrderIndex.
func (b *Backend) ChildEdges(parent types.Ref) ([]types.HierarchyEdge, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if err := b.checkAttached(); err != nil {
		return nil, err
	}

	rows, err := b.db.Query(
		"SELECT tree_kind, parent_id, child_id, order_index FROM hierarchy_edges WHERE tree_kind = ? AND parent_id = ? ORDER BY order_index",
		parent.Kind, parent.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("fetching child edges of %s: %w", parent, err)
	}
	defer rows.Close()

	return scanEdges(rows)
}

// Roots returns entities of the tree kind without a parent edge,
// ordered by ID.
func (b *Backend) Roots(treeKind string) ([]types.Ref, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if err := b.checkAttached(); err != nil {
		return nil, err
	}
	if !types.TreeKind(treeKind) {
		return nil, fmt.Errorf("%w: %q is not a tree kind", types.ErrSchemaViolation, treeKind)
	}

	rows, err := b.db.Query(
		`SELECT entity_id FROM entities
         WHERE kind = ? AND entity_id NOT IN
           (SELECT child_id FROM hierarchy_edges WHERE tree_kind = ?)
         ORDER BY entity_id`,
		treeKind, treeKind,
	)
	if err != nil {
		return nil, fmt.Errorf("fetching %s roots: %w", treeKind, err)
	}
	defer rows.Close()

	var refs []types.Ref
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning root: %w", err)
		}
		refs = append(refs, types.Ref{Kind: treeKind, ID: id})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating roots: %w", err)
	}
	return refs, nil
}

// ApplyEdgeEdits applies a batch of edge puts and deletes in one
// transaction. Every put's parent and child must exist; a put replaces
// any previous parent edge of the same child.
func (b *Backend) ApplyEdgeEdits(edits []types.EdgeEdit) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.checkAttached(); err != nil {
		return err
	}

	tx, err := b.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	for _, edit := range edits {
		e := edit.Edge
		switch edit.Op {
		case types.EdgePut:
			for _, ref := range []types.Ref{e.Parent(), e.Child()} {
				exists, err := entityExistsTx(tx, ref)
				if err != nil {
					return fmt.Errorf("checking entity %s: %w", ref, err)
				}
				if !exists {
					return fmt.Errorf("%w: %s", types.ErrDanglingReference, ref)
				}
			}
			if _, err := tx.Exec(
				`INSERT INTO hierarchy_edges (tree_kind, parent_id, child_id, order_index)
                 VALUES (?, ?, ?, ?)
                 ON CONFLICT (tree_kind, child_id) DO UPDATE SET
                   parent_id = excluded.parent_id,
                   order_index = excluded.order_index`,
				e.TreeKind, e.ParentID, e.ChildID, e.OrderIndex,
			); err != nil {
				return fmt.Errorf("putting edge %s -> %s: %w", e.Parent(), e.Child(), err)
			}
		case types.EdgeDelete:
			if _, err := tx.Exec(
				"DELETE FROM hierarchy_edges WHERE tree_kind = ? AND child_id = ?",
				e.TreeKind, e.ChildID,
			); err != nil {
				return fmt.Errorf("deleting edge of %s: %w", e.Child(), err)
			}
		default:
			return fmt.Errorf("%w: unknown edge op %q", types.ErrInvalidData, edit.Op)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing edge edits: %w", err)
	}
	return nil
}

// allEdges returns the full hierarchy table. The caller holds the
// backend lock.
func (b *Backend) allEdges() ([]types.HierarchyEdge, error) {
	rows, err := b.db.Query(
		"SELECT tree_kind, parent_id, child_id, order_index FROM hierarchy_edges ORDER BY tree_kind, parent_id, order_index",
	)
	if err != nil {
		return nil, fmt.Errorf("fetching edges: %w", err)
	}
	defer rows.Close()

	return scanEdges(rows)
}

func scanEdges(rows *sql.Rows) ([]types.HierarchyEdge, error) {
	var results []types.HierarchyEdge
	for rows.Next() {
		var e types.HierarchyEdge
		if err := rows.Scan(&e.TreeKind, &e.ParentID, &e.ChildID, &e.OrderIndex); err != nil {
			return nil, fmt.Errorf("hydrating edge: %w", err)
		}
		results = append(results, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating edges: %w", err)
	}
	return results, nil
}
