// Atomic application of staged import batches. The serialization
// engine parses and validates; this file applies the whole batch in one
// transaction under the writer lock so readers never observe a
// half-imported state.
package sqlite

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sietch-labs/sietch/pkg/types"
)

// ApplyBatch applies a staged batch: entities first under the conflict
// policy, then associations, hierarchy edges, and annotations. Records
// whose endpoints are absent from both the batch and the existing store
// are reported as reference gaps and skipped; everything else commits.
func (b *Backend) ApplyBatch(batch *types.Batch) (*types.BatchReport, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.checkAttached(); err != nil {
		return nil, err
	}
	if batch == nil {
		return nil, types.ErrInvalidData
	}
	policy := batch.Policy
	if policy == "" {
		policy = types.DefaultPolicy
	}
	if !types.ValidPolicy(policy) {
		return nil, fmt.Errorf("%w: unknown conflict policy %q", types.ErrInvalidData, policy)
	}

	tx, err := b.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	report := &types.BatchReport{}
	now := time.Now().UTC()

	for _, e := range batch.Entities {
		exists, err := entityExistsTx(tx, e.Ref())
		if err != nil {
			return nil, fmt.Errorf("checking entity %s: %w", e.Ref(), err)
		}
		if exists && policy != types.PolicyOverwrite {
			// skip_existing and merge_annotations_only leave the stored
			// entity untouched on collision.
			report.EntitiesSkipped++
			continue
		}
		if err := upsertEntityTx(tx, e, now); err != nil {
			return nil, err
		}
		report.EntitiesApplied++
	}

	gap := func(ref types.Ref) { report.ReferenceGaps = append(report.ReferenceGaps, ref.String()) }

	for _, a := range batch.Associations {
		ok, missing, err := endpointsExistTx(tx, a.Left, a.Right)
		if err != nil {
			return nil, err
		}
		if !ok {
			gap(missing)
			continue
		}
		createdAt := a.CreatedAt
		if createdAt.IsZero() {
			createdAt = now
		}
		if _, err := tx.Exec(
			`INSERT INTO associations (left_kind, left_id, right_kind, right_id, relation_type, payload, created_at)
             VALUES (?, ?, ?, ?, ?, ?, ?)
             ON CONFLICT (left_kind, left_id, right_kind, right_id, relation_type) DO UPDATE SET
               payload = excluded.payload`,
			a.Left.Kind, a.Left.ID, a.Right.Kind, a.Right.ID, a.RelationType, a.Payload,
			formatTime(createdAt),
		); err != nil {
			return nil, fmt.Errorf("applying association %s -> %s: %w", a.Left, a.Right, err)
		}
	}

	for _, e := range batch.Edges {
		ok, missing, err := endpointsExistTx(tx, e.Parent(), e.Child())
		if err != nil {
			return nil, err
		}
		if !ok {
			gap(missing)
			continue
		}
		if _, err := tx.Exec(
			`INSERT INTO hierarchy_edges (tree_kind, parent_id, child_id, order_index)
             VALUES (?, ?, ?, ?)
             ON CONFLICT (tree_kind, child_id) DO UPDATE SET
               parent_id = excluded.parent_id,
               order_index = excluded.order_index`,
			e.TreeKind, e.ParentID, e.ChildID, e.OrderIndex,
		); err != nil {
			return nil, fmt.Errorf("applying edge %s -> %s: %w", e.Parent(), e.Child(), err)
		}
		report.EdgesApplied++
	}

	for _, a := range batch.Annotations {
		exists, err := entityExistsTx(tx, a.Target)
		if err != nil {
			return nil, fmt.Errorf("checking entity %s: %w", a.Target, err)
		}
		if !exists {
			gap(a.Target)
			continue
		}
		createdAt := a.CreatedAt
		if createdAt.IsZero() {
			createdAt = now
		}
		if _, err := tx.Exec(
			`INSERT INTO annotations (target_kind, target_id, annotation_type, value, created_at)
             VALUES (?, ?, ?, ?, ?)
             ON CONFLICT (target_kind, target_id, annotation_type) DO UPDATE SET
               value = excluded.value,
               created_at = excluded.created_at`,
			a.Target.Kind, a.Target.ID, a.Type, a.Value, formatTime(createdAt),
		); err != nil {
			return nil, fmt.Errorf("applying annotation on %s: %w", a.Target, err)
		}
		report.AnnotationsMerged++
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing batch: %w", err)
	}
	return report, nil
}

// upsertEntityTx writes one pre-validated entity inside the batch
// transaction, preserving timestamps carried by the batch.
func upsertEntityTx(tx *sql.Tx, e *types.Entity, now time.Time) error {
	fieldsJSON, err := json.Marshal(e.Fields)
	if err != nil {
		return fmt.Errorf("encoding fields for %s: %w", e.Ref(), err)
	}
	createdAt := e.CreatedAt
	if createdAt.IsZero() {
		createdAt = now
	}
	updatedAt := e.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = createdAt
	}
	if _, err := tx.Exec(
		`INSERT INTO entities (kind, entity_id, name, description, fields, created_at, updated_at)
         VALUES (?, ?, ?, ?, ?, ?, ?)
         ON CONFLICT (kind, entity_id) DO UPDATE SET
           name = excluded.name,
           description = excluded.description,
           fields = excluded.fields,
           updated_at = excluded.updated_at`,
		e.Kind, e.ID, e.Name, e.Description, string(fieldsJSON),
		formatTime(createdAt), formatTime(updatedAt),
	); err != nil {
		return fmt.Errorf("applying entity %s: %w", e.Ref(), err)
	}
	return nil
}

// endpointsExistTx checks both ends of a relation; on failure it
// returns the first missing reference.
func endpointsExistTx(tx *sql.Tx, left, right types.Ref) (bool, types.Ref, error) {
	for _, ref := range []types.Ref{left, right} {
		exists, err := entityExistsTx(tx, ref)
		if err != nil {
			return false, types.Ref{}, fmt.Errorf("checking entity %s: %w", ref, err)
		}
		if !exists {
			return false, ref, nil
		}
	}
	return true, types.Ref{}, nil
}
