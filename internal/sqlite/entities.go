// Entity table operations: typed upsert with registry validation,
// cascade delete, and the restartable Query sequence.
package sqlite

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"iter"
	"time"

	"github.com/sietch-labs/sietch/pkg/types"
)

// UpsertEntity inserts or replaces an entity after validating its kind
// and fields against the registry. An empty ID generates a UUID v7.
// CreatedAt is preserved on replace; UpdatedAt always moves forward.
func (b *Backend) UpsertEntity(e *types.Entity) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.checkAttached(); err != nil {
		return "", err
	}
	if e == nil {
		return "", types.ErrInvalidData
	}
	if e.Name == "" {
		return "", fmt.Errorf("%w: kind %q requires a name", types.ErrSchemaViolation, e.Kind)
	}
	if err := types.ValidateFields(e.Kind, e.Fields); err != nil {
		return "", err
	}

	if e.ID == "" {
		e.ID = generateUUID()
	}

	fieldsJSON, err := json.Marshal(e.Fields)
	if err != nil {
		return "", fmt.Errorf("encoding fields for %s: %w", e.Ref(), err)
	}

	now := time.Now().UTC()

	var createdAt string
	err = b.db.QueryRow(
		"SELECT created_at FROM entities WHERE kind = ? AND entity_id = ?",
		e.Kind, e.ID,
	).Scan(&createdAt)
	switch {
	case err == sql.ErrNoRows:
		if e.CreatedAt.IsZero() {
			e.CreatedAt = now
		}
	case err != nil:
		return "", fmt.Errorf("checking entity %s: %w", e.Ref(), err)
	default:
		// Replace keeps the original creation time.
		t, perr := parseTime(createdAt)
		if perr != nil {
			return "", fmt.Errorf("parsing created_at for %s: %w", e.Ref(), perr)
		}
		e.CreatedAt = t
	}
	if e.UpdatedAt.IsZero() || !e.UpdatedAt.After(e.CreatedAt) {
		e.UpdatedAt = now
	}

	_, err = b.db.Exec(
		`INSERT INTO entities (kind, entity_id, name, description, fields, created_at, updated_at)
         VALUES (?, ?, ?, ?, ?, ?, ?)
         ON CONFLICT (kind, entity_id) DO UPDATE SET
           name = excluded.name,
           description = excluded.description,
           fields = excluded.fields,
           updated_at = excluded.updated_at`,
		e.Kind, e.ID, e.Name, e.Description, string(fieldsJSON),
		formatTime(e.CreatedAt), formatTime(e.UpdatedAt),
	)
	if err != nil {
		return "", fmt.Errorf("persisting entity %s: %w", e.Ref(), err)
	}

	return e.ID, nil
}

// GetEntity retrieves an entity by reference.
func (b *Backend) GetEntity(ref types.Ref) (*types.Entity, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if err := b.checkAttached(); err != nil {
		return nil, err
	}
	if ref.Kind == "" || ref.ID == "" {
		return nil, types.ErrInvalidRef
	}

	row := b.db.QueryRow(
		"SELECT kind, entity_id, name, description, fields, created_at, updated_at FROM entities WHERE kind = ? AND entity_id = ?",
		ref.Kind, ref.ID,
	)
	e, err := hydrateEntity(row.Scan)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("%w: %s", types.ErrNotFound, ref)
		}
		return nil, fmt.Errorf("getting entity %s: %w", ref, err)
	}
	return e, nil
}

// DeleteEntity removes an entity and cascades to associations (either
// side), hierarchy edges (either end), and annotations referencing it.
// The cascade commits in one transaction; concurrent readers see all of
// it or none of it.
func (b *Backend) DeleteEntity(ref types.Ref) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.checkAttached(); err != nil {
		return err
	}

	exists, err := entityExistsTx(b.db, ref)
	if err != nil {
		return fmt.Errorf("checking entity %s: %w", ref, err)
	}
	if !exists {
		return fmt.Errorf("%w: %s", types.ErrNotFound, ref)
	}

	tx, err := b.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	steps := []struct {
		q    string
		args []any
	}{
		{"DELETE FROM associations WHERE (left_kind = ? AND left_id = ?) OR (right_kind = ? AND right_id = ?)",
			[]any{ref.Kind, ref.ID, ref.Kind, ref.ID}},
		{"DELETE FROM hierarchy_edges WHERE tree_kind = ? AND (parent_id = ? OR child_id = ?)",
			[]any{ref.Kind, ref.ID, ref.ID}},
		{"DELETE FROM annotations WHERE target_kind = ? AND target_id = ?",
			[]any{ref.Kind, ref.ID}},
		{"DELETE FROM entities WHERE kind = ? AND entity_id = ?",
			[]any{ref.Kind, ref.ID}},
	}
	for _, s := range steps {
		if _, err := tx.Exec(s.q, s.args...); err != nil {
			return fmt.Errorf("cascading delete of %s: %w", ref, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing delete of %s: %w", ref, err)
	}
	return nil
}

// Query produces a lazy, finite, restartable sequence of entities of
// the given kind ordered by ID. Supported filter keys:
//
//	name       exact name match (string)
//	sort       "id" (default), "name", or "created_at"
//	limit      maximum rows (int)
//
// Each range re-executes the query, so the sequence restarts against
// current state. Rows are materialized under the read lock; a consumer
// never observes a partially-applied mutation.
func (b *Backend) Query(kind string, filter types.Filter) iter.Seq2[*types.Entity, error] {
	return func(yield func(*types.Entity, error) bool) {
		entities, err := b.fetchEntities(kind, filter)
		if err != nil {
			yield(nil, err)
			return
		}
		for _, e := range entities {
			if !yield(e, nil) {
				return
			}
		}
	}
}

// fetchEntities runs one Query execution under the read lock.
func (b *Backend) fetchEntities(kind string, filter types.Filter) ([]*types.Entity, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if err := b.checkAttached(); err != nil {
		return nil, err
	}
	if !types.KnownKind(kind) {
		return nil, fmt.Errorf("%w: unknown kind %q", types.ErrSchemaViolation, kind)
	}

	query := "SELECT kind, entity_id, name, description, fields, created_at, updated_at FROM entities WHERE kind = ?"
	args := []any{kind}

	orderBy := "entity_id"
	limit := 0
	if filter != nil {
		if v, ok := filter["name"]; ok {
			s, ok := v.(string)
			if !ok {
				return nil, types.ErrInvalidFilter
			}
			query += " AND name = ?"
			args = append(args, s)
		}
		if v, ok := filter["sort"]; ok {
			s, ok := v.(string)
			if !ok {
				return nil, types.ErrInvalidFilter
			}
			switch s {
			case "id":
				orderBy = "entity_id"
			case "name":
				orderBy = "name, entity_id"
			case "created_at":
				orderBy = "created_at, entity_id"
			default:
				return nil, types.ErrInvalidFilter
			}
		}
		if v, ok := filter["limit"]; ok {
			n, ok := v.(int)
			if !ok {
				return nil, types.ErrInvalidFilter
			}
			limit = n
		}
	}

	query += " ORDER BY " + orderBy
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := b.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying %s entities: %w", kind, err)
	}
	defer rows.Close()

	var results []*types.Entity
	for rows.Next() {
		e, err := hydrateEntity(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("hydrating entity: %w", err)
		}
		results = append(results, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating entities: %w", err)
	}
	return results, nil
}

// hydrateEntity converts one row into a *types.Entity. The scan
// argument order matches the SELECT column lists above.
func hydrateEntity(scan func(dest ...any) error) (*types.Entity, error) {
	var e types.Entity
	var description sql.NullString
	var fieldsJSON, createdAt, updatedAt string

	if err := scan(&e.Kind, &e.ID, &e.Name, &description, &fieldsJSON, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	e.Description = description.String

	if err := json.Unmarshal([]byte(fieldsJSON), &e.Fields); err != nil {
		return nil, fmt.Errorf("decoding fields: %w", err)
	}

	var err error
	if e.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	if e.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, fmt.Errorf("parsing updated_at: %w", err)
	}
	return &e, nil
}
