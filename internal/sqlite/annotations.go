// Annotation table operations: polymorphic payloads attached to any
// entity by (kind, id), one record per (target, type), last write wins.
package sqlite

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/sietch-labs/sietch/pkg/types"
)

// Annotate upserts the annotation for (target, annotationType). The
// target must resolve to an existing entity at write time.
func (b *Backend) Annotate(target types.Ref, annotationType, value string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.checkAttached(); err != nil {
		return err
	}
	if annotationType == "" {
		return fmt.Errorf("%w: empty annotation type", types.ErrInvalidData)
	}

	exists, err := entityExistsTx(b.db, target)
	if err != nil {
		return fmt.Errorf("checking entity %s: %w", target, err)
	}
	if !exists {
		return fmt.Errorf("%w: %s", types.ErrDanglingReference, target)
	}

	_, err = b.db.Exec(
		`INSERT INTO annotations (target_kind, target_id, annotation_type, value, created_at)
         VALUES (?, ?, ?, ?, ?)
         ON CONFLICT (target_kind, target_id, annotation_type) DO UPDATE SET
           value = excluded.value,
           created_at = excluded.created_at`,
		target.Kind, target.ID, annotationType, value, formatTime(time.Now()),
	)
	if err != nil {
		return fmt.Errorf("annotating %s: %w", target, err)
	}
	return nil
}

// Annotations returns all annotations attached to target, ordered by type.
func (b *Backend) Annotations(target types.Ref) ([]types.Annotation, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if err := b.checkAttached(); err != nil {
		return nil, err
	}

	rows, err := b.db.Query(
		`SELECT target_kind, target_id, annotation_type, value, created_at
         FROM annotations WHERE target_kind = ? AND target_id = ?
         ORDER BY annotation_type`,
		target.Kind, target.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("fetching annotations for %s: %w", target, err)
	}
	defer rows.Close()

	return scanAnnotations(rows)
}

// allAnnotations returns the full annotation table. The caller holds
// the backend lock.
func (b *Backend) allAnnotations() ([]types.Annotation, error) {
	rows, err := b.db.Query(
		`SELECT target_kind, target_id, annotation_type, value, created_at
         FROM annotations ORDER BY target_kind, target_id, annotation_type`,
	)
	if err != nil {
		return nil, fmt.Errorf("fetching annotations: %w", err)
	}
	defer rows.Close()

	return scanAnnotations(rows)
}

func scanAnnotations(rows *sql.Rows) ([]types.Annotation, error) {
	var results []types.Annotation
	for rows.Next() {
		var a types.Annotation
		var createdAt string
		if err := rows.Scan(&a.Target.Kind, &a.Target.ID, &a.Type, &a.Value, &createdAt); err != nil {
			return nil, fmt.Errorf("hydrating annotation: %w", err)
		}
		t, err := parseTime(createdAt)
		if err != nil {
			return nil, fmt.Errorf("parsing created_at: %w", err)
		}
		a.CreatedAt = t
		results = append(results, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating annotations: %w", err)
	}
	return results, nil
}
