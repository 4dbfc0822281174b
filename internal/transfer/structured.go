// The structured format: one JSON document carrying every table, byte
// noise tolerated nowhere. Import of an export reproduces the store.
package transfer

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sietch-labs/sietch/pkg/types"
)

// structuredVersion guards against documents from a future layout.
const structuredVersion = 1

type structuredDoc struct {
	Version      int                `json:"version"`
	ExportedAt   time.Time          `json:"exported_at"`
	Entities     []entityRecord     `json:"entities"`
	Associations []assocRecord      `json:"associations,omitempty"`
	Hierarchy    []edgeRecord       `json:"hierarchy,omitempty"`
	Annotations  []annotationRecord `json:"annotations,omitempty"`
}

type entityRecord struct {
	Kind        string         `json:"kind"`
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Fields      map[string]any `json:"fields,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

type assocRecord struct {
	Left      types.Ref `json:"left"`
	Right     types.Ref `json:"right"`
	Type      string    `json:"type"`
	Payload   string    `json:"payload,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type edgeRecord struct {
	TreeKind   string `json:"tree_kind"`
	ParentID   string `json:"parent_id"`
	ChildID    string `json:"child_id"`
	OrderIndex int    `json:"order_index"`
}

type annotationRecord struct {
	Target    types.Ref `json:"target"`
	Type      string    `json:"type"`
	Value     string    `json:"value"`
	CreatedAt time.Time `json:"created_at"`
}

// encodeStructured renders a batch as the structured JSON document.
func encodeStructured(batch *types.Batch) ([]byte, error) {
	doc := structuredDoc{
		Version:    structuredVersion,
		ExportedAt: time.Now().UTC(),
	}
	for _, e := range batch.Entities {
		doc.Entities = append(doc.Entities, entityRecord{
			Kind:        e.Kind,
			ID:          e.ID,
			Name:        e.Name,
			Description: e.Description,
			Fields:      e.Fields,
			CreatedAt:   e.CreatedAt,
			UpdatedAt:   e.UpdatedAt,
		})
	}
	for _, a := range batch.Associations {
		doc.Associations = append(doc.Associations, assocRecord{
			Left:      a.Left,
			Right:     a.Right,
			Type:      a.RelationType,
			Payload:   a.Payload,
			CreatedAt: a.CreatedAt,
		})
	}
	for _, e := range batch.Edges {
		doc.Hierarchy = append(doc.Hierarchy, edgeRecord(e))
	}
	for _, a := range batch.Annotations {
		doc.Annotations = append(doc.Annotations, annotationRecord{
			Target:    a.Target,
			Type:      a.Type,
			Value:     a.Value,
			CreatedAt: a.CreatedAt,
		})
	}

	out, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding structured document: %w", err)
	}
	return append(out, '\n'), nil
}

// decodeStructured parses a structured JSON document into an unstaged
// batch. Any malformation fails the whole parse with ErrParse before a
// single record is produced.
func decodeStructured(data []byte) (*types.Batch, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()

	var doc structuredDoc
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrParse, err)
	}
	if doc.Version != structuredVersion {
		return nil, fmt.Errorf("%w: unsupported document version %d", types.ErrParse, doc.Version)
	}

	batch := &types.Batch{}
	for _, r := range doc.Entities {
		batch.Entities = append(batch.Entities, &types.Entity{
			Kind:        r.Kind,
			ID:          r.ID,
			Name:        r.Name,
			Description: r.Description,
			Fields:      r.Fields,
			CreatedAt:   r.CreatedAt,
			UpdatedAt:   r.UpdatedAt,
		})
	}
	for _, r := range doc.Associations {
		batch.Associations = append(batch.Associations, types.Association{
			Left:         r.Left,
			Right:        r.Right,
			RelationType: r.Type,
			Payload:      r.Payload,
			CreatedAt:    r.CreatedAt,
		})
	}
	for _, r := range doc.Hierarchy {
		batch.Edges = append(batch.Edges, types.HierarchyEdge(r))
	}
	for _, r := range doc.Annotations {
		batch.Annotations = append(batch.Annotations, types.Annotation{
			Target:    r.Target,
			Type:      r.Type,
			Value:     r.Value,
			CreatedAt: r.CreatedAt,
		})
	}
	return batch, nil
}
