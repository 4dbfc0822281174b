package types

import "time"

// Entity is a first-class domain object: a resource, recipe, skill
// node, blueprint, or lore entry. Kind-specific scalars live in Fields,
// validated against the registry on every upsert.
type Entity struct {
	Kind        string         // Registered kind tag.
	ID          string         // Unique within kind; UUID v7 when generated.
	Name        string         // Human-readable name (required, non-empty).
	Description string         // Free-form prose.
	Fields      map[string]any // Kind-specific scalars per the registry.
	CreatedAt   time.Time      // Timestamp of creation.
	UpdatedAt   time.Time      // Timestamp of last modification.
}

// Ref returns the entity's (kind, id) reference.
func (e *Entity) Ref() Ref {
	return Ref{Kind: e.Kind, ID: e.ID}
}

// Relation type constants for common associations. Relation types are
// free-form strings; these name the ones the companion ships with.
const (
	RelationIngredient = "ingredient" // resource → recipe ingredient
	RelationRelated    = "related"    // generic cross-reference
)

// Association is a directed many-to-many relation between two entities.
// At most one association of a given type exists per (left, right) pair.
// Payload carries relation-scoped data such as an ingredient quantity.
type Association struct {
	Left         Ref
	Right        Ref
	RelationType string
	Payload      string
	CreatedAt    time.Time
}

// HierarchyEdge is a directed parent→child relation within one
// tree-shaped kind. OrderIndex is unique among siblings and defines
// display order; each child has at most one parent per tree kind.
type HierarchyEdge struct {
	TreeKind   string
	ParentID   string
	ChildID    string
	OrderIndex int
}

// Parent returns the parent reference of the edge.
func (e HierarchyEdge) Parent() Ref { return Ref{Kind: e.TreeKind, ID: e.ParentID} }

// Child returns the child reference of the edge.
func (e HierarchyEdge) Child() Ref { return Ref{Kind: e.TreeKind, ID: e.ChildID} }

// Annotation type constants. Absence of an annotation is the default
// state; a missing "discovered" flag means not discovered.
const (
	AnnotationNote       = "note"
	AnnotationDiscovered = "discovered"
)

// Annotation is a user-attached payload linked polymorphically to any
// entity by (kind, id). One annotation exists per (target, type) pair;
// later writes win.
type Annotation struct {
	Target    Ref
	Type      string
	Value     string
	CreatedAt time.Time
}

// Chat senders.
const (
	SenderUser      = "user"
	SenderAssistant = "assistant"
)

// ChatRecord is one append-only chat log line, optionally linked to an
// entity. Records are immutable once written; created_at is strictly
// increasing within a session.
type ChatRecord struct {
	ChatID    string // UUID v7, generated on append.
	SessionID string
	Sender    string // SenderUser or SenderAssistant.
	Text      string
	Entity    *Ref // Optional entity link; historical, never cascaded.
	CreatedAt time.Time
}

// EdgeOp enumerates hierarchy edge edit operations.
type EdgeOp string

const (
	EdgePut    EdgeOp = "put"
	EdgeDelete EdgeOp = "delete"
)

// EdgeEdit is one entry of an atomic hierarchy edit batch. The
// hierarchy manager composes edits; the store applies a batch in a
// single transaction so readers never see a half-finished re-parent.
type EdgeEdit struct {
	Op   EdgeOp
	Edge HierarchyEdge
}
