package types

import (
	"errors"
	"iter"
)

// Filter narrows Query results. Supported keys are documented on the
// implementing store; unknown keys or mistyped values return
// ErrInvalidFilter.
type Filter map[string]any

// Store is the typed mutation and query surface over the local
// database. All mutations are atomic with respect to concurrent
// readers: a reader never observes a partially-applied cascade.
type Store interface {
	// Attach opens the backend described by config, creating the data
	// directory and schema as needed. Returns ErrAlreadyAttached if
	// called while attached.
	Attach(config Config) error

	// Detach releases backend resources. Idempotent. After Detach,
	// operations return ErrStoreDetached.
	Detach() error

	// UpsertEntity inserts or replaces an entity. An empty ID generates
	// a UUID v7; the ID used is returned. Fails with ErrSchemaViolation
	// if the kind is unregistered or fields are missing or mistyped.
	UpsertEntity(e *Entity) (string, error)

	// GetEntity retrieves an entity by reference.
	// Returns ErrNotFound if absent.
	GetEntity(ref Ref) (*Entity, error)

	// DeleteEntity removes an entity and cascades to every association,
	// hierarchy edge, and annotation referencing it, in one atomic
	// step. Returns ErrNotFound if absent.
	DeleteEntity(ref Ref) error

	// Query produces a lazy, finite, restartable sequence of matching
	// entities ordered by ID unless the filter requests another stable
	// sort key. Ranging again re-executes against the current state.
	Query(kind string, filter Filter) iter.Seq2[*Entity, error]

	// Link records an association. Both referenced entities must exist
	// (ErrDanglingReference otherwise). Re-linking an existing pair of
	// the same type is a no-op.
	Link(left, right Ref, relationType, payload string) error

	// Unlink removes an association. Returns ErrNotFound if no such
	// association exists.
	Unlink(left, right Ref, relationType string) error

	// Associations returns every association touching ref, on either
	// side, ordered by creation time.
	Associations(ref Ref) ([]Association, error)

	// Annotate upserts the one annotation per (target, type) pair;
	// later writes win. Fails with ErrDanglingReference if the target
	// does not resolve to an existing entity.
	Annotate(target Ref, annotationType, value string) error

	// Annotations returns all annotations attached to target.
	Annotations(target Ref) ([]Annotation, error)

	HierarchyStore
	ChatStore
	SettingsStore

	// ApplyBatch applies a staged, pre-validated import batch in one
	// atomic step: entities first under the batch's conflict policy,
	// then associations, hierarchy edges, and annotations, failing only
	// the records that remain dangling (reported as reference gaps).
	ApplyBatch(batch *Batch) (*BatchReport, error)

	// Snapshot reads the full current state as one internally
	// consistent batch, the inverse of ApplyBatch. Serves export.
	Snapshot() (*Batch, error)
}

// HierarchyStore exposes raw hierarchy edge storage. Tree invariants
// (acyclicity, single parent, sibling order) are enforced by the
// hierarchy manager on top of these primitives.
type HierarchyStore interface {
	// ParentEdge returns the edge making child a non-root node, or nil
	// if child is a root or absent from the tree.
	ParentEdge(child Ref) (*HierarchyEdge, error)

	// ChildEdges returns parent's outgoing edges ordered by OrderIndex.
	ChildEdges(parent Ref) ([]HierarchyEdge, error)

	// Roots returns entities of the tree kind that have no parent edge,
	// ordered by ID.
	Roots(treeKind string) ([]Ref, error)

	// ApplyEdgeEdits applies puts and deletes in one transaction.
	// Every put's parent and child must exist (ErrDanglingReference).
	ApplyEdgeEdits(edits []EdgeEdit) error
}

// ChatStore is the append-only chat log surface.
type ChatStore interface {
	// AppendChat appends one immutable record, generating its ID and
	// clamping CreatedAt so timestamps stay strictly increasing within
	// the session. Returns the generated chat ID.
	AppendChat(rec *ChatRecord) (string, error)

	// ChatSession returns a session's records in created_at order.
	ChatSession(sessionID string) ([]ChatRecord, error)
}

// SettingsStore is the generic key-value settings surface.
type SettingsStore interface {
	// SetSetting upserts a settings key.
	SetSetting(key, value string) error

	// GetSetting returns a settings value, or ErrNotFound.
	GetSetting(key string) (string, error)
}

// Batch is a staged import: fully parsed and schema-validated records
// awaiting atomic application.
type Batch struct {
	Policy       ConflictPolicy
	Entities     []*Entity
	Associations []Association
	Edges        []HierarchyEdge
	Annotations  []Annotation
}

// ConflictPolicy selects per-entity behavior on (kind, id) collision
// during import.
type ConflictPolicy string

const (
	PolicyOverwrite        ConflictPolicy = "overwrite"
	PolicySkipExisting     ConflictPolicy = "skip_existing"
	PolicyMergeAnnotations ConflictPolicy = "merge_annotations_only"

	// DefaultPolicy applies when the caller does not choose.
	DefaultPolicy = PolicyOverwrite
)

// ValidPolicy reports whether p is a recognized conflict policy.
func ValidPolicy(p ConflictPolicy) bool {
	switch p {
	case PolicyOverwrite, PolicySkipExisting, PolicyMergeAnnotations:
		return true
	}
	return false
}

// BatchReport summarizes an applied import batch.
type BatchReport struct {
	EntitiesApplied  int
	EntitiesSkipped  int
	EdgesApplied     int
	ReferenceGaps    []string // "kind:id" refs that stayed dangling
	AnnotationsMerged int
}

// Data-layer errors. These abort the offending operation; no partial
// mutation is ever committed on failure.
var (
	ErrSchemaViolation   = errors.New("schema violation")
	ErrNotFound          = errors.New("not found")
	ErrDanglingReference = errors.New("dangling reference")
	ErrCycleDetected     = errors.New("cycle detected")
	ErrAlreadyParented   = errors.New("node already has a parent")
	ErrNonEmptySubtree   = errors.New("subtree is not empty")
	ErrParse             = errors.New("parse error")
	ErrReferenceGap      = errors.New("reference gap")
	ErrInvalidFilter     = errors.New("invalid filter value type")
	ErrInvalidData       = errors.New("invalid entity data")
)

// Store lifecycle errors.
var (
	ErrStoreDetached   = errors.New("store is detached")
	ErrAlreadyAttached = errors.New("store is already attached")
)

// Gateway errors. Always recoverable locally: callers degrade to an
// offline code path and may retry.
var (
	ErrUnavailable   = errors.New("gateway is offline")
	ErrRequestFailed = errors.New("request failed")
	ErrTimeout       = errors.New("request timed out")
	ErrCanceled      = errors.New("request canceled")
)
