// Package transfer converts the relational store to and from external
// encodings: a structured JSON document and a human-readable Markdown
// document. Export is all-or-nothing behind an atomic file write;
// import parses and validates fully before staging the batch for one
// atomic application.
//
// See docs/ARCHITECTURE.md § Serialization Engine.
package transfer

import (
	"fmt"
	"os"

	"github.com/gobwas/glob"

	"github.com/sietch-labs/sietch/pkg/types"
)

// Supported encodings.
const (
	FormatStructured = "json"
	FormatDocument   = "markdown"
)

// Scope narrows an export. The zero value exports everything.
type Scope struct {
	Kinds       []string // entity kinds to include; empty means all
	NamePattern string   // glob over entity names; empty means all
}

// Report extends the store's batch report with records the engine
// itself rejected before application.
type Report struct {
	types.BatchReport
	SchemaViolations []string // "kind:id: reason" for skipped records
	StagedAt         string   // preserved copy of the import source
}

// Engine drives export and import against one store.
type Engine struct {
	store      types.Store
	stagingDir string
}

// NewEngine returns an engine over store. Import sources are preserved
// under stagingDir before application; empty disables staging.
func NewEngine(store types.Store, stagingDir string) *Engine {
	return &Engine{store: store, stagingDir: stagingDir}
}

// Export writes the scoped store state to path in the given format.
// The file appears atomically: on any failure the previous content, or
// absence, is untouched.
func (e *Engine) Export(path, format string, scope Scope) error {
	batch, err := e.store.Snapshot()
	if err != nil {
		return err
	}
	batch, err = applyScope(batch, scope)
	if err != nil {
		return err
	}

	var data []byte
	switch format {
	case FormatStructured:
		data, err = encodeStructured(batch)
	case FormatDocument:
		data, err = encodeDocument(batch)
	default:
		return fmt.Errorf("%w: unknown format %q", types.ErrInvalidData, format)
	}
	if err != nil {
		return err
	}
	return writeFileAtomic(path, data)
}

// Import parses source, validates every record against the registry,
// stages a copy of the input, and applies the batch atomically under
// the conflict policy. Parse failures mutate nothing. Under the
// overwrite policy a schema violation aborts the whole import; the
// partial-success policies skip and report the offending records.
func (e *Engine) Import(source, format string, policy types.ConflictPolicy) (*Report, error) {
	if policy == "" {
		policy = types.DefaultPolicy
	}
	if !types.ValidPolicy(policy) {
		return nil, fmt.Errorf("%w: unknown conflict policy %q", types.ErrInvalidData, policy)
	}

	data, err := os.ReadFile(source)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", source, err)
	}

	var batch *types.Batch
	switch format {
	case FormatStructured:
		batch, err = decodeStructured(data)
	case FormatDocument:
		batch, err = decodeDocument(data)
	default:
		return nil, fmt.Errorf("%w: unknown format %q", types.ErrInvalidData, format)
	}
	if err != nil {
		return nil, err
	}
	batch.Policy = policy

	report := &Report{}
	if err := validateBatch(batch, policy, report); err != nil {
		return nil, err
	}

	staged, err := stageSource(e.stagingDir, source, data)
	if err != nil {
		return nil, err
	}
	report.StagedAt = staged

	applied, err := e.store.ApplyBatch(batch)
	if err != nil {
		return nil, err
	}
	report.BatchReport = *applied
	return report, nil
}

// validateBatch checks every entity against the registry before any
// mutation. The overwrite policy is strict; the partial-success
// policies drop and report violating records.
func validateBatch(batch *types.Batch, policy types.ConflictPolicy, report *Report) error {
	kept := batch.Entities[:0:0]
	for _, e := range batch.Entities {
		err := validateEntity(e)
		if err == nil {
			kept = append(kept, e)
			continue
		}
		if policy == types.PolicyOverwrite {
			return err
		}
		report.SchemaViolations = append(report.SchemaViolations,
			fmt.Sprintf("%s: %v", e.Ref(), err))
	}
	batch.Entities = kept
	return nil
}

func validateEntity(e *types.Entity) error {
	if e.ID == "" {
		return fmt.Errorf("%w: kind %q entity without id", types.ErrSchemaViolation, e.Kind)
	}
	if e.Name == "" {
		return fmt.Errorf("%w: kind %q requires a name", types.ErrSchemaViolation, e.Kind)
	}
	return types.ValidateFields(e.Kind, e.Fields)
}

// applyScope filters a snapshot to the scoped entities. Relations are
// kept only when every endpoint survives, so a scoped document is
// always self-contained.
func applyScope(batch *types.Batch, scope Scope) (*types.Batch, error) {
	if len(scope.Kinds) == 0 && scope.NamePattern == "" {
		return batch, nil
	}

	kinds := map[string]bool{}
	for _, k := range scope.Kinds {
		if !types.KnownKind(k) {
			return nil, fmt.Errorf("%w: unknown kind %q", types.ErrSchemaViolation, k)
		}
		kinds[k] = true
	}
	var matcher glob.Glob
	if scope.NamePattern != "" {
		var err error
		matcher, err = glob.Compile(scope.NamePattern)
		if err != nil {
			return nil, fmt.Errorf("%w: name pattern %q: %v", types.ErrInvalidData, scope.NamePattern, err)
		}
	}

	out := &types.Batch{}
	included := map[types.Ref]bool{}
	for _, e := range batch.Entities {
		if len(kinds) > 0 && !kinds[e.Kind] {
			continue
		}
		if matcher != nil && !matcher.Match(e.Name) {
			continue
		}
		out.Entities = append(out.Entities, e)
		included[e.Ref()] = true
	}
	for _, a := range batch.Associations {
		if included[a.Left] && included[a.Right] {
			out.Associations = append(out.Associations, a)
		}
	}
	for _, e := range batch.Edges {
		if included[e.Parent()] && included[e.Child()] {
			out.Edges = append(out.Edges, e)
		}
	}
	for _, a := range batch.Annotations {
		if included[a.Target] {
			out.Annotations = append(out.Annotations, a)
		}
	}
	return out, nil
}
