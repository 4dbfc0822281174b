package sqlite

import (
	"errors"
	"testing"
	"time"

	"github.com/sietch-labs/sietch/pkg/types"
)

func batchFixture() *types.Batch {
	imported := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	return &types.Batch{
		Entities: []*types.Entity{
			{Kind: types.KindResource, ID: "spice", Name: "Spice", CreatedAt: imported, UpdatedAt: imported},
			{
				Kind: types.KindRecipe, ID: "coffee", Name: "Spice Coffee",
				Fields:    map[string]any{"output_item_name": "Spice Coffee"},
				CreatedAt: imported, UpdatedAt: imported,
			},
		},
		Associations: []types.Association{
			{
				Left:         types.Ref{Kind: types.KindResource, ID: "spice"},
				Right:        types.Ref{Kind: types.KindRecipe, ID: "coffee"},
				RelationType: types.RelationIngredient,
				Payload:      "2",
			},
		},
		Annotations: []types.Annotation{
			{
				Target: types.Ref{Kind: types.KindResource, ID: "spice"},
				Type:   types.AnnotationNote,
				Value:  "imported note",
			},
		},
	}
}

func TestApplyBatch_Fresh(t *testing.T) {
	b := testBackend(t)

	report, err := b.ApplyBatch(batchFixture())
	if err != nil {
		t.Fatalf("ApplyBatch failed: %v", err)
	}
	if report.EntitiesApplied != 2 || report.EntitiesSkipped != 0 {
		t.Errorf("unexpected entity counts: %+v", report)
	}
	if report.AnnotationsMerged != 1 || len(report.ReferenceGaps) != 0 {
		t.Errorf("unexpected report: %+v", report)
	}

	// Imported timestamps survive the round trip.
	e, err := b.GetEntity(types.Ref{Kind: types.KindResource, ID: "spice"})
	if err != nil {
		t.Fatalf("GetEntity failed: %v", err)
	}
	want := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	if !e.CreatedAt.Equal(want) {
		t.Errorf("expected created_at %v, got %v", want, e.CreatedAt)
	}
}

func TestApplyBatch_Overwrite(t *testing.T) {
	b := testBackend(t)

	if _, err := b.UpsertEntity(&types.Entity{Kind: types.KindResource, ID: "spice", Name: "Old Spice"}); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	batch := batchFixture()
	batch.Policy = types.PolicyOverwrite
	report, err := b.ApplyBatch(batch)
	if err != nil {
		t.Fatalf("ApplyBatch failed: %v", err)
	}
	if report.EntitiesApplied != 2 {
		t.Errorf("expected 2 applied, got %d", report.EntitiesApplied)
	}

	e, err := b.GetEntity(types.Ref{Kind: types.KindResource, ID: "spice"})
	if err != nil {
		t.Fatalf("GetEntity failed: %v", err)
	}
	if e.Name != "Spice" {
		t.Errorf("overwrite policy should replace the name, got %q", e.Name)
	}
}

func TestApplyBatch_SkipExisting(t *testing.T) {
	b := testBackend(t)

	if _, err := b.UpsertEntity(&types.Entity{Kind: types.KindResource, ID: "spice", Name: "Old Spice"}); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	batch := batchFixture()
	batch.Policy = types.PolicySkipExisting
	report, err := b.ApplyBatch(batch)
	if err != nil {
		t.Fatalf("ApplyBatch failed: %v", err)
	}
	if report.EntitiesApplied != 1 || report.EntitiesSkipped != 1 {
		t.Errorf("expected 1 applied / 1 skipped, got %+v", report)
	}

	e, err := b.GetEntity(types.Ref{Kind: types.KindResource, ID: "spice"})
	if err != nil {
		t.Fatalf("GetEntity failed: %v", err)
	}
	if e.Name != "Old Spice" {
		t.Errorf("skip_existing must keep the stored entity, got %q", e.Name)
	}
}

func TestApplyBatch_MergeAnnotationsOnly(t *testing.T) {
	b := testBackend(t)

	if _, err := b.UpsertEntity(&types.Entity{Kind: types.KindResource, ID: "spice", Name: "Old Spice"}); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	batch := batchFixture()
	batch.Policy = types.PolicyMergeAnnotations
	report, err := b.ApplyBatch(batch)
	if err != nil {
		t.Fatalf("ApplyBatch failed: %v", err)
	}
	if report.EntitiesSkipped != 1 || report.AnnotationsMerged != 1 {
		t.Errorf("unexpected report: %+v", report)
	}

	// The colliding entity is untouched but its annotations merged in.
	e, err := b.GetEntity(types.Ref{Kind: types.KindResource, ID: "spice"})
	if err != nil {
		t.Fatalf("GetEntity failed: %v", err)
	}
	if e.Name != "Old Spice" {
		t.Errorf("entity should be untouched, got %q", e.Name)
	}
	anns, err := b.Annotations(types.Ref{Kind: types.KindResource, ID: "spice"})
	if err != nil {
		t.Fatalf("Annotations failed: %v", err)
	}
	if len(anns) != 1 || anns[0].Value != "imported note" {
		t.Errorf("annotation not merged: %+v", anns)
	}
}

func TestApplyBatch_ReferenceGaps(t *testing.T) {
	b := testBackend(t)

	batch := &types.Batch{
		Entities: []*types.Entity{
			{Kind: types.KindResource, ID: "spice", Name: "Spice"},
		},
		Associations: []types.Association{
			{
				Left:         types.Ref{Kind: types.KindResource, ID: "spice"},
				Right:        types.Ref{Kind: types.KindRecipe, ID: "ghost"},
				RelationType: types.RelationIngredient,
			},
		},
		Edges: []types.HierarchyEdge{
			{TreeKind: types.KindSkillNode, ParentID: "missing-parent", ChildID: "missing-child"},
		},
		Annotations: []types.Annotation{
			{Target: types.Ref{Kind: types.KindLore, ID: "phantom"}, Type: types.AnnotationNote, Value: "x"},
		},
	}

	report, err := b.ApplyBatch(batch)
	if err != nil {
		t.Fatalf("ApplyBatch failed: %v", err)
	}
	if report.EntitiesApplied != 1 {
		t.Errorf("expected the resolvable entity applied, got %+v", report)
	}
	if len(report.ReferenceGaps) != 3 {
		t.Errorf("expected 3 reference gaps, got %v", report.ReferenceGaps)
	}
	if report.EdgesApplied != 0 || report.AnnotationsMerged != 0 {
		t.Errorf("gapped records must be skipped, got %+v", report)
	}

	// The gapped association was not written.
	assocs, err := b.Associations(types.Ref{Kind: types.KindResource, ID: "spice"})
	if err != nil {
		t.Fatalf("Associations failed: %v", err)
	}
	if len(assocs) != 0 {
		t.Errorf("expected no associations, got %d", len(assocs))
	}
}

func TestApplyBatch_UnknownPolicy(t *testing.T) {
	b := testBackend(t)

	batch := batchFixture()
	batch.Policy = "yolo"
	if _, err := b.ApplyBatch(batch); !errors.Is(err, types.ErrInvalidData) {
		t.Errorf("expected ErrInvalidData, got %v", err)
	}
}

func TestSeed_Idempotent(t *testing.T) {
	b := testBackend(t)

	if err := b.Seed(); err != nil {
		t.Fatalf("Seed failed: %v", err)
	}
	if err := b.Seed(); err != nil {
		t.Fatalf("re-Seed failed: %v", err)
	}

	count := 0
	for _, err := range b.Query(types.KindResource, nil) {
		if err != nil {
			t.Fatalf("Query failed: %v", err)
		}
		count++
	}
	if count != 3 {
		t.Errorf("expected 3 seeded resources, got %d", count)
	}

	// The starter skill tree has one root with one child.
	roots, err := b.Roots(types.KindSkillNode)
	if err != nil {
		t.Fatalf("Roots failed: %v", err)
	}
	if len(roots) != 1 || roots[0].ID != "survival-root" {
		t.Errorf("unexpected roots: %v", roots)
	}
	children, err := b.ChildEdges(types.Ref{Kind: types.KindSkillNode, ID: "survival-root"})
	if err != nil {
		t.Fatalf("ChildEdges failed: %v", err)
	}
	if len(children) != 1 || children[0].ChildID != "hydration" {
		t.Errorf("unexpected children: %v", children)
	}
}
