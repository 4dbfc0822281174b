// Starter reference data seeding, invoked by "sietch init --seed".
package sqlite

import (
	"fmt"

	"github.com/sietch-labs/sietch/pkg/types"
)

// starterEntity describes one seeded entity and, optionally, the
// resources it consumes as recipe ingredients.
type starterEntity struct {
	kind        string
	id          string
	name        string
	description string
	fields      map[string]any
	ingredients map[string]string // resource id -> quantity payload
}

// starterData is a small set of reference entries so a fresh database
// is not empty. IDs are stable so re-seeding is a no-op overwrite.
var starterData = []starterEntity{
	{
		kind: types.KindResource, id: "spice", name: "Spice",
		description: "The most valuable substance on the planet.",
		fields:      map[string]any{"rarity": "legendary", "category": "Mineral"},
	},
	{
		kind: types.KindResource, id: "salvaged-metal", name: "Salvaged Metal",
		description: "Scrap recovered from wrecks, the base of most crafting.",
		fields:      map[string]any{"rarity": "common", "category": "Salvage"},
	},
	{
		kind: types.KindResource, id: "plant-fiber", name: "Plant Fiber",
		description: "Tough desert flora fibers.",
		fields:      map[string]any{"rarity": "common", "category": "Flora"},
	},
	{
		kind: types.KindRecipe, id: "rope", name: "Rope",
		description: "Basic binding for early construction.",
		fields: map[string]any{
			"output_item_name": "Rope",
			"output_quantity":  1,
			"required_station": "Hand",
		},
		ingredients: map[string]string{"plant-fiber": "5"},
	},
	{
		kind: types.KindRecipe, id: "scrap-blade", name: "Scrap Blade",
		description: "A crude but serviceable cutting tool.",
		fields: map[string]any{
			"output_item_name": "Scrap Blade",
			"output_quantity":  1,
			"required_station": "Workbench",
		},
		ingredients: map[string]string{"salvaged-metal": "3", "plant-fiber": "2"},
	},
	{
		kind: types.KindSkillNode, id: "survival-root", name: "Survival",
		description: "Root of the survival discipline.",
		fields:      map[string]any{"tree_name": "Survival"},
	},
	{
		kind: types.KindSkillNode, id: "hydration", name: "Hydration Discipline",
		description: "Reduces water consumption while traveling.",
		fields:      map[string]any{"tree_name": "Survival", "unlock_cost": "1 point"},
	},
	{
		kind: types.KindLore, id: "spice-origins", name: "Origins of the Spice",
		description: "What little is known about where the spice comes from.",
		fields:      map[string]any{"category": "Ecology"},
	},
}

// Seed inserts the starter reference data. Idempotent: stable IDs make
// repeated seeding an overwrite of the same rows.
func (b *Backend) Seed() error {
	for i := range starterData {
		s := &starterData[i]
		e := &types.Entity{
			Kind:        s.kind,
			ID:          s.id,
			Name:        s.name,
			Description: s.description,
			Fields:      s.fields,
		}
		if _, err := b.UpsertEntity(e); err != nil {
			return fmt.Errorf("seeding %s:%s: %w", s.kind, s.id, err)
		}
	}

	// Ingredient links after all entities exist.
	for i := range starterData {
		s := &starterData[i]
		for resID, qty := range s.ingredients {
			left := types.Ref{Kind: types.KindResource, ID: resID}
			right := types.Ref{Kind: s.kind, ID: s.id}
			if err := b.Link(left, right, types.RelationIngredient, qty); err != nil {
				return fmt.Errorf("seeding ingredient %s for %s: %w", resID, s.id, err)
			}
		}
	}

	// Starter skill tree: hydration under the survival root.
	edit := types.EdgeEdit{Op: types.EdgePut, Edge: types.HierarchyEdge{
		TreeKind: types.KindSkillNode,
		ParentID: "survival-root",
		ChildID:  "hydration",
	}}
	if err := b.ApplyEdgeEdits([]types.EdgeEdit{edit}); err != nil {
		return fmt.Errorf("seeding skill tree: %w", err)
	}

	return nil
}
