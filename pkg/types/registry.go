// Entity kind registry: the closed set of entity kinds and their
// structural shape. Every other component validates against it.
package types

import "fmt"

// Entity kind tags. The set is closed; unregistered kinds are rejected
// with ErrSchemaViolation at write time.
const (
	KindResource  = "resource"
	KindRecipe    = "recipe"
	KindSkillNode = "skill_node"
	KindBlueprint = "blueprint"
	KindLore      = "lore"
)

// FieldType enumerates the scalar types a kind-specific field may hold.
type FieldType string

const (
	FieldText    FieldType = "text"
	FieldInteger FieldType = "integer"
	FieldBoolean FieldType = "boolean"
)

// FieldSpec describes one kind-specific scalar field.
type FieldSpec struct {
	Name     string
	Type     FieldType
	Required bool
}

// KindSpec describes the structural shape of one entity kind.
// Tree kinds participate in parent/child hierarchies.
type KindSpec struct {
	Kind   string
	Tree   bool
	Fields []FieldSpec
}

// registry is the closed kind set. Field shapes mirror the reference
// database the companion tracks.
var registry = map[string]KindSpec{
	KindResource: {
		Kind: KindResource,
		Fields: []FieldSpec{
			{Name: "rarity", Type: FieldText},
			{Name: "category", Type: FieldText},
			{Name: "source_locations", Type: FieldText},
			{Name: "icon_path", Type: FieldText},
		},
	},
	KindRecipe: {
		Kind: KindRecipe,
		Fields: []FieldSpec{
			{Name: "output_item_name", Type: FieldText, Required: true},
			{Name: "output_quantity", Type: FieldInteger},
			{Name: "crafting_time_seconds", Type: FieldInteger},
			{Name: "required_station", Type: FieldText},
			{Name: "skill_requirement", Type: FieldText},
			{Name: "icon_path", Type: FieldText},
		},
	},
	KindSkillNode: {
		Kind: KindSkillNode,
		Tree: true,
		Fields: []FieldSpec{
			{Name: "tree_name", Type: FieldText},
			{Name: "unlock_cost", Type: FieldText},
			{Name: "effects", Type: FieldText},
			{Name: "icon_path", Type: FieldText},
		},
	},
	KindBlueprint: {
		Kind: KindBlueprint,
		Tree: true,
		Fields: []FieldSpec{
			{Name: "category", Type: FieldText},
			{Name: "thumbnail_path", Type: FieldText},
		},
	},
	KindLore: {
		Kind: KindLore,
		Fields: []FieldSpec{
			{Name: "category", Type: FieldText},
			{Name: "tags", Type: FieldText},
		},
	},
}

// kindOrder fixes the iteration order for Kinds and for export output.
var kindOrder = []string{KindResource, KindRecipe, KindSkillNode, KindBlueprint, KindLore}

// KnownKind reports whether kind is registered.
func KnownKind(kind string) bool {
	_, ok := registry[kind]
	return ok
}

// TreeKind reports whether kind participates in hierarchies.
func TreeKind(kind string) bool {
	return registry[kind].Tree
}

// Kinds returns all registered kinds in canonical order.
func Kinds() []string {
	out := make([]string, len(kindOrder))
	copy(out, kindOrder)
	return out
}

// SpecFor returns the KindSpec for kind.
func SpecFor(kind string) (KindSpec, bool) {
	spec, ok := registry[kind]
	return spec, ok
}

// ValidateFields checks kind-specific fields against the registry.
// Unknown kinds, unknown field names, missing required fields, and
// mistyped values all return ErrSchemaViolation wrapped with the
// offending kind and field.
func ValidateFields(kind string, fields map[string]any) error {
	spec, ok := registry[kind]
	if !ok {
		return fmt.Errorf("%w: unknown kind %q", ErrSchemaViolation, kind)
	}

	known := make(map[string]FieldSpec, len(spec.Fields))
	for _, f := range spec.Fields {
		known[f.Name] = f
	}

	for name, value := range fields {
		f, ok := known[name]
		if !ok {
			return fmt.Errorf("%w: kind %q has no field %q", ErrSchemaViolation, kind, name)
		}
		if value == nil {
			continue
		}
		if !validFieldValue(f.Type, value) {
			return fmt.Errorf("%w: kind %q field %q expects %s", ErrSchemaViolation, kind, name, f.Type)
		}
	}

	for _, f := range spec.Fields {
		if !f.Required {
			continue
		}
		if v, ok := fields[f.Name]; !ok || v == nil || v == "" {
			return fmt.Errorf("%w: kind %q requires field %q", ErrSchemaViolation, kind, f.Name)
		}
	}

	return nil
}

// validFieldValue checks a scalar against a field type. Integer fields
// accept the numeric forms JSON decoding produces.
func validFieldValue(t FieldType, v any) bool {
	switch t {
	case FieldText:
		_, ok := v.(string)
		return ok
	case FieldInteger:
		switch n := v.(type) {
		case int, int32, int64:
			return true
		case float64:
			return n == float64(int64(n))
		default:
			return false
		}
	case FieldBoolean:
		_, ok := v.(bool)
		return ok
	default:
		return false
	}
}
