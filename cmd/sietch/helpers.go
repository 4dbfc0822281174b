// Shared helpers for sietch CLI commands.
package main

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/sietch-labs/sietch/internal/sqlite"
	"github.com/sietch-labs/sietch/pkg/types"
)

// validKindsStr is a comma-separated list of registered kinds for
// error output.
var validKindsStr = strings.Join(types.Kinds(), ", ")

// attachStore builds the backend configuration, creates a SQLite
// backend, and attaches it. The caller must defer store.Detach().
func attachStore() (*sqlite.Backend, error) {
	cfg, err := storeConfig()
	if err != nil {
		return nil, err
	}

	store := sqlite.NewBackend()
	if err := store.Attach(cfg); err != nil {
		return nil, fmt.Errorf("attach store: %w", err)
	}
	return store, nil
}

// parseRefArg parses a "kind:id" argument and checks the kind against
// the registry.
func parseRefArg(arg string) (types.Ref, error) {
	ref, err := types.ParseRef(arg)
	if err != nil {
		return types.Ref{}, fmt.Errorf("%w (expected kind:id, kinds: %s)", err, validKindsStr)
	}
	if !types.KnownKind(ref.Kind) {
		return types.Ref{}, fmt.Errorf("unknown kind %q (kinds: %s)", ref.Kind, validKindsStr)
	}
	return ref, nil
}

// parseFieldFlags converts repeated --field k=v flags into a field
// map, coercing values the registry expects as integers or booleans.
func parseFieldFlags(kind string, pairs []string) (map[string]any, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	spec, ok := types.SpecFor(kind)
	if !ok {
		return nil, fmt.Errorf("unknown kind %q (kinds: %s)", kind, validKindsStr)
	}
	typeOf := map[string]types.FieldType{}
	for _, f := range spec.Fields {
		typeOf[f.Name] = f.Type
	}

	fields := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		name, value, found := strings.Cut(pair, "=")
		if !found {
			return nil, fmt.Errorf("invalid field %q (expected name=value)", pair)
		}
		switch typeOf[name] {
		case types.FieldInteger:
			var n int
			if _, err := fmt.Sscanf(value, "%d", &n); err != nil {
				return nil, fmt.Errorf("field %q expects an integer, got %q", name, value)
			}
			fields[name] = n
		case types.FieldBoolean:
			switch value {
			case "true":
				fields[name] = true
			case "false":
				fields[name] = false
			default:
				return nil, fmt.Errorf("field %q expects true or false, got %q", name, value)
			}
		default:
			// Unknown names pass through as text; the registry rejects
			// them with the offending name on write.
			fields[name] = value
		}
	}
	return fields, nil
}

// printJSON writes v as indented JSON to stdout.
func printJSON(v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal output: %w", err)
	}
	fmt.Println(string(out))
	return nil
}

// printEntity writes one entity in the active output mode.
func printEntity(e *types.Entity) error {
	if flagJSON {
		return printJSON(e)
	}
	fmt.Printf("%s  %s\n", e.Ref(), e.Name)
	if e.Description != "" {
		fmt.Printf("  %s\n", strings.ReplaceAll(e.Description, "\n", "\n  "))
	}
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Printf("  %s: %v\n", name, e.Fields[name])
	}
	return nil
}
