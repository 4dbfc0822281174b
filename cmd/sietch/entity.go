// Entity commands: add, get, list, delete.
package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sietch-labs/sietch/pkg/types"
)

var (
	entityKind        string
	entityID          string
	entityName        string
	entityDescription string
	entityFields      []string

	listName  string
	listSort  string
	listLimit int
)

var entityCmd = &cobra.Command{
	Use:   "entity",
	Short: "Manage reference entities",
}

var entityAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Create or replace an entity",
	Long: `Add inserts or replaces an entity of a registered kind. Without --id
a new identifier is generated.

Example:
  sietch entity add --kind resource --name "Spice" --field rarity=legendary
  sietch entity add --kind recipe --id rope --name "Rope" --field output_item_name=Rope`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		fields, err := parseFieldFlags(entityKind, entityFields)
		if err != nil {
			return err
		}

		store, err := attachStore()
		if err != nil {
			return err
		}
		defer store.Detach()

		e := &types.Entity{
			Kind:        entityKind,
			ID:          entityID,
			Name:        entityName,
			Description: entityDescription,
			Fields:      fields,
		}
		id, err := store.UpsertEntity(e)
		if err != nil {
			return fmt.Errorf("add entity: %w", err)
		}

		if flagJSON {
			return printJSON(map[string]string{"kind": entityKind, "id": id})
		}
		fmt.Printf("Saved %s:%s\n", entityKind, id)
		return nil
	},
}

var entityGetCmd = &cobra.Command{
	Use:   "get <kind:id>",
	Short: "Show an entity with its associations and annotations",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ref, err := parseRefArg(args[0])
		if err != nil {
			return err
		}

		store, err := attachStore()
		if err != nil {
			return err
		}
		defer store.Detach()

		e, err := store.GetEntity(ref)
		if err != nil {
			return err
		}
		assocs, err := store.Associations(ref)
		if err != nil {
			return err
		}
		anns, err := store.Annotations(ref)
		if err != nil {
			return err
		}

		if flagJSON {
			return printJSON(map[string]any{
				"entity":       e,
				"associations": assocs,
				"annotations":  anns,
			})
		}

		if err := printEntity(e); err != nil {
			return err
		}
		for _, a := range assocs {
			line := fmt.Sprintf("  %s -[%s]-> %s", a.Left, a.RelationType, a.Right)
			if a.Payload != "" {
				line += " (" + a.Payload + ")"
			}
			fmt.Println(line)
		}
		for _, a := range anns {
			fmt.Printf("  [%s] %s\n", a.Type, a.Value)
		}
		return nil
	},
}

var entityListCmd = &cobra.Command{
	Use:   "list <kind>",
	Short: "List entities of one kind",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := attachStore()
		if err != nil {
			return err
		}
		defer store.Detach()

		filter := types.Filter{}
		if listName != "" {
			filter["name"] = listName
		}
		if listSort != "" {
			filter["sort"] = listSort
		}
		if listLimit > 0 {
			filter["limit"] = listLimit
		}

		var entities []*types.Entity
		for e, err := range store.Query(args[0], filter) {
			if err != nil {
				return err
			}
			entities = append(entities, e)
		}

		if flagJSON {
			return printJSON(entities)
		}
		for _, e := range entities {
			fmt.Printf("%s  %s\n", e.Ref(), e.Name)
		}
		return nil
	},
}

var entityDeleteCmd = &cobra.Command{
	Use:   "delete <kind:id>",
	Short: "Delete an entity and everything referencing it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ref, err := parseRefArg(args[0])
		if err != nil {
			return err
		}

		store, err := attachStore()
		if err != nil {
			return err
		}
		defer store.Detach()

		if err := store.DeleteEntity(ref); err != nil {
			return err
		}
		fmt.Printf("Deleted %s\n", ref)
		return nil
	},
}

func init() {
	entityAddCmd.Flags().StringVar(&entityKind, "kind", "", "entity kind ("+validKindsStr+")")
	entityAddCmd.Flags().StringVar(&entityID, "id", "", "entity identifier (generated when empty)")
	entityAddCmd.Flags().StringVar(&entityName, "name", "", "display name (required)")
	entityAddCmd.Flags().StringVar(&entityDescription, "description", "", "free-text description")
	entityAddCmd.Flags().StringArrayVar(&entityFields, "field", nil, "kind-specific field as name=value (repeatable)")
	_ = entityAddCmd.MarkFlagRequired("kind")
	_ = entityAddCmd.MarkFlagRequired("name")

	entityListCmd.Flags().StringVar(&listName, "name", "", "exact name filter")
	entityListCmd.Flags().StringVar(&listSort, "sort", "", "sort key: id, name, or created_at")
	entityListCmd.Flags().IntVar(&listLimit, "limit", 0, "maximum entities to list")

	entityCmd.AddCommand(entityAddCmd)
	entityCmd.AddCommand(entityGetCmd)
	entityCmd.AddCommand(entityListCmd)
	entityCmd.AddCommand(entityDeleteCmd)
}
