// Tree commands for hierarchy management: skill trees and blueprint
// categories.
package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sietch-labs/sietch/internal/hierarchy"
	"github.com/sietch-labs/sietch/pkg/types"
)

var (
	treePosition int
	treeCascade  bool
)

var treeCmd = &cobra.Command{
	Use:   "tree",
	Short: "Manage entity hierarchies",
	Long: `Tree manipulates parent/child hierarchies of tree kinds (skill_node,
blueprint). Every node has at most one parent and no chain of edges
may form a cycle.`,
}

var treeAddChildCmd = &cobra.Command{
	Use:   "add-child <parent kind:id> <child kind:id>",
	Short: "Attach a root node under a parent",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		parent, child, m, store, err := treeArgs(args)
		if err != nil {
			return err
		}
		defer store.Detach()

		if err := m.AddChild(parent, child, treePosition); err != nil {
			return err
		}
		fmt.Printf("Attached %s under %s\n", child, parent)
		return nil
	},
}

var treeMoveCmd = &cobra.Command{
	Use:   "move <node kind:id> <new parent kind:id>",
	Short: "Re-parent a node, moving its subtree along",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		node, newParent, m, store, err := treeArgs(args)
		if err != nil {
			return err
		}
		defer store.Detach()

		if err := m.MoveNode(node, newParent, treePosition); err != nil {
			return err
		}
		fmt.Printf("Moved %s under %s\n", node, newParent)
		return nil
	},
}

var treeRemoveCmd = &cobra.Command{
	Use:   "remove <node kind:id>",
	Short: "Detach a node from its tree",
	Long: `Remove detaches a node. A node that still has children is refused
unless --cascade detaches its whole subtree. Entities are never
deleted; use "entity delete" for that.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		node, err := parseRefArg(args[0])
		if err != nil {
			return err
		}

		store, err := attachStore()
		if err != nil {
			return err
		}
		defer store.Detach()

		if err := hierarchy.NewManager(store).RemoveNode(node, treeCascade); err != nil {
			return err
		}
		fmt.Printf("Detached %s\n", node)
		return nil
	},
}

var treeShowCmd = &cobra.Command{
	Use:   "show <root kind:id>",
	Short: "Print a subtree in pre-order",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		root, err := parseRefArg(args[0])
		if err != nil {
			return err
		}

		store, err := attachStore()
		if err != nil {
			return err
		}
		defer store.Detach()

		m := hierarchy.NewManager(store)
		var entities []*types.Entity
		for e, err := range m.Subtree(root) {
			if err != nil {
				return err
			}
			entities = append(entities, e)
		}

		if flagJSON {
			return printJSON(entities)
		}
		for _, e := range entities {
			depth, err := m.Depth(e.Ref())
			if err != nil {
				return err
			}
			fmt.Printf("%s%s  %s\n", strings.Repeat("  ", depth), e.Ref(), e.Name)
		}
		return nil
	},
}

var treeRootsCmd = &cobra.Command{
	Use:   "roots <kind>",
	Short: "List the parentless nodes of a tree kind",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := attachStore()
		if err != nil {
			return err
		}
		defer store.Detach()

		roots, err := hierarchy.NewManager(store).Roots(args[0])
		if err != nil {
			return err
		}

		if flagJSON {
			return printJSON(roots)
		}
		for _, ref := range roots {
			fmt.Println(ref)
		}
		return nil
	},
}

// treeArgs parses a two-ref tree command and attaches the store.
func treeArgs(args []string) (types.Ref, types.Ref, *hierarchy.Manager, types.Store, error) {
	first, err := parseRefArg(args[0])
	if err != nil {
		return types.Ref{}, types.Ref{}, nil, nil, err
	}
	second, err := parseRefArg(args[1])
	if err != nil {
		return types.Ref{}, types.Ref{}, nil, nil, err
	}
	store, err := attachStore()
	if err != nil {
		return types.Ref{}, types.Ref{}, nil, nil, err
	}
	return first, second, hierarchy.NewManager(store), store, nil
}

func init() {
	treeAddChildCmd.Flags().IntVar(&treePosition, "position", hierarchy.PositionEnd, "sibling position (default: append)")
	treeMoveCmd.Flags().IntVar(&treePosition, "position", hierarchy.PositionEnd, "sibling position (default: append)")
	treeRemoveCmd.Flags().BoolVar(&treeCascade, "cascade", false, "detach the whole subtree")

	treeCmd.AddCommand(treeAddChildCmd)
	treeCmd.AddCommand(treeMoveCmd)
	treeCmd.AddCommand(treeRemoveCmd)
	treeCmd.AddCommand(treeShowCmd)
	treeCmd.AddCommand(treeRootsCmd)
}
