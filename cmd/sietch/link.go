// Link and unlink commands for entity associations.
package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sietch-labs/sietch/pkg/types"
)

var (
	linkType    string
	linkPayload string
	unlinkType  string
)

var linkCmd = &cobra.Command{
	Use:   "link <left kind:id> <right kind:id>",
	Short: "Associate two entities",
	Long: `Link records a typed association between two existing entities.
Re-linking an existing pair of the same type is a no-op.

Example:
  sietch link resource:spice recipe:rope --type ingredient --payload 2`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		left, err := parseRefArg(args[0])
		if err != nil {
			return err
		}
		right, err := parseRefArg(args[1])
		if err != nil {
			return err
		}

		store, err := attachStore()
		if err != nil {
			return err
		}
		defer store.Detach()

		if err := store.Link(left, right, linkType, linkPayload); err != nil {
			return err
		}
		fmt.Printf("Linked %s -[%s]-> %s\n", left, linkType, right)
		return nil
	},
}

var unlinkCmd = &cobra.Command{
	Use:   "unlink <left kind:id> <right kind:id>",
	Short: "Remove an association",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		left, err := parseRefArg(args[0])
		if err != nil {
			return err
		}
		right, err := parseRefArg(args[1])
		if err != nil {
			return err
		}

		store, err := attachStore()
		if err != nil {
			return err
		}
		defer store.Detach()

		if err := store.Unlink(left, right, unlinkType); err != nil {
			return err
		}
		fmt.Printf("Unlinked %s -[%s]-> %s\n", left, unlinkType, right)
		return nil
	},
}

func init() {
	linkCmd.Flags().StringVar(&linkType, "type", types.RelationRelated, "relation type")
	linkCmd.Flags().StringVar(&linkPayload, "payload", "", "relation payload, e.g. an ingredient quantity")
	unlinkCmd.Flags().StringVar(&unlinkType, "type", types.RelationRelated, "relation type")
}
