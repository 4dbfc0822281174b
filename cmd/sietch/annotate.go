// Annotate command attaches user annotations to any entity.
package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sietch-labs/sietch/pkg/types"
)

var annotateType string

var annotateCmd = &cobra.Command{
	Use:   "annotate <kind:id> <value>",
	Short: "Attach or replace an annotation on an entity",
	Long: `Annotate upserts the annotation of the given type on an entity. One
annotation exists per (entity, type) pair; a later write replaces the
earlier one.

Example:
  sietch annotate resource:spice "tastes like cinnamon"
  sietch annotate resource:spice true --type discovered`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		target, err := parseRefArg(args[0])
		if err != nil {
			return err
		}

		store, err := attachStore()
		if err != nil {
			return err
		}
		defer store.Detach()

		if err := store.Annotate(target, annotateType, args[1]); err != nil {
			return err
		}
		fmt.Printf("Annotated %s [%s]\n", target, annotateType)
		return nil
	},
}

func init() {
	annotateCmd.Flags().StringVar(&annotateType, "type", types.AnnotationNote, "annotation type")
}
