// Export command writes the store to a structured or document file.
package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sietch-labs/sietch/internal/transfer"
)

var (
	exportFormat  string
	exportKinds   []string
	exportPattern string
)

var exportCmd = &cobra.Command{
	Use:   "export <path>",
	Short: "Export the store to a file",
	Long: `Export writes the store state to a file, either as a structured JSON
document (format "json") or as human-readable Markdown (format
"markdown"). Both formats re-import losslessly. The file appears
atomically; a failed export leaves any previous file untouched.

Example:
  sietch export backup.json
  sietch export notes.md --format markdown
  sietch export resources.json --kind resource --kind recipe
  sietch export spice.json --name-pattern "Spice*"`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := attachStore()
		if err != nil {
			return err
		}
		defer store.Detach()

		engine := transfer.NewEngine(store, store.StagingDir())
		scope := transfer.Scope{Kinds: exportKinds, NamePattern: exportPattern}
		if err := engine.Export(args[0], exportFormat, scope); err != nil {
			return err
		}
		fmt.Printf("Exported to %s\n", args[0])
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportFormat, "format", transfer.FormatStructured, "output format: json or markdown")
	exportCmd.Flags().StringArrayVar(&exportKinds, "kind", nil, "kinds to include (repeatable; default: all)")
	exportCmd.Flags().StringVar(&exportPattern, "name-pattern", "", "glob over entity names")
}
