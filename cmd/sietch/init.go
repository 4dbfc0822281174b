// Init command creates the data directory and database schema.
package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var flagSeed bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize the sietch database",
	Long: `Init creates the data directory, the database file, and the schema.
With --seed it also loads a small set of starter reference entries.

Example:
  sietch init
  sietch init --seed`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := attachStore()
		if err != nil {
			return err
		}
		defer store.Detach()

		if flagSeed {
			if err := store.Seed(); err != nil {
				return fmt.Errorf("seed starter data: %w", err)
			}
		}

		cfg, err := storeConfig()
		if err != nil {
			return err
		}
		fmt.Printf("Initialized sietch database in %s\n", cfg.DataDir)
		if flagSeed {
			fmt.Println("Loaded starter reference data")
		}
		return nil
	},
}

func init() {
	initCmd.Flags().BoolVar(&flagSeed, "seed", false, "load starter reference data")
}
