// Version command for the sietch CLI.
package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sietch-labs/sietch/pkg/sietch"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the sietch version",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("sietch", sietch.Version)
	},
}
