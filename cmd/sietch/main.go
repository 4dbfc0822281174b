// Package main provides the sietch CLI, the command surface over the
// local reference store, hierarchy manager, transfer engine, and the
// assistant gateway.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(exitUserError)
	}
}
