// Root command for the sietch CLI.
package main

import (
	"github.com/spf13/cobra"

	"github.com/sietch-labs/sietch/internal/logging"
	"github.com/sietch-labs/sietch/internal/paths"
	"github.com/sietch-labs/sietch/pkg/sietch"
)

// Exit codes.
const (
	exitSuccess   = 0
	exitUserError = 1
	exitSysError  = 2
)

// Global flag values.
var (
	flagConfigDir string
	flagDataDir   string
	flagJSON      bool
)

// cliConfig holds the config.yaml values loaded by PersistentPreRunE
// so all subcommands can use them.
var cliConfig *loadedConfig

// cliLog is the CLI component logger, nil until PersistentPreRunE.
var cliLog *logging.Logger

var rootCmd = &cobra.Command{
	Use:     "sietch",
	Short:   "Sietch is an offline-first survival reference companion",
	Version: sietch.Version,
	Long: `Sietch keeps a local database of resources, crafting recipes, skill
trees, blueprints, and lore, with user notes layered on top. Everything
works offline; the assistant commands reach the network only after an
explicit probe.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		configDir, err := resolveConfigDir()
		if err != nil {
			return err
		}

		cfg, err := loadConfig(configDir)
		if err != nil {
			return err
		}
		cliConfig = cfg

		// Fallback mode already reported the problem on stderr.
		cliLog, _ = logging.NewLogger("cli")
		cliLog.Debugf("command %s", cmd.CommandPath())
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if cliLog != nil {
			return cliLog.Close()
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfigDir, "config-dir", "", "configuration directory (default: platform config dir)")
	rootCmd.PersistentFlags().StringVar(&flagDataDir, "data-dir", "", "data directory (default: $(CWD)/.sietch-db)")
	rootCmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "output as JSON")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(entityCmd)
	rootCmd.AddCommand(linkCmd)
	rootCmd.AddCommand(unlinkCmd)
	rootCmd.AddCommand(annotateCmd)
	rootCmd.AddCommand(treeCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(assistantCmd)
}

// resolveDataDir returns the data directory path following the
// precedence chain: --data-dir flag > config.yaml data_dir >
// SIETCH_DATA_DIR env > default $(CWD)/.sietch-db.
func resolveDataDir() (string, error) {
	return paths.ResolveDataDir(flagDataDir, cliConfig.dataDir)
}

// resolveConfigDir returns the configuration directory following the
// precedence chain: --config-dir flag > SIETCH_CONFIG_DIR env >
// platform default.
func resolveConfigDir() (string, error) {
	return paths.ResolveConfigDir(flagConfigDir)
}
