// Config loading for the sietch CLI.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"

	"github.com/sietch-labs/sietch/pkg/types"
)

const (
	configFileName = "config"
	configFileType = "yaml"
	configFileExt  = "config.yaml"

	cfgKeyBackend          = "backend"
	cfgKeyDataDir          = "data_dir"
	cfgKeyProbeAddress     = "probe.address"
	cfgKeyProbeTimeout     = "probe.timeout_seconds"
	cfgKeyAssistantModel   = "assistant.model"
	cfgKeyAssistantBaseURL = "assistant.base_url"
	cfgKeyAssistantTimeout = "assistant.timeout_seconds"
)

// defaultConfigYAML is written to config.yaml on first run.
const defaultConfigYAML = `# Sietch CLI configuration

# Backend selection
backend: sqlite

# Data directory (optional; overridable by --data-dir flag)
# data_dir:

# Connectivity probe for the assistant gateway
probe:
  address: "8.8.8.8:53"
  timeout_seconds: 3

# Remote assistant (API key comes from OPENAI_API_KEY)
assistant:
  model: gpt-4o-mini
  timeout_seconds: 60
  # base_url:
`

// loadedConfig carries the config.yaml values subcommands need.
type loadedConfig struct {
	backend          string
	dataDir          string
	probeAddress     string
	probeTimeout     int
	assistantModel   string
	assistantBaseURL string
	assistantTimeout int
}

// loadConfig reads config.yaml from the resolved config directory
// using Viper, creating the directory and a default file on first run.
// A missing config.yaml is not an error.
func loadConfig(configDir string) (*loadedConfig, error) {
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return nil, fmt.Errorf("ensure config dir: %w", err)
	}
	if err := ensureDefaultConfigFile(configDir); err != nil {
		return nil, fmt.Errorf("ensure default config: %w", err)
	}

	v := viper.New()
	v.SetDefault(cfgKeyBackend, types.BackendSQLite)
	v.SetDefault(cfgKeyProbeAddress, types.DefaultProbeAddress)
	v.SetDefault(cfgKeyProbeTimeout, types.DefaultProbeTimeoutSeconds)
	v.SetDefault(cfgKeyAssistantModel, types.DefaultAssistantModel)
	v.SetDefault(cfgKeyAssistantTimeout, types.DefaultAssistantTimeout)
	v.SetConfigName(configFileName)
	v.SetConfigType(configFileType)
	v.AddConfigPath(configDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	return &loadedConfig{
		backend:          v.GetString(cfgKeyBackend),
		dataDir:          v.GetString(cfgKeyDataDir),
		probeAddress:     v.GetString(cfgKeyProbeAddress),
		probeTimeout:     v.GetInt(cfgKeyProbeTimeout),
		assistantModel:   v.GetString(cfgKeyAssistantModel),
		assistantBaseURL: v.GetString(cfgKeyAssistantBaseURL),
		assistantTimeout: v.GetInt(cfgKeyAssistantTimeout),
	}, nil
}

// storeConfig builds the backend configuration from flags and
// config.yaml.
func storeConfig() (types.Config, error) {
	dataDir, err := resolveDataDir()
	if err != nil {
		return types.Config{}, fmt.Errorf("resolve data dir: %w", err)
	}
	return types.Config{
		Backend: cliConfig.backend,
		DataDir: dataDir,
		Probe: types.ProbeConfig{
			Address:        cliConfig.probeAddress,
			TimeoutSeconds: cliConfig.probeTimeout,
		},
		Assistant: types.AssistantConfig{
			Model:          cliConfig.assistantModel,
			BaseURL:        cliConfig.assistantBaseURL,
			TimeoutSeconds: cliConfig.assistantTimeout,
		},
	}, nil
}

// ensureDefaultConfigFile creates a default config.yaml if the file
// does not exist in the config directory.
func ensureDefaultConfigFile(configDir string) error {
	path := filepath.Join(configDir, configFileExt)

	_, err := os.Stat(path)
	if err == nil {
		return nil
	}
	if !os.IsNotExist(err) {
		return fmt.Errorf("stat config file: %w", err)
	}
	return os.WriteFile(path, []byte(defaultConfigYAML), 0o644)
}
