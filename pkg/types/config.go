package types

import "errors"

// Config holds backend selection and parameters for Store.Attach, plus
// gateway settings surfaced through config.yaml.
type Config struct {
	Backend   string          `json:"backend" yaml:"backend"`
	DataDir   string          `json:"data_dir" yaml:"data_dir"`
	Probe     ProbeConfig     `json:"probe" yaml:"probe"`
	Assistant AssistantConfig `json:"assistant" yaml:"assistant"`
}

// ProbeConfig parameterizes the gateway's reachability check.
type ProbeConfig struct {
	Address        string `json:"address" yaml:"address"`
	TimeoutSeconds int    `json:"timeout_seconds" yaml:"timeout_seconds"`
}

// AssistantConfig parameterizes the remote assistant transport.
type AssistantConfig struct {
	Model          string `json:"model" yaml:"model"`
	BaseURL        string `json:"base_url" yaml:"base_url"`
	TimeoutSeconds int    `json:"timeout_seconds" yaml:"timeout_seconds"`
}

// Supported backend names.
const (
	BackendSQLite = "sqlite"
)

// Probe and assistant defaults. The probe address is a plain TCP dial
// target; DNS over 8.8.8.8 answers fast and works behind most NATs.
const (
	DefaultProbeAddress        = "8.8.8.8:53"
	DefaultProbeTimeoutSeconds = 3
	DefaultAssistantModel      = "gpt-4o-mini"
	DefaultAssistantTimeout    = 60
)

// Config validation errors.
var (
	ErrBackendEmpty   = errors.New("backend must not be empty")
	ErrBackendUnknown = errors.New("unknown backend")
)

// knownBackends lists the backends that Validate accepts.
var knownBackends = map[string]bool{
	BackendSQLite: true,
}

// Validate checks that the Config is well-formed. It returns a sentinel
// error from this package on failure.
func (c Config) Validate() error {
	if c.Backend == "" {
		return ErrBackendEmpty
	}
	if !knownBackends[c.Backend] {
		return ErrBackendUnknown
	}
	return nil
}

// ProbeAddress returns the configured probe address or the default.
func (c Config) ProbeAddress() string {
	if c.Probe.Address != "" {
		return c.Probe.Address
	}
	return DefaultProbeAddress
}

// ProbeTimeoutSeconds returns the configured probe timeout or the default.
func (c Config) ProbeTimeoutSeconds() int {
	if c.Probe.TimeoutSeconds > 0 {
		return c.Probe.TimeoutSeconds
	}
	return DefaultProbeTimeoutSeconds
}

// AssistantModel returns the configured assistant model or the default.
func (c Config) AssistantModel() string {
	if c.Assistant.Model != "" {
		return c.Assistant.Model
	}
	return DefaultAssistantModel
}

// AssistantTimeoutSeconds returns the configured assistant request
// timeout or the default.
func (c Config) AssistantTimeoutSeconds() int {
	if c.Assistant.TimeoutSeconds > 0 {
		return c.Assistant.TimeoutSeconds
	}
	return DefaultAssistantTimeout
}
