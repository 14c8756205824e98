// Package config provides configuration loading and management for bictrace.
package config

// Config is the root configuration.
type Config struct {
	Repo    string       `json:"repo"              mapstructure:"repo"`
	Mode    string       `json:"mode,omitempty"    mapstructure:"mode"`
	Oracle  OracleConfig `json:"oracle"            mapstructure:"oracle"`
	Cache   CacheConfig  `json:"cache,omitempty"   mapstructure:"cache"`
	Budgets Budgets      `json:"budgets,omitempty" mapstructure:"budgets"`
	Output  string       `json:"output,omitempty"  mapstructure:"output"`
}

// OracleConfig describes how to reach the language-model backend.
type OracleConfig struct {
	Provider       string `json:"provider,omitempty"        mapstructure:"provider"`
	BaseURL        string `json:"base_url,omitempty"        mapstructure:"base_url"`
	APIKeyEnv      string `json:"api_key_env,omitempty"     mapstructure:"api_key_env"`
	LargeModel     string `json:"large_model"               mapstructure:"large_model"`
	SmallModel     string `json:"small_model,omitempty"     mapstructure:"small_model"`
	TimeoutSeconds int    `json:"timeout_seconds,omitempty" mapstructure:"timeout_seconds"`
}

// CacheConfig controls the oracle response cache.
type CacheConfig struct {
	Disabled bool   `json:"disabled,omitempty" mapstructure:"disabled"`
	Path     string `json:"path,omitempty"     mapstructure:"path"`
}

// Budgets defines tracking limits.
type Budgets struct {
	MaxDepth       int    `json:"max_depth,omitempty"       mapstructure:"max_depth"`
	MaxIterations  int    `json:"max_iterations,omitempty"  mapstructure:"max_iterations"`
	MaxEscalations int    `json:"max_escalations,omitempty" mapstructure:"max_escalations"`
	ForcedVerdict  string `json:"forced_verdict,omitempty"  mapstructure:"forced_verdict"`
}

// Modes of operation.
const (
	ModeHybrid = "hybrid"
	ModePure   = "pure"
)

// Oracle providers.
const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

// ApplyDefaults fills unset fields with their documented defaults.
func (c *Config) ApplyDefaults() {
	if c.Mode == "" {
		c.Mode = ModeHybrid
	}
	if c.Oracle.Provider == "" {
		c.Oracle.Provider = ProviderOpenAI
	}
	if c.Oracle.APIKeyEnv == "" {
		switch c.Oracle.Provider {
		case ProviderGemini:
			c.Oracle.APIKeyEnv = "GEMINI_API_KEY"
		default:
			c.Oracle.APIKeyEnv = "OPENAI_API_KEY"
		}
	}
	if c.Oracle.TimeoutSeconds <= 0 {
		c.Oracle.TimeoutSeconds = 120
	}
	if c.Budgets.MaxDepth <= 0 {
		c.Budgets.MaxDepth = 30
	}
	if c.Budgets.MaxIterations <= 0 {
		c.Budgets.MaxIterations = 3
	}
	if c.Budgets.MaxEscalations <= 0 {
		c.Budgets.MaxEscalations = 3
	}
	if c.Budgets.ForcedVerdict == "" {
		c.Budgets.ForcedVerdict = "MODIFIED"
	}
}
