package model

import "time"

// Config holds the complete llmxray configuration
type Config struct {
	Backend    BackendConfig    `yaml:"backend" mapstructure:"backend"`
	HTTP       HTTPConfig       `yaml:"http" mapstructure:"http"`
	Heat       HeatConfig       `yaml:"heat" mapstructure:"heat"`
	Confidence ConfidenceConfig `yaml:"confidence" mapstructure:"confidence"`
	Cache      CacheConfig      `yaml:"cache" mapstructure:"cache"`
	LLM        LLMConfig        `yaml:"llm" mapstructure:"llm"`
	Output     OutputConfig     `yaml:"output" mapstructure:"output"`
	Batch      BatchConfig      `yaml:"batch" mapstructure:"batch"`
}

// BackendConfig points at the inference/scoring service
type BackendConfig struct {
	BaseURL      string  `yaml:"base_url" mapstructure:"base_url"`
	RateLimit    float64 `yaml:"rate_limit" mapstructure:"rate_limit"` // requests per second per host
	Burst        int     `yaml:"burst" mapstructure:"burst"`
	MaxFrameSize int     `yaml:"max_frame_size" mapstructure:"max_frame_size"` // bytes per stream line
}

// HTTPConfig controls outbound requests
type HTTPConfig struct {
	Timeout      time.Duration `yaml:"timeout" mapstructure:"timeout"` // non-streaming calls only
	UserAgent    string        `yaml:"user_agent" mapstructure:"user_agent"`
	MaxBodyBytes int64         `yaml:"max_body_bytes" mapstructure:"max_body_bytes"`
	HTTPProxy    string        `yaml:"http_proxy,omitempty" mapstructure:"http_proxy"`
	HTTPSProxy   string        `yaml:"https_proxy,omitempty" mapstructure:"https_proxy"`
}

// HeatConfig holds the empirical tuning values of the attention heat map
type HeatConfig struct {
	Amplification   float64 `yaml:"amplification" mapstructure:"amplification"`         // raw scores cluster near zero
	BrightText      float64 `yaml:"bright_text" mapstructure:"bright_text"`             // intensity above which text turns bright
	TopContextUnits int     `yaml:"top_context_units" mapstructure:"top_context_units"` // shown per unit by `stream`
}

// ConfidenceConfig holds the score bands of `llmxray temperature`
type ConfidenceConfig struct {
	High   float64 `yaml:"high" mapstructure:"high"`     // at or above: confident
	Medium float64 `yaml:"medium" mapstructure:"medium"` // at or above: hedged, below: doubtful
}

// CacheConfig controls the in-memory fact-check cache
type CacheConfig struct {
	Enabled bool          `yaml:"enabled" mapstructure:"enabled"`
	TTL     time.Duration `yaml:"ttl" mapstructure:"ttl"`
}

// LLMConfig configures the optional local auditor
type LLMConfig struct {
	Provider     string `yaml:"provider" mapstructure:"provider"` // openai, anthropic, ollama, gemini, or "" for backend
	Model        string `yaml:"model" mapstructure:"model"`
	APIKey       string `yaml:"-" mapstructure:"api_key"`
	BaseURL      string `yaml:"base_url,omitempty" mapstructure:"base_url"`
	Timeout      int    `yaml:"timeout" mapstructure:"timeout"` // seconds
	StrictQuotes bool   `yaml:"strict_quotes" mapstructure:"strict_quotes"`
	MaxTokens    int    `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// OutputConfig controls rendering
type OutputConfig struct {
	Verbose bool `yaml:"verbose" mapstructure:"verbose"`
	Color   bool `yaml:"color" mapstructure:"color"`
}

// BatchConfig controls `llmxray batch`
type BatchConfig struct {
	Concurrency int `yaml:"concurrency" mapstructure:"concurrency"`
}

// DefaultConfig returns sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Backend: BackendConfig{
			BaseURL:      "http://localhost:8000",
			RateLimit:    5,
			Burst:        5,
			MaxFrameSize: 1 << 20,
		},
		HTTP: HTTPConfig{
			Timeout:      60 * time.Second,
			UserAgent:    "llmxray/0.1 (+https://github.com/ppiankov/llmxray)",
			MaxBodyBytes: 4_000_000,
		},
		Heat: HeatConfig{
			Amplification:   4,
			BrightText:      0.5,
			TopContextUnits: 3,
		},
		Confidence: ConfidenceConfig{
			High:   0.8,
			Medium: 0.5,
		},
		Cache: CacheConfig{
			Enabled: true,
			TTL:     30 * time.Minute,
		},
		LLM: LLMConfig{
			Provider:     "",
			Timeout:      30,
			StrictQuotes: true,
			MaxTokens:    2000,
		},
		Output: OutputConfig{
			Color: true,
		},
		Batch: BatchConfig{
			Concurrency: 4,
		},
	}
}
