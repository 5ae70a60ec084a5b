package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/ppiankov/llmxray/internal/model"
)

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage llmxray configuration",
	Long: `Manage llmxray configuration files and settings.

Configuration hierarchy (highest to lowest priority):
1. CLI flags
2. Environment variables (LLMXRAY_*, .env in the working directory)
3. Config file (~/.llmxray/config.yaml)
4. Defaults`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long:  `Display the effective configuration after merging defaults, config file, env vars and flags.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(viper.GetViper())
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if configFile := viper.ConfigFileUsed(); configFile != "" {
			fmt.Fprintf(cmd.ErrOrStderr(), "Configuration file: %s\n\n", configFile)
		} else {
			fmt.Fprintf(cmd.ErrOrStderr(), "No configuration file found (using defaults)\n\n")
		}

		yamlData, err := yaml.Marshal(cfg)
		if err != nil {
			return fmt.Errorf("error marshaling config: %w", err)
		}
		fmt.Fprint(out, string(yamlData))

		if cfg.LLM.Provider != "" {
			key := "not set"
			if cfg.LLM.APIKey != "" {
				key = "set"
			}
			fmt.Fprintf(out, "\n# %s API key: %s\n", cfg.LLM.Provider, key)
		}
		return nil
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize default configuration file",
	Long:  `Create a default configuration file at ~/.llmxray/config.yaml.`,
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		dir, err := configDir()
		if err != nil {
			return fmt.Errorf("error finding home directory: %w", err)
		}
		configPath := filepath.Join(dir, "config.yaml")

		if err := writeDefaultConfig(configPath); err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "✓ Created default configuration: %s\n", configPath)
		fmt.Fprintf(out, "\nTo view the configuration:\n")
		fmt.Fprintf(out, "  llmxray config show\n")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)
}

// writeDefaultConfig refuses to overwrite an existing file
func writeDefaultConfig(configPath string) (err error) {
	if _, err := os.Stat(configPath); err == nil {
		return fmt.Errorf("config file already exists: %s\nUse 'llmxray config show' to view it, or delete it first to recreate", configPath)
	}

	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	yamlData, err := yaml.Marshal(model.DefaultConfig())
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	var b strings.Builder
	b.WriteString("# llmxray configuration\n")
	b.WriteString("#\n")
	b.WriteString("# Every key can be overridden with LLMXRAY_<SECTION>_<KEY>,\n")
	b.WriteString("# e.g. LLMXRAY_BACKEND_BASE_URL=http://gpu-box:8000\n\n")
	b.Write(yamlData)
	b.WriteString("\n# API keys are read from the environment (or .env):\n")
	b.WriteString("#   export OPENAI_API_KEY=sk-...\n")
	b.WriteString("#   export ANTHROPIC_API_KEY=sk-ant-...\n")
	b.WriteString("#   export GEMINI_API_KEY=...\n")
	b.WriteString("#   export OLLAMA_BASE_URL=http://localhost:11434\n")

	if err := os.WriteFile(configPath, []byte(b.String()), 0600); err != nil {
		return fmt.Errorf("error writing config: %w", err)
	}
	return nil
}

// setDefaults registers every config key so env overrides reach Unmarshal
func setDefaults(v *viper.Viper) {
	d := model.DefaultConfig()

	v.SetDefault("backend.base_url", d.Backend.BaseURL)
	v.SetDefault("backend.rate_limit", d.Backend.RateLimit)
	v.SetDefault("backend.burst", d.Backend.Burst)
	v.SetDefault("backend.max_frame_size", d.Backend.MaxFrameSize)

	v.SetDefault("http.timeout", d.HTTP.Timeout)
	v.SetDefault("http.user_agent", d.HTTP.UserAgent)
	v.SetDefault("http.max_body_bytes", d.HTTP.MaxBodyBytes)
	v.SetDefault("http.http_proxy", d.HTTP.HTTPProxy)
	v.SetDefault("http.https_proxy", d.HTTP.HTTPSProxy)

	v.SetDefault("heat.amplification", d.Heat.Amplification)
	v.SetDefault("heat.bright_text", d.Heat.BrightText)
	v.SetDefault("heat.top_context_units", d.Heat.TopContextUnits)

	v.SetDefault("confidence.high", d.Confidence.High)
	v.SetDefault("confidence.medium", d.Confidence.Medium)

	v.SetDefault("cache.enabled", d.Cache.Enabled)
	v.SetDefault("cache.ttl", d.Cache.TTL)

	v.SetDefault("llm.provider", d.LLM.Provider)
	v.SetDefault("llm.model", d.LLM.Model)
	v.SetDefault("llm.api_key", d.LLM.APIKey)
	v.SetDefault("llm.base_url", d.LLM.BaseURL)
	v.SetDefault("llm.timeout", d.LLM.Timeout)
	v.SetDefault("llm.strict_quotes", d.LLM.StrictQuotes)
	v.SetDefault("llm.max_tokens", d.LLM.MaxTokens)

	v.SetDefault("output.verbose", d.Output.Verbose)
	v.SetDefault("output.color", d.Output.Color)

	v.SetDefault("batch.concurrency", d.Batch.Concurrency)
}

// loadConfig merges v over the defaults and fills provider credentials
// from the conventional environment variables
func loadConfig(v *viper.Viper) (*model.Config, error) {
	cfg := model.DefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	switch strings.ToLower(cfg.LLM.Provider) {
	case "openai":
		cfg.LLM.APIKey = firstNonEmpty(cfg.LLM.APIKey, os.Getenv("OPENAI_API_KEY"))
	case "anthropic", "claude":
		cfg.LLM.APIKey = firstNonEmpty(cfg.LLM.APIKey, os.Getenv("ANTHROPIC_API_KEY"))
	case "gemini", "google":
		cfg.LLM.APIKey = firstNonEmpty(cfg.LLM.APIKey, os.Getenv("GEMINI_API_KEY"), os.Getenv("GOOGLE_API_KEY"))
	case "ollama":
		cfg.LLM.BaseURL = firstNonEmpty(cfg.LLM.BaseURL, os.Getenv("OLLAMA_BASE_URL"))
	}

	return cfg, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
