package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/ppiankov/llmxray/internal/logging"
)

// version is overridden at build time with -ldflags
var version = "v0.1.0"

var (
	cfgFile    string
	verbose    bool
	logFile    string
	backendURL string

	logger = zap.NewNop()
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "llmxray",
	Short: "llmxray - attention heat maps and fact-check overlays for LLM output",
	Long: `llmxray shows why a model said what it said.

It streams a response from an inference backend together with the
similarity of every generated word to the words of the prompt, and
renders that as a heat map you can inspect word by word.

It can also audit a finished response: a second model call extracts the
response's factual claims and judges each one, and llmxray highlights
the claimed text as verified, uncertain, or hallucinated.

Verdicts come from a model. llmxray shows them, it does not vouch for them.`,
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		path := logFile
		if path == "" && cmd.Name() == "watch" {
			// the TUI owns the terminal
			p, err := defaultWatchLog()
			if err != nil {
				return err
			}
			path = p
		}

		l, err := logging.New(verbose, path)
		if err != nil {
			return err
		}
		logger = l
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Display the version number of llmxray.`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "llmxray %s\n", version)
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.llmxray/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "write logs to this file instead of stderr")
	rootCmd.PersistentFlags().StringVar(&backendURL, "backend", "", "inference backend base URL (overrides backend.base_url)")

	// Bind flags to viper
	_ = viper.BindPFlag("output.verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	_ = viper.BindPFlag("backend.base_url", rootCmd.PersistentFlags().Lookup("backend"))

	// Add subcommands
	rootCmd.AddCommand(versionCmd)
}

// initConfig reads in .env, the config file and ENV variables
func initConfig() {
	// .env in the working directory is optional
	_ = godotenv.Load()

	setDefaults(viper.GetViper())

	if cfgFile != "" {
		// Use config file from the flag
		viper.SetConfigFile(cfgFile)
	} else {
		dir, err := configDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error finding home directory: %v\n", err)
			return
		}

		// Search for config in home directory
		viper.AddConfigPath(dir)
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	// Read in environment variables that match LLMXRAY_*, e.g. LLMXRAY_BACKEND_BASE_URL
	viper.SetEnvPrefix("LLMXRAY")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// If a config file is found, read it in
	if err := viper.ReadInConfig(); err == nil && verbose {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
	}
}

func configDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".llmxray"), nil
}

func defaultWatchLog() (string, error) {
	dir, err := configDir()
	if err != nil {
		return "", fmt.Errorf("error finding home directory: %w", err)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("error creating log directory: %w", err)
	}
	return filepath.Join(dir, "watch.log"), nil
}
