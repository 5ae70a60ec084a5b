package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/ppiankov/llmxray/internal/backend"
	"github.com/ppiankov/llmxray/internal/render"
)

var temperatureJSON bool

// temperatureCmd represents the temperature command
var temperatureCmd = &cobra.Command{
	Use:   "temperature <prompt>",
	Short: "Compare one prompt across sampling temperatures",
	Long: `Temperature asks the backend to answer the same prompt at a low, a
default and a high sampling temperature. Every sentence comes back with a
confidence score the model reported for itself, which is printed next to it.

Self-reported confidence is a signal, not ground truth. Bands are set with
confidence.high and confidence.medium.

Example:
  llmxray temperature "Describe Paris in three sentences"
  llmxray temperature "Name a prime" --json`,
	Args: cobra.MinimumNArgs(1),
	RunE: runTemperature,
}

func init() {
	rootCmd.AddCommand(temperatureCmd)

	temperatureCmd.Flags().BoolVar(&temperatureJSON, "json", false, "print the runs as JSON")
}

func runTemperature(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(viper.GetViper())
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	client := backend.New(backend.OptionsFromConfig(cfg, logger))
	prompt := strings.Join(args, " ")

	logger.Info("running temperature lab", zap.String("backend", cfg.Backend.BaseURL))
	runs, err := client.TemperatureLab(ctx, prompt)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if temperatureJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(runs)
	}

	term := render.NewTerminal(out, cfg.Output.Color, cfg.Heat.BrightText)
	bands := render.Bands{High: cfg.Confidence.High, Medium: cfg.Confidence.Medium}
	fmt.Fprint(out, term.TemperatureRuns(runs, bands))
	return nil
}
