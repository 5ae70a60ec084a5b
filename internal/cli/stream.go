package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/ppiankov/llmxray/internal/annotate"
	"github.com/ppiankov/llmxray/internal/backend"
	"github.com/ppiankov/llmxray/internal/model"
	"github.com/ppiankov/llmxray/internal/render"
	"github.com/ppiankov/llmxray/internal/stream"
)

var (
	streamJSON   bool
	streamHTML   string
	streamTop    int
	streamTokens bool
)

// streamCmd represents the stream command
var streamCmd = &cobra.Command{
	Use:   "stream <prompt>",
	Short: "Stream a response with its attention scores",
	Long: `Stream sends a prompt to the inference backend and prints every
generated word as it arrives, together with the prompt words it is most
similar to. When the stream ends, the prompt is printed as a heat map of
the last word.

Example:
  llmxray stream "What is the capital of France?"
  llmxray stream "Explain photosynthesis" --top 5
  llmxray stream "Hi" --json | jq .word
  llmxray stream "Hi" --html attention.html
  llmxray stream "Hi" --tokens`,
	Args: cobra.MinimumNArgs(1),
	RunE: runStream,
}

func init() {
	rootCmd.AddCommand(streamCmd)

	streamCmd.Flags().BoolVar(&streamJSON, "json", false, "print raw events as JSON lines")
	streamCmd.Flags().StringVar(&streamHTML, "html", "", "also write the final heat map as HTML to this path")
	streamCmd.Flags().IntVar(&streamTop, "top", 0, "context words shown per unit (default heat.top_context_units)")
	streamCmd.Flags().BoolVar(&streamTokens, "tokens", false, "also print the prompt tokens as chips")
}

func runStream(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(viper.GetViper())
	if err != nil {
		return err
	}
	if streamTop > 0 {
		cfg.Heat.TopContextUnits = streamTop
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	client := backend.New(backend.OptionsFromConfig(cfg, logger))
	prompt := strings.Join(args, " ")

	logger.Info("opening attention stream",
		zap.String("backend", cfg.Backend.BaseURL),
		zap.Int("prompt_len", len(prompt)),
	)

	dec, err := client.AttentionStream(ctx, prompt)
	if err != nil {
		return err
	}

	acc, streamErr := printStream(ctx, cmd.OutOrStdout(), dec, cfg, streamJSON)

	if streamTokens && !streamJSON {
		printTokens(cmd.OutOrStdout(), render.NewTerminal(cmd.OutOrStdout(), cfg.Output.Color, cfg.Heat.BrightText), acc.State().ContextUnits)
	}

	if streamHTML != "" {
		if err := writeAttentionHTML(streamHTML, acc, cfg.Heat.BrightText); err != nil {
			return err
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "✓ Heat map written to %s\n", streamHTML)
	}

	if streamErr != nil {
		return fmt.Errorf("attention stream: %w", streamErr)
	}
	return nil
}

// printStream folds dec into a fresh accumulator while printing each unit.
// The accumulator keeps what arrived even when the stream fails. A failed
// write to w stops the stream and is returned.
func printStream(ctx context.Context, w io.Writer, dec *stream.Decoder, cfg *model.Config, asJSON bool) (*annotate.Accumulator, error) {
	acc := annotate.New(cfg.Heat.Amplification)
	term := render.NewTerminal(w, cfg.Output.Color, cfg.Heat.BrightText)
	enc := json.NewEncoder(w)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var writeErr error
	err := stream.ForEach(ctx, dec, func(event model.AnnotationEvent) {
		acc.Append(event)
		if writeErr != nil {
			return
		}

		if asJSON {
			writeErr = enc.Encode(event)
		} else {
			top := annotate.TopContext(event.ContextUnits, event.Scores, cfg.Heat.TopContextUnits, cfg.Heat.Amplification)
			parts := make([]string, len(top))
			for i, r := range top {
				parts[i] = fmt.Sprintf("%s %.2f", r.Unit, r.Intensity)
			}
			_, writeErr = fmt.Fprintf(w, "%-18q %s\n", event.Unit, strings.Join(parts, "  "))
		}

		if writeErr != nil {
			logger.Warn("output closed, stopping stream", zap.Error(writeErr))
			cancel()
		}
	})

	if dropped := dec.Dropped(); dropped > 0 {
		logger.Warn("skipped malformed frames", zap.Int("count", dropped))
	}

	if writeErr != nil {
		return acc, fmt.Errorf("write event: %w", writeErr)
	}

	if !asJSON && acc.Len() > 0 {
		state := acc.State()
		fmt.Fprintf(w, "\n%s\n", term.ContextHeat(state.ContextUnits, acc.Intensities()))
	}

	return acc, err
}

func printTokens(w io.Writer, term *render.Terminal, tokens []string) {
	fmt.Fprintf(w, "\nPROMPT TOKENS (%d)\n%s\n", len(tokens), term.Tokens(tokens))
}

func writeAttentionHTML(path string, acc *annotate.Accumulator, brightText float64) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("close %s: %w", path, closeErr)
		}
	}()

	return render.AttentionHTML(f, acc.State(), acc.Intensities(), brightText)
}
