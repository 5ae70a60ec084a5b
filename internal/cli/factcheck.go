package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/ppiankov/llmxray/internal/backend"
	"github.com/ppiankov/llmxray/internal/cache"
	"github.com/ppiankov/llmxray/internal/factcheck"
	"github.com/ppiankov/llmxray/internal/llm"
	"github.com/ppiankov/llmxray/internal/model"
	"github.com/ppiankov/llmxray/internal/render"
	"github.com/ppiankov/llmxray/internal/worker"
)

var (
	llmProvider string
	llmModel    string
	noCache     bool
	noColor     bool
	checkJSON   bool
	checkHTML   string
	checkPrompt string
)

// factcheckCmd represents the factcheck command
var factcheckCmd = &cobra.Command{
	Use:   "factcheck [file|-]",
	Short: "Highlight the claims of a response by verdict",
	Long: `Factcheck audits a model response:
- A second model call extracts the factual claims of the response
- Each claim is judged verified, uncertain, or hallucination
- The response is printed with every claimed span highlighted
- A verdict summary and a per-claim breakdown follow

The audit runs on the backend unless --llm selects a local auditor.
Text is read from the file argument, or from stdin when it is "-" or missing.
With --prompt the backend first generates the response to audit.

Example:
  llmxray factcheck answer.txt
  echo "The Eiffel Tower is in Rome." | llmxray factcheck --llm openai
  llmxray factcheck --prompt "Who wrote Dune?" --html dune.html`,
	Args: cobra.MaximumNArgs(1),
	RunE: runFactcheck,
}

func init() {
	rootCmd.AddCommand(factcheckCmd)

	factcheckCmd.Flags().BoolVar(&checkJSON, "json", false, "print the result as JSON")
	factcheckCmd.Flags().StringVar(&checkHTML, "html", "", "also write the highlighted response as HTML to this path")
	factcheckCmd.Flags().StringVar(&checkPrompt, "prompt", "", "generate the response from this prompt first")
	addAuditorFlags(factcheckCmd)
}

// addAuditorFlags registers the flags shared by factcheck and batch
func addAuditorFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&llmProvider, "llm", "", "local auditor (openai, anthropic, ollama, gemini); backend when empty")
	cmd.Flags().StringVar(&llmModel, "llm-model", "", "auditor model name (provider default when empty)")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable the fact-check cache")
	cmd.Flags().BoolVar(&noColor, "no-color", false, "plain text output")
}

func runFactcheck(cmd *cobra.Command, args []string) error {
	cfg, err := auditorConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	client := backend.New(backend.OptionsFromConfig(cfg, logger))

	var text string
	if checkPrompt != "" {
		logger.Info("generating response", zap.String("backend", cfg.Backend.BaseURL))
		text, err = client.Generate(ctx, checkPrompt)
		if err != nil {
			return err
		}
	} else {
		path := "-"
		if len(args) == 1 {
			path = args[0]
		}
		text, err = worker.ReadResponseFile(path)
		if err != nil {
			return err
		}
	}

	checker, err := newChecker(ctx, cfg, client)
	if err != nil {
		return err
	}

	result, err := factcheck.Analyze(ctx, checker, text)
	if err != nil {
		return err
	}

	if checkHTML != "" {
		if err := writeFactcheckHTML(checkHTML, result); err != nil {
			return err
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "✓ Highlighted response written to %s\n", checkHTML)
	}

	if checkJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	printResult(cmd.OutOrStdout(), render.NewTerminal(cmd.OutOrStdout(), cfg.Output.Color, cfg.Heat.BrightText), result)
	return nil
}

// auditorConfig loads the config and applies the auditor flags
func auditorConfig() (*model.Config, error) {
	if llmProvider != "" {
		viper.Set("llm.provider", llmProvider)
	}
	if llmModel != "" {
		viper.Set("llm.model", llmModel)
	}

	cfg, err := loadConfig(viper.GetViper())
	if err != nil {
		return nil, err
	}
	if noCache {
		cfg.Cache.Enabled = false
	}
	if noColor {
		cfg.Output.Color = false
	}
	return cfg, nil
}

// newChecker picks the auditor: a local LLM provider when one is configured,
// the backend otherwise. Results are cached by response text when enabled.
func newChecker(ctx context.Context, cfg *model.Config, client *backend.Client) (factcheck.Checker, error) {
	var checker factcheck.Checker = client

	provider, err := llm.NewProvider(ctx, llm.ConfigFromModel(cfg))
	if err != nil {
		return nil, fmt.Errorf("create auditor: %w", err)
	}
	if provider != nil {
		logger.Info("using local auditor", zap.String("provider", provider.Name()), zap.String("model", cfg.LLM.Model))
		checker = llm.NewChecker(provider, logger)
	}

	if cfg.Cache.Enabled {
		mem := cache.NewMemoryCache(cfg.Cache.TTL, 2*cfg.Cache.TTL)
		checker = factcheck.NewCached(checker, mem, cfg.Cache.TTL, logger)
	}

	return checker, nil
}

func printResult(w io.Writer, term *render.Terminal, result *factcheck.Result) {
	fmt.Fprintln(w, term.Runs(result.Runs))
	fmt.Fprintln(w)
	fmt.Fprintln(w, term.Counts(result.Counts))

	if breakdown := term.Breakdown(result.Claims); breakdown != "" {
		fmt.Fprintln(w)
		fmt.Fprint(w, breakdown)
	}
}

func writeFactcheckHTML(path string, result *factcheck.Result) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("close %s: %w", path, closeErr)
		}
	}()

	return render.HTML(f, result.Runs, result.Claims)
}
