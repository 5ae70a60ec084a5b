package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ppiankov/llmxray/internal/backend"
	"github.com/ppiankov/llmxray/internal/factcheck"
	"github.com/ppiankov/llmxray/internal/render"
	"github.com/ppiankov/llmxray/internal/worker"
)

var (
	concurrency  int
	batchTimeout time.Duration
	batchJSON    bool
)

// batchCmd represents the batch command
var batchCmd = &cobra.Command{
	Use:   "batch <file>...",
	Short: "Fact-check many responses in parallel",
	Long: `Batch fact-checks every file concurrently:
- Each file holds one model response
- Files are audited by a pool of workers
- One verdict summary line is printed per file, in argument order
- Backend calls share the per-host rate limit

Example:
  llmxray batch answers/*.txt
  llmxray batch a.txt b.txt --concurrency 8 --llm ollama
  llmxray batch answers/*.txt --json > results.json`,
	Args: cobra.MinimumNArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().IntVar(&concurrency, "concurrency", 0, "number of concurrent workers (default batch.concurrency)")
	batchCmd.Flags().DurationVar(&batchTimeout, "timeout", 10*time.Minute, "total timeout for batch processing")
	batchCmd.Flags().BoolVar(&batchJSON, "json", false, "print all results as JSON")
	addAuditorFlags(batchCmd)
}

type batchEntry struct {
	Path   string            `json:"path"`
	Result *factcheck.Result `json:"result,omitempty"`
	Error  string            `json:"error,omitempty"`
}

func runBatch(cmd *cobra.Command, args []string) error {
	cfg, err := auditorConfig()
	if err != nil {
		return err
	}
	if concurrency > 0 {
		cfg.Batch.Concurrency = concurrency
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, batchTimeout)
	defer cancel()

	client := backend.New(backend.OptionsFromConfig(cfg, logger))
	checker, err := newChecker(ctx, cfg, client)
	if err != nil {
		return err
	}

	logger.Info("batch started",
		zap.Int("files", len(args)),
		zap.Int("workers", cfg.Batch.Concurrency),
		zap.Duration("timeout", batchTimeout),
	)

	processor := worker.NewBatchProcessor(checker, cfg.Batch.Concurrency)
	results := processor.ProcessFiles(ctx, args)

	failures := 0
	for _, r := range results {
		if r.Error != nil {
			failures++
		}
	}

	out := cmd.OutOrStdout()
	if batchJSON {
		entries := make([]batchEntry, len(results))
		for i, r := range results {
			entries[i] = batchEntry{Path: r.Path, Result: r.Result}
			if r.Error != nil {
				entries[i].Error = r.Error.Error()
			}
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(entries); err != nil {
			return err
		}
	} else {
		term := render.NewTerminal(out, cfg.Output.Color, cfg.Heat.BrightText)
		for _, r := range results {
			if r.Error != nil {
				fmt.Fprintf(out, "✗ %s: %v\n", r.Path, r.Error)
				continue
			}
			fmt.Fprintf(out, "✓ %s  %s\n", r.Path, term.Counts(r.Result.Counts))
		}

		fmt.Fprintf(out, "\n")
		fmt.Fprintf(out, "  Total:     %d files\n", len(results))
		fmt.Fprintf(out, "  Success:   %d\n", len(results)-failures)
		fmt.Fprintf(out, "  Failures:  %d\n", failures)
	}

	if failures > 0 {
		return fmt.Errorf("%d of %d files failed", failures, len(results))
	}
	return nil
}
