package worker

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ppiankov/llmxray/internal/factcheck"
)

// CheckJob fact-checks one response file
type CheckJob struct {
	Index   int
	Path    string
	Checker factcheck.Checker
}

// Execute reads the file and analyzes its text
func (j *CheckJob) Execute(ctx context.Context) Result {
	res := &CheckResult{Index: j.Index, Path: j.Path}

	text, err := ReadResponseFile(j.Path)
	if err != nil {
		res.Error = err
		return res
	}

	res.Result, res.Error = factcheck.Analyze(ctx, j.Checker, text)
	return res
}

// CheckResult is the outcome of one CheckJob
type CheckResult struct {
	Index  int
	Path   string
	Result *factcheck.Result
	Error  error
}

// GetError returns the error from the check
func (r *CheckResult) GetError() error {
	return r.Error
}

// BatchProcessor fact-checks many response files concurrently
type BatchProcessor struct {
	checker     factcheck.Checker
	concurrency int
}

// NewBatchProcessor creates a new batch processor
func NewBatchProcessor(checker factcheck.Checker, concurrency int) *BatchProcessor {
	return &BatchProcessor{
		checker:     checker,
		concurrency: concurrency,
	}
}

// ProcessFiles checks every path and returns results in input order.
// Duplicate paths are checked once.
func (b *BatchProcessor) ProcessFiles(ctx context.Context, paths []string) []*CheckResult {
	paths = dedupe(paths)
	if len(paths) == 0 {
		return []*CheckResult{}
	}

	pool := NewPool(ctx, b.concurrency)
	pool.Start()

	for i, path := range paths {
		if !pool.Submit(&CheckJob{Index: i, Path: path, Checker: b.checker}) {
			break
		}
	}

	results := pool.Wait()

	byIndex := make(map[int]*CheckResult, len(results))
	for _, r := range results {
		cr := r.(*CheckResult)
		byIndex[cr.Index] = cr
	}

	out := make([]*CheckResult, 0, len(paths))
	for i, path := range paths {
		if cr, ok := byIndex[i]; ok {
			out = append(out, cr)
			continue
		}
		// never ran because ctx ended
		err := ctx.Err()
		if err == nil {
			err = context.Canceled
		}
		out = append(out, &CheckResult{Index: i, Path: path, Error: err})
	}

	return out
}

// ReadResponseFile reads a response to check. "-" reads standard input.
func ReadResponseFile(path string) (string, error) {
	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}

	text := string(data)
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("read %s: empty response", path)
	}
	return text, nil
}

func dedupe(paths []string) []string {
	seen := make(map[string]bool, len(paths))
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		p = strings.TrimSpace(p)
		if p == "" || seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	return out
}
