package worker

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ppiankov/llmxray/internal/model"
)

// mockChecker marks every occurrence of "sky" as verified
type mockChecker struct {
	shouldError bool
	calls       int32
}

func (m *mockChecker) Check(ctx context.Context, text string) ([]model.Claim, error) {
	atomic.AddInt32(&m.calls, 1)
	time.Sleep(5 * time.Millisecond)
	if m.shouldError {
		return nil, errors.New("backend down")
	}
	return []model.Claim{{Text: "sky", Verdict: model.VerdictVerified}}, nil
}

func writeFiles(t *testing.T, contents ...string) []string {
	t.Helper()
	dir := t.TempDir()
	paths := make([]string, len(contents))
	for i, c := range contents {
		paths[i] = filepath.Join(dir, "response"+string(rune('a'+i))+".txt")
		if err := os.WriteFile(paths[i], []byte(c), 0o644); err != nil {
			t.Fatalf("write file: %v", err)
		}
	}
	return paths
}

func TestBatchProcessor_ProcessFiles(t *testing.T) {
	paths := writeFiles(t, "The sky is blue", "No claims here", "Sky high")
	checker := &mockChecker{}
	processor := NewBatchProcessor(checker, 2)

	results := processor.ProcessFiles(context.Background(), paths)

	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	for i, res := range results {
		if res.Path != paths[i] {
			t.Errorf("result %d out of order: %s", i, res.Path)
		}
		if res.Error != nil {
			t.Errorf("unexpected error for %s: %v", res.Path, res.Error)
			continue
		}
		if res.Result == nil {
			t.Errorf("expected result for %s", res.Path)
		}
	}

	if got := results[0].Result.Counts[model.VerdictVerified]; got != 1 {
		t.Errorf("expected 1 verified claim, got %d", got)
	}
	if len(results[2].Result.Runs) != 2 {
		t.Errorf("expected the case-insensitive match to split the text, got %+v", results[2].Result.Runs)
	}
}

func TestBatchProcessor_ProcessFiles_Error(t *testing.T) {
	paths := writeFiles(t, "The sky")
	processor := NewBatchProcessor(&mockChecker{shouldError: true}, 2)

	results := processor.ProcessFiles(context.Background(), paths)

	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if results[0].GetError() == nil {
		t.Error("expected error, got nil")
	}
	if results[0].Result != nil {
		t.Error("expected nil result on error")
	}
}

func TestBatchProcessor_ProcessFiles_MissingFile(t *testing.T) {
	checker := &mockChecker{}
	processor := NewBatchProcessor(checker, 2)

	results := processor.ProcessFiles(context.Background(), []string{"/nonexistent/response.txt"})

	if len(results) != 1 || results[0].Error == nil {
		t.Fatalf("expected a read error, got %+v", results)
	}
	if atomic.LoadInt32(&checker.calls) != 0 {
		t.Error("checker should not run for unreadable files")
	}
}

func TestBatchProcessor_ProcessFiles_Empty(t *testing.T) {
	processor := NewBatchProcessor(&mockChecker{}, 2)

	results := processor.ProcessFiles(context.Background(), nil)
	if len(results) != 0 {
		t.Errorf("expected 0 results, got %d", len(results))
	}
}

func TestBatchProcessor_ProcessFiles_Deduplication(t *testing.T) {
	paths := writeFiles(t, "The sky")
	checker := &mockChecker{}
	processor := NewBatchProcessor(checker, 2)

	results := processor.ProcessFiles(context.Background(), []string{paths[0], paths[0], " ", paths[0]})

	if len(results) != 1 {
		t.Errorf("expected 1 result after dedup, got %d", len(results))
	}
	if atomic.LoadInt32(&checker.calls) != 1 {
		t.Errorf("expected 1 check, got %d", checker.calls)
	}
}

func TestBatchProcessor_ProcessFiles_Cancelled(t *testing.T) {
	paths := writeFiles(t, "a sky", "b sky", "c sky")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results := NewBatchProcessor(&mockChecker{}, 1).ProcessFiles(ctx, paths)

	if len(results) != 3 {
		t.Fatalf("expected a result per path, got %d", len(results))
	}
	for _, res := range results {
		if res.Error == nil {
			t.Errorf("expected %s to fail after cancel", res.Path)
		}
	}
}

// blockingChecker blocks every call until ctx ends
type blockingChecker struct {
	started chan struct{}
	once    sync.Once
}

func (b *blockingChecker) Check(ctx context.Context, text string) ([]model.Claim, error) {
	b.once.Do(func() { close(b.started) })
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestBatchProcessor_ProcessFiles_CancelMidBatch(t *testing.T) {
	paths := writeFiles(t, "a sky", "b sky", "c sky", "d sky", "e sky")
	checker := &blockingChecker{started: make(chan struct{})}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan []*CheckResult)
	go func() {
		done <- NewBatchProcessor(checker, 1).ProcessFiles(ctx, paths)
	}()

	<-checker.started
	cancel()

	var results []*CheckResult
	select {
	case results = <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("ProcessFiles did not return after cancel")
	}

	if len(results) != len(paths) {
		t.Fatalf("expected a result per path, got %d", len(results))
	}
	for i, res := range results {
		if res.Path != paths[i] {
			t.Errorf("result %d out of order: %s", i, res.Path)
		}
		if !errors.Is(res.Error, context.Canceled) {
			t.Errorf("expected %s to fail with context.Canceled, got %v", res.Path, res.Error)
		}
	}
}

func TestReadResponseFile(t *testing.T) {
	paths := writeFiles(t, "  The sky is blue\n", " \n\t")

	text, err := ReadResponseFile(paths[0])
	if err != nil {
		t.Fatalf("ReadResponseFile failed: %v", err)
	}
	if text != "  The sky is blue\n" {
		t.Errorf("expected text to be kept verbatim, got %q", text)
	}

	_, err = ReadResponseFile(paths[1])
	if err == nil || !strings.Contains(err.Error(), "empty response") {
		t.Errorf("expected empty response error, got %v", err)
	}

	if _, err := ReadResponseFile("/nonexistent/file.txt"); err == nil {
		t.Error("expected error for non-existent file")
	}
}

func TestCheckResult_GetError(t *testing.T) {
	err := errors.New("boom")
	if (&CheckResult{Error: err}).GetError() != err {
		t.Error("GetError did not return the error")
	}
	if (&CheckResult{}).GetError() != nil {
		t.Error("expected nil error")
	}
}
