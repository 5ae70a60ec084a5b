package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type indexResult struct {
	index int
	err   error
}

func (r *indexResult) GetError() error {
	return r.err
}

// gatedJob holds its worker until release is closed or ctx ends
type gatedJob struct {
	index   int
	started chan<- int
	release <-chan struct{}
}

func (j *gatedJob) Execute(ctx context.Context) Result {
	if j.started != nil {
		j.started <- j.index
	}
	select {
	case <-j.release:
		return &indexResult{index: j.index}
	case <-ctx.Done():
		return &indexResult{index: j.index, err: ctx.Err()}
	}
}

func waitResults(t *testing.T, pool *Pool) []Result {
	t.Helper()
	done := make(chan []Result)
	go func() { done <- pool.Wait() }()

	select {
	case results := <-done:
		return results
	case <-time.After(5 * time.Second):
		t.Fatal("Wait did not return")
		return nil
	}
}

func TestNewPool_ClampsWorkers(t *testing.T) {
	for _, n := range []int{0, -3} {
		if p := NewPool(context.Background(), n); p.workers != 1 {
			t.Errorf("NewPool(%d): expected 1 worker, got %d", n, p.workers)
		}
	}
}

func TestPool_OneResultPerJob(t *testing.T) {
	release := make(chan struct{})
	close(release)

	pool := NewPool(context.Background(), 3)
	pool.Start()
	for i := 0; i < 10; i++ {
		if !pool.Submit(&gatedJob{index: i, release: release}) {
			t.Fatalf("job %d rejected", i)
		}
	}

	results := waitResults(t, pool)
	if len(results) != 10 {
		t.Fatalf("expected 10 results, got %d", len(results))
	}

	seen := make(map[int]bool)
	for _, r := range results {
		seen[r.(*indexResult).index] = true
	}
	if len(seen) != 10 {
		t.Errorf("expected every job to report once, got %v", seen)
	}
}

func TestPool_BoundedConcurrency(t *testing.T) {
	const workers = 3
	started := make(chan int, 6)
	release := make(chan struct{})

	pool := NewPool(context.Background(), workers)
	pool.Start()
	// the queue holds workers*2 jobs, so none of these block
	for i := 0; i < 6; i++ {
		pool.Submit(&gatedJob{index: i, started: started, release: release})
	}

	for i := 0; i < workers; i++ {
		select {
		case <-started:
		case <-time.After(time.Second):
			t.Fatalf("only %d jobs started", i)
		}
	}
	select {
	case i := <-started:
		t.Errorf("job %d started while %d workers were busy", i, workers)
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	if results := waitResults(t, pool); len(results) != 6 {
		t.Errorf("expected 6 results, got %d", len(results))
	}
}

type failJob struct{}

func (failJob) Execute(ctx context.Context) Result {
	return &indexResult{index: -1, err: errors.New("backend down")}
}

func TestPool_ErrorsAreResults(t *testing.T) {
	release := make(chan struct{})
	close(release)

	pool := NewPool(context.Background(), 2)
	pool.Start()
	pool.Submit(failJob{})
	pool.Submit(&gatedJob{index: 1, release: release})

	failed := 0
	for _, r := range waitResults(t, pool) {
		if r.GetError() != nil {
			failed++
		}
	}
	if failed != 1 {
		t.Errorf("expected 1 failed result, got %d", failed)
	}
}

func TestPool_CancelMidBatch(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	started := make(chan int, 1)
	pool := NewPool(ctx, 1)
	pool.Start()

	if !pool.Submit(&gatedJob{index: 0, started: started, release: make(chan struct{})}) {
		t.Fatal("first job rejected")
	}
	<-started
	cancel()

	if pool.Submit(&gatedJob{index: 1}) {
		t.Error("expected Submit to fail once the context is cancelled")
	}

	results := waitResults(t, pool)
	if len(results) != 1 {
		t.Fatalf("expected only the running job to report, got %d", len(results))
	}
	if !errors.Is(results[0].GetError(), context.Canceled) {
		t.Errorf("expected the running job to see cancellation, got %v", results[0].GetError())
	}
}

func TestPool_ManyJobsDoNotDeadlock(t *testing.T) {
	release := make(chan struct{})
	close(release)

	pool := NewPool(context.Background(), 2)
	pool.Start()

	// far more jobs than the queue and result buffers hold
	for i := 0; i < 200; i++ {
		pool.Submit(&gatedJob{index: i, release: release})
	}

	if results := waitResults(t, pool); len(results) != 200 {
		t.Errorf("expected 200 results, got %d", len(results))
	}
}

func TestPool_WaitWithoutStart(t *testing.T) {
	release := make(chan struct{})
	close(release)

	pool := NewPool(context.Background(), 2)
	pool.Submit(&gatedJob{release: release})

	if results := waitResults(t, pool); len(results) != 1 {
		t.Errorf("expected 1 result, got %d", len(results))
	}
}

func TestResultCollector_ConcurrentAdd(t *testing.T) {
	c := NewResultCollector()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c.Add(&indexResult{index: i})
		}(i)
	}
	wg.Wait()

	res := c.Results()
	if len(res) != 20 {
		t.Errorf("expected 20 results, got %d", len(res))
	}
	res[0] = nil
	if c.Results()[0] == nil {
		t.Error("Results should return a copy")
	}
}
