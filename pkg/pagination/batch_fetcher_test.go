package pagination

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.MaxConcurrency != 5 {
		t.Errorf("MaxConcurrency = %d, want 5", cfg.MaxConcurrency)
	}
	if cfg.Timeout != 2*time.Minute {
		t.Errorf("Timeout = %v, want 2m", cfg.Timeout)
	}
}

func TestNewBatchFetcher_Defaults(t *testing.T) {
	bf := NewBatchFetcher[int](func(ctx context.Context, id int) (int, error) { return id, nil }, Config{})

	if bf.config.MaxConcurrency != 5 {
		t.Errorf("MaxConcurrency = %d, want 5", bf.config.MaxConcurrency)
	}
	if bf.config.Timeout != 2*time.Minute {
		t.Errorf("Timeout = %v, want 2m", bf.config.Timeout)
	}
}

func TestFetchAll_Empty(t *testing.T) {
	called := false
	bf := NewBatchFetcher[int](func(ctx context.Context, id int) (int, error) {
		called = true
		return id, nil
	}, DefaultConfig())

	result := bf.FetchAll(context.Background(), nil)

	if len(result.Items) != 0 || len(result.Failures) != 0 {
		t.Errorf("result = %+v, want empty", result)
	}
	if called {
		t.Error("fetch called for empty id list")
	}
}

func TestFetchAll_SortsByID(t *testing.T) {
	bf := NewBatchFetcher[string](func(ctx context.Context, id int) (string, error) {
		// Later ids finish first.
		time.Sleep(time.Duration(10-id) * time.Millisecond)
		return fmt.Sprintf("pokemon-%d", id), nil
	}, Config{MaxConcurrency: 4})

	result := bf.FetchAll(context.Background(), []int{5, 3, 9, 1, 7})

	if len(result.Items) != 5 {
		t.Fatalf("len(Items) = %d, want 5", len(result.Items))
	}
	want := []int{1, 3, 5, 7, 9}
	for i, item := range result.Items {
		if item.ID != want[i] {
			t.Errorf("Items[%d].ID = %d, want %d", i, item.ID, want[i])
		}
		if item.Value != fmt.Sprintf("pokemon-%d", item.ID) {
			t.Errorf("Items[%d].Value = %q", i, item.Value)
		}
	}
}

func TestFetchAll_CollectsFailures(t *testing.T) {
	errBoom := errors.New("boom")
	bf := NewBatchFetcher[int](func(ctx context.Context, id int) (int, error) {
		if id%2 == 0 {
			return 0, errBoom
		}
		return id * 10, nil
	}, Config{MaxConcurrency: 3})

	result := bf.FetchAll(context.Background(), []int{1, 2, 3, 4, 5, 6})

	if len(result.Items) != 3 {
		t.Errorf("len(Items) = %d, want 3", len(result.Items))
	}
	if len(result.Failures) != 3 {
		t.Fatalf("len(Failures) = %d, want 3", len(result.Failures))
	}
	for i, f := range result.Failures {
		if f.ID != (i+1)*2 {
			t.Errorf("Failures[%d].ID = %d, want %d", i, f.ID, (i+1)*2)
		}
		if !errors.Is(f.Err, errBoom) {
			t.Errorf("Failures[%d].Err = %v, want boom", i, f.Err)
		}
	}
}

func TestFetchAll_BoundsConcurrency(t *testing.T) {
	var current, maxSeen atomic.Int64
	var mu sync.Mutex

	bf := NewBatchFetcher[int](func(ctx context.Context, id int) (int, error) {
		n := current.Add(1)
		mu.Lock()
		if n > maxSeen.Load() {
			maxSeen.Store(n)
		}
		mu.Unlock()
		time.Sleep(5 * time.Millisecond)
		current.Add(-1)
		return id, nil
	}, Config{MaxConcurrency: 2})

	ids := make([]int, 20)
	for i := range ids {
		ids[i] = i + 1
	}
	result := bf.FetchAll(context.Background(), ids)

	if len(result.Items) != 20 {
		t.Errorf("len(Items) = %d, want 20", len(result.Items))
	}
	if maxSeen.Load() > 2 {
		t.Errorf("max concurrent fetches = %d, want <= 2", maxSeen.Load())
	}
}

func TestFetchAll_ContextCancelledReportsRemaining(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var calls atomic.Int64
	bf := NewBatchFetcher[int](func(ctx context.Context, id int) (int, error) {
		calls.Add(1)
		if id == 1 {
			cancel()
		}
		return id, nil
	}, Config{MaxConcurrency: 1})

	result := bf.FetchAll(ctx, []int{1, 2, 3, 4})

	if got := len(result.Items) + len(result.Failures); got != 4 {
		t.Errorf("items+failures = %d, want 4", got)
	}
	if calls.Load() != 1 {
		t.Errorf("fetch calls = %d, want 1", calls.Load())
	}
	for _, f := range result.Failures {
		if !errors.Is(f.Err, context.Canceled) {
			t.Errorf("failure %d err = %v, want context.Canceled", f.ID, f.Err)
		}
	}
}

func TestFetchAll_PerRecordTimeout(t *testing.T) {
	bf := NewBatchFetcher[int](func(ctx context.Context, id int) (int, error) {
		<-ctx.Done()
		return 0, ctx.Err()
	}, Config{MaxConcurrency: 2, Timeout: 10 * time.Millisecond})

	result := bf.FetchAll(context.Background(), []int{1, 2})

	if len(result.Failures) != 2 {
		t.Fatalf("len(Failures) = %d, want 2", len(result.Failures))
	}
	for _, f := range result.Failures {
		if !errors.Is(f.Err, context.DeadlineExceeded) {
			t.Errorf("failure %d err = %v, want DeadlineExceeded", f.ID, f.Err)
		}
	}
}
