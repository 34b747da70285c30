package asyncx_test

import (
	"context"
	"errors"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/RafalW3bCraft/garage-management-system-sub003/pkg/asyncx"
)

func TestMap_PreservesInputOrder(t *testing.T) {
	items := []int{5, 3, 9, 1, 7}

	got, err := asyncx.Map(context.Background(), items, func(_ context.Context, n int) (string, error) {
		// Finish in reverse order to make result ordering do real work.
		time.Sleep(time.Duration(10-n) * time.Millisecond)
		return strconv.Itoa(n * 2), nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []string{"10", "6", "18", "2", "14"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("result[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestMap_ReturnsError(t *testing.T) {
	boom := errors.New("boom")
	_, err := asyncx.Map(context.Background(), []int{1, 2, 3}, func(_ context.Context, n int) (int, error) {
		if n == 2 {
			return 0, boom
		}
		return n, nil
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
}

func TestPool_CapsConcurrency(t *testing.T) {
	var active, peak int64
	items := make([]int, 20)

	_, err := asyncx.Pool(context.Background(), 3, items, func(_ context.Context, n int) (int, error) {
		cur := atomic.AddInt64(&active, 1)
		for {
			old := atomic.LoadInt64(&peak)
			if cur <= old || atomic.CompareAndSwapInt64(&peak, old, cur) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		atomic.AddInt64(&active, -1)
		return n, nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p := atomic.LoadInt64(&peak); p > 3 {
		t.Fatalf("observed %d concurrent workers, cap is 3", p)
	}
}

func TestPool_PreservesInputOrder(t *testing.T) {
	items := []string{"a", "b", "c", "d", "e"}

	got, err := asyncx.Pool(context.Background(), 2, items, func(_ context.Context, s string) (string, error) {
		return s + s, nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i, s := range items {
		if got[i] != s+s {
			t.Fatalf("result[%d] = %q, want %q", i, got[i], s+s)
		}
	}
}

func TestPool_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := asyncx.Pool(ctx, 2, []int{1, 2, 3}, func(context.Context, int) (int, error) {
		return 0, nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
