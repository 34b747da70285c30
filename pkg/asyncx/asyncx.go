// Package asyncx provides small concurrency helpers used for fan-out
// work: applying a function to a slice of items in parallel, with or
// without a worker cap.
package asyncx

import (
	"context"
	"sync"
)

// Do fires fn in a goroutine only if ctx is not already done. The
// goroutine receives ctx so it can observe cancellation.
func Do(ctx context.Context, fn func(context.Context)) {
	go func() {
		select {
		case <-ctx.Done():
			return
		default:
			fn(ctx)
		}
	}()
}

// Map applies fn to every item concurrently and returns the transformed
// slice in input order. All goroutines run to completion; the first
// error encountered is returned.
func Map[T any, R any](ctx context.Context, items []T, fn func(context.Context, T) (R, error)) ([]R, error) {
	results := make([]R, len(items))
	errs := make([]error, len(items))

	var wg sync.WaitGroup
	wg.Add(len(items))
	for i, item := range items {
		go func(i int, item T) {
			defer wg.Done()
			results[i], errs[i] = fn(ctx, item)
		}(i, item)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return results, nil
}

// Pool is Map with at most workers goroutines. Use it when unbounded
// concurrency would hurt, e.g. the items hit a connection pool or a
// rate-limited API.
func Pool[T any, R any](ctx context.Context, workers int, items []T, fn func(context.Context, T) (R, error)) ([]R, error) {
	if workers <= 0 {
		workers = 1
	}

	type indexed struct {
		i    int
		item T
	}

	work := make(chan indexed, len(items))
	for i, item := range items {
		work <- indexed{i: i, item: item}
	}
	close(work)

	results := make([]R, len(items))
	errs := make([]error, len(items))

	var wg sync.WaitGroup
	wg.Add(workers)
	for range workers {
		go func() {
			defer wg.Done()
			for w := range work {
				if ctx.Err() != nil {
					errs[w.i] = ctx.Err()
					continue
				}
				results[w.i], errs[w.i] = fn(ctx, w.item)
			}
		}()
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return results, nil
}
