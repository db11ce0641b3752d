// Package executor provides a bounded parallel map that preserves
// submission order in its results. Detector and per-column computations are
// read-only over the dataset, so tasks share no mutable state and the only
// contract that matters is ordering: report and JSON output render results
// in submission order regardless of completion order.
package executor

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"
)

// Options configures a parallel run.
type Options struct {
	// Parallelism bounds the worker pool. Values below 2 degrade to
	// strictly sequential execution.
	Parallelism int
	// Timeout is an optional wall-clock bound for the whole run. Zero
	// means no bound.
	Timeout time.Duration
}

// Map applies fn to every item, at most opts.Parallelism at a time, and
// returns the results in submission order. The first error cancels
// outstanding work and is returned; one slow task never blocks unrelated
// tasks from being scheduled.
func Map[T, R any](ctx context.Context, items []T, opts Options, fn func(context.Context, T) (R, error)) ([]R, error) {
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}
	results := make([]R, len(items))

	if opts.Parallelism < 2 {
		for i, item := range items {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			r, err := fn(ctx, item)
			if err != nil {
				return nil, err
			}
			results[i] = r
		}
		return results, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Parallelism)
	for i, item := range items {
		i, item := i, item
		g.Go(func() error {
			r, err := fn(gctx, item)
			if err != nil {
				return err
			}
			results[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
