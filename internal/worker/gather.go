package worker

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Gather runs fn for every item with at most limit calls in flight (limit <= 0 is unbounded)
// and waits for all of them. Results are positional: results[i] belongs to items[i],
// whatever order the calls finish in. The first error cancels the shared context and is returned.
func Gather[T, R any](ctx context.Context, limit int, items []T, fn func(ctx context.Context, item T) (R, error)) ([]R, error) {
	results := make([]R, len(items))
	if len(items) == 0 {
		return results, nil
	}

	group, gctx := errgroup.WithContext(ctx)
	if limit > 0 {
		group.SetLimit(limit)
	}

	for i, item := range items {
		group.Go(func() error {
			r, err := fn(gctx, item)
			if err != nil {
				return err
			}
			results[i] = r
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
