package concurrent

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// ForEach runs action for every element of items in its own goroutine, with at
// most limit goroutines in flight (unbounded when limit <= 0). The context
// passed to action is cancelled as soon as one action fails, and the first
// error is returned.
func ForEach[T any](ctx context.Context, items []T, limit int, action func(context.Context, T) error) error {
	group, gctx := errgroup.WithContext(ctx)
	if limit > 0 {
		group.SetLimit(limit)
	}

	for _, item := range items {
		group.Go(func() error {
			return action(gctx, item)
		})
	}

	return group.Wait()
}
