package review

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Outcome pairs an input with the result or error of its task
type Outcome[T, R any] struct {
	Input  T
	Result R
	Err    error
}

// JoinAll runs fn for every input concurrently and waits for all of them.
// A failing task never cancels its siblings. limit <= 0 means unbounded.
// Outcomes are returned in input order.
func JoinAll[T, R any](ctx context.Context, inputs []T, limit int, fn func(context.Context, T) (R, error)) []Outcome[T, R] {
	outcomes := make([]Outcome[T, R], len(inputs))

	var g errgroup.Group
	if limit > 0 {
		g.SetLimit(limit)
	}
	for i, input := range inputs {
		g.Go(func() error {
			result, err := fn(ctx, input)
			outcomes[i] = Outcome[T, R]{Input: input, Result: result, Err: err}
			return nil
		})
	}
	_ = g.Wait()

	return outcomes
}

// Partition splits outcomes into those without and with an error
func Partition[T, R any](outcomes []Outcome[T, R]) (succeeded, failed []Outcome[T, R]) {
	for _, o := range outcomes {
		if o.Err != nil {
			failed = append(failed, o)
			continue
		}
		succeeded = append(succeeded, o)
	}
	return succeeded, failed
}
