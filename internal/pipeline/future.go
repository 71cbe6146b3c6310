package pipeline

import "context"

// Result is the outcome of an asynchronous call
type Result[T any] struct {
	Value T
	Err   error
}

// Go runs fn on its own goroutine and delivers exactly one Result
func Go[T any](ctx context.Context, fn func(context.Context) (T, error)) <-chan Result[T] {
	ch := make(chan Result[T], 1)
	go func() {
		v, err := fn(ctx)
		ch <- Result[T]{Value: v, Err: err}
	}()
	return ch
}
