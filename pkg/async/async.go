package async

import "context"

// Future is the pending result of a function started by Go.
type Future[U any] struct {
	result U
	err    error
	done   chan struct{}
}

// Go runs fn in its own goroutine. A context already cancelled at start
// resolves the future with ctx.Err() without calling fn.
func Go[U any](ctx context.Context, fn func(context.Context) (U, error)) *Future[U] {
	f := &Future[U]{done: make(chan struct{})}
	go func() {
		defer close(f.done)
		if err := ctx.Err(); err != nil {
			f.err = err
			return
		}
		f.result, f.err = fn(ctx)
	}()
	return f
}

// Await blocks until the function returns or ctx is done.
func (f *Future[U]) Await(ctx context.Context) (U, error) {
	select {
	case <-f.done:
		return f.result, f.err
	case <-ctx.Done():
		var zero U
		return zero, ctx.Err()
	}
}

// Done is closed once the result is available.
func (f *Future[U]) Done() <-chan struct{} {
	return f.done
}

// WaitAll awaits futures in order and stops at the first error.
func WaitAll[U any](ctx context.Context, futures ...*Future[U]) ([]U, error) {
	results := make([]U, len(futures))
	for i, f := range futures {
		res, err := f.Await(ctx)
		if err != nil {
			return results, err
		}
		results[i] = res
	}
	return results, nil
}
