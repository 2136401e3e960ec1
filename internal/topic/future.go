// Copyright KubeArchive Authors
// SPDX-License-Identifier: Apache-2.0

package topic

import "context"

// Future is a per-topic result from a grouped admin call. The admin
// façade issues one request for a whole batch of topics but resolves
// each topic's outcome independently, since the broker may accept some
// and reject others in the same response.
type Future[T any] struct {
	done chan struct{}
	val  T
	err  error
}

func newFuture[T any]() *Future[T] {
	return &Future[T]{done: make(chan struct{})}
}

func (f *Future[T]) resolve(val T, err error) {
	f.val, f.err = val, err
	close(f.done)
}

// Get blocks until the future resolves or ctx is done, returning
// ErrInterrupted on cancellation so the batch's suspension points all
// funnel into the same cooperative-cancellation signal.
func (f *Future[T]) Get(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.val, f.err
	case <-ctx.Done():
		var zero T
		return zero, ErrInterrupted
	}
}

// awaitAll resolves every future in futures, returning ErrInterrupted
// immediately if ctx is canceled while any are still pending. The
// controller awaits completion of all fan-out operations in a batch
// before advancing to the next stage.
func awaitAll[K comparable, T any](ctx context.Context, futures map[K]*Future[T]) (map[K]Either[T], error) {
	out := make(map[K]Either[T], len(futures))
	for k, f := range futures {
		v, err := f.Get(ctx)
		if err == ErrInterrupted {
			return nil, ErrInterrupted
		}
		out[k] = Either[T]{Value: v, Err: err}
	}
	return out, nil
}
