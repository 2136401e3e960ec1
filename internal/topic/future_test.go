// Copyright KubeArchive Authors
// SPDX-License-Identifier: Apache-2.0

package topic

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFutureGetResolvesValue(t *testing.T) {
	f := newFuture[string]()
	f.resolve("hello", nil)
	v, err := f.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "hello", v)
}

func TestFutureGetResolvesError(t *testing.T) {
	f := newFuture[string]()
	f.resolve("", errors.New("boom"))
	_, err := f.Get(context.Background())
	assert.EqualError(t, err, "boom")
}

func TestFutureGetHonorsCancellation(t *testing.T) {
	f := newFuture[string]()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := f.Get(ctx)
	assert.ErrorIs(t, err, ErrInterrupted)
}

func TestAwaitAllJoinsAllFutures(t *testing.T) {
	futures := map[string]*Future[int]{
		"a": newFuture[int](),
		"b": newFuture[int](),
	}
	futures["a"].resolve(1, nil)
	futures["b"].resolve(0, errors.New("bad"))

	out, err := awaitAll(context.Background(), futures)
	require.NoError(t, err)
	assert.True(t, out["a"].IsOK())
	assert.Equal(t, 1, out["a"].Value)
	assert.False(t, out["b"].IsOK())
}

func TestAwaitAllInterruptedByCancellation(t *testing.T) {
	futures := map[string]*Future[int]{"a": newFuture[int]()}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := awaitAll(ctx, futures)
	assert.ErrorIs(t, err, ErrInterrupted)
}
