// Copyright KubeArchive Authors
// SPDX-License-Identifier: Apache-2.0

package topic

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEitherOKAndErrOf(t *testing.T) {
	ok := OK(42)
	assert.True(t, ok.IsOK())
	assert.Equal(t, 42, ok.Value)

	failure := ErrOf[int](errors.New("boom"))
	assert.False(t, failure.IsOK())
	assert.EqualError(t, failure.Err, "boom")
}

func TestPartitionedByError(t *testing.T) {
	items := map[string]Either[int]{
		"a": OK(1),
		"b": ErrOf[int](errors.New("bad")),
		"c": OK(3),
	}
	oks, fails := PartitionedByError(items)
	assert.Equal(t, map[string]int{"a": 1, "c": 3}, oks)
	assert.Len(t, fails, 1)
	assert.EqualError(t, fails["b"], "bad")
}

func TestMergeErrorsWinKeepsFirstError(t *testing.T) {
	acc := make(map[string]Either[struct{}])
	MergeErrorsWin(acc, "x", ErrOf[struct{}](errors.New("first failure")))
	MergeErrorsWin(acc, "x", OK(struct{}{}))
	assert.False(t, acc["x"].IsOK())
	assert.EqualError(t, acc["x"].Err, "first failure")
}

func TestMergeErrorsWinLaterErrorReplacesEarlier(t *testing.T) {
	acc := make(map[string]Either[struct{}])
	MergeErrorsWin(acc, "x", ErrOf[struct{}](errors.New("first failure")))
	MergeErrorsWin(acc, "x", ErrOf[struct{}](errors.New("second failure")))
	assert.EqualError(t, acc["x"].Err, "second failure")
}

func TestMergeErrorsWinSuccessThenSuccess(t *testing.T) {
	acc := make(map[string]Either[struct{}])
	MergeErrorsWin(acc, "x", OK(struct{}{}))
	MergeErrorsWin(acc, "x", OK(struct{}{}))
	assert.True(t, acc["x"].IsOK())
}
