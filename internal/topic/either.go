// Copyright KubeArchive Authors
// SPDX-License-Identifier: Apache-2.0

// Package topic implements the batching reconciliation core of the Kafka
// topic operator: classification of a batch of topic resources, diffing
// against observed Kafka state, and synthesis of per-item status.
package topic

// Either carries the outcome of one item through the reconciliation
// pipeline without losing the item itself. A stage that fails an item
// sets Err; a stage that succeeds leaves Err nil. Once Err is set by an
// earlier stage, later stages must not overwrite it with success -
// errors win.
type Either[T any] struct {
	Value T
	Err   error
}

// OK builds a successful Either.
func OK[T any](v T) Either[T] {
	return Either[T]{Value: v}
}

// ErrOf builds a failed Either.
func ErrOf[T any](err error) Either[T] {
	return Either[T]{Err: err}
}

func (e Either[T]) IsOK() bool { return e.Err == nil }

// PartitionedByError splits a map of key -> Either into the keys
// that succeeded and the keys that failed, preserving the error for each
// failure. Used after a fan-out admin call to separate per-topic futures
// into "known" and "errored" groups without losing which topic failed why.
func PartitionedByError[K comparable, T any](items map[K]Either[T]) (oks map[K]T, fails map[K]error) {
	oks = make(map[K]T, len(items))
	fails = make(map[K]error, len(items))
	for k, e := range items {
		if e.IsOK() {
			oks[k] = e.Value
		} else {
			fails[k] = e.Err
		}
	}
	return oks, fails
}

// MergeErrorsWin folds a new outcome into an accumulator using the
// "errors win" rule from the classification pipeline: once an item has
// failed, later stages may not resurrect it into success, but a later
// failure always replaces an earlier one (the most recent stage to
// touch the item explains the terminal outcome).
func MergeErrorsWin[K comparable](acc map[K]Either[struct{}], key K, outcome Either[struct{}]) {
	prev, seen := acc[key]
	if !seen {
		acc[key] = outcome
		return
	}
	if !prev.IsOK() && outcome.IsOK() {
		// an error already recorded for this item is never cleared by a
		// later success from a different stage
		return
	}
	acc[key] = outcome
}
