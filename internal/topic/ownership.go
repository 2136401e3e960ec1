// Copyright KubeArchive Authors
// SPDX-License-Identifier: Apache-2.0

package topic

import "sync"

// OwnershipTable is the process-wide name -> [KubeRef] map used to
// arbitrate which resource manages a given Kafka topic name. It is
// initialized empty and mutated only by the sequential batch loop, so
// in the single-writer configuration it needs no locking for
// correctness across a batch; the mutex here only guards against a
// caller that chooses to run batches concurrently, and against Prime()
// running concurrently with the manager's own startup informer sync.
type OwnershipTable struct {
	mu      sync.Mutex
	byTopic map[string][]KubeRef
}

func NewOwnershipTable() *OwnershipTable {
	return &OwnershipTable{byTopic: make(map[string][]KubeRef)}
}

// Prime rebuilds the table from a full listing of resources, closing the
// transient window where two resources might each believe themselves
// the sole owner of a name before either has been reconciled since
// process start.
func (t *OwnershipTable) Prime(resources []TopicResource) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.byTopic = make(map[string][]KubeRef)
	for _, r := range resources {
		if r.Spec == nil || !r.IsManaged() {
			continue
		}
		name := r.TopicName()
		t.byTopic[name] = append(t.byTopic[name], r.Ref())
	}
}

// Remember records ref as a claimant of name, if not already present.
func (t *OwnershipTable) Remember(name string, ref KubeRef) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, existing := range t.byTopic[name] {
		if existing == ref {
			return
		}
	}
	t.byTopic[name] = append(t.byTopic[name], ref)
}

// Forget removes ref as a claimant of name - called when a resource is
// deleted, becomes unmanaged, or no longer matches the selector.
func (t *OwnershipTable) Forget(name string, ref KubeRef) {
	t.mu.Lock()
	defer t.mu.Unlock()
	refs := t.byTopic[name]
	for i, existing := range refs {
		if existing == ref {
			t.byTopic[name] = append(refs[:i], refs[i+1:]...)
			break
		}
	}
	if len(t.byTopic[name]) == 0 {
		delete(t.byTopic, name)
	}
}

func (t *OwnershipTable) claimants(name string) []KubeRef {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]KubeRef, len(t.byTopic[name]))
	copy(out, t.byTopic[name])
	return out
}

// ValidateSingleManagingResource rejects every claimant but the winner
// when more than one resource manages the same Kafka topic name. current
// is the KubeRef being reconciled this batch; readyAlready reports
// whether current's own stored status already carries Ready=True. Both
// success branches require current to be the oldest claimant: a prior
// winner only keeps its crown while it stays the oldest, never against a
// strictly older claimant that shows up later.
func (t *OwnershipTable) ValidateSingleManagingResource(name string, current KubeRef, readyAlready bool) error {
	claimants := t.claimants(name)
	if len(claimants) <= 1 {
		return nil
	}

	oldest, nextOldest := oldestTwo(claimants)
	if current != oldest {
		return resourceConflict("Managed by %s", oldest)
	}

	if readyAlready {
		return nil
	}
	if oldest.Before(nextOldest) {
		return nil
	}

	return resourceConflict("Managed by %s", oldest)
}

// oldestTwo returns the two oldest claimants by the Before tie-break,
// oldest first.
func oldestTwo(claimants []KubeRef) (oldest, nextOldest KubeRef) {
	sorted := make([]KubeRef, len(claimants))
	copy(sorted, claimants)
	for i := 1; i < len(sorted); i++ {
		j := i
		for j > 0 && sorted[j].Before(sorted[j-1]) {
			sorted[j], sorted[j-1] = sorted[j-1], sorted[j]
			j--
		}
	}
	return sorted[0], sorted[1]
}
