// Copyright KubeArchive Authors
// SPDX-License-Identifier: Apache-2.0

package topic

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"k8s.io/apimachinery/pkg/types"
)

// fakeAdmin implements Admin with only ListPartitionReassignments wired;
// every other method panics if invoked, which would mean a test exercised
// a code path it didn't intend to.
type fakeAdmin struct {
	reassignments map[string][]ReassigningPartition
	reassignErr   error
}

func (a *fakeAdmin) DescribeClusterConfig(ctx context.Context, key string) (string, error) {
	panic("not wired")
}
func (a *fakeAdmin) DescribeTopics(ctx context.Context, names []string) map[string]*Future[TopicState] {
	panic("not wired")
}
func (a *fakeAdmin) DescribeConfigs(ctx context.Context, kind ConfigResourceKind, names []string) map[string]*Future[map[string]ConfigEntry] {
	panic("not wired")
}
func (a *fakeAdmin) CreateTopics(ctx context.Context, specs []NewTopicSpec) map[string]*Future[string] {
	panic("not wired")
}
func (a *fakeAdmin) CreatePartitions(ctx context.Context, increaseTo map[string]int32) map[string]*Future[struct{}] {
	panic("not wired")
}
func (a *fakeAdmin) IncrementalAlterConfigs(ctx context.Context, ops map[string][]ConfigOp) map[string]*Future[struct{}] {
	panic("not wired")
}
func (a *fakeAdmin) DeleteTopics(ctx context.Context, names []string) map[string]*Future[struct{}] {
	panic("not wired")
}
func (a *fakeAdmin) ListPartitionReassignments(ctx context.Context, topicPartitions map[string][]int32) map[string]*Future[[]ReassigningPartition] {
	out := make(map[string]*Future[[]ReassigningPartition], len(topicPartitions))
	for name := range topicPartitions {
		f := newFuture[[]ReassigningPartition]()
		if a.reassignErr != nil {
			f.resolve(nil, a.reassignErr)
		} else {
			f.resolve(a.reassignments[name], nil)
		}
		out[name] = f
	}
	return out
}

type fakeRebalancer struct {
	pending []RebalanceResult
	ongoing []RebalanceResult
	err     error
}

func (r *fakeRebalancer) RequestPendingChanges(ctx context.Context, reqs []RebalanceRequest) ([]RebalanceResult, error) {
	if r.err != nil {
		return nil, r.err
	}
	return r.pending, nil
}

func (r *fakeRebalancer) RequestOngoingChanges(ctx context.Context, reqs []RebalanceRequest) ([]RebalanceResult, error) {
	if r.err != nil {
		return nil, r.err
	}
	return r.ongoing, nil
}

func topicWithRF(name string, replicas int32, rf int, rc *ReplicasChangeStatus) ReconcilableTopic {
	var partitions []PartitionInfo
	repl := make([]int32, rf)
	partitions = append(partitions, PartitionInfo{Partition: 0, Replicas: repl})
	r := TopicResource{
		Namespace: "default", Name: name, UID: types.UID("uid-" + name),
		Spec:   &TopicSpec{Replicas: &replicas},
		Status: TopicStatus{ReplicasChange: rc},
	}
	return ReconcilableTopic{Resource: r, State: &TopicState{Partitions: partitions}}
}

func TestProcessReplicaChangesDisabledRejectsMismatch(t *testing.T) {
	item := topicWithRF("orders", 3, 2, nil)
	results, err := ProcessReplicaChanges(context.Background(), ReplicaChangeInputs{
		Options: ReplicaChangeOptions{Enabled: false},
	}, []ReconcilableTopic{item})
	require.NoError(t, err)
	outcome, ok := results[item.Ref()]
	require.True(t, ok)
	assert.False(t, outcome.IsOK())
	var rerr *ReconcileError
	require.ErrorAs(t, outcome.Err, &rerr)
	assert.Equal(t, KindNotSupported, rerr.Kind)
}

func TestProcessReplicaChangesDisabledIgnoresMatchingRF(t *testing.T) {
	item := topicWithRF("orders", 2, 2, nil)
	results, err := ProcessReplicaChanges(context.Background(), ReplicaChangeInputs{
		Options: ReplicaChangeOptions{Enabled: false},
	}, []ReconcilableTopic{item})
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestProcessReplicaChangesSubmitsBrandNewCandidate(t *testing.T) {
	item := topicWithRF("orders", 3, 2, nil)
	admin := &fakeAdmin{reassignments: map[string][]ReassigningPartition{"orders": nil}}
	rebalancer := &fakeRebalancer{
		pending: []RebalanceResult{{TopicName: "orders", Status: ReplicasChangeStatus{State: ReplicasChangePending, TargetReplicas: 3}}},
	}

	results, err := ProcessReplicaChanges(context.Background(), ReplicaChangeInputs{
		Admin: admin, Rebalancer: rebalancer,
		Options: ReplicaChangeOptions{Enabled: true},
	}, []ReconcilableTopic{item})
	require.NoError(t, err)

	outcome, ok := results[item.Ref()]
	require.True(t, ok)
	require.True(t, outcome.IsOK())
	require.NotNil(t, outcome.Value)
	assert.Equal(t, ReplicasChangePending, outcome.Value.State)
}

func TestProcessReplicaChangesFiltersPseudoMismatch(t *testing.T) {
	item := topicWithRF("orders", 3, 2, nil)
	admin := &fakeAdmin{reassignments: map[string][]ReassigningPartition{
		"orders": {{Partition: 0, Replicas: []int32{1, 2, 3}, Removing: nil}},
	}}
	rebalancer := &fakeRebalancer{}

	results, err := ProcessReplicaChanges(context.Background(), ReplicaChangeInputs{
		Admin: admin, Rebalancer: rebalancer,
		Options: ReplicaChangeOptions{Enabled: true},
	}, []ReconcilableTopic{item})
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestProcessReplicaChangesPollsOngoing(t *testing.T) {
	rc := &ReplicasChangeStatus{State: ReplicasChangeOngoing, SessionID: "sess-1", TargetReplicas: 3}
	item := topicWithRF("orders", 3, 2, rc)
	admin := &fakeAdmin{reassignments: map[string][]ReassigningPartition{"orders": nil}}
	rebalancer := &fakeRebalancer{
		ongoing: []RebalanceResult{{TopicName: "orders", Status: ReplicasChangeStatus{State: ReplicasChangeOngoing, SessionID: "sess-1", TargetReplicas: 3}}},
	}

	results, err := ProcessReplicaChanges(context.Background(), ReplicaChangeInputs{
		Admin: admin, Rebalancer: rebalancer,
		Options: ReplicaChangeOptions{Enabled: true},
	}, []ReconcilableTopic{item})
	require.NoError(t, err)
	outcome, ok := results[item.Ref()]
	require.True(t, ok)
	require.True(t, outcome.IsOK())
	assert.Equal(t, "sess-1", outcome.Value.SessionID)
}

func TestProcessReplicaChangesDetectsCompletion(t *testing.T) {
	rc := &ReplicasChangeStatus{State: ReplicasChangePending, TargetReplicas: 3}
	item := topicWithRF("orders", 3, 3, rc) // RF now matches desired: no longer a candidate
	admin := &fakeAdmin{}
	rebalancer := &fakeRebalancer{}

	results, err := ProcessReplicaChanges(context.Background(), ReplicaChangeInputs{
		Admin: admin, Rebalancer: rebalancer,
		Options: ReplicaChangeOptions{Enabled: true},
	}, []ReconcilableTopic{item})
	require.NoError(t, err)
	outcome, ok := results[item.Ref()]
	require.True(t, ok)
	require.True(t, outcome.IsOK())
	assert.Nil(t, outcome.Value)
}

func TestProcessReplicaChangesLookupFailureKeyedByRef(t *testing.T) {
	item := topicWithRF("orders", 3, 2, nil)
	admin := &fakeAdmin{reassignErr: assertErr}

	results, err := ProcessReplicaChanges(context.Background(), ReplicaChangeInputs{
		Admin: admin, Rebalancer: &fakeRebalancer{},
		Options: ReplicaChangeOptions{Enabled: true},
	}, []ReconcilableTopic{item})
	require.NoError(t, err)
	outcome, ok := results[item.Ref()]
	require.True(t, ok)
	assert.False(t, outcome.IsOK())
}

var assertErr = &ReconcileError{Kind: KindInternalError, Message: "describe failed"}
