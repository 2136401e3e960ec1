// Copyright KubeArchive Authors
// SPDX-License-Identifier: Apache-2.0

package topic

import (
	"context"
	"log/slog"
)

// DefaultMinInsyncReplicas is used when neither the topic nor the
// cluster config carries an explicit min.insync.replicas value.
const DefaultMinInsyncReplicas = 1

// ReplicaChangeOptions gates and configures the subsystem.
type ReplicaChangeOptions struct {
	Enabled bool // cruiseControlEnabled
}

// replicaChangeCandidate is one item whose spec.replicas disagrees with
// the observed replication factor, not yet filtered for pseudo-mismatch.
type replicaChangeCandidate struct {
	item     ReconcilableTopic
	desired  int32
	observed int32
}

// ReplicaChangeInputs is everything ProcessReplicaChanges needs for one
// batch; admin and rebalancer are injected so the function stays pure of
// any concrete client.
type ReplicaChangeInputs struct {
	Admin        Admin
	Rebalancer   Rebalancer
	Options      ReplicaChangeOptions
	MinISRLookup func(ctx context.Context, topicName string) (int32, error)
	Logger       *slog.Logger
}

// ProcessReplicaChanges runs replication-factor reconciliation over the
// whole batch (not just the "known" subset) and returns, per item ref,
// the new replicasChange status to store (nil means "clear it").
func ProcessReplicaChanges(ctx context.Context, in ReplicaChangeInputs, items []ReconcilableTopic) (map[KubeRef]Either[*ReplicasChangeStatus], error) {
	results := make(map[KubeRef]Either[*ReplicasChangeStatus])

	if !in.Options.Enabled {
		for _, it := range items {
			desired, rfOK := it.desiredReplicas()
			if !rfOK || it.State == nil {
				continue
			}
			observed, ok := it.State.ReplicationFactor()
			if !ok || observed == desired {
				continue
			}
			results[it.Ref()] = ErrOf[*ReplicasChangeStatus](notSupported("replication factor change requires the rebalancer"))
		}
		return results, nil
	}

	candidates := detectCandidates(items)
	candidates, lookupErrs, err := filterPseudoMismatches(ctx, in.Admin, candidates)
	if err != nil {
		return nil, err
	}
	for ref, e := range lookupErrs {
		results[ref] = ErrOf[*ReplicasChangeStatus](e)
	}

	var pending, ongoing, brandNew []replicaChangeCandidate
	for _, c := range candidates {
		switch {
		case c.item.Resource.Status.ReplicasChange != nil && c.item.Resource.Status.ReplicasChange.State == ReplicasChangeOngoing:
			ongoing = append(ongoing, c)
		case c.item.Resource.Status.ReplicasChange != nil && c.item.Resource.Status.ReplicasChange.State == ReplicasChangePending:
			pending = append(pending, c)
		default:
			brandNew = append(brandNew, c)
		}
	}

	warnTooSmallMinISR(ctx, in, append(append([]replicaChangeCandidate{}, pending...), brandNew...))

	submitReqs := make([]RebalanceRequest, 0, len(pending)+len(brandNew))
	for _, c := range append(pending, brandNew...) {
		submitReqs = append(submitReqs, RebalanceRequest{TopicName: c.item.KafkaTopicName(), TargetReplicas: c.desired})
	}
	if len(submitReqs) > 0 {
		submitted, err := in.Rebalancer.RequestPendingChanges(ctx, submitReqs)
		if err == ErrInterrupted {
			return nil, err
		}
		if err != nil {
			for _, c := range append(pending, brandNew...) {
				results[c.item.Ref()] = ErrOf[*ReplicasChangeStatus](err)
			}
		} else {
			applyRebalanceResults(results, append(pending, brandNew...), submitted)
		}
	}

	pollReqs := make([]RebalanceRequest, 0, len(ongoing))
	for _, c := range ongoing {
		pollReqs = append(pollReqs, RebalanceRequest{
			TopicName: c.item.KafkaTopicName(), SessionID: c.item.Resource.Status.ReplicasChange.SessionID, TargetReplicas: c.desired,
		})
	}
	if len(pollReqs) > 0 {
		polled, err := in.Rebalancer.RequestOngoingChanges(ctx, pollReqs)
		if err == ErrInterrupted {
			return nil, err
		}
		if err != nil {
			for _, c := range ongoing {
				results[c.item.Ref()] = ErrOf[*ReplicasChangeStatus](err)
			}
		} else {
			applyRebalanceResults(results, ongoing, polled)
		}
	}

	detectCompletion(results, items, candidates)

	return results, nil
}

func (rt ReconcilableTopic) desiredReplicas() (int32, bool) {
	if rt.Resource.Spec == nil || rt.Resource.Spec.Replicas == nil {
		return 0, false
	}
	return *rt.Resource.Spec.Replicas, true
}

func detectCandidates(items []ReconcilableTopic) []replicaChangeCandidate {
	var out []replicaChangeCandidate
	for _, it := range items {
		if it.State == nil {
			continue
		}
		desired, ok := it.desiredReplicas()
		if !ok {
			continue
		}
		observed, ok := it.State.ReplicationFactor()
		if !ok || observed == desired {
			continue
		}
		out = append(out, replicaChangeCandidate{item: it, desired: desired, observed: observed})
	}
	return out
}

// filterPseudoMismatches drops candidates whose apparent RF mismatch is
// only an in-flight reassignment already converging to the desired RF.
// Per-topic lookup failures are returned keyed by ref rather than
// aborting the whole batch.
func filterPseudoMismatches(ctx context.Context, admin Admin, candidates []replicaChangeCandidate) ([]replicaChangeCandidate, map[KubeRef]error, error) {
	if len(candidates) == 0 {
		return nil, nil, nil
	}

	topicPartitions := make(map[string][]int32, len(candidates))
	byName := make(map[string]replicaChangeCandidate, len(candidates))
	for _, c := range candidates {
		name := c.item.KafkaTopicName()
		byName[name] = c
		parts := make([]int32, 0, len(c.item.State.Partitions))
		for _, p := range c.item.State.Partitions {
			parts = append(parts, p.Partition)
		}
		topicPartitions[name] = parts
	}

	futures := admin.ListPartitionReassignments(ctx, topicPartitions)
	resolved, err := awaitAll(ctx, futures)
	if err != nil {
		return nil, nil, err
	}

	oks, fails := PartitionedByError(resolved)

	var out []replicaChangeCandidate
	lookupErrs := make(map[KubeRef]error, len(fails))
	for name, c := range byName {
		if e, failed := fails[name]; failed {
			lookupErrs[c.item.Ref()] = e
			continue
		}
		if isPseudoMismatch(oks[name], c.desired) {
			continue
		}
		out = append(out, c)
	}
	return out, lookupErrs, nil
}

func isPseudoMismatch(inFlight []ReassigningPartition, desired int32) bool {
	if len(inFlight) == 0 {
		return false
	}
	for _, p := range inFlight {
		if p.TargetReplicationFactor() != desired {
			return false
		}
	}
	return true
}

func warnTooSmallMinISR(ctx context.Context, in ReplicaChangeInputs, candidates []replicaChangeCandidate) {
	if in.MinISRLookup == nil || in.Logger == nil {
		return
	}
	for _, c := range candidates {
		minISR, err := in.MinISRLookup(ctx, c.item.KafkaTopicName())
		if err != nil {
			minISR = DefaultMinInsyncReplicas
		}
		if c.desired < minISR {
			in.Logger.Warn("desired replication factor is below min.insync.replicas",
				"topic", c.item.KafkaTopicName(), "desired", c.desired, "minInsyncReplicas", minISR)
		}
	}
}

func applyRebalanceResults(results map[KubeRef]Either[*ReplicasChangeStatus], candidates []replicaChangeCandidate, resultsByTopic []RebalanceResult) {
	byTopic := make(map[string]RebalanceResult, len(resultsByTopic))
	for _, r := range resultsByTopic {
		byTopic[r.TopicName] = r
	}
	for _, c := range candidates {
		r, ok := byTopic[c.item.KafkaTopicName()]
		if !ok {
			continue
		}
		status := r.Status
		results[c.item.Ref()] = OK(&status)
	}
}

// detectCompletion marks a PENDING item whose RF no longer mismatches as
// completed or reverted by clearing replicasChange. Items already
// resolved by applyRebalanceResults this batch are left untouched.
func detectCompletion(results map[KubeRef]Either[*ReplicasChangeStatus], items []ReconcilableTopic, candidates []replicaChangeCandidate) {
	stillCandidate := make(map[KubeRef]bool, len(candidates))
	for _, c := range candidates {
		stillCandidate[c.item.Ref()] = true
	}
	for _, it := range items {
		rc := it.Resource.Status.ReplicasChange
		if rc == nil || rc.State != ReplicasChangePending {
			continue
		}
		if _, already := results[it.Ref()]; already {
			continue
		}
		if stillCandidate[it.Ref()] {
			continue
		}
		results[it.Ref()] = OK[*ReplicasChangeStatus](nil)
	}
}
