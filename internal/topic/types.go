// Copyright KubeArchive Authors
// SPDX-License-Identifier: Apache-2.0

package topic

import (
	"time"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/types"
)

// Annotations and finalizer recognized on a KafkaTopic resource.
const (
	AnnotationManaged = "strimzi.io/managed"
	AnnotationPaused  = "strimzi.io/paused-reconciliation"
	Finalizer         = "strimzi.io/topic-operator"
)

// KubeRef is a stable, comparable identity for the resource owning a
// reconciliation. Two claimants for the same Kafka topic name are
// ordered by CreationTime first and UID second, per the tie-break the
// design notes call out: identical creation timestamps are possible
// when resources are created by a bulk apply, and UID is the only field
// guaranteed unique at that point.
type KubeRef struct {
	Namespace    string
	Name         string
	UID          types.UID
	CreationTime time.Time
}

func (r KubeRef) String() string {
	return r.Namespace + "/" + r.Name
}

// Before reports whether r is strictly older than other by the
// ownership tie-break: creation time first, UID as a deterministic
// secondary key.
func (r KubeRef) Before(other KubeRef) bool {
	if !r.CreationTime.Equal(other.CreationTime) {
		return r.CreationTime.Before(other.CreationTime)
	}
	return r.UID < other.UID
}

// ReplicasChangeState is the state tag backing status.replicasChange:
// none, pending or ongoing. A pending change that was never submitted
// and one that previously failed share the Pending state; the failed
// one is told apart only by a non-empty Message.
type ReplicasChangeState string

const (
	ReplicasChangeNone    ReplicasChangeState = ""
	ReplicasChangePending ReplicasChangeState = "Pending"
	ReplicasChangeOngoing ReplicasChangeState = "Ongoing"
)

// ReplicasChangeStatus is the full observed state of an in-flight
// replication-factor change, embedded in TopicResource.Status.
type ReplicasChangeStatus struct {
	State           ReplicasChangeState
	SessionID       string
	Message         string
	TargetReplicas  int32
	SubmittedNewest bool
}

// TopicResource mirrors the declarative custom resource the controller
// reconciles; it only ever needs these fields from it.
type TopicResource struct {
	Namespace         string
	Name              string
	UID               types.UID
	CreationTimestamp time.Time
	Generation        int64
	ResourceVersion   string

	Labels      map[string]string
	Annotations map[string]string

	DeletionTimestamp *time.Time
	Finalizers        []string

	Spec *TopicSpec

	Status TopicStatus
}

// TopicSpec is the desired state a user writes. Nil pointers distinguish
// "not specified, use broker default" from an explicit zero value.
type TopicSpec struct {
	TopicName  *string
	Partitions *int32
	Replicas   *int32
	Config     map[string]ConfigValue
}

// ConfigValue is a scalar or a list of scalars, matching
// map<string, scalar|list<scalar>> from the data model. Scalars arrive
// already stringified (booleans/numbers in their natural string form);
// Stringify() is the rule used both for create and for diffing: the
// scalar as is, lists joined by ",".
type ConfigValue struct {
	Scalar *string
	List   []string
}

func (c ConfigValue) Stringify() (string, error) {
	switch {
	case c.List != nil:
		out := ""
		for i, v := range c.List {
			if i > 0 {
				out += ","
			}
			out += v
		}
		return out, nil
	case c.Scalar != nil:
		return *c.Scalar, nil
	default:
		return "", invalidResource("config value has neither scalar nor list form")
	}
}

// TopicStatus is the subset of status this controller reads and writes.
type TopicStatus struct {
	ObservedGeneration *int64
	TopicName          *string
	TopicID            *string
	Conditions         []metav1.Condition
	ReplicasChange     *ReplicasChangeStatus
}

func (s TopicStatus) ReadyTrue() bool {
	for _, c := range s.Conditions {
		if c.Type == ConditionReady && c.Status == metav1.ConditionTrue {
			return true
		}
	}
	return false
}

// Condition types written to status.conditions. Exactly one of the
// first three is ever present at a time; Warning may additionally be
// present alongside any of them.
const (
	ConditionReady                = "Ready"
	ConditionUnmanaged            = "Unmanaged"
	ConditionReconciliationPaused = "ReconciliationPaused"
	ConditionWarning              = "Warning"
	ReasonNotConfigurable         = "NotConfigurable"
)

// Ref returns the KubeRef identity for this resource.
func (t *TopicResource) Ref() KubeRef {
	return KubeRef{Namespace: t.Namespace, Name: t.Name, UID: t.UID, CreationTime: t.CreationTimestamp}
}

// IsManaged reports whether the resource carries the managed annotation
// (default true when absent).
func (t *TopicResource) IsManaged() bool {
	v, ok := t.Annotations[AnnotationManaged]
	if !ok {
		return true
	}
	return v != "false"
}

// IsPaused reports whether reconciliation is paused for this resource.
func (t *TopicResource) IsPaused() bool {
	return t.Annotations[AnnotationPaused] == "true"
}

// TopicName resolves the Kafka topic name this resource targets:
// spec.topicName if set, otherwise the resource name.
func (t *TopicResource) TopicName() string {
	if t.Spec != nil && t.Spec.TopicName != nil && *t.Spec.TopicName != "" {
		return *t.Spec.TopicName
	}
	return t.Name
}

// HasFinalizer reports whether the sentinel finalizer is present.
func (t *TopicResource) HasFinalizer() bool {
	for _, f := range t.Finalizers {
		if f == Finalizer {
			return true
		}
	}
	return false
}

// PartitionInfo is the observed per-partition state of a topic: which
// brokers hold replicas. In-flight reassignments are not recorded here;
// they come from ListPartitionReassignments as ReassigningPartition.
type PartitionInfo struct {
	Partition int32
	Replicas  []int32
}

// ConfigSource marks where a dynamic config entry's current value came
// from, distinguishing an explicit per-topic override from an inherited
// cluster/broker default.
type ConfigSource string

const (
	ConfigSourceDynamicTopic  ConfigSource = "DYNAMIC_TOPIC_CONFIG"
	ConfigSourceDefault       ConfigSource = "DEFAULT_CONFIG"
	ConfigSourceStaticBroker  ConfigSource = "STATIC_BROKER_CONFIG"
	ConfigSourceDynamicBroker ConfigSource = "DYNAMIC_BROKER_CONFIG"
)

// ConfigEntry is one observed Kafka topic config value.
type ConfigEntry struct {
	Value  string
	Source ConfigSource
}

// TopicState is the observed counterpart of TopicSpec: what Kafka
// actually reports for a topic right now.
type TopicState struct {
	TopicID    string
	Partitions []PartitionInfo
	Configs    map[string]ConfigEntry
}

// ReplicationFactor returns the unique replication factor across all
// partitions, and false if partitions disagree (a state the controller
// never itself produces but must tolerate when observing a topic it
// doesn't fully own, e.g. mid external rebalance).
func (s TopicState) ReplicationFactor() (int32, bool) {
	if len(s.Partitions) == 0 {
		return 0, false
	}
	rf := int32(len(s.Partitions[0].Replicas))
	for _, p := range s.Partitions[1:] {
		if int32(len(p.Replicas)) != rf {
			return 0, false
		}
	}
	return rf, true
}

// ReconcilableTopic bundles everything one batch item needs for the
// duration of a single reconciliation: the resource as observed at
// batch-entry time, plus (once describe has run) the observed Kafka
// state. It exists only for the life of one OnUpdate/OnDelete call.
type ReconcilableTopic struct {
	Resource TopicResource
	State    *TopicState // nil until describeTopics/describeConfigs succeed
}

func (rt ReconcilableTopic) KafkaTopicName() string { return rt.Resource.TopicName() }

func (rt ReconcilableTopic) Ref() KubeRef { return rt.Resource.Ref() }
