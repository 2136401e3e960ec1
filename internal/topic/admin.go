// Copyright KubeArchive Authors
// SPDX-License-Identifier: Apache-2.0

package topic

import "context"

// ConfigOp is one entry of an incrementalAlterConfigs request.
type ConfigOpKind string

const (
	ConfigOpSet    ConfigOpKind = "SET"
	ConfigOpDelete ConfigOpKind = "DELETE"
)

type ConfigOp struct {
	Key   string
	Value string // empty for DELETE
	Kind  ConfigOpKind
}

// NewTopicSpec is the create request for one topic; Partitions and
// Replicas are -1 to mean "use the broker default".
type NewTopicSpec struct {
	Name       string
	Partitions int32
	Replicas   int16
	Configs    map[string]string
}

// ReassigningPartition is one partition with a reassignment in flight:
// Replicas is the current replica set, Removing lists the replicas
// being removed - the effective target RF is len(Replicas)-len(Removing).
type ReassigningPartition struct {
	Partition int32
	Replicas  []int32
	Removing  []int32
}

func (p ReassigningPartition) TargetReplicationFactor() int32 {
	return int32(len(p.Replicas) - len(p.Removing))
}

// ConfigResourceKind distinguishes the two describeConfigs targets the
// spec requires.
type ConfigResourceKind string

const (
	ConfigResourceBroker ConfigResourceKind = "BROKER"
	ConfigResourceTopic  ConfigResourceKind = "TOPIC"
)

// Admin is the thin contract over the Kafka admin protocol. Every
// method fans a single request out across the named topics and returns
// one future per topic; callers await them together so one slow or
// failing topic never blocks awaiting the others individually, but the
// whole group is awaited before the pipeline advances.
type Admin interface {
	// DescribeClusterConfig returns the configured value of a single cluster
	// (broker) config key, queried from the controller broker only.
	DescribeClusterConfig(ctx context.Context, key string) (string, error)

	DescribeTopics(ctx context.Context, names []string) map[string]*Future[TopicState]
	DescribeConfigs(ctx context.Context, kind ConfigResourceKind, names []string) map[string]*Future[map[string]ConfigEntry]

	CreateTopics(ctx context.Context, specs []NewTopicSpec) map[string]*Future[string] // value is the assigned topic ID
	CreatePartitions(ctx context.Context, increaseTo map[string]int32) map[string]*Future[struct{}]
	IncrementalAlterConfigs(ctx context.Context, ops map[string][]ConfigOp) map[string]*Future[struct{}]
	DeleteTopics(ctx context.Context, names []string) map[string]*Future[struct{}]

	// ListPartitionReassignments returns, per topic, only the
	// reassignments currently in flight for the requested partitions.
	ListPartitionReassignments(ctx context.Context, topicPartitions map[string][]int32) map[string]*Future[[]ReassigningPartition]
}
