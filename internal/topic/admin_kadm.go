// Copyright KubeArchive Authors
// SPDX-License-Identifier: Apache-2.0

package topic

import (
	"context"
	"errors"
	"fmt"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
)

// KadmAdmin implements Admin on top of github.com/twmb/franz-go/pkg/kadm,
// the real Kafka admin client this module uses in place of the Java
// AdminClient the upstream system is built on. Each fan-out call below
// resolves per-topic futures from grouped kadm requests: describe,
// delete and reassignment listing send one request for the whole group,
// create topics sends one per (partitions, replicas) shape, create
// partitions one per target count, and alter configs one per topic.
type KadmAdmin struct {
	client *kadm.Client
}

func NewKadmAdmin(client *kadm.Client) *KadmAdmin {
	return &KadmAdmin{client: client}
}

// DescribeClusterConfig queries the controller broker's config only,
// rather than describing every broker and keeping the first response
// while leaking the rest.
func (a *KadmAdmin) DescribeClusterConfig(ctx context.Context, key string) (string, error) {
	brokers, err := a.client.ListBrokers(ctx)
	if err != nil {
		return "", classifyKafkaErr(err)
	}
	controller := brokers.Controller()
	if controller.NodeID < 0 {
		return "", internalError(errors.New("no controller broker reported"))
	}
	configs, err := a.client.DescribeBrokerConfigs(ctx, controller.NodeID)
	if err != nil {
		return "", classifyKafkaErr(err)
	}
	for _, rc := range configs {
		if rc.Err != nil {
			continue
		}
		for _, kv := range rc.Configs {
			if kv.Key == key && kv.Value != nil {
				return *kv.Value, nil
			}
		}
	}
	return "", nil
}

func (a *KadmAdmin) DescribeTopics(ctx context.Context, names []string) map[string]*Future[TopicState] {
	futures := make(map[string]*Future[TopicState], len(names))
	for _, n := range names {
		futures[n] = newFuture[TopicState]()
	}
	go func() {
		details, err := a.client.ListTopics(ctx, names...)
		if err != nil {
			for _, n := range names {
				futures[n].resolve(TopicState{}, classifyKafkaErr(err))
			}
			return
		}
		for _, n := range names {
			d, ok := details[n]
			if !ok {
				futures[n].resolve(TopicState{}, kafkaError(APIUnknownTopicOrPartition, fmt.Errorf("topic %q not found", n)))
				continue
			}
			if d.Err != nil {
				futures[n].resolve(TopicState{}, classifyKafkaErr(d.Err))
				continue
			}
			partitions := make([]PartitionInfo, 0, len(d.Partitions))
			for pid, p := range d.Partitions {
				partitions = append(partitions, PartitionInfo{Partition: pid, Replicas: p.Replicas})
			}
			futures[n].resolve(TopicState{TopicID: d.ID.String(), Partitions: partitions}, nil)
		}
	}()
	return futures
}

func (a *KadmAdmin) DescribeConfigs(ctx context.Context, kind ConfigResourceKind, names []string) map[string]*Future[map[string]ConfigEntry] {
	futures := make(map[string]*Future[map[string]ConfigEntry], len(names))
	for _, n := range names {
		futures[n] = newFuture[map[string]ConfigEntry]()
	}
	go func() {
		var configs kadm.ResourceConfigs
		var err error
		switch kind {
		case ConfigResourceTopic:
			configs, err = a.client.DescribeTopicConfigs(ctx, names...)
		case ConfigResourceBroker:
			configs, err = a.client.DescribeBrokerConfigs(ctx)
		}
		if err != nil {
			for _, n := range names {
				futures[n].resolve(nil, classifyKafkaErr(err))
			}
			return
		}
		byName := make(map[string]kadm.ResourceConfig, len(configs))
		for _, rc := range configs {
			byName[rc.Name] = rc
		}
		for _, n := range names {
			rc, ok := byName[n]
			if !ok {
				futures[n].resolve(nil, kafkaError(APIUnknownTopicOrPartition, fmt.Errorf("no config for %q", n)))
				continue
			}
			if rc.Err != nil {
				futures[n].resolve(nil, classifyKafkaErr(rc.Err))
				continue
			}
			entries := make(map[string]ConfigEntry, len(rc.Configs))
			for _, kv := range rc.Configs {
				if kv.Value == nil {
					continue
				}
				entries[kv.Key] = ConfigEntry{Value: *kv.Value, Source: configSourceOf(kv.Source)}
			}
			futures[n].resolve(entries, nil)
		}
	}()
	return futures
}

func (a *KadmAdmin) CreateTopics(ctx context.Context, specs []NewTopicSpec) map[string]*Future[string] {
	futures := make(map[string]*Future[string], len(specs))
	for _, s := range specs {
		futures[s.Name] = newFuture[string]()
	}
	go func() {
		// kadm.CreateTopics takes one partitions/replicas/config triple
		// per call, so per-topic requests that differ are grouped by
		// their (partitions, replicas) shape before fan-out.
		groups := make(map[[2]int64][]NewTopicSpec)
		for _, s := range specs {
			key := [2]int64{int64(s.Partitions), int64(s.Replicas)}
			groups[key] = append(groups[key], s)
		}
		for _, group := range groups {
			names := make([]string, len(group))
			configs := make(map[string]*string)
			for i, s := range group {
				names[i] = s.Name
				for k, v := range s.Configs {
					v := v
					configs[k] = &v
				}
			}
			resp, err := a.client.CreateTopics(ctx, group[0].Partitions, group[0].Replicas, configs, names...)
			if err != nil {
				for _, n := range names {
					futures[n].resolve("", classifyKafkaErr(err))
				}
				continue
			}
			for _, n := range names {
				r, ok := resp[n]
				if !ok {
					futures[n].resolve("", internalError(fmt.Errorf("no create response for %q", n)))
					continue
				}
				if r.Err != nil {
					if errors.Is(r.Err, kerr.TopicAlreadyExists) {
						futures[n].resolve("", nil)
						continue
					}
					futures[n].resolve("", classifyKafkaErr(r.Err))
					continue
				}
				futures[n].resolve(r.ID.String(), nil)
			}
		}
	}()
	return futures
}

func (a *KadmAdmin) CreatePartitions(ctx context.Context, increaseTo map[string]int32) map[string]*Future[struct{}] {
	futures := make(map[string]*Future[struct{}], len(increaseTo))
	for n := range increaseTo {
		futures[n] = newFuture[struct{}]()
	}
	go func() {
		byCount := make(map[int32][]string)
		for n, count := range increaseTo {
			byCount[count] = append(byCount[count], n)
		}
		for count, names := range byCount {
			resp, err := a.client.CreatePartitions(ctx, int(count), names...)
			if err != nil {
				for _, n := range names {
					futures[n].resolve(struct{}{}, classifyKafkaErr(err))
				}
				continue
			}
			for _, n := range names {
				r, ok := resp[n]
				if !ok {
					futures[n].resolve(struct{}{}, internalError(fmt.Errorf("no create-partitions response for %q", n)))
					continue
				}
				futures[n].resolve(struct{}{}, classifyKafkaErr(r.Err))
			}
		}
	}()
	return futures
}

func (a *KadmAdmin) IncrementalAlterConfigs(ctx context.Context, ops map[string][]ConfigOp) map[string]*Future[struct{}] {
	futures := make(map[string]*Future[struct{}], len(ops))
	for n := range ops {
		futures[n] = newFuture[struct{}]()
	}
	go func() {
		for name, topicOps := range ops {
			alters := make([]kadm.AlterConfig, 0, len(topicOps))
			for _, op := range topicOps {
				switch op.Kind {
				case ConfigOpSet:
					v := op.Value
					alters = append(alters, kadm.AlterConfig{Op: kadm.SetConfig, Name: op.Key, Value: &v})
				case ConfigOpDelete:
					alters = append(alters, kadm.AlterConfig{Op: kadm.DeleteConfig, Name: op.Key})
				}
			}
			resp, err := a.client.AlterTopicConfigs(ctx, alters, name)
			if err != nil {
				futures[name].resolve(struct{}{}, classifyKafkaErr(err))
				continue
			}
			r, ok := resp[name]
			if !ok {
				futures[name].resolve(struct{}{}, internalError(fmt.Errorf("no alter-configs response for %q", name)))
				continue
			}
			futures[name].resolve(struct{}{}, classifyKafkaErr(r.Err))
		}
	}()
	return futures
}

func (a *KadmAdmin) DeleteTopics(ctx context.Context, names []string) map[string]*Future[struct{}] {
	futures := make(map[string]*Future[struct{}], len(names))
	for _, n := range names {
		futures[n] = newFuture[struct{}]()
	}
	go func() {
		resp, err := a.client.DeleteTopics(ctx, names...)
		if err != nil {
			for _, n := range names {
				futures[n].resolve(struct{}{}, classifyKafkaErr(err))
			}
			return
		}
		for _, n := range names {
			r, ok := resp[n]
			if !ok {
				futures[n].resolve(struct{}{}, internalError(fmt.Errorf("no delete response for %q", n)))
				continue
			}
			futures[n].resolve(struct{}{}, classifyKafkaErr(r.Err))
		}
	}()
	return futures
}

func (a *KadmAdmin) ListPartitionReassignments(ctx context.Context, topicPartitions map[string][]int32) map[string]*Future[[]ReassigningPartition] {
	futures := make(map[string]*Future[[]ReassigningPartition], len(topicPartitions))
	names := make([]string, 0, len(topicPartitions))
	for n := range topicPartitions {
		futures[n] = newFuture[[]ReassigningPartition]()
		names = append(names, n)
	}
	go func() {
		resp, err := a.client.ListPartitionReassignments(ctx, names...)
		if err != nil {
			for _, n := range names {
				futures[n].resolve(nil, classifyKafkaErr(err))
			}
			return
		}
		for _, n := range names {
			wanted := toSet(topicPartitions[n])
			r, ok := resp[n]
			if !ok {
				futures[n].resolve(nil, nil)
				continue
			}
			var out []ReassigningPartition
			for pid, p := range r.Partitions {
				if !wanted[pid] {
					continue
				}
				out = append(out, ReassigningPartition{Partition: pid, Replicas: p.Replicas, Removing: p.RemovingReplicas})
			}
			futures[n].resolve(out, nil)
		}
	}()
	return futures
}

func toSet(ids []int32) map[int32]bool {
	m := make(map[int32]bool, len(ids))
	for _, id := range ids {
		m[id] = true
	}
	return m
}

func configSourceOf(source string) ConfigSource {
	switch source {
	case "DYNAMIC_TOPIC_CONFIG":
		return ConfigSourceDynamicTopic
	case "DYNAMIC_BROKER_CONFIG":
		return ConfigSourceDynamicBroker
	case "STATIC_BROKER_CONFIG":
		return ConfigSourceStaticBroker
	default:
		return ConfigSourceDefault
	}
}

// classifyKafkaErr maps a kadm/kerr error into a KafkaError, preserving
// the API error kind so callers can special-case
// UnknownTopicOrPartition/TopicExists without string matching.
func classifyKafkaErr(err error) error {
	if err == nil {
		return nil
	}
	var ke *kerr.Error
	if errors.As(err, &ke) {
		return kafkaError(ke.Message, err)
	}
	return internalError(err)
}
