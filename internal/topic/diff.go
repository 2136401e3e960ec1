// Copyright KubeArchive Authors
// SPDX-License-Identifier: Apache-2.0

package topic

import "sort"

// AlterableTopicConfigAll keeps every computed SET/DELETE op; AlterableTopicConfigNone
// drops all of them; anything else is parsed as a comma-separated allow-list
// of config keys.
const (
	AlterableTopicConfigAll  = "ALL"
	AlterableTopicConfigNone = "NONE"
)

// ConfigDiffResult is the outcome of diffing spec.config against the
// observed dynamic config entries for one topic, after the
// alterableTopicConfig policy has been applied.
type ConfigDiffResult struct {
	Ops         []ConfigOp
	DroppedKeys []string // ops removed by policy, reported as the Warning condition
}

// DiffConfig computes the SET/DELETE ops needed to converge observed
// config onto spec.config, then filters them through the
// alterableTopicConfig policy. allowList is parsed from policy when
// policy is neither ALL nor NONE.
func DiffConfig(spec map[string]ConfigValue, observed map[string]ConfigEntry, policy string) (ConfigDiffResult, error) {
	var ops []ConfigOp

	for k, v := range spec {
		desired, err := v.Stringify()
		if err != nil {
			return ConfigDiffResult{}, err
		}
		if entry, ok := observed[k]; !ok || entry.Value != desired {
			ops = append(ops, ConfigOp{Kind: ConfigOpSet, Key: k, Value: desired})
		}
	}
	for k, entry := range observed {
		if entry.Source != ConfigSourceDynamicTopic {
			continue
		}
		if _, ok := spec[k]; !ok {
			ops = append(ops, ConfigOp{Kind: ConfigOpDelete, Key: k})
		}
	}

	sort.Slice(ops, func(i, j int) bool { return ops[i].Key < ops[j].Key })

	return applyAlterableTopicConfigPolicy(ops, policy), nil
}

func applyAlterableTopicConfigPolicy(ops []ConfigOp, policy string) ConfigDiffResult {
	switch policy {
	case "", AlterableTopicConfigAll:
		return ConfigDiffResult{Ops: ops}
	case AlterableTopicConfigNone:
		dropped := make([]string, 0, len(ops))
		for _, op := range ops {
			dropped = append(dropped, op.Key)
		}
		sort.Strings(dropped)
		return ConfigDiffResult{DroppedKeys: dropped}
	default:
		allow := make(map[string]bool)
		for _, k := range splitCommaList(policy) {
			allow[k] = true
		}
		kept := make([]ConfigOp, 0, len(ops))
		var dropped []string
		for _, op := range ops {
			if allow[op.Key] {
				kept = append(kept, op)
			} else {
				dropped = append(dropped, op.Key)
			}
		}
		sort.Strings(dropped)
		return ConfigDiffResult{Ops: kept, DroppedKeys: dropped}
	}
}

func splitCommaList(s string) []string {
	var out []string
	start := 0
	for i := 0; i <= len(s); i++ {
		if i == len(s) || s[i] == ',' {
			if i > start {
				out = append(out, s[start:i])
			}
			start = i + 1
		}
	}
	return out
}

// PartitionDiff is the outcome of diffing spec.partitions against the
// observed partition count.
type PartitionDiff struct {
	IncreaseTo int32 // 0 when no partition change is needed
}

// DiffPartitions implements the increase-only partition policy: growing
// is the only legal change, decreasing is NotSupported, and a nil/
// broker-default spec.partitions is a no-op.
func DiffPartitions(spec *int32, currentCount int32) (PartitionDiff, error) {
	if spec == nil || *spec < 0 {
		return PartitionDiff{}, nil
	}
	switch {
	case *spec > currentCount:
		return PartitionDiff{IncreaseTo: *spec}, nil
	case *spec < currentCount:
		return PartitionDiff{}, notSupported("Decreasing partitions not supported")
	default:
		return PartitionDiff{}, nil
	}
}
