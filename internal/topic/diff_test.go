// Copyright KubeArchive Authors
// SPDX-License-Identifier: Apache-2.0

package topic

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestDiffConfigSetAndDelete(t *testing.T) {
	spec := map[string]ConfigValue{
		"retention.ms": {Scalar: strPtr("86400000")},
		"cleanup.policy": {List: []string{"compact", "delete"}},
	}
	observed := map[string]ConfigEntry{
		"retention.ms":   {Value: "3600000", Source: ConfigSourceDynamicTopic},
		"segment.bytes":  {Value: "1073741824", Source: ConfigSourceDynamicTopic},
		"cleanup.policy": {Value: "delete", Source: ConfigSourceDefault},
	}

	result, err := DiffConfig(spec, observed, AlterableTopicConfigAll)
	require.NoError(t, err)
	require.Len(t, result.Ops, 3)
	assert.Empty(t, result.DroppedKeys)

	byKey := make(map[string]ConfigOp, len(result.Ops))
	for _, op := range result.Ops {
		byKey[op.Key] = op
	}

	assert.Equal(t, ConfigOp{Kind: ConfigOpSet, Key: "retention.ms", Value: "86400000"}, byKey["retention.ms"])
	assert.Equal(t, ConfigOp{Kind: ConfigOpSet, Key: "cleanup.policy", Value: "compact,delete"}, byKey["cleanup.policy"])
	assert.Equal(t, ConfigOpDelete, byKey["segment.bytes"].Kind)
}

func TestDiffConfigNoChangeWhenEqual(t *testing.T) {
	spec := map[string]ConfigValue{"retention.ms": {Scalar: strPtr("86400000")}}
	observed := map[string]ConfigEntry{"retention.ms": {Value: "86400000", Source: ConfigSourceDynamicTopic}}

	result, err := DiffConfig(spec, observed, AlterableTopicConfigAll)
	require.NoError(t, err)
	assert.Empty(t, result.Ops)
}

func TestDiffConfigIgnoresNonDynamicSourcesForDelete(t *testing.T) {
	spec := map[string]ConfigValue{}
	observed := map[string]ConfigEntry{
		"segment.bytes": {Value: "1073741824", Source: ConfigSourceDefault},
	}

	result, err := DiffConfig(spec, observed, AlterableTopicConfigAll)
	require.NoError(t, err)
	assert.Empty(t, result.Ops)
}

func TestDiffConfigPolicyNone(t *testing.T) {
	spec := map[string]ConfigValue{"retention.ms": {Scalar: strPtr("86400000")}}
	observed := map[string]ConfigEntry{}

	result, err := DiffConfig(spec, observed, AlterableTopicConfigNone)
	require.NoError(t, err)
	assert.Empty(t, result.Ops)
	assert.Equal(t, []string{"retention.ms"}, result.DroppedKeys)
}

func TestDiffConfigPolicyAllowList(t *testing.T) {
	spec := map[string]ConfigValue{
		"retention.ms":  {Scalar: strPtr("86400000")},
		"segment.bytes": {Scalar: strPtr("1073741824")},
	}
	observed := map[string]ConfigEntry{}

	result, err := DiffConfig(spec, observed, "retention.ms")
	require.NoError(t, err)
	require.Len(t, result.Ops, 1)
	assert.Equal(t, "retention.ms", result.Ops[0].Key)
	assert.Equal(t, []string{"segment.bytes"}, result.DroppedKeys)
}

func TestDiffConfigInvalidValue(t *testing.T) {
	spec := map[string]ConfigValue{"retention.ms": {}}
	_, err := DiffConfig(spec, nil, AlterableTopicConfigAll)
	assert.Error(t, err)
}

func TestDiffPartitionsIncrease(t *testing.T) {
	want := int32(6)
	pd, err := DiffPartitions(&want, 3)
	require.NoError(t, err)
	assert.Equal(t, int32(6), pd.IncreaseTo)
}

func TestDiffPartitionsDecreaseRejected(t *testing.T) {
	want := int32(2)
	_, err := DiffPartitions(&want, 5)
	require.Error(t, err)
	var rerr *ReconcileError
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, KindNotSupported, rerr.Kind)
}

func TestDiffPartitionsNoopWhenNilOrEqualOrNegative(t *testing.T) {
	pd, err := DiffPartitions(nil, 3)
	require.NoError(t, err)
	assert.Zero(t, pd.IncreaseTo)

	same := int32(3)
	pd, err = DiffPartitions(&same, 3)
	require.NoError(t, err)
	assert.Zero(t, pd.IncreaseTo)

	neg := int32(-1)
	pd, err = DiffPartitions(&neg, 3)
	require.NoError(t, err)
	assert.Zero(t, pd.IncreaseTo)
}
