// Copyright KubeArchive Authors
// SPDX-License-Identifier: Apache-2.0

package topic

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

func TestBuildStatusReadyTrue(t *testing.T) {
	out := BuildStatus(2, StatusOutcome{Ready: true}, "orders", strPtr("topic-id-1"), TopicStatus{})
	require.Len(t, out.Conditions, 1)
	assert.Equal(t, ConditionReady, out.Conditions[0].Type)
	assert.Equal(t, metav1.ConditionTrue, out.Conditions[0].Status)
	require.NotNil(t, out.TopicName)
	assert.Equal(t, "orders", *out.TopicName)
	assert.Equal(t, "topic-id-1", *out.TopicID)
}

func TestBuildStatusUnmanagedClearsTopicName(t *testing.T) {
	prior := TopicStatus{TopicName: strPtr("orders")}
	out := BuildStatus(1, StatusOutcome{Unmanaged: true}, "orders", nil, prior)
	require.Len(t, out.Conditions, 1)
	assert.Equal(t, ConditionUnmanaged, out.Conditions[0].Type)
	assert.Nil(t, out.TopicName)
}

func TestBuildStatusPaused(t *testing.T) {
	out := BuildStatus(1, StatusOutcome{Paused: true}, "orders", nil, TopicStatus{})
	require.Len(t, out.Conditions, 1)
	assert.Equal(t, ConditionReconciliationPaused, out.Conditions[0].Type)
}

func TestBuildStatusFailureUsesReason(t *testing.T) {
	out := BuildStatus(1, StatusOutcome{FailReason: "InvalidResource", FailMessage: "bad spec"}, "orders", nil, TopicStatus{})
	require.Len(t, out.Conditions, 1)
	assert.Equal(t, ConditionReady, out.Conditions[0].Type)
	assert.Equal(t, metav1.ConditionFalse, out.Conditions[0].Status)
	assert.Equal(t, "InvalidResource", out.Conditions[0].Reason)
	assert.Equal(t, "bad spec", out.Conditions[0].Message)
}

func TestBuildStatusDefaultFailureReason(t *testing.T) {
	out := BuildStatus(1, StatusOutcome{}, "orders", nil, TopicStatus{})
	assert.Equal(t, "ReconciliationFailed", out.Conditions[0].Reason)
}

func TestBuildStatusPreservesTopicNameWhenAlreadyStored(t *testing.T) {
	prior := TopicStatus{TopicName: strPtr("already-named")}
	out := BuildStatus(3, StatusOutcome{Ready: true}, "derived-name", nil, prior)
	require.NotNil(t, out.TopicName)
	assert.Equal(t, "already-named", *out.TopicName)
}

func TestBuildStatusWarningConditionSortedAndJoined(t *testing.T) {
	out := BuildStatus(1, StatusOutcome{Ready: true, WarningKeys: []string{"segment.bytes", "retention.ms"}}, "orders", nil, TopicStatus{})
	require.Len(t, out.Conditions, 2)
	var warn metav1.Condition
	for _, c := range out.Conditions {
		if c.Type == ConditionWarning {
			warn = c
		}
	}
	assert.Equal(t, ReasonNotConfigurable, warn.Reason)
	assert.Contains(t, warn.Message, "retention.ms, segment.bytes")
}

func TestStatusChangedDetectsEachField(t *testing.T) {
	base := TopicStatus{
		TopicName:          strPtr("orders"),
		ObservedGeneration: func() *int64 { v := int64(1); return &v }(),
		Conditions: []metav1.Condition{
			{Type: ConditionReady, Status: metav1.ConditionTrue, Reason: "Reconciled", Message: "ok"},
		},
	}

	assert.False(t, StatusChanged(base, base))

	changedName := base
	changedName.TopicName = strPtr("other")
	assert.True(t, StatusChanged(base, changedName))

	changedGen := base
	v := int64(2)
	changedGen.ObservedGeneration = &v
	assert.True(t, StatusChanged(base, changedGen))

	changedCond := base
	changedCond.Conditions = []metav1.Condition{
		{Type: ConditionReady, Status: metav1.ConditionFalse, Reason: "Fail", Message: "no"},
	}
	assert.True(t, StatusChanged(base, changedCond))

	changedRC := base
	changedRC.ReplicasChange = &ReplicasChangeStatus{State: ReplicasChangePending}
	assert.True(t, StatusChanged(base, changedRC))
}
