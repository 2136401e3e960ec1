// Copyright KubeArchive Authors
// SPDX-License-Identifier: Apache-2.0

package topic

import (
	"sort"
	"strings"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

// StatusOutcome is the terminal classification a reconciliation settles
// on for one item, which BuildStatus turns into a condition.
type StatusOutcome struct {
	Ready       bool
	Unmanaged   bool
	Paused      bool
	FailReason  string
	FailMessage string
	WarningKeys []string // non-alterable config keys dropped by policy
}

// BuildStatus assembles the terminal status for one item: exactly
// one of Ready/Unmanaged/ReconciliationPaused/Ready=False is set, plus an
// optional Warning condition when config keys were dropped by policy.
// prior is the status already stored, used to preserve topicName/topicId
// across a reconciliation that didn't itself discover them. An unmanaged
// item keeps a prior topicId but always has its topicName cleared.
func BuildStatus(generation int64, outcome StatusOutcome, derivedTopicName string, topicID *string, prior TopicStatus) TopicStatus {
	out := TopicStatus{
		ObservedGeneration: &generation,
		TopicID:            topicID,
	}

	if outcome.Unmanaged {
		out.TopicName = nil
	} else if prior.TopicName != nil {
		out.TopicName = prior.TopicName
	} else {
		name := derivedTopicName
		out.TopicName = &name
	}
	if out.TopicID == nil {
		out.TopicID = prior.TopicID
	}

	now := metav1.Now()
	switch {
	case outcome.Unmanaged:
		out.Conditions = append(out.Conditions, metav1.Condition{
			Type: ConditionUnmanaged, Status: metav1.ConditionTrue, Reason: "Unmanaged",
			Message: "resource is not managed", LastTransitionTime: now,
		})
	case outcome.Paused:
		out.Conditions = append(out.Conditions, metav1.Condition{
			Type: ConditionReconciliationPaused, Status: metav1.ConditionTrue, Reason: "Paused",
			Message: "reconciliation is paused", LastTransitionTime: now,
		})
	case outcome.Ready:
		out.Conditions = append(out.Conditions, metav1.Condition{
			Type: ConditionReady, Status: metav1.ConditionTrue, Reason: "Reconciled",
			Message: "topic is up to date", LastTransitionTime: now,
		})
	default:
		reason := outcome.FailReason
		if reason == "" {
			reason = "ReconciliationFailed"
		}
		out.Conditions = append(out.Conditions, metav1.Condition{
			Type: ConditionReady, Status: metav1.ConditionFalse, Reason: reason,
			Message: outcome.FailMessage, LastTransitionTime: now,
		})
	}

	if len(outcome.WarningKeys) > 0 {
		keys := append([]string(nil), outcome.WarningKeys...)
		sort.Strings(keys)
		out.Conditions = append(out.Conditions, metav1.Condition{
			Type: ConditionWarning, Status: metav1.ConditionTrue, Reason: ReasonNotConfigurable,
			Message:            "config keys not alterable by policy: " + strings.Join(keys, ", "),
			LastTransitionTime: now,
		})
	}

	return out
}

// StatusChanged reports whether next differs from prior in any field the
// resource store writes, so the controller only issues an UpdateStatus
// call when there is something to say.
func StatusChanged(prior, next TopicStatus) bool {
	if !equalStringPtr(prior.TopicName, next.TopicName) || !equalStringPtr(prior.TopicID, next.TopicID) {
		return true
	}
	if !equalInt64Ptr(prior.ObservedGeneration, next.ObservedGeneration) {
		return true
	}
	if !conditionsEqual(prior.Conditions, next.Conditions) {
		return true
	}
	return !replicasChangeEqual(prior.ReplicasChange, next.ReplicasChange)
}

func equalStringPtr(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func equalInt64Ptr(a, b *int64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func conditionsEqual(a, b []metav1.Condition) bool {
	if len(a) != len(b) {
		return false
	}
	byType := func(conds []metav1.Condition) map[string]metav1.Condition {
		m := make(map[string]metav1.Condition, len(conds))
		for _, c := range conds {
			m[c.Type] = c
		}
		return m
	}
	am, bm := byType(a), byType(b)
	for t, ac := range am {
		bc, ok := bm[t]
		if !ok || ac.Status != bc.Status || ac.Reason != bc.Reason || ac.Message != bc.Message {
			return false
		}
	}
	return true
}

func replicasChangeEqual(a, b *ReplicasChangeStatus) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
