// Copyright KubeArchive Authors
// SPDX-License-Identifier: Apache-2.0

package controller

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/types"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/client/fake"

	kafkav1alpha1 "github.com/kopspace/topic-operator/api/v1alpha1"
	"github.com/kopspace/topic-operator/internal/topic"
)

func newTestScheme(t *testing.T) *runtime.Scheme {
	t.Helper()
	scheme := runtime.NewScheme()
	require.NoError(t, kafkav1alpha1.AddToScheme(scheme))
	return scheme
}

// TestKafkaTopicReconcilerCoalescesRequestsIntoOneBatch exercises the
// debounce/coalescing adapter end to end: two Reconcile calls arriving
// within the debounce window must be flushed through a single
// BatchController.OnUpdate call rather than one reconcile per request.
// Both topics are unmanaged so the batch never needs a Kafka admin
// client or rebalancer, keeping the fixture to the fake Kubernetes
// client alone.
func TestKafkaTopicReconcilerCoalescesRequestsIntoOneBatch(t *testing.T) {
	scheme := newTestScheme(t)
	topicA := &kafkav1alpha1.KafkaTopic{
		ObjectMeta: metav1.ObjectMeta{
			Name: "a", Namespace: "default",
			Annotations: map[string]string{kafkav1alpha1.ManagedAnnotation: "false"},
		},
	}
	topicB := &kafkav1alpha1.KafkaTopic{
		ObjectMeta: metav1.ObjectMeta{
			Name: "b", Namespace: "default",
			Annotations: map[string]string{kafkav1alpha1.ManagedAnnotation: "false"},
		},
	}
	cl := fake.NewClientBuilder().
		WithScheme(scheme).
		WithStatusSubresource(&kafkav1alpha1.KafkaTopic{}).
		WithObjects(topicA, topicB).
		Build()

	batcher := &topic.BatchController{
		Store:     &topic.KubeResourceStore{Client: cl},
		Ownership: topic.NewOwnershipTable(),
	}
	r := &KafkaTopicReconciler{
		Client:         cl,
		Batcher:        batcher,
		DebounceWindow: 20 * time.Millisecond,
		pending:        make(chan types.NamespacedName, 8),
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		_ = r.Start(ctx)
		close(done)
	}()

	_, err := r.Reconcile(ctx, ctrl.Request{NamespacedName: types.NamespacedName{Namespace: "default", Name: "a"}})
	require.NoError(t, err)
	_, err = r.Reconcile(ctx, ctrl.Request{NamespacedName: types.NamespacedName{Namespace: "default", Name: "b"}})
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		var got kafkav1alpha1.KafkaTopic
		if cl.Get(ctx, types.NamespacedName{Namespace: "default", Name: "a"}, &got) != nil {
			return false
		}
		return len(got.Status.Conditions) == 1 && got.Status.Conditions[0].Type == topic.ConditionUnmanaged
	}, 2*time.Second, 10*time.Millisecond, "topic a should have been reconciled as unmanaged")

	var gotB kafkav1alpha1.KafkaTopic
	require.NoError(t, cl.Get(ctx, types.NamespacedName{Namespace: "default", Name: "b"}, &gotB))
	require.Len(t, gotB.Status.Conditions, 1)
	assert.Equal(t, topic.ConditionUnmanaged, gotB.Status.Conditions[0].Type)
	assert.Equal(t, metav1.ConditionTrue, gotB.Status.Conditions[0].Status)

	cancel()
	<-done
}

// TestKafkaTopicReconcilerFlushSkipsMissingResources covers the case
// where a request's resource is gone by the time the batch is flushed
// (deleted between enqueue and flush): flush must tolerate the
// NotFound and still process any other resources in the same batch.
func TestKafkaTopicReconcilerFlushSkipsMissingResources(t *testing.T) {
	scheme := newTestScheme(t)
	present := &kafkav1alpha1.KafkaTopic{
		ObjectMeta: metav1.ObjectMeta{
			Name: "present", Namespace: "default",
			Annotations: map[string]string{kafkav1alpha1.ManagedAnnotation: "false"},
		},
	}
	cl := fake.NewClientBuilder().
		WithScheme(scheme).
		WithStatusSubresource(&kafkav1alpha1.KafkaTopic{}).
		WithObjects(present).
		Build()

	batcher := &topic.BatchController{
		Store:     &topic.KubeResourceStore{Client: cl},
		Ownership: topic.NewOwnershipTable(),
	}
	r := &KafkaTopicReconciler{Client: cl, Batcher: batcher}

	batch := map[types.NamespacedName]struct{}{
		{Namespace: "default", Name: "present"}: {},
		{Namespace: "default", Name: "gone"}:    {},
	}
	r.flush(context.Background(), batch)

	var got kafkav1alpha1.KafkaTopic
	require.NoError(t, cl.Get(context.Background(), types.NamespacedName{Namespace: "default", Name: "present"}, &got))
	require.Len(t, got.Status.Conditions, 1)
	assert.Equal(t, topic.ConditionUnmanaged, got.Status.Conditions[0].Type)
}
