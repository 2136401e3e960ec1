// Copyright KubeArchive Authors
// SPDX-License-Identifier: Apache-2.0

package topic

import (
	"context"
	"fmt"

	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/types"
	"sigs.k8s.io/controller-runtime/pkg/client"

	kafkav1alpha1 "github.com/kopspace/topic-operator/api/v1alpha1"
)

// ResourceStore is the façade over the cluster-orchestrator's store
//: get, patch status, patch metadata. The controller core only
// ever calls these three operations, never the generic client.Client
// surface, so a test double can implement this interface without
// pulling in a fake API server.
type ResourceStore interface {
	Get(ctx context.Context, namespace, name string) (*TopicResource, error)
	UpdateStatus(ctx context.Context, r *TopicResource) error
	EditMetadata(ctx context.Context, r *TopicResource, mutate func(finalizers *[]string)) error
	ListManaged(ctx context.Context, namespace string, selector map[string]string) ([]TopicResource, error)
}

// ErrNotFound is returned by ResourceStore methods when the underlying
// resource no longer exists, wrapping apierrors.IsNotFound so the
// deletion path can tolerate a resource garbage-collected out
// from under it.
var ErrNotFound = fmt.Errorf("resource not found")

// KubeResourceStore implements ResourceStore on a controller-runtime
// client.Client against the KafkaTopic CRD, in the style of the
// teacher's reconcilers (Get/Update against client.Client, IsNotFound
// tolerated on the delete path).
type KubeResourceStore struct {
	Client client.Client
}

func (s *KubeResourceStore) Get(ctx context.Context, namespace, name string) (*TopicResource, error) {
	kt := &kafkav1alpha1.KafkaTopic{}
	if err := s.Client.Get(ctx, types.NamespacedName{Namespace: namespace, Name: name}, kt); err != nil {
		if apierrors.IsNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, internalError(err)
	}
	return fromKafkaTopic(kt), nil
}

func (s *KubeResourceStore) UpdateStatus(ctx context.Context, r *TopicResource) error {
	kt := &kafkav1alpha1.KafkaTopic{}
	if err := s.Client.Get(ctx, types.NamespacedName{Namespace: r.Namespace, Name: r.Name}, kt); err != nil {
		if apierrors.IsNotFound(err) {
			return ErrNotFound
		}
		return internalError(err)
	}
	applyStatus(kt, r.Status)
	if err := s.Client.Status().Update(ctx, kt); err != nil {
		if apierrors.IsNotFound(err) {
			return ErrNotFound
		}
		return internalError(err)
	}
	return nil
}

func (s *KubeResourceStore) EditMetadata(ctx context.Context, r *TopicResource, mutate func(finalizers *[]string)) error {
	kt := &kafkav1alpha1.KafkaTopic{}
	if err := s.Client.Get(ctx, types.NamespacedName{Namespace: r.Namespace, Name: r.Name}, kt); err != nil {
		if apierrors.IsNotFound(err) {
			return ErrNotFound
		}
		return internalError(err)
	}
	before := append([]string(nil), kt.Finalizers...)
	mutate(&kt.Finalizers)
	if equalStringSlices(before, kt.Finalizers) {
		return nil
	}
	if err := s.Client.Update(ctx, kt); err != nil {
		if apierrors.IsNotFound(err) {
			return ErrNotFound
		}
		return internalError(err)
	}
	return nil
}

func (s *KubeResourceStore) ListManaged(ctx context.Context, namespace string, selector map[string]string) ([]TopicResource, error) {
	return ListManagedWithReader(ctx, s.Client, namespace, selector)
}

// ListManagedWithReader lists KafkaTopics through any client.Reader,
// including the manager's uncached APIReader. Startup priming needs this
// distinct from KubeResourceStore.ListManaged because it runs before the
// manager's cache has synced, when only the direct reader can serve
// requests.
func ListManagedWithReader(ctx context.Context, reader client.Reader, namespace string, selector map[string]string) ([]TopicResource, error) {
	list := &kafkav1alpha1.KafkaTopicList{}
	opts := []client.ListOption{client.InNamespace(namespace)}
	if len(selector) > 0 {
		opts = append(opts, client.MatchingLabels(selector))
	}
	if err := reader.List(ctx, list, opts...); err != nil {
		return nil, internalError(err)
	}
	out := make([]TopicResource, 0, len(list.Items))
	for i := range list.Items {
		out = append(out, *fromKafkaTopic(&list.Items[i]))
	}
	return out, nil
}

func fromKafkaTopic(kt *kafkav1alpha1.KafkaTopic) *TopicResource {
	r := &TopicResource{
		Namespace:         kt.Namespace,
		Name:              kt.Name,
		UID:               kt.UID,
		CreationTimestamp: kt.CreationTimestamp.Time,
		Generation:        kt.Generation,
		ResourceVersion:   kt.ResourceVersion,
		Labels:            kt.Labels,
		Annotations:       kt.Annotations,
		Finalizers:        kt.Finalizers,
	}
	if kt.DeletionTimestamp != nil {
		t := kt.DeletionTimestamp.Time
		r.DeletionTimestamp = &t
	}
	r.Spec = toTopicSpec(kt.Spec)
	r.Status = TopicStatus{
		ObservedGeneration: kt.Status.ObservedGeneration,
		TopicName:          kt.Status.TopicName,
		TopicID:            kt.Status.TopicID,
		Conditions:         kt.Status.Conditions,
	}
	if kt.Status.ReplicasChange != nil {
		rc := kt.Status.ReplicasChange
		state := ReplicasChangeNone
		switch rc.State {
		case kafkav1alpha1.ReplicasChangeStatePending:
			state = ReplicasChangePending
		case kafkav1alpha1.ReplicasChangeStateOngoing:
			state = ReplicasChangeOngoing
		}
		r.Status.ReplicasChange = &ReplicasChangeStatus{
			State:          state,
			SessionID:      rc.SessionID,
			Message:        rc.Message,
			TargetReplicas: rc.TargetReplicas,
		}
	}
	return r
}

func toTopicSpec(spec kafkav1alpha1.KafkaTopicSpec) *TopicSpec {
	ts := &TopicSpec{
		TopicName:  spec.TopicName,
		Partitions: spec.Partitions,
		Replicas:   spec.Replicas,
	}
	if len(spec.Config) > 0 {
		ts.Config = make(map[string]ConfigValue, len(spec.Config))
		for k, v := range spec.Config {
			ts.Config[k] = ConfigValue{Scalar: v.Scalar, List: v.List}
		}
	}
	return ts
}

func applyStatus(kt *kafkav1alpha1.KafkaTopic, status TopicStatus) {
	kt.Status.ObservedGeneration = status.ObservedGeneration
	kt.Status.TopicName = status.TopicName
	kt.Status.TopicID = status.TopicID
	kt.Status.Conditions = status.Conditions
	if status.ReplicasChange == nil {
		kt.Status.ReplicasChange = nil
		return
	}
	state := kafkav1alpha1.ReplicasChangeStatePending
	if status.ReplicasChange.State == ReplicasChangeOngoing {
		state = kafkav1alpha1.ReplicasChangeStateOngoing
	}
	kt.Status.ReplicasChange = &kafkav1alpha1.ReplicasChangeStatus{
		State:          state,
		SessionID:      status.ReplicasChange.SessionID,
		Message:        status.ReplicasChange.Message,
		TargetReplicas: status.ReplicasChange.TargetReplicas,
	}
}

func equalStringSlices(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
