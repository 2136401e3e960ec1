// Copyright KubeArchive Authors
// SPDX-License-Identifier: Apache-2.0

package controller

import (
	"context"
	"log/slog"
	"time"

	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/types"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/client"

	kafkav1alpha1 "github.com/kopspace/topic-operator/api/v1alpha1"
	"github.com/kopspace/topic-operator/internal/topic"
)

// KafkaTopicReconciler is the thin adapter between controller-runtime's
// one-object-at-a-time reconciliation and the batching core: it
// coalesces requests that arrive within a short window into a single
// call to BatchController.OnUpdate instead of driving the classification
// pipeline one object at a time.
type KafkaTopicReconciler struct {
	Client  client.Client
	Scheme  *runtime.Scheme
	Batcher *topic.BatchController

	// DebounceWindow bounds how long a request waits for siblings before
	// the batch is flushed; zero disables coalescing (reconcile singly).
	DebounceWindow time.Duration

	pending chan types.NamespacedName
}

//+kubebuilder:rbac:groups=kafka.strimzi.io,resources=kafkatopics,verbs=get;list;watch;create;update;patch;delete
//+kubebuilder:rbac:groups=kafka.strimzi.io,resources=kafkatopics/status,verbs=get;update;patch
//+kubebuilder:rbac:groups=kafka.strimzi.io,resources=kafkatopics/finalizers,verbs=update

// Reconcile enqueues the request for the next batch flush rather than
// acting on it directly; the actual classification pipeline runs inside
// flush, called from Start once a batch has been collected.
func (r *KafkaTopicReconciler) Reconcile(ctx context.Context, req ctrl.Request) (ctrl.Result, error) {
	select {
	case r.pending <- req.NamespacedName:
	case <-ctx.Done():
		return ctrl.Result{}, ctx.Err()
	}
	return ctrl.Result{}, nil
}

// Start runs the coalescing loop as a manager Runnable: a long-lived
// background goroutine that drains pending requests into batches,
// independent of any single Reconcile call.
func (r *KafkaTopicReconciler) Start(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case first := <-r.pending:
			batch := map[types.NamespacedName]struct{}{first: {}}
			r.drainWindow(ctx, batch)
			r.flush(ctx, batch)
		}
	}
}

func (r *KafkaTopicReconciler) drainWindow(ctx context.Context, batch map[types.NamespacedName]struct{}) {
	if r.DebounceWindow <= 0 {
		return
	}
	timer := time.NewTimer(r.DebounceWindow)
	defer timer.Stop()
	for {
		select {
		case <-timer.C:
			return
		case <-ctx.Done():
			return
		case next := <-r.pending:
			batch[next] = struct{}{}
		}
	}
}

func (r *KafkaTopicReconciler) flush(ctx context.Context, batch map[types.NamespacedName]struct{}) {
	store := &topic.KubeResourceStore{Client: r.Client}
	resources := make([]topic.TopicResource, 0, len(batch))
	for nn := range batch {
		res, err := store.Get(ctx, nn.Namespace, nn.Name)
		if err != nil {
			if err != topic.ErrNotFound {
				slog.Error("failed to fetch KafkaTopic for batch", "name", nn.String(), "error", err)
			}
			continue
		}
		resources = append(resources, *res)
	}
	if len(resources) == 0 {
		return
	}
	if err := r.Batcher.OnUpdate(ctx, resources); err != nil {
		if err == topic.ErrInterrupted {
			return
		}
		slog.Error("batch reconciliation failed", "size", len(resources), "error", err)
	}
}

// SetupWithManager wires the reconciler and its coalescing loop into mgr.
func (r *KafkaTopicReconciler) SetupWithManager(mgr ctrl.Manager) error {
	r.pending = make(chan types.NamespacedName, 256)
	if err := mgr.Add(r); err != nil {
		return err
	}
	return ctrl.NewControllerManagedBy(mgr).
		For(&kafkav1alpha1.KafkaTopic{}).
		Complete(r)
}
