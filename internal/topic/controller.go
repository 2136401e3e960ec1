// Copyright KubeArchive Authors
// SPDX-License-Identifier: Apache-2.0

package topic

import (
	"context"
	"log/slog"
	"time"
)

// BatchControllerOptions are the operator's runtime configuration knobs.
type BatchControllerOptions struct {
	Namespace               string
	Selector                map[string]string
	UseFinalizer            bool
	SkipClusterConfigReview bool
	CruiseControlEnabled    bool
	AlterableTopicConfig    string
	EnableAdditionalMetrics bool
}

// ReconcileMetrics records per-batch outcomes.
type ReconcileMetrics interface {
	ObserveOutcome(success bool)
	ObserveAdminCall(op string, dur time.Duration)
}

// BatchController is the core of the operator: it holds no transport of
// its own and is driven by whatever coalesces individual change events
// into batches.
type BatchController struct {
	Store      ResourceStore
	Admin      Admin
	Rebalancer Rebalancer
	Ownership  *OwnershipTable
	Options    BatchControllerOptions
	Metrics    ReconcileMetrics
	Logger     *slog.Logger
}

// Prime pre-populates the ownership table from a full listing, closing
// the window between process start and the first reconciled batch
// during which ownership arbitration would otherwise see no claimants.
func (c *BatchController) Prime(ctx context.Context, resources []TopicResource) {
	c.Ownership.Prime(resources)
}

func (c *BatchController) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}

// batchItem tracks one resource's progress through the classification
// pipeline: once outcome.Err is set, later stages must not clear
// it (errors win), but a later stage may still replace it with a
// different error.
type batchItem struct {
	resource TopicResource
	original TopicStatus // status as observed at batch entry, for the diff-before-write rule
	outcome  Either[struct{}]
	dropped  bool // true once the item has a terminal status and leaves the pipeline
	warnKeys []string
	topicID  *string
	state    *TopicState
	created  bool
}

func (it *batchItem) fail(err error) {
	it.outcome = ErrOf[struct{}](err)
	it.dropped = true
}

func (it *batchItem) succeed() {
	if it.outcome.Err == nil {
		it.outcome = OK(struct{}{})
	}
	it.dropped = true
}

// OnUpdate runs the classification pipeline over one batch and
// writes a terminal status for every non-deleted item that wasn't
// dropped by the selector filter; an item on the deletion path gets an
// error status only when its deletion fails (and not when topic deletion
// is disabled with no finalizer in use). It returns ErrInterrupted if the batch was canceled,
// and nil otherwise - per-item failures never surface here.
func (c *BatchController) OnUpdate(ctx context.Context, batch []TopicResource) error {
	items := make([]*batchItem, 0, len(batch))
	for _, r := range batch {
		items = append(items, &batchItem{resource: r, original: r.Status})
	}

	// 1. Selector filter.
	var survivors []*batchItem
	for _, it := range items {
		if !selectorMatches(c.Options.Selector, it.resource.Labels) {
			c.Ownership.Forget(it.resource.TopicName(), it.resource.Ref())
			continue
		}
		survivors = append(survivors, it)
	}

	// 2. Deletion filter.
	var toDelete []*batchItem
	var active []*batchItem
	now := time.Now()
	for _, it := range survivors {
		if it.resource.DeletionTimestamp != nil && !it.resource.DeletionTimestamp.After(now) {
			toDelete = append(toDelete, it)
			continue
		}
		active = append(active, it)
	}
	if len(toDelete) > 0 {
		if err := c.processDeletions(ctx, toDelete); err != nil {
			return err
		}
	}

	// 3. Unmanaged.
	var managed []*batchItem
	for _, it := range active {
		if !it.resource.IsManaged() {
			it.succeed()
			continue
		}
		managed = append(managed, it)
	}

	// 4. Validation.
	var validated []*batchItem
	for _, it := range managed {
		if err := validateUnchangedTopicName(it.resource); err != nil {
			it.fail(err)
			continue
		}
		name := it.resource.TopicName()
		ref := it.resource.Ref()
		c.Ownership.Remember(name, ref)
		if err := c.Ownership.ValidateSingleManagingResource(name, ref, it.resource.Status.ReadyTrue()); err != nil {
			it.fail(err)
			continue
		}
		validated = append(validated, it)
	}

	// 5. Paused.
	var unpaused []*batchItem
	for _, it := range validated {
		if it.resource.IsPaused() {
			it.succeed()
			continue
		}
		unpaused = append(unpaused, it)
	}

	// 6. Finalizer reconciliation.
	var ready []*batchItem
	for _, it := range unpaused {
		if err := c.reconcileFinalizer(ctx, it); err != nil {
			it.fail(err)
			continue
		}
		ready = append(ready, it)
	}

	// 7. Describe.
	known, errored, err := c.describe(ctx, ready)
	if err != nil {
		return err
	}

	// 8. Create missing.
	known, err = c.createMissing(ctx, known, errored)
	if err != nil {
		return err
	}

	// 9. Diff & apply.
	if err := c.diffAndApply(ctx, known); err != nil {
		return err
	}

	// 10. Replica changes, over every non-deleted item whose Kafka state
	// was described (an item without observed state has no RF to compare).
	replicaInputs := make([]ReconcilableTopic, 0, len(active))
	byRef := make(map[KubeRef]*batchItem, len(active))
	for _, it := range active {
		if it.state == nil {
			continue
		}
		byRef[it.resource.Ref()] = it
		replicaInputs = append(replicaInputs, ReconcilableTopic{Resource: it.resource, State: it.state})
	}
	rcResults, err := ProcessReplicaChanges(ctx, ReplicaChangeInputs{
		Admin:      c.Admin,
		Rebalancer: c.Rebalancer,
		Options:    ReplicaChangeOptions{Enabled: c.Options.CruiseControlEnabled},
		Logger:     c.logger(),
	}, replicaInputs)
	if err != nil {
		return err
	}
	for ref, outcome := range rcResults {
		it, ok := byRef[ref]
		if !ok {
			continue
		}
		if !outcome.IsOK() {
			it.fail(outcome.Err)
			continue
		}
		it.resource.Status.ReplicasChange = outcome.Value
	}

	// 11. Status synthesis.
	for _, it := range active {
		c.writeStatus(ctx, it)
	}
	c.recordMetrics(active)
	c.recordMetrics(toDelete)

	return nil
}

// OnDelete handles a batch known in advance to be all-deletions,
// bypassing the selector/validation/paused stages that only apply to
// the update path. Used when the upstream adapter already distinguishes
// delete events.
func (c *BatchController) OnDelete(ctx context.Context, batch []TopicResource) error {
	items := make([]*batchItem, 0, len(batch))
	for _, r := range batch {
		items = append(items, &batchItem{resource: r, original: r.Status})
	}
	if err := c.processDeletions(ctx, items); err != nil {
		return err
	}
	c.recordMetrics(items)
	return nil
}

func validateUnchangedTopicName(r TopicResource) error {
	if r.Status.TopicName == nil {
		return nil
	}
	if *r.Status.TopicName != r.TopicName() {
		return notSupported("topic name cannot be changed after creation")
	}
	return nil
}

func selectorMatches(selector, labels map[string]string) bool {
	for k, v := range selector {
		if labels[k] != v {
			return false
		}
	}
	return true
}

// reconcileFinalizer implements step 6: add the finalizer when enabled,
// remove it when disabled, tolerating the case where it is already in
// the desired state.
func (c *BatchController) reconcileFinalizer(ctx context.Context, it *batchItem) error {
	want := c.Options.UseFinalizer
	has := it.resource.HasFinalizer()
	if want == has {
		return nil
	}
	err := c.Store.EditMetadata(ctx, &it.resource, func(finalizers *[]string) {
		if want {
			*finalizers = append(*finalizers, Finalizer)
			return
		}
		out := (*finalizers)[:0]
		for _, f := range *finalizers {
			if f != Finalizer {
				out = append(out, f)
			}
		}
		*finalizers = out
	})
	if err != nil && err != ErrNotFound {
		return internalError(err)
	}
	if want {
		it.resource.Finalizers = append(it.resource.Finalizers, Finalizer)
	}
	return nil
}

// describe issues the two concurrent describe calls for step 7 and joins
// them per item: any error on either side becomes that item's error
//, the first encountered exception winning when both fail. A cooperative
// cancellation during either await is propagated to the caller rather
// than silently dropping the affected items out of the pipeline.
func (c *BatchController) describe(ctx context.Context, items []*batchItem) (known, errored []*batchItem, err error) {
	if len(items) == 0 {
		return nil, nil, nil
	}
	names := make([]string, 0, len(items))
	byName := make(map[string]*batchItem, len(items))
	for _, it := range items {
		name := it.resource.TopicName()
		names = append(names, name)
		byName[name] = it
	}

	start := time.Now()
	topicFutures := c.Admin.DescribeTopics(ctx, names)
	configFutures := c.Admin.DescribeConfigs(ctx, ConfigResourceTopic, names)

	topicResults, err := awaitAll(ctx, topicFutures)
	if err != nil {
		return nil, nil, err
	}
	configResults, err := awaitAll(ctx, configFutures)
	if err != nil {
		return nil, nil, err
	}
	c.observeAdminCall("describeTopics+describeConfigs", start)

	for name, it := range byName {
		ts, tErr := topicResults[name].Value, topicResults[name].Err
		cfg, cErr := configResults[name].Value, configResults[name].Err
		switch {
		case tErr != nil:
			it.outcome = ErrOf[struct{}](tErr)
			errored = append(errored, it)
		case cErr != nil:
			it.outcome = ErrOf[struct{}](cErr)
			errored = append(errored, it)
		default:
			ts.Configs = cfg
			it.state = &ts
			known = append(known, it)
		}
	}
	return known, errored, nil
}

// createMissing implements step 8: items whose describe failed with
// UnknownTopicOrPartition are recreated; TopicExists on create is
// normalized to success (next reconciliation will pick up state).
func (c *BatchController) createMissing(ctx context.Context, known, errored []*batchItem) ([]*batchItem, error) {
	var toCreate []*batchItem
	for _, it := range errored {
		rerr, ok := it.outcome.Err.(*ReconcileError)
		if ok && rerr.Kind == KindKafkaError && rerr.APIKind == APIUnknownTopicOrPartition {
			toCreate = append(toCreate, it)
			continue
		}
		it.fail(it.outcome.Err)
	}
	if len(toCreate) == 0 {
		return known, nil
	}

	specs := make([]NewTopicSpec, 0, len(toCreate))
	byName := make(map[string]*batchItem, len(toCreate))
	for _, it := range toCreate {
		spec, err := newTopicSpecFrom(it.resource)
		if err != nil {
			it.fail(err)
			continue
		}
		byName[spec.Name] = it
		specs = append(specs, spec)
	}
	if len(specs) == 0 {
		return known, nil
	}

	start := time.Now()
	futures := c.Admin.CreateTopics(ctx, specs)
	results, err := awaitAll(ctx, futures)
	c.observeAdminCall("createTopics", start)
	if err != nil {
		return nil, err
	}

	for name, it := range byName {
		res := results[name]
		if res.Err != nil {
			rerr, ok := res.Err.(*ReconcileError)
			if ok && rerr.Kind == KindKafkaError && rerr.APIKind == APITopicExists {
				it.succeed()
				continue
			}
			it.fail(res.Err)
			continue
		}
		id := res.Value
		it.created = true
		it.topicID = &id
		it.succeed()
	}
	return known, nil
}

func newTopicSpecFrom(r TopicResource) (NewTopicSpec, error) {
	partitions := int32(-1)
	if r.Spec.Partitions != nil {
		partitions = *r.Spec.Partitions
	}
	replicas := int16(-1)
	if r.Spec.Replicas != nil {
		replicas = int16(*r.Spec.Replicas)
	}
	configs := make(map[string]string, len(r.Spec.Config))
	for k, v := range r.Spec.Config {
		s, err := v.Stringify()
		if err != nil {
			return NewTopicSpec{}, err
		}
		configs[k] = s
	}
	return NewTopicSpec{Name: r.TopicName(), Partitions: partitions, Replicas: replicas, Configs: configs}, nil
}

// diffAndApply implements step 9 over the known, not-just-created items.
// A cooperative cancellation during either admin call aborts the whole
// batch rather than marking its in-flight items as succeeded.
func (c *BatchController) diffAndApply(ctx context.Context, known []*batchItem) error {
	var toDiff []*batchItem
	for _, it := range known {
		if it.created {
			continue
		}
		toDiff = append(toDiff, it)
	}
	if len(toDiff) == 0 {
		return nil
	}

	configOps := make(map[string][]ConfigOp)
	increaseTo := make(map[string]int32)
	byTopic := make(map[string]*batchItem, len(toDiff))

	for _, it := range toDiff {
		name := it.resource.TopicName()
		byTopic[name] = it

		diff, err := DiffConfig(it.resource.Spec.Config, it.state.Configs, c.Options.AlterableTopicConfig)
		if err != nil {
			it.fail(err)
			continue
		}
		if len(diff.Ops) > 0 {
			configOps[name] = diff.Ops
		}
		it.warnKeys = diff.DroppedKeys

		currentCount := int32(len(it.state.Partitions))
		pdiff, err := DiffPartitions(it.resource.Spec.Partitions, currentCount)
		if err != nil {
			it.fail(err)
			continue
		}
		if pdiff.IncreaseTo > 0 {
			increaseTo[name] = pdiff.IncreaseTo
		}
	}

	if len(configOps) > 0 {
		start := time.Now()
		futures := c.Admin.IncrementalAlterConfigs(ctx, configOps)
		results, err := awaitAll(ctx, futures)
		c.observeAdminCall("incrementalAlterConfigs", start)
		if err != nil {
			return err
		}
		for name, res := range results {
			if it, ok := byTopic[name]; ok && res.Err != nil {
				it.fail(res.Err)
			}
		}
	}
	if len(increaseTo) > 0 {
		start := time.Now()
		futures := c.Admin.CreatePartitions(ctx, increaseTo)
		results, err := awaitAll(ctx, futures)
		c.observeAdminCall("createPartitions", start)
		if err != nil {
			return err
		}
		for name, res := range results {
			if it, ok := byTopic[name]; ok && res.Err != nil {
				it.fail(res.Err)
			}
		}
	}

	for _, it := range toDiff {
		it.succeed()
	}
	return nil
}

// processDeletions routes a deleted item: an unmanaged resource just
// loses its finalizer, while a managed one must have its Kafka topic
// deleted before the finalizer can come off.
func (c *BatchController) processDeletions(ctx context.Context, items []*batchItem) error {
	var toSubmit []*batchItem
	for _, it := range items {
		if !it.resource.IsManaged() {
			if it.resource.HasFinalizer() {
				_ = c.Store.EditMetadata(ctx, &it.resource, func(finalizers *[]string) {
					out := (*finalizers)[:0]
					for _, f := range *finalizers {
						if f != Finalizer {
							out = append(out, f)
						}
					}
					*finalizers = out
				})
			}
			c.Ownership.Forget(it.resource.TopicName(), it.resource.Ref())
			it.succeed()
			continue
		}

		name := it.resource.TopicName()
		ref := it.resource.Ref()
		if err := c.Ownership.ValidateSingleManagingResource(name, ref, it.resource.Status.ReadyTrue()); err != nil {
			it.fail(err)
			c.writeStatus(ctx, it)
			continue
		}
		toSubmit = append(toSubmit, it)
	}

	if len(toSubmit) == 0 {
		return nil
	}

	names := make([]string, 0, len(toSubmit))
	byName := make(map[string]*batchItem, len(toSubmit))
	for _, it := range toSubmit {
		name := it.resource.TopicName()
		names = append(names, name)
		byName[name] = it
	}

	start := time.Now()
	futures := c.Admin.DeleteTopics(ctx, names)
	results, err := awaitAll(ctx, futures)
	c.observeAdminCall("deleteTopics", start)
	if err != nil {
		return err
	}

	for name, it := range byName {
		res := results[name]
		apiKind := ""
		if rerr, ok := res.Err.(*ReconcileError); ok {
			apiKind = rerr.APIKind
		}
		switch {
		case res.Err == nil, apiKind == APIUnknownTopicOrPartition:
			removeErr := c.Store.EditMetadata(ctx, &it.resource, func(finalizers *[]string) {
				out := (*finalizers)[:0]
				for _, f := range *finalizers {
					if f != Finalizer {
						out = append(out, f)
					}
				}
				*finalizers = out
			})
			if removeErr != nil && removeErr != ErrNotFound {
				it.fail(internalError(removeErr))
				c.writeStatus(ctx, it)
				continue
			}
			c.Ownership.Forget(name, it.resource.Ref())
			it.succeed()
		case apiKind == APITopicDeletionDisabled && !c.Options.UseFinalizer:
			c.logger().Warn("topic deletion disabled with no finalizer to hold the resource", "topic", name)
			it.fail(res.Err)
		default:
			it.fail(res.Err)
			c.writeStatus(ctx, it)
		}
	}
	return nil
}

func (c *BatchController) writeStatus(ctx context.Context, it *batchItem) {
	outcome := StatusOutcome{WarningKeys: it.warnKeys}
	switch {
	case it.outcome.Err != nil:
		rerr, ok := it.outcome.Err.(*ReconcileError)
		if ok {
			outcome.FailReason = string(rerr.Kind)
			outcome.FailMessage = rerr.Message
		} else {
			outcome.FailReason = string(KindInternalError)
			outcome.FailMessage = it.outcome.Err.Error()
		}
	case !it.resource.IsManaged():
		outcome.Unmanaged = true
	case it.resource.IsPaused():
		outcome.Paused = true
	default:
		outcome.Ready = true
	}

	next := BuildStatus(it.resource.Generation, outcome, it.resource.TopicName(), it.topicID, it.original)
	if it.state != nil && next.TopicID == nil {
		id := it.state.TopicID
		next.TopicID = &id
	}
	if it.resource.Status.ReplicasChange != nil {
		next.ReplicasChange = it.resource.Status.ReplicasChange
	}

	if !StatusChanged(it.original, next) {
		return
	}
	it.resource.Status = next
	if err := c.Store.UpdateStatus(ctx, &it.resource); err != nil {
		c.logger().Error("failed to write status", "topic", it.resource.TopicName(), "error", err)
	}
}

func (c *BatchController) recordMetrics(items []*batchItem) {
	if c.Metrics == nil {
		return
	}
	for _, it := range items {
		c.Metrics.ObserveOutcome(it.outcome.Err == nil)
	}
}

func (c *BatchController) observeAdminCall(op string, start time.Time) {
	if c.Metrics == nil || !c.Options.EnableAdditionalMetrics {
		return
	}
	c.Metrics.ObserveAdminCall(op, time.Since(start))
}
