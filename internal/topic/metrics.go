// Copyright KubeArchive Authors
// SPDX-License-Identifier: Apache-2.0

package topic

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// OtelMetrics implements ReconcileMetrics on top of otel/metric, in the
// style of pkg/observability's init-time counter registration.
type OtelMetrics struct {
	reconciliations metric.Int64Counter
	adminCallDur    metric.Float64Histogram
}

// NewOtelMetrics registers the counters/histograms this package reports.
// Call once per process; panics on registration failure, matching the
// teacher's init() convention for metrics that must exist before any
// request is served.
func NewOtelMetrics() *OtelMetrics {
	meter := otel.Meter("github.com/kopspace/topic-operator")

	reconciliations, err := meter.Int64Counter(
		"topic_operator.reconciliations",
		metric.WithDescription("Total number of per-resource reconciliation outcomes, broken down by success"),
		metric.WithUnit("{count}"),
	)
	if err != nil {
		panic(err)
	}

	adminCallDur, err := meter.Float64Histogram(
		"topic_operator.admin_call_duration",
		metric.WithDescription("Duration of Kafka admin calls issued per batch, broken down by operation"),
		metric.WithUnit("s"),
	)
	if err != nil {
		panic(err)
	}

	return &OtelMetrics{reconciliations: reconciliations, adminCallDur: adminCallDur}
}

func (m *OtelMetrics) ObserveOutcome(success bool) {
	m.reconciliations.Add(context.Background(), 1, metric.WithAttributes(attribute.Bool("success", success)))
}

func (m *OtelMetrics) ObserveAdminCall(op string, dur time.Duration) {
	m.adminCallDur.Record(context.Background(), dur.Seconds(), metric.WithAttributes(attribute.String("operation", op)))
}
