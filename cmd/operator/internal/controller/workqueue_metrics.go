// Copyright KubeArchive Authors
// SPDX-License-Identifier: Apache-2.0
// Adapters satisfying client-go workqueue.MetricsProvider on top of
// OpenTelemetry instruments, since the workqueue package's native
// instrumentation hooks assume Prometheus.
package controller

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"k8s.io/client-go/util/workqueue"
)

type OpenTelemetryWorkqueueMetricsProvider struct{}

type Gauge struct {
	UpDownCounter metric.Int64UpDownCounter
	name          string
}

func (g Gauge) Inc() {
	g.UpDownCounter.Add(
		context.Background(),
		1,
		metric.WithAttributes(attribute.String("queue", g.name)),
	)
}

func (g Gauge) Dec() {
	g.UpDownCounter.Add(
		context.Background(),
		-1,
		metric.WithAttributes(attribute.String("queue", g.name)),
	)
}

type Counter struct {
	Counter metric.Int64Counter
	name    string
}

func (c Counter) Inc() {
	c.Counter.Add(
		context.Background(),
		1,
		metric.WithAttributes(attribute.String("queue", c.name)),
	)
}

type HistogramMetric struct {
	Histogram metric.Float64Histogram
	name      string
}

func (h HistogramMetric) Observe(value float64) {
	h.Histogram.Record(
		context.Background(),
		value,
		metric.WithAttributes(attribute.String("queue", h.name)),
	)
}

type SettableGauge struct {
	Gauge metric.Float64Gauge
	name  string
}

func (s SettableGauge) Set(value float64) {
	s.Gauge.Record(
		context.Background(),
		value,
		metric.WithAttributes(attribute.String("queue", s.name)),
	)
}

func (OpenTelemetryWorkqueueMetricsProvider) NewDepthMetric(name string) workqueue.GaugeMetric {
	meter := otel.Meter("github.com/kopspace/topic-operator")
	upDownCounter, err := meter.Int64UpDownCounter(
		"topic_operator.workqueue.depth",
		metric.WithDescription("Current number of items in the workqueue"),
	)
	if err != nil {
		panic(err)
	}
	return Gauge{UpDownCounter: upDownCounter, name: name}
}

func (OpenTelemetryWorkqueueMetricsProvider) NewAddsMetric(name string) workqueue.CounterMetric {
	meter := otel.Meter("github.com/kopspace/topic-operator")
	counter, err := meter.Int64Counter(
		"topic_operator.workqueue.adds",
		metric.WithDescription("Total number of adds handled by the workqueue"),
	)
	if err != nil {
		panic(err)
	}
	return Counter{Counter: counter, name: name}
}

func (OpenTelemetryWorkqueueMetricsProvider) NewLatencyMetric(name string) workqueue.HistogramMetric {
	meter := otel.Meter("github.com/kopspace/topic-operator")
	histogram, err := meter.Float64Histogram(
		"topic_operator.workqueue.latency",
		metric.WithDescription("How long an item stays in the workqueue before being requested"),
		metric.WithUnit("second"),
	)
	if err != nil {
		panic(err)
	}
	return HistogramMetric{Histogram: histogram, name: name}
}

func (OpenTelemetryWorkqueueMetricsProvider) NewWorkDurationMetric(name string) workqueue.HistogramMetric {
	meter := otel.Meter("github.com/kopspace/topic-operator")
	histogram, err := meter.Float64Histogram(
		"topic_operator.workqueue.duration",
		metric.WithDescription("How long processing an item from the workqueue"),
		metric.WithUnit("second"),
	)
	if err != nil {
		panic(err)
	}
	return HistogramMetric{Histogram: histogram, name: name}
}

func (OpenTelemetryWorkqueueMetricsProvider) NewUnfinishedWorkSecondsMetric(name string) workqueue.SettableGaugeMetric {
	meter := otel.Meter("github.com/kopspace/topic-operator")
	gauge, err := meter.Float64Gauge(
		"topic_operator.workqueue.unfinished_work",
		metric.WithDescription("Sum of all the active tasks duration"),
		metric.WithUnit("second"),
	)
	if err != nil {
		panic(err)
	}
	return SettableGauge{Gauge: gauge, name: name}
}

func (OpenTelemetryWorkqueueMetricsProvider) NewLongestRunningProcessorSecondsMetric(name string) workqueue.SettableGaugeMetric {
	meter := otel.Meter("github.com/kopspace/topic-operator")
	gauge, err := meter.Float64Gauge(
		"topic_operator.workqueue.longest_running",
		metric.WithDescription("How long the oldest task has been running for"),
		metric.WithUnit("second"),
	)
	if err != nil {
		panic(err)
	}
	return SettableGauge{Gauge: gauge, name: name}
}

func (OpenTelemetryWorkqueueMetricsProvider) NewRetriesMetric(name string) workqueue.CounterMetric {
	meter := otel.Meter("github.com/kopspace/topic-operator")
	counter, err := meter.Int64Counter(
		"topic_operator.workqueue.retries",
		metric.WithDescription("Total number of retries handled by the workqueue"),
	)
	if err != nil {
		panic(err)
	}
	return Counter{Counter: counter, name: name}
}
