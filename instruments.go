// Copyright Sam Xie
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package otelpg

import (
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	namespace = "db.pg"

	// dbClientOperationDuration is the stable metric name for client
	// operation duration, recorded in seconds.
	dbClientOperationDuration = "db.client.operation.duration"
)

var (
	queryMethodKey = attribute.Key("method")
	queryStatusKey = attribute.Key("status")
)

type instruments struct {
	// The latency of calls in milliseconds, under the legacy conventions.
	legacyLatency metric.Float64Histogram
	// The duration of calls in seconds, under the stable conventions.
	duration metric.Float64Histogram
}

type poolStatsInstruments struct {
	connectionMaxOpen           metric.Int64ObservableGauge
	connectionOpen              metric.Int64ObservableGauge
	connectionIdle              metric.Int64ObservableGauge
	connectionInUse             metric.Int64ObservableGauge
	connectionConstructing      metric.Int64ObservableGauge
	acquireTotal                metric.Int64ObservableCounter
	acquireDurationTotal        metric.Float64ObservableCounter
	acquireEmptyTotal           metric.Int64ObservableCounter
	acquireCanceledTotal        metric.Int64ObservableCounter
	connectionNewTotal          metric.Int64ObservableCounter
	connectionClosedMaxIdle     metric.Int64ObservableCounter
	connectionClosedMaxLifetime metric.Int64ObservableCounter
}

func newInstruments(meter metric.Meter) (*instruments, error) {
	var instruments instruments
	var err error

	if instruments.legacyLatency, err = meter.Float64Histogram(
		strings.Join([]string{namespace, "latency"}, "."),
		metric.WithDescription("The latency of calls in milliseconds"),
		metric.WithUnit("ms"),
	); err != nil {
		return nil, fmt.Errorf("failed to create latency instrument, %v", err)
	}

	if instruments.duration, err = meter.Float64Histogram(
		dbClientOperationDuration,
		metric.WithDescription("Duration of database client operations"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, fmt.Errorf("failed to create duration instrument, %v", err)
	}

	return &instruments, nil
}

func newPoolStatsInstruments(meter metric.Meter) (*poolStatsInstruments, error) {
	var instruments poolStatsInstruments
	var err error
	subsystem := "pool"

	if instruments.connectionMaxOpen, err = meter.Int64ObservableGauge(
		strings.Join([]string{namespace, subsystem, "max_open"}, "."),
		metric.WithDescription("Maximum number of connections allowed in the pool"),
	); err != nil {
		return nil, fmt.Errorf("failed to create connectionMaxOpen instrument, %v", err)
	}

	if instruments.connectionOpen, err = meter.Int64ObservableGauge(
		strings.Join([]string{namespace, subsystem, "open"}, "."),
		metric.WithDescription("The number of established connections both in use and idle"),
	); err != nil {
		return nil, fmt.Errorf("failed to create connectionOpen instrument, %v", err)
	}

	if instruments.connectionIdle, err = meter.Int64ObservableGauge(
		strings.Join([]string{namespace, subsystem, "idle"}, "."),
		metric.WithDescription("The number of idle connections in the pool"),
	); err != nil {
		return nil, fmt.Errorf("failed to create connectionIdle instrument, %v", err)
	}

	if instruments.connectionInUse, err = meter.Int64ObservableGauge(
		strings.Join([]string{namespace, subsystem, "in_use"}, "."),
		metric.WithDescription("The number of connections currently acquired from the pool"),
	); err != nil {
		return nil, fmt.Errorf("failed to create connectionInUse instrument, %v", err)
	}

	if instruments.connectionConstructing, err = meter.Int64ObservableGauge(
		strings.Join([]string{namespace, subsystem, "constructing"}, "."),
		metric.WithDescription("The number of connections with construction in progress"),
	); err != nil {
		return nil, fmt.Errorf("failed to create connectionConstructing instrument, %v", err)
	}

	if instruments.acquireTotal, err = meter.Int64ObservableCounter(
		strings.Join([]string{namespace, subsystem, "acquire"}, "."),
		metric.WithDescription("The total number of successful connection acquires from the pool"),
	); err != nil {
		return nil, fmt.Errorf("failed to create acquireTotal instrument, %v", err)
	}

	if instruments.acquireDurationTotal, err = meter.Float64ObservableCounter(
		strings.Join([]string{namespace, subsystem, "acquire_duration"}, "."),
		metric.WithDescription("The total time blocked waiting for a connection acquire"),
		metric.WithUnit("ms"),
	); err != nil {
		return nil, fmt.Errorf("failed to create acquireDurationTotal instrument, %v", err)
	}

	if instruments.acquireEmptyTotal, err = meter.Int64ObservableCounter(
		strings.Join([]string{namespace, subsystem, "empty_acquire"}, "."),
		metric.WithDescription("The total number of acquires that waited for an empty pool"),
	); err != nil {
		return nil, fmt.Errorf("failed to create acquireEmptyTotal instrument, %v", err)
	}

	if instruments.acquireCanceledTotal, err = meter.Int64ObservableCounter(
		strings.Join([]string{namespace, subsystem, "canceled_acquire"}, "."),
		metric.WithDescription("The total number of acquires canceled by the context"),
	); err != nil {
		return nil, fmt.Errorf("failed to create acquireCanceledTotal instrument, %v", err)
	}

	if instruments.connectionNewTotal, err = meter.Int64ObservableCounter(
		strings.Join([]string{namespace, subsystem, "new_conns"}, "."),
		metric.WithDescription("The total number of new connections opened by the pool"),
	); err != nil {
		return nil, fmt.Errorf("failed to create connectionNewTotal instrument, %v", err)
	}

	if instruments.connectionClosedMaxIdle, err = meter.Int64ObservableCounter(
		strings.Join([]string{namespace, subsystem, "closed_max_idle"}, "."),
		metric.WithDescription("The total number of connections closed due to MaxConnIdleTime"),
	); err != nil {
		return nil, fmt.Errorf("failed to create connectionClosedMaxIdle instrument, %v", err)
	}

	if instruments.connectionClosedMaxLifetime, err = meter.Int64ObservableCounter(
		strings.Join([]string{namespace, subsystem, "closed_max_lifetime"}, "."),
		metric.WithDescription("The total number of connections closed due to MaxConnLifetime"),
	); err != nil {
		return nil, fmt.Errorf("failed to create connectionClosedMaxLifetime instrument, %v", err)
	}

	return &instruments, nil
}
