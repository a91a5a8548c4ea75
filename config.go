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
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	internalsemconv "github.com/XSAM/otelpg/internal/semconv"
)

const (
	instrumentationName = "github.com/XSAM/otelpg"
)

// SpanNameFormatter supplies the span name for an instrumented call.
// query is the raw SQL text when the call carries one, empty otherwise.
type SpanNameFormatter func(ctx context.Context, method Method, query string) string

// AttributesGetter provides additional span attributes on span creation.
type AttributesGetter func(ctx context.Context, method Method, query string, args []any) []attribute.KeyValue

// InstrumentAttributesGetter provides additional measurement attributes.
type InstrumentAttributesGetter func(ctx context.Context, method Method, query string, args []any) []attribute.KeyValue

// InstrumentErrorAttributesGetter provides additional measurement attributes
// derived from the call error.
type InstrumentErrorAttributesGetter func(err error) []attribute.KeyValue

type config struct {
	TracerProvider trace.TracerProvider
	Tracer         trace.Tracer

	MeterProvider metric.MeterProvider
	Meter         metric.Meter

	Instruments *instruments

	SpanOptions SpanOptions

	// Attributes will be set to each span and measurement.
	Attributes []attribute.KeyValue

	// SpanNameFormatter overrides the span name policy.
	// When unset, query spans are named from the prepared statement name or
	// the leading SQL operation token, followed by the database name.
	SpanNameFormatter SpanNameFormatter

	AttributesGetter                AttributesGetter
	InstrumentAttributesGetter      InstrumentAttributesGetter
	InstrumentErrorAttributesGetter InstrumentErrorAttributesGetter

	// DisableErrNoRowsMeasurement, if set to true, records pgx.ErrNoRows
	// results as "ok" measurements instead of errors.
	DisableErrNoRowsMeasurement bool

	SemConvStabilityOptIn internalsemconv.OTelSemConvStabilityOptInType

	// Attribute builders resolved once from SemConvStabilityOptIn.
	DBQueryTextAttributes  func(query string) []attribute.KeyValue
	ConnectionAttributes   func(cfg internalsemconv.ConnectionConfig) []attribute.KeyValue
	DBCollectionAttributes func(table string) []attribute.KeyValue
	PoolAttributes         func(name, connString string) []attribute.KeyValue
	ErrorTypeAttributes    func(err error) []attribute.KeyValue
}

// SpanOptions holds configuration of tracing span to decide
// whether to enable some features.
// By default all options are set to false intentionally when creating an
// instrumented tracer and provide the most sensible default with both
// performance and security in mind.
type SpanOptions struct {
	// RequireParentSpan, if set to true, will skip instrumentation of calls
	// that have no parent span in their context.
	RequireParentSpan bool

	// DisableQuery if set to true, will suppress the query text attribute
	// in spans.
	DisableQuery bool

	// DisableErrNoRows, if set to true, will suppress pgx.ErrNoRows errors
	// in spans.
	DisableErrNoRows bool

	// RecordError, if set, will be invoked with the current error, and if the func returns true
	// the record will be recorded on the current span.
	//
	// If this is not set it will default to record all errors (possible not
	// ErrNoRows, see option DisableErrNoRows).
	RecordError func(err error) bool

	// SpanFilter, if set, will be invoked before each call. If it returns
	// false no span is created for that call.
	SpanFilter func(ctx context.Context, method Method, query string, args []any) bool
}

// newConfig returns a config with all Options set.
func newConfig(options ...Option) config {
	cfg := config{
		TracerProvider:        otel.GetTracerProvider(),
		MeterProvider:         otel.GetMeterProvider(),
		SemConvStabilityOptIn: internalsemconv.ParseOTelSemConvStabilityOptIn(),
	}
	for _, opt := range options {
		opt.Apply(&cfg)
	}

	cfg.Attributes = append(cfg.Attributes,
		internalsemconv.DBSystemAttributes(cfg.SemConvStabilityOptIn)...,
	)
	cfg.DBQueryTextAttributes = internalsemconv.NewDBQueryTextAttributes(cfg.SemConvStabilityOptIn)
	cfg.ConnectionAttributes = internalsemconv.NewConnectionAttributes(cfg.SemConvStabilityOptIn)
	cfg.DBCollectionAttributes = internalsemconv.NewDBCollectionAttributes(cfg.SemConvStabilityOptIn)
	cfg.PoolAttributes = internalsemconv.NewPoolAttributes(cfg.SemConvStabilityOptIn)
	cfg.ErrorTypeAttributes = internalsemconv.NewErrorTypeAttribute(cfg.SemConvStabilityOptIn)

	cfg.Tracer = cfg.TracerProvider.Tracer(
		instrumentationName,
		trace.WithInstrumentationVersion(Version()),
	)
	cfg.Meter = cfg.MeterProvider.Meter(
		instrumentationName,
		metric.WithInstrumentationVersion(Version()),
	)

	return cfg
}
