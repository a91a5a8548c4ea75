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
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Option is an interface that applies a configuration option.
type Option interface {
	// Apply sets the Option value of a config.
	Apply(*config)
}

var _ Option = OptionFunc(nil)

// OptionFunc implements the Option interface.
type OptionFunc func(*config)

func (f OptionFunc) Apply(c *config) {
	f(c)
}

// WithTracerProvider specifies a tracer provider to use for creating a tracer.
// The global provider is used by default.
func WithTracerProvider(provider trace.TracerProvider) Option {
	return OptionFunc(func(cfg *config) {
		cfg.TracerProvider = provider
	})
}

// WithMeterProvider specifies a meter provider to use for creating a meter.
// The global provider is used by default.
func WithMeterProvider(provider metric.MeterProvider) Option {
	return OptionFunc(func(cfg *config) {
		cfg.MeterProvider = provider
	})
}

// WithAttributes specifies attributes that will be set to each span and
// measurement.
func WithAttributes(attributes ...attribute.KeyValue) Option {
	return OptionFunc(func(cfg *config) {
		cfg.Attributes = attributes
	})
}

// WithSpanNameFormatter takes a function that will be called on every span
// and the returned string will become the span name.
func WithSpanNameFormatter(spanNameFormatter SpanNameFormatter) Option {
	return OptionFunc(func(cfg *config) {
		cfg.SpanNameFormatter = spanNameFormatter
	})
}

// WithSpanOptions specifies configuration of the spans.
func WithSpanOptions(opts SpanOptions) Option {
	return OptionFunc(func(cfg *config) {
		cfg.SpanOptions = opts
	})
}

// WithAttributesGetter takes an AttributesGetter that will be called on every
// span creation.
func WithAttributesGetter(attributesGetter AttributesGetter) Option {
	return OptionFunc(func(cfg *config) {
		cfg.AttributesGetter = attributesGetter
	})
}

// WithInstrumentAttributesGetter takes an InstrumentAttributesGetter that will
// be called on every measurement.
func WithInstrumentAttributesGetter(instrumentAttributesGetter InstrumentAttributesGetter) Option {
	return OptionFunc(func(cfg *config) {
		cfg.InstrumentAttributesGetter = instrumentAttributesGetter
	})
}

// WithInstrumentErrorAttributesGetter takes an InstrumentErrorAttributesGetter
// that will be called on every failed measurement.
func WithInstrumentErrorAttributesGetter(instrumentErrorAttributesGetter InstrumentErrorAttributesGetter) Option {
	return OptionFunc(func(cfg *config) {
		cfg.InstrumentErrorAttributesGetter = instrumentErrorAttributesGetter
	})
}

// WithDisableErrNoRowsMeasurement records pgx.ErrNoRows results as "ok"
// measurements instead of errors. Spans are unaffected, see
// SpanOptions.DisableErrNoRows.
func WithDisableErrNoRowsMeasurement(disable bool) Option {
	return OptionFunc(func(cfg *config) {
		cfg.DisableErrNoRowsMeasurement = disable
	})
}
