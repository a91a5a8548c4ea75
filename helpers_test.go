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
	"testing"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric/noop"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"

	internalsemconv "github.com/XSAM/otelpg/internal/semconv"
)

var defaultattribute = attribute.String("test", "foo")

func newTracerProvider() (*tracetest.SpanRecorder, *sdktrace.TracerProvider) {
	var sr tracetest.SpanRecorder
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(&sr))
	return &sr, provider
}

// newMockConfig builds a config the way newConfig would, but with a fixed
// attribute set and a noop meter so tests control every input.
func newMockConfig(t *testing.T, tracer trace.Tracer) config {
	t.Helper()

	instruments, err := newInstruments(noop.NewMeterProvider().Meter("test"))
	require.NoError(t, err)

	optInType := internalsemconv.ParseOTelSemConvStabilityOptIn()
	return config{
		Tracer:                 tracer,
		Instruments:            instruments,
		Attributes:             []attribute.KeyValue{defaultattribute},
		SemConvStabilityOptIn:  optInType,
		DBQueryTextAttributes:  internalsemconv.NewDBQueryTextAttributes(optInType),
		ConnectionAttributes:   internalsemconv.NewConnectionAttributes(optInType),
		DBCollectionAttributes: internalsemconv.NewDBCollectionAttributes(optInType),
		PoolAttributes:         internalsemconv.NewPoolAttributes(optInType),
		ErrorTypeAttributes:    internalsemconv.NewErrorTypeAttribute(optInType),
	}
}

// newTestTracer wires a Tracer to a span recorder and a noop meter.
func newTestTracer(t *testing.T, options ...Option) (*tracetest.SpanRecorder, *Tracer) {
	t.Helper()

	sr, provider := newTracerProvider()
	options = append([]Option{
		WithTracerProvider(provider),
		WithMeterProvider(noop.NewMeterProvider()),
	}, options...)

	tracer, err := NewTracer(options...)
	require.NoError(t, err)
	return sr, tracer
}
