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

// Package otelpg instruments github.com/jackc/pgx/v5 with OpenTelemetry
// traces and metrics.
package otelpg

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5"
	semconv "go.opentelemetry.io/otel/semconv/v1.30.0"
	"go.opentelemetry.io/otel/trace"
)

// Tracer implements the pgx tracer hooks. Assign it to
// pgx.ConnConfig.Tracer (or pgxpool.Config.ConnConfig.Tracer) to trace
// every query, batch, prepare, connect, and copy operation on the
// connection.
type Tracer struct {
	cfg config
}

var (
	_ pgx.QueryTracer    = (*Tracer)(nil)
	_ pgx.BatchTracer    = (*Tracer)(nil)
	_ pgx.ConnectTracer  = (*Tracer)(nil)
	_ pgx.PrepareTracer  = (*Tracer)(nil)
	_ pgx.CopyFromTracer = (*Tracer)(nil)
)

// NewTracer returns a pgx tracer configured by options.
func NewTracer(options ...Option) (*Tracer, error) {
	cfg := newConfig(options...)

	instruments, err := newInstruments(cfg.Meter)
	if err != nil {
		return nil, err
	}
	cfg.Instruments = instruments

	return &Tracer{cfg: cfg}, nil
}

// callTracing carries per-call state between a start hook and its matching
// end hook. The span is nil when the call was filtered or gated out;
// metrics are recorded either way.
type callTracing struct {
	span       trace.Span
	onComplete func(error)
}

type queryCtxKey struct{}
type batchCtxKey struct{}
type connectCtxKey struct{}
type prepareCtxKey struct{}
type copyFromCtxKey struct{}

// TraceQueryStart is called at the beginning of Query, QueryRow, and Exec.
func (t *Tracer) TraceQueryStart(ctx context.Context, conn *pgx.Conn, data pgx.TraceQueryStartData) context.Context {
	method := MethodConnQuery
	tracing := &callTracing{
		onComplete: recordMetric(ctx, t.cfg.Instruments, t.cfg, method, data.SQL, data.Args),
	}

	if !skipSpan(ctx, t.cfg.SpanOptions) && filterSpan(ctx, t.cfg.SpanOptions, method, data.SQL, data.Args) {
		name := spanName(ctx, t.cfg, method, connDatabase(conn), &spanNameQuery{SQL: data.SQL})
		ctx, tracing.span = createSpan(ctx, t.cfg, method, name, true, data.SQL, data.Args, configOfConn(conn))
	}

	return context.WithValue(ctx, queryCtxKey{}, tracing)
}

// TraceQueryEnd ends the span and records the measurement for the call
// started by TraceQueryStart.
func (t *Tracer) TraceQueryEnd(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryEndData) {
	tracing, ok := ctx.Value(queryCtxKey{}).(*callTracing)
	if !ok {
		return
	}
	tracing.onComplete(data.Err)

	if tracing.span == nil {
		return
	}
	recordSpanError(tracing.span, t.cfg.SpanOptions, data.Err)
	tracing.span.End()
}

// TraceBatchStart is called at the beginning of SendBatch.
func (t *Tracer) TraceBatchStart(ctx context.Context, conn *pgx.Conn, data pgx.TraceBatchStartData) context.Context {
	method := MethodBatch
	tracing := &callTracing{
		onComplete: recordMetric(ctx, t.cfg.Instruments, t.cfg, method, "", nil),
	}

	if !skipSpan(ctx, t.cfg.SpanOptions) && filterSpan(ctx, t.cfg.SpanOptions, method, "", nil) {
		name := spanName(ctx, t.cfg, method, connDatabase(conn), nil)
		ctx, tracing.span = createSpan(ctx, t.cfg, method, name, false, "", nil, configOfConn(conn))
		if data.Batch != nil {
			tracing.span.SetAttributes(semconv.DBOperationBatchSize(data.Batch.Len()))
		}
	}

	return context.WithValue(ctx, batchCtxKey{}, tracing)
}

// TraceBatchQuery creates a span per query inside a batch. The server has
// already processed the query by the time this hook runs, so the span is
// ended immediately.
func (t *Tracer) TraceBatchQuery(ctx context.Context, conn *pgx.Conn, data pgx.TraceBatchQueryData) {
	method := MethodConnQuery
	if skipSpan(ctx, t.cfg.SpanOptions) || !filterSpan(ctx, t.cfg.SpanOptions, method, data.SQL, data.Args) {
		return
	}

	name := spanName(ctx, t.cfg, method, connDatabase(conn), &spanNameQuery{SQL: data.SQL})
	_, span := createSpan(ctx, t.cfg, method, name, true, data.SQL, data.Args, configOfConn(conn))
	recordSpanError(span, t.cfg.SpanOptions, data.Err)
	span.End()
}

// TraceBatchEnd ends the batch span started by TraceBatchStart.
func (t *Tracer) TraceBatchEnd(ctx context.Context, _ *pgx.Conn, data pgx.TraceBatchEndData) {
	tracing, ok := ctx.Value(batchCtxKey{}).(*callTracing)
	if !ok {
		return
	}
	tracing.onComplete(data.Err)

	if tracing.span == nil {
		return
	}
	recordSpanError(tracing.span, t.cfg.SpanOptions, data.Err)
	tracing.span.End()
}

// TraceConnectStart is called at the beginning of Connect and ConnectConfig.
func (t *Tracer) TraceConnectStart(ctx context.Context, data pgx.TraceConnectStartData) context.Context {
	method := MethodConnConnect
	tracing := &callTracing{
		onComplete: recordMetric(ctx, t.cfg.Instruments, t.cfg, method, "", nil),
	}

	if !skipSpan(ctx, t.cfg.SpanOptions) && filterSpan(ctx, t.cfg.SpanOptions, method, "", nil) {
		name := spanName(ctx, t.cfg, method, "", nil)
		ctx, tracing.span = createSpan(ctx, t.cfg, method, name, false, "", nil, data.ConnConfig)
	}

	return context.WithValue(ctx, connectCtxKey{}, tracing)
}

// TraceConnectEnd ends the span started by TraceConnectStart.
func (t *Tracer) TraceConnectEnd(ctx context.Context, data pgx.TraceConnectEndData) {
	tracing, ok := ctx.Value(connectCtxKey{}).(*callTracing)
	if !ok {
		return
	}
	tracing.onComplete(data.Err)

	if tracing.span == nil {
		return
	}
	recordSpanError(tracing.span, t.cfg.SpanOptions, data.Err)
	tracing.span.End()
}

// TracePrepareStart is called at the beginning of Prepare.
func (t *Tracer) TracePrepareStart(ctx context.Context, conn *pgx.Conn, data pgx.TracePrepareStartData) context.Context {
	method := MethodConnPrepare
	tracing := &callTracing{
		onComplete: recordMetric(ctx, t.cfg.Instruments, t.cfg, method, data.SQL, nil),
	}

	if !skipSpan(ctx, t.cfg.SpanOptions) && filterSpan(ctx, t.cfg.SpanOptions, method, data.SQL, nil) {
		name := spanName(ctx, t.cfg, method, connDatabase(conn), &spanNameQuery{Name: data.Name, SQL: data.SQL})
		ctx, tracing.span = createSpan(ctx, t.cfg, method, name, true, data.SQL, nil, configOfConn(conn))
	}

	return context.WithValue(ctx, prepareCtxKey{}, tracing)
}

// TracePrepareEnd ends the span started by TracePrepareStart.
func (t *Tracer) TracePrepareEnd(ctx context.Context, _ *pgx.Conn, data pgx.TracePrepareEndData) {
	tracing, ok := ctx.Value(prepareCtxKey{}).(*callTracing)
	if !ok {
		return
	}
	tracing.onComplete(data.Err)

	if tracing.span == nil {
		return
	}
	recordSpanError(tracing.span, t.cfg.SpanOptions, data.Err)
	tracing.span.End()
}

// TraceCopyFromStart is called at the beginning of CopyFrom.
func (t *Tracer) TraceCopyFromStart(ctx context.Context, conn *pgx.Conn, data pgx.TraceCopyFromStartData) context.Context {
	method := MethodCopyFrom
	tracing := &callTracing{
		onComplete: recordMetric(ctx, t.cfg.Instruments, t.cfg, method, "", nil),
	}

	if !skipSpan(ctx, t.cfg.SpanOptions) && filterSpan(ctx, t.cfg.SpanOptions, method, "", nil) {
		name := spanName(ctx, t.cfg, method, connDatabase(conn), nil)
		ctx, tracing.span = createSpan(ctx, t.cfg, method, name, false, "", nil, configOfConn(conn))
		tracing.span.SetAttributes(t.cfg.DBCollectionAttributes(strings.Join(data.TableName, "."))...)
	}

	return context.WithValue(ctx, copyFromCtxKey{}, tracing)
}

// TraceCopyFromEnd ends the span started by TraceCopyFromStart.
func (t *Tracer) TraceCopyFromEnd(ctx context.Context, _ *pgx.Conn, data pgx.TraceCopyFromEndData) {
	tracing, ok := ctx.Value(copyFromCtxKey{}).(*callTracing)
	if !ok {
		return
	}
	tracing.onComplete(data.Err)

	if tracing.span == nil {
		return
	}
	recordSpanError(tracing.span, t.cfg.SpanOptions, data.Err)
	tracing.span.End()
}
