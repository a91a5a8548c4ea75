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
	"errors"
	"math"
	"net/url"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	semconv "go.opentelemetry.io/otel/semconv/v1.30.0"
	"go.opentelemetry.io/otel/trace"

	internalsemconv "github.com/XSAM/otelpg/internal/semconv"
)

var timeNow = time.Now

// defaultMaskedConnString is returned when a connection string cannot be
// parsed. It is a degraded but safe value, never an error.
const defaultMaskedConnString = "postgresql://localhost:5432/"

// sqlOperationName returns the leading SQL keyword of stmt in uppercase,
// e.g. "SELECT". It returns an empty string when no usable text is
// available. No SQL grammar validation is performed, so any leading token
// is accepted verbatim.
func sqlOperationName(stmt string) string {
	stmt = strings.TrimSuffix(strings.TrimSpace(stmt), ";")
	for word := range strings.FieldsSeq(stmt) {
		return strings.ToUpper(word)
	}
	return ""
}

// spanNameQuery carries the parts of a call that participate in span
// naming. A nil *spanNameQuery means the call has no query at all.
type spanNameQuery struct {
	// Name is the prepared statement name, which wins over SQL when set.
	Name string
	SQL  string
}

// querySpanName builds the span name for a call. The name starts with the
// method marker, optionally followed by ":<identifier>" where the
// identifier is the prepared statement name or the leading SQL operation
// token, optionally followed by " <database>". A call without any query
// yields the bare marker.
func querySpanName(method Method, database string, query *spanNameQuery) string {
	name := string(method)
	if query == nil {
		return name
	}

	identifier := query.Name
	if identifier == "" {
		identifier = sqlOperationName(query.SQL)
	}
	if identifier != "" {
		name += ":" + identifier
	}
	if database != "" {
		name += " " + database
	}
	return name
}

// maskConnString removes any credential material embedded in a URL-shaped
// connection string, preserving scheme, host, port, path, and query
// parameters verbatim. Input that cannot be parsed as a URL with an
// authority component degrades to defaultMaskedConnString.
func maskConnString(connString string) string {
	u, err := url.Parse(connString)
	if err != nil || u.Host == "" {
		return defaultMaskedConnString
	}
	u.User = nil
	return u.String()
}

// connectionConfig converts pgx connection settings to the internal
// snapshot. A zero port means pgx has no resolved port, which maps to NaN
// so the attribute is omitted.
func connectionConfig(cc *pgx.ConnConfig) internalsemconv.ConnectionConfig {
	if cc == nil {
		return internalsemconv.ConnectionConfig{Port: math.NaN()}
	}
	port := float64(cc.Port)
	if cc.Port == 0 {
		port = math.NaN()
	}
	return internalsemconv.ConnectionConfig{
		Host:     cc.Host,
		Port:     port,
		Database: cc.Database,
		User:     cc.User,
	}
}

// configOfConn is nil-safe access to a connection's settings, so hooks can
// run against connections that never materialized.
func configOfConn(conn *pgx.Conn) *pgx.ConnConfig {
	if conn == nil {
		return nil
	}
	return conn.Config()
}

func connDatabase(conn *pgx.Conn) string {
	if cc := configOfConn(conn); cc != nil {
		return cc.Database
	}
	return ""
}

// skipSpan reports whether instrumentation of the call should be skipped
// entirely. It never skips unless RequireParentSpan is set, in which case
// only calls without a parent span in their context are skipped.
func skipSpan(ctx context.Context, opts SpanOptions) bool {
	if !opts.RequireParentSpan {
		return false
	}
	return !trace.SpanContextFromContext(ctx).IsValid()
}

func filterSpan(
	ctx context.Context,
	spanOptions SpanOptions,
	method Method,
	query string,
	args []any,
) bool {
	return spanOptions.SpanFilter == nil || spanOptions.SpanFilter(ctx, method, query, args)
}

func recordSpanError(span trace.Span, opts SpanOptions, err error) {
	if span == nil || err == nil {
		return
	}
	if opts.RecordError != nil && !opts.RecordError(err) {
		return
	}
	if opts.DisableErrNoRows && errors.Is(err, pgx.ErrNoRows) {
		return
	}

	span.RecordError(err)
	span.SetStatus(codes.Error, "")
}

func recordLegacyLatency(
	ctx context.Context,
	instruments *instruments,
	cfg config,
	duration float64,
	attributes []attribute.KeyValue,
	method Method,
	err error,
) {
	attributes = append(attributes, queryMethodKey.String(string(method)))

	if err != nil && !(cfg.DisableErrNoRowsMeasurement && errors.Is(err, pgx.ErrNoRows)) {
		attributes = append(attributes, queryStatusKey.String("error"))
	} else {
		attributes = append(attributes, queryStatusKey.String("ok"))
	}

	instruments.legacyLatency.Record(
		ctx,
		duration*1e3,
		metric.WithAttributes(attributes...),
	)
}

func recordDuration(
	ctx context.Context,
	instruments *instruments,
	cfg config,
	duration float64,
	attributes []attribute.KeyValue,
	method Method,
	err error,
) {
	attributes = append(attributes, semconv.DBOperationName(string(method)))
	if err != nil && !(cfg.DisableErrNoRowsMeasurement && errors.Is(err, pgx.ErrNoRows)) {
		attributes = append(attributes, cfg.ErrorTypeAttributes(err)...)
	}

	instruments.duration.Record(
		ctx,
		duration,
		metric.WithAttributes(attributes...),
	)
}

func recordMetric(
	ctx context.Context,
	instruments *instruments,
	cfg config,
	method Method,
	query string,
	args []any,
) func(error) {
	startTime := timeNow()

	return func(err error) {
		endTime := timeNow()
		// Convert nanoseconds to seconds
		duration := float64(endTime.Sub(startTime).Nanoseconds()) / 1e9

		attributes := cfg.Attributes
		if cfg.InstrumentAttributesGetter != nil {
			attributes = append(attributes, cfg.InstrumentAttributesGetter(ctx, method, query, args)...)
		}
		if err != nil {
			if cfg.InstrumentErrorAttributesGetter != nil {
				attributes = append(attributes, cfg.InstrumentErrorAttributesGetter(err)...)
			}
		}

		switch cfg.SemConvStabilityOptIn {
		case internalsemconv.OTelSemConvStabilityOptInStable:
			recordDuration(ctx, instruments, cfg, duration, attributes, method, err)
		case internalsemconv.OTelSemConvStabilityOptInDup:
			recordLegacyLatency(ctx, instruments, cfg, duration, attributes, method, err)
			recordDuration(ctx, instruments, cfg, duration, attributes, method, err)
		case internalsemconv.OTelSemConvStabilityOptInNone:
			recordLegacyLatency(ctx, instruments, cfg, duration, attributes, method, err)
		}
	}
}

func createSpan(
	ctx context.Context,
	cfg config,
	method Method,
	spanName string,
	enableDBStatement bool,
	query string,
	args []any,
	cc *pgx.ConnConfig,
) (context.Context, trace.Span) {
	attrs := cfg.Attributes
	if cc != nil {
		attrs = append(attrs, cfg.ConnectionAttributes(connectionConfig(cc))...)
	}
	if enableDBStatement && !cfg.SpanOptions.DisableQuery {
		attrs = append(attrs, cfg.DBQueryTextAttributes(query)...)
	}
	if cfg.AttributesGetter != nil {
		attrs = append(attrs, cfg.AttributesGetter(ctx, method, query, args)...)
	}

	return cfg.Tracer.Start(ctx, spanName,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attrs...),
	)
}

// spanName resolves the span name through the configured formatter, or the
// default naming policy when none is set.
func spanName(ctx context.Context, cfg config, method Method, database string, query *spanNameQuery) string {
	if cfg.SpanNameFormatter != nil {
		var sql string
		if query != nil {
			sql = query.SQL
		}
		return cfg.SpanNameFormatter(ctx, method, sql)
	}
	return querySpanName(method, database, query)
}
