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
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// poolName derives a stable display name for a connection pool,
// "<host>:<port>/<database>". Fields are used literally, with no masking or
// validation; an absent host or database renders as an empty segment around
// the fixed separators, and the port renders as the numeric value pgx
// resolved.
func poolName(poolConfig *pgxpool.Config) string {
	if poolConfig == nil || poolConfig.ConnConfig == nil {
		return ":0/"
	}
	cc := poolConfig.ConnConfig
	return fmt.Sprintf("%s:%d/%s", cc.Host, cc.Port, cc.Database)
}

// PoolAttributes returns attributes describing a connection pool: the
// connection attributes of its target server plus the pool name and, under
// the legacy conventions, the connection string with credentials removed.
// Pass the result to WithAttributes when the tracer serves a pool.
func PoolAttributes(poolConfig *pgxpool.Config, options ...Option) []attribute.KeyValue {
	cfg := newConfig(options...)
	return poolAttributes(cfg, poolConfig)
}

func poolAttributes(cfg config, poolConfig *pgxpool.Config) []attribute.KeyValue {
	if poolConfig == nil {
		return nil
	}
	attrs := cfg.ConnectionAttributes(connectionConfig(poolConfig.ConnConfig))
	return append(attrs, cfg.PoolAttributes(poolName(poolConfig), maskConnString(poolConfig.ConnString()))...)
}

// RegisterPoolStatsMetrics registers pgxpool.Stat metrics with OTel
// instrumentation. Statistics are observed on every metric collection.
func RegisterPoolStatsMetrics(pool *pgxpool.Pool, options ...Option) error {
	cfg := newConfig(options...)
	meter := cfg.Meter

	instruments, err := newPoolStatsInstruments(meter)
	if err != nil {
		return err
	}

	attributes := append(cfg.Attributes, poolAttributes(cfg, pool.Config())...)
	observeOptions := []metric.ObserveOption{
		metric.WithAttributes(attributes...),
	}

	_, err = meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		stats := pool.Stat()

		o.ObserveInt64(instruments.connectionMaxOpen, int64(stats.MaxConns()), observeOptions...)
		o.ObserveInt64(instruments.connectionOpen, int64(stats.TotalConns()), observeOptions...)
		o.ObserveInt64(instruments.connectionIdle, int64(stats.IdleConns()), observeOptions...)
		o.ObserveInt64(instruments.connectionInUse, int64(stats.AcquiredConns()), observeOptions...)
		o.ObserveInt64(instruments.connectionConstructing, int64(stats.ConstructingConns()), observeOptions...)
		o.ObserveInt64(instruments.acquireTotal, stats.AcquireCount(), observeOptions...)
		o.ObserveFloat64(instruments.acquireDurationTotal, float64(stats.AcquireDuration().Nanoseconds())/1e6, observeOptions...)
		o.ObserveInt64(instruments.acquireEmptyTotal, stats.EmptyAcquireCount(), observeOptions...)
		o.ObserveInt64(instruments.acquireCanceledTotal, stats.CanceledAcquireCount(), observeOptions...)
		o.ObserveInt64(instruments.connectionNewTotal, stats.NewConnsCount(), observeOptions...)
		o.ObserveInt64(instruments.connectionClosedMaxIdle, stats.MaxIdleDestroyCount(), observeOptions...)
		o.ObserveInt64(instruments.connectionClosedMaxLifetime, stats.MaxLifetimeDestroyCount(), observeOptions...)
		return nil
	},
		instruments.connectionMaxOpen,
		instruments.connectionOpen,
		instruments.connectionIdle,
		instruments.connectionInUse,
		instruments.connectionConstructing,
		instruments.acquireTotal,
		instruments.acquireDurationTotal,
		instruments.acquireEmptyTotal,
		instruments.acquireCanceledTotal,
		instruments.connectionNewTotal,
		instruments.connectionClosedMaxIdle,
		instruments.connectionClosedMaxLifetime,
	)
	return err
}
