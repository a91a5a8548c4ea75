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

package semconv

import (
	"errors"
	"fmt"
	"math"
	"reflect"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.opentelemetry.io/otel/attribute"
	semconvlegacy "go.opentelemetry.io/otel/semconv/v1.17.0"
	semconv "go.opentelemetry.io/otel/semconv/v1.30.0"
)

// ConnectionConfig is a read-only snapshot of the driver connection
// settings relevant to telemetry. Zero-value strings mean the field is
// absent. Port is float-typed so that values coming from untrusted or
// partially parsed configuration (NaN, infinities, fractions) can be
// carried as-is and rejected by ValidPort instead of being coerced.
type ConnectionConfig struct {
	Host     string
	Port     float64
	Database string
	User     string
}

// ValidPort converts a float-typed port to an int attribute value. A port
// is usable only when it is finite, integral, and within the int range;
// anything else reports false and the attribute must be left unset.
func ValidPort(port float64) (int, bool) {
	if math.IsNaN(port) || math.IsInf(port, 0) {
		return 0, false
	}
	if math.Trunc(port) != port {
		return 0, false
	}
	if port < math.MinInt64 || port >= math.MaxInt64 {
		return 0, false
	}
	return int(port), true
}

// DBSystemAttributes returns the db.system attributes for PostgreSQL
// based on the provided OTelSemConvStabilityOptInType.
func DBSystemAttributes(optInType OTelSemConvStabilityOptInType) []attribute.KeyValue {
	switch optInType {
	case OTelSemConvStabilityOptInDup:
		return []attribute.KeyValue{
			semconvlegacy.DBSystemPostgreSQL,
			semconv.DBSystemNamePostgreSQL,
		}
	case OTelSemConvStabilityOptInStable:
		return []attribute.KeyValue{
			semconv.DBSystemNamePostgreSQL,
		}
	default:
		return []attribute.KeyValue{
			semconvlegacy.DBSystemPostgreSQL,
		}
	}
}

// NewDBQueryTextAttributes returns a function that generates appropriate database query attributes
// based on the provided OTelSemConvStabilityOptInType.
//
//   - OTelSemConvStabilityOptInNone: Only legacy db.statement attribute
//   - OTelSemConvStabilityOptInDup: Both legacy db.statement and stable db.query.text attributes
//   - OTelSemConvStabilityOptInStable: Only stable db.query.text attribute
func NewDBQueryTextAttributes(optInType OTelSemConvStabilityOptInType) func(query string) []attribute.KeyValue {
	switch optInType {
	case OTelSemConvStabilityOptInDup:
		return func(query string) []attribute.KeyValue {
			return []attribute.KeyValue{
				semconvlegacy.DBStatement(query),
				semconv.DBQueryText(query),
			}
		}
	case OTelSemConvStabilityOptInStable:
		return func(query string) []attribute.KeyValue {
			return []attribute.KeyValue{
				semconv.DBQueryText(query),
			}
		}
	default:
		return func(query string) []attribute.KeyValue {
			return []attribute.KeyValue{
				semconvlegacy.DBStatement(query),
			}
		}
	}
}

// NewConnectionAttributes returns a function that maps a ConnectionConfig
// to span attributes based on the provided OTelSemConvStabilityOptInType.
// A field that is absent or fails validation produces no attribute at all;
// the result never contains a key with an empty placeholder value.
func NewConnectionAttributes(optInType OTelSemConvStabilityOptInType) func(cfg ConnectionConfig) []attribute.KeyValue {
	switch optInType {
	case OTelSemConvStabilityOptInDup:
		return func(cfg ConnectionConfig) []attribute.KeyValue {
			return append(legacyConnectionAttributes(cfg), stableConnectionAttributes(cfg)...)
		}
	case OTelSemConvStabilityOptInStable:
		return stableConnectionAttributes
	default:
		return legacyConnectionAttributes
	}
}

func legacyConnectionAttributes(cfg ConnectionConfig) []attribute.KeyValue {
	var attrs []attribute.KeyValue
	if cfg.Database != "" {
		attrs = append(attrs, semconvlegacy.DBName(cfg.Database))
	}
	if cfg.User != "" {
		attrs = append(attrs, semconvlegacy.DBUser(cfg.User))
	}
	if cfg.Host != "" {
		attrs = append(attrs, semconvlegacy.NetPeerName(cfg.Host))
	}
	if port, ok := ValidPort(cfg.Port); ok {
		attrs = append(attrs, semconvlegacy.NetPeerPort(port))
	}
	return attrs
}

func stableConnectionAttributes(cfg ConnectionConfig) []attribute.KeyValue {
	var attrs []attribute.KeyValue
	if cfg.Database != "" {
		attrs = append(attrs, semconv.DBNamespace(cfg.Database))
	}
	if cfg.Host != "" {
		attrs = append(attrs, semconv.ServerAddress(cfg.Host))
	}
	if port, ok := ValidPort(cfg.Port); ok {
		attrs = append(attrs, semconv.ServerPort(port))
	}
	return attrs
}

// NewPoolAttributes returns a function that generates connection pool
// attributes from a pool display name and an already sanitized connection
// string, based on the provided OTelSemConvStabilityOptInType.
func NewPoolAttributes(optInType OTelSemConvStabilityOptInType) func(name, connString string) []attribute.KeyValue {
	switch optInType {
	case OTelSemConvStabilityOptInDup:
		return func(name, connString string) []attribute.KeyValue {
			return []attribute.KeyValue{
				semconvlegacy.DBConnectionString(connString),
				semconv.DBClientConnectionPoolName(name),
			}
		}
	case OTelSemConvStabilityOptInStable:
		return func(name, connString string) []attribute.KeyValue {
			return []attribute.KeyValue{
				semconv.DBClientConnectionPoolName(name),
			}
		}
	default:
		return func(name, connString string) []attribute.KeyValue {
			return []attribute.KeyValue{
				semconvlegacy.DBConnectionString(connString),
			}
		}
	}
}

// NewDBCollectionAttributes returns a function that generates table name
// attributes for bulk copy operations based on the provided
// OTelSemConvStabilityOptInType.
func NewDBCollectionAttributes(optInType OTelSemConvStabilityOptInType) func(table string) []attribute.KeyValue {
	switch optInType {
	case OTelSemConvStabilityOptInDup:
		return func(table string) []attribute.KeyValue {
			return []attribute.KeyValue{
				semconvlegacy.DBSQLTable(table),
				semconv.DBCollectionName(table),
			}
		}
	case OTelSemConvStabilityOptInStable:
		return func(table string) []attribute.KeyValue {
			return []attribute.KeyValue{
				semconv.DBCollectionName(table),
			}
		}
	default:
		return func(table string) []attribute.KeyValue {
			return []attribute.KeyValue{
				semconvlegacy.DBSQLTable(table),
			}
		}
	}
}

// NewErrorTypeAttribute returns a function that generates the stable
// error.type attribute based on the provided OTelSemConvStabilityOptInType.
// Under OTelSemConvStabilityOptInNone it returns nothing since the legacy
// conventions have no equivalent.
func NewErrorTypeAttribute(optInType OTelSemConvStabilityOptInType) func(err error) []attribute.KeyValue {
	return func(err error) []attribute.KeyValue {
		if optInType == OTelSemConvStabilityOptInNone {
			return nil
		}

		return errorType(err)
	}
}

// errorType converts an error to a slice of attribute.KeyValue.
func errorType(err error) []attribute.KeyValue {
	if err == nil {
		return nil
	}

	// PostgreSQL server errors carry a SQLSTATE code, which the database
	// conventions prefer over a type name.
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code != "" {
		return []attribute.KeyValue{semconv.ErrorTypeKey.String(pgErr.Code)}
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return []attribute.KeyValue{semconv.ErrorTypeKey.String("github.com/jackc/pgx/v5.ErrNoRows")}
	}

	t := reflect.TypeOf(err)
	var value string
	if t.PkgPath() == "" && t.Name() == "" {
		// Likely a builtin type.
		value = t.String()
	} else {
		value = fmt.Sprintf("%s.%s", t.PkgPath(), t.Name())
	}

	if value == "" {
		return []attribute.KeyValue{semconv.ErrorTypeOther}
	}

	return []attribute.KeyValue{semconv.ErrorTypeKey.String(value)}
}
