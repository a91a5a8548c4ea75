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
	"math"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"go.opentelemetry.io/otel/attribute"
	semconvlegacy "go.opentelemetry.io/otel/semconv/v1.17.0"
	semconv "go.opentelemetry.io/otel/semconv/v1.30.0"
)

func TestNewDBQueryTextAttributes(t *testing.T) {
	const query = "SELECT * FROM users"

	tests := []struct {
		name      string
		optInType OTelSemConvStabilityOptInType
		expected  []attribute.KeyValue
	}{
		{
			name:      "none",
			optInType: OTelSemConvStabilityOptInNone,
			expected: []attribute.KeyValue{
				semconvlegacy.DBStatement(query),
			},
		},
		{
			name:      "dup",
			optInType: OTelSemConvStabilityOptInDup,
			expected: []attribute.KeyValue{
				semconvlegacy.DBStatement(query),
				semconv.DBQueryText(query),
			},
		},
		{
			name:      "stable",
			optInType: OTelSemConvStabilityOptInStable,
			expected: []attribute.KeyValue{
				semconv.DBQueryText(query),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NewDBQueryTextAttributes(tt.optInType)(query))
		})
	}
}

func TestValidPort(t *testing.T) {
	tests := []struct {
		name     string
		port     float64
		expected int
		ok       bool
	}{
		{
			name:     "regular port",
			port:     5432,
			expected: 5432,
			ok:       true,
		},
		{
			name:     "zero",
			port:     0,
			expected: 0,
			ok:       true,
		},
		{
			name:     "negative integer",
			port:     -1,
			expected: -1,
			ok:       true,
		},
		{
			name:     "largest exactly representable integer",
			port:     1 << 53,
			expected: 1 << 53,
			ok:       true,
		},
		{
			name: "NaN",
			port: math.NaN(),
		},
		{
			name: "positive infinity",
			port: math.Inf(1),
		},
		{
			name: "negative infinity",
			port: math.Inf(-1),
		},
		{
			name: "fractional",
			port: 1.234,
		},
		{
			name: "beyond int range",
			port: math.MaxFloat64,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			port, ok := ValidPort(tt.port)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.expected, port)
		})
	}
}

func TestNewConnectionAttributes(t *testing.T) {
	tests := []struct {
		name      string
		optInType OTelSemConvStabilityOptInType
		cfg       ConnectionConfig
		expected  []attribute.KeyValue
	}{
		{
			name:      "none",
			optInType: OTelSemConvStabilityOptInNone,
			cfg: ConnectionConfig{
				Host:     "localhost",
				Port:     5432,
				Database: "main_db",
				User:     "user",
			},
			expected: []attribute.KeyValue{
				semconvlegacy.DBName("main_db"),
				semconvlegacy.DBUser("user"),
				semconvlegacy.NetPeerName("localhost"),
				semconvlegacy.NetPeerPort(5432),
			},
		},
		{
			name:      "stable",
			optInType: OTelSemConvStabilityOptInStable,
			cfg: ConnectionConfig{
				Host:     "localhost",
				Port:     5432,
				Database: "main_db",
				User:     "user",
			},
			expected: []attribute.KeyValue{
				semconv.DBNamespace("main_db"),
				semconv.ServerAddress("localhost"),
				semconv.ServerPort(5432),
			},
		},
		{
			name:      "dup",
			optInType: OTelSemConvStabilityOptInDup,
			cfg: ConnectionConfig{
				Host:     "localhost",
				Port:     5432,
				Database: "main_db",
				User:     "user",
			},
			expected: []attribute.KeyValue{
				semconvlegacy.DBName("main_db"),
				semconvlegacy.DBUser("user"),
				semconvlegacy.NetPeerName("localhost"),
				semconvlegacy.NetPeerPort(5432),
				semconv.DBNamespace("main_db"),
				semconv.ServerAddress("localhost"),
				semconv.ServerPort(5432),
			},
		},
		{
			name:      "NaN port is omitted",
			optInType: OTelSemConvStabilityOptInStable,
			cfg: ConnectionConfig{
				Host: "localhost",
				Port: math.NaN(),
			},
			expected: []attribute.KeyValue{
				semconv.ServerAddress("localhost"),
			},
		},
		{
			name:      "infinite port is omitted",
			optInType: OTelSemConvStabilityOptInStable,
			cfg: ConnectionConfig{
				Host: "localhost",
				Port: math.Inf(1),
			},
			expected: []attribute.KeyValue{
				semconv.ServerAddress("localhost"),
			},
		},
		{
			name:      "fractional port is omitted",
			optInType: OTelSemConvStabilityOptInStable,
			cfg: ConnectionConfig{
				Host: "localhost",
				Port: 1.234,
			},
			expected: []attribute.KeyValue{
				semconv.ServerAddress("localhost"),
			},
		},
		{
			name:      "empty config",
			optInType: OTelSemConvStabilityOptInStable,
			cfg: ConnectionConfig{
				Port: math.NaN(),
			},
			expected: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NewConnectionAttributes(tt.optInType)(tt.cfg))
		})
	}
}

func TestDBSystemAttributes(t *testing.T) {
	assert.Equal(t, []attribute.KeyValue{
		semconvlegacy.DBSystemPostgreSQL,
	}, DBSystemAttributes(OTelSemConvStabilityOptInNone))
	assert.Equal(t, []attribute.KeyValue{
		semconvlegacy.DBSystemPostgreSQL,
		semconv.DBSystemNamePostgreSQL,
	}, DBSystemAttributes(OTelSemConvStabilityOptInDup))
	assert.Equal(t, []attribute.KeyValue{
		semconv.DBSystemNamePostgreSQL,
	}, DBSystemAttributes(OTelSemConvStabilityOptInStable))
}

func TestNewPoolAttributes(t *testing.T) {
	const (
		name       = "localhost:5432/main_db"
		connString = "postgresql://localhost:5432/main_db"
	)

	tests := []struct {
		name      string
		optInType OTelSemConvStabilityOptInType
		expected  []attribute.KeyValue
	}{
		{
			name:      "none",
			optInType: OTelSemConvStabilityOptInNone,
			expected: []attribute.KeyValue{
				semconvlegacy.DBConnectionString(connString),
			},
		},
		{
			name:      "dup",
			optInType: OTelSemConvStabilityOptInDup,
			expected: []attribute.KeyValue{
				semconvlegacy.DBConnectionString(connString),
				semconv.DBClientConnectionPoolName(name),
			},
		},
		{
			name:      "stable",
			optInType: OTelSemConvStabilityOptInStable,
			expected: []attribute.KeyValue{
				semconv.DBClientConnectionPoolName(name),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NewPoolAttributes(tt.optInType)(name, connString))
		})
	}
}

func TestNewErrorTypeAttribute(t *testing.T) {
	tests := []struct {
		name      string
		optInType OTelSemConvStabilityOptInType
		err       error
		expected  []attribute.KeyValue
	}{
		{
			name:      "none mode emits nothing",
			optInType: OTelSemConvStabilityOptInNone,
			err:       errors.New("error"),
			expected:  nil,
		},
		{
			name:      "nil error",
			optInType: OTelSemConvStabilityOptInStable,
			err:       nil,
			expected:  nil,
		},
		{
			name:      "pg error uses SQLSTATE",
			optInType: OTelSemConvStabilityOptInStable,
			err:       &pgconn.PgError{Code: "23505"},
			expected: []attribute.KeyValue{
				semconv.ErrorTypeKey.String("23505"),
			},
		},
		{
			name:      "no rows",
			optInType: OTelSemConvStabilityOptInStable,
			err:       pgx.ErrNoRows,
			expected: []attribute.KeyValue{
				semconv.ErrorTypeKey.String("github.com/jackc/pgx/v5.ErrNoRows"),
			},
		},
		{
			name:      "plain error uses type name",
			optInType: OTelSemConvStabilityOptInDup,
			err:       errors.New("error"),
			expected: []attribute.KeyValue{
				semconv.ErrorTypeKey.String("*errors.errorString"),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NewErrorTypeAttribute(tt.optInType)(tt.err))
		})
	}
}
