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

	"github.com/stretchr/testify/assert"
	"go.opentelemetry.io/otel/attribute"
	semconvlegacy "go.opentelemetry.io/otel/semconv/v1.17.0"
	semconv "go.opentelemetry.io/otel/semconv/v1.30.0"

	internalsemconv "github.com/XSAM/otelpg/internal/semconv"
)

func TestNewConfig(t *testing.T) {
	t.Setenv(internalsemconv.OTelSemConvStabilityOptIn, "")

	cfg := newConfig()

	assert.NotNil(t, cfg.TracerProvider)
	assert.NotNil(t, cfg.Tracer)
	assert.NotNil(t, cfg.MeterProvider)
	assert.NotNil(t, cfg.Meter)
	assert.Equal(t, internalsemconv.OTelSemConvStabilityOptInNone, cfg.SemConvStabilityOptIn)
	assert.Equal(t, []attribute.KeyValue{semconvlegacy.DBSystemPostgreSQL}, cfg.Attributes)
	assert.Nil(t, cfg.SpanNameFormatter)
	assert.NotNil(t, cfg.DBQueryTextAttributes)
	assert.NotNil(t, cfg.ConnectionAttributes)
	assert.NotNil(t, cfg.DBCollectionAttributes)
	assert.NotNil(t, cfg.PoolAttributes)
	assert.NotNil(t, cfg.ErrorTypeAttributes)
}

func TestNewConfigWithAttributes(t *testing.T) {
	t.Setenv(internalsemconv.OTelSemConvStabilityOptIn, "database")

	cfg := newConfig(WithAttributes(defaultattribute))

	// User attributes come first, the db.system attribute of the selected
	// convention set is appended.
	assert.Equal(t, []attribute.KeyValue{
		defaultattribute,
		semconv.DBSystemNamePostgreSQL,
	}, cfg.Attributes)
}

func TestNewConfigStabilityOptIn(t *testing.T) {
	t.Setenv(internalsemconv.OTelSemConvStabilityOptIn, "database/dup")

	cfg := newConfig()

	assert.Equal(t, internalsemconv.OTelSemConvStabilityOptInDup, cfg.SemConvStabilityOptIn)
	assert.Equal(t, []attribute.KeyValue{
		semconvlegacy.DBSystemPostgreSQL,
		semconv.DBSystemNamePostgreSQL,
	}, cfg.Attributes)
}
