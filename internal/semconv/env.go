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
	"os"
	"strings"
)

// OTelSemConvStabilityOptIn is an environment variable.
// That can be set to "database" or "database/dup" to opt into the
// stable semantic conventions for database client spans and metrics.
const OTelSemConvStabilityOptIn = "OTEL_SEMCONV_STABILITY_OPT_IN"

// OTelSemConvStabilityOptInType represents the type of semantic conventions stability opt-in.
type OTelSemConvStabilityOptInType int

const (
	// OTelSemConvStabilityOptInNone emits only the legacy semantic conventions.
	OTelSemConvStabilityOptInNone OTelSemConvStabilityOptInType = iota
	// OTelSemConvStabilityOptInDup emits both the legacy and the stable semantic conventions.
	OTelSemConvStabilityOptInDup
	// OTelSemConvStabilityOptInStable emits only the stable semantic conventions.
	OTelSemConvStabilityOptInStable
)

// ParseOTelSemConvStabilityOptIn reads the OTelSemConvStabilityOptIn
// environment variable and determines which semantic conventions to emit.
// "database/dup" takes precedence over "database".
func ParseOTelSemConvStabilityOptIn() OTelSemConvStabilityOptInType {
	var stable bool
	for entry := range strings.SplitSeq(os.Getenv(OTelSemConvStabilityOptIn), ",") {
		switch strings.TrimSpace(entry) {
		case "database/dup":
			return OTelSemConvStabilityOptInDup
		case "database":
			stable = true
		}
	}
	if stable {
		return OTelSemConvStabilityOptInStable
	}
	return OTelSemConvStabilityOptInNone
}
