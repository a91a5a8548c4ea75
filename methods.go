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

// Method specifics an instrumented pgx operation.
type Method string

const (
	// MethodConnConnect represents establishing a connection to the server.
	MethodConnConnect Method = "pg.connect"
	// MethodConnQuery represents executing a query.
	MethodConnQuery Method = "pg.query"
	// MethodConnPrepare represents preparing a statement.
	MethodConnPrepare Method = "pg.prepare"
	// MethodBatch represents sending a batch of queries.
	MethodBatch Method = "pg.batch"
	// MethodCopyFrom represents a bulk copy into a table.
	MethodCopyFrom Method = "pg.copy_from"
)
