/*
Copyright 2025.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package apierr

// JSON-RPC 2.0 reserved error codes (spec.md §4.5, §6).
const (
	JSONRPCParseError     = -32700
	JSONRPCMethodNotFound = -32601
	JSONRPCInvalidParams  = -32602
)

// jsonrpcCode maps each Kind into the reserved application range
// (-32000 to -32099) or onto -32602 for InvalidArgument, per spec.md §4.5.
var jsonrpcCode = map[Kind]int{
	InvalidArgument:    JSONRPCInvalidParams,
	InvalidCredentials: -32001,
	InvalidToken:       -32002,
	InvalidKey:         -32003,
	AccessDenied:       -32004,
	ToolNotFound:       -32005,
	ToolDisabled:       -32006,
	QuotaExceeded:      -32007,
	Timeout:            -32008,
	PayloadTooLarge:    -32009,
	UpstreamFailure:    -32010,
	Conflict:           -32011,
	Internal:           -32012,
}

// JSONRPCCode returns the application error code for a Kind.
func JSONRPCCode(kind Kind) int {
	if code, ok := jsonrpcCode[kind]; ok {
		return code
	}
	return -32012
}
