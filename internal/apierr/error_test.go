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

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindOf(t *testing.T) {
	wrapped := errors.New("boom")
	classified := Wrap(UpstreamFailure, "rest call failed", wrapped)

	assert.Equal(t, UpstreamFailure, KindOf(classified))
	assert.Equal(t, Internal, KindOf(wrapped))
	assert.ErrorIs(t, classified, wrapped)
}

func TestWithPaths(t *testing.T) {
	err := New(InvalidArgument, "validation failed").WithPaths("arguments.symbol", "arguments.limit")
	require.Len(t, err.Paths, 2)
	assert.Equal(t, "arguments.symbol", err.Paths[0])
}

func TestHTTPStatusTable(t *testing.T) {
	cases := map[Kind]int{
		InvalidArgument: http.StatusBadRequest,
		AccessDenied:    http.StatusForbidden,
		ToolNotFound:    http.StatusNotFound,
		ToolDisabled:    http.StatusConflict,
		QuotaExceeded:   http.StatusTooManyRequests,
		Timeout:         http.StatusGatewayTimeout,
		PayloadTooLarge: http.StatusRequestEntityTooLarge,
		Internal:        http.StatusInternalServerError,
	}
	for kind, want := range cases {
		assert.Equal(t, want, HTTPStatus(kind), "kind=%s", kind)
	}
}

func TestJSONRPCCodeDefaultsToInternal(t *testing.T) {
	assert.Equal(t, -32012, JSONRPCCode(Kind("unknown")))
	assert.Equal(t, JSONRPCInvalidParams, JSONRPCCode(InvalidArgument))
}
