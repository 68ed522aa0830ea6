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

import "net/http"

// httpStatus maps each Kind to the REST status code documented in spec.md §7.
var httpStatus = map[Kind]int{
	InvalidArgument:    http.StatusBadRequest,
	InvalidCredentials: http.StatusUnauthorized,
	InvalidToken:       http.StatusUnauthorized,
	InvalidKey:         http.StatusUnauthorized,
	AccessDenied:       http.StatusForbidden,
	ToolNotFound:       http.StatusNotFound,
	ToolDisabled:       http.StatusConflict,
	QuotaExceeded:      http.StatusTooManyRequests,
	Timeout:            http.StatusGatewayTimeout,
	PayloadTooLarge:    http.StatusRequestEntityTooLarge,
	UpstreamFailure:    http.StatusBadGateway,
	Conflict:           http.StatusConflict,
	Internal:           http.StatusInternalServerError,
}

// HTTPStatus returns the REST status code for a Kind, defaulting to 500.
func HTTPStatus(kind Kind) int {
	if code, ok := httpStatus[kind]; ok {
		return code
	}
	return http.StatusInternalServerError
}
