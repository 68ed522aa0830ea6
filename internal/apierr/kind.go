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

// Package apierr defines the closed error-classification taxonomy shared by
// the registry, envelope, auth, access, mcp, and REST layers.
package apierr

// Kind is a closed classification of an execution failure. Every layer of
// SAJHA maps its errors into one of these kinds so that a single table
// (see http.go and jsonrpc.go) can translate any failure to its wire shape.
type Kind string

const (
	InvalidArgument     Kind = "InvalidArgument"
	InvalidCredentials  Kind = "InvalidCredentials"
	InvalidToken        Kind = "InvalidToken"
	InvalidKey          Kind = "InvalidKey"
	AccessDenied        Kind = "AccessDenied"
	ToolNotFound        Kind = "ToolNotFound"
	ToolDisabled        Kind = "ToolDisabled"
	QuotaExceeded       Kind = "QuotaExceeded"
	Timeout             Kind = "Timeout"
	PayloadTooLarge     Kind = "PayloadTooLarge"
	UpstreamFailure     Kind = "UpstreamFailure"
	Conflict            Kind = "Conflict"
	Internal            Kind = "Internal"
)
