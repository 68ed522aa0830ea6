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

package studio

import (
	"context"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/ajsinha/sajhamcpserver-sub001/internal/apierr"
	"github.com/ajsinha/sajhamcpserver-sub001/internal/registry"
)

// grpcExecuteMethod is the fixed, well-known RPC path every sidecar
// executor implements: one unary method taking a google.protobuf.Struct
// of call arguments and returning a google.protobuf.Struct of results.
// Scripts proxied this way carry no generated client stub (the sidecar
// contract is the wire shape, not a specific .proto package), grounded on
// internal/runtime/tools/grpc_adapter.go's bare grpc.ClientConn dial plus
// generated-client-call shape, narrowed to a single fixed method since
// SAJHA's sidecar has no tool-discovery RPC to proxy.
const grpcExecuteMethod = "/sajha.studio.v1.ScriptExecutor/Execute"

// newGRPCScriptHandler builds a handler that proxies a script invocation to
// a sidecar executor process over gRPC instead of running it as a local
// subprocess, for spec["executor"] == "grpc_sidecar" documents.
func newGRPCScriptHandler(endpoint string, timeout time.Duration) (registry.Handler, error) {
	conn, err := grpc.NewClient(endpoint, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, apierr.Wrap(apierr.Internal, "dial script sidecar", err)
	}

	return registry.NewGenericHandler(registry.SourceScript, func(ctx context.Context, arguments map[string]any) (*registry.Result, error) {
		req, err := structpb.NewStruct(arguments)
		if err != nil {
			return nil, apierr.Wrap(apierr.InvalidArgument, "encode sidecar request", err)
		}

		callCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		resp := &structpb.Struct{}
		if err := conn.Invoke(callCtx, grpcExecuteMethod, req, resp); err != nil {
			return nil, apierr.Wrap(apierr.UpstreamFailure, "invoke script sidecar", err)
		}

		return &registry.Result{Content: resp.AsMap()}, nil
	}), nil
}
