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
	"net"
	"testing"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// scriptExecutorServiceDesc registers the one fixed Execute method a
// sidecar script executor implements, without any generated client/server
// stub: the handler decodes/encodes google.protobuf.Struct directly.
func scriptExecutorServiceDesc(execute func(context.Context, *structpb.Struct) (*structpb.Struct, error)) grpc.ServiceDesc {
	return grpc.ServiceDesc{
		ServiceName: "sajha.studio.v1.ScriptExecutor",
		Methods: []grpc.MethodDesc{
			{
				MethodName: "Execute",
				Handler: func(srv any, ctx context.Context, dec func(any) error, _ grpc.UnaryServerInterceptor) (any, error) {
					req := &structpb.Struct{}
					if err := dec(req); err != nil {
						return nil, err
					}
					return execute(ctx, req)
				},
			},
		},
		Metadata: "sajha/studio/v1/script_executor.proto",
	}
}

func startTestScriptExecutor(t *testing.T, execute func(context.Context, *structpb.Struct) (*structpb.Struct, error)) string {
	t.Helper()
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	srv := grpc.NewServer()
	desc := scriptExecutorServiceDesc(execute)
	srv.RegisterService(&desc, nil)
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	return lis.Addr().String()
}

func TestScriptGeneratorGRPCSidecarExecutesAndReturnsResult(t *testing.T) {
	addr := startTestScriptExecutor(t, func(_ context.Context, req *structpb.Struct) (*structpb.Struct, error) {
		resp, err := structpb.NewStruct(map[string]any{"echoed": req.AsMap()})
		require.NoError(t, err)
		return resp, nil
	})

	g := NewScriptGenerator()
	spec := map[string]any{
		"name":            "run_sidecar_script",
		"executor":        "grpc_sidecar",
		"grpc_endpoint":   addr,
		"timeout_seconds": 5.0,
	}
	require.NoError(t, g.Validate(spec))
	_, handler, err := g.Render(spec)
	require.NoError(t, err)

	result, err := handler.Execute(context.Background(), map[string]any{"input": "hi"})
	require.NoError(t, err)
	content, ok := result.Content.(map[string]any)
	require.True(t, ok)
	require.Contains(t, content, "echoed")
}

func TestScriptGeneratorValidateGRPCSidecarRequiresEndpoint(t *testing.T) {
	g := NewScriptGenerator()
	err := g.Validate(map[string]any{"name": "run_sidecar_script", "executor": "grpc_sidecar"})
	require.Error(t, err)
}
