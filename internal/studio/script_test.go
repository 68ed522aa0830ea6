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
	"os/exec"
	"testing"

	"github.com/stretchr/testify/require"
)

func requireShell(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("/bin/sh"); err != nil {
		t.Skip("no /bin/sh available")
	}
}

func TestScriptGeneratorValidateRejectsUnknownKind(t *testing.T) {
	g := NewScriptGenerator()
	err := g.Validate(map[string]any{"name": "run", "script_kind": "cobol", "script_body": "x"})
	require.Error(t, err)
}

func TestScriptGeneratorRunsShellAndCapturesOutput(t *testing.T) {
	requireShell(t)
	g := NewScriptGenerator()
	spec := map[string]any{
		"name":            "echo_args",
		"script_kind":     "shell",
		"script_body":     "echo hello \"$1\"",
		"timeout_seconds": 5,
	}
	require.NoError(t, g.Validate(spec))
	_, handler, err := g.Render(spec)
	require.NoError(t, err)

	result, err := handler.Execute(context.Background(), map[string]any{"args": []any{"world"}})
	require.NoError(t, err)
	content := result.Content.(map[string]any)
	require.Contains(t, content["stdout"], "hello world")
	require.Equal(t, 0, content["exit_code"])
	require.True(t, content["success"].(bool))
}

func TestScriptGeneratorEnforcesTimeout(t *testing.T) {
	requireShell(t)
	g := NewScriptGenerator()
	spec := map[string]any{
		"name":            "sleeper",
		"script_kind":     "shell",
		"script_body":     "sleep 5",
		"timeout_seconds": 1,
	}
	_, handler, err := g.Render(spec)
	require.NoError(t, err)

	_, err = handler.Execute(context.Background(), nil)
	require.Error(t, err)
}

func TestScriptGeneratorReportsNonZeroExit(t *testing.T) {
	requireShell(t)
	g := NewScriptGenerator()
	spec := map[string]any{
		"name":            "failer",
		"script_kind":     "shell",
		"script_body":     "exit 3",
		"timeout_seconds": 5,
	}
	_, handler, err := g.Render(spec)
	require.NoError(t, err)

	result, err := handler.Execute(context.Background(), nil)
	require.NoError(t, err)
	content := result.Content.(map[string]any)
	require.Equal(t, 3, content["exit_code"])
	require.False(t, content["success"].(bool))
}
