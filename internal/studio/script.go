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
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/ajsinha/sajhamcpserver-sub001/internal/apierr"
	"github.com/ajsinha/sajhamcpserver-sub001/internal/registry"
)

var scriptInterpreters = map[string]struct {
	interpreter string
	ext         string
	shebang     string
}{
	"shell":      {"/bin/sh", ".sh", "#!/bin/sh\n"},
	"bash":       {"/bin/bash", ".sh", "#!/bin/bash\n"},
	"python":     {"python3", ".py", "#!/usr/bin/env python3\n"},
	"node":       {"node", ".js", "#!/usr/bin/env node\n"},
	"perl":       {"perl", ".pl", "#!/usr/bin/env perl\n"},
	"ruby":       {"ruby", ".rb", "#!/usr/bin/env ruby\n"},
	"powershell": {"pwsh", ".ps1", ""},
}

// ScriptGenerator compiles a script body into a handler that writes it to
// a temporary file, runs it under the corresponding interpreter with a
// strictly enforced timeout, and returns its stdout/stderr/exit code.
type ScriptGenerator struct{}

// NewScriptGenerator returns a script tool generator.
func NewScriptGenerator() *ScriptGenerator { return &ScriptGenerator{} }

func (g *ScriptGenerator) Validate(spec map[string]any) error {
	if _, err := requireString(spec, "name"); err != nil {
		return err
	}
	if stringField(spec, "executor") == "grpc_sidecar" {
		_, err := requireString(spec, "grpc_endpoint")
		return err
	}

	kind, err := requireString(spec, "script_kind")
	if err != nil {
		return err
	}
	if _, ok := scriptInterpreters[kind]; !ok {
		return apierr.Newf(apierr.InvalidArgument, "unsupported script_kind %q", kind)
	}
	if _, err := requireString(spec, "script_body"); err != nil {
		return err
	}
	return nil
}

func (g *ScriptGenerator) Render(spec map[string]any) (registry.ToolDefinition, registry.Handler, error) {
	def, err := baseDefinition(spec, registry.SourceScript)
	if err != nil {
		return registry.ToolDefinition{}, nil, err
	}

	if stringField(spec, "executor") == "grpc_sidecar" {
		timeout := time.Duration(intField(spec, "timeout_seconds", 30)) * time.Second
		handler, err := newGRPCScriptHandler(stringField(spec, "grpc_endpoint"), timeout)
		if err != nil {
			return registry.ToolDefinition{}, nil, err
		}
		return def, handler, nil
	}

	kind := stringField(spec, "script_kind")
	descriptor := scriptInterpreters[kind]
	body := stringField(spec, "script_body")
	workDir := stringField(spec, "working_dir")
	env := stringMapField(spec, "environment")
	timeout := time.Duration(intField(spec, "timeout_seconds", 30)) * time.Second

	handler := registry.NewGenericHandler(registry.SourceScript, func(ctx context.Context, arguments map[string]any) (*registry.Result, error) {
		return runScript(ctx, descriptor.interpreter, descriptor.ext, descriptor.shebang, body, workDir, env, timeout, argumentStrings(arguments))
	})

	return def, handler, nil
}

func argumentStrings(arguments map[string]any) []string {
	if raw, ok := arguments["args"].([]any); ok {
		out := make([]string, 0, len(raw))
		for _, v := range raw {
			out = append(out, fmt.Sprintf("%v", v))
		}
		return out
	}
	return nil
}

func runScript(ctx context.Context, interpreter, ext, shebang, body, workDir string, env map[string]string, timeout time.Duration, args []string) (*registry.Result, error) {
	dir, err := os.MkdirTemp("", "sajha-script-*")
	if err != nil {
		return nil, apierr.Wrap(apierr.Internal, "create script temp dir", err)
	}
	defer os.RemoveAll(dir)

	scriptPath := filepath.Join(dir, "script"+ext)
	contents := body
	if shebang != "" {
		contents = shebang + body
	}
	if err := os.WriteFile(scriptPath, []byte(contents), 0o700); err != nil {
		return nil, apierr.Wrap(apierr.Internal, "write script file", err)
	}

	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmdArgs := append([]string{scriptPath}, args...)
	cmd := exec.CommandContext(runCtx, interpreter, cmdArgs...)
	if workDir != "" {
		cmd.Dir = workDir
	}
	cmd.Env = os.Environ()
	for k, v := range env {
		cmd.Env = append(cmd.Env, k+"="+v)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()

	if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		return nil, apierr.Newf(apierr.Timeout, "script exceeded %s timeout", timeout)
	}

	exitCode := 0
	success := true
	if runErr != nil {
		success = false
		var exitErr *exec.ExitError
		if errors.As(runErr, &exitErr) {
			exitCode = exitErr.ExitCode()
		} else {
			exitCode = -1
		}
	}

	return &registry.Result{Content: map[string]any{
		"stdout":    stdout.String(),
		"stderr":    stderr.String(),
		"exit_code": exitCode,
		"success":   success,
	}}, nil
}
