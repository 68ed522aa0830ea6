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

package registry

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajsinha/sajhamcpserver-sub001/internal/apierr"
)

type echoHandler struct{}

func (echoHandler) Execute(_ context.Context, args map[string]any) (*Result, error) {
	return &Result{Content: args}, nil
}

func newEchoDef(name string) ToolDefinition {
	return ToolDefinition{
		Name:    name,
		Enabled: true,
		Metadata: Metadata{
			Source: SourceNative,
		},
	}
}

func TestRegisterDuplicateConflict(t *testing.T) {
	r := New(logr.Discard())
	require.NoError(t, r.Register(newEchoDef("echo"), echoHandler{}))

	err := r.Register(newEchoDef("echo"), echoHandler{})
	require.Error(t, err)
	assert.Equal(t, apierr.Conflict, apierr.KindOf(err))
}

func TestRegisterInvalidName(t *testing.T) {
	r := New(logr.Discard())
	err := r.Register(newEchoDef("EC"), echoHandler{})
	require.Error(t, err)
	assert.Equal(t, apierr.InvalidArgument, apierr.KindOf(err))
}

func TestUnregisterThenGetNotFound(t *testing.T) {
	r := New(logr.Discard())
	require.NoError(t, r.Register(newEchoDef("echo"), echoHandler{}))
	require.NoError(t, r.Unregister("echo"))

	_, err := r.Get("echo")
	require.Error(t, err)
	assert.Equal(t, apierr.ToolNotFound, apierr.KindOf(err))
}

func TestDisabledToolVisibleToListRejectedByGet(t *testing.T) {
	r := New(logr.Discard())
	require.NoError(t, r.Register(newEchoDef("echo"), echoHandler{}))
	require.NoError(t, r.Disable("echo"))

	list := r.List()
	require.Len(t, list, 1)
	assert.False(t, list[0].Enabled)

	_, err := r.Get("echo")
	require.Error(t, err)
	assert.Equal(t, apierr.ToolDisabled, apierr.KindOf(err))
}

func TestMetricsNeverDecrease(t *testing.T) {
	r := New(logr.Discard())
	require.NoError(t, r.Register(newEchoDef("echo"), echoHandler{}))

	const n = 5
	for i := 0; i < n; i++ {
		r.RecordExecution("echo", 10*time.Millisecond, "")
	}
	m, err := r.MetricsFor("echo")
	require.NoError(t, err)
	assert.EqualValues(t, n, m.ExecutionCount)
	assert.Equal(t, 10*time.Millisecond, m.AverageDuration())

	r.RecordExecution("echo", 0, string(apierr.UpstreamFailure))
	m2, err := r.MetricsFor("echo")
	require.NoError(t, err)
	assert.EqualValues(t, n+1, m2.ExecutionCount)
	assert.Greater(t, m2.ExecutionCount, m.ExecutionCount)
	assert.EqualValues(t, 1, m2.ErrorCountByKind[string(apierr.UpstreamFailure)])
}

func TestExportMetricsCSVColumnOrder(t *testing.T) {
	r := New(logr.Discard())
	require.NoError(t, r.Register(newEchoDef("bravo"), echoHandler{}))
	require.NoError(t, r.Register(newEchoDef("alpha"), echoHandler{}))
	r.RecordExecution("alpha", 5*time.Millisecond, "")

	csvText, err := r.ExportMetricsCSV()
	require.NoError(t, err)

	lines := strings.Split(strings.TrimRight(csvText, "\n"), "\n")
	require.GreaterOrEqual(t, len(lines), 3)
	assert.Equal(t, "name,version,enabled,execution_count,average_duration,last_execution,description", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "alpha,"))
	assert.True(t, strings.HasPrefix(lines[2], "bravo,"))
}

func TestReloadAllIsolatesFailingTool(t *testing.T) {
	dir := t.TempDir()
	writeDoc(t, dir, "good.json", `{"name":"good_tool","enabled":true,"metadata":{"source":"native"}}`)
	writeDoc(t, dir, "bad.json", `{"name":"BAD","enabled":true,"metadata":{"source":"native"}}`)

	r := New(logr.Discard())
	factory := func(doc Document) (ToolDefinition, Handler, error) {
		return ToolDefinition{Name: doc.Name, Enabled: doc.Enabled, Metadata: Metadata{Source: SourceNative}}, echoHandler{}, nil
	}
	r.SetFactory(factory)
	errs := r.Load(dir, factory)
	require.Len(t, errs, 1)

	_, err := r.Get("good_tool")
	require.NoError(t, err)

	errs2 := r.ReloadAll()
	require.Len(t, errs2, 1)
	_, err = r.Get("good_tool")
	require.NoError(t, err)
}

func writeDoc(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}
