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

package access

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDenyRuleSetNilEvaluateAlwaysPasses(t *testing.T) {
	var set *DenyRuleSet
	denied, rule, message, err := set.Evaluate("any_tool", nil)
	require.NoError(t, err)
	require.False(t, denied)
	require.Empty(t, rule)
	require.Empty(t, message)
}

func TestDenyRuleSetGlobalRuleAppliesToEveryTool(t *testing.T) {
	set, err := NewDenyRuleSet([]DenyRule{
		{Name: "business-hours-only", CEL: `args.hour < 6`, Message: "tools are disabled before 6am"},
	})
	require.NoError(t, err)

	denied, rule, message, err := set.Evaluate("get_weather", map[string]any{"hour": 3})
	require.NoError(t, err)
	require.True(t, denied)
	require.Equal(t, "business-hours-only", rule)
	require.Equal(t, "tools are disabled before 6am", message)

	denied, _, _, err = set.Evaluate("get_weather", map[string]any{"hour": 9})
	require.NoError(t, err)
	require.False(t, denied)
}

func TestDenyRuleSetToolScopedRuleOnlyAppliesToThatTool(t *testing.T) {
	set, err := NewDenyRuleSet([]DenyRule{
		{Name: "no-drop", Tool: "run_sql", CEL: `args.statement.contains("DROP")`},
	})
	require.NoError(t, err)

	denied, _, _, err := set.Evaluate("get_weather", map[string]any{"statement": "DROP TABLE orders"})
	require.NoError(t, err)
	require.False(t, denied)

	denied, rule, message, err := set.Evaluate("run_sql", map[string]any{"statement": "DROP TABLE orders"})
	require.NoError(t, err)
	require.True(t, denied)
	require.Equal(t, "no-drop", rule)
	require.Equal(t, `denied by rule "no-drop"`, message)
}

func TestDenyRuleSetDefaultMessageWhenUnset(t *testing.T) {
	set, err := NewDenyRuleSet([]DenyRule{
		{Name: "always-deny", CEL: `true`},
	})
	require.NoError(t, err)

	denied, rule, message, err := set.Evaluate("any_tool", map[string]any{})
	require.NoError(t, err)
	require.True(t, denied)
	require.Equal(t, "always-deny", rule)
	require.Equal(t, `denied by rule "always-deny"`, message)
}

func TestNewDenyRuleSetRejectsBadCEL(t *testing.T) {
	_, err := NewDenyRuleSet([]DenyRule{{Name: "broken", CEL: `args.(((`}})
	require.Error(t, err)
}

func TestLoadDenyRuleFileParsesYAML(t *testing.T) {
	data := []byte(`
rules:
  - name: no-drop
    tool: run_sql
    cel: args.statement.contains("DROP")
    message: DROP is not allowed
`)
	set, err := LoadDenyRuleFile(data)
	require.NoError(t, err)

	denied, rule, message, err := set.Evaluate("run_sql", map[string]any{"statement": "DROP TABLE t"})
	require.NoError(t, err)
	require.True(t, denied)
	require.Equal(t, "no-drop", rule)
	require.Equal(t, "DROP is not allowed", message)
}

func TestLoadDenyRuleFileRejectsInvalidYAML(t *testing.T) {
	_, err := LoadDenyRuleFile([]byte("not: [valid"))
	require.Error(t, err)
}
