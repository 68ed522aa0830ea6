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
	"fmt"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"
	"gopkg.in/yaml.v3"
)

// DenyRule is one CEL-evaluated deny condition, checked through
// Policy.CheckDenyRules separately from the allow-list/regex layer in
// Authorize. A rule applies to every tool when
// Tool is empty, or to a single named tool otherwise.
type DenyRule struct {
	Name    string `yaml:"name"`
	Tool    string `yaml:"tool"`
	CEL     string `yaml:"cel"`
	Message string `yaml:"message"`
}

type denyRuleFile struct {
	Rules []DenyRule `yaml:"rules"`
}

type compiledDenyRule struct {
	DenyRule
	program cel.Program
}

// DenyRuleSet holds CEL deny rules compiled against a shared environment
// exposing "tool" (string) and "args" (map) to each expression.
type DenyRuleSet struct {
	global []compiledDenyRule
	byTool map[string][]compiledDenyRule
}

// NewDenyRuleSet compiles rules against a shared CEL environment, grounded
// on ee/pkg/policy/evaluator.go's newCELEnv/compileCEL shape, narrowed to a
// tool/args variable set instead of Omnia's headers/body.
func NewDenyRuleSet(rules []DenyRule) (*DenyRuleSet, error) {
	env, err := cel.NewEnv(
		cel.Variable("tool", cel.StringType),
		cel.Variable("args", cel.MapType(cel.StringType, cel.DynType)),
	)
	if err != nil {
		return nil, fmt.Errorf("build cel environment: %w", err)
	}

	set := &DenyRuleSet{byTool: make(map[string][]compiledDenyRule)}
	for _, rule := range rules {
		ast, issues := env.Compile(rule.CEL)
		if issues != nil && issues.Err() != nil {
			return nil, fmt.Errorf("deny rule %q: %w", rule.Name, issues.Err())
		}
		program, err := env.Program(ast)
		if err != nil {
			return nil, fmt.Errorf("deny rule %q: %w", rule.Name, err)
		}
		compiled := compiledDenyRule{DenyRule: rule, program: program}
		if rule.Tool == "" {
			set.global = append(set.global, compiled)
		} else {
			set.byTool[rule.Tool] = append(set.byTool[rule.Tool], compiled)
		}
	}
	return set, nil
}

// LoadDenyRuleFile parses a YAML file of deny rules and compiles them into a
// DenyRuleSet, the same "config file -> compiled evaluator" shape
// registry.Registry.Load uses for tool documents.
func LoadDenyRuleFile(data []byte) (*DenyRuleSet, error) {
	var file denyRuleFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse deny rule file: %w", err)
	}
	return NewDenyRuleSet(file.Rules)
}

// Evaluate runs every rule scoped to tool (plus every tool-agnostic rule)
// and returns the first one whose expression evaluates true. A rule that
// errors or returns a non-bool is treated as a deny, per
// evaluator.go's handleEvalError default (fail closed).
func (s *DenyRuleSet) Evaluate(tool string, args map[string]any) (denied bool, ruleName string, message string, err error) {
	if s == nil {
		return false, "", "", nil
	}
	activation := map[string]any{"tool": tool, "args": args}
	for _, rule := range s.global {
		if denied, message, err = evaluateDenyRule(rule, activation); denied || err != nil {
			return denied, rule.Name, message, err
		}
	}
	for _, rule := range s.byTool[tool] {
		if denied, message, err = evaluateDenyRule(rule, activation); denied || err != nil {
			return denied, rule.Name, message, err
		}
	}
	return false, "", "", nil
}

func evaluateDenyRule(rule compiledDenyRule, activation map[string]any) (bool, string, error) {
	out, _, err := rule.program.Eval(activation)
	if err != nil {
		return true, fmt.Sprintf("deny rule %q failed to evaluate: %v", rule.Name, err), err
	}
	b, ok := isTruthy(out)
	if !ok {
		return true, fmt.Sprintf("deny rule %q returned non-bool result", rule.Name), nil
	}
	if !b {
		return false, "", nil
	}
	msg := rule.Message
	if msg == "" {
		msg = fmt.Sprintf("denied by rule %q", rule.Name)
	}
	return true, msg, nil
}

func isTruthy(val ref.Val) (bool, bool) {
	if val.Type() == types.BoolType {
		b, ok := val.Value().(bool)
		return b, ok
	}
	return false, false
}
