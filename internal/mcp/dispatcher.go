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

package mcp

import (
	"context"
	"encoding/json"

	"github.com/go-logr/logr"

	"github.com/ajsinha/sajhamcpserver-sub001/internal/apierr"
	"github.com/ajsinha/sajhamcpserver-sub001/internal/auth"
	"github.com/ajsinha/sajhamcpserver-sub001/internal/envelope"
	"github.com/ajsinha/sajhamcpserver-sub001/internal/registry"
)

// Caller executes one tools/call invocation through the envelope
// pipeline. Satisfied by *envelope.Envelope; a narrow interface keeps
// Dispatcher testable without constructing a full Envelope.
type Caller interface {
	Call(ctx context.Context, principal *auth.Principal, tool string, arguments map[string]any) (*registry.Result, error)
}

// Dispatcher routes JSON-RPC 2.0 requests to the MCP methods (spec.md
// §6). No single teacher file implements JSON-RPC; this keeps the
// teacher's "one method per request type, reject unknown methods with a
// framed error" dispatch shape while using the wire format the spec
// mandates.
type Dispatcher struct {
	log     logr.Logger
	tools   *registry.Registry
	caller  Caller
	prompts *PromptStore
}

// NewDispatcher creates a Dispatcher.
func NewDispatcher(log logr.Logger, tools *registry.Registry, caller Caller, prompts *PromptStore) *Dispatcher {
	return &Dispatcher{log: log.WithName("mcp"), tools: tools, caller: caller, prompts: prompts}
}

// Dispatch handles one decoded Request, returning the Response to encode
// back to the client. It never returns a Go error: every failure is
// framed as a JSON-RPC error response.
func (d *Dispatcher) Dispatch(ctx context.Context, principal *auth.Principal, req Request) Response {
	switch req.Method {
	case "initialize":
		return d.initialize(req)
	case "tools/list":
		return d.toolsList(req)
	case "tools/call":
		return d.toolsCall(ctx, principal, req)
	case "prompts/list":
		return d.promptsList(req)
	case "prompts/get":
		return d.promptsGet(req)
	case "prompts/render":
		return d.promptsRender(req)
	default:
		return failure(req.ID, apierr.JSONRPCMethodNotFound, "method not found: "+req.Method, nil)
	}
}

// DecodeRequest parses a raw JSON-RPC request body, returning a
// JSONRPCParseError-framed Response on malformed JSON.
func DecodeRequest(body []byte) (Request, *Response) {
	var req Request
	if err := json.Unmarshal(body, &req); err != nil {
		resp := failure(nil, apierr.JSONRPCParseError, "parse error: "+err.Error(), nil)
		return Request{}, &resp
	}
	return req, nil
}

func (d *Dispatcher) initialize(req Request) Response {
	return success(req.ID, InitializeResult{
		ProtocolVersion: ProtocolVersion,
		ServerInfo:      map[string]any{"name": "sajha-mcp-server", "version": "1.0.0"},
		Capabilities: map[string]any{
			"tools":   map[string]any{"listChanged": true},
			"prompts": map[string]any{"listChanged": false},
		},
	})
}

func (d *Dispatcher) toolsList(req Request) Response {
	summaries := d.tools.List()
	descriptors := make([]ToolDescriptor, 0, len(summaries))
	for _, s := range summaries {
		if !s.Enabled {
			continue
		}
		def, err := d.tools.Definition(s.Name)
		if err != nil {
			continue
		}
		descriptors = append(descriptors, ToolDescriptor{
			Name:        s.Name,
			Description: s.Description,
			InputSchema: def.InputSchema,
		})
	}
	return success(req.ID, ToolsListResult{Tools: descriptors})
}

func (d *Dispatcher) toolsCall(ctx context.Context, principal *auth.Principal, req Request) Response {
	var params ToolsCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return failure(req.ID, apierr.JSONRPCInvalidParams, "invalid params: "+err.Error(), nil)
	}

	result, err := d.caller.Call(ctx, principal, params.Name, params.Arguments)
	if err != nil {
		classified, _ := apierr.As(err)
		return errorResponse(req.ID, err, classified)
	}

	text, _ := json.Marshal(result.Content)
	return success(req.ID, ToolsCallResult{
		Content: []ContentBlock{{Type: "json", Text: string(text), Data: result.Content}},
		IsError: result.IsError,
	})
}

func (d *Dispatcher) promptsList(req Request) Response {
	return success(req.ID, PromptsListResult{Prompts: d.prompts.List()})
}

func (d *Dispatcher) promptsGet(req Request) Response {
	var params PromptsGetParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return failure(req.ID, apierr.JSONRPCInvalidParams, "invalid params: "+err.Error(), nil)
	}
	p, err := d.prompts.Get(params.Name)
	if err != nil {
		classified, _ := apierr.As(err)
		return errorResponse(req.ID, err, classified)
	}
	return success(req.ID, PromptDescriptor{Name: p.Name, Description: p.Description, Arguments: p.Arguments})
}

func (d *Dispatcher) promptsRender(req Request) Response {
	var params PromptsRenderParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return failure(req.ID, apierr.JSONRPCInvalidParams, "invalid params: "+err.Error(), nil)
	}
	text, err := d.prompts.Render(params.Name, params.Arguments)
	if err != nil {
		classified, _ := apierr.As(err)
		return errorResponse(req.ID, err, classified)
	}
	return success(req.ID, PromptsRenderResult{Text: text})
}

// errorResponse frames a classified application error into its reserved
// JSON-RPC code range (spec.md §7).
func errorResponse(id json.RawMessage, err error, classified *apierr.Error) Response {
	kind := apierr.KindOf(err)
	message := err.Error()
	var data any
	if classified != nil && len(classified.Paths) > 0 {
		data = map[string]any{"paths": classified.Paths}
	}
	return failure(id, apierr.JSONRPCCode(kind), message, data)
}
