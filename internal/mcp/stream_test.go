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
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-logr/logr"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/ajsinha/sajhamcpserver-sub001/internal/apierr"
	"github.com/ajsinha/sajhamcpserver-sub001/internal/registry"
)

func dialStream(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/mcp/stream"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func TestStreamHandlerReturnsResultFrame(t *testing.T) {
	caller := stubCaller{result: &registry.Result{Content: map[string]any{"rows": 3}}}
	handler := NewStreamHandler(logr.Discard(), stubResolver{}, caller)
	srv := httptest.NewServer(handler)
	defer srv.Close()

	conn := dialStream(t, srv)
	require.NoError(t, conn.WriteJSON(StreamRequest{Tool: "export_report", Arguments: map[string]any{"format": "csv"}}))

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var frame StreamFrame
	require.NoError(t, conn.ReadJSON(&frame))
	require.Equal(t, "result", frame.Type)
	require.Equal(t, "export_report", frame.Tool)
}

func TestStreamHandlerReturnsErrorFrame(t *testing.T) {
	caller := stubCaller{err: apierr.New(apierr.UpstreamFailure, "report service unavailable")}
	handler := NewStreamHandler(logr.Discard(), stubResolver{}, caller)
	srv := httptest.NewServer(handler)
	defer srv.Close()

	conn := dialStream(t, srv)
	require.NoError(t, conn.WriteJSON(StreamRequest{Tool: "export_report"}))

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var frame StreamFrame
	require.NoError(t, conn.ReadJSON(&frame))
	require.Equal(t, "error", frame.Type)
	require.Contains(t, frame.Message, "report service unavailable")
}
