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
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestReportExportGeneratorValidateRequiresFields(t *testing.T) {
	g := NewReportExportGenerator(nil)
	err := g.Validate(map[string]any{"name": "export_sales"})
	require.Error(t, err)
}

func TestReportExportGeneratorValidateRejectsBadFormat(t *testing.T) {
	g := NewReportExportGenerator(nil)
	err := g.Validate(map[string]any{
		"name": "export_sales", "workspace_id": "w", "report_id": "r",
		"api_base_url": "http://x", "token_url": "http://x/token",
		"client_id": "c", "client_secret": "s", "export_format": "DOCX",
	})
	require.Error(t, err)
}

func TestReportExportGeneratorHappyPath(t *testing.T) {
	var polls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/token":
			_ = json.NewEncoder(w).Encode(map[string]any{"access_token": "tok", "expires_in": 3600})
		case r.Method == http.MethodPost:
			_ = json.NewEncoder(w).Encode(map[string]any{"id": "exp-1"})
		case r.URL.Path == "/workspaces/w/reports/r/exports/exp-1":
			polls++
			status := "Running"
			if polls > 1 {
				status = "Succeeded"
			}
			_ = json.NewEncoder(w).Encode(map[string]any{"status": status})
		case r.URL.Path == "/workspaces/w/reports/r/exports/exp-1/file":
			_, _ = w.Write([]byte("pdfdata"))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	g := NewReportExportGenerator(srv.Client())
	spec := map[string]any{
		"name": "export_sales", "workspace_id": "w", "report_id": "r",
		"api_base_url": srv.URL, "token_url": srv.URL + "/token",
		"client_id": "c", "client_secret": "s", "export_format": "PDF",
		"timeout_seconds": 10,
	}
	require.NoError(t, g.Validate(spec))
	_, handler, err := g.Render(spec)
	require.NoError(t, err)

	result, err := handler.Execute(context.Background(), nil)
	require.NoError(t, err)
	content := result.Content.(map[string]any)
	require.Equal(t, "PDF", content["format"])
	require.Equal(t, 7, content["size_bytes"])
}

func TestReportExportGeneratorFailedExport(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/token":
			_ = json.NewEncoder(w).Encode(map[string]any{"access_token": "tok", "expires_in": 3600})
		case r.Method == http.MethodPost:
			_ = json.NewEncoder(w).Encode(map[string]any{"id": "exp-1"})
		default:
			_ = json.NewEncoder(w).Encode(map[string]any{"status": "Failed"})
		}
	}))
	defer srv.Close()

	g := NewReportExportGenerator(srv.Client())
	spec := map[string]any{
		"name": "export_sales", "workspace_id": "w", "report_id": "r",
		"api_base_url": srv.URL, "token_url": srv.URL + "/token",
		"client_id": "c", "client_secret": "s", "export_format": "PNG",
		"timeout_seconds": 5,
	}
	_, handler, err := g.Render(spec)
	require.NoError(t, err)

	_, err = handler.Execute(context.Background(), nil)
	require.Error(t, err)
}

