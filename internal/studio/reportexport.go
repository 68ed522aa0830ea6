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
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ajsinha/sajhamcpserver-sub001/internal/apierr"
	"github.com/ajsinha/sajhamcpserver-sub001/internal/registry"
)

var validExportFormats = map[string]bool{"PDF": true, "PPTX": true, "PNG": true}

// ReportExportGenerator compiles a report-export spec into a handler that
// obtains an OAuth2 client-credentials token, initiates an async export,
// polls until completion, then fetches and returns the rendered file.
type ReportExportGenerator struct {
	Client *http.Client
}

// NewReportExportGenerator returns a report-export generator. A nil
// Client defaults to http.DefaultClient.
func NewReportExportGenerator(client *http.Client) *ReportExportGenerator {
	if client == nil {
		client = http.DefaultClient
	}
	return &ReportExportGenerator{Client: client}
}

func (g *ReportExportGenerator) Validate(spec map[string]any) error {
	if _, err := requireString(spec, "name"); err != nil {
		return err
	}
	for _, field := range []string{"workspace_id", "report_id", "api_base_url", "token_url", "client_id", "client_secret"} {
		if _, err := requireString(spec, field); err != nil {
			return err
		}
	}
	if !validExportFormats[stringField(spec, "export_format")] {
		return apierr.Newf(apierr.InvalidArgument, "unsupported export_format %q", spec["export_format"])
	}
	return nil
}

func (g *ReportExportGenerator) Render(spec map[string]any) (registry.ToolDefinition, registry.Handler, error) {
	def, err := baseDefinition(spec, registry.SourceReportExport)
	if err != nil {
		return registry.ToolDefinition{}, nil, err
	}

	workspace := stringField(spec, "workspace_id")
	report := stringField(spec, "report_id")
	apiBase := strings.TrimRight(stringField(spec, "api_base_url"), "/")
	format := stringField(spec, "export_format")
	timeout := time.Duration(intField(spec, "timeout_seconds", 300)) * time.Second
	pollInterval := 5 * time.Second

	tokens := newTokenCache(
		stringField(spec, "token_url"),
		stringField(spec, "client_id"),
		stringField(spec, "client_secret"),
		nil,
	)

	handler := registry.NewGenericHandler(registry.SourceReportExport, func(ctx context.Context, arguments map[string]any) (*registry.Result, error) {
		start := time.Now()
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		tok, err := tokens.Token(ctx)
		if err != nil {
			return nil, apierr.Wrap(apierr.UpstreamFailure, "obtain export token", err)
		}

		exportID, err := initiateExport(ctx, g.Client, apiBase, workspace, report, format, arguments, tok.AccessToken)
		if err != nil {
			return nil, err
		}

		for {
			status, err := pollExportStatus(ctx, g.Client, apiBase, workspace, report, exportID, tok.AccessToken)
			if err != nil {
				return nil, err
			}
			switch status {
			case "Succeeded":
				data, size, err := fetchExport(ctx, g.Client, apiBase, workspace, report, exportID, tok.AccessToken)
				if err != nil {
					return nil, err
				}
				return &registry.Result{Content: map[string]any{
					"format":             format,
					"size_bytes":         size,
					"data":               base64.StdEncoding.EncodeToString(data),
					"export_time_seconds": time.Since(start).Seconds(),
				}}, nil
			case "Failed":
				return nil, apierr.New(apierr.UpstreamFailure, "report export failed")
			}

			select {
			case <-ctx.Done():
				return nil, apierr.New(apierr.Timeout, "report export timed out")
			case <-time.After(pollInterval):
			}
		}
	})

	return def, handler, nil
}

func initiateExport(ctx context.Context, client *http.Client, apiBase, workspace, report, format string, filters map[string]any, token string) (string, error) {
	payload, _ := json.Marshal(map[string]any{"format": format, "filters": filters})
	url := fmt.Sprintf("%s/workspaces/%s/reports/%s/exports", apiBase, workspace, report)
	resp, err := doAuthorizedRequest(ctx, client, http.MethodPost, url, token, payload)
	if err != nil {
		return "", apierr.Wrap(apierr.UpstreamFailure, "initiate export", err)
	}
	defer resp.Body.Close()
	var out struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", apierr.Wrap(apierr.UpstreamFailure, "decode export initiation response", err)
	}
	return out.ID, nil
}

func pollExportStatus(ctx context.Context, client *http.Client, apiBase, workspace, report, exportID, token string) (string, error) {
	url := fmt.Sprintf("%s/workspaces/%s/reports/%s/exports/%s", apiBase, workspace, report, exportID)
	resp, err := doAuthorizedRequest(ctx, client, http.MethodGet, url, token, nil)
	if err != nil {
		return "", apierr.Wrap(apierr.UpstreamFailure, "poll export status", err)
	}
	defer resp.Body.Close()
	var out struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", apierr.Wrap(apierr.UpstreamFailure, "decode export status response", err)
	}
	return out.Status, nil
}

func fetchExport(ctx context.Context, client *http.Client, apiBase, workspace, report, exportID, token string) ([]byte, int, error) {
	url := fmt.Sprintf("%s/workspaces/%s/reports/%s/exports/%s/file", apiBase, workspace, report, exportID)
	resp, err := doAuthorizedRequest(ctx, client, http.MethodGet, url, token, nil)
	if err != nil {
		return nil, 0, apierr.Wrap(apierr.UpstreamFailure, "fetch export file", err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, apierr.Wrap(apierr.UpstreamFailure, "read export file", err)
	}
	return data, len(data), nil
}

func doAuthorizedRequest(ctx context.Context, client *http.Client, method, url, token string, body []byte) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		reader = strings.NewReader(string(body))
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		defer resp.Body.Close()
		msg, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("http %d: %s", resp.StatusCode, string(msg))
	}
	return resp, nil
}
