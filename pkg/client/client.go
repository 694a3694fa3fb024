/*
Copyright 2025 The Antfly Contributors

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

// Package client provides a Go SDK client for the SmolDocling API.
package client

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/antflydb/smoldocling/pkg/smoldocling"
	"github.com/antflydb/smoldocling/pkg/smoldocling/lib/reading"
	"github.com/bytedance/sonic"
)

// ErrUnavailable is returned when the server rejects a request because its
// render queue is full or the request waited too long.
var ErrUnavailable = errors.New("service unavailable")

// APIError is a non-success response from the server
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	switch e.StatusCode {
	case http.StatusBadRequest:
		return "bad request: " + e.Message
	case http.StatusUnprocessableEntity:
		return "unprocessable: " + e.Message
	case http.StatusServiceUnavailable:
		return "service unavailable: " + e.Message
	case http.StatusInternalServerError:
		return "server error: " + e.Message
	}
	return fmt.Sprintf("unexpected status code %d: %s", e.StatusCode, e.Message)
}

func (e *APIError) Unwrap() error {
	if e.StatusCode == http.StatusServiceUnavailable {
		return ErrUnavailable
	}
	return nil
}

// SmolDoclingClient is a client for interacting with the SmolDocling API.
type SmolDoclingClient struct {
	httpClient *http.Client
	baseURL    string
}

// NewSmolDoclingClient creates a new SmolDocling client.
// The baseURL should be the server address (e.g., "http://localhost:8089").
// The /api prefix is automatically appended.
func NewSmolDoclingClient(baseURL string, httpClient *http.Client) (*SmolDoclingClient, error) {
	apiURL := strings.TrimSuffix(baseURL, "/") + "/api"
	if _, err := url.Parse(apiURL); err != nil {
		return nil, fmt.Errorf("parsing base url: %w", err)
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &SmolDoclingClient{
		httpClient: httpClient,
		baseURL:    apiURL,
	}, nil
}

// Render converts model output pages. Pages are rendered with the request's
// task and format, or the server defaults when those are empty.
func (c *SmolDoclingClient) Render(ctx context.Context, req smoldocling.RenderRequest) (*smoldocling.RenderResponse, error) {
	if f, err := reading.ParseFormat(req.Format); err == nil && f.IsBinary() {
		return nil, fmt.Errorf("%w: use ExportXLSX", reading.ErrBinaryFormat)
	}

	body, err := c.postRender(ctx, "", req)
	if err != nil {
		return nil, err
	}

	var resp smoldocling.RenderResponse
	if err := sonic.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	return &resp, nil
}

// ExportXLSX returns the workbook for the table on the first page.
func (c *SmolDoclingClient) ExportXLSX(ctx context.Context, pages []string, task string) ([]byte, error) {
	return c.postRender(ctx, string(reading.FormatXLSX), smoldocling.RenderRequest{Pages: pages, Task: task})
}

func (c *SmolDoclingClient) postRender(ctx context.Context, format string, req smoldocling.RenderRequest) ([]byte, error) {
	payload, err := sonic.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encoding request: %w", err)
	}

	target := c.baseURL + "/render"
	if format != "" {
		target += "?format=" + url.QueryEscape(format)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	return c.do(httpReq)
}

// ListTasks returns the prompts and formats the server understands.
func (c *SmolDoclingClient) ListTasks(ctx context.Context) (*smoldocling.TasksResponse, error) {
	var resp smoldocling.TasksResponse
	if err := c.get(ctx, "/tasks", &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetVersion returns the server version information.
func (c *SmolDoclingClient) GetVersion(ctx context.Context) (*smoldocling.VersionResponse, error) {
	var resp smoldocling.VersionResponse
	if err := c.get(ctx, "/version", &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *SmolDoclingClient) get(ctx context.Context, path string, v any) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	body, err := c.do(httpReq)
	if err != nil {
		return err
	}
	if err := sonic.Unmarshal(body, v); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

func (c *SmolDoclingClient) do(req *http.Request) ([]byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sending request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &APIError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(body))}
	}
	return body, nil
}
