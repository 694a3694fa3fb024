// Copyright 2025 Antfly, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package smoldocling

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/antflydb/smoldocling/pkg/smoldocling/lib/otsl"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap/zaptest"
)

const (
	tablePage   = "<otsl><fcel>A<fcel>B<nl><fcel>C<fcel>D<nl></otsl>"
	docTagsPage = "<doctag><section_header_level_1><loc_1>Title</section_header_level_1><text><loc_2>Body</text></doctag>"
)

func newTestNode(t *testing.T, config Config) *Node {
	t.Helper()
	node, err := NewNode(context.Background(), zaptest.NewLogger(t), config)
	require.NoError(t, err)
	t.Cleanup(node.Close)
	return node
}

func postRender(t *testing.T, handler http.Handler, target string, req RenderRequest) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(req)
	require.NoError(t, err)

	r := httptest.NewRequest(http.MethodPost, target, bytes.NewReader(body))
	r.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)
	return w
}

func decodeRender(t *testing.T, w *httptest.ResponseRecorder) RenderResponse {
	t.Helper()
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp RenderResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestNewNode_InvalidDefaults(t *testing.T) {
	logger := zaptest.NewLogger(t)

	_, err := NewNode(context.Background(), logger, Config{DefaultTask: "summarize"})
	assert.Error(t, err)

	_, err = NewNode(context.Background(), logger, Config{DefaultFormat: "pdf"})
	assert.Error(t, err)
}

func TestRender_TableMarkdownAndCache(t *testing.T) {
	handler := newTestNode(t, Config{}).Handler()
	req := RenderRequest{Pages: []string{tablePage}, Task: "table"}

	resp := decodeRender(t, postRender(t, handler, "/api/render", req))
	assert.Equal(t, "| A | B |\n| --- | --- |\n| C | D |\n", resp.Output)
	assert.Equal(t, "markdown", resp.Format)
	assert.Equal(t, 1, resp.Pages)
	assert.False(t, resp.CacheHit)

	resp = decodeRender(t, postRender(t, handler, "/api/render", req))
	assert.True(t, resp.CacheHit)
}

func TestRender_FormatQueryOverridesBody(t *testing.T) {
	handler := newTestNode(t, Config{}).Handler()
	req := RenderRequest{Pages: []string{docTagsPage}, Format: "markdown"}

	resp := decodeRender(t, postRender(t, handler, "/api/render?format=json", req))
	assert.Equal(t, "json", resp.Format)
	assert.JSONEq(t,
		`{"sections":[{"type":"header","level":1,"content":"Title","location":"1"},{"type":"text","content":"Body","location":"2"}]}`,
		resp.Output)
}

func TestRender_PerPageTasks(t *testing.T) {
	handler := newTestNode(t, Config{}).Handler()
	req := RenderRequest{
		Pages: []string{docTagsPage, tablePage, "<formula>x^2</formula>"},
		Tasks: []string{"", "table", "formula"},
	}

	resp := decodeRender(t, postRender(t, handler, "/api/render", req))
	assert.Equal(t, 3, resp.Pages)
	assert.Equal(t,
		"## Title\nBody\n\n---\n\n| A | B |\n| --- | --- |\n| C | D |\n\n\n---\n\nx^2",
		resp.Output)
}

func TestRender_DefaultsFromConfig(t *testing.T) {
	handler := newTestNode(t, Config{DefaultTask: "table", DefaultFormat: "html"}).Handler()

	resp := decodeRender(t, postRender(t, handler, "/api/render", RenderRequest{Pages: []string{tablePage}}))
	assert.Equal(t, "html", resp.Format)
	assert.Equal(t,
		`<div class="markdown-body"><table class="rendered-table"><tr><th>A</th><td>B</td></tr><tr><th>C</th><td>D</td></tr></table></div>`,
		resp.Output)
}

func TestRender_BadRequests(t *testing.T) {
	handler := newTestNode(t, Config{MaxPages: 2}).Handler()

	tests := []struct {
		name   string
		target string
		req    RenderRequest
	}{
		{"no pages", "/api/render", RenderRequest{}},
		{"too many pages", "/api/render", RenderRequest{Pages: []string{"a", "b", "c"}}},
		{"unknown task", "/api/render", RenderRequest{Pages: []string{"a"}, Task: "summarize"}},
		{"unknown page task", "/api/render", RenderRequest{Pages: []string{"a"}, Tasks: []string{"summarize"}}},
		{"more tasks than pages", "/api/render", RenderRequest{Pages: []string{"a"}, Tasks: []string{"table", "table"}}},
		{"unknown format", "/api/render", RenderRequest{Pages: []string{"a"}, Format: "pdf"}},
		{"unknown query format", "/api/render?format=pdf", RenderRequest{Pages: []string{"a"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := postRender(t, handler, tt.target, tt.req)
			assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
		})
	}

	t.Run("invalid json", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodPost, "/api/render", bytes.NewReader([]byte("invalid json")))
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, r)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestRender_XLSX(t *testing.T) {
	handler := newTestNode(t, Config{}).Handler()

	w := postRender(t, handler, "/api/render?format=xlsx", RenderRequest{
		Pages: []string{"<otsl><ched>H<lcel><nl><fcel>a<fcel>b<nl></otsl>", "ignored"},
		Task:  "table",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", w.Header().Get("Content-Type"))

	f, err := excelize.OpenReader(bytes.NewReader(w.Body.Bytes()))
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	value, err := f.GetCellValue(otsl.XLSXSheet, "A1")
	require.NoError(t, err)
	assert.Equal(t, "H", value)

	merged, err := f.GetMergeCells(otsl.XLSXSheet)
	require.NoError(t, err)
	require.Len(t, merged, 1)
	assert.Equal(t, "A1", merged[0].GetStartAxis())
	assert.Equal(t, "B1", merged[0].GetEndAxis())
}

func TestRender_XLSXWithoutTable(t *testing.T) {
	handler := newTestNode(t, Config{}).Handler()

	w := postRender(t, handler, "/api/render", RenderRequest{Pages: []string{docTagsPage}, Format: "xlsx"})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, otsl.MsgNotFound+"\n", w.Body.String())
}

func TestListTasks(t *testing.T) {
	handler := newTestNode(t, Config{}).Handler()

	r := httptest.NewRequest(http.MethodGet, "/api/tasks", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)
	require.Equal(t, http.StatusOK, w.Code)

	var resp TasksResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Tasks, 9)
	assert.Equal(t, TaskInfo{
		Name:   "page",
		Label:  "Full Page Conversion",
		Prompt: "Convert this page to docling.",
	}, resp.Tasks[0])
	assert.True(t, resp.Tasks[3].OTSL)
	assert.Equal(t, []string{"markdown", "json", "raw", "html", "xlsx"}, resp.Formats)
}

func TestGetVersion(t *testing.T) {
	handler := newTestNode(t, Config{}).Handler()

	r := httptest.NewRequest(http.MethodGet, "/api/version", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)
	require.Equal(t, http.StatusOK, w.Code)

	var resp VersionResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, Version, resp.Version)
	assert.NotEmpty(t, resp.GoVersion)
}

func TestGetOpenAPI(t *testing.T) {
	handler := newTestNode(t, Config{}).Handler()

	r := httptest.NewRequest(http.MethodGet, "/api/openapi.json", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)
	require.Equal(t, http.StatusOK, w.Code)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &doc))
	assert.Equal(t, "3.0.3", doc["openapi"])
	assert.Contains(t, doc["paths"], "/render")
}

func TestHealthEndpoints(t *testing.T) {
	handler := newTestNode(t, Config{}).Handler()

	for _, path := range []string{"/healthz", "/readyz"} {
		r := httptest.NewRequest(http.MethodGet, path, nil)
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, r)
		assert.Equal(t, http.StatusOK, w.Code, path)
	}

	var ready ReadyResponse
	r := httptest.NewRequest(http.MethodGet, "/readyz", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &ready))
	assert.Equal(t, "ready", ready.Status)
	assert.Equal(t, 9, ready.Tasks)
}

func TestReadyz_NotReady(t *testing.T) {
	node := &Node{logger: zaptest.NewLogger(t)}

	r := httptest.NewRequest(http.MethodGet, "/readyz", nil)
	w := httptest.NewRecorder()
	node.handleReadyz(w, r)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestMiddleware(t *testing.T) {
	handler := newTestNode(t, Config{}).Handler()

	t.Run("preflight", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodOptions, "/api/render", nil)
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, r)
		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("request id assigned", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/healthz", nil)
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, r)
		assert.Len(t, w.Header().Get(RequestIDHeader), 36)
	})

	t.Run("request id echoed", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/healthz", nil)
		r.Header.Set(RequestIDHeader, "abc-123")
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, r)
		assert.Equal(t, "abc-123", w.Header().Get(RequestIDHeader))
	})
}
