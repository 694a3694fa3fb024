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
	"errors"
	"fmt"
	"net/http"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/antflydb/smoldocling/pkg/smoldocling/lib/otsl"
	"github.com/antflydb/smoldocling/pkg/smoldocling/lib/reading"
	"github.com/bytedance/sonic/decoder"
	"github.com/bytedance/sonic/encoder"
	oapiruntime "github.com/oapi-codegen/runtime"
	"go.uber.org/zap"
)

// RenderRequest is the body of POST /api/render
type RenderRequest struct {
	// Pages holds the raw model output, one entry per page
	Pages []string `json:"pages"`
	// Task applies to every page without an override
	Task string `json:"task,omitempty"`
	// Tasks overrides the task per page; empty entries use Task
	Tasks  []string `json:"tasks,omitempty"`
	Format string   `json:"format,omitempty"`
}

// RenderResponse is the JSON result of POST /api/render
type RenderResponse struct {
	Output   string `json:"output"`
	Format   string `json:"format"`
	Pages    int    `json:"pages"`
	CacheHit bool   `json:"cache_hit"`
}

// TaskInfo describes one prompt
type TaskInfo struct {
	Name   string `json:"name"`
	Label  string `json:"label"`
	Prompt string `json:"prompt"`
	OTSL   bool   `json:"otsl"`
}

// TasksResponse is the result of GET /api/tasks
type TasksResponse struct {
	Tasks   []TaskInfo `json:"tasks"`
	Formats []string   `json:"formats"`
}

// VersionResponse is the result of GET /api/version
type VersionResponse struct {
	Version   string `json:"version"`
	GitCommit string `json:"git_commit"`
	BuildTime string `json:"build_time"`
	GoVersion string `json:"go_version"`
}

// API implements the /api routes
type API struct {
	logger *zap.Logger
	node   *Node
}

// NewAPI creates the HTTP handler for the /api routes
func NewAPI(logger *zap.Logger, node *Node) http.Handler {
	api := &API{
		logger: logger,
		node:   node,
	}
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/render", api.RenderDocument)
	mux.HandleFunc("GET /api/tasks", api.ListTasks)
	mux.HandleFunc("GET /api/version", api.GetVersion)
	mux.HandleFunc("GET /api/openapi.json", api.GetOpenAPI)
	return mux
}

// RenderDocument handles POST /api/render
func (a *API) RenderDocument(w http.ResponseWriter, r *http.Request) {
	defer func() { _ = r.Body.Close() }()

	start := time.Now()
	status := http.StatusOK
	var format reading.Format
	defer func() {
		RecordRequestDuration("render", string(format), strconv.Itoa(status), time.Since(start).Seconds())
	}()

	logger := a.logger.With(zap.String("request_id", RequestID(r.Context())))
	fail := func(msg string, code int) {
		status = code
		http.Error(w, msg, code)
	}

	// Apply backpressure via request queue
	release, err := a.node.queue.Acquire(r.Context())
	if err != nil {
		switch {
		case errors.Is(err, ErrQueueFull):
			status = http.StatusServiceUnavailable
			RecordQueueRejection()
			WriteQueueFullResponse(w, 5*time.Second)
		case errors.Is(err, ErrRequestTimeout):
			status = http.StatusServiceUnavailable
			RecordQueueTimeout()
			WriteTimeoutResponse(w)
		default:
			fail("request cancelled", http.StatusRequestTimeout)
		}
		return
	}
	defer release()

	var req RenderRequest
	if err := decoder.NewStreamDecoder(r.Body).Decode(&req); err != nil {
		fail(fmt.Sprintf("decoding request: %v", err), http.StatusBadRequest)
		return
	}

	// The query string takes precedence over the body
	var queryFormat string
	if err := oapiruntime.BindQueryParameter("form", true, false, "format", r.URL.Query(), &queryFormat); err != nil {
		fail(fmt.Sprintf("invalid format parameter: %v", err), http.StatusBadRequest)
		return
	}
	if queryFormat != "" {
		req.Format = queryFormat
	}

	pages, docTask, format, err := a.node.resolve(req)
	if err != nil {
		fail(err.Error(), http.StatusBadRequest)
		return
	}

	RecordRenderRequest(string(format), docTask.Name())

	if format.IsBinary() {
		status = a.writeWorkbook(w, pages[0], logger)
		return
	}

	out, cacheHit, err := a.node.cache.Render(r.Context(), pages, format)
	if err != nil {
		if r.Context().Err() != nil {
			fail("request cancelled", http.StatusRequestTimeout)
			return
		}
		logger.Error("rendering failed", zap.Error(err))
		fail(fmt.Sprintf("rendering: %v", err), http.StatusInternalServerError)
		return
	}

	RecordPagesRendered(string(format), len(pages))
	for _, page := range strings.Split(out, reading.PageSeparator) {
		if reading.IsPlaceholder(page) {
			RecordPlaceholder(string(format))
		}
	}

	resp := RenderResponse{
		Output:   out,
		Format:   string(format),
		Pages:    len(pages),
		CacheHit: cacheHit,
	}
	if err := a.writeJSON(w, resp); err != nil {
		status = http.StatusInternalServerError
	}
}

// writeWorkbook exports the table on page as XLSX and returns the status sent
func (a *API) writeWorkbook(w http.ResponseWriter, page reading.Page, logger *zap.Logger) int {
	var buf bytes.Buffer
	if err := otsl.WriteXLSX(&buf, page.Raw); err != nil {
		if errors.Is(err, otsl.ErrNoData) || errors.Is(err, otsl.ErrNotFound) || errors.Is(err, otsl.ErrNoTokens) {
			RecordPlaceholder(string(reading.FormatXLSX))
			http.Error(w, otsl.Placeholder(err), http.StatusUnprocessableEntity)
			return http.StatusUnprocessableEntity
		}
		logger.Error("xlsx export failed", zap.Error(err))
		http.Error(w, fmt.Sprintf("exporting table: %v", err), http.StatusInternalServerError)
		return http.StatusInternalServerError
	}

	RecordPagesRendered(string(reading.FormatXLSX), 1)
	w.Header().Set("Content-Type", reading.FormatXLSX.ContentType())
	w.Header().Set("Content-Disposition", `attachment; filename="table.xlsx"`)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	if _, err := w.Write(buf.Bytes()); err != nil {
		logger.Warn("writing workbook", zap.Error(err))
	}
	return http.StatusOK
}

// resolve validates a render request and pairs every page with its task
func (n *Node) resolve(req RenderRequest) ([]reading.Page, reading.Task, reading.Format, error) {
	if len(req.Pages) == 0 {
		return nil, "", "", errors.New("pages is required")
	}
	if len(req.Pages) > n.config.MaxPages {
		return nil, "", "", fmt.Errorf("too many pages: %d exceeds the limit of %d", len(req.Pages), n.config.MaxPages)
	}
	if len(req.Tasks) > len(req.Pages) {
		return nil, "", "", fmt.Errorf("got %d tasks for %d pages", len(req.Tasks), len(req.Pages))
	}

	docTask := n.defaultTask
	if req.Task != "" {
		t, err := reading.TaskFromString(req.Task)
		if err != nil {
			return nil, "", "", err
		}
		docTask = t
	}

	format := n.defaultFormat
	if req.Format != "" {
		f, err := reading.ParseFormat(req.Format)
		if err != nil {
			return nil, "", "", err
		}
		format = f
	}

	pages := make([]reading.Page, len(req.Pages))
	for i, raw := range req.Pages {
		pages[i] = reading.Page{Raw: raw, Task: docTask}
		if i < len(req.Tasks) && req.Tasks[i] != "" {
			t, err := reading.TaskFromString(req.Tasks[i])
			if err != nil {
				return nil, "", "", fmt.Errorf("page %d: %w", i+1, err)
			}
			pages[i].Task = t
		}
	}

	return pages, docTask, format, nil
}

// ListTasks handles GET /api/tasks
func (a *API) ListTasks(w http.ResponseWriter, r *http.Request) {
	resp := TasksResponse{
		Tasks:   make([]TaskInfo, 0, len(a.node.tasks)),
		Formats: make([]string, 0, len(reading.Formats())),
	}
	for _, t := range a.node.tasks {
		resp.Tasks = append(resp.Tasks, TaskInfo{
			Name:   t.Name(),
			Label:  t.Label(),
			Prompt: t.String(),
			OTSL:   t.IsOTSL(),
		})
	}
	for _, f := range reading.Formats() {
		resp.Formats = append(resp.Formats, string(f))
	}

	_ = a.writeJSON(w, resp)
}

// GetVersion handles GET /api/version
func (a *API) GetVersion(w http.ResponseWriter, r *http.Request) {
	resp := VersionResponse{
		Version:   Version,
		GitCommit: GitCommit,
		BuildTime: BuildTime,
		GoVersion: runtime.Version(),
	}

	_ = a.writeJSON(w, resp)
}

// GetOpenAPI handles GET /api/openapi.json
func (a *API) GetOpenAPI(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(a.node.openAPI)
}

func (a *API) writeJSON(w http.ResponseWriter, v any) error {
	w.Header().Set("Content-Type", "application/json")
	if err := encoder.NewStreamEncoder(w).Encode(v); err != nil {
		a.logger.Error("encoding response", zap.Error(err))
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return err
	}
	return nil
}
