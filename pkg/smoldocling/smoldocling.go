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

// Package smoldocling serves the SmolDocling output renderers over HTTP.
package smoldocling

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/antflydb/smoldocling/pkg/smoldocling/lib/reading"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	// DefaultApiUrl is the address the API listens on when none is configured
	DefaultApiUrl = "http://localhost:8089"
	// DefaultMaxPages caps the pages accepted in one render request
	DefaultMaxPages = 64
	// DefaultShutdownTimeout is the default time to wait for graceful shutdown
	DefaultShutdownTimeout = 30 * time.Second
)

// RequestIDHeader carries the request id in both directions
const RequestIDHeader = "X-Request-Id"

// Config holds the resolved service settings
type Config struct {
	ApiUrl   string        `json:"api_url"`
	CacheTTL time.Duration `json:"cache_ttl"`
	MaxPages int           `json:"max_pages"`

	// DefaultTask and DefaultFormat apply when a request names neither
	DefaultTask   string `json:"default_task"`
	DefaultFormat string `json:"default_format"`

	MaxConcurrentRequests int           `json:"max_concurrent_requests"`
	MaxQueueSize          int           `json:"max_queue_size"`
	RequestTimeout        time.Duration `json:"request_timeout"`
}

// Node holds the state shared by the API handlers
type Node struct {
	logger *zap.Logger
	config Config

	defaultTask   reading.Task
	defaultFormat reading.Format
	tasks         []reading.Task

	cache *RenderCache
	queue *RequestQueue

	// openAPI is the validated API description, encoded as JSON
	openAPI []byte
}

// NewNode validates config and builds the render cache and request queue.
// Close releases them.
func NewNode(ctx context.Context, zl *zap.Logger, config Config) (*Node, error) {
	if zl == nil {
		zl = zap.NewNop()
	}
	if config.MaxPages <= 0 {
		config.MaxPages = DefaultMaxPages
	}

	task, err := reading.TaskFromString(config.DefaultTask)
	if err != nil {
		return nil, fmt.Errorf("default task: %w", err)
	}
	format, err := reading.ParseFormat(config.DefaultFormat)
	if err != nil {
		return nil, fmt.Errorf("default format: %w", err)
	}

	openAPI, err := OpenAPIJSON(ctx)
	if err != nil {
		return nil, err
	}

	return &Node{
		logger:        zl,
		config:        config,
		defaultTask:   task,
		defaultFormat: format,
		tasks:         reading.Tasks(),
		cache:         NewRenderCache(config.CacheTTL, zl.Named("render-cache")),
		queue: NewRequestQueue(RequestQueueConfig{
			MaxConcurrentRequests: config.MaxConcurrentRequests,
			MaxQueueSize:          config.MaxQueueSize,
			RequestTimeout:        config.RequestTimeout,
		}, zl.Named("queue")),
		openAPI: openAPI,
	}, nil
}

// Close stops the render cache
func (n *Node) Close() {
	if n.cache != nil {
		n.cache.Close()
	}
}

// Handler returns the root handler: health endpoints, the API under /api/,
// request ids and CORS.
func (n *Node) Handler() http.Handler {
	rootMux := http.NewServeMux()

	// Health endpoints (outside /api prefix for k8s compatibility)
	rootMux.HandleFunc("GET /healthz", n.handleHealthz)
	rootMux.HandleFunc("GET /readyz", n.handleReadyz)

	rootMux.Handle("/api/", NewAPI(n.logger, n))

	return corsMiddleware(requestIDMiddleware(rootMux))
}

// corsMiddleware adds permissive CORS headers for the API
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With, Accept, Origin, "+RequestIDHeader)
		w.Header().Set("Access-Control-Expose-Headers", RequestIDHeader)
		w.Header().Set("Access-Control-Max-Age", "3600")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

type requestIDKey struct{}

// requestIDMiddleware echoes the caller's request id or assigns a new one
func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey{}, id)))
	})
}

// RequestID returns the request id assigned by the server, if any
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// RunAsServer serves the API until ctx is cancelled.
// If readyC is non-nil, it will be closed when the server is ready to accept requests.
func RunAsServer(ctx context.Context, zl *zap.Logger, config Config, readyC chan struct{}) {
	zl = zl.Named("smoldocling")
	zl.Info("Starting smoldocling node", zap.Any("config", config))

	if config.ApiUrl == "" {
		config.ApiUrl = DefaultApiUrl
	}
	u, err := url.Parse(config.ApiUrl)
	if err != nil {
		zl.Fatal("Invalid API URL", zap.String("url", config.ApiUrl), zap.Error(err))
	}

	node, err := NewNode(ctx, zl, config)
	if err != nil {
		zl.Fatal("Failed to initialize node", zap.Error(err))
	}
	defer node.Close()

	srv := &http.Server{
		Addr:              u.Host,
		Handler:           node.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
	}

	// Start server in goroutine
	serverErr := make(chan error, 1)
	go func() {
		zl.Info("SmolDocling api server starting", zap.String("address", config.ApiUrl))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
		close(serverErr)
	}()

	// Signal readiness after server starts
	if readyC != nil {
		close(readyC)
	}

	// Wait for context cancellation or server error
	select {
	case err := <-serverErr:
		if err != nil {
			zl.Fatal("HTTP server error", zap.Error(err))
		}
	case <-ctx.Done():
		zl.Info("Shutdown signal received, starting graceful shutdown...")
	}

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), DefaultShutdownTimeout)
	defer shutdownCancel()

	// Stop accepting new connections
	srv.SetKeepAlivesEnabled(false)

	if err := srv.Shutdown(shutdownCtx); err != nil {
		zl.Warn("Graceful shutdown failed, forcing close",
			zap.Error(err),
			zap.Duration("timeout", DefaultShutdownTimeout))
		_ = srv.Close()
	} else {
		zl.Info("Graceful shutdown completed successfully")
	}

	zl.Info("HTTP server stopped")
}
