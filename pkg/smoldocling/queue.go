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
	"context"
	"errors"
	"net/http"
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

var (
	// ErrQueueFull is returned when the wait queue is at capacity
	ErrQueueFull = errors.New("request queue is full")
	// ErrRequestTimeout is returned when a request waits longer than RequestTimeout
	ErrRequestTimeout = errors.New("request timed out waiting in queue")
)

// RequestQueueConfig bounds concurrent render work.
type RequestQueueConfig struct {
	// MaxConcurrentRequests is the number of requests processed at once.
	// Zero uses GOMAXPROCS.
	MaxConcurrentRequests int
	// MaxQueueSize is the number of requests allowed to wait. Zero means unbounded.
	MaxQueueSize int
	// RequestTimeout bounds the time spent waiting. Zero waits until the
	// request context is done.
	RequestTimeout time.Duration
}

// QueueStats is a snapshot of queue occupancy
type QueueStats struct {
	CurrentActive int64 `json:"current_active"`
	CurrentQueued int64 `json:"current_queued"`
	MaxConcurrent int   `json:"max_concurrent"`
	MaxQueueSize  int   `json:"max_queue_size"`
}

// RequestQueue applies backpressure to the render endpoint
type RequestQueue struct {
	config RequestQueueConfig
	sem    *semaphore.Weighted
	logger *zap.Logger

	active atomic.Int64
	queued atomic.Int64
}

// NewRequestQueue creates a queue from config
func NewRequestQueue(config RequestQueueConfig, logger *zap.Logger) *RequestQueue {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.MaxConcurrentRequests <= 0 {
		config.MaxConcurrentRequests = runtime.GOMAXPROCS(0)
	}
	return &RequestQueue{
		config: config,
		sem:    semaphore.NewWeighted(int64(config.MaxConcurrentRequests)),
		logger: logger,
	}
}

// Acquire blocks until a processing slot is free. The returned release
// function must be called exactly once when the request is done; further
// calls are no-ops.
func (q *RequestQueue) Acquire(ctx context.Context) (func(), error) {
	if q.sem.TryAcquire(1) {
		return q.started(), nil
	}

	if q.config.MaxQueueSize > 0 && q.queued.Load() >= int64(q.config.MaxQueueSize) {
		q.logger.Debug("Rejecting request, queue full",
			zap.Int64("queued", q.queued.Load()))
		return nil, ErrQueueFull
	}

	q.queued.Add(1)
	UpdateQueueMetrics(q.Stats())
	defer func() {
		q.queued.Add(-1)
		UpdateQueueMetrics(q.Stats())
	}()

	waitCtx := ctx
	if q.config.RequestTimeout > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, q.config.RequestTimeout)
		defer cancel()
	}

	start := time.Now()
	if err := q.sem.Acquire(waitCtx, 1); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, ErrRequestTimeout
	}
	RecordQueueWaitTime(time.Since(start).Seconds())

	return q.started(), nil
}

func (q *RequestQueue) started() func() {
	q.active.Add(1)
	UpdateQueueMetrics(q.Stats())
	var once sync.Once
	return func() {
		once.Do(func() {
			q.active.Add(-1)
			q.sem.Release(1)
			UpdateQueueMetrics(q.Stats())
		})
	}
}

// Stats returns current queue occupancy
func (q *RequestQueue) Stats() QueueStats {
	return QueueStats{
		CurrentActive: q.active.Load(),
		CurrentQueued: q.queued.Load(),
		MaxConcurrent: q.config.MaxConcurrentRequests,
		MaxQueueSize:  q.config.MaxQueueSize,
	}
}

// WriteQueueFullResponse tells the client to retry after retryAfter
func WriteQueueFullResponse(w http.ResponseWriter, retryAfter time.Duration) {
	w.Header().Set("Retry-After", strconv.Itoa(int(retryAfter.Seconds())))
	http.Error(w, ErrQueueFull.Error(), http.StatusServiceUnavailable)
}

// WriteTimeoutResponse reports a request that never left the queue
func WriteTimeoutResponse(w http.ResponseWriter) {
	http.Error(w, ErrRequestTimeout.Error(), http.StatusServiceUnavailable)
}
