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

import "github.com/prometheus/client_golang/prometheus"

var (
	renderRequestOps = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "antfly",
			Subsystem: "smoldocling",
			Name:      "render_request_ops_total",
			Help:      "The total number of render requests.",
		},
		[]string{"format", "task"},
	)
	pageRenderOps = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "antfly",
			Subsystem: "smoldocling",
			Name:      "page_render_ops_total",
			Help:      "The total number of pages rendered.",
		},
		[]string{"format"},
	)
	placeholderOps = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "antfly",
			Subsystem: "smoldocling",
			Name:      "placeholder_ops_total",
			Help:      "The total number of pages rendered as a not-found or empty placeholder.",
		},
		[]string{"format"},
	)

	requestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "antfly",
			Subsystem: "smoldocling",
			Name:      "request_duration_seconds",
			Help:      "Time taken to process a request.",
			Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1},
		},
		[]string{"endpoint", "format", "status"},
	)

	cacheHits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "antfly",
			Subsystem: "smoldocling",
			Name:      "cache_hits_total",
			Help:      "Total number of cache hits.",
		},
		[]string{"type"},
	)

	cacheMisses = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "antfly",
			Subsystem: "smoldocling",
			Name:      "cache_misses_total",
			Help:      "Total number of cache misses.",
		},
		[]string{"type"},
	)

	// Queue metrics
	queueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "antfly",
			Subsystem: "smoldocling",
			Name:      "queue_depth",
			Help:      "Number of requests currently waiting in queue.",
		},
	)

	queueActiveRequests = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "antfly",
			Subsystem: "smoldocling",
			Name:      "queue_active_requests",
			Help:      "Number of requests currently being processed.",
		},
	)

	queueRejectedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "antfly",
			Subsystem: "smoldocling",
			Name:      "queue_rejected_total",
			Help:      "Total number of requests rejected due to full queue.",
		},
	)

	queueTimedOutTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "antfly",
			Subsystem: "smoldocling",
			Name:      "queue_timed_out_total",
			Help:      "Total number of requests that timed out while waiting in queue.",
		},
	)

	queueWaitDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "antfly",
			Subsystem: "smoldocling",
			Name:      "queue_wait_duration_seconds",
			Help:      "Time spent waiting in queue before processing.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
	)
)

func init() {
	prometheus.MustRegister(renderRequestOps)
	prometheus.MustRegister(pageRenderOps)
	prometheus.MustRegister(placeholderOps)
	prometheus.MustRegister(requestDuration)
	prometheus.MustRegister(cacheHits)
	prometheus.MustRegister(cacheMisses)
	prometheus.MustRegister(queueDepth)
	prometheus.MustRegister(queueActiveRequests)
	prometheus.MustRegister(queueRejectedTotal)
	prometheus.MustRegister(queueTimedOutTotal)
	prometheus.MustRegister(queueWaitDuration)
}

// RecordRenderRequest increments the render request counter
func RecordRenderRequest(format, task string) {
	renderRequestOps.WithLabelValues(format, task).Inc()
}

// RecordPagesRendered records the number of pages rendered
func RecordPagesRendered(format string, count int) {
	pageRenderOps.WithLabelValues(format).Add(float64(count))
}

// RecordPlaceholder increments the placeholder counter
func RecordPlaceholder(format string) {
	placeholderOps.WithLabelValues(format).Inc()
}

// RecordRequestDuration records how long a request took
func RecordRequestDuration(endpoint, format, status string, seconds float64) {
	requestDuration.WithLabelValues(endpoint, format, status).Observe(seconds)
}

// RecordCacheHit increments the cache hit counter
func RecordCacheHit(cacheType string) {
	cacheHits.WithLabelValues(cacheType).Inc()
}

// RecordCacheMiss increments the cache miss counter
func RecordCacheMiss(cacheType string) {
	cacheMisses.WithLabelValues(cacheType).Inc()
}

// UpdateQueueMetrics updates all queue-related metrics from QueueStats
func UpdateQueueMetrics(stats QueueStats) {
	queueDepth.Set(float64(stats.CurrentQueued))
	queueActiveRequests.Set(float64(stats.CurrentActive))
}

// RecordQueueRejection increments the rejected counter
func RecordQueueRejection() {
	queueRejectedTotal.Inc()
}

// RecordQueueTimeout increments the timeout counter
func RecordQueueTimeout() {
	queueTimedOutTotal.Inc()
}

// RecordQueueWaitTime records how long a request waited in queue
func RecordQueueWaitTime(seconds float64) {
	queueWaitDuration.Observe(seconds)
}
