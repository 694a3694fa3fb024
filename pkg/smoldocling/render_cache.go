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
	"encoding/binary"
	"sync/atomic"
	"time"

	"github.com/antflydb/smoldocling/pkg/smoldocling/lib/reading"
	"github.com/cespare/xxhash/v2"
	"github.com/jellydator/ttlcache/v3"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// renderDocument is replaced in tests to control render timing
var renderDocument = reading.RenderDocument

// RenderCacheTTL is the default TTL for cached render results
const RenderCacheTTL = 5 * time.Minute

const renderCacheType = "render"

// RenderCache memoizes rendered documents. Rendering is a pure function of
// the pages, their tasks and the format, so identical requests share a
// result.
type RenderCache struct {
	cache   *ttlcache.Cache[string, string]
	sfGroup *singleflight.Group
	logger  *zap.Logger
	cancel  context.CancelFunc

	// Metrics
	hits   atomic.Uint64
	misses atomic.Uint64
	sfHits atomic.Uint64
}

// NewRenderCache creates a render cache. A zero ttl uses RenderCacheTTL.
func NewRenderCache(ttl time.Duration, logger *zap.Logger) *RenderCache {
	if ttl <= 0 {
		ttl = RenderCacheTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	cache := ttlcache.New(
		ttlcache.WithTTL[string, string](ttl),
	)
	go cache.Start()

	ctx, cancel := context.WithCancel(context.Background())
	rc := &RenderCache{
		cache:   cache,
		sfGroup: &singleflight.Group{},
		logger:  logger,
		cancel:  cancel,
	}

	// Log cache stats periodically
	go rc.logStats(ctx)

	return rc
}

// Render renders the document, serving repeated requests from the cache.
// The boolean result reports a cache hit.
func (rc *RenderCache) Render(ctx context.Context, pages []reading.Page, format reading.Format) (string, bool, error) {
	key := rc.cacheKey(pages, format)

	if item := rc.cache.Get(key); item != nil {
		rc.hits.Add(1)
		RecordCacheHit(renderCacheType)
		rc.logger.Debug("Render cache hit",
			zap.String("format", string(format)),
			zap.Int("num_pages", len(pages)))
		return item.Value(), true, nil
	}

	// Use singleflight to deduplicate concurrent identical requests. The
	// shared render must outlive any one caller's context.
	renderCtx := context.WithoutCancel(ctx)
	ch := rc.sfGroup.DoChan(key, func() (any, error) {
		rc.misses.Add(1)
		RecordCacheMiss(renderCacheType)

		start := time.Now()
		out, err := renderDocument(renderCtx, pages, format)
		if err != nil {
			return nil, err
		}

		rc.cache.Set(key, out, ttlcache.DefaultTTL)

		rc.logger.Debug("Render completed and cached",
			zap.String("format", string(format)),
			zap.Int("num_pages", len(pages)),
			zap.Duration("duration", time.Since(start)))

		return out, nil
	})

	var res singleflight.Result
	select {
	case <-ctx.Done():
		return "", false, ctx.Err()
	case res = <-ch:
	}
	if res.Err != nil {
		return "", false, res.Err
	}

	if res.Shared {
		rc.sfHits.Add(1)
		rc.logger.Debug("Singleflight hit for render request",
			zap.String("format", string(format)))
	}

	return res.Val.(string), false, nil
}

// cacheKey hashes the format and every (task, raw) pair in page order
func (rc *RenderCache) cacheKey(pages []reading.Page, format reading.Format) string {
	h := xxhash.New()

	_, _ = h.WriteString("f:")
	_, _ = h.WriteString(string(format))
	_, _ = h.WriteString("|")

	var lenBuf [8]byte
	for i, page := range pages {
		_, _ = h.WriteString("p")
		// Use index to ensure order matters
		binary.BigEndian.PutUint32(lenBuf[:4], uint32(i))
		_, _ = h.Write(lenBuf[:4])

		// Length prefixes keep task and raw text from running together
		binary.BigEndian.PutUint64(lenBuf[:], uint64(len(page.Task)))
		_, _ = h.Write(lenBuf[:])
		_, _ = h.WriteString(string(page.Task))

		binary.BigEndian.PutUint64(lenBuf[:], uint64(len(page.Raw)))
		_, _ = h.Write(lenBuf[:])
		_, _ = h.WriteString(page.Raw)
	}

	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], h.Sum64())
	return string(buf[:])
}

// Close stops the cache
func (rc *RenderCache) Close() {
	rc.cancel()
	rc.cache.Stop()
}

// logStats logs cache statistics periodically
func (rc *RenderCache) logStats(ctx context.Context) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			stats := rc.Stats()
			if stats.Hits > 0 || stats.Misses > 0 {
				rc.logger.Info("Render cache stats",
					zap.Uint64("hits", stats.Hits),
					zap.Uint64("misses", stats.Misses),
					zap.Float64("hit_rate_pct", stats.HitRate()*100),
					zap.Int("items", stats.Items))
			}
		}
	}
}

// RenderCacheStats holds render cache statistics
type RenderCacheStats struct {
	Hits             uint64 `json:"hits"`
	Misses           uint64 `json:"misses"`
	SingleflightHits uint64 `json:"singleflight_hits"`
	Items            int    `json:"items"`
}

// HitRate returns hits over lookups, or 0 before the first lookup
func (s RenderCacheStats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

// Stats returns cache statistics
func (rc *RenderCache) Stats() RenderCacheStats {
	return RenderCacheStats{
		Hits:             rc.hits.Load(),
		Misses:           rc.misses.Load(),
		SingleflightHits: rc.sfHits.Load(),
		Items:            rc.cache.Len(),
	}
}
