// File path: internal/common/telemetry/telemetry.go
package telemetry

import (
	"context"
	"expvar"
	"strings"
	"sync"
	"time"

	"github.com/linkwise/linkwise/internal/common"
)

type spanKey struct{}

type span struct {
	name  string
	start time.Time
}

var (
	initOnce sync.Once

	suggestTotal     *expvar.Int
	suggestCacheHits *expvar.Int
	suggestCoalesced *expvar.Int
	suggestLatencyMS *expvar.Int

	vectorQueryTotal     *expvar.Int
	vectorQueryLatencyMS *expvar.Int

	embedTotal     *expvar.Int
	embedCacheHits *expvar.Int

	anchorStrategyHits *expvar.Map

	insertedLinksTotal *expvar.Int
)

func ensureInit() {
	initOnce.Do(func() {
		suggestTotal = expvar.NewInt("linkwise_suggest_total")
		suggestCacheHits = expvar.NewInt("linkwise_suggest_cache_hits")
		suggestCoalesced = expvar.NewInt("linkwise_suggest_coalesced")
		suggestLatencyMS = expvar.NewInt("linkwise_suggest_latency_ms")

		vectorQueryTotal = expvar.NewInt("linkwise_vector_query_total")
		vectorQueryLatencyMS = expvar.NewInt("linkwise_vector_query_latency_ms")

		embedTotal = expvar.NewInt("linkwise_embed_total")
		embedCacheHits = expvar.NewInt("linkwise_embed_cache_hits")

		anchorStrategyHits = expvar.NewMap("linkwise_anchor_strategy_hits")

		insertedLinksTotal = expvar.NewInt("linkwise_inserted_links_total")
	})
}

// StartSpan records a debug-level trace span around a unit of work.
func StartSpan(ctx context.Context, name string) (context.Context, func(attrs ...interface{})) {
	ensureInit()
	sp := &span{name: name, start: time.Now()}
	ctx = context.WithValue(ctx, spanKey{}, sp)
	logger := common.Logger()
	logger.Debug("trace: start", "span", name)
	return ctx, func(attrs ...interface{}) {
		if sp == nil {
			return
		}
		duration := time.Since(sp.start)
		logger.Debug("trace: end", append([]interface{}{"span", name, "dur", duration}, attrs...)...)
	}
}

// RecordSuggest tracks one suggestion request and how it was served.
func RecordSuggest(cacheHit, coalesced bool, duration time.Duration) {
	ensureInit()
	suggestTotal.Add(1)
	if cacheHit {
		suggestCacheHits.Add(1)
	}
	if coalesced {
		suggestCoalesced.Add(1)
	}
	if duration > 0 {
		suggestLatencyMS.Add(duration.Milliseconds())
	}
}

// RecordVectorQuery tracks a similarity query against the vector index.
func RecordVectorQuery(duration time.Duration) {
	ensureInit()
	vectorQueryTotal.Add(1)
	if duration > 0 {
		vectorQueryLatencyMS.Add(duration.Milliseconds())
	}
}

// RecordEmbed tracks an embedding lookup and whether the cache served it.
func RecordEmbed(cacheHit bool) {
	ensureInit()
	embedTotal.Add(1)
	if cacheHit {
		embedCacheHits.Add(1)
	}
}

// RecordAnchorStrategy tracks which discovery strategy produced a winning anchor.
func RecordAnchorStrategy(strategy string) {
	ensureInit()
	key := strings.TrimSpace(strings.ToLower(strategy))
	if key == "" {
		key = "unknown"
	}
	anchorStrategyHits.Add(key, 1)
}

// RecordInsertedLinks tracks how many links a mutation pass spliced in.
func RecordInsertedLinks(count int) {
	ensureInit()
	if count <= 0 {
		return
	}
	insertedLinksTotal.Add(int64(count))
}

// SpanDuration reports elapsed time for the span stored on the context.
func SpanDuration(ctx context.Context) time.Duration {
	sp, _ := ctx.Value(spanKey{}).(*span)
	if sp == nil {
		return 0
	}
	return time.Since(sp.start)
}
