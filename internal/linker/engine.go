// File path: internal/linker/engine.go
package linker

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/linkwise/linkwise/internal/analysis"
	"github.com/linkwise/linkwise/internal/cache"
	"github.com/linkwise/linkwise/internal/catalog"
	"github.com/linkwise/linkwise/internal/common"
	"github.com/linkwise/linkwise/internal/common/telemetry"
	"github.com/linkwise/linkwise/internal/embedding"
	"github.com/linkwise/linkwise/internal/vector"
)

const (
	defaultRetrievalLimit = 20
	defaultMinScore       = 15.0
	cacheKeyPrefixBytes   = 500

	responseCacheTTL      = 10 * time.Minute
	responseCacheCapacity = 512
	sessionAnchorTTL      = time.Hour
	sessionAnchorCapacity = 4096
)

// Engine runs one ranking and placement pass per request. Identical requests
// arriving concurrently share a single computation; identical requests within
// the cache TTL share a single result.
type Engine struct {
	vectors  vector.Store
	embedder embedding.Embedder
	analyzer analysis.Analyzer
	scorer   *Scorer

	responses *cache.Store
	session   *SessionAnchors
	flights   singleflight.Group

	retrievalLimit int
	brandTokens    []string
	logger         *slog.Logger
}

// EngineOption configures optional engine collaborators.
type EngineOption func(*Engine)

// WithAnalyzer supplies the analyzer used to fill in source metadata when the
// request omits it.
func WithAnalyzer(analyzer analysis.Analyzer) EngineOption {
	return func(e *Engine) { e.analyzer = analyzer }
}

// WithResponseCache overrides the response cache, mainly so tests can inject
// a clock.
func WithResponseCache(store *cache.Store) EngineOption {
	return func(e *Engine) { e.responses = store }
}

// WithSessionAnchors overrides the cross-request anchor usage tracker.
func WithSessionAnchors(session *SessionAnchors) EngineOption {
	return func(e *Engine) { e.session = session }
}

// WithRetrievalLimit sets how many neighbors the vector query requests before
// filtering and scoring.
func WithRetrievalLimit(limit int) EngineOption {
	return func(e *Engine) {
		if limit > 0 {
			e.retrievalLimit = limit
		}
	}
}

// WithBrandTokens marks site-brand words that boost anchor candidates
// containing them.
func WithBrandTokens(tokens []string) EngineOption {
	return func(e *Engine) { e.brandTokens = tokens }
}

func NewEngine(vectors vector.Store, embedder embedding.Embedder, opts ...EngineOption) *Engine {
	engine := &Engine{
		vectors:        vectors,
		embedder:       embedder,
		scorer:         NewScorer(),
		retrievalLimit: defaultRetrievalLimit,
		logger:         common.Logger(),
	}
	for _, opt := range opts {
		opt(engine)
	}
	if engine.responses == nil {
		engine.responses = cache.New(responseCacheTTL, responseCacheCapacity)
	}
	if engine.session == nil {
		engine.session = NewSessionAnchors(cache.New(sessionAnchorTTL, sessionAnchorCapacity))
	}
	return engine
}

// Suggest handles one request end to end. Infrastructure failures degrade to
// an empty suggestion list with a reason instead of an error; only malformed
// requests error.
func (e *Engine) Suggest(ctx context.Context, req Request) (Response, error) {
	if missing := req.MissingFields(); len(missing) > 0 {
		return Response{}, fmt.Errorf("missing required fields: %s", strings.Join(missing, ", "))
	}
	req.Normalize()

	started := time.Now()
	key := requestKey(req)

	if !req.SkipCache {
		if hit, ok := e.responses.Get(key); ok {
			if cached, ok := hit.(Response); ok {
				cached.Cached = true
				telemetry.RecordSuggest(true, false, time.Since(started))
				e.logger.Debug("linker: response cache hit", "source", req.SourceID)
				return cached, nil
			}
		}
	}

	result, err, shared := e.flights.Do(key, func() (interface{}, error) {
		resp := e.compute(ctx, req)
		if !req.SkipCache && resp.Success && resp.Reason == "" {
			e.responses.Set(key, resp)
		}
		return resp, nil
	})
	if err != nil {
		return Response{}, err
	}
	resp := result.(Response)
	telemetry.RecordSuggest(false, shared, time.Since(started))
	return resp, nil
}

// compute is the uncached pipeline: parse, profile, retrieve, filter, score,
// pick anchors, optionally insert.
func (e *Engine) compute(ctx context.Context, req Request) Response {
	doc, err := ExtractPlainDoc(req.Content)
	if err != nil || len(strings.TrimSpace(doc.Text)) == 0 {
		e.logger.Warn("linker: content not linkable", "source", req.SourceID, "error", err)
		return degraded("content could not be parsed")
	}

	profile := e.buildProfile(ctx, req, doc)

	vec, err := e.embedQuery(ctx, req, doc)
	if err != nil {
		e.logger.Warn("linker: embedding unavailable", "source", req.SourceID, "error", err)
		return degraded("embedding unavailable")
	}

	if e.vectors == nil {
		return degraded("vector index unavailable")
	}
	limit := e.retrievalLimit
	if limit < req.MaxLinks*3 {
		limit = req.MaxLinks * 3
	}
	matches, err := e.vectors.Query(ctx, vec, limit, append([]string{req.SourceID}, req.ExcludeIDs...))
	if err != nil {
		e.logger.Warn("linker: vector query failed", "source", req.SourceID, "error", err)
		return degraded("vector index unavailable")
	}

	candidates := make([]Candidate, 0, len(matches))
	for _, match := range matches {
		candidates = append(candidates, Candidate{
			Entry:       catalog.EntryFromPayload(match.ID, match.Payload),
			VectorScore: float64(match.Score),
		})
	}
	found := len(candidates)
	candidates = filterCandidates(req, newLinkedTargets(doc.LinkedURLs), candidates)

	scored, err := e.scorer.ScoreAll(ctx, profile, candidates)
	if err != nil {
		e.logger.Warn("linker: scoring aborted", "source", req.SourceID, "error", err)
		return degraded("scoring failed")
	}
	minScore := req.MinScore
	if minScore <= 0 {
		minScore = defaultMinScore
	}
	passed := make([]Candidate, 0, len(scored))
	for _, candidate := range scored {
		if candidate.RelevanceScore >= minScore {
			passed = append(passed, candidate)
		}
	}

	suggestions := e.selectAnchors(doc, req, passed)

	resp := Response{
		Success: true,
		Links:   suggestions,
		Stats: Stats{
			CandidatesFound: found,
			PassedScoring:   len(passed),
			AverageScore:    averageScore(suggestions),
		},
	}
	if len(suggestions) == 0 && resp.Reason == "" {
		resp.Reason = "no suitable anchor placements found"
	}

	if req.AutoInsert && len(suggestions) > 0 {
		linked, updated, err := InsertLinks(req.Content, suggestions)
		if err != nil {
			e.logger.Warn("linker: insertion failed", "source", req.SourceID, "error", err)
		} else {
			resp.Links = updated
			resp.LinkedContent = linked
			inserted := 0
			for _, suggestion := range updated {
				if suggestion.Inserted {
					inserted++
				}
			}
			telemetry.RecordInsertedLinks(inserted)
		}
	}
	return resp
}

// selectAnchors walks the ranked candidates and claims one anchor phrase per
// target until max_links suggestions exist, enforcing one link per block and
// the summary-page target cap. A candidate that yields no anchor is skipped,
// not failed.
func (e *Engine) selectAnchors(doc *PlainDoc, req Request, candidates []Candidate) []Suggestion {
	finder := NewAnchorFinder(doc, req.SourceID, e.session, e.brandTokens)
	blockTaken := make(map[int]bool)
	summaryCount := 0

	suggestions := make([]Suggestion, 0, req.MaxLinks)
	for _, candidate := range candidates {
		if len(suggestions) >= req.MaxLinks {
			break
		}
		isSummary := candidate.Entry.ContentType == catalog.TypePage
		if isSummary && summaryCount >= MaxSummaryLinks {
			continue
		}
		anchor, ok := finder.Find(candidate.Entry.Title, func(ac AnchorCandidate) bool {
			return !blockTaken[doc.BlockAt(ac.Span.Start)]
		})
		if !ok {
			continue
		}
		block := doc.BlockAt(anchor.Span.Start)
		blockTaken[block] = true
		if isSummary {
			summaryCount++
		}
		suggestions = append(suggestions, Suggestion{
			TargetID:   candidate.Entry.ID,
			Title:      candidate.Entry.Title,
			URL:        candidate.Entry.URL,
			AnchorText: anchor.Text,
			Placement:  anchor.Position,
			Score:      candidate.RelevanceScore,
			Breakdown:  candidate.Breakdown,
			Reasoning:  buildReasoning(candidate),
			span:       anchor.Span,
			block:      block,
		})
	}
	return suggestions
}

// buildProfile turns the request into a scoring profile, asking the analyzer
// to fill gaps when the client sent no topical metadata. Analyzer failures
// leave the sparse profile in place.
func (e *Engine) buildProfile(ctx context.Context, req Request, doc *PlainDoc) SourceProfile {
	profile := SourceProfile{
		ID:              req.SourceID,
		ContentType:     req.ContentType,
		TopicCluster:    req.TopicCluster,
		RelatedClusters: req.RelatedClusters,
		FunnelStage:     req.FunnelStage,
		TargetPersona:   req.TargetPersona,
		DifficultyLevel: 1,
		ContentLifespan: catalog.LifespanEvergreen,
	}
	if profile.TopicCluster != "" || e.analyzer == nil {
		return profile
	}
	insights, err := e.analyzer.Analyze(ctx, req.Title, doc.Text)
	if err != nil {
		e.logger.Warn("linker: source analysis failed", "source", req.SourceID, "error", err)
		return profile
	}
	profile.TopicCluster = insights.TopicCluster
	if len(profile.RelatedClusters) == 0 {
		profile.RelatedClusters = insights.RelatedClusters
	}
	if profile.FunnelStage == "" {
		profile.FunnelStage = insights.FunnelStage
	}
	if profile.TargetPersona == "" {
		profile.TargetPersona = insights.TargetPersona
	}
	if insights.DifficultyLevel > 0 {
		profile.DifficultyLevel = insights.DifficultyLevel
	}
	profile.TopicTags = insights.TopicTags
	profile.Keywords = insights.Keywords
	return profile
}

// embedQuery embeds the title plus a leading slice of the body; the slice
// keeps query latency independent of document length.
func (e *Engine) embedQuery(ctx context.Context, req Request, doc *PlainDoc) ([]float32, error) {
	const bodyLimit = 2000
	body := doc.Text
	if len(body) > bodyLimit {
		body = body[:bodyLimit]
	}
	vectors, err := e.embedder.Embed(ctx, []string{req.Title + "\n\n" + body})
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 || len(vectors[0]) == 0 {
		return nil, fmt.Errorf("empty embedding")
	}
	return vectors[0], nil
}

func degraded(reason string) Response {
	return Response{Success: true, Links: []Suggestion{}, Reason: reason}
}

func averageScore(suggestions []Suggestion) float64 {
	if len(suggestions) == 0 {
		return 0
	}
	var total float64
	for _, suggestion := range suggestions {
		total += suggestion.Score
	}
	return total / float64(len(suggestions))
}

// buildReasoning summarizes the two strongest score factors for audit display.
func buildReasoning(candidate Candidate) string {
	type factor struct {
		name   string
		points float64
	}
	factors := make([]factor, 0, len(candidate.Breakdown))
	for name, points := range candidate.Breakdown {
		if points > 0 {
			factors = append(factors, factor{name, points})
		}
	}
	sort.Slice(factors, func(i, j int) bool {
		if factors[i].points != factors[j].points {
			return factors[i].points > factors[j].points
		}
		return factors[i].name < factors[j].name
	})
	labels := map[string]string{
		"vector":       "strong semantic match",
		"cluster":      "shared topic cluster",
		"funnel":       "advances the reader's funnel stage",
		"difficulty":   "appropriate difficulty step",
		"persona":      "matching audience",
		"freshness":    "recently updated target",
		"authority":    "authoritative target",
		"monetization": "high-value target",
		"conversion":   "conversion-ready target",
		"link_gap":     "under-linked target",
	}
	parts := make([]string, 0, 2)
	for _, item := range factors {
		label, ok := labels[item.name]
		if !ok {
			continue
		}
		parts = append(parts, label)
		if len(parts) == 2 {
			break
		}
	}
	if len(parts) == 0 {
		return "related content"
	}
	return strings.Join(parts, "; ")
}

// requestKey derives the cache and coalescing key. Only the fields that can
// change the answer participate; the content prefix stands in for the full
// body so huge documents hash cheaply.
func requestKey(req Request) string {
	hasher := sha256.New()
	hasher.Write([]byte(req.SourceID))
	hasher.Write([]byte{0})
	prefix := req.Content
	if len(prefix) > cacheKeyPrefixBytes {
		prefix = prefix[:cacheKeyPrefixBytes]
	}
	hasher.Write([]byte(prefix))
	hasher.Write([]byte{0})
	fmt.Fprintf(hasher, "%d|%t", req.MaxLinks, req.AutoInsert)
	return hex.EncodeToString(hasher.Sum(nil))
}
