// File path: internal/linker/engine_test.go
package linker

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/linkwise/linkwise/internal/catalog"
	"github.com/linkwise/linkwise/internal/vector"
)

type fakeIndex struct {
	matches []vector.Match
	queries int32
	delay   time.Duration
	down    bool
}

func (f *fakeIndex) Available() bool                                 { return !f.down }
func (f *fakeIndex) Collection() string                              { return "test" }
func (f *fakeIndex) EnsureCollection(context.Context, int) error     { return nil }
func (f *fakeIndex) Upsert(context.Context, []vector.Point) error    { return nil }
func (f *fakeIndex) Delete(context.Context, string) error            { return nil }
func (f *fakeIndex) Fetch(context.Context, string) (map[string]interface{}, bool, error) {
	return nil, false, nil
}

func (f *fakeIndex) Query(ctx context.Context, vec []float32, topK int, excludeIDs []string) ([]vector.Match, error) {
	atomic.AddInt32(&f.queries, 1)
	if f.down {
		return nil, errors.New("index unreachable")
	}
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	excluded := make(map[string]struct{}, len(excludeIDs))
	for _, id := range excludeIDs {
		excluded[id] = struct{}{}
	}
	var out []vector.Match
	for _, match := range f.matches {
		if _, skip := excluded[match.ID]; skip {
			continue
		}
		out = append(out, match)
	}
	return out, nil
}

type staticEmbedder struct{}

func (staticEmbedder) Embed(ctx context.Context, input []string) ([][]float32, error) {
	out := make([][]float32, len(input))
	for i := range input {
		out[i] = []float32{1, 0, 0}
	}
	return out, nil
}

func (staticEmbedder) Name() string { return "static" }

func testMatch(entry catalog.Entry, score float32) vector.Match {
	entry.Normalize()
	return vector.Match{ID: entry.ID, Score: score, Payload: entry.Payload()}
}

func testIndex() *fakeIndex {
	brrrr := catalog.Entry{
		ID:           "brrrr-deep-dive",
		Title:        "BRRRR Strategy for Rental Investors",
		URL:          "https://example.com/brrrr-deep-dive",
		ContentType:  catalog.TypePost,
		TopicCluster: "brrrr-strategy",
		FunnelStage:  catalog.StageAwareness,
	}
	dallas := catalog.Entry{
		ID:           "dallas-update",
		Title:        "Dallas Duplex Market Updates",
		URL:          "https://example.com/dallas-update",
		ContentType:  catalog.TypePost,
		TopicCluster: "dallas-market",
		FunnelStage:  catalog.StageAwareness,
	}
	return &fakeIndex{matches: []vector.Match{
		testMatch(dallas, 0.95),
		testMatch(brrrr, 0.70),
	}}
}

func testRequest() Request {
	return Request{
		SourceID: "src-1",
		Title:    "Scaling with BRRRR",
		Content: `<p>The BRRRR strategy helped our rental investors scale quickly.</p>` +
			`<p>Local duplex market conditions in Dallas keep shifting every quarter.</p>`,
		TopicCluster: "brrrr-strategy",
		ContentType:  catalog.TypePost,
		FunnelStage:  catalog.StageAwareness,
		MaxLinks:     2,
	}
}

func TestSuggestRanksClusterMatchFirst(t *testing.T) {
	engine := NewEngine(testIndex(), staticEmbedder{})
	resp, err := engine.Suggest(context.Background(), testRequest())
	if err != nil {
		t.Fatalf("suggest: %v", err)
	}
	if !resp.Success {
		t.Fatalf("unexpected failure: %+v", resp)
	}
	if len(resp.Links) != 2 {
		t.Fatalf("expected 2 links, got %d (%+v)", len(resp.Links), resp)
	}
	if resp.Links[0].TargetID != "brrrr-deep-dive" {
		t.Fatalf("cluster match should rank first despite lower vector score, got %s", resp.Links[0].TargetID)
	}
	if resp.Links[0].AnchorText == "" || resp.Links[0].Placement == "" {
		t.Fatalf("link missing anchor details: %+v", resp.Links[0])
	}
	if resp.Stats.CandidatesFound != 2 || resp.Stats.PassedScoring != 2 {
		t.Fatalf("unexpected stats: %+v", resp.Stats)
	}
	if resp.Cached {
		t.Fatal("first response must not be cached")
	}
}

func TestSuggestCachedSecondCall(t *testing.T) {
	index := testIndex()
	engine := NewEngine(index, staticEmbedder{})
	req := testRequest()

	first, err := engine.Suggest(context.Background(), req)
	if err != nil {
		t.Fatalf("suggest: %v", err)
	}
	second, err := engine.Suggest(context.Background(), req)
	if err != nil {
		t.Fatalf("suggest: %v", err)
	}
	if !second.Cached {
		t.Fatal("second identical request should hit the response cache")
	}
	if atomic.LoadInt32(&index.queries) != 1 {
		t.Fatalf("cached request recomputed, queries=%d", index.queries)
	}
	if len(first.Links) != len(second.Links) {
		t.Fatalf("cached response diverged: %d vs %d links", len(first.Links), len(second.Links))
	}
	for i := range first.Links {
		if first.Links[i].TargetID != second.Links[i].TargetID ||
			first.Links[i].AnchorText != second.Links[i].AnchorText {
			t.Fatalf("cached link %d diverged: %+v vs %+v", i, first.Links[i], second.Links[i])
		}
	}
}

func TestSuggestSkipCacheBypasses(t *testing.T) {
	index := testIndex()
	engine := NewEngine(index, staticEmbedder{})
	req := testRequest()
	req.SkipCache = true

	if _, err := engine.Suggest(context.Background(), req); err != nil {
		t.Fatalf("suggest: %v", err)
	}
	resp, err := engine.Suggest(context.Background(), req)
	if err != nil {
		t.Fatalf("suggest: %v", err)
	}
	if resp.Cached {
		t.Fatal("skip_cache response must never be served from cache")
	}
	if atomic.LoadInt32(&index.queries) != 2 {
		t.Fatalf("skip_cache should recompute, queries=%d", index.queries)
	}
}

func TestSuggestCoalescesConcurrentRequests(t *testing.T) {
	index := testIndex()
	index.delay = 100 * time.Millisecond
	engine := NewEngine(index, staticEmbedder{})
	req := testRequest()

	const workers = 6
	start := make(chan struct{})
	var wg sync.WaitGroup
	errs := make([]error, workers)
	responses := make([]Response, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			responses[i], errs[i] = engine.Suggest(context.Background(), req)
		}(i)
	}
	close(start)
	wg.Wait()

	for i := 0; i < workers; i++ {
		if errs[i] != nil {
			t.Fatalf("worker %d: %v", i, errs[i])
		}
		if !responses[i].Success {
			t.Fatalf("worker %d failed: %+v", i, responses[i])
		}
	}
	if got := atomic.LoadInt32(&index.queries); got != 1 {
		t.Fatalf("concurrent identical requests should share one computation, queries=%d", got)
	}
}

func TestSuggestDegradesWhenIndexDown(t *testing.T) {
	index := testIndex()
	index.down = true
	engine := NewEngine(index, staticEmbedder{})
	resp, err := engine.Suggest(context.Background(), testRequest())
	if err != nil {
		t.Fatalf("index outage must not surface as an error: %v", err)
	}
	if !resp.Success || len(resp.Links) != 0 || resp.Reason == "" {
		t.Fatalf("expected empty degraded response, got %+v", resp)
	}
}

func TestSuggestRecoversWhenIndexReturns(t *testing.T) {
	index := testIndex()
	index.down = true
	engine := NewEngine(index, staticEmbedder{})

	resp, err := engine.Suggest(context.Background(), testRequest())
	if err != nil {
		t.Fatalf("suggest during outage: %v", err)
	}
	if len(resp.Links) != 0 || resp.Reason == "" {
		t.Fatalf("expected degraded response during outage, got %+v", resp)
	}

	// Degraded responses are never cached, so the next request must reach
	// the index again once it is reachable.
	index.down = false
	resp, err = engine.Suggest(context.Background(), testRequest())
	if err != nil {
		t.Fatalf("suggest after recovery: %v", err)
	}
	if resp.Reason != "" || len(resp.Links) == 0 {
		t.Fatalf("expected suggestions after index recovery, got %+v", resp)
	}
	if resp.Cached {
		t.Fatal("recovered response must be computed, not served from cache")
	}
}

func TestSuggestCapsSummaryPageTargets(t *testing.T) {
	pages := map[string]string{
		"austin-fourplex": "Austin Fourplex Demand",
		"dallas-duplex":   "Dallas Duplex Pricing",
		"fort-worth":      "Fort Worth Occupancy",
		"houston-triplex": "Houston Triplex Inventory",
		"san-antonio":     "San Antonio Rental Affordability",
	}
	index := &fakeIndex{}
	for id, title := range pages {
		entry := catalog.Entry{
			ID:           id,
			Title:        title,
			URL:          "https://example.com/" + id,
			ContentType:  catalog.TypePage,
			TopicCluster: "texas-rentals",
		}
		index.matches = append(index.matches, testMatch(entry, 0.8))
	}
	index.matches = append(index.matches, testMatch(catalog.Entry{
		ID:           "reno-mistakes",
		Title:        "Renovation Mistakes",
		URL:          "https://example.com/reno-mistakes",
		ContentType:  catalog.TypePost,
		TopicCluster: "texas-rentals",
	}, 0.9))

	engine := NewEngine(index, staticEmbedder{})
	req := Request{
		SourceID: "hub",
		Title:    "Texas Rental Market Hub",
		Content: `<p>Austin fourplex demand keeps climbing along the tech corridor.</p>` +
			`<p>Dallas duplex pricing shifted sharply this spring.</p>` +
			`<p>Fort Worth occupancy numbers held steady for landlords.</p>` +
			`<p>Houston triplex inventory finally loosened after two tight years.</p>` +
			`<p>San Antonio rental affordability keeps drawing newcomers.</p>` +
			`<p>Our renovation mistakes cost real money in year one.</p>`,
		TopicCluster: "texas-rentals",
		ContentType:  catalog.TypePage,
		MaxLinks:     8,
	}

	resp, err := engine.Suggest(context.Background(), req)
	if err != nil {
		t.Fatalf("suggest: %v", err)
	}
	if len(resp.Links) != MaxSummaryLinks {
		t.Fatalf("expected %d summary-page links, got %d: %+v", MaxSummaryLinks, len(resp.Links), resp.Links)
	}
	for _, link := range resp.Links {
		if link.TargetID == "reno-mistakes" {
			t.Fatal("summary page must not link to an article")
		}
		if _, ok := pages[link.TargetID]; !ok {
			t.Fatalf("unexpected target %s", link.TargetID)
		}
	}
}

func TestSuggestSingleBlockLimitsToOneLink(t *testing.T) {
	engine := NewEngine(testIndex(), staticEmbedder{})
	req := testRequest()
	req.Content = `<p>The BRRRR strategy helped rental investors while duplex market conditions in Dallas shifted.</p>`

	resp, err := engine.Suggest(context.Background(), req)
	if err != nil {
		t.Fatalf("suggest: %v", err)
	}
	if len(resp.Links) != 1 {
		t.Fatalf("one paragraph can host at most one link, got %d", len(resp.Links))
	}
}

func TestSuggestAutoInsert(t *testing.T) {
	engine := NewEngine(testIndex(), staticEmbedder{})
	req := testRequest()
	req.AutoInsert = true

	resp, err := engine.Suggest(context.Background(), req)
	if err != nil {
		t.Fatalf("suggest: %v", err)
	}
	if resp.LinkedContent == "" {
		t.Fatal("auto_insert should return rewritten content")
	}
	if !strings.Contains(resp.LinkedContent, linkIDAttr) {
		t.Fatalf("rewritten content missing inserted anchors: %s", resp.LinkedContent)
	}
	inserted := 0
	for _, link := range resp.Links {
		if link.Inserted {
			if link.LinkID == "" {
				t.Fatalf("inserted link missing id: %+v", link)
			}
			inserted++
		}
	}
	if inserted == 0 {
		t.Fatal("expected at least one inserted link")
	}
}

func TestSuggestMissingFields(t *testing.T) {
	engine := NewEngine(testIndex(), staticEmbedder{})
	if _, err := engine.Suggest(context.Background(), Request{SourceID: "only-id"}); err == nil {
		t.Fatal("incomplete request must error")
	}
}

func TestRequestNormalizeCapsMaxLinks(t *testing.T) {
	req := Request{SourceID: "s", Content: "c", Title: "t", MaxLinks: 50}
	req.Normalize()
	if req.MaxLinks != MaxInsertedLinks {
		t.Fatalf("max_links should cap at %d, got %d", MaxInsertedLinks, req.MaxLinks)
	}
	req = Request{SourceID: "s", Content: "c", Title: "t"}
	req.Normalize()
	if req.MaxLinks != 3 {
		t.Fatalf("default max_links should be 3, got %d", req.MaxLinks)
	}
}
