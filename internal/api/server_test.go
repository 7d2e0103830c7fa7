// File path: internal/api/server_test.go
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/linkwise/linkwise/internal/analysis"
	"github.com/linkwise/linkwise/internal/catalog"
	"github.com/linkwise/linkwise/internal/linker"
	"github.com/linkwise/linkwise/internal/vector"
)

type fakeIndex struct {
	points map[string][]float32
	down   bool
}

func newFakeIndex() *fakeIndex {
	return &fakeIndex{points: make(map[string][]float32)}
}

func (f *fakeIndex) Available() bool                             { return !f.down }
func (f *fakeIndex) Collection() string                          { return "test" }
func (f *fakeIndex) EnsureCollection(context.Context, int) error { return nil }

func (f *fakeIndex) Upsert(ctx context.Context, points []vector.Point) error {
	for _, point := range points {
		f.points[point.ID] = point.Vector
	}
	return nil
}

func (f *fakeIndex) Query(context.Context, []float32, int, []string) ([]vector.Match, error) {
	return nil, nil
}

func (f *fakeIndex) Fetch(context.Context, string) (map[string]interface{}, bool, error) {
	return nil, false, nil
}

func (f *fakeIndex) Delete(ctx context.Context, id string) error {
	delete(f.points, id)
	return nil
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

func newTestServer(t *testing.T) (*Server, *fakeIndex) {
	t.Helper()
	store, err := catalog.Open(filepath.Join(t.TempDir(), "catalog.db"))
	if err != nil {
		t.Fatalf("open catalog: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	index := newFakeIndex()
	engine := linker.NewEngine(index, staticEmbedder{})
	srv, err := NewServer(engine, store, index, staticEmbedder{}, analysis.NewHeuristicAnalyzer())
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	return srv, index
}

func postJSON(t *testing.T, srv *Server, path string, payload interface{}) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	rr := httptest.NewRecorder()
	srv.ServeHTTP(rr, req)
	return rr
}

func TestHealthz(t *testing.T) {
	srv, _ := newTestServer(t)
	rr := httptest.NewRecorder()
	srv.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", rr.Code)
	}
	var resp map[string]interface{}
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp["status"] != "ok" {
		t.Fatalf("unexpected health payload: %v", resp)
	}
}

func TestSuggestRejectsIncompleteRequest(t *testing.T) {
	srv, _ := newTestServer(t)
	rr := postJSON(t, srv, "/v1/suggest", map[string]string{"source_id": "only"})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
	var resp map[string]string
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp["error"] == "" {
		t.Fatal("error body missing")
	}
}

func TestSuggestEmptyIndex(t *testing.T) {
	srv, _ := newTestServer(t)
	rr := postJSON(t, srv, "/v1/suggest", map[string]interface{}{
		"source_id": "src-1",
		"title":     "Scaling with BRRRR",
		"content":   "<p>The BRRRR strategy helped our rental investors scale quickly.</p>",
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d body=%s", rr.Code, rr.Body.String())
	}
	var resp linker.Response
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp.Success {
		t.Fatalf("empty index should degrade, not fail: %+v", resp)
	}
	if len(resp.Links) != 0 {
		t.Fatalf("expected no links, got %d", len(resp.Links))
	}
}

func TestCatalogLifecycle(t *testing.T) {
	srv, index := newTestServer(t)

	rr := postJSON(t, srv, "/v1/catalog", map[string]interface{}{
		"id":           "brrrr-deep-dive",
		"title":        "BRRRR Strategy for Rental Investors",
		"url":          "https://example.com/brrrr-deep-dive",
		"content_type": "post",
		"content":      "A long walkthrough of buying, renovating, renting, refinancing and repeating.",
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("upsert status: %d body=%s", rr.Code, rr.Body.String())
	}
	var upsert struct {
		Entry    catalog.Entry `json:"entry"`
		Indexed  bool          `json:"indexed"`
		Analyzed bool          `json:"analyzed"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&upsert); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !upsert.Indexed {
		t.Fatal("entry should be indexed into the vector store")
	}
	if !upsert.Analyzed || upsert.Entry.TopicCluster == "" {
		t.Fatalf("entry without cluster should be analyzed: %+v", upsert)
	}
	if _, ok := index.points["brrrr-deep-dive"]; !ok {
		t.Fatal("vector point missing after upsert")
	}

	get := httptest.NewRecorder()
	srv.ServeHTTP(get, httptest.NewRequest(http.MethodGet, "/v1/catalog/brrrr-deep-dive", nil))
	if get.Code != http.StatusOK {
		t.Fatalf("get status: %d", get.Code)
	}

	list := httptest.NewRecorder()
	srv.ServeHTTP(list, httptest.NewRequest(http.MethodGet, "/v1/catalog", nil))
	if list.Code != http.StatusOK {
		t.Fatalf("list status: %d", list.Code)
	}
	var listResp struct {
		Count int `json:"count"`
	}
	if err := json.NewDecoder(list.Body).Decode(&listResp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if listResp.Count != 1 {
		t.Fatalf("expected one entry, got %d", listResp.Count)
	}

	del := httptest.NewRecorder()
	srv.ServeHTTP(del, httptest.NewRequest(http.MethodDelete, "/v1/catalog/brrrr-deep-dive", nil))
	if del.Code != http.StatusOK {
		t.Fatalf("delete status: %d", del.Code)
	}
	if _, ok := index.points["brrrr-deep-dive"]; ok {
		t.Fatal("vector point should be removed with the entry")
	}

	missing := httptest.NewRecorder()
	srv.ServeHTTP(missing, httptest.NewRequest(http.MethodGet, "/v1/catalog/brrrr-deep-dive", nil))
	if missing.Code != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %d", missing.Code)
	}
}

func TestCatalogUpsertValidation(t *testing.T) {
	srv, _ := newTestServer(t)
	rr := postJSON(t, srv, "/v1/catalog", map[string]interface{}{"id": "x"})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
}

func TestRemoveLinkEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)

	content, updated, err := linker.InsertLinks(
		`<p>Learn about rental property investing before you buy.</p>`,
		[]linker.Suggestion{{TargetID: "a", URL: "https://example.com/a", AnchorText: "rental property investing"}},
	)
	if err != nil || !updated[0].Inserted {
		t.Fatalf("setup insert failed: %v %+v", err, updated)
	}

	rr := postJSON(t, srv, "/v1/links/remove", map[string]string{
		"content": content,
		"link_id": updated[0].LinkID,
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("remove status: %d body=%s", rr.Code, rr.Body.String())
	}
	var resp struct {
		Content string `json:"content"`
		Removed bool   `json:"removed"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp.Removed || resp.Content == "" {
		t.Fatalf("unexpected response: %+v", resp)
	}

	unknown := postJSON(t, srv, "/v1/links/remove", map[string]string{
		"content": content,
		"link_id": "nope",
	})
	if unknown.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown link id, got %d", unknown.Code)
	}
}
