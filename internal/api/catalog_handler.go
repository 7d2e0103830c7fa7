// File path: internal/api/catalog_handler.go
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	chi "github.com/go-chi/chi/v5"

	"github.com/linkwise/linkwise/internal/catalog"
	"github.com/linkwise/linkwise/internal/common"
	"github.com/linkwise/linkwise/internal/vector"
)

// catalogUpsertRequest carries an entry plus the raw content used for
// analysis and embedding. Content is not stored; only its derived metadata
// and vector are.
type catalogUpsertRequest struct {
	catalog.Entry
	Content string `json:"content,omitempty"`
}

type catalogUpsertResponse struct {
	Entry    catalog.Entry `json:"entry"`
	Indexed  bool          `json:"indexed"`
	Analyzed bool          `json:"analyzed"`
}

func (s *Server) handleCatalogUpsert(w http.ResponseWriter, r *http.Request) {
	logger := common.Logger()
	var req catalogUpsertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}
	entry := req.Entry
	entry.Normalize()
	if entry.ID == "" || entry.Title == "" || entry.URL == "" {
		writeError(w, http.StatusBadRequest, fmt.Errorf("id, title and url required"))
		return
	}

	analyzed := false
	if entry.TopicCluster == "" && strings.TrimSpace(req.Content) != "" && s.analyzer != nil {
		insights, err := s.analyzer.Analyze(r.Context(), entry.Title, req.Content)
		if err != nil {
			logger.Warn("api: catalog analysis failed", "id", entry.ID, "error", err)
		} else {
			entry.TopicCluster = insights.TopicCluster
			entry.RelatedClusters = insights.RelatedClusters
			entry.TopicTags = insights.TopicTags
			entry.Keywords = insights.Keywords
			if entry.FunnelStage == "" || entry.FunnelStage == catalog.StageAwareness {
				entry.FunnelStage = insights.FunnelStage
			}
			if entry.TargetPersona == "" {
				entry.TargetPersona = insights.TargetPersona
			}
			if entry.DifficultyLevel <= 1 && insights.DifficultyLevel > 0 {
				entry.DifficultyLevel = insights.DifficultyLevel
			}
			if entry.QualityScore == 0 {
				entry.QualityScore = insights.QualityScore
			}
			entry.Normalize()
			analyzed = true
		}
	}

	if err := s.catalog.Upsert(r.Context(), entry); err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Errorf("store entry: %w", err))
		return
	}

	indexed := s.indexEntry(r, entry, req.Content)
	logger.Info("api: catalog entry upserted", "id", entry.ID, "indexed", indexed, "analyzed", analyzed)
	writeJSON(w, http.StatusOK, catalogUpsertResponse{Entry: entry, Indexed: indexed, Analyzed: analyzed})
}

// indexEntry embeds the entry and upserts it into the vector index. Index
// failures degrade to an unindexed entry rather than failing the request.
func (s *Server) indexEntry(r *http.Request, entry catalog.Entry, content string) bool {
	logger := common.Logger()
	if s.vectors == nil {
		return false
	}
	text := entry.Title
	if strings.TrimSpace(content) != "" {
		text += "\n\n" + content
	}
	vectors, err := s.embedder.Embed(r.Context(), []string{text})
	if err != nil || len(vectors) == 0 {
		logger.Warn("api: catalog embedding failed", "id", entry.ID, "error", err)
		return false
	}
	if err := s.vectors.EnsureCollection(r.Context(), len(vectors[0])); err != nil {
		logger.Warn("api: ensure collection failed", "id", entry.ID, "error", err)
		return false
	}
	points := []vector.Point{{ID: entry.ID, Vector: vectors[0], Payload: entry.Payload()}}
	if err := s.vectors.Upsert(r.Context(), points); err != nil {
		logger.Warn("api: vector upsert failed", "id", entry.ID, "error", err)
		return false
	}
	return true
}

func (s *Server) handleCatalogGet(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	if id == "" {
		writeError(w, http.StatusBadRequest, fmt.Errorf("id required"))
		return
	}
	entry, err := s.catalog.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			writeError(w, http.StatusNotFound, fmt.Errorf("entry %s not found", id))
			return
		}
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

func (s *Server) handleCatalogList(w http.ResponseWriter, r *http.Request) {
	cluster := strings.TrimSpace(r.URL.Query().Get("cluster"))
	entries, err := s.catalog.List(r.Context(), cluster)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"entries": entries, "count": len(entries)})
}

func (s *Server) handleCatalogDelete(w http.ResponseWriter, r *http.Request) {
	logger := common.Logger()
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	if id == "" {
		writeError(w, http.StatusBadRequest, fmt.Errorf("id required"))
		return
	}
	if err := s.catalog.Delete(r.Context(), id); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if s.vectors != nil {
		if err := s.vectors.Delete(r.Context(), id); err != nil {
			logger.Warn("api: vector delete failed", "id", id, "error", err)
		}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"deleted": id})
}
