// File path: internal/api/suggest_handler.go
package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/linkwise/linkwise/internal/common"
	"github.com/linkwise/linkwise/internal/linker"
)

func (s *Server) handleSuggest(w http.ResponseWriter, r *http.Request) {
	logger := common.Logger()
	var req linker.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}
	if missing := req.MissingFields(); len(missing) > 0 {
		writeError(w, http.StatusBadRequest, fmt.Errorf("missing required fields: %s", strings.Join(missing, ", ")))
		return
	}
	resp, err := s.engine.Suggest(r.Context(), req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	logger.Info(
		"api: suggestions returned",
		"source", req.SourceID,
		"links", len(resp.Links),
		"cached", resp.Cached,
	)
	writeJSON(w, http.StatusOK, resp)
}

type removeLinkRequest struct {
	Content string `json:"content"`
	LinkID  string `json:"link_id"`
}

type removeLinkResponse struct {
	Content string `json:"content"`
	Removed bool   `json:"removed"`
}

func (s *Server) handleRemoveLink(w http.ResponseWriter, r *http.Request) {
	var req removeLinkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}
	if strings.TrimSpace(req.Content) == "" || strings.TrimSpace(req.LinkID) == "" {
		writeError(w, http.StatusBadRequest, fmt.Errorf("content and link_id required"))
		return
	}
	content, removed, err := linker.RemoveLink(req.Content, req.LinkID)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if !removed {
		writeError(w, http.StatusNotFound, fmt.Errorf("link %s not found", req.LinkID))
		return
	}
	writeJSON(w, http.StatusOK, removeLinkResponse{Content: content, Removed: true})
}
