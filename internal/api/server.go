// File path: internal/api/server.go
package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	chi "github.com/go-chi/chi/v5"

	"github.com/linkwise/linkwise/internal/analysis"
	"github.com/linkwise/linkwise/internal/catalog"
	"github.com/linkwise/linkwise/internal/common"
	"github.com/linkwise/linkwise/internal/embedding"
	"github.com/linkwise/linkwise/internal/linker"
	"github.com/linkwise/linkwise/internal/vector"
)

type Server struct {
	router   chi.Router
	engine   *linker.Engine
	catalog  *catalog.Store
	vectors  vector.Store
	embedder embedding.Embedder
	analyzer analysis.Analyzer
}

func NewServer(engine *linker.Engine, store *catalog.Store, vectors vector.Store, embedder embedding.Embedder, analyzer analysis.Analyzer) (*Server, error) {
	logger := common.Logger()
	if engine == nil {
		return nil, fmt.Errorf("engine required")
	}
	if store == nil {
		return nil, fmt.Errorf("catalog store required")
	}
	if embedder == nil {
		return nil, fmt.Errorf("embedder required")
	}
	logger.Info(
		"api: building server",
		"embedder", embedder.Name(),
		"vector_available", vectors != nil && vectors.Available(),
	)
	srv := &Server{
		router:   chi.NewRouter(),
		engine:   engine,
		catalog:  store,
		vectors:  vectors,
		embedder: embedder,
		analyzer: analyzer,
	}
	srv.routes()
	return srv, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	logger := common.Logger()
	logger.Info("api: configuring routes")
	s.router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			next.ServeHTTP(w, r)
			logger.Debug("request", "method", r.Method, "path", r.URL.Path, "dur", time.Since(start), "remote", r.RemoteAddr)
		})
	})

	s.router.Get("/healthz", s.handleHealth)

	s.router.Post("/v1/suggest", s.handleSuggest)
	s.router.Post("/v1/links/remove", s.handleRemoveLink)

	s.router.Post("/v1/catalog", s.handleCatalogUpsert)
	s.router.Get("/v1/catalog", s.handleCatalogList)
	s.router.Get("/v1/catalog/{id}", s.handleCatalogGet)
	s.router.Delete("/v1/catalog/{id}", s.handleCatalogDelete)

	s.router.Get("/v1/logs", s.handleLogs)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":           "ok",
		"vector_available": s.vectors != nil && s.vectors.Available(),
		"embedder":         s.embedder.Name(),
	})
}

func (s *Server) handleLogs(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{"entries": common.LogEntries()})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, err error) {
	logger := common.Logger()
	if status >= http.StatusInternalServerError {
		logger.Error("request failed", "status", status, "error", err)
	} else {
		logger.Warn("request failed", "status", status, "error", err)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
