// File path: cmd/linkwise/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/linkwise/linkwise/internal/analysis"
	"github.com/linkwise/linkwise/internal/api"
	"github.com/linkwise/linkwise/internal/catalog"
	"github.com/linkwise/linkwise/internal/common"
	"github.com/linkwise/linkwise/internal/embedding"
	"github.com/linkwise/linkwise/internal/linker"
	"github.com/linkwise/linkwise/internal/vector"
)

func main() {
	logger := common.Logger()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := godotenv.Load(); err != nil {
		logger.Warn("linkwise: .env file not loaded", "error", err)
	} else {
		logger.Info("linkwise: environment loaded from .env")
	}

	addr := flag.String("addr", ":8082", "listen address")
	catalogPath := flag.String("catalog", defaultCatalogPath(), "path to the SQLite catalog database")
	retrievalLimit := flag.Int("retrieval-limit", 0, "vector neighbors fetched per request (0 uses defaults)")
	brandTokens := flag.String("brand-tokens", strings.TrimSpace(os.Getenv("LINKWISE_BRAND_TOKENS")), "comma-separated brand words that boost anchor phrases")
	flag.Parse()

	logger.Info("linkwise: startup initiated", "addr", *addr, "catalog", *catalogPath)

	catalogCfg, err := catalog.LoadConfig()
	if err != nil {
		logger.Error("linkwise: catalog config load failed", "error", err)
		fmt.Println("catalog config error:", err)
		os.Exit(1)
	}
	if trimmed := strings.TrimSpace(*catalogPath); trimmed != "" {
		catalogCfg.Path = trimmed
	}
	store, err := catalog.OpenWithConfig(catalogCfg)
	if err != nil {
		logger.Error("linkwise: catalog open failed", "error", err)
		fmt.Println("catalog error:", err)
		os.Exit(1)
	}
	defer store.Close()

	vectorClient, err := vector.NewFromEnv(ctx)
	if err != nil {
		logger.Error("linkwise: vector client init failed", "error", err)
		fmt.Println("vector client error:", err)
		os.Exit(1)
	}
	defer vectorClient.Close()
	if vectorClient.Available() {
		logger.Info("linkwise: vector index available", "collection", vectorClient.Collection())
	} else {
		logger.Warn("linkwise: vector index unreachable", "collection", vectorClient.Collection())
	}

	embedder := embedding.NewCached(embedding.NewFromEnv())
	logger.Info("linkwise: embedder ready", "embedder", embedder.Name())

	analyzer := analysis.NewFromEnv()
	logger.Info("linkwise: analyzer ready", "analyzer", analyzer.Name())

	engineOpts := []linker.EngineOption{linker.WithAnalyzer(analyzer)}
	if *retrievalLimit > 0 {
		engineOpts = append(engineOpts, linker.WithRetrievalLimit(*retrievalLimit))
	}
	if tokens := parseList(*brandTokens); len(tokens) > 0 {
		engineOpts = append(engineOpts, linker.WithBrandTokens(tokens))
	}
	engine := linker.NewEngine(vectorClient, embedder, engineOpts...)

	server, err := api.NewServer(engine, store, vectorClient, embedder, analyzer)
	if err != nil {
		logger.Error("linkwise: server construction failed", "error", err)
		fmt.Println("server error:", err)
		os.Exit(1)
	}

	httpServer := &http.Server{
		Addr:              *addr,
		Handler:           server,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("linkwise: server listening", "addr", *addr, "health", "/healthz")
	fmt.Printf("Serving on %s\n", *addr)
	reachable := *addr
	if strings.HasPrefix(reachable, ":") {
		reachable = "localhost" + reachable
	}
	logger.Info("linkwise: verify reachability", "suggestion", fmt.Sprintf("curl http://%s/healthz", reachable))
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("linkwise: server stopped", "error", err)
		fmt.Println("server stopped:", err)
	}
}

func defaultCatalogPath() string {
	return filepath.Join("data", "catalog.db")
}

func parseList(value string) []string {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed == "" {
			continue
		}
		out = append(out, trimmed)
	}
	return out
}
