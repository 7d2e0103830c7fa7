// File path: internal/analysis/heuristic.go
package analysis

import (
	"context"
	"sort"
	"strings"
)

// HeuristicAnalyzer derives rough tags from word statistics. It exists so the
// engine keeps producing suggestions when no language-model credentials are
// configured; the tags are coarse but deterministic.
type HeuristicAnalyzer struct{}

func NewHeuristicAnalyzer() *HeuristicAnalyzer {
	return &HeuristicAnalyzer{}
}

var decisionMarkers = []string{"buy", "pricing", "price", "quote", "apply", "signup", "sign up", "order", "demo"}
var considerationMarkers = []string{"compare", "comparison", "vs", "versus", "review", "alternatives", "best"}

func (h *HeuristicAnalyzer) Analyze(ctx context.Context, title, content string) (Insights, error) {
	lowerTitle := strings.ToLower(title)
	lowerContent := strings.ToLower(content)

	stage := "awareness"
	if containsAny(lowerTitle, decisionMarkers) || containsAny(lowerContent, decisionMarkers) {
		stage = "decision"
	} else if containsAny(lowerTitle, considerationMarkers) {
		stage = "consideration"
	}

	keywords := topWords(lowerTitle+" "+lowerContent, 8)
	cluster := ""
	if len(keywords) > 0 {
		cluster = strings.Join(keywords[:min(2, len(keywords))], "-")
	}

	quality := 40
	if len(content) > 3000 {
		quality = 60
	}
	if len(content) > 8000 {
		quality = 75
	}

	insights := Insights{
		TopicCluster:    cluster,
		FunnelStage:     stage,
		TargetPersona:   "general",
		DifficultyLevel: 1,
		QualityScore:    quality,
		Keywords:        keywords,
	}
	insights.normalize()
	return insights, nil
}

func (h *HeuristicAnalyzer) Name() string {
	return "heuristic"
}

func containsAny(text string, markers []string) bool {
	for _, marker := range markers {
		if strings.Contains(text, marker) {
			return true
		}
	}
	return false
}

func topWords(text string, limit int) []string {
	counts := make(map[string]int)
	for _, word := range strings.Fields(text) {
		word = strings.Trim(word, ".,!?;:\"'()[]")
		if len(word) < 5 {
			continue
		}
		counts[word]++
	}
	type wordCount struct {
		word  string
		count int
	}
	ranked := make([]wordCount, 0, len(counts))
	for word, count := range counts {
		ranked = append(ranked, wordCount{word: word, count: count})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].count == ranked[j].count {
			return ranked[i].word < ranked[j].word
		}
		return ranked[i].count > ranked[j].count
	})
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	words := make([]string, 0, len(ranked))
	for _, entry := range ranked {
		words = append(words, entry.word)
	}
	return words
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
