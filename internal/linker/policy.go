// File path: internal/linker/policy.go
package linker

import (
	"strings"

	"github.com/linkwise/linkwise/internal/catalog"
)

// Structural linking limits enforced by the mutator.
const (
	// MaxInsertedLinks caps engine-inserted links per document.
	MaxInsertedLinks = 8
	// MaxSummaryLinks caps how many of those may target summary/landing pages.
	MaxSummaryLinks = 3
)

// allowedTarget encodes the linking policy table: summary/landing pages only
// link to other summary pages, articles link to both articles and summaries.
func allowedTarget(sourceType, targetType string) bool {
	switch sourceType {
	case catalog.TypePage:
		return targetType == catalog.TypePage
	default:
		return targetType == catalog.TypePost || targetType == catalog.TypePage
	}
}

// filterCandidates drops the source itself, explicitly excluded ids, targets
// the source already links to, and policy-violating content types.
func filterCandidates(req Request, already *linkedTargets, candidates []Candidate) []Candidate {
	excluded := make(map[string]struct{}, len(req.ExcludeIDs))
	for _, id := range req.ExcludeIDs {
		if trimmed := strings.TrimSpace(id); trimmed != "" {
			excluded[trimmed] = struct{}{}
		}
	}
	kept := make([]Candidate, 0, len(candidates))
	for _, candidate := range candidates {
		id := candidate.Entry.ID
		if id == "" || id == req.SourceID {
			continue
		}
		if _, skip := excluded[id]; skip {
			continue
		}
		if already != nil && already.Contains(candidate.Entry.URL) {
			continue
		}
		if !allowedTarget(req.ContentType, candidate.Entry.ContentType) {
			continue
		}
		kept = append(kept, candidate)
	}
	return kept
}

// linkedTargets tracks URLs the source document already links to.
type linkedTargets struct {
	urls map[string]struct{}
}

func newLinkedTargets(urls []string) *linkedTargets {
	set := make(map[string]struct{}, len(urls))
	for _, raw := range urls {
		if key := normalizeURL(raw); key != "" {
			set[key] = struct{}{}
		}
	}
	return &linkedTargets{urls: set}
}

func (l *linkedTargets) Contains(raw string) bool {
	if l == nil {
		return false
	}
	_, ok := l.urls[normalizeURL(raw)]
	return ok
}

func normalizeURL(raw string) string {
	cleaned := strings.ToLower(strings.TrimSpace(raw))
	cleaned = strings.TrimSuffix(cleaned, "/")
	cleaned = strings.TrimPrefix(cleaned, "https://")
	cleaned = strings.TrimPrefix(cleaned, "http://")
	return cleaned
}
