// File path: internal/linker/types.go
package linker

import (
	"strings"

	"github.com/linkwise/linkwise/internal/catalog"
)

// Request is one ranking/placement request from the content-management client.
type Request struct {
	SourceID        string   `json:"source_id"`
	Content         string   `json:"content"`
	Title           string   `json:"title"`
	TopicCluster    string   `json:"topic_cluster,omitempty"`
	RelatedClusters []string `json:"related_clusters,omitempty"`
	FunnelStage     string   `json:"funnel_stage,omitempty"`
	TargetPersona   string   `json:"target_persona,omitempty"`
	ContentType     string   `json:"content_type,omitempty"`
	MaxLinks        int      `json:"max_links,omitempty"`
	MinScore        float64  `json:"min_score,omitempty"`
	ExcludeIDs      []string `json:"exclude_ids,omitempty"`
	AutoInsert      bool     `json:"auto_insert,omitempty"`
	SkipCache       bool     `json:"skip_cache,omitempty"`
}

// MissingFields lists required request fields that are absent.
func (r Request) MissingFields() []string {
	var missing []string
	if strings.TrimSpace(r.SourceID) == "" {
		missing = append(missing, "source_id")
	}
	if strings.TrimSpace(r.Content) == "" {
		missing = append(missing, "content")
	}
	if strings.TrimSpace(r.Title) == "" {
		missing = append(missing, "title")
	}
	return missing
}

// Normalize applies defaults and trims request fields in place.
func (r *Request) Normalize() {
	r.SourceID = strings.TrimSpace(r.SourceID)
	r.Title = strings.TrimSpace(r.Title)
	r.TopicCluster = strings.ToLower(strings.TrimSpace(r.TopicCluster))
	r.FunnelStage = strings.ToLower(strings.TrimSpace(r.FunnelStage))
	r.TargetPersona = strings.ToLower(strings.TrimSpace(r.TargetPersona))
	r.ContentType = strings.ToLower(strings.TrimSpace(r.ContentType))
	if r.ContentType != catalog.TypePage {
		r.ContentType = catalog.TypePost
	}
	if r.MaxLinks <= 0 {
		r.MaxLinks = 3
	}
	if r.MaxLinks > MaxInsertedLinks {
		r.MaxLinks = MaxInsertedLinks
	}
}

// Candidate wraps a catalog entry during one ranking pass.
type Candidate struct {
	Entry          catalog.Entry
	VectorScore    float64
	RelevanceScore float64
	Breakdown      map[string]float64
}

// Anchor strategies.
const (
	StrategySentence   = "sentence"
	StrategyPhrase     = "phrase"
	StrategyContextual = "contextual"
)

// Placement positions.
const (
	PositionIntro      = "intro"
	PositionBody       = "body"
	PositionConclusion = "conclusion"
)

// AnchorCandidate is one phrase of the source text considered as anchor text
// for a target. Text must appear verbatim (case-insensitive) at Span inside
// the untouched source and outside existing hyperlinks.
type AnchorCandidate struct {
	Text            string
	Span            Span
	Strategy        string
	Position        string
	RawScore        float64
	ExactTitleMatch bool
	NaturalLanguage bool
}

// Anchor is the selected anchor for a target, with context for audit display.
type Anchor struct {
	Text     string
	Span     Span
	Strategy string
	Position string
	Score    float64
	Context  string
}

// Suggestion is one recommended link.
type Suggestion struct {
	TargetID   string             `json:"target_id"`
	Title      string             `json:"title"`
	URL        string             `json:"url"`
	AnchorText string             `json:"anchor_text"`
	Placement  string             `json:"placement"`
	Score      float64            `json:"score"`
	Breakdown  map[string]float64 `json:"score_breakdown,omitempty"`
	Reasoning  string             `json:"reasoning,omitempty"`
	Inserted   bool               `json:"inserted"`
	LinkID     string             `json:"link_id,omitempty"`

	span  Span
	block int
}

// Stats summarizes one ranking pass.
type Stats struct {
	CandidatesFound int     `json:"candidates_found"`
	PassedScoring   int     `json:"passed_scoring"`
	AverageScore    float64 `json:"average_score"`
}

// Response is the engine's answer to one request.
type Response struct {
	Success       bool         `json:"success"`
	Links         []Suggestion `json:"links"`
	LinkedContent string       `json:"linked_content,omitempty"`
	Stats         Stats        `json:"stats"`
	Cached        bool         `json:"cached"`
	Reason        string       `json:"reason,omitempty"`
}
