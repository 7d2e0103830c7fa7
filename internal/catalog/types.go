// File path: internal/catalog/types.go
package catalog

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// Content types recognised by the linking policy.
const (
	TypePage = "page"
	TypePost = "post"
)

// Funnel stages in reading order.
const (
	StageAwareness     = "awareness"
	StageConsideration = "consideration"
	StageDecision      = "decision"
)

// Content lifespan classifications.
const (
	LifespanEvergreen     = "evergreen"
	LifespanSeasonal      = "seasonal"
	LifespanTimeSensitive = "time-sensitive"
	LifespanDated         = "dated"
)

// Entry is the stored representation of one linkable content item plus the
// business-rule metadata consumed by the relevance scorer. Entries are owned
// by the indexing side; the suggestion engine treats them as read-only.
type Entry struct {
	ID              string   `json:"id" db:"id"`
	Title           string   `json:"title" db:"title"`
	URL             string   `json:"url" db:"url"`
	ContentType     string   `json:"content_type" db:"content_type"`
	TopicCluster    string   `json:"topic_cluster" db:"topic_cluster"`
	RelatedClusters []string `json:"related_clusters,omitempty" db:"-"`
	TopicTags       []string `json:"topic_tags,omitempty" db:"-"`
	Keywords        []string `json:"keywords,omitempty" db:"-"`

	FunnelStage     string `json:"funnel_stage" db:"funnel_stage"`
	TargetPersona   string `json:"target_persona" db:"target_persona"`
	DifficultyLevel int    `json:"difficulty_level" db:"difficulty_level"`

	QualityScore      int    `json:"quality_score" db:"quality_score"`
	ContentLifespan   string `json:"content_lifespan" db:"content_lifespan"`
	FreshnessScore    int    `json:"freshness_score" db:"freshness_score"`
	MonetizationValue int    `json:"monetization_value" db:"monetization_value"`

	HasCTA        bool `json:"has_cta" db:"has_cta"`
	HasCalculator bool `json:"has_calculator" db:"has_calculator"`
	HasLeadForm   bool `json:"has_lead_form" db:"has_lead_form"`

	IsPillar         bool `json:"is_pillar" db:"is_pillar"`
	InboundLinkCount int  `json:"inbound_link_count" db:"inbound_link_count"`
	LinkGapPriority  int  `json:"link_gap_priority" db:"link_gap_priority"`

	PublishedAt time.Time `json:"published_at,omitempty" db:"published_at"`
	UpdatedAt   time.Time `json:"updated_at,omitempty" db:"updated_at"`
}

// Normalize trims free-text fields and applies safe defaults so downstream
// scoring never sees empty enumerations.
func (e *Entry) Normalize() {
	e.ID = strings.TrimSpace(e.ID)
	e.Title = strings.TrimSpace(e.Title)
	e.URL = strings.TrimSpace(e.URL)
	e.ContentType = strings.ToLower(strings.TrimSpace(e.ContentType))
	if e.ContentType != TypePage {
		e.ContentType = TypePost
	}
	e.TopicCluster = strings.ToLower(strings.TrimSpace(e.TopicCluster))
	e.FunnelStage = strings.ToLower(strings.TrimSpace(e.FunnelStage))
	switch e.FunnelStage {
	case StageAwareness, StageConsideration, StageDecision:
	default:
		e.FunnelStage = StageAwareness
	}
	e.TargetPersona = strings.ToLower(strings.TrimSpace(e.TargetPersona))
	e.ContentLifespan = strings.ToLower(strings.TrimSpace(e.ContentLifespan))
	switch e.ContentLifespan {
	case LifespanEvergreen, LifespanSeasonal, LifespanTimeSensitive, LifespanDated:
	default:
		e.ContentLifespan = LifespanEvergreen
	}
	if e.DifficultyLevel <= 0 {
		e.DifficultyLevel = 1
	}
	e.RelatedClusters = normalizeList(e.RelatedClusters)
	e.TopicTags = normalizeList(e.TopicTags)
	e.Keywords = normalizeList(e.Keywords)
}

// StageIndex returns the funnel stage as an ordinal for progression scoring.
func StageIndex(stage string) int {
	switch strings.ToLower(strings.TrimSpace(stage)) {
	case StageConsideration:
		return 1
	case StageDecision:
		return 2
	default:
		return 0
	}
}

// GenericPersona reports whether a persona value carries no targeting signal.
func GenericPersona(persona string) bool {
	switch strings.ToLower(strings.TrimSpace(persona)) {
	case "", "general", "generic", "everyone", "all":
		return true
	}
	return false
}

func normalizeList(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, value := range values {
		cleaned := strings.ToLower(strings.TrimSpace(value))
		if cleaned == "" {
			continue
		}
		if _, ok := seen[cleaned]; ok {
			continue
		}
		seen[cleaned] = struct{}{}
		out = append(out, cleaned)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// Payload converts an entry into the flat metadata map stored alongside its
// vector in the index. Lists are joined so the payload stays scalar-valued.
func (e Entry) Payload() map[string]interface{} {
	payload := map[string]interface{}{
		"title":             e.Title,
		"url":               e.URL,
		"content_type":      e.ContentType,
		"topic_cluster":     e.TopicCluster,
		"funnel_stage":      e.FunnelStage,
		"target_persona":    e.TargetPersona,
		"difficulty_level":  e.DifficultyLevel,
		"quality_score":     e.QualityScore,
		"content_lifespan":  e.ContentLifespan,
		"freshness_score":   e.FreshnessScore,
		"monetization":      e.MonetizationValue,
		"has_cta":           e.HasCTA,
		"has_calculator":    e.HasCalculator,
		"has_lead_form":     e.HasLeadForm,
		"is_pillar":         e.IsPillar,
		"inbound_links":     e.InboundLinkCount,
		"link_gap_priority": e.LinkGapPriority,
	}
	if len(e.RelatedClusters) > 0 {
		payload["related_clusters"] = strings.Join(e.RelatedClusters, ",")
	}
	if len(e.TopicTags) > 0 {
		payload["topic_tags"] = strings.Join(e.TopicTags, ",")
	}
	if len(e.Keywords) > 0 {
		payload["keywords"] = strings.Join(e.Keywords, ",")
	}
	return payload
}

// EntryFromPayload reconstructs an entry from vector-index metadata. Missing
// or malformed fields fall back to defaults rather than failing the lookup.
func EntryFromPayload(id string, payload map[string]interface{}) Entry {
	entry := Entry{
		ID:                id,
		Title:             payloadString(payload, "title"),
		URL:               payloadString(payload, "url"),
		ContentType:       payloadString(payload, "content_type"),
		TopicCluster:      payloadString(payload, "topic_cluster"),
		FunnelStage:       payloadString(payload, "funnel_stage"),
		TargetPersona:     payloadString(payload, "target_persona"),
		DifficultyLevel:   payloadInt(payload, "difficulty_level"),
		QualityScore:      payloadInt(payload, "quality_score"),
		ContentLifespan:   payloadString(payload, "content_lifespan"),
		FreshnessScore:    payloadInt(payload, "freshness_score"),
		MonetizationValue: payloadInt(payload, "monetization"),
		HasCTA:            payloadBool(payload, "has_cta"),
		HasCalculator:     payloadBool(payload, "has_calculator"),
		HasLeadForm:       payloadBool(payload, "has_lead_form"),
		IsPillar:          payloadBool(payload, "is_pillar"),
		InboundLinkCount:  payloadInt(payload, "inbound_links"),
		LinkGapPriority:   payloadInt(payload, "link_gap_priority"),
	}
	entry.RelatedClusters = splitList(payloadString(payload, "related_clusters"))
	entry.TopicTags = splitList(payloadString(payload, "topic_tags"))
	entry.Keywords = splitList(payloadString(payload, "keywords"))
	entry.Normalize()
	return entry
}

func splitList(value string) []string {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return normalizeList(strings.Split(value, ","))
}

func payloadString(payload map[string]interface{}, key string) string {
	if payload == nil {
		return ""
	}
	switch value := payload[key].(type) {
	case string:
		return value
	case json.Number:
		return value.String()
	}
	return ""
}

func payloadInt(payload map[string]interface{}, key string) int {
	if payload == nil {
		return 0
	}
	switch value := payload[key].(type) {
	case int:
		return value
	case int64:
		return int(value)
	case float64:
		return int(value)
	case json.Number:
		if parsed, err := value.Int64(); err == nil {
			return int(parsed)
		}
	case string:
		if parsed, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
			return parsed
		}
	}
	return 0
}

func payloadBool(payload map[string]interface{}, key string) bool {
	if payload == nil {
		return false
	}
	switch value := payload[key].(type) {
	case bool:
		return value
	case string:
		parsed, err := strconv.ParseBool(strings.TrimSpace(value))
		return err == nil && parsed
	case float64:
		return value != 0
	}
	return false
}
