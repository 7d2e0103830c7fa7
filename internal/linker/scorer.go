// File path: internal/linker/scorer.go
package linker

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/linkwise/linkwise/internal/catalog"
)

// SourceProfile is the scoring-relevant view of the document being linked
// from, assembled from the request plus any analysis-derived defaults.
type SourceProfile struct {
	ID              string
	ContentType     string
	TopicCluster    string
	RelatedClusters []string
	TopicTags       []string
	Keywords        []string
	FunnelStage     string
	TargetPersona   string
	DifficultyLevel int
	ContentLifespan string
}

// Sub-score weights. Only the relative ordering matters to ranking behavior.
const (
	vectorWeight = 30.0

	exactClusterBonus   = 25.0
	relatedClusterBonus = 12.0
	tagOverlapPoint     = 3.0
	tagOverlapCap       = 9.0
	keywordOverlapPoint = 2.0
	keywordOverlapCap   = 6.0

	funnelForwardBonus  = 15.0
	funnelLevelBonus    = 8.0
	funnelSkipBonus     = 5.0
	funnelBackoneBonus  = 3.0

	difficultyUpBonus     = 9.0
	difficultyParityBonus = 6.0
	difficultyDownBonus   = 4.0

	personaExactBonus   = 12.0
	personaGenericBonus = 4.0

	freshnessCap = 8.0

	pillarBonus    = 5.0
	inboundCap     = 5.0
	inboundCeiling = 20

	monetizationCap = 8.0

	ctaBonus        = 2.0
	calculatorBonus = 3.0
	leadFormBonus   = 3.0

	linkGapCap = 5.0

	datedPenalty         = 10.0
	timeSensitivePenalty = 4.0
)

// Scorer ranks candidates with the hybrid relevance model.
type Scorer struct{}

func NewScorer() *Scorer {
	return &Scorer{}
}

// ScoreAll computes relevance for every candidate in parallel, then sorts by
// score descending with id-ascending tie-breaks. Scoring one candidate never
// depends on another, so the fan-out is lock-free; all results are collected
// before the sort so ordering stays deterministic. A candidate whose scoring
// fails is excluded rather than failing the batch.
func (s *Scorer) ScoreAll(ctx context.Context, source SourceProfile, candidates []Candidate) ([]Candidate, error) {
	if len(candidates) == 0 {
		return nil, nil
	}
	scored := make([]Candidate, len(candidates))
	failed := make([]bool, len(candidates))
	group, ctx := errgroup.WithContext(ctx)
	for idx := range candidates {
		idx := idx
		group.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			candidate := candidates[idx]
			score, breakdown, err := s.Score(source, candidate)
			if err != nil {
				failed[idx] = true
				return nil
			}
			candidate.RelevanceScore = score
			candidate.Breakdown = breakdown
			scored[idx] = candidate
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}
	results := make([]Candidate, 0, len(scored))
	for idx, candidate := range scored {
		if failed[idx] {
			continue
		}
		results = append(results, candidate)
	}
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].RelevanceScore != results[j].RelevanceScore {
			return results[i].RelevanceScore > results[j].RelevanceScore
		}
		return results[i].Entry.ID < results[j].Entry.ID
	})
	return results, nil
}

// Score computes the weighted relevance of one candidate with a per-factor
// breakdown. The final score is clamped to zero; it orders candidates within
// a request and has no absolute meaning across requests.
func (s *Scorer) Score(source SourceProfile, candidate Candidate) (float64, map[string]float64, error) {
	entry := candidate.Entry
	if entry.ID == "" {
		return 0, nil, fmt.Errorf("candidate missing id")
	}
	breakdown := map[string]float64{
		"vector":       clamp(candidate.VectorScore, 0, 1) * vectorWeight,
		"cluster":      clusterScore(source, entry),
		"funnel":       funnelScore(source.FunnelStage, entry.FunnelStage),
		"difficulty":   difficultyScore(source.DifficultyLevel, entry.DifficultyLevel),
		"persona":      personaScore(source.TargetPersona, entry.TargetPersona),
		"freshness":    float64(clampInt(entry.FreshnessScore, 0, 100)) / 100 * freshnessCap,
		"authority":    authorityScore(entry),
		"monetization": float64(clampInt(entry.MonetizationValue, 0, 10)) / 10 * monetizationCap,
		"conversion":   conversionScore(entry),
		"link_gap":     float64(clampInt(entry.LinkGapPriority, 0, 100)) / 100 * linkGapCap,
		"lifespan":     lifespanScore(source.ContentLifespan, entry.ContentLifespan),
	}
	var total float64
	for _, points := range breakdown {
		total += points
	}
	if total < 0 {
		total = 0
	}
	return total, breakdown, nil
}

func clusterScore(source SourceProfile, entry catalog.Entry) float64 {
	var points float64
	if source.TopicCluster != "" && source.TopicCluster == entry.TopicCluster {
		points += exactClusterBonus
	} else if relatedCluster(source, entry) {
		points += relatedClusterBonus
	}
	points += overlapPoints(source.TopicTags, entry.TopicTags, tagOverlapPoint, tagOverlapCap)
	points += overlapPoints(source.Keywords, entry.Keywords, keywordOverlapPoint, keywordOverlapCap)
	return points
}

func relatedCluster(source SourceProfile, entry catalog.Entry) bool {
	for _, cluster := range source.RelatedClusters {
		if cluster != "" && cluster == entry.TopicCluster {
			return true
		}
	}
	for _, cluster := range entry.RelatedClusters {
		if cluster != "" && cluster == source.TopicCluster {
			return true
		}
	}
	return false
}

func overlapPoints(a, b []string, perMatch, cap float64) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	set := make(map[string]struct{}, len(a))
	for _, item := range a {
		set[strings.ToLower(item)] = struct{}{}
	}
	var points float64
	for _, item := range b {
		if _, ok := set[strings.ToLower(item)]; ok {
			points += perMatch
		}
	}
	if points > cap {
		points = cap
	}
	return points
}

// funnelScore rewards moving the reader one stage forward more than staying
// level; a single-step regression earns a token amount, anything further
// earns nothing.
func funnelScore(sourceStage, targetStage string) float64 {
	diff := catalog.StageIndex(targetStage) - catalog.StageIndex(sourceStage)
	switch diff {
	case 1:
		return funnelForwardBonus
	case 0:
		return funnelLevelBonus
	case 2:
		return funnelSkipBonus
	case -1:
		return funnelBackoneBonus
	default:
		return 0
	}
}

func difficultyScore(sourceLevel, targetLevel int) float64 {
	if sourceLevel <= 0 {
		sourceLevel = 1
	}
	if targetLevel <= 0 {
		targetLevel = 1
	}
	switch targetLevel - sourceLevel {
	case 1:
		return difficultyUpBonus
	case 0:
		return difficultyParityBonus
	case -1:
		return difficultyDownBonus
	default:
		return 0
	}
}

// personaScore never penalizes: mismatched specific personas simply earn
// nothing.
func personaScore(sourcePersona, targetPersona string) float64 {
	if catalog.GenericPersona(sourcePersona) || catalog.GenericPersona(targetPersona) {
		return personaGenericBonus
	}
	if strings.EqualFold(sourcePersona, targetPersona) {
		return personaExactBonus
	}
	return 0
}

func authorityScore(entry catalog.Entry) float64 {
	var points float64
	if entry.IsPillar {
		points += pillarBonus
	}
	inbound := clampInt(entry.InboundLinkCount, 0, inboundCeiling)
	points += float64(inbound) / float64(inboundCeiling) * inboundCap
	return points
}

func conversionScore(entry catalog.Entry) float64 {
	var points float64
	if entry.HasCTA {
		points += ctaBonus
	}
	if entry.HasCalculator {
		points += calculatorBonus
	}
	if entry.HasLeadForm {
		points += leadFormBonus
	}
	return points
}

// lifespanScore penalizes pointing readers of evergreen content at stale
// targets.
func lifespanScore(sourceLifespan, targetLifespan string) float64 {
	if sourceLifespan != catalog.LifespanEvergreen && sourceLifespan != "" {
		return 0
	}
	switch targetLifespan {
	case catalog.LifespanDated:
		return -datedPenalty
	case catalog.LifespanTimeSensitive:
		return -timeSensitivePenalty
	default:
		return 0
	}
}

func clamp(value, low, high float64) float64 {
	if value < low {
		return low
	}
	if value > high {
		return high
	}
	return value
}

func clampInt(value, low, high int) int {
	if value < low {
		return low
	}
	if value > high {
		return high
	}
	return value
}
