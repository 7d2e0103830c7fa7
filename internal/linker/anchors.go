// File path: internal/linker/anchors.go
package linker

import (
	"sort"
	"strings"

	"github.com/linkwise/linkwise/internal/cache"
	"github.com/linkwise/linkwise/internal/common/telemetry"
)

// Anchor phrase bounds per strategy.
const (
	sentenceMinLen = 20
	sentenceMaxLen = 150

	phraseMinLen   = 12
	phraseMinWords = 3
	phraseMaxWords = 6

	windowMinLen = 15
	windowMaxLen = 80

	anchorContextRadius = 60

	// introCharLimit marks everything before it as intro regardless of
	// document length.
	introCharLimit = 500
	edgeFraction   = 0.2
)

// Strategy and position weighting.
const (
	basePhraseScore     = 1.2
	baseSentenceScore   = 1.0
	baseContextualScore = 0.9

	introMultiplier      = 1.3
	conclusionMultiplier = 1.15
	bodyMultiplier       = 1.0

	exactTitlePenalty = 0.6
	connectorBoost    = 1.15
	brandBoost        = 1.1
)

// AnchorFinder discovers natural anchor phrases in one source document. A
// finder is built once per request; the session tracker it carries is shared
// across requests so repeated suggestions for the same document rotate
// through different anchors.
type AnchorFinder struct {
	doc         *PlainDoc
	sourceID    string
	session     *SessionAnchors
	brandTokens []string
	batchUsed   map[string]struct{}
}

// NewAnchorFinder builds a finder over an extracted document.
func NewAnchorFinder(doc *PlainDoc, sourceID string, session *SessionAnchors, brandTokens []string) *AnchorFinder {
	if brandTokens == nil {
		brandTokens = defaultBrandTokens
	}
	return &AnchorFinder{
		doc:         doc,
		sourceID:    sourceID,
		session:     session,
		brandTokens: brandTokens,
		batchUsed:   make(map[string]struct{}),
	}
}

// Find locates the best unused anchor phrase for a target title. The accept
// callback lets the caller veto candidates for reasons the finder cannot see
// (block already holds a link in this batch). Targets whose title yields no
// distinctive words are judged too generic and skipped.
func (f *AnchorFinder) Find(targetTitle string, accept func(AnchorCandidate) bool) (Anchor, bool) {
	distinctive := DistinctiveWords(targetTitle)
	if len(distinctive) == 0 {
		return Anchor{}, false
	}

	candidates := f.sentenceCandidates(distinctive)
	candidates = append(candidates, f.phraseCandidates(targetTitle, distinctive)...)
	candidates = append(candidates, f.contextualCandidates(distinctive)...)
	if len(candidates) == 0 {
		return Anchor{}, false
	}

	for i := range candidates {
		f.scoreCandidate(&candidates[i], targetTitle, distinctive)
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].RawScore != candidates[j].RawScore {
			return candidates[i].RawScore > candidates[j].RawScore
		}
		if candidates[i].Span.Start != candidates[j].Span.Start {
			return candidates[i].Span.Start < candidates[j].Span.Start
		}
		return candidates[i].Text < candidates[j].Text
	})

	for _, candidate := range candidates {
		key := strings.ToLower(candidate.Text)
		if _, used := f.batchUsed[key]; used {
			continue
		}
		if f.session.Used(f.sourceID, key) {
			continue
		}
		if accept != nil && !accept(candidate) {
			continue
		}
		f.batchUsed[key] = struct{}{}
		f.session.MarkUsed(f.sourceID, key)
		telemetry.RecordAnchorStrategy(candidate.Strategy)
		return Anchor{
			Text:     candidate.Text,
			Span:     candidate.Span,
			Strategy: candidate.Strategy,
			Position: candidate.Position,
			Score:    candidate.RawScore,
			Context:  f.doc.Context(candidate.Span, anchorContextRadius),
		}, true
	}
	return Anchor{}, false
}

// sentenceCandidates keeps bounded-length sentences containing at least two
// distinctive words.
func (f *AnchorFinder) sentenceCandidates(distinctive []string) []AnchorCandidate {
	var candidates []AnchorCandidate
	for _, span := range f.doc.Sentences() {
		length := span.Len()
		if length < sentenceMinLen || length > sentenceMaxLen {
			continue
		}
		if f.doc.InsideLink(span) {
			continue
		}
		text := f.doc.Text[span.Start:span.End]
		if countDistinctive(text, distinctive) < 2 {
			continue
		}
		if blacklisted(text) {
			continue
		}
		candidates = append(candidates, AnchorCandidate{
			Text:     text,
			Span:     span,
			Strategy: StrategySentence,
			Position: f.position(span.Start),
		})
	}
	return candidates
}

// phraseCandidates generates contiguous n-grams from the target title,
// longest first, and keeps those occurring verbatim in the source.
func (f *AnchorFinder) phraseCandidates(targetTitle string, distinctive []string) []AnchorCandidate {
	tokens := Tokenize(targetTitle)
	var candidates []AnchorCandidate
	for size := phraseMaxWords; size >= phraseMinWords; size-- {
		if size > len(tokens) {
			continue
		}
		for start := 0; start+size <= len(tokens); start++ {
			gram := tokens[start : start+size]
			phrase := targetTitle[gram[0].Span.Start:gram[size-1].Span.End]
			if len(phrase) < phraseMinLen {
				continue
			}
			if blacklisted(phrase) {
				continue
			}
			if countDistinctive(phrase, distinctive) < 1 {
				continue
			}
			for _, span := range f.doc.FindAll(phrase) {
				candidates = append(candidates, AnchorCandidate{
					Text:     f.doc.Text[span.Start:span.End],
					Span:     span,
					Strategy: StrategyPhrase,
					Position: f.position(span.Start),
				})
			}
		}
	}
	return candidates
}

// contextualCandidates captures a bounded window of text around each
// occurrence of a distinctive word.
func (f *AnchorFinder) contextualCandidates(distinctive []string) []AnchorCandidate {
	var candidates []AnchorCandidate
	for _, word := range distinctive {
		for _, span := range f.doc.FindAll(word) {
			window, ok := f.windowAround(span)
			if !ok {
				continue
			}
			text := f.doc.Text[window.Start:window.End]
			if blacklisted(text) {
				continue
			}
			candidates = append(candidates, AnchorCandidate{
				Text:     text,
				Span:     window,
				Strategy: StrategyContextual,
				Position: f.position(window.Start),
			})
		}
	}
	return candidates
}

// windowAround expands a word span to nearby word boundaries within the same
// block, keeping the window inside the configured length bounds.
func (f *AnchorFinder) windowAround(span Span) (Span, bool) {
	blockIdx := f.doc.BlockAt(span.Start)
	if blockIdx < 0 {
		return Span{}, false
	}
	block := f.doc.Blocks[blockIdx].Span
	pad := (windowMaxLen - span.Len()) / 2
	if pad < 0 {
		return Span{}, false
	}
	start := span.Start - pad
	if start < block.Start {
		start = block.Start
	}
	end := span.End + pad
	if end > block.End {
		end = block.End
	}
	// Snap to word boundaries.
	for start > block.Start && isWordByte(f.doc.Text[start-1]) {
		start++
		if start >= span.Start {
			start = span.Start
			break
		}
	}
	for start < span.Start && !isWordByte(f.doc.Text[start]) {
		start++
	}
	for end < block.End && isWordByte(f.doc.Text[end]) {
		end--
		if end <= span.End {
			end = span.End
			break
		}
	}
	for end > span.End && end > 0 && !isWordByte(f.doc.Text[end-1]) {
		end--
	}
	window, ok := trimSpan(f.doc.Text, Span{Start: start, End: end})
	if !ok {
		return Span{}, false
	}
	if window.Len() < windowMinLen || window.Len() > windowMaxLen {
		return Span{}, false
	}
	if f.doc.InsideLink(window) {
		return Span{}, false
	}
	return window, true
}

// position labels an offset relative to content length.
func (f *AnchorFinder) position(offset int) string {
	total := len(f.doc.Text)
	if total == 0 {
		return PositionBody
	}
	edge := int(float64(total) * edgeFraction)
	if offset < edge || offset < introCharLimit {
		return PositionIntro
	}
	if offset >= total-edge {
		return PositionConclusion
	}
	return PositionBody
}

func positionMultiplier(position string) float64 {
	switch position {
	case PositionIntro:
		return introMultiplier
	case PositionConclusion:
		return conclusionMultiplier
	default:
		return bodyMultiplier
	}
}

func (f *AnchorFinder) scoreCandidate(candidate *AnchorCandidate, targetTitle string, distinctive []string) {
	var base float64
	switch candidate.Strategy {
	case StrategyPhrase:
		base = basePhraseScore
	case StrategySentence:
		base = baseSentenceScore
	default:
		base = baseContextualScore
	}
	score := base * positionMultiplier(candidate.Position)

	coverage := float64(countDistinctive(candidate.Text, distinctive)) / float64(len(distinctive))
	score *= 1 + coverage

	length := candidate.Span.Len()
	if length > 60 {
		length = 60
	}
	score *= 1 + float64(length)/200

	if strings.EqualFold(strings.TrimSpace(candidate.Text), strings.TrimSpace(targetTitle)) {
		candidate.ExactTitleMatch = true
		score *= exactTitlePenalty
	}
	if containsConnector(candidate.Text) {
		candidate.NaturalLanguage = true
		score *= connectorBoost
	}
	if containsToken(candidate.Text, f.brandTokens) {
		score *= brandBoost
	}
	candidate.RawScore = score
}

func countDistinctive(text string, distinctive []string) int {
	present := make(map[string]struct{})
	for _, token := range Tokenize(text) {
		present[token.Text] = struct{}{}
	}
	count := 0
	for _, word := range distinctive {
		if _, ok := present[word]; ok {
			count++
		}
	}
	return count
}

// SessionAnchors tracks anchors already handed out per source document across
// requests, so successive suggestion passes rotate through fresh phrasing.
// The backing store is capacity-bounded like the other engine caches.
type SessionAnchors struct {
	store *cache.Store
}

func NewSessionAnchors(store *cache.Store) *SessionAnchors {
	return &SessionAnchors{store: store}
}

func (s *SessionAnchors) Used(sourceID, anchor string) bool {
	if s == nil || s.store == nil {
		return false
	}
	_, ok := s.store.Get(sessionKey(sourceID, anchor))
	return ok
}

func (s *SessionAnchors) MarkUsed(sourceID, anchor string) {
	if s == nil || s.store == nil {
		return
	}
	s.store.Set(sessionKey(sourceID, anchor), struct{}{})
}

func sessionKey(sourceID, anchor string) string {
	return sourceID + "|" + strings.ToLower(anchor)
}
