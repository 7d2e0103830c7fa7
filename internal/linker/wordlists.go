// File path: internal/linker/wordlists.go
package linker

import "strings"

// stopwords are common words that never count as distinctive.
var stopwords = map[string]struct{}{
	"a": {}, "about": {}, "above": {}, "after": {}, "again": {}, "against": {},
	"all": {}, "also": {}, "and": {}, "any": {}, "are": {}, "because": {},
	"been": {}, "before": {}, "being": {}, "below": {}, "between": {},
	"both": {}, "but": {}, "can": {}, "could": {}, "did": {}, "does": {},
	"doing": {}, "down": {}, "during": {}, "each": {}, "every": {}, "few": {},
	"for": {}, "from": {}, "further": {}, "had": {}, "has": {}, "have": {},
	"having": {}, "her": {}, "here": {}, "hers": {}, "him": {}, "his": {},
	"how": {}, "into": {}, "its": {}, "itself": {}, "just": {}, "like": {},
	"make": {}, "many": {}, "more": {}, "most": {}, "much": {}, "need": {},
	"not": {}, "now": {}, "off": {}, "once": {}, "only": {}, "other": {},
	"our": {}, "out": {}, "over": {}, "own": {}, "same": {}, "she": {},
	"should": {}, "some": {}, "such": {}, "than": {}, "that": {}, "the": {},
	"their": {}, "them": {}, "then": {}, "there": {}, "these": {}, "they": {},
	"this": {}, "those": {}, "through": {}, "under": {}, "until": {},
	"very": {}, "was": {}, "well": {}, "were": {}, "what": {}, "when": {},
	"where": {}, "which": {}, "while": {}, "who": {}, "why": {}, "will": {},
	"with": {}, "would": {}, "your": {}, "yours": {},
}

// genericPhrases is a hand-maintained blacklist of phrases (and words) too
// generic to serve as anchors or distinctive words.
var genericPhrases = []string{
	"click here",
	"read more",
	"learn more",
	"find out",
	"this article",
	"this post",
	"this page",
	"more information",
	"best practices",
	"getting started",
	"complete guide",
	"ultimate guide",
	"everything you need",
	"things to know",
	"tips and tricks",
	"options",
	"financing",
	"mortgage",
	"guide",
	"tips",
	"ideas",
	"ways",
	"steps",
	"basics",
	"overview",
	"introduction",
	"understanding",
}

// connectorWords signal natural explanatory language inside an anchor phrase.
var connectorWords = []string{
	"how", "guide", "benefits", "why", "what", "when", "works",
	"explained", "strategies", "compare", "choose",
}

// defaultBrandTokens are locale/brand signal tokens rewarded in anchors.
// Deployments override the list through engine configuration.
var defaultBrandTokens = []string{}

func isStopword(word string) bool {
	_, ok := stopwords[strings.ToLower(word)]
	return ok
}

// blacklisted reports whether the phrase equals or contains only blacklisted
// generic phrases. Single words match exactly; multi-word entries match as
// substrings.
func blacklisted(phrase string) bool {
	normalized := strings.ToLower(strings.TrimSpace(phrase))
	if normalized == "" {
		return true
	}
	for _, generic := range genericPhrases {
		if strings.Contains(generic, " ") {
			if strings.Contains(normalized, generic) {
				return true
			}
			continue
		}
		if normalized == generic {
			return true
		}
	}
	return false
}

// genericWord reports whether a single word appears on the blacklist.
func genericWord(word string) bool {
	normalized := strings.ToLower(strings.TrimSpace(word))
	for _, generic := range genericPhrases {
		if !strings.Contains(generic, " ") && normalized == generic {
			return true
		}
	}
	return false
}

// DistinctiveWords extracts the words of a target title that are specific
// enough to locate it in source content: length four or more, not a stopword,
// not blacklisted. Titles yielding none are too generic to link.
func DistinctiveWords(title string) []string {
	seen := make(map[string]struct{})
	var words []string
	for _, token := range Tokenize(title) {
		word := token.Text
		if len(word) < 4 {
			continue
		}
		if isStopword(word) || genericWord(word) {
			continue
		}
		if _, dup := seen[word]; dup {
			continue
		}
		seen[word] = struct{}{}
		words = append(words, word)
	}
	return words
}

func containsConnector(phrase string) bool {
	lowered := strings.ToLower(phrase)
	for _, token := range Tokenize(lowered) {
		for _, connector := range connectorWords {
			if token.Text == connector {
				return true
			}
		}
	}
	return false
}

func containsToken(phrase string, tokens []string) bool {
	lowered := strings.ToLower(phrase)
	for _, token := range tokens {
		if token == "" {
			continue
		}
		if strings.Contains(lowered, strings.ToLower(token)) {
			return true
		}
	}
	return false
}
