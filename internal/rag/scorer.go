package rag

import (
	"regexp"
	"strings"
)

// stopWords are filtered from query tokens before matching. Articles,
// prepositions and conjunctions carry no retrieval signal.
var stopWords = map[string]struct{}{
	"the": {}, "is": {}, "at": {}, "which": {}, "on": {}, "a": {}, "an": {},
	"and": {}, "or": {}, "but": {}, "in": {}, "with": {}, "to": {}, "for": {},
	"of": {}, "as": {}, "by": {}, "from": {},
}

var wordRegex = regexp.MustCompile(`\w+`)

// LexicalScore rates how relevant text is to query by keyword overlap,
// returning a value in [0,1]. The score is the fraction of significant query
// tokens found anywhere in the text, with a 0.3 bonus when the whole query
// appears verbatim. No stemming, no term-frequency weighting: this is the
// zero-dependency fallback retrieval mode.
func LexicalScore(query, text string) float64 {
	queryLower := strings.ToLower(query)
	textLower := strings.ToLower(text)

	var tokens []string
	for _, word := range wordRegex.FindAllString(queryLower, -1) {
		if _, stop := stopWords[word]; stop || len(word) <= 2 {
			continue
		}
		tokens = append(tokens, word)
	}
	if len(tokens) == 0 {
		return 0
	}

	matches := 0
	for _, token := range tokens {
		if strings.Contains(textLower, token) {
			matches++
		}
	}

	score := float64(matches) / float64(len(tokens))
	if strings.Contains(textLower, queryLower) {
		score += 0.3
	}
	if score > 1.0 {
		score = 1.0
	}
	return score
}
