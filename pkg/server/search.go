package server

import (
	"sort"
	"strings"
	"unicode"

	"github.com/agext/levenshtein"
)

// SystemMatch is one fuzzy search hit.
type SystemMatch struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	Score float64 `json:"score"`
}

const (
	searchThreshold = 0.3
	searchLimit     = 10
)

// FindSystemsByName ranks system display names against the query using a
// blend of whole-string Levenshtein similarity and per-token matching, so
// both near-full names ("Altair Prime") and keyword typos ("altir") hit.
func FindSystemsByName(query string, names map[string]string) []SystemMatch {
	if query == "" || len(names) == 0 {
		return nil
	}

	queryLower := strings.ToLower(query)
	queryTokens := tokenize(queryLower)

	var results []SystemMatch
	for name, id := range names {
		if name == "" {
			continue
		}
		score := nameScore(queryLower, queryTokens, name)
		if score > searchThreshold {
			results = append(results, SystemMatch{ID: id, Name: name, Score: score})
		}
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Name < results[j].Name
	})

	if len(results) > searchLimit {
		results = results[:searchLimit]
	}
	return results
}

func nameScore(queryLower string, queryTokens map[string]bool, name string) float64 {
	nameLower := strings.ToLower(name)

	if queryLower == nameLower {
		return 1.0
	}
	if strings.Contains(nameLower, queryLower) {
		return 0.95
	}

	global := levenshteinSimilarity(queryLower, nameLower)

	// Per-token: each query token takes its best match among name tokens,
	// which covers word-order changes and single-word typos.
	nameTokens := tokenize(nameLower)
	tokenTotal := 0.0
	for q := range queryTokens {
		best := 0.0
		if nameTokens[q] {
			best = 1.0
		} else {
			for t := range nameTokens {
				if s := levenshteinSimilarity(q, t); s > best {
					best = s
				}
			}
		}
		tokenTotal += best
	}

	tokenScore := 0.0
	if len(queryTokens) > 0 {
		tokenScore = tokenTotal / float64(len(queryTokens))
	}

	if tokenScore > global {
		return tokenScore
	}
	return global
}

func levenshteinSimilarity(a, b string) float64 {
	maxLen := len(a)
	if len(b) > maxLen {
		maxLen = len(b)
	}
	if maxLen == 0 {
		return 0
	}
	s := 1.0 - float64(levenshtein.Distance(a, b, nil))/float64(maxLen)
	if s < 0 {
		return 0
	}
	return s
}

func tokenize(s string) map[string]bool {
	tokens := make(map[string]bool)
	for _, t := range strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	}) {
		if len(t) > 1 {
			tokens[t] = true
		}
	}
	return tokens
}
