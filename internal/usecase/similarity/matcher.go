package similarity

import (
	"sort"
	"strings"

	"github.com/kailas-cloud/findex/internal/domain/match"
)

// Matching thresholds.
const (
	// DefaultBestMinScore is the minimum score for a single best match.
	DefaultBestMinScore = 0.6
	// DefaultTopMinScore is the minimum score for ranked candidate lists.
	DefaultTopMinScore = 0.5
	// DefaultTopLimit caps the candidate list length.
	DefaultTopLimit = 5
)

// Score boosts for partial matches. Plain edit distance under-rewards
// substring matches common in proper-noun disambiguation (partial project
// codes, abbreviated site names), so containment lifts the score floor.
const (
	boostCandidateContains = 0.85 // candidate contains the query
	boostQueryContains     = 0.80 // query contains the candidate
	boostAllWords          = 0.75 // every query word is a substring of a candidate word
)

// Similarity returns the edit-distance similarity of two strings in [0, 1]:
// 1 - distance/max(len). Case-insensitive and symmetric.
func Similarity(a, b string) float64 {
	a = strings.ToLower(a)
	b = strings.ToLower(b)
	if a == b {
		return 1
	}
	ra := []rune(a)
	rb := []rune(b)
	maxLen := len(ra)
	if len(rb) > maxLen {
		maxLen = len(rb)
	}
	if maxLen == 0 {
		return 1
	}
	return 1 - float64(levenshtein(ra, rb))/float64(maxLen)
}

// BestMatch returns the highest-scoring candidate clearing minScore, or
// false when none does. Pass DefaultBestMinScore for the standard threshold.
func BestMatch(query string, candidates []string, minScore float64) (match.Candidate, bool) {
	top := TopMatches(query, candidates, minScore, 1)
	if len(top) == 0 {
		return match.Candidate{}, false
	}
	return top[0], true
}

// TopMatches returns up to limit candidates scoring at least minScore,
// sorted by score descending, then edit distance ascending, then input
// order. The ordering is deterministic.
func TopMatches(query string, candidates []string, minScore float64, limit int) []match.Candidate {
	if limit <= 0 {
		limit = DefaultTopLimit
	}

	type ranked struct {
		cand  match.Candidate
		index int
	}

	var matches []ranked
	for i, c := range candidates {
		score, dist := matchScore(query, c)
		if score < minScore {
			continue
		}
		matches = append(matches, ranked{cand: match.New(c, score, dist), index: i})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].cand.Score() != matches[j].cand.Score() {
			return matches[i].cand.Score() > matches[j].cand.Score()
		}
		if matches[i].cand.Distance() != matches[j].cand.Distance() {
			return matches[i].cand.Distance() < matches[j].cand.Distance()
		}
		return matches[i].index < matches[j].index
	})

	if len(matches) > limit {
		matches = matches[:limit]
	}

	out := make([]match.Candidate, len(matches))
	for i, m := range matches {
		out[i] = m.cand
	}
	return out
}

// matchScore combines edit-distance similarity with containment boosts.
func matchScore(query, candidate string) (float64, int) {
	q := strings.ToLower(strings.TrimSpace(query))
	c := strings.ToLower(strings.TrimSpace(candidate))

	ra := []rune(q)
	rb := []rune(c)
	dist := levenshtein(ra, rb)

	score := Similarity(q, c)

	if q != "" && c != "" {
		switch {
		case strings.Contains(c, q):
			if score < boostCandidateContains {
				score = boostCandidateContains
			}
		case strings.Contains(q, c):
			if score < boostQueryContains {
				score = boostQueryContains
			}
		}

		if words := strings.Fields(q); len(words) > 1 && allWordsContained(words, strings.Fields(c)) {
			if score < boostAllWords {
				score = boostAllWords
			}
		}
	}

	if q == c {
		dist = 0
		score = 1
	}

	return score, dist
}

// allWordsContained reports whether every query word is a substring of some
// candidate word.
func allWordsContained(queryWords, candWords []string) bool {
	for _, qw := range queryWords {
		found := false
		for _, cw := range candWords {
			if strings.Contains(cw, qw) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// levenshtein computes the edit distance with a two-row rolling table.
func levenshtein(a, b []rune) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := 0; j <= len(b); j++ {
		prev[j] = j
	}

	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			del := prev[j] + 1
			ins := curr[j-1] + 1
			sub := prev[j-1] + cost

			m := del
			if ins < m {
				m = ins
			}
			if sub < m {
				m = sub
			}
			curr[j] = m
		}
		prev, curr = curr, prev
	}

	return prev[len(b)]
}
