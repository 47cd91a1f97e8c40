package router

import "strings"

// groupByFields maps query wording to index fields for GROUPBY.
var groupByFields = map[string]string{
	"department":  "department",
	"departments": "department",
	"year":        "year",
	"years":       "year",
	"severity":    "severity",
	"status":      "status",
	"project":     "project",
	"projects":    "project",
	"site":        "project",
	"sites":       "project",
}

var countPhrases = []string{"how many", "count of", "count ", "number of", "total number"}

// aggregationTarget detects grouped-count phrasing ("per department",
// "by year") and returns the index field to group on.
func aggregationTarget(text string) (string, bool) {
	lower := strings.ToLower(text)
	for _, marker := range []string{"per ", "by ", "grouped by ", "broken down by "} {
		idx := 0
		for {
			i := strings.Index(lower[idx:], marker)
			if i < 0 {
				break
			}
			rest := lower[idx+i+len(marker):]
			word := firstWord(rest)
			if field, ok := groupByFields[word]; ok {
				return field, true
			}
			idx += i + len(marker)
		}
	}
	return "", false
}

// wantsCount detects a bare count question with no grouping.
func wantsCount(text string) bool {
	lower := strings.ToLower(text)
	for _, p := range countPhrases {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}

func firstWord(s string) string {
	for i, r := range s {
		if r == ' ' || r == ',' || r == '.' || r == '?' || r == '!' {
			return s[:i]
		}
	}
	return s
}
