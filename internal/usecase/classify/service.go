package classify

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	domclassify "github.com/kailas-cloud/findex/internal/domain/classify"
	"github.com/kailas-cloud/findex/internal/domain/filterset"
	"github.com/kailas-cloud/findex/internal/domain/query"
	"github.com/kailas-cloud/findex/internal/domain/strategy"
)

// signal is one entry in the data-driven rule tables: a lowercase phrase
// and its vote weight. Tables are ordered and independently testable;
// extending the rule set never touches control flow.
type signal struct {
	phrase string
	weight int
}

// lookupSignals vote for the structured-query path.
var lookupSignals = []signal{
	{"show me", 2},
	{"show", 1},
	{"list", 2},
	{"find", 2},
	{"search", 2},
	{"how many", 2},
	{"count", 2},
	{"total", 1},
	{"is there", 2},
	{"are there", 2},
	{"which", 1},
	{"display", 1},
	{"get", 1},
	{"in progress", 1},
	{"open", 1},
	{"closed", 1},
	{"between", 1},
	{"since", 1},
	{"before", 1},
	{"after", 1},
}

// analyticalSignals vote for the LLM reasoning path.
var analyticalSignals = []signal{
	{"why", 2},
	{"what should", 3},
	{"recommend", 3},
	{"recommendation", 3},
	{"suggest", 2},
	{"compare", 2},
	{"predict", 3},
	{"analyze", 2},
	{"analyse", 2},
	{"analysis", 2},
	{"pattern", 2},
	{"trend", 2},
	{"insight", 2},
	{"explain", 2},
	{"summarize", 2},
	{"summarise", 2},
	{"root cause", 3},
	{"care about", 2},
	{"based on", 1},
	{"lesson", 2},
	{"risk", 1},
}

// enumSignal binds a phrase to a canonical filter value. Tables are ordered
// and the first matching phrase wins, so a query naming several values
// always resolves the same way.
type enumSignal struct {
	phrase string
	value  string
}

// severitySignals map phrases to severity values. Bare "high"/"low" are too
// generic to count.
var severitySignals = []enumSignal{
	{"critical", string(filterset.SeverityCritical)},
	{"high severity", string(filterset.SeverityHigh)},
	{"high priority", string(filterset.SeverityHigh)},
	{"major", string(filterset.SeverityHigh)},
	{"medium severity", string(filterset.SeverityMedium)},
	{"low severity", string(filterset.SeverityLow)},
	{"minor", string(filterset.SeverityLow)},
}

// statusSignals map phrases to status values.
var statusSignals = []enumSignal{
	{"open", string(filterset.StatusOpen)},
	{"unresolved", string(filterset.StatusOpen)},
	{"outstanding", string(filterset.StatusOpen)},
	{"in progress", string(filterset.StatusInProgress)},
	{"closed", string(filterset.StatusClosed)},
	{"resolved", string(filterset.StatusClosed)},
}

// defaultDepartments is the built-in department vocabulary.
var defaultDepartments = []string{
	"HR", "IT", "Finance", "Operations", "Security", "Safety",
	"Engineering", "Housekeeping", "Procurement", "Legal",
}

// stopwords are dropped during keyword extraction.
var stopwords = map[string]bool{
	"a": true, "an": true, "the": true, "is": true, "are": true, "was": true,
	"were": true, "be": true, "been": true, "there": true, "any": true,
	"about": true, "in": true, "on": true, "at": true, "of": true, "for": true,
	"to": true, "from": true, "and": true, "or": true, "with": true,
	"finding": true, "findings": true, "issue": true, "issues": true,
	"me": true, "all": true, "that": true, "this": true, "what": true,
	"should": true, "would": true, "do": true, "does": true, "it": true,
	"new": true, "based": true, "care": true, "we": true, "you": true,
	"please": true, "can": true, "how": true, "many": true, "much": true,
}

var yearRegex = regexp.MustCompile(`\b(19|20)\d{2}\b`)
var quotedRegex = regexp.MustCompile(`"([^"]+)"|'([^']+)'`)
var tokenRegex = regexp.MustCompile(`[A-Za-z0-9][A-Za-z0-9&-]*`)

// Config holds classifier vocabularies.
type Config struct {
	// Departments overrides the built-in department vocabulary.
	Departments []string
	// Projects is the canonical project/site vocabulary used for exact
	// project detection. Fuzzy correction happens in the router.
	Projects []string
}

// Service classifies free-text queries into a handling strategy and extracts
// candidate structured filters. Pattern-based and fully deterministic.
type Service struct {
	departments []string
	projects    []string
}

// New creates a classifier service.
func New(cfg Config) *Service {
	deps := cfg.Departments
	if len(deps) == 0 {
		deps = defaultDepartments
	}
	return &Service{departments: deps, projects: cfg.Projects}
}

// Classify maps a query to exactly one strategy with confidence in [0, 1].
//
// Voting: analytical signals strictly outvoting retrieval evidence (lookup
// phrases plus extracted fields) means analytical; both kinds present means
// hybrid (retrieval first, reasoning second); otherwise lookup. A tie
// therefore never escalates to pure
// analytical - the retrieval-first path is the cheaper, safer default.
// Filterless non-trivial text escalates to analytical rather than silently
// returning nothing.
func (s *Service) Classify(q query.Query) (domclassify.Classification, error) {
	lower := strings.ToLower(q.Text())

	lookupScore := scoreSignals(lower, lookupSignals)
	analyticalScore := scoreSignals(lower, analyticalSignals)

	filters, fieldCount := s.extractFilters(q.Text(), lower)

	// Explicit structured fields vote for retrieval alongside lookup
	// phrases. Analytical wins only when reasoning signals outvote both.
	var strat strategy.Strategy
	switch {
	case analyticalScore > lookupScore+fieldCount:
		strat = strategy.Analytical
	case analyticalScore > 0 && (lookupScore > 0 || fieldCount > 0):
		// Both kinds of signals: retrieve first, then reason over the rows.
		strat = strategy.Hybrid
	default:
		strat = strategy.Lookup
	}

	if strat == strategy.Lookup && filters.IsEmpty() && lookupScore == 0 {
		// No signals and no filters: over-invoking reasoning beats silence.
		strat = strategy.Analytical
	}

	if q.Mode() == query.ModeDeep && strat == strategy.Lookup && analyticalScore > 0 {
		strat = strategy.Hybrid
	}

	confidence := confidenceFor(strat, lookupScore, analyticalScore, fieldCount)

	return domclassify.New(strat, confidence, filters, false)
}

// scoreSignals sums weights of matched phrases.
func scoreSignals(lower string, table []signal) int {
	score := 0
	for _, sig := range table {
		if containsPhrase(lower, sig.phrase) {
			score += sig.weight
		}
	}
	return score
}

// containsPhrase matches on word boundaries so "open" does not fire in
// "reopened".
func containsPhrase(lower, phrase string) bool {
	idx := 0
	for {
		i := strings.Index(lower[idx:], phrase)
		if i < 0 {
			return false
		}
		start := idx + i
		end := start + len(phrase)
		beforeOK := start == 0 || !isWordChar(lower[start-1])
		afterOK := end == len(lower) || !isWordChar(lower[end])
		if beforeOK && afterOK {
			return true
		}
		idx = start + 1
	}
}

func isWordChar(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= '0' && c <= '9'
}

// confidenceFor derives confidence from signal strength and filter
// specificity. Explicit field mentions raise it; generic phrasing floors it.
func confidenceFor(strat strategy.Strategy, lookupScore, analyticalScore, fieldCount int) float64 {
	base := 0.5
	switch strat {
	case strategy.Analytical:
		base += 0.1 * float64(min(analyticalScore, 4))
	case strategy.Hybrid:
		base += 0.05 * float64(min(lookupScore+analyticalScore, 6))
	default:
		base += 0.05 * float64(min(lookupScore, 4))
	}

	base += 0.15 * float64(min(fieldCount, 3))

	if base > 0.95 {
		base = 0.95
	}
	if base < 0.4 {
		base = 0.4
	}
	return base
}

// extractFilters builds the candidate filter set and returns it with the
// number of explicit structured fields found.
func (s *Service) extractFilters(original, lower string) (filterset.Set, int) {
	b := filterset.NewBuilder()
	fields := 0
	consumed := map[string]bool{}

	// Department tokens go into the structured department field, never into
	// keywords. Two or more distinct departments fall back to keyword search:
	// multi-department structured filtering is not supported.
	departments := s.matchDepartments(lower)
	var departmentKeywords []string
	switch len(departments) {
	case 0:
	case 1:
		b.Department(departments[0])
		fields++
		consumed[strings.ToLower(departments[0])] = true
	default:
		departmentKeywords = departments
		for _, d := range departments {
			consumed[strings.ToLower(d)] = true
		}
	}

	// Years: one mention filters by year, several form a date range.
	years := extractYears(lower)
	switch len(years) {
	case 0:
	case 1:
		b.Year(years[0])
		fields++
	default:
		from := time.Date(years[0], 1, 1, 0, 0, 0, 0, time.UTC)
		to := time.Date(years[len(years)-1], 12, 31, 23, 59, 59, 0, time.UTC)
		b.DateRange(from, to)
		fields++
	}
	for _, y := range years {
		consumed[strconv.Itoa(y)] = true
	}

	for _, sig := range severitySignals {
		if containsPhrase(lower, sig.phrase) {
			b.Severity(sig.value)
			fields++
			for _, w := range strings.Fields(sig.phrase) {
				consumed[w] = true
			}
			break
		}
	}

	for _, sig := range statusSignals {
		if containsPhrase(lower, sig.phrase) {
			b.Status(sig.value)
			fields++
			for _, w := range strings.Fields(sig.phrase) {
				consumed[w] = true
			}
			break
		}
	}

	if project := s.matchProject(original, lower); project != "" {
		b.Project(project)
		fields++
		for _, w := range strings.Fields(strings.ToLower(project)) {
			consumed[w] = true
		}
	}

	keywords := extractKeywords(original, consumed)
	keywords = append(departmentKeywords, keywords...)
	if len(keywords) > 0 {
		if len(keywords) > filterset.MaxKeywords {
			keywords = keywords[:filterset.MaxKeywords]
		}
		b.Keywords(keywords...)
	}

	set, err := b.Build()
	if err != nil {
		// Partial extraction failed validation; keyword-only fallback.
		set, _ = filterset.NewBuilder().Keywords(keywords...).Build()
		return set, 0
	}
	return set, fields
}

// matchDepartments returns distinct vocabulary departments mentioned in the
// query, in order of first appearance.
func (s *Service) matchDepartments(lower string) []string {
	type hit struct {
		dept string
		pos  int
	}
	var hits []hit
	for _, d := range s.departments {
		dl := strings.ToLower(d)
		if containsPhrase(lower, dl) {
			hits = append(hits, hit{dept: d, pos: strings.Index(lower, dl)})
		}
	}
	for i := 1; i < len(hits); i++ {
		for j := i; j > 0 && hits[j].pos < hits[j-1].pos; j-- {
			hits[j], hits[j-1] = hits[j-1], hits[j]
		}
	}
	out := make([]string, len(hits))
	for i, h := range hits {
		out[i] = h.dept
	}
	return out
}

// matchProject finds an exact vocabulary project mention or a quoted name.
func (s *Service) matchProject(original, lower string) string {
	for _, p := range s.projects {
		if containsPhrase(lower, strings.ToLower(p)) {
			return p
		}
	}
	if m := quotedRegex.FindStringSubmatch(original); m != nil {
		if m[1] != "" {
			return m[1]
		}
		return m[2]
	}
	return ""
}

func extractYears(lower string) []int {
	var years []int
	for _, m := range yearRegex.FindAllString(lower, -1) {
		y, err := strconv.Atoi(m)
		if err != nil || y < filterset.MinYear || y > filterset.MaxYear {
			continue
		}
		dup := false
		for _, seen := range years {
			if seen == y {
				dup = true
				break
			}
		}
		if !dup {
			years = append(years, y)
		}
	}
	for i := 1; i < len(years); i++ {
		for j := i; j > 0 && years[j] < years[j-1]; j-- {
			years[j], years[j-1] = years[j-1], years[j]
		}
	}
	return years
}

// extractKeywords keeps significant tokens not consumed by structured
// fields, preserving original casing.
func extractKeywords(original string, consumed map[string]bool) []string {
	var keywords []string
	seen := map[string]bool{}
	for _, tok := range tokenRegex.FindAllString(original, -1) {
		lower := strings.ToLower(tok)
		if len(lower) < 2 || stopwords[lower] || consumed[lower] || seen[lower] {
			continue
		}
		if signalWord(lower) {
			continue
		}
		seen[lower] = true
		keywords = append(keywords, tok)
	}
	return keywords
}

// signalWord reports whether the token is part of a classification signal
// phrase and therefore carries no search content.
func signalWord(lower string) bool {
	for _, sig := range lookupSignals {
		for _, w := range strings.Fields(sig.phrase) {
			if w == lower {
				return true
			}
		}
	}
	for _, sig := range analyticalSignals {
		for _, w := range strings.Fields(sig.phrase) {
			if w == lower {
				return true
			}
		}
	}
	return false
}
