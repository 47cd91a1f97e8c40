package match

// Candidate is a scored canonical value proposed for an ambiguous entity name.
type Candidate struct {
	value    string
	score    float64
	distance int
}

// New creates a candidate match.
func New(value string, score float64, distance int) Candidate {
	return Candidate{value: value, score: score, distance: distance}
}

// Value returns the canonical value.
func (c Candidate) Value() string { return c.value }

// Score returns the similarity score in [0, 1].
func (c Candidate) Score() float64 { return c.score }

// Distance returns the Levenshtein edit distance to the query.
func (c Candidate) Distance() int { return c.distance }
