package strategy

// Strategy is the query handling strategy.
type Strategy string

// Handling strategy constants.
const (
	// Lookup answers via a direct structured filter query, no reasoning.
	Lookup Strategy = "lookup"
	// Analytical answers via an LLM call over retrieved context.
	Analytical Strategy = "analytical"
	// Hybrid runs a structured query, then LLM summarization of the rows.
	Hybrid Strategy = "hybrid"
	// Degraded is a basic keyword fallback after the primary strategies failed.
	Degraded Strategy = "degraded"
)

// IsValid checks if the strategy is one of the supported values.
func (s Strategy) IsValid() bool {
	return s == Lookup || s == Analytical || s == Hybrid || s == Degraded
}
