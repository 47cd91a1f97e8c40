package classify

import (
	"fmt"

	"github.com/kailas-cloud/findex/internal/domain/filterset"
	"github.com/kailas-cloud/findex/internal/domain/strategy"
)

// Classification is the outcome of intent classification for one query.
// Produced once per query; not persisted beyond the response cycle.
type Classification struct {
	strat                strategy.Strategy
	confidence           float64
	filters              filterset.Set
	requiresConfirmation bool
}

// New validates and creates a Classification.
func New(
	strat strategy.Strategy, confidence float64,
	filters filterset.Set, requiresConfirmation bool,
) (Classification, error) {
	if !strat.IsValid() {
		return Classification{}, fmt.Errorf("invalid strategy %q", strat)
	}
	if confidence < 0 || confidence > 1 {
		return Classification{}, fmt.Errorf("confidence %v out of range [0, 1]", confidence)
	}
	return Classification{
		strat:                strat,
		confidence:           confidence,
		filters:              filters,
		requiresConfirmation: requiresConfirmation,
	}, nil
}

// Strategy returns the selected handling strategy.
func (c Classification) Strategy() strategy.Strategy { return c.strat }

// Confidence returns the classifier confidence in [0, 1].
func (c Classification) Confidence() float64 { return c.confidence }

// Filters returns the extracted candidate filters.
func (c Classification) Filters() filterset.Set { return c.filters }

// RequiresConfirmation reports whether an ambiguous entity needs user input.
func (c Classification) RequiresConfirmation() bool { return c.requiresConfirmation }

// WithFilters returns a copy with the filters replaced (post-validation narrowing).
func (c Classification) WithFilters(f filterset.Set) Classification {
	c.filters = f
	return c
}

// WithStrategy returns a copy with the strategy replaced (escalation).
func (c Classification) WithStrategy(s strategy.Strategy) Classification {
	c.strat = s
	return c
}
