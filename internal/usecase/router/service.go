package router

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kailas-cloud/findex/internal/db"
	"github.com/kailas-cloud/findex/internal/domain"
	"github.com/kailas-cloud/findex/internal/domain/answer"
	domclassify "github.com/kailas-cloud/findex/internal/domain/classify"
	"github.com/kailas-cloud/findex/internal/domain/filterset"
	"github.com/kailas-cloud/findex/internal/domain/finding"
	"github.com/kailas-cloud/findex/internal/domain/match"
	"github.com/kailas-cloud/findex/internal/domain/query"
	"github.com/kailas-cloud/findex/internal/domain/strategy"
	"github.com/kailas-cloud/findex/internal/logger"
	"github.com/kailas-cloud/findex/internal/metrics"
	"github.com/kailas-cloud/findex/internal/usecase/similarity"
)

// Config holds routing parameters.
type Config struct {
	// MaxRows caps rows returned by a single query.
	MaxRows int
	// ConfirmWindow is how long a pending confirmation stays valid.
	ConfirmWindow time.Duration
	// SnapshotCap bounds the in-memory fallback snapshot.
	SnapshotCap int
	// AutoCorrectMin is the similarity score above which a single project
	// candidate is substituted without asking.
	AutoCorrectMin float64
	// ConfirmMin is the similarity floor for confirmation candidates.
	ConfirmMin float64
}

// ApplyDefaults fills zero fields.
func (c *Config) ApplyDefaults() {
	if c.MaxRows <= 0 {
		c.MaxRows = 50
	}
	if c.ConfirmWindow <= 0 {
		c.ConfirmWindow = 300 * time.Second
	}
	if c.SnapshotCap <= 0 {
		c.SnapshotCap = 200
	}
	if c.AutoCorrectMin <= 0 {
		c.AutoCorrectMin = similarity.DefaultBestMinScore
	}
	if c.ConfirmMin <= 0 {
		c.ConfirmMin = similarity.DefaultTopMinScore
	}
}

// pendingConfirmation is a deferred execution waiting for the caller to pick
// a project candidate.
type pendingConfirmation struct {
	correlationID string
	q             query.Query
	class         domclassify.Classification
	candidates    []match.Candidate
	expiresAt     time.Time
}

// Service is the query router: it classifies, validates, disambiguates,
// executes the cheapest adequate strategy, formats, caches, and degrades
// through the fallback chain when dependencies are down.
type Service struct {
	classifier Classifier
	extractor  Extractor
	repo       FindingRepository
	formatter  Formatter
	cache      ResponseCache
	auditor    Auditor
	cfg        Config
	now        func() time.Time

	mu         sync.Mutex
	pending    map[string]pendingConfirmation
	snapshot   []finding.Finding
	snapshotAt time.Time
}

// New creates a router service.
func New(
	classifier Classifier, extractor Extractor, repo FindingRepository,
	formatter Formatter, cache ResponseCache, auditor Auditor, cfg Config,
) *Service {
	cfg.ApplyDefaults()
	return &Service{
		classifier: classifier,
		extractor:  extractor,
		repo:       repo,
		formatter:  formatter,
		cache:      cache,
		auditor:    auditor,
		cfg:        cfg,
		now:        time.Now,
		pending:    make(map[string]pendingConfirmation),
	}
}

// Process routes one query end to end.
func (s *Service) Process(ctx context.Context, q query.Query) (answer.Response, error) {
	start := s.now()

	if cached, ok := s.cache.Get(ctx, q.CacheKey()); ok {
		metrics.QueriesTotal.WithLabelValues(string(cached.Meta().Strategy), "cached").Inc()
		return cached, nil
	}

	class, err := s.classifier.Classify(q)
	if err != nil {
		metrics.QueriesTotal.WithLabelValues("none", "error").Inc()
		return answer.Response{}, &answer.ErrorResponse{
			Code:       answer.CodeInternal,
			Message:    "could not interpret the question",
			Suggestion: "rephrase the question or add a department, year, or keyword",
		}
	}

	filters := s.extractor.Validate(ctx, class.Filters())
	strat := class.Strategy()
	if strat == strategy.Lookup && s.extractor.ShouldEscalate(filters) {
		// Nothing to look up with: reasoning beats an unconditional scan.
		strat = strategy.Analytical
	}

	// Entity disambiguation against canonical project names.
	if filters.Project() != "" {
		resolved, confirmation, ok := s.disambiguateProject(ctx, q, class.WithStrategy(strat), filters)
		if !ok {
			return confirmation, nil
		}
		filters = resolved
	}

	resp, err := s.execute(ctx, q, strat, filters, class.Confidence(), start)
	if err != nil {
		return resp, err
	}

	if !resp.Meta().Degraded {
		s.cache.Put(ctx, q.CacheKey(), resp)
	}
	s.audit(ctx, q, resp)
	return resp, nil
}

// Confirm resumes a pending confirmation with the chosen candidate.
// The correlation ID guards against answers to a superseded question.
func (s *Service) Confirm(ctx context.Context, sessionID, correlationID, choice string) (
	answer.Response, error,
) {
	s.mu.Lock()
	p, ok := s.pending[sessionID]
	if ok {
		delete(s.pending, sessionID)
	}
	s.mu.Unlock()

	if !ok || p.correlationID != correlationID {
		return answer.Response{}, fmt.Errorf("no pending confirmation for session: %w", domain.ErrNotFound)
	}
	if s.now().After(p.expiresAt) {
		return answer.Response{}, fmt.Errorf(
			"confirmation expired at %s: %w", p.expiresAt.Format(time.RFC3339), domain.ErrConfirmationExpired)
	}

	var picked string
	for _, c := range p.candidates {
		if strings.EqualFold(c.Value(), choice) {
			picked = c.Value()
			break
		}
	}
	if picked == "" {
		return answer.Response{}, fmt.Errorf("choice %q is not a listed candidate: %w", choice, domain.ErrNotFound)
	}

	filters := p.class.Filters().WithProject(picked)
	resp, err := s.execute(ctx, p.q, p.class.Strategy(), filters, p.class.Confidence(), s.now())
	if err != nil {
		return resp, err
	}
	s.audit(ctx, p.q, resp)
	return resp, nil
}

// disambiguateProject resolves a user-supplied project name against the
// canonical list. One strong match is substituted silently; weaker matches
// come back as a confirmation round-trip; no match at all demotes the name
// to a keyword. The store being down skips resolution entirely and lets the
// execution-level fallback handle it.
func (s *Service) disambiguateProject(
	ctx context.Context, q query.Query, class domclassify.Classification, filters filterset.Set,
) (filterset.Set, answer.Response, bool) {
	projects, err := s.repo.ListProjects(ctx)
	if err != nil {
		logger.FromContext(ctx).Warn("project disambiguation skipped", zap.Error(err))
		return filters, answer.Response{}, true
	}

	name := filters.Project()
	for _, p := range projects {
		if strings.EqualFold(p, name) {
			return filters.WithProject(p), answer.Response{}, true
		}
	}

	if best, ok := similarity.BestMatch(name, projects, s.cfg.AutoCorrectMin); ok {
		logger.FromContext(ctx).Info("project auto-corrected",
			zap.String("from", name), zap.String("to", best.Value()),
			zap.Float64("score", best.Score()))
		return filters.WithProject(best.Value()), answer.Response{}, true
	}

	top := similarity.TopMatches(name, projects, s.cfg.ConfirmMin, similarity.DefaultTopLimit)
	if len(top) == 0 {
		// Unknown name: keep it as a keyword rather than filtering to zero.
		logger.FromContext(ctx).Info("unknown project demoted to keyword", zap.String("project", name))
		demoted, err := rebuildWithKeywords(filters.WithProject(""), append(filters.Keywords(), name))
		if err != nil {
			return filters.WithProject(""), answer.Response{}, true
		}
		return demoted, answer.Response{}, true
	}

	correlationID := uuid.NewString()
	s.mu.Lock()
	s.pending[q.SessionID()] = pendingConfirmation{
		correlationID: correlationID,
		q:             q,
		class:         class.WithFilters(filters),
		candidates:    top,
		expiresAt:     s.now().Add(s.cfg.ConfirmWindow),
	}
	s.mu.Unlock()

	metrics.QueriesTotal.WithLabelValues(string(class.Strategy()), "confirmation").Inc()
	resp := answer.NewConfirmation(correlationID, top, answer.Metadata{
		Strategy:   class.Strategy(),
		Confidence: class.Confidence(),
	})
	return filterset.Set{}, resp, false
}

// execute runs one strategy and formats the result, falling through the
// degradation chain on dependency failures.
func (s *Service) execute(
	ctx context.Context, q query.Query, strat strategy.Strategy,
	filters filterset.Set, confidence float64, start time.Time,
) (answer.Response, error) {
	var (
		resp answer.Response
		err  error
	)
	switch strat {
	case strategy.Lookup:
		resp, err = s.executeLookup(ctx, q, filters, confidence, start)
	case strategy.Analytical, strategy.Hybrid:
		resp, err = s.executeReasoning(ctx, q, strat, filters, confidence, start)
	default:
		return answer.Response{}, fmt.Errorf("%w: %q", domain.ErrUnknownStrategy, strat)
	}
	if err != nil {
		return s.fallback(ctx, q, strat, err, start)
	}

	metrics.QueriesTotal.WithLabelValues(string(resp.Meta().Strategy), "success").Inc()
	metrics.QueryDuration.WithLabelValues(string(resp.Meta().Strategy)).
		Observe(s.now().Sub(start).Seconds())
	s.refreshSnapshotIfStale(ctx)
	return resp, nil
}

func (s *Service) executeLookup(
	ctx context.Context, q query.Query, filters filterset.Set,
	confidence float64, start time.Time,
) (answer.Response, error) {
	meta := answer.Metadata{Strategy: strategy.Lookup, Confidence: confidence}

	if groupBy, wantsAgg := aggregationTarget(q.Text()); wantsAgg {
		rows, err := s.repo.Aggregate(ctx, filters, groupBy, db.ReduceCount, "")
		if err != nil {
			return answer.Response{}, err
		}
		meta.ElapsedMs = s.elapsedMs(start)
		return s.formatter.FormatAggregation(rows, meta), nil
	}
	if wantsCount(q.Text()) {
		n, err := s.repo.Count(ctx, filters)
		if err != nil {
			return answer.Response{}, err
		}
		meta.RecordsExamined = n
		meta.ElapsedMs = s.elapsedMs(start)
		return s.formatter.FormatAggregation(
			[]db.AggregateRow{{Keys: map[string]string{}, Value: float64(n)}}, meta), nil
	}

	rows, total, slow, err := s.repo.Search(ctx, filters, 0, s.cfg.MaxRows)
	if err != nil {
		return answer.Response{}, err
	}
	meta.RecordsExamined = total
	meta.SlowPath = slow

	if total == 0 && len(filters.Keywords()) > 0 {
		// The structured view found nothing but free text was involved:
		// let the reasoning path explain the absence instead of returning
		// a bare empty list.
		meta.Strategy = strategy.Hybrid
		resp, err := s.formatter.Reason(ctx, q, nil, meta)
		if err != nil {
			return answer.Response{}, err
		}
		m := resp.Meta()
		m.ElapsedMs = s.elapsedMs(start)
		return resp.WithMeta(m), nil
	}

	meta.ElapsedMs = s.elapsedMs(start)
	return s.formatter.FormatRows(rows, meta), nil
}

func (s *Service) executeReasoning(
	ctx context.Context, q query.Query, strat strategy.Strategy,
	filters filterset.Set, confidence float64, start time.Time,
) (answer.Response, error) {
	rows, total, slow, err := s.repo.Search(ctx, filters, 0, s.cfg.MaxRows)
	if err != nil {
		return answer.Response{}, err
	}

	resp, err := s.formatter.Reason(ctx, q, rows, answer.Metadata{
		Strategy:        strat,
		RecordsExamined: total,
		Confidence:      confidence,
		SlowPath:        slow,
	})
	if err != nil {
		if strat == strategy.Hybrid && len(rows) > 0 &&
			(errors.Is(err, domain.ErrLLMUnavailable) || errors.Is(err, domain.ErrLLMQuotaExceeded)) {
			// Hybrid keeps its retrieval half when reasoning is down.
			logger.FromContext(ctx).Warn("reasoning unavailable, returning rows only", zap.Error(err))
			metrics.FallbacksTotal.WithLabelValues("llm").Inc()
			return s.formatter.FormatRows(rows, answer.Metadata{
				Strategy:        strat,
				ElapsedMs:       s.elapsedMs(start),
				RecordsExamined: total,
				Confidence:      confidence,
				Degraded:        true,
				SlowPath:        slow,
			}), nil
		}
		return answer.Response{}, err
	}

	m := resp.Meta()
	m.ElapsedMs = s.elapsedMs(start)
	return resp.WithMeta(m), nil
}

func (s *Service) audit(ctx context.Context, q query.Query, resp answer.Response) {
	s.auditor.Emit(ctx, AuditEntry{
		SessionID: q.SessionID(),
		QueryText: q.Text(),
		Strategy:  resp.Meta().Strategy,
		ElapsedMs: resp.Meta().ElapsedMs,
		Degraded:  resp.Meta().Degraded,
	})
}

func (s *Service) elapsedMs(start time.Time) int64 {
	return s.now().Sub(start).Milliseconds()
}

func rebuildWithKeywords(set filterset.Set, keywords []string) (filterset.Set, error) {
	b := filterset.NewBuilder()
	if d := set.Department(); d != "" {
		b.Department(d)
	}
	if y := set.Year(); y != 0 {
		b.Year(y)
	}
	if sev := set.Severity(); sev != "" {
		b.Severity(string(sev))
	}
	if st := set.Status(); st != "" {
		b.Status(string(st))
	}
	if dr := set.DateRange(); dr != nil {
		b.DateRange(dr.From(), dr.To())
	}
	b.Keywords(keywords...)
	return b.Build()
}
