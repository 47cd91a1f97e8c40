package router

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/findex/internal/domain"
	"github.com/kailas-cloud/findex/internal/domain/answer"
	"github.com/kailas-cloud/findex/internal/domain/finding"
	"github.com/kailas-cloud/findex/internal/domain/query"
	"github.com/kailas-cloud/findex/internal/domain/strategy"
	"github.com/kailas-cloud/findex/internal/logger"
	"github.com/kailas-cloud/findex/internal/metrics"
)

// snapshotMaxAge is how long the fallback snapshot is considered fresh.
const snapshotMaxAge = 5 * time.Minute

// fallback is the last stage of the degradation chain: a keyword scan over
// the in-memory snapshot. The result is clearly marked degraded and never
// cached. With no snapshot to fall back on, the caller gets an actionable
// error instead of a raw dependency failure.
func (s *Service) fallback(
	ctx context.Context, q query.Query, strat strategy.Strategy, cause error, start time.Time,
) (answer.Response, error) {
	reason := "store"
	if errors.Is(cause, domain.ErrLLMUnavailable) || errors.Is(cause, domain.ErrLLMQuotaExceeded) {
		reason = "llm"
	}
	logger.FromContext(ctx).Warn("degrading query",
		zap.String("strategy", string(strat)), zap.String("reason", reason), zap.Error(cause))
	metrics.FallbacksTotal.WithLabelValues(reason).Inc()
	metrics.QueriesTotal.WithLabelValues(string(strat), "degraded").Inc()

	rows := s.snapshotSearch(q.Text())
	if len(rows) == 0 {
		return answer.Response{}, &answer.ErrorResponse{
			Code:       answer.CodeDegraded,
			Message:    "the findings service is temporarily unavailable",
			Suggestion: "retry shortly; recent results may be served from cache",
			Fallback:   []finding.Finding{},
		}
	}

	return s.formatter.FormatRows(rows, answer.Metadata{
		Strategy:        strategy.Degraded,
		ElapsedMs:       s.elapsedMs(start),
		RecordsExamined: len(rows),
		Degraded:        true,
		SlowPath:        true,
	}), nil
}

// snapshotSearch matches query words against the snapshot by substring.
func (s *Service) snapshotSearch(text string) []finding.Finding {
	s.mu.Lock()
	snapshot := s.snapshot
	s.mu.Unlock()
	if len(snapshot) == 0 {
		return nil
	}

	words := significantWords(text)
	if len(words) == 0 {
		return nil
	}

	var out []finding.Finding
	for i := range snapshot {
		haystack := strings.ToLower(strings.Join([]string{
			snapshot[i].Title(),
			snapshot[i].Description(),
			snapshot[i].Department(),
			snapshot[i].Project(),
		}, "\n"))
		for _, w := range words {
			if strings.Contains(haystack, w) {
				out = append(out, snapshot[i])
				break
			}
		}
		if len(out) >= s.cfg.MaxRows {
			break
		}
	}
	return out
}

// RefreshSnapshot reloads the fallback snapshot from the store. Called at
// startup and periodically while the store is healthy; the snapshot is what
// keeps degraded mode useful once the store goes away.
func (s *Service) RefreshSnapshot(ctx context.Context) error {
	rows, err := s.repo.Snapshot(ctx, s.cfg.SnapshotCap)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.snapshot = rows
	s.snapshotAt = s.now()
	s.mu.Unlock()
	return nil
}

// refreshSnapshotIfStale opportunistically refreshes after successful
// queries so the fallback data tracks the store without a dedicated ticker.
func (s *Service) refreshSnapshotIfStale(ctx context.Context) {
	s.mu.Lock()
	stale := s.now().Sub(s.snapshotAt) > snapshotMaxAge
	s.mu.Unlock()
	if !stale {
		return
	}
	if err := s.RefreshSnapshot(ctx); err != nil {
		logger.FromContext(ctx).Warn("snapshot refresh failed", zap.Error(err))
	}
}

// significantWords keeps lowercase words of three or more characters.
func significantWords(text string) []string {
	var words []string
	for _, w := range strings.Fields(strings.ToLower(text)) {
		w = strings.Trim(w, ".,;:!?\"'()[]{}")
		if len(w) >= 3 {
			words = append(words, w)
		}
	}
	return words
}
