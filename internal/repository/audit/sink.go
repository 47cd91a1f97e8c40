package audit

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kailas-cloud/findex/internal/domain/strategy"
)

const (
	keyPrefix = "findex:audit:"

	// retention bounds how long audit trail entries live in the store.
	retention = 30 * 24 * time.Hour
)

// store is the consumer interface for the audit trail (ISP).
type store interface {
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Record is one audit trail entry for a processed query.
type Record struct {
	ID        string            `json:"id"`
	SessionID string            `json:"session_id"`
	QueryText string            `json:"query_text"`
	Strategy  strategy.Strategy `json:"strategy"`
	ElapsedMs int64             `json:"elapsed_ms"`
	Degraded  bool              `json:"degraded,omitempty"`
	At        int64             `json:"at"`
}

// Sink persists audit records best-effort: failures are logged, never
// propagated, so auditing can never fail a query.
type Sink struct {
	store  store
	logger *zap.Logger
	now    func() time.Time
}

// New creates an audit sink.
func New(s store, logger *zap.Logger) *Sink {
	return &Sink{store: s, logger: logger, now: time.Now}
}

// Emit writes one audit record.
func (s *Sink) Emit(ctx context.Context, rec Record) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	rec.At = s.now().Unix()

	data, err := json.Marshal(rec)
	if err != nil {
		s.logger.Warn("Failed to encode audit record", zap.Error(err))
		return
	}
	key := keyPrefix + rec.ID
	if err := s.store.SetWithTTL(ctx, key, data, retention); err != nil {
		s.logger.Warn("Failed to write audit record",
			zap.String("key", key), zap.Error(err))
	}
}
