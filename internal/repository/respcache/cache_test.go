package respcache

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/findex/internal/db"
	"github.com/kailas-cloud/findex/internal/domain/answer"
	"github.com/kailas-cloud/findex/internal/domain/filterset"
	"github.com/kailas-cloud/findex/internal/domain/finding"
	"github.com/kailas-cloud/findex/internal/domain/match"
	"github.com/kailas-cloud/findex/internal/domain/strategy"
)

// mockKVStore implements the consumer interface for tests.
type mockKVStore struct {
	getFn   func(ctx context.Context, key string) ([]byte, error)
	setFn   func(ctx context.Context, key string, value []byte, ttl time.Duration) error
	deleted []string
}

func (m *mockKVStore) Get(ctx context.Context, key string) ([]byte, error) {
	if m.getFn != nil {
		return m.getFn(ctx, key)
	}
	return nil, db.ErrKeyNotFound
}

func (m *mockKVStore) SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if m.setFn != nil {
		return m.setFn(ctx, key, value, ttl)
	}
	return nil
}

func (m *mockKVStore) Del(_ context.Context, key string) error {
	m.deleted = append(m.deleted, key)
	return nil
}

func sampleRows() answer.Response {
	rows := []finding.Finding{
		finding.Reconstruct("f1", "Fire door blocked", "east wing", "Safety", "Harbor Tower",
			filterset.SeverityHigh, filterset.StatusOpen,
			time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)),
	}
	return answer.NewRows(rows, answer.Metadata{
		Strategy:        strategy.Lookup,
		RecordsExamined: 1,
		Confidence:      0.8,
	})
}

func TestPutThenGetRoundTrip(t *testing.T) {
	stored := map[string][]byte{}
	ms := &mockKVStore{
		setFn: func(_ context.Context, key string, value []byte, ttl time.Duration) error {
			if ttl != 300*time.Second {
				t.Errorf("ttl = %v, want 300s", ttl)
			}
			stored[key] = value
			return nil
		},
		getFn: func(_ context.Context, key string) ([]byte, error) {
			if v, ok := stored[key]; ok {
				return v, nil
			}
			return nil, db.ErrKeyNotFound
		},
	}
	c := New(ms, 300*time.Second, nil, zap.NewNop())

	c.Put(context.Background(), "fast:it findings 2025", sampleRows())

	got, ok := c.Get(context.Background(), "fast:it findings 2025")
	if !ok {
		t.Fatal("expected cache hit")
	}
	if !got.Meta().Cached {
		t.Error("cached response must be marked cached")
	}
	if got.Kind() != answer.KindRows {
		t.Errorf("kind = %q", got.Kind())
	}
	rows := got.Rows()
	if len(rows) != 1 || rows[0].ID() != "f1" || rows[0].Severity() != filterset.SeverityHigh {
		t.Errorf("rows = %v", rows)
	}
	if got.Meta().Strategy != strategy.Lookup {
		t.Errorf("strategy = %q", got.Meta().Strategy)
	}
}

func TestGetMissOnAbsentKey(t *testing.T) {
	c := New(&mockKVStore{}, time.Minute, nil, zap.NewNop())

	if _, ok := c.Get(context.Background(), "nothing"); ok {
		t.Error("expected miss")
	}
}

func TestGetExpiredEntryIsMissAndDeleted(t *testing.T) {
	ms := &mockKVStore{}
	c := New(ms, 300*time.Second, nil, zap.NewNop())

	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return base }

	var payload []byte
	ms.setFn = func(_ context.Context, _ string, value []byte, _ time.Duration) error {
		payload = value
		return nil
	}
	c.Put(context.Background(), "q", sampleRows())

	ms.getFn = func(_ context.Context, _ string) ([]byte, error) { return payload, nil }

	// Inside the window: hit.
	c.now = func() time.Time { return base.Add(299 * time.Second) }
	if _, ok := c.Get(context.Background(), "q"); !ok {
		t.Fatal("expected hit inside TTL window")
	}

	// At the boundary: miss, entry removed.
	c.now = func() time.Time { return base.Add(300 * time.Second) }
	if _, ok := c.Get(context.Background(), "q"); ok {
		t.Fatal("expected miss at TTL boundary")
	}
	if len(ms.deleted) != 1 {
		t.Errorf("deleted = %v, want one key", ms.deleted)
	}
}

func TestStoreFailuresAreSwallowed(t *testing.T) {
	boom := errors.New("connection refused")
	ms := &mockKVStore{
		getFn: func(_ context.Context, _ string) ([]byte, error) { return nil, boom },
		setFn: func(_ context.Context, _ string, _ []byte, _ time.Duration) error { return boom },
	}
	c := New(ms, time.Minute, nil, zap.NewNop())

	c.Put(context.Background(), "q", sampleRows())
	if _, ok := c.Get(context.Background(), "q"); ok {
		t.Error("failed read must be a miss, not an error")
	}
}

func TestConfirmationAndDegradedNeverCached(t *testing.T) {
	calls := 0
	ms := &mockKVStore{
		setFn: func(_ context.Context, _ string, _ []byte, _ time.Duration) error {
			calls++
			return nil
		},
	}
	c := New(ms, time.Minute, nil, zap.NewNop())

	conf := answer.NewConfirmation("corr-1",
		[]match.Candidate{match.New("Harbor Tower", 0.55, 4)},
		answer.Metadata{Strategy: strategy.Lookup},
	)
	c.Put(context.Background(), "q1", conf)

	degraded := sampleRows().WithMeta(answer.Metadata{Strategy: strategy.Degraded, Degraded: true})
	c.Put(context.Background(), "q2", degraded)

	if calls != 0 {
		t.Errorf("store writes = %d, want 0", calls)
	}
}

func TestCorruptEntryIsMiss(t *testing.T) {
	ms := &mockKVStore{
		getFn: func(_ context.Context, _ string) ([]byte, error) {
			return []byte("{not json"), nil
		},
	}
	c := New(ms, time.Minute, nil, zap.NewNop())

	if _, ok := c.Get(context.Background(), "q"); ok {
		t.Error("corrupt entry must be a miss")
	}
}
