package audit

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/findex/internal/domain/strategy"
)

type mockStore struct {
	key  string
	data []byte
	ttl  time.Duration
	err  error
}

func (m *mockStore) SetWithTTL(_ context.Context, key string, value []byte, ttl time.Duration) error {
	m.key = key
	m.data = value
	m.ttl = ttl
	return m.err
}

func TestEmitWritesRecord(t *testing.T) {
	ms := &mockStore{}
	sink := New(ms, zap.NewNop())
	sink.now = func() time.Time { return time.Unix(1760000000, 0) }

	sink.Emit(context.Background(), Record{
		SessionID: "s-1",
		QueryText: "IT findings 2025",
		Strategy:  strategy.Lookup,
		ElapsedMs: 12,
	})

	if !strings.HasPrefix(ms.key, keyPrefix) {
		t.Errorf("key = %q", ms.key)
	}
	if ms.ttl != retention {
		t.Errorf("ttl = %v, want %v", ms.ttl, retention)
	}
	var rec Record
	if err := json.Unmarshal(ms.data, &rec); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if rec.ID == "" {
		t.Error("expected generated record ID")
	}
	if rec.SessionID != "s-1" || rec.Strategy != strategy.Lookup || rec.At != 1760000000 {
		t.Errorf("record = %+v", rec)
	}
}

func TestEmitSwallowsStoreErrors(t *testing.T) {
	ms := &mockStore{err: errors.New("connection refused")}
	sink := New(ms, zap.NewNop())

	// Must not panic or propagate.
	sink.Emit(context.Background(), Record{SessionID: "s-1", QueryText: "q"})
}
