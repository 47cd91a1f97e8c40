package findex

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/kailas-cloud/findex/internal/domain"
	domanswer "github.com/kailas-cloud/findex/internal/domain/answer"
	"github.com/kailas-cloud/findex/internal/domain/filterset"
	domfind "github.com/kailas-cloud/findex/internal/domain/finding"
	"github.com/kailas-cloud/findex/internal/domain/match"
	"github.com/kailas-cloud/findex/internal/domain/strategy"
)

func TestNew_NoAddress(t *testing.T) {
	_, err := New()
	if err == nil {
		t.Fatal("expected error when no address provided")
	}
}

func TestOptions_Apply(t *testing.T) {
	cfg := &clientConfig{}
	opts := []Option{
		WithRedis("localhost:6379", "pw"),
		WithLLM("key", "http://llm.local/v1", "gpt-4o-mini"),
		WithCacheTTL(60 * time.Second),
		WithMaxRows(20),
		WithConfirmWindow(time.Minute),
		WithDepartments([]string{"IT", "HR"}),
	}
	for _, o := range opts {
		o.apply(cfg)
	}

	if len(cfg.addrs) != 1 || cfg.addrs[0] != "localhost:6379" {
		t.Errorf("addrs = %v", cfg.addrs)
	}
	if cfg.llmAPIKey != "key" || cfg.llmModel != "gpt-4o-mini" {
		t.Errorf("llm config = %q %q", cfg.llmAPIKey, cfg.llmModel)
	}
	if cfg.cacheTTL != 60*time.Second {
		t.Errorf("cacheTTL = %v", cfg.cacheTTL)
	}
	if cfg.maxRows != 20 {
		t.Errorf("maxRows = %d", cfg.maxRows)
	}
	if len(cfg.departments) != 2 {
		t.Errorf("departments = %v", cfg.departments)
	}
}

func TestNoopCompleter(t *testing.T) {
	_, err := noopCompleter{}.Complete(context.Background(), "sys", "prompt", 100)
	if err == nil {
		t.Fatal("expected error from noopCompleter")
	}
	if !errors.Is(err, domain.ErrLLMUnavailable) {
		t.Errorf("error = %v, want ErrLLMUnavailable", err)
	}
}

func TestToResult_Rows(t *testing.T) {
	row := domfind.Reconstruct(
		"f1", "APAR fire door gap", "level 3", "IT", "Harbor Tower",
		filterset.SeverityHigh, filterset.StatusOpen,
		time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC),
	)
	resp := domanswer.NewRows([]domfind.Finding{row}, domanswer.Metadata{
		Strategy:        strategy.Lookup,
		RecordsExamined: 1,
		Confidence:      0.8,
	})

	res := toResult(resp)
	if res.Kind != KindRows {
		t.Fatalf("kind = %q, want %q", res.Kind, KindRows)
	}
	if len(res.Rows) != 1 {
		t.Fatalf("rows = %d, want 1", len(res.Rows))
	}
	got := res.Rows[0]
	if got.ID != "f1" || got.Severity != "high" || got.Status != "open" {
		t.Errorf("row = %+v", got)
	}
	if res.Meta.Strategy != string(strategy.Lookup) {
		t.Errorf("strategy = %q", res.Meta.Strategy)
	}
}

func TestToResult_Confirmation(t *testing.T) {
	resp := domanswer.NewConfirmation("corr-9", []match.Candidate{
		match.New("Harbor Tower East", 0.85, 7),
		match.New("Harbor Tower West", 0.85, 7),
	}, domanswer.Metadata{Strategy: strategy.Lookup})

	res := toResult(resp)
	if res.Kind != KindConfirmation {
		t.Fatalf("kind = %q, want %q", res.Kind, KindConfirmation)
	}
	if res.CorrelationID != "corr-9" {
		t.Errorf("correlation id = %q", res.CorrelationID)
	}
	if len(res.Candidates) != 2 || res.Candidates[0].Value != "Harbor Tower East" {
		t.Errorf("candidates = %+v", res.Candidates)
	}
}
