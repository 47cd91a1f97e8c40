// Package findex is an embedded client for the audit-findings query core:
// it classifies natural-language questions, executes them against a Redis
// findings index, and answers with rows, aggregations, or LLM-backed text.
package findex

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/findex/internal/db"
	dbRedis "github.com/kailas-cloud/findex/internal/db/redis"
	"github.com/kailas-cloud/findex/internal/domain"
	domanswer "github.com/kailas-cloud/findex/internal/domain/answer"
	"github.com/kailas-cloud/findex/internal/domain/filterset"
	domfind "github.com/kailas-cloud/findex/internal/domain/finding"
	"github.com/kailas-cloud/findex/internal/domain/query"
	"github.com/kailas-cloud/findex/internal/metrics"
	auditrepo "github.com/kailas-cloud/findex/internal/repository/audit"
	findingrepo "github.com/kailas-cloud/findex/internal/repository/finding"
	"github.com/kailas-cloud/findex/internal/repository/respcache"
	"github.com/kailas-cloud/findex/internal/transport/openai"
	answeruc "github.com/kailas-cloud/findex/internal/usecase/answer"
	classifyuc "github.com/kailas-cloud/findex/internal/usecase/classify"
	extractuc "github.com/kailas-cloud/findex/internal/usecase/extract"
	routeruc "github.com/kailas-cloud/findex/internal/usecase/router"
)

const defaultReadinessTimeout = 10 * time.Second

// Sentinel errors surfaced by Client operations.
var (
	// ErrEmptyQuery is returned for blank question text.
	ErrEmptyQuery = domain.ErrEmptyQuery
	// ErrNotFound is returned when no pending confirmation matches.
	ErrNotFound = domain.ErrNotFound
	// ErrConfirmationExpired is returned for confirmations past their window.
	ErrConfirmationExpired = domain.ErrConfirmationExpired
)

// Client is the findex embedded entry point.
type Client struct {
	store  db.Store
	repo   *findingrepo.Repo
	router *routeruc.Service
}

// New creates a findex Client, connects to the database, and ensures the
// findings index exists.
func New(opts ...Option) (*Client, error) {
	cfg := &clientConfig{}
	for _, o := range opts {
		o.apply(cfg)
	}

	if len(cfg.addrs) == 0 {
		return nil, errors.New("findex: database address required (use WithRedis)")
	}

	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.addrs,
		Password: cfg.password,
	})
	if err != nil {
		return nil, fmt.Errorf("findex: create redis store: %w", err)
	}

	ctx := context.Background()
	if err := store.WaitForReady(ctx, defaultReadinessTimeout); err != nil {
		store.Close()
		return nil, fmt.Errorf("findex: database not ready: %w", err)
	}

	c, err := wireClient(ctx, store, cfg)
	if err != nil {
		store.Close()
		return nil, err
	}
	return c, nil
}

func wireClient(ctx context.Context, store *dbRedis.Store, cfg *clientConfig) (*Client, error) {
	log := cfg.logger
	if log == nil {
		log = zap.NewNop()
	}

	metrics.RegisterQueryMetrics()

	repo := findingrepo.New(store)
	if err := repo.EnsureIndex(ctx); err != nil {
		return nil, fmt.Errorf("findex: ensure index: %w", err)
	}

	// Completer: noop when no LLM configured (lookups work, reasoning
	// answers degrade to raw rows).
	var completer domain.Completer = noopCompleter{}
	if cfg.llmAPIKey != "" {
		model := cfg.llmModel
		if model == "" {
			model = "gpt-4o-mini"
		}
		timeout := cfg.llmTimeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		completer = openai.NewCompleter(&openai.Config{
			APIKey:  cfg.llmAPIKey,
			BaseURL: cfg.llmBaseURL,
			Model:   model,
			Timeout: timeout,
			Logger:  log,
		})
	}

	var cache routeruc.ResponseCache = noopCache{}
	if cfg.cacheTTL >= 0 {
		ttl := cfg.cacheTTL
		if ttl == 0 {
			ttl = 300 * time.Second
		}
		cache = respcache.New(store, ttl, metrics.CacheTotal, log)
	}

	// Project vocabulary is best-effort: quoted project names still match
	// without it.
	projects, err := repo.ListProjects(ctx)
	if err != nil {
		log.Warn("project vocabulary unavailable", zap.Error(err))
	}

	classifier := classifyuc.New(classifyuc.Config{
		Departments: cfg.departments,
		Projects:    projects,
	})
	extractor := extractuc.New()
	formatter := answeruc.New(completer, cfg.tokenBudget)
	sink := auditrepo.New(store, log)

	router := routeruc.New(
		classifier, extractor, repo, formatter, cache, auditAdapter{sink: sink},
		routeruc.Config{
			MaxRows:       cfg.maxRows,
			ConfirmWindow: cfg.confirmWindow,
			SnapshotCap:   cfg.snapshotCap,
		},
	)
	if err := router.RefreshSnapshot(ctx); err != nil {
		log.Warn("fallback snapshot not warmed", zap.Error(err))
	}

	return &Client{store: store, repo: repo, router: router}, nil
}

// Close releases all resources.
func (c *Client) Close() {
	if c.store != nil {
		c.store.Close()
	}
}

// Ping checks database connectivity.
func (c *Client) Ping(ctx context.Context) error {
	if err := c.store.Ping(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// Query routes one natural-language question end to end.
func (c *Client) Query(ctx context.Context, text string, opts ...QueryOption) (Result, error) {
	qc := queryConfig{}
	for _, o := range opts {
		o(&qc)
	}
	mode := query.ModeFast
	if qc.deep {
		mode = query.ModeDeep
	}

	q, err := query.New(text, qc.sessionID, mode)
	if err != nil {
		return Result{}, err
	}
	resp, err := c.router.Process(ctx, q)
	if err != nil {
		return Result{}, err
	}
	return toResult(resp), nil
}

// Confirm resolves a pending confirmation by picking one of its candidates.
// The correlation ID must match the one on the confirmation result.
func (c *Client) Confirm(ctx context.Context, sessionID, correlationID, choice string) (Result, error) {
	resp, err := c.router.Confirm(ctx, sessionID, correlationID, choice)
	if err != nil {
		return Result{}, err
	}
	return toResult(resp), nil
}

// Upsert stores one finding in the index.
func (c *Client) Upsert(ctx context.Context, f Finding) error {
	if f.ID == "" {
		return errors.New("findex: finding id is required")
	}
	sev, err := filterset.ParseSeverity(f.Severity)
	if err != nil {
		return fmt.Errorf("findex: %w", err)
	}
	st, err := filterset.ParseStatus(f.Status)
	if err != nil {
		return fmt.Errorf("findex: %w", err)
	}
	rec := domfind.Reconstruct(
		f.ID, f.Title, f.Description, f.Department, f.Project,
		sev, st, f.ReportedAt,
	)
	if err := c.repo.Upsert(ctx, &rec); err != nil {
		return fmt.Errorf("findex: upsert: %w", err)
	}
	return nil
}

// RefreshSnapshot refills the in-memory fallback snapshot used for
// degraded keyword search when the store is down.
func (c *Client) RefreshSnapshot(ctx context.Context) error {
	return c.router.RefreshSnapshot(ctx)
}

// QueryOption configures a single Query call.
type QueryOption func(*queryConfig)

type queryConfig struct {
	sessionID string
	deep      bool
}

// WithSession ties the query to a session, enabling confirmation round-trips.
func WithSession(id string) QueryOption {
	return func(c *queryConfig) {
		c.sessionID = id
	}
}

// WithDeepThinking biases classification toward reasoning strategies.
func WithDeepThinking() QueryOption {
	return func(c *queryConfig) {
		c.deep = true
	}
}

// auditAdapter bridges the router audit contract onto the audit sink.
type auditAdapter struct {
	sink *auditrepo.Sink
}

func (a auditAdapter) Emit(ctx context.Context, e routeruc.AuditEntry) {
	a.sink.Emit(ctx, auditrepo.Record{
		SessionID: e.SessionID,
		QueryText: e.QueryText,
		Strategy:  e.Strategy,
		ElapsedMs: e.ElapsedMs,
		Degraded:  e.Degraded,
	})
}

// noopCompleter rejects completion calls (used when no LLM is configured).
type noopCompleter struct{}

func (noopCompleter) Complete(context.Context, string, string, int) (domain.CompletionResult, error) {
	return domain.CompletionResult{}, fmt.Errorf(
		"findex: llm not configured (use WithLLM): %w", domain.ErrLLMUnavailable,
	)
}

// noopCache disables response caching.
type noopCache struct{}

func (noopCache) Get(context.Context, string) (domanswer.Response, bool) {
	return domanswer.Response{}, false
}

func (noopCache) Put(context.Context, string, domanswer.Response) {}
