package router

import (
	"context"

	"github.com/kailas-cloud/findex/internal/db"
	"github.com/kailas-cloud/findex/internal/domain/answer"
	domclassify "github.com/kailas-cloud/findex/internal/domain/classify"
	"github.com/kailas-cloud/findex/internal/domain/filterset"
	"github.com/kailas-cloud/findex/internal/domain/finding"
	"github.com/kailas-cloud/findex/internal/domain/query"
	"github.com/kailas-cloud/findex/internal/domain/strategy"
)

// Classifier maps a query onto a strategy with candidate filters.
type Classifier interface {
	Classify(q query.Query) (domclassify.Classification, error)
}

// Extractor validates candidate filters against the whitelist.
type Extractor interface {
	Validate(ctx context.Context, set filterset.Set) filterset.Set
	ShouldEscalate(set filterset.Set) bool
}

// FindingRepository defines the storage contract for findings.
type FindingRepository interface {
	Search(ctx context.Context, filters filterset.Set, offset, limit int) (
		[]finding.Finding, int, bool, error)
	Count(ctx context.Context, filters filterset.Set) (int, error)
	Aggregate(ctx context.Context, filters filterset.Set,
		groupBy string, reduce db.Reducer, reduceArg string) ([]db.AggregateRow, error)
	ListProjects(ctx context.Context) ([]string, error)
	Snapshot(ctx context.Context, cap int) ([]finding.Finding, error)
}

// Formatter renders execution results into responses.
type Formatter interface {
	FormatRows(rows []finding.Finding, meta answer.Metadata) answer.Response
	FormatAggregation(rows []db.AggregateRow, meta answer.Metadata) answer.Response
	Reason(ctx context.Context, q query.Query, rows []finding.Finding,
		meta answer.Metadata) (answer.Response, error)
}

// ResponseCache stores formatted responses best-effort.
type ResponseCache interface {
	Get(ctx context.Context, queryKey string) (answer.Response, bool)
	Put(ctx context.Context, queryKey string, resp answer.Response)
}

// AuditEntry is the trail record emitted for every processed query.
type AuditEntry struct {
	SessionID string
	QueryText string
	Strategy  strategy.Strategy
	ElapsedMs int64
	Degraded  bool
}

// Auditor records processed queries best-effort.
type Auditor interface {
	Emit(ctx context.Context, e AuditEntry)
}
