package finding

import (
	"context"
	"fmt"
	"sort"

	"github.com/kailas-cloud/findex/internal/db"
	"github.com/kailas-cloud/findex/internal/domain/filterset"
	domfind "github.com/kailas-cloud/findex/internal/domain/finding"
)

const (
	// IndexName is the findings FT index.
	IndexName = "idx:findings"
	keyPrefix = "finding:"

	// keywordScanCap bounds the structured pre-fetch when keywords force
	// client-side matching.
	keywordScanCap = 1000
)

// store is the consumer interface for findings (ISP).
type store interface {
	HSet(ctx context.Context, key string, fields map[string]string) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	Scan(ctx context.Context, pattern string) ([]string, error)
	Search(ctx context.Context, q *db.SearchQuery) (*db.SearchResult, error)
	Aggregate(ctx context.Context, q *db.AggregateQuery) ([]db.AggregateRow, error)
	Count(ctx context.Context, index, query string) (int, error)
	CreateIndex(ctx context.Context, def *db.IndexDefinition) error
	IndexExists(ctx context.Context, name string) (bool, error)
}

// Repo implements usecase router's finding repository over the FT index.
type Repo struct {
	store store
}

// New creates a finding repository.
func New(s store) *Repo {
	return &Repo{store: s}
}

// EnsureIndex creates the findings index if it does not exist yet.
// The schema carries only TAG and NUMERIC fields; free text is matched
// client-side.
func (r *Repo) EnsureIndex(ctx context.Context) error {
	exists, err := r.store.IndexExists(ctx, IndexName)
	if err != nil {
		return fmt.Errorf("check index %s: %w", IndexName, err)
	}
	if exists {
		return nil
	}
	def := db.NewIndex(IndexName).
		Prefix(keyPrefix).
		Tag(fieldDepartment).
		Tag(fieldProject).
		Tag(fieldSeverity).
		Tag(fieldStatus).
		Numeric(fieldYear).
		Numeric(fieldReportedAt).
		Build()
	if err := r.store.CreateIndex(ctx, def); err != nil {
		return fmt.Errorf("create index %s: %w", IndexName, err)
	}
	return nil
}

// Upsert writes a finding record. The query core itself never calls this;
// it exists for ingest tooling and tests sharing the store.
func (r *Repo) Upsert(ctx context.Context, f *domfind.Finding) error {
	key := keyPrefix + f.ID()
	if err := r.store.HSet(ctx, key, buildHashFields(f)); err != nil {
		return fmt.Errorf("hset %s: %w", key, err)
	}
	return nil
}

// Search returns findings matching the filter set, newest first, plus the
// total match count and whether the keyword slow path was taken.
//
// Structured fields translate to index predicates. Keywords cannot: the
// index has no full-text field, so when keywords are present the structured
// matches are fetched up to keywordScanCap and filtered by substring here.
func (r *Repo) Search(ctx context.Context, filters filterset.Set, offset, limit int) (
	[]domfind.Finding, int, bool, error,
) {
	if limit <= 0 {
		limit = 20
	}
	query := buildQuery(filters)
	keywords := filters.Keywords()

	if len(keywords) == 0 {
		result, err := r.search(ctx, query, offset, limit)
		if err != nil {
			return nil, 0, false, err
		}
		findings := make([]domfind.Finding, 0, len(result.Entries))
		for _, entry := range result.Entries {
			findings = append(findings, parseHashFields(findingID(entry.Key), entry.Fields))
		}
		return findings, result.Total, false, nil
	}

	// Keyword slow path.
	result, err := r.search(ctx, query, 0, keywordScanCap)
	if err != nil {
		return nil, 0, true, err
	}
	matched := make([]domfind.Finding, 0, limit)
	total := 0
	for _, entry := range result.Entries {
		if !matchesKeywords(entry.Fields, keywords) {
			continue
		}
		total++
		if total > offset && len(matched) < limit {
			matched = append(matched, parseHashFields(findingID(entry.Key), entry.Fields))
		}
	}
	return matched, total, true, nil
}

func (r *Repo) search(ctx context.Context, query string, offset, limit int) (*db.SearchResult, error) {
	result, err := r.store.Search(ctx, &db.SearchQuery{
		IndexName: IndexName,
		Query:     query,
		Offset:    offset,
		Limit:     limit,
		SortBy:    fieldReportedAt,
		SortDesc:  true,
	})
	if err != nil {
		return nil, fmt.Errorf("search findings: %w", err)
	}
	return result, nil
}

// Count returns the number of findings matching the structured filters.
// Keyword filters fall back to Search because counting needs the rows.
func (r *Repo) Count(ctx context.Context, filters filterset.Set) (int, error) {
	if len(filters.Keywords()) > 0 {
		_, total, _, err := r.Search(ctx, filters, 0, 1)
		return total, err
	}
	n, err := r.store.Count(ctx, IndexName, buildQuery(filters))
	if err != nil {
		return 0, fmt.Errorf("count findings: %w", err)
	}
	return n, nil
}

// Aggregate groups structured matches by a field and reduces each group.
func (r *Repo) Aggregate(
	ctx context.Context, filters filterset.Set,
	groupBy string, reduce db.Reducer, reduceArg string,
) ([]db.AggregateRow, error) {
	rows, err := r.store.Aggregate(ctx, &db.AggregateQuery{
		IndexName: IndexName,
		Query:     buildQuery(filters),
		GroupBy:   []string{groupBy},
		Reduce:    reduce,
		ReduceArg: reduceArg,
	})
	if err != nil {
		return nil, fmt.Errorf("aggregate findings by %s: %w", groupBy, err)
	}
	return rows, nil
}

// ListProjects returns the distinct canonical project names, sorted.
// Used for entity disambiguation against user-supplied project names.
func (r *Repo) ListProjects(ctx context.Context) ([]string, error) {
	rows, err := r.store.Aggregate(ctx, &db.AggregateQuery{
		IndexName: IndexName,
		Query:     "*",
		GroupBy:   []string{fieldProject},
		Reduce:    db.ReduceCount,
	})
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	projects := make([]string, 0, len(rows))
	for _, row := range rows {
		if p := row.Keys[fieldProject]; p != "" {
			projects = append(projects, p)
		}
	}
	sort.Strings(projects)
	return projects, nil
}

// Snapshot loads up to cap findings by key scan, bypassing the index.
// This is the degraded-mode data source when search is unavailable.
func (r *Repo) Snapshot(ctx context.Context, cap int) ([]domfind.Finding, error) {
	keys, err := r.store.Scan(ctx, keyPrefix+"*")
	if err != nil {
		return nil, fmt.Errorf("scan findings: %w", err)
	}
	if cap > 0 && len(keys) > cap {
		keys = keys[:cap]
	}
	findings := make([]domfind.Finding, 0, len(keys))
	for _, key := range keys {
		fields, err := r.store.HGetAll(ctx, key)
		if err != nil {
			return nil, fmt.Errorf("hgetall %s: %w", key, err)
		}
		if len(fields) == 0 {
			continue
		}
		findings = append(findings, parseHashFields(findingID(key), fields))
	}
	return findings, nil
}
