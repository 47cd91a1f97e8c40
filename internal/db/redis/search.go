package redis

import (
	"context"
	"fmt"
	"strconv"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/findex/internal/db"
)

// Search runs a predicate query via FT.SEARCH.
func (s *Store) Search(ctx context.Context, q *db.SearchQuery) (*db.SearchResult, error) {
	if q.IndexName == "" {
		return nil, fmt.Errorf("index name is required")
	}
	if q.Query == "" {
		return nil, fmt.Errorf("query is required")
	}

	args := []string{q.IndexName, q.Query}

	if len(q.ReturnFields) > 0 {
		args = append(args, "RETURN", strconv.Itoa(len(q.ReturnFields)))
		args = append(args, q.ReturnFields...)
	}

	if q.SortBy != "" {
		dir := "ASC"
		if q.SortDesc {
			dir = "DESC"
		}
		args = append(args, "SORTBY", q.SortBy, dir)
	}

	limit := q.Limit
	if limit <= 0 {
		limit = 10
	}
	args = append(args,
		"LIMIT", strconv.Itoa(q.Offset), strconv.Itoa(limit),
		"DIALECT", "2",
	)

	cmd := s.b().Arbitrary("FT.SEARCH").Args(args...).Build()
	raw, err := s.do(ctx, cmd).ToArray()
	if err != nil {
		return nil, &db.Error{Op: db.OpSearch, Err: err}
	}

	return parseSearchResult(raw)
}

// Aggregate runs a grouped aggregation via FT.AGGREGATE.
func (s *Store) Aggregate(ctx context.Context, q *db.AggregateQuery) ([]db.AggregateRow, error) {
	if q.IndexName == "" {
		return nil, fmt.Errorf("index name is required")
	}
	if len(q.GroupBy) == 0 {
		return nil, fmt.Errorf("at least one group-by field is required")
	}

	query := q.Query
	if query == "" {
		query = "*"
	}

	args := []string{q.IndexName, query, "GROUPBY", strconv.Itoa(len(q.GroupBy))}
	for _, f := range q.GroupBy {
		args = append(args, "@"+f)
	}

	reduce := q.Reduce
	if reduce == "" {
		reduce = db.ReduceCount
	}
	switch reduce {
	case db.ReduceCount:
		args = append(args, "REDUCE", "COUNT", "0", "AS", aggValueAlias)
	case db.ReduceSum, db.ReduceAvg, db.ReduceMin, db.ReduceMax:
		if q.ReduceArg == "" {
			return nil, fmt.Errorf("reducer %s requires a source field", reduce)
		}
		args = append(args, "REDUCE", string(reduce), "1", "@"+q.ReduceArg, "AS", aggValueAlias)
	default:
		return nil, fmt.Errorf("unknown reducer %q", reduce)
	}

	if q.Limit > 0 {
		args = append(args, "LIMIT", "0", strconv.Itoa(q.Limit))
	}
	args = append(args, "DIALECT", "2")

	cmd := s.b().Arbitrary("FT.AGGREGATE").Args(args...).Build()
	raw, err := s.do(ctx, cmd).ToArray()
	if err != nil {
		return nil, &db.Error{Op: db.OpAggregate, Err: err}
	}

	return parseAggregateResult(raw)
}

// Count returns record count via FT.SEARCH with LIMIT 0 0.
func (s *Store) Count(ctx context.Context, index, query string) (int, error) {
	cmd := s.b().Arbitrary("FT.SEARCH").Args(index, query, "LIMIT", "0", "0").Build()
	raw, err := s.do(ctx, cmd).ToArray()
	if err != nil {
		return 0, &db.Error{Op: db.OpSearch, Err: err}
	}
	if len(raw) == 0 {
		return 0, nil
	}
	total, err := raw[0].AsInt64()
	if err != nil {
		return 0, fmt.Errorf("parse count: %w", err)
	}
	return int(total), nil
}

// aggValueAlias names the reducer output column in FT.AGGREGATE rows.
const aggValueAlias = "__value"

// --- Result parsing ---

func parseSearchResult(raw []rueidis.RedisMessage) (*db.SearchResult, error) {
	if len(raw) == 0 {
		return &db.SearchResult{}, nil
	}

	total, err := raw[0].AsInt64()
	if err != nil {
		return nil, fmt.Errorf("parse total: %w", err)
	}
	if total == 0 {
		return &db.SearchResult{}, nil
	}

	entries := make([]db.SearchEntry, 0, total)
	// 2-stride: [total, key1, fields1, key2, fields2, ...]
	for i := 1; i+1 < len(raw); i += 2 {
		key, err := raw[i].ToString()
		if err != nil {
			continue
		}

		fields, err := raw[i+1].ToArray()
		if err != nil {
			continue
		}

		entries = append(entries, db.SearchEntry{
			Key:    key,
			Fields: parseFieldPairs(fields),
		})
	}

	return &db.SearchResult{Total: int(total), Entries: entries}, nil
}

func parseAggregateResult(raw []rueidis.RedisMessage) ([]db.AggregateRow, error) {
	if len(raw) == 0 {
		return nil, nil
	}

	// [total, row1, row2, ...] where each row is a flat field-value array
	rows := make([]db.AggregateRow, 0, len(raw)-1)
	for i := 1; i < len(raw); i++ {
		pairs, err := raw[i].ToArray()
		if err != nil {
			continue
		}
		fields := parseFieldPairs(pairs)

		row := db.AggregateRow{Keys: make(map[string]string, len(fields))}
		for k, v := range fields {
			if k == aggValueAlias {
				if f, err := strconv.ParseFloat(v, 64); err == nil {
					row.Value = f
				}
				continue
			}
			row.Keys[k] = v
		}
		rows = append(rows, row)
	}

	return rows, nil
}

func parseFieldPairs(pairs []rueidis.RedisMessage) map[string]string {
	fields := make(map[string]string, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		k, err := pairs[i].ToString()
		if err != nil {
			continue
		}
		v, err := pairs[i+1].ToString()
		if err != nil {
			continue
		}
		fields[k] = v
	}
	return fields
}
