package db

// SearchQuery is the input for a predicate search via FT.SEARCH.
// Query uses RediSearch syntax built from equality/range predicates
// (see the finding repository for the translation from filter sets).
type SearchQuery struct {
	IndexName    string
	Query        string
	Offset       int
	Limit        int
	ReturnFields []string
	SortBy       string
	SortDesc     bool
}

// Reducer is an aggregation function for FT.AGGREGATE GROUPBY.
type Reducer string

// Reducer constants.
const (
	ReduceCount Reducer = "COUNT"
	ReduceSum   Reducer = "SUM"
	ReduceAvg   Reducer = "AVG"
	ReduceMin   Reducer = "MIN"
	ReduceMax   Reducer = "MAX"
)

// AggregateQuery is the input for a grouped aggregation via FT.AGGREGATE.
type AggregateQuery struct {
	IndexName string
	Query     string
	GroupBy   []string
	Reduce    Reducer
	ReduceArg string // source field for SUM/AVG/MIN/MAX; ignored for COUNT
	Limit     int
}

// AggregateRow is one group from an FT.AGGREGATE result.
type AggregateRow struct {
	Keys  map[string]string
	Value float64
}

// SearchResult is the output of a search operation.
type SearchResult struct {
	Total   int
	Entries []SearchEntry
}

// SearchEntry is a single record hit from a search.
type SearchEntry struct {
	Key    string
	Fields map[string]string
}
