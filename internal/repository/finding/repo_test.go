package finding

import (
	"context"
	"testing"
	"time"

	"github.com/kailas-cloud/findex/internal/db"
	"github.com/kailas-cloud/findex/internal/domain/filterset"
)

type fakeStore struct {
	searchQuery  *db.SearchQuery
	searchResult *db.SearchResult
	searchErr    error

	aggQuery *db.AggregateQuery
	aggRows  []db.AggregateRow

	countQuery string
	countN     int

	indexExists bool
	createdDef  *db.IndexDefinition

	scanKeys []string
	hashes   map[string]map[string]string
	hsets    map[string]map[string]string
}

func (f *fakeStore) HSet(_ context.Context, key string, fields map[string]string) error {
	if f.hsets == nil {
		f.hsets = map[string]map[string]string{}
	}
	f.hsets[key] = fields
	return nil
}

func (f *fakeStore) HGetAll(_ context.Context, key string) (map[string]string, error) {
	return f.hashes[key], nil
}

func (f *fakeStore) Scan(_ context.Context, _ string) ([]string, error) {
	return f.scanKeys, nil
}

func (f *fakeStore) Search(_ context.Context, q *db.SearchQuery) (*db.SearchResult, error) {
	f.searchQuery = q
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	if f.searchResult != nil {
		return f.searchResult, nil
	}
	return &db.SearchResult{}, nil
}

func (f *fakeStore) Aggregate(_ context.Context, q *db.AggregateQuery) ([]db.AggregateRow, error) {
	f.aggQuery = q
	return f.aggRows, nil
}

func (f *fakeStore) Count(_ context.Context, _ string, query string) (int, error) {
	f.countQuery = query
	return f.countN, nil
}

func (f *fakeStore) CreateIndex(_ context.Context, def *db.IndexDefinition) error {
	f.createdDef = def
	return nil
}

func (f *fakeStore) IndexExists(_ context.Context, _ string) (bool, error) {
	return f.indexExists, nil
}

func mustFilters(t *testing.T, build func(*filterset.Builder) *filterset.Builder) filterset.Set {
	t.Helper()
	set, err := build(filterset.NewBuilder()).Build()
	if err != nil {
		t.Fatalf("build filters: %v", err)
	}
	return set
}

func TestBuildQuery(t *testing.T) {
	tests := []struct {
		name  string
		build func(*filterset.Builder) *filterset.Builder
		want  string
	}{
		{
			"empty is match-all",
			func(b *filterset.Builder) *filterset.Builder { return b },
			"*",
		},
		{
			"department tag",
			func(b *filterset.Builder) *filterset.Builder { return b.Department("IT") },
			"@department:{IT}",
		},
		{
			"project with space escaped",
			func(b *filterset.Builder) *filterset.Builder { return b.Project("Harbor Tower") },
			`@project:{Harbor\ Tower}`,
		},
		{
			"year range",
			func(b *filterset.Builder) *filterset.Builder { return b.Year(2024) },
			"@year:[2024 2024]",
		},
		{
			"combined predicates",
			func(b *filterset.Builder) *filterset.Builder {
				return b.Department("IT").Severity("high").Status("open").Year(2024)
			},
			"@department:{IT} @severity:{high} @status:{open} @year:[2024 2024]",
		},
		{
			"keywords never reach the index",
			func(b *filterset.Builder) *filterset.Builder {
				return b.Department("IT").Keywords("fire", "alarm")
			},
			"@department:{IT}",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := buildQuery(mustFilters(t, tt.build))
			if got != tt.want {
				t.Errorf("buildQuery = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestBuildQueryDateRange(t *testing.T) {
	from := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2023, 12, 31, 23, 59, 59, 0, time.UTC)
	set := mustFilters(t, func(b *filterset.Builder) *filterset.Builder {
		return b.DateRange(from, to)
	})
	want := "@reported_at:[1672531200 1704067199]"
	if got := buildQuery(set); got != want {
		t.Errorf("buildQuery = %q, want %q", got, want)
	}
}

func TestSearchStructuredPath(t *testing.T) {
	fs := &fakeStore{searchResult: &db.SearchResult{
		Total: 2,
		Entries: []db.SearchEntry{
			{Key: "finding:f1", Fields: map[string]string{
				"title": "Fire door blocked", "department": "Safety",
				"severity": "high", "status": "open", "reported_at": "1704067200",
			}},
			{Key: "finding:f2", Fields: map[string]string{
				"title": "Expired extinguisher", "department": "Safety",
				"severity": "medium", "status": "closed", "reported_at": "1706745600",
			}},
		},
	}}
	repo := New(fs)

	filters := mustFilters(t, func(b *filterset.Builder) *filterset.Builder {
		return b.Department("Safety")
	})
	findings, total, slow, err := repo.Search(context.Background(), filters, 0, 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if slow {
		t.Error("structured search must not take the slow path")
	}
	if total != 2 || len(findings) != 2 {
		t.Fatalf("total = %d, rows = %d", total, len(findings))
	}
	if findings[0].ID() != "f1" || findings[0].Title() != "Fire door blocked" {
		t.Errorf("unexpected first row: %s %q", findings[0].ID(), findings[0].Title())
	}
	if fs.searchQuery.Query != "@department:{Safety}" {
		t.Errorf("query = %q", fs.searchQuery.Query)
	}
	if fs.searchQuery.SortBy != "reported_at" || !fs.searchQuery.SortDesc {
		t.Error("expected newest-first sort")
	}
}

func TestSearchKeywordSlowPath(t *testing.T) {
	fs := &fakeStore{searchResult: &db.SearchResult{
		Total: 3,
		Entries: []db.SearchEntry{
			{Key: "finding:f1", Fields: map[string]string{
				"title": "APAR fire panel fault", "description": "panel offline",
			}},
			{Key: "finding:f2", Fields: map[string]string{
				"title": "Parking lot lighting", "description": "lamp out",
			}},
			{Key: "finding:f3", Fields: map[string]string{
				"title": "Kitchen inspection", "description": "fire suppression nozzle clogged",
			}},
		},
	}}
	repo := New(fs)

	filters := mustFilters(t, func(b *filterset.Builder) *filterset.Builder {
		return b.Keywords("fire")
	})
	findings, total, slow, err := repo.Search(context.Background(), filters, 0, 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if !slow {
		t.Error("keyword search must report the slow path")
	}
	if total != 2 {
		t.Errorf("total = %d, want 2", total)
	}
	if len(findings) != 2 || findings[0].ID() != "f1" || findings[1].ID() != "f3" {
		t.Errorf("unexpected rows: %v", findings)
	}
	if fs.searchQuery.Limit != keywordScanCap {
		t.Errorf("pre-fetch limit = %d, want %d", fs.searchQuery.Limit, keywordScanCap)
	}
}

func TestSearchKeywordSlowPathPagination(t *testing.T) {
	fs := &fakeStore{searchResult: &db.SearchResult{
		Total: 3,
		Entries: []db.SearchEntry{
			{Key: "finding:f1", Fields: map[string]string{"title": "fire one"}},
			{Key: "finding:f2", Fields: map[string]string{"title": "fire two"}},
			{Key: "finding:f3", Fields: map[string]string{"title": "fire three"}},
		},
	}}
	repo := New(fs)

	filters := mustFilters(t, func(b *filterset.Builder) *filterset.Builder {
		return b.Keywords("fire")
	})
	findings, total, _, err := repo.Search(context.Background(), filters, 1, 1)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if total != 3 {
		t.Errorf("total = %d, want 3", total)
	}
	if len(findings) != 1 || findings[0].ID() != "f2" {
		t.Errorf("page = %v, want [f2]", findings)
	}
}

func TestCountDelegatesForKeywords(t *testing.T) {
	fs := &fakeStore{
		countN: 7,
		searchResult: &db.SearchResult{Entries: []db.SearchEntry{
			{Key: "finding:f1", Fields: map[string]string{"title": "fire"}},
		}},
	}
	repo := New(fs)

	structured := mustFilters(t, func(b *filterset.Builder) *filterset.Builder {
		return b.Department("IT")
	})
	n, err := repo.Count(context.Background(), structured)
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if n != 7 {
		t.Errorf("count = %d, want 7", n)
	}
	if fs.countQuery != "@department:{IT}" {
		t.Errorf("count query = %q", fs.countQuery)
	}

	withKeywords := mustFilters(t, func(b *filterset.Builder) *filterset.Builder {
		return b.Keywords("fire")
	})
	n, err = repo.Count(context.Background(), withKeywords)
	if err != nil {
		t.Fatalf("Count keywords: %v", err)
	}
	if n != 1 {
		t.Errorf("keyword count = %d, want 1", n)
	}
}

func TestAggregate(t *testing.T) {
	fs := &fakeStore{aggRows: []db.AggregateRow{
		{Keys: map[string]string{"department": "IT"}, Value: 12},
		{Keys: map[string]string{"department": "HR"}, Value: 5},
	}}
	repo := New(fs)

	rows, err := repo.Aggregate(context.Background(), filterset.Set{},
		"department", db.ReduceCount, "")
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	if len(rows) != 2 || rows[0].Value != 12 {
		t.Errorf("rows = %v", rows)
	}
	if fs.aggQuery.Query != "*" || fs.aggQuery.GroupBy[0] != "department" {
		t.Errorf("aggregate query = %+v", fs.aggQuery)
	}
}

func TestListProjects(t *testing.T) {
	fs := &fakeStore{aggRows: []db.AggregateRow{
		{Keys: map[string]string{"project": "Harbor Tower"}, Value: 3},
		{Keys: map[string]string{"project": ""}, Value: 1},
		{Keys: map[string]string{"project": "Grand Pacific Hotel"}, Value: 9},
	}}
	repo := New(fs)

	projects, err := repo.ListProjects(context.Background())
	if err != nil {
		t.Fatalf("ListProjects: %v", err)
	}
	if len(projects) != 2 || projects[0] != "Grand Pacific Hotel" || projects[1] != "Harbor Tower" {
		t.Errorf("projects = %v", projects)
	}
}

func TestSnapshotCaps(t *testing.T) {
	fs := &fakeStore{
		scanKeys: []string{"finding:f1", "finding:f2", "finding:f3"},
		hashes: map[string]map[string]string{
			"finding:f1": {"title": "one", "year": "2023"},
			"finding:f2": {"title": "two", "year": "2024"},
			"finding:f3": {"title": "three", "year": "2024"},
		},
	}
	repo := New(fs)

	findings, err := repo.Snapshot(context.Background(), 2)
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if len(findings) != 2 {
		t.Fatalf("rows = %d, want 2", len(findings))
	}
	if findings[0].ID() != "f1" || findings[0].Year() != 2023 {
		t.Errorf("unexpected first row %s year %d", findings[0].ID(), findings[0].Year())
	}
}

func TestEnsureIndexCreatesOnce(t *testing.T) {
	fs := &fakeStore{}
	repo := New(fs)

	if err := repo.EnsureIndex(context.Background()); err != nil {
		t.Fatalf("EnsureIndex: %v", err)
	}
	if fs.createdDef == nil {
		t.Fatal("expected index creation")
	}
	if fs.createdDef.Name != IndexName {
		t.Errorf("index name = %q", fs.createdDef.Name)
	}

	fs2 := &fakeStore{indexExists: true}
	repo2 := New(fs2)
	if err := repo2.EnsureIndex(context.Background()); err != nil {
		t.Fatalf("EnsureIndex existing: %v", err)
	}
	if fs2.createdDef != nil {
		t.Error("index must not be recreated")
	}
}
