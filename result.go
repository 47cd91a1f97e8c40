package findex

import (
	"time"

	"github.com/kailas-cloud/findex/internal/domain/answer"
)

// Kind is the result payload shape.
type Kind string

// Result kind constants.
const (
	KindRows         Kind = "rows"
	KindAggregation  Kind = "aggregation"
	KindText         Kind = "text"
	KindConfirmation Kind = "confirmation"
)

// Finding is an audit finding row.
type Finding struct {
	ID          string
	Title       string
	Description string
	Department  string
	Project     string
	Severity    string
	Status      string
	ReportedAt  time.Time
}

// Bucket is one group in an aggregation result.
type Bucket struct {
	Keys  map[string]string
	Value float64
}

// Candidate is a scored canonical value proposed for an ambiguous name.
type Candidate struct {
	Value string
	Score float64
}

// Meta describes how a result was produced.
type Meta struct {
	Strategy        string
	ElapsedMs       int64
	RecordsExamined int
	TokensUsed      int
	Confidence      float64
	Cached          bool
	Degraded        bool
	SlowPath        bool
}

// Result is the answer to one query.
//
// Kind selects the populated payload: Rows for row lists (and the context
// behind Text answers), Buckets for aggregations, Text for natural-language
// answers, Candidates plus CorrelationID for confirmation round-trips.
type Result struct {
	Kind          Kind
	Rows          []Finding
	Buckets       []Bucket
	Text          string
	Candidates    []Candidate
	CorrelationID string
	Meta          Meta
}

func toResult(resp answer.Response) Result {
	meta := resp.Meta()
	out := Result{
		Kind:          Kind(resp.Kind()),
		Text:          resp.Text(),
		CorrelationID: resp.CorrelationID(),
		Meta: Meta{
			Strategy:        string(meta.Strategy),
			ElapsedMs:       meta.ElapsedMs,
			RecordsExamined: meta.RecordsExamined,
			TokensUsed:      meta.TokensUsed,
			Confidence:      meta.Confidence,
			Cached:          meta.Cached,
			Degraded:        meta.Degraded,
			SlowPath:        meta.SlowPath,
		},
	}
	for _, f := range resp.Rows() {
		out.Rows = append(out.Rows, Finding{
			ID:          f.ID(),
			Title:       f.Title(),
			Description: f.Description(),
			Department:  f.Department(),
			Project:     f.Project(),
			Severity:    string(f.Severity()),
			Status:      string(f.Status()),
			ReportedAt:  f.ReportedAt(),
		})
	}
	for _, b := range resp.Buckets() {
		out.Buckets = append(out.Buckets, Bucket{Keys: b.Keys(), Value: b.Value()})
	}
	for _, c := range resp.Candidates() {
		out.Candidates = append(out.Candidates, Candidate{Value: c.Value(), Score: c.Score()})
	}
	return out
}
