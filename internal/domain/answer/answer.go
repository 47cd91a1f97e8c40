package answer

import (
	"fmt"

	"github.com/kailas-cloud/findex/internal/domain/finding"
	"github.com/kailas-cloud/findex/internal/domain/match"
	"github.com/kailas-cloud/findex/internal/domain/strategy"
)

// Kind is the response payload shape.
type Kind string

// Response kind constants.
const (
	KindRows         Kind = "rows"
	KindAggregation  Kind = "aggregation"
	KindText         Kind = "text"
	KindConfirmation Kind = "confirmation"
)

// Metadata is the mandatory execution record attached to every response.
// Callers use it to distinguish a fast structured answer from an expensive
// reasoning answer.
type Metadata struct {
	Strategy        strategy.Strategy
	ElapsedMs       int64
	RecordsExamined int
	TokensUsed      int
	Confidence      float64
	Cached          bool
	Degraded        bool
	SlowPath        bool
}

// Bucket is one group in an aggregation result.
type Bucket struct {
	keys  map[string]string
	value float64
}

// NewBucket creates an aggregation bucket.
func NewBucket(keys map[string]string, value float64) Bucket {
	return Bucket{keys: keys, value: value}
}

// Keys returns the group-by field values.
func (b Bucket) Keys() map[string]string { return b.keys }

// Value returns the aggregated metric.
func (b Bucket) Value() float64 { return b.value }

// Response is the unit returned to the caller, optionally cached.
type Response struct {
	kind          Kind
	rows          []finding.Finding
	buckets       []Bucket
	text          string
	candidates    []match.Candidate
	correlationID string
	meta          Metadata
}

// NewRows creates a row-list response.
func NewRows(rows []finding.Finding, meta Metadata) Response {
	return Response{kind: KindRows, rows: rows, meta: meta}
}

// NewAggregation creates a grouped-aggregation response.
func NewAggregation(buckets []Bucket, meta Metadata) Response {
	return Response{kind: KindAggregation, buckets: buckets, meta: meta}
}

// NewText creates a natural-language response, typically LLM-backed.
// Rows carry the retrieved context that backed the answer.
func NewText(text string, rows []finding.Finding, meta Metadata) Response {
	return Response{kind: KindText, text: text, rows: rows, meta: meta}
}

// NewConfirmation creates a confirmation-needed response carrying ranked
// candidates. Execution is deferred until the caller picks one; the
// correlation ID ties the eventual pick back to this round-trip.
func NewConfirmation(correlationID string, candidates []match.Candidate, meta Metadata) Response {
	return Response{
		kind:          KindConfirmation,
		candidates:    candidates,
		correlationID: correlationID,
		meta:          meta,
	}
}

// Kind returns the payload shape.
func (r Response) Kind() Kind { return r.kind }

// Rows returns the finding rows (rows and text kinds).
func (r Response) Rows() []finding.Finding { return r.rows }

// Buckets returns the aggregation buckets (aggregation kind).
func (r Response) Buckets() []Bucket { return r.buckets }

// Text returns the natural-language answer (text kind).
func (r Response) Text() string { return r.text }

// Candidates returns the ranked disambiguation candidates (confirmation kind).
func (r Response) Candidates() []match.Candidate { return r.candidates }

// CorrelationID returns the confirmation round-trip identifier (confirmation kind).
func (r Response) CorrelationID() string { return r.correlationID }

// Meta returns the execution metadata.
func (r Response) Meta() Metadata { return r.meta }

// WithMeta returns a copy with the metadata replaced.
func (r Response) WithMeta(meta Metadata) Response {
	r.meta = meta
	return r
}

// Error codes for ErrorResponse.
const (
	CodeEmptyQuery = "empty_query"
	CodeDegraded   = "degraded"
	CodeInternal   = "internal"
)

// ErrorResponse is a user-visible failure carrying actionable text and, where
// possible, best-effort fallback rows - never a bare store or provider error.
type ErrorResponse struct {
	Code       string
	Message    string
	Suggestion string
	Fallback   []finding.Finding
}

func (e *ErrorResponse) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}
