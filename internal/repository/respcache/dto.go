package respcache

import (
	"time"

	"github.com/kailas-cloud/findex/internal/domain/answer"
	"github.com/kailas-cloud/findex/internal/domain/filterset"
	"github.com/kailas-cloud/findex/internal/domain/finding"
	"github.com/kailas-cloud/findex/internal/domain/strategy"
)

// envelope is the stored cache record. StoredAt and TTLSec duplicate the
// store-level expiry so stale entries are rejected on read even when the
// store's own TTL did not fire.
type envelope struct {
	StoredAt int64       `json:"stored_at"`
	TTLSec   int         `json:"ttl_sec"`
	Response responseDTO `json:"response"`
}

type responseDTO struct {
	Kind    string      `json:"kind"`
	Rows    []rowDTO    `json:"rows,omitempty"`
	Buckets []bucketDTO `json:"buckets,omitempty"`
	Text    string      `json:"text,omitempty"`
	Meta    metaDTO     `json:"meta"`
}

type rowDTO struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Department  string `json:"department,omitempty"`
	Project     string `json:"project,omitempty"`
	Severity    string `json:"severity,omitempty"`
	Status      string `json:"status,omitempty"`
	ReportedAt  int64  `json:"reported_at,omitempty"`
}

type bucketDTO struct {
	Keys  map[string]string `json:"keys"`
	Value float64           `json:"value"`
}

type metaDTO struct {
	Strategy        string  `json:"strategy"`
	ElapsedMs       int64   `json:"elapsed_ms"`
	RecordsExamined int     `json:"records_examined"`
	TokensUsed      int     `json:"tokens_used"`
	Confidence      float64 `json:"confidence"`
	SlowPath        bool    `json:"slow_path"`
}

func toEnvelope(resp answer.Response, storedAt time.Time, ttl time.Duration) envelope {
	dto := responseDTO{
		Kind: string(resp.Kind()),
		Text: resp.Text(),
		Meta: metaDTO{
			Strategy:        string(resp.Meta().Strategy),
			ElapsedMs:       resp.Meta().ElapsedMs,
			RecordsExamined: resp.Meta().RecordsExamined,
			TokensUsed:      resp.Meta().TokensUsed,
			Confidence:      resp.Meta().Confidence,
			SlowPath:        resp.Meta().SlowPath,
		},
	}
	for _, row := range resp.Rows() {
		dto.Rows = append(dto.Rows, rowDTO{
			ID:          row.ID(),
			Title:       row.Title(),
			Description: row.Description(),
			Department:  row.Department(),
			Project:     row.Project(),
			Severity:    string(row.Severity()),
			Status:      string(row.Status()),
			ReportedAt:  row.ReportedAt().Unix(),
		})
	}
	for _, b := range resp.Buckets() {
		dto.Buckets = append(dto.Buckets, bucketDTO{Keys: b.Keys(), Value: b.Value()})
	}
	return envelope{
		StoredAt: storedAt.Unix(),
		TTLSec:   int(ttl / time.Second),
		Response: dto,
	}
}

func fromEnvelope(env envelope) answer.Response {
	meta := answer.Metadata{
		Strategy:        strategy.Strategy(env.Response.Meta.Strategy),
		ElapsedMs:       env.Response.Meta.ElapsedMs,
		RecordsExamined: env.Response.Meta.RecordsExamined,
		TokensUsed:      env.Response.Meta.TokensUsed,
		Confidence:      env.Response.Meta.Confidence,
		SlowPath:        env.Response.Meta.SlowPath,
		Cached:          true,
	}
	rows := make([]finding.Finding, 0, len(env.Response.Rows))
	for _, r := range env.Response.Rows {
		rows = append(rows, finding.Reconstruct(
			r.ID, r.Title, r.Description, r.Department, r.Project,
			filterset.Severity(r.Severity), filterset.Status(r.Status),
			time.Unix(r.ReportedAt, 0).UTC(),
		))
	}

	switch answer.Kind(env.Response.Kind) {
	case answer.KindAggregation:
		buckets := make([]answer.Bucket, 0, len(env.Response.Buckets))
		for _, b := range env.Response.Buckets {
			buckets = append(buckets, answer.NewBucket(b.Keys, b.Value))
		}
		return answer.NewAggregation(buckets, meta)
	case answer.KindText:
		return answer.NewText(env.Response.Text, rows, meta)
	default:
		return answer.NewRows(rows, meta)
	}
}
