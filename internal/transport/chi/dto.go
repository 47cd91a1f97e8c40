package chi

import (
	"time"

	"github.com/kailas-cloud/findex/internal/domain/answer"
	"github.com/kailas-cloud/findex/internal/domain/finding"
)

type queryRequest struct {
	Query     string `json:"query"`
	SessionID string `json:"session_id"`
	Mode      string `json:"mode,omitempty"`
}

type confirmRequest struct {
	SessionID     string `json:"session_id"`
	CorrelationID string `json:"correlation_id"`
	Choice        string `json:"choice"`
}

type queryResponse struct {
	Kind          string         `json:"kind"`
	Rows          []findingDTO   `json:"rows,omitempty"`
	Buckets       []bucketDTO    `json:"buckets,omitempty"`
	Text          string         `json:"text,omitempty"`
	Candidates    []candidateDTO `json:"candidates,omitempty"`
	CorrelationID string         `json:"correlation_id,omitempty"`
	Meta          metaDTO        `json:"meta"`
}

type findingDTO struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Department  string `json:"department,omitempty"`
	Project     string `json:"project,omitempty"`
	Severity    string `json:"severity,omitempty"`
	Status      string `json:"status,omitempty"`
	ReportedAt  string `json:"reported_at,omitempty"`
}

type bucketDTO struct {
	Keys  map[string]string `json:"keys"`
	Value float64           `json:"value"`
}

type candidateDTO struct {
	Value string  `json:"value"`
	Score float64 `json:"score"`
}

type metaDTO struct {
	Strategy        string  `json:"strategy"`
	ElapsedMs       int64   `json:"elapsed_ms"`
	RecordsExamined int     `json:"records_examined"`
	TokensUsed      int     `json:"tokens_used,omitempty"`
	Confidence      float64 `json:"confidence"`
	Cached          bool    `json:"cached,omitempty"`
	Degraded        bool    `json:"degraded,omitempty"`
	SlowPath        bool    `json:"slow_path,omitempty"`
}

// Fallback is never null on the wire: degraded responses carry best-effort
// rows, every other error an empty array.
type errorBody struct {
	Code       string       `json:"code"`
	Message    string       `json:"message"`
	Suggestion string       `json:"suggestion,omitempty"`
	Fallback   []findingDTO `json:"fallback"`
}

func responseToDTO(resp answer.Response) queryResponse {
	meta := resp.Meta()
	out := queryResponse{
		Kind:          string(resp.Kind()),
		Text:          resp.Text(),
		CorrelationID: resp.CorrelationID(),
		Meta: metaDTO{
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
	out.Rows = findingsToDTO(resp.Rows())
	for _, b := range resp.Buckets() {
		out.Buckets = append(out.Buckets, bucketDTO{Keys: b.Keys(), Value: b.Value()})
	}
	for _, c := range resp.Candidates() {
		out.Candidates = append(out.Candidates, candidateDTO{Value: c.Value(), Score: c.Score()})
	}
	return out
}

func findingsToDTO(rows []finding.Finding) []findingDTO {
	out := make([]findingDTO, 0, len(rows))
	for i := range rows {
		f := &rows[i]
		dto := findingDTO{
			ID:          f.ID(),
			Title:       f.Title(),
			Description: f.Description(),
			Department:  f.Department(),
			Project:     f.Project(),
			Severity:    string(f.Severity()),
			Status:      string(f.Status()),
		}
		if !f.ReportedAt().IsZero() {
			dto.ReportedAt = f.ReportedAt().UTC().Format(time.RFC3339)
		}
		out = append(out, dto)
	}
	return out
}
