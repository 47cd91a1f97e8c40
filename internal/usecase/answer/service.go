package answer

import (
	"context"
	"fmt"
	"strings"

	"github.com/kailas-cloud/findex/internal/db"
	"github.com/kailas-cloud/findex/internal/domain"
	domanswer "github.com/kailas-cloud/findex/internal/domain/answer"
	"github.com/kailas-cloud/findex/internal/domain/finding"
	"github.com/kailas-cloud/findex/internal/domain/query"
)

const (
	// DefaultTokenBudget bounds the context attached to a reasoning prompt.
	DefaultTokenBudget = 10000

	// charsPerToken is the coarse estimate used for budgeting. It only has
	// to be conservative enough to keep prompts under provider limits.
	charsPerToken = 4

	systemPrompt = "You are an assistant answering questions about audit findings. " +
		"Base your answer strictly on the findings listed in the prompt. " +
		"When the findings are insufficient, say so instead of guessing."
)

// Service turns execution results into caller-facing responses. Structured
// results pass through; reasoning answers go through the completion provider
// with retrieved findings packed into the prompt under a token budget.
type Service struct {
	completer   domain.Completer
	tokenBudget int
}

// New creates a formatter. A non-positive budget selects the default.
func New(completer domain.Completer, tokenBudget int) *Service {
	if tokenBudget <= 0 {
		tokenBudget = DefaultTokenBudget
	}
	return &Service{completer: completer, tokenBudget: tokenBudget}
}

// FormatRows wraps lookup results.
func (s *Service) FormatRows(rows []finding.Finding, meta domanswer.Metadata) domanswer.Response {
	return domanswer.NewRows(rows, meta)
}

// FormatAggregation converts store aggregation rows into response buckets.
func (s *Service) FormatAggregation(rows []db.AggregateRow, meta domanswer.Metadata) domanswer.Response {
	buckets := make([]domanswer.Bucket, 0, len(rows))
	for _, row := range rows {
		buckets = append(buckets, domanswer.NewBucket(row.Keys, row.Value))
	}
	return domanswer.NewAggregation(buckets, meta)
}

// Reason produces a natural-language answer over the retrieved findings.
// Rows are expected newest first; when the context budget is exceeded the
// oldest rows are dropped and the prompt says how many were omitted.
func (s *Service) Reason(
	ctx context.Context, q query.Query, rows []finding.Finding, meta domanswer.Metadata,
) (domanswer.Response, error) {
	contextText, included := s.buildContext(rows)
	prompt := buildPrompt(q.Text(), contextText, len(rows)-included)

	result, err := s.completer.Complete(ctx, systemPrompt, prompt, 0)
	if err != nil {
		return domanswer.Response{}, fmt.Errorf("reason over %d findings: %w", included, err)
	}

	meta.TokensUsed = result.TotalTokens
	return domanswer.NewText(result.Text, rows[:included], meta), nil
}

// buildContext renders findings into prompt lines until the budget runs
// out. Returns the rendered text and how many rows made it in.
func (s *Service) buildContext(rows []finding.Finding) (string, int) {
	budget := s.tokenBudget * charsPerToken
	var b strings.Builder
	included := 0
	for i := range rows {
		line := renderFinding(&rows[i])
		if b.Len()+len(line) > budget {
			break
		}
		b.WriteString(line)
		included++
	}
	return b.String(), included
}

func renderFinding(f *finding.Finding) string {
	var b strings.Builder
	b.WriteString("- [")
	b.WriteString(f.ID())
	b.WriteString("] ")
	if y := f.Year(); y > 0 {
		fmt.Fprintf(&b, "%d ", y)
	}
	if d := f.Department(); d != "" {
		b.WriteString(d)
		b.WriteString(" ")
	}
	if p := f.Project(); p != "" {
		b.WriteString("(")
		b.WriteString(p)
		b.WriteString(") ")
	}
	if sev := f.Severity(); sev != "" {
		b.WriteString(string(sev))
		b.WriteString("/")
	}
	if st := f.Status(); st != "" {
		b.WriteString(string(st))
	}
	b.WriteString(": ")
	b.WriteString(f.Title())
	if desc := f.Description(); desc != "" {
		b.WriteString(". ")
		b.WriteString(desc)
	}
	b.WriteString("\n")
	return b.String()
}

func buildPrompt(question, contextText string, omitted int) string {
	var b strings.Builder
	b.WriteString("Question: ")
	b.WriteString(question)
	b.WriteString("\n\n")
	if contextText == "" {
		b.WriteString("No findings matched the question.\n")
	} else {
		b.WriteString("Findings (newest first):\n")
		b.WriteString(contextText)
	}
	if omitted > 0 {
		fmt.Fprintf(&b, "\n(%d older findings omitted for brevity)\n", omitted)
	}
	return b.String()
}
