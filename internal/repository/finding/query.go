package finding

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/kailas-cloud/findex/internal/domain/filterset"
)

// buildQuery translates structured filters into RediSearch predicate syntax.
// Keywords are deliberately absent: they are matched client-side because the
// findings index carries only TAG and NUMERIC fields.
func buildQuery(f filterset.Set) string {
	var parts []string

	if d := f.Department(); d != "" {
		parts = append(parts, tagPredicate(fieldDepartment, d))
	}
	if p := f.Project(); p != "" {
		parts = append(parts, tagPredicate(fieldProject, p))
	}
	if sev := f.Severity(); sev != "" {
		parts = append(parts, tagPredicate(fieldSeverity, string(sev)))
	}
	if st := f.Status(); st != "" {
		parts = append(parts, tagPredicate(fieldStatus, string(st)))
	}
	if y := f.Year(); y != 0 {
		parts = append(parts, fmt.Sprintf("@%s:[%d %d]", fieldYear, y, y))
	}
	if dr := f.DateRange(); dr != nil {
		parts = append(parts, fmt.Sprintf("@%s:[%d %d]",
			fieldReportedAt, dr.From().Unix(), dr.To().Unix()))
	}

	if len(parts) == 0 {
		return "*"
	}
	return strings.Join(parts, " ")
}

func tagPredicate(field, value string) string {
	return "@" + field + ":{" + escapeTag(value) + "}"
}

// escapeTag backslash-escapes RediSearch TAG syntax characters so values
// like "Harbor Tower" or "in_progress" match literally.
func escapeTag(v string) string {
	var b strings.Builder
	b.Grow(len(v))
	for _, r := range v {
		if r > 127 || r == '_' ||
			(r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			continue
		}
		b.WriteByte('\\')
		b.WriteRune(r)
	}
	return b.String()
}

// matchesKeywords reports whether every keyword occurs as a case-insensitive
// substring somewhere in the finding's text fields.
func matchesKeywords(fields map[string]string, keywords []string) bool {
	haystack := strings.ToLower(strings.Join([]string{
		fields[fieldTitle],
		fields[fieldDescription],
		fields[fieldDepartment],
		fields[fieldProject],
	}, "\n"))
	for _, kw := range keywords {
		if !strings.Contains(haystack, strings.ToLower(kw)) {
			return false
		}
	}
	return true
}

func formatUnix(ts int64) string {
	return strconv.FormatInt(ts, 10)
}
