package finding

import (
	"strconv"
	"strings"
	"time"

	domfind "github.com/kailas-cloud/findex/internal/domain/finding"
	"github.com/kailas-cloud/findex/internal/domain/filterset"
)

// Hash field names of a finding record.
const (
	fieldTitle       = "title"
	fieldDescription = "description"
	fieldDepartment  = "department"
	fieldProject     = "project"
	fieldSeverity    = "severity"
	fieldStatus      = "status"
	fieldYear        = "year"
	fieldReportedAt  = "reported_at"
)

// buildHashFields flattens a finding into the HSET map the index expects.
func buildHashFields(f *domfind.Finding) map[string]string {
	return map[string]string{
		fieldTitle:       f.Title(),
		fieldDescription: f.Description(),
		fieldDepartment:  f.Department(),
		fieldProject:     f.Project(),
		fieldSeverity:    string(f.Severity()),
		fieldStatus:      string(f.Status()),
		fieldYear:        strconv.Itoa(f.Year()),
		fieldReportedAt:  formatUnix(f.ReportedAt().Unix()),
	}
}

// parseHashFields hydrates a finding from a stored hash. Unparseable
// timestamps leave the zero time; records are returned as stored.
func parseHashFields(id string, m map[string]string) domfind.Finding {
	var reportedAt time.Time
	if raw := m[fieldReportedAt]; raw != "" {
		if ts, err := strconv.ParseInt(raw, 10, 64); err == nil {
			reportedAt = time.Unix(ts, 0).UTC()
		}
	}
	if reportedAt.IsZero() {
		if y, err := strconv.Atoi(m[fieldYear]); err == nil && y > 0 {
			reportedAt = time.Date(y, 1, 1, 0, 0, 0, 0, time.UTC)
		}
	}
	return domfind.Reconstruct(
		id,
		m[fieldTitle],
		m[fieldDescription],
		m[fieldDepartment],
		m[fieldProject],
		filterset.Severity(strings.ToLower(m[fieldSeverity])),
		filterset.Status(strings.ToLower(m[fieldStatus])),
		reportedAt,
	)
}

// findingID strips the key prefix.
func findingID(key string) string {
	return strings.TrimPrefix(key, keyPrefix)
}
