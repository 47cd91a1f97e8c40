package finding

import (
	"time"

	"github.com/kailas-cloud/findex/internal/domain/filterset"
)

// Finding is an audit finding record (read-only view over the store).
// The core never mutates findings; records are hydrated via Reconstruct.
type Finding struct {
	id          string
	title       string
	description string
	department  string
	project     string
	severity    filterset.Severity
	status      filterset.Status
	reportedAt  time.Time
}

// Reconstruct creates a Finding from stored fields without validation.
func Reconstruct(
	id, title, description, department, project string,
	severity filterset.Severity, status filterset.Status,
	reportedAt time.Time,
) Finding {
	return Finding{
		id:          id,
		title:       title,
		description: description,
		department:  department,
		project:     project,
		severity:    severity,
		status:      status,
		reportedAt:  reportedAt,
	}
}

// ID returns the finding identifier.
func (f *Finding) ID() string { return f.id }

// Title returns the finding title.
func (f *Finding) Title() string { return f.title }

// Description returns the finding description.
func (f *Finding) Description() string { return f.description }

// Department returns the owning department.
func (f *Finding) Department() string { return f.department }

// Project returns the project or site name.
func (f *Finding) Project() string { return f.project }

// Severity returns the severity level.
func (f *Finding) Severity() filterset.Severity { return f.severity }

// Status returns the lifecycle state.
func (f *Finding) Status() filterset.Status { return f.status }

// ReportedAt returns when the finding was reported.
func (f *Finding) ReportedAt() time.Time { return f.reportedAt }

// Year returns the reporting year.
func (f *Finding) Year() int { return f.reportedAt.Year() }
