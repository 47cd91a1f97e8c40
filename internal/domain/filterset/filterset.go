package filterset

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Year bounds for plausible finding dates.
const (
	MinYear = 2000
	MaxYear = 2100
)

// MaxKeywords is the maximum number of free-text keywords per set.
const MaxKeywords = 16

// Whitelisted filter field names.
const (
	FieldDepartment = "department"
	FieldYear       = "year"
	FieldSeverity   = "severity"
	FieldStatus     = "status"
	FieldProject    = "project"
	FieldKeywords   = "keywords"
	FieldDateRange  = "date_range"
)

// Whitelist returns the closed set of allowed filter field names.
func Whitelist() map[string]bool {
	return map[string]bool{
		FieldDepartment: true,
		FieldYear:       true,
		FieldSeverity:   true,
		FieldStatus:     true,
		FieldProject:    true,
		FieldKeywords:   true,
		FieldDateRange:  true,
	}
}

// Severity is the finding severity level.
type Severity string

// Severity constants.
const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// ParseSeverity matches a severity value case-insensitively.
func ParseSeverity(s string) (Severity, error) {
	switch Severity(strings.ToLower(strings.TrimSpace(s))) {
	case SeverityLow:
		return SeverityLow, nil
	case SeverityMedium:
		return SeverityMedium, nil
	case SeverityHigh:
		return SeverityHigh, nil
	case SeverityCritical:
		return SeverityCritical, nil
	default:
		return "", fmt.Errorf("unknown severity %q", s)
	}
}

// Status is the finding lifecycle state.
type Status string

// Status constants.
const (
	StatusOpen       Status = "open"
	StatusInProgress Status = "in_progress"
	StatusClosed     Status = "closed"
)

// ParseStatus matches a status value case-insensitively.
func ParseStatus(s string) (Status, error) {
	switch Status(strings.ToLower(strings.TrimSpace(s))) {
	case StatusOpen:
		return StatusOpen, nil
	case StatusInProgress:
		return StatusInProgress, nil
	case StatusClosed:
		return StatusClosed, nil
	default:
		return "", fmt.Errorf("unknown status %q", s)
	}
}

// DateRange is an inclusive [from, to] time window.
type DateRange struct {
	from time.Time
	to   time.Time
}

// NewDateRange validates and creates a DateRange.
func NewDateRange(from, to time.Time) (DateRange, error) {
	if from.IsZero() || to.IsZero() {
		return DateRange{}, fmt.Errorf("date range boundaries are required")
	}
	if to.Before(from) {
		return DateRange{}, fmt.Errorf("date range end precedes start")
	}
	return DateRange{from: from, to: to}, nil
}

// From returns the inclusive lower bound.
func (r DateRange) From() time.Time { return r.from }

// To returns the inclusive upper bound.
func (r DateRange) To() time.Time { return r.to }

// Set is a validated, whitelisted mapping of query dimensions to typed values.
// A zero Set is valid and empty. Absent fields are zero values.
type Set struct {
	department string
	project    string
	year       int
	severity   Severity
	status     Status
	keywords   []string
	dateRange  *DateRange
}

// Builder assembles a Set field by field, validating on Build.
type Builder struct {
	set  Set
	errs []error
}

// NewBuilder starts building a filter Set.
func NewBuilder() *Builder {
	return &Builder{}
}

// Department sets the department filter.
func (b *Builder) Department(d string) *Builder {
	d = strings.TrimSpace(d)
	if d == "" {
		b.errs = append(b.errs, fmt.Errorf("department is empty"))
		return b
	}
	b.set.department = d
	return b
}

// Project sets the project/site filter.
func (b *Builder) Project(p string) *Builder {
	p = strings.TrimSpace(p)
	if p == "" {
		b.errs = append(b.errs, fmt.Errorf("project is empty"))
		return b
	}
	b.set.project = p
	return b
}

// Year sets the year filter. Must be in [MinYear, MaxYear].
func (b *Builder) Year(y int) *Builder {
	if y < MinYear || y > MaxYear {
		b.errs = append(b.errs, fmt.Errorf("year %d out of range [%d, %d]", y, MinYear, MaxYear))
		return b
	}
	b.set.year = y
	return b
}

// Severity sets the severity filter from a raw string (case-insensitive).
func (b *Builder) Severity(raw string) *Builder {
	sev, err := ParseSeverity(raw)
	if err != nil {
		b.errs = append(b.errs, err)
		return b
	}
	b.set.severity = sev
	return b
}

// Status sets the status filter from a raw string (case-insensitive).
func (b *Builder) Status(raw string) *Builder {
	st, err := ParseStatus(raw)
	if err != nil {
		b.errs = append(b.errs, err)
		return b
	}
	b.set.status = st
	return b
}

// Keywords sets the free-text keyword filter. Blank entries are dropped.
func (b *Builder) Keywords(words ...string) *Builder {
	cleaned := make([]string, 0, len(words))
	for _, w := range words {
		if w = strings.TrimSpace(w); w != "" {
			cleaned = append(cleaned, w)
		}
	}
	if len(cleaned) > MaxKeywords {
		b.errs = append(b.errs, fmt.Errorf("too many keywords (max %d)", MaxKeywords))
		return b
	}
	b.set.keywords = cleaned
	return b
}

// DateRange sets the date range filter.
func (b *Builder) DateRange(from, to time.Time) *Builder {
	r, err := NewDateRange(from, to)
	if err != nil {
		b.errs = append(b.errs, err)
		return b
	}
	b.set.dateRange = &r
	return b
}

// Err returns the most recent field validation error, if any.
func (b *Builder) Err() error {
	if len(b.errs) == 0 {
		return nil
	}
	return b.errs[len(b.errs)-1]
}

// Build returns the assembled Set, or the first validation error.
func (b *Builder) Build() (Set, error) {
	if len(b.errs) > 0 {
		return Set{}, b.errs[0]
	}
	return b.set, nil
}

// Department returns the department filter ("" = absent).
func (s Set) Department() string { return s.department }

// Project returns the project/site filter ("" = absent).
func (s Set) Project() string { return s.project }

// Year returns the year filter (0 = absent).
func (s Set) Year() int { return s.year }

// Severity returns the severity filter ("" = absent).
func (s Set) Severity() Severity { return s.severity }

// Status returns the status filter ("" = absent).
func (s Set) Status() Status { return s.status }

// Keywords returns the free-text keyword filter.
func (s Set) Keywords() []string { return s.keywords }

// DateRange returns the date range filter (nil = absent).
func (s Set) DateRange() *DateRange { return s.dateRange }

// IsEmpty reports whether no field is set.
func (s Set) IsEmpty() bool {
	return s.department == "" && s.project == "" && s.year == 0 &&
		s.severity == "" && s.status == "" && len(s.keywords) == 0 &&
		s.dateRange == nil
}

// HasStructured reports whether any non-keyword field is set.
// Keyword-only sets have no indexed predicate and hit the slow path.
func (s Set) HasStructured() bool {
	return s.department != "" || s.project != "" || s.year != 0 ||
		s.severity != "" || s.status != "" || s.dateRange != nil
}

// WithProject returns a copy of the set with the project replaced.
// Used after entity disambiguation corrects a misspelled project name.
func (s Set) WithProject(p string) Set {
	s.project = p
	return s
}

// Fields returns the names of the populated fields, sorted.
func (s Set) Fields() []string {
	var fields []string
	if s.department != "" {
		fields = append(fields, FieldDepartment)
	}
	if s.project != "" {
		fields = append(fields, FieldProject)
	}
	if s.year != 0 {
		fields = append(fields, FieldYear)
	}
	if s.severity != "" {
		fields = append(fields, FieldSeverity)
	}
	if s.status != "" {
		fields = append(fields, FieldStatus)
	}
	if len(s.keywords) > 0 {
		fields = append(fields, FieldKeywords)
	}
	if s.dateRange != nil {
		fields = append(fields, FieldDateRange)
	}
	sort.Strings(fields)
	return fields
}
