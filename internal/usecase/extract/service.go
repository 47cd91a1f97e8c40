package extract

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/findex/internal/domain/filterset"
	"github.com/kailas-cloud/findex/internal/logger"
)

// Service validates candidate filters against the field whitelist.
// Invalid fields are dropped, never guessed at: a partial filter set is
// valid, and a fully empty one signals escalation to the analytical path.
type Service struct{}

// New creates a filter extraction service.
func New() *Service {
	return &Service{}
}

// Extract builds a filter set from a raw field map, typically produced by
// the classifier or an LLM extraction step. Unknown fields and fields whose
// values fail validation are dropped and returned by name.
func (s *Service) Extract(ctx context.Context, raw map[string]any) (filterset.Set, []string) {
	whitelist := filterset.Whitelist()
	b := filterset.NewBuilder()
	var dropped []string

	for field, value := range raw {
		name := strings.ToLower(strings.TrimSpace(field))
		if _, ok := whitelist[name]; !ok {
			dropped = append(dropped, field)
			continue
		}
		// Probe on a scratch builder so a bad value never poisons the
		// accepted fields.
		if err := applyField(filterset.NewBuilder(), name, value); err != nil {
			logger.FromContext(ctx).Warn("dropping invalid filter field",
				zap.String("field", name), zap.Error(err))
			dropped = append(dropped, field)
			continue
		}
		_ = applyField(b, name, value)
	}

	set, err := b.Build()
	if err != nil {
		logger.FromContext(ctx).Warn("filter set rejected", zap.Error(err))
		return filterset.Set{}, keysOf(raw)
	}
	return set, dropped
}

// Validate passes every populated field of an existing set back through
// field validation. Validating an already-valid set is the identity.
func (s *Service) Validate(ctx context.Context, set filterset.Set) filterset.Set {
	out, _ := s.Extract(ctx, rawFields(set))
	return out
}

// ShouldEscalate reports whether extraction produced nothing usable and the
// query should be handled analytically instead.
func (s *Service) ShouldEscalate(set filterset.Set) bool {
	return set.IsEmpty()
}

// applyField coerces one raw value onto the builder. The builder performs
// range and enum validation; coercion only normalizes the dynamic type.
func applyField(b *filterset.Builder, name string, value any) error {
	switch name {
	case filterset.FieldDepartment:
		s, err := asString(value)
		if err != nil {
			return err
		}
		return b.Department(s).Err()
	case filterset.FieldProject:
		s, err := asString(value)
		if err != nil {
			return err
		}
		return b.Project(s).Err()
	case filterset.FieldYear:
		y, err := asInt(value)
		if err != nil {
			return err
		}
		return b.Year(y).Err()
	case filterset.FieldSeverity:
		s, err := asString(value)
		if err != nil {
			return err
		}
		return b.Severity(s).Err()
	case filterset.FieldStatus:
		s, err := asString(value)
		if err != nil {
			return err
		}
		return b.Status(s).Err()
	case filterset.FieldKeywords:
		words, err := asStrings(value)
		if err != nil {
			return err
		}
		return b.Keywords(words...).Err()
	case filterset.FieldDateRange:
		from, to, err := asDateRange(value)
		if err != nil {
			return err
		}
		return b.DateRange(from, to).Err()
	}
	return fmt.Errorf("unhandled field %q", name)
}

func asString(value any) (string, error) {
	s, ok := value.(string)
	if !ok {
		return "", fmt.Errorf("expected string, got %T", value)
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return "", fmt.Errorf("empty value")
	}
	return s, nil
}

func asInt(value any) (int, error) {
	switch v := value.(type) {
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case float64:
		if v != float64(int(v)) {
			return 0, fmt.Errorf("expected integer, got %v", v)
		}
		return int(v), nil
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return 0, fmt.Errorf("expected integer, got %q", v)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("expected integer, got %T", value)
	}
}

func asStrings(value any) ([]string, error) {
	switch v := value.(type) {
	case []string:
		return v, nil
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("expected string element, got %T", item)
			}
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
		return out, nil
	case string:
		var out []string
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
		return out, nil
	default:
		return nil, fmt.Errorf("expected string list, got %T", value)
	}
}

// asDateRange accepts {"from": ..., "to": ...} maps with RFC 3339
// timestamps, dates, or bare years on either side.
func asDateRange(value any) (time.Time, time.Time, error) {
	var zero time.Time
	m, ok := value.(map[string]any)
	if !ok {
		return zero, zero, fmt.Errorf("expected object with from/to, got %T", value)
	}
	from, err := asTime(m["from"], false)
	if err != nil {
		return zero, zero, fmt.Errorf("from: %w", err)
	}
	to, err := asTime(m["to"], true)
	if err != nil {
		return zero, zero, fmt.Errorf("to: %w", err)
	}
	return from, to, nil
}

// asTime parses a timestamp, a date, or a bare year. A bare year snaps to
// the start of the year, or to its end when end is true.
func asTime(value any, end bool) (time.Time, error) {
	var zero time.Time
	switch v := value.(type) {
	case nil:
		return zero, fmt.Errorf("missing")
	case string:
		s := strings.TrimSpace(v)
		if t, err := time.Parse(time.RFC3339, s); err == nil {
			return t, nil
		}
		if t, err := time.Parse("2006-01-02", s); err == nil {
			return t, nil
		}
		y, err := strconv.Atoi(s)
		if err != nil {
			return zero, fmt.Errorf("unparseable time %q", s)
		}
		return yearBound(y, end), nil
	case int:
		return yearBound(v, end), nil
	case float64:
		return yearBound(int(v), end), nil
	default:
		return zero, fmt.Errorf("unparseable time of type %T", value)
	}
}

func yearBound(year int, end bool) time.Time {
	if end {
		return time.Date(year, 12, 31, 23, 59, 59, 0, time.UTC)
	}
	return time.Date(year, 1, 1, 0, 0, 0, 0, time.UTC)
}

// rawFields renders a set back into the raw map form Extract consumes.
func rawFields(set filterset.Set) map[string]any {
	raw := map[string]any{}
	if set.Department() != "" {
		raw[filterset.FieldDepartment] = set.Department()
	}
	if set.Project() != "" {
		raw[filterset.FieldProject] = set.Project()
	}
	if set.Year() != 0 {
		raw[filterset.FieldYear] = set.Year()
	}
	if set.Severity() != "" {
		raw[filterset.FieldSeverity] = string(set.Severity())
	}
	if set.Status() != "" {
		raw[filterset.FieldStatus] = string(set.Status())
	}
	if kws := set.Keywords(); len(kws) > 0 {
		raw[filterset.FieldKeywords] = kws
	}
	if dr := set.DateRange(); dr != nil {
		raw[filterset.FieldDateRange] = map[string]any{
			"from": dr.From().Format(time.RFC3339),
			"to":   dr.To().Format(time.RFC3339),
		}
	}
	return raw
}

func keysOf(raw map[string]any) []string {
	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	return keys
}
