package query

import (
	"fmt"
	"strings"

	"github.com/kailas-cloud/findex/internal/domain"
)

// MaxQueryLength is the maximum allowed query length in characters.
const MaxQueryLength = 2048

// ThinkingMode hints how much reasoning effort the caller wants.
type ThinkingMode string

// Thinking mode constants.
const (
	ModeFast ThinkingMode = "fast"
	ModeDeep ThinkingMode = "deep"
)

// IsValid checks if the mode is one of the supported values.
func (m ThinkingMode) IsValid() bool {
	return m == ModeFast || m == ModeDeep
}

// Query is a validated user question (immutable once received).
type Query struct {
	text      string
	sessionID string
	mode      ThinkingMode
}

// New validates and normalizes a user query.
// Text is trimmed; blank input is rejected with domain.ErrEmptyQuery.
// Defaults: mode=fast.
func New(text, sessionID string, mode ThinkingMode) (Query, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Query{}, domain.ErrEmptyQuery
	}
	if len(text) > MaxQueryLength {
		return Query{}, fmt.Errorf("query too long (max %d chars)", MaxQueryLength)
	}
	if mode == "" {
		mode = ModeFast
	}
	if !mode.IsValid() {
		return Query{}, fmt.Errorf("invalid thinking mode: %q", mode)
	}
	return Query{text: text, sessionID: sessionID, mode: mode}, nil
}

// Text returns the trimmed question text.
func (q Query) Text() string { return q.text }

// SessionID returns the originating session identifier (may be empty).
func (q Query) SessionID() string { return q.sessionID }

// Mode returns the thinking mode hint.
func (q Query) Mode() ThinkingMode { return q.mode }

// CacheKey returns the normalized cache key for this query.
// Exact-match only: trimmed, lowercased text plus the thinking mode.
func (q Query) CacheKey() string {
	return string(q.mode) + ":" + strings.ToLower(q.text)
}
