package domain

import "errors"

var (
	// ErrEmptyQuery signals a blank or whitespace-only query.
	ErrEmptyQuery = errors.New("query is empty")
	// ErrInvalidFilter signals a filter outside the whitelisted schema.
	ErrInvalidFilter = errors.New("invalid filter")
	// ErrUnknownStrategy signals an unrecognized handling strategy.
	ErrUnknownStrategy = errors.New("unknown strategy")
	// ErrStoreUnavailable signals that the findings store cannot be reached.
	ErrStoreUnavailable = errors.New("store unavailable")
	// ErrLLMUnavailable signals an LLM provider failure or timeout.
	ErrLLMUnavailable = errors.New("llm unavailable")
	// ErrLLMQuotaExceeded signals an exhausted LLM quota or rate limit.
	ErrLLMQuotaExceeded = errors.New("llm quota exceeded")
	// ErrConfirmationRequired signals that an ambiguous entity needs user confirmation.
	ErrConfirmationRequired = errors.New("confirmation required")
	// ErrConfirmationExpired signals a confirmation older than its validity window.
	ErrConfirmationExpired = errors.New("confirmation expired")
	// ErrNotFound signals a missing resource.
	ErrNotFound = errors.New("not found")
)
