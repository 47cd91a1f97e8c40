package findex

import (
	"time"

	"go.uber.org/zap"
)

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

type clientConfig struct {
	addrs    []string
	password string

	llmAPIKey  string
	llmBaseURL string
	llmModel   string
	llmTimeout time.Duration

	cacheTTL      time.Duration
	maxRows       int
	confirmWindow time.Duration
	snapshotCap   int
	tokenBudget   int
	departments   []string

	logger *zap.Logger
}

// WithRedis configures the client to connect to a Redis instance.
func WithRedis(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.addrs = []string{addr}
		c.password = password
	})
}

// WithLLM sets the OpenAI-compatible completion provider. Without it,
// lookup queries work normally and reasoning queries degrade to raw rows.
func WithLLM(apiKey, baseURL, model string) Option {
	return optionFunc(func(c *clientConfig) {
		c.llmAPIKey = apiKey
		c.llmBaseURL = baseURL
		c.llmModel = model
	})
}

// WithLLMTimeout sets the per-call completion timeout. Default: 30s.
func WithLLMTimeout(d time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.llmTimeout = d
	})
}

// WithCacheTTL sets the response cache lifetime. Default: 300s.
// A negative value disables response caching.
func WithCacheTTL(d time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.cacheTTL = d
	})
}

// WithMaxRows caps the rows returned by a single query. Default: 50.
func WithMaxRows(n int) Option {
	return optionFunc(func(c *clientConfig) {
		c.maxRows = n
	})
}

// WithConfirmWindow sets how long a pending confirmation stays valid.
// Default: 300s.
func WithConfirmWindow(d time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.confirmWindow = d
	})
}

// WithSnapshotCap bounds the in-memory fallback snapshot used when the
// store is unreachable. Default: 200.
func WithSnapshotCap(n int) Option {
	return optionFunc(func(c *clientConfig) {
		c.snapshotCap = n
	})
}

// WithTokenBudget sets the context token budget for reasoning answers.
// Default: 10000.
func WithTokenBudget(n int) Option {
	return optionFunc(func(c *clientConfig) {
		c.tokenBudget = n
	})
}

// WithDepartments sets the recognized department vocabulary for the
// classifier. Defaults to a built-in list.
func WithDepartments(departments []string) Option {
	return optionFunc(func(c *clientConfig) {
		c.departments = departments
	})
}

// WithLogger enables structured logging for client operations.
// Pass nil to disable (default).
func WithLogger(l *zap.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = l
	})
}
