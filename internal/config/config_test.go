package config

import (
	"os"
	"testing"
)

func validConfig() Config {
	return Config{
		HTTP:     HTTPConfig{Port: 8080},
		Database: DatabaseConfig{Addrs: []string{"localhost:6379"}},
		LLM:      LLMConfig{APIKey: "test-key"},
	}
}

func TestValidate_Valid(t *testing.T) {
	cfg := validConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_InvalidPort(t *testing.T) {
	cfg := validConfig()
	cfg.HTTP.Port = 0

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for invalid port")
	}
}

func TestValidate_MissingAddrs(t *testing.T) {
	cfg := validConfig()
	cfg.Database.Addrs = nil

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for missing database addrs")
	}
}

func TestValidate_MissingLLMKey(t *testing.T) {
	cfg := validConfig()
	cfg.LLM.APIKey = ""

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for missing llm api key")
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := validConfig()
	cfg.ApplyDefaults()

	if cfg.Database.KeyPrefix != "findex:" {
		t.Errorf("key prefix = %q", cfg.Database.KeyPrefix)
	}
	if cfg.LLM.TimeoutSec != 30 {
		t.Errorf("llm timeout = %d, want 30", cfg.LLM.TimeoutSec)
	}
	if cfg.Cache.TTLSec != 300 {
		t.Errorf("cache ttl = %d, want 300", cfg.Cache.TTLSec)
	}
	if cfg.Routing.ContextTokenBudget != 10000 {
		t.Errorf("context token budget = %d, want 10000", cfg.Routing.ContextTokenBudget)
	}
	if cfg.Routing.ConfirmWindowSec != 300 {
		t.Errorf("confirm window = %d, want 300", cfg.Routing.ConfirmWindowSec)
	}
}

func TestExpandEnvVars(t *testing.T) {
	os.Setenv("FINDEX_TEST_KEY", "secret")
	defer os.Unsetenv("FINDEX_TEST_KEY")

	tests := []struct {
		in, want string
	}{
		{"api_key: ${FINDEX_TEST_KEY}", "api_key: secret"},
		{"port: ${FINDEX_MISSING:-8080}", "port: 8080"},
		{"plain: value", "plain: value"},
	}
	for _, tc := range tests {
		got := string(expandEnvVars([]byte(tc.in)))
		if got != tc.want {
			t.Errorf("expandEnvVars(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
