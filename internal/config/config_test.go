package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	setCoreEnvEmpty(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.BindAddr != ":8080" {
		t.Fatalf("BindAddr = %q, want %q", cfg.BindAddr, ":8080")
	}
	if cfg.MetricsNamespace != "duecall" {
		t.Fatalf("MetricsNamespace = %q, want %q", cfg.MetricsNamespace, "duecall")
	}
	if cfg.PlayoutCap != 30*time.Second {
		t.Fatalf("PlayoutCap = %v, want 30s", cfg.PlayoutCap)
	}
	if cfg.OpenAIModel != "gpt-4o" {
		t.Fatalf("OpenAIModel = %q, want gpt-4o", cfg.OpenAIModel)
	}
	if cfg.DefaultTrunkID != "" {
		t.Fatalf("DefaultTrunkID = %q, want empty default", cfg.DefaultTrunkID)
	}
}

func TestLoadExplicitValues(t *testing.T) {
	setCoreEnvEmpty(t)
	t.Setenv("APP_BIND_ADDR", ":9090")
	t.Setenv("SIP_OUTBOUND_TRUNK_ID", " ST_trunk-99 ")
	t.Setenv("APP_PLAYOUT_CAP", "45s")
	t.Setenv("OPENAI_TEMPERATURE", "0.2")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.BindAddr != ":9090" {
		t.Fatalf("BindAddr = %q, want :9090", cfg.BindAddr)
	}
	if cfg.DefaultTrunkID != "ST_trunk-99" {
		t.Fatalf("DefaultTrunkID = %q, want trimmed value", cfg.DefaultTrunkID)
	}
	if cfg.PlayoutCap != 45*time.Second {
		t.Fatalf("PlayoutCap = %v, want 45s", cfg.PlayoutCap)
	}
	if cfg.OpenAITemperature != 0.2 {
		t.Fatalf("OpenAITemperature = %v, want 0.2", cfg.OpenAITemperature)
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	setCoreEnvEmpty(t)
	t.Setenv("APP_PLAYOUT_CAP", "10ms")
	if _, err := Load(); err == nil {
		t.Fatal("Load() should reject sub-second playout cap")
	}

	setCoreEnvEmpty(t)
	t.Setenv("OPENAI_TEMPERATURE", "9")
	if _, err := Load(); err == nil {
		t.Fatal("Load() should reject out-of-range temperature")
	}

	setCoreEnvEmpty(t)
	t.Setenv("APP_SHUTDOWN_TIMEOUT", "banana")
	if _, err := Load(); err == nil {
		t.Fatal("Load() should reject unparseable duration")
	}
}

func setCoreEnvEmpty(t *testing.T) {
	t.Helper()
	keys := []string{
		"APP_BIND_ADDR",
		"APP_SHUTDOWN_TIMEOUT",
		"APP_METRICS_NAMESPACE",
		"APP_AGENT_NAME",
		"APP_SESSION_RETENTION",
		"APP_PLAYOUT_CAP",
		"APP_ANALYSIS_TIMEOUT",
		"TRANSCRIPTS_DIR",
		"PREDICTIONS_DIR",
		"SIP_OUTBOUND_TRUNK_ID",
		"PLATFORM_URL",
		"PLATFORM_API_KEY",
		"OPENAI_API_KEY",
		"OPENAI_BASE_URL",
		"OPENAI_MODEL",
		"OPENAI_TEMPERATURE",
		"DATABASE_URL",
		"AMQP_URL",
	}
	for _, key := range keys {
		t.Setenv(key, "")
	}
}
