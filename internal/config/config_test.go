package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(nil)
	if err != nil {
		t.Fatalf("Load() unexpected error: %v", err)
	}
	if cfg.Port != DefaultPort {
		t.Errorf("Port = %d, want %d", cfg.Port, DefaultPort)
	}
	if cfg.Provider != "gemini" {
		t.Errorf("Provider = %q, want gemini", cfg.Provider)
	}
	if cfg.Model == "" {
		t.Error("expected provider default model")
	}
	if cfg.MaxImages != 10 {
		t.Errorf("MaxImages = %d, want 10", cfg.MaxImages)
	}
	if cfg.RenderScale != 2 {
		t.Errorf("RenderScale = %v, want 2", cfg.RenderScale)
	}
	if cfg.CacheTTL != 15*time.Minute {
		t.Errorf("CacheTTL = %v, want 15m", cfg.CacheTTL)
	}
	if cfg.CacheSize != 100 {
		t.Errorf("CacheSize = %d, want 100", cfg.CacheSize)
	}
	if cfg.MaxUploadBytes != DefaultMaxUploadBytes {
		t.Errorf("MaxUploadBytes = %d, want %d", cfg.MaxUploadBytes, DefaultMaxUploadBytes)
	}
}

func TestLoad_Environment(t *testing.T) {
	t.Setenv("FORMLENS_PORT", "9001")
	t.Setenv("FORMLENS_PROVIDER", "anthropic")
	t.Setenv("FORMLENS_CACHE_TTL", "2m")
	t.Setenv("FORMLENS_MAX_IMAGES", "3")
	t.Setenv("FORMLENS_LOG_LEVEL", "debug")

	cfg, err := Load(nil)
	if err != nil {
		t.Fatalf("Load() unexpected error: %v", err)
	}
	if cfg.Port != 9001 {
		t.Errorf("Port = %d, want 9001", cfg.Port)
	}
	if cfg.Provider != "anthropic" || !strings.HasPrefix(cfg.Model, "claude") {
		t.Errorf("expected anthropic with claude model, got %q/%q", cfg.Provider, cfg.Model)
	}
	if cfg.CacheTTL != 2*time.Minute {
		t.Errorf("CacheTTL = %v, want 2m", cfg.CacheTTL)
	}
	if cfg.MaxImages != 3 {
		t.Errorf("MaxImages = %d, want 3", cfg.MaxImages)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want debug", cfg.LogLevel)
	}
}

func TestLoad_FlagsOverrideEnvironment(t *testing.T) {
	t.Setenv("FORMLENS_PORT", "9001")

	cfg, err := Load([]string{"--port=9100", "--provider=openai", "--model=gpt-test"})
	if err != nil {
		t.Fatalf("Load() unexpected error: %v", err)
	}
	if cfg.Port != 9100 {
		t.Errorf("Port = %d, want 9100", cfg.Port)
	}
	if cfg.Model != "gpt-test" {
		t.Errorf("Model = %q, want gpt-test", cfg.Model)
	}
	if cfg.Address() != "0.0.0.0:9100" {
		t.Errorf("Address() = %q", cfg.Address())
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		args []string
		env  map[string]string
	}{
		{name: "bad port", args: []string{"--port=70000"}},
		{name: "bad provider", args: []string{"--provider=nope"}},
		{name: "bad log level", args: []string{"--log-level=loud"}},
		{name: "zero scale", args: []string{"--render-scale=0"}},
		{name: "zero images", env: map[string]string{"FORMLENS_MAX_IMAGES": "0"}},
		{name: "unknown flag", args: []string{"--bogus"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			if _, err := Load(tt.args); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestCredentialReadEachTime(t *testing.T) {
	cred := Credential("FORMLENS_TEST_KEY")
	t.Setenv("FORMLENS_TEST_KEY", "")
	if got := cred.Get(); got != "" {
		t.Errorf("expected empty credential, got %q", got)
	}
	t.Setenv("FORMLENS_TEST_KEY", "secret")
	if got := cred.Get(); got != "secret" {
		t.Errorf("expected secret, got %q", got)
	}
	if cred.Key != "FORMLENS_TEST_KEY" {
		t.Errorf("Key = %q", cred.Key)
	}
}
