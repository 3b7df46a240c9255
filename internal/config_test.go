package internal

import (
	"strings"
	"testing"

	"github.com/starford/hypnos/internal/stream"
)

func TestDefaultConfig_Valid(t *testing.T) {
	cfg := NewDefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
}

func TestHTTPConfig_Address(t *testing.T) {
	cfg := HTTPConfig{Port: 9090}
	if got := cfg.Address(); got != ":9090" {
		t.Errorf("address = %q, want :9090", got)
	}
}

func TestHTTPConfig_PortRange(t *testing.T) {
	for _, port := range []int{0, -1, 70000} {
		cfg := HTTPConfig{Port: port}
		if err := cfg.Validate(); err == nil {
			t.Errorf("port %d should fail validation", port)
		}
	}
}

func TestIngestConfig_RotateDefault(t *testing.T) {
	cfg := IngestConfig{LogDir: "./logs"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if cfg.RotateMaxBytes != stream.DefaultMaxLogSize {
		t.Errorf("rotate_max_bytes = %d, want default %d", cfg.RotateMaxBytes, stream.DefaultMaxLogSize)
	}
}

func TestImportConfig_WatchNeedsInbox(t *testing.T) {
	cfg := ImportConfig{Watch: true, InboxDir: ""}
	if err := cfg.Validate(); err == nil {
		t.Fatal("watch without inbox_dir should fail")
	}
	cfg = ImportConfig{Watch: false, InboxDir: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("watch disabled should not require inbox_dir: %v", err)
	}
}

func TestAIConfig_ProviderDefaultsToArk(t *testing.T) {
	cfg := NewDefaultConfig().AI
	cfg.Provider = ""
	if err := cfg.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if cfg.Provider != "ark" {
		t.Errorf("provider = %q, want ark", cfg.Provider)
	}
}

func TestAIConfig_RejectsUnknownProvider(t *testing.T) {
	cfg := NewDefaultConfig().AI
	cfg.Provider = "oracle"
	if err := cfg.Validate(); err == nil {
		t.Fatal("unknown provider should fail validation")
	}
}

func TestAIConfig_ReportConfig(t *testing.T) {
	cfg := AIConfig{
		Provider:       "ark",
		BaseURL:        "https://example.com/v1/chat/completions",
		Model:          "m",
		APIKey:         "k",
		TimeoutSeconds: 30,
		Temperature:    0.5,
	}
	rc := cfg.ReportConfig()
	if rc.BaseURL != cfg.BaseURL || rc.Model != "m" || rc.APIKey != "k" {
		t.Errorf("report config = %+v", rc)
	}
	if rc.Timeout.Seconds() != 30 {
		t.Errorf("timeout = %v, want 30s", rc.Timeout)
	}
}

func TestAuthConfig_DisabledMode(t *testing.T) {
	cfg := AuthConfig{Mode: "disabled"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("disabled mode should pass: %v", err)
	}
	if cfg.AuthEnabled() {
		t.Error("disabled mode should not be enabled")
	}
}

func TestAuthConfig_EmptyModeDefaultsDisabled(t *testing.T) {
	cfg := AuthConfig{}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("empty mode should default to disabled: %v", err)
	}
	if cfg.Mode != AuthModeDisabled {
		t.Errorf("mode = %q, want %q", cfg.Mode, AuthModeDisabled)
	}
}

func TestAuthConfig_TokenModeValid(t *testing.T) {
	cfg := AuthConfig{Mode: "token", Token: "mysecret"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("token mode with token should pass: %v", err)
	}
	if !cfg.AuthEnabled() {
		t.Error("token mode should be enabled")
	}
}

func TestAuthConfig_TokenModeEmptyToken(t *testing.T) {
	cfg := AuthConfig{Mode: "token"}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("token mode with empty token should fail")
	}
	if !strings.Contains(err.Error(), "token is empty") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestAuthConfig_InvalidMode(t *testing.T) {
	cfg := AuthConfig{Mode: "magic", Token: "x"}
	if err := cfg.Validate(); err == nil {
		t.Fatal("invalid mode should fail validation")
	}
}

func TestFullConfig_SectionValidationPropagates(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Auth.Mode = "token"
	cfg.Auth.Token = ""
	if err := cfg.Validate(); err == nil {
		t.Fatal("full config validate should catch auth error")
	}

	cfg = NewDefaultConfig()
	cfg.SQLite.Path = ""
	if err := cfg.Validate(); err == nil {
		t.Fatal("full config validate should catch empty sqlite path")
	}
}
