package internal

import (
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/hypnos/internal/report"
	"github.com/starford/hypnos/internal/stream"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Config represents the application configuration.
type Config struct {
	App     ApplicationConfig `yaml:"app"`
	SQLite  SQLiteConfig      `yaml:"sqlite"`
	Ingest  IngestConfig      `yaml:"ingest"`
	Reports ReportsConfig     `yaml:"reports"`
	Import  ImportConfig      `yaml:"import"`
	AI      AIConfig          `yaml:"ai"`
	Auth    AuthConfig        `yaml:"auth"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.SQLite.Validate(); err != nil {
		return err
	}
	if err := c.Ingest.Validate(); err != nil {
		return err
	}
	if err := c.Reports.Validate(); err != nil {
		return err
	}
	if err := c.Import.Validate(); err != nil {
		return err
	}
	if err := c.AI.Validate(); err != nil {
		return err
	}
	return c.Auth.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// SQLiteConfig holds SQLite database configuration.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the SQLite configuration.
func (c *SQLiteConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// IngestConfig holds the live data log settings.
type IngestConfig struct {
	LogDir         string `yaml:"log_dir"`
	RotateMaxBytes int64  `yaml:"rotate_max_bytes"`
}

// Validate validates the ingest configuration.
func (c *IngestConfig) Validate() error {
	if c.RotateMaxBytes == 0 {
		c.RotateMaxBytes = stream.DefaultMaxLogSize
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.LogDir, validation.Required),
		validation.Field(&c.RotateMaxBytes, validation.Min(1)),
	)
}

// ReportsConfig holds the report output directory.
type ReportsConfig struct {
	Dir string `yaml:"dir"`
}

// Validate validates the reports configuration.
func (c *ReportsConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Dir, validation.Required),
	)
}

// ImportConfig holds the inbox directory for file-drop imports.
//
// When Watch is true, supported data files placed in InboxDir are imported
// automatically and moved to InboxDir/processed.
type ImportConfig struct {
	InboxDir string `yaml:"inbox_dir"`
	Watch    bool   `yaml:"watch"`
}

// Validate validates the import configuration.
func (c *ImportConfig) Validate() error {
	if c.Watch && c.InboxDir == "" {
		return fmt.Errorf("import: watch is enabled but inbox_dir is empty")
	}
	return nil
}

// AIConfig holds the narrative provider settings.
type AIConfig struct {
	Provider       string  `yaml:"provider"`
	BaseURL        string  `yaml:"base_url"`
	Model          string  `yaml:"model"`
	APIKey         string  `yaml:"api_key"`
	TimeoutSeconds int     `yaml:"timeout_seconds"`
	Temperature    float64 `yaml:"temperature"`
}

// Validate validates the AI configuration.
func (c *AIConfig) Validate() error {
	if c.Provider == "" {
		c.Provider = report.ProviderArk
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.Provider, validation.Required, validation.In(report.ProviderArk, report.ProviderCanned)),
		validation.Field(&c.BaseURL, validation.Required),
		validation.Field(&c.Model, validation.Required),
		validation.Field(&c.TimeoutSeconds, validation.Min(1)),
	)
}

// ReportConfig converts the AI settings to the composer configuration.
func (c *AIConfig) ReportConfig() report.Config {
	return report.Config{
		Provider:    c.Provider,
		BaseURL:     c.BaseURL,
		Model:       c.Model,
		APIKey:      c.APIKey,
		Temperature: c.Temperature,
		Timeout:     time.Duration(c.TimeoutSeconds) * time.Second,
	}
}

// AuthConfig holds authentication configuration.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required, suitable for local dev.
//   - "token": Bearer token authentication; Token must be non-empty.
type AuthConfig struct {
	Mode  string `yaml:"mode"`
	Token string `yaml:"token"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	// Normalise empty mode to "disabled" for backward compatibility.
	if c.Mode == "" {
		c.Mode = AuthModeDisabled
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(AuthModeDisabled, AuthModeToken)),
	); err != nil {
		return err
	}
	if c.Mode == AuthModeToken && c.Token == "" {
		return fmt.Errorf("auth: mode is %q but token is empty", AuthModeToken)
	}
	return nil
}

// AuthEnabled returns true when authentication is active.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode == AuthModeToken
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		SQLite: SQLiteConfig{
			Path: "./hypnos.db",
		},
		Ingest: IngestConfig{
			LogDir:         "./data/logs",
			RotateMaxBytes: stream.DefaultMaxLogSize,
		},
		Reports: ReportsConfig{
			Dir: "./data/reports",
		},
		Import: ImportConfig{
			InboxDir: "./data/inbox",
			Watch:    false,
		},
		AI: AIConfig{
			Provider:       report.ProviderArk,
			BaseURL:        "https://ark.cn-beijing.volces.com/api/v3/chat/completions",
			Model:          "doubao-seed-1-6-lite-251015",
			TimeoutSeconds: 60,
			Temperature:    0.3,
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
	}
}
