// Package config provides YAML-based configuration loading for the gateway,
// with environment-variable overrides.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the top-level gateway configuration, loaded from chabot.yaml.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Eleven   ElevenConfig   `yaml:"eleven"`
	Gemini   GeminiConfig   `yaml:"gemini"`
	Intake   IntakeConfig   `yaml:"intake"`
	Mail     MailConfig     `yaml:"mail"`
	Mirrors  MirrorConfig   `yaml:"mirrors"`
	Database DatabaseConfig `yaml:"database"`
	Storage  StorageConfig  `yaml:"storage"`
	Notifier NotifierConfig `yaml:"notifier"`
	Log      LogConfig      `yaml:"log"`
}

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	Port           int      `yaml:"port"`
	PublicBaseURL  string   `yaml:"public_base_url"`
	FrontendOrigin string   `yaml:"frontend_origin"`
	AllowedOrigins []string `yaml:"allowed_origins"`
	StaticDir      string   `yaml:"static_dir"`
}

// ElevenConfig holds credentials for the voice-agent token upstream.
type ElevenConfig struct {
	APIKey   string `yaml:"api_key"`
	AgentID  string `yaml:"agent_id"`
	TokenURL string `yaml:"token_url"` // optional override, tried first
}

// GeminiConfig holds credentials for the summarizer.
type GeminiConfig struct {
	APIKey string `yaml:"api_key"`
	Model  string `yaml:"model"`
}

// IntakeConfig controls transcript handling and the notification delay window.
type IntakeConfig struct {
	MaxTranscriptChars int    `yaml:"max_transcript_chars"`
	MinDelaySec        int    `yaml:"min_delay_sec"`
	MaxDelaySec        int    `yaml:"max_delay_sec"`
	DataDir            string `yaml:"data_dir"`
}

// MailConfig holds the email transports. SendGrid is preferred, SMTP is the fallback.
type MailConfig struct {
	SendGridAPIKey  string     `yaml:"sendgrid_api_key"`
	SendGridSandbox bool       `yaml:"sendgrid_sandbox"`
	FromEmail       string     `yaml:"from_email"`
	FromName        string     `yaml:"from_name"`
	ReplyTo         string     `yaml:"reply_to"`
	SMTP            SMTPConfig `yaml:"smtp"`
}

// SMTPConfig holds SMTP relay settings.
type SMTPConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	TLS      *bool  `yaml:"tls"`
}

// MirrorConfig holds chat webhooks that receive a copy of each delivery notice.
type MirrorConfig struct {
	SlackWebhookURL     string `yaml:"slack_webhook_url"`
	DiscordWebhookID    string `yaml:"discord_webhook_id"`
	DiscordWebhookToken string `yaml:"discord_webhook_token"`
}

// DatabaseConfig selects the profile store. An empty driver disables it.
type DatabaseConfig struct {
	Driver   string `yaml:"driver"` // "", "sqlite", "mysql"
	DSN      string `yaml:"dsn"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
}

// StorageConfig selects where raw transcripts are written.
type StorageConfig struct {
	GCSBucket string `yaml:"gcs_bucket"`
}

// NotifierConfig sizes the delayed-notification pool.
type NotifierConfig struct {
	Workers       int    `yaml:"workers"`
	MaxPending    int    `yaml:"max_pending"`
	StatsSchedule string `yaml:"stats_schedule"`
}

// LogConfig controls logging output.
type LogConfig struct {
	Level string `yaml:"level"`
}

// Load reads a YAML config file from path, applies environment overrides and
// returns a validated Config. When optional is true a missing file is not an
// error and the config is built from defaults and environment alone.
func Load(path string, optional bool) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if optional && errors.Is(err, fs.ErrNotExist) {
			data = nil
		} else {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	}
	return parse(data, os.LookupEnv)
}

// Parse unmarshals YAML bytes into a validated Config, applying overrides
// from the process environment.
func Parse(data []byte) (*Config, error) {
	return parse(data, os.LookupEnv)
}

func parse(data []byte, lookup func(string) (string, bool)) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	if err := cfg.applyEnv(lookup); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// devOrigins are always allowed unless allowed_origins is set explicitly.
var devOrigins = []string{"http://localhost:3000", "http://localhost:5173"}

// applyDefaults fills in derived and default values.
func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 5000
	}
	c.Server.PublicBaseURL = strings.TrimRight(c.Server.PublicBaseURL, "/")
	if len(c.Server.AllowedOrigins) == 0 {
		if origin := strings.TrimRight(c.Server.FrontendOrigin, "/"); origin != "" {
			c.Server.AllowedOrigins = append(c.Server.AllowedOrigins, origin)
		}
		c.Server.AllowedOrigins = append(c.Server.AllowedOrigins, devOrigins...)
	}
	if c.Gemini.Model == "" {
		c.Gemini.Model = "gemini-2.0-flash"
	}
	if c.Intake.MaxTranscriptChars == 0 {
		c.Intake.MaxTranscriptChars = 20000
	}
	if c.Intake.MinDelaySec == 0 {
		c.Intake.MinDelaySec = 10
	}
	if c.Intake.MaxDelaySec == 0 {
		c.Intake.MaxDelaySec = 30
	}
	if c.Intake.DataDir == "" {
		c.Intake.DataDir = "data"
	}
	if c.Mail.FromEmail == "" {
		c.Mail.FromEmail = "info@example.com"
	}
	if c.Mail.FromName == "" {
		c.Mail.FromName = "AI Voice Coach"
	}
	if c.Mail.SMTP.Port == 0 {
		c.Mail.SMTP.Port = 587
	}
	if c.Mail.SMTP.TLS == nil {
		tls := true
		c.Mail.SMTP.TLS = &tls
	}
	if c.Database.Driver == "mysql" && c.Database.Port == 0 {
		c.Database.Port = 3306
	}
	if c.Notifier.Workers == 0 {
		c.Notifier.Workers = 4
	}
	if c.Notifier.MaxPending == 0 {
		c.Notifier.MaxPending = 1024
	}
	if c.Notifier.StatsSchedule == "" {
		c.Notifier.StatsSchedule = "*/5 * * * *"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

// validate checks that all fields are present and consistent.
func (c *Config) validate() error {
	var errs []string
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server.port %d out of range", c.Server.Port))
	}
	if c.Intake.MaxTranscriptChars < 0 {
		errs = append(errs, "intake.max_transcript_chars must be positive")
	}
	if c.Intake.MinDelaySec < 1 {
		errs = append(errs, "intake.min_delay_sec must be at least 1")
	}
	if c.Intake.MaxDelaySec < c.Intake.MinDelaySec {
		errs = append(errs, "intake.max_delay_sec must not be less than intake.min_delay_sec")
	}
	switch c.Database.Driver {
	case "":
	case "sqlite":
		if c.Database.DSN == "" {
			errs = append(errs, "database.dsn is required for sqlite")
		}
	case "mysql":
		if c.Database.DSN == "" && c.Database.Name == "" {
			errs = append(errs, "database.dsn or database.name is required for mysql")
		}
	default:
		errs = append(errs, fmt.Sprintf("database.driver %q is not supported", c.Database.Driver))
	}
	if c.Notifier.Workers < 1 {
		errs = append(errs, "notifier.workers must be at least 1")
	}
	if c.Notifier.MaxPending < 1 {
		errs = append(errs, "notifier.max_pending must be at least 1")
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

// SMTPEnabled reports whether the SMTP fallback has enough settings to be used.
func (m MailConfig) SMTPEnabled() bool {
	return m.SMTP.Host != "" && m.SMTP.User != "" && m.SMTP.Password != ""
}

// PersistenceConfigured reports whether a profile store is configured.
func (d DatabaseConfig) PersistenceConfigured() bool {
	return d.Driver != ""
}
