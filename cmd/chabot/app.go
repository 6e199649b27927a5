package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"google.golang.org/api/option"

	"github.com/NBMedia786/chabot/internal/config"
	"github.com/NBMedia786/chabot/internal/db"
	"github.com/NBMedia786/chabot/internal/logging"
	"github.com/NBMedia786/chabot/internal/metrics"
	"github.com/NBMedia786/chabot/internal/notify"
	"github.com/NBMedia786/chabot/internal/profile"
	"github.com/NBMedia786/chabot/internal/token"
	"github.com/NBMedia786/chabot/internal/transcript"
)

// loadConfig reads the optional config file and installs the configured
// logger as the default. The returned context carries that logger.
func loadConfig(configPath string, logOut io.Writer) (context.Context, *config.Config, error) {
	cfg, err := config.Load(configPath, true)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	logger := logging.New(cfg.Log.Level, logOut)
	logging.SetDefault(logger)
	return logging.With(context.Background(), logger), cfg, nil
}

// newMailer builds the email chain (SendGrid, then SMTP) and wraps it with
// any configured chat mirrors.
func newMailer(ctx context.Context, cfg *config.Config) notify.Sender {
	log := logging.From(ctx)
	from := notify.Address{Email: cfg.Mail.FromEmail, Name: cfg.Mail.FromName}

	var chain notify.Chain
	if cfg.Mail.SendGridAPIKey != "" {
		sg, err := notify.NewSendGrid(notify.SendGridOpts{
			APIKey:  cfg.Mail.SendGridAPIKey,
			From:    from,
			ReplyTo: cfg.Mail.ReplyTo,
			Sandbox: cfg.Mail.SendGridSandbox,
		})
		if err != nil {
			log.Warn("sendgrid disabled", "error", err)
		} else {
			chain = append(chain, sg)
		}
	}
	if cfg.Mail.SMTPEnabled() {
		s, err := notify.NewSMTP(notify.SMTPOpts{
			Host:     cfg.Mail.SMTP.Host,
			Port:     cfg.Mail.SMTP.Port,
			User:     cfg.Mail.SMTP.User,
			Password: cfg.Mail.SMTP.Password,
			StartTLS: cfg.Mail.SMTP.TLS == nil || *cfg.Mail.SMTP.TLS,
			From:     from,
			ReplyTo:  cfg.Mail.ReplyTo,
		})
		if err != nil {
			log.Warn("smtp disabled", "error", err)
		} else {
			chain = append(chain, s)
		}
	}

	var mirrors []notify.Sender
	if cfg.Mirrors.SlackWebhookURL != "" {
		if s, err := notify.NewSlack(cfg.Mirrors.SlackWebhookURL); err != nil {
			log.Warn("slack mirror disabled", "error", err)
		} else {
			mirrors = append(mirrors, s)
		}
	}
	if cfg.Mirrors.DiscordWebhookID != "" {
		if d, err := notify.NewDiscord(cfg.Mirrors.DiscordWebhookID, cfg.Mirrors.DiscordWebhookToken); err != nil {
			log.Warn("discord mirror disabled", "error", err)
		} else {
			mirrors = append(mirrors, d)
		}
	}

	if len(mirrors) == 0 {
		return chain
	}
	return notify.Mirror{Primary: chain, Mirrors: mirrors}
}

// newTokenService wires the token cache and fetcher.
func newTokenService(cfg *config.Config, m *metrics.Metrics) *token.Service {
	return token.NewService(token.ServiceOpts{
		Cache:    token.NewMemoryCache(),
		Upstream: token.NewFetcher(token.FetcherOpts{OverrideURL: cfg.Eleven.TokenURL}),
		AgentID:  cfg.Eleven.AgentID,
		APIKey:   cfg.Eleven.APIKey,
		Metrics:  m,
	})
}

// newTranscriptStore picks Cloud Storage when a bucket is configured and the
// local data directory otherwise.
func newTranscriptStore(ctx context.Context, cfg *config.Config) (transcript.Store, func(), error) {
	if cfg.Storage.GCSBucket == "" {
		return transcript.NewFileStore(nil, cfg.Intake.DataDir), func() {}, nil
	}
	gcs, err := transcript.NewGCSStore(ctx, cfg.Storage.GCSBucket, option.WithUserAgent("chabot/"+Version))
	if err != nil {
		return nil, nil, err
	}
	return gcs, func() { gcs.Close() }, nil
}

// openProfiles connects the profile store when a database is configured.
func openProfiles(ctx context.Context, cfg *config.Config) (*profile.Service, func(), error) {
	if !cfg.Database.PersistenceConfigured() {
		return profile.NewService(nil), func() {}, nil
	}
	gormDB, err := db.Connect(cfg.Database)
	if err != nil {
		return nil, nil, err
	}
	if err := db.AutoMigrate(gormDB); err != nil {
		return nil, nil, err
	}
	closeFn := func() {
		if sqlDB, err := gormDB.DB(); err == nil {
			sqlDB.Close()
		}
	}
	logging.From(ctx).Info("profile store ready", "driver", cfg.Database.Driver)
	return profile.NewService(db.ProfileStore{DB: gormDB}), closeFn, nil
}

// logStartup prints which integrations are enabled without revealing secrets.
func logStartup(log *slog.Logger, cfg *config.Config) {
	log.Info("configuration",
		"port", cfg.Server.Port,
		"public_base_url", cfg.Server.PublicBaseURL,
		"allowed_origins", cfg.Server.AllowedOrigins,
		"eleven_api_key_set", cfg.Eleven.APIKey != "",
		"agent_id_set", cfg.Eleven.AgentID != "",
		"token_url_override", cfg.Eleven.TokenURL != "",
		"gemini", cfg.Gemini.APIKey != "",
		"gemini_model", cfg.Gemini.Model,
		"sendgrid", cfg.Mail.SendGridAPIKey != "",
		"smtp", cfg.Mail.SMTPEnabled(),
		"slack_mirror", cfg.Mirrors.SlackWebhookURL != "",
		"discord_mirror", cfg.Mirrors.DiscordWebhookID != "",
		"database", cfg.Database.Driver,
		"gcs_bucket", cfg.Storage.GCSBucket,
	)
}
