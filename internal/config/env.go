package config

import (
	"fmt"
	"strconv"
	"strings"
)

// applyEnv overrides file values with environment variables. Names follow the
// deployment conventions of the frontend's hosting environment.
func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	var errs []string

	str := func(dst *string, names ...string) {
		for _, name := range names {
			if v, ok := lookup(name); ok && strings.TrimSpace(v) != "" {
				*dst = strings.TrimSpace(v)
				return
			}
		}
	}
	num := func(dst *int, name string) {
		v, ok := lookup(name)
		if !ok || strings.TrimSpace(v) == "" {
			return
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			errs = append(errs, fmt.Sprintf("%s must be an integer", name))
			return
		}
		*dst = n
	}
	flag := func(name string) (bool, bool) {
		v, ok := lookup(name)
		if !ok || strings.TrimSpace(v) == "" {
			return false, false
		}
		return strings.EqualFold(strings.TrimSpace(v), "true"), true
	}

	num(&c.Server.Port, "PORT")
	str(&c.Server.PublicBaseURL, "PUBLIC_BASE_URL")
	str(&c.Server.FrontendOrigin, "FRONTEND_ORIGIN")
	str(&c.Server.StaticDir, "STATIC_DIR")

	str(&c.Eleven.APIKey, "ELEVEN_API_KEY")
	str(&c.Eleven.AgentID, "AGENT_ID", "ELEVEN_AGENT_ID")
	str(&c.Eleven.TokenURL, "ELEVEN_TOKEN_URL")

	str(&c.Gemini.APIKey, "GEMINI_API_KEY")
	str(&c.Gemini.Model, "GEMINI_MODEL")

	num(&c.Intake.MaxTranscriptChars, "MAX_TRANSCRIPT_CHARS")
	str(&c.Intake.DataDir, "DATA_DIR")

	str(&c.Mail.SendGridAPIKey, "SENDGRID_API_KEY")
	if v, ok := flag("SENDGRID_SANDBOX"); ok {
		c.Mail.SendGridSandbox = v
	}
	str(&c.Mail.FromEmail, "FROM_EMAIL")
	str(&c.Mail.FromName, "FROM_NAME")
	str(&c.Mail.ReplyTo, "REPLY_TO")
	str(&c.Mail.SMTP.Host, "SMTP_HOST")
	num(&c.Mail.SMTP.Port, "SMTP_PORT")
	str(&c.Mail.SMTP.User, "SMTP_USER")
	str(&c.Mail.SMTP.Password, "SMTP_PASSWORD")
	if v, ok := flag("SMTP_TLS"); ok {
		c.Mail.SMTP.TLS = &v
	}

	str(&c.Mirrors.SlackWebhookURL, "SLACK_WEBHOOK_URL")
	str(&c.Mirrors.DiscordWebhookID, "DISCORD_WEBHOOK_ID")
	str(&c.Mirrors.DiscordWebhookToken, "DISCORD_WEBHOOK_TOKEN")

	str(&c.Database.Driver, "DATABASE_DRIVER")
	str(&c.Database.DSN, "DATABASE_DSN")

	str(&c.Storage.GCSBucket, "GCS_BUCKET")
	str(&c.Log.Level, "LOG_LEVEL")

	if len(errs) > 0 {
		return fmt.Errorf("config: environment: %s", strings.Join(errs, "; "))
	}
	return nil
}
