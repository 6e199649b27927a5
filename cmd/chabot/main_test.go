package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/NBMedia786/chabot/internal/notify"
)

// clearEnv blanks every variable the config layer reads so tests only see
// their own settings.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, name := range []string{
		"ELEVEN_API_KEY", "AGENT_ID", "ELEVEN_AGENT_ID", "ELEVEN_TOKEN_URL",
		"GEMINI_API_KEY", "SENDGRID_API_KEY", "SMTP_HOST", "SMTP_USER", "SMTP_PASSWORD",
		"SLACK_WEBHOOK_URL", "DISCORD_WEBHOOK_ID", "DISCORD_WEBHOOK_TOKEN",
		"DATABASE_DRIVER", "DATABASE_DSN", "GCS_BUCKET", "PORT",
	} {
		t.Setenv(name, "")
	}
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "chabot.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestVersionCmd(t *testing.T) {
	out, err := run(t, "version")
	if err != nil {
		t.Fatalf("version command failed: %v", err)
	}
	if !strings.Contains(out, "chabot dev") {
		t.Errorf("expected output to contain 'chabot dev', got: %s", out)
	}
	if !strings.Contains(out, "commit: none") {
		t.Errorf("expected output to contain 'commit: none', got: %s", out)
	}
}

func TestVersionCmdWithCustomValues(t *testing.T) {
	origVersion, origCommit, origDate := Version, Commit, Date
	Version, Commit, Date = "1.0.0", "abc123", "2026-01-01"
	defer func() { Version, Commit, Date = origVersion, origCommit, origDate }()

	out, err := run(t, "version")
	if err != nil {
		t.Fatalf("version command failed: %v", err)
	}
	if !strings.Contains(out, "chabot 1.0.0") || !strings.Contains(out, "built: 2026-01-01") {
		t.Errorf("unexpected output: %s", out)
	}
}

func TestRootCmdHelp(t *testing.T) {
	out, err := run(t, "--help")
	if err != nil {
		t.Fatalf("help failed: %v", err)
	}
	for _, sub := range []string{"serve", "migrate", "email-test", "token", "version"} {
		if !strings.Contains(out, sub) {
			t.Errorf("help should list %q, got: %s", sub, out)
		}
	}
}

func TestMigrate_SQLite(t *testing.T) {
	clearEnv(t)
	dsn := filepath.Join(t.TempDir(), "profiles.db")
	cfgPath := writeConfig(t, "database:\n  driver: sqlite\n  dsn: "+dsn+"\n")

	out, err := run(t, "migrate", "--config", cfgPath)
	if err != nil {
		t.Fatalf("migrate failed: %v\n%s", err, out)
	}
	if !strings.Contains(out, "Migrated 1 tables") {
		t.Errorf("unexpected output: %s", out)
	}
	if _, err := os.Stat(dsn); err != nil {
		t.Errorf("database file not created: %v", err)
	}
}

func TestMigrate_NoDatabase(t *testing.T) {
	clearEnv(t)
	_, err := run(t, "migrate", "--config", filepath.Join(t.TempDir(), "absent.yaml"))
	if err == nil || !strings.Contains(err.Error(), "no database configured") {
		t.Fatalf("err = %v, want no database configured", err)
	}
}

func TestEmailTest_RequiresTo(t *testing.T) {
	_, err := run(t, "email-test")
	if err == nil || !strings.Contains(err.Error(), "--to is required") {
		t.Fatalf("err = %v, want --to is required", err)
	}
}

func TestEmailTest_NoTransport(t *testing.T) {
	clearEnv(t)
	out, err := run(t, "email-test", "--to", "a@b.co", "--config", filepath.Join(t.TempDir(), "absent.yaml"))
	if err == nil {
		t.Fatal("expected error without transports")
	}
	if !strings.Contains(out, "ok: false") {
		t.Errorf("output = %q, want ok: false", out)
	}
}

func TestToken_MissingCredentials(t *testing.T) {
	clearEnv(t)
	_, err := run(t, "token", "--config", filepath.Join(t.TempDir(), "absent.yaml"))
	if err == nil || !strings.Contains(err.Error(), "ELEVEN_API_KEY") {
		t.Fatalf("err = %v, want missing ELEVEN_API_KEY", err)
	}
}

func TestNewMailer_Composition(t *testing.T) {
	clearEnv(t)
	ctx, cfg, err := loadConfig(writeConfig(t, `
mail:
  sendgrid_api_key: SG.x
  smtp:
    host: smtp.example.com
    user: u
    password: p
mirrors:
  slack_webhook_url: https://hooks.slack.test/x
`), new(bytes.Buffer))
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}

	mirror, ok := newMailer(ctx, cfg).(notify.Mirror)
	if !ok {
		t.Fatalf("mailer should be a Mirror when a chat mirror is configured")
	}
	chain, ok := mirror.Primary.(notify.Chain)
	if !ok || len(chain) != 2 {
		t.Fatalf("primary = %#v, want a 2-sender chain", mirror.Primary)
	}
	if _, ok := chain[0].(*notify.SendGrid); !ok {
		t.Errorf("first transport should be SendGrid, got %T", chain[0])
	}
	if _, ok := chain[1].(*notify.SMTP); !ok {
		t.Errorf("second transport should be SMTP, got %T", chain[1])
	}
	if len(mirror.Mirrors) != 1 {
		t.Errorf("mirrors = %d, want 1", len(mirror.Mirrors))
	}
}
