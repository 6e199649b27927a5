package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/NBMedia786/chabot/internal/blueprint"
	"github.com/NBMedia786/chabot/internal/intake"
	"github.com/NBMedia786/chabot/internal/logging"
	"github.com/NBMedia786/chabot/internal/metrics"
	"github.com/NBMedia786/chabot/internal/notify"
	"github.com/NBMedia786/chabot/internal/server"
	"github.com/NBMedia786/chabot/internal/summarize"
	"github.com/NBMedia786/chabot/internal/transcript"
)

func newServeCmd() *cobra.Command {
	var (
		configPath string
		port       int
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP gateway",
		Long:  "Serves conversation tokens, session uploads, blueprint pages, and profile updates.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, configPath, port)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "chabot.yaml", "path to config file (optional)")
	cmd.Flags().IntVarP(&port, "port", "p", 0, "port to listen on (overrides config and PORT)")
	return cmd
}

func runServe(cmd *cobra.Command, configPath string, port int) error {
	ctx, cfg, err := loadConfig(configPath, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	if port > 0 {
		cfg.Server.Port = port
	}
	log := logging.From(ctx)
	logStartup(log, cfg)

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(registry)

	summarizer, err := summarize.New(ctx, cfg.Gemini.APIKey, cfg.Gemini.Model, m)
	if err != nil {
		return fmt.Errorf("summarizer: %w", err)
	}

	store, closeStore, err := newTranscriptStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("transcript store: %w", err)
	}
	defer closeStore()

	profiles, closeProfiles, err := openProfiles(ctx, cfg)
	if err != nil {
		return fmt.Errorf("profile store: %w", err)
	}
	defer closeProfiles()

	mailer := newMailer(ctx, cfg)
	pool := notify.NewPool(notify.PoolOpts{
		Sender:     mailer,
		Workers:    cfg.Notifier.Workers,
		MaxPending: cfg.Notifier.MaxPending,
		Metrics:    m,
	})
	defer pool.Close()

	writer := transcript.NewWriter(store, m)
	defer writer.Wait()

	blueprints := blueprint.NewMemoryStore()
	intakeSvc := intake.NewService(intake.ServiceOpts{
		Blueprints:         blueprints,
		Summarizer:         summarizer,
		Transcripts:        writer,
		Scheduler:          pool,
		Metrics:            m,
		PublicBaseURL:      cfg.Server.PublicBaseURL,
		MaxTranscriptChars: cfg.Intake.MaxTranscriptChars,
		MinDelaySec:        cfg.Intake.MinDelaySec,
		MaxDelaySec:        cfg.Intake.MaxDelaySec,
	})

	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()
	go func() {
		<-ctx.Done()
		fmt.Fprintln(cmd.OutOrStdout(), "\nShutting down...")
	}()

	go notify.RunStatsReporter(ctx, cfg.Notifier.StatsSchedule, pool)

	return server.Start(ctx, server.StartOpts{
		Deps: server.Deps{
			Tokens:         newTokenService(cfg, m),
			Intake:         intakeSvc,
			Blueprints:     blueprints,
			Profiles:       profiles,
			Mailer:         mailer,
			Gatherer:       registry,
			AllowedOrigins: cfg.Server.AllowedOrigins,
			StaticDir:      cfg.Server.StaticDir,
		},
		Port: cfg.Server.Port,
		Out:  cmd.OutOrStdout(),
	})
}
