package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/NBMedia786/chabot/internal/notify"
)

func newEmailTestCmd() *cobra.Command {
	var (
		configPath string
		to         string
	)

	cmd := &cobra.Command{
		Use:   "email-test",
		Short: "Send a test email through the configured transports",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEmailTest(cmd, configPath, to)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "chabot.yaml", "path to config file (optional)")
	cmd.Flags().StringVar(&to, "to", "", "recipient address (required)")
	return cmd
}

func runEmailTest(cmd *cobra.Command, configPath, to string) error {
	to = strings.TrimSpace(to)
	if to == "" {
		return fmt.Errorf("--to is required")
	}

	ctx, cfg, err := loadConfig(configPath, cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	if err := newMailer(ctx, cfg).Send(ctx, notify.TestMessage(to)); err != nil {
		fmt.Fprintln(cmd.OutOrStdout(), "ok: false")
		return fmt.Errorf("send test email: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), "ok: true")
	return nil
}
