package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/NBMedia786/chabot/internal/errs"
)

func newTokenCmd() *cobra.Command {
	var (
		configPath string
		name       string
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Fetch a conversation token from the voice-agent upstream",
		Long:  "Fetches a token the same way GET /conversation-token does and prints it. On failure every attempted endpoint is listed.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runToken(cmd, configPath, name)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "chabot.yaml", "path to config file (optional)")
	cmd.Flags().StringVar(&name, "name", "", "participant name to personalize the session")
	return cmd
}

func runToken(cmd *cobra.Command, configPath, name string) error {
	out := cmd.OutOrStdout()

	ctx, cfg, err := loadConfig(configPath, cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	tok, err := newTokenService(cfg, nil).Token(ctx, strings.TrimSpace(name))
	if err != nil {
		var upstream *errs.UpstreamExhaustedError
		if errors.As(err, &upstream) {
			for _, a := range upstream.Attempts {
				fmt.Fprintf(out, "%-4s %s  status=%d error=%s\n", a.Method, a.Endpoint, a.Status, a.Error)
			}
		}
		return err
	}
	fmt.Fprintln(out, tok)
	return nil
}
