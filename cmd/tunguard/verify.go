package main

import (
	"fmt"

	"github.com/spf13/cobra"

	tglog "github.com/nao1215/tunguard/internal/log"
)

// NewVerifyCmd creates the verify command.
func NewVerifyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Check the admin token against the admin API",
		Long: `Verify requests a single tunnel from the admin API to confirm that the
endpoint is reachable and the admin token is accepted. Nothing is probed
and no report is written.`,
		Args: cobra.NoArgs,
		RunE: runVerifyCmd,
	}

	addConnectionFlags(cmd)
	return cmd
}

func runVerifyCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := tglog.NewSecureLogger(cmd.ErrOrStderr(), cfg.Verbose)
	p := newPrompter(cmd.InOrStdin(), cmd.OutOrStdout())

	if _, err := acquireToken(cmd.Context(), p, cfg.Token, cfg.TokenAttemptCeiling, newTokenVerifier(cfg, logger)); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "token is valid")
	return nil
}
