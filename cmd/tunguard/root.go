package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for tunguard.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tunguard",
		Short: "Audit exposed tunnels for prohibited content",
		Long: `tunguard audits the publicly exposed tunnels of a reverse-tunnel admin system.

It pages through the admin API, probes every tunnel that may serve web
content, flags prohibited keywords and unverified bound domains, and
writes a timestamped spreadsheet report.

The admin token is read from TUNGUARD_TOKEN (or a .env file) or entered
at a masked prompt.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")

	cmd.AddCommand(NewAuditCmd())
	cmd.AddCommand(NewVerifyCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
