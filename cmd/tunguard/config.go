package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nao1215/tunguard/internal/config"
)

// defaultEnvFile is the dotenv file read before the TUNGUARD_* variables.
const defaultEnvFile = ".env"

// addConnectionFlags registers the flags shared by audit and verify.
func addConnectionFlags(cmd *cobra.Command) {
	cmd.Flags().String("api", "",
		"Admin API endpoint listing tunnels (e.g. https://frp.example.com/api/v1/admin/proxies?status=online)")
	cmd.Flags().String("token", "",
		"Admin token (prefer TUNGUARD_TOKEN or the prompt; flags end up in shell history)")
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .tunguard.yaml, then ~/.config/tunguard/config.yaml)")
	cmd.Flags().String("env-file", defaultEnvFile,
		"dotenv file to load before reading TUNGUARD_* variables (empty to skip)")
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// buildConfig layers defaults, the config file, the environment and the
// flags that were set explicitly, in that order.
func buildConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.NewConfig()
	flags := cmd.Flags()

	var err error
	cfg.ConfigFilePath, err = flags.GetString("config")
	if err != nil {
		return nil, err
	}

	// An explicitly requested file must exist; the search path is optional.
	if path := config.FindConfigFile(cfg.ConfigFilePath); path != "" {
		f, err := config.LoadConfigFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
		cfg.ApplyFile(f)
	} else if cfg.ConfigFilePath != "" {
		return nil, fmt.Errorf("configuration file not found: %s", cfg.ConfigFilePath)
	}

	envFile, err := flags.GetString("env-file")
	if err != nil {
		return nil, err
	}
	env, err := config.LoadEnv(envFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}
	cfg.ApplyEnv(env)

	if err := applyFlags(cmd, cfg); err != nil {
		return nil, err
	}
	cfg.Verbose = getVerboseFlag(cmd)

	return cfg, nil
}

// applyFlags copies the flags the user set onto cfg. Flags that are not
// defined on cmd are skipped.
func applyFlags(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()
	changed := func(name string) bool {
		f := flags.Lookup(name)
		return f != nil && f.Changed
	}

	var err error
	if changed("api") {
		if cfg.APIBase, err = flags.GetString("api"); err != nil {
			return err
		}
	}
	if changed("token") {
		token, err := flags.GetString("token")
		if err != nil {
			return err
		}
		cfg.Token = strings.TrimSpace(token)
	}
	if changed("workers") {
		if cfg.Workers, err = flags.GetInt("workers"); err != nil {
			return err
		}
	}
	if changed("timeout") {
		if cfg.Timeout, err = flags.GetDuration("timeout"); err != nil {
			return err
		}
	}
	if changed("max-errors") {
		if cfg.ErrorCeiling, err = flags.GetInt("max-errors"); err != nil {
			return err
		}
	}
	if changed("format") {
		if cfg.ReportFormat, err = flags.GetString("format"); err != nil {
			return err
		}
	}
	if changed("output-dir") {
		if cfg.OutputDir, err = flags.GetString("output-dir"); err != nil {
			return err
		}
	}
	if changed("pause") {
		if cfg.PauseOnExit, err = flags.GetBool("pause"); err != nil {
			return err
		}
	}
	return nil
}
