package main

import (
	"log/slog"

	"github.com/spf13/cobra"
)

const envFileFlag = "env-file"

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "cfip",
		Short:         "Resolve client IPs behind the Cloudflare edge",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			path, err := cmd.Flags().GetString(envFileFlag)
			if err != nil {
				return err
			}
			return loadEnvFile(path, cmd.Flags().Changed(envFileFlag))
		},
	}

	cmd.PersistentFlags().String(envFileFlag, ".env", "file with CFIP_* variables to load before reading the environment")

	cmd.AddCommand(
		newRangesCmd(),
		newResolveCmd(),
		newServeCmd(),
	)

	return cmd
}

func newLogger(cmd *cobra.Command) *slog.Logger {
	return slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), nil))
}
