package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/abczzz13/cloudflareip"
)

func newRangesCmd() *cobra.Command {
	var fallbackOnly, refresh bool

	cmd := &cobra.Command{
		Use:   "ranges",
		Short: "Print the trusted Cloudflare ranges, one CIDR per line",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if fallbackOnly {
				_, err := fmt.Fprintln(cmd.OutOrStdout(), cloudflareip.FallbackRanges())
				return err
			}

			cfg, err := loadEnvConfig()
			if err != nil {
				return err
			}

			cache, err := newRangeCache(cfg)
			if err != nil {
				return err
			}
			defer cache.close()

			provider, err := newProvider(cfg, cache, newLogger(cmd), nil)
			if err != nil {
				return err
			}

			var set *cloudflareip.RangeSet
			if refresh {
				set = provider.Refresh(cmd.Context())
			} else {
				set = provider.CurrentRanges(cmd.Context())
			}

			_, err = fmt.Fprintln(cmd.OutOrStdout(), set)
			return err
		},
	}

	cmd.Flags().BoolVar(&fallbackOnly, "fallback", false, "print the built-in fallback ranges without fetching")
	cmd.Flags().BoolVar(&refresh, "refresh", false, "bypass the cache and fetch the lists again")

	return cmd
}
