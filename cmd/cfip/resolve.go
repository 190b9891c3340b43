package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/abczzz13/cloudflareip"
)

func newResolveCmd() *cobra.Command {
	var (
		peer         string
		clientIP     []string
		forwardedFor []string
		live         bool
		noSpoofCheck bool
	)

	cmd := &cobra.Command{
		Use:   "resolve",
		Short: "Resolve the client IP of one request",
		Example: `  cfip resolve --peer 127.0.0.1 --forwarded-for "1.2.3.4, 197.234.240.1"
  cfip resolve --peer 197.234.240.1 --client-ip 9.9.9.9 --forwarded-for 1.2.3.4`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger := newLogger(cmd)
			opts := []cloudflareip.Option{
				cloudflareip.WithLogger(logger),
				cloudflareip.WithSpoofCheck(!noSpoofCheck),
			}

			if live {
				cfg, err := loadEnvConfig()
				if err != nil {
					return err
				}
				cache, err := newRangeCache(cfg)
				if err != nil {
					return err
				}
				defer cache.close()

				provider, err := newProvider(cfg, cache, logger, nil)
				if err != nil {
					return err
				}
				provider.CurrentRanges(cmd.Context())
				opts = append(opts, cloudflareip.WithRangeSource(provider))
			}

			resolver, err := cloudflareip.New(opts...)
			if err != nil {
				return err
			}

			resolution, err := resolver.Resolve(cmd.Context(), peer, clientIP, forwardedFor)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "ip:                   %s\n", resolution.IP)
			fmt.Fprintf(out, "result:               %s\n", resolution.Result)
			fmt.Fprintf(out, "from trusted network: %t\n", resolution.FromTrustedNetwork)
			fmt.Fprintf(out, "trusted proxies:      %v\n", resolution.TrustedProxies)
			return nil
		},
	}

	cmd.Flags().StringVar(&peer, "peer", "", "socket peer address (REMOTE_ADDR)")
	cmd.Flags().StringArrayVar(&clientIP, "client-ip", nil, "Client-Ip header value, repeatable")
	cmd.Flags().StringArrayVar(&forwardedFor, "forwarded-for", nil, "X-Forwarded-For header value, repeatable")
	cmd.Flags().BoolVar(&live, "live", false, "fetch the current ranges instead of using the built-in fallback")
	cmd.Flags().BoolVar(&noSpoofCheck, "no-spoof-check", false, "skip the Client-Ip versus X-Forwarded-For check")

	return cmd
}
