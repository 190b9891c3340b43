package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"github.com/abczzz13/cloudflareip"
	cfprom "github.com/abczzz13/cloudflareip/prometheus"
)

func newServeCmd() *cobra.Command {
	var listen string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve an echo endpoint that reports the resolved client IP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadEnvConfig()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("listen") {
				cfg.Listen = listen
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return serve(ctx, cmd, cfg)
		},
	}

	cmd.Flags().StringVar(&listen, "listen", ":8080", "listen address, overrides CFIP_LISTEN")

	return cmd
}

func serve(ctx context.Context, cmd *cobra.Command, cfg envConfig) error {
	logger := newLogger(cmd)

	registry := prom.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())

	metrics, err := cfprom.NewWithRegisterer(registry)
	if err != nil {
		return err
	}

	cache, err := newRangeCache(cfg)
	if err != nil {
		return err
	}
	defer cache.close()
	if cache.memory != nil {
		registry.MustRegister(cfprom.NewCacheCollector(cache.memory, "cfip_"))
	}

	provider, err := newProvider(cfg, cache, logger, metrics)
	if err != nil {
		return err
	}
	go provider.CurrentRanges(ctx)

	scheduler := cron.New()
	if _, err := scheduler.AddFunc(cfg.RefreshSchedule, scheduledUpdate(ctx, provider, logger)); err != nil {
		return err
	}
	scheduler.Start()
	defer scheduler.Stop()

	resolver, err := cloudflareip.New(
		cloudflareip.WithRangeSource(provider),
		cloudflareip.WithSpoofCheck(cfg.SpoofCheck),
		cloudflareip.WithLogger(logger),
		cloudflareip.WithMetrics(metrics),
	)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           routes(resolver, registry),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.InfoContext(ctx, "listening", "addr", cfg.Listen)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// scheduledUpdate re-reads the ranges through the cache, so the network is
// only hit once CFIP_CACHE_TTL has passed for a family.
func scheduledUpdate(ctx context.Context, provider *cloudflareip.RangeProvider, logger *slog.Logger) func() {
	return func() {
		set := provider.Update(ctx)
		logger.InfoContext(ctx, "trusted ranges updated", "ranges", set.Len())
	}
}

func routes(resolver *cloudflareip.Resolver, registry *prom.Registry) http.Handler {
	mux := chi.NewRouter()
	mux.Use(middleware.Recoverer)

	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	mux.Group(func(r chi.Router) {
		r.Use(resolver.Middleware)
		r.Get("/", echoResolution)
	})

	return mux
}

type resolutionResponse struct {
	IP                 string   `json:"ip"`
	RemoteAddr         string   `json:"remote_addr"`
	Result             string   `json:"result"`
	FromTrustedNetwork bool     `json:"from_trusted_network"`
	TrustedProxies     []string `json:"trusted_proxies"`
}

func echoResolution(w http.ResponseWriter, r *http.Request) {
	resolution, ok := cloudflareip.ResolutionFromContext(r.Context())
	if !ok {
		http.Error(w, "client address unavailable", http.StatusBadRequest)
		return
	}

	resp := resolutionResponse{
		IP:                 resolution.IP.String(),
		RemoteAddr:         resolution.RemoteAddr.String(),
		Result:             resolution.Result,
		FromTrustedNetwork: resolution.FromTrustedNetwork,
		TrustedProxies:     make([]string, 0, len(resolution.TrustedProxies)),
	}
	for _, proxy := range resolution.TrustedProxies {
		resp.TrustedProxies = append(resp.TrustedProxies, proxy.String())
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}
