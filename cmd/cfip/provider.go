package main

import (
	"log/slog"

	"github.com/abczzz13/cloudflareip"
	"github.com/abczzz13/cloudflareip/rangecache"
)

// rangeCache is what newProvider hands to the provider, plus a closer.
type rangeCache struct {
	cache  cloudflareip.Cache
	memory *rangecache.Memory
	close  func() error
}

func newRangeCache(cfg envConfig) (*rangeCache, error) {
	if cfg.RedisAddr != "" {
		pool := rangecache.NewPool(cfg.RedisAddr)
		return &rangeCache{
			cache: rangecache.NewRedis(pool, ""),
			close: pool.Close,
		}, nil
	}

	memory, err := rangecache.NewMemory()
	if err != nil {
		return nil, err
	}
	return &rangeCache{
		cache:  memory,
		memory: memory,
		close: func() error {
			memory.Close()
			return nil
		},
	}, nil
}

func newProvider(cfg envConfig, cache *rangeCache, logger *slog.Logger, metrics cloudflareip.Metrics) (*cloudflareip.RangeProvider, error) {
	opts := []cloudflareip.ProviderOption{
		cloudflareip.WithCache(cache.cache),
		cloudflareip.WithCacheTTL(cfg.CacheTTL),
		cloudflareip.WithFetchTimeout(cfg.FetchTimeout),
		cloudflareip.WithBaseURL(cfg.BaseURL),
		cloudflareip.WithProviderLogger(logger),
	}
	if metrics != nil {
		opts = append(opts, cloudflareip.WithProviderMetrics(metrics))
	}

	return cloudflareip.NewRangeProvider(opts...)
}
