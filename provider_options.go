package cloudflareip

import (
	"fmt"
	"net/netip"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/abczzz13/cloudflareip/rangecache"
)

// ProviderOption configures a RangeProvider.
type ProviderOption func(*providerConfig) error

type providerConfig struct {
	cache          Cache
	cacheSet       bool
	cacheTTL       time.Duration
	cacheKeyPrefix string

	fetcher      RangeFetcher
	httpClient   *retryablehttp.Client
	baseURL      string
	fetchTimeout time.Duration
	retryMax     int

	fallback *RangeSet

	logger  Logger
	metrics Metrics

	closeCache func()
}

func defaultProviderConfig() *providerConfig {
	return &providerConfig{
		cacheTTL:       DefaultCacheTTL,
		cacheKeyPrefix: DefaultCacheKeyPrefix,
		baseURL:        DefaultBaseURL,
		fetchTimeout:   DefaultFetchTimeout,
		retryMax:       DefaultRetryMax,
		fallback:       FallbackRanges(),
		logger:         noopLogger{},
		metrics:        noopMetrics{},
	}
}

func providerConfigFromOptions(opts ...ProviderOption) (*providerConfig, error) {
	cfg := defaultProviderConfig()

	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, fmt.Errorf("invalid configuration: %w", err)
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	if cfg.fetcher == nil {
		client := cfg.httpClient
		if client == nil {
			// *slog.Logger satisfies LeveledLogger, so retries get logged too.
			leveled, _ := cfg.logger.(retryablehttp.LeveledLogger)
			client = newResilientClient(cfg.fetchTimeout, cfg.retryMax, leveled)
		}
		cfg.fetcher = NewHTTPFetcher(client, cfg.baseURL)
	}

	if !cfg.cacheSet {
		memory, err := rangecache.NewMemory()
		if err != nil {
			return nil, err
		}
		cfg.cache = memory
		cfg.closeCache = memory.Close
	}

	return cfg, nil
}

func (c *providerConfig) validate() error {
	if c.cacheTTL < 0 {
		return fmt.Errorf("cache TTL must be >= 0, got %s", c.cacheTTL)
	}
	if c.fetchTimeout <= 0 {
		return fmt.Errorf("fetch timeout must be > 0, got %s", c.fetchTimeout)
	}
	if c.retryMax < 0 {
		return fmt.Errorf("retry max must be >= 0, got %d", c.retryMax)
	}
	if c.cacheSet && isNilInterface(c.cache) {
		return errNilCache
	}
	if c.fallback.Len() == 0 {
		return fmt.Errorf("fallback ranges cannot be empty")
	}
	if isNilLogger(c.logger) {
		return fmt.Errorf("logger cannot be nil")
	}
	if isNilMetrics(c.metrics) {
		return fmt.Errorf("metrics cannot be nil")
	}
	return nil
}

// WithCache sets the cache used to memoize fetched lists.
func WithCache(cache Cache) ProviderOption {
	return func(c *providerConfig) error {
		c.cache = cache
		c.cacheSet = true
		c.closeCache = nil
		return nil
	}
}

// WithoutCache disables caching; every computation fetches.
func WithoutCache() ProviderOption {
	return WithCache(noopCache{})
}

// WithCacheTTL sets how long fetched lists stay cached.
func WithCacheTTL(ttl time.Duration) ProviderOption {
	return func(c *providerConfig) error {
		c.cacheTTL = ttl
		return nil
	}
}

// WithCacheKeyPrefix sets the prefix of the per-family cache keys.
func WithCacheKeyPrefix(prefix string) ProviderOption {
	return func(c *providerConfig) error {
		c.cacheKeyPrefix = prefix
		return nil
	}
}

// WithFetchTimeout bounds each HTTP attempt of a fetch. Ignored when
// WithHTTPClient or WithFetcher is used.
func WithFetchTimeout(timeout time.Duration) ProviderOption {
	return func(c *providerConfig) error {
		c.fetchTimeout = timeout
		return nil
	}
}

// WithRetryMax sets how many times a failed fetch attempt is retried. Ignored
// when WithHTTPClient or WithFetcher is used.
func WithRetryMax(retryMax int) ProviderOption {
	return func(c *providerConfig) error {
		c.retryMax = retryMax
		return nil
	}
}

// WithBaseURL sets the origin serving the ips-v4 and ips-v6 lists.
func WithBaseURL(baseURL string) ProviderOption {
	return func(c *providerConfig) error {
		if baseURL == "" {
			return fmt.Errorf("base URL cannot be empty")
		}
		c.baseURL = baseURL
		return nil
	}
}

// WithHTTPClient sets the retrying HTTP client used by the default fetcher.
func WithHTTPClient(client *retryablehttp.Client) ProviderOption {
	return func(c *providerConfig) error {
		if client == nil {
			return fmt.Errorf("http client cannot be nil")
		}
		c.httpClient = client
		return nil
	}
}

// WithFetcher replaces the HTTP fetcher entirely.
func WithFetcher(fetcher RangeFetcher) ProviderOption {
	return func(c *providerConfig) error {
		if isNilInterface(fetcher) {
			return fmt.Errorf("fetcher cannot be nil")
		}
		c.fetcher = fetcher
		return nil
	}
}

// WithFallbackRanges replaces the built-in fallback set.
func WithFallbackRanges(prefixes ...netip.Prefix) ProviderOption {
	prefixes = clonePrefixes(prefixes)

	return func(c *providerConfig) error {
		for _, prefix := range prefixes {
			if !prefix.IsValid() {
				return fmt.Errorf("invalid fallback prefix %q", prefix)
			}
		}
		c.fallback = NewRangeSet(prefixes...)
		return nil
	}
}

// WithProviderLogger sets the logger used for fetch and cache failures.
func WithProviderLogger(logger Logger) ProviderOption {
	return func(c *providerConfig) error {
		c.logger = logger
		return nil
	}
}

// WithProviderMetrics sets the metrics implementation for refresh outcomes.
func WithProviderMetrics(metrics Metrics) ProviderOption {
	return func(c *providerConfig) error {
		c.metrics = metrics
		return nil
	}
}
