package cloudflareip

import (
	"context"
	"errors"
	"net/netip"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

const (
	// DefaultCacheTTL is how long a fetched range list is served from cache.
	DefaultCacheTTL = 12 * time.Hour
	// DefaultFetchTimeout bounds each HTTP attempt of a range fetch.
	DefaultFetchTimeout = 5 * time.Second
	// DefaultRetryMax is the number of retries after a failed fetch attempt.
	DefaultRetryMax = 1
	// DefaultCacheKeyPrefix prefixes the per-family cache keys.
	DefaultCacheKeyPrefix = "cloudflareip:"

	familyAll = "all"
)

// Cache memoizes fetched range lists. Implementations live in the rangecache
// package; any shared store with per-key expiry can be adapted.
//
// A missing key must be reported as ok == false with a nil error.
type Cache interface {
	Get(ctx context.Context, key string) (prefixes []netip.Prefix, ok bool, err error)
	Set(ctx context.Context, key string, prefixes []netip.Prefix, ttl time.Duration) error
}

// RangeProvider keeps the current set of trusted CDN ranges.
//
// The set is fetched per address family, memoized in a Cache with a TTL, and
// replaced atomically. When either family cannot be obtained the complete
// built-in fallback set is used instead; a partially refreshed set is never
// exposed. RangeProvider is safe for concurrent use.
type RangeProvider struct {
	cfg *providerConfig

	// snapshot is what Ranges serves: fallback until a refresh succeeds.
	snapshot atomic.Pointer[RangeSet]
	// memo is set only by a successful computation and cleared by Refresh.
	memo atomic.Pointer[RangeSet]

	group singleflight.Group
}

// NewRangeProvider creates a provider. It performs no network I/O; call
// CurrentRanges, Refresh or Start to load the live lists.
func NewRangeProvider(opts ...ProviderOption) (*RangeProvider, error) {
	cfg, err := providerConfigFromOptions(opts...)
	if err != nil {
		return nil, err
	}

	p := &RangeProvider{cfg: cfg}
	p.snapshot.Store(cfg.fallback)

	return p, nil
}

// Ranges returns the current snapshot without blocking. Before the first
// successful refresh this is the fallback set. It never returns nil.
func (p *RangeProvider) Ranges() *RangeSet {
	return p.snapshot.Load()
}

// Fallback returns the set used when the live lists are unavailable.
func (p *RangeProvider) Fallback() *RangeSet {
	return p.cfg.fallback
}

// CurrentRanges returns the memoized set, computing it through the cache when
// no successful computation has happened yet. Concurrent callers share one
// computation. On failure the fallback set is returned and nothing is
// memoized, so the next call tries again.
func (p *RangeProvider) CurrentRanges(ctx context.Context) *RangeSet {
	if set := p.memo.Load(); set != nil {
		return set
	}
	return p.compute(ctx, computeMemoized)
}

// Update recomputes the set through the cache, ignoring the memoized set.
// The network is only hit for a family whose cached list has expired, so
// calling Update on a schedule keeps the snapshot within one cache TTL of the
// published lists.
func (p *RangeProvider) Update(ctx context.Context) *RangeSet {
	return p.compute(ctx, computeCached)
}

// Refresh discards the memoized set and fetches both lists, bypassing the
// cache. Callers already holding a set are unaffected.
func (p *RangeProvider) Refresh(ctx context.Context) *RangeSet {
	p.memo.Store(nil)
	return p.compute(ctx, computeForced)
}

// Start loads the lists and then calls Update every interval until ctx is
// done. A non-positive interval defaults to the cache TTL. Start blocks; run
// it in its own goroutine.
func (p *RangeProvider) Start(ctx context.Context, interval time.Duration) {
	p.CurrentRanges(ctx)

	if interval <= 0 {
		interval = p.cfg.cacheTTL
	}
	if interval <= 0 {
		interval = DefaultCacheTTL
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.Update(ctx)
		}
	}
}

// Close releases resources owned by the provider, such as the default
// in-memory cache.
func (p *RangeProvider) Close() {
	if p.cfg.closeCache != nil {
		p.cfg.closeCache()
	}
}

// computeMode selects how compute treats the memo and the cache.
type computeMode int

const (
	// computeMemoized returns the memo when one exists.
	computeMemoized computeMode = iota
	// computeCached reads through the cache.
	computeCached
	// computeForced bypasses the cache.
	computeForced
)

func (m computeMode) key() string {
	switch m {
	case computeCached:
		return "snapshot:cached"
	case computeForced:
		return "snapshot:refresh"
	default:
		return "snapshot"
	}
}

func (p *RangeProvider) compute(ctx context.Context, mode computeMode) *RangeSet {
	force := mode == computeForced

	// The shared computation must not be cut short by one caller going away.
	shared := context.WithoutCancel(ctx)

	v, _, _ := p.group.Do(mode.key(), func() (any, error) {
		if mode == computeMemoized {
			if set := p.memo.Load(); set != nil {
				return set, nil
			}
		}

		var v4, v6 []netip.Prefix

		g, gctx := errgroup.WithContext(shared)
		g.Go(func() error {
			var err error
			v4, err = p.fetchWithCache(gctx, IPv4, force)
			return err
		})
		g.Go(func() error {
			var err error
			v6, err = p.fetchWithCache(gctx, IPv6, force)
			return err
		})

		if err := g.Wait(); err != nil {
			p.cfg.logger.ErrorContext(ctx, "could not import trusted ranges, using fallback ranges",
				"error", err,
				"fallback_ranges", p.cfg.fallback.Len(),
			)
			p.cfg.metrics.RecordRangeRefresh(familyAll, RefreshFallback)
			p.memo.Store(nil)
			p.snapshot.Store(p.cfg.fallback)
			return p.cfg.fallback, nil
		}

		set := NewRangeSet(append(v4, v6...)...)
		p.snapshot.Store(set)
		p.memo.Store(set)
		return set, nil
	})

	return v.(*RangeSet)
}

// fetchWithCache returns the family's list from the cache, or fetches and
// caches it. Concurrent fetches of one family are collapsed into one.
func (p *RangeProvider) fetchWithCache(ctx context.Context, family AddressFamily, force bool) ([]netip.Prefix, error) {
	key := p.cfg.cacheKeyPrefix + family.String()

	if !force {
		prefixes, ok, err := p.cfg.cache.Get(ctx, key)
		switch {
		case err != nil:
			p.cfg.logger.WarnContext(ctx, "trusted range cache read failed",
				"family", family.String(),
				"key", key,
				"error", err,
			)
		case ok:
			p.cfg.metrics.RecordRangeRefresh(family.String(), RefreshCacheHit)
			return prefixes, nil
		}
	}

	v, err, _ := p.group.Do("fetch:"+key, func() (any, error) {
		prefixes, err := p.cfg.fetcher.FetchRanges(ctx, family)
		if err == nil && len(prefixes) == 0 {
			err = &RangeBodyError{}
		}
		if err != nil {
			p.cfg.metrics.RecordRangeRefresh(family.String(), RefreshFailed)
			return nil, err
		}

		if err := p.cfg.cache.Set(ctx, key, prefixes, p.cfg.cacheTTL); err != nil {
			p.cfg.logger.WarnContext(ctx, "trusted range cache write failed",
				"family", family.String(),
				"key", key,
				"error", err,
			)
		}

		p.cfg.metrics.RecordRangeRefresh(family.String(), RefreshFetched)
		return prefixes, nil
	})
	if err != nil {
		return nil, err
	}

	return clonePrefixes(v.([]netip.Prefix)), nil
}

// noopCache disables caching.
type noopCache struct{}

func (noopCache) Get(context.Context, string) ([]netip.Prefix, bool, error) {
	return nil, false, nil
}

func (noopCache) Set(context.Context, string, []netip.Prefix, time.Duration) error {
	return nil
}

var errNilCache = errors.New("cache cannot be nil; use WithoutCache to disable caching")
