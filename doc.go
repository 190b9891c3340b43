// Package cloudflareip resolves the originating client IP of HTTP requests
// that reach an application through the Cloudflare edge network and,
// optionally, the operator's own reverse proxies.
//
// # Features
//
//   - Proxy chain walk over Client-Ip and X-Forwarded-For that stops at the
//     first hop outside the trusted ranges
//   - Spoof detection when the two headers disagree about the origin
//   - Published CDN ranges fetched over HTTPS, cached with a TTL and replaced
//     by a built-in fallback set whenever a fetch fails
//   - Lock-free range snapshots so the request path never waits on a fetch
//   - Deployment presets for common topologies
//   - Optional observability with context-aware logging and pluggable metrics
//   - Type-safe using modern Go netip.Addr
//
// # Basic Usage
//
// Resolution against the built-in fallback ranges:
//
//	resolver, err := cloudflareip.New()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	resolution, err := resolver.ResolveRequest(req)
//	if errors.Is(err, cloudflareip.ErrIPSpoofAttack) {
//	    http.Error(w, "bad request", http.StatusBadRequest)
//	    return
//	}
//
//	fmt.Printf("Client IP: %s via CDN: %t\n", resolution.IP, resolution.FromTrustedNetwork)
//
// # Live Ranges
//
// A RangeProvider keeps the CDN ranges current. Start re-reads them through
// the cache every interval, so a list is fetched again once its cached copy
// expires. The Resolver reads the current snapshot without blocking:
//
//	provider, _ := cloudflareip.NewRangeProvider(
//	    cloudflareip.WithCacheTTL(12*time.Hour),
//	    cloudflareip.WithProviderLogger(slog.Default()),
//	)
//	defer provider.Close()
//	go provider.Start(ctx, time.Hour)
//
//	resolver, _ := cloudflareip.New(cloudflareip.WithRangeSource(provider))
//
// Fetched lists can be shared between processes with a Redis cache from the
// rangecache package.
//
// # Proxies Behind the CDN
//
// Loopback and private networks are trusted as proxies by default. Presets
// narrow that down:
//
//	resolver, _ := cloudflareip.New(cloudflareip.PresetCloudflareDirect())
//
// # Observability
//
// Add logging and metrics for production monitoring:
// (Prometheus adapter package: github.com/abczzz13/cloudflareip/prometheus)
//
//	import cfprom "github.com/abczzz13/cloudflareip/prometheus"
//
//	metrics, _ := cfprom.New()
//
//	resolver, err := cloudflareip.New(
//	    cloudflareip.WithLogger(slog.Default()),
//	    cloudflareip.WithMetrics(metrics),
//	)
//
// # Thread Safety
//
// Resolver, RangeProvider and RangeSet values are safe for concurrent use.
// They are typically created once at application startup and reused across
// all requests.
package cloudflareip
