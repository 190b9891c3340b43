package cloudflareip

import (
	"fmt"
	"net/http"
	"net/netip"
)

// WithRangeSource sets where the Resolver reads CDN ranges from, typically a
// *RangeProvider.
func WithRangeSource(source RangeSource) Option {
	return func(c *config) error {
		if isNilInterface(source) {
			return fmt.Errorf("range source cannot be nil")
		}

		c.rangeSource = source
		return nil
	}
}

// WithRanges makes the Resolver trust a fixed CDN range set.
func WithRanges(set *RangeSet) Option {
	return func(c *config) error {
		if set == nil || set.Len() == 0 {
			return fmt.Errorf("CDN range set cannot be empty")
		}

		c.rangeSource = staticRanges{set: set}
		return nil
	}
}

// TrustProxyPrefixes adds trusted proxy network prefixes.
func TrustProxyPrefixes(prefixes ...netip.Prefix) Option {
	prefixes = clonePrefixes(prefixes)

	return func(c *config) error {
		normalized, err := normalizeTrustedProxyPrefixes(prefixes)
		if err != nil {
			return err
		}

		appendTrustedProxyCIDRs(c, normalized...)
		return nil
	}
}

// TrustLoopbackProxy adds loopback CIDRs to trusted proxy ranges.
func TrustLoopbackProxy() Option {
	return func(c *config) error {
		appendTrustedProxyCIDRs(c, loopbackProxyCIDRs...)
		return nil
	}
}

// TrustPrivateProxyRanges adds private network CIDRs to trusted proxy ranges.
func TrustPrivateProxyRanges() Option {
	return func(c *config) error {
		appendTrustedProxyCIDRs(c, privateProxyCIDRs...)
		return nil
	}
}

// TrustLocalProxyDefaults adds loopback and private network CIDRs.
//
// These are trusted by default; the option is useful after
// WithoutLocalProxyDefaults.
func TrustLocalProxyDefaults() Option {
	return func(c *config) error {
		appendTrustedProxyCIDRs(c, loopbackProxyCIDRs...)
		appendTrustedProxyCIDRs(c, privateProxyCIDRs...)
		return nil
	}
}

// WithoutLocalProxyDefaults stops trusting loopback and private networks
// implicitly. Prefixes added explicitly are kept.
func WithoutLocalProxyDefaults() Option {
	return func(c *config) error {
		c.localProxyDefaults = false
		return nil
	}
}

// TrustProxyAddrs adds trusted upstream proxy host addresses.
func TrustProxyAddrs(addrs ...netip.Addr) Option {
	addrs = cloneAddrs(addrs)

	return func(c *config) error {
		prefixes := make([]netip.Prefix, 0, len(addrs))
		for _, addr := range addrs {
			if !addr.IsValid() {
				return fmt.Errorf("invalid proxy address %q", addr)
			}

			addr = normalizeIP(addr)
			prefixes = append(prefixes, netip.PrefixFrom(addr, addr.BitLen()))
		}

		appendTrustedProxyCIDRs(c, prefixes...)
		return nil
	}
}

// WithSpoofCheck enables or disables the client IP versus forwarded-for
// consistency check. It is enabled by default.
func WithSpoofCheck(enable bool) Option {
	return func(c *config) error {
		c.spoofCheck = enable
		return nil
	}
}

// WithClientIPHeader overrides the single-address header name.
func WithClientIPHeader(name string) Option {
	return func(c *config) error {
		c.clientIPHeader = name
		return nil
	}
}

// WithForwardedForHeader overrides the proxy chain header name.
func WithForwardedForHeader(name string) Option {
	return func(c *config) error {
		c.forwardedForHeader = name
		return nil
	}
}

// WithSpoofHandler sets the handler Middleware serves when the spoof check
// rejects a request. The default responds 400 Bad Request.
func WithSpoofHandler(handler http.Handler) Option {
	return func(c *config) error {
		c.spoofHandler = handler
		return nil
	}
}

// WithLogger sets the logger implementation used for security events.
func WithLogger(logger Logger) Option {
	return func(c *config) error {
		c.logger = logger
		return nil
	}
}

// WithMetrics sets a concrete metrics implementation.
func WithMetrics(metrics Metrics) Option {
	return func(c *config) error {
		c.metrics = metrics
		return nil
	}
}

// WithMetricsFactory configures metrics from a constructor that may fail.
//
// The factory runs when the option is applied; its error fails New.
func WithMetricsFactory(factory func() (Metrics, error)) Option {
	return func(c *config) error {
		if factory == nil {
			return fmt.Errorf("metrics factory cannot be nil")
		}

		metrics, err := factory()
		if err != nil {
			return err
		}

		c.metrics = metrics
		return nil
	}
}
