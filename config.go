package cloudflareip

import (
	"fmt"
	"net/http"
	"net/netip"
	"net/textproto"
)

const (
	// DefaultClientIPHeader is the single-address header some proxies set.
	DefaultClientIPHeader = "Client-Ip"
	// DefaultForwardedForHeader is the proxy chain header.
	DefaultForwardedForHeader = "X-Forwarded-For"
)

// RangeSource supplies the current CDN range snapshot. *RangeProvider
// implements it; Ranges must not block and must not return nil.
type RangeSource interface {
	Ranges() *RangeSet
}

// staticRanges serves a fixed set.
type staticRanges struct {
	set *RangeSet
}

func (s staticRanges) Ranges() *RangeSet {
	return s.set
}

// Option configures a Resolver.
//
// Construct options using package-provided option builder functions.
type Option func(*config) error

// config holds resolver configuration state.
//
// It is mutated by Option functions during construction.
type config struct {
	rangeSource RangeSource

	proxyCIDRs         []netip.Prefix
	localProxyDefaults bool
	proxies            *RangeSet

	spoofCheck         bool
	clientIPHeader     string
	forwardedForHeader string

	spoofHandler http.Handler

	logger  Logger
	metrics Metrics
}

var (
	// loopbackProxyCIDRs contains loopback networks used when the app sits
	// behind a reverse proxy running on the same host.
	loopbackProxyCIDRs = []netip.Prefix{
		mustParsePrefix("127.0.0.0/8"),
		mustParsePrefix("::1/128"),
	}

	// privateProxyCIDRs contains private-network ranges commonly used for
	// trusted upstream proxies in VM and internal network deployments.
	privateProxyCIDRs = []netip.Prefix{
		mustParsePrefix("10.0.0.0/8"),
		mustParsePrefix("172.16.0.0/12"),
		mustParsePrefix("192.168.0.0/16"),
		mustParsePrefix("fc00::/7"),
	}
)

func cloneAddrs(addrs []netip.Addr) []netip.Addr {
	if addrs == nil {
		return nil
	}
	cloned := make([]netip.Addr, len(addrs))
	copy(cloned, addrs)
	return cloned
}

func normalizeTrustedProxyPrefixes(prefixes []netip.Prefix) ([]netip.Prefix, error) {
	normalized := make([]netip.Prefix, 0, len(prefixes))
	for _, prefix := range prefixes {
		if !prefix.IsValid() {
			return nil, fmt.Errorf("invalid trusted proxy prefix %q", prefix)
		}
		normalized = append(normalized, prefix.Masked())
	}

	return normalized, nil
}

func mergeUniquePrefixes(existing []netip.Prefix, additions ...netip.Prefix) []netip.Prefix {
	if len(existing) == 0 && len(additions) == 0 {
		return nil
	}

	merged := make([]netip.Prefix, 0, len(existing)+len(additions))
	seen := make(map[netip.Prefix]struct{}, len(existing)+len(additions))

	for _, prefix := range append(clonePrefixes(existing), additions...) {
		if _, ok := seen[prefix]; ok {
			continue
		}
		seen[prefix] = struct{}{}
		merged = append(merged, prefix)
	}

	return merged
}

func appendTrustedProxyCIDRs(c *config, prefixes ...netip.Prefix) {
	if len(prefixes) == 0 {
		return
	}

	c.proxyCIDRs = mergeUniquePrefixes(c.proxyCIDRs, prefixes...)
}

func defaultConfig() *config {
	return &config{
		localProxyDefaults: true,
		spoofCheck:         true,
		clientIPHeader:     DefaultClientIPHeader,
		forwardedForHeader: DefaultForwardedForHeader,
		spoofHandler:       http.HandlerFunc(rejectSpoofedRequest),
		logger:             noopLogger{},
		metrics:            noopMetrics{},
	}
}

func applyOptions(c *config, opts ...Option) error {
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return err
		}
	}

	return nil
}

func configFromOptions(opts ...Option) (*config, error) {
	cfg := defaultConfig()

	if err := applyOptions(cfg, opts...); err != nil {
		return nil, err
	}

	if cfg.rangeSource == nil {
		cfg.rangeSource = staticRanges{set: FallbackRanges()}
	}

	if cfg.localProxyDefaults {
		appendTrustedProxyCIDRs(cfg, loopbackProxyCIDRs...)
		appendTrustedProxyCIDRs(cfg, privateProxyCIDRs...)
	}
	cfg.proxies = NewRangeSet(cfg.proxyCIDRs...)

	cfg.clientIPHeader = textproto.CanonicalMIMEHeaderKey(cfg.clientIPHeader)
	cfg.forwardedForHeader = textproto.CanonicalMIMEHeaderKey(cfg.forwardedForHeader)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func rejectSpoofedRequest(w http.ResponseWriter, _ *http.Request) {
	http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
}
