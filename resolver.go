package cloudflareip

import (
	"context"
	"fmt"
	"net/http"
	"net/netip"
	"strings"
	"sync/atomic"
)

// Resolution is the outcome of resolving one request.
type Resolution struct {
	// IP is the resolved client address.
	IP netip.Addr
	// RemoteAddr is the sanitized socket peer. It is the zero Addr when the
	// peer could not be parsed.
	RemoteAddr netip.Addr
	// Hops lists the peer and every claimed address, nearest hop first.
	Hops []netip.Addr
	// TrustedProxies lists the hops that were walked past as trusted.
	TrustedProxies []netip.Addr
	// FromTrustedNetwork reports whether the request arrived through a CDN
	// edge, see Resolver.IsFromTrustedNetwork.
	FromTrustedNetwork bool
	// Result names the rule that picked IP, one of the Result* constants.
	Result string
}

// Resolver resolves client IP addresses for requests that may have crossed
// the CDN edge and operator proxies.
//
// Resolver instances are safe for concurrent reuse. Each call reads one
// range snapshot from the configured RangeSource and never blocks on a
// range fetch.
type Resolver struct {
	config *config

	// view caches the trusted proxy set built for the latest CDN snapshot.
	view atomic.Pointer[trustedView]
}

// trustedView is the operator proxies united with one CDN snapshot.
type trustedView struct {
	cdn     *RangeSet
	trusted *RangeSet
}

// New creates a Resolver from one or more Option builders.
//
// Without WithRangeSource the Resolver trusts the built-in fallback CDN
// ranges.
func New(opts ...Option) (*Resolver, error) {
	cfg, err := configFromOptions(opts...)
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &Resolver{config: cfg}, nil
}

// Resolve determines the client IP from the socket peer, the raw client IP
// header values and the raw forwarded-for header values.
//
// When the spoof check is enabled and both headers carry addresses, Resolve
// fails with a *SpoofError if the origin claimed by the client IP header is
// absent from the forwarded-for chain. Malformed tokens are dropped.
func (r *Resolver) Resolve(ctx context.Context, peer string, clientIP, forwardedFor []string) (Resolution, error) {
	chain := parseHopChain(peer, clientIP, forwardedFor)
	r.recordSanitization(ctx, peer, chain)

	if r.config.spoofCheck && chain.spoofed() {
		r.config.metrics.RecordSecurityEvent(securityEventIPSpoofing)
		r.config.metrics.RecordResolution(ResultSpoofed)
		r.config.logger.WarnContext(ctx, "client IP and forwarded-for headers disagree - possible spoofing attempt",
			"event", securityEventIPSpoofing,
			"peer", peer,
			"client_ip", strings.Join(clientIP, ", "),
			"forwarded_for", strings.Join(forwardedFor, ", "),
		)

		return Resolution{RemoteAddr: chain.remoteAddr}, &SpoofError{
			ClientIP:     cloneStrings(clientIP),
			ForwardedFor: cloneStrings(forwardedFor),
		}
	}

	cdn := r.config.rangeSource.Ranges()
	trusted := r.trustedProxies(cdn)
	isTrusted := trusted.Contains

	analysis := analyzeChain(chain, isTrusted)
	r.config.metrics.RecordResolution(analysis.result)

	resolution := Resolution{
		IP:                 analysis.client,
		RemoteAddr:         chain.remoteAddr,
		Hops:               analysis.hops,
		TrustedProxies:     analysis.trusted,
		FromTrustedNetwork: viaTrustedNetwork(chain, isTrusted, cdn.Contains),
		Result:             analysis.result,
	}

	if analysis.result == ResultNoAddress {
		return resolution, &InvalidAddressError{Token: peer, Reason: "no valid peer or forwarded address"}
	}

	return resolution, nil
}

// ResolveAddr resolves only the client IP address.
func (r *Resolver) ResolveAddr(ctx context.Context, peer string, clientIP, forwardedFor []string) (netip.Addr, error) {
	resolution, err := r.Resolve(ctx, peer, clientIP, forwardedFor)
	if err != nil {
		return netip.Addr{}, err
	}

	return resolution.IP, nil
}

// ResolveRequest resolves the client IP for an HTTP request using its
// RemoteAddr and the configured header names.
func (r *Resolver) ResolveRequest(req *http.Request) (Resolution, error) {
	if req == nil {
		return r.Resolve(context.Background(), "", nil, nil)
	}

	return r.Resolve(req.Context(), req.RemoteAddr,
		req.Header.Values(r.config.clientIPHeader),
		req.Header.Values(r.config.forwardedForHeader),
	)
}

// ResolveFrom resolves the client IP from framework-agnostic request input.
func (r *Resolver) ResolveFrom(input RequestInput) (Resolution, error) {
	ctx := requestInputContext(input)
	if err := ctx.Err(); err != nil {
		return Resolution{}, err
	}

	return r.Resolve(ctx, input.RemoteAddr,
		headerValues(input.Headers, r.config.clientIPHeader),
		headerValues(input.Headers, r.config.forwardedForHeader),
	)
}

// ResolveWithOptions is a one-shot convenience helper.
//
// It constructs a temporary Resolver from opts and resolves req.
func ResolveWithOptions(req *http.Request, opts ...Option) (Resolution, error) {
	resolver, err := New(opts...)
	if err != nil {
		return Resolution{}, err
	}

	return resolver.ResolveRequest(req)
}

// IsFromTrustedNetwork reports whether a request with the given peer and
// forwarded-for values came through the CDN.
//
// It walks the peer and then the forwarded-for chain from the server outward
// while each hop is a trusted proxy, and returns true if any hop in that run
// is inside the CDN ranges. Hops trusted only through operator proxy ranges
// do not count on their own.
func (r *Resolver) IsFromTrustedNetwork(peer string, forwardedFor []string) bool {
	chain := parseHopChain(peer, nil, forwardedFor)
	cdn := r.config.rangeSource.Ranges()

	return viaTrustedNetwork(chain, r.trustedProxies(cdn).Contains, cdn.Contains)
}

// IsCDNAddr reports whether ip is inside the current CDN range snapshot.
func (r *Resolver) IsCDNAddr(ip netip.Addr) bool {
	return r.config.rangeSource.Ranges().Contains(ip)
}

// IsTrustedProxy reports whether ip is a CDN edge or an operator proxy.
func (r *Resolver) IsTrustedProxy(ip netip.Addr) bool {
	return r.trustedProxies(r.config.rangeSource.Ranges()).Contains(ip)
}

// trustedProxies returns the operator proxies united with cdn. The union is
// rebuilt only when the range source hands out a new snapshot.
func (r *Resolver) trustedProxies(cdn *RangeSet) *RangeSet {
	if view := r.view.Load(); view != nil && view.cdn == cdn {
		return view.trusted
	}

	view := &trustedView{cdn: cdn, trusted: r.config.proxies.Union(cdn)}
	r.view.Store(view)
	return view.trusted
}

func (r *Resolver) recordSanitization(ctx context.Context, peer string, chain hopChain) {
	if !chain.remoteAddr.IsValid() && strings.TrimSpace(peer) != "" {
		r.config.metrics.RecordSecurityEvent(securityEventInvalidPeer)
		r.config.logger.WarnContext(ctx, "request peer address could not be parsed",
			"event", securityEventInvalidPeer,
			"peer", peer,
		)
	}

	if chain.dropped > 0 {
		r.config.metrics.RecordSecurityEvent(securityEventInvalidAddress)
	}
}

func cloneStrings(values []string) []string {
	if values == nil {
		return nil
	}

	return append(make([]string, 0, len(values)), values...)
}
