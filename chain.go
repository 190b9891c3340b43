package cloudflareip

import (
	"net/netip"
	"slices"
)

// typicalChainCapacity is the initial capacity used when parsing proxy chains.
//
// Most deployments have short chains (around 1-5 hops).
const typicalChainCapacity = 8

// hopChain is the sanitized view of one request's address inputs.
//
// clientIPs and forwardedIPs are reversed, so index 0 is the hop appended
// last (nearest the server) and the final element is the claimed origin.
type hopChain struct {
	remoteAddr   netip.Addr
	clientIPs    []netip.Addr
	forwardedIPs []netip.Addr
	// dropped counts malformed header tokens; the peer is not included.
	dropped int
}

func parseHopChain(peer string, clientIP, forwardedFor []string) hopChain {
	var chain hopChain

	if peers := ParseAddrList([]string{peer}); len(peers) > 0 {
		chain.remoteAddr = peers[len(peers)-1]
	}

	var dropped int
	chain.clientIPs, dropped = parseAddrTokens(clientIP)
	chain.dropped += dropped
	slices.Reverse(chain.clientIPs)

	chain.forwardedIPs, dropped = parseAddrTokens(forwardedFor)
	chain.dropped += dropped
	slices.Reverse(chain.forwardedIPs)

	return chain
}

// spoofed reports whether the origin claimed by the client IP header is
// missing from the forwarded-for chain.
func (c hopChain) spoofed() bool {
	if len(c.clientIPs) == 0 || len(c.forwardedIPs) == 0 {
		return false
	}

	return !slices.Contains(c.forwardedIPs, c.clientIPs[len(c.clientIPs)-1])
}

// candidates returns forwarded-for claims followed by client IP claims.
func (c hopChain) candidates() []netip.Addr {
	ips := make([]netip.Addr, 0, len(c.forwardedIPs)+len(c.clientIPs))
	ips = append(ips, c.forwardedIPs...)
	return append(ips, c.clientIPs...)
}

// hops returns the peer followed by every claim, nearest hop first.
func (c hopChain) hops(candidates []netip.Addr) []netip.Addr {
	hops := make([]netip.Addr, 0, len(candidates)+1)
	if c.remoteAddr.IsValid() {
		hops = append(hops, c.remoteAddr)
	}
	return append(hops, candidates...)
}

type chainAnalysis struct {
	client  netip.Addr
	result  string
	hops    []netip.Addr
	trusted []netip.Addr
}

// analyzeChain walks the hops away from the server and stops at the first
// address that is not a trusted proxy. That address is the client. When every
// hop is trusted the farthest claim wins, then the peer itself.
func analyzeChain(c hopChain, isTrusted func(netip.Addr) bool) chainAnalysis {
	ips := c.candidates()
	analysis := chainAnalysis{hops: c.hops(ips)}

	for _, hop := range analysis.hops {
		if !isTrusted(hop) {
			analysis.client = hop
			analysis.result = ResultUntrusted
			return analysis
		}
		analysis.trusted = append(analysis.trusted, hop)
	}

	switch {
	case len(ips) > 0:
		analysis.client = ips[len(ips)-1]
		analysis.result = ResultTrustedChain
	case c.remoteAddr.IsValid():
		analysis.client = c.remoteAddr
		analysis.result = ResultPeer
	default:
		analysis.result = ResultNoAddress
	}

	return analysis
}

// viaTrustedNetwork takes the run of trusted hops nearest the server, made of
// the peer and the forwarded-for chain, and reports whether any of them is a
// CDN edge.
func viaTrustedNetwork(c hopChain, isTrusted, isCDN func(netip.Addr) bool) bool {
	for _, hop := range c.hops(c.forwardedIPs) {
		if !isTrusted(hop) {
			return false
		}
		if isCDN(hop) {
			return true
		}
	}

	return false
}
