package cloudflareip

const (
	securityEventIPSpoofing     = "ip_spoofing"
	securityEventInvalidPeer    = "invalid_peer"
	securityEventInvalidAddress = "invalid_address"
)

// Resolution outcomes reported through Metrics.RecordResolution.
const (
	// ResultUntrusted: the client is the nearest untrusted hop.
	ResultUntrusted = "untrusted_hop"
	// ResultTrustedChain: every hop was trusted; the farthest claim was used.
	ResultTrustedChain = "trusted_chain"
	// ResultPeer: no forwarding claims; the socket peer was used.
	ResultPeer = "peer"
	// ResultSpoofed: the spoof check rejected the request.
	ResultSpoofed = "spoofed"
	// ResultNoAddress: neither the peer nor the headers held a valid address.
	ResultNoAddress = "no_address"
)

// Range refresh outcomes reported through Metrics.RecordRangeRefresh.
const (
	RefreshFetched  = "fetched"
	RefreshCacheHit = "cache_hit"
	RefreshFailed   = "failed"
	RefreshFallback = "fallback"
)
