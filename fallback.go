package cloudflareip

import "net/netip"

// Cloudflare's published ranges as served by https://www.cloudflare.com/ips-v4/
// and https://www.cloudflare.com/ips-v6/ on 2023-12-10. Used whenever the
// live lists cannot be obtained.
const (
	fallbackIPv4Body = `173.245.48.0/20
103.21.244.0/22
103.22.200.0/22
103.31.4.0/22
141.101.64.0/18
108.162.192.0/18
190.93.240.0/20
188.114.96.0/20
197.234.240.0/22
198.41.128.0/17
162.158.0.0/15
104.16.0.0/13
104.24.0.0/14
172.64.0.0/13
131.0.72.0/22
`

	fallbackIPv6Body = `2400:cb00::/32
2606:4700::/32
2803:f800::/32
2405:b500::/32
2405:8100::/32
2a06:98c0::/29
2c0f:f248::/32
`
)

var (
	fallbackIPv4 = mustParseRangeList(fallbackIPv4Body)
	fallbackIPv6 = mustParseRangeList(fallbackIPv6Body)
)

// FallbackIPv4 returns the built-in IPv4 ranges.
func FallbackIPv4() []netip.Prefix {
	return clonePrefixes(fallbackIPv4)
}

// FallbackIPv6 returns the built-in IPv6 ranges.
func FallbackIPv6() []netip.Prefix {
	return clonePrefixes(fallbackIPv6)
}

// FallbackRanges returns the built-in set: IPv4 ranges followed by IPv6.
func FallbackRanges() *RangeSet {
	return NewRangeSet(append(FallbackIPv4(), fallbackIPv6...)...)
}

func mustParseRangeList(body string) []netip.Prefix {
	prefixes, err := ParseRangeList(body)
	if err != nil {
		panic("invalid built-in range list: " + err.Error())
	}
	return prefixes
}
