package cloudflareip

import (
	"net"
	"net/netip"
	"strings"
)

// ParseAddr parses a single textual IP address taken from a header or the
// socket peer.
//
// It tolerates the formatting variations commonly seen in proxy headers:
//   - Leading/trailing whitespace: "  192.168.1.1  "
//   - Port suffixes: "192.168.1.1:8080" or "[::1]:8080"
//   - Quoted values: "\"192.168.1.1\"" or "'192.168.1.1'"
//   - IPv6 brackets: "[::1]"
//
// A token with a prefix length is accepted only when the prefix describes a
// single host (for example "1.2.3.4/32"). Anything wider, anything carrying an
// IPv6 zone, and anything syntactically malformed yields an
// *InvalidAddressError wrapping ErrInvalidAddress.
func ParseAddr(token string) (netip.Addr, error) {
	s := strings.TrimSpace(token)
	if s == "" {
		return netip.Addr{}, &InvalidAddressError{Token: token, Reason: "empty"}
	}

	s = trimMatchedChar(s, '"')
	s = trimMatchedChar(s, '\'')
	if s == "" {
		return netip.Addr{}, &InvalidAddressError{Token: token, Reason: "empty"}
	}

	if strings.IndexByte(s, '/') >= 0 {
		return parseHostPrefix(token, s)
	}

	if host, _, err := net.SplitHostPort(s); err == nil {
		s = host
	}

	s = trimMatchedPair(s, '[', ']')

	ip, err := netip.ParseAddr(s)
	if err != nil {
		return netip.Addr{}, &InvalidAddressError{Token: token}
	}
	if ip.Zone() != "" {
		return netip.Addr{}, &InvalidAddressError{Token: token, Reason: "zoned address"}
	}

	return normalizeIP(ip), nil
}

// parseHostPrefix accepts "addr/bits" only when bits covers one address.
func parseHostPrefix(token, s string) (netip.Addr, error) {
	prefix, err := netip.ParsePrefix(s)
	if err != nil {
		return netip.Addr{}, &InvalidAddressError{Token: token}
	}

	addr := prefix.Addr()
	if prefix.Bits() != addr.BitLen() {
		return netip.Addr{}, &InvalidAddressError{Token: token, Reason: "range, not a single address"}
	}

	return normalizeIP(addr), nil
}

// parseIP is ParseAddr without the error detail.
func parseIP(s string) netip.Addr {
	ip, err := ParseAddr(s)
	if err != nil {
		return netip.Addr{}
	}
	return ip
}

// ParseAddrList splits each value on commas and parses every token. Invalid
// tokens are dropped; the result keeps wire order.
func ParseAddrList(values []string) []netip.Addr {
	addrs, _ := parseAddrTokens(values)
	return addrs
}

// parseAddrTokens is ParseAddrList that also counts the non-blank tokens it
// dropped.
func parseAddrTokens(values []string) ([]netip.Addr, int) {
	if len(values) == 0 {
		return nil, 0
	}

	addrs := make([]netip.Addr, 0, typicalChainCapacity)
	dropped := 0
	for _, v := range values {
		for part := range strings.SplitSeq(v, ",") {
			if strings.TrimSpace(part) == "" {
				continue
			}
			if ip := parseIP(part); ip.IsValid() {
				addrs = append(addrs, ip)
				continue
			}
			dropped++
		}
	}
	return addrs, dropped
}

func normalizeIP(ip netip.Addr) netip.Addr {
	if ip.Is4In6() {
		return ip.Unmap()
	}
	return ip
}

// trimMatchedPair removes one leading and trailing delimiter when both match.
func trimMatchedPair(s string, start, end byte) string {
	if len(s) < 2 {
		return s
	}

	if s[0] != start || s[len(s)-1] != end {
		return s
	}

	return s[1 : len(s)-1]
}

// trimMatchedChar removes one matching leading and trailing character.
func trimMatchedChar(s string, ch byte) string {
	return trimMatchedPair(s, ch, ch)
}
