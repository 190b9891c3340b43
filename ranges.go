package cloudflareip

import (
	"fmt"
	"net/netip"
	"strings"
)

// RangeSet is an immutable set of CIDR ranges with membership testing.
//
// A RangeSet is never modified after construction, so it can be shared
// freely between goroutines. The zero value is an empty set.
type RangeSet struct {
	prefixes []netip.Prefix
	ipv4Root *prefixTrieNode
	ipv6Root *prefixTrieNode
}

type prefixTrieNode struct {
	children [2]*prefixTrieNode
	terminal bool
}

// NewRangeSet builds a RangeSet from prefixes. Prefixes are masked; invalid
// prefixes are skipped. Duplicates are allowed and order is irrelevant for
// membership.
func NewRangeSet(prefixes ...netip.Prefix) *RangeSet {
	set := &RangeSet{prefixes: make([]netip.Prefix, 0, len(prefixes))}

	for _, prefix := range prefixes {
		if !prefix.IsValid() {
			continue
		}
		prefix = prefix.Masked()
		set.prefixes = append(set.prefixes, prefix)

		addr := prefix.Addr()
		if addr.Is4() {
			if set.ipv4Root == nil {
				set.ipv4Root = &prefixTrieNode{}
			}
			bytes := addr.As4()
			insertPrefix(set.ipv4Root, bytes[:], prefix.Bits())
			continue
		}

		if set.ipv6Root == nil {
			set.ipv6Root = &prefixTrieNode{}
		}
		bytes := addr.As16()
		insertPrefix(set.ipv6Root, bytes[:], prefix.Bits())
	}

	return set
}

// Contains reports whether ip falls inside any range of the set.
func (s *RangeSet) Contains(ip netip.Addr) bool {
	if s == nil || !ip.IsValid() {
		return false
	}

	ip = normalizeIP(ip)
	if ip.Is4() {
		bytes := ip.As4()
		return trieContains(s.ipv4Root, bytes[:])
	}

	bytes := ip.As16()
	return trieContains(s.ipv6Root, bytes[:])
}

// Prefixes returns a copy of the ranges in construction order.
func (s *RangeSet) Prefixes() []netip.Prefix {
	if s == nil {
		return nil
	}
	return clonePrefixes(s.prefixes)
}

// Len returns the number of ranges in the set.
func (s *RangeSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.prefixes)
}

// Union returns a new set holding the ranges of s followed by other.
func (s *RangeSet) Union(other *RangeSet) *RangeSet {
	merged := make([]netip.Prefix, 0, s.Len()+other.Len())
	if s != nil {
		merged = append(merged, s.prefixes...)
	}
	if other != nil {
		merged = append(merged, other.prefixes...)
	}
	return NewRangeSet(merged...)
}

// String renders the set one CIDR per line, the same format the range
// endpoints serve.
func (s *RangeSet) String() string {
	if s.Len() == 0 {
		return ""
	}

	var b strings.Builder
	for _, prefix := range s.prefixes {
		b.WriteString(prefix.String())
		b.WriteByte('\n')
	}
	return b.String()
}

func insertPrefix(root *prefixTrieNode, addr []byte, bits int) {
	node := root
	if bits == 0 {
		node.terminal = true
		return
	}

	for bitIndex := 0; bitIndex < bits; bitIndex++ {
		bit := addrBit(addr, bitIndex)
		child := node.children[bit]
		if child == nil {
			child = &prefixTrieNode{}
			node.children[bit] = child
		}
		node = child
	}

	node.terminal = true
}

func trieContains(root *prefixTrieNode, addr []byte) bool {
	node := root
	if node == nil {
		return false
	}

	if node.terminal {
		return true
	}

	for bitIndex := range len(addr) * 8 {
		node = node.children[addrBit(addr, bitIndex)]
		if node == nil {
			return false
		}
		if node.terminal {
			return true
		}
	}

	return false
}

func addrBit(addr []byte, bitIndex int) int {
	byteIndex := bitIndex / 8
	shift := uint(7 - (bitIndex % 8))
	if ((addr[byteIndex] >> shift) & 1) == 1 {
		return 1
	}
	return 0
}

// ParseCIDRs parses CIDR strings into prefixes.
func ParseCIDRs(cidrs ...string) ([]netip.Prefix, error) {
	prefixes := make([]netip.Prefix, 0, len(cidrs))
	for _, cidr := range cidrs {
		prefix, err := netip.ParsePrefix(cidr)
		if err != nil {
			return nil, fmt.Errorf("invalid CIDR %q: %w", cidr, err)
		}
		prefixes = append(prefixes, prefix)
	}
	return prefixes, nil
}

// ParseRangeList parses a newline-separated list of CIDR ranges as served by
// the range endpoints. Blank lines are ignored. A malformed token, or a body
// without any token, yields a *RangeBodyError wrapping
// ErrUnparsableRangeBody.
func ParseRangeList(body string) ([]netip.Prefix, error) {
	prefixes := make([]netip.Prefix, 0, 32)

	for i, line := range strings.Split(body, "\n") {
		token := strings.TrimSpace(line)
		if token == "" {
			continue
		}

		prefix, err := netip.ParsePrefix(token)
		if err != nil {
			return nil, &RangeBodyError{Line: i + 1, Token: token, Err: err}
		}
		prefixes = append(prefixes, prefix.Masked())
	}

	if len(prefixes) == 0 {
		return nil, &RangeBodyError{}
	}

	return prefixes, nil
}

func mustParsePrefix(cidr string) netip.Prefix {
	prefix, err := netip.ParsePrefix(cidr)
	if err != nil {
		panic(fmt.Sprintf("invalid built-in CIDR %q: %v", cidr, err))
	}
	return prefix
}

func clonePrefixes(prefixes []netip.Prefix) []netip.Prefix {
	if prefixes == nil {
		return nil
	}
	cloned := make([]netip.Prefix, len(prefixes))
	copy(cloned, prefixes)
	return cloned
}
