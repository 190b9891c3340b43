package cloudflareip

import (
	"errors"
	"net/netip"
	"slices"
	"strings"
	"testing"
)

func TestRangeSet_Contains(t *testing.T) {
	set := NewRangeSet(mustParseCIDRs(t,
		"197.234.240.0/22",
		"10.0.0.0/8",
		"2606:4700::/32",
		"203.0.113.7/32",
	)...)

	tests := []struct {
		ip   string
		want bool
	}{
		{ip: "197.234.240.1", want: true},
		{ip: "197.234.243.255", want: true},
		{ip: "197.234.244.0", want: false},
		{ip: "10.255.255.255", want: true},
		{ip: "11.0.0.0", want: false},
		{ip: "203.0.113.7", want: true},
		{ip: "203.0.113.8", want: false},
		{ip: "2606:4700::1", want: true},
		{ip: "2606:4701::1", want: false},
		{ip: "::ffff:197.234.240.1", want: true},
		{ip: "::1", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.ip, func(t *testing.T) {
			if got := set.Contains(netip.MustParseAddr(tt.ip)); got != tt.want {
				t.Fatalf("Contains(%s) = %t, want %t", tt.ip, got, tt.want)
			}
		})
	}
}

func TestRangeSet_EmptyAndNil(t *testing.T) {
	var nilSet *RangeSet
	if nilSet.Contains(netip.MustParseAddr("1.1.1.1")) {
		t.Fatal("nil set contains address")
	}
	if nilSet.Len() != 0 || nilSet.Prefixes() != nil || nilSet.String() != "" {
		t.Fatal("nil set is not empty")
	}

	empty := NewRangeSet()
	if empty.Contains(netip.MustParseAddr("1.1.1.1")) {
		t.Fatal("empty set contains address")
	}
	if empty.Contains(netip.Addr{}) {
		t.Fatal("empty set contains the zero address")
	}
}

func TestRangeSet_MasksAndSkipsInvalid(t *testing.T) {
	set := NewRangeSet(
		netip.MustParsePrefix("10.1.2.3/8"),
		netip.Prefix{},
		netip.MustParsePrefix("10.0.0.0/8"),
	)

	want := []string{"10.0.0.0/8", "10.0.0.0/8"}
	if got := prefixStrings(set.Prefixes()); !slices.Equal(got, want) {
		t.Fatalf("Prefixes() = %v, want %v", got, want)
	}
}

func TestRangeSet_PrefixesReturnsCopy(t *testing.T) {
	set := NewRangeSet(mustParseCIDRs(t, "10.0.0.0/8")...)

	prefixes := set.Prefixes()
	prefixes[0] = netip.MustParsePrefix("192.168.0.0/16")

	if got := set.Prefixes()[0].String(); got != "10.0.0.0/8" {
		t.Fatalf("set mutated through Prefixes(): %s", got)
	}
}

func TestRangeSet_Union(t *testing.T) {
	a := NewRangeSet(mustParseCIDRs(t, "10.0.0.0/8")...)
	b := NewRangeSet(mustParseCIDRs(t, "2606:4700::/32")...)

	union := a.Union(b)
	if union.Len() != 2 {
		t.Fatalf("Union().Len() = %d, want 2", union.Len())
	}
	for _, ip := range []string{"10.1.1.1", "2606:4700::1"} {
		if !union.Contains(netip.MustParseAddr(ip)) {
			t.Fatalf("union does not contain %s", ip)
		}
	}
	if a.Contains(netip.MustParseAddr("2606:4700::1")) {
		t.Fatal("Union modified its receiver")
	}

	var nilSet *RangeSet
	if got := nilSet.Union(b).Len(); got != 1 {
		t.Fatalf("nil.Union(b).Len() = %d, want 1", got)
	}
}

// Parsing the same token twice must give sets with identical membership.
func TestRangeSet_DeterministicParsing(t *testing.T) {
	const token = "197.234.240.0/22"

	first := NewRangeSet(mustParseCIDRs(t, token)...)
	second := NewRangeSet(mustParseCIDRs(t, token)...)

	base := netip.MustParseAddr("197.234.236.0")
	for i := 0; i < 4096; i++ {
		bytes := base.As4()
		bytes[2] += byte(i / 256)
		bytes[3] = byte(i % 256)
		ip := netip.AddrFrom4(bytes)

		if first.Contains(ip) != second.Contains(ip) {
			t.Fatalf("membership of %s differs between parses", ip)
		}
	}
}

func TestRangeSet_String(t *testing.T) {
	set := NewRangeSet(mustParseCIDRs(t, "10.0.0.0/8", "2606:4700::/32")...)

	if got, want := set.String(), "10.0.0.0/8\n2606:4700::/32\n"; got != want {
		t.Fatalf("String() = %q, want %q", got, want)
	}
}

func TestParseCIDRs(t *testing.T) {
	if _, err := ParseCIDRs("10.0.0.0/8", "not-a-cidr"); err == nil {
		t.Fatal("ParseCIDRs() accepted an invalid CIDR")
	}

	prefixes, err := ParseCIDRs("10.0.0.0/8", "::1/128")
	if err != nil {
		t.Fatalf("ParseCIDRs() error = %v", err)
	}
	if len(prefixes) != 2 {
		t.Fatalf("ParseCIDRs() returned %d prefixes, want 2", len(prefixes))
	}
}

func TestParseRangeList(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		want      []string
		wantErr   bool
		wantToken string
	}{
		{
			name: "newline separated",
			body: "173.245.48.0/20\n103.21.244.0/22\n",
			want: []string{"173.245.48.0/20", "103.21.244.0/22"},
		},
		{
			name: "blank lines and CRLF",
			body: "\r\n173.245.48.0/20\r\n\r\n2400:cb00::/32\r\n",
			want: []string{"173.245.48.0/20", "2400:cb00::/32"},
		},
		{
			name: "host bits masked",
			body: "10.1.2.3/8",
			want: []string{"10.0.0.0/8"},
		},
		{
			name:      "garbage body",
			body:      "asdfasdfasdfasdfasdfasdf",
			wantErr:   true,
			wantToken: "asdfasdfasdfasdfasdfasdf",
		},
		{
			name:      "one malformed line fails the body",
			body:      "173.245.48.0/20\n300.1.1.1/8\n",
			wantErr:   true,
			wantToken: "300.1.1.1/8",
		},
		{
			name:    "only line breaks",
			body:    "\r\n\r\n\r\n",
			wantErr: true,
		},
		{
			name:    "empty",
			body:    "",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseRangeList(tt.body)
			if tt.wantErr {
				if !errors.Is(err, ErrUnparsableRangeBody) {
					t.Fatalf("ParseRangeList() error = %v, want ErrUnparsableRangeBody", err)
				}
				var bodyErr *RangeBodyError
				if !errors.As(err, &bodyErr) {
					t.Fatalf("ParseRangeList() error = %T, want *RangeBodyError", err)
				}
				if bodyErr.Token != tt.wantToken {
					t.Fatalf("RangeBodyError.Token = %q, want %q", bodyErr.Token, tt.wantToken)
				}
				return
			}

			if err != nil {
				t.Fatalf("ParseRangeList() error = %v", err)
			}
			if got := prefixStrings(got); !slices.Equal(got, tt.want) {
				t.Fatalf("ParseRangeList() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFallbackRanges(t *testing.T) {
	v4 := FallbackIPv4()
	v6 := FallbackIPv6()
	set := FallbackRanges()

	if len(v4) != 15 || len(v6) != 7 {
		t.Fatalf("fallback sizes = %d/%d, want 15/7", len(v4), len(v6))
	}
	if set.Len() != len(v4)+len(v6) {
		t.Fatalf("FallbackRanges().Len() = %d, want %d", set.Len(), len(v4)+len(v6))
	}
	if got, want := set.String(), fallbackIPv4Body+fallbackIPv6Body; got != want {
		t.Fatalf("FallbackRanges() = %q, want v4 then v6 bodies", got)
	}

	for _, ip := range []string{"197.234.240.1", "104.16.0.1", "2606:4700::6810:84e5"} {
		if !set.Contains(netip.MustParseAddr(ip)) {
			t.Fatalf("fallback set does not contain %s", ip)
		}
	}

	v4[0] = netip.MustParsePrefix("0.0.0.0/0")
	if strings.HasPrefix(FallbackRanges().String(), "0.0.0.0/0") {
		t.Fatal("FallbackIPv4() exposed internal state")
	}
}
