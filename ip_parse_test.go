package cloudflareip

import (
	"errors"
	"net/netip"
	"slices"
	"testing"
)

func TestParseAddr(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    netip.Addr
		wantErr bool
	}{
		{
			name:  "valid IPv4",
			input: "203.0.113.1",
			want:  netip.MustParseAddr("203.0.113.1"),
		},
		{
			name:  "valid IPv4 with surrounding whitespace",
			input: "  203.0.113.1  ",
			want:  netip.MustParseAddr("203.0.113.1"),
		},
		{
			name:  "valid IPv4 with tabs",
			input: "\t203.0.113.1\t",
			want:  netip.MustParseAddr("203.0.113.1"),
		},
		{
			name:  "valid IPv4 with port",
			input: "203.0.113.1:8080",
			want:  netip.MustParseAddr("203.0.113.1"),
		},
		{
			name:  "valid IPv4 with double quotes",
			input: `"203.0.113.1"`,
			want:  netip.MustParseAddr("203.0.113.1"),
		},
		{
			name:  "valid IPv4 with single quotes",
			input: "'203.0.113.1'",
			want:  netip.MustParseAddr("203.0.113.1"),
		},
		{
			name:  "valid IPv6",
			input: "2606:4700::1",
			want:  netip.MustParseAddr("2606:4700::1"),
		},
		{
			name:  "valid IPv6 with brackets",
			input: "[2606:4700::1]",
			want:  netip.MustParseAddr("2606:4700::1"),
		},
		{
			name:  "valid IPv6 with brackets and port",
			input: "[2606:4700::1]:443",
			want:  netip.MustParseAddr("2606:4700::1"),
		},
		{
			name:  "IPv4-mapped IPv6 is unmapped",
			input: "::ffff:197.234.240.1",
			want:  netip.MustParseAddr("197.234.240.1"),
		},
		{
			name:  "single host IPv4 prefix",
			input: "197.234.240.1/32",
			want:  netip.MustParseAddr("197.234.240.1"),
		},
		{
			name:  "single host IPv6 prefix",
			input: "2606:4700::1/128",
			want:  netip.MustParseAddr("2606:4700::1"),
		},
		{
			name:    "IPv4 range",
			input:   "197.234.240.0/22",
			wantErr: true,
		},
		{
			name:    "IPv6 range",
			input:   "2606:4700::/32",
			wantErr: true,
		},
		{
			name:    "hostname",
			input:   "not-an-ip.test",
			wantErr: true,
		},
		{
			name:    "empty",
			input:   "",
			wantErr: true,
		},
		{
			name:    "only quotes",
			input:   `""`,
			wantErr: true,
		},
		{
			name:    "zoned IPv6",
			input:   "fe80::1%eth0",
			wantErr: true,
		},
		{
			name:    "truncated IPv4",
			input:   "1.2.3",
			wantErr: true,
		},
		{
			name:    "garbage prefix",
			input:   "1.2.3.4/abc",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseAddr(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseAddr(%q) = %v, want error", tt.input, got)
				}
				if !errors.Is(err, ErrInvalidAddress) {
					t.Fatalf("ParseAddr(%q) error = %v, want ErrInvalidAddress", tt.input, err)
				}
				var invalid *InvalidAddressError
				if !errors.As(err, &invalid) || invalid.Token != tt.input {
					t.Fatalf("ParseAddr(%q) error = %#v, want *InvalidAddressError with token", tt.input, err)
				}
				return
			}

			if err != nil {
				t.Fatalf("ParseAddr(%q) error = %v", tt.input, err)
			}
			if got != tt.want {
				t.Fatalf("ParseAddr(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestParseAddrList(t *testing.T) {
	tests := []struct {
		name   string
		values []string
		want   []string
	}{
		{
			name:   "nil",
			values: nil,
			want:   []string{},
		},
		{
			name:   "single value with spaces",
			values: []string{"1.2.3.4, 197.234.240.1"},
			want:   []string{"1.2.3.4", "197.234.240.1"},
		},
		{
			name:   "multiple header lines keep wire order",
			values: []string{"1.2.3.4", "10.0.0.1, 197.234.240.1"},
			want:   []string{"1.2.3.4", "10.0.0.1", "197.234.240.1"},
		},
		{
			name:   "invalid tokens dropped",
			values: []string{"not-an-ip.test, 122.175.218.25"},
			want:   []string{"122.175.218.25"},
		},
		{
			name:   "blank tokens dropped",
			values: []string{" , 1.2.3.4,, "},
			want:   []string{"1.2.3.4"},
		},
		{
			name:   "ranges dropped",
			values: []string{"10.0.0.0/8, 10.0.0.1/32"},
			want:   []string{"10.0.0.1"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := addrStrings(ParseAddrList(tt.values))
			if !slices.Equal(got, tt.want) {
				t.Fatalf("ParseAddrList(%q) = %v, want %v", tt.values, got, tt.want)
			}
		})
	}
}

func TestParseAddrTokens_CountsDropped(t *testing.T) {
	addrs, dropped := parseAddrTokens([]string{"not-an-ip.test, 1.2.3.4, , 10.0.0.0/8", "garbage"})
	if len(addrs) != 1 || addrs[0] != netip.MustParseAddr("1.2.3.4") {
		t.Fatalf("addrs = %v, want [1.2.3.4]", addrs)
	}
	if dropped != 3 {
		t.Fatalf("dropped = %d, want 3", dropped)
	}
}
