package cloudflareip

import (
	"context"
	"net/http"
	"net/netip"
	"testing"
)

func BenchmarkResolveRequest_Peer(b *testing.B) {
	resolver, _ := New()
	req := &http.Request{
		RemoteAddr: "8.8.8.8:12345",
		Header:     make(http.Header),
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := resolver.ResolveRequest(req); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkResolveRequest_CDNChain(b *testing.B) {
	resolver, _ := New()
	req := &http.Request{
		RemoteAddr: "127.0.0.1:12345",
		Header:     make(http.Header),
	}
	req.Header.Set("X-Forwarded-For", "1.2.3.4, 197.234.240.1, 10.0.0.2")

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := resolver.ResolveRequest(req); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkResolveRequest_ClientIPAndForwardedFor(b *testing.B) {
	resolver, _ := New()
	req := &http.Request{
		RemoteAddr: "197.234.240.1:443",
		Header:     make(http.Header),
	}
	req.Header.Set("Client-Ip", "1.2.3.4")
	req.Header.Set("X-Forwarded-For", "1.2.3.4")

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := resolver.ResolveRequest(req); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkIsFromTrustedNetwork(b *testing.B) {
	resolver, _ := New()
	forwardedFor := []string{"1.2.3.4, 10.2.2.2, 197.234.240.1"}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if !resolver.IsFromTrustedNetwork("10.1.1.1:5000", forwardedFor) {
			b.Fatal("expected trusted network")
		}
	}
}

func BenchmarkRangeSet_Contains(b *testing.B) {
	set := FallbackRanges()
	ipv4 := netip.MustParseAddr("104.16.0.1")
	ipv6 := netip.MustParseAddr("2a06:98c0::1")

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if !set.Contains(ipv4) || !set.Contains(ipv6) {
			b.Fatal("expected containment")
		}
	}
}

func BenchmarkParseAddrList(b *testing.B) {
	values := []string{"1.2.3.4, 197.234.240.1", "[2606:4700::1]:443, not-an-ip.test"}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if len(ParseAddrList(values)) != 3 {
			b.Fatal("unexpected address count")
		}
	}
}

func BenchmarkRangeProvider_CurrentRanges(b *testing.B) {
	provider, err := NewRangeProvider(WithoutCache(), WithFetcher(staticFetcher{
		IPv4: FallbackIPv4(),
		IPv6: FallbackIPv6(),
	}))
	if err != nil {
		b.Fatal(err)
	}
	defer provider.Close()

	ctx := context.Background()
	provider.CurrentRanges(ctx)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if provider.CurrentRanges(ctx).Len() == 0 {
			b.Fatal("empty ranges")
		}
	}
}
