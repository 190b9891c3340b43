package cloudflareip

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/netip"
	"sync"
	"sync/atomic"
	"testing"
)

type capturedLogEntry struct {
	level string
	ctx   context.Context
	msg   string
	attrs map[string]any
}

type capturedLogger struct {
	mu      sync.Mutex
	entries []capturedLogEntry
}

func (l *capturedLogger) WarnContext(ctx context.Context, msg string, args ...any) {
	l.record("warn", ctx, msg, args)
}

func (l *capturedLogger) ErrorContext(ctx context.Context, msg string, args ...any) {
	l.record("error", ctx, msg, args)
}

func (l *capturedLogger) record(level string, ctx context.Context, msg string, args []any) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.entries = append(l.entries, capturedLogEntry{
		level: level,
		ctx:   ctx,
		msg:   msg,
		attrs: attrsToMap(args),
	})
}

func (l *capturedLogger) snapshot() []capturedLogEntry {
	l.mu.Lock()
	defer l.mu.Unlock()

	entries := make([]capturedLogEntry, len(l.entries))
	copy(entries, l.entries)
	return entries
}

func (l *capturedLogger) count(level string) int {
	n := 0
	for _, entry := range l.snapshot() {
		if entry.level == level {
			n++
		}
	}
	return n
}

func attrsToMap(args []any) map[string]any {
	attrs := make(map[string]any)
	for i := 0; i+1 < len(args); i += 2 {
		key, ok := args[i].(string)
		if !ok {
			continue
		}
		attrs[key] = args[i+1]
	}
	return attrs
}

type mockMetrics struct {
	mu             sync.Mutex
	resolutions    map[string]int
	securityEvents map[string]int
	refreshes      map[string]int
}

func newMockMetrics() *mockMetrics {
	return &mockMetrics{
		resolutions:    make(map[string]int),
		securityEvents: make(map[string]int),
		refreshes:      make(map[string]int),
	}
}

func (m *mockMetrics) RecordResolution(result string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resolutions[result]++
}

func (m *mockMetrics) RecordSecurityEvent(event string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.securityEvents[event]++
}

func (m *mockMetrics) RecordRangeRefresh(family, result string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.refreshes[family+"/"+result]++
}

func (m *mockMetrics) resolutionCount(result string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.resolutions[result]
}

func (m *mockMetrics) securityEventCount(event string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.securityEvents[event]
}

func (m *mockMetrics) refreshCount(family, result string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.refreshes[family+"/"+result]
}

func mustNewResolver(t *testing.T, opts ...Option) *Resolver {
	t.Helper()

	resolver, err := New(opts...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	return resolver
}

func mustParseCIDRs(t *testing.T, cidrs ...string) []netip.Prefix {
	t.Helper()

	prefixes, err := ParseCIDRs(cidrs...)
	if err != nil {
		t.Fatalf("ParseCIDRs() error = %v", err)
	}

	return prefixes
}

func newTestRequest(remoteAddr string) *http.Request {
	return &http.Request{
		RemoteAddr: remoteAddr,
		Header:     make(http.Header),
	}
}

// rangeServer stands in for the CDN's range endpoints.
type rangeServer struct {
	*httptest.Server

	status   atomic.Int32
	ipv4Body atomic.Value
	ipv6Body atomic.Value
	ipv4Hits atomic.Int32
	ipv6Hits atomic.Int32
}

func newRangeServer(t *testing.T, ipv4Body, ipv6Body string) *rangeServer {
	t.Helper()

	rs := &rangeServer{}
	rs.status.Store(http.StatusOK)
	rs.ipv4Body.Store(ipv4Body)
	rs.ipv6Body.Store(ipv6Body)

	rs.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body string
		switch r.URL.Path {
		case "/ips-v4/", "/ips-v4":
			rs.ipv4Hits.Add(1)
			body = rs.ipv4Body.Load().(string)
		case "/ips-v6/", "/ips-v6":
			rs.ipv6Hits.Add(1)
			body = rs.ipv6Body.Load().(string)
		default:
			http.NotFound(w, r)
			return
		}

		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(int(rs.status.Load()))
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(rs.Close)

	return rs
}

func (rs *rangeServer) hits() (int, int) {
	return int(rs.ipv4Hits.Load()), int(rs.ipv6Hits.Load())
}

func prefixStrings(prefixes []netip.Prefix) []string {
	out := make([]string, 0, len(prefixes))
	for _, prefix := range prefixes {
		out = append(out, prefix.String())
	}
	return out
}

func addrStrings(addrs []netip.Addr) []string {
	out := make([]string, 0, len(addrs))
	for _, addr := range addrs {
		out = append(out, addr.String())
	}
	return out
}
