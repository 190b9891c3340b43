package cloudflareip

// Metrics records resolution outcomes, security events and range refreshes.
//
// Implementations should be safe for concurrent use.
type Metrics interface {
	// RecordResolution is called once per Resolve call with one of the
	// Result* outcomes.
	RecordResolution(result string)
	// RecordSecurityEvent is called when the resolver observes a
	// security-relevant condition.
	RecordSecurityEvent(event string)
	// RecordRangeRefresh is called for every range list lookup with the
	// family label (ips_v4, ips_v6, or all for snapshot-wide outcomes) and one
	// of the Refresh* outcomes.
	RecordRangeRefresh(family, result string)
}

// noopMetrics is the default Metrics implementation when metrics are not
// explicitly configured.
type noopMetrics struct{}

func (noopMetrics) RecordResolution(string) {}

func (noopMetrics) RecordSecurityEvent(string) {}

func (noopMetrics) RecordRangeRefresh(string, string) {}
