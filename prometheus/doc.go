// Package prometheus provides a Prometheus adapter for
// github.com/abczzz13/cloudflareip.
//
// The package exposes options that install a Prometheus-backed Metrics
// implementation on a Resolver or a RangeProvider, using either the default
// registerer or a caller-provided registerer, and a collector for the
// in-memory range cache.
package prometheus
