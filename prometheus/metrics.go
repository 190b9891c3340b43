package prometheus

import (
	"errors"
	"fmt"

	"github.com/abczzz13/cloudflareip"
	prom "github.com/prometheus/client_golang/prometheus"
)

const (
	resolutionTotalName = "client_ip_resolution_total"
	securityEventsName  = "client_ip_security_events_total"
	rangeRefreshName    = "trusted_ranges_refresh_total"
)

// PrometheusMetrics is a Prometheus-backed implementation of
// cloudflareip.Metrics.
type PrometheusMetrics struct {
	resolutionTotal *prom.CounterVec
	securityEvents  *prom.CounterVec
	rangeRefresh    *prom.CounterVec
}

// WithMetrics returns a resolver option that installs Prometheus-backed
// metrics using prom.DefaultRegisterer.
func WithMetrics() cloudflareip.Option {
	return withMetricsFactory(New)
}

// WithRegisterer returns a resolver option that installs Prometheus-backed
// metrics using the provided registerer.
//
// If registerer is nil, prom.DefaultRegisterer is used.
func WithRegisterer(registerer prom.Registerer) cloudflareip.Option {
	return withMetricsFactory(func() (*PrometheusMetrics, error) {
		return NewWithRegisterer(registerer)
	})
}

// WithProviderMetrics returns a provider option that reports range refreshes
// to m.
func WithProviderMetrics(m *PrometheusMetrics) cloudflareip.ProviderOption {
	return cloudflareip.WithProviderMetrics(m)
}

func withMetricsFactory(factory func() (*PrometheusMetrics, error)) cloudflareip.Option {
	return cloudflareip.WithMetricsFactory(func() (cloudflareip.Metrics, error) {
		metrics, err := factory()
		if err != nil {
			return nil, err
		}
		return metrics, nil
	})
}

// New creates PrometheusMetrics and registers its collectors on
// prom.DefaultRegisterer.
func New() (*PrometheusMetrics, error) {
	return NewWithRegisterer(prom.DefaultRegisterer)
}

// NewWithRegisterer creates PrometheusMetrics and registers its collectors on
// the given registerer.
//
// If registerer is nil, prom.DefaultRegisterer is used. If the metrics are
// already registered, existing compatible collectors are reused.
func NewWithRegisterer(registerer prom.Registerer) (*PrometheusMetrics, error) {
	if registerer == nil {
		registerer = prom.DefaultRegisterer
	}

	resolutionTotal, err := registerCounterVec(registerer, prom.NewCounterVec(
		prom.CounterOpts{
			Name: resolutionTotalName,
			Help: "Client IP resolutions by result (untrusted_hop, trusted_chain, peer, spoofed, no_address).",
		},
		[]string{"result"},
	), resolutionTotalName)
	if err != nil {
		return nil, err
	}

	securityEvents, err := registerCounterVec(registerer, prom.NewCounterVec(
		prom.CounterOpts{
			Name: securityEventsName,
			Help: "Security-related events during client IP resolution, labeled by event.",
		},
		[]string{"event"},
	), securityEventsName)
	if err != nil {
		return nil, err
	}

	rangeRefresh, err := registerCounterVec(registerer, prom.NewCounterVec(
		prom.CounterOpts{
			Name: rangeRefreshName,
			Help: "Trusted CDN range lookups by family (ips_v4, ips_v6, all) and result (fetched, cache_hit, failed, fallback).",
		},
		[]string{"family", "result"},
	), rangeRefreshName)
	if err != nil {
		return nil, err
	}

	return &PrometheusMetrics{
		resolutionTotal: resolutionTotal,
		securityEvents:  securityEvents,
		rangeRefresh:    rangeRefresh,
	}, nil
}

func registerCounterVec(registerer prom.Registerer, collector *prom.CounterVec, metricName string) (*prom.CounterVec, error) {
	if err := registerer.Register(collector); err != nil {
		var alreadyRegistered prom.AlreadyRegisteredError
		if errors.As(err, &alreadyRegistered) {
			existing, ok := alreadyRegistered.ExistingCollector.(*prom.CounterVec)
			if ok {
				return existing, nil
			}
			return nil, fmt.Errorf("metric %q already registered with incompatible collector type %T", metricName, alreadyRegistered.ExistingCollector)
		}

		return nil, fmt.Errorf("register metric %q: %w", metricName, err)
	}

	return collector, nil
}

// RecordResolution increments client_ip_resolution_total for result.
func (m *PrometheusMetrics) RecordResolution(result string) {
	m.resolutionTotal.WithLabelValues(result).Inc()
}

// RecordSecurityEvent increments client_ip_security_events_total for the
// provided event label.
func (m *PrometheusMetrics) RecordSecurityEvent(event string) {
	m.securityEvents.WithLabelValues(event).Inc()
}

// RecordRangeRefresh increments trusted_ranges_refresh_total.
func (m *PrometheusMetrics) RecordRangeRefresh(family, result string) {
	m.rangeRefresh.WithLabelValues(family, result).Inc()
}
