package prometheus

import (
	"github.com/abczzz13/cloudflareip/rangecache"
	"github.com/dgraph-io/ristretto/v2"
	prom "github.com/prometheus/client_golang/prometheus"
)

// CacheCollector exports the hit and miss statistics of an in-memory range
// cache.
type CacheCollector struct {
	metrics *ristretto.Metrics

	hits         *prom.Desc
	misses       *prom.Desc
	ratio        *prom.Desc
	keysAdded    *prom.Desc
	keysEvicted  *prom.Desc
	setsRejected *prom.Desc
}

// NewCacheCollector creates a collector for cache. Register it like any other
// collector:
//
//	memory, _ := rangecache.NewMemory()
//	registry.MustRegister(cfprom.NewCacheCollector(memory, "cfip_"))
func NewCacheCollector(cache *rangecache.Memory, prefix string) *CacheCollector {
	desc := func(name, help string) *prom.Desc {
		return prom.NewDesc(prefix+"range_cache_"+name, help, nil, nil)
	}

	return &CacheCollector{
		metrics:      cache.Metrics(),
		hits:         desc("hits", "Total number of range cache hits"),
		misses:       desc("misses", "Total number of range cache misses"),
		ratio:        desc("ratio", "Range cache hit ratio"),
		keysAdded:    desc("keys_added", "Total number of keys added to the range cache"),
		keysEvicted:  desc("keys_evicted", "Total number of keys evicted from the range cache"),
		setsRejected: desc("sets_rejected", "Total number of range cache sets rejected"),
	}
}

// Describe implements prom.Collector.
func (c *CacheCollector) Describe(ch chan<- *prom.Desc) {
	ch <- c.hits
	ch <- c.misses
	ch <- c.ratio
	ch <- c.keysAdded
	ch <- c.keysEvicted
	ch <- c.setsRejected
}

// Collect implements prom.Collector.
func (c *CacheCollector) Collect(ch chan<- prom.Metric) {
	ch <- prom.MustNewConstMetric(c.hits, prom.CounterValue, float64(c.metrics.Hits()))
	ch <- prom.MustNewConstMetric(c.misses, prom.CounterValue, float64(c.metrics.Misses()))
	ch <- prom.MustNewConstMetric(c.ratio, prom.GaugeValue, c.metrics.Ratio())
	ch <- prom.MustNewConstMetric(c.keysAdded, prom.CounterValue, float64(c.metrics.KeysAdded()))
	ch <- prom.MustNewConstMetric(c.keysEvicted, prom.CounterValue, float64(c.metrics.KeysEvicted()))
	ch <- prom.MustNewConstMetric(c.setsRejected, prom.CounterValue, float64(c.metrics.SetsRejected()))
}
