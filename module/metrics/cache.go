package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/finalitylab/grandpa-node/module"
)

type CacheCollector struct {
	hits    *prometheus.CounterVec
	misses  *prometheus.CounterVec
	entries *prometheus.GaugeVec
}

var _ module.CacheMetrics = (*CacheCollector)(nil)

func NewCacheCollector(registerer prometheus.Registerer) *CacheCollector {
	cc := &CacheCollector{
		hits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespaceStorage,
			Subsystem: subsystemCache,
			Name:      "hits_total",
			Help:      "number of reads served from the cache",
		}, []string{LabelResource}),
		misses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespaceStorage,
			Subsystem: subsystemCache,
			Name:      "misses_total",
			Help:      "number of reads that went to the database",
		}, []string{LabelResource}),
		entries: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespaceStorage,
			Subsystem: subsystemCache,
			Name:      "entries_total",
			Help:      "number of entries held by the cache",
		}, []string{LabelResource}),
	}
	registerer.MustRegister(cc.hits, cc.misses, cc.entries)
	return cc
}

func (cc *CacheCollector) CacheHit(resource string) {
	cc.hits.WithLabelValues(resource).Inc()
}

func (cc *CacheCollector) CacheMiss(resource string) {
	cc.misses.WithLabelValues(resource).Inc()
}

func (cc *CacheCollector) CacheEntries(resource string, entries uint) {
	cc.entries.WithLabelValues(resource).Set(float64(entries))
}
