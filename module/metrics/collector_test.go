package metrics_test

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finalitylab/grandpa-node/module/metrics"
)

func TestFinalityCollector(t *testing.T) {
	registry := prometheus.NewRegistry()
	collector := metrics.NewFinalityCollector(registry)

	collector.VoteSent("prevote")
	collector.VoteSent("prevote")
	collector.MessageDropped("vote", metrics.ReasonBadSignature)
	collector.CurrentRound(2, 7)

	count, err := testutil.GatherAndCount(registry, "finality_bridge_votes_sent_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	families, err := registry.Gather()
	require.NoError(t, err)
	values := make(map[string]float64)
	for _, family := range families {
		for _, metric := range family.GetMetric() {
			switch {
			case metric.GetCounter() != nil:
				values[family.GetName()] += metric.GetCounter().GetValue()
			case metric.GetGauge() != nil:
				values[family.GetName()] = metric.GetGauge().GetValue()
			}
		}
	}
	assert.Equal(t, 2.0, values["finality_bridge_votes_sent_total"])
	assert.Equal(t, 1.0, values["finality_bridge_messages_dropped_total"])
	assert.Equal(t, 7.0, values["finality_bridge_current_round"])
	assert.Equal(t, 2.0, values["finality_bridge_current_set_id"])
}

func TestStorageProofCollector(t *testing.T) {
	registry := prometheus.NewRegistry()
	collector := metrics.NewStorageProofCollector(registry)

	collector.ProofNodeRecorded(100)
	collector.ProofNodeRecorded(50)

	assert.Equal(t, 2.0, testutil.ToFloat64(collectorCounter(t, registry, "state_proof_nodes_recorded_total")))
}

func collectorCounter(t *testing.T, registry *prometheus.Registry, name string) prometheus.Collector {
	families, err := registry.Gather()
	require.NoError(t, err)
	for _, family := range families {
		if family.GetName() == name {
			counter := prometheus.NewCounter(prometheus.CounterOpts{Name: name})
			counter.Add(family.GetMetric()[0].GetCounter().GetValue())
			return counter
		}
	}
	require.Fail(t, "metric not found", name)
	return nil
}

func TestCacheCollector(t *testing.T) {
	registry := prometheus.NewRegistry()
	collector := metrics.NewCacheCollector(registry)

	collector.CacheHit(metrics.ResourceTrieNode)
	collector.CacheHit(metrics.ResourceTrieNode)
	collector.CacheMiss(metrics.ResourceTrieNode)
	collector.CacheEntries(metrics.ResourceTrieNode, 42)

	expected := `
# HELP storage_cache_entries_total number of entries held by the cache
# TYPE storage_cache_entries_total gauge
storage_cache_entries_total{resource="trie_node"} 42
# HELP storage_cache_hits_total number of reads served from the cache
# TYPE storage_cache_hits_total counter
storage_cache_hits_total{resource="trie_node"} 2
# HELP storage_cache_misses_total number of reads that went to the database
# TYPE storage_cache_misses_total counter
storage_cache_misses_total{resource="trie_node"} 1
`
	err := testutil.GatherAndCompare(registry, strings.NewReader(expected))
	require.NoError(t, err)
}
