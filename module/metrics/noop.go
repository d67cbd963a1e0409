package metrics

import (
	"github.com/finalitylab/grandpa-node/module"
)

type NoopCollector struct{}

var _ module.FinalityMetrics = (*NoopCollector)(nil)
var _ module.StorageProofMetrics = (*NoopCollector)(nil)
var _ module.CacheMetrics = (*NoopCollector)(nil)
var _ module.NetworkMetrics = (*NoopCollector)(nil)

func NewNoopCollector() *NoopCollector {
	nc := &NoopCollector{}
	return nc
}

func (nc *NoopCollector) MessageReceived(kind string)                        {}
func (nc *NoopCollector) MessageDropped(kind string, reason string)          {}
func (nc *NoopCollector) VoteSent(kind string)                               {}
func (nc *NoopCollector) VoteSuppressed(kind string)                         {}
func (nc *NoopCollector) CommitSent()                                        {}
func (nc *NoopCollector) CurrentRound(setID uint64, round uint64)            {}
func (nc *NoopCollector) GossipValidated(result string)                      {}
func (nc *NoopCollector) ProofNodeRecorded(sizeBytes int)                    {}
func (nc *NoopCollector) ProofExtracted(nodes int, sizeBytes int)            {}
func (nc *NoopCollector) CacheHit(resource string)                           {}
func (nc *NoopCollector) CacheMiss(resource string)                          {}
func (nc *NoopCollector) CacheEntries(resource string, entries uint)         {}
func (nc *NoopCollector) NetworkMessageSent(sizeBytes int, topic string)     {}
func (nc *NoopCollector) NetworkMessageReceived(sizeBytes int, topic string) {}
func (nc *NoopCollector) DirectMessageSent(sizeBytes int)                    {}
func (nc *NoopCollector) ConnectedPeers(count int)                           {}
