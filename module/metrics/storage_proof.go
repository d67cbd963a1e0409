package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/finalitylab/grandpa-node/module"
)

type StorageProofCollector struct {
	nodesRecorded prometheus.Counter
	bytesRecorded prometheus.Counter
	proofNodes    prometheus.Histogram
	proofSize     prometheus.Histogram
}

var _ module.StorageProofMetrics = (*StorageProofCollector)(nil)

func NewStorageProofCollector(registerer prometheus.Registerer) *StorageProofCollector {
	sc := &StorageProofCollector{
		nodesRecorded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespaceState,
			Subsystem: subsystemProof,
			Name:      "nodes_recorded_total",
			Help:      "number of trie nodes recorded into storage proofs",
		}),
		bytesRecorded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespaceState,
			Subsystem: subsystemProof,
			Name:      "recorded_bytes_total",
			Help:      "total size of trie nodes recorded into storage proofs",
		}),
		proofNodes: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespaceState,
			Subsystem: subsystemProof,
			Name:      "extracted_nodes",
			Help:      "number of nodes per extracted storage proof",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 12),
		}),
		proofSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespaceState,
			Subsystem: subsystemProof,
			Name:      "extracted_size_bytes",
			Help:      "size of extracted storage proofs in bytes",
			Buckets:   prometheus.ExponentialBuckets(64, 4, 10),
		}),
	}
	registerer.MustRegister(sc.nodesRecorded, sc.bytesRecorded, sc.proofNodes, sc.proofSize)
	return sc
}

func (sc *StorageProofCollector) ProofNodeRecorded(sizeBytes int) {
	sc.nodesRecorded.Inc()
	sc.bytesRecorded.Add(float64(sizeBytes))
}

func (sc *StorageProofCollector) ProofExtracted(nodes int, sizeBytes int) {
	sc.proofNodes.Observe(float64(nodes))
	sc.proofSize.Observe(float64(sizeBytes))
}
