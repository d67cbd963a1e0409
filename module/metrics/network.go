package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/finalitylab/grandpa-node/module"
)

type NetworkCollector struct {
	outboundMessageSize *prometheus.HistogramVec
	inboundMessageSize  *prometheus.HistogramVec
	directMessageSize   prometheus.Histogram
	connectedPeers      prometheus.Gauge
}

var _ module.NetworkMetrics = (*NetworkCollector)(nil)

func NewNetworkCollector(registerer prometheus.Registerer) *NetworkCollector {
	nc := &NetworkCollector{
		outboundMessageSize: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespaceNetwork,
			Subsystem: subsystemGossip,
			Name:      "outbound_message_size_bytes",
			Help:      "size of outbound gossip messages",
			Buckets:   []float64{KiB, 100 * KiB, 500 * KiB, 1 * MiB},
		}, []string{LabelTopic}),
		inboundMessageSize: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespaceNetwork,
			Subsystem: subsystemGossip,
			Name:      "inbound_message_size_bytes",
			Help:      "size of inbound gossip messages",
			Buckets:   []float64{KiB, 100 * KiB, 500 * KiB, 1 * MiB},
		}, []string{LabelTopic}),
		directMessageSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespaceNetwork,
			Subsystem: subsystemDirect,
			Name:      "outbound_message_size_bytes",
			Help:      "size of messages sent directly to peers",
			Buckets:   []float64{KiB, 100 * KiB, 500 * KiB, 1 * MiB},
		}),
		connectedPeers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespaceNetwork,
			Subsystem: subsystemGossip,
			Name:      "connected_peers",
			Help:      "number of currently connected peers",
		}),
	}
	registerer.MustRegister(nc.outboundMessageSize, nc.inboundMessageSize, nc.directMessageSize, nc.connectedPeers)
	return nc
}

func (nc *NetworkCollector) NetworkMessageSent(sizeBytes int, topic string) {
	nc.outboundMessageSize.WithLabelValues(topic).Observe(float64(sizeBytes))
}

func (nc *NetworkCollector) NetworkMessageReceived(sizeBytes int, topic string) {
	nc.inboundMessageSize.WithLabelValues(topic).Observe(float64(sizeBytes))
}

func (nc *NetworkCollector) DirectMessageSent(sizeBytes int) {
	nc.directMessageSize.Observe(float64(sizeBytes))
}

func (nc *NetworkCollector) ConnectedPeers(count int) {
	nc.connectedPeers.Set(float64(count))
}
