package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/finalitylab/grandpa-node/module"
)

// FinalityCollector reports metrics of the finality gossip layer.
type FinalityCollector struct {
	messagesReceived *prometheus.CounterVec
	messagesDropped  *prometheus.CounterVec
	votesSent        *prometheus.CounterVec
	votesSuppressed  *prometheus.CounterVec
	commitsSent      prometheus.Counter
	currentRound     prometheus.Gauge
	currentSetID     prometheus.Gauge
	gossipValidated  *prometheus.CounterVec
}

var _ module.FinalityMetrics = (*FinalityCollector)(nil)

func NewFinalityCollector(registerer prometheus.Registerer) *FinalityCollector {
	fc := &FinalityCollector{
		messagesReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespaceFinality,
			Subsystem: subsystemBridge,
			Name:      "messages_received_total",
			Help:      "number of verified finality messages received from the network",
		}, []string{LabelKind}),
		messagesDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespaceFinality,
			Subsystem: subsystemBridge,
			Name:      "messages_dropped_total",
			Help:      "number of inbound finality messages dropped",
		}, []string{LabelKind, LabelReason}),
		votesSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespaceFinality,
			Subsystem: subsystemBridge,
			Name:      "votes_sent_total",
			Help:      "number of votes signed and gossiped by the local voter",
		}, []string{LabelKind}),
		votesSuppressed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespaceFinality,
			Subsystem: subsystemBridge,
			Name:      "votes_suppressed_total",
			Help:      "number of votes not sent because the voter already voted in the round",
		}, []string{LabelKind}),
		commitsSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespaceFinality,
			Subsystem: subsystemBridge,
			Name:      "commits_sent_total",
			Help:      "number of commits gossiped on the global topic",
		}),
		currentRound: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespaceFinality,
			Subsystem: subsystemBridge,
			Name:      "current_round",
			Help:      "the round the node most recently joined",
		}),
		currentSetID: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespaceFinality,
			Subsystem: subsystemBridge,
			Name:      "current_set_id",
			Help:      "the authority set id of the most recently joined round",
		}),
		gossipValidated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespaceFinality,
			Subsystem: subsystemValidator,
			Name:      "messages_validated_total",
			Help:      "gossip validator verdicts by result",
		}, []string{LabelResult}),
	}

	registerer.MustRegister(
		fc.messagesReceived,
		fc.messagesDropped,
		fc.votesSent,
		fc.votesSuppressed,
		fc.commitsSent,
		fc.currentRound,
		fc.currentSetID,
		fc.gossipValidated,
	)
	return fc
}

func (fc *FinalityCollector) MessageReceived(kind string) {
	fc.messagesReceived.WithLabelValues(kind).Inc()
}

func (fc *FinalityCollector) MessageDropped(kind string, reason string) {
	fc.messagesDropped.WithLabelValues(kind, reason).Inc()
}

func (fc *FinalityCollector) VoteSent(kind string) {
	fc.votesSent.WithLabelValues(kind).Inc()
}

func (fc *FinalityCollector) VoteSuppressed(kind string) {
	fc.votesSuppressed.WithLabelValues(kind).Inc()
}

func (fc *FinalityCollector) CommitSent() {
	fc.commitsSent.Inc()
}

func (fc *FinalityCollector) CurrentRound(setID uint64, round uint64) {
	fc.currentSetID.Set(float64(setID))
	fc.currentRound.Set(float64(round))
}

func (fc *FinalityCollector) GossipValidated(result string) {
	fc.gossipValidated.WithLabelValues(result).Inc()
}
