package communication

import (
	"errors"
	"fmt"
	"sync"

	"github.com/gammazero/workerpool"
	"github.com/libp2p/go-libp2p/core/peer"
	"github.com/rs/zerolog"

	"github.com/finalitylab/grandpa-node/model/finality"
	"github.com/finalitylab/grandpa-node/model/messages"
	"github.com/finalitylab/grandpa-node/module"
	"github.com/finalitylab/grandpa-node/module/metrics"
	"github.com/finalitylab/grandpa-node/network"
	"github.com/finalitylab/grandpa-node/network/codec"
	"github.com/finalitylab/grandpa-node/storage"
)

// maximum number of messages a local voter signs in one round
const votesPerRound = 3

// DefaultIncomingBuffer is the buffer of the channels returned by
// RoundCommunication and GlobalCommunication.
const DefaultIncomingBuffer = 256

// NetworkBridge binds voting rounds and authority sets to gossip topics. It
// filters what arrives on them and signs what the local voter sends.
type NetworkBridge struct {
	log       zerolog.Logger
	network   network.Network
	codec     codec.Codec
	validator *GossipValidator
	states    storage.VoterStates
	metrics   module.FinalityMetrics
	cacheSize int

	// neighbor packets leave in order on a single worker, so a slow peer
	// never blocks the caller
	neighborMu sync.Mutex
	neighbors  *workerpool.WorkerPool
	closed     bool
}

type BridgeOption func(*NetworkBridge)

// WithVoterStates persists the voting state of every round, so that votes are
// not repeated after a restart.
func WithVoterStates(states storage.VoterStates) BridgeOption {
	return func(b *NetworkBridge) {
		b.states = states
	}
}

func WithMetrics(collector module.FinalityMetrics) BridgeOption {
	return func(b *NetworkBridge) {
		b.metrics = collector
	}
}

// WithValidatorCacheSize sets the number of message ids the gossip validator
// remembers.
func WithValidatorCacheSize(size int) BridgeOption {
	return func(b *NetworkBridge) {
		b.cacheSize = size
	}
}

// NewNetworkBridge creates a bridge and registers its gossip validator with
// the network.
func NewNetworkBridge(log zerolog.Logger, net network.Network, codec codec.Codec, opts ...BridgeOption) (*NetworkBridge, error) {
	bridge := &NetworkBridge{
		log:       log.With().Str("component", "grandpa_bridge").Logger(),
		network:   net,
		codec:     codec,
		metrics:   metrics.NewNoopCollector(),
		cacheSize: DefaultValidatorCacheSize,
	}
	for _, opt := range opts {
		opt(bridge)
	}

	validator, err := NewGossipValidator(log, codec, bridge.metrics, bridge.cacheSize)
	if err != nil {
		return nil, fmt.Errorf("could not create gossip validator: %w", err)
	}
	err = net.RegisterValidator(validator)
	if err != nil {
		return nil, fmt.Errorf("could not register gossip validator: %w", err)
	}
	bridge.validator = validator
	bridge.neighbors = workerpool.New(1)
	return bridge, nil
}

// Close waits for queued neighbor packets to be sent. Later view updates are
// no longer sent to peers.
func (b *NetworkBridge) Close() {
	b.neighborMu.Lock()
	defer b.neighborMu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	b.neighbors.StopWait()
}

func (b *NetworkBridge) Validator() *GossipValidator {
	return b.validator
}

// RoundParams describes the round to join.
type RoundParams struct {
	Round  finality.Round
	SetID  finality.SetID
	Voters *finality.VoterSet
	// Local is the signing identity of this node, or nil if it does not
	// vote. A key outside of Voters is treated as nil.
	Local *LocalVoter
	// HasVoted is the voting state the round starts in, usually restored
	// with RestoreHasVoted.
	HasVoted finality.HasVoted
}

// RoundIncoming is the stream of verified votes of one round, including the
// votes of the local voter.
type RoundIncoming struct {
	messages chan finality.SignedMessage
	sub      *network.Subscription
	done     chan struct{}
	once     sync.Once
}

// Messages returns the votes. The channel is closed after Close.
func (r *RoundIncoming) Messages() <-chan finality.SignedMessage {
	return r.messages
}

// Close releases the round topic.
func (r *RoundIncoming) Close() {
	r.once.Do(func() {
		close(r.done)
		r.sub.Cancel()
	})
}

// RoundCommunication joins a round. Incoming votes are decoded and checked
// for membership and signature; anything else is dropped. The returned
// OutgoingMessages signs and broadcasts the local voter's messages.
func (b *NetworkBridge) RoundCommunication(params RoundParams) (*RoundIncoming, *OutgoingMessages, error) {
	if params.Voters == nil {
		return nil, nil, finality.ErrEmptyVoterSet
	}
	b.NoteRound(params.Round, params.SetID, params.Voters)

	log := b.log.With().
		Uint64("round", uint64(params.Round)).
		Uint64("set_id", uint64(params.SetID)).
		Logger()

	local := params.Local
	if local != nil && !params.Voters.Contains(local.ID) {
		log.Debug().Str("voter", local.ID.TerminalString()).Msg("local key is not in the voter set, not voting")
		local = nil
	}

	topic := RoundTopic(params.Round, params.SetID)
	sub, err := b.network.MessagesFor(topic)
	if err != nil {
		return nil, nil, fmt.Errorf("could not subscribe to round topic: %w", err)
	}

	forward := make(chan finality.SignedMessage, votesPerRound)
	incoming := &RoundIncoming{
		messages: make(chan finality.SignedMessage, DefaultIncomingBuffer),
		sub:      sub,
		done:     make(chan struct{}),
	}
	outgoing := &OutgoingMessages{
		log:      log.With().Str("voter", voterName(local)).Logger(),
		round:    params.Round,
		setID:    params.SetID,
		local:    local,
		network:  b.network,
		codec:    b.codec,
		states:   b.states,
		metrics:  b.metrics,
		forward:  forward,
		hasVoted: params.HasVoted,
	}

	go b.pumpRound(log, params, incoming, forward)

	b.metrics.CurrentRound(uint64(params.SetID), uint64(params.Round))
	return incoming, outgoing, nil
}

func (b *NetworkBridge) pumpRound(log zerolog.Logger, params RoundParams, incoming *RoundIncoming, forward <-chan finality.SignedMessage) {
	defer close(incoming.messages)
	for {
		var signed finality.SignedMessage
		select {
		case <-incoming.done:
			return
		case signed = <-forward:
		case msg := <-incoming.sub.Messages():
			var ok bool
			signed, ok = b.checkVote(log, params, msg)
			if !ok {
				continue
			}
		}
		select {
		case incoming.messages <- signed:
		case <-incoming.done:
			return
		}
	}
}

// checkVote decodes a round message and verifies its signer.
func (b *NetworkBridge) checkVote(log zerolog.Logger, params RoundParams, msg network.Message) (finality.SignedMessage, bool) {
	log = log.With().Str("peer_id", msg.Sender.String()).Logger()

	decoded, err := b.codec.Decode(msg.Data)
	if err != nil {
		log.Debug().Err(err).Msg("skipping malformed message")
		b.metrics.MessageDropped("unknown", metrics.ReasonDecode)
		return finality.SignedMessage{}, false
	}
	vote, ok := decoded.(*messages.VoteOrPrecommit)
	if !ok {
		log.Debug().Msgf("skipping message of unexpected type %T", decoded)
		b.metrics.MessageDropped("unknown", metrics.ReasonMalformed)
		return finality.SignedMessage{}, false
	}

	kind := vote.Message.Message.Kind.String()
	if !vote.Message.Message.Valid() {
		log.Debug().Str("kind", kind).Msg("skipping message of unknown kind")
		b.metrics.MessageDropped(kind, metrics.ReasonMalformed)
		return finality.SignedMessage{}, false
	}
	if vote.Round != params.Round || vote.SetID != params.SetID {
		log.Debug().Msg("skipping vote for another round")
		b.metrics.MessageDropped(kind, metrics.ReasonWrongRound)
		return finality.SignedMessage{}, false
	}
	if !params.Voters.Contains(vote.Message.ID) {
		log.Debug().Str("voter", vote.Message.ID.String()).Msg("skipping message from unknown voter")
		b.metrics.MessageDropped(kind, metrics.ReasonUnknownVoter)
		return finality.SignedMessage{}, false
	}
	err = CheckMessageSig(vote.Message, params.Round, params.SetID)
	if err != nil {
		log.Debug().Err(err).Msg("bad signature on message")
		b.metrics.MessageDropped(kind, metrics.ReasonBadSignature)
		return finality.SignedMessage{}, false
	}

	log.Debug().
		Str("kind", kind).
		Str("voter", vote.Message.ID.TerminalString()).
		Str("target_hash", vote.Message.Message.TargetHash.Hex()).
		Uint64("target_number", vote.Message.Message.TargetNumber).
		Msg("received vote")
	b.metrics.MessageReceived(kind)
	return vote.Message, true
}

// RoundCommit is a commit received for a round of the current set.
type RoundCommit struct {
	Round  finality.Round
	Commit finality.CompactCommit
}

// GlobalIncoming is the stream of structurally valid commits of one set.
type GlobalIncoming struct {
	commits chan RoundCommit
	sub     *network.Subscription
	done    chan struct{}
	once    sync.Once
}

// Commits returns the commits. The channel is closed after Close.
func (g *GlobalIncoming) Commits() <-chan RoundCommit {
	return g.commits
}

// Close releases the global topic.
func (g *GlobalIncoming) Close() {
	g.once.Do(func() {
		close(g.done)
		g.sub.Cancel()
	})
}

// GlobalCommunication joins the commit stream of a set. Incoming commits
// that fail CheckCompactCommit are dropped. The returned CommitsOut gossips
// commits if isVoter is set.
func (b *NetworkBridge) GlobalCommunication(setID finality.SetID, voters *finality.VoterSet, isVoter bool) (*GlobalIncoming, *CommitsOut, error) {
	if voters == nil {
		return nil, nil, finality.ErrEmptyVoterSet
	}
	b.NoteSet(setID, voters)

	log := b.log.With().Uint64("set_id", uint64(setID)).Logger()

	sub, err := b.network.MessagesFor(GlobalTopic(setID))
	if err != nil {
		return nil, nil, fmt.Errorf("could not subscribe to global topic: %w", err)
	}
	incoming := &GlobalIncoming{
		commits: make(chan RoundCommit, DefaultIncomingBuffer),
		sub:     sub,
		done:    make(chan struct{}),
	}
	outgoing := &CommitsOut{
		log:     log,
		setID:   setID,
		isVoter: isVoter,
		network: b.network,
		codec:   b.codec,
		metrics: b.metrics,
	}

	go b.pumpGlobal(log, setID, voters, incoming)

	return incoming, outgoing, nil
}

func (b *NetworkBridge) pumpGlobal(log zerolog.Logger, setID finality.SetID, voters *finality.VoterSet, incoming *GlobalIncoming) {
	defer close(incoming.commits)
	for {
		select {
		case <-incoming.done:
			return
		case msg := <-incoming.sub.Messages():
			commit, ok := b.checkCommit(log, setID, voters, msg)
			if !ok {
				continue
			}
			select {
			case incoming.commits <- commit:
			case <-incoming.done:
				return
			}
		}
	}
}

func (b *NetworkBridge) checkCommit(log zerolog.Logger, setID finality.SetID, voters *finality.VoterSet, msg network.Message) (RoundCommit, bool) {
	log = log.With().Str("peer_id", msg.Sender.String()).Logger()

	decoded, err := b.codec.Decode(msg.Data)
	if err != nil {
		log.Debug().Err(err).Msg("skipping malformed commit message")
		b.metrics.MessageDropped(kindCommit, metrics.ReasonDecode)
		return RoundCommit{}, false
	}
	commit, ok := decoded.(*messages.Commit)
	if !ok {
		log.Debug().Msgf("skipping message of unexpected type %T", decoded)
		b.metrics.MessageDropped(kindCommit, metrics.ReasonMalformed)
		return RoundCommit{}, false
	}
	if commit.SetID != setID {
		log.Debug().Uint64("commit_set_id", uint64(commit.SetID)).Msg("skipping commit for another set")
		b.metrics.MessageDropped(kindCommit, metrics.ReasonWrongRound)
		return RoundCommit{}, false
	}

	log = log.With().
		Uint64("round", uint64(commit.Round)).
		Str("target_hash", commit.Message.TargetHash.Hex()).
		Uint64("target_number", commit.Message.TargetNumber).
		Logger()

	err = CheckCompactCommit(commit.Message, voters)
	if err != nil {
		reason := metrics.ReasonMalformed
		if finality.IsUnknownVoterError(err) {
			reason = metrics.ReasonUnknownVoter
		}
		log.Debug().Err(err).Msg("skipping invalid commit")
		b.metrics.MessageDropped(kindCommit, reason)
		return RoundCommit{}, false
	}

	log.Debug().Int("precommits", len(commit.Message.Precommits)).Msg("received commit")
	b.metrics.MessageReceived(kindCommit)
	return RoundCommit{Round: commit.Round, Commit: commit.Message}, true
}

// NoteRound updates the local view to a round and tells our peers.
func (b *NetworkBridge) NoteRound(round finality.Round, setID finality.SetID, voters *finality.VoterSet) {
	neighbor, peers := b.validator.NoteRound(round, setID, voters)
	b.sendNeighbor(neighbor, peers)
}

// NoteSet updates the local view to a set and tells our peers.
func (b *NetworkBridge) NoteSet(setID finality.SetID, voters *finality.VoterSet) {
	neighbor, peers := b.validator.NoteSet(setID, voters)
	b.sendNeighbor(neighbor, peers)
}

// NoteCommitFinalized records the latest block finalized by a commit and
// tells our peers.
func (b *NetworkBridge) NoteCommitFinalized(number uint64) {
	neighbor, peers := b.validator.NoteCommitFinalized(number)
	b.sendNeighbor(neighbor, peers)
}

func (b *NetworkBridge) sendNeighbor(neighbor *messages.Neighbor, peers []peer.ID) {
	if len(peers) == 0 {
		return
	}
	data, err := b.codec.Encode(neighbor)
	if err != nil {
		b.log.Error().Err(err).Msg("could not encode neighbor packet")
		return
	}

	b.neighborMu.Lock()
	defer b.neighborMu.Unlock()
	if b.closed {
		b.log.Debug().Msg("bridge closed, neighbor packet not sent")
		return
	}
	b.neighbors.Submit(func() {
		err := b.network.SendMessage(peers, data)
		if err != nil {
			b.log.Debug().Err(err).Msg("could not send neighbor packet to all peers")
		}
	})
}

// RestoreHasVoted returns the persisted voting state of a round, or
// HasVotedNo if the local voter never voted in it.
func (b *NetworkBridge) RestoreHasVoted(setID finality.SetID, round finality.Round) (finality.HasVoted, error) {
	if b.states == nil {
		return finality.HasVotedNo, nil
	}
	state, err := b.states.ByRound(setID, round)
	if errors.Is(err, storage.ErrNotFound) {
		return finality.HasVotedNo, nil
	}
	if err != nil {
		return finality.HasVotedNo, fmt.Errorf("could not restore voting state: %w", err)
	}
	return state, nil
}

func voterName(local *LocalVoter) string {
	if local == nil {
		return "none"
	}
	return local.ID.TerminalString()
}
