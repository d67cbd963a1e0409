package communication

import (
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/libp2p/go-libp2p/core/peer"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/blake2b"

	"github.com/finalitylab/grandpa-node/model/finality"
	"github.com/finalitylab/grandpa-node/model/messages"
	"github.com/finalitylab/grandpa-node/module"
	"github.com/finalitylab/grandpa-node/module/metrics"
	"github.com/finalitylab/grandpa-node/network"
	"github.com/finalitylab/grandpa-node/network/codec"
)

// DefaultValidatorCacheSize is the number of accepted message ids the
// validator remembers.
const DefaultValidatorCacheSize = 4096

// View is what a node has told its peers about its progress.
type View struct {
	Round                 finality.Round
	SetID                 finality.SetID
	CommitFinalizedHeight uint64
}

func (v View) neighbor() *messages.Neighbor {
	return &messages.Neighbor{
		Round:                 v.Round,
		SetID:                 v.SetID,
		CommitFinalizedHeight: v.CommitFinalizedHeight,
	}
}

// GossipValidator decides which finality messages are delivered and
// propagated. Votes are accepted for the current set within one round of the
// local round, from known voters with valid signatures. Commits are accepted
// for the current set when they pass CheckCompactCommit. Everything else is
// ignored, and undecodable messages are rejected.
type GossipValidator struct {
	log     zerolog.Logger
	codec   codec.Codec
	metrics module.FinalityMetrics
	seen    *lru.Cache[[32]byte, struct{}]

	mu     sync.RWMutex
	local  View
	voters *finality.VoterSet
	peers  map[peer.ID]*View
}

var _ network.Validator = (*GossipValidator)(nil)

func NewGossipValidator(log zerolog.Logger, codec codec.Codec, metrics module.FinalityMetrics, cacheSize int) (*GossipValidator, error) {
	seen, err := lru.New[[32]byte, struct{}](cacheSize)
	if err != nil {
		return nil, err
	}
	return &GossipValidator{
		log:     log.With().Str("component", "gossip_validator").Logger(),
		codec:   codec,
		metrics: metrics,
		seen:    seen,
		peers:   make(map[peer.ID]*View),
	}, nil
}

// NoteRound moves the local view to a round. It returns the neighbor packet
// announcing the new view and the peers to send it to.
func (v *GossipValidator) NoteRound(round finality.Round, setID finality.SetID, voters *finality.VoterSet) (*messages.Neighbor, []peer.ID) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if setID != v.local.SetID {
		v.local.CommitFinalizedHeight = 0
	}
	v.local.Round = round
	v.local.SetID = setID
	v.voters = voters
	return v.local.neighbor(), v.peerIDs()
}

// NoteSet moves the local view to a new set, starting at round 0 unless the
// set is already current.
func (v *GossipValidator) NoteSet(setID finality.SetID, voters *finality.VoterSet) (*messages.Neighbor, []peer.ID) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if setID != v.local.SetID {
		v.local = View{SetID: setID}
	}
	v.voters = voters
	return v.local.neighbor(), v.peerIDs()
}

// NoteCommitFinalized records the height of the latest block finalized by a
// commit.
func (v *GossipValidator) NoteCommitFinalized(number uint64) (*messages.Neighbor, []peer.ID) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if number > v.local.CommitFinalizedHeight {
		v.local.CommitFinalizedHeight = number
	}
	return v.local.neighbor(), v.peerIDs()
}

// must be called with v.mu held
func (v *GossipValidator) peerIDs() []peer.ID {
	ids := make([]peer.ID, 0, len(v.peers))
	for id := range v.peers {
		ids = append(ids, id)
	}
	return ids
}

// Local returns the local view.
func (v *GossipValidator) Local() View {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.local
}

// PeerView returns the last view a peer announced.
func (v *GossipValidator) PeerView(id peer.ID) (View, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	view, ok := v.peers[id]
	if !ok {
		return View{}, false
	}
	return *view, true
}

// Peers returns the connected peers.
func (v *GossipValidator) Peers() []peer.ID {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.peerIDs()
}

func (v *GossipValidator) NewPeer(id peer.ID) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if _, ok := v.peers[id]; !ok {
		v.peers[id] = &View{}
	}
}

func (v *GossipValidator) PeerDisconnected(id peer.ID) {
	v.mu.Lock()
	defer v.mu.Unlock()
	delete(v.peers, id)
}

func (v *GossipValidator) Validate(sender peer.ID, topic network.Topic, data []byte) network.ValidationResult {
	result := v.validate(sender, topic, data)
	v.metrics.GossipValidated(result.String())
	return result
}

func (v *GossipValidator) validate(sender peer.ID, topic network.Topic, data []byte) network.ValidationResult {
	id := messageID(topic, data)
	if v.seen.Contains(id) {
		return network.ValidationIgnore
	}

	log := v.log.With().Str("peer_id", sender.String()).Str("topic", topic.String()).Logger()

	decoded, err := v.codec.Decode(data)
	if err != nil {
		log.Debug().Err(err).Msg("rejecting undecodable message")
		v.metrics.MessageDropped("unknown", metrics.ReasonDecode)
		return network.ValidationReject
	}

	var result network.ValidationResult
	switch msg := decoded.(type) {
	case *messages.VoteOrPrecommit:
		result = v.validateVote(log, topic, msg)
	case *messages.Commit:
		result = v.validateCommit(log, topic, msg)
	case *messages.Neighbor:
		result = v.validateNeighbor(log, sender, topic, msg)
	default:
		log.Debug().Msgf("rejecting message of unexpected type %T", decoded)
		result = network.ValidationReject
	}

	// neighbor packets legitimately repeat
	if result == network.ValidationAccept && topic != network.DirectTopic {
		v.seen.Add(id, struct{}{})
	}
	return result
}

func (v *GossipValidator) validateVote(log zerolog.Logger, topic network.Topic, msg *messages.VoteOrPrecommit) network.ValidationResult {
	kind := msg.Message.Message.Kind.String()
	log = log.With().
		Uint64("round", uint64(msg.Round)).
		Uint64("set_id", uint64(msg.SetID)).
		Str("voter", msg.Message.ID.TerminalString()).
		Logger()

	if topic != RoundTopic(msg.Round, msg.SetID) || !msg.Message.Message.Valid() {
		log.Debug().Msg("rejecting malformed vote")
		v.metrics.MessageDropped(kind, metrics.ReasonMalformed)
		return network.ValidationReject
	}

	v.mu.RLock()
	local, voters := v.local, v.voters
	v.mu.RUnlock()

	if voters == nil || msg.SetID != local.SetID || !withinOneRound(msg.Round, local.Round) {
		log.Debug().Uint64("local_round", uint64(local.Round)).Msg("ignoring vote outside of the local view")
		v.metrics.MessageDropped(kind, metrics.ReasonWrongRound)
		return network.ValidationIgnore
	}
	if !voters.Contains(msg.Message.ID) {
		log.Debug().Msg("ignoring vote from unknown voter")
		v.metrics.MessageDropped(kind, metrics.ReasonUnknownVoter)
		return network.ValidationIgnore
	}
	err := CheckMessageSig(msg.Message, msg.Round, msg.SetID)
	if err != nil {
		log.Debug().Err(err).Msg("rejecting vote with bad signature")
		v.metrics.MessageDropped(kind, metrics.ReasonBadSignature)
		return network.ValidationReject
	}
	return network.ValidationAccept
}

func (v *GossipValidator) validateCommit(log zerolog.Logger, topic network.Topic, msg *messages.Commit) network.ValidationResult {
	log = log.With().
		Uint64("round", uint64(msg.Round)).
		Uint64("set_id", uint64(msg.SetID)).
		Str("target_hash", msg.Message.TargetHash.Hex()).
		Logger()

	if topic != GlobalTopic(msg.SetID) {
		log.Debug().Msg("rejecting commit on foreign topic")
		v.metrics.MessageDropped(kindCommit, metrics.ReasonMalformed)
		return network.ValidationReject
	}

	v.mu.RLock()
	local, voters := v.local, v.voters
	v.mu.RUnlock()

	if voters == nil || msg.SetID != local.SetID {
		log.Debug().Msg("ignoring commit for another set")
		v.metrics.MessageDropped(kindCommit, metrics.ReasonWrongRound)
		return network.ValidationIgnore
	}
	err := CheckCompactCommit(msg.Message, voters)
	if finality.IsUnknownVoterError(err) {
		log.Debug().Err(err).Msg("ignoring commit with unknown signer")
		v.metrics.MessageDropped(kindCommit, metrics.ReasonUnknownVoter)
		return network.ValidationIgnore
	}
	if err != nil {
		log.Debug().Err(err).Msg("rejecting malformed commit")
		v.metrics.MessageDropped(kindCommit, metrics.ReasonMalformed)
		return network.ValidationReject
	}
	return network.ValidationAccept
}

func (v *GossipValidator) validateNeighbor(log zerolog.Logger, sender peer.ID, topic network.Topic, msg *messages.Neighbor) network.ValidationResult {
	if topic != network.DirectTopic {
		log.Debug().Msg("rejecting gossiped neighbor packet")
		v.metrics.MessageDropped(kindNeighbor, metrics.ReasonMalformed)
		return network.ValidationReject
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	view, ok := v.peers[sender]
	if !ok {
		return network.ValidationIgnore
	}
	view.Round = msg.Round
	view.SetID = msg.SetID
	view.CommitFinalizedHeight = msg.CommitFinalizedHeight

	log.Trace().
		Uint64("round", uint64(msg.Round)).
		Uint64("set_id", uint64(msg.SetID)).
		Msg("updated peer view")
	return network.ValidationAccept
}

func withinOneRound(round, local finality.Round) bool {
	if round > local {
		return round-local <= 1
	}
	return local-round <= 1
}

func messageID(topic network.Topic, data []byte) [32]byte {
	h, _ := blake2b.New256(nil)
	_, _ = h.Write(topic[:])
	_, _ = h.Write(data)
	var id [32]byte
	copy(id[:], h.Sum(nil))
	return id
}
