package communication

import (
	"fmt"
	"sync"

	"github.com/libp2p/go-libp2p/core/crypto"
	"github.com/rs/zerolog"

	"github.com/finalitylab/grandpa-node/model/finality"
	"github.com/finalitylab/grandpa-node/model/messages"
	"github.com/finalitylab/grandpa-node/module"
	"github.com/finalitylab/grandpa-node/network"
	"github.com/finalitylab/grandpa-node/network/codec"
	"github.com/finalitylab/grandpa-node/storage"
)

const (
	kindCommit   = "commit"
	kindNeighbor = "neighbor"
)

// LocalVoter is the signing identity of this node.
type LocalVoter struct {
	Key crypto.PrivKey
	ID  finality.AuthorityID
}

func NewLocalVoter(key crypto.PrivKey) (*LocalVoter, error) {
	id, err := finality.AuthorityIDFromPublicKey(key.GetPublic())
	if err != nil {
		return nil, fmt.Errorf("invalid voter key: %w", err)
	}
	return &LocalVoter{Key: key, ID: id}, nil
}

// Sign signs the localized payload of msg.
func (l *LocalVoter) Sign(msg finality.Message, round finality.Round, setID finality.SetID) (finality.SignedMessage, error) {
	payload, err := finality.LocalizedPayload(msg, round, setID)
	if err != nil {
		return finality.SignedMessage{}, fmt.Errorf("could not encode payload: %w", err)
	}
	sig, err := l.Key.Sign(payload)
	if err != nil {
		return finality.SignedMessage{}, fmt.Errorf("could not sign message: %w", err)
	}
	return finality.SignedMessage{Message: msg, Signature: sig, ID: l.ID}, nil
}

// OutgoingMessages signs and broadcasts the local voter's messages of one
// round. A message is signed at most once per kind, and never after a message
// of a later kind: the round's HasVoted state only moves forward.
type OutgoingMessages struct {
	log     zerolog.Logger
	round   finality.Round
	setID   finality.SetID
	local   *LocalVoter
	network network.Network
	codec   codec.Codec
	states  storage.VoterStates
	metrics module.FinalityMetrics
	forward chan<- finality.SignedMessage

	mu       sync.Mutex
	hasVoted finality.HasVoted
}

// HasVoted returns the current voting state of the round.
func (o *OutgoingMessages) HasVoted() finality.HasVoted {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.hasVoted
}

// Send signs msg, persists the new voting state, announces the target block,
// gossips the vote on the round topic and forwards it to the round's
// incoming stream. Messages from a node that is not a voter, and messages the
// voting state no longer permits, are dropped without error.
func (o *OutgoingMessages) Send(msg finality.Message) error {
	if !msg.Valid() {
		return fmt.Errorf("invalid message kind %s", msg.Kind)
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	kind := msg.Kind.String()
	log := o.log.With().
		Str("kind", kind).
		Str("target_hash", msg.TargetHash.Hex()).
		Uint64("target_number", msg.TargetNumber).
		Logger()

	if o.local == nil {
		return nil
	}
	if !o.hasVoted.Allows(msg.Kind) {
		log.Debug().Str("has_voted", o.hasVoted.String()).Msg("suppressing vote not permitted in this round")
		o.metrics.VoteSuppressed(kind)
		return nil
	}
	next, err := o.hasVoted.Advance(o.hasVoted.After(msg.Kind))
	if err != nil {
		return fmt.Errorf("could not advance voting state: %w", err)
	}

	signed, err := o.local.Sign(msg, o.round, o.setID)
	if err != nil {
		return err
	}

	// the state must be durable before the vote leaves this node
	if o.states != nil {
		err = o.states.Store(o.setID, o.round, next)
		if err != nil {
			return fmt.Errorf("could not persist voting state: %w", err)
		}
	}
	o.hasVoted = next

	data, err := o.codec.Encode(&messages.VoteOrPrecommit{
		Message: signed,
		Round:   o.round,
		SetID:   o.setID,
	})
	if err != nil {
		return fmt.Errorf("could not encode vote: %w", err)
	}

	log.Debug().Msg("announcing block voted on to peers")
	o.network.Announce(msg.TargetHash)

	err = o.network.GossipMessage(RoundTopic(o.round, o.setID), data, false)
	if err != nil {
		return fmt.Errorf("could not gossip vote: %w", err)
	}
	o.metrics.VoteSent(kind)

	// buffered for one message per kind, which is all HasVoted lets through
	o.forward <- signed
	return nil
}

// CommitsOut gossips the commits of the local voter on the global topic.
type CommitsOut struct {
	log     zerolog.Logger
	setID   finality.SetID
	isVoter bool
	network network.Network
	codec   codec.Codec
	metrics module.FinalityMetrics
}

// Send compacts and gossips a commit for a round. Nodes that are not voters
// send nothing.
func (c *CommitsOut) Send(round finality.Round, commit finality.Commit) error {
	if !c.isVoter {
		return nil
	}

	data, err := c.codec.Encode(&messages.Commit{
		Round:   round,
		SetID:   c.setID,
		Message: commit.Compact(),
	})
	if err != nil {
		return fmt.Errorf("could not encode commit: %w", err)
	}
	err = c.network.GossipMessage(GlobalTopic(c.setID), data, false)
	if err != nil {
		return fmt.Errorf("could not gossip commit: %w", err)
	}

	c.log.Debug().
		Uint64("round", uint64(round)).
		Str("target_hash", commit.TargetHash.Hex()).
		Uint64("target_number", commit.TargetNumber).
		Msg("commit issued")
	c.metrics.CommitSent()
	return nil
}
