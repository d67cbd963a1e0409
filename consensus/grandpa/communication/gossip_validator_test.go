package communication_test

import (
	"testing"

	"github.com/libp2p/go-libp2p/core/peer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finalitylab/grandpa-node/consensus/grandpa/communication"
	"github.com/finalitylab/grandpa-node/model/finality"
	"github.com/finalitylab/grandpa-node/model/messages"
	"github.com/finalitylab/grandpa-node/module/metrics"
	"github.com/finalitylab/grandpa-node/network"
	cborcodec "github.com/finalitylab/grandpa-node/network/codec/cbor"
	"github.com/finalitylab/grandpa-node/utils/unittest"
)

func TestGossipValidator(t *testing.T) {
	keys := unittest.VoterKeyFixtures(t, 3)
	voters := unittest.VoterSetFixture(t, keys)
	codec := cborcodec.NewCodec()
	sender := peer.ID("sender")

	newValidator := func(t *testing.T) *communication.GossipValidator {
		validator, err := communication.NewGossipValidator(unittest.Logger(), codec, metrics.NewNoopCollector(), 16)
		require.NoError(t, err)
		validator.NoteRound(testRound, testSetID, voters)
		return validator
	}
	encode := func(t *testing.T, v interface{}) []byte {
		data, err := codec.Encode(v)
		require.NoError(t, err)
		return data
	}
	vote := func(t *testing.T, key unittest.VoterKey, round finality.Round) []byte {
		signed := unittest.SignFixture(t, key, finality.NewPrevote(unittest.HashFixture(), 9), round, testSetID)
		return encode(t, &messages.VoteOrPrecommit{Message: signed, Round: round, SetID: testSetID})
	}

	t.Run("votes within one round are accepted", func(t *testing.T) {
		validator := newValidator(t)
		for _, round := range []finality.Round{testRound - 1, testRound, testRound + 1} {
			result := validator.Validate(sender, communication.RoundTopic(round, testSetID), vote(t, keys[0], round))
			assert.Equal(t, network.ValidationAccept, result, "round %d", round)
		}
	})

	t.Run("votes further away are ignored", func(t *testing.T) {
		validator := newValidator(t)
		for _, round := range []finality.Round{testRound - 2, testRound + 2} {
			result := validator.Validate(sender, communication.RoundTopic(round, testSetID), vote(t, keys[0], round))
			assert.Equal(t, network.ValidationIgnore, result, "round %d", round)
		}
	})

	t.Run("duplicates are ignored", func(t *testing.T) {
		validator := newValidator(t)
		data := vote(t, keys[1], testRound)
		topic := communication.RoundTopic(testRound, testSetID)
		assert.Equal(t, network.ValidationAccept, validator.Validate(sender, topic, data))
		assert.Equal(t, network.ValidationIgnore, validator.Validate(sender, topic, data))
	})

	t.Run("unknown voter is ignored", func(t *testing.T) {
		validator := newValidator(t)
		data := vote(t, unittest.VoterKeyFixture(t), testRound)
		result := validator.Validate(sender, communication.RoundTopic(testRound, testSetID), data)
		assert.Equal(t, network.ValidationIgnore, result)
	})

	t.Run("bad signature is rejected", func(t *testing.T) {
		validator := newValidator(t)
		signed := unittest.SignFixture(t, keys[0], finality.NewPrevote(unittest.HashFixture(), 9), testRound, testSetID)
		signed.ID = keys[2].ID
		data := encode(t, &messages.VoteOrPrecommit{Message: signed, Round: testRound, SetID: testSetID})
		result := validator.Validate(sender, communication.RoundTopic(testRound, testSetID), data)
		assert.Equal(t, network.ValidationReject, result)
	})

	t.Run("vote on the wrong topic is rejected", func(t *testing.T) {
		validator := newValidator(t)
		result := validator.Validate(sender, communication.GlobalTopic(testSetID), vote(t, keys[0], testRound))
		assert.Equal(t, network.ValidationReject, result)
	})

	t.Run("undecodable data is rejected", func(t *testing.T) {
		validator := newValidator(t)
		assert.Equal(t, network.ValidationReject, validator.Validate(sender, communication.RoundTopic(testRound, testSetID), nil))
		assert.Equal(t, network.ValidationReject, validator.Validate(sender, communication.RoundTopic(testRound, testSetID), []byte{0x7f}))
	})

	t.Run("commits", func(t *testing.T) {
		validator := newValidator(t)
		topic := communication.GlobalTopic(testSetID)

		valid := unittest.CommitFixture(t, keys[:2], testRound, testSetID).Compact()
		data := encode(t, &messages.Commit{Round: testRound, SetID: testSetID, Message: valid})
		assert.Equal(t, network.ValidationAccept, validator.Validate(sender, topic, data))

		foreign := unittest.CommitFixture(t, unittest.VoterKeyFixtures(t, 1), testRound, testSetID).Compact()
		data = encode(t, &messages.Commit{Round: testRound, SetID: testSetID, Message: foreign})
		assert.Equal(t, network.ValidationIgnore, validator.Validate(sender, topic, data))

		malformed := unittest.CommitFixture(t, keys, testRound, testSetID).Compact()
		malformed.AuthData = malformed.AuthData[:1]
		data = encode(t, &messages.Commit{Round: testRound, SetID: testSetID, Message: malformed})
		assert.Equal(t, network.ValidationReject, validator.Validate(sender, topic, data))

		otherSet := unittest.CommitFixture(t, keys, testRound, testSetID+1).Compact()
		data = encode(t, &messages.Commit{Round: testRound, SetID: testSetID + 1, Message: otherSet})
		assert.Equal(t, network.ValidationIgnore, validator.Validate(sender, communication.GlobalTopic(testSetID+1), data))
	})

	t.Run("neighbor packets update peer views", func(t *testing.T) {
		validator := newValidator(t)
		data := encode(t, &messages.Neighbor{Round: 8, SetID: testSetID, CommitFinalizedHeight: 70})

		// unknown peers are not tracked
		assert.Equal(t, network.ValidationIgnore, validator.Validate(sender, network.DirectTopic, data))
		_, ok := validator.PeerView(sender)
		assert.False(t, ok)

		validator.NewPeer(sender)
		assert.Equal(t, network.ValidationAccept, validator.Validate(sender, network.DirectTopic, data))
		// neighbor packets may repeat
		assert.Equal(t, network.ValidationAccept, validator.Validate(sender, network.DirectTopic, data))

		view, ok := validator.PeerView(sender)
		require.True(t, ok)
		assert.Equal(t, communication.View{Round: 8, SetID: testSetID, CommitFinalizedHeight: 70}, view)

		// gossiped neighbor packets are not allowed
		assert.Equal(t, network.ValidationReject, validator.Validate(sender, communication.RoundTopic(testRound, testSetID), data))

		validator.PeerDisconnected(sender)
		_, ok = validator.PeerView(sender)
		assert.False(t, ok)
	})

	t.Run("local view", func(t *testing.T) {
		validator := newValidator(t)
		validator.NewPeer(sender)

		neighbor, peers := validator.NoteCommitFinalized(12)
		assert.Equal(t, []peer.ID{sender}, peers)
		assert.Equal(t, uint64(12), neighbor.CommitFinalizedHeight)

		// finalized height never decreases
		neighbor, _ = validator.NoteCommitFinalized(3)
		assert.Equal(t, uint64(12), neighbor.CommitFinalizedHeight)

		// a new set resets the view
		neighbor, _ = validator.NoteSet(testSetID+1, voters)
		assert.Equal(t, messages.Neighbor{SetID: testSetID + 1}, *neighbor)
		assert.Equal(t, communication.View{SetID: testSetID + 1}, validator.Local())
	})
}
