package stub_test

import (
	"sync"
	"testing"
	"time"

	"github.com/libp2p/go-libp2p/core/peer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finalitylab/grandpa-node/network"
	"github.com/finalitylab/grandpa-node/network/stub"
	"github.com/finalitylab/grandpa-node/utils/unittest"
)

type recordingValidator struct {
	mu     sync.Mutex
	peers  map[peer.ID]bool
	result network.ValidationResult
}

func (v *recordingValidator) NewPeer(id peer.ID) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.peers[id] = true
}

func (v *recordingValidator) PeerDisconnected(id peer.ID) {
	v.mu.Lock()
	defer v.mu.Unlock()
	delete(v.peers, id)
}

func (v *recordingValidator) Validate(peer.ID, network.Topic, []byte) network.ValidationResult {
	return v.result
}

func TestHub_GossipReachesSubscribers(t *testing.T) {
	hub := stub.NewHub()
	alice := hub.AddNetwork("alice")
	bob := hub.AddNetwork("bob")

	topic := network.Topic{7}
	sub, err := bob.MessagesFor(topic)
	require.NoError(t, err)
	defer sub.Cancel()

	require.NoError(t, alice.GossipMessage(topic, []byte("hello"), false))
	msg := unittest.RequireReceives(t, sub.Messages(), time.Second, "gossip not delivered")
	assert.Equal(t, peer.ID("alice"), msg.Sender)
	assert.Equal(t, []byte("hello"), msg.Data)

	// repeated gossip is suppressed unless forced
	require.NoError(t, alice.GossipMessage(topic, []byte("hello"), false))
	unittest.RequireNeverReceives(t, sub.Messages(), 50*time.Millisecond, "duplicate gossip delivered")
	require.NoError(t, alice.GossipMessage(topic, []byte("hello"), true))
	unittest.RequireReceives(t, sub.Messages(), time.Second, "forced gossip not delivered")
	assert.Len(t, alice.Gossiped(), 3)
}

func TestHub_ValidatorFiltersAndTracksPeers(t *testing.T) {
	hub := stub.NewHub()
	alice := hub.AddNetwork("alice")
	bob := hub.AddNetwork("bob")

	validator := &recordingValidator{peers: make(map[peer.ID]bool), result: network.ValidationIgnore}
	require.NoError(t, bob.RegisterValidator(validator))
	require.Error(t, bob.RegisterValidator(validator))
	assert.True(t, validator.peers["alice"])

	sub, err := bob.MessagesFor(network.DirectTopic)
	require.NoError(t, err)
	require.NoError(t, alice.SendMessage([]peer.ID{"bob"}, []byte("neighbor")))
	unittest.RequireNeverReceives(t, sub.Messages(), 50*time.Millisecond, "ignored message delivered")

	hub.RemoveNetwork("alice")
	assert.False(t, validator.peers["alice"])
}
