package p2p_test

import (
	"context"
	"crypto/rand"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/libp2p/go-libp2p/core/crypto"
	"github.com/libp2p/go-libp2p/core/peer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/finalitylab/grandpa-node/module/irrecoverable"
	"github.com/finalitylab/grandpa-node/module/metrics"
	"github.com/finalitylab/grandpa-node/network"
	"github.com/finalitylab/grandpa-node/network/p2p"
	"github.com/finalitylab/grandpa-node/utils/unittest"
)

const nodeTimeout = 10 * time.Second

// acceptAll accepts every message and records peers it is told about.
type acceptAll struct {
	peers chan peer.ID
}

func newAcceptAll() *acceptAll {
	return &acceptAll{peers: make(chan peer.ID, 16)}
}

func (a *acceptAll) NewPeer(id peer.ID) {
	a.peers <- id
}

func (a *acceptAll) PeerDisconnected(peer.ID) {}

func (a *acceptAll) Validate(peer.ID, network.Topic, []byte) network.ValidationResult {
	return network.ValidationAccept
}

func nodeFixture(t *testing.T, ctx irrecoverable.SignalerContext, opts ...p2p.NodeOption) *p2p.Node {
	return nodeFixtureWithConfig(t, ctx, func(*p2p.Config) {}, opts...)
}

func nodeFixtureWithConfig(t *testing.T, ctx irrecoverable.SignalerContext, configure func(*p2p.Config), opts ...p2p.NodeOption) *p2p.Node {
	key, _, err := crypto.GenerateEd25519Key(rand.Reader)
	require.NoError(t, err)

	cfg := p2p.DefaultConfig()
	cfg.ListenAddresses = []string{"/ip4/127.0.0.1/tcp/0"}
	configure(&cfg)

	node, err := p2p.NewNode(ctx, unittest.Logger(), cfg, key, metrics.NewNoopCollector(), opts...)
	require.NoError(t, err)
	t.Cleanup(func() {
		unittest.RequireReturnsBefore(t, func() {
			assert.NoError(t, node.Stop())
		}, nodeTimeout, "could not stop node")
	})
	return node
}

func connect(t *testing.T, from, to *p2p.Node) {
	ctx, cancel := context.WithTimeout(context.Background(), nodeTimeout)
	defer cancel()
	require.NoError(t, from.Connect(ctx, to.Addrs()[0]))
}

func TestNode_DirectMessage(t *testing.T) {
	ctx := irrecoverable.NewMockSignalerContext(t, context.Background())
	alice := nodeFixture(t, ctx)
	bob := nodeFixture(t, ctx)
	connect(t, alice, bob)

	sub, err := bob.MessagesFor(network.DirectTopic)
	require.NoError(t, err)
	defer sub.Cancel()

	payload := unittest.RandomBytes(128)
	require.NoError(t, alice.SendMessage([]peer.ID{bob.ID()}, payload))

	msg := unittest.RequireReceives(t, sub.Messages(), nodeTimeout, "direct message not delivered")
	assert.Equal(t, payload, msg.Data)
	assert.Equal(t, alice.ID(), msg.Sender)
	assert.Equal(t, network.DirectTopic, msg.Topic)
}

func TestNode_DirectMessageTooLarge(t *testing.T) {
	ctx := irrecoverable.NewMockSignalerContext(t, context.Background())
	alice := nodeFixture(t, ctx)
	bob := nodeFixture(t, ctx)
	connect(t, alice, bob)

	err := alice.SendMessage([]peer.ID{bob.ID()}, make([]byte, p2p.DefaultMaxMessageSize+1))
	require.Error(t, err)
}

func TestNode_DirectMessageUnknownPeer(t *testing.T) {
	ctx := irrecoverable.NewMockSignalerContext(t, context.Background())
	alice := nodeFixture(t, ctx)

	key, _, err := crypto.GenerateEd25519Key(rand.Reader)
	require.NoError(t, err)
	stranger, err := peer.IDFromPrivateKey(key)
	require.NoError(t, err)

	err = alice.SendMessage([]peer.ID{stranger}, []byte("hello"))
	require.Error(t, err)
}

func TestNode_Gossip(t *testing.T) {
	ctx := irrecoverable.NewMockSignalerContext(t, context.Background())
	alice := nodeFixture(t, ctx)
	bob := nodeFixture(t, ctx)
	connect(t, alice, bob)

	topic := network.Topic(common.BytesToHash(unittest.RandomBytes(32)))
	sub, err := bob.MessagesFor(topic)
	require.NoError(t, err)
	defer sub.Cancel()

	// alice must be subscribed too so that the topic mesh forms
	own, err := alice.MessagesFor(topic)
	require.NoError(t, err)
	defer own.Cancel()

	payload := unittest.RandomBytes(64)
	// the mesh forms asynchronously, so republish until bob receives the message
	require.Eventually(t, func() bool {
		if err := alice.GossipMessage(topic, payload, true); err != nil {
			return false
		}
		select {
		case msg := <-sub.Messages():
			return assert.Equal(t, payload, msg.Data) && assert.Equal(t, alice.ID(), msg.Sender)
		case <-time.After(100 * time.Millisecond):
			return false
		}
	}, nodeTimeout, 10*time.Millisecond)

	// own messages are not delivered back
	unittest.RequireNeverReceives(t, own.Messages(), 200*time.Millisecond, "own message delivered")
}

func TestNode_ValidatorNotifiedOfPeers(t *testing.T) {
	ctx := irrecoverable.NewMockSignalerContext(t, context.Background())
	validator := newAcceptAll()
	alice := nodeFixture(t, ctx, p2p.WithValidator(validator))
	bob := nodeFixture(t, ctx)
	connect(t, alice, bob)

	id := unittest.RequireReceives(t, validator.peers, nodeTimeout, "validator not told about new peer")
	assert.Equal(t, bob.ID(), id)

	require.Error(t, alice.RegisterValidator(newAcceptAll()), "a second validator must be rejected")
}

func TestNode_SubscriptionRefCount(t *testing.T) {
	ctx := irrecoverable.NewMockSignalerContext(t, context.Background())
	node := nodeFixture(t, ctx)

	topic := network.Topic(common.BytesToHash(unittest.RandomBytes(32)))
	first, err := node.MessagesFor(topic)
	require.NoError(t, err)
	second, err := node.MessagesFor(topic)
	require.NoError(t, err)

	first.Cancel()
	unittest.RequireCloseBefore(t, first.Done(), time.Second, "first subscription not closed")

	select {
	case <-second.Done():
		t.Fatal("second subscription closed together with the first")
	default:
	}
	second.Cancel()

	// resubscribing after all local subscribers left must work
	third, err := node.MessagesFor(topic)
	require.NoError(t, err)
	third.Cancel()
}

func TestNode_BootstrapPeers(t *testing.T) {
	ctx := irrecoverable.NewMockSignalerContext(t, context.Background())
	alice := nodeFixture(t, ctx)

	validator := newAcceptAll()
	require.NoError(t, alice.RegisterValidator(validator))

	bob := nodeFixtureWithConfig(t, ctx, func(cfg *p2p.Config) {
		cfg.BootstrapPeers = []string{
			"not a multiaddr",
			alice.Addrs()[0].String(),
		}
	})

	id := unittest.RequireReceives(t, validator.peers, nodeTimeout, "bootstrap peer did not connect")
	assert.Equal(t, bob.ID(), id)
}

func TestNode_UnreachableBootstrapPeer(t *testing.T) {
	ctx := irrecoverable.NewMockSignalerContext(t, context.Background())

	key, _, err := crypto.GenerateEd25519Key(rand.Reader)
	require.NoError(t, err)
	gone, err := peer.IDFromPrivateKey(key)
	require.NoError(t, err)

	// the node starts even though its only bootstrap peer does not answer
	node := nodeFixtureWithConfig(t, ctx, func(cfg *p2p.Config) {
		cfg.BootstrapPeers = []string{"/ip4/127.0.0.1/tcp/1/p2p/" + gone.String()}
		cfg.BootstrapRetries = 1
	})
	assert.Empty(t, node.Host().Network().Peers())
}

func TestNode_DirectMessageRateLimit(t *testing.T) {
	ctx := irrecoverable.NewMockSignalerContext(t, context.Background())
	alice := nodeFixture(t, ctx)
	bob := nodeFixtureWithConfig(t, ctx, func(cfg *p2p.Config) {
		cfg.DirectMessageRate = rate.Every(time.Hour)
		cfg.DirectMessageBurst = 1
	})
	connect(t, alice, bob)

	sub, err := bob.MessagesFor(network.DirectTopic)
	require.NoError(t, err)
	defer sub.Cancel()

	first := unittest.RandomBytes(16)
	require.NoError(t, alice.SendMessage([]peer.ID{bob.ID()}, first))
	msg := unittest.RequireReceives(t, sub.Messages(), nodeTimeout, "first direct message not delivered")
	assert.Equal(t, first, msg.Data)

	require.NoError(t, alice.SendMessage([]peer.ID{bob.ID()}, unittest.RandomBytes(16)))
	unittest.RequireNeverReceives(t, sub.Messages(), 500*time.Millisecond, "message over the rate limit delivered")
}
