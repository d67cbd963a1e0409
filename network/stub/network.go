package stub

import (
	"errors"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/libp2p/go-libp2p/core/peer"

	"github.com/finalitylab/grandpa-node/network"
)

// Gossip records one GossipMessage call.
type Gossip struct {
	Topic network.Topic
	Data  []byte
	Force bool
}

// Direct records one message sent with SendMessage.
type Direct struct {
	To   peer.ID
	Data []byte
}

// Network is an in-memory network.Network. Messages are delivered
// synchronously to the other networks of the hub, after passing their
// validators. Everything sent is recorded for inspection by tests.
type Network struct {
	hub *Hub
	id  peer.ID

	mu        sync.Mutex
	subs      map[network.Topic]map[*network.Subscription]struct{}
	validator network.Validator
	peers     map[peer.ID]struct{}
	known     map[string]struct{}
	gossiped  []Gossip
	sent      []Direct
	announced []common.Hash
}

var _ network.Network = (*Network)(nil)

func newNetwork(hub *Hub, id peer.ID) *Network {
	return &Network{
		hub:   hub,
		id:    id,
		subs:  make(map[network.Topic]map[*network.Subscription]struct{}),
		peers: make(map[peer.ID]struct{}),
		known: make(map[string]struct{}),
	}
}

func (n *Network) ID() peer.ID {
	return n.id
}

func (n *Network) MessagesFor(topic network.Topic) (*network.Subscription, error) {
	var sub *network.Subscription
	sub = network.NewSubscription(topic, network.DefaultSubscriptionBuffer, func() {
		n.mu.Lock()
		defer n.mu.Unlock()
		delete(n.subs[topic], sub)
		if len(n.subs[topic]) == 0 {
			delete(n.subs, topic)
		}
	})

	n.mu.Lock()
	defer n.mu.Unlock()
	if n.subs[topic] == nil {
		n.subs[topic] = make(map[*network.Subscription]struct{})
	}
	n.subs[topic][sub] = struct{}{}
	return sub, nil
}

func (n *Network) GossipMessage(topic network.Topic, data []byte, force bool) error {
	key := string(topic[:]) + string(data)

	n.mu.Lock()
	n.gossiped = append(n.gossiped, Gossip{Topic: topic, Data: data, Force: force})
	_, known := n.known[key]
	n.known[key] = struct{}{}
	n.mu.Unlock()

	if known && !force {
		return nil
	}
	for _, other := range n.hub.others(n.id) {
		other.receive(n.id, topic, data)
	}
	return nil
}

func (n *Network) SendMessage(peers []peer.ID, data []byte) error {
	n.mu.Lock()
	for _, id := range peers {
		n.sent = append(n.sent, Direct{To: id, Data: data})
	}
	n.mu.Unlock()

	for _, id := range peers {
		if other, ok := n.hub.network(id); ok {
			other.receive(n.id, network.DirectTopic, data)
		}
	}
	return nil
}

func (n *Network) Announce(hash common.Hash) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.announced = append(n.announced, hash)
}

func (n *Network) RegisterValidator(validator network.Validator) error {
	n.mu.Lock()
	if n.validator != nil {
		n.mu.Unlock()
		return errors.New("validator already registered")
	}
	n.validator = validator
	peers := make([]peer.ID, 0, len(n.peers))
	for id := range n.peers {
		peers = append(peers, id)
	}
	n.mu.Unlock()

	for _, id := range peers {
		validator.NewPeer(id)
	}
	return nil
}

// Gossiped returns every GossipMessage call so far.
func (n *Network) Gossiped() []Gossip {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]Gossip(nil), n.gossiped...)
}

// GossipedOn returns the payloads gossiped on one topic.
func (n *Network) GossipedOn(topic network.Topic) [][]byte {
	n.mu.Lock()
	defer n.mu.Unlock()
	var data [][]byte
	for _, g := range n.gossiped {
		if g.Topic == topic {
			data = append(data, g.Data)
		}
	}
	return data
}

// Sent returns every directly sent message so far.
func (n *Network) Sent() []Direct {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]Direct(nil), n.sent...)
}

// Announced returns the announced block hashes.
func (n *Network) Announced() []common.Hash {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]common.Hash(nil), n.announced...)
}

// Inject delivers a message to this network as if sender had gossiped it.
func (n *Network) Inject(sender peer.ID, topic network.Topic, data []byte) {
	n.receive(sender, topic, data)
}

func (n *Network) receive(sender peer.ID, topic network.Topic, data []byte) {
	n.mu.Lock()
	validator := n.validator
	n.mu.Unlock()

	if validator != nil && validator.Validate(sender, topic, data) != network.ValidationAccept {
		return
	}

	n.mu.Lock()
	subs := make([]*network.Subscription, 0, len(n.subs[topic]))
	for sub := range n.subs[topic] {
		subs = append(subs, sub)
	}
	n.mu.Unlock()

	msg := network.Message{Topic: topic, Sender: sender, Data: data}
	for _, sub := range subs {
		sub.Deliver(msg)
	}
}

func (n *Network) peerConnected(id peer.ID) {
	n.mu.Lock()
	n.peers[id] = struct{}{}
	validator := n.validator
	n.mu.Unlock()
	if validator != nil {
		validator.NewPeer(id)
	}
}

func (n *Network) peerDisconnected(id peer.ID) {
	n.mu.Lock()
	delete(n.peers, id)
	validator := n.validator
	n.mu.Unlock()
	if validator != nil {
		validator.PeerDisconnected(id)
	}
}
