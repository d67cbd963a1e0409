package stub

import (
	"sync"

	"github.com/libp2p/go-libp2p/core/peer"
)

// Hub connects in-memory networks with each other. Every network added to
// the hub is connected to every other one.
type Hub struct {
	mu       sync.RWMutex
	networks map[peer.ID]*Network
}

func NewHub() *Hub {
	return &Hub{
		networks: make(map[peer.ID]*Network),
	}
}

// AddNetwork creates the network of a new node and connects it to all
// existing ones.
func (h *Hub) AddNetwork(id peer.ID) *Network {
	net := newNetwork(h, id)

	h.mu.Lock()
	existing := make([]*Network, 0, len(h.networks))
	for _, other := range h.networks {
		existing = append(existing, other)
	}
	h.networks[id] = net
	h.mu.Unlock()

	for _, other := range existing {
		other.peerConnected(id)
		net.peerConnected(other.id)
	}
	return net
}

// RemoveNetwork disconnects a node from all others.
func (h *Hub) RemoveNetwork(id peer.ID) {
	h.mu.Lock()
	removed, ok := h.networks[id]
	delete(h.networks, id)
	remaining := make([]*Network, 0, len(h.networks))
	for _, other := range h.networks {
		remaining = append(remaining, other)
	}
	h.mu.Unlock()

	if !ok {
		return
	}
	for _, other := range remaining {
		other.peerDisconnected(id)
		removed.peerDisconnected(other.id)
	}
}

func (h *Hub) network(id peer.ID) (*Network, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	net, ok := h.networks[id]
	return net, ok
}

func (h *Hub) others(id peer.ID) []*Network {
	h.mu.RLock()
	defer h.mu.RUnlock()
	others := make([]*Network, 0, len(h.networks))
	for other, net := range h.networks {
		if other != id {
			others = append(others, net)
		}
	}
	return others
}
