package p2p

import (
	"fmt"

	"github.com/multiformats/go-multiaddr"
	"golang.org/x/time/rate"

	"github.com/finalitylab/grandpa-node/network"
)

const (
	// DefaultListenAddress is the address a node listens on unless configured otherwise.
	DefaultListenAddress = "/ip4/0.0.0.0/tcp/30333"

	// DefaultMaxMessageSize bounds gossip and direct messages.
	DefaultMaxMessageSize = 1 << 20

	// DefaultRecentGossipCacheSize is the number of recently gossiped payloads
	// remembered to suppress unforced repeats.
	DefaultRecentGossipCacheSize = 4096

	// DefaultDirectMessageRate is the sustained number of direct messages per
	// second accepted from one peer.
	DefaultDirectMessageRate = 20

	// DefaultDirectMessageBurst is the number of direct messages a peer may
	// send at once before DefaultDirectMessageRate applies.
	DefaultDirectMessageBurst = 50

	// DefaultBootstrapRetries is the number of times a failed connection to a
	// bootstrap peer is retried.
	DefaultBootstrapRetries = 3
)

// Config configures a Node.
type Config struct {
	// ListenAddresses are multiaddrs to listen on.
	ListenAddresses []string
	// BootstrapPeers are multiaddrs including the /p2p/ peer id component.
	BootstrapPeers []string
	// MaxMessageSize bounds the size of messages in bytes.
	MaxMessageSize int
	// RecentGossipCacheSize bounds the memory of gossiped payloads.
	RecentGossipCacheSize int
	// SubscriptionBuffer is the buffer of each local subscription.
	SubscriptionBuffer int
	// DirectMessageRate and DirectMessageBurst limit the direct messages
	// accepted from each peer. Messages over the limit are dropped.
	DirectMessageRate  rate.Limit
	DirectMessageBurst int
	// BootstrapRetries bounds the retries per bootstrap peer.
	BootstrapRetries uint64
}

// DefaultConfig returns a config listening on DefaultListenAddress.
func DefaultConfig() Config {
	return Config{
		ListenAddresses:       []string{DefaultListenAddress},
		MaxMessageSize:        DefaultMaxMessageSize,
		RecentGossipCacheSize: DefaultRecentGossipCacheSize,
		SubscriptionBuffer:    network.DefaultSubscriptionBuffer,
		DirectMessageRate:     DefaultDirectMessageRate,
		DirectMessageBurst:    DefaultDirectMessageBurst,
		BootstrapRetries:      DefaultBootstrapRetries,
	}
}

func (c Config) listenAddrs() ([]multiaddr.Multiaddr, error) {
	addrs := make([]multiaddr.Multiaddr, 0, len(c.ListenAddresses))
	for _, address := range c.ListenAddresses {
		addr, err := multiaddr.NewMultiaddr(address)
		if err != nil {
			return nil, fmt.Errorf("invalid listen address %s: %w", address, err)
		}
		addrs = append(addrs, addr)
	}
	return addrs, nil
}
