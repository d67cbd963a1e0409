package network

import (
	"encoding/hex"

	"github.com/ethereum/go-ethereum/common"
	"github.com/libp2p/go-libp2p/core/peer"
	"golang.org/x/crypto/blake2b"
)

// Topic identifies a gossip topic. Topics are hashes, so every node derives
// the same topic for the same subject without coordination.
type Topic [32]byte

func (t Topic) String() string {
	return hex.EncodeToString(t[:])
}

// DirectTopic is the topic of messages a peer sent to us directly rather than
// over gossip.
var DirectTopic Topic

// AnnounceTopic carries block announcements. Its payload is a block hash and
// it bypasses the registered Validator.
var AnnounceTopic = Topic(blake2b.Sum256([]byte("block-announces")))

// Message is one message received from the network.
type Message struct {
	Topic  Topic
	Sender peer.ID
	Data   []byte
}

// Network is the transport the finality gossip runs on. Implementations must
// be safe for concurrent use.
type Network interface {

	// MessagesFor subscribes to a topic. Messages from the local node are not
	// delivered. Cancelling the subscription releases the topic.
	MessagesFor(topic Topic) (*Subscription, error)

	// GossipMessage broadcasts data on a topic. Unless force is set, data
	// already gossiped on the topic recently is not sent again.
	GossipMessage(topic Topic, data []byte, force bool) error

	// SendMessage sends data directly to each of the given peers.
	SendMessage(peers []peer.ID, data []byte) error

	// Announce advertises a block we have to our peers.
	Announce(hash common.Hash)

	// RegisterValidator installs the validator that decides which messages
	// are delivered and propagated. Only one validator can be registered.
	RegisterValidator(validator Validator) error
}

// ValidationResult is the verdict of a Validator on one message.
type ValidationResult int

const (
	// ValidationAccept delivers the message and propagates it to other peers.
	ValidationAccept ValidationResult = iota
	// ValidationIgnore drops the message without penalizing the sender.
	ValidationIgnore
	// ValidationReject drops the message and penalizes the sender.
	ValidationReject
)

func (r ValidationResult) String() string {
	switch r {
	case ValidationAccept:
		return "accept"
	case ValidationIgnore:
		return "ignore"
	case ValidationReject:
		return "reject"
	default:
		return "unknown"
	}
}

// Validator filters messages before they are delivered or propagated.
type Validator interface {
	NewPeer(id peer.ID)
	PeerDisconnected(id peer.ID)
	Validate(sender peer.ID, topic Topic, data []byte) ValidationResult
}
