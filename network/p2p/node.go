package p2p

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/hashicorp/go-multierror"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/libp2p/go-libp2p"
	"github.com/libp2p/go-libp2p/core/crypto"
	"github.com/libp2p/go-libp2p/core/host"
	libp2pnet "github.com/libp2p/go-libp2p/core/network"
	"github.com/libp2p/go-libp2p/core/peer"
	"github.com/libp2p/go-libp2p/core/protocol"
	pubsub "github.com/libp2p/go-libp2p-pubsub"
	"github.com/libp2p/go-msgio"
	"github.com/multiformats/go-multiaddr"
	"github.com/rs/zerolog"
	"github.com/sethvargo/go-retry"
	"golang.org/x/crypto/blake2b"

	"github.com/finalitylab/grandpa-node/module"
	"github.com/finalitylab/grandpa-node/module/irrecoverable"
	"github.com/finalitylab/grandpa-node/network"
)

// DirectProtocolID is the stream protocol used by SendMessage.
const DirectProtocolID protocol.ID = "/grandpa/direct/1"

const (
	// maximum time to open a stream and write one direct message
	directSendTimeout = 10 * time.Second

	// maximum time of one connection attempt to a bootstrap peer
	bootstrapTimeout = 10 * time.Second

	// first delay between connection attempts to a bootstrap peer, doubled
	// on every further attempt
	bootstrapRetryDelay = 500 * time.Millisecond

	bootstrapJitterPercent = 25
)

// topicSubscription is the pubsub subscription of one topic, shared by all
// local subscribers of the topic.
type topicSubscription struct {
	topic  network.Topic
	sub    *pubsub.Subscription
	locals map[*network.Subscription]struct{}
}

// Node implements network.Network on a libp2p host running gossipsub.
type Node struct {
	log     zerolog.Logger
	cfg     Config
	host    host.Host
	pubSub  *pubsub.PubSub
	metrics module.NetworkMetrics
	recent  *lru.Cache[[32]byte, struct{}]
	limiter *peerRateLimiter
	publish func(tp *pubsub.Topic, data []byte) error

	signal irrecoverable.SignalerContext
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu        sync.Mutex
	topics    map[network.Topic]*pubsub.Topic
	subs      map[network.Topic]*topicSubscription
	direct    map[*network.Subscription]struct{}
	validator network.Validator
}

var _ network.Network = (*Node)(nil)

type NodeOption func(node *Node)

// WithValidator registers a validator when the node is created, before any
// peer connects.
func WithValidator(validator network.Validator) NodeOption {
	return func(node *Node) {
		node.validator = validator
	}
}

// NewNode starts a libp2p host with the given key and joins the gossip mesh.
// Unexpected failures of the node's goroutines are thrown to ctx.
func NewNode(
	ctx irrecoverable.SignalerContext,
	log zerolog.Logger,
	cfg Config,
	key crypto.PrivKey,
	metrics module.NetworkMetrics,
	options ...NodeOption,
) (*Node, error) {
	addrs, err := cfg.listenAddrs()
	if err != nil {
		return nil, err
	}
	recent, err := lru.New[[32]byte, struct{}](cfg.RecentGossipCacheSize)
	if err != nil {
		return nil, fmt.Errorf("could not create gossip cache: %w", err)
	}

	libp2pHost, err := libp2p.New(
		libp2p.ListenAddrs(addrs...),
		libp2p.Identity(key),
		libp2p.Ping(true),
	)
	if err != nil {
		return nil, fmt.Errorf("could not create libp2p host: %w", err)
	}

	nodeCtx, cancel := context.WithCancel(ctx)
	pubSub, err := pubsub.NewGossipSub(nodeCtx, libp2pHost,
		// votes carry their own signatures
		pubsub.WithMessageSigning(false),
		pubsub.WithStrictSignatureVerification(false),
		pubsub.WithMaxMessageSize(cfg.MaxMessageSize),
	)
	if err != nil {
		cancel()
		_ = libp2pHost.Close()
		return nil, fmt.Errorf("could not create libp2p gossipsub: %w", err)
	}

	node := &Node{
		log:     log.With().Str("component", "p2p_node").Str("peer_id", libp2pHost.ID().String()).Logger(),
		cfg:     cfg,
		host:    libp2pHost,
		pubSub:  pubSub,
		metrics: metrics,
		recent:  recent,
		limiter: newPeerRateLimiter(cfg.DirectMessageRate, cfg.DirectMessageBurst),
		signal:  ctx,
		ctx:     nodeCtx,
		cancel:  cancel,
		topics:  make(map[network.Topic]*pubsub.Topic),
		subs:    make(map[network.Topic]*topicSubscription),
		direct:  make(map[*network.Subscription]struct{}),
	}
	node.publish = func(tp *pubsub.Topic, data []byte) error {
		return tp.Publish(node.ctx, data)
	}
	for _, opt := range options {
		opt(node)
	}

	libp2pHost.SetStreamHandler(DirectProtocolID, node.handleDirectStream)
	libp2pHost.Network().Notify(&libp2pnet.NotifyBundle{
		ConnectedF:    node.onConnected,
		DisconnectedF: node.onDisconnected,
	})

	node.connectBootstrapPeers()

	node.log.Info().
		Interface("addresses", libp2pHost.Addrs()).
		Msg("libp2p node started")
	return node, nil
}

func (n *Node) Host() host.Host {
	return n.host
}

func (n *Node) ID() peer.ID {
	return n.host.ID()
}

// Addrs returns the full multiaddrs of the node including its peer id.
func (n *Node) Addrs() []multiaddr.Multiaddr {
	info := peer.AddrInfo{ID: n.host.ID(), Addrs: n.host.Addrs()}
	addrs, err := peer.AddrInfoToP2pAddrs(&info)
	if err != nil {
		return nil
	}
	return addrs
}

// Connect connects to the peer at the given multiaddr.
func (n *Node) Connect(ctx context.Context, addr multiaddr.Multiaddr) error {
	info, err := peer.AddrInfoFromP2pAddr(addr)
	if err != nil {
		return fmt.Errorf("invalid peer address %s: %w", addr, err)
	}
	err = n.host.Connect(ctx, *info)
	if err != nil {
		return fmt.Errorf("could not connect to %s: %w", info.ID, err)
	}
	return nil
}

// connectBootstrapPeers connects to every configured bootstrap peer. A peer
// that stays unreachable after the retries is logged and skipped.
func (n *Node) connectBootstrapPeers() {
	for _, address := range n.cfg.BootstrapPeers {
		addr, err := multiaddr.NewMultiaddr(address)
		if err == nil {
			_, err = peer.AddrInfoFromP2pAddr(addr)
		}
		if err != nil {
			n.log.Warn().Err(err).Str("address", address).Msg("skipping invalid bootstrap address")
			continue
		}
		err = n.connectWithRetry(addr)
		if err != nil {
			n.log.Warn().Err(err).Str("address", address).Msg("could not connect to bootstrap peer")
		}
	}
}

func (n *Node) connectWithRetry(addr multiaddr.Multiaddr) error {
	backoff, err := retry.NewExponential(bootstrapRetryDelay)
	if err != nil {
		return fmt.Errorf("could not create backoff: %w", err)
	}
	backoff = retry.WithMaxRetries(n.cfg.BootstrapRetries, backoff)
	backoff = retry.WithJitterPercent(bootstrapJitterPercent, backoff)

	attempts := 0
	return retry.Do(n.ctx, backoff, func(ctx context.Context) error {
		attempts++
		connectCtx, cancel := context.WithTimeout(ctx, bootstrapTimeout)
		defer cancel()
		err := n.Connect(connectCtx, addr)
		if err != nil {
			n.log.Debug().Err(err).Int("attempt", attempts).Str("address", addr.String()).Msg("bootstrap connection failed")
			return retry.RetryableError(err)
		}
		return nil
	})
}

func (n *Node) RegisterValidator(validator network.Validator) error {
	n.mu.Lock()
	if n.validator != nil {
		n.mu.Unlock()
		return errors.New("validator already registered")
	}
	n.validator = validator
	n.mu.Unlock()

	for _, id := range n.host.Network().Peers() {
		validator.NewPeer(id)
	}
	return nil
}

func (n *Node) currentValidator() network.Validator {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.validator
}

// MessagesFor subscribes to a topic. The first local subscriber of a topic
// creates the pubsub subscription; the last one to cancel releases it.
func (n *Node) MessagesFor(topic network.Topic) (*network.Subscription, error) {
	var sub *network.Subscription
	sub = network.NewSubscription(topic, n.cfg.SubscriptionBuffer, func() {
		n.release(topic, sub)
	})

	n.mu.Lock()
	defer n.mu.Unlock()

	if topic == network.DirectTopic {
		n.direct[sub] = struct{}{}
		return sub, nil
	}

	ts, ok := n.subs[topic]
	if !ok {
		tp, err := n.join(topic)
		if err != nil {
			return nil, err
		}
		ps, err := tp.Subscribe()
		if err != nil {
			return nil, fmt.Errorf("could not subscribe to topic (%s): %w", topic, err)
		}
		ts = &topicSubscription{
			topic:  topic,
			sub:    ps,
			locals: make(map[*network.Subscription]struct{}),
		}
		n.subs[topic] = ts
		n.wg.Add(1)
		go n.readLoop(ts)

		n.log.Debug().Str("topic", topic.String()).Msg("subscribed to topic")
	}
	ts.locals[sub] = struct{}{}
	return sub, nil
}

// join returns the joined pubsub topic, joining it if needed. Must be called
// with n.mu held.
func (n *Node) join(topic network.Topic) (*pubsub.Topic, error) {
	if tp, ok := n.topics[topic]; ok {
		return tp, nil
	}
	name := topic.String()
	err := n.pubSub.RegisterTopicValidator(name, n.topicValidator(topic))
	if err != nil {
		return nil, fmt.Errorf("could not register validator for topic (%s): %w", topic, err)
	}
	tp, err := n.pubSub.Join(name)
	if err != nil {
		_ = n.pubSub.UnregisterTopicValidator(name)
		return nil, fmt.Errorf("could not join topic (%s): %w", topic, err)
	}
	n.topics[topic] = tp
	return tp, nil
}

func (n *Node) release(topic network.Topic, sub *network.Subscription) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if topic == network.DirectTopic {
		delete(n.direct, sub)
		return
	}
	ts, ok := n.subs[topic]
	if !ok {
		return
	}
	delete(ts.locals, sub)
	if len(ts.locals) > 0 {
		return
	}
	ts.sub.Cancel()
	delete(n.subs, topic)
	n.leave(topic)
}

// leave closes a joined topic. Must be called with n.mu held.
func (n *Node) leave(topic network.Topic) {
	tp, ok := n.topics[topic]
	if !ok {
		return
	}
	err := tp.Close()
	if err != nil {
		// the topic stays joined and is closed on Stop
		n.log.Debug().Err(err).Str("topic", topic.String()).Msg("could not close topic")
		return
	}
	_ = n.pubSub.UnregisterTopicValidator(topic.String())
	delete(n.topics, topic)
	n.log.Debug().Str("topic", topic.String()).Msg("unsubscribed from topic")
}

func (n *Node) readLoop(ts *topicSubscription) {
	defer n.wg.Done()
	for {
		msg, err := ts.sub.Next(n.ctx)
		if err != nil {
			if n.ctx.Err() != nil || errors.Is(err, pubsub.ErrSubscriptionCancelled) {
				return
			}
			n.signal.Throw(fmt.Errorf("could not read from topic (%s): %w", ts.topic, err))
		}
		// gossipsub delivers our own messages back to us
		if msg.ReceivedFrom == n.host.ID() {
			continue
		}
		n.metrics.NetworkMessageReceived(len(msg.Data), ts.topic.String())
		n.deliver(ts.topic, network.Message{Topic: ts.topic, Sender: msg.ReceivedFrom, Data: msg.Data})
	}
}

func (n *Node) deliver(topic network.Topic, msg network.Message) {
	n.mu.Lock()
	var locals []*network.Subscription
	if topic == network.DirectTopic {
		for sub := range n.direct {
			locals = append(locals, sub)
		}
	} else if ts, ok := n.subs[topic]; ok {
		for sub := range ts.locals {
			locals = append(locals, sub)
		}
	}
	n.mu.Unlock()

	for _, sub := range locals {
		if !sub.Deliver(msg) {
			n.log.Debug().Str("topic", topic.String()).Msg("subscriber is not keeping up, message dropped")
		}
	}
}

func (n *Node) topicValidator(topic network.Topic) pubsub.ValidatorEx {
	return func(_ context.Context, from peer.ID, msg *pubsub.Message) pubsub.ValidationResult {
		if from == n.host.ID() {
			return pubsub.ValidationAccept
		}
		if topic == network.AnnounceTopic {
			if len(msg.Data) != common.HashLength {
				return pubsub.ValidationReject
			}
			return pubsub.ValidationAccept
		}
		validator := n.currentValidator()
		if validator == nil {
			return pubsub.ValidationAccept
		}
		return toPubSubResult(validator.Validate(from, topic, msg.Data))
	}
}

func toPubSubResult(result network.ValidationResult) pubsub.ValidationResult {
	switch result {
	case network.ValidationAccept:
		return pubsub.ValidationAccept
	case network.ValidationReject:
		return pubsub.ValidationReject
	default:
		return pubsub.ValidationIgnore
	}
}

func (n *Node) GossipMessage(topic network.Topic, data []byte, force bool) error {
	id := blake2b.Sum256(append(append([]byte{}, topic[:]...), data...))
	if !force && n.recent.Contains(id) {
		return nil
	}

	n.mu.Lock()
	tp, err := n.join(topic)
	n.mu.Unlock()
	if err != nil {
		return err
	}

	// only published messages count as recent, so a failed publish can be retried
	err = n.publish(tp, data)
	if err != nil {
		return fmt.Errorf("could not publish to topic (%s): %w", topic, err)
	}
	n.recent.Add(id, struct{}{})
	n.metrics.NetworkMessageSent(len(data), topic.String())
	return nil
}

// SendMessage writes data to a fresh stream with each peer. Failures for
// individual peers are collected and returned together.
func (n *Node) SendMessage(peers []peer.ID, data []byte) error {
	if len(data) > n.cfg.MaxMessageSize {
		return fmt.Errorf("message of %d bytes exceeds limit of %d bytes", len(data), n.cfg.MaxMessageSize)
	}
	var result *multierror.Error
	for _, id := range peers {
		err := n.sendDirect(id, data)
		if err != nil {
			result = multierror.Append(result, fmt.Errorf("could not send to %s: %w", id, err))
			continue
		}
		n.metrics.DirectMessageSent(len(data))
	}
	return result.ErrorOrNil()
}

func (n *Node) sendDirect(id peer.ID, data []byte) error {
	ctx, cancel := context.WithTimeout(n.ctx, directSendTimeout)
	defer cancel()

	stream, err := n.host.NewStream(ctx, id, DirectProtocolID)
	if err != nil {
		return fmt.Errorf("could not open stream: %w", err)
	}
	deadline, _ := ctx.Deadline()
	_ = stream.SetWriteDeadline(deadline)

	writer := msgio.NewVarintWriter(stream)
	err = writer.WriteMsg(data)
	if err != nil {
		_ = stream.Reset()
		return fmt.Errorf("could not write message: %w", err)
	}
	return stream.Close()
}

func (n *Node) handleDirectStream(stream libp2pnet.Stream) {
	defer stream.Close()
	sender := stream.Conn().RemotePeer()
	reader := msgio.NewVarintReaderSize(stream, n.cfg.MaxMessageSize)
	for {
		data, err := reader.ReadMsg()
		if err != nil {
			return
		}
		msg := append([]byte(nil), data...)
		reader.ReleaseMsg(data)

		if !n.limiter.Allow(sender) {
			n.log.Debug().Str("sender", sender.String()).Msg("direct message rate exceeded, message dropped")
			continue
		}

		validator := n.currentValidator()
		if validator != nil && validator.Validate(sender, network.DirectTopic, msg) != network.ValidationAccept {
			continue
		}
		n.deliver(network.DirectTopic, network.Message{Topic: network.DirectTopic, Sender: sender, Data: msg})
	}
}

// Announce publishes a block hash on the announce topic.
func (n *Node) Announce(hash common.Hash) {
	err := n.GossipMessage(network.AnnounceTopic, hash.Bytes(), false)
	if err != nil {
		n.log.Debug().Err(err).Str("block", hash.Hex()).Msg("could not announce block")
	}
}

func (n *Node) onConnected(_ libp2pnet.Network, conn libp2pnet.Conn) {
	n.metrics.ConnectedPeers(len(n.host.Network().Peers()))
	if validator := n.currentValidator(); validator != nil {
		validator.NewPeer(conn.RemotePeer())
	}
}

func (n *Node) onDisconnected(net libp2pnet.Network, conn libp2pnet.Conn) {
	n.metrics.ConnectedPeers(len(net.Peers()))
	// other connections to the same peer may remain open
	if net.Connectedness(conn.RemotePeer()) == libp2pnet.Connected {
		return
	}
	n.limiter.Remove(conn.RemotePeer())
	if validator := n.currentValidator(); validator != nil {
		validator.PeerDisconnected(conn.RemotePeer())
	}
}

// Stop cancels all subscriptions and closes the host.
func (n *Node) Stop() error {
	var result *multierror.Error

	n.mu.Lock()
	for topic, ts := range n.subs {
		ts.sub.Cancel()
		delete(n.subs, topic)
	}
	for topic, tp := range n.topics {
		if err := tp.Close(); err != nil {
			n.log.Debug().Err(err).Str("topic", topic.String()).Msg("could not close topic")
		}
		delete(n.topics, topic)
	}
	n.mu.Unlock()

	n.cancel()
	n.wg.Wait()

	n.log.Debug().Msg("stopping libp2p node")
	if err := n.host.Close(); err != nil {
		result = multierror.Append(result, fmt.Errorf("could not close host: %w", err))
	}
	// to prevent peerstore routine leak (https://github.com/libp2p/go-libp2p/issues/718)
	if err := n.host.Peerstore().Close(); err != nil {
		result = multierror.Append(result, fmt.Errorf("could not close peer store: %w", err))
	}
	return result.ErrorOrNil()
}
