package module

// FinalityMetrics is consumed by the finality gossip layer. Implementations
// must be non-blocking and concurrency safe.
type FinalityMetrics interface {
	// MessageReceived reports an inbound gossip message of the given kind
	// that passed decoding and verification.
	MessageReceived(kind string)
	// MessageDropped reports an inbound message discarded for the given reason.
	MessageDropped(kind string, reason string)
	// VoteSent reports a locally signed and gossiped vote.
	VoteSent(kind string)
	// VoteSuppressed reports a vote the voting state did not permit.
	VoteSuppressed(kind string)
	// CommitSent reports a commit gossiped on the global topic.
	CommitSent()
	// CurrentRound reports the round the bridge most recently joined.
	CurrentRound(setID uint64, round uint64)
	// GossipValidated reports the verdict of the gossip validator.
	GossipValidated(result string)
}

// StorageProofMetrics is consumed by the proving backend.
type StorageProofMetrics interface {
	// ProofNodeRecorded reports a trie node added to a proof recorder.
	ProofNodeRecorded(sizeBytes int)
	// ProofExtracted reports the size of an extracted proof.
	ProofExtracted(nodes int, sizeBytes int)
}

// CacheMetrics reports hits and misses of storage read caches.
type CacheMetrics interface {
	CacheHit(resource string)
	CacheMiss(resource string)
	CacheEntries(resource string, entries uint)
}

// NetworkMetrics is consumed by the gossip transport.
type NetworkMetrics interface {
	NetworkMessageSent(sizeBytes int, topic string)
	NetworkMessageReceived(sizeBytes int, topic string)
	DirectMessageSent(sizeBytes int)
	ConnectedPeers(count int)
}
