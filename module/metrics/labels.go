package metrics

const (
	LabelTopic    = "topic"
	LabelKind     = "kind"
	LabelReason   = "reason"
	LabelResult   = "result"
	LabelResource = "resource"
)

// Reasons for dropping inbound finality messages.
const (
	ReasonDecode       = "decode"
	ReasonWrongRound   = "wrong_round"
	ReasonUnknownVoter = "unknown_voter"
	ReasonBadSignature = "bad_signature"
	ReasonMalformed    = "malformed"
)

// Cached storage resources.
const (
	ResourceTrieNode = "trie_node"
)
