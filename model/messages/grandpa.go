package messages

import (
	"github.com/finalitylab/grandpa-node/model/finality"
)

// VoteOrPrecommit carries a signed round message on the round topic.
type VoteOrPrecommit struct {
	_       struct{} `cbor:",toarray"`
	Message finality.SignedMessage
	Round   finality.Round
	SetID   finality.SetID
}

// Commit carries a compact commit for a concluded round on the global topic.
type Commit struct {
	_       struct{} `cbor:",toarray"`
	Round   finality.Round
	SetID   finality.SetID
	Message finality.CompactCommit
}

// Neighbor is sent directly to peers whenever the local view changes, so they
// can tell which messages are useful to us.
type Neighbor struct {
	_                     struct{} `cbor:",toarray"`
	Round                 finality.Round
	SetID                 finality.SetID
	CommitFinalizedHeight uint64
}
