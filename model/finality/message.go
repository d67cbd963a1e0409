package finality

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// MessageKind is the discriminant of a round message. The numeric values are
// part of the wire format.
type MessageKind uint8

const (
	KindPrevote        MessageKind = 0
	KindPrecommit      MessageKind = 1
	KindPrimaryPropose MessageKind = 2
)

func (k MessageKind) String() string {
	switch k {
	case KindPrevote:
		return "prevote"
	case KindPrecommit:
		return "precommit"
	case KindPrimaryPropose:
		return "primary_propose"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(k))
	}
}

// Message is a vote or proposal cast by one voter in one round. All three
// kinds carry a block target.
type Message struct {
	_            struct{} `cbor:",toarray"`
	Kind         MessageKind
	TargetHash   common.Hash
	TargetNumber uint64
}

func NewPrevote(hash common.Hash, number uint64) Message {
	return Message{Kind: KindPrevote, TargetHash: hash, TargetNumber: number}
}

func NewPrecommit(hash common.Hash, number uint64) Message {
	return Message{Kind: KindPrecommit, TargetHash: hash, TargetNumber: number}
}

func NewPrimaryPropose(hash common.Hash, number uint64) Message {
	return Message{Kind: KindPrimaryPropose, TargetHash: hash, TargetNumber: number}
}

// Valid reports whether the kind is one of the known variants.
func (m Message) Valid() bool {
	return m.Kind <= KindPrimaryPropose
}

// SignedMessage is a Message together with the voter's signature over the
// localized payload.
type SignedMessage struct {
	_         struct{} `cbor:",toarray"`
	Message   Message
	Signature []byte
	ID        AuthorityID
}

// Precommit is the payload of a precommit vote, as carried inside commits.
type Precommit struct {
	_            struct{} `cbor:",toarray"`
	TargetHash   common.Hash
	TargetNumber uint64
}

// Message wraps the precommit as a round message, which is what the voter signed.
func (p Precommit) Message() Message {
	return NewPrecommit(p.TargetHash, p.TargetNumber)
}

// SignedPrecommit is a precommit with its signer and signature.
type SignedPrecommit struct {
	_         struct{} `cbor:",toarray"`
	Precommit Precommit
	Signature []byte
	ID        AuthorityID
}

// AuthData is the (signature, signer) pair of one precommit in a CompactCommit.
type AuthData struct {
	_         struct{} `cbor:",toarray"`
	Signature []byte
	ID        AuthorityID
}

// Commit proves finality of a target block by a set of signed precommits.
type Commit struct {
	_            struct{} `cbor:",toarray"`
	TargetHash   common.Hash
	TargetNumber uint64
	Precommits   []SignedPrecommit
}

// Compact splits the signed precommits into parallel precommit and auth-data lists.
func (c Commit) Compact() CompactCommit {
	compact := CompactCommit{
		TargetHash:   c.TargetHash,
		TargetNumber: c.TargetNumber,
		Precommits:   make([]Precommit, 0, len(c.Precommits)),
		AuthData:     make([]AuthData, 0, len(c.Precommits)),
	}
	for _, signed := range c.Precommits {
		compact.Precommits = append(compact.Precommits, signed.Precommit)
		compact.AuthData = append(compact.AuthData, AuthData{Signature: signed.Signature, ID: signed.ID})
	}
	return compact
}

// CompactCommit is the wire form of a Commit. Precommits and AuthData are
// index-aligned.
type CompactCommit struct {
	_            struct{} `cbor:",toarray"`
	TargetHash   common.Hash
	TargetNumber uint64
	Precommits   []Precommit
	AuthData     []AuthData
}

// Expand zips the compact lists back into signed precommits.
// Expected errors:
//   - InvalidCommitError if the lists are not of equal length
func (c CompactCommit) Expand() (Commit, error) {
	if len(c.Precommits) != len(c.AuthData) {
		return Commit{}, NewInvalidCommitErrorf(c.TargetHash, "%d precommits but %d signatures", len(c.Precommits), len(c.AuthData))
	}
	commit := Commit{
		TargetHash:   c.TargetHash,
		TargetNumber: c.TargetNumber,
		Precommits:   make([]SignedPrecommit, 0, len(c.Precommits)),
	}
	for i, precommit := range c.Precommits {
		commit.Precommits = append(commit.Precommits, SignedPrecommit{
			Precommit: precommit,
			Signature: c.AuthData[i].Signature,
			ID:        c.AuthData[i].ID,
		})
	}
	return commit, nil
}
