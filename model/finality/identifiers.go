package finality

import (
	"encoding/hex"
	"fmt"

	"github.com/libp2p/go-libp2p/core/crypto"
)

// Round is the number of a voting round within one authority set.
type Round uint64

// SetID identifies an authority set generation.
type SetID uint64

// AuthorityID is the raw Ed25519 public key of a voter.
type AuthorityID [32]byte

// AuthorityIDFromPublicKey converts a libp2p Ed25519 public key into an AuthorityID.
func AuthorityIDFromPublicKey(key crypto.PubKey) (AuthorityID, error) {
	var id AuthorityID
	if key.Type() != crypto.Ed25519 {
		return id, fmt.Errorf("unsupported voter key type %s", key.Type())
	}
	raw, err := key.Raw()
	if err != nil {
		return id, fmt.Errorf("could not read raw public key: %w", err)
	}
	if len(raw) != len(id) {
		return id, fmt.Errorf("invalid ed25519 public key length %d", len(raw))
	}
	copy(id[:], raw)
	return id, nil
}

// PublicKey returns the libp2p public key for this authority.
func (id AuthorityID) PublicKey() (crypto.PubKey, error) {
	return crypto.UnmarshalEd25519PublicKey(id[:])
}

func (id AuthorityID) String() string {
	return hex.EncodeToString(id[:])
}

// TerminalString returns a shortened form for log output.
func (id AuthorityID) TerminalString() string {
	return hex.EncodeToString(id[:4])
}
