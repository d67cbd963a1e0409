package trie

import (
	"errors"

	mpt "github.com/ethereum/go-ethereum/trie"
)

// ErrInvalidProof is returned when a proof does not contain the claimed root.
var ErrInvalidProof = errors.New("invalid storage proof")

// IsMissingNodeError returns whether a trie walk failed because a node
// referenced by hash was not available. Against a full node store this
// indicates corruption; against a proof it means the proof does not cover
// the requested key.
func IsMissingNodeError(err error) bool {
	var e *mpt.MissingNodeError
	return errors.As(err, &e)
}
