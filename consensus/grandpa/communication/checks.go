package communication

import (
	"errors"
	"fmt"

	"github.com/finalitylab/grandpa-node/model/finality"
)

// CheckCompactCommit validates the structure and signers of a commit. It
// does not check that the signers carry enough weight; that is left to the
// voter.
// Expected errors:
//   - finality.InvalidCommitError if the precommit and signature lists differ
//     in length or are empty
//   - finality.UnknownVoterError if a signer is not in the voter set
func CheckCompactCommit(commit finality.CompactCommit, voters *finality.VoterSet) error {
	if len(commit.Precommits) != len(commit.AuthData) {
		return finality.NewInvalidCommitErrorf(commit.TargetHash,
			"%d precommits but %d signatures", len(commit.Precommits), len(commit.AuthData))
	}
	if len(commit.Precommits) == 0 {
		return finality.NewInvalidCommitErrorf(commit.TargetHash, "no precommits")
	}
	for _, auth := range commit.AuthData {
		if !voters.Contains(auth.ID) {
			return finality.UnknownVoterError{ID: auth.ID}
		}
	}
	return nil
}

// CheckMessageSig verifies the signature of msg over its localized payload
// for the given round and set.
// Expected errors:
//   - finality.InvalidSignatureError if the signature does not verify
func CheckMessageSig(msg finality.SignedMessage, round finality.Round, setID finality.SetID) error {
	invalid := func(err error) error {
		return finality.InvalidSignatureError{ID: msg.ID, Round: round, SetID: setID, Err: err}
	}

	payload, err := finality.LocalizedPayload(msg.Message, round, setID)
	if err != nil {
		return invalid(fmt.Errorf("could not encode payload: %w", err))
	}
	key, err := msg.ID.PublicKey()
	if err != nil {
		return invalid(fmt.Errorf("invalid authority key: %w", err))
	}
	ok, err := key.Verify(payload, msg.Signature)
	if err != nil {
		return invalid(err)
	}
	if !ok {
		return invalid(errors.New("signature mismatch"))
	}
	return nil
}
