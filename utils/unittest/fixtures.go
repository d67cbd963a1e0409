package unittest

import (
	crand "crypto/rand"
	"math/rand"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/libp2p/go-libp2p/core/crypto"
	"github.com/stretchr/testify/require"

	"github.com/finalitylab/grandpa-node/model/finality"
)

func RandomBytes(n int) []byte {
	b := make([]byte, n)
	_, _ = crand.Read(b)
	return b
}

func HashFixture() common.Hash {
	return common.BytesToHash(RandomBytes(common.HashLength))
}

func Uint64InRange(min, max uint64) uint64 {
	return min + uint64(rand.Intn(int(max)+1-int(min)))
}

func AuthorityIDFixture() finality.AuthorityID {
	var id finality.AuthorityID
	copy(id[:], RandomBytes(len(id)))
	return id
}

// VoterKey is an Ed25519 key pair for a test voter.
type VoterKey struct {
	Key crypto.PrivKey
	ID  finality.AuthorityID
}

func VoterKeyFixture(t testing.TB) VoterKey {
	key, _, err := crypto.GenerateEd25519Key(crand.Reader)
	require.NoError(t, err)
	id, err := finality.AuthorityIDFromPublicKey(key.GetPublic())
	require.NoError(t, err)
	return VoterKey{Key: key, ID: id}
}

func VoterKeyFixtures(t testing.TB, n int) []VoterKey {
	keys := make([]VoterKey, 0, n)
	for i := 0; i < n; i++ {
		keys = append(keys, VoterKeyFixture(t))
	}
	return keys
}

// VoterSetFixture returns an equal-weight voter set over the given keys.
func VoterSetFixture(t testing.TB, keys []VoterKey) *finality.VoterSet {
	ids := make([]finality.AuthorityID, 0, len(keys))
	for _, key := range keys {
		ids = append(ids, key.ID)
	}
	set, err := finality.NewEqualWeightVoterSet(ids)
	require.NoError(t, err)
	return set
}

// SignFixture signs the localized payload of msg with the voter key.
func SignFixture(t testing.TB, key VoterKey, msg finality.Message, round finality.Round, setID finality.SetID) finality.SignedMessage {
	payload, err := finality.LocalizedPayload(msg, round, setID)
	require.NoError(t, err)
	sig, err := key.Key.Sign(payload)
	require.NoError(t, err)
	return finality.SignedMessage{Message: msg, Signature: sig, ID: key.ID}
}

// CommitFixture builds a commit for a random target signed by every key.
func CommitFixture(t testing.TB, keys []VoterKey, round finality.Round, setID finality.SetID) finality.Commit {
	target := HashFixture()
	number := Uint64InRange(1, 10_000)
	commit := finality.Commit{TargetHash: target, TargetNumber: number}
	for _, key := range keys {
		precommit := finality.Precommit{TargetHash: target, TargetNumber: number}
		signed := SignFixture(t, key, precommit.Message(), round, setID)
		commit.Precommits = append(commit.Precommits, finality.SignedPrecommit{
			Precommit: precommit,
			Signature: signed.Signature,
			ID:        key.ID,
		})
	}
	return commit
}
