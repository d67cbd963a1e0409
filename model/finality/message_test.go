package finality_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finalitylab/grandpa-node/model/finality"
	"github.com/finalitylab/grandpa-node/utils/unittest"
)

func TestCommit_CompactExpand(t *testing.T) {
	keys := unittest.VoterKeyFixtures(t, 3)
	commit := unittest.CommitFixture(t, keys, 4, 1)

	compact := commit.Compact()
	require.Len(t, compact.Precommits, 3)
	require.Len(t, compact.AuthData, 3)
	for i, signed := range commit.Precommits {
		assert.Equal(t, signed.ID, compact.AuthData[i].ID)
		assert.Equal(t, signed.Signature, compact.AuthData[i].Signature)
	}

	expanded, err := compact.Expand()
	require.NoError(t, err)
	assert.Equal(t, commit, expanded)

	compact.AuthData = compact.AuthData[:2]
	_, err = compact.Expand()
	require.Error(t, err)
	assert.True(t, finality.IsInvalidCommitError(err))
}

func TestLocalizedPayload_BindsRoundAndSet(t *testing.T) {
	msg := finality.NewPrevote(unittest.HashFixture(), 10)

	payload, err := finality.LocalizedPayload(msg, 5, 2)
	require.NoError(t, err)
	again, err := finality.LocalizedPayload(msg, 5, 2)
	require.NoError(t, err)
	assert.Equal(t, payload, again)

	otherRound, err := finality.LocalizedPayload(msg, 6, 2)
	require.NoError(t, err)
	otherSet, err := finality.LocalizedPayload(msg, 5, 3)
	require.NoError(t, err)
	assert.NotEqual(t, payload, otherRound)
	assert.NotEqual(t, payload, otherSet)
}
