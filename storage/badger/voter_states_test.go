package badger_test

import (
	"testing"

	"github.com/dgraph-io/badger/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finalitylab/grandpa-node/model/finality"
	"github.com/finalitylab/grandpa-node/storage"
	bstorage "github.com/finalitylab/grandpa-node/storage/badger"
	"github.com/finalitylab/grandpa-node/utils/unittest"
)

func TestVoterStates(t *testing.T) {
	unittest.RunWithBadgerDB(t, func(db *badger.DB) {
		states := bstorage.NewVoterStates(db)
		setID := finality.SetID(1)

		_, err := states.ByRound(setID, 5)
		require.ErrorIs(t, err, storage.ErrNotFound)
		_, err = states.LastRound(setID)
		require.ErrorIs(t, err, storage.ErrNotFound)

		require.NoError(t, states.Store(setID, 5, finality.HasVotedPrevoted))
		require.NoError(t, states.Store(setID, 5, finality.HasVotedPrecommitted))

		state, err := states.ByRound(setID, 5)
		require.NoError(t, err)
		assert.Equal(t, finality.HasVotedPrecommitted, state)

		t.Run("regression is refused", func(t *testing.T) {
			err := states.Store(setID, 5, finality.HasVotedPrevoted)
			require.Error(t, err)
			assert.True(t, finality.IsVoteRegressionError(err))

			state, err := states.ByRound(setID, 5)
			require.NoError(t, err)
			assert.Equal(t, finality.HasVotedPrecommitted, state)
		})

		t.Run("last round only moves forward", func(t *testing.T) {
			require.NoError(t, states.Store(setID, 3, finality.HasVotedProposed))
			last, err := states.LastRound(setID)
			require.NoError(t, err)
			assert.Equal(t, finality.Round(5), last)

			require.NoError(t, states.Store(setID, 8, finality.HasVotedProposed))
			last, err = states.LastRound(setID)
			require.NoError(t, err)
			assert.Equal(t, finality.Round(8), last)
		})

		t.Run("sets are independent", func(t *testing.T) {
			_, err := states.ByRound(setID+1, 5)
			assert.ErrorIs(t, err, storage.ErrNotFound)
		})
	})
}
