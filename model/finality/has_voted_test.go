package finality_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/finalitylab/grandpa-node/model/finality"
)

func TestHasVoted_Permissions(t *testing.T) {
	cases := []struct {
		state                     finality.HasVoted
		propose, prevote, precomm bool
	}{
		{finality.HasVotedNo, true, true, true},
		{finality.HasVotedProposed, false, true, true},
		{finality.HasVotedPrevoted, false, false, true},
		{finality.HasVotedPrecommitted, false, false, false},
	}
	for _, c := range cases {
		t.Run(c.state.String(), func(t *testing.T) {
			assert.Equal(t, c.propose, c.state.CanPropose())
			assert.Equal(t, c.prevote, c.state.CanPrevote())
			assert.Equal(t, c.precomm, c.state.CanPrecommit())
			assert.Equal(t, c.propose, c.state.Allows(finality.KindPrimaryPropose))
			assert.Equal(t, c.prevote, c.state.Allows(finality.KindPrevote))
			assert.Equal(t, c.precomm, c.state.Allows(finality.KindPrecommit))
		})
	}
}

func TestHasVoted_AdvanceRejectsRegression(t *testing.T) {
	state, err := finality.HasVotedPrevoted.Advance(finality.HasVotedPrecommitted)
	require.NoError(t, err)
	assert.Equal(t, finality.HasVotedPrecommitted, state)

	state, err = state.Advance(finality.HasVotedProposed)
	require.Error(t, err)
	assert.True(t, finality.IsVoteRegressionError(err))
	assert.Equal(t, finality.HasVotedPrecommitted, state)
}

// Casting any sequence of allowed messages never lowers the state, and once
// precommitted nothing else is allowed.
func TestHasVoted_Monotonic(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		kinds := rapid.SliceOf(rapid.SampledFrom([]finality.MessageKind{
			finality.KindPrimaryPropose,
			finality.KindPrevote,
			finality.KindPrecommit,
		})).Draw(t, "kinds")

		state := finality.HasVotedNo
		for _, kind := range kinds {
			if !state.Allows(kind) {
				continue
			}
			next := state.After(kind)
			if next < state {
				t.Fatalf("state moved from %s to %s", state, next)
			}
			state = next
		}
		if state == finality.HasVotedPrecommitted {
			for _, kind := range kinds {
				if state.Allows(kind) {
					t.Fatalf("%s allowed after precommit", kind)
				}
			}
		}
	})
}
