package storage

import (
	"github.com/finalitylab/grandpa-node/model/finality"
)

// VoterStates persists the voting progress of the local voter, so a restarted
// node does not vote twice in a round.
type VoterStates interface {

	// Store records the state for a round. It returns a
	// finality.VoteRegressionError if the stored state is already further
	// along than state.
	Store(setID finality.SetID, round finality.Round, state finality.HasVoted) error

	// ByRound returns the state of a round, or storage.ErrNotFound if the
	// local voter never voted in it.
	ByRound(setID finality.SetID, round finality.Round) (finality.HasVoted, error)

	// LastRound returns the latest round of the set in which a state was
	// stored, or storage.ErrNotFound.
	LastRound(setID finality.SetID) (finality.Round, error)
}
