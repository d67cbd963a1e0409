package badger

import (
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v2"

	"github.com/finalitylab/grandpa-node/model/finality"
	"github.com/finalitylab/grandpa-node/storage"
	"github.com/finalitylab/grandpa-node/storage/badger/operation"
)

// VoterStates persists the HasVoted state of the local voter per round.
type VoterStates struct {
	db *badger.DB
}

var _ storage.VoterStates = (*VoterStates)(nil)

func NewVoterStates(db *badger.DB) *VoterStates {
	return &VoterStates{db: db}
}

// Store advances the stored state of the round to state. The read and the
// write happen in one transaction, so concurrent writers cannot regress it.
func (v *VoterStates) Store(setID finality.SetID, round finality.Round, state finality.HasVoted) error {
	return operation.RetryOnConflict(v.db.Update, func(tx *badger.Txn) error {
		var current finality.HasVoted
		err := operation.RetrieveVoterState(setID, round, &current)(tx)
		if err != nil && !errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("could not retrieve voter state: %w", err)
		}
		next, err := current.Advance(state)
		if err != nil {
			return err
		}
		err = operation.UpsertVoterState(setID, round, next)(tx)
		if err != nil {
			return fmt.Errorf("could not store voter state: %w", err)
		}

		var last finality.Round
		err = operation.RetrieveLastVoterRound(setID, &last)(tx)
		if err != nil && !errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("could not retrieve last voter round: %w", err)
		}
		if errors.Is(err, storage.ErrNotFound) || round > last {
			err = operation.UpsertLastVoterRound(setID, round)(tx)
			if err != nil {
				return fmt.Errorf("could not store last voter round: %w", err)
			}
		}
		return nil
	})
}

func (v *VoterStates) ByRound(setID finality.SetID, round finality.Round) (finality.HasVoted, error) {
	var state finality.HasVoted
	err := v.db.View(operation.RetrieveVoterState(setID, round, &state))
	if err != nil {
		return finality.HasVotedNo, fmt.Errorf("could not retrieve voter state of round %d: %w", round, err)
	}
	return state, nil
}

// LastRound returns the latest round of the set the local voter voted in.
func (v *VoterStates) LastRound(setID finality.SetID) (finality.Round, error) {
	var round finality.Round
	err := v.db.View(operation.RetrieveLastVoterRound(setID, &round))
	if err != nil {
		return 0, fmt.Errorf("could not retrieve last voter round of set %d: %w", setID, err)
	}
	return round, nil
}
