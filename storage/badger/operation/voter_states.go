package operation

import (
	"github.com/dgraph-io/badger/v2"

	"github.com/finalitylab/grandpa-node/model/finality"
)

func UpsertVoterState(setID finality.SetID, round finality.Round, state finality.HasVoted) func(*badger.Txn) error {
	return upsert(makePrefix(codeVoterState, setID, round), uint8(state))
}

func RetrieveVoterState(setID finality.SetID, round finality.Round, state *finality.HasVoted) func(*badger.Txn) error {
	return func(tx *badger.Txn) error {
		var raw uint8
		err := retrieve(makePrefix(codeVoterState, setID, round), &raw)(tx)
		if err != nil {
			return err
		}
		*state = finality.HasVoted(raw)
		return nil
	}
}

// UpsertLastVoterRound records the latest round the local voter took part in
// for a set.
func UpsertLastVoterRound(setID finality.SetID, round finality.Round) func(*badger.Txn) error {
	return upsert(makePrefix(codeLastVoterRound, setID), uint64(round))
}

func RetrieveLastVoterRound(setID finality.SetID, round *finality.Round) func(*badger.Txn) error {
	return func(tx *badger.Txn) error {
		var raw uint64
		err := retrieve(makePrefix(codeLastVoterRound, setID), &raw)(tx)
		if err != nil {
			return err
		}
		*round = finality.Round(raw)
		return nil
	}
}
