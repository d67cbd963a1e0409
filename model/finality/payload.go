package finality

import (
	"github.com/fxamacker/cbor/v2"
)

var payloadEncMode cbor.EncMode

func init() {
	var err error
	payloadEncMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic(err)
	}
}

type localizedPayload struct {
	_       struct{} `cbor:",toarray"`
	Message Message
	Round   Round
	SetID   SetID
}

// LocalizedPayload is the byte string a voter signs: the message, the round
// and the set id, in that order. Binding round and set id prevents a vote from
// being replayed into another round or set.
func LocalizedPayload(msg Message, round Round, setID SetID) ([]byte, error) {
	return payloadEncMode.Marshal(localizedPayload{
		Message: msg,
		Round:   round,
		SetID:   setID,
	})
}
