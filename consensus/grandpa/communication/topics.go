package communication

import (
	"fmt"

	"golang.org/x/crypto/blake2b"

	"github.com/finalitylab/grandpa-node/model/finality"
	"github.com/finalitylab/grandpa-node/network"
)

// RoundTopic is the topic of the votes of one round in one set. Every node
// derives the same topic independently.
func RoundTopic(round finality.Round, setID finality.SetID) network.Topic {
	return network.Topic(blake2b.Sum256([]byte(fmt.Sprintf("%d-%d", setID, round))))
}

// GlobalTopic is the topic of the commits of one set.
func GlobalTopic(setID finality.SetID) network.Topic {
	return network.Topic(blake2b.Sum256([]byte(fmt.Sprintf("%d-GLOBAL", setID))))
}
