package codec

import (
	"fmt"

	"github.com/finalitylab/grandpa-node/model/messages"
)

// Codes of the gossip message variants. The code is the first byte of every
// encoded message and is part of the wire format.
const (
	CodeMin uint8 = iota + 1

	// round messages
	CodeVoteOrPrecommit

	// set-wide messages
	CodeCommit

	// peer view updates
	CodeNeighbor

	CodeMax
)

// Codec encodes and decodes tagged gossip messages.
type Codec interface {
	Encode(v interface{}) ([]byte, error)
	Decode(data []byte) (interface{}, error)
}

// MessageCodeFromInterface returns the code and name of the message type of v.
func MessageCodeFromInterface(v interface{}) (uint8, string, error) {
	switch v.(type) {
	case *messages.VoteOrPrecommit:
		return CodeVoteOrPrecommit, "messages.VoteOrPrecommit", nil
	case *messages.Commit:
		return CodeCommit, "messages.Commit", nil
	case *messages.Neighbor:
		return CodeNeighbor, "messages.Neighbor", nil
	default:
		return 0, "", fmt.Errorf("invalid encode type (%T)", v)
	}
}

// InterfaceFromMessageCode returns a pointer to an empty message of the type
// the code stands for.
// Expected error returns during normal operations:
//   - ErrUnknownMsgCode if the code is not one of the codes above.
func InterfaceFromMessageCode(code uint8) (interface{}, string, error) {
	switch code {
	case CodeVoteOrPrecommit:
		return &messages.VoteOrPrecommit{}, "messages.VoteOrPrecommit", nil
	case CodeCommit:
		return &messages.Commit{}, "messages.Commit", nil
	case CodeNeighbor:
		return &messages.Neighbor{}, "messages.Neighbor", nil
	default:
		return nil, "", NewUnknownMsgCodeErr(code)
	}
}
