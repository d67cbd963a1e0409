package cbor

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"github.com/finalitylab/grandpa-node/module/irrecoverable"
	"github.com/finalitylab/grandpa-node/network/codec"
)

// Codec encodes messages as one code byte followed by the deterministic CBOR
// encoding of the message.
type Codec struct {
	encMode cbor.EncMode
	decMode cbor.DecMode
}

var _ codec.Codec = (*Codec)(nil)

func NewCodec() *Codec {
	encMode, err := cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("could not create cbor encoding mode: %v", err))
	}
	decMode, err := cbor.DecOptions{
		DupMapKey: cbor.DupMapKeyEnforcedAPF,
	}.DecMode()
	if err != nil {
		panic(fmt.Sprintf("could not create cbor decoding mode: %v", err))
	}
	return &Codec{
		encMode: encMode,
		decMode: decMode,
	}
}

// Encode tags and encodes v. Encoding a message built locally must not fail,
// so errors are exceptions.
func (c *Codec) Encode(v interface{}) ([]byte, error) {
	code, what, err := codec.MessageCodeFromInterface(v)
	if err != nil {
		return nil, irrecoverable.NewExceptionf("could not determine message code: %w", err)
	}
	payload, err := c.encMode.Marshal(v)
	if err != nil {
		return nil, irrecoverable.NewExceptionf("could not encode %s: %w", what, err)
	}
	data := make([]byte, 0, len(payload)+1)
	data = append(data, code)
	return append(data, payload...), nil
}

// Decode decodes a tagged message.
// Expected error returns during normal operations:
//   - codec.ErrInvalidEncoding if data is empty
//   - codec.ErrUnknownMsgCode if the code byte is unknown
//   - codec.ErrMsgUnmarshal if the payload does not decode
func (c *Codec) Decode(data []byte) (interface{}, error) {
	if len(data) == 0 {
		return nil, codec.ErrInvalidEncoding
	}
	msg, what, err := codec.InterfaceFromMessageCode(data[0])
	if err != nil {
		return nil, err
	}
	err = c.decMode.Unmarshal(data[1:], msg)
	if err != nil {
		return nil, codec.NewMsgUnmarshalErr(data[0], what, err)
	}
	return msg, nil
}
