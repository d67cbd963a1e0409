package codec

import (
	"errors"
	"fmt"
)

// ErrInvalidEncoding is returned for payloads too short to carry a message code.
var ErrInvalidEncoding = errors.New("invalid encoding")

// ErrUnknownMsgCode indicates that the code byte of a payload is not a known
// message code.
type ErrUnknownMsgCode struct {
	code uint8
}

func (e ErrUnknownMsgCode) Error() string {
	return fmt.Sprintf("unknown message code: %d", e.code)
}

func NewUnknownMsgCodeErr(code uint8) ErrUnknownMsgCode {
	return ErrUnknownMsgCode{code}
}

// IsErrUnknownMsgCode returns true if an error is ErrUnknownMsgCode
func IsErrUnknownMsgCode(err error) bool {
	var e ErrUnknownMsgCode
	return errors.As(err, &e)
}

// ErrMsgUnmarshal indicates that the payload after the code byte could not be
// decoded into the message type of the code.
type ErrMsgUnmarshal struct {
	code    uint8
	msgType string
	err     error
}

func (e ErrMsgUnmarshal) Error() string {
	return fmt.Sprintf("could not unmarshal %s (code %d): %v", e.msgType, e.code, e.err)
}

func (e ErrMsgUnmarshal) Unwrap() error {
	return e.err
}

func NewMsgUnmarshalErr(code uint8, msgType string, err error) ErrMsgUnmarshal {
	return ErrMsgUnmarshal{code: code, msgType: msgType, err: err}
}

// IsErrMsgUnmarshal returns true if an error is ErrMsgUnmarshal
func IsErrMsgUnmarshal(err error) bool {
	var e ErrMsgUnmarshal
	return errors.As(err, &e)
}
