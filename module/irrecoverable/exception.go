package irrecoverable

import (
	"errors"
	"fmt"
)

// Exception marks an error as unexpected: the component that returns it is
// in an undefined state and should not be used further.
type Exception struct {
	err error
}

func (e Exception) Error() string {
	return e.err.Error()
}

func (e Exception) Unwrap() error {
	return e.err
}

func NewException(err error) error {
	return Exception{err: err}
}

func NewExceptionf(msg string, args ...interface{}) error {
	return NewException(fmt.Errorf(msg, args...))
}

func IsException(err error) bool {
	var e Exception
	return errors.As(err, &e)
}
