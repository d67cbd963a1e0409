package finality

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

var (
	ErrEmptyVoterSet = errors.New("voter set is empty")
)

// InvalidCommitError indicates a structurally malformed commit.
type InvalidCommitError struct {
	TargetHash common.Hash
	Err        error
}

func NewInvalidCommitErrorf(target common.Hash, msg string, args ...interface{}) error {
	return InvalidCommitError{
		TargetHash: target,
		Err:        fmt.Errorf(msg, args...),
	}
}

func (e InvalidCommitError) Error() string {
	return fmt.Sprintf("invalid commit for target %x: %s", e.TargetHash, e.Err.Error())
}

func (e InvalidCommitError) Unwrap() error {
	return e.Err
}

// IsInvalidCommitError returns whether an error is InvalidCommitError
func IsInvalidCommitError(err error) bool {
	var e InvalidCommitError
	return errors.As(err, &e)
}

// UnknownVoterError indicates that a message was signed by an authority
// outside of the current voter set.
type UnknownVoterError struct {
	ID AuthorityID
}

func (e UnknownVoterError) Error() string {
	return fmt.Sprintf("authority %s is not a member of the voter set", e.ID)
}

// IsUnknownVoterError returns whether an error is UnknownVoterError
func IsUnknownVoterError(err error) bool {
	var e UnknownVoterError
	return errors.As(err, &e)
}

// InvalidSignatureError indicates that a signature does not verify for the
// claimed authority and payload.
type InvalidSignatureError struct {
	ID    AuthorityID
	Round Round
	SetID SetID
	Err   error
}

func (e InvalidSignatureError) Error() string {
	return fmt.Sprintf("invalid signature by %s for round %d set %d: %s", e.ID, e.Round, e.SetID, e.Err.Error())
}

func (e InvalidSignatureError) Unwrap() error {
	return e.Err
}

// IsInvalidSignatureError returns whether an error is InvalidSignatureError
func IsInvalidSignatureError(err error) bool {
	var e InvalidSignatureError
	return errors.As(err, &e)
}

// VoteRegressionError is returned when a HasVoted state would move backwards.
type VoteRegressionError struct {
	From HasVoted
	To   HasVoted
}

func (e VoteRegressionError) Error() string {
	return fmt.Sprintf("cannot move voting state from %s back to %s", e.From, e.To)
}

// IsVoteRegressionError returns whether an error is VoteRegressionError
func IsVoteRegressionError(err error) bool {
	var e VoteRegressionError
	return errors.As(err, &e)
}
