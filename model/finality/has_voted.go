package finality

import "fmt"

// HasVoted records how far the local voter has progressed in one round.
// States are ordered and only move forward.
type HasVoted uint8

const (
	HasVotedNo HasVoted = iota
	HasVotedProposed
	HasVotedPrevoted
	HasVotedPrecommitted
)

func (h HasVoted) String() string {
	switch h {
	case HasVotedNo:
		return "no"
	case HasVotedProposed:
		return "proposed"
	case HasVotedPrevoted:
		return "prevoted"
	case HasVotedPrecommitted:
		return "precommitted"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(h))
	}
}

// CanPropose is true only if nothing has been cast yet in this round.
func (h HasVoted) CanPropose() bool {
	return h == HasVotedNo
}

// CanPrevote is true if at most a primary proposal has been cast.
func (h HasVoted) CanPrevote() bool {
	return h == HasVotedNo || h == HasVotedProposed
}

// CanPrecommit is true unless a precommit has already been cast.
func (h HasVoted) CanPrecommit() bool {
	return h != HasVotedPrecommitted
}

// Allows reports whether a message of the given kind may still be signed.
func (h HasVoted) Allows(kind MessageKind) bool {
	switch kind {
	case KindPrimaryPropose:
		return h.CanPropose()
	case KindPrevote:
		return h.CanPrevote()
	case KindPrecommit:
		return h.CanPrecommit()
	default:
		return false
	}
}

// After returns the state reached once a message of the given kind is cast.
func (h HasVoted) After(kind MessageKind) HasVoted {
	var next HasVoted
	switch kind {
	case KindPrimaryPropose:
		next = HasVotedProposed
	case KindPrevote:
		next = HasVotedPrevoted
	case KindPrecommit:
		next = HasVotedPrecommitted
	default:
		return h
	}
	if next < h {
		return h
	}
	return next
}

// Advance moves to the given state.
// Expected errors:
//   - VoteRegressionError if the target state is lower than the current one
func (h HasVoted) Advance(to HasVoted) (HasVoted, error) {
	if to < h {
		return h, VoteRegressionError{From: h, To: to}
	}
	return to, nil
}
