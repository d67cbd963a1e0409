package finality

import (
	"fmt"
	"sort"
)

// Voter is one authority with its voting weight.
type Voter struct {
	ID     AuthorityID
	Weight uint64
}

// VoterSet is the immutable authority membership of one set id.
type VoterSet struct {
	voters      []Voter
	index       map[AuthorityID]int
	totalWeight uint64
}

// NewVoterSet builds a voter set ordered by authority id.
// Expected errors:
//   - ErrEmptyVoterSet if no voters are given
//   - generic error on zero weights or duplicate voters
func NewVoterSet(voters []Voter) (*VoterSet, error) {
	if len(voters) == 0 {
		return nil, ErrEmptyVoterSet
	}
	sorted := make([]Voter, len(voters))
	copy(sorted, voters)
	sort.Slice(sorted, func(i, j int) bool {
		return string(sorted[i].ID[:]) < string(sorted[j].ID[:])
	})

	set := &VoterSet{
		voters: sorted,
		index:  make(map[AuthorityID]int, len(sorted)),
	}
	for i, voter := range sorted {
		if voter.Weight == 0 {
			return nil, fmt.Errorf("voter %s has zero weight", voter.ID)
		}
		if _, dup := set.index[voter.ID]; dup {
			return nil, fmt.Errorf("duplicate voter %s", voter.ID)
		}
		set.index[voter.ID] = i
		set.totalWeight += voter.Weight
	}
	return set, nil
}

// NewEqualWeightVoterSet gives every authority a weight of one.
func NewEqualWeightVoterSet(ids []AuthorityID) (*VoterSet, error) {
	voters := make([]Voter, 0, len(ids))
	for _, id := range ids {
		voters = append(voters, Voter{ID: id, Weight: 1})
	}
	return NewVoterSet(voters)
}

func (s *VoterSet) Contains(id AuthorityID) bool {
	_, ok := s.index[id]
	return ok
}

// Weight returns the weight of a voter and whether it is a member.
func (s *VoterSet) Weight(id AuthorityID) (uint64, bool) {
	i, ok := s.index[id]
	if !ok {
		return 0, false
	}
	return s.voters[i].Weight, true
}

func (s *VoterSet) Len() int {
	return len(s.voters)
}

func (s *VoterSet) TotalWeight() uint64 {
	return s.totalWeight
}

// Threshold is the minimum weight that is more than two thirds of the total.
func (s *VoterSet) Threshold() uint64 {
	faulty := (s.totalWeight - 1) / 3
	return s.totalWeight - faulty
}

// Voters returns the members ordered by authority id.
func (s *VoterSet) Voters() []Voter {
	voters := make([]Voter, len(s.voters))
	copy(voters, s.voters)
	return voters
}
