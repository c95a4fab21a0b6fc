// Package cvr provides a concrete cast-vote-record value implementing the
// ballot capability interface the audit core consumes, plus ingestion of
// Hart Intercivic CVR exports and ballot manifests.
package cvr

import (
	"gorla/ports"
)

// CVR is one cast-vote record or manual ballot interpretation. Votes are
// keyed contest -> candidate -> value: 1 marks a plurality vote, a positive
// integer marks a ranked-choice preference (1 = first preference). A phantom
// CVR stands in for a card that cannot be retrieved or never existed.
type CVR struct {
	id      string
	votes   map[string]map[string]int
	phantom bool
	sampled bool
	weight  float64
}

var _ ports.BallotRecord = (*CVR)(nil)

// New creates a CVR with the given votes.
func New(id string, votes map[string]map[string]int) *CVR {
	if votes == nil {
		votes = map[string]map[string]int{}
	}
	return &CVR{id: id, votes: votes}
}

// NewPhantom creates a phantom CVR: it carries no votes and is scored
// conservatively against the audited outcome.
func NewPhantom(id string) *CVR {
	return &CVR{id: id, votes: map[string]map[string]int{}, phantom: true}
}

// ID returns the record identifier.
func (c *CVR) ID() string { return c.id }

// AddContest marks the record as containing a contest, without votes.
// Phantom CVRs get contests assigned but never votes.
func (c *CVR) AddContest(contestID string) {
	if _, ok := c.votes[contestID]; !ok {
		c.votes[contestID] = map[string]int{}
	}
}

// SetVote records a vote (or ranked preference) for a candidate.
func (c *CVR) SetVote(contestID, candidate string, value int) {
	c.AddContest(contestID)
	c.votes[contestID][candidate] = value
}

// MarkInSample flags the record as drawn into the audit sample.
func (c *CVR) MarkInSample(in bool) { c.sampled = in }

// HasContest reports whether the record contains the contest.
func (c *CVR) HasContest(contestID string) bool {
	_, ok := c.votes[contestID]
	return ok
}

// VoteFor returns the recorded value for the candidate: 1 for a plurality
// vote, the preference rank for ranked-choice contests, 0 when absent.
func (c *CVR) VoteFor(contestID, candidate string) int {
	return c.votes[contestID][candidate]
}

// HasOneVote reports whether the record contains exactly one vote among the
// given candidates in the contest.
func (c *CVR) HasOneVote(contestID string, candidates []string) bool {
	votes := c.votes[contestID]
	if votes == nil {
		return false
	}
	n := 0
	for _, cand := range candidates {
		if votes[cand] != 0 {
			n++
		}
	}
	return n == 1
}

// RCVLoserWithoutWinner returns 1 if the loser is ranked and either the
// winner is absent or the loser is ranked ahead of the winner.
func (c *CVR) RCVLoserWithoutWinner(contestID, winner, loser string) int {
	votes := c.votes[contestID]
	loserRank := votes[loser]
	if loserRank == 0 {
		return 0
	}
	winnerRank := votes[winner]
	if winnerRank == 0 || loserRank < winnerRank {
		return 1
	}
	return 0
}

// RCVVoteFor returns 1 if the candidate is the highest-ranked of the
// remaining (not yet eliminated) candidates on this record.
func (c *CVR) RCVVoteFor(contestID, candidate string, remaining []string) int {
	inRemaining := false
	for _, r := range remaining {
		if r == candidate {
			inRemaining = true
			break
		}
	}
	if !inRemaining {
		return 0
	}
	votes := c.votes[contestID]
	rank := votes[candidate]
	if rank == 0 {
		return 0
	}
	for _, r := range remaining {
		if r == candidate {
			continue
		}
		if other := votes[r]; other != 0 && other < rank {
			return 0
		}
	}
	return 1
}

// Phantom reports whether the record is a phantom.
func (c *CVR) Phantom() bool { return c.phantom }

// InSample reports whether the record is already in the audit sample.
func (c *CVR) InSample() bool { return c.sampled }

// SamplingWeight returns the record's pooled required-sampling-rate p.
func (c *CVR) SamplingWeight() float64 { return c.weight }

// SetSamplingWeight sets the record's sampling weight.
func (c *CVR) SetSamplingWeight(p float64) { c.weight = p }

// AsBallotRecords widens a CVR slice to the capability interface the core
// batch operations take.
func AsBallotRecords(cvrs []*CVR) []ports.BallotRecord {
	out := make([]ports.BallotRecord, len(cvrs))
	for i, c := range cvrs {
		out[i] = c
	}
	return out
}
