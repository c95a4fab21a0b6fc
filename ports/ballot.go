package ports

// BallotRecord is the capability set the audit core needs from a single
// cast-vote record or manual ballot interpretation. The core never depends on
// how a record is stored or parsed; adapters supply concrete implementations.
type BallotRecord interface {
	// HasContest reports whether the record contains the given contest.
	HasContest(contestID string) bool

	// VoteFor returns the recorded value for the candidate in the given
	// contest: 1 for a plurality vote, the preference rank for ranked-choice
	// contests, 0 when absent.
	VoteFor(contestID, candidate string) int

	// HasOneVote reports whether the record contains exactly one vote among
	// the given candidates in the contest.
	HasOneVote(contestID string, candidates []string) bool

	// RCVLoserWithoutWinner returns 1 if, in a ranked-choice contest, the
	// loser is ranked and either the winner is absent or the loser is ranked
	// ahead of the winner.
	RCVLoserWithoutWinner(contestID, winner, loser string) int

	// RCVVoteFor returns 1 if the candidate is the highest-ranked of the
	// remaining (not yet eliminated) candidates on this record.
	RCVVoteFor(contestID, candidate string, remaining []string) int

	// Phantom reports whether the record stands in for a card that cannot be
	// retrieved or never existed. Phantoms are scored conservatively.
	Phantom() bool

	// InSample reports whether the record has already been drawn into the
	// audit sample.
	InSample() bool

	// SamplingWeight returns the record's pooled required-sampling-rate p.
	SamplingWeight() float64

	// SetSamplingWeight sets the record's sampling weight.
	SetSamplingWeight(p float64)
}
