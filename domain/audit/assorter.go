package audit

import (
	"gorla/internal/errors"
	"gorla/ports"
)

// ScoreFunc maps a ballot record to a score.
type ScoreFunc func(ports.BallotRecord) float64

// Assorter is a bounded scoring function from a single ballot record to a
// value in [0, UpperBound]. It is the atomic statistical primitive of the
// audit: the reported outcome is correct iff the assorter's population mean
// exceeds 1/2.
//
// An assorter is built either from a direct scorer or from a winner/loser
// indicator pair, in which case assort = (winner - loser + 1)/2. Exactly one
// of the two forms is defined, enforced at construction. An assorter carries
// no mutable state.
type Assorter struct {
	ContestID  string
	UpperBound float64

	assort ScoreFunc
	winner ScoreFunc
	loser  ScoreFunc
}

// NewAssorter builds an assorter from a direct scoring function.
func NewAssorter(contestID string, assort ScoreFunc, upperBound float64) (*Assorter, error) {
	if assort == nil {
		return nil, errors.AssorterInvalid("assort must be defined when no winner/loser pair is given")
	}
	if upperBound <= 0 {
		return nil, errors.AssorterInvalid("upper bound must be positive")
	}
	return &Assorter{ContestID: contestID, UpperBound: upperBound, assort: assort}, nil
}

// NewWinnerLoserAssorter builds an assorter from winner and loser indicator
// functions; the derived score is (winner - loser + 1)/2.
func NewWinnerLoserAssorter(contestID string, winner, loser ScoreFunc, upperBound float64) (*Assorter, error) {
	if winner == nil || loser == nil {
		return nil, errors.AssorterInvalid("winner and loser must both be defined when no direct scorer is given")
	}
	if upperBound <= 0 {
		return nil, errors.AssorterInvalid("upper bound must be positive")
	}
	a := &Assorter{ContestID: contestID, UpperBound: upperBound, winner: winner, loser: loser}
	a.assort = func(b ports.BallotRecord) float64 {
		return (a.winner(b) - a.loser(b) + 1) / 2
	}
	return a, nil
}

// Assort scores a single ballot record. The result lies in [0, UpperBound].
func (a *Assorter) Assort(b ports.BallotRecord) float64 {
	return a.assort(b)
}
