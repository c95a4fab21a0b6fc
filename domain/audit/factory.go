package audit

import (
	"fmt"
	"strings"

	"gorla/internal/errors"
	"gorla/ports"
)

// asVote collapses a recorded vote value (mark or preference rank) to the 0/1
// indicator the share-based assorters need.
func asVote(v int) float64 {
	if v != 0 {
		return 1
	}
	return 0
}

// MakePluralityAssertions constructs the assertions that imply every reported
// winner got more votes than every loser: one pairwise assertion per
// (winner, loser) pair, len(winners)*len(losers) in all. Keys are
// "winner v loser".
func MakePluralityAssertions(c *Contest, winners, losers []string) (map[string]*Assertion, error) {
	assertions := make(map[string]*Assertion, len(winners)*len(losers))
	for _, winner := range winners {
		for _, loser := range losers {
			winner, loser := winner, loser
			assorter, err := NewAssorter(c.ID, func(b ports.BallotRecord) float64 {
				return (asVote(b.VoteFor(c.ID, winner)) - asVote(b.VoteFor(c.ID, loser)) + 1) / 2
			}, 1)
			if err != nil {
				return nil, err
			}
			label := winner + " v " + loser
			assertions[label] = NewAssertion(c, assorter, c.newTest(1))
		}
	}
	return assertions, nil
}

// MakeSupermajorityAssertion constructs the single assertion that the winner
// got at least ShareToWin of the valid votes. The equivalent mean condition is
//
//	(votes for winner)/(2*share_to_win) + (invalid votes)/2 > 1/2
//
// so the assorter scores a ballot with exactly one valid vote among
// winner+losers as vote_for_winner/(2*share_to_win), and every other ballot
// as the neutral 1/2. A mark for more than one candidate is an invalid vote.
func MakeSupermajorityAssertion(c *Contest, winner string, losers []string) (map[string]*Assertion, error) {
	if c.ShareToWin <= 0 {
		return nil, errors.ConfigInvalid(fmt.Sprintf("contest %s: share_to_win must be positive", c.ID))
	}
	cands := append(append([]string{}, losers...), winner)
	upper := 1 / (2 * c.ShareToWin)
	assorter, err := NewAssorter(c.ID, func(b ports.BallotRecord) float64 {
		if b.HasOneVote(c.ID, cands) {
			return asVote(b.VoteFor(c.ID, winner)) / (2 * c.ShareToWin)
		}
		return 0.5
	}, upper)
	if err != nil {
		return nil, err
	}
	label := winner + " v all"
	return map[string]*Assertion{
		label: NewAssertion(c, assorter, c.newTest(upper)),
	}, nil
}

// MakeIRVAssertions constructs assertions for an instant-runoff contest from
// imported RAIRE-style assertion records.
//
// WINNER_ONLY: the record is a winner vote iff the winner is its first
// preference, and a loser vote per the ranked-choice "loser without winner"
// rule. IRV_ELIMINATION: with the listed candidates already eliminated,
// compares ranked-choice votes for winner vs loser among the remaining
// candidates. Any other kind is an error.
func MakeIRVAssertions(c *Contest, candidates []string, irvAssertions []IRVAssertion) (map[string]*Assertion, error) {
	assertions := make(map[string]*Assertion, len(irvAssertions))
	for _, ia := range irvAssertions {
		winner, loser := ia.Winner, ia.Loser
		switch ia.Type {
		case AssertWinnerOnly:
			winnerFunc := func(b ports.BallotRecord) float64 {
				if b.VoteFor(c.ID, winner) == 1 {
					return 1
				}
				return 0
			}
			loserFunc := func(b ports.BallotRecord) float64 {
				return float64(b.RCVLoserWithoutWinner(c.ID, winner, loser))
			}
			assorter, err := NewWinnerLoserAssorter(c.ID, winnerFunc, loserFunc, 1)
			if err != nil {
				return nil, err
			}
			label := winner + " v " + loser
			assertions[label] = NewAssertion(c, assorter, c.newTest(1))

		case AssertIRVElimination:
			eliminated := make(map[string]bool, len(ia.AlreadyEliminated))
			for _, e := range ia.AlreadyEliminated {
				eliminated[e] = true
			}
			remaining := make([]string, 0, len(candidates))
			for _, cand := range candidates {
				if !eliminated[cand] {
					remaining = append(remaining, cand)
				}
			}
			assorter, err := NewAssorter(c.ID, func(b ports.BallotRecord) float64 {
				return (float64(b.RCVVoteFor(c.ID, winner, remaining)) -
					float64(b.RCVVoteFor(c.ID, loser, remaining)) + 1) / 2
			}, 1)
			if err != nil {
				return nil, err
			}
			label := winner + " v " + loser + " elim " + strings.Join(ia.AlreadyEliminated, " ")
			assertions[label] = NewAssertion(c, assorter, c.newTest(1))

		default:
			return nil, errors.UnsupportedAssertionType(string(ia.Type))
		}
	}
	return assertions, nil
}
