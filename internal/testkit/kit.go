// Package testkit provides fixtures for exercising the audit core: ballot
// population builders and a deterministic fake risk test, so package tests
// never depend on a concrete risk-measuring implementation.
package testkit

import (
	"math"
	"math/rand"
	"sort"

	"gorla/adapters/cvr"
	"gorla/ports"
)

// FakeRiskTest is a deterministic stand-in for a sequential risk-measuring
// function. It tracks a running product of observation-to-null ratios and
// reports p_j = min(1, 1/M_j); observations above 1/2 shrink the p-value,
// observations below grow it. It is a test double, not a certified risk
// function.
type FakeRiskTest struct {
	T float64 // null mean, 1/2 for audit assertions
	N int     // population size
}

var _ ports.RiskTest = (*FakeRiskTest)(nil)

// NewFakeRiskTest builds the fake with the conventional null mean 1/2.
func NewFakeRiskTest(n int) *FakeRiskTest {
	return &FakeRiskTest{T: 0.5, N: n}
}

// Test returns the terminal p-value and the per-observation history.
func (f *FakeRiskTest) Test(x []float64) (float64, []float64, error) {
	history := make([]float64, len(x))
	m := 1.0
	for i, v := range x {
		m *= v / f.T
		if m <= 0 || math.IsNaN(m) {
			history[i] = 1
			m = 0
			continue
		}
		p := 1 / m
		if p > 1 {
			p = 1
		}
		history[i] = p
	}
	p := 1.0
	if len(history) > 0 {
		p = history[len(history)-1]
	}
	return p, history, nil
}

// stoppingTime returns the 1-based index at which the running p-value first
// reaches alpha, or len(x) if it never does.
func (f *FakeRiskTest) stoppingTime(x []float64, alpha float64) int {
	_, history, _ := f.Test(x)
	for i, p := range history {
		if p <= alpha {
			return i + 1
		}
	}
	return len(x)
}

// SampleSize estimates the observations needed to reach alpha. reps == 0
// tiles x to the population size; reps > 0 resamples (keeping x as a fixed
// prefix when prefix is set) and reports the requested quantile of the
// stopping times.
func (f *FakeRiskTest) SampleSize(x []float64, alpha float64, reps int, prefix bool, quantile float64, seed int64) (int, error) {
	n := f.N
	if n <= 0 {
		n = len(x)
	}
	if reps == 0 {
		tiled := make([]float64, n)
		for i := range tiled {
			tiled[i] = x[i%len(x)]
		}
		return f.stoppingTime(tiled, alpha), nil
	}
	prng := rand.New(rand.NewSource(seed))
	sizes := make([]int, reps)
	for r := 0; r < reps; r++ {
		seq := make([]float64, 0, n)
		if prefix {
			seq = append(seq, x...)
		}
		for len(seq) < n {
			seq = append(seq, x[prng.Intn(len(x))])
		}
		sizes[r] = f.stoppingTime(seq[:n], alpha)
	}
	sort.Ints(sizes)
	idx := int(quantile*float64(reps)) - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= reps {
		idx = reps - 1
	}
	return sizes[idx], nil
}

// FakeRiskTestMaker builds FakeRiskTests for contest factories.
type FakeRiskTestMaker struct{}

var _ ports.RiskTestMaker = FakeRiskTestMaker{}

// Make ignores the estimator parameters; the fake has none.
func (FakeRiskTestMaker) Make(params ports.RiskTestParams) ports.RiskTest {
	return NewFakeRiskTest(params.Cards)
}

// PluralityPopulation builds a ballot population for a two-candidate
// plurality contest: winnerVotes for winner, loserVotes for loser, and
// blanks ballots containing the contest with no vote.
func PluralityPopulation(contestID, winner, loser string, winnerVotes, loserVotes, blanks int) []*cvr.CVR {
	out := make([]*cvr.CVR, 0, winnerVotes+loserVotes+blanks)
	i := 0
	for ; i < winnerVotes; i++ {
		b := cvr.New(ballotID(i), nil)
		b.SetVote(contestID, winner, 1)
		out = append(out, b)
	}
	for ; i < winnerVotes+loserVotes; i++ {
		b := cvr.New(ballotID(i), nil)
		b.SetVote(contestID, loser, 1)
		out = append(out, b)
	}
	for ; i < winnerVotes+loserVotes+blanks; i++ {
		b := cvr.New(ballotID(i), nil)
		b.AddContest(contestID)
		out = append(out, b)
	}
	return out
}

// RankedBallot builds a ranked-choice ballot: preferences are listed in
// order, first preference first.
func RankedBallot(id, contestID string, preferences ...string) *cvr.CVR {
	b := cvr.New(id, nil)
	b.AddContest(contestID)
	for i, cand := range preferences {
		b.SetVote(contestID, cand, i+1)
	}
	return b
}

func ballotID(i int) string {
	return "ballot-" + itoa(i)
}

func itoa(i int) string {
	if i == 0 {
		return "0"
	}
	var digits []byte
	for i > 0 {
		digits = append([]byte{byte('0' + i%10)}, digits...)
		i /= 10
	}
	return string(digits)
}
