package audit

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gorla/adapters/cvr"
	"gorla/internal/testkit"
)

func TestMakePluralityAssertions_PairwiseCount(t *testing.T) {
	c, err := NewContest(ContestSpec{
		ID:              "board",
		Cards:           1000,
		NWinners:        2,
		Candidates:      []string{"Alice", "Bob", "Carol", "Dave"},
		ReportedWinners: []string{"Alice", "Bob"},
	}, testkit.FakeRiskTestMaker{})
	require.NoError(t, err)

	assertions, err := MakePluralityAssertions(c, c.ReportedWinners, c.Losers())
	require.NoError(t, err)

	assert.Len(t, assertions, 4)
	for _, label := range []string{"Alice v Carol", "Alice v Dave", "Bob v Carol", "Bob v Dave"} {
		if assertions[label] == nil {
			t.Errorf("missing assertion %q", label)
		}
	}
}

func TestMakeSupermajorityAssertion(t *testing.T) {
	c, err := NewContest(ContestSpec{
		ID:              "measure",
		Cards:           100,
		ChoiceFunction:  ChoiceSupermajority,
		ShareToWin:      0.6,
		Candidates:      []string{"Yes", "No"},
		ReportedWinners: []string{"Yes"},
	}, testkit.FakeRiskTestMaker{})
	require.NoError(t, err)

	assertions, err := MakeSupermajorityAssertion(c, "Yes", c.Losers())
	require.NoError(t, err)
	require.Len(t, assertions, 1)
	a := assertions["Yes v all"]
	require.NotNil(t, a)

	assert.InDelta(t, 1/(2*0.6), a.Assorter.UpperBound, 1e-12)

	yes := cvr.New("b1", nil)
	yes.SetVote("measure", "Yes", 1)
	no := cvr.New("b2", nil)
	no.SetVote("measure", "No", 1)
	invalid := cvr.New("b3", nil)
	invalid.SetVote("measure", "Yes", 1)
	invalid.SetVote("measure", "No", 1)

	assert.InDelta(t, 1/1.2, a.Assort(yes), 1e-12)
	assert.Equal(t, 0.0, a.Assort(no))
	// A vote for more than one candidate is invalid and scores the neutral 1/2.
	assert.Equal(t, 0.5, a.Assort(invalid))

	// Exactly at the 60% threshold the assorter mean is exactly 1/2.
	pop := make([]*cvr.CVR, 0, 100)
	for i := 0; i < 60; i++ {
		b := cvr.New("y", nil)
		b.SetVote("measure", "Yes", 1)
		pop = append(pop, b)
	}
	for i := 0; i < 40; i++ {
		b := cvr.New("n", nil)
		b.SetVote("measure", "No", 1)
		pop = append(pop, b)
	}
	assert.InDelta(t, 0.5, a.AssorterMean(cvr.AsBallotRecords(pop), false), 1e-12)
}

func TestMakeIRVAssertions_WinnerOnly(t *testing.T) {
	c, err := NewContest(ContestSpec{
		ID:              "council",
		Cards:           100,
		ChoiceFunction:  ChoiceIRV,
		Candidates:      []string{"Alice", "Bob", "Carol"},
		ReportedWinners: []string{"Alice"},
	}, testkit.FakeRiskTestMaker{})
	require.NoError(t, err)

	assertions, err := MakeIRVAssertions(c, c.Candidates, []IRVAssertion{
		{Type: AssertWinnerOnly, Winner: "Alice", Loser: "Bob"},
	})
	require.NoError(t, err)
	a := assertions["Alice v Bob"]
	require.NotNil(t, a)

	// Winner first preference: a winner vote regardless of later rankings.
	first := testkit.RankedBallot("b1", "council", "Alice", "Bob")
	assert.Equal(t, 1.0, a.Assort(first))

	// Winner ranked but not first: neither a winner nor a loser vote when the
	// loser is ranked behind the winner.
	second := testkit.RankedBallot("b2", "council", "Carol", "Alice", "Bob")
	assert.Equal(t, 0.5, a.Assort(second))

	// Loser ranked ahead of the winner counts fully for the loser.
	loserFirst := testkit.RankedBallot("b3", "council", "Bob", "Alice")
	assert.Equal(t, 0.0, a.Assort(loserFirst))

	// Loser ranked, winner absent.
	noWinner := testkit.RankedBallot("b4", "council", "Carol", "Bob")
	assert.Equal(t, 0.0, a.Assort(noWinner))
}

func TestMakeIRVAssertions_Elimination(t *testing.T) {
	c, err := NewContest(ContestSpec{
		ID:              "council",
		Cards:           100,
		ChoiceFunction:  ChoiceIRV,
		Candidates:      []string{"Alice", "Bob", "Carol"},
		ReportedWinners: []string{"Alice"},
	}, testkit.FakeRiskTestMaker{})
	require.NoError(t, err)

	assertions, err := MakeIRVAssertions(c, c.Candidates, []IRVAssertion{
		{Type: AssertIRVElimination, Winner: "Alice", Loser: "Bob", AlreadyEliminated: []string{"Carol"}},
	})
	require.NoError(t, err)
	a := assertions["Alice v Bob elim Carol"]
	require.NotNil(t, a)

	// With Carol eliminated, a Carol-first ballot flows to its next remaining
	// preference.
	flows := testkit.RankedBallot("b1", "council", "Carol", "Alice", "Bob")
	assert.Equal(t, 1.0, a.Assort(flows))

	toLoser := testkit.RankedBallot("b2", "council", "Carol", "Bob", "Alice")
	assert.Equal(t, 0.0, a.Assort(toLoser))

	exhausted := testkit.RankedBallot("b3", "council", "Carol")
	assert.Equal(t, 0.5, a.Assort(exhausted))
}

func TestMakeIRVAssertions_UnknownKind(t *testing.T) {
	c, err := NewContest(ContestSpec{
		ID:             "council",
		ChoiceFunction: ChoiceIRV,
		Candidates:     []string{"Alice", "Bob"},
	}, testkit.FakeRiskTestMaker{})
	require.NoError(t, err)

	_, err = MakeIRVAssertions(c, c.Candidates, []IRVAssertion{
		{Type: "NOT_A_KIND", Winner: "Alice", Loser: "Bob"},
	})
	if err == nil {
		t.Error("expected error for unknown assertion kind")
	}
}
