package audit

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gorla/adapters/cvr"
	"gorla/internal/testkit"
)

func TestMakeAllAssertions(t *testing.T) {
	mayor, err := NewContest(ContestSpec{
		ID:              "mayor",
		Cards:           100,
		Candidates:      []string{"Alice", "Bob", "Carol"},
		ReportedWinners: []string{"Alice"},
	}, testkit.FakeRiskTestMaker{})
	require.NoError(t, err)
	measure, err := NewContest(ContestSpec{
		ID:              "measure",
		Cards:           100,
		ChoiceFunction:  ChoiceSupermajority,
		ShareToWin:      2.0 / 3.0,
		Candidates:      []string{"Yes", "No"},
		ReportedWinners: []string{"Yes"},
	}, testkit.FakeRiskTestMaker{})
	require.NoError(t, err)

	contests := map[string]*Contest{"mayor": mayor, "measure": measure}
	require.NoError(t, MakeAllAssertions(contests))

	assert.Len(t, mayor.Assertions, 2)
	assert.Len(t, measure.Assertions, 1)
}

func TestMakeAllAssertions_UnknownChoiceFunction(t *testing.T) {
	// Construct directly to bypass spec validation.
	bad := &Contest{ID: "x", ChoiceFunction: "BORDA"}
	err := MakeAllAssertions(map[string]*Contest{"x": bad})
	if err == nil {
		t.Error("expected error for unknown social choice function")
	}
}

func TestMakeAllAssertions_SupermajorityNeedsWinner(t *testing.T) {
	c, err := NewContest(ContestSpec{
		ID:             "measure",
		ChoiceFunction: ChoiceSupermajority,
		ShareToWin:     0.6,
		Candidates:     []string{"Yes", "No"},
	}, testkit.FakeRiskTestMaker{})
	require.NoError(t, err)

	if err := MakeAllAssertions(map[string]*Contest{"measure": c}); err == nil {
		t.Error("expected error for supermajority contest with no reported winner")
	}
}

func TestSetAllMargins(t *testing.T) {
	c, _ := pluralityFixture(t, AuditBallotComparison, 100)
	contests := map[string]*Contest{"mayor": c}

	min := SetAllMargins(contests, sixtyForty(), false)
	assert.InDelta(t, 0.2, min, 1e-12)
	assert.InDelta(t, 0.2, c.Margins["Alice v Bob"], 1e-12)
}

func TestSetAllPValues_UnequalSamples(t *testing.T) {
	c, _ := pluralityFixture(t, AuditBallotComparison, 100)
	contests := map[string]*Contest{"mayor": c}
	mvrs := sixtyForty()

	if _, err := SetAllPValues(contests, mvrs, mvrs[:10]); err == nil {
		t.Error("expected error for unequal MVR and CVR samples")
	}
}

func TestSetAllPValues_Comparison(t *testing.T) {
	c, a := pluralityFixture(t, AuditBallotComparison, 100)
	contests := map[string]*Contest{"mayor": c}
	SetAllMargins(contests, sixtyForty(), false)

	// 40 agreeing winner-vote pairs: every overstatement-assorter value is
	// 1/1.8, ratio 10/9 against the null, comfortably past the risk limit.
	sample := cvr.AsBallotRecords(testkit.PluralityPopulation("mayor", "Alice", "Bob", 40, 0, 0))
	pMax, err := SetAllPValues(contests, sample, sample)
	require.NoError(t, err)

	assert.Less(t, pMax, 0.05)
	assert.Equal(t, pMax, c.MaxP)
	assert.True(t, a.Proved)
	assert.True(t, c.ProvedMap["Alice v Bob"])
	assert.True(t, c.Certified())
	assert.Len(t, a.PHistory, 40)
}

func TestSetAllPValues_ComparisonStyleSkipsForeignCards(t *testing.T) {
	c, a := pluralityFixture(t, AuditBallotComparison, 100)
	c.UseStyle = true
	contests := map[string]*Contest{"mayor": c}
	SetAllMargins(contests, sixtyForty(), true)

	foreign := cvr.New("f1", nil)
	foreign.SetVote("senate", "Carol", 1)
	sample := append(cvr.AsBallotRecords(testkit.PluralityPopulation("mayor", "Alice", "Bob", 10, 0, 0)), foreign)

	_, err := SetAllPValues(contests, sample, sample)
	require.NoError(t, err)
	assert.Len(t, a.PHistory, 10)
}

func TestSetAllPValues_ProvedIsSticky(t *testing.T) {
	c, a := pluralityFixture(t, AuditPolling, 100)
	contests := map[string]*Contest{"mayor": c}
	c.Margins = map[string]float64{"Alice v Bob": 0.2}

	winners := cvr.AsBallotRecords(testkit.PluralityPopulation("mayor", "Alice", "Bob", 10, 0, 0))
	_, err := SetAllPValues(contests, winners, nil)
	require.NoError(t, err)
	require.True(t, a.Proved)

	// A later sample full of loser votes drives the p-value back to 1, but
	// proved never resets.
	losers := cvr.AsBallotRecords(testkit.PluralityPopulation("mayor", "Alice", "Bob", 0, 10, 0))
	pMax, err := SetAllPValues(contests, losers, nil)
	require.NoError(t, err)

	assert.Equal(t, 1.0, pMax)
	assert.Equal(t, 1.0, a.PValue)
	assert.True(t, a.Proved)
	assert.True(t, c.ProvedMap["Alice v Bob"])
}

func TestCertified(t *testing.T) {
	c, a := pluralityFixture(t, AuditBallotComparison, 100)
	assert.False(t, c.Certified())
	a.Proved = true
	assert.True(t, c.Certified())

	empty := &Contest{ID: "empty"}
	assert.False(t, empty.Certified())
}

func TestLosers(t *testing.T) {
	c, err := NewContest(ContestSpec{
		ID:              "board",
		Candidates:      []string{"Alice", "Bob", "Carol"},
		ReportedWinners: []string{"Bob"},
	}, testkit.FakeRiskTestMaker{})
	require.NoError(t, err)
	assert.Equal(t, []string{"Alice", "Carol"}, c.Losers())
}

func TestContestsFromSpecs_FillsID(t *testing.T) {
	specs := map[string]ContestSpec{
		"mayor": {Candidates: []string{"Alice", "Bob"}, ReportedWinners: []string{"Alice"}},
	}
	contests, err := ContestsFromSpecs(specs, testkit.FakeRiskTestMaker{})
	require.NoError(t, err)
	assert.Equal(t, "mayor", contests["mayor"].ID)
}

func TestNewContest_Validation(t *testing.T) {
	maker := testkit.FakeRiskTestMaker{}
	cases := []struct {
		name string
		spec ContestSpec
	}{
		{"missing id", ContestSpec{}},
		{"bad risk limit", ContestSpec{ID: "c", RiskLimit: 1.5}},
		{"bad choice function", ContestSpec{ID: "c", ChoiceFunction: "BORDA"}},
		{"bad audit type", ContestSpec{ID: "c", AuditType: "STRATIFIED"}},
		{"supermajority without share", ContestSpec{ID: "c", ChoiceFunction: ChoiceSupermajority}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := NewContest(tc.spec, maker); err == nil {
				t.Errorf("expected error for %s", tc.name)
			}
		})
	}
	if _, err := NewContest(ContestSpec{ID: "c"}, nil); err == nil {
		t.Error("expected error for nil risk test maker")
	}
}
