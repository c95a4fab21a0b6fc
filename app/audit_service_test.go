package app

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gorla/adapters/cvr"
	"gorla/domain/audit"
	"gorla/internal/config"
	"gorla/internal/testkit"
)

func testConfig() *config.Config {
	return &config.Config{
		Seed:      audit.DefaultSeed,
		Reps:      0,
		Quantile:  0.5,
		ErrorRate: -1,
	}
}

func TestPrepare_FullPipeline(t *testing.T) {
	svc := NewAuditService(nil, testConfig())

	pop := testkit.PluralityPopulation("mayor", "Alice", "Bob", 60, 40, 0)
	prepared, err := svc.Prepare(PrepareRequest{
		Specs: map[string]audit.ContestSpec{
			"mayor": {
				ID:              "mayor",
				Cards:           100,
				Candidates:      []string{"Alice", "Bob"},
				ReportedWinners: []string{"Alice"},
				AuditType:       audit.AuditPolling,
				UseStyle:        true,
			},
		},
		Maker:    testkit.FakeRiskTestMaker{},
		CVRs:     cvr.AsBallotRecords(pop),
		UseStyle: true,
	})
	require.NoError(t, err)

	assert.False(t, prepared.RunID.String() == "")
	assert.InDelta(t, 0.2, prepared.MinMargin, 1e-9)
	c := prepared.Contests["mayor"]
	require.NotNil(t, c)
	assert.Len(t, c.Assertions, 1)
	assert.Greater(t, prepared.InitialSampleSize, 0.0)
}

func TestPrepare_NoContests(t *testing.T) {
	svc := NewAuditService(nil, testConfig())
	if _, err := svc.Prepare(PrepareRequest{Maker: testkit.FakeRiskTestMaker{}}); err == nil {
		t.Error("expected error with no contests")
	}
}

func TestMeasureAndEstimate(t *testing.T) {
	svc := NewAuditService(nil, testConfig())

	pop := testkit.PluralityPopulation("mayor", "Alice", "Bob", 60, 40, 0)
	ballots := cvr.AsBallotRecords(pop)
	prepared, err := svc.Prepare(PrepareRequest{
		Specs: map[string]audit.ContestSpec{
			"mayor": {
				ID:              "mayor",
				Cards:           100,
				Candidates:      []string{"Alice", "Bob"},
				ReportedWinners: []string{"Alice"},
				AuditType:       audit.AuditPolling,
				UseStyle:        true,
			},
		},
		Maker:    testkit.FakeRiskTestMaker{},
		CVRs:     ballots,
		UseStyle: true,
	})
	require.NoError(t, err)

	// Three winner ballots: not yet certified at the 5% risk limit.
	for i := 0; i < 3; i++ {
		pop[i].MarkInSample(true)
	}
	sample := ballots[:3]
	result, err := svc.Measure(prepared, sample, nil)
	require.NoError(t, err)
	assert.False(t, result.Certified)
	assert.InDelta(t, 0.125, result.MaxP, 1e-12)

	est, err := svc.Estimate(prepared, sample, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, est.PerContest["mayor"])

	// A longer run of winner ballots certifies.
	for i := 3; i < 10; i++ {
		pop[i].MarkInSample(true)
	}
	result, err = svc.Measure(prepared, ballots[:10], nil)
	require.NoError(t, err)
	assert.True(t, result.Certified)
}
