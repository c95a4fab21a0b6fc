package audit

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"gorla/internal/errors"
	"gorla/ports"
)

// Assertion is a single one-sided statistical hypothesis about a contest:
// "the mean of this assorter over all ballots relevant to the contest exceeds
// 1/2". The joint truth of a contest's assertions implies its reported
// outcome is correct.
//
// Margin is set once from a full CVR population (or reported totals) and only
// changes by explicit re-computation. PValue, PHistory and Proved are updated
// every time a new ballot sample is evaluated. Proved is sticky: once an
// observed p-value reaches the risk limit it never resets.
type Assertion struct {
	Contest  *Contest
	Assorter *Assorter
	Margin   float64
	Test     ports.RiskTest

	PValue     float64
	PHistory   []float64
	Proved     bool
	SampleSize int
}

// NewAssertion pairs an assorter with its contest and a fresh risk test.
func NewAssertion(contest *Contest, assorter *Assorter, test ports.RiskTest) *Assertion {
	return &Assertion{
		Contest:  contest,
		Assorter: assorter,
		Test:     test,
		PValue:   1,
	}
}

// Assort scores a single ballot record with the assertion's assorter.
func (a *Assertion) Assort(b ports.BallotRecord) float64 {
	return a.Assorter.Assort(b)
}

// MinP returns the smallest p-value observed so far. Meaningful only for
// sequential risk tests, where PHistory holds one entry per ballot.
func (a *Assertion) MinP() float64 {
	min := math.Inf(1)
	for _, p := range a.PHistory {
		if p < min {
			min = p
		}
	}
	return min
}

// scores applies the assorter over the ballots. When useStyle is set, ballots
// that do not contain the assertion's contest are excluded, so the same code
// serves both audit styles.
func (a *Assertion) scores(ballots []ports.BallotRecord, useStyle bool) []float64 {
	vals := make([]float64, 0, len(ballots))
	for _, b := range ballots {
		if useStyle && !b.HasContest(a.Contest.ID) {
			continue
		}
		vals = append(vals, a.Assorter.Assort(b))
	}
	return vals
}

// AssorterMean returns the mean assorter value over the ballots. NaN when no
// ballot survives the style filter.
func (a *Assertion) AssorterMean(ballots []ports.BallotRecord, useStyle bool) float64 {
	vals := a.scores(ballots, useStyle)
	if len(vals) == 0 {
		return math.NaN()
	}
	return stat.Mean(vals, nil)
}

// AssorterSum returns the sum of assorter values over the ballots.
func (a *Assertion) AssorterSum(ballots []ports.BallotRecord, useStyle bool) float64 {
	return floats.Sum(a.scores(ballots, useStyle))
}

// AssorterMargin returns twice the assorter mean minus 1: a signed measure of
// how far the evidence is from the decision boundary.
func (a *Assertion) AssorterMargin(ballots []ports.BallotRecord, useStyle bool) float64 {
	return 2*a.AssorterMean(ballots, useStyle) - 1
}

// FindMargin computes and stores the assorter margin from the CVR population.
// A mean below 1/2 signals the reported outcome is not supported by the
// record; that is a warning, not a failure, so the discrepancy stays visible
// in the p-values.
func (a *Assertion) FindMargin(cvrs []ports.BallotRecord, useStyle bool) float64 {
	mean := a.AssorterMean(cvrs, useStyle)
	if mean < 0.5 {
		warnf("assertion for contest %s not satisfied by CVRs: mean value is %v", a.Contest.ID, mean)
	}
	a.Margin = 2*mean - 1
	return a.Margin
}

// Overstatement returns the discrepancy between the machine-reported cvr and
// its manual interpretation mvr, for comparison audits.
//
// Without style information, a phantom MVR scores 0 and everything else is
// scored as read. With style information the CVR must contain the contest; a
// phantom CVR scores 1/2 (non-vote), and an MVR that is phantom or lacks the
// contest scores 0 (vote for the loser, the conservative assumption).
func (a *Assertion) Overstatement(mvr, cvr ports.BallotRecord, useStyle bool) (float64, error) {
	if !useStyle {
		mvrAssort := 0.0
		if !mvr.Phantom() {
			mvrAssort = a.Assorter.Assort(mvr)
		}
		return a.Assorter.Assort(cvr) - mvrAssort, nil
	}
	if !cvr.HasContest(a.Contest.ID) {
		return 0, errors.Precondition("overstatement: use_style is set but CVR does not contain the contest")
	}
	cvrAssort := a.Assorter.Assort(cvr)
	if cvr.Phantom() {
		cvrAssort = 0.5
	}
	mvrAssort := 0.0
	if !mvr.Phantom() && mvr.HasContest(a.Contest.ID) {
		mvrAssort = a.Assorter.Assort(mvr)
	}
	return cvrAssort - mvrAssort, nil
}

// OverstatementAssorter rescales the overstatement into a bounded statistic
// the risk test can consume like a direct assort value:
//
//	(1 - o/u) / (2 - margin/u)
//
// where o is the overstatement, u the assorter upper bound, and margin the
// assertion's stored margin.
func (a *Assertion) OverstatementAssorter(mvr, cvr ports.BallotRecord, useStyle bool) (float64, error) {
	o, err := a.Overstatement(mvr, cvr, useStyle)
	if err != nil {
		return 0, err
	}
	u := a.Assorter.UpperBound
	return (1 - o/u) / (2 - a.Margin/u), nil
}

// MakeOverstatement returns the overstatement-assorter value corresponding to
// an overstatement of overs times the upper bound u. Computes and stores the
// margin from cvrs if it has not been set.
func (a *Assertion) MakeOverstatement(overs float64, cvrs []ports.BallotRecord, useStyle bool) float64 {
	if a.Margin == 0 {
		a.FindMargin(cvrs, useStyle)
	}
	return (1 - overs) / (2 - a.Margin/a.Assorter.UpperBound)
}

// OverstatementAssorterMean returns the mean of the overstatement assorter
// implied by the raw assorter margin and an assumed rate of one-vote
// overstatements. The stored margin is used; when unset it is computed from
// cvrs, and it is an error to supply neither.
func (a *Assertion) OverstatementAssorterMean(rate float64, cvrs []ports.BallotRecord) (float64, error) {
	margin, err := a.marginOrCompute(cvrs)
	if err != nil {
		return 0, err
	}
	return (1 - rate/2) / (2 - margin/a.Assorter.UpperBound), nil
}

// OverstatementAssorterMargin returns the margin of the overstatement
// assorter implied by the raw assorter margin and an assumed rate of one-vote
// overstatements: twice OverstatementAssorterMean minus 1.
func (a *Assertion) OverstatementAssorterMargin(rate float64, cvrs []ports.BallotRecord) (float64, error) {
	mean, err := a.OverstatementAssorterMean(rate, cvrs)
	if err != nil {
		return 0, err
	}
	return 2*mean - 1, nil
}

func (a *Assertion) marginOrCompute(cvrs []ports.BallotRecord) (float64, error) {
	if a.Margin != 0 {
		return a.Margin, nil
	}
	if len(cvrs) == 0 {
		return 0, errors.ConfigInvalid("must provide either an assorter margin or a CVR list")
	}
	return a.AssorterMargin(cvrs, a.Contest.UseStyle), nil
}

// SampleSizeOpts controls sample-size estimation. Zero value is not usable;
// start from DefaultSampleSizeOpts.
type SampleSizeOpts struct {
	// Data holds prior observations. When present the estimate bootstraps
	// from them instead of simulating errors.
	Data []float64
	// Prefix keeps Data as a fixed prefix and resamples only the remainder.
	Prefix bool
	// Rate is the assumed rate of small values for synthetic construction.
	// Negative means unspecified: polling audits then infer it from the
	// margin; comparison audits require it.
	Rate float64
	// Reps is the number of simulation replications; 0 builds the population
	// deterministically.
	Reps int
	// Quantile of the simulated sample-size distribution to report.
	Quantile float64
	// Seed for the simulation PRNG streams.
	Seed int64
}

// DefaultSampleSizeOpts returns the standard estimation options: no prior
// data, deterministic construction, median quantile, fixed seed.
func DefaultSampleSizeOpts() SampleSizeOpts {
	return SampleSizeOpts{
		Prefix:   true,
		Rate:     -1,
		Quantile: 0.5,
		Seed:     DefaultSeed,
	}
}

// EstimateSampleSize estimates the number of ballots needed to drive this
// assertion's p-value to the contest risk limit or below.
//
// With prior observations the estimate delegates to the risk test's own
// estimator over them. Without, a synthetic population of N values is built
// by systematically interleaving a small and a large value: 0 and u for
// polling audits, the overstatement-assorter values for a full and for a zero
// overstatement for comparison audits. The margin must be strictly positive.
func (a *Assertion) EstimateSampleSize(opts SampleSizeOpts) (int, error) {
	if a.Margin <= 0 {
		return 0, errors.Precondition("margin is nonpositive; set margins before estimating sample sizes")
	}
	alpha := a.Contest.RiskLimit

	if len(opts.Data) > 0 {
		n, err := a.Test.SampleSize(opts.Data, alpha, opts.Reps, opts.Prefix, opts.Quantile, opts.Seed)
		if err != nil {
			return 0, err
		}
		a.SampleSize = n
		return n, nil
	}

	var big, small, smallRate float64
	switch a.Contest.AuditType {
	case AuditPolling:
		big, small = a.Assorter.UpperBound, 0
		smallRate = opts.Rate
		if smallRate < 0 {
			smallRate = (1 - a.Margin) / 2
		}
	case AuditBallotComparison:
		if opts.Rate < 0 {
			return 0, errors.ConfigInvalid("comparison audits need an explicit overstatement rate to construct sample-size data")
		}
		big = a.MakeOverstatement(0, nil, false)
		small = a.MakeOverstatement(1, nil, false)
		smallRate = opts.Rate
	default:
		return 0, errors.UnsupportedAuditType(string(a.Contest.AuditType))
	}

	x := make([]float64, a.Contest.Cards)
	var period int
	if smallRate > 0 {
		period = int(1 / smallRate)
	}
	for k := range x {
		if period > 0 && k%period == 0 {
			x[k] = small
		} else {
			x[k] = big
		}
	}
	n, err := a.Test.SampleSize(x, alpha, opts.Reps, opts.Prefix, opts.Quantile, opts.Seed)
	if err != nil {
		return 0, err
	}
	a.SampleSize = n
	return n, nil
}
