package audit

import (
	"math"

	"gorla/internal/errors"
	"gorla/ports"
)

// MakeAllAssertions constructs the assertions for every contest, dispatching
// on the social choice function, and attaches them to each contest's
// Assertions map.
func MakeAllAssertions(contests map[string]*Contest) error {
	for id, c := range contests {
		winners := c.ReportedWinners
		losers := c.Losers()
		var (
			assertions map[string]*Assertion
			err        error
		)
		switch c.ChoiceFunction {
		case ChoicePlurality:
			assertions, err = MakePluralityAssertions(c, winners, losers)
		case ChoiceSupermajority:
			if len(winners) == 0 {
				return errors.ConfigInvalid("supermajority contest " + id + " has no reported winner")
			}
			assertions, err = MakeSupermajorityAssertion(c, winners[0], losers)
		case ChoiceIRV:
			assertions, err = MakeIRVAssertions(c, c.Candidates, c.IRVAssertions)
		default:
			return errors.UnsupportedChoiceFunction(string(c.ChoiceFunction))
		}
		if err != nil {
			return errors.Wrapf(err, "contest %s", id)
		}
		c.Assertions = assertions
	}
	return nil
}

// SetAllMargins computes and stores the assorter margin of every assertion in
// every contest from the CVR population, filling each contest's Margins map.
// Returns the smallest margin in the audit, the binding constraint on overall
// difficulty.
//
// Appropriate only when CVRs are available; otherwise base margins on the
// reported results instead.
func SetAllMargins(contests map[string]*Contest, cvrs []ports.BallotRecord, useStyle bool) float64 {
	minMargin := math.Inf(1)
	for _, c := range contests {
		c.Margins = make(map[string]float64, len(c.Assertions))
		for label, a := range c.Assertions {
			margin := a.FindMargin(cvrs, useStyle)
			c.Margins[label] = margin
			if margin < minMargin {
				minMargin = margin
			}
		}
	}
	return minMargin
}

// SetAllPValues evaluates every assertion against a sample of manually
// interpreted ballots (and, for comparison audits, their paired CVRs),
// updating each assertion's p-value, p-history and sticky proved flag, each
// contest's PValues/ProvedMap/MaxP, and returning the largest p-value of any
// assertion in any contest.
//
// For comparison audits the discrepancy sequence is the overstatement
// assorter over the sample, restricted to contest-containing cards when the
// contest uses style information; polling audits feed raw assort values. All
// downstream accounting is identical.
func SetAllPValues(contests map[string]*Contest, mvrSample, cvrSample []ports.BallotRecord) (float64, error) {
	if cvrSample != nil && len(mvrSample) != len(cvrSample) {
		return 0, errors.Precondition("unequal numbers of CVRs and MVRs")
	}
	pMax := 0.0
	for id, c := range contests {
		c.PValues = make(map[string]float64, len(c.Assertions))
		c.ProvedMap = make(map[string]bool, len(c.Assertions))
		contestMaxP := 0.0
		for label, a := range c.Assertions {
			var d []float64
			switch c.AuditType {
			case AuditBallotComparison:
				for i := range mvrSample {
					if c.UseStyle && !cvrSample[i].HasContest(id) {
						continue
					}
					v, err := a.OverstatementAssorter(mvrSample[i], cvrSample[i], c.UseStyle)
					if err != nil {
						return 0, errors.Wrapf(err, "contest %s assertion %s", id, label)
					}
					d = append(d, v)
				}
			case AuditPolling:
				// Style information is irrelevant for polling.
				for i := range mvrSample {
					d = append(d, a.Assort(mvrSample[i]))
				}
			default:
				return 0, errors.UnsupportedAuditType(string(c.AuditType))
			}
			p, history, err := a.Test.Test(d)
			if err != nil {
				return 0, errors.Wrapf(err, "contest %s assertion %s", id, label)
			}
			a.PValue = p
			a.PHistory = history
			a.Proved = p <= c.RiskLimit || a.Proved
			c.PValues[label] = p
			c.ProvedMap[label] = a.Proved
			if p > contestMaxP {
				contestMaxP = p
			}
		}
		c.MaxP = contestMaxP
		if c.MaxP > pMax {
			pMax = c.MaxP
		}
	}
	return pMax, nil
}
