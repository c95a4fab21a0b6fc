package audit

import (
	"math"
	"math/rand"
	"runtime"

	"github.com/montanaflynn/stats"
	"golang.org/x/sync/errgroup"

	"gorla/internal/errors"
	"gorla/ports"
)

// InitialSampleSizes estimates the audit-wide initial sample size: each
// contest takes the maximum estimate across its assertions, and contests
// sharing ballot cards are pooled rather than double-counted.
//
// With style information, every CVR's sampling weight becomes the maximum of
// (contest sample size / contest card count) over the contests on that card,
// and the audit-wide size is the sum of the weights. Without style
// information it is simply the largest contest requirement.
func InitialSampleSizes(contests map[string]*Contest, cvrs []ports.BallotRecord, useStyle bool, opts SampleSizeOpts) (float64, error) {
	if useStyle && cvrs == nil {
		return 0, errors.ConfigInvalid("use_style is set but no CVR list was provided")
	}
	for _, c := range contests {
		if _, err := c.InitialSampleSize(opts); err != nil {
			return 0, err
		}
	}
	if useStyle {
		for _, cvr := range cvrs {
			cvr.SetSamplingWeight(0)
			for id, c := range contests {
				if !cvr.HasContest(id) || c.Cards == 0 {
					continue
				}
				w := float64(c.SampleSize) / float64(c.Cards)
				if w > cvr.SamplingWeight() {
					cvr.SetSamplingWeight(w)
				}
			}
		}
		total := 0.0
		for _, cvr := range cvrs {
			total += cvr.SamplingWeight()
		}
		return total, nil
	}
	max := 0
	for _, c := range contests {
		if c.SampleSize > max {
			max = c.SampleSize
		}
	}
	return float64(max), nil
}

// simSequence is the per-assertion state a re-estimation replication extends:
// the discrepancy sequence observed so far and the current p-value.
type simSequence struct {
	base      []float64
	p0        float64
	riskLimit float64
	cards     int
	test      ports.RiskTest
}

// NewSampleSizes projects, per contest and audit-wide, how many additional
// ballots must be drawn for the audit to complete if discrepancies continue
// at the rate already observed.
//
// Each replication extends every unproved assertion's observed discrepancy
// sequence by resampling from itself until the p-value crosses the risk limit
// or the contest runs out of cards; the reported per-contest figure is the
// requested quantile of the simulated stopping sizes, net of ballots already
// sampled. Replications run in parallel, each on its own seeded PRNG stream,
// so results are reproducible for a fixed seed. When a CVR list is available
// the audit-wide size pools per-card weights exactly as InitialSampleSizes
// does; otherwise it is the largest per-contest projection.
func NewSampleSizes(contests map[string]*Contest, mvrSample, cvrSample, cvrs []ports.BallotRecord, useStyle bool, opts SampleSizeOpts) (int, map[string]int, error) {
	if useStyle && cvrs == nil {
		return 0, nil, errors.ConfigInvalid("use_style is set but no CVR list was provided")
	}
	if cvrSample != nil && len(mvrSample) != len(cvrSample) {
		return 0, nil, errors.Precondition("unequal numbers of CVRs and MVRs")
	}
	reps := opts.Reps
	if reps <= 0 {
		reps = 200
	}

	if useStyle {
		for _, cvr := range cvrs {
			if cvr.InSample() {
				cvr.SetSamplingWeight(1)
			} else {
				cvr.SetSamplingWeight(0)
			}
		}
	}

	oldSizes := make(map[string]int, len(contests))
	for id := range contests {
		n := 0
		for _, cvr := range cvrs {
			if cvr.HasContest(id) && cvr.InSample() {
				n++
			}
		}
		oldSizes[id] = n
	}

	// The observed discrepancy sequences are fixed across replications; only
	// the resampled extension differs.
	sequences := make(map[string][]simSequence, len(contests))
	for id, c := range contests {
		for label, a := range c.Assertions {
			if a.Proved {
				continue
			}
			var d []float64
			switch c.AuditType {
			case AuditBallotComparison:
				for i := range mvrSample {
					if c.UseStyle && !cvrSample[i].HasContest(id) {
						continue
					}
					v, err := a.OverstatementAssorter(mvrSample[i], cvrSample[i], c.UseStyle)
					if err != nil {
						return 0, nil, errors.Wrapf(err, "contest %s assertion %s", id, label)
					}
					d = append(d, v)
				}
			case AuditPolling:
				for i := range mvrSample {
					d = append(d, a.Assort(mvrSample[i]))
				}
			default:
				return 0, nil, errors.UnsupportedAuditType(string(c.AuditType))
			}
			sequences[id] = append(sequences[id], simSequence{
				base:      d,
				p0:        a.PValue,
				riskLimit: c.RiskLimit,
				cards:     c.Cards,
				test:      a.Test,
			})
		}
	}

	sims := make(map[string][]float64, len(contests))
	for id := range contests {
		sims[id] = make([]float64, reps)
	}

	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))
	for r := 0; r < reps; r++ {
		r := r
		g.Go(func() error {
			prng := rand.New(rand.NewSource(opts.Seed + int64(r)))
			for id, seqs := range sequences {
				newSize := 0
				for _, s := range seqs {
					if len(s.base) == 0 {
						continue
					}
					d := append([]float64(nil), s.base...)
					p := s.p0
					for p > s.riskLimit && len(d) < s.cards {
						d = append(d, d[prng.Intn(len(d))])
						var err error
						p, _, err = s.test.Test(d)
						if err != nil {
							return err
						}
					}
					if len(d) > newSize {
						newSize = len(d)
					}
				}
				sims[id][r] = float64(newSize)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, nil, err
	}

	quantiles := make(map[string]int, len(contests))
	for id := range contests {
		q, err := stats.Percentile(sims[id], opts.Quantile*100)
		if err != nil {
			return 0, nil, errors.Wrapf(err, "contest %s sample-size quantile", id)
		}
		quantiles[id] = int(q) - oldSizes[id]
	}

	if useStyle {
		for _, cvr := range cvrs {
			for id, c := range contests {
				if !cvr.HasContest(id) || cvr.InSample() {
					continue
				}
				denom := c.Cards - oldSizes[id]
				if denom <= 0 {
					continue
				}
				w := float64(quantiles[id]) / float64(denom)
				if w > cvr.SamplingWeight() {
					cvr.SetSamplingWeight(w)
				}
			}
		}
		total := 0.0
		for _, cvr := range cvrs {
			total += cvr.SamplingWeight()
		}
		return int(math.Round(total)), quantiles, nil
	}

	max := 0
	for _, q := range quantiles {
		if q > max {
			max = q
		}
	}
	return max, quantiles, nil
}
