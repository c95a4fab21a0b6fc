package ports

// RiskTest is a sequential risk-measuring function: it turns an ordered
// sequence of bounded observations into a running p-value for the null
// hypothesis that the assorter mean is at most 1/2. The martingale
// construction behind it lives outside the core.
type RiskTest interface {
	// Test returns the p-value after the full sequence and the history of
	// p-values, one entry per observation. The history is meaningful only
	// for genuinely sequential tests.
	Test(x []float64) (pValue float64, pHistory []float64, err error)

	// SampleSize estimates the number of observations needed to drive the
	// p-value to alpha or below, given observations x.
	//
	// reps == 0 tiles x deterministically to the population size. reps > 0
	// runs that many simulated resamples and reports the requested quantile
	// of the stopping-time distribution; when prefix is true the supplied
	// observations are kept as a fixed prefix and only the remainder is
	// resampled. seed fixes the PRNG stream so results are reproducible.
	SampleSize(x []float64, alpha float64, reps int, prefix bool, quantile float64, seed int64) (int, error)
}

// RiskTestParams carries the per-assertion parameters a maker needs to build
// a test instance: the assorter's upper bound, the population size, and the
// contest-level estimator configuration.
type RiskTestParams struct {
	Upper float64 // a priori bound on each observation
	Cards int     // population size N
	Estim string  // estimator for the alternative, maker-specific
	G     float64 // noise/shrinkage parameter, maker-specific
}

// RiskTestMaker constructs a fresh RiskTest per assertion. Each assertion
// owns its own test instance so p-value histories never interleave.
type RiskTestMaker interface {
	Make(params RiskTestParams) RiskTest
}
