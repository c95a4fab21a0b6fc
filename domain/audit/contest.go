package audit

import (
	"gorla/internal/errors"
	"gorla/ports"
)

// ContestSpec is the external, serializable description of one contest under
// audit, as produced by a configuration loader.
type ContestSpec struct {
	ID              string       `json:"id"`
	Name            string       `json:"name"`
	RiskLimit       float64      `json:"risk_limit"`
	Cards           int          `json:"cards"`
	ChoiceFunction  SocialChoice `json:"choice_function"`
	NWinners        int          `json:"n_winners"`
	ShareToWin      float64      `json:"share_to_win"`
	Candidates      []string     `json:"candidates"`
	ReportedWinners []string     `json:"reported_winners"`
	AssertionFile   string       `json:"assertion_file,omitempty"`
	AuditType       AuditType    `json:"audit_type"`
	UseStyle        bool         `json:"use_style"`
	Estim           string       `json:"estim,omitempty"`
	G               float64      `json:"g,omitempty"`

	// IRVAssertions may be embedded directly in the spec instead of loaded
	// from AssertionFile.
	IRVAssertions []IRVAssertion `json:"assertions,omitempty"`
}

// Contest represents one electoral contest under audit. It owns the risk
// limit and audit-type configuration, the assertions that jointly certify its
// reported outcome, and the margins, p-values and sample sizes derived from
// them during batch operations.
type Contest struct {
	ID              string
	Name            string
	RiskLimit       float64
	Cards           int
	ChoiceFunction  SocialChoice
	NWinners        int
	ShareToWin      float64
	Candidates      []string
	ReportedWinners []string
	AssertionFile   string
	AuditType       AuditType
	UseStyle        bool

	// TestMaker builds one risk test per assertion; Estim and G are passed
	// through to it.
	TestMaker ports.RiskTestMaker
	Estim     string
	G         float64

	// IRVAssertions holds imported RAIRE-style assertions for IRV contests.
	IRVAssertions []IRVAssertion

	Assertions map[string]*Assertion
	Margins    map[string]float64
	PValues    map[string]float64
	ProvedMap  map[string]bool
	MaxP       float64
	SampleSize int
}

// NewContest builds a contest from its spec, applying the conventional
// defaults (5% risk limit, ballot-comparison, plurality, one winner) and
// rejecting unsupported enum values.
func NewContest(spec ContestSpec, maker ports.RiskTestMaker) (*Contest, error) {
	if spec.ID == "" {
		return nil, errors.ConfigInvalid("contest id is required")
	}
	if spec.RiskLimit == 0 {
		spec.RiskLimit = 0.05
	}
	if spec.RiskLimit <= 0 || spec.RiskLimit >= 1 {
		return nil, errors.ConfigInvalid("risk limit must be in (0, 1)")
	}
	if spec.ChoiceFunction == "" {
		spec.ChoiceFunction = ChoicePlurality
	}
	if !spec.ChoiceFunction.Valid() {
		return nil, errors.UnsupportedChoiceFunction(string(spec.ChoiceFunction))
	}
	if spec.AuditType == "" {
		spec.AuditType = AuditBallotComparison
	}
	if !spec.AuditType.Valid() {
		return nil, errors.UnsupportedAuditType(string(spec.AuditType))
	}
	if spec.NWinners == 0 {
		spec.NWinners = 1
	}
	if spec.ChoiceFunction == ChoiceSupermajority && spec.ShareToWin <= 0 {
		return nil, errors.ConfigInvalid("supermajority contests need a positive share_to_win")
	}
	if maker == nil {
		return nil, errors.ConfigInvalid("contest needs a risk test maker")
	}
	return &Contest{
		ID:              spec.ID,
		Name:            spec.Name,
		RiskLimit:       spec.RiskLimit,
		Cards:           spec.Cards,
		ChoiceFunction:  spec.ChoiceFunction,
		NWinners:        spec.NWinners,
		ShareToWin:      spec.ShareToWin,
		Candidates:      spec.Candidates,
		ReportedWinners: spec.ReportedWinners,
		AssertionFile:   spec.AssertionFile,
		AuditType:       spec.AuditType,
		UseStyle:        spec.UseStyle,
		TestMaker:       maker,
		Estim:           spec.Estim,
		G:               spec.G,
		IRVAssertions:   spec.IRVAssertions,
	}, nil
}

// ContestsFromSpecs builds the contest mapping the batch operations work on.
// All contests share the supplied risk test maker.
func ContestsFromSpecs(specs map[string]ContestSpec, maker ports.RiskTestMaker) (map[string]*Contest, error) {
	contests := make(map[string]*Contest, len(specs))
	for id, spec := range specs {
		if spec.ID == "" {
			spec.ID = id
		}
		c, err := NewContest(spec, maker)
		if err != nil {
			return nil, errors.Wrapf(err, "contest %s", id)
		}
		contests[id] = c
	}
	return contests, nil
}

// newTest builds a fresh risk test for one assertion with the given assorter
// upper bound.
func (c *Contest) newTest(upper float64) ports.RiskTest {
	return c.TestMaker.Make(ports.RiskTestParams{
		Upper: upper,
		Cards: c.Cards,
		Estim: c.Estim,
		G:     c.G,
	})
}

// Losers returns the candidates that are not reported winners, preserving
// candidate order.
func (c *Contest) Losers() []string {
	winners := make(map[string]bool, len(c.ReportedWinners))
	for _, w := range c.ReportedWinners {
		winners[w] = true
	}
	losers := make([]string, 0, len(c.Candidates))
	for _, cand := range c.Candidates {
		if !winners[cand] {
			losers = append(losers, cand)
		}
	}
	return losers
}

// Certified reports whether the audit of this contest may stop: every
// assertion proved, equivalently MaxP at or below the risk limit.
func (c *Contest) Certified() bool {
	if len(c.Assertions) == 0 {
		return false
	}
	for _, a := range c.Assertions {
		if !a.Proved {
			return false
		}
	}
	return true
}

// InitialSampleSize estimates the sample needed to confirm this contest at
// its risk limit: the maximum estimate across its assertions. Sets the
// contest's SampleSize.
func (c *Contest) InitialSampleSize(opts SampleSizeOpts) (int, error) {
	c.SampleSize = 0
	for label, a := range c.Assertions {
		n, err := a.EstimateSampleSize(opts)
		if err != nil {
			return 0, errors.Wrapf(err, "contest %s assertion %s", c.ID, label)
		}
		if n > c.SampleSize {
			c.SampleSize = n
		}
	}
	return c.SampleSize, nil
}
