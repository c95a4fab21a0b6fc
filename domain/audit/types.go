package audit

import "log"

// SocialChoice identifies the social choice function a contest is decided by.
type SocialChoice string

const (
	ChoicePlurality     SocialChoice = "PLURALITY"
	ChoiceSupermajority SocialChoice = "SUPERMAJORITY"
	ChoiceIRV           SocialChoice = "IRV"
)

// Valid reports whether the social choice function is one the core audits.
func (s SocialChoice) Valid() bool {
	switch s {
	case ChoicePlurality, ChoiceSupermajority, ChoiceIRV:
		return true
	}
	return false
}

// AuditType identifies how sampled ballots are scored against the record.
type AuditType string

const (
	AuditPolling          AuditType = "POLLING"
	AuditBallotComparison AuditType = "BALLOT_COMPARISON"
)

// Valid reports whether the audit type is supported.
func (a AuditType) Valid() bool {
	switch a {
	case AuditPolling, AuditBallotComparison:
		return true
	}
	return false
}

// IRVAssertionType identifies the kind of an imported RAIRE-style assertion.
type IRVAssertionType string

const (
	AssertWinnerOnly     IRVAssertionType = "WINNER_ONLY"
	AssertIRVElimination IRVAssertionType = "IRV_ELIMINATION"
)

// IRVAssertion is one RAIRE-style assertion record for an instant-runoff
// contest. AlreadyEliminated is meaningful only for IRV_ELIMINATION.
type IRVAssertion struct {
	Type              IRVAssertionType `json:"assertion_type"`
	Winner            string           `json:"winner"`
	Loser             string           `json:"loser"`
	AlreadyEliminated []string         `json:"already_eliminated,omitempty"`
}

// DefaultSeed seeds the PRNG streams for sample-size simulations when the
// caller does not supply one.
const DefaultSeed int64 = 1234567890

// warnf reports evidence-inconsistency warnings (reported outcome not
// supported by the record). These never stop the audit.
var warnf = log.Printf

// SetWarnFunc redirects evidence-inconsistency warnings, e.g. to a leveled
// logger. Passing nil restores the default.
func SetWarnFunc(f func(format string, v ...interface{})) {
	if f == nil {
		warnf = log.Printf
		return
	}
	warnf = f
}
