package app

import (
	"time"

	"gorla/domain/audit"
	"gorla/domain/core"
	"gorla/internal"
	"gorla/internal/config"
	"gorla/internal/errors"
	"gorla/ports"
)

// AuditService orchestrates a risk-limiting audit round: assertion
// construction, margin computation, sample-size estimation, and p-value
// measurement against manually interpreted ballots.
type AuditService struct {
	logger *internal.Logger
	cfg    *config.Config
}

// PrepareRequest defines the inputs for setting up an audit.
type PrepareRequest struct {
	Specs map[string]audit.ContestSpec
	Maker ports.RiskTestMaker
	// CVRs is the full cast-vote-record population; nil for polling audits
	// without CVRs.
	CVRs     []ports.BallotRecord
	UseStyle bool
}

// PreparedAudit carries the constructed contests plus the quantities the
// setup phase derives from them.
type PreparedAudit struct {
	RunID             core.RunID
	Contests          map[string]*audit.Contest
	CVRs              []ports.BallotRecord
	UseStyle          bool
	MinMargin         float64
	InitialSampleSize float64
	CreatedAt         core.Timestamp
}

// MeasureResult holds the outcome of testing one round of ballot
// interpretations.
type MeasureResult struct {
	MaxP      float64
	Certified bool
	RuntimeMs int64
}

// EstimateResult holds the projected additional sample after a round.
type EstimateResult struct {
	Total      int
	PerContest map[string]int
}

// NewAuditService creates an audit service. Domain-layer warnings (negative
// margins and the like) are routed to the service logger.
func NewAuditService(logger *internal.Logger, cfg *config.Config) *AuditService {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	audit.SetWarnFunc(logger.Warn)
	return &AuditService{logger: logger, cfg: cfg}
}

// Prepare builds contests and assertions from specs, computes every assorter
// margin from the CVR population, and estimates the initial sample size.
func (s *AuditService) Prepare(req PrepareRequest) (*PreparedAudit, error) {
	if len(req.Specs) == 0 {
		return nil, errors.ConfigInvalid("no contests to audit")
	}
	contests, err := audit.ContestsFromSpecs(req.Specs, req.Maker)
	if err != nil {
		return nil, err
	}
	if err := audit.MakeAllAssertions(contests); err != nil {
		return nil, err
	}

	minMargin := audit.SetAllMargins(contests, req.CVRs, req.UseStyle)
	s.logger.Info("constructed assertions for %d contests, min margin %.4f", len(contests), minMargin)

	initial, err := audit.InitialSampleSizes(contests, req.CVRs, req.UseStyle, s.cfg.SampleSizeOpts())
	if err != nil {
		return nil, err
	}
	s.logger.Info("initial sample size estimate %.0f", initial)

	return &PreparedAudit{
		RunID:             core.NewRunID(),
		Contests:          contests,
		CVRs:              req.CVRs,
		UseStyle:          req.UseStyle,
		MinMargin:         minMargin,
		InitialSampleSize: initial,
		CreatedAt:         core.Now(),
	}, nil
}

// Measure tests one round of manual interpretations against the assertions,
// updating p-values and proved flags. cvrSample pairs with mvrSample for
// comparison audits and is nil for polling audits.
func (s *AuditService) Measure(prepared *PreparedAudit, mvrSample, cvrSample []ports.BallotRecord) (*MeasureResult, error) {
	start := time.Now()
	maxP, err := audit.SetAllPValues(prepared.Contests, mvrSample, cvrSample)
	if err != nil {
		return nil, err
	}

	certified := true
	for id, c := range prepared.Contests {
		if c.Certified() {
			s.logger.Info("contest %s certified (max p %.4f)", id, c.MaxP)
		} else {
			certified = false
			s.logger.Info("contest %s not yet certified (max p %.4f)", id, c.MaxP)
		}
	}

	return &MeasureResult{
		MaxP:      maxP,
		Certified: certified,
		RuntimeMs: time.Since(start).Milliseconds(),
	}, nil
}

// Estimate projects how many more ballots the audit needs, assuming
// discrepancies continue at the observed rate.
func (s *AuditService) Estimate(prepared *PreparedAudit, mvrSample, cvrSample []ports.BallotRecord) (*EstimateResult, error) {
	total, perContest, err := audit.NewSampleSizes(
		prepared.Contests, mvrSample, cvrSample, prepared.CVRs, prepared.UseStyle, s.cfg.SampleSizeOpts())
	if err != nil {
		return nil, err
	}
	s.logger.Info("projected %d additional ballots audit-wide", total)
	return &EstimateResult{Total: total, PerContest: perContest}, nil
}
