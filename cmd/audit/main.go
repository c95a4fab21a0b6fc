package main

import (
	"encoding/json"
	"fmt"
	"math"
	"math/rand"
	"os"
	"sort"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"gorla/adapters/cvr"
	"gorla/adapters/raire"
	"gorla/adapters/report"
	"gorla/app"
	"gorla/domain/audit"
	"gorla/internal"
	"gorla/internal/config"
	"gorla/ports"
)

func main() {
	// Load .env file if it exists (ignore errors for missing file)
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:   "gorla",
		Short: "Risk-limiting audit planner and round evaluator",
	}

	rootCmd.AddCommand(
		newPlanCmd(),
		newMeasureCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newPlanCmd() *cobra.Command {
	var contestFile, cvrDir, cvrZip, reportPath string
	var useStyle bool
	var cvrLimit int

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Build assertions, compute margins, and estimate the initial sample",
		Long: `Build assertions for every contest, compute assorter margins from the
cast-vote records, estimate the initial sample size, and write the audit report.

Example: gorla plan --contests contests.json --cvr-zip cvrs.zip --use-style`,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, cfg, err := buildService(reportPath)
			if err != nil {
				return err
			}
			prepared, _, err := prepare(svc, contestFile, cvrDir, cvrZip, cvrLimit, useStyle)
			if err != nil {
				return err
			}
			return writeReport(cfg, prepared, 0)
		},
	}

	cmd.Flags().StringVar(&contestFile, "contests", "contests.json", "Contest specification JSON file")
	cmd.Flags().StringVar(&cvrDir, "cvr-dir", "", "Directory of Hart CVR XML files")
	cmd.Flags().StringVar(&cvrZip, "cvr-zip", "", "Zip archive of Hart CVR XML files")
	cmd.Flags().IntVar(&cvrLimit, "cvr-limit", 0, "Cap on CVRs read from the archive (0 = all)")
	cmd.Flags().BoolVar(&useStyle, "use-style", false, "Use card style information for sampling")
	cmd.Flags().StringVar(&reportPath, "report", "", "Report path (overrides AUDIT_REPORT_PATH)")

	return cmd
}

func newMeasureCmd() *cobra.Command {
	var contestFile, cvrDir, cvrZip, mvrDir, reportPath string
	var useStyle bool
	var cvrLimit int

	cmd := &cobra.Command{
		Use:   "measure",
		Short: "Measure risk against a round of manually interpreted ballots",
		Long: `Evaluate one audit round: compute p-values from the manual interpretations,
report which contests are certified, project the additional sample needed, and
write the audit report.

Example: gorla measure --contests contests.json --cvr-zip cvrs.zip --mvr-dir round1/`,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, cfg, err := buildService(reportPath)
			if err != nil {
				return err
			}
			prepared, records, err := prepare(svc, contestFile, cvrDir, cvrZip, cvrLimit, useStyle)
			if err != nil {
				return err
			}

			mvrs, err := cvr.ReadHartDirectory(mvrDir)
			if err != nil {
				return err
			}
			mvrSample, cvrSample := pairSamples(mvrs, records)

			result, err := svc.Measure(prepared, mvrSample, cvrSample)
			if err != nil {
				return err
			}
			fmt.Printf("max p-value %.4f, certified: %v\n", result.MaxP, result.Certified)

			if !result.Certified {
				est, err := svc.Estimate(prepared, mvrSample, cvrSample)
				if err != nil {
					return err
				}
				fmt.Printf("projected additional ballots: %d\n", est.Total)
			}
			return writeReport(cfg, prepared, result.MaxP)
		},
	}

	cmd.Flags().StringVar(&contestFile, "contests", "contests.json", "Contest specification JSON file")
	cmd.Flags().StringVar(&cvrDir, "cvr-dir", "", "Directory of Hart CVR XML files")
	cmd.Flags().StringVar(&cvrZip, "cvr-zip", "", "Zip archive of Hart CVR XML files")
	cmd.Flags().IntVar(&cvrLimit, "cvr-limit", 0, "Cap on CVRs read from the archive (0 = all)")
	cmd.Flags().StringVar(&mvrDir, "mvr-dir", "", "Directory of manually interpreted ballot XML files")
	cmd.Flags().BoolVar(&useStyle, "use-style", false, "Use card style information for sampling")
	cmd.Flags().StringVar(&reportPath, "report", "", "Report path (overrides AUDIT_REPORT_PATH)")

	_ = cmd.MarkFlagRequired("mvr-dir")

	return cmd
}

func buildService(reportPath string) (*app.AuditService, *config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	if reportPath != "" {
		cfg.ReportPath = reportPath
	}
	logger := internal.NewDefaultLogger()
	return app.NewAuditService(logger, cfg), cfg, nil
}

// prepare loads contest specs and CVRs, attaches RAIRE assertions to IRV
// contests, and runs the setup phase of the audit.
func prepare(svc *app.AuditService, contestFile, cvrDir, cvrZip string, cvrLimit int, useStyle bool) (*app.PreparedAudit, []*cvr.CVR, error) {
	raw, err := os.ReadFile(contestFile)
	if err != nil {
		return nil, nil, fmt.Errorf("reading contest file: %w", err)
	}
	var specs map[string]audit.ContestSpec
	if err := json.Unmarshal(raw, &specs); err != nil {
		return nil, nil, fmt.Errorf("decoding contest file: %w", err)
	}

	var records []*cvr.CVR
	switch {
	case cvrZip != "":
		records, err = cvr.ReadHartZip(cvrZip, cvrLimit)
	case cvrDir != "":
		records, err = cvr.ReadHartDirectory(cvrDir)
	}
	if err != nil {
		return nil, nil, err
	}

	if err := loadIRVAssertions(specs); err != nil {
		return nil, nil, err
	}
	prepared, err := svc.Prepare(app.PrepareRequest{
		Specs:    specs,
		Maker:    kaplanMaker{},
		CVRs:     cvr.AsBallotRecords(records),
		UseStyle: useStyle,
	})
	if err != nil {
		return nil, nil, err
	}
	return prepared, records, nil
}

// loadIRVAssertions reads each IRV contest's RAIRE assertion file into its
// spec, mutating the map in place.
func loadIRVAssertions(specs map[string]audit.ContestSpec) error {
	for id, spec := range specs {
		if spec.ChoiceFunction != audit.ChoiceIRV || spec.AssertionFile == "" {
			continue
		}
		assertions, err := raire.LoadFile(spec.AssertionFile)
		if err != nil {
			return fmt.Errorf("loading assertions for contest %s: %w", id, err)
		}
		spec.IRVAssertions = assertions
		specs[id] = spec
	}
	return nil
}

func writeReport(cfg *config.Config, prepared *app.PreparedAudit, maxP float64) error {
	w := report.NewWriter(cfg.ReportPath)
	return w.Write(report.RunInfo{
		RunID:           prepared.RunID.String(),
		Seed:            cfg.Seed,
		Reps:            cfg.Reps,
		Quantile:        cfg.Quantile,
		MinMargin:       prepared.MinMargin,
		MaxP:            maxP,
		TotalSampleSize: prepared.InitialSampleSize,
		CreatedAt:       prepared.CreatedAt.Time(),
	}, prepared.Contests)
}

// pairSamples matches manual interpretations to their CVRs by record id. MVRs
// without a matching CVR are dropped with a warning.
func pairSamples(mvrs, records []*cvr.CVR) ([]ports.BallotRecord, []ports.BallotRecord) {
	byID := make(map[string]*cvr.CVR, len(records))
	for _, r := range records {
		byID[r.ID()] = r
	}
	var mvrSample, cvrSample []ports.BallotRecord
	for _, m := range mvrs {
		r, ok := byID[m.ID()]
		if !ok {
			internal.DefaultLogger.Warn("no CVR for manually interpreted ballot %s", m.ID())
			continue
		}
		r.MarkInSample(true)
		mvrSample = append(mvrSample, m)
		cvrSample = append(cvrSample, r)
	}
	return mvrSample, cvrSample
}

// kaplanTest is the built-in risk-measuring function: a Kaplan-style
// supermartingale against the null mean u/2, with sample sizes estimated by
// seeded resampling. Any risk-measuring function satisfying ports.RiskTest
// can replace it.
type kaplanTest struct {
	upper float64
	cards int
}

type kaplanMaker struct{}

func (kaplanMaker) Make(params ports.RiskTestParams) ports.RiskTest {
	return &kaplanTest{upper: params.Upper, cards: params.Cards}
}

func (t *kaplanTest) Test(x []float64) (float64, []float64, error) {
	null := t.upper / 2
	history := make([]float64, len(x))
	m := 1.0
	minP := 1.0
	for i, v := range x {
		m *= v / null
		p := 1.0
		if m > 0 && !math.IsNaN(m) {
			p = math.Min(1, 1/m)
		} else {
			m = 0
		}
		if p < minP {
			minP = p
		}
		history[i] = minP
	}
	p := 1.0
	if len(history) > 0 {
		p = history[len(history)-1]
	}
	return p, history, nil
}

func (t *kaplanTest) SampleSize(x []float64, alpha float64, reps int, prefix bool, quantile float64, seed int64) (int, error) {
	n := t.cards
	if n <= 0 {
		n = len(x)
	}
	stop := func(seq []float64) int {
		_, history, _ := t.Test(seq)
		for i, p := range history {
			if p <= alpha {
				return i + 1
			}
		}
		return len(seq)
	}
	if reps <= 0 {
		tiled := make([]float64, n)
		for i := range tiled {
			tiled[i] = x[i%len(x)]
		}
		return stop(tiled), nil
	}
	prng := rand.New(rand.NewSource(seed))
	sizes := make([]float64, reps)
	for r := 0; r < reps; r++ {
		seq := make([]float64, 0, n)
		if prefix {
			seq = append(seq, x...)
		}
		for len(seq) < n {
			seq = append(seq, x[prng.Intn(len(x))])
		}
		sizes[r] = float64(stop(seq[:n]))
	}
	sort.Float64s(sizes)
	idx := int(quantile*float64(reps)) - 1
	if idx < 0 {
		idx = 0
	}
	return int(sizes[idx]), nil
}
