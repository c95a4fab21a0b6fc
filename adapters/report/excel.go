// Package report exports audit results to an Excel workbook, the format
// election officials circulate.
package report

import (
	"fmt"
	"sort"
	"time"

	"github.com/xuri/excelize/v2"

	"gorla/domain/audit"
	"gorla/internal/errors"
)

// RunInfo carries audit-level metadata for the report header.
type RunInfo struct {
	RunID           string
	Seed            int64
	Reps            int
	Quantile        float64
	MinMargin       float64
	MaxP            float64
	TotalSampleSize float64
	CreatedAt       time.Time
}

// Writer writes an audit summary workbook.
type Writer struct {
	path string
}

// NewWriter creates a report writer targeting the given xlsx path.
func NewWriter(path string) *Writer {
	return &Writer{path: path}
}

// Write renders one sheet of contest-level results and one of per-assertion
// detail, plus a run header, and saves the workbook.
func (w *Writer) Write(run RunInfo, contests map[string]*audit.Contest) error {
	f := excelize.NewFile()
	defer f.Close()

	const contestSheet = "Contests"
	f.SetSheetName("Sheet1", contestSheet)
	if _, err := f.NewSheet("Assertions"); err != nil {
		return errors.Wrap(err, "creating assertion sheet")
	}

	header := [][]interface{}{
		{"Run", run.RunID},
		{"Created", run.CreatedAt.Format(time.RFC3339)},
		{"Seed", run.Seed},
		{"Replications", run.Reps},
		{"Quantile", run.Quantile},
		{"Min margin", run.MinMargin},
		{"Max p-value", run.MaxP},
		{"Total sample size", run.TotalSampleSize},
	}
	for i, row := range header {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(contestSheet, cell, &row); err != nil {
			return errors.Wrap(err, "writing run header")
		}
	}

	ids := make([]string, 0, len(contests))
	for id := range contests {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	contestHeader := []interface{}{
		"Contest", "Name", "Choice function", "Audit type", "Risk limit",
		"Cards", "Max p-value", "Sample size", "Certified",
	}
	start := len(header) + 2
	cell, _ := excelize.CoordinatesToCellName(1, start)
	if err := f.SetSheetRow(contestSheet, cell, &contestHeader); err != nil {
		return errors.Wrap(err, "writing contest header")
	}
	for i, id := range ids {
		c := contests[id]
		row := []interface{}{
			c.ID, c.Name, string(c.ChoiceFunction), string(c.AuditType), c.RiskLimit,
			c.Cards, c.MaxP, c.SampleSize, c.Certified(),
		}
		cell, _ := excelize.CoordinatesToCellName(1, start+1+i)
		if err := f.SetSheetRow(contestSheet, cell, &row); err != nil {
			return errors.Wrapf(err, "writing contest %s", id)
		}
	}

	assertionHeader := []interface{}{
		"Contest", "Assertion", "Margin", "P-value", "Proved", "Sample size",
	}
	if err := f.SetSheetRow("Assertions", "A1", &assertionHeader); err != nil {
		return errors.Wrap(err, "writing assertion header")
	}
	rowNum := 2
	for _, id := range ids {
		c := contests[id]
		labels := make([]string, 0, len(c.Assertions))
		for label := range c.Assertions {
			labels = append(labels, label)
		}
		sort.Strings(labels)
		for _, label := range labels {
			a := c.Assertions[label]
			row := []interface{}{c.ID, label, a.Margin, a.PValue, a.Proved, a.SampleSize}
			if err := f.SetSheetRow("Assertions", fmt.Sprintf("A%d", rowNum), &row); err != nil {
				return errors.Wrapf(err, "writing assertion %s", label)
			}
			rowNum++
		}
	}

	if err := f.SaveAs(w.path); err != nil {
		return errors.Wrap(err, "saving audit report")
	}
	return nil
}
