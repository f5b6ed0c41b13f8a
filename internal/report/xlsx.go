package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/spigell/cv-screener/internal/candidate"
	"github.com/spigell/cv-screener/internal/util"
)

const (
	sheetOverview = "Overview"
	sheetScores   = "Scores"
	sheetFlags    = "Red Flags"

	// XLSXName is the file name of the analytics workbook.
	XLSXName = "analytics.xlsx"
)

var scoreHeaders = []string{
	"Rank", "Name", "Email", "Score", "Skills", "Domain", "Experience", "JD Similarity", "Verdict", "Resume",
}

// RenderAnalyticsXLSX builds a workbook with the verdict breakdown, the ranked
// score table and the flagged candidates.
func RenderAnalyticsXLSX(job candidate.Job, batch *candidate.Batch, generated time.Time) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetOverview); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}
	for _, name := range []string{sheetScores, sheetFlags} {
		if _, err := f.NewSheet(name); err != nil {
			return nil, fmt.Errorf("create sheet %q: %w", name, err)
		}
	}

	header, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return nil, fmt.Errorf("create header style: %w", err)
	}

	if err := writeOverview(f, header, job, batch, generated); err != nil {
		return nil, err
	}
	if err := writeScores(f, header, batch); err != nil {
		return nil, err
	}
	if err := writeFlags(f, header, batch); err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func writeOverview(f *excelize.File, header int, job candidate.Job, batch *candidate.Batch, generated time.Time) error {
	counts := batch.Counts()
	rows := [][]interface{}{
		{"Metric", "Value"},
		{"Generated", generated.Format(time.RFC3339)},
		{"Role", candidate.OrNA(job.Role)},
		{"Experience", job.ExperienceRange},
		{"Candidates", batch.Len()},
		{"Shortlisted", counts[candidate.Shortlist]},
		{"Under review", counts[candidate.Review]},
		{"Rejected", counts[candidate.Reject]},
		{"Fraud flagged", len(batch.Flagged())},
		{"Missing contact", len(batch.MissingContact())},
		{"Average score", average(batch)},
	}
	if err := setRows(f, sheetOverview, rows); err != nil {
		return err
	}
	_ = f.SetColWidth(sheetOverview, "A", "A", 20)
	_ = f.SetColWidth(sheetOverview, "B", "B", 30)
	return f.SetCellStyle(sheetOverview, "A1", "B1", header)
}

func writeScores(f *excelize.File, header int, batch *candidate.Batch) error {
	rows := [][]interface{}{toRow(scoreHeaders)}
	for i, r := range batch.Ranked() {
		rows = append(rows, []interface{}{
			i + 1, r.Name, r.Email, r.Score, r.SkillsMatch, r.DomainMatch,
			r.ExperienceMatch, r.JDSimilarity, string(r.Verdict), r.ResumeFile,
		})
	}
	if err := setRows(f, sheetScores, rows); err != nil {
		return err
	}
	_ = f.SetColWidth(sheetScores, "B", "C", 25)
	_ = f.SetColWidth(sheetScores, "J", "J", 25)
	last, _ := excelize.CoordinatesToCellName(len(scoreHeaders), 1)
	return f.SetCellStyle(sheetScores, "A1", last, header)
}

func writeFlags(f *excelize.File, header int, batch *candidate.Batch) error {
	rows := [][]interface{}{{"Name", "Fraud", "Red flags", "Resume"}}
	for _, r := range batch.Items {
		if !r.FraudDetected && len(r.RedFlags) == 0 {
			continue
		}
		rows = append(rows, []interface{}{r.Name, r.FraudDetected, strings.Join(r.RedFlags, "; "), r.ResumeFile})
	}
	if err := setRows(f, sheetFlags, rows); err != nil {
		return err
	}
	_ = f.SetColWidth(sheetFlags, "C", "C", 60)
	return f.SetCellStyle(sheetFlags, "A1", "D1", header)
}

func setRows(f *excelize.File, sheet string, rows [][]interface{}) error {
	for i, values := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return fmt.Errorf("write %s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}

func toRow(items []string) []interface{} {
	out := make([]interface{}, len(items))
	for i, item := range items {
		out[i] = item
	}
	return out
}

func average(batch *candidate.Batch) float64 {
	if batch.Len() == 0 {
		return 0
	}
	var sum float64
	for _, r := range batch.Items {
		sum += r.Score
	}
	return util.Round2(sum / float64(batch.Len()))
}
