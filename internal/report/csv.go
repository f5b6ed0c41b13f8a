package report

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spigell/cv-screener/internal/candidate"
)

// Columns are the CSV export columns. Resume text is never exported.
var Columns = []string{
	"name", "email", "phone", "jd_role",
	"skills_match", "domain_match", "experience_match", "jd_similarity", "score",
	"fitment", "summary", "recommendation",
	"red_flags", "missing_gaps", "highlights", "reasons_if_rejected",
	"fraud_detected", "verdict", "recruiter_notes", "resume_file",
}

// CSVName returns <verdict>_export_<YYYY-MM-DD>.csv.
func CSVName(v candidate.Verdict, day time.Time) string {
	return fmt.Sprintf("%s_export_%s.csv", v, day.Format("2006-01-02"))
}

// RenderCSV writes the records with a header row.
func RenderCSV(records []*candidate.Record) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(Columns); err != nil {
		return nil, fmt.Errorf("write csv header: %w", err)
	}
	for _, r := range records {
		if err := w.Write(row(r)); err != nil {
			return nil, fmt.Errorf("write csv row %s: %w", r.ResumeFile, err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}

func row(r *candidate.Record) []string {
	return []string{
		r.Name,
		r.Email,
		r.Phone,
		r.JDRole,
		formatFloat(r.SkillsMatch),
		formatFloat(r.DomainMatch),
		formatFloat(r.ExperienceMatch),
		formatFloat(r.JDSimilarity),
		formatFloat(r.Score),
		r.Fitment,
		r.Summary,
		r.Recommendation,
		joinList(r.RedFlags),
		joinList(r.MissingGaps),
		joinList(r.Highlights),
		joinList(r.ReasonsIfRejected),
		strconv.FormatBool(r.FraudDetected),
		string(r.Verdict),
		r.RecruiterNotes,
		r.ResumeFile,
	}
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func joinList(items []string) string {
	return strings.Join(items, "; ")
}
