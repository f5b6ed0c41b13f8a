package report

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	"github.com/go-pdf/fpdf"

	"github.com/spigell/cv-screener/internal/candidate"
)

var unsafeFileChars = regexp.MustCompile(`[^A-Za-z0-9_-]+`)

// PDFName returns <Name>_<Verdict>.pdf with characters unsafe for file names replaced.
func PDFName(r *candidate.Record) string {
	name := strings.Trim(unsafeFileChars.ReplaceAllString(r.DisplayName(), "_"), "_")
	if name == "" {
		name = "Candidate"
	}
	v := string(r.Verdict)
	if v != "" {
		v = strings.ToUpper(v[:1]) + v[1:]
	}
	return fmt.Sprintf("%s_%s.pdf", name, v)
}

// PDFNames returns the summary file name of every record keyed by resume file.
// Records that would share a PDFName get their resume tag appended.
func PDFNames(records []*candidate.Record) map[string]string {
	counts := make(map[string]int, len(records))
	for _, r := range records {
		counts[PDFName(r)]++
	}

	out := make(map[string]string, len(records))
	taken := make(map[string]bool, len(records))
	for _, r := range records {
		name := PDFName(r)
		if counts[name] > 1 {
			stem := strings.TrimSuffix(name, ".pdf")
			if tag := strings.Trim(unsafeFileChars.ReplaceAllString(r.ResumeFile, "_"), "_"); tag != "" {
				stem += "_" + tag
			}
			name = stem + ".pdf"
			for n := 2; taken[name]; n++ {
				name = fmt.Sprintf("%s_%d.pdf", stem, n)
			}
		}
		taken[name] = true
		out[r.ResumeFile] = name
	}
	return out
}

// RenderSummaryPDF renders a one page candidate summary.
func RenderSummaryPDF(r *candidate.Record) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(r.DisplayName()+" summary", true)
	pdf.SetAuthor("cv-screener", true)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(0, 10, tr(r.DisplayName()), "", 1, "L", false, 0, "")

	pdf.SetFont("Helvetica", "", 11)
	pdf.CellFormat(0, 7, tr(fmt.Sprintf("Role: %s", candidate.OrNA(r.JDRole))), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 7, tr(fmt.Sprintf("Email: %s   Phone: %s", candidate.OrNA(r.Email), candidate.OrNA(r.Phone))), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 7, fmt.Sprintf("Verdict: %s   Score: %s", r.Verdict, formatFloat(r.Score)), "", 1, "L", false, 0, "")
	pdf.Ln(3)

	pdf.SetFillColor(68, 114, 196)
	pdf.SetTextColor(255, 255, 255)
	pdf.SetFont("Helvetica", "B", 10)
	for _, h := range []string{"Skills", "Domain", "Experience", "JD similarity"} {
		pdf.CellFormat(45, 7, h, "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetTextColor(0, 0, 0)
	pdf.SetFont("Helvetica", "", 10)
	for _, v := range []float64{r.SkillsMatch, r.DomainMatch, r.ExperienceMatch, r.JDSimilarity} {
		pdf.CellFormat(45, 7, formatFloat(v), "1", 0, "C", false, 0, "")
	}
	pdf.Ln(10)

	section := func(title, body string) {
		pdf.SetFont("Helvetica", "B", 12)
		pdf.CellFormat(0, 8, title, "", 1, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 10)
		pdf.MultiCell(0, 5, tr(candidate.OrNA(body)), "", "L", false)
		pdf.Ln(2)
	}

	section("Fitment", r.Fitment)
	section("Summary", r.Summary)
	section("Recommendation", r.Recommendation)
	section("Highlights", bullets(r.Highlights))
	section("Missing gaps", bullets(r.MissingGaps))
	section("Red flags", bullets(r.RedFlags))
	if r.Verdict == candidate.Reject {
		section("Reasons for rejection", bullets(r.ReasonsIfRejected))
	}
	if strings.TrimSpace(r.RecruiterNotes) != "" {
		section("Recruiter notes", r.RecruiterNotes)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render pdf for %s: %w", r.ResumeFile, err)
	}
	return buf.Bytes(), nil
}

func bullets(items []string) string {
	if len(items) == 0 {
		return ""
	}
	lines := make([]string, 0, len(items))
	for _, item := range items {
		lines = append(lines, "- "+item)
	}
	return strings.Join(lines, "\n")
}
