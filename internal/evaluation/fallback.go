package evaluation

import (
	"strings"

	"github.com/spigell/cv-screener/internal/candidate"
)

const (
	// ParseFailedReason is the fitment of records whose oracle answer could not be parsed.
	ParseFailedReason = "❌ GPT parsing failed"
	defaultFailure    = "GPT error"
)

// Fallback builds the record used when a resume cannot be evaluated. It is
// always a complete reject flagged for fraud review.
func Fallback(in Input, reason string) *candidate.Record {
	if strings.TrimSpace(reason) == "" {
		reason = defaultFailure
	}

	return &candidate.Record{
		Name:              candidate.OrNA(in.Contact.Name),
		Email:             candidate.OrNA(in.Contact.Email),
		Phone:             candidate.OrNA(in.Contact.Phone),
		JDRole:            candidate.OrNA(in.Role),
		JDSimilarity:      in.JDSimilarity,
		Fitment:           reason,
		Summary:           candidate.NotAvailable,
		Recommendation:    candidate.NotAvailable,
		RedFlags:          []string{"GPT failure"},
		MissingGaps:       []string{candidate.NotAvailable},
		Highlights:        []string{},
		ReasonsIfRejected: []string{"Parsing failed"},
		FraudDetected:     true,
		Verdict:           candidate.Reject,
		ResumeText:        in.ResumeText,
		ResumeFile:        in.ResumeFile,
		Order:             in.Order,
	}
}
