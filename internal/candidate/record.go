package candidate

import (
	"strings"
)

// NotAvailable is the sentinel used for unknown string values.
const NotAvailable = "N/A"

// Contact holds the best-effort contact details found in a resume.
type Contact struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
}

// Record is the evaluation result for a single uploaded resume.
type Record struct {
	Name              string   `json:"name" csv:"name"`
	Email             string   `json:"email" csv:"email"`
	Phone             string   `json:"phone" csv:"phone"`
	JDRole            string   `json:"jd_role" csv:"jd_role"`
	SkillsMatch       float64  `json:"skills_match" csv:"skills_match"`
	DomainMatch       float64  `json:"domain_match" csv:"domain_match"`
	ExperienceMatch   float64  `json:"experience_match" csv:"experience_match"`
	JDSimilarity      float64  `json:"jd_similarity" csv:"jd_similarity"`
	Score             float64  `json:"score" csv:"score"`
	Fitment           string   `json:"fitment" csv:"fitment"`
	Summary           string   `json:"summary" csv:"summary"`
	Recommendation    string   `json:"recommendation" csv:"recommendation"`
	RedFlags          []string `json:"red_flags" csv:"red_flags"`
	MissingGaps       []string `json:"missing_gaps" csv:"missing_gaps"`
	Highlights        []string `json:"highlights" csv:"highlights"`
	ReasonsIfRejected []string `json:"reasons_if_rejected" csv:"reasons_if_rejected"`
	FraudDetected     bool     `json:"fraud_detected" csv:"fraud_detected"`
	Verdict           Verdict  `json:"verdict" csv:"verdict"`
	RecruiterNotes    string   `json:"recruiter_notes" csv:"recruiter_notes"`
	ResumeFile        string   `json:"resume_file" csv:"resume_file"`

	ResumeText string `json:"-"`
	// Overridden is set once a recruiter picks the verdict by hand.
	Overridden bool `json:"overridden"`
	// Order is the position of the resume in the upload batch.
	Order int `json:"-"`
}

// Known reports whether a contact value carries real data.
func Known(value string) bool {
	value = strings.TrimSpace(value)
	return value != "" && !strings.EqualFold(value, NotAvailable)
}

// OrNA returns value or the N/A sentinel when value is blank.
func OrNA(value string) string {
	if strings.TrimSpace(value) == "" {
		return NotAvailable
	}
	return strings.TrimSpace(value)
}

// MissingContact lists the contact fields that are absent from the record.
func (r *Record) MissingContact() []string {
	var missing []string
	if !Known(r.Name) {
		missing = append(missing, "name")
	}
	if !Known(r.Email) {
		missing = append(missing, "email")
	}
	if !Known(r.Phone) {
		missing = append(missing, "phone")
	}
	return missing
}

// Reject forces the verdict to reject and appends the reason.
func (r *Record) Reject(reason string) {
	r.Verdict = Reject
	if reason = strings.TrimSpace(reason); reason != "" {
		r.ReasonsIfRejected = append(r.ReasonsIfRejected, reason)
	}
}

// DisplayName is used in emails and file names.
func (r *Record) DisplayName() string {
	if Known(r.Name) {
		return strings.TrimSpace(r.Name)
	}
	return "Candidate"
}
