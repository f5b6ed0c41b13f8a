package notify

import (
	"fmt"
	"strings"

	"github.com/spigell/cv-screener/internal/candidate"
)

// Email is a rendered message.
type Email struct {
	Subject string
	Body    string
}

const fallbackMissing = "additional details about your experience"

// ShortlistEmail congratulates a shortlisted candidate.
func ShortlistEmail(r *candidate.Record) Email {
	return Email{
		Subject: "Congratulations! You have been shortlisted",
		Body: fmt.Sprintf("Dear %s,\n\nYou have been shortlisted for the role based on your profile. "+
			"We will be in touch with next steps.\n\nBest,\nRecruitment Team", r.DisplayName()),
	}
}

// ReviewEmail asks a candidate under review for the information that is missing.
func ReviewEmail(r *candidate.Record) Email {
	return Email{
		Subject: "Information Required for your job application.",
		Body: fmt.Sprintf("Dear %s,\n\nThank you for your interest in the position.\n\n"+
			"To proceed with your application, we need the following missing information: %s. "+
			"Please reply to this email with the required details at your earliest convenience.\n\n"+
			"Best regards,\n\nRecruitment Team", r.DisplayName(), missingList(r.MissingContact())),
	}
}

// RejectionEmail informs a candidate that the application will not proceed.
func RejectionEmail(r *candidate.Record) Email {
	return Email{
		Subject: "Application Update",
		Body: fmt.Sprintf("Dear %s,\n\nThank you for your interest in the role. Unfortunately, "+
			"we will not be proceeding with your application at this time.\n\n"+
			"We wish you success in your future endeavors.\n\nRegards,\nRecruitment Team", r.DisplayName()),
	}
}

// MissingInfoEmail lists the profile fields a candidate did not provide.
func MissingInfoEmail(missing []string) Email {
	return Email{
		Subject: "Missing Information for Job Application",
		Body: fmt.Sprintf("Dear Candidate,\n\nWe noticed that the following information is missing from your profile: %s.\n"+
			"Please reply with the necessary details at your earliest convenience.\n\nRegards,\nRecruitment Team", missingList(missing)),
	}
}

// ForVerdict picks the template matching the verdict.
func ForVerdict(r *candidate.Record) Email {
	switch r.Verdict {
	case candidate.Shortlist:
		return ShortlistEmail(r)
	case candidate.Reject:
		return RejectionEmail(r)
	default:
		return ReviewEmail(r)
	}
}

func missingList(missing []string) string {
	if len(missing) == 0 {
		return fallbackMissing
	}
	return strings.Join(missing, ", ")
}
