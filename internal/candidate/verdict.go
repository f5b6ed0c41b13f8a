package candidate

import (
	"errors"
	"fmt"
	"strings"
)

// Verdict is the canonical screening outcome of a candidate.
type Verdict string

const (
	Shortlist Verdict = "shortlist"
	Review    Verdict = "review"
	Reject    Verdict = "reject"
)

// ErrInvalidVerdict is returned when a label is not one of the three canonical verdicts.
var ErrInvalidVerdict = errors.New("invalid verdict")

// Verdicts lists every verdict in display order.
func Verdicts() []Verdict {
	return []Verdict{Shortlist, Review, Reject}
}

func (v Verdict) String() string {
	return string(v)
}

func (v Verdict) Valid() bool {
	switch v {
	case Shortlist, Review, Reject:
		return true
	default:
		return false
	}
}

// ParseVerdict accepts only the canonical labels. Spellings like "shortlisted"
// or "rejected" are errors.
func ParseVerdict(s string) (Verdict, error) {
	v := Verdict(strings.ToLower(strings.TrimSpace(s)))
	if !v.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidVerdict, s)
	}
	return v, nil
}
