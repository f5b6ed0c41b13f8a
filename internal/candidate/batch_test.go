package candidate

import (
	"errors"
	"testing"
)

func TestParseVerdict(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input   string
		want    Verdict
		wantErr bool
	}{
		{input: "shortlist", want: Shortlist},
		{input: " Review ", want: Review},
		{input: "REJECT", want: Reject},
		{input: "shortlisted", wantErr: true},
		{input: "rejected", wantErr: true},
		{input: "under review", wantErr: true},
		{input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			t.Parallel()
			got, err := ParseVerdict(tt.input)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidVerdict) {
					t.Fatalf("expected ErrInvalidVerdict, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestBatchQueries(t *testing.T) {
	batch := &Batch{Items: []*Record{
		{ResumeFile: "a", Verdict: Shortlist, Email: "a@example.com", Phone: "+1 555 0100", Score: 70, Order: 0},
		{ResumeFile: "b", Verdict: Review, Email: NotAvailable, Phone: "+1 555 0101", Score: 90, Order: 1},
		{ResumeFile: "c", Verdict: Reject, Email: "c@example.com", Phone: "", FraudDetected: true, Score: 70, Order: 2},
	}}

	if batch.Len() != 3 {
		t.Fatalf("expected 3 records, got %d", batch.Len())
	}

	if got := batch.Find("b"); got == nil || got.Score != 90 {
		t.Fatalf("expected to find record b, got %+v", got)
	}

	if batch.Find("missing") != nil {
		t.Fatalf("expected nil for unknown resume file")
	}

	if got := batch.ByVerdict(Reject); len(got) != 1 || got[0].ResumeFile != "c" {
		t.Fatalf("unexpected reject bucket: %+v", got)
	}

	missing := batch.MissingContact()
	if len(missing) != 2 || missing[0].ResumeFile != "b" || missing[1].ResumeFile != "c" {
		t.Fatalf("unexpected missing contact records: %+v", missing)
	}

	if flagged := batch.Flagged(); len(flagged) != 1 {
		t.Fatalf("expected one flagged record, got %d", len(flagged))
	}

	counts := batch.Counts()
	if counts[Shortlist] != 1 || counts[Review] != 1 || counts[Reject] != 1 {
		t.Fatalf("unexpected counts: %+v", counts)
	}

	ranked := batch.Ranked()
	order := []string{ranked[0].ResumeFile, ranked[1].ResumeFile, ranked[2].ResumeFile}
	if order[0] != "b" || order[1] != "a" || order[2] != "c" {
		t.Fatalf("unexpected ranking: %v", order)
	}
}

func TestRecordMissingContact(t *testing.T) {
	r := &Record{Name: "Jane Doe", Email: "N/A", Phone: " "}
	missing := r.MissingContact()
	if len(missing) != 2 || missing[0] != "email" || missing[1] != "phone" {
		t.Fatalf("unexpected missing fields: %v", missing)
	}

	r.Reject("Score below threshold")
	if r.Verdict != Reject || len(r.ReasonsIfRejected) != 1 {
		t.Fatalf("expected reject with one reason, got %+v", r)
	}
}

func TestJobValidate(t *testing.T) {
	job := &Job{
		Description:     "Senior Backend Engineer",
		ExperienceRange: "1-3 yrs",
		Thresholds:      DefaultThresholds(),
	}
	if err := job.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if job.ExperienceRange != ExperienceEarly {
		t.Fatalf("expected normalized range %q, got %q", ExperienceEarly, job.ExperienceRange)
	}

	job.Thresholds.Skills = 120
	if err := job.Validate(); err == nil {
		t.Fatalf("expected threshold above 100 to fail")
	}

	job.Thresholds.Skills = 50
	job.TopN = -1
	if err := job.Validate(); err == nil {
		t.Fatalf("expected negative top_n to fail")
	}

	job.TopN = 0
	job.ExperienceRange = "10 yrs"
	if err := job.Validate(); err == nil {
		t.Fatalf("expected unknown experience range to fail")
	}
}
