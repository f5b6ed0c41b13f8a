package verdict

import (
	"errors"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spigell/cv-screener/internal/candidate"
)

func rec(file string, order int, score float64, v candidate.Verdict) *candidate.Record {
	return &candidate.Record{
		ResumeFile:      file,
		Order:           order,
		Score:           score,
		Verdict:         v,
		JDSimilarity:    score,
		SkillsMatch:     score,
		DomainMatch:     score,
		ExperienceMatch: score,
	}
}

func verdicts(b *candidate.Batch) map[string]candidate.Verdict {
	out := make(map[string]candidate.Verdict, b.Len())
	for _, r := range b.Items {
		out[r.ResumeFile] = r.Verdict
	}
	return out
}

func TestThresholdRule(t *testing.T) {
	th := candidate.DefaultThresholds()
	low := rec("low-skills", 1, 80, candidate.Review)
	low.SkillsMatch = 49.99

	batch := &candidate.Batch{Items: []*candidate.Record{
		rec("strong", 0, 80, candidate.Review),
		low,
		rec("rejected", 2, 90, candidate.Reject),
	}}

	step := NewThresholdRule(th).Apply(batch)

	got := verdicts(batch)
	if got["strong"] != candidate.Shortlist {
		t.Fatalf("expected strong to be shortlisted, got %s", got["strong"])
	}
	if got["low-skills"] != candidate.Review {
		t.Fatalf("expected low-skills to be reviewed, got %s", got["low-skills"])
	}
	if got["rejected"] != candidate.Reject {
		t.Fatalf("expected reject to stay reject, got %s", got["rejected"])
	}
	if step.Changed != 1 || step.Initial != 3 {
		t.Fatalf("unexpected step: %+v", step)
	}
}

func TestScoreFloorStage(t *testing.T) {
	batch := &candidate.Batch{Items: []*candidate.Record{
		rec("below", 0, 55.5, candidate.Review),
		rec("above", 1, 70, candidate.Review),
		rec("already", 2, 10, candidate.Reject),
	}}

	NewScoreFloor(60).Apply(batch)

	below := batch.Find("below")
	if below.Verdict != candidate.Reject {
		t.Fatalf("expected below to be rejected, got %s", below.Verdict)
	}
	if len(below.ReasonsIfRejected) != 1 || below.ReasonsIfRejected[0] != "Score below threshold 55.5 < 60" {
		t.Fatalf("unexpected reasons: %v", below.ReasonsIfRejected)
	}
	if batch.Find("above").Verdict != candidate.Review {
		t.Fatalf("expected above to be untouched")
	}
	if len(batch.Find("already").ReasonsIfRejected) != 0 {
		t.Fatalf("expected no reason appended to an existing reject")
	}
}

func TestTopN(t *testing.T) {
	batch := &candidate.Batch{Items: []*candidate.Record{
		rec("c", 0, 60, candidate.Shortlist),
		rec("a", 1, 90, candidate.Review),
		rec("r", 2, 95, candidate.Reject),
		rec("b", 3, 75, candidate.Shortlist),
		rec("d", 4, 55, candidate.Review),
	}}

	NewTopN(2).Apply(batch)

	got := verdicts(batch)
	want := map[string]candidate.Verdict{
		"a": candidate.Shortlist,
		"b": candidate.Shortlist,
		"c": candidate.Review,
		"d": candidate.Review,
		"r": candidate.Reject,
	}
	for file, v := range want {
		if got[file] != v {
			t.Fatalf("expected %s to be %s, got %s", file, v, got[file])
		}
	}
	if n := len(batch.ByVerdict(candidate.Shortlist)); n != 2 {
		t.Fatalf("expected exactly 2 shortlisted, got %d", n)
	}
}

func TestTopNTieBreakByBatchOrder(t *testing.T) {
	batch := &candidate.Batch{Items: []*candidate.Record{
		rec("late", 2, 80, candidate.Review),
		rec("first", 0, 80, candidate.Review),
		rec("second", 1, 80, candidate.Review),
	}}

	NewTopN(1).Apply(batch)

	if batch.Find("first").Verdict != candidate.Shortlist {
		t.Fatalf("expected first-seen candidate to win the tie")
	}
	if batch.Find("second").Verdict != candidate.Review || batch.Find("late").Verdict != candidate.Review {
		t.Fatalf("expected the rest to be reviewed: %v", verdicts(batch))
	}
}

func TestTopNDisabled(t *testing.T) {
	batch := &candidate.Batch{Items: []*candidate.Record{rec("a", 0, 90, candidate.Shortlist), rec("b", 1, 80, candidate.Shortlist)}}
	NewTopN(0).Apply(batch)
	if n := len(batch.ByVerdict(candidate.Shortlist)); n != 2 {
		t.Fatalf("expected top-n 0 to keep verdicts, got %d shortlisted", n)
	}
}

func TestEngineRunLogsStages(t *testing.T) {
	core, observed := observer.New(zapcore.InfoLevel)
	th := candidate.DefaultThresholds()
	th.FinalScore = 70

	batch := &candidate.Batch{Items: []*candidate.Record{
		rec("top", 0, 90, candidate.Review),
		rec("mid", 1, 80, candidate.Review),
		rec("floor", 2, 65, candidate.Review),
		rec("fallback", 3, 0, candidate.Reject),
	}}

	engine := NewEngine(th, 1, zap.New(core))
	engine.Run(batch)

	got := verdicts(batch)
	if got["top"] != candidate.Shortlist || got["mid"] != candidate.Review || got["floor"] != candidate.Reject || got["fallback"] != candidate.Reject {
		t.Fatalf("unexpected verdicts: %v", got)
	}

	if n := observed.FilterMessage("verdict stage").Len(); n != 3 {
		t.Fatalf("expected 3 stage log entries, got %d", n)
	}
	if len(engine.Describe()) != 3 {
		t.Fatalf("expected 3 stage statuses")
	}
}

func TestOverrideIsTerminal(t *testing.T) {
	batch := &candidate.Batch{Items: []*candidate.Record{
		rec("a", 0, 95, candidate.Review),
		rec("b", 1, 40, candidate.Reject),
	}}

	notes := "  strong referral "
	record, err := Override(batch, "b", "shortlist", &notes)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if record.Verdict != candidate.Shortlist || record.RecruiterNotes != "strong referral" || !record.Overridden {
		t.Fatalf("unexpected record after override: %+v", record)
	}

	NewEngine(candidate.DefaultThresholds(), 1, nil).Run(batch)

	if batch.Find("b").Verdict != candidate.Shortlist {
		t.Fatalf("expected override to survive recomputation")
	}
	if batch.Find("a").Verdict != candidate.Shortlist {
		t.Fatalf("expected a to be shortlisted by top-n")
	}
}

func TestOverrideErrors(t *testing.T) {
	batch := &candidate.Batch{Items: []*candidate.Record{rec("a", 0, 95, candidate.Review)}}

	if _, err := Override(batch, "missing", "reject", nil); !errors.Is(err, ErrUnknownCandidate) {
		t.Fatalf("expected ErrUnknownCandidate, got %v", err)
	}
	if _, err := Override(batch, "a", "rejected", nil); !errors.Is(err, candidate.ErrInvalidVerdict) {
		t.Fatalf("expected ErrInvalidVerdict, got %v", err)
	}

	notes := "call back"
	record, err := Override(batch, "a", "", &notes)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if record.Overridden || record.Verdict != candidate.Review || record.RecruiterNotes != "call back" {
		t.Fatalf("expected notes-only update, got %+v", record)
	}
}
