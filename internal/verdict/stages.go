package verdict

import (
	"fmt"
	"strconv"

	"github.com/spigell/cv-screener/internal/candidate"
)

type scoreFloor struct {
	threshold float64
}

// NewScoreFloor rejects candidates whose fused score is under the recruiter's final score threshold.
func NewScoreFloor(threshold float64) Stage {
	return &scoreFloor{threshold: threshold}
}

func (s *scoreFloor) Name() string { return "score_floor" }

func (s *scoreFloor) Apply(batch *candidate.Batch) Step {
	records := automatic(batch)
	changed := 0
	for _, r := range records {
		if r.Score < s.threshold && r.Verdict != candidate.Reject {
			r.Reject(fmt.Sprintf("Score below threshold %s < %s", formatScore(r.Score), formatScore(s.threshold)))
			changed++
		}
	}
	return Step{Initial: len(records), Changed: changed}
}

func (s *scoreFloor) Status() Status {
	return Status{Name: s.Name(), Details: map[string]string{"final_score": formatScore(s.threshold)}}
}

type thresholdRule struct {
	th candidate.Thresholds
}

// NewThresholdRule sends candidates below any component threshold to review
// and shortlists the rest. Rejects stay rejected.
func NewThresholdRule(th candidate.Thresholds) Stage {
	return &thresholdRule{th: th}
}

func (s *thresholdRule) Name() string { return "threshold_rule" }

func (s *thresholdRule) Apply(batch *candidate.Batch) Step {
	records := automatic(batch)
	changed := 0
	for _, r := range records {
		if r.Verdict == candidate.Reject {
			continue
		}

		next := candidate.Shortlist
		if r.JDSimilarity < s.th.JDSimilarity ||
			r.SkillsMatch < s.th.Skills ||
			r.DomainMatch < s.th.Domain ||
			r.ExperienceMatch < s.th.Experience {
			next = candidate.Review
		}

		if r.Verdict != next {
			r.Verdict = next
			changed++
		}
	}
	return Step{Initial: len(records), Changed: changed}
}

func (s *thresholdRule) Status() Status {
	return Status{Name: s.Name(), Details: map[string]string{
		"jd_similarity": formatScore(s.th.JDSimilarity),
		"skills":        formatScore(s.th.Skills),
		"domain":        formatScore(s.th.Domain),
		"experience":    formatScore(s.th.Experience),
	}}
}

type topN struct {
	n int
}

// NewTopN shortlists the n best scoring candidates that are not rejected and
// moves every other shortlisted candidate to review. Zero disables it.
func NewTopN(n int) Stage {
	return &topN{n: n}
}

func (s *topN) Name() string { return "top_n" }

func (s *topN) Apply(batch *candidate.Batch) Step {
	if s.n <= 0 {
		return Step{Initial: batch.Len()}
	}

	ranked := batch.Ranked()
	changed := 0
	rank := 0
	for _, r := range ranked {
		if r.Overridden || r.Verdict == candidate.Reject {
			continue
		}

		next := candidate.Review
		if rank < s.n {
			next = candidate.Shortlist
		}
		rank++

		if r.Verdict != next {
			r.Verdict = next
			changed++
		}
	}
	return Step{Initial: len(ranked), Changed: changed}
}

func (s *topN) Status() Status {
	return Status{Name: s.Name(), Details: map[string]string{"top_n": strconv.Itoa(s.n)}}
}

func formatScore(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
