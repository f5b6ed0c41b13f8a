package verdict

import (
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/cv-screener/internal/candidate"
)

// ErrUnknownCandidate is returned when an override names a resume that is not in the batch.
var ErrUnknownCandidate = errors.New("unknown candidate")

// Stage is one automatic step of verdict computation.
type Stage interface {
	Name() string
	Apply(batch *candidate.Batch) Step
}

// Step describes what a stage did.
type Step struct {
	Initial int
	Changed int
	Counts  map[candidate.Verdict]int
}

// Status summarises a stage for display.
type Status struct {
	Name    string
	Details map[string]string
}

type statusProvider interface {
	Status() Status
}

// Engine runs the automatic stages in order and applies recruiter overrides.
type Engine struct {
	stages []Stage
	logger *zap.Logger
}

// NewEngine builds the standard pipeline: final score floor, threshold rule, then top-N.
func NewEngine(th candidate.Thresholds, topN int, logger *zap.Logger) *Engine {
	return NewEngineWithStages(logger,
		NewScoreFloor(th.FinalScore),
		NewThresholdRule(th),
		NewTopN(topN),
	)
}

// NewEngineWithStages runs exactly the given stages.
func NewEngineWithStages(logger *zap.Logger, stages ...Stage) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{stages: stages, logger: logger}
}

// Run computes verdicts for every record. Recruiter overrides are left untouched.
func (e *Engine) Run(batch *candidate.Batch) {
	for _, stage := range e.stages {
		step := stage.Apply(batch)
		step.Counts = batch.Counts()

		e.logger.Info("verdict stage",
			zap.String("name", stage.Name()),
			zap.Int("initial", step.Initial),
			zap.Int("changed", step.Changed),
			zap.Int(string(candidate.Shortlist), step.Counts[candidate.Shortlist]),
			zap.Int(string(candidate.Review), step.Counts[candidate.Review]),
			zap.Int(string(candidate.Reject), step.Counts[candidate.Reject]),
		)
	}
}

// Describe returns the status of every stage.
func (e *Engine) Describe() []Status {
	statuses := make([]Status, 0, len(e.stages))
	for _, stage := range e.stages {
		if reporter, ok := stage.(statusProvider); ok {
			statuses = append(statuses, reporter.Status())
			continue
		}
		statuses = append(statuses, Status{Name: stage.Name()})
	}
	return statuses
}

// Override sets a recruiter verdict and notes. The candidate is then skipped
// by every automatic stage until a new batch is analyzed. An empty verdict
// keeps the current one and only updates notes.
func Override(batch *candidate.Batch, resumeFile, verdict string, notes *string) (*candidate.Record, error) {
	record := batch.Find(resumeFile)
	if record == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCandidate, resumeFile)
	}

	if strings.TrimSpace(verdict) != "" {
		v, err := candidate.ParseVerdict(verdict)
		if err != nil {
			return nil, err
		}
		record.Verdict = v
		record.Overridden = true
	}
	if notes != nil {
		record.RecruiterNotes = strings.TrimSpace(*notes)
	}
	return record, nil
}

// automatic returns the records automatic stages may change.
func automatic(batch *candidate.Batch) []*candidate.Record {
	out := make([]*candidate.Record, 0, batch.Len())
	for _, r := range batch.Items {
		if !r.Overridden {
			out = append(out, r)
		}
	}
	return out
}
