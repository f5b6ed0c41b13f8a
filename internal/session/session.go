package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spigell/cv-screener/internal/candidate"
	"github.com/spigell/cv-screener/internal/logger"
	"github.com/spigell/cv-screener/internal/screening"
	"github.com/spigell/cv-screener/internal/verdict"
)

var (
	// ErrAnalysisLoaded is returned by Analyze while a batch is loaded.
	ErrAnalysisLoaded = errors.New("analysis already loaded, reset the session first")
	// ErrNoAnalysis is returned when an operation needs a batch and none is loaded.
	ErrNoAnalysis = errors.New("no analysis loaded")
	// ErrNoResumes is returned when Analyze is called without uploads.
	ErrNoResumes = errors.New("no resumes uploaded")
)

// RoleExtractor infers the job title when the recruiter leaves it blank.
type RoleExtractor interface {
	Extract(ctx context.Context, jd string) string
}

// Runner evaluates a batch of uploads.
type Runner interface {
	Run(ctx context.Context, job *candidate.Job, uploads []screening.Upload, progress screening.ProgressFunc) *candidate.Batch
}

// Session is the state of one analysis run.
type Session struct {
	ID        string
	StartedAt time.Time
	Job       candidate.Job
	Batch     *candidate.Batch
	Stages    []verdict.Status
}

// baseline is the evaluator verdict of a record before any verdict stage ran.
type baseline struct {
	verdict candidate.Verdict
	reasons int
}

// Manager owns the current session. All methods are safe for concurrent use.
type Manager struct {
	mu      sync.Mutex
	roles   RoleExtractor
	runner  Runner
	logger  *zap.Logger
	now     func() time.Time
	current *Session
	initial []baseline
}

func NewManager(roles RoleExtractor, runner Runner, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{roles: roles, runner: runner, logger: logger, now: time.Now}
}

// Analyze validates the job, evaluates every upload and computes verdicts.
// It is a no-op returning ErrAnalysisLoaded until Reset is called.
// A batch evaluated under a cancelled context is discarded.
func (m *Manager) Analyze(ctx context.Context, job candidate.Job, uploads []screening.Upload, progress screening.ProgressFunc) (Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current != nil {
		return Session{}, ErrAnalysisLoaded
	}
	if len(uploads) == 0 {
		return Session{}, ErrNoResumes
	}
	if err := job.Validate(); err != nil {
		return Session{}, err
	}

	if strings.TrimSpace(job.Role) == "" && m.roles != nil {
		job.Role = m.roles.Extract(ctx, job.Description)
		m.logger.Info("job role extracted", zap.String("role", job.Role))
	}

	s := &Session{
		ID:        uuid.NewString(),
		StartedAt: m.now(),
		Job:       job,
	}
	log := m.logger.With(zap.String(logger.FieldSession, s.ID))
	log.Info("analysis started", zap.Int("resumes", len(uploads)))

	s.Batch = m.runner.Run(ctx, &s.Job, uploads, progress)
	if err := ctx.Err(); err != nil {
		log.Warn("analysis cancelled", zap.Error(err))
		return Session{}, fmt.Errorf("analysis cancelled: %w", err)
	}
	m.initial = snapshot(s.Batch)

	engine := verdict.NewEngine(job.Thresholds, job.TopN, log)
	engine.Run(s.Batch)
	s.Stages = engine.Describe()

	m.current = s
	counts := s.Batch.Counts()
	log.Info("analysis finished",
		zap.Int(string(candidate.Shortlist), counts[candidate.Shortlist]),
		zap.Int(string(candidate.Review), counts[candidate.Review]),
		zap.Int(string(candidate.Reject), counts[candidate.Reject]),
	)

	return clone(s), nil
}

// Retune recomputes verdicts with new thresholds and top-N, starting from the
// evaluator verdicts. Recruiter overrides are kept.
func (m *Manager) Retune(th candidate.Thresholds, topN int) (Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current == nil {
		return Session{}, ErrNoAnalysis
	}

	job := m.current.Job
	job.Thresholds = th
	job.TopN = topN
	if err := job.Validate(); err != nil {
		return Session{}, err
	}

	for i, r := range m.current.Batch.Items {
		if r.Overridden || i >= len(m.initial) {
			continue
		}
		r.Verdict = m.initial[i].verdict
		r.ReasonsIfRejected = r.ReasonsIfRejected[:m.initial[i].reasons]
	}

	engine := verdict.NewEngine(th, topN, m.logger.With(zap.String(logger.FieldSession, m.current.ID)))
	engine.Run(m.current.Batch)
	m.current.Job = job
	m.current.Stages = engine.Describe()

	return clone(m.current), nil
}

// Override applies a recruiter verdict and notes to one candidate.
func (m *Manager) Override(resumeFile, v string, notes *string) (candidate.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current == nil {
		return candidate.Record{}, ErrNoAnalysis
	}
	record, err := verdict.Override(m.current.Batch, resumeFile, v, notes)
	if err != nil {
		return candidate.Record{}, err
	}
	m.logger.Info("recruiter override",
		zap.String(logger.FieldSession, m.current.ID),
		zap.String(logger.FieldResumeFile, resumeFile),
		zap.String("verdict", string(record.Verdict)),
	)
	return cloneRecord(record), nil
}

// Current returns a copy of the loaded session.
func (m *Manager) Current() (Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current == nil {
		return Session{}, ErrNoAnalysis
	}
	return clone(m.current), nil
}

// Candidate returns a copy of one record.
func (m *Manager) Candidate(resumeFile string) (candidate.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current == nil {
		return candidate.Record{}, ErrNoAnalysis
	}
	record := m.current.Batch.Find(resumeFile)
	if record == nil {
		return candidate.Record{}, fmt.Errorf("%w: %s", verdict.ErrUnknownCandidate, resumeFile)
	}
	return cloneRecord(record), nil
}

// Reset drops the loaded session so that a new analysis can run.
func (m *Manager) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current != nil {
		m.logger.Info("session reset", zap.String(logger.FieldSession, m.current.ID))
	}
	m.current = nil
	m.initial = nil
}

func snapshot(batch *candidate.Batch) []baseline {
	out := make([]baseline, batch.Len())
	for i, r := range batch.Items {
		out[i] = baseline{verdict: r.Verdict, reasons: len(r.ReasonsIfRejected)}
	}
	return out
}

func clone(s *Session) Session {
	out := *s
	out.Batch = &candidate.Batch{Items: make([]*candidate.Record, 0, s.Batch.Len())}
	for _, r := range s.Batch.Items {
		c := cloneRecord(r)
		out.Batch.Items = append(out.Batch.Items, &c)
	}
	out.Stages = append([]verdict.Status(nil), s.Stages...)
	return out
}

func cloneRecord(r *candidate.Record) candidate.Record {
	c := *r
	c.RedFlags = append([]string(nil), r.RedFlags...)
	c.MissingGaps = append([]string(nil), r.MissingGaps...)
	c.Highlights = append([]string(nil), r.Highlights...)
	c.ReasonsIfRejected = append([]string(nil), r.ReasonsIfRejected...)
	return c
}
