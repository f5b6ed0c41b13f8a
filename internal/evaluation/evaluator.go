package evaluation

import (
	"context"
	_ "embed"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/spigell/cv-screener/internal/ai"
	"github.com/spigell/cv-screener/internal/candidate"
	"github.com/spigell/cv-screener/internal/logger"
	"github.com/spigell/cv-screener/internal/resume"
	"github.com/spigell/cv-screener/internal/util"
)

//go:embed rubric.md
var rubric string

const (
	defaultTimeout      = 60 * time.Second
	defaultMaxLogLength = 200
	temperature         = 0.2
	maxTokens           = 1200
)

// Input is everything needed to evaluate one resume.
type Input struct {
	JD              string
	ResumeText      string
	Contact         candidate.Contact
	Role            string
	Domain          string
	Skills          string
	ExperienceRange string
	JDSimilarity    float64
	ResumeFile      string
	Order           int
}

// Options configure an Evaluator.
type Options struct {
	Weights      Weights
	Timeout      time.Duration
	MaxLogLength int
	Logger       *zap.Logger
}

// Evaluator scores resumes with a single oracle call each. It holds no
// per-call state and is safe for concurrent use.
type Evaluator struct {
	oracle    ai.Completer
	weights   Weights
	timeout   time.Duration
	maxLogLen int
	logger    *zap.Logger
}

func NewEvaluator(oracle ai.Completer, opts Options) (*Evaluator, error) {
	weights := opts.Weights
	if weights == (Weights{}) {
		weights = DefaultWeights()
	}
	if err := weights.Validate(); err != nil {
		return nil, err
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.MaxLogLength <= 0 {
		opts.MaxLogLength = defaultMaxLogLength
	}

	return &Evaluator{
		oracle:    oracle,
		weights:   weights,
		timeout:   opts.Timeout,
		maxLogLen: opts.MaxLogLength,
		logger:    logger.WithFields(opts.Logger),
	}, nil
}

// Evaluate always returns a complete record. Oracle and parsing failures
// produce the fallback record.
func (e *Evaluator) Evaluate(ctx context.Context, in Input) (record *candidate.Record) {
	log := logger.ForResume(e.logger, in.ResumeFile)

	defer func() {
		if r := recover(); r != nil {
			log.Error("evaluation panicked", zap.Any("panic", r))
			record = Fallback(in, fmt.Sprintf("evaluation panicked: %v", r))
		}
	}()

	prompt := buildPrompt(in)
	log.Debug("evaluation request",
		zap.Int("prompt_length", utf8.RuneCountInString(prompt)),
		zap.String("prompt_preview", util.TruncateForLog(prompt, e.maxLogLen)),
	)

	callCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	raw, err := e.oracle.Complete(callCtx, ai.Request{
		System:      strings.TrimSpace(rubric),
		User:        prompt,
		Temperature: temperature,
		MaxTokens:   maxTokens,
		JSON:        true,
	})
	if err != nil {
		log.Warn("evaluation call failed", zap.Error(err))
		return Fallback(in, err.Error())
	}

	log.Debug("evaluation response",
		zap.Int("response_length", utf8.RuneCountInString(raw)),
		zap.String("response_preview", util.TruncateForLog(raw, e.maxLogLen)),
	)

	resp, err := parseResponse(raw)
	if err != nil {
		log.Warn("evaluation response rejected", zap.Error(err))
		return Fallback(in, ParseFailedReason)
	}

	record = e.assemble(in, resp)
	log.Info("resume evaluated",
		zap.Float64("score", record.Score),
		zap.String("verdict", record.Verdict.String()),
		zap.Bool("fraud_detected", record.FraudDetected),
	)
	return record
}

func buildPrompt(in Input) string {
	chunks := resume.Chunk(in.ResumeText, resume.ChunkRunes)

	var b strings.Builder
	fmt.Fprintf(&b, "JD: %s\n\n", strings.TrimSpace(in.JD))
	fmt.Fprintf(&b, "ROLE: %s\n", in.Role)
	fmt.Fprintf(&b, "DOMAIN: %s\n", in.Domain)
	fmt.Fprintf(&b, "REQUIRED SKILLS: %s\n", in.Skills)
	fmt.Fprintf(&b, "EXPERIENCE RANGE: %s\n\n", in.ExperienceRange)
	fmt.Fprintf(&b, "RESUME:\n%s\n", resume.Head(chunks, resume.EvaluationChunks))
	return b.String()
}

func (e *Evaluator) assemble(in Input, resp *response) *candidate.Record {
	score := e.weights.Fuse(resp.SkillsMatch, resp.DomainMatch, resp.ExperienceMatch, in.JDSimilarity)

	verdict := candidate.Review
	if strings.EqualFold(strings.TrimSpace(resp.Verdict), string(candidate.Reject)) {
		verdict = candidate.Reject
	}

	name := strings.TrimSpace(resp.Name)
	if !candidate.Known(name) {
		name = candidate.OrNA(in.Contact.Name)
	}

	jdRole := strings.TrimSpace(resp.JDRole)
	if jdRole == "" {
		jdRole = candidate.OrNA(in.Role)
	}

	record := &candidate.Record{
		Name:              name,
		Email:             candidate.OrNA(in.Contact.Email),
		Phone:             candidate.OrNA(in.Contact.Phone),
		JDRole:            jdRole,
		SkillsMatch:       resp.SkillsMatch,
		DomainMatch:       resp.DomainMatch,
		ExperienceMatch:   resp.ExperienceMatch,
		JDSimilarity:      in.JDSimilarity,
		Score:             score,
		Fitment:           candidate.OrNA(resp.Fitment),
		Summary:           candidate.OrNA(summaryText(resp.Summary)),
		Recommendation:    candidate.OrNA(resp.Recommendation),
		RedFlags:          orEmpty(resp.RedFlags),
		MissingGaps:       orEmpty(resp.MissingGaps),
		Highlights:        orEmpty(resp.Highlights),
		ReasonsIfRejected: orEmpty(resp.ReasonsIfRejected),
		FraudDetected:     resp.FraudDetected,
		Verdict:           verdict,
		ResumeText:        in.ResumeText,
		ResumeFile:        in.ResumeFile,
		Order:             in.Order,
	}

	if score < ScoreFloor {
		record.Reject(floorReason(score))
	}
	return record
}

func orEmpty(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
