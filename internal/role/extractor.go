package role

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/spigell/cv-screener/internal/ai"
	"github.com/spigell/cv-screener/internal/candidate"
	"github.com/spigell/cv-screener/internal/util"
)

const (
	maxDescriptionRunes = 4000
	minWords            = 2
	maxWords            = 6
	defaultTimeout      = 20 * time.Second
)

const promptTemplate = `You are an expert recruiter AI. Extract the most appropriate job title from the following job description.
- If no clear title is mentioned, infer the best-fit role based on the responsibilities and skills.
- Return only the concise role title like "Data Analyst", "Frontend Developer", "Embedded Software Engineer", etc.
- If you cannot determine a role, return "N/A".

Job Description:
"""
{{JD}}
"""`

// Extractor infers a job title from a job description.
type Extractor struct {
	oracle  ai.Completer
	timeout time.Duration
	logger  *zap.Logger
}

func NewExtractor(oracle ai.Completer, timeout time.Duration, logger *zap.Logger) *Extractor {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Extractor{oracle: oracle, timeout: timeout, logger: logger}
}

// Extract returns a 2 to 6 word title or candidate.NotAvailable. It never fails.
func (e *Extractor) Extract(ctx context.Context, jd string) string {
	jd = strings.TrimSpace(jd)
	if jd == "" || e.oracle == nil {
		return candidate.NotAvailable
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	raw, err := e.oracle.Complete(ctx, ai.Request{
		User:        strings.Replace(promptTemplate, "{{JD}}", truncateRunes(jd, maxDescriptionRunes), 1),
		Temperature: 0,
		MaxTokens:   20,
	})
	if err != nil {
		e.logger.Warn("role extraction failed", zap.Error(err))
		return candidate.NotAvailable
	}

	role := clean(raw)
	words := len(strings.Fields(role))
	if words < minWords || words > maxWords {
		e.logger.Debug("role rejected by word count",
			zap.String("response_preview", util.TruncateForLog(raw, 80)),
			zap.Int("words", words),
		)
		return candidate.NotAvailable
	}

	e.logger.Info("role extracted", zap.String("role", role))
	return role
}

func clean(raw string) string {
	role := strings.TrimSpace(raw)
	if i := strings.IndexByte(role, '\n'); i >= 0 {
		role = role[:i]
	}
	role = strings.TrimPrefix(role, "Role:")
	role = strings.TrimPrefix(role, "Job Title:")
	role = strings.Trim(role, " \t\"'`*.")
	return strings.Join(strings.Fields(role), " ")
}

func truncateRunes(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	return string([]rune(s)[:limit])
}
