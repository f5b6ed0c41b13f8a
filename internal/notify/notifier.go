package notify

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/cv-screener/internal/candidate"
	"github.com/spigell/cv-screener/internal/logger"
)

var (
	// ErrNoEmail is reported for candidates without a usable address.
	ErrNoEmail = errors.New("candidate has no email address")
	// ErrDeliveryFailed is reported when the mailer could not send a message.
	ErrDeliveryFailed = errors.New("email delivery failed")
	// ErrDuplicate is reported for a second candidate sharing an address already mailed.
	ErrDuplicate = errors.New("email already sent to this address")
)

// Result is the outcome of one notification. Records are never changed by notifying.
type Result struct {
	Recipient  string `json:"recipient"`
	ResumeFile string `json:"resume_file"`
	Sent       bool   `json:"sent"`
	Err        error  `json:"-"`
}

// Notifier sends candidate emails.
type Notifier struct {
	mailer Mailer
	logger *zap.Logger
}

func NewNotifier(mailer Mailer, logger *zap.Logger) *Notifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Notifier{mailer: mailer, logger: logger}
}

// Notify sends each record the template for its verdict.
func (n *Notifier) Notify(ctx context.Context, r *candidate.Record) Result {
	return n.deliver(ctx, r, ForVerdict(r))
}

// NotifyAll sends each record the template for its verdict. Every address
// is mailed at most once and records without an email are skipped.
func (n *Notifier) NotifyAll(ctx context.Context, records []*candidate.Record) []Result {
	results := make([]Result, 0, len(records))
	seen := make(map[string]struct{}, len(records))

	for _, r := range records {
		key := strings.ToLower(strings.TrimSpace(r.Email))
		if _, ok := seen[key]; ok && candidate.Known(key) {
			results = append(results, Result{Recipient: r.Email, ResumeFile: r.ResumeFile, Err: ErrDuplicate})
			continue
		}
		seen[key] = struct{}{}
		results = append(results, n.Notify(ctx, r))
	}

	n.summarize("bulk notification", results)
	return results
}

// RequestMissingInfo asks every candidate lacking contact fields to provide them.
func (n *Notifier) RequestMissingInfo(ctx context.Context, records []*candidate.Record) []Result {
	results := make([]Result, 0, len(records))
	for _, r := range records {
		missing := r.MissingContact()
		if len(missing) == 0 {
			continue
		}
		results = append(results, n.deliver(ctx, r, MissingInfoEmail(missing)))
	}

	n.summarize("missing info requests", results)
	return results
}

func (n *Notifier) deliver(ctx context.Context, r *candidate.Record, email Email) Result {
	res := Result{Recipient: r.Email, ResumeFile: r.ResumeFile}
	if !candidate.Known(r.Email) {
		res.Err = ErrNoEmail
		logger.ForResume(n.logger, r.ResumeFile).Warn("email skipped", zap.Error(res.Err))
		return res
	}

	res.Sent = n.mailer.Send(ctx, strings.TrimSpace(r.Email), email.Subject, email.Body)
	if !res.Sent {
		res.Err = ErrDeliveryFailed
	}
	return res
}

func (n *Notifier) summarize(msg string, results []Result) {
	sent := 0
	for _, r := range results {
		if r.Sent {
			sent++
		}
	}
	n.logger.Info(msg, zap.Int("sent", sent), zap.Int("failed", len(results)-sent))
}
