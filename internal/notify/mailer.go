package notify

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
)

// Mailer delivers a plain text email. It reports success and never returns an error.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) bool
}

type sendFunc func(ctx context.Context, msg *gmail.Message) error

// Gmail sends mail through the Gmail API as the authorised user.
type Gmail struct {
	from    string
	send    sendFunc
	limiter *rate.Limiter
	logger  *zap.Logger
}

// NewGmail builds a Gmail mailer on an OAuth client. perSecond <= 0 disables rate limiting.
func NewGmail(ctx context.Context, client *http.Client, from string, perSecond float64, logger *zap.Logger) (*Gmail, error) {
	svc, err := gmail.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("unable to create gmail client: %w", err)
	}

	send := func(ctx context.Context, msg *gmail.Message) error {
		_, err := svc.Users.Messages.Send("me", msg).Context(ctx).Do()
		return err
	}
	return newGmail(send, from, perSecond, logger), nil
}

func newGmail(send sendFunc, from string, perSecond float64, logger *zap.Logger) *Gmail {
	if logger == nil {
		logger = zap.NewNop()
	}
	limit := rate.Inf
	if perSecond > 0 {
		limit = rate.Limit(perSecond)
	}
	return &Gmail{
		from:    from,
		send:    send,
		limiter: rate.NewLimiter(limit, 1),
		logger:  logger,
	}
}

func (g *Gmail) Send(ctx context.Context, to, subject, body string) bool {
	log := g.logger.With(zap.String("to", to), zap.String("subject", subject))

	if err := g.limiter.Wait(ctx); err != nil {
		log.Warn("email not sent", zap.Error(err))
		return false
	}

	raw, err := buildMessage(g.from, to, subject, body)
	if err != nil {
		log.Warn("email not sent", zap.Error(err))
		return false
	}

	if err := g.send(ctx, &gmail.Message{Raw: base64.URLEncoding.EncodeToString(raw)}); err != nil {
		log.Error("email delivery failed", zap.Error(err))
		return false
	}

	log.Info("email sent")
	return true
}

func buildMessage(from, to, subject, body string) ([]byte, error) {
	to = strings.TrimSpace(to)
	if to == "" || strings.ContainsAny(to, "\r\n") {
		return nil, errors.New("invalid recipient")
	}

	var b strings.Builder
	if from = strings.TrimSpace(from); from != "" {
		fmt.Fprintf(&b, "From: %s\r\n", from)
	}
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", subject))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=\"UTF-8\"\r\n\r\n")
	b.WriteString(body)
	return []byte(b.String()), nil
}

// LogMailer only logs messages. It is used for dry runs.
type LogMailer struct {
	Logger *zap.Logger
}

func (m LogMailer) Send(_ context.Context, to, subject, body string) bool {
	if m.Logger != nil {
		m.Logger.Info("email (dry run)",
			zap.String("to", to),
			zap.String("subject", subject),
			zap.Int("body_length", len(body)),
		)
	}
	return strings.TrimSpace(to) != ""
}
