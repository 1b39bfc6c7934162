package jobs

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/meridian-pos/meridian-pos/internal/mailer"
)

// NewSendEmailHandler returns the worker-side handler that delivers queued
// emails through the given mailer.
func NewSendEmailHandler(m mailer.Mailer, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload SendEmailPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
		if err := m.Send(ctx, mailer.Message{To: payload.To, Subject: payload.Subject, Body: payload.Body}); err != nil {
			logger.Warn("email delivery failed",
				slog.String("to", payload.To), slog.String("subject", payload.Subject), slog.Any("error", err))
			return err
		}
		return nil
	}
}

// MailEnqueuer implements mailer.Mailer by queueing the message instead of
// delivering it. The HTTP process uses this so requests never block on SMTP.
type MailEnqueuer struct {
	client *Client
}

// NewMailEnqueuer constructs MailEnqueuer.
func NewMailEnqueuer(client *Client) *MailEnqueuer {
	return &MailEnqueuer{client: client}
}

// Send enqueues a mail:send task.
func (e *MailEnqueuer) Send(ctx context.Context, msg mailer.Message) error {
	_, err := e.client.EnqueueSendEmail(ctx, SendEmailPayload{To: msg.To, Subject: msg.Subject, Body: msg.Body})
	return err
}
