package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/meridian-pos/meridian-pos/internal/billing"
)

// NewVendorBillingHandler returns the handler for the scheduled daily
// billing pass. The billing service's redis lease already guards against
// overlapping runs, so retries here are safe.
func NewVendorBillingHandler(svc *billing.Service, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload VendorBillingPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
		runDate := time.Now().UTC()
		if payload.RunDate != nil {
			runDate = *payload.RunDate
		}
		summary, err := svc.ProcessDailyVendorBilling(ctx, runDate)
		if err != nil {
			logger.Error("daily billing pass failed", slog.Any("error", err))
			return err
		}
		logger.Info("daily billing pass finished",
			slog.Time("run_date", summary.RunDate),
			slog.Bool("skipped", summary.Skipped),
			slog.Int("issued", summary.Issued),
			slog.Int("reminders", summary.RemindersSent),
			slog.Int("disabled", summary.VendorsDisabled))
		return nil
	}
}
