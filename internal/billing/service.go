package billing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/meridian-pos/meridian-pos/internal/mailer"
	"github.com/meridian-pos/meridian-pos/internal/observability"
	"github.com/meridian-pos/meridian-pos/internal/shared"
	"github.com/meridian-pos/meridian-pos/internal/vendors"
)

// RepositoryPort is the pool-level storage surface used by the billing
// service. Mutations go through WithTx.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(ctx context.Context, tx TxRepository) error) error
	ListBillableVendors(ctx context.Context, today time.Time) ([]vendors.Vendor, error)
	ListUnpaidInvoices(ctx context.Context) ([]VendorInvoice, error)
	ListVendorInvoices(ctx context.Context, vendorID int64) ([]VendorInvoice, error)
}

// TxRepository is the transactional storage surface.
type TxRepository interface {
	GetVendor(ctx context.Context, id int64) (vendors.Vendor, error)
	InsertInvoice(ctx context.Context, inv VendorInvoice, invoiceMonth time.Time) (VendorInvoice, error)
	SetVendorLastInvoiceDate(ctx context.Context, vendorID int64, date time.Time) error
	GetInvoiceForUpdate(ctx context.Context, id int64) (VendorInvoice, error)
	AdvanceReminderStage(ctx context.Context, id int64, stage int) (bool, error)
	MarkInvoicePaid(ctx context.Context, id int64, paidAt time.Time) (VendorInvoice, error)
	VoidInvoice(ctx context.Context, id int64, reason string, at time.Time) (VendorInvoice, error)
	SetVendorActive(ctx context.Context, vendorID int64, active bool) error
	SetVendorBillingStart(ctx context.Context, vendorID int64, date *time.Time) error
}

// AuditPort records billing events.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Locker serialises the daily billing pass across schedulers.
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key string) error
}

const dailyRunLeaseKey = "billing:daily:lease"

// Service drives monthly fee issuance, dunning escalation and invoice
// settlement.
type Service struct {
	repo     RepositoryPort
	mail     mailer.Mailer
	audit    AuditPort
	logger   *slog.Logger
	metrics  *observability.LedgerMetrics
	locker   Locker
	leaseTTL time.Duration
	now      func() time.Time
}

// NewService returns a billing service with the default clock.
func NewService(repo RepositoryPort, mail mailer.Mailer, audit AuditPort, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, mail: mail, audit: audit, logger: logger, leaseTTL: 10 * time.Minute, now: time.Now}
}

// WithMetrics attaches ledger metrics.
func (s *Service) WithMetrics(m *observability.LedgerMetrics) *Service {
	s.metrics = m
	return s
}

// WithLocker attaches a distributed lease so only one scheduler runs the
// daily pass.
func (s *Service) WithLocker(l Locker, ttl time.Duration) *Service {
	s.locker = l
	if ttl > 0 {
		s.leaseTTL = ttl
	}
	return s
}

// WithNow overrides the clock, for tests.
func (s *Service) WithNow(now func() time.Time) {
	s.now = now
}

// ProcessDailyVendorBilling runs one billing pass for the given day. On the
// first of the month it issues fee invoices for billable vendors, then it
// walks every unpaid invoice and advances its dunning stage by at most one
// step. The pass is safe to retry: issuance is guarded by a uniqueness
// constraint and escalation by stage-guarded updates.
func (s *Service) ProcessDailyVendorBilling(ctx context.Context, today time.Time) (RunSummary, error) {
	today = dateOnly(today)
	summary := RunSummary{RunDate: today}

	if s.locker != nil {
		ok, err := s.locker.Acquire(ctx, dailyRunLeaseKey, s.leaseTTL)
		if err != nil {
			return summary, fmt.Errorf("acquire billing lease: %w", err)
		}
		if !ok {
			s.logger.Info("billing pass already running elsewhere, skipping", slog.Time("run_date", today))
			summary.Skipped = true
			return summary, nil
		}
		defer func() {
			if err := s.locker.Release(ctx, dailyRunLeaseKey); err != nil {
				s.logger.Warn("release billing lease failed", slog.Any("error", err))
			}
		}()
	}

	if today.Day() == 1 {
		issued, err := s.issueMonthlyInvoices(ctx, today)
		if err != nil {
			return summary, err
		}
		summary.Issued = issued
	}

	reminders, disabled, err := s.escalateUnpaidInvoices(ctx, today)
	if err != nil {
		return summary, err
	}
	summary.RemindersSent = reminders
	summary.VendorsDisabled = disabled

	s.logger.Info("billing pass complete",
		slog.Time("run_date", today),
		slog.Int("issued", summary.Issued),
		slog.Int("reminders", summary.RemindersSent),
		slog.Int("disabled", summary.VendorsDisabled))
	return summary, nil
}

func (s *Service) issueMonthlyInvoices(ctx context.Context, today time.Time) (int, error) {
	billable, err := s.repo.ListBillableVendors(ctx, today)
	if err != nil {
		return 0, fmt.Errorf("list billable vendors: %w", err)
	}

	month := monthStart(today)
	issued := 0
	for _, v := range billable {
		if v.MonthlyFee <= 0 {
			continue
		}
		if v.BillingStartDate != nil && v.BillingStartDate.After(today) {
			continue
		}
		if v.LastInvoiceDate != nil && sameMonth(*v.LastInvoiceDate, today) {
			continue
		}

		inv := VendorInvoice{
			VendorID:      v.ID,
			InvoiceNumber: invoiceNumber(v.ID, month),
			FeeAmount:     v.MonthlyFee,
			Status:        StatusUnpaid,
			IssuedAt:      today,
			DueDate:       today.AddDate(0, 0, dueInDays),
			ReminderStage: StageIssued,
			Metadata:      map[string]string{"source": "monthly_billing"},
		}

		err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
			created, err := tx.InsertInvoice(ctx, inv, month)
			if err != nil {
				return err
			}
			inv = created
			return tx.SetVendorLastInvoiceDate(ctx, v.ID, today)
		})
		if errors.Is(err, ErrDuplicateInvoice) {
			s.logger.Debug("invoice already issued for month",
				slog.Int64("vendor_id", v.ID), slog.String("invoice_number", inv.InvoiceNumber))
			continue
		}
		if err != nil {
			return issued, fmt.Errorf("issue invoice for vendor %d: %w", v.ID, err)
		}

		issued++
		if s.metrics != nil {
			s.metrics.InvoicesIssued.Inc()
		}
		s.notify(ctx, mailer.FeeInvoiceIssued(v.Email, v.Name, inv.InvoiceNumber, inv.FeeAmount, inv.DueDate), inv)
		s.recordAudit(ctx, "vendor_invoice.issued", inv, nil)
	}
	return issued, nil
}

// escalateUnpaidInvoices advances each unpaid invoice by at most one dunning
// stage. An invoice issued long ago catches up one step per daily pass
// rather than jumping straight to suspension.
func (s *Service) escalateUnpaidInvoices(ctx context.Context, today time.Time) (reminders, disabled int, err error) {
	unpaid, err := s.repo.ListUnpaidInvoices(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("list unpaid invoices: %w", err)
	}

	for _, inv := range unpaid {
		days := daysSince(inv.IssuedAt, today)

		switch {
		case inv.ReminderStage < StageFirstReminder && days >= firstReminderAfterDays:
			ok, err := s.advanceStage(ctx, inv.ID, StageFirstReminder, nil)
			if err != nil {
				return reminders, disabled, err
			}
			if !ok {
				continue
			}
			reminders++
			s.countReminder(StageFirstReminder)
			s.notify(ctx, mailer.FeeReminder(inv.VendorEmail, inv.VendorName, inv.InvoiceNumber, inv.FeeAmount, inv.DueDate), inv)
			s.recordAudit(ctx, "vendor_invoice.reminder_sent", inv, map[string]any{"stage": StageFirstReminder})

		case inv.ReminderStage < StageFinalReminder && days >= finalReminderAfterDays:
			ok, err := s.advanceStage(ctx, inv.ID, StageFinalReminder, nil)
			if err != nil {
				return reminders, disabled, err
			}
			if !ok {
				continue
			}
			reminders++
			s.countReminder(StageFinalReminder)
			s.notify(ctx, mailer.FeeFinalReminder(inv.VendorEmail, inv.VendorName, inv.InvoiceNumber, inv.FeeAmount), inv)
			s.recordAudit(ctx, "vendor_invoice.final_reminder_sent", inv, map[string]any{"stage": StageFinalReminder})

		case inv.ReminderStage < StageDisabled && days >= disableAfterDays:
			vendorID := inv.VendorID
			ok, err := s.advanceStage(ctx, inv.ID, StageDisabled, func(ctx context.Context, tx TxRepository) error {
				return tx.SetVendorActive(ctx, vendorID, false)
			})
			if err != nil {
				return reminders, disabled, err
			}
			if !ok {
				continue
			}
			disabled++
			if s.metrics != nil {
				s.metrics.VendorsDisabled.Inc()
			}
			s.logger.Warn("vendor disabled for non-payment",
				slog.Int64("vendor_id", inv.VendorID), slog.String("invoice_number", inv.InvoiceNumber))
			s.notify(ctx, mailer.AccountDisabled(inv.VendorEmail, inv.VendorName, inv.InvoiceNumber), inv)
			s.recordAudit(ctx, "vendor_invoice.vendor_disabled", inv, map[string]any{"stage": StageDisabled})
		}
	}
	return reminders, disabled, nil
}

// advanceStage moves one invoice forward inside a transaction. The stage
// guard in the update makes concurrent passes settle on a single winner;
// the extra step runs in the same transaction only when the guard held.
func (s *Service) advanceStage(ctx context.Context, invoiceID int64, stage int, extra func(ctx context.Context, tx TxRepository) error) (bool, error) {
	var advanced bool
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		ok, err := tx.AdvanceReminderStage(ctx, invoiceID, stage)
		if err != nil {
			return err
		}
		advanced = ok
		if !ok || extra == nil {
			return nil
		}
		return extra(ctx, tx)
	})
	if err != nil {
		return false, fmt.Errorf("advance invoice %d to stage %d: %w", invoiceID, stage, err)
	}
	return advanced, nil
}

// MarkPaid settles an invoice and reactivates the vendor account. Paying an
// already paid invoice is a no-op; paying a void invoice is rejected.
func (s *Service) MarkPaid(ctx context.Context, vendorID, invoiceID, actorID int64) (VendorInvoice, error) {
	var result VendorInvoice
	var settled bool
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		cur, err := tx.GetInvoiceForUpdate(ctx, invoiceID)
		if err != nil {
			return err
		}
		if cur.VendorID != vendorID {
			return ErrInvoiceNotFound
		}
		switch cur.Status {
		case StatusPaid:
			result = cur
			return nil
		case StatusVoid:
			return ErrAlreadyTerminal
		}
		paid, err := tx.MarkInvoicePaid(ctx, invoiceID, s.now().UTC())
		if err != nil {
			return err
		}
		// Reactivation is unconditional: settling any invoice restores a
		// suspended account even when older invoices remain unpaid.
		if err := tx.SetVendorActive(ctx, cur.VendorID, true); err != nil {
			return err
		}
		result = paid
		settled = true
		return nil
	})
	if err != nil {
		return VendorInvoice{}, err
	}
	if settled {
		s.recordAudit(ctx, "vendor_invoice.paid", result, map[string]any{"actor_id": actorID})
	}
	return result, nil
}

// VoidInvoice cancels an unpaid invoice. Voiding a paid invoice is
// rejected; voiding a void invoice is a no-op.
func (s *Service) VoidInvoice(ctx context.Context, vendorID, invoiceID, actorID int64, reason string) (VendorInvoice, error) {
	var result VendorInvoice
	var voided bool
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		cur, err := tx.GetInvoiceForUpdate(ctx, invoiceID)
		if err != nil {
			return err
		}
		if cur.VendorID != vendorID {
			return ErrInvoiceNotFound
		}
		switch cur.Status {
		case StatusPaid:
			return ErrAlreadyTerminal
		case StatusVoid:
			result = cur
			return nil
		}
		out, err := tx.VoidInvoice(ctx, invoiceID, reason, s.now().UTC())
		if err != nil {
			return err
		}
		result = out
		voided = true
		return nil
	})
	if err != nil {
		return VendorInvoice{}, err
	}
	if voided {
		s.recordAudit(ctx, "vendor_invoice.voided", result, map[string]any{"actor_id": actorID, "reason": reason})
	}
	return result, nil
}

// ReactivateVendorAccount restores a suspended vendor and optionally resets
// the date from which monthly fees start accruing again.
func (s *Service) ReactivateVendorAccount(ctx context.Context, vendorID, actorID int64, billingStart *time.Time) error {
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if _, err := tx.GetVendor(ctx, vendorID); err != nil {
			return err
		}
		if err := tx.SetVendorActive(ctx, vendorID, true); err != nil {
			return err
		}
		if billingStart != nil {
			start := dateOnly(*billingStart)
			return tx.SetVendorBillingStart(ctx, vendorID, &start)
		}
		return nil
	})
	if err != nil {
		return err
	}
	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			ActorID:  actorID,
			Action:   "vendor.reactivated",
			Entity:   "vendor",
			EntityID: strconv.FormatInt(vendorID, 10),
			At:       s.now().UTC(),
		})
	}
	return nil
}

// ListVendorInvoices returns all fee invoices for one vendor, newest first.
func (s *Service) ListVendorInvoices(ctx context.Context, vendorID int64) ([]VendorInvoice, error) {
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		_, err := tx.GetVendor(ctx, vendorID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return s.repo.ListVendorInvoices(ctx, vendorID)
}

func (s *Service) countReminder(stage int) {
	if s.metrics != nil {
		s.metrics.RemindersSent.WithLabelValues(strconv.Itoa(stage)).Inc()
	}
}

// notify sends a dunning email best-effort. Delivery failures never fail
// the billing pass.
func (s *Service) notify(ctx context.Context, msg mailer.Message, inv VendorInvoice) {
	if s.mail == nil || msg.To == "" {
		return
	}
	if err := s.mail.Send(ctx, msg); err != nil {
		s.logger.Warn("billing notification failed",
			slog.String("invoice_number", inv.InvoiceNumber),
			slog.Int64("vendor_id", inv.VendorID),
			slog.Any("error", err))
	}
}

func (s *Service) recordAudit(ctx context.Context, action string, inv VendorInvoice, meta map[string]any) {
	if s.audit == nil {
		return
	}
	if meta == nil {
		meta = map[string]any{}
	}
	meta["invoice_number"] = inv.InvoiceNumber
	meta["vendor_id"] = inv.VendorID
	_ = s.audit.Record(ctx, shared.AuditLog{
		Action:   action,
		Entity:   "vendor_invoice",
		EntityID: strconv.FormatInt(inv.ID, 10),
		Meta:     meta,
		At:       s.now().UTC(),
	})
}
