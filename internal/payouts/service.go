package payouts

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/meridian-pos/meridian-pos/internal/mailer"
	"github.com/meridian-pos/meridian-pos/internal/observability"
	"github.com/meridian-pos/meridian-pos/internal/shared"
	"github.com/meridian-pos/meridian-pos/internal/vendors"
)

// RepositoryPort abstracts payout persistence.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	InsertAccountingEntry(ctx context.Context, entry AccountingEntry) error
	ListPayouts(ctx context.Context, vendorID int64) ([]VendorPayout, error)
	GetPayout(ctx context.Context, vendorID, payoutID int64) (VendorPayout, error)
}

// TxRepository exposes transactional payout operations.
type TxRepository interface {
	GetVendor(ctx context.Context, id int64) (vendors.Vendor, error)
	SumPaidVendorSales(ctx context.Context, vendorID int64) (float64, error)
	InsertPayout(ctx context.Context, payout VendorPayout) (VendorPayout, error)
}

// AuditPort records payout events.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service generates and serves vendor payouts.
type Service struct {
	repo    RepositoryPort
	mail    mailer.Mailer
	audit   AuditPort
	logger  *slog.Logger
	metrics *observability.LedgerMetrics
	now     func() time.Time
}

// NewService builds Service instance.
func NewService(repo RepositoryPort, mail mailer.Mailer, audit AuditPort, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, mail: mail, audit: audit, logger: logger, now: time.Now}
}

// WithMetrics attaches ledger counters.
func (s *Service) WithMetrics(m *observability.LedgerMetrics) *Service {
	s.metrics = m
	return s
}

// WithNow overrides the clock for testing.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// GeneratePayout aggregates the vendor's paid sales into a fresh payout
// snapshot. Each call creates a new record; deduplication per settlement
// period is the caller's responsibility.
//
// The payout row is authoritative and transactional. The accounting_entries
// mirror and the vendor email are best-effort side effects performed after
// commit; their failure is logged and never rolls back the payout.
func (s *Service) GeneratePayout(ctx context.Context, vendorID, actorID int64) (VendorPayout, error) {
	var payout VendorPayout
	var vendor vendors.Vendor
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		v, err := tx.GetVendor(ctx, vendorID)
		if err != nil {
			return err
		}
		vendor = v
		gross, err := tx.SumPaidVendorSales(ctx, vendorID)
		if err != nil {
			return err
		}
		split, err := vendors.ComputeSplit(gross, v.CommissionRate)
		if err != nil {
			return err
		}
		inserted, err := tx.InsertPayout(ctx, VendorPayout{
			VendorID:         vendorID,
			Reference:        fmt.Sprintf("PO-%s", uuid.NewString()[:8]),
			GrossSales:       vendors.Round2(gross),
			CommissionRate:   v.CommissionRate,
			CommissionAmount: split.CommissionAmount,
			PayableAmount:    split.NetPayable,
			CreatedBy:        actorID,
		})
		if err != nil {
			return err
		}
		payout = inserted
		return nil
	})
	if err != nil {
		return VendorPayout{}, err
	}

	if err := s.repo.InsertAccountingEntry(ctx, AccountingEntry{
		EntryType:        EntryTypeVendorPayout,
		VendorID:         payout.VendorID,
		PayoutID:         payout.ID,
		GrossSales:       payout.GrossSales,
		CommissionRate:   payout.CommissionRate,
		CommissionAmount: payout.CommissionAmount,
		PayableAmount:    payout.PayableAmount,
	}); err != nil {
		s.logger.Error("payout audit mirror write failed",
			slog.Int64("payout_id", payout.ID),
			slog.Any("error", err))
	}

	if s.mail != nil && vendor.Email != "" {
		msg := mailer.PayoutSummary(vendor.Email, vendor.Name, payout.GrossSales, payout.CommissionAmount, payout.PayableAmount)
		if err := s.mail.Send(ctx, msg); err != nil {
			s.logger.Warn("payout notification failed",
				slog.Int64("vendor_id", vendorID),
				slog.Any("error", err))
		}
	}

	if s.metrics != nil {
		s.metrics.PayoutsGenerated.Inc()
	}
	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			ActorID:  actorID,
			Action:   "payout.generate",
			Entity:   "vendor_payout",
			EntityID: fmt.Sprintf("%d", payout.ID),
			Meta: map[string]any{
				"vendor_id": vendorID,
				"gross":     payout.GrossSales,
				"payable":   payout.PayableAmount,
			},
			At: s.now(),
		})
	}
	return payout, nil
}

// List returns all payouts for a vendor, newest first.
func (s *Service) List(ctx context.Context, vendorID int64) ([]VendorPayout, error) {
	if err := s.ensureVendor(ctx, vendorID); err != nil {
		return nil, err
	}
	return s.repo.ListPayouts(ctx, vendorID)
}

// Get returns one payout scoped to a vendor.
func (s *Service) Get(ctx context.Context, vendorID, payoutID int64) (VendorPayout, error) {
	if err := s.ensureVendor(ctx, vendorID); err != nil {
		return VendorPayout{}, err
	}
	return s.repo.GetPayout(ctx, vendorID, payoutID)
}

func (s *Service) ensureVendor(ctx context.Context, vendorID int64) error {
	return s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		_, err := tx.GetVendor(ctx, vendorID)
		return err
	})
}
