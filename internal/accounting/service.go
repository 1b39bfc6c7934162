package accounting

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/meridian-pos/meridian-pos/internal/observability"
	"github.com/meridian-pos/meridian-pos/internal/shared"
	"github.com/meridian-pos/meridian-pos/internal/vendors"
)

// RepositoryPort abstracts transactional repository behaviour.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// AuditPort records ledger events for compliance.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service coordinates posting journal entries into the ledger.
type Service struct {
	repo    RepositoryPort
	audit   AuditPort
	logger  *slog.Logger
	metrics *observability.LedgerMetrics
	now     func() time.Time
}

// NewService constructs the ledger service.
func NewService(repo RepositoryPort, audit AuditPort, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, audit: audit, logger: logger, now: time.Now}
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

// PostEntry validates and persists one balanced journal entry. Every
// account code the caller names must resolve; entry and lines are written
// in a single transaction.
func (s *Service) PostEntry(ctx context.Context, input PostingInput) (JournalEntry, error) {
	if err := input.Validate(); err != nil {
		return JournalEntry{}, err
	}
	var entry JournalEntry
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		staged := make([]stagedLine, 0, len(input.Lines))
		for _, line := range input.Lines {
			accountID, ok, err := tx.ResolveAccount(ctx, line.AccountCode)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("%w: code %s", ErrAccountMissing, line.AccountCode)
			}
			staged = append(staged, stagedLine{
				accountID:   accountID,
				side:        line.Side,
				amount:      line.Amount,
				description: line.Description,
			})
		}
		inserted, err := s.persistEntry(ctx, tx, input.EntryDate, input.Description, input.Reference, staged)
		if err != nil {
			return err
		}
		entry = inserted
		return nil
	})
	if err != nil {
		return JournalEntry{}, err
	}
	s.recordPosted(ctx, entry)
	return entry, nil
}

// PostSale posts one sales invoice as a balanced journal entry, including
// the vendor revenue-split adjustment for vendor-sourced line items.
//
// AR and Sales Revenue accounts are mandatory; Tax Payable, Accounts
// Payable and Commission Revenue degrade gracefully when unmapped. Lines
// are only ever omitted in self-balancing groups so the entry stays
// balanced, and totals are recomputed from the lines actually kept.
func (s *Service) PostSale(ctx context.Context, input SaleInput) (JournalEntry, error) {
	if err := input.Validate(); err != nil {
		return JournalEntry{}, err
	}
	var entry JournalEntry
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		arID, ok, err := tx.ResolveAccount(ctx, CodeAccountsReceivable)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: code %s", ErrAccountMissing, CodeAccountsReceivable)
		}
		salesID, ok, err := tx.ResolveAccount(ctx, CodeSalesRevenue)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: code %s", ErrAccountMissing, CodeSalesRevenue)
		}
		taxID, taxOK, err := tx.ResolveAccount(ctx, CodeTaxPayable)
		if err != nil {
			return err
		}
		apID, apOK, err := tx.ResolveAccount(ctx, CodeAccountsPayable)
		if err != nil {
			return err
		}
		commissionID, commissionOK, err := tx.ResolveAccount(ctx, CodeCommissionRevenue)
		if err != nil {
			return err
		}

		var credits []stagedLine
		if input.Subtotal > 0 {
			credits = append(credits, stagedLine{salesID, SideCredit, input.Subtotal, "Sales revenue"})
		}
		if input.TaxAmount > 0 {
			if taxOK {
				credits = append(credits, stagedLine{taxID, SideCredit, input.TaxAmount, "Tax collected"})
			} else {
				s.logger.Warn("tax payable account unmapped, omitting tax line",
					slog.String("reference", input.Reference),
					slog.Float64("tax_amount", input.TaxAmount))
			}
		}
		// AR is debited for what was actually recognised so the entry
		// stays balanced even when the tax line was omitted.
		var recognised float64
		for _, c := range credits {
			recognised += c.amount
		}
		staged := make([]stagedLine, 0, len(credits)+1)
		if recognised > 0 {
			staged = append(staged, stagedLine{arID, SideDebit, recognised, "Accounts receivable"})
		}
		staged = append(staged, credits...)

		// Vendor revenue-split adjustment: move vendor-sourced gross out of
		// the company's sales line into vendor payable plus retained
		// commission. The debit equals the sum of the credits, so each
		// vendor group balances on its own.
		for _, vg := range aggregateVendorGross(input.Lines) {
			if !apOK {
				s.logger.Warn("accounts payable unmapped, skipping vendor split",
					slog.Int64("vendor_id", vg.vendorID),
					slog.Float64("gross", vg.gross))
				continue
			}
			rate, err := tx.GetVendorCommissionRate(ctx, vg.vendorID)
			if err != nil {
				return err
			}
			split, err := vendors.ComputeSplit(vg.gross, rate)
			if err != nil {
				return err
			}
			if commissionOK {
				staged = append(staged,
					stagedLine{salesID, SideDebit, vg.gross, fmt.Sprintf("Vendor %d revenue adjustment", vg.vendorID)},
					stagedLine{apID, SideCredit, split.NetPayable, fmt.Sprintf("Vendor %d payable", vg.vendorID)},
					stagedLine{commissionID, SideCredit, split.CommissionAmount, fmt.Sprintf("Vendor %d commission", vg.vendorID)},
				)
			} else {
				// Without a commission account the retained cut stays in
				// sales revenue; only the net payable moves.
				staged = append(staged,
					stagedLine{salesID, SideDebit, split.NetPayable, fmt.Sprintf("Vendor %d revenue adjustment", vg.vendorID)},
					stagedLine{apID, SideCredit, split.NetPayable, fmt.Sprintf("Vendor %d payable", vg.vendorID)},
				)
			}
		}

		inserted, err := s.persistEntry(ctx, tx, input.EntryDate, saleDescription(input), input.Reference, staged)
		if err != nil {
			return err
		}
		entry = inserted
		return nil
	})
	if err != nil {
		return JournalEntry{}, err
	}
	s.recordPosted(ctx, entry)
	return entry, nil
}

// ListAccounts retrieves all chart of accounts entries.
func (s *Service) ListAccounts(ctx context.Context) ([]Account, error) {
	var accounts []Account
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		accounts, err = tx.ListAccounts(ctx)
		return err
	})
	return accounts, err
}

// ListJournalEntries retrieves all journal entries, newest first.
func (s *Service) ListJournalEntries(ctx context.Context) ([]JournalEntry, error) {
	var entries []JournalEntry
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		entries, err = tx.ListJournalEntries(ctx)
		return err
	})
	return entries, err
}

// GetJournalEntry retrieves one journal entry with its lines.
func (s *Service) GetJournalEntry(ctx context.Context, id int64) (JournalEntry, error) {
	var entry JournalEntry
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		got, lines, err := tx.GetJournalWithLines(ctx, id)
		if err != nil {
			return err
		}
		got.Lines = lines
		entry = got
		return nil
	})
	return entry, err
}

type stagedLine struct {
	accountID   int64
	side        Side
	amount      float64
	description string
}

// persistEntry asserts the balance invariant and writes header plus lines.
// An unbalanced set must never reach the store.
func (s *Service) persistEntry(ctx context.Context, tx TxRepository, date time.Time, description, reference string, staged []stagedLine) (JournalEntry, error) {
	if len(staged) == 0 {
		return JournalEntry{}, ErrInvalidAmount
	}
	var totalDebit, totalCredit float64
	lines := make([]JournalLine, 0, len(staged))
	for _, l := range staged {
		jl := JournalLine{AccountID: l.accountID, Description: l.description}
		if l.side == SideDebit {
			jl.Debit = l.amount
			totalDebit += l.amount
		} else {
			jl.Credit = l.amount
			totalCredit += l.amount
		}
		lines = append(lines, jl)
	}
	if math.Abs(totalDebit-totalCredit) > balanceTolerance {
		return JournalEntry{}, ErrUnbalanced
	}
	entry := JournalEntry{
		EntryDate:   date,
		Description: description,
		Reference:   reference,
		TotalDebit:  totalDebit,
		TotalCredit: totalCredit,
		Status:      EntryStatusPosted,
	}
	inserted, err := tx.InsertJournalEntry(ctx, entry)
	if err != nil {
		return JournalEntry{}, err
	}
	if err := tx.InsertJournalLines(ctx, inserted.ID, lines); err != nil {
		return JournalEntry{}, err
	}
	for i := range lines {
		lines[i].JournalEntryID = inserted.ID
	}
	inserted.Lines = lines
	return inserted, nil
}

func (s *Service) recordPosted(ctx context.Context, entry JournalEntry) {
	if s.metrics != nil {
		s.metrics.EntriesPosted.Inc()
	}
	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			Action:   "journal.post",
			Entity:   "journal_entry",
			EntityID: fmt.Sprintf("%d", entry.ID),
			Meta: map[string]any{
				"reference":   entry.Reference,
				"total_debit": entry.TotalDebit,
			},
			At: s.now(),
		})
	}
}

type vendorGross struct {
	vendorID int64
	gross    float64
}

// aggregateVendorGross sums vendor-sourced line amounts, preserving first
// appearance order so postings are deterministic.
func aggregateVendorGross(lines []SaleLine) []vendorGross {
	totals := make(map[int64]float64)
	var order []int64
	for _, line := range lines {
		if line.VendorID == nil {
			continue
		}
		id := *line.VendorID
		if _, seen := totals[id]; !seen {
			order = append(order, id)
		}
		totals[id] += line.Quantity * line.UnitPrice
	}
	out := make([]vendorGross, 0, len(order))
	for _, id := range order {
		if totals[id] <= 0 {
			continue
		}
		out = append(out, vendorGross{vendorID: id, gross: vendors.Round2(totals[id])})
	}
	return out
}

func saleDescription(in SaleInput) string {
	if in.Description != "" {
		return in.Description
	}
	return fmt.Sprintf("Sales invoice %s", in.Reference)
}
