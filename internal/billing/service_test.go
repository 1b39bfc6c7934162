package billing

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/meridian-pos/meridian-pos/internal/mailer"
	"github.com/meridian-pos/meridian-pos/internal/vendors"
)

type memoryBillingRepo struct {
	vendors       map[int64]*vendors.Vendor
	invoices      map[int64]*VendorInvoice
	vendorMonths  map[string]bool
	nextInvoiceID int64
}

func newMemoryBillingRepo() *memoryBillingRepo {
	return &memoryBillingRepo{
		vendors:      make(map[int64]*vendors.Vendor),
		invoices:     make(map[int64]*VendorInvoice),
		vendorMonths: make(map[string]bool),
	}
}

func (r *memoryBillingRepo) addVendor(v vendors.Vendor) {
	cp := v
	r.vendors[v.ID] = &cp
}

func (r *memoryBillingRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return fn(ctx, r)
}

func (r *memoryBillingRepo) ListBillableVendors(ctx context.Context, today time.Time) ([]vendors.Vendor, error) {
	var out []vendors.Vendor
	for _, v := range r.vendors {
		if v.MonthlyFee <= 0 {
			continue
		}
		if v.BillingStartDate != nil && v.BillingStartDate.After(today) {
			continue
		}
		if v.LastInvoiceDate != nil && sameMonth(*v.LastInvoiceDate, today) {
			continue
		}
		out = append(out, *v)
	}
	return out, nil
}

func (r *memoryBillingRepo) ListUnpaidInvoices(ctx context.Context) ([]VendorInvoice, error) {
	var out []VendorInvoice
	for _, inv := range r.invoices {
		if inv.Status == StatusUnpaid {
			out = append(out, r.joined(*inv))
		}
	}
	return out, nil
}

func (r *memoryBillingRepo) ListVendorInvoices(ctx context.Context, vendorID int64) ([]VendorInvoice, error) {
	var out []VendorInvoice
	for _, inv := range r.invoices {
		if inv.VendorID == vendorID {
			out = append(out, r.joined(*inv))
		}
	}
	return out, nil
}

func (r *memoryBillingRepo) joined(inv VendorInvoice) VendorInvoice {
	if v, ok := r.vendors[inv.VendorID]; ok {
		inv.VendorName = v.Name
		inv.VendorEmail = v.Email
	}
	return inv
}

func (r *memoryBillingRepo) GetVendor(ctx context.Context, id int64) (vendors.Vendor, error) {
	v, ok := r.vendors[id]
	if !ok {
		return vendors.Vendor{}, vendors.ErrVendorNotFound
	}
	return *v, nil
}

func (r *memoryBillingRepo) InsertInvoice(ctx context.Context, inv VendorInvoice, invoiceMonth time.Time) (VendorInvoice, error) {
	key := fmt.Sprintf("%d|%s", inv.VendorID, invoiceMonth.Format("2006-01"))
	if r.vendorMonths[key] {
		return VendorInvoice{}, ErrDuplicateInvoice
	}
	r.vendorMonths[key] = true
	r.nextInvoiceID++
	inv.ID = r.nextInvoiceID
	inv.CreatedAt = time.Now()
	cp := inv
	r.invoices[inv.ID] = &cp
	return inv, nil
}

func (r *memoryBillingRepo) SetVendorLastInvoiceDate(ctx context.Context, vendorID int64, date time.Time) error {
	r.vendors[vendorID].LastInvoiceDate = &date
	return nil
}

func (r *memoryBillingRepo) GetInvoiceForUpdate(ctx context.Context, id int64) (VendorInvoice, error) {
	inv, ok := r.invoices[id]
	if !ok {
		return VendorInvoice{}, ErrInvoiceNotFound
	}
	return r.joined(*inv), nil
}

func (r *memoryBillingRepo) AdvanceReminderStage(ctx context.Context, id int64, stage int) (bool, error) {
	inv, ok := r.invoices[id]
	if !ok || inv.Status != StatusUnpaid || inv.ReminderStage >= stage {
		return false, nil
	}
	inv.ReminderStage = stage
	return true, nil
}

func (r *memoryBillingRepo) MarkInvoicePaid(ctx context.Context, id int64, paidAt time.Time) (VendorInvoice, error) {
	inv := r.invoices[id]
	inv.Status = StatusPaid
	inv.PaidAt = &paidAt
	inv.ReminderStage = StageTerminal
	return r.joined(*inv), nil
}

func (r *memoryBillingRepo) VoidInvoice(ctx context.Context, id int64, reason string, at time.Time) (VendorInvoice, error) {
	inv := r.invoices[id]
	inv.Status = StatusVoid
	inv.VoidReason = &reason
	inv.VoidedAt = &at
	inv.ReminderStage = StageTerminal
	return r.joined(*inv), nil
}

func (r *memoryBillingRepo) SetVendorActive(ctx context.Context, vendorID int64, active bool) error {
	r.vendors[vendorID].AccountActive = active
	return nil
}

func (r *memoryBillingRepo) SetVendorBillingStart(ctx context.Context, vendorID int64, date *time.Time) error {
	r.vendors[vendorID].BillingStartDate = date
	return nil
}

type recordingMailer struct {
	sent []mailer.Message
}

func (m *recordingMailer) Send(ctx context.Context, msg mailer.Message) error {
	m.sent = append(m.sent, msg)
	return nil
}

type deniedLocker struct{}

func (deniedLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return false, nil
}

func (deniedLocker) Release(ctx context.Context, key string) error { return nil }

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func newBillingService(repo *memoryBillingRepo, mail mailer.Mailer) *Service {
	return NewService(repo, mail, nil, nil)
}

func TestDailyBillingIssuesInvoicesOnFirstOfMonth(t *testing.T) {
	repo := newMemoryBillingRepo()
	repo.addVendor(vendors.Vendor{ID: 7, Name: "Acme Crafts", Email: "acme@example.com", MonthlyFee: 49.90, AccountActive: true})
	mail := &recordingMailer{}
	svc := newBillingService(repo, mail)

	summary, err := svc.ProcessDailyVendorBilling(context.Background(), day(2026, time.March, 1))
	require.NoError(t, err)
	require.Equal(t, 1, summary.Issued)
	require.False(t, summary.Skipped)

	invoices, err := svc.ListVendorInvoices(context.Background(), 7)
	require.NoError(t, err)
	require.Len(t, invoices, 1)
	inv := invoices[0]
	require.Equal(t, "VF-202603-0007", inv.InvoiceNumber)
	require.Equal(t, StatusUnpaid, inv.Status)
	require.Equal(t, StageIssued, inv.ReminderStage)
	require.InDelta(t, 49.90, inv.FeeAmount, 1e-9)
	require.Equal(t, day(2026, time.March, 6), inv.DueDate)

	require.NotNil(t, repo.vendors[7].LastInvoiceDate)
	require.Len(t, mail.sent, 1)
	require.Equal(t, "acme@example.com", mail.sent[0].To)
	require.Contains(t, mail.sent[0].Body, "VF-202603-0007")
}

func TestDailyBillingIssuanceIsIdempotent(t *testing.T) {
	repo := newMemoryBillingRepo()
	repo.addVendor(vendors.Vendor{ID: 1, Name: "Acme", Email: "a@example.com", MonthlyFee: 10, AccountActive: true})
	svc := newBillingService(repo, &recordingMailer{})

	first, err := svc.ProcessDailyVendorBilling(context.Background(), day(2026, time.March, 1))
	require.NoError(t, err)
	require.Equal(t, 1, first.Issued)

	// The month guard on the vendor row and the uniqueness key both stop a
	// second invoice. Clear the guard so only the constraint is exercised.
	repo.vendors[1].LastInvoiceDate = nil
	second, err := svc.ProcessDailyVendorBilling(context.Background(), day(2026, time.March, 1))
	require.NoError(t, err)
	require.Zero(t, second.Issued)

	invoices, err := repo.ListVendorInvoices(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, invoices, 1)
}

func TestDailyBillingSkipsNonBillableVendors(t *testing.T) {
	repo := newMemoryBillingRepo()
	future := day(2026, time.April, 15)
	repo.addVendor(vendors.Vendor{ID: 1, Name: "No Fee", Email: "n@example.com", MonthlyFee: 0, AccountActive: true})
	repo.addVendor(vendors.Vendor{ID: 2, Name: "Not Started", Email: "s@example.com", MonthlyFee: 20, BillingStartDate: &future, AccountActive: true})
	svc := newBillingService(repo, &recordingMailer{})

	summary, err := svc.ProcessDailyVendorBilling(context.Background(), day(2026, time.March, 1))
	require.NoError(t, err)
	require.Zero(t, summary.Issued)
}

func TestDailyBillingNoIssuanceMidMonth(t *testing.T) {
	repo := newMemoryBillingRepo()
	repo.addVendor(vendors.Vendor{ID: 1, Name: "Acme", Email: "a@example.com", MonthlyFee: 10, AccountActive: true})
	svc := newBillingService(repo, &recordingMailer{})

	summary, err := svc.ProcessDailyVendorBilling(context.Background(), day(2026, time.March, 15))
	require.NoError(t, err)
	require.Zero(t, summary.Issued)
}

func seedUnpaidInvoice(t *testing.T, repo *memoryBillingRepo, vendorID int64, issuedAt time.Time) VendorInvoice {
	t.Helper()
	inv, err := repo.InsertInvoice(context.Background(), VendorInvoice{
		VendorID:      vendorID,
		InvoiceNumber: invoiceNumber(vendorID, monthStart(issuedAt)),
		FeeAmount:     25,
		Status:        StatusUnpaid,
		IssuedAt:      issuedAt,
		DueDate:       issuedAt.AddDate(0, 0, dueInDays),
	}, monthStart(issuedAt))
	require.NoError(t, err)
	return inv
}

func TestEscalationWalksStagesDayByDay(t *testing.T) {
	repo := newMemoryBillingRepo()
	repo.addVendor(vendors.Vendor{ID: 3, Name: "Slowpay", Email: "slow@example.com", MonthlyFee: 25, AccountActive: true})
	inv := seedUnpaidInvoice(t, repo, 3, day(2026, time.March, 1))
	mail := &recordingMailer{}
	svc := newBillingService(repo, mail)

	// day 1 after issue, nothing happens
	summary, err := svc.ProcessDailyVendorBilling(context.Background(), day(2026, time.March, 2))
	require.NoError(t, err)
	require.Zero(t, summary.RemindersSent)
	require.Equal(t, StageIssued, repo.invoices[inv.ID].ReminderStage)

	// day 2, first reminder
	summary, err = svc.ProcessDailyVendorBilling(context.Background(), day(2026, time.March, 3))
	require.NoError(t, err)
	require.Equal(t, 1, summary.RemindersSent)
	require.Equal(t, StageFirstReminder, repo.invoices[inv.ID].ReminderStage)

	// rerunning the same day sends nothing twice
	summary, err = svc.ProcessDailyVendorBilling(context.Background(), day(2026, time.March, 3))
	require.NoError(t, err)
	require.Zero(t, summary.RemindersSent)
	require.Equal(t, StageFirstReminder, repo.invoices[inv.ID].ReminderStage)
	require.Len(t, mail.sent, 1)

	// day 3, stage holds
	summary, err = svc.ProcessDailyVendorBilling(context.Background(), day(2026, time.March, 4))
	require.NoError(t, err)
	require.Zero(t, summary.RemindersSent)

	// day 4, final reminder
	summary, err = svc.ProcessDailyVendorBilling(context.Background(), day(2026, time.March, 5))
	require.NoError(t, err)
	require.Equal(t, 1, summary.RemindersSent)
	require.Equal(t, StageFinalReminder, repo.invoices[inv.ID].ReminderStage)

	// day 5, vendor disabled
	summary, err = svc.ProcessDailyVendorBilling(context.Background(), day(2026, time.March, 6))
	require.NoError(t, err)
	require.Equal(t, 1, summary.VendorsDisabled)
	require.Equal(t, StageDisabled, repo.invoices[inv.ID].ReminderStage)
	require.False(t, repo.vendors[3].AccountActive)

	// fully escalated, further passes are quiet
	summary, err = svc.ProcessDailyVendorBilling(context.Background(), day(2026, time.March, 10))
	require.NoError(t, err)
	require.Zero(t, summary.RemindersSent)
	require.Zero(t, summary.VendorsDisabled)

	require.Len(t, mail.sent, 3)
	require.Contains(t, mail.sent[0].Subject, "reminder")
	require.Contains(t, strings.ToLower(mail.sent[1].Subject), "final")
	require.Contains(t, strings.ToLower(mail.sent[2].Subject), "disabled")
}

func TestEscalationAdvancesOneStagePerPass(t *testing.T) {
	repo := newMemoryBillingRepo()
	repo.addVendor(vendors.Vendor{ID: 4, Name: "Backlog", Email: "b@example.com", MonthlyFee: 25, AccountActive: true})
	inv := seedUnpaidInvoice(t, repo, 4, day(2026, time.February, 1))
	svc := newBillingService(repo, &recordingMailer{})

	// 30 days overdue, yet each pass moves exactly one stage
	run := func() {
		_, err := svc.ProcessDailyVendorBilling(context.Background(), day(2026, time.March, 3))
		require.NoError(t, err)
	}
	run()
	require.Equal(t, StageFirstReminder, repo.invoices[inv.ID].ReminderStage)
	require.True(t, repo.vendors[4].AccountActive)
	run()
	require.Equal(t, StageFinalReminder, repo.invoices[inv.ID].ReminderStage)
	require.True(t, repo.vendors[4].AccountActive)
	run()
	require.Equal(t, StageDisabled, repo.invoices[inv.ID].ReminderStage)
	require.False(t, repo.vendors[4].AccountActive)
}

func TestDailyBillingSkipsWhenLeaseHeld(t *testing.T) {
	repo := newMemoryBillingRepo()
	repo.addVendor(vendors.Vendor{ID: 1, Name: "Acme", Email: "a@example.com", MonthlyFee: 10, AccountActive: true})
	svc := newBillingService(repo, &recordingMailer{}).WithLocker(deniedLocker{}, time.Minute)

	summary, err := svc.ProcessDailyVendorBilling(context.Background(), day(2026, time.March, 1))
	require.NoError(t, err)
	require.True(t, summary.Skipped)
	require.Zero(t, summary.Issued)
	require.Empty(t, repo.invoices)
}

func TestMarkPaidSettlesAndReactivates(t *testing.T) {
	repo := newMemoryBillingRepo()
	repo.addVendor(vendors.Vendor{ID: 5, Name: "Comeback", Email: "c@example.com", MonthlyFee: 25, AccountActive: false})
	inv := seedUnpaidInvoice(t, repo, 5, day(2026, time.March, 1))
	repo.invoices[inv.ID].ReminderStage = StageDisabled
	svc := newBillingService(repo, nil)

	paid, err := svc.MarkPaid(context.Background(), 5, inv.ID, 42)
	require.NoError(t, err)
	require.Equal(t, StatusPaid, paid.Status)
	require.NotNil(t, paid.PaidAt)
	require.Equal(t, StageTerminal, paid.ReminderStage)
	require.True(t, repo.vendors[5].AccountActive)

	// paying again is a no-op
	again, err := svc.MarkPaid(context.Background(), 5, inv.ID, 42)
	require.NoError(t, err)
	require.Equal(t, paid.PaidAt, again.PaidAt)
}

func TestMarkPaidRejectsVoidAndForeignInvoices(t *testing.T) {
	repo := newMemoryBillingRepo()
	repo.addVendor(vendors.Vendor{ID: 1, Name: "A", Email: "a@example.com", MonthlyFee: 25, AccountActive: true})
	inv := seedUnpaidInvoice(t, repo, 1, day(2026, time.March, 1))
	svc := newBillingService(repo, nil)

	_, err := svc.MarkPaid(context.Background(), 2, inv.ID, 0)
	require.ErrorIs(t, err, ErrInvoiceNotFound)

	_, err = svc.VoidInvoice(context.Background(), 1, inv.ID, 0, "billing error")
	require.NoError(t, err)
	_, err = svc.MarkPaid(context.Background(), 1, inv.ID, 0)
	require.ErrorIs(t, err, ErrAlreadyTerminal)
}

func TestVoidInvoiceTerminalRules(t *testing.T) {
	repo := newMemoryBillingRepo()
	repo.addVendor(vendors.Vendor{ID: 1, Name: "A", Email: "a@example.com", MonthlyFee: 25, AccountActive: true})
	inv := seedUnpaidInvoice(t, repo, 1, day(2026, time.March, 1))
	svc := newBillingService(repo, nil)

	voided, err := svc.VoidInvoice(context.Background(), 1, inv.ID, 0, "duplicate charge")
	require.NoError(t, err)
	require.Equal(t, StatusVoid, voided.Status)
	require.NotNil(t, voided.VoidReason)
	require.Equal(t, "duplicate charge", *voided.VoidReason)

	// voiding the void is a no-op
	again, err := svc.VoidInvoice(context.Background(), 1, inv.ID, 0, "other reason")
	require.NoError(t, err)
	require.Equal(t, "duplicate charge", *again.VoidReason)

	paidInv := seedUnpaidInvoice(t, repo, 1, day(2026, time.April, 1))
	_, err = svc.MarkPaid(context.Background(), 1, paidInv.ID, 0)
	require.NoError(t, err)
	_, err = svc.VoidInvoice(context.Background(), 1, paidInv.ID, 0, "too late")
	require.ErrorIs(t, err, ErrAlreadyTerminal)
}

func TestVoidedInvoiceExcludedFromEscalation(t *testing.T) {
	repo := newMemoryBillingRepo()
	repo.addVendor(vendors.Vendor{ID: 1, Name: "A", Email: "a@example.com", MonthlyFee: 25, AccountActive: true})
	inv := seedUnpaidInvoice(t, repo, 1, day(2026, time.March, 1))
	svc := newBillingService(repo, &recordingMailer{})

	_, err := svc.VoidInvoice(context.Background(), 1, inv.ID, 0, "waived")
	require.NoError(t, err)

	summary, err := svc.ProcessDailyVendorBilling(context.Background(), day(2026, time.March, 20))
	require.NoError(t, err)
	require.Zero(t, summary.RemindersSent)
	require.Zero(t, summary.VendorsDisabled)
	require.True(t, repo.vendors[1].AccountActive)
}

func TestReactivateVendorAccount(t *testing.T) {
	repo := newMemoryBillingRepo()
	repo.addVendor(vendors.Vendor{ID: 9, Name: "Paused", Email: "p@example.com", MonthlyFee: 25, AccountActive: false})
	svc := newBillingService(repo, nil)

	start := day(2026, time.May, 1)
	require.NoError(t, svc.ReactivateVendorAccount(context.Background(), 9, 42, &start))
	require.True(t, repo.vendors[9].AccountActive)
	require.NotNil(t, repo.vendors[9].BillingStartDate)
	require.Equal(t, start, *repo.vendors[9].BillingStartDate)

	require.ErrorIs(t, svc.ReactivateVendorAccount(context.Background(), 99, 42, nil), vendors.ErrVendorNotFound)
}

func TestDaysSinceFloorsPartialDays(t *testing.T) {
	issued := time.Date(2026, time.March, 1, 23, 50, 0, 0, time.UTC)
	require.Equal(t, 0, daysSince(issued, time.Date(2026, time.March, 1, 23, 59, 0, 0, time.UTC)))
	require.Equal(t, 1, daysSince(issued, time.Date(2026, time.March, 2, 0, 5, 0, 0, time.UTC)))
	require.Equal(t, 5, daysSince(issued, day(2026, time.March, 6)))
}
