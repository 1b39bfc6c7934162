package payouts

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/meridian-pos/meridian-pos/internal/mailer"
	"github.com/meridian-pos/meridian-pos/internal/vendors"
)

type memoryPayoutRepo struct {
	vendors   map[int64]vendors.Vendor
	paidSales map[int64]float64
	payouts   map[int64]VendorPayout
	mirrors   []AccountingEntry
	mirrorErr error
	nextID    int64
}

func newMemoryPayoutRepo() *memoryPayoutRepo {
	return &memoryPayoutRepo{
		vendors:   make(map[int64]vendors.Vendor),
		paidSales: make(map[int64]float64),
		payouts:   make(map[int64]VendorPayout),
	}
}

func (r *memoryPayoutRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return fn(ctx, r)
}

func (r *memoryPayoutRepo) GetVendor(ctx context.Context, id int64) (vendors.Vendor, error) {
	v, ok := r.vendors[id]
	if !ok {
		return vendors.Vendor{}, vendors.ErrVendorNotFound
	}
	return v, nil
}

func (r *memoryPayoutRepo) SumPaidVendorSales(ctx context.Context, vendorID int64) (float64, error) {
	return r.paidSales[vendorID], nil
}

func (r *memoryPayoutRepo) InsertPayout(ctx context.Context, payout VendorPayout) (VendorPayout, error) {
	r.nextID++
	payout.ID = r.nextID
	payout.CreatedAt = time.Now()
	r.payouts[payout.ID] = payout
	return payout, nil
}

func (r *memoryPayoutRepo) InsertAccountingEntry(ctx context.Context, entry AccountingEntry) error {
	if r.mirrorErr != nil {
		return r.mirrorErr
	}
	r.mirrors = append(r.mirrors, entry)
	return nil
}

func (r *memoryPayoutRepo) ListPayouts(ctx context.Context, vendorID int64) ([]VendorPayout, error) {
	var out []VendorPayout
	for _, p := range r.payouts {
		if p.VendorID == vendorID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *memoryPayoutRepo) GetPayout(ctx context.Context, vendorID, payoutID int64) (VendorPayout, error) {
	p, ok := r.payouts[payoutID]
	if !ok || p.VendorID != vendorID {
		return VendorPayout{}, ErrPayoutNotFound
	}
	return p, nil
}

type recordingMailer struct {
	sent []mailer.Message
	err  error
}

func (m *recordingMailer) Send(ctx context.Context, msg mailer.Message) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, msg)
	return nil
}

func TestGeneratePayoutSplitsGross(t *testing.T) {
	repo := newMemoryPayoutRepo()
	repo.vendors[1] = vendors.Vendor{ID: 1, Name: "Acme Crafts", Email: "acme@example.com", CommissionRate: 0.15}
	repo.paidSales[1] = 1000
	mail := &recordingMailer{}
	svc := NewService(repo, mail, nil, nil)

	payout, err := svc.GeneratePayout(context.Background(), 1, 42)
	require.NoError(t, err)
	require.InDelta(t, 1000, payout.GrossSales, 1e-9)
	require.InDelta(t, 150, payout.CommissionAmount, 1e-9)
	require.InDelta(t, 850, payout.PayableAmount, 1e-9)
	require.Equal(t, int64(42), payout.CreatedBy)

	// audit mirror row shadows the payout 1:1
	require.Len(t, repo.mirrors, 1)
	mirror := repo.mirrors[0]
	require.Equal(t, EntryTypeVendorPayout, mirror.EntryType)
	require.Equal(t, payout.ID, mirror.PayoutID)
	require.InDelta(t, payout.GrossSales, mirror.GrossSales, 1e-9)
	require.InDelta(t, payout.PayableAmount, mirror.PayableAmount, 1e-9)

	require.Len(t, mail.sent, 1)
	require.Equal(t, "acme@example.com", mail.sent[0].To)
}

func TestGeneratePayoutVendorNotFound(t *testing.T) {
	svc := NewService(newMemoryPayoutRepo(), nil, nil, nil)
	_, err := svc.GeneratePayout(context.Background(), 99, 0)
	require.ErrorIs(t, err, vendors.ErrVendorNotFound)
}

func TestGeneratePayoutSurvivesMirrorFailure(t *testing.T) {
	repo := newMemoryPayoutRepo()
	repo.vendors[1] = vendors.Vendor{ID: 1, Name: "Acme", Email: "a@example.com", CommissionRate: 0.10}
	repo.paidSales[1] = 500
	repo.mirrorErr = errors.New("disk full")
	svc := NewService(repo, &recordingMailer{}, nil, nil)

	payout, err := svc.GeneratePayout(context.Background(), 1, 0)
	require.NoError(t, err)
	require.NotZero(t, payout.ID)
	require.Empty(t, repo.mirrors)
}

func TestGeneratePayoutSurvivesMailFailure(t *testing.T) {
	repo := newMemoryPayoutRepo()
	repo.vendors[1] = vendors.Vendor{ID: 1, Name: "Acme", Email: "a@example.com", CommissionRate: 0.10}
	repo.paidSales[1] = 500
	svc := NewService(repo, &recordingMailer{err: errors.New("smtp down")}, nil, nil)

	payout, err := svc.GeneratePayout(context.Background(), 1, 0)
	require.NoError(t, err)
	require.NotZero(t, payout.ID)
}

func TestGeneratePayoutIsNotIdempotent(t *testing.T) {
	// Repeated calls snapshot the same paid sales into separate records.
	repo := newMemoryPayoutRepo()
	repo.vendors[1] = vendors.Vendor{ID: 1, Name: "Acme", CommissionRate: 0.10}
	repo.paidSales[1] = 300
	svc := NewService(repo, nil, nil, nil)

	first, err := svc.GeneratePayout(context.Background(), 1, 0)
	require.NoError(t, err)
	second, err := svc.GeneratePayout(context.Background(), 1, 0)
	require.NoError(t, err)
	require.NotEqual(t, first.ID, second.ID)
	require.InDelta(t, first.GrossSales, second.GrossSales, 1e-9)
}

func TestGetPayoutScopedToVendor(t *testing.T) {
	repo := newMemoryPayoutRepo()
	repo.vendors[1] = vendors.Vendor{ID: 1, CommissionRate: 0.10}
	repo.vendors[2] = vendors.Vendor{ID: 2, CommissionRate: 0.10}
	repo.paidSales[1] = 100
	svc := NewService(repo, nil, nil, nil)

	payout, err := svc.GeneratePayout(context.Background(), 1, 0)
	require.NoError(t, err)

	_, err = svc.Get(context.Background(), 2, payout.ID)
	require.ErrorIs(t, err, ErrPayoutNotFound)

	got, err := svc.Get(context.Background(), 1, payout.ID)
	require.NoError(t, err)
	require.Equal(t, payout.ID, got.ID)
}
