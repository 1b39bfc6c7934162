package payouts

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-pos/meridian-pos/internal/platform/db"
	"github.com/meridian-pos/meridian-pos/internal/vendors"
)

// Repository persists vendor payouts and their audit mirror.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type txRepository struct {
	tx pgx.Tx
}

// WithTx executes fn within a repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	if r == nil {
		return errors.New("payouts repository not initialised")
	}
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{tx: tx})
	})
}

func (r *txRepository) GetVendor(ctx context.Context, id int64) (vendors.Vendor, error) {
	var v vendors.Vendor
	var rate *float64
	err := r.tx.QueryRow(ctx, `SELECT id, name, email, commission_rate, account_active FROM vendors WHERE id=$1`, id).
		Scan(&v.ID, &v.Name, &v.Email, &rate, &v.AccountActive)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return vendors.Vendor{}, vendors.ErrVendorNotFound
		}
		return vendors.Vendor{}, err
	}
	v.CommissionRate = vendors.DefaultCommissionRate
	if rate != nil {
		v.CommissionRate = *rate
	}
	return v, nil
}

// SumPaidVendorSales totals price*quantity across order items whose product
// belongs to the vendor and whose parent order is paid.
func (r *txRepository) SumPaidVendorSales(ctx context.Context, vendorID int64) (float64, error) {
	var gross float64
	err := r.tx.QueryRow(ctx, `SELECT COALESCE(SUM(oi.unit_price * oi.quantity), 0)
FROM order_items oi
JOIN orders o ON o.id = oi.order_id
JOIN products p ON p.id = oi.product_id
WHERE p.vendor_id = $1 AND o.status = 'paid'`, vendorID).Scan(&gross)
	return gross, err
}

func (r *txRepository) InsertPayout(ctx context.Context, payout VendorPayout) (VendorPayout, error) {
	row := r.tx.QueryRow(ctx, `INSERT INTO vendor_payouts (vendor_id, reference, gross_sales, commission_rate, commission_amount, payable_amount, created_by)
VALUES ($1,$2,$3,$4,$5,$6,$7) RETURNING id, created_at`,
		payout.VendorID, payout.Reference, payout.GrossSales, payout.CommissionRate, payout.CommissionAmount, payout.PayableAmount, payout.CreatedBy)
	if err := row.Scan(&payout.ID, &payout.CreatedAt); err != nil {
		return VendorPayout{}, err
	}
	return payout, nil
}

// InsertAccountingEntry writes the append-only audit mirror row.
func (r *Repository) InsertAccountingEntry(ctx context.Context, entry AccountingEntry) error {
	_, err := r.pool.Exec(ctx, `INSERT INTO accounting_entries (entry_type, vendor_id, payout_id, gross_sales, commission_rate, commission_amount, payable_amount)
VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		entry.EntryType, entry.VendorID, entry.PayoutID, entry.GrossSales, entry.CommissionRate, entry.CommissionAmount, entry.PayableAmount)
	return err
}

const payoutColumns = `id, vendor_id, reference, gross_sales, commission_rate, commission_amount, payable_amount, created_by, created_at`

// ListPayouts returns all payouts for one vendor, newest first.
func (r *Repository) ListPayouts(ctx context.Context, vendorID int64) ([]VendorPayout, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+payoutColumns+` FROM vendor_payouts WHERE vendor_id=$1 ORDER BY id DESC`, vendorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []VendorPayout
	for rows.Next() {
		var p VendorPayout
		if err := rows.Scan(&p.ID, &p.VendorID, &p.Reference, &p.GrossSales, &p.CommissionRate, &p.CommissionAmount, &p.PayableAmount, &p.CreatedBy, &p.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// GetPayout returns one payout scoped to a vendor.
func (r *Repository) GetPayout(ctx context.Context, vendorID, payoutID int64) (VendorPayout, error) {
	var p VendorPayout
	err := r.pool.QueryRow(ctx, `SELECT `+payoutColumns+` FROM vendor_payouts WHERE id=$1 AND vendor_id=$2`, payoutID, vendorID).
		Scan(&p.ID, &p.VendorID, &p.Reference, &p.GrossSales, &p.CommissionRate, &p.CommissionAmount, &p.PayableAmount, &p.CreatedBy, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return VendorPayout{}, ErrPayoutNotFound
		}
		return VendorPayout{}, err
	}
	return p, nil
}
