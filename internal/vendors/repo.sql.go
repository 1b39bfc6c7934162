package vendors

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository persists vendor master data.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const vendorColumns = `id, name, email, commission_rate, monthly_fee, billing_start_date, last_invoice_date, account_active, created_at, updated_at`

func scanVendor(row pgx.Row) (Vendor, error) {
	var v Vendor
	var rate *float64
	err := row.Scan(&v.ID, &v.Name, &v.Email, &rate, &v.MonthlyFee, &v.BillingStartDate, &v.LastInvoiceDate, &v.AccountActive, &v.CreatedAt, &v.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Vendor{}, ErrVendorNotFound
		}
		return Vendor{}, err
	}
	v.CommissionRate = DefaultCommissionRate
	if rate != nil {
		v.CommissionRate = *rate
	}
	return v, nil
}

// GetVendor loads one vendor by id.
func (r *Repository) GetVendor(ctx context.Context, id int64) (Vendor, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+vendorColumns+` FROM vendors WHERE id=$1`, id)
	return scanVendor(row)
}

// ListVendors returns all vendors ordered by name.
func (r *Repository) ListVendors(ctx context.Context) ([]Vendor, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+vendorColumns+` FROM vendors ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Vendor
	for rows.Next() {
		v, err := scanVendor(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// UpdateVendorTerms applies admin edits to commission rate and monthly fee.
func (r *Repository) UpdateVendorTerms(ctx context.Context, id int64, in UpdateVendorInput) (Vendor, error) {
	row := r.pool.QueryRow(ctx, `UPDATE vendors
SET commission_rate = COALESCE($2, commission_rate),
    monthly_fee     = COALESCE($3, monthly_fee),
    updated_at      = NOW()
WHERE id = $1
RETURNING `+vendorColumns, id, in.CommissionRate, in.MonthlyFee)
	return scanVendor(row)
}
