package billing

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-pos/meridian-pos/internal/platform/db"
	"github.com/meridian-pos/meridian-pos/internal/vendors"
)

// Repository persists vendor fee invoices.
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
		return errors.New("billing repository not initialised")
	}
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{tx: tx})
	})
}

const billableVendorColumns = `id, name, email, commission_rate, monthly_fee, billing_start_date, last_invoice_date, account_active, created_at, updated_at`

// ListBillableVendors returns vendors with a positive monthly fee whose
// billing has started and who have no invoice for the current month yet.
// The month check here only trims the candidate set; the unique constraint
// on (vendor_id, invoice_month) is what actually prevents duplicates.
func (r *Repository) ListBillableVendors(ctx context.Context, today time.Time) ([]vendors.Vendor, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+billableVendorColumns+` FROM vendors
WHERE monthly_fee > 0
  AND (billing_start_date IS NULL OR billing_start_date <= $1)
  AND (last_invoice_date IS NULL OR date_trunc('month', last_invoice_date) <> date_trunc('month', $1::timestamptz))
ORDER BY id`, today)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []vendors.Vendor
	for rows.Next() {
		var v vendors.Vendor
		var rate *float64
		if err := rows.Scan(&v.ID, &v.Name, &v.Email, &rate, &v.MonthlyFee, &v.BillingStartDate, &v.LastInvoiceDate, &v.AccountActive, &v.CreatedAt, &v.UpdatedAt); err != nil {
			return nil, err
		}
		v.CommissionRate = vendors.DefaultCommissionRate
		if rate != nil {
			v.CommissionRate = *rate
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

const invoiceColumns = `i.id, i.vendor_id, v.name, v.email, i.invoice_number, i.fee_amount, i.status, i.issued_at, i.due_date, i.paid_at, i.reminder_stage, i.metadata, i.void_reason, i.voided_at, i.created_at`

func scanInvoice(row pgx.Row) (VendorInvoice, error) {
	var inv VendorInvoice
	var metaJSON []byte
	err := row.Scan(&inv.ID, &inv.VendorID, &inv.VendorName, &inv.VendorEmail, &inv.InvoiceNumber, &inv.FeeAmount,
		&inv.Status, &inv.IssuedAt, &inv.DueDate, &inv.PaidAt, &inv.ReminderStage, &metaJSON, &inv.VoidReason, &inv.VoidedAt, &inv.CreatedAt)
	if err != nil {
		return VendorInvoice{}, err
	}
	if len(metaJSON) > 0 {
		if err := json.Unmarshal(metaJSON, &inv.Metadata); err != nil {
			return VendorInvoice{}, err
		}
	}
	return inv, nil
}

// ListUnpaidInvoices returns every open invoice joined with vendor contact
// details, oldest first so escalation handles long-overdue invoices before
// fresh ones.
func (r *Repository) ListUnpaidInvoices(ctx context.Context) ([]VendorInvoice, error) {
	return r.listInvoices(ctx, `SELECT `+invoiceColumns+` FROM vendor_invoices i
JOIN vendors v ON v.id = i.vendor_id
WHERE i.status = 'unpaid' ORDER BY i.issued_at, i.id`)
}

// ListVendorInvoices returns all invoices for one vendor, newest first.
func (r *Repository) ListVendorInvoices(ctx context.Context, vendorID int64) ([]VendorInvoice, error) {
	return r.listInvoices(ctx, `SELECT `+invoiceColumns+` FROM vendor_invoices i
JOIN vendors v ON v.id = i.vendor_id
WHERE i.vendor_id = $1 ORDER BY i.id DESC`, vendorID)
}

func (r *Repository) listInvoices(ctx context.Context, sql string, args ...any) ([]VendorInvoice, error) {
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []VendorInvoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, inv)
	}
	return out, rows.Err()
}

func (r *txRepository) GetVendor(ctx context.Context, id int64) (vendors.Vendor, error) {
	var v vendors.Vendor
	var rate *float64
	err := r.tx.QueryRow(ctx, `SELECT `+billableVendorColumns+` FROM vendors WHERE id=$1`, id).
		Scan(&v.ID, &v.Name, &v.Email, &rate, &v.MonthlyFee, &v.BillingStartDate, &v.LastInvoiceDate, &v.AccountActive, &v.CreatedAt, &v.UpdatedAt)
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

// InsertInvoice creates the monthly invoice. A second insert for the same
// vendor and month trips uq_vendor_invoices_vendor_month and surfaces as
// ErrDuplicateInvoice.
func (r *txRepository) InsertInvoice(ctx context.Context, inv VendorInvoice, invoiceMonth time.Time) (VendorInvoice, error) {
	metaJSON, err := json.Marshal(inv.Metadata)
	if err != nil {
		return VendorInvoice{}, err
	}
	row := r.tx.QueryRow(ctx, `INSERT INTO vendor_invoices (vendor_id, invoice_number, fee_amount, status, issued_at, due_date, reminder_stage, invoice_month, metadata)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9) RETURNING id, created_at`,
		inv.VendorID, inv.InvoiceNumber, inv.FeeAmount, inv.Status, inv.IssuedAt, inv.DueDate, inv.ReminderStage, invoiceMonth, metaJSON)
	if err := row.Scan(&inv.ID, &inv.CreatedAt); err != nil {
		return VendorInvoice{}, translateInsertError(err)
	}
	return inv, nil
}

const duplicateInvoiceConstraint = "uq_vendor_invoices_vendor_month"

// translateInsertError maps the vendor-month uniqueness violation to
// ErrDuplicateInvoice so concurrent issuance passes skip instead of fail.
func translateInsertError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.ConstraintName == duplicateInvoiceConstraint {
		return ErrDuplicateInvoice
	}
	return err
}

func (r *txRepository) SetVendorLastInvoiceDate(ctx context.Context, vendorID int64, date time.Time) error {
	_, err := r.tx.Exec(ctx, `UPDATE vendors SET last_invoice_date=$2, updated_at=NOW() WHERE id=$1`, vendorID, date)
	return err
}

func (r *txRepository) GetInvoiceForUpdate(ctx context.Context, id int64) (VendorInvoice, error) {
	inv, err := scanInvoice(r.tx.QueryRow(ctx, `SELECT `+invoiceColumns+` FROM vendor_invoices i
JOIN vendors v ON v.id = i.vendor_id
WHERE i.id = $1 FOR UPDATE OF i`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return VendorInvoice{}, ErrInvoiceNotFound
		}
		return VendorInvoice{}, err
	}
	return inv, nil
}

// AdvanceReminderStage moves an unpaid invoice to the given stage. The
// guard keeps the stage monotonic, so a concurrent pass that already
// advanced the invoice makes this a no-op.
func (r *txRepository) AdvanceReminderStage(ctx context.Context, id int64, stage int) (bool, error) {
	tag, err := r.tx.Exec(ctx, `UPDATE vendor_invoices SET reminder_stage=$2
WHERE id=$1 AND status='unpaid' AND reminder_stage < $2`, id, stage)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *txRepository) MarkInvoicePaid(ctx context.Context, id int64, paidAt time.Time) (VendorInvoice, error) {
	_, err := r.tx.Exec(ctx, `UPDATE vendor_invoices SET status='paid', paid_at=$2, reminder_stage=$3
WHERE id=$1 AND status='unpaid'`, id, paidAt, StageTerminal)
	if err != nil {
		return VendorInvoice{}, err
	}
	return r.GetInvoiceForUpdate(ctx, id)
}

func (r *txRepository) VoidInvoice(ctx context.Context, id int64, reason string, at time.Time) (VendorInvoice, error) {
	_, err := r.tx.Exec(ctx, `UPDATE vendor_invoices SET status='void', void_reason=$2, voided_at=$3, reminder_stage=$4
WHERE id=$1 AND status='unpaid'`, id, reason, at, StageTerminal)
	if err != nil {
		return VendorInvoice{}, err
	}
	return r.GetInvoiceForUpdate(ctx, id)
}

func (r *txRepository) SetVendorActive(ctx context.Context, vendorID int64, active bool) error {
	_, err := r.tx.Exec(ctx, `UPDATE vendors SET account_active=$2, updated_at=NOW() WHERE id=$1`, vendorID, active)
	return err
}

func (r *txRepository) SetVendorBillingStart(ctx context.Context, vendorID int64, date *time.Time) error {
	_, err := r.tx.Exec(ctx, `UPDATE vendors SET billing_start_date=$2, updated_at=NOW() WHERE id=$1`, vendorID, date)
	return err
}
