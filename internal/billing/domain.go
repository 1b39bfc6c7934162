package billing

import (
	"errors"
	"fmt"
	"time"
)

// InvoiceStatus enumerates vendor fee invoice lifecycle values. paid and
// void are terminal and mutually exclusive.
type InvoiceStatus string

const (
	StatusUnpaid InvoiceStatus = "unpaid"
	StatusPaid   InvoiceStatus = "paid"
	StatusVoid   InvoiceStatus = "void"
)

// Reminder stages. The stage only ever moves forward, one step per daily
// pass, and jumps to StageTerminal when the invoice is paid or voided.
const (
	StageIssued        = 0
	StageFirstReminder = 1
	StageFinalReminder = 2
	StageDisabled      = 3
	StageTerminal      = 99
)

// Dunning schedule, in whole days since issuance.
const (
	dueInDays              = 5
	firstReminderAfterDays = 2
	finalReminderAfterDays = 4
	disableAfterDays       = 5
)

// VendorInvoice is one monthly fee invoice. VendorName and VendorEmail are
// joined in by list queries for notification purposes.
type VendorInvoice struct {
	ID            int64
	VendorID      int64
	VendorName    string
	VendorEmail   string
	InvoiceNumber string
	FeeAmount     float64
	Status        InvoiceStatus
	IssuedAt      time.Time
	DueDate       time.Time
	PaidAt        *time.Time
	ReminderStage int
	Metadata      map[string]string
	VoidReason    *string
	VoidedAt      *time.Time
	CreatedAt     time.Time
}

// RunSummary reports what one daily billing pass did.
type RunSummary struct {
	RunDate         time.Time
	Skipped         bool
	Issued          int
	RemindersSent   int
	VendorsDisabled int
}

var (
	// ErrInvoiceNotFound indicates no invoice for the given vendor and id.
	ErrInvoiceNotFound = errors.New("billing: invoice not found")
	// ErrAlreadyTerminal indicates a paid invoice being voided or a void
	// invoice being paid.
	ErrAlreadyTerminal = errors.New("billing: invoice already terminal")
	// ErrDuplicateInvoice indicates an invoice already exists for the
	// vendor and month. Enforced by a unique constraint inside the insert
	// transaction, not by the read-side month comparison.
	ErrDuplicateInvoice = errors.New("billing: invoice already issued for this month")
)

// invoiceNumber derives the deterministic monthly invoice number.
func invoiceNumber(vendorID int64, month time.Time) string {
	return fmt.Sprintf("VF-%s-%04d", month.Format("200601"), vendorID)
}

// dateOnly truncates a timestamp to midnight UTC.
func dateOnly(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// daysSince counts whole days from issuance to today, flooring partial days.
func daysSince(issuedAt, today time.Time) int {
	return int(dateOnly(today).Sub(dateOnly(issuedAt)).Hours() / 24)
}

// sameMonth reports whether two dates fall in the same calendar month.
func sameMonth(a, b time.Time) bool {
	ay, am, _ := a.UTC().Date()
	by, bm, _ := b.UTC().Date()
	return ay == by && am == bm
}

// monthStart normalises a date to the first of its month, the value stored
// in the invoice_month uniqueness column.
func monthStart(t time.Time) time.Time {
	y, m, _ := t.UTC().Date()
	return time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)
}
