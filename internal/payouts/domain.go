package payouts

import (
	"errors"
	"time"
)

// VendorPayout is the immutable record of one commission settlement.
// Corrections require a new payout record, never an update.
type VendorPayout struct {
	ID               int64
	VendorID         int64
	Reference        string
	GrossSales       float64
	CommissionRate   float64
	CommissionAmount float64
	PayableAmount    float64
	CreatedBy        int64
	CreatedAt        time.Time
}

// EntryTypeVendorPayout tags accounting_entries rows mirroring payouts.
const EntryTypeVendorPayout = "vendor_payout"

// AccountingEntry is the append-only audit mirror of a payout.
type AccountingEntry struct {
	ID               int64
	EntryType        string
	VendorID         int64
	PayoutID         int64
	GrossSales       float64
	CommissionRate   float64
	CommissionAmount float64
	PayableAmount    float64
	CreatedAt        time.Time
}

// ErrPayoutNotFound indicates no payout exists for the given vendor and id.
var ErrPayoutNotFound = errors.New("payouts: payout not found")
