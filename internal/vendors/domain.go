package vendors

import (
	"errors"
	"time"
)

// DefaultCommissionRate applies when a vendor has no explicit rate.
const DefaultCommissionRate = 0.10

// Vendor models a consignment vendor supplying products to the store.
type Vendor struct {
	ID               int64
	Name             string
	Email            string
	CommissionRate   float64
	MonthlyFee       float64
	BillingStartDate *time.Time
	LastInvoiceDate  *time.Time
	AccountActive    bool
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

var (
	// ErrVendorNotFound indicates no vendor exists for the given id.
	ErrVendorNotFound = errors.New("vendors: vendor not found")
	// ErrInvalidAmount indicates a negative or non-finite amount or rate.
	ErrInvalidAmount = errors.New("vendors: invalid amount")
)

// UpdateVendorInput carries admin edits to vendor billing terms.
type UpdateVendorInput struct {
	CommissionRate *float64
	MonthlyFee     *float64
}

// Validate checks admin edits before they reach the store.
func (in UpdateVendorInput) Validate() error {
	if in.CommissionRate != nil && (*in.CommissionRate < 0 || *in.CommissionRate > 1) {
		return ErrInvalidAmount
	}
	if in.MonthlyFee != nil && *in.MonthlyFee < 0 {
		return ErrInvalidAmount
	}
	return nil
}
