package vendors

import "time"

// UpdateVendorRequest is the PATCH payload for vendor billing terms.
type UpdateVendorRequest struct {
	CommissionRate *float64 `json:"commission_rate,omitempty" validate:"omitempty,gte=0,lte=1"`
	MonthlyFee     *float64 `json:"monthly_fee,omitempty" validate:"omitempty,gte=0"`
}

// VendorResponse is the JSON shape returned by vendor endpoints.
type VendorResponse struct {
	ID               int64      `json:"id"`
	Name             string     `json:"name"`
	Email            string     `json:"email"`
	CommissionRate   float64    `json:"commission_rate"`
	MonthlyFee       float64    `json:"monthly_fee"`
	BillingStartDate *time.Time `json:"billing_start_date,omitempty"`
	LastInvoiceDate  *time.Time `json:"last_invoice_date,omitempty"`
	AccountActive    bool       `json:"account_active"`
	CreatedAt        time.Time  `json:"created_at"`
}

func toVendorResponse(v Vendor) VendorResponse {
	return VendorResponse{
		ID:               v.ID,
		Name:             v.Name,
		Email:            v.Email,
		CommissionRate:   v.CommissionRate,
		MonthlyFee:       v.MonthlyFee,
		BillingStartDate: v.BillingStartDate,
		LastInvoiceDate:  v.LastInvoiceDate,
		AccountActive:    v.AccountActive,
		CreatedAt:        v.CreatedAt,
	}
}
