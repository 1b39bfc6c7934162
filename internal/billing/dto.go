package billing

import "time"

// VoidInvoiceRequest carries the cancellation reason.
type VoidInvoiceRequest struct {
	Reason string `json:"reason" validate:"required,max=255"`
}

// ReactivateRequest optionally resets when monthly fees resume.
type ReactivateRequest struct {
	BillingStartDate *time.Time `json:"billing_start_date,omitempty"`
}

// RunBillingRequest triggers a manual billing pass, defaulting to today.
type RunBillingRequest struct {
	RunDate *time.Time `json:"run_date,omitempty"`
}

// InvoiceResponse is the JSON shape returned by billing endpoints.
type InvoiceResponse struct {
	ID            int64             `json:"id"`
	VendorID      int64             `json:"vendor_id"`
	InvoiceNumber string            `json:"invoice_number"`
	FeeAmount     float64           `json:"fee_amount"`
	Status        InvoiceStatus     `json:"status"`
	IssuedAt      time.Time         `json:"issued_at"`
	DueDate       time.Time         `json:"due_date"`
	PaidAt        *time.Time        `json:"paid_at,omitempty"`
	ReminderStage int               `json:"reminder_stage"`
	Metadata      map[string]string `json:"metadata,omitempty"`
	VoidReason    *string           `json:"void_reason,omitempty"`
	VoidedAt      *time.Time        `json:"voided_at,omitempty"`
}

// RunSummaryResponse reports the outcome of one billing pass.
type RunSummaryResponse struct {
	RunDate         time.Time `json:"run_date"`
	Skipped         bool      `json:"skipped"`
	Issued          int       `json:"invoices_issued"`
	RemindersSent   int       `json:"reminders_sent"`
	VendorsDisabled int       `json:"vendors_disabled"`
}

func toInvoiceResponse(inv VendorInvoice) InvoiceResponse {
	return InvoiceResponse{
		ID:            inv.ID,
		VendorID:      inv.VendorID,
		InvoiceNumber: inv.InvoiceNumber,
		FeeAmount:     inv.FeeAmount,
		Status:        inv.Status,
		IssuedAt:      inv.IssuedAt,
		DueDate:       inv.DueDate,
		PaidAt:        inv.PaidAt,
		ReminderStage: inv.ReminderStage,
		Metadata:      inv.Metadata,
		VoidReason:    inv.VoidReason,
		VoidedAt:      inv.VoidedAt,
	}
}

func toRunSummaryResponse(s RunSummary) RunSummaryResponse {
	return RunSummaryResponse{
		RunDate:         s.RunDate,
		Skipped:         s.Skipped,
		Issued:          s.Issued,
		RemindersSent:   s.RemindersSent,
		VendorsDisabled: s.VendorsDisabled,
	}
}
