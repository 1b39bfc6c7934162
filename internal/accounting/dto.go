package accounting

import "time"

// PostSaleRequest is the payload for posting a sales invoice to the ledger.
type PostSaleRequest struct {
	Reference   string            `json:"reference" validate:"required,max=64"`
	Description string            `json:"description,omitempty" validate:"max=255"`
	EntryDate   time.Time         `json:"entry_date" validate:"required"`
	Subtotal    float64           `json:"subtotal" validate:"gte=0"`
	TaxAmount   float64           `json:"tax_amount" validate:"gte=0"`
	Lines       []SaleLineRequest `json:"lines" validate:"dive"`
}

// SaleLineRequest is one invoice line item.
type SaleLineRequest struct {
	ProductID   int64   `json:"product_id" validate:"required,gt=0"`
	Description string  `json:"description,omitempty" validate:"max=255"`
	Quantity    float64 `json:"quantity" validate:"required,gt=0"`
	UnitPrice   float64 `json:"unit_price" validate:"gte=0"`
	VendorID    *int64  `json:"vendor_id,omitempty" validate:"omitempty,gt=0"`
}

// JournalEntryResponse is the JSON shape of a posted entry.
type JournalEntryResponse struct {
	ID          int64                 `json:"id"`
	EntryDate   time.Time             `json:"entry_date"`
	Description string                `json:"description"`
	Reference   string                `json:"reference"`
	TotalDebit  float64               `json:"total_debit"`
	TotalCredit float64               `json:"total_credit"`
	Status      EntryStatus           `json:"status"`
	CreatedAt   time.Time             `json:"created_at"`
	Lines       []JournalLineResponse `json:"lines,omitempty"`
}

// JournalLineResponse is the JSON shape of one stored line.
type JournalLineResponse struct {
	ID          int64   `json:"id"`
	AccountID   int64   `json:"account_id"`
	Description string  `json:"description"`
	Debit       float64 `json:"debit"`
	Credit      float64 `json:"credit"`
}

// AccountResponse is the JSON shape of a chart of accounts node.
type AccountResponse struct {
	ID       int64       `json:"id"`
	Code     string      `json:"code"`
	Name     string      `json:"name"`
	Type     AccountType `json:"type"`
	Category string      `json:"category"`
}

func toEntryResponse(e JournalEntry) JournalEntryResponse {
	resp := JournalEntryResponse{
		ID:          e.ID,
		EntryDate:   e.EntryDate,
		Description: e.Description,
		Reference:   e.Reference,
		TotalDebit:  e.TotalDebit,
		TotalCredit: e.TotalCredit,
		Status:      e.Status,
		CreatedAt:   e.CreatedAt,
	}
	for _, l := range e.Lines {
		resp.Lines = append(resp.Lines, JournalLineResponse{
			ID:          l.ID,
			AccountID:   l.AccountID,
			Description: l.Description,
			Debit:       l.Debit,
			Credit:      l.Credit,
		})
	}
	return resp
}

func (r PostSaleRequest) toSaleInput() SaleInput {
	in := SaleInput{
		EntryDate:   r.EntryDate,
		Reference:   r.Reference,
		Description: r.Description,
		Subtotal:    r.Subtotal,
		TaxAmount:   r.TaxAmount,
	}
	for _, l := range r.Lines {
		in.Lines = append(in.Lines, SaleLine{
			ProductID:   l.ProductID,
			Description: l.Description,
			Quantity:    l.Quantity,
			UnitPrice:   l.UnitPrice,
			VendorID:    l.VendorID,
		})
	}
	return in
}
