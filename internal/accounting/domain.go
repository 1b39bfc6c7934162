package accounting

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// AccountType enumerates chart of accounts categories.
type AccountType string

const (
	AccountTypeAsset     AccountType = "ASSET"
	AccountTypeLiability AccountType = "LIABILITY"
	AccountTypeEquity    AccountType = "EQUITY"
	AccountTypeRevenue   AccountType = "REVENUE"
	AccountTypeExpense   AccountType = "EXPENSE"
)

// Fixed account codes the posting logic depends on. Bootstrap seeds these.
const (
	CodeAccountsReceivable = "1200"
	CodeSalesRevenue       = "4000"
	CodeTaxPayable         = "2200"
	CodeAccountsPayable    = "2000"
	CodeCommissionRevenue  = "4200"
)

// EntryStatus enumerates journal entry lifecycle values.
type EntryStatus string

const (
	EntryStatusDraft  EntryStatus = "DRAFT"
	EntryStatusPosted EntryStatus = "POSTED"
	EntryStatusVoided EntryStatus = "VOIDED"
)

// balanceTolerance is the accepted floating drift between debit and credit totals.
const balanceTolerance = 1e-4

// Account models a chart of accounts node. Reference data, looked up by code.
type Account struct {
	ID        int64
	Code      string
	Name      string
	Type      AccountType
	Category  string
	CreatedAt time.Time
}

// Side tags a journal line as debit or credit. Exactly one side per line;
// the two-column debit/credit shape exists only at the storage boundary.
type Side string

const (
	SideDebit  Side = "DEBIT"
	SideCredit Side = "CREDIT"
)

// EntryLine is one side-tagged posting line, addressed by account code.
type EntryLine struct {
	AccountCode string
	Side        Side
	Amount      float64
	Description string
}

// PostingInput groups fields required to create a journal entry.
type PostingInput struct {
	EntryDate   time.Time
	Description string
	Reference   string
	Lines       []EntryLine
}

// JournalEntry captures posting metadata. Entries are never edited in
// place; corrections are new reversing entries.
type JournalEntry struct {
	ID          int64
	EntryDate   time.Time
	Description string
	Reference   string
	TotalDebit  float64
	TotalCredit float64
	Status      EntryStatus
	CreatedAt   time.Time
	Lines       []JournalLine
}

// JournalLine is the stored two-column shape of a posting line.
type JournalLine struct {
	ID             int64
	JournalEntryID int64
	AccountID      int64
	Description    string
	Debit          float64
	Credit         float64
	CreatedAt      time.Time
}

// SaleLine is one line item on a sales invoice. VendorID is set when the
// product is vendor-sourced.
type SaleLine struct {
	ProductID   int64
	Description string
	Quantity    float64
	UnitPrice   float64
	VendorID    *int64
}

// SaleInput describes a sales invoice to be posted to the ledger.
type SaleInput struct {
	EntryDate   time.Time
	Reference   string
	Description string
	Subtotal    float64
	TaxAmount   float64
	Lines       []SaleLine
}

var (
	// ErrUnbalanced indicates debit and credit totals differ beyond tolerance.
	ErrUnbalanced = errors.New("accounting: journal lines must balance")
	// ErrAccountMissing indicates a mandatory chart-of-accounts code is absent.
	ErrAccountMissing = errors.New("accounting: mandatory account missing")
	// ErrEntryNotFound indicates no journal entry for the given id.
	ErrEntryNotFound = errors.New("accounting: journal entry not found")
	// ErrInvalidAmount indicates a negative or non-finite monetary input.
	ErrInvalidAmount = errors.New("accounting: invalid amount")
)

// Validate ensures posting input meets minimum criteria.
func (in PostingInput) Validate() error {
	if len(in.Lines) < 2 {
		return errors.New("accounting: journal requires at least two lines")
	}
	var debit, credit float64
	for idx, line := range in.Lines {
		if line.AccountCode == "" {
			return fmt.Errorf("accounting: line %d missing account code", idx)
		}
		if line.Side != SideDebit && line.Side != SideCredit {
			return fmt.Errorf("accounting: line %d missing side", idx)
		}
		if math.IsNaN(line.Amount) || math.IsInf(line.Amount, 0) || line.Amount <= 0 {
			return fmt.Errorf("accounting: line %d: %w", idx, ErrInvalidAmount)
		}
		if line.Side == SideDebit {
			debit += line.Amount
		} else {
			credit += line.Amount
		}
	}
	if math.Abs(debit-credit) > balanceTolerance {
		return ErrUnbalanced
	}
	return nil
}

// Validate rejects malformed sale documents before posting.
func (in SaleInput) Validate() error {
	if math.IsNaN(in.Subtotal) || math.IsInf(in.Subtotal, 0) || in.Subtotal < 0 {
		return ErrInvalidAmount
	}
	if math.IsNaN(in.TaxAmount) || math.IsInf(in.TaxAmount, 0) || in.TaxAmount < 0 {
		return ErrInvalidAmount
	}
	for idx, line := range in.Lines {
		if line.Quantity < 0 || line.UnitPrice < 0 {
			return fmt.Errorf("accounting: sale line %d: %w", idx, ErrInvalidAmount)
		}
	}
	return nil
}

// Total returns the invoice grand total.
func (in SaleInput) Total() float64 {
	return in.Subtotal + in.TaxAmount
}
