package observability

import "github.com/prometheus/client_golang/prometheus"

// LedgerMetrics counts ledger and vendor billing activity.
type LedgerMetrics struct {
	EntriesPosted    prometheus.Counter
	PayoutsGenerated prometheus.Counter
	InvoicesIssued   prometheus.Counter
	RemindersSent    *prometheus.CounterVec
	VendorsDisabled  prometheus.Counter
}

// NewLedgerMetrics registers billing counters against the given registerer.
func NewLedgerMetrics(reg prometheus.Registerer) *LedgerMetrics {
	m := &LedgerMetrics{
		EntriesPosted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "meridian_journal_entries_posted_total",
			Help: "Journal entries successfully posted to the ledger.",
		}),
		PayoutsGenerated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "meridian_vendor_payouts_generated_total",
			Help: "Vendor payout records created.",
		}),
		InvoicesIssued: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "meridian_vendor_invoices_issued_total",
			Help: "Monthly vendor fee invoices issued.",
		}),
		RemindersSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "meridian_vendor_reminders_sent_total",
			Help: "Dunning reminders sent by escalation stage.",
		}, []string{"stage"}),
		VendorsDisabled: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "meridian_vendors_disabled_total",
			Help: "Vendor accounts disabled for non-payment.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.EntriesPosted, m.PayoutsGenerated, m.InvoicesIssued, m.RemindersSent, m.VendorsDisabled)
	}
	return m
}
