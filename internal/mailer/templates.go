package mailer

import (
	"fmt"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

var moneyPrinter = message.NewPrinter(language.English)

// FormatAmount renders a monetary amount with grouping, e.g. 12,345.60.
func FormatAmount(v float64) string {
	return moneyPrinter.Sprintf("%v", number.Decimal(v, number.MinFractionDigits(2), number.MaxFractionDigits(2)))
}

// PayoutSummary builds the payout notification for a vendor.
func PayoutSummary(to, vendorName string, gross, commission, payable float64) Message {
	body := fmt.Sprintf(
		"Hello %s,\n\nA payout has been generated for your account.\n\nGross sales: %s\nCommission retained: %s\nPayable to you: %s\n\nThe payable amount will be transferred to your registered bank account.\n",
		vendorName, FormatAmount(gross), FormatAmount(commission), FormatAmount(payable))
	return Message{To: to, Subject: "Your payout summary", Body: body}
}

// FeeInvoiceIssued announces a new monthly fee invoice.
func FeeInvoiceIssued(to, vendorName, invoiceNumber string, fee float64, dueDate time.Time) Message {
	body := fmt.Sprintf(
		"Hello %s,\n\nYour monthly vendor fee invoice %s has been issued.\n\nAmount due: %s\nDue date: %s\n\nPlease settle the invoice before the due date to keep your account active.\n",
		vendorName, invoiceNumber, FormatAmount(fee), dueDate.Format("2 January 2006"))
	return Message{To: to, Subject: fmt.Sprintf("Vendor fee invoice %s", invoiceNumber), Body: body}
}

// FeeReminder builds the first payment reminder.
func FeeReminder(to, vendorName, invoiceNumber string, fee float64, dueDate time.Time) Message {
	body := fmt.Sprintf(
		"Hello %s,\n\nThis is a reminder that invoice %s for %s is still unpaid.\nDue date: %s\n\nPlease arrange payment at your earliest convenience.\n",
		vendorName, invoiceNumber, FormatAmount(fee), dueDate.Format("2 January 2006"))
	return Message{To: to, Subject: fmt.Sprintf("Payment reminder for invoice %s", invoiceNumber), Body: body}
}

// FeeFinalReminder builds the final reminder before account suspension.
func FeeFinalReminder(to, vendorName, invoiceNumber string, fee float64) Message {
	body := fmt.Sprintf(
		"Hello %s,\n\nFinal reminder: invoice %s for %s remains unpaid.\n\nIf payment is not received within 24 hours your vendor account will be disabled.\n",
		vendorName, invoiceNumber, FormatAmount(fee))
	return Message{To: to, Subject: fmt.Sprintf("Final reminder for invoice %s", invoiceNumber), Body: body}
}

// AccountDisabled notifies the vendor their account was suspended.
func AccountDisabled(to, vendorName, invoiceNumber string) Message {
	body := fmt.Sprintf(
		"Hello %s,\n\nYour vendor account has been disabled because invoice %s was not paid.\n\nSettle the outstanding invoice to reactivate your account.\n",
		vendorName, invoiceNumber)
	return Message{To: to, Subject: "Vendor account disabled", Body: body}
}
