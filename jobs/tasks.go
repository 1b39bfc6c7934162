package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskTypeSendEmail is the task type for sending transactional emails.
	TaskTypeSendEmail = "mail:send"
	// TaskTypeVendorBillingDaily is the task type for the daily vendor
	// billing pass.
	TaskTypeVendorBillingDaily = "billing:daily"
)

// SendEmailPayload describes the information required to send an email.
type SendEmailPayload struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// NewSendEmailTask constructs an Asynq task.
func NewSendEmailTask(payload SendEmailPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeSendEmail, data), nil
}

// VendorBillingPayload optionally pins the billing pass to a specific day.
// An empty RunDate means the worker's current day.
type VendorBillingPayload struct {
	RunDate *time.Time `json:"run_date,omitempty"`
}

// NewVendorBillingTask constructs the daily billing task.
func NewVendorBillingTask(payload VendorBillingPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeVendorBillingDaily, data), nil
}
