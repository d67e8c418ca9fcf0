package entity

import (
	"time"

	"github.com/google/uuid"
)

type ReminderStatus string

const (
	ReminderPending ReminderStatus = "pending"
	ReminderSending ReminderStatus = "sending"
	ReminderSent    ReminderStatus = "sent"
	ReminderFailed  ReminderStatus = "failed"
)

func (s ReminderStatus) IsValid() bool {
	switch s {
	case ReminderPending, ReminderSending, ReminderSent, ReminderFailed:
		return true
	}
	return false
}

func (s ReminderStatus) String() string {
	return string(s)
}

type Reminder struct {
	ID              uuid.UUID      `json:"id"`
	CertificationID uuid.UUID      `json:"certification_id"`
	CompanyID       uuid.UUID      `json:"company_id"`
	Tier            Tier           `json:"tier"`
	ScheduledDate   time.Time      `json:"scheduled_date"`
	Status          ReminderStatus `json:"status"`
	Attempts        int            `json:"attempts"`
	SentAt          *time.Time     `json:"sent_at,omitempty"`
	ClaimedAt       *time.Time     `json:"claimed_at,omitempty"`
	ErrorMessage    string         `json:"error_message,omitempty"`
	CreatedAt       time.Time      `json:"created_at"`

	// Manual reminders are synthesized by the operator trigger and never persisted.
	Manual bool `json:"manual,omitempty"`
}

type DeliveryOutcome string

const (
	OutcomeSent   DeliveryOutcome = "sent"
	OutcomeFailed DeliveryOutcome = "failed"
)

// NotificationLog is one append-only audit record of a delivery attempt.
type NotificationLog struct {
	ID              uuid.UUID       `json:"id"`
	ReminderID      uuid.UUID       `json:"reminder_id"`
	CertificationID uuid.UUID       `json:"certification_id"`
	Tier            Tier            `json:"tier"`
	Recipients      []string        `json:"recipients"`
	Subject         string          `json:"subject"`
	Provider        string          `json:"provider"`
	Outcome         DeliveryOutcome `json:"outcome"`
	Error           string          `json:"error,omitempty"`
	Manual          bool            `json:"manual"`
	CreatedAt       time.Time       `json:"created_at"`
}

// Message is the transport-neutral outbound notification.
type Message struct {
	ReminderID uuid.UUID `json:"reminder_id"`
	Tier       Tier      `json:"tier"`
	From       string    `json:"from"`
	To         []string  `json:"to"`
	ReplyTo    string    `json:"reply_to,omitempty"`
	Subject    string    `json:"subject"`
	TextBody   string    `json:"text_body"`
	HTMLBody   string    `json:"html_body"`
}

// RunResult aggregates one daily orchestrator run.
type RunResult struct {
	RemindersCreated int       `json:"reminders_created"`
	EmailsSent       int       `json:"emails_sent"`
	EmailsFailed     int       `json:"emails_failed"`
	Skipped          int       `json:"skipped"`
	Errors           []string  `json:"errors"`
	StartedAt        time.Time `json:"started_at"`
	FinishedAt       time.Time `json:"finished_at"`
}

// Merge folds a partial result's counts and errors into r.
func (r *RunResult) Merge(o RunResult) {
	r.RemindersCreated += o.RemindersCreated
	r.EmailsSent += o.EmailsSent
	r.EmailsFailed += o.EmailsFailed
	r.Skipped += o.Skipped
	r.Errors = append(r.Errors, o.Errors...)
}
