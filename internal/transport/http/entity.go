// nolint: revive,staticcheck
// swagger:meta
package httpt

import (
	"time"

	"certalert/internal/entity"
)

// swagger:model ManualReminderRequest
type ManualReminderRequest struct {
	Tier string `json:"tier" binding:"required" example:"7_day"`
}

// swagger:model ManualReminderResponse
type ManualReminderResponse struct {
	Success bool   `json:"success"         example:"false"`
	Error   string `json:"error,omitempty" example:"transport failure: smtp: dial tcp: i/o timeout"`
	Kind    string `json:"kind,omitempty"  example:"transport"`
}

// swagger:model RunResponse
type RunResponse struct {
	RemindersCreated int       `json:"reminders_created" example:"3"`
	EmailsSent       int       `json:"emails_sent"       example:"2"`
	EmailsFailed     int       `json:"emails_failed"     example:"1"`
	Skipped          int       `json:"skipped"           example:"0"`
	Errors           []string  `json:"errors"`
	StartedAt        time.Time `json:"started_at"        example:"2026-03-02T06:00:00Z"`
	FinishedAt       time.Time `json:"finished_at"       example:"2026-03-02T06:00:04Z"`
}

func toRunResponse(r entity.RunResult) RunResponse {
	errs := r.Errors
	if errs == nil {
		errs = []string{}
	}
	return RunResponse{
		RemindersCreated: r.RemindersCreated,
		EmailsSent:       r.EmailsSent,
		EmailsFailed:     r.EmailsFailed,
		Skipped:          r.Skipped,
		Errors:           errs,
		StartedAt:        r.StartedAt,
		FinishedAt:       r.FinishedAt,
	}
}

// swagger:model ReminderResponse
type ReminderResponse struct {
	ID              string     `json:"id"                      example:"01936b2e-7c1a-7c4e-9d55-3a0f7c1b2d11"`
	CertificationID string     `json:"certification_id"        example:"550e8400-e29b-41d4-a716-446655440000"`
	CompanyID       string     `json:"company_id"              example:"550e8400-e29b-41d4-a716-446655440001"`
	Tier            string     `json:"tier"                    example:"30_day"`
	Status          string     `json:"status"                  example:"failed"`
	ScheduledDate   string     `json:"scheduled_date"          example:"2026-03-02"`
	Attempts        int        `json:"attempts"                example:"1"`
	SentAt          *time.Time `json:"sent_at,omitempty"`
	ErrorMessage    string     `json:"error_message,omitempty" example:"no recipients resolved"`
	CreatedAt       time.Time  `json:"created_at"              example:"2026-03-02T06:00:01Z"`
}

func toReminderResponse(r entity.Reminder) ReminderResponse {
	return ReminderResponse{
		ID:              r.ID.String(),
		CertificationID: r.CertificationID.String(),
		CompanyID:       r.CompanyID.String(),
		Tier:            r.Tier.String(),
		Status:          r.Status.String(),
		ScheduledDate:   r.ScheduledDate.Format(time.DateOnly),
		Attempts:        r.Attempts,
		SentAt:          r.SentAt,
		ErrorMessage:    r.ErrorMessage,
		CreatedAt:       r.CreatedAt,
	}
}

// swagger:model ReminderListResponse
type ReminderListResponse struct {
	Items []ReminderResponse `json:"items"`
	Count int                `json:"count" example:"1"`
}

// swagger:model HealthResponse
type HealthResponse struct {
	Status  string `json:"status"  example:"ok"`
	Version string `json:"version" example:"1.0.0"`
}

// swagger:model ErrorResponse
type ErrorResponse struct {
	Error   string `json:"error"             example:"certification not found"`
	Code    string `json:"code,omitempty"    example:"not_found"`
	Details string `json:"details,omitempty" example:"certification with id 123 does not exist"`
}
