package entity

import (
	"time"

	"github.com/google/uuid"
)

type CertificationStatus string

const (
	CertificationActive              CertificationStatus = "active"
	CertificationExpired             CertificationStatus = "expired"
	CertificationRevoked             CertificationStatus = "revoked"
	CertificationPendingVerification CertificationStatus = "pending_verification"
)

type CertificationType struct {
	ID              uuid.UUID `json:"id"`
	Name            string    `json:"name"`
	Code            string    `json:"code"`
	Category        string    `json:"category"`
	AlertAt60       bool      `json:"alert_at_60"`
	AlertAt30       bool      `json:"alert_at_30"`
	AlertAt7        bool      `json:"alert_at_7"`
	AlertOnExpiry   bool      `json:"alert_on_expiry"`
	RequiredForWork bool      `json:"required_for_work"`
}

// Enables reports whether the type wants notifications for tier t.
func (ct CertificationType) Enables(t Tier) bool {
	switch t {
	case Tier60Day:
		return ct.AlertAt60
	case Tier30Day:
		return ct.AlertAt30
	case Tier7Day:
		return ct.AlertAt7
	case TierExpired:
		return ct.AlertOnExpiry
	}
	return false
}

type Certification struct {
	ID                uuid.UUID           `json:"id"`
	WorkerID          uuid.UUID           `json:"worker_id"`
	CompanyID         uuid.UUID           `json:"company_id"`
	Type              CertificationType   `json:"type"`
	CertificateNumber string              `json:"certificate_number"`
	IssueDate         *time.Time          `json:"issue_date,omitempty"`
	ExpiryDate        *time.Time          `json:"expiry_date,omitempty"`
	Status            CertificationStatus `json:"status"`
	Alert60Sent       bool                `json:"alert_60_sent"`
	Alert30Sent       bool                `json:"alert_30_sent"`
	Alert7Sent        bool                `json:"alert_7_sent"`
	AlertExpiredSent  bool                `json:"alert_expired_sent"`
	LastAlertAt       *time.Time          `json:"last_alert_at,omitempty"`
}

// AlertSent reports the per-tier "already notified" flag.
func (c Certification) AlertSent(t Tier) bool {
	switch t {
	case Tier60Day:
		return c.Alert60Sent
	case Tier30Day:
		return c.Alert30Sent
	case Tier7Day:
		return c.Alert7Sent
	case TierExpired:
		return c.AlertExpiredSent
	}
	return false
}

// AlertColumn is the store column holding the flag for tier t.
func AlertColumn(t Tier) string {
	switch t {
	case Tier60Day:
		return "alert_60_sent"
	case Tier30Day:
		return "alert_30_sent"
	case Tier7Day:
		return "alert_7_sent"
	case TierExpired:
		return "alert_expired_sent"
	}
	return ""
}

type Worker struct {
	ID        uuid.UUID `json:"id"`
	CompanyID uuid.UUID `json:"company_id"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Email     string    `json:"email"`
}

type Company struct {
	ID                 uuid.UUID `json:"id"`
	Name               string    `json:"name"`
	Domain             string    `json:"domain"`
	SafetyManagerName  string    `json:"safety_manager_name"`
	SafetyManagerEmail string    `json:"safety_manager_email"`
	SafetyManagerPhone string    `json:"safety_manager_phone"`
	Phone              string    `json:"phone"`
}

// Contact is a directory entry holding a role within a company.
type Contact struct {
	ID        uuid.UUID `json:"id"`
	CompanyID uuid.UUID `json:"company_id"`
	Role      Role      `json:"role"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
}
