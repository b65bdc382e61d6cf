package models

import (
	"time"

	"github.com/google/uuid"
)

// AuditAction represents the type of action performed
type AuditAction string

const (
	AuditActionRegister        AuditAction = "user_registered"
	AuditActionLoginSuccess    AuditAction = "login_success"
	AuditActionLoginFailed     AuditAction = "login_failed"
	AuditActionPasswordChanged AuditAction = "password_changed"
	AuditActionResetIssued     AuditAction = "reset_issued"
	AuditActionResetCompleted  AuditAction = "reset_completed"
)

// AuditLog represents a record of credential-lifecycle activity
type AuditLog struct {
	ID           uuid.UUID   `json:"id" db:"id"`
	CredentialID *uuid.UUID  `json:"credential_id" db:"credential_id"` // nil for events on unknown usernames
	Action       AuditAction `json:"action" db:"action"`
	Description  string      `json:"description" db:"description"`
	IPAddress    string      `json:"ip_address" db:"ip_address"`
	UserAgent    string      `json:"user_agent" db:"user_agent"`
	CreatedAt    time.Time   `json:"created_at" db:"created_at"`
}
