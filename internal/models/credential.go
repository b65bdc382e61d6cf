package models

import (
	"time"

	"github.com/google/uuid"
)

// Credential is the stored identity record for one account. PasswordHash is
// always the digest of the current password under Salt; a salt is never
// carried across a password change.
type Credential struct {
	ID                uuid.UUID  `json:"id"`
	Username          string     `json:"username"`
	Email             string     `json:"email"`
	PasswordHash      string     `json:"-"`
	Salt              string     `json:"-"`
	FailedAttempts    int        `json:"-"`
	Locked            bool       `json:"-"`
	PasswordChangedAt *time.Time `json:"password_changed_at,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// PasswordHistory is one retired (hash, salt) pair for a credential.
// Entries are append-only and ordered by creation time.
type PasswordHistory struct {
	ID           uuid.UUID `json:"id" db:"id"`
	CredentialID uuid.UUID `json:"credential_id" db:"credential_id"`
	PasswordHash string    `json:"-" db:"password_hash"`
	Salt         string    `json:"-" db:"salt"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// ResetCode is the single live recovery record for a username. Only the
// one-way hash of the code is ever stored; issuing a new code overwrites the
// prior record.
type ResetCode struct {
	Username  string    `json:"username" db:"username"`
	CodeHash  string    `json:"-" db:"code_hash"`
	Attempts  int       `json:"attempts" db:"attempts"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
