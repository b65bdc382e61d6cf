package repository

import (
	"context"
	"database/sql"
	"errors"

	"commauth/internal/models"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// CredentialRepository defines the interface for credential operations.
// RecordFailure and RecordSuccess are the only mutators of the lockout state
// and must be serialized per record by the implementation.
type CredentialRepository interface {
	Create(ctx context.Context, cred *models.Credential) error
	GetByUsername(ctx context.Context, username string) (*models.Credential, error)
	GetByEmail(ctx context.Context, email string) (*models.Credential, error)
	// UpdatePassword appends the retired (hash, salt) pair to the history and
	// overwrites the live hash in one transaction, so history never misses
	// the password that was just replaced.
	UpdatePassword(ctx context.Context, id uuid.UUID, oldHash, oldSalt, newHash, newSalt string) error
	// RecordFailure increments the failure counter and flips the locked flag
	// once the counter reaches maxFailed. The update is a single atomic
	// read-modify-write at the storage layer.
	RecordFailure(ctx context.Context, username string, maxFailed int) (locked bool, err error)
	// RecordSuccess resets the failure counter. Never called on a locked
	// credential; the lock gate runs before password comparison.
	RecordSuccess(ctx context.Context, username string) error
	// Unlock clears the lock and counter. Administrative action only.
	Unlock(ctx context.Context, username string) error
}

const pqUniqueViolation = "23505"

type credentialRepositoryImpl struct {
	BaseRepository
}

func NewCredentialRepository(db *sql.DB) CredentialRepository {
	return &credentialRepositoryImpl{BaseRepository: NewBaseRepository(db)}
}

func (r *credentialRepositoryImpl) Create(ctx context.Context, cred *models.Credential) error {
	if cred.ID == uuid.Nil {
		cred.ID = uuid.New()
	}

	query := `
		INSERT INTO credentials (id, username, email, password_hash, salt)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at`

	err := r.DB().QueryRowContext(ctx, query,
		cred.ID,
		cred.Username,
		cred.Email,
		cred.PasswordHash,
		cred.Salt,
	).Scan(&cred.CreatedAt, &cred.UpdatedAt)

	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation {
		switch pqErr.Constraint {
		case "credentials_username_key":
			return ErrUsernameExists
		case "credentials_email_key":
			return ErrEmailExists
		default:
			return ErrConflict
		}
	}
	return err
}

const credentialColumns = `
	id, username, email, password_hash, salt, failed_attempts, locked,
	password_changed_at, created_at, updated_at`

func (r *credentialRepositoryImpl) getBy(ctx context.Context, column, value string) (*models.Credential, error) {
	cred := &models.Credential{}
	query := `SELECT` + credentialColumns + `
		FROM credentials
		WHERE ` + column + ` = $1`

	err := r.DB().QueryRowContext(ctx, query, value).Scan(
		&cred.ID,
		&cred.Username,
		&cred.Email,
		&cred.PasswordHash,
		&cred.Salt,
		&cred.FailedAttempts,
		&cred.Locked,
		&cred.PasswordChangedAt,
		&cred.CreatedAt,
		&cred.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, ErrCredentialNotFound
	}
	if err != nil {
		return nil, err
	}
	return cred, nil
}

func (r *credentialRepositoryImpl) GetByUsername(ctx context.Context, username string) (*models.Credential, error) {
	return r.getBy(ctx, "username", username)
}

func (r *credentialRepositoryImpl) GetByEmail(ctx context.Context, email string) (*models.Credential, error) {
	return r.getBy(ctx, "email", email)
}

func (r *credentialRepositoryImpl) UpdatePassword(ctx context.Context, id uuid.UUID, oldHash, oldSalt, newHash, newSalt string) error {
	return r.Transaction(ctx, func(tx *sql.Tx) error {
		historyQuery := `
			INSERT INTO password_history (id, credential_id, password_hash, salt)
			VALUES ($1, $2, $3, $4)`

		if _, err := tx.ExecContext(ctx, historyQuery, uuid.New(), id, oldHash, oldSalt); err != nil {
			return err
		}

		updateQuery := `
			UPDATE credentials
			SET password_hash = $1, salt = $2,
			    password_changed_at = CURRENT_TIMESTAMP,
			    updated_at = CURRENT_TIMESTAMP
			WHERE id = $3`

		result, err := tx.ExecContext(ctx, updateQuery, newHash, newSalt, id)
		if err != nil {
			return err
		}

		rows, err := result.RowsAffected()
		if err != nil {
			return err
		}
		if rows == 0 {
			return ErrCredentialNotFound
		}
		return nil
	})
}

func (r *credentialRepositoryImpl) RecordFailure(ctx context.Context, username string, maxFailed int) (bool, error) {
	// Single statement so concurrent guessing cannot lose an increment or
	// skip the lock transition.
	query := `
		UPDATE credentials
		SET failed_attempts = failed_attempts + 1,
		    locked = locked OR (failed_attempts + 1 >= $2),
		    updated_at = CURRENT_TIMESTAMP
		WHERE username = $1
		RETURNING locked`

	var locked bool
	err := r.DB().QueryRowContext(ctx, query, username, maxFailed).Scan(&locked)
	if err == sql.ErrNoRows {
		return false, ErrCredentialNotFound
	}
	if err != nil {
		return false, err
	}
	return locked, nil
}

func (r *credentialRepositoryImpl) RecordSuccess(ctx context.Context, username string) error {
	query := `
		UPDATE credentials
		SET failed_attempts = 0,
		    updated_at = CURRENT_TIMESTAMP
		WHERE username = $1 AND locked = false`

	_, err := r.DB().ExecContext(ctx, query, username)
	return err
}

func (r *credentialRepositoryImpl) Unlock(ctx context.Context, username string) error {
	query := `
		UPDATE credentials
		SET failed_attempts = 0,
		    locked = false,
		    updated_at = CURRENT_TIMESTAMP
		WHERE username = $1`

	result, err := r.DB().ExecContext(ctx, query, username)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrCredentialNotFound
	}
	return nil
}
