package repository

import (
	"context"
	"database/sql"
	"time"

	"commauth/internal/models"
)

// ResetCodeRepository defines the interface for one-time recovery codes.
// There is at most one live record per username; Upsert is last-writer-wins,
// which is all the reset flow needs (only the most recently issued code may
// verify).
type ResetCodeRepository interface {
	Upsert(ctx context.Context, code *models.ResetCode) error
	GetByUsername(ctx context.Context, username string) (*models.ResetCode, error)
	// IncrementAttempts bumps the failed-verify counter and returns the new
	// value. Atomic at the storage layer.
	IncrementAttempts(ctx context.Context, username string) (int, error)
	Delete(ctx context.Context, username string) error
	// DeleteExpired removes records created before cutoff and reports how
	// many were purged.
	DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error)
}

type resetCodeRepositoryImpl struct {
	BaseRepository
}

func NewResetCodeRepository(db *sql.DB) ResetCodeRepository {
	return &resetCodeRepositoryImpl{BaseRepository: NewBaseRepository(db)}
}

func (r *resetCodeRepositoryImpl) Upsert(ctx context.Context, code *models.ResetCode) error {
	query := `
		INSERT INTO reset_codes (username, code_hash, attempts, created_at)
		VALUES ($1, $2, 0, CURRENT_TIMESTAMP)
		ON CONFLICT (username) DO UPDATE
		SET code_hash = EXCLUDED.code_hash,
		    attempts = 0,
		    created_at = CURRENT_TIMESTAMP
		RETURNING created_at`

	return r.DB().QueryRowContext(ctx, query, code.Username, code.CodeHash).Scan(&code.CreatedAt)
}

func (r *resetCodeRepositoryImpl) GetByUsername(ctx context.Context, username string) (*models.ResetCode, error) {
	code := &models.ResetCode{}
	query := `
		SELECT username, code_hash, attempts, created_at
		FROM reset_codes
		WHERE username = $1`

	err := r.DB().QueryRowContext(ctx, query, username).Scan(
		&code.Username,
		&code.CodeHash,
		&code.Attempts,
		&code.CreatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, ErrResetCodeNotFound
	}
	if err != nil {
		return nil, err
	}
	return code, nil
}

func (r *resetCodeRepositoryImpl) IncrementAttempts(ctx context.Context, username string) (int, error) {
	query := `
		UPDATE reset_codes
		SET attempts = attempts + 1
		WHERE username = $1
		RETURNING attempts`

	var attempts int
	err := r.DB().QueryRowContext(ctx, query, username).Scan(&attempts)
	if err == sql.ErrNoRows {
		return 0, ErrResetCodeNotFound
	}
	if err != nil {
		return 0, err
	}
	return attempts, nil
}

func (r *resetCodeRepositoryImpl) Delete(ctx context.Context, username string) error {
	query := `DELETE FROM reset_codes WHERE username = $1`
	_, err := r.DB().ExecContext(ctx, query, username)
	return err
}

func (r *resetCodeRepositoryImpl) DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `DELETE FROM reset_codes WHERE created_at < $1`
	result, err := r.DB().ExecContext(ctx, query, cutoff)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
