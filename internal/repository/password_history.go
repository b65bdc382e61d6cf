package repository

import (
	"context"
	"database/sql"

	"commauth/internal/models"

	"github.com/google/uuid"
)

// PasswordHistoryRepository defines the interface for the append-only log of
// prior credential hashes. Entries are never mutated or deleted in scope;
// retention is a deployment concern.
type PasswordHistoryRepository interface {
	Add(ctx context.Context, credentialID uuid.UUID, passwordHash, salt string) error
	// Recent returns up to n entries, most recent first.
	Recent(ctx context.Context, credentialID uuid.UUID, n int) ([]models.PasswordHistory, error)
}

type passwordHistoryRepositoryImpl struct {
	BaseRepository
}

func NewPasswordHistoryRepository(db *sql.DB) PasswordHistoryRepository {
	return &passwordHistoryRepositoryImpl{BaseRepository: NewBaseRepository(db)}
}

func (r *passwordHistoryRepositoryImpl) Add(ctx context.Context, credentialID uuid.UUID, passwordHash, salt string) error {
	query := `
		INSERT INTO password_history (id, credential_id, password_hash, salt)
		VALUES ($1, $2, $3, $4)`

	_, err := r.DB().ExecContext(ctx, query, uuid.New(), credentialID, passwordHash, salt)
	return err
}

func (r *passwordHistoryRepositoryImpl) Recent(ctx context.Context, credentialID uuid.UUID, n int) ([]models.PasswordHistory, error) {
	query := `
		SELECT id, credential_id, password_hash, salt, created_at
		FROM password_history
		WHERE credential_id = $1
		ORDER BY created_at DESC
		LIMIT $2`

	rows, err := r.DB().QueryContext(ctx, query, credentialID, n)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []models.PasswordHistory
	for rows.Next() {
		var entry models.PasswordHistory
		if err := rows.Scan(&entry.ID, &entry.CredentialID, &entry.PasswordHash, &entry.Salt, &entry.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}

	return entries, rows.Err()
}
