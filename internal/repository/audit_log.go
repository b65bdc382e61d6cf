package repository

import (
	"context"
	"database/sql"

	"commauth/internal/models"

	"github.com/google/uuid"
)

// AuditLogRepository defines the interface for audit log operations. Audit
// writes are best-effort; callers must not fail a flow on audit errors.
type AuditLogRepository interface {
	Create(ctx context.Context, log *models.AuditLog) error
	GetByCredentialID(ctx context.Context, credentialID uuid.UUID, limit int) ([]models.AuditLog, error)
}

type auditLogRepositoryImpl struct {
	BaseRepository
}

func NewAuditLogRepository(db *sql.DB) AuditLogRepository {
	return &auditLogRepositoryImpl{BaseRepository: NewBaseRepository(db)}
}

func (r *auditLogRepositoryImpl) Create(ctx context.Context, log *models.AuditLog) error {
	if log.ID == uuid.Nil {
		log.ID = uuid.New()
	}

	query := `
		INSERT INTO audit_logs (id, credential_id, action, description, ip_address, user_agent)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at`

	return r.DB().QueryRowContext(ctx, query,
		log.ID,
		log.CredentialID,
		log.Action,
		log.Description,
		log.IPAddress,
		log.UserAgent,
	).Scan(&log.CreatedAt)
}

func (r *auditLogRepositoryImpl) GetByCredentialID(ctx context.Context, credentialID uuid.UUID, limit int) ([]models.AuditLog, error) {
	query := `
		SELECT id, credential_id, action, description, ip_address, user_agent, created_at
		FROM audit_logs
		WHERE credential_id = $1
		ORDER BY created_at DESC
		LIMIT $2`

	rows, err := r.DB().QueryContext(ctx, query, credentialID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []models.AuditLog
	for rows.Next() {
		var log models.AuditLog
		if err := rows.Scan(
			&log.ID,
			&log.CredentialID,
			&log.Action,
			&log.Description,
			&log.IPAddress,
			&log.UserAgent,
			&log.CreatedAt,
		); err != nil {
			return nil, err
		}
		logs = append(logs, log)
	}

	return logs, rows.Err()
}
