// Package testutil provides in-memory repository implementations for testing
// the credential flows without a database.
package testutil

import (
	"context"
	"sync"
	"time"

	"commauth/internal/models"
	"commauth/internal/repository"

	"github.com/google/uuid"
)

// MemoryCredentialRepository is a mutex-guarded in-memory implementation of
// repository.CredentialRepository.
type MemoryCredentialRepository struct {
	mu    sync.Mutex
	creds map[string]*models.Credential // keyed by username

	// History, when set, receives the retired hash inside UpdatePassword,
	// matching the transactional behavior of the postgres implementation.
	History *MemoryPasswordHistoryRepository
}

func NewMemoryCredentialRepository() *MemoryCredentialRepository {
	return &MemoryCredentialRepository{creds: make(map[string]*models.Credential)}
}

func (r *MemoryCredentialRepository) Create(ctx context.Context, cred *models.Credential) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.creds[cred.Username]; exists {
		return repository.ErrUsernameExists
	}
	for _, existing := range r.creds {
		if existing.Email == cred.Email {
			return repository.ErrEmailExists
		}
	}

	if cred.ID == uuid.Nil {
		cred.ID = uuid.New()
	}
	now := time.Now()
	cred.CreatedAt = now
	cred.UpdatedAt = now

	stored := *cred
	r.creds[cred.Username] = &stored
	return nil
}

func (r *MemoryCredentialRepository) GetByUsername(ctx context.Context, username string) (*models.Credential, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cred, exists := r.creds[username]
	if !exists {
		return nil, repository.ErrCredentialNotFound
	}
	copied := *cred
	return &copied, nil
}

func (r *MemoryCredentialRepository) GetByEmail(ctx context.Context, email string) (*models.Credential, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, cred := range r.creds {
		if cred.Email == email {
			copied := *cred
			return &copied, nil
		}
	}
	return nil, repository.ErrCredentialNotFound
}

func (r *MemoryCredentialRepository) UpdatePassword(ctx context.Context, id uuid.UUID, oldHash, oldSalt, newHash, newSalt string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, cred := range r.creds {
		if cred.ID == id {
			if r.History != nil {
				r.History.recordRetired(id, oldHash, oldSalt)
			}
			cred.PasswordHash = newHash
			cred.Salt = newSalt
			now := time.Now()
			cred.PasswordChangedAt = &now
			cred.UpdatedAt = now
			return nil
		}
	}
	return repository.ErrCredentialNotFound
}

func (r *MemoryCredentialRepository) RecordFailure(ctx context.Context, username string, maxFailed int) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cred, exists := r.creds[username]
	if !exists {
		return false, repository.ErrCredentialNotFound
	}
	cred.FailedAttempts++
	if cred.FailedAttempts >= maxFailed {
		cred.Locked = true
	}
	cred.UpdatedAt = time.Now()
	return cred.Locked, nil
}

func (r *MemoryCredentialRepository) RecordSuccess(ctx context.Context, username string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cred, exists := r.creds[username]
	if !exists {
		return nil
	}
	if !cred.Locked {
		cred.FailedAttempts = 0
		cred.UpdatedAt = time.Now()
	}
	return nil
}

func (r *MemoryCredentialRepository) Unlock(ctx context.Context, username string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cred, exists := r.creds[username]
	if !exists {
		return repository.ErrCredentialNotFound
	}
	cred.Locked = false
	cred.FailedAttempts = 0
	cred.UpdatedAt = time.Now()
	return nil
}

var _ repository.CredentialRepository = (*MemoryCredentialRepository)(nil)

// MemoryPasswordHistoryRepository is an in-memory implementation of
// repository.PasswordHistoryRepository.
type MemoryPasswordHistoryRepository struct {
	mu      sync.Mutex
	entries map[uuid.UUID][]models.PasswordHistory
}

func NewMemoryPasswordHistoryRepository() *MemoryPasswordHistoryRepository {
	return &MemoryPasswordHistoryRepository{entries: make(map[uuid.UUID][]models.PasswordHistory)}
}

func (r *MemoryPasswordHistoryRepository) Add(ctx context.Context, credentialID uuid.UUID, passwordHash, salt string) error {
	r.recordRetired(credentialID, passwordHash, salt)
	return nil
}

func (r *MemoryPasswordHistoryRepository) recordRetired(credentialID uuid.UUID, passwordHash, salt string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[credentialID] = append(r.entries[credentialID], models.PasswordHistory{
		ID:           uuid.New(),
		CredentialID: credentialID,
		PasswordHash: passwordHash,
		Salt:         salt,
		CreatedAt:    time.Now(),
	})
}

func (r *MemoryPasswordHistoryRepository) Recent(ctx context.Context, credentialID uuid.UUID, n int) ([]models.PasswordHistory, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	all := r.entries[credentialID]
	var recent []models.PasswordHistory
	for i := len(all) - 1; i >= 0 && len(recent) < n; i-- {
		recent = append(recent, all[i])
	}
	return recent, nil
}

var _ repository.PasswordHistoryRepository = (*MemoryPasswordHistoryRepository)(nil)

// MemoryResetCodeRepository is an in-memory implementation of
// repository.ResetCodeRepository.
type MemoryResetCodeRepository struct {
	mu    sync.Mutex
	codes map[string]*models.ResetCode
}

func NewMemoryResetCodeRepository() *MemoryResetCodeRepository {
	return &MemoryResetCodeRepository{codes: make(map[string]*models.ResetCode)}
}

func (r *MemoryResetCodeRepository) Upsert(ctx context.Context, code *models.ResetCode) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	code.Attempts = 0
	code.CreatedAt = time.Now()
	stored := *code
	r.codes[code.Username] = &stored
	return nil
}

func (r *MemoryResetCodeRepository) GetByUsername(ctx context.Context, username string) (*models.ResetCode, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	code, exists := r.codes[username]
	if !exists {
		return nil, repository.ErrResetCodeNotFound
	}
	copied := *code
	return &copied, nil
}

func (r *MemoryResetCodeRepository) IncrementAttempts(ctx context.Context, username string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	code, exists := r.codes[username]
	if !exists {
		return 0, repository.ErrResetCodeNotFound
	}
	code.Attempts++
	return code.Attempts, nil
}

func (r *MemoryResetCodeRepository) Delete(ctx context.Context, username string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.codes, username)
	return nil
}

func (r *MemoryResetCodeRepository) DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var purged int64
	for username, code := range r.codes {
		if code.CreatedAt.Before(cutoff) {
			delete(r.codes, username)
			purged++
		}
	}
	return purged, nil
}

// SetCreatedAt backdates a stored code, for expiry tests.
func (r *MemoryResetCodeRepository) SetCreatedAt(username string, at time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if code, exists := r.codes[username]; exists {
		code.CreatedAt = at
	}
}

var _ repository.ResetCodeRepository = (*MemoryResetCodeRepository)(nil)

// MemoryAuditLogRepository is an in-memory implementation of
// repository.AuditLogRepository.
type MemoryAuditLogRepository struct {
	mu   sync.Mutex
	logs []models.AuditLog
}

func NewMemoryAuditLogRepository() *MemoryAuditLogRepository {
	return &MemoryAuditLogRepository{}
}

func (r *MemoryAuditLogRepository) Create(ctx context.Context, log *models.AuditLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if log.ID == uuid.Nil {
		log.ID = uuid.New()
	}
	log.CreatedAt = time.Now()
	r.logs = append(r.logs, *log)
	return nil
}

func (r *MemoryAuditLogRepository) GetByCredentialID(ctx context.Context, credentialID uuid.UUID, limit int) ([]models.AuditLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var matched []models.AuditLog
	for i := len(r.logs) - 1; i >= 0 && len(matched) < limit; i-- {
		if r.logs[i].CredentialID != nil && *r.logs[i].CredentialID == credentialID {
			matched = append(matched, r.logs[i])
		}
	}
	return matched, nil
}

// Actions returns the recorded action names in insertion order.
func (r *MemoryAuditLogRepository) Actions() []models.AuditAction {
	r.mu.Lock()
	defer r.mu.Unlock()

	actions := make([]models.AuditAction, 0, len(r.logs))
	for _, log := range r.logs {
		actions = append(actions, log.Action)
	}
	return actions
}

var _ repository.AuditLogRepository = (*MemoryAuditLogRepository)(nil)
