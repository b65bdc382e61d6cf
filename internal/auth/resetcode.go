package auth

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"commauth/internal/models"
	"commauth/internal/repository"
)

const (
	// ResetCodeLength is the display length of a recovery code. The code is
	// derived from 256 bits of randomness and truncated for transcription.
	ResetCodeLength = 8
	// ResetCodeTTL bounds how long an issued code stays redeemable.
	ResetCodeTTL = 15 * time.Minute
	// MaxResetAttempts bounds failed verifications before the code burns.
	// Recovery gets its own brute-force limit; the login lockout does not
	// cover this path.
	MaxResetAttempts = 5
)

// GenerateResetCode derives a short uppercase code from fresh randomness.
func GenerateResetCode() (string, error) {
	seed := make([]byte, 32)
	if _, err := rand.Read(seed); err != nil {
		return "", fmt.Errorf("failed to generate reset code: %w", err)
	}
	digest := sha256.Sum256(seed)
	return strings.ToUpper(hex.EncodeToString(digest[:])[:ResetCodeLength]), nil
}

// HashResetCode computes the one-way hash stored in place of the plaintext.
func HashResetCode(code string) string {
	digest := sha256.Sum256([]byte(code))
	return hex.EncodeToString(digest[:])
}

// ResetManager issues and verifies one-time recovery codes, independent of
// the login path.
type ResetManager struct {
	codes repository.ResetCodeRepository
}

// NewResetManager creates a reset code manager.
func NewResetManager(codes repository.ResetCodeRepository) *ResetManager {
	return &ResetManager{codes: codes}
}

// Issue generates a code for username, stores only its hash (overwriting any
// prior live code), and returns the plaintext exactly once for out-of-band
// delivery. The plaintext is never logged or persisted.
func (m *ResetManager) Issue(ctx context.Context, username string) (string, error) {
	code, err := GenerateResetCode()
	if err != nil {
		return "", err
	}

	record := &models.ResetCode{
		Username: username,
		CodeHash: HashResetCode(code),
	}
	if err := m.codes.Upsert(ctx, record); err != nil {
		return "", err
	}

	return code, nil
}

// Verify redeems a candidate code. A correct code validates exactly once:
// the record is deleted before Verify returns. A wrong code counts against
// MaxResetAttempts and burns the record once exceeded. Missing, expired, and
// mismatched codes all surface the same ErrResetFlowInvalid.
func (m *ResetManager) Verify(ctx context.Context, username, candidate string) error {
	record, err := m.codes.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrResetCodeNotFound) {
			return ErrResetFlowInvalid
		}
		return err
	}

	if time.Since(record.CreatedAt) > ResetCodeTTL {
		if err := m.codes.Delete(ctx, username); err != nil {
			return err
		}
		return ErrResetFlowInvalid
	}

	candidateHash := HashResetCode(strings.ToUpper(strings.TrimSpace(candidate)))
	if !hmac.Equal([]byte(candidateHash), []byte(record.CodeHash)) {
		attempts, err := m.codes.IncrementAttempts(ctx, username)
		if err != nil && !errors.Is(err, repository.ErrResetCodeNotFound) {
			return err
		}
		if attempts >= MaxResetAttempts {
			if err := m.codes.Delete(ctx, username); err != nil {
				return err
			}
		}
		return ErrResetFlowInvalid
	}

	// Single use: invalidate before reporting success.
	if err := m.codes.Delete(ctx, username); err != nil {
		return err
	}
	return nil
}

// PurgeExpired removes codes older than the TTL. Scheduled from main.
func (m *ResetManager) PurgeExpired(ctx context.Context) (int64, error) {
	return m.codes.DeleteExpired(ctx, time.Now().Add(-ResetCodeTTL))
}
