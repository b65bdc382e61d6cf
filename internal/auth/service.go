// Package auth implements the credential lifecycle: registration, login with
// lockout, authenticated password change, and code-based password recovery.
// Transport and storage are collaborators; the sequencing and the security
// invariants live here.
package auth

import (
	"context"
	"errors"
	"fmt"

	"commauth/internal/models"
	"commauth/internal/password"
	"commauth/internal/policy"
	"commauth/internal/repository"
)

// timingSalt keys the dummy hash computed on the short-circuit login paths,
// so an unknown or locked username costs the same as a wrong password.
const timingSalt = "0123456789abcdef0123456789abcdef"

// Service sequences the credential flows over the repositories.
type Service struct {
	creds   repository.CredentialRepository
	history repository.PasswordHistoryRepository
	resets  *ResetManager
	policy  *policy.Provider
	tokens  *TokenManager
}

// NewService creates a new credential lifecycle service.
func NewService(
	creds repository.CredentialRepository,
	history repository.PasswordHistoryRepository,
	codes repository.ResetCodeRepository,
	policyProvider *policy.Provider,
	tokens *TokenManager,
) *Service {
	return &Service{
		creds:   creds,
		history: history,
		resets:  NewResetManager(codes),
		policy:  policyProvider,
		tokens:  tokens,
	}
}

// Tokens exposes the token manager for transport middleware.
func (s *Service) Tokens() *TokenManager {
	return s.tokens
}

// Resets exposes the reset manager for scheduled maintenance.
func (s *Service) Resets() *ResetManager {
	return s.resets
}

// Register validates the password against the policy (no history yet),
// creates the credential under a fresh salt, and seeds the history with the
// hash that just went into force. Username and email uniqueness come back
// from the store as ErrUsernameExists / ErrEmailExists.
func (s *Service) Register(ctx context.Context, username, email, plaintext string) (*models.Credential, error) {
	if !IsValidEmail(email) {
		return nil, &ValidationError{Reason: "email address is not valid"}
	}

	pol := s.policy.Current()
	if err := ValidatePassword(plaintext, pol, s.policy.CommonPasswords(), nil); err != nil {
		return nil, err
	}

	hash, salt, err := password.Generate(plaintext)
	if err != nil {
		return nil, err
	}

	cred := &models.Credential{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Salt:         salt,
	}
	if err := s.creds.Create(ctx, cred); err != nil {
		return nil, err
	}

	if err := s.history.Add(ctx, cred.ID, hash, salt); err != nil {
		return nil, fmt.Errorf("failed to record password history: %w", err)
	}

	return cred, nil
}

// Login authenticates a username/password pair and returns a session token.
// Unknown username, locked account, and wrong password are indistinguishable
// to the caller: same error, same dummy-hash cost. The lock gate runs before
// any password comparison.
func (s *Service) Login(ctx context.Context, username, plaintext string) (string, error) {
	cred, err := s.creds.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrCredentialNotFound) {
			password.Hash(plaintext, timingSalt)
			return "", ErrAuthenticationFailed
		}
		return "", err
	}

	if cred.Locked {
		password.Hash(plaintext, timingSalt)
		return "", ErrAuthenticationFailed
	}

	if !password.Verify(plaintext, cred.Salt, cred.PasswordHash) {
		pol := s.policy.Current()
		if _, err := s.creds.RecordFailure(ctx, username, pol.MaxFailedLogins); err != nil {
			return "", err
		}
		return "", ErrAuthenticationFailed
	}

	if err := s.creds.RecordSuccess(ctx, username); err != nil {
		return "", err
	}

	return s.tokens.IssueSession(username)
}

// ChangePassword rotates the password of an authenticated user: verify the
// old password, validate the new one against policy and history, then append
// the retired hash and overwrite the live one in a single transaction.
func (s *Service) ChangePassword(ctx context.Context, username, current, next string) error {
	cred, err := s.creds.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrCredentialNotFound) {
			return ErrAuthenticationFailed
		}
		return err
	}

	if !password.Verify(current, cred.Salt, cred.PasswordHash) {
		return ErrAuthenticationFailed
	}

	return s.setPassword(ctx, cred, next)
}

// ForgotPassword issues a recovery code for username and returns the
// credential (for the notifier's destination address) together with the
// plaintext code. Callers must not reveal to the requester whether the
// username exists.
func (s *Service) ForgotPassword(ctx context.Context, username string) (*models.Credential, string, error) {
	cred, err := s.creds.GetByUsername(ctx, username)
	if err != nil {
		return nil, "", err
	}

	code, err := s.resets.Issue(ctx, username)
	if err != nil {
		return nil, "", err
	}
	return cred, code, nil
}

// VerifyResetCode redeems a recovery code and converts it into a short-lived
// reset capability token. The code is single-use; it is gone once this
// succeeds.
func (s *Service) VerifyResetCode(ctx context.Context, username, code string) (string, error) {
	if err := s.resets.Verify(ctx, username, code); err != nil {
		return "", err
	}
	return s.tokens.IssueReset(username)
}

// ResetPassword completes recovery under a verified reset token. No old
// password is required; policy and history checks still apply.
func (s *Service) ResetPassword(ctx context.Context, resetToken, next string) error {
	username, err := s.tokens.ParseReset(resetToken)
	if err != nil {
		return ErrResetFlowInvalid
	}

	cred, err := s.creds.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrCredentialNotFound) {
			return ErrResetFlowInvalid
		}
		return err
	}

	return s.setPassword(ctx, cred, next)
}

// Unlock clears a lockout. Administrative action; there is no self-service
// or time-based unlock.
func (s *Service) Unlock(ctx context.Context, username string) error {
	return s.creds.Unlock(ctx, username)
}

func (s *Service) setPassword(ctx context.Context, cred *models.Credential, next string) error {
	pol := s.policy.Current()

	var entries []models.PasswordHistory
	if pol.PreventReuse && pol.HistoryCount > 0 {
		var err error
		entries, err = s.history.Recent(ctx, cred.ID, pol.HistoryCount)
		if err != nil {
			return err
		}
	}

	if err := ValidatePassword(next, pol, s.policy.CommonPasswords(), entries); err != nil {
		return err
	}

	hash, salt, err := password.Generate(next)
	if err != nil {
		return err
	}

	// The retired pair goes into history in the same transaction that
	// overwrites the live hash.
	return s.creds.UpdatePassword(ctx, cred.ID, cred.PasswordHash, cred.Salt, hash, salt)
}
