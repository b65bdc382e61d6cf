package auth

import "errors"

var (
	// ErrAuthenticationFailed covers unknown username, locked account, and
	// wrong password. The three cases must stay observably identical, so
	// there is exactly one value and one message.
	ErrAuthenticationFailed = errors.New("username or password is incorrect")

	// ErrResetFlowInvalid covers a missing reset record, a wrong code, and an
	// expired code, for the same reason.
	ErrResetFlowInvalid = errors.New("invalid or expired reset code")

	// ErrInvalidToken indicates the token is invalid
	ErrInvalidToken = errors.New("invalid token")
	// ErrTokenExpired indicates the token has expired
	ErrTokenExpired = errors.New("token expired")
)

// ValidationError reports why a candidate password was rejected. The reason
// is about the caller's own input, so it is safe to show verbatim.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

// IsValidationError reports whether err is a policy rejection and returns it.
func IsValidationError(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}
