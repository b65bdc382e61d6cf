package models

// RegisterRequest represents a registration request
type RegisterRequest struct {
	Username string `json:"username" binding:"required,min=3,max=50,nospaces"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
	Confirm  string `json:"confirm" binding:"required,eqfield=Password"`
}

// LoginRequest represents a login request
type LoginRequest struct {
	Username string `json:"username" binding:"required,max=50"`
	Password string `json:"password" binding:"required"`
}

// ChangePasswordRequest represents an authenticated password change
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required"`
	Confirm         string `json:"confirm" binding:"required,eqfield=NewPassword"`
}

// ForgotPasswordRequest starts the recovery flow for a username
type ForgotPasswordRequest struct {
	Username string `json:"username" binding:"required,max=50"`
}

// VerifyResetCodeRequest redeems an emailed one-time code
type VerifyResetCodeRequest struct {
	Username string `json:"username" binding:"required,max=50"`
	Code     string `json:"code" binding:"required,max=16"`
}

// CompleteResetRequest sets a new password under a verified reset token
type CompleteResetRequest struct {
	ResetToken  string `json:"reset_token" binding:"required"`
	NewPassword string `json:"new_password" binding:"required"`
	Confirm     string `json:"confirm" binding:"required,eqfield=NewPassword"`
}
