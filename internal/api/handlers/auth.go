package handlers

import (
	"errors"
	"fmt"
	"log"
	"net/http"

	"commauth/internal/api/middleware"
	"commauth/internal/auth"
	"commauth/internal/config"
	"commauth/internal/email"
	"commauth/internal/models"
	"commauth/internal/repository"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// AuthHandler exposes the credential lifecycle over HTTP.
type AuthHandler struct {
	service   *auth.Service
	auditRepo repository.AuditLogRepository
	notifier  email.Notifier
	config    *config.Config
}

// NewAuthHandler creates a new authentication handler
func NewAuthHandler(service *auth.Service, auditRepo repository.AuditLogRepository, notifier email.Notifier, cfg *config.Config) *AuthHandler {
	return &AuthHandler{
		service:   service,
		auditRepo: auditRepo,
		notifier:  notifier,
		config:    cfg,
	}
}

// Register creates a new credential.
func (h *AuthHandler) Register(c *gin.Context) {
	if !h.config.Auth.RegistrationOpen {
		c.JSON(http.StatusForbidden, models.ErrorResponse{Error: "registration is closed"})
		return
	}

	var req models.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid request format"})
		return
	}

	cred, err := h.service.Register(c.Request.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}

	h.audit(c, &cred.ID, models.AuditActionRegister, fmt.Sprintf("credential created for %s", cred.Username))

	c.JSON(http.StatusCreated, cred)
}

// Login authenticates a username/password pair and returns a session token.
// Every failure mode gets the same response body.
func (h *AuthHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid request format"})
		return
	}

	token, err := h.service.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrAuthenticationFailed) {
			h.audit(c, nil, models.AuditActionLoginFailed, fmt.Sprintf("failed login for %s", req.Username))
		}
		h.writeServiceError(c, err)
		return
	}

	h.audit(c, nil, models.AuditActionLoginSuccess, fmt.Sprintf("successful login for %s", req.Username))

	c.JSON(http.StatusOK, models.LoginResponse{AccessToken: token})
}

// ChangePassword rotates the password of the authenticated user.
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	cred := middleware.GetCredentialFromContext(c)
	if cred == nil {
		c.JSON(http.StatusUnauthorized, models.ErrorResponse{Error: "authentication required"})
		return
	}

	var req models.ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid request format"})
		return
	}

	if err := h.service.ChangePassword(c.Request.Context(), cred.Username, req.CurrentPassword, req.NewPassword); err != nil {
		h.writeServiceError(c, err)
		return
	}

	h.audit(c, &cred.ID, models.AuditActionPasswordChanged, "password changed")

	c.JSON(http.StatusOK, models.SuccessResponse{Message: "password changed successfully"})
}

// ForgotPassword starts the recovery flow. The response is identical whether
// or not the username exists.
func (h *AuthHandler) ForgotPassword(c *gin.Context) {
	var req models.ForgotPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid request format"})
		return
	}

	cred, code, err := h.service.ForgotPassword(c.Request.Context(), req.Username)
	if err != nil {
		if errors.Is(err, repository.ErrCredentialNotFound) {
			c.JSON(http.StatusOK, models.SuccessResponse{Message: "if the account exists, a verification code has been sent"})
			return
		}
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "failed to start password reset"})
		return
	}

	if err := h.notifier.SendResetCode(cred.Email, cred.Username, code); err != nil {
		log.Printf("Failed to send reset code to %s: %v", cred.Email, err)
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "failed to send verification code"})
		return
	}

	h.audit(c, &cred.ID, models.AuditActionResetIssued, "password reset code issued")

	c.JSON(http.StatusOK, models.SuccessResponse{Message: "if the account exists, a verification code has been sent"})
}

// VerifyResetCode redeems an emailed code for a short-lived reset token.
func (h *AuthHandler) VerifyResetCode(c *gin.Context) {
	var req models.VerifyResetCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid request format"})
		return
	}

	token, err := h.service.VerifyResetCode(c.Request.Context(), req.Username, req.Code)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.VerifyResetResponse{ResetToken: token})
}

// CompleteReset sets a new password under a verified reset token.
func (h *AuthHandler) CompleteReset(c *gin.Context) {
	var req models.CompleteResetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid request format"})
		return
	}

	if err := h.service.ResetPassword(c.Request.Context(), req.ResetToken, req.NewPassword); err != nil {
		h.writeServiceError(c, err)
		return
	}

	h.audit(c, nil, models.AuditActionResetCompleted, "password reset completed")

	c.JSON(http.StatusOK, models.SuccessResponse{Message: "password reset successfully"})
}

// writeServiceError maps service errors onto HTTP responses. Policy
// violations carry their reason; authentication and reset failures stay
// deliberately vague.
func (h *AuthHandler) writeServiceError(c *gin.Context, err error) {
	var verr *auth.ValidationError
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: verr.Reason})
	case errors.Is(err, auth.ErrAuthenticationFailed):
		c.JSON(http.StatusUnauthorized, models.ErrorResponse{Error: err.Error()})
	case errors.Is(err, auth.ErrResetFlowInvalid):
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: err.Error()})
	case errors.Is(err, repository.ErrUsernameExists):
		c.JSON(http.StatusConflict, models.ErrorResponse{Error: "username already exists"})
	case errors.Is(err, repository.ErrEmailExists):
		c.JSON(http.StatusConflict, models.ErrorResponse{Error: "email already exists"})
	default:
		log.Printf("Unexpected service error: %v", err)
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "internal server error"})
	}
}

// audit records an activity entry, best effort. A failed audit write never
// fails the request.
func (h *AuthHandler) audit(c *gin.Context, credentialID *uuid.UUID, action models.AuditAction, description string) {
	entry := &models.AuditLog{
		CredentialID: credentialID,
		Action:       action,
		Description:  description,
		IPAddress:    c.ClientIP(),
		UserAgent:    c.Request.UserAgent(),
	}
	if err := h.auditRepo.Create(c.Request.Context(), entry); err != nil {
		log.Printf("Failed to write audit log: %v", err)
	}
}
