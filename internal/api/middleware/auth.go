package middleware

import (
	"net/http"
	"strings"

	"commauth/internal/auth"
	"commauth/internal/models"
	"commauth/internal/repository"

	"github.com/gin-gonic/gin"
)

// ContextKeyCredential is the gin context key holding the authenticated credential.
const ContextKeyCredential = "credential"

type AuthMiddleware struct {
	tokens   *auth.TokenManager
	credRepo repository.CredentialRepository
}

func NewAuthMiddleware(tokens *auth.TokenManager, credRepo repository.CredentialRepository) *AuthMiddleware {
	return &AuthMiddleware{
		tokens:   tokens,
		credRepo: credRepo,
	}
}

// AuthRequired validates the bearer session token and loads the credential
// into the request context.
func (m *AuthMiddleware) AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, models.ErrorResponse{Error: "no authorization header"})
			c.Abort()
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.JSON(http.StatusUnauthorized, models.ErrorResponse{Error: "invalid authorization header"})
			c.Abort()
			return
		}

		username, err := m.tokens.ParseSession(parts[1])
		if err != nil {
			c.JSON(http.StatusUnauthorized, models.ErrorResponse{Error: err.Error()})
			c.Abort()
			return
		}

		cred, err := m.credRepo.GetByUsername(c.Request.Context(), username)
		if err != nil {
			c.JSON(http.StatusUnauthorized, models.ErrorResponse{Error: "invalid token"})
			c.Abort()
			return
		}

		// A lockout issued after the token revokes it.
		if cred.Locked {
			c.JSON(http.StatusUnauthorized, models.ErrorResponse{Error: "invalid token"})
			c.Abort()
			return
		}

		c.Set(ContextKeyCredential, cred)
		c.Next()
	}
}

// GetCredentialFromContext retrieves the authenticated credential from the gin context
func GetCredentialFromContext(c *gin.Context) *models.Credential {
	v, exists := c.Get(ContextKeyCredential)
	if !exists {
		return nil
	}
	if cred, ok := v.(*models.Credential); ok {
		return cred
	}
	return nil
}
