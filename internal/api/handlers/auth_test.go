package handlers_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"commauth/internal/api/handlers"
	"commauth/internal/api/middleware"
	"commauth/internal/auth"
	"commauth/internal/config"
	"commauth/internal/models"
	"commauth/internal/policy"
	"commauth/internal/testutil"
	"commauth/internal/validation"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

const testPolicy = `{
	"min_length": 10,
	"complexity": {"uppercase": true, "lowercase": true, "digits": true, "special": true},
	"history_count": 3,
	"max_failed_logins": 3,
	"prevent_reuse": true
}`

type fixture struct {
	router   *gin.Engine
	service  *auth.Service
	notifier *testutil.RecordingNotifier
	audit    *testutil.MemoryAuditLogRepository
	config   *config.Config
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)
	validation.Initialize()

	dir := t.TempDir()
	policyPath := filepath.Join(dir, "policy.json")
	require.NoError(t, os.WriteFile(policyPath, []byte(testPolicy), 0o644))

	provider, err := policy.NewProvider(policyPath, filepath.Join(dir, "common.txt"))
	require.NoError(t, err)

	cfg := &config.Config{}
	cfg.Auth = config.AuthConfig{
		JWTSecret:        "test_secret_key",
		SessionTokenTTL:  30 * time.Minute,
		ResetTokenTTL:    10 * time.Minute,
		RegistrationOpen: true,
	}

	creds := testutil.NewMemoryCredentialRepository()
	history := testutil.NewMemoryPasswordHistoryRepository()
	creds.History = history
	codes := testutil.NewMemoryResetCodeRepository()
	auditRepo := testutil.NewMemoryAuditLogRepository()
	notifier := testutil.NewRecordingNotifier()

	tokens := auth.NewTokenManager(cfg.Auth)
	service := auth.NewService(creds, history, codes, provider, tokens)
	authMiddleware := middleware.NewAuthMiddleware(tokens, creds)
	handler := handlers.NewAuthHandler(service, auditRepo, notifier, cfg)

	router := gin.New()
	group := router.Group("/api/v1/auth")
	group.POST("/register", handler.Register)
	group.POST("/login", handler.Login)
	group.POST("/change-password", authMiddleware.AuthRequired(), handler.ChangePassword)
	group.POST("/forgot-password", handler.ForgotPassword)
	group.POST("/verify-reset", handler.VerifyResetCode)
	group.POST("/reset-password", handler.CompleteReset)

	return &fixture{
		router:   router,
		service:  service,
		notifier: notifier,
		audit:    auditRepo,
		config:   cfg,
	}
}

func (f *fixture) do(t *testing.T, path string, body any, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth"+path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func (f *fixture) register(t *testing.T, username, pw string) {
	t.Helper()
	w := f.do(t, "/register", models.RegisterRequest{
		Username: username,
		Email:    username + "@example.com",
		Password: pw,
		Confirm:  pw,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
}

func (f *fixture) login(t *testing.T, username, pw string) string {
	t.Helper()
	w := f.do(t, "/login", models.LoginRequest{Username: username, Password: pw})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp models.LoginResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.AccessToken)
	return resp.AccessToken
}

func TestRegisterEndpoint(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, "/register", models.RegisterRequest{
		Username: "alice",
		Email:    "alice@example.com",
		Password: "Str0ng!Password",
		Confirm:  "Str0ng!Password",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	// Secrets never leave the server.
	require.NotContains(t, w.Body.String(), "password_hash")
	require.NotContains(t, w.Body.String(), "salt")

	var cred models.Credential
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &cred))
	require.Equal(t, "alice", cred.Username)
}

func TestRegisterEndpointRejectsBadRequests(t *testing.T) {
	f := newFixture(t)
	f.register(t, "alice", "Str0ng!Password")

	tests := []struct {
		name string
		req  models.RegisterRequest
		code int
	}{
		{
			"duplicate username",
			models.RegisterRequest{Username: "alice", Email: "alice2@example.com", Password: "Str0ng!Password", Confirm: "Str0ng!Password"},
			http.StatusConflict,
		},
		{
			"duplicate email",
			models.RegisterRequest{Username: "alice2", Email: "alice@example.com", Password: "Str0ng!Password", Confirm: "Str0ng!Password"},
			http.StatusConflict,
		},
		{
			"confirmation mismatch",
			models.RegisterRequest{Username: "bob", Email: "bob@example.com", Password: "Str0ng!Password", Confirm: "Different!1"},
			http.StatusBadRequest,
		},
		{
			"username with spaces",
			models.RegisterRequest{Username: "bob smith", Email: "bob@example.com", Password: "Str0ng!Password", Confirm: "Str0ng!Password"},
			http.StatusBadRequest,
		},
		{
			"weak password",
			models.RegisterRequest{Username: "bob", Email: "bob@example.com", Password: "weak", Confirm: "weak"},
			http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := f.do(t, "/register", tt.req)
			require.Equal(t, tt.code, w.Code, w.Body.String())
		})
	}
}

func TestRegisterEndpointPolicyReason(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, "/register", models.RegisterRequest{
		Username: "alice",
		Email:    "alice@example.com",
		Password: "weakpassword",
		Confirm:  "weakpassword",
	})
	require.Equal(t, http.StatusBadRequest, w.Code)

	var resp models.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, "password must include an uppercase letter", resp.Error)
}

func TestRegisterEndpointClosed(t *testing.T) {
	f := newFixture(t)
	f.config.Auth.RegistrationOpen = false

	w := f.do(t, "/register", models.RegisterRequest{
		Username: "alice",
		Email:    "alice@example.com",
		Password: "Str0ng!Password",
		Confirm:  "Str0ng!Password",
	})
	require.Equal(t, http.StatusForbidden, w.Code)
}

func TestLoginEndpoint(t *testing.T) {
	f := newFixture(t)
	f.register(t, "alice", "Str0ng!Password")

	token := f.login(t, "alice", "Str0ng!Password")
	require.NotEmpty(t, token)
}

func TestLoginEndpointFailuresShareOneBody(t *testing.T) {
	f := newFixture(t)
	f.register(t, "alice", "Str0ng!Password")

	wrong := f.do(t, "/login", models.LoginRequest{Username: "alice", Password: "Wr0ng!Password"})
	unknown := f.do(t, "/login", models.LoginRequest{Username: "nobody", Password: "Str0ng!Password"})

	require.Equal(t, http.StatusUnauthorized, wrong.Code)
	require.Equal(t, http.StatusUnauthorized, unknown.Code)
	require.JSONEq(t, wrong.Body.String(), unknown.Body.String())
}

func TestLoginEndpointLockout(t *testing.T) {
	f := newFixture(t)
	f.register(t, "alice", "Str0ng!Password")

	for i := 0; i < 3; i++ {
		w := f.do(t, "/login", models.LoginRequest{Username: "alice", Password: "Wr0ng!Password"})
		require.Equal(t, http.StatusUnauthorized, w.Code)
	}

	w := f.do(t, "/login", models.LoginRequest{Username: "alice", Password: "Str0ng!Password"})
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestChangePasswordEndpoint(t *testing.T) {
	f := newFixture(t)
	f.register(t, "alice", "Str0ng!Password")
	token := f.login(t, "alice", "Str0ng!Password")

	w := f.do(t, "/change-password", models.ChangePasswordRequest{
		CurrentPassword: "Str0ng!Password",
		NewPassword:     "N3w!Password99",
		Confirm:         "N3w!Password99",
	}, "Authorization", "Bearer "+token)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = f.do(t, "/login", models.LoginRequest{Username: "alice", Password: "Str0ng!Password"})
	require.Equal(t, http.StatusUnauthorized, w.Code)
	f.login(t, "alice", "N3w!Password99")
}

func TestChangePasswordEndpointRequiresAuth(t *testing.T) {
	f := newFixture(t)
	f.register(t, "alice", "Str0ng!Password")

	w := f.do(t, "/change-password", models.ChangePasswordRequest{
		CurrentPassword: "Str0ng!Password",
		NewPassword:     "N3w!Password99",
		Confirm:         "N3w!Password99",
	})
	require.Equal(t, http.StatusUnauthorized, w.Code)

	w = f.do(t, "/change-password", models.ChangePasswordRequest{
		CurrentPassword: "Str0ng!Password",
		NewPassword:     "N3w!Password99",
		Confirm:         "N3w!Password99",
	}, "Authorization", "Bearer not-a-token")
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestForgotPasswordEndpointDoesNotRevealAccounts(t *testing.T) {
	f := newFixture(t)
	f.register(t, "alice", "Str0ng!Password")

	known := f.do(t, "/forgot-password", models.ForgotPasswordRequest{Username: "alice"})
	unknown := f.do(t, "/forgot-password", models.ForgotPasswordRequest{Username: "nobody"})

	require.Equal(t, http.StatusOK, known.Code)
	require.Equal(t, http.StatusOK, unknown.Code)
	require.JSONEq(t, known.Body.String(), unknown.Body.String())

	// Only the real account got mail.
	sent := f.notifier.Sent()
	require.Len(t, sent, 1)
	require.Equal(t, "alice@example.com", sent[0].To)
	require.NotEmpty(t, sent[0].Code)
}

func TestForgotPasswordEndpointNotifierFailure(t *testing.T) {
	f := newFixture(t)
	f.register(t, "alice", "Str0ng!Password")
	f.notifier.FailWith(fmt.Errorf("smtp unreachable"))

	w := f.do(t, "/forgot-password", models.ForgotPasswordRequest{Username: "alice"})
	require.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestPasswordResetEndpointFlow(t *testing.T) {
	f := newFixture(t)
	f.register(t, "alice", "Str0ng!Password")

	w := f.do(t, "/forgot-password", models.ForgotPasswordRequest{Username: "alice"})
	require.Equal(t, http.StatusOK, w.Code)
	code := f.notifier.LastCode()
	require.NotEmpty(t, code)

	w = f.do(t, "/verify-reset", models.VerifyResetCodeRequest{Username: "alice", Code: code})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var verify models.VerifyResetResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &verify))
	require.NotEmpty(t, verify.ResetToken)

	w = f.do(t, "/reset-password", models.CompleteResetRequest{
		ResetToken:  verify.ResetToken,
		NewPassword: "N3w!Password99",
		Confirm:     "N3w!Password99",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	f.login(t, "alice", "N3w!Password99")
}

func TestVerifyResetEndpointWrongCode(t *testing.T) {
	f := newFixture(t)
	f.register(t, "alice", "Str0ng!Password")

	w := f.do(t, "/forgot-password", models.ForgotPasswordRequest{Username: "alice"})
	require.Equal(t, http.StatusOK, w.Code)

	w = f.do(t, "/verify-reset", models.VerifyResetCodeRequest{Username: "alice", Code: "00000000"})
	require.Equal(t, http.StatusBadRequest, w.Code)

	var resp models.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, "invalid or expired reset code", resp.Error)
}

func TestAuditTrail(t *testing.T) {
	f := newFixture(t)
	f.register(t, "alice", "Str0ng!Password")
	f.do(t, "/login", models.LoginRequest{Username: "alice", Password: "Wr0ng!Password"})
	f.login(t, "alice", "Str0ng!Password")

	actions := f.audit.Actions()
	require.Equal(t, []models.AuditAction{
		models.AuditActionRegister,
		models.AuditActionLoginFailed,
		models.AuditActionLoginSuccess,
	}, actions)
}
