package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadFromEnvDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "test_secret_key")

	cfg := &Config{}
	require.NoError(t, cfg.LoadFromEnv())

	require.Equal(t, "8080", cfg.API.Port)
	require.Equal(t, "localhost", cfg.Database.Host)
	require.Equal(t, 5432, cfg.Database.Port)
	require.Equal(t, "commauth", cfg.Database.DBName)
	require.Equal(t, "disable", cfg.Database.SSLMode)
	require.Equal(t, "migrations", cfg.Database.MigrationsPath)

	require.Equal(t, "test_secret_key", cfg.Auth.JWTSecret)
	require.Equal(t, 30*time.Minute, cfg.Auth.SessionTokenTTL)
	require.Equal(t, 10*time.Minute, cfg.Auth.ResetTokenTTL)
	require.True(t, cfg.Auth.RegistrationOpen)

	require.Equal(t, "passwordConfig.json", cfg.Policy.ConfigPath)
	require.Equal(t, "common_passwords.txt", cfg.Policy.CommonPasswordsPath)
	require.Equal(t, time.Minute, cfg.Policy.ReloadInterval)

	require.Equal(t, 100, cfg.RateLimit.Requests)
	require.Equal(t, 60, cfg.RateLimit.Window)
	require.Equal(t, 10, cfg.RateLimit.Burst)
}

func TestLoadFromEnvOverrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "test_secret_key")
	t.Setenv("API_PORT", "9090")
	t.Setenv("DB_NAME", "commauth_test")
	t.Setenv("SESSION_TOKEN_TTL_MINUTES", "5")
	t.Setenv("RESET_TOKEN_TTL_MINUTES", "2")
	t.Setenv("REGISTRATION_OPEN", "false")
	t.Setenv("POLICY_CONFIG_PATH", "/etc/commauth/policy.json")
	t.Setenv("POLICY_RELOAD_SECONDS", "15")

	cfg := &Config{}
	require.NoError(t, cfg.LoadFromEnv())

	require.Equal(t, "9090", cfg.API.Port)
	require.Equal(t, "commauth_test", cfg.Database.DBName)
	require.Equal(t, 5*time.Minute, cfg.Auth.SessionTokenTTL)
	require.Equal(t, 2*time.Minute, cfg.Auth.ResetTokenTTL)
	require.False(t, cfg.Auth.RegistrationOpen)
	require.Equal(t, "/etc/commauth/policy.json", cfg.Policy.ConfigPath)
	require.Equal(t, 15*time.Second, cfg.Policy.ReloadInterval)
}

func TestLoadFromEnvRequiresJWTSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")

	cfg := &Config{}
	require.Error(t, cfg.LoadFromEnv())
}
