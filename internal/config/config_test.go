package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDefaults(t *testing.T) {
	cfg, err := Parse(map[string]string{})
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 3, cfg.ExpiringSoonDays)
	assert.Equal(t, 24*time.Hour, cfg.Auth.TokenTTL)
	assert.Equal(t, []string{"http://localhost:5173", "http://127.0.0.1:5173"}, cfg.CORSOrigins)
	assert.Equal(t, "ecofood-dev-secret", cfg.Secret())
	assert.False(t, cfg.Bootstrap.Enabled())
}

func TestParseOverrides(t *testing.T) {
	cfg, err := Parse(map[string]string{
		"PORT":                     "9000",
		"CORS_ORIGINS":             "https://ecofood.cl",
		"EXPIRING_SOON_DAYS":       "5",
		"JWT_SECRET":               "s3cret",
		"JWT_TTL":                  "2h",
		"BOOTSTRAP_ADMIN_EMAIL":    "root@ecofood.cl",
		"BOOTSTRAP_ADMIN_PASSWORD": "Root123!",
	})
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.Port)
	assert.Equal(t, []string{"https://ecofood.cl"}, cfg.CORSOrigins)
	assert.Equal(t, 5, cfg.ExpiringSoonDays)
	assert.Equal(t, 2*time.Hour, cfg.Auth.TokenTTL)
	assert.Equal(t, "s3cret", cfg.Secret())
	assert.True(t, cfg.Bootstrap.Enabled())
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name    string
		environ map[string]string
	}{
		{"release without secret", map[string]string{"GIN_MODE": "release"}},
		{"zero ttl", map[string]string{"JWT_TTL": "0s"}},
		{"negative window", map[string]string{"EXPIRING_SOON_DAYS": "-1"}},
		{"half bootstrap", map[string]string{"BOOTSTRAP_ADMIN_EMAIL": "root@ecofood.cl"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse(tc.environ)
			assert.Error(t, err)
		})
	}
}

func TestDSNEscapesCredentials(t *testing.T) {
	d := DatabaseOptions{Host: "db", Port: "5432", User: "eco", Password: "p@ss word", Name: "ecofood", SSLMode: "require"}
	assert.Equal(t, "postgres://eco:p%40ss%20word@db:5432/ecofood?sslmode=require", d.DSN())
}
