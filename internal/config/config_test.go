package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFlexibleDuration(t *testing.T) {
	tests := []struct {
		input   string
		expect  time.Duration
		wantErr bool
	}{
		{"1h", time.Hour, false},
		{"30m", 30 * time.Minute, false},
		{"2d", 48 * time.Hour, false},
		{"1w", 168 * time.Hour, false},
		{"0d", 0, false},
		{"0w", 0, false},
		{"5x", 0, true}, // unsupported unit
		{"", 0, true},   // empty string
		{"-1d", 0, true},
	}

	for _, tt := range tests {
		dur, err := ParseFlexibleDuration(tt.input)
		if (err != nil) != tt.wantErr {
			t.Errorf("input %q: expected error=%v, got %v", tt.input, tt.wantErr, err)
		}
		if err == nil && dur != tt.expect {
			t.Errorf("input %q: expected %v, got %v", tt.input, tt.expect, dur)
		}
	}
}

func TestParseAuthDurations(t *testing.T) {
	cfg := AuthConfig{
		Leeway:                 "30s",
		JWKSCacheTTL:           "1h",
		JWKSMaxStale:           "15m",
		JWKSMinRefreshInterval: "10s",
		JWKSFetchTimeout:       "5s",
	}
	durations, err := cfg.ParseDurations()
	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, durations.Leeway)
	assert.Equal(t, time.Hour, durations.JWKSCacheTTL)
	assert.Equal(t, 15*time.Minute, durations.JWKSMaxStale)
	assert.Equal(t, 10*time.Second, durations.JWKSMinRefreshInterval)
	assert.Equal(t, 5*time.Second, durations.JWKSFetchTimeout)

	// Test invalid config
	cfg.JWKSCacheTTL = "bad"
	_, err = cfg.ParseDurations()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "auth.jwks_cache_ttl")
}

func TestApplyDomain(t *testing.T) {
	t.Run("derives jwks url and issuer", func(t *testing.T) {
		a := AuthConfig{Domain: "fsnd.auth0.com"}
		a.applyDomain()
		assert.Equal(t, "https://fsnd.auth0.com/.well-known/jwks.json", a.JWKSURL)
		assert.Equal(t, "https://fsnd.auth0.com/", a.Issuer)
	})

	t.Run("tolerates scheme and trailing slash", func(t *testing.T) {
		a := AuthConfig{Domain: "https://fsnd.auth0.com/"}
		a.applyDomain()
		assert.Equal(t, "https://fsnd.auth0.com/.well-known/jwks.json", a.JWKSURL)
	})

	t.Run("explicit values win", func(t *testing.T) {
		a := AuthConfig{
			Domain:  "fsnd.auth0.com",
			JWKSURL: "http://localhost:9000/keys",
			Issuer:  "http://localhost:9000/",
		}
		a.applyDomain()
		assert.Equal(t, "http://localhost:9000/keys", a.JWKSURL)
		assert.Equal(t, "http://localhost:9000/", a.Issuer)
	})

	t.Run("empty domain is a no-op", func(t *testing.T) {
		a := AuthConfig{}
		a.applyDomain()
		assert.Empty(t, a.JWKSURL)
		assert.Empty(t, a.Issuer)
	})
}

func TestLoadWithPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
server:
  port: 8080
auth:
  domain: fsnd.auth0.com
  audience: drinks
  algorithms: ["RS256", "PS256"]
rate_limit:
  enabled: true
  bucket_size: 5
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := LoadWithPath(path)
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "drinks", cfg.Auth.Audience)
	assert.Equal(t, []string{"RS256", "PS256"}, cfg.Auth.Algorithms)
	assert.Equal(t, "https://fsnd.auth0.com/", cfg.Auth.Issuer)
	assert.True(t, cfg.RateLimit.Enabled)
	assert.Equal(t, 5, cfg.RateLimit.BucketSize)

	// defaults survive a partial file
	assert.Equal(t, "coffeeshop", cfg.Database.DBName)
	assert.Equal(t, "1h", cfg.Auth.JWKSCacheTTL)
}

func TestLoadWithPathEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("auth:\n  audience: drinks\n"), 0o600))
	t.Setenv("AUTH_AUDIENCE", "coffee")

	cfg, err := LoadWithPath(path)
	require.NoError(t, err)
	assert.Equal(t, "coffee", cfg.Auth.Audience)
}

func TestLoadWithPathMissingFile(t *testing.T) {
	_, err := LoadWithPath(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestRedisAddr(t *testing.T) {
	assert.Equal(t, "cache:6380", RedisConfig{Host: "cache", Port: 6380}.RedisAddr())
}
