package config

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("ACCESS_TOKEN_SECRET", "access")
	t.Setenv("REFRESH_TOKEN_SECRET", "refresh")

	cfg := Load()

	assert.Equal(t, "auth-service", cfg.Service.Name)
	assert.Equal(t, "8080", cfg.Service.Port)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "15m", cfg.Auth.AccessTokenExpiration)
	assert.Equal(t, "30d", cfg.Auth.RefreshTokenExpiration)
	assert.Equal(t, "refreshToken", cfg.Auth.RefreshCookieName)
	assert.Equal(t, 10, cfg.Auth.BcryptCost)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.False(t, cfg.Tracing.Enabled)
	assert.False(t, cfg.IsProduction())
	require.NoError(t, cfg.Validate())
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("ACCESS_TOKEN_SECRET", "access")
	t.Setenv("REFRESH_TOKEN_SECRET", "refresh")
	t.Setenv("ENV", "Production")
	t.Setenv("DB_DRIVER", "memory")
	t.Setenv("SHUTDOWN_TIMEOUT", "3s")
	t.Setenv("SESSION_TTL", "1w")

	cfg := Load()

	assert.True(t, cfg.IsProduction())
	assert.Equal(t, "memory", cfg.Database.Driver)
	assert.Equal(t, 3*time.Second, cfg.GetShutdownTimeoutDuration())
	assert.Equal(t, 7*24*time.Hour, cfg.GetSessionTTLDuration())
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Service: ServiceConfig{Port: "8080"},
			Auth: AuthConfig{
				AccessTokenSecret:      "a",
				AccessTokenExpiration:  "15m",
				RefreshTokenSecret:     "r",
				RefreshTokenExpiration: "30d",
				SessionTTL:             "30d",
				BcryptCost:             10,
			},
			Database: DatabaseConfig{Driver: "memory"},
		}
	}

	tests := []struct {
		name   string
		mutate func(c *Config)
		want   string
	}{
		{name: "valid", mutate: func(c *Config) {}},
		{name: "missing access secret", mutate: func(c *Config) { c.Auth.AccessTokenSecret = "" }, want: "ACCESS_TOKEN_SECRET"},
		{name: "missing refresh secret", mutate: func(c *Config) { c.Auth.RefreshTokenSecret = "" }, want: "REFRESH_TOKEN_SECRET"},
		{name: "shared secret", mutate: func(c *Config) { c.Auth.RefreshTokenSecret = "a" }, want: "must differ"},
		{name: "bad access expiration", mutate: func(c *Config) { c.Auth.AccessTokenExpiration = "soon" }, want: "ACCESS_TOKEN_EXPIRATION"},
		{name: "unset refresh expiration", mutate: func(c *Config) { c.Auth.RefreshTokenExpiration = "" }, want: "REFRESH_TOKEN_EXPIRATION"},
		{name: "weak bcrypt cost", mutate: func(c *Config) { c.Auth.BcryptCost = 4 }, want: "BCRYPT_COST"},
		{name: "unknown driver", mutate: func(c *Config) { c.Database.Driver = "mongo" }, want: "DB_DRIVER"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			err := c.Validate()
			if tt.want == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrConfig))
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestParseDuration(t *testing.T) {
	tests := []struct {
		in      string
		want    time.Duration
		wantErr bool
	}{
		{in: "15m", want: 15 * time.Minute},
		{in: "1d", want: 24 * time.Hour},
		{in: "2w", want: 14 * 24 * time.Hour},
		{in: " 1h30m ", want: 90 * time.Minute},
		{in: "", wantErr: true},
		{in: "tomorrow", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseDuration(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
