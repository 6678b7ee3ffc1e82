package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgconfig "github.com/shabdpress/blog_cms/pkg/config"
)

func valid() Config {
	return Config{
		DatabaseURL:      "postgres://localhost/blog",
		JWTAccessSecret:  []byte("a"),
		JWTRefreshSecret: []byte("b"),
		AccessTokenTTL:   15 * time.Minute,
		RefreshTokenTTL:  24 * time.Hour,
	}
}

func TestValidate(t *testing.T) {
	require.NoError(t, Validate(valid()))

	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{name: "no database", mutate: func(c *Config) { c.DatabaseURL = "" }, want: "DATABASE_URL"},
		{name: "no access secret", mutate: func(c *Config) { c.JWTAccessSecret = nil }, want: "JWT_SECRET"},
		{name: "no refresh secret", mutate: func(c *Config) { c.JWTRefreshSecret = nil }, want: "JWT_REFRESH_SECRET"},
		{name: "same secrets", mutate: func(c *Config) { c.JWTRefreshSecret = c.JWTAccessSecret }, want: "must differ"},
		{name: "ttl order", mutate: func(c *Config) { c.AccessTokenTTL = 48 * time.Hour }, want: "must be shorter"},
		{name: "zero ttl", mutate: func(c *Config) { c.AccessTokenTTL = 0 }, want: "ACCESS_TOKEN_TTL"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := Validate(cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoad_MissingRequired(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("JWT_SECRET", "")
	t.Setenv("JWT_REFRESH_SECRET", "")

	_, err := Load("testdata/missing.env")
	require.Error(t, err)
	assert.ErrorIs(t, err, pkgconfig.ErrMissingEnv)
}
