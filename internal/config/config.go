package config

import (
	"fmt"

	pkgconfig "github.com/shabdpress/blog_cms/pkg/config"
)

type Config = pkgconfig.Config

// Load reads the environment and fails when a required key is missing.
func Load(envFiles ...string) (Config, error) {
	cfg := pkgconfig.Load(envFiles...)
	if err := Validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func Validate(cfg Config) error {
	err := pkgconfig.Require(
		pkgconfig.NonEmpty(cfg.DatabaseURL, "DATABASE_URL"),
		pkgconfig.NonEmptyBytes(cfg.JWTAccessSecret, "JWT_SECRET"),
		pkgconfig.NonEmptyBytes(cfg.JWTRefreshSecret, "JWT_REFRESH_SECRET"),
		pkgconfig.PositiveDuration(cfg.AccessTokenTTL, "ACCESS_TOKEN_TTL"),
		pkgconfig.PositiveDuration(cfg.RefreshTokenTTL, "REFRESH_TOKEN_TTL"),
	)
	if err != nil {
		return err
	}
	if string(cfg.JWTAccessSecret) == string(cfg.JWTRefreshSecret) {
		return fmt.Errorf("JWT_SECRET and JWT_REFRESH_SECRET must differ")
	}
	if cfg.AccessTokenTTL >= cfg.RefreshTokenTTL {
		return fmt.Errorf("ACCESS_TOKEN_TTL (%s) must be shorter than REFRESH_TOKEN_TTL (%s)", cfg.AccessTokenTTL, cfg.RefreshTokenTTL)
	}
	return nil
}
