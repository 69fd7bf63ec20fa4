package config

import (
	"errors"
	"os"
	"strconv"
)

type Config struct {
	Port         string
	DatabaseDSN  string
	JWTSecret    string
	Env          string
	TokenTTLDays int
}

func getenv(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func Load() Config {
	port := getenv("APP_PORT", "3000")
	dsn := getenv("DATABASE_DSN", "host=localhost user=postgres password=postgres dbname=chatapp port=5432 sslmode=disable TimeZone=UTC")
	secret := getenv("JWT_SECRET", "dev-secret-change-me")
	env := getenv("APP_ENV", "dev")
	ttlStr := getenv("TOKEN_TTL_DAYS", "30")
	ttl, _ := strconv.Atoi(ttlStr)
	if ttl <= 0 {
		ttl = 30
	}
	return Config{
		Port:         port,
		DatabaseDSN:  dsn,
		JWTSecret:    secret,
		Env:          env,
		TokenTTLDays: ttl,
	}
}

// Validate 在启动时兜底检查：缺了端口/DSN 直接拒绝，非 dev 环境不允许默认密钥。
func Validate(cfg Config) error {
	if cfg.Port == "" {
		return errors.New("config: port is required")
	}
	if cfg.DatabaseDSN == "" {
		return errors.New("config: database dsn is required")
	}
	if cfg.Env != "dev" && cfg.JWTSecret == "dev-secret-change-me" {
		return errors.New("config: default jwt secret is not allowed outside dev")
	}
	return nil
}
