// Package config reads runtime settings from the environment, optionally
// seeded from a .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/dukerupert/slotshare/internal/proof"
)

type Config struct {
	Port           string
	DBPath         string
	LogLevel       string
	LogFormat      string
	BaseURL        string
	PostmarkToken  string
	EmailFrom      string
	SecureCookies  bool
	AllowedOrigins []string
	Proof          proof.Config
}

// Load reads the given .env files, or ./.env when none are named, then
// builds the Config from SLOTSHARE_* variables. Missing files are not an
// error; variables already set in the environment win over file values.
func Load(files ...string) (*Config, error) {
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load env file: %w", err)
	}

	cfg := &Config{
		Port:          getEnv("SLOTSHARE_PORT", "8080"),
		DBPath:        getEnv("SLOTSHARE_DB_PATH", "slotshare.db"),
		LogLevel:      getEnv("SLOTSHARE_LOG_LEVEL", "info"),
		LogFormat:     getEnv("SLOTSHARE_LOG_FORMAT", "text"),
		PostmarkToken: os.Getenv("SLOTSHARE_POSTMARK_TOKEN"),
		EmailFrom:     getEnv("SLOTSHARE_EMAIL_FROM", "noreply@slotshare.local"),
		Proof: proof.Config{
			Endpoint:  os.Getenv("SLOTSHARE_S3_ENDPOINT"),
			Bucket:    os.Getenv("SLOTSHARE_S3_BUCKET"),
			Region:    getEnv("SLOTSHARE_S3_REGION", "auto"),
			AccessKey: os.Getenv("SLOTSHARE_S3_ACCESS_KEY"),
			SecretKey: os.Getenv("SLOTSHARE_S3_SECRET_KEY"),
			PublicURL: os.Getenv("SLOTSHARE_S3_PUBLIC_URL"),
		},
	}
	cfg.BaseURL = getEnv("SLOTSHARE_BASE_URL", "http://localhost:"+cfg.Port)

	secure, err := getBool("SLOTSHARE_SECURE_COOKIES", strings.HasPrefix(cfg.BaseURL, "https://"))
	if err != nil {
		return nil, err
	}
	cfg.SecureCookies = secure
	cfg.AllowedOrigins = splitList(os.Getenv("SLOTSHARE_ALLOWED_ORIGINS"))

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func getBool(key string, defaultValue bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("parse %s: %w", key, err)
	}
	return b, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
