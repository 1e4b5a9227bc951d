// Package config loads process configuration from the environment, with an
// optional .env file for local development.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config is everything the api process needs to start.
type Config struct {
	Addr      string
	PGDSN     string
	JWTSecret string
	UploadDir string

	// LoginRPM caps login and password-reset attempts per client per minute.
	LoginRPM int
	// RequestRPS caps all other traffic per client per second.
	RequestRPS int

	MaxBodyBytes    int64
	ShutdownTimeout time.Duration
}

// Load reads the environment. A .env file in the working directory is merged
// in when present; real environment variables win.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Addr:            getenv("BACKOFFICE_ADDR", ":8080"),
		PGDSN:           os.Getenv("BACKOFFICE_PG_DSN"),
		JWTSecret:       os.Getenv("BACKOFFICE_JWT_SECRET"),
		UploadDir:       getenv("BACKOFFICE_UPLOAD_DIR", "uploads"),
		LoginRPM:        getint("BACKOFFICE_LOGIN_RPM", 10),
		RequestRPS:      getint("BACKOFFICE_REQUEST_RPS", 50),
		MaxBodyBytes:    int64(getint("BACKOFFICE_MAX_BODY_BYTES", 10<<20)),
		ShutdownTimeout: 10 * time.Second,
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("config: BACKOFFICE_JWT_SECRET is required")
	}
	return cfg, nil
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getint(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}
