package config

import (
	"errors"
	"os"
	"time"

	"github.com/joho/godotenv"
)

// Config holds everything the server reads from the environment. A missing
// JWT secret is fatal; everything else has a development default.
type Config struct {
	Port        string
	DatabaseURL string
	JWTSecret   string
	FrontendURL string

	SMTPHost  string
	SMTPPort  string
	SMTPUser  string
	SMTPPass  string
	EmailFrom string

	SweepInterval time.Duration
}

func Load() (*Config, error) {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := &Config{
		Port:          getEnv("PORT", "5000"),
		DatabaseURL:   getEnv("DATABASE_URL", "host=localhost user=postgres dbname=quickticket sslmode=disable"),
		JWTSecret:     os.Getenv("JWT_SECRET"),
		FrontendURL:   getEnv("FRONTEND_URL", "http://localhost:5173"),
		SMTPHost:      getEnv("SMTP_HOST", "smtp.gmail.com"),
		SMTPPort:      getEnv("SMTP_PORT", "587"),
		SMTPUser:      os.Getenv("EMAIL_FROM"),
		SMTPPass:      os.Getenv("EMAIL_PASS"),
		EmailFrom:     os.Getenv("EMAIL_FROM"),
		SweepInterval: 5 * time.Minute,
	}

	if raw := os.Getenv("SWEEP_INTERVAL"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return nil, errors.New("SWEEP_INTERVAL is not a valid duration")
		}
		cfg.SweepInterval = d
	}

	if cfg.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET is not set")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
