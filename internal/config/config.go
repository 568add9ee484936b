package config

import (
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"go.uber.org/fx"
)

// Config carries process-level settings for the accounting service.
type Config struct {
	Environment  string
	HTTPAddr     string
	DatabasePath string

	// FallbackRate is the last-resort ARS-per-USD rate applied when no
	// exchange rate is resolvable through any lookup tier. Zero disables
	// the fallback and surfaces ErrRateMissing instead.
	FallbackRate decimal.Decimal

	// SweepSchedule is the cron spec for the overdue payment sweep.
	SweepSchedule string

	ShutdownTimeout time.Duration
}

const defaultFallbackRate = "1000"

func Load() Config {
	// Optional; absent .env files are not an error.
	_ = godotenv.Load()

	cfg := Config{
		Environment:     getenv("APP_ENV", "development"),
		HTTPAddr:        getenv("HTTP_ADDR", ":8080"),
		DatabasePath:    getenv("DATABASE_PATH", "accounting.db"),
		SweepSchedule:   getenv("SWEEP_SCHEDULE", "0 2 * * *"),
		ShutdownTimeout: 10 * time.Second,
	}

	rate, err := decimal.NewFromString(getenv("EXCHANGE_FALLBACK_RATE", defaultFallbackRate))
	if err != nil || rate.IsNegative() {
		rate = decimal.RequireFromString(defaultFallbackRate)
	}
	cfg.FallbackRate = rate

	return cfg
}

func (c Config) IsProduction() bool {
	return strings.EqualFold(c.Environment, "production")
}

func getenv(key, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return fallback
}

var Module = fx.Module("config",
	fx.Provide(Load),
)
