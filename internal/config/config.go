package config

import (
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mtlprog/fundtrack/internal/refresh"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	DataFile              string
	DatabaseURL           string
	PortfolioSlug         string
	GeminiAPIKey          string
	GeminiModel           string
	LookupTimeout         time.Duration
	LookupRetryMax        int
	LookupRetryBaseDelay  time.Duration
	LookupCacheTTL        time.Duration
	RefreshInterval       time.Duration
	RefreshPolicy         refresh.Policy
	EventRetention        int
	ProjectionRate        decimal.Decimal
	ProjectionYears       int
	SheetID               string
	SheetRange            string
	PublishSheetID        string
	GoogleCredentialsJSON string
}

// Load reads configuration from environment variables with sensible defaults.
func Load() Config {
	return Config{
		DataFile:              envOrDefault("FUNDTRACK_DATA_FILE", "portfolio.json"),
		DatabaseURL:           envOrDefault("DATABASE_URL", ""),
		PortfolioSlug:         envOrDefault("PORTFOLIO_SLUG", "default"),
		GeminiAPIKey:          envOrDefaultWarn("GEMINI_API_KEY", ""),
		GeminiModel:           envOrDefault("GEMINI_MODEL", "gemini-3-flash-preview"),
		LookupTimeout:         envOrDefaultDuration("LOOKUP_TIMEOUT", 90*time.Second),
		LookupRetryMax:        envOrDefaultInt("LOOKUP_RETRY_MAX", 2),
		LookupRetryBaseDelay:  envOrDefaultDuration("LOOKUP_RETRY_BASE_DELAY", 2*time.Second),
		LookupCacheTTL:        envOrDefaultDuration("LOOKUP_CACHE_TTL", 10*time.Minute),
		RefreshInterval:       envOrDefaultDuration("REFRESH_INTERVAL", 24*time.Hour),
		RefreshPolicy:         envOrDefaultPolicy("REFRESH_FAILURE_POLICY", refresh.RetainPartial),
		EventRetention:        envOrDefaultInt("EVENT_RETENTION", 100),
		ProjectionRate:        envOrDefaultDecimal("PROJECTION_RATE", decimal.RequireFromString("0.12")),
		ProjectionYears:       envOrDefaultInt("PROJECTION_YEARS", 15),
		SheetID:               envOrDefault("SHEET_ID", ""),
		SheetRange:            envOrDefault("SHEET_RANGE", "A:K"),
		PublishSheetID:        envOrDefault("PUBLISH_SHEET_ID", ""),
		GoogleCredentialsJSON: envOrDefault("GOOGLE_CREDENTIALS_JSON", ""),
	}
}

func envOrDefault(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envOrDefaultWarn(key, defaultVal string) string {
	v := envOrDefault(key, defaultVal)
	if v == "" {
		slog.Warn("required env var not set", "key", key)
	}
	return v
}

func envOrDefaultInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			slog.Warn("invalid integer env var, using default", "key", key, "value", v, "default", defaultVal)
			return defaultVal
		}
		return n
	}
	return defaultVal
}

func envOrDefaultDuration(key string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			slog.Warn("invalid duration env var, using default", "key", key, "value", v, "default", defaultVal)
			return defaultVal
		}
		return d
	}
	return defaultVal
}

func envOrDefaultDecimal(key string, defaultVal decimal.Decimal) decimal.Decimal {
	if v := os.Getenv(key); v != "" {
		d, err := decimal.NewFromString(v)
		if err != nil {
			slog.Warn("invalid decimal env var, using default", "key", key, "value", v, "default", defaultVal)
			return defaultVal
		}
		return d
	}
	return defaultVal
}

func envOrDefaultPolicy(key string, defaultVal refresh.Policy) refresh.Policy {
	if v := os.Getenv(key); v != "" {
		p, err := refresh.ParsePolicy(v)
		if err != nil {
			slog.Warn("invalid refresh policy env var, using default", "key", key, "value", v, "default", defaultVal)
			return defaultVal
		}
		return p
	}
	return defaultVal
}
