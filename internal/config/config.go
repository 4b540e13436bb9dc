package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config captures all runtime configuration derived from environment variables.
type Config struct {
	Port              string
	DBURL             string
	LookupURL         string
	LookupAPIKey      string
	LookupTimeoutSecs int
	LookupRPS         int
	ReadTimeoutSecs   int
	WriteTimeoutSecs  int
	IdleTimeoutSecs   int
	TopCount          int
	TopMinSamples     int
	DBMaxConns        int
	DBMinConns        int
	DBMaxIdleSecs     int
	DBMaxLifeSecs     int
	DBConnTimeoutSecs int
	DBStatementCache  int
}

// Load reads configuration from environment variables, applying defaults and validation.
func Load() (Config, error) {
	cfg := Config{
		Port:              getEnv("PORT", "8080"),
		DBURL:             os.Getenv("DB_URL"),
		LookupURL:         os.Getenv("BOOKLOOKUP_URL"),
		LookupAPIKey:      os.Getenv("BOOKLOOKUP_API_KEY"),
		LookupTimeoutSecs: getEnvInt("BOOKLOOKUP_TIMEOUT_SECS", 5),
		LookupRPS:         getEnvInt("BOOKLOOKUP_RPS", 5),
		ReadTimeoutSecs:   getEnvInt("SERVER_READ_TIMEOUT", 15),
		WriteTimeoutSecs:  getEnvInt("SERVER_WRITE_TIMEOUT", 15),
		IdleTimeoutSecs:   getEnvInt("SERVER_IDLE_TIMEOUT", 60),
		TopCount:          getEnvInt("TOP_COUNT", 3),
		TopMinSamples:     getEnvInt("TOP_MIN_SAMPLES", 3),
		DBMaxConns:        getEnvInt("DB_MAX_CONNS", 20),
		DBMinConns:        getEnvInt("DB_MIN_CONNS", 2),
		DBMaxIdleSecs:     getEnvInt("DB_MAX_CONN_IDLE_SECS", 300),
		DBMaxLifeSecs:     getEnvInt("DB_MAX_CONN_LIFETIME_SECS", 3600),
		DBConnTimeoutSecs: getEnvInt("DB_CONN_TIMEOUT_SECS", 10),
		DBStatementCache:  getEnvInt("DB_STATEMENT_CACHE_CAPACITY", 256),
	}

	if cfg.DBURL == "" {
		return Config{}, fmt.Errorf("DB_URL is required")
	}
	if cfg.LookupURL == "" {
		return Config{}, fmt.Errorf("BOOKLOOKUP_URL is required")
	}
	if cfg.LookupTimeoutSecs <= 0 {
		return Config{}, fmt.Errorf("BOOKLOOKUP_TIMEOUT_SECS must be positive")
	}
	if cfg.LookupRPS <= 0 {
		return Config{}, fmt.Errorf("BOOKLOOKUP_RPS must be positive")
	}
	if cfg.TopCount <= 0 {
		return Config{}, fmt.Errorf("TOP_COUNT must be positive")
	}
	if cfg.TopMinSamples <= 0 {
		return Config{}, fmt.Errorf("TOP_MIN_SAMPLES must be positive")
	}
	if cfg.DBMaxConns <= 0 {
		return Config{}, fmt.Errorf("DB_MAX_CONNS must be positive")
	}
	if cfg.DBMinConns < 0 {
		return Config{}, fmt.Errorf("DB_MIN_CONNS must be non-negative")
	}
	if cfg.DBMinConns > cfg.DBMaxConns {
		return Config{}, fmt.Errorf("DB_MIN_CONNS cannot exceed DB_MAX_CONNS")
	}
	if cfg.DBStatementCache < 0 {
		return Config{}, fmt.Errorf("DB_STATEMENT_CACHE_CAPACITY must be non-negative")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return fallback
}
