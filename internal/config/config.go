package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all runtime configuration for the exchange.
type Config struct {
	Port                 int
	LogLevel             string
	BatchInterval        time.Duration
	TickInterval         time.Duration
	RevalidationInterval time.Duration
	LedgerURL            string
	LedgerTimeout        time.Duration
	CustodyAccount       string
	JournalDir           string
	ReadTimeout          time.Duration
	WriteTimeout         time.Duration
	IdleTimeout          time.Duration
	ShutdownTimeout      time.Duration
}

// Load reads configuration from environment variables, applies defaults,
// and validates values. It returns an error for any invalid value.
func Load() (*Config, error) {
	port, err := getInt("PORT", 8080)
	if err != nil {
		return nil, fmt.Errorf("invalid PORT: %w", err)
	}

	logLevel := getStr("LOG_LEVEL", "info")
	if !isValidLogLevel(logLevel) {
		return nil, fmt.Errorf("invalid LOG_LEVEL: %q, must be one of: debug, info, warn, error", logLevel)
	}

	batchInterval, err := getDuration("BATCH_INTERVAL", 60*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid BATCH_INTERVAL: %w", err)
	}
	if batchInterval <= 0 {
		return nil, fmt.Errorf("invalid BATCH_INTERVAL: must be positive")
	}

	tickInterval, err := getDuration("TICK_INTERVAL", 1*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid TICK_INTERVAL: %w", err)
	}

	revalidationInterval, err := getDuration("REVALIDATION_INTERVAL", 60*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid REVALIDATION_INTERVAL: %w", err)
	}

	ledgerURL := getStr("LEDGER_URL", "https://s.altnet.rippletest.net:51234")

	ledgerTimeout, err := getDuration("LEDGER_TIMEOUT", 15*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid LEDGER_TIMEOUT: %w", err)
	}

	custodyAccount := getStr("CUSTODY_ACCOUNT", "")
	if custodyAccount == "" {
		return nil, fmt.Errorf("CUSTODY_ACCOUNT is required")
	}

	journalDir := getStr("JOURNAL_DIR", "data/journal")

	readTimeout, err := getDuration("READ_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid READ_TIMEOUT: %w", err)
	}

	writeTimeout, err := getDuration("WRITE_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid WRITE_TIMEOUT: %w", err)
	}

	idleTimeout, err := getDuration("IDLE_TIMEOUT", 60*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid IDLE_TIMEOUT: %w", err)
	}

	shutdownTimeout, err := getDuration("SHUTDOWN_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid SHUTDOWN_TIMEOUT: %w", err)
	}

	return &Config{
		Port:                 port,
		LogLevel:             logLevel,
		BatchInterval:        batchInterval,
		TickInterval:         tickInterval,
		RevalidationInterval: revalidationInterval,
		LedgerURL:            ledgerURL,
		LedgerTimeout:        ledgerTimeout,
		CustodyAccount:       custodyAccount,
		JournalDir:           journalDir,
		ReadTimeout:          readTimeout,
		WriteTimeout:         writeTimeout,
		IdleTimeout:          idleTimeout,
		ShutdownTimeout:      shutdownTimeout,
	}, nil
}

func getStr(key, defaultVal string) string {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	return v
}

func getInt(key string, defaultVal int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	return strconv.Atoi(v)
}

func getDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	return time.ParseDuration(v)
}

func isValidLogLevel(level string) bool {
	switch level {
	case "debug", "info", "warn", "error":
		return true
	}
	return false
}
