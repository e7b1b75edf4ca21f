// Package config loads settings from an optional TOML file and the
// environment. Environment variables win over the file.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/shopspring/decimal"

	"pagos/internal/core"
	"pagos/internal/ratefeed"
)

// Backends selectable with DATA_BACKEND.
const (
	BackendMemory = "memory"
	BackendLocal  = "local"
	BackendSQLite = "sqlite"
)

// EnvConfigFile names the optional TOML file.
const EnvConfigFile = "PAGOS_CONFIG"

type Config struct {
	// HTTP Server
	Port         string
	LogLevel     string
	RateLimitRPM int

	// Record store
	DataBackend  string
	SQLiteDBPath string
	LocalDBPath  string
	SeedDir      string

	// AMQP
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Ledger
	FeeRate        decimal.Decimal
	DuplicateScope core.DuplicatePolicy

	// Rate feed
	RatesURL           string
	RatesOfficialLabel string
	RatesParallelLabel string

	// Google Sheets mirror
	GoogleSpreadsheetID     string
	GoogleSheetName         string
	GoogleClosingsSheetName string

	// Worker
	SyncInterval time.Duration

	problems   []string
	feeInvalid bool
}

// fileConfig is the TOML layout. Every key is optional.
type fileConfig struct {
	Port         string `toml:"port"`
	LogLevel     string `toml:"log_level"`
	RateLimitRPM int    `toml:"rate_limit_rpm"`

	Store struct {
		Backend    string `toml:"backend"`
		SQLitePath string `toml:"sqlite_path"`
		LocalPath  string `toml:"local_path"`
		SeedDir    string `toml:"seed_dir"`
	} `toml:"store"`

	AMQP struct {
		URL      string `toml:"url"`
		Exchange string `toml:"exchange"`
		Queue    string `toml:"queue"`
	} `toml:"amqp"`

	Ledger struct {
		FeeRate        string `toml:"fee_rate"`
		DuplicateScope string `toml:"duplicate_scope"`
	} `toml:"ledger"`

	Rates struct {
		URL           string `toml:"url"`
		OfficialLabel string `toml:"official_label"`
		ParallelLabel string `toml:"parallel_label"`
	} `toml:"rates"`

	Sheets struct {
		SpreadsheetID string `toml:"spreadsheet_id"`
		SummarySheet  string `toml:"summary_sheet"`
		ClosingsSheet string `toml:"closings_sheet"`
	} `toml:"sheets"`

	SyncInterval string `toml:"sync_interval"`
}

func defaults() fileConfig {
	var fc fileConfig
	fc.Port = "8081"
	fc.LogLevel = "info"
	fc.RateLimitRPM = 60
	fc.Store.Backend = BackendMemory
	fc.Store.SQLitePath = "./data/pagos.db"
	fc.Store.LocalPath = "./data/pagos.bolt"
	fc.Store.SeedDir = "./data"
	fc.AMQP.Exchange = "pagos"
	fc.AMQP.Queue = "pagos_sheets_sync"
	fc.Ledger.FeeRate = core.DefaultFeeRate.String()
	fc.Ledger.DuplicateScope = string(core.DuplicateGlobal)
	fc.Rates.URL = ratefeed.DefaultURL
	fc.Rates.OfficialLabel = ratefeed.DefaultOfficialLabel
	fc.Rates.ParallelLabel = ratefeed.DefaultParallelLabel
	fc.Sheets.SummarySheet = "Resumen"
	fc.Sheets.ClosingsSheet = "Cierres"
	fc.SyncInterval = "15m"
	return fc
}

// Load reads PAGOS_CONFIG, if set, then the environment. Values that do not
// parse are reported by Validate.
func Load() (*Config, error) {
	fc := defaults()
	if path := os.Getenv(EnvConfigFile); path != "" {
		if _, err := toml.DecodeFile(path, &fc); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", path, err)
		}
	}
	return fromFile(fc), nil
}

func fromFile(fc fileConfig) *Config {
	c := &Config{
		Port:         getEnv("PORT", fc.Port),
		LogLevel:     getEnv("LOG_LEVEL", fc.LogLevel),
		DataBackend:  getEnv("DATA_BACKEND", fc.Store.Backend),
		SQLiteDBPath: getEnv("SQLITE_DB_PATH", fc.Store.SQLitePath),
		LocalDBPath:  getEnv("LOCAL_DB_PATH", fc.Store.LocalPath),
		SeedDir:      getEnv("SEED_DIR", fc.Store.SeedDir),

		AMQPURL:      getEnv("AMQP_URL", fc.AMQP.URL),
		AMQPExchange: getEnv("AMQP_EXCHANGE", fc.AMQP.Exchange),
		AMQPQueue:    getEnv("AMQP_QUEUE", fc.AMQP.Queue),

		RatesURL:           getEnv("RATES_URL", fc.Rates.URL),
		RatesOfficialLabel: getEnv("RATES_OFFICIAL_LABEL", fc.Rates.OfficialLabel),
		RatesParallelLabel: getEnv("RATES_PARALLEL_LABEL", fc.Rates.ParallelLabel),

		GoogleSpreadsheetID:     getEnv("GOOGLE_SPREADSHEET_ID", fc.Sheets.SpreadsheetID),
		GoogleSheetName:         getEnv("GOOGLE_SHEET_NAME", fc.Sheets.SummarySheet),
		GoogleClosingsSheetName: getEnv("GOOGLE_CLOSINGS_SHEET_NAME", fc.Sheets.ClosingsSheet),
	}

	rpm := strconv.Itoa(fc.RateLimitRPM)
	if v := getEnv("RATE_LIMIT_RPM", rpm); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			c.problem("invalid RATE_LIMIT_RPM '%s': must be a number", v)
		}
		c.RateLimitRPM = n
	}

	fee := getEnv("FEE_RATE", fc.Ledger.FeeRate)
	if d, err := decimal.NewFromString(fee); err != nil {
		c.problem("invalid FEE_RATE '%s': must be a decimal fraction such as 0.03", fee)
		c.feeInvalid = true
	} else {
		c.FeeRate = d
	}

	scope := getEnv("DUPLICATE_SCOPE", fc.Ledger.DuplicateScope)
	if p, err := core.ParseDuplicatePolicy(scope); err != nil {
		c.problem("invalid DUPLICATE_SCOPE '%s': must be 'global' or 'day'", scope)
	} else {
		c.DuplicateScope = p
	}

	interval := getEnv("SYNC_INTERVAL", fc.SyncInterval)
	if d, err := time.ParseDuration(interval); err != nil {
		c.problem("invalid SYNC_INTERVAL '%s': %v", interval, err)
	} else {
		c.SyncInterval = d
	}

	return c
}

func (c *Config) problem(format string, args ...any) {
	c.problems = append(c.problems, fmt.Sprintf(format, args...))
}

// UsesAMQP reports whether change messages are published and consumed.
func (c *Config) UsesAMQP() bool {
	return c.DataBackend == BackendSQLite && c.AMQPURL != ""
}

// Validate reports every problem at once.
func (c *Config) Validate() error {
	errors := append([]string(nil), c.problems...)

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	switch c.DataBackend {
	case BackendMemory:
	case BackendLocal:
		if c.LocalDBPath == "" {
			errors = append(errors, "LOCAL_DB_PATH cannot be empty when using local backend")
		}
	case BackendSQLite:
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLITE_DB_PATH cannot be empty when using sqlite backend")
		}
	default:
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of [memory local sqlite]", c.DataBackend))
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
	}

	if !c.feeInvalid && (!c.FeeRate.IsPositive() || c.FeeRate.GreaterThanOrEqual(decimal.NewFromInt(1))) {
		errors = append(errors, fmt.Sprintf("invalid fee rate %s: must be between 0 and 1", c.FeeRate))
	}

	if c.RatesURL != "" {
		if u, err := url.Parse(c.RatesURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") {
			errors = append(errors, fmt.Sprintf("invalid RATES_URL '%s': must be an http(s) URL", c.RatesURL))
		}
	}

	if c.RateLimitRPM < 1 {
		errors = append(errors, fmt.Sprintf("invalid rate limit %d: must be at least 1 request per minute", c.RateLimitRPM))
	}

	if c.SyncInterval < time.Second {
		errors = append(errors, fmt.Sprintf("invalid sync interval %v: must be at least 1 second", c.SyncInterval))
	} else if c.SyncInterval > 24*time.Hour {
		errors = append(errors, fmt.Sprintf("invalid sync interval %v: must be at most 24 hours", c.SyncInterval))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
