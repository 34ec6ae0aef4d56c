package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/aqasim81/safe-migrate/internal/analyzer"
)

// Default values for configuration fields.
const (
	DefaultMigrationsDir    = "./migrations"
	DefaultLockTimeout      = 5 * time.Second
	DefaultStatementTimeout = 30 * time.Second
	DefaultTargetDialect    = "PostgreSQL"
	DefaultTargetVersion    = "16.0"
	DefaultFormat           = "text"
	DefaultLogLevel         = "info"
	DefaultTrackingTable    = "schema_migrations"
)

// Config holds the application configuration loaded from file, environment, and flags.
type Config struct {
	DatabaseURL      string
	MigrationsDir    string
	LockTimeout      time.Duration
	StatementTimeout time.Duration
	// TargetDialect and TargetVersion describe the database analyze checks
	// against when no database URL is configured.
	TargetDialect string
	TargetVersion string
	Format        string
	SafetyAssured bool
	StartAfter    int64
	AutoAnalyze   bool
	LogLevel      string
	// ErrorMessages overrides remediation templates by key (add_index,
	// rename_column, ...). Templates use %{name} placeholders. Write %% for a
	// literal percent sign; a lone % not followed by { is also kept as is.
	ErrorMessages map[string]string
	MetricsFile   string
	TrackingTable string
}

// yamlConfig is the raw YAML file representation with string durations.
type yamlConfig struct {
	DatabaseURL      string            `yaml:"database_url"`
	MigrationsDir    string            `yaml:"migrations_dir"`
	LockTimeout      string            `yaml:"lock_timeout"`
	StatementTimeout string            `yaml:"statement_timeout"`
	TargetDialect    string            `yaml:"target_dialect"`
	TargetVersion    string            `yaml:"target_version"`
	Format           string            `yaml:"format"`
	SafetyAssured    bool              `yaml:"safety_assured"`
	StartAfter       int64             `yaml:"start_after"`
	AutoAnalyze      bool              `yaml:"auto_analyze"`
	LogLevel         string            `yaml:"log_level"`
	ErrorMessages    map[string]string `yaml:"error_messages"`
	MetricsFile      string            `yaml:"metrics_file"`
	TrackingTable    string            `yaml:"tracking_table"`
}

// New returns a Config populated with default values.
func New() *Config {
	return &Config{
		MigrationsDir:    DefaultMigrationsDir,
		LockTimeout:      DefaultLockTimeout,
		StatementTimeout: DefaultStatementTimeout,
		TargetDialect:    DefaultTargetDialect,
		TargetVersion:    DefaultTargetVersion,
		Format:           DefaultFormat,
		LogLevel:         DefaultLogLevel,
		TrackingTable:    DefaultTrackingTable,
	}
}

// Load reads a YAML configuration file and returns a Config.
// If allowMissing is true and the file does not exist, defaults are returned.
func Load(path string, allowMissing bool) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && allowMissing {
			return New(), nil
		}

		return nil, fmt.Errorf("reading config file %s: %w", path, err)
	}

	var raw yamlConfig
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}

	return fromYAML(&raw)
}

// fromYAML converts the raw YAML representation to a Config with defaults applied.
func fromYAML(raw *yamlConfig) (*Config, error) {
	cfg := New()

	if raw.DatabaseURL != "" {
		cfg.DatabaseURL = raw.DatabaseURL
	}

	if raw.MigrationsDir != "" {
		cfg.MigrationsDir = raw.MigrationsDir
	}

	if raw.LockTimeout != "" {
		d, err := time.ParseDuration(raw.LockTimeout)
		if err != nil {
			return nil, fmt.Errorf("parsing lock_timeout %q: %w", raw.LockTimeout, err)
		}

		cfg.LockTimeout = d
	}

	if raw.StatementTimeout != "" {
		d, err := time.ParseDuration(raw.StatementTimeout)
		if err != nil {
			return nil, fmt.Errorf("parsing statement_timeout %q: %w", raw.StatementTimeout, err)
		}

		cfg.StatementTimeout = d
	}

	if raw.StartAfter < 0 {
		return nil, fmt.Errorf("start_after %d: %w", raw.StartAfter, ErrNegativeStartAfter)
	}

	setString(&cfg.TargetDialect, raw.TargetDialect)
	setString(&cfg.TargetVersion, raw.TargetVersion)
	setString(&cfg.Format, raw.Format)
	setString(&cfg.LogLevel, raw.LogLevel)
	setString(&cfg.MetricsFile, raw.MetricsFile)
	setString(&cfg.TrackingTable, raw.TrackingTable)

	cfg.SafetyAssured = raw.SafetyAssured
	cfg.StartAfter = raw.StartAfter
	cfg.AutoAnalyze = raw.AutoAnalyze
	cfg.ErrorMessages = raw.ErrorMessages

	return cfg, nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

// LoadDotEnv loads variables from a .env file into the process environment.
// Variables already set are kept. A missing file is not an error.
func LoadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}

		return fmt.Errorf("loading %s: %w", path, err)
	}

	return nil
}

// MergeEnv overrides config fields from MIGRATE_* environment variables and
// SAFETY_ASSURED. Unparseable values are ignored.
func MergeEnv(cfg *Config) {
	if v := os.Getenv("MIGRATE_DATABASE_URL"); v != "" {
		cfg.DatabaseURL = v
	}

	if v := os.Getenv("MIGRATE_MIGRATIONS_DIR"); v != "" {
		cfg.MigrationsDir = v
	}

	if v := os.Getenv("MIGRATE_LOCK_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.LockTimeout = d
		}
	}

	if v := os.Getenv("MIGRATE_STATEMENT_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.StatementTimeout = d
		}
	}

	setString(&cfg.TargetDialect, os.Getenv("MIGRATE_TARGET_DIALECT"))
	setString(&cfg.TargetVersion, os.Getenv("MIGRATE_TARGET_VERSION"))
	setString(&cfg.LogLevel, os.Getenv("MIGRATE_LOG_LEVEL"))

	if v := os.Getenv("MIGRATE_START_AFTER"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n >= 0 {
			cfg.StartAfter = n
		}
	}

	if v := os.Getenv("MIGRATE_AUTO_ANALYZE"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.AutoAnalyze = b
		}
	}

	if v := os.Getenv("SAFETY_ASSURED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.SafetyAssured = b
		}
	}
}

// Settings returns the dispatcher settings derived from cfg. The message
// map is copied so later changes to cfg do not leak into a running dispatcher.
func (c *Config) Settings() analyzer.Settings {
	var messages map[string]string
	if len(c.ErrorMessages) > 0 {
		messages = make(map[string]string, len(c.ErrorMessages))
		for k, v := range c.ErrorMessages {
			messages[k] = v
		}
	}

	return analyzer.Settings{
		SafetyAssured: c.SafetyAssured,
		StartAfter:    c.StartAfter,
		AutoAnalyze:   c.AutoAnalyze,
		Messages:      messages,
	}
}
