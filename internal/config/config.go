package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Store drivers understood by the application root.
const (
	DriverBadger   = "badger"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config captures the runtime configuration for the application.
type Config struct {
	Store    StoreConfig    `yaml:"store"`
	Database DatabaseConfig `yaml:"database"`
	Logging  LoggingConfig  `yaml:"logging"`
	Admin    AdminConfig    `yaml:"admin"`
}

// StoreConfig selects and tunes the document store backend.
type StoreConfig struct {
	Driver     string        `yaml:"driver"`
	Path       string        `yaml:"path"`
	SyncWrites bool          `yaml:"sync_writes"`
	GCInterval time.Duration `yaml:"gc_interval"`
	UseMock    bool          `yaml:"use_mock"`
}

// DatabaseConfig contains the SQL connection settings used by the sqlite and
// postgres drivers.
type DatabaseConfig struct {
	URL             string        `yaml:"url"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `yaml:"conn_max_idle_time"`
}

// LoggingConfig controls the global logger.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// AdminConfig holds the credentials of the user created on first bootstrap.
type AdminConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

func defaults() Config {
	return Config{
		Store: StoreConfig{
			Driver:     DriverBadger,
			Path:       "./data",
			SyncWrites: true,
			GCInterval: 5 * time.Minute,
		},
		Logging: LoggingConfig{Level: "info"},
		Admin:   AdminConfig{Username: "admin", Password: "admin"},
	}
}

// Load builds a Config from defaults, the optional YAML file named by
// BATCHLINE_CONFIG, and finally the environment. Environment values win.
func Load() (Config, error) {
	cfg := defaults()

	if path := strings.TrimSpace(os.Getenv("BATCHLINE_CONFIG")); path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	cfg.Store = StoreConfig{
		Driver:     strings.ToLower(firstNonEmpty(os.Getenv("STORE_DRIVER"), cfg.Store.Driver)),
		Path:       firstNonEmpty(os.Getenv("STORE_PATH"), cfg.Store.Path),
		SyncWrites: parseBoolWithDefault(os.Getenv("STORE_SYNC_WRITES"), cfg.Store.SyncWrites),
		GCInterval: parseDurationWithDefault(os.Getenv("STORE_GC_INTERVAL"), cfg.Store.GCInterval),
		UseMock:    parseBoolWithDefault(os.Getenv("STORE_USE_MOCK"), cfg.Store.UseMock),
	}

	cfg.Database = DatabaseConfig{
		URL: firstNonEmpty(
			os.Getenv("DATABASE_URL"),
			os.Getenv("DB_URL"),
			cfg.Database.URL,
		),
		MaxIdleConns:    parseIntWithDefault(os.Getenv("DATABASE_MAX_IDLE_CONNS"), cfg.Database.MaxIdleConns),
		MaxOpenConns:    parseIntWithDefault(os.Getenv("DATABASE_MAX_OPEN_CONNS"), cfg.Database.MaxOpenConns),
		ConnMaxLifetime: parseDurationWithDefault(os.Getenv("DATABASE_CONN_MAX_LIFETIME"), cfg.Database.ConnMaxLifetime),
		ConnMaxIdleTime: parseDurationWithDefault(os.Getenv("DATABASE_CONN_MAX_IDLE_TIME"), cfg.Database.ConnMaxIdleTime),
	}

	cfg.Logging.Level = firstNonEmpty(os.Getenv("LOG_LEVEL"), cfg.Logging.Level)
	cfg.Admin = AdminConfig{
		Username: firstNonEmpty(os.Getenv("ADMIN_USERNAME"), cfg.Admin.Username),
		Password: firstNonEmpty(os.Getenv("ADMIN_PASSWORD"), cfg.Admin.Password),
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch c.Store.Driver {
	case DriverBadger, DriverSQLite:
		if !c.Store.UseMock && strings.TrimSpace(c.Store.Path) == "" {
			return fmt.Errorf("store path must not be empty for driver %s", c.Store.Driver)
		}
	case DriverPostgres:
		if !c.Store.UseMock && strings.TrimSpace(c.Database.URL) == "" {
			return fmt.Errorf("database URL must not be empty for driver %s", c.Store.Driver)
		}
	default:
		return fmt.Errorf("unknown store driver: %s", c.Store.Driver)
	}
	if strings.TrimSpace(c.Admin.Username) == "" {
		return fmt.Errorf("admin username must not be empty")
	}
	return nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if strings.TrimSpace(value) != "" {
			return strings.TrimSpace(value)
		}
	}
	return ""
}

func parseIntWithDefault(value string, def int) int {
	if strings.TrimSpace(value) == "" {
		return def
	}
	parsed, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return def
	}
	return parsed
}

func parseDurationWithDefault(value string, def time.Duration) time.Duration {
	if strings.TrimSpace(value) == "" {
		return def
	}
	parsed, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		return def
	}
	return parsed
}

func parseBoolWithDefault(value string, def bool) bool {
	if strings.TrimSpace(value) == "" {
		return def
	}
	parsed, err := strconv.ParseBool(strings.TrimSpace(value))
	if err != nil {
		return def
	}
	return parsed
}
