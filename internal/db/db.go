package db

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"batchline/internal/config"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/gorm/schema"
)

const sqliteFileName = "batchline.db"

// Dialector picks the gorm dialector for the configured SQL driver.
func Dialector(store config.StoreConfig, database config.DatabaseConfig) (gorm.Dialector, error) {
	switch store.Driver {
	case config.DriverSQLite:
		path, err := sqlitePath(store.Path)
		if err != nil {
			return nil, err
		}
		return sqlite.Open(path), nil
	case config.DriverPostgres:
		if strings.TrimSpace(database.URL) == "" {
			return nil, fmt.Errorf("database URL must not be empty")
		}
		return postgres.Open(database.URL), nil
	default:
		return nil, fmt.Errorf("driver %q is not served by the SQL backend", store.Driver)
	}
}

// MemoryDialector returns a shared-cache in-memory sqlite database. Every
// handle opened with the same name sees the same data while one stays open.
func MemoryDialector(name string) gorm.Dialector {
	return sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name))
}

// sqlitePath accepts either a database file or a directory to hold one.
func sqlitePath(path string) (string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return "", fmt.Errorf("store path must not be empty")
	}
	if filepath.Ext(path) == "" {
		if err := os.MkdirAll(path, 0o750); err != nil {
			return "", fmt.Errorf("create database directory %s: %w", path, err)
		}
		return filepath.Join(path, sqliteFileName), nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return "", fmt.Errorf("create database directory %s: %w", filepath.Dir(path), err)
	}
	return path, nil
}

func Initialize(dialector gorm.Dialector, cfg config.DatabaseConfig) (*gorm.DB, error) {
	if dialector == nil {
		return nil, fmt.Errorf("database dialector must not be nil")
	}

	// sqlite allows one writer; a single connection keeps transactions and
	// plain reads from locking each other out, and prepared statements would
	// need a second connection.
	isSQLite := dialector.Name() == "sqlite"

	gormCfg := &gorm.Config{
		PrepareStmt:            !isSQLite,
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Warn),
		NamingStrategy: schema.NamingStrategy{
			SingularTable: false,
		},
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
		DisableForeignKeyConstraintWhenMigrating: true,
	}

	database, err := gorm.Open(dialector, gormCfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	sqlDB, err := database.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql db: %w", err)
	}

	if isSQLite {
		sqlDB.SetMaxOpenConns(1)
	} else if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}

	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}

	if cfg.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	if cfg.ConnMaxIdleTime > 0 {
		sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)
	}

	return database, nil
}

func AutoMigrate(db *gorm.DB) error {
	if db == nil {
		return fmt.Errorf("database handle is nil")
	}

	return db.AutoMigrate(&Document{})
}

// Configure opens, migrates and wraps the SQL database selected by cfg.
func Configure(cfg config.Config) (*Store, error) {
	dialector, err := Dialector(cfg.Store, cfg.Database)
	if err != nil {
		return nil, err
	}
	return open(dialector, cfg.Database)
}

func MustConfigure(cfg config.Config) *Store {
	store, err := Configure(cfg)
	if err != nil {
		panic(err)
	}

	return store
}

// OpenMemory returns a migrated store on the named in-memory sqlite database.
func OpenMemory(name string) (*Store, error) {
	return open(MemoryDialector(name), config.DatabaseConfig{})
}

func open(dialector gorm.Dialector, cfg config.DatabaseConfig) (*Store, error) {
	database, err := Initialize(dialector, cfg)
	if err != nil {
		return nil, err
	}

	if err := AutoMigrate(database); err != nil {
		if sqlDB, dbErr := database.DB(); dbErr == nil {
			sqlDB.Close()
		}
		return nil, fmt.Errorf("migrate database: %w", err)
	}

	return NewStore(database), nil
}
