package datastore

import (
	"os"
	"path/filepath"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/jingnanl/infant-guard/internal/conf"
	"github.com/jingnanl/infant-guard/internal/errors"
	"github.com/jingnanl/infant-guard/internal/logger"
)

// SQLiteStore implements Interface for SQLite.
type SQLiteStore struct {
	DataStore
	Settings *conf.Settings
}

func validateSQLiteConfig(settings *conf.Settings) error {
	if settings.Output.SQLite.Path == "" {
		return validationError("sqlite path is required", "output.sqlite.path", "")
	}
	return nil
}

// Open creates the database file and migrates the schema.
func (store *SQLiteStore) Open() error {
	if err := validateSQLiteConfig(store.Settings); err != nil {
		return err
	}
	store.log = GetLogger().Module("sqlite")

	path := store.Settings.Output.SQLite.Path
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return errors.New(err).
					Component(componentName).
					Category(errors.CategoryFileIO).
					Context("operation", "create_db_dir").
					Build()
			}
		}
	}

	// WAL journal with a busy timeout.
	dsn := path + "?_journal_mode=WAL&_busy_timeout=5000"
	if path == ":memory:" {
		dsn = "file::memory:"
	}

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: createGormLogger(store.log)})
	if err != nil {
		return dbError(err, "open", "db_type", "sqlite")
	}
	if path == ":memory:" {
		// Each new connection would see an empty in-memory database.
		sqlDB, err := db.DB()
		if err != nil {
			return dbError(err, "open", "db_type", "sqlite")
		}
		sqlDB.SetMaxOpenConns(1)
	}

	store.DB = db
	store.log.Info("database opened", logger.String("path", path))
	return performAutoMigration(db, store.log, "sqlite")
}

// Close closes the database.
func (store *SQLiteStore) Close() error {
	return store.closeDB()
}
