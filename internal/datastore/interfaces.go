// Package datastore persists analysis records in SQLite or MySQL through gorm.
package datastore

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/jingnanl/infant-guard/internal/conf"
	"github.com/jingnanl/infant-guard/internal/errors"
	"github.com/jingnanl/infant-guard/internal/logger"
)

const componentName = "datastore"

// DefaultSlowQueryThreshold marks statements logged as slow.
const DefaultSlowQueryThreshold = 200 * time.Millisecond

// Interface abstracts the underlying database implementation.
type Interface interface {
	Open() error
	Save(ctx context.Context, rec *BabyAnalysis) error
	Get(ctx context.Context, id string) (BabyAnalysis, error)
	Latest(ctx context.Context, limit int) ([]BabyAnalysis, error)
	ListAttention(ctx context.Context, since time.Time) ([]BabyAnalysis, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
	Close() error
}

// DataStore implements the queries shared by every gorm backend.
type DataStore struct {
	DB  *gorm.DB
	log logger.Logger
}

// New returns the store enabled in settings, or nil when none is.
func New(settings *conf.Settings) Interface {
	switch {
	case settings.Output.SQLite.Enabled:
		return &SQLiteStore{Settings: settings}
	case settings.Output.MySQL.Enabled:
		return &MySQLStore{Settings: settings}
	default:
		return nil
	}
}

func (ds *DataStore) ready() error {
	if ds.DB == nil {
		return errors.Newf("database connection is not initialized").
			Component(componentName).
			Category(errors.CategoryDatabase).
			Build()
	}
	return nil
}

// Save inserts rec, assigning an ID and timestamp when missing.
func (ds *DataStore) Save(ctx context.Context, rec *BabyAnalysis) error {
	if err := ds.ready(); err != nil {
		return err
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	if err := ds.DB.WithContext(ctx).Create(rec).Error; err != nil {
		return dbError(err, "save", "id", rec.ID)
	}
	return nil
}

// Get loads one record.
func (ds *DataStore) Get(ctx context.Context, id string) (BabyAnalysis, error) {
	if err := ds.ready(); err != nil {
		return BabyAnalysis{}, err
	}
	var rec BabyAnalysis
	err := ds.DB.WithContext(ctx).Where("id = ?", id).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return BabyAnalysis{}, errors.NotFound("analysis", id)
	}
	if err != nil {
		return BabyAnalysis{}, dbError(err, "get", "id", id)
	}
	return rec, nil
}

// Latest returns up to limit records, newest first.
func (ds *DataStore) Latest(ctx context.Context, limit int) ([]BabyAnalysis, error) {
	if err := ds.ready(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		return nil, validationError("limit must be positive", "limit", limit)
	}
	var recs []BabyAnalysis
	if err := ds.DB.WithContext(ctx).Order("created_at DESC").Limit(limit).Find(&recs).Error; err != nil {
		return nil, dbError(err, "latest", "limit", limit)
	}
	return recs, nil
}

// ListAttention returns attention records created at or after since, oldest first.
func (ds *DataStore) ListAttention(ctx context.Context, since time.Time) ([]BabyAnalysis, error) {
	if err := ds.ready(); err != nil {
		return nil, err
	}
	var recs []BabyAnalysis
	err := ds.DB.WithContext(ctx).
		Where("needs_attention = ? AND created_at >= ?", true, since.UTC()).
		Order("created_at ASC").
		Find(&recs).Error
	if err != nil {
		return nil, dbError(err, "list_attention")
	}
	return recs, nil
}

// DeleteOlderThan prunes records created before cutoff and reports how many were removed.
func (ds *DataStore) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	if err := ds.ready(); err != nil {
		return 0, err
	}
	res := ds.DB.WithContext(ctx).Where("created_at < ?", cutoff.UTC()).Delete(&BabyAnalysis{})
	if res.Error != nil {
		return 0, dbError(res.Error, "delete_older_than")
	}
	return res.RowsAffected, nil
}

// closeDB closes the pool behind ds.DB.
func (ds *DataStore) closeDB() error {
	if err := ds.ready(); err != nil {
		return err
	}
	sqlDB, err := ds.DB.DB()
	if err != nil {
		return dbError(err, "close")
	}
	if err := sqlDB.Close(); err != nil {
		return dbError(err, "close")
	}
	return nil
}

func performAutoMigration(db *gorm.DB, log logger.Logger, dbType string) error {
	if err := db.AutoMigrate(&BabyAnalysis{}); err != nil {
		return dbError(err, "auto_migrate", "db_type", dbType)
	}
	log.Debug("database schema migrated", logger.String("db_type", dbType))
	return nil
}

func createGormLogger(log logger.Logger) gormlogger.Interface {
	return logger.NewGormLoggerAdapter(log.Module("gorm"), DefaultSlowQueryThreshold)
}

// GetLogger returns the package logger.
func GetLogger() logger.Logger {
	return logger.Global().Module(componentName)
}
