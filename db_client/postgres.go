package db_client

import (
	"time"

	"github.com/Strum355/log"
	"github.com/cockroachdb/errors"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Open connects to postgres, retrying while the server comes up
func Open(dsn string, attempts int) (*gorm.DB, error) {
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for range attempts {
		db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
			Logger: logger.Default.LogMode(logger.Warn),
		})
		if err == nil {
			sqlDB, dbErr := db.DB()
			if dbErr != nil {
				return nil, errors.Wrap(dbErr, "getting underlying sql.DB")
			}
			if lastErr = sqlDB.Ping(); lastErr == nil {
				sqlDB.SetMaxIdleConns(2)
				sqlDB.SetMaxOpenConns(10)
				sqlDB.SetConnMaxLifetime(time.Hour)
				return db, nil
			}
		} else {
			lastErr = err
		}
		log.WithError(lastErr).Info("Waiting for Postgres to be ready...")
		time.Sleep(time.Second)
	}
	return nil, errors.Wrap(lastErr, "unable to connect to database")
}

// Close releases the connection pool
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
