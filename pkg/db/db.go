// Package db keeps a journal of lifecycle phases in a sqlite database, one
// row per phase, grouped by run.
package db

import (
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type Database struct {
	Db     *gorm.DB
	Path   string
	RunID  string
	logger *zap.Logger
}

func MakeDatabase(path string, logger *zap.Logger) (*Database, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, errors.Wrapf(err, "opening journal %s", path)
	}
	if err := db.AutoMigrate(&PhaseRecord{}); err != nil {
		return nil, errors.Wrap(err, "migrating journal")
	}
	output := &Database{
		Db:     db,
		Path:   path,
		RunID:  uuid.NewString(),
		logger: logger,
	}
	logger.Info("Lifecycle journal opened", zap.String("path", path), zap.String("run", output.RunID))
	return output, nil
}

func (d *Database) Close() error {
	sqlDB, err := d.Db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
