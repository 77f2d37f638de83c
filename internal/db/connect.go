// Package db owns database connection and schema migration.
package db

import (
	"fmt"

	"github.com/zulandar/millwright/internal/config"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DSN builds a MySQL DSN from database config.
func DSN(c config.DatabaseConfig) string {
	cred := c.User
	if c.Password != "" {
		cred = c.User + ":" + c.Password
	}
	return fmt.Sprintf("%s@tcp(%s:%d)/%s?parseTime=true&charset=utf8mb4", cred, c.Host, c.Port, c.Name)
}

// Connect opens a GORM connection for the configured driver. TranslateError
// is enabled so unique-index collisions surface as gorm.ErrDuplicatedKey
// regardless of driver; the ticket code generator depends on that.
func Connect(c config.DatabaseConfig) (*gorm.DB, error) {
	gormCfg := &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	}

	switch c.Driver {
	case "sqlite":
		db, err := gorm.Open(sqlite.Open(c.Path), gormCfg)
		if err != nil {
			return nil, fmt.Errorf("db: open sqlite %s: %w", c.Path, err)
		}
		return db, nil
	case "mysql":
		db, err := gorm.Open(mysql.Open(DSN(c)), gormCfg)
		if err != nil {
			return nil, fmt.Errorf("db: connect to %s:%d/%s: %w", c.Host, c.Port, c.Name, err)
		}
		return db, nil
	default:
		return nil, fmt.Errorf("db: unsupported driver %q", c.Driver)
	}
}
