package database

import (
	"fmt"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// NewSQLite 创建SQLite连接，用于本地开发和测试
//
// SQLite同一时间只允许一个写事务，连接池限制为1，事务在连接池上排队执行。
func NewSQLite(dsn string, opts Options) (*Database, error) {
	db, err := gorm.Open(sqlite.Open(dsn), gormConfig(opts))
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.Exec("PRAGMA foreign_keys = ON").Error; err != nil {
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return &Database{
		db:         db,
		sqlDB:      sqlDB,
		dbName:     dsn,
		maxRetries: opts.MaxRetries,
	}, nil
}
