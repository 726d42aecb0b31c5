package database

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3"
	"gorm.io/gorm"

	"goim-friend/pkg/config"
)

const (
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"

	retryBaseDelay = 20 * time.Millisecond
)

// Open 根据配置选择数据库驱动
func Open(cfg config.DatabaseConfig, logLevel string) (*Database, error) {
	opts := Options{LogLevel: logLevel, MaxRetries: cfg.MaxRetries}
	if cfg.Driver == "sqlite" {
		return NewSQLite(cfg.SQLite.DSN, opts)
	}
	return NewPostgreSQL(cfg.PostgreSQL.DSN, cfg.PostgreSQL.DBName, opts)
}

// Transaction 执行事务，死锁和序列化失败按重试策略重新执行整个事务
//
// opts 中的nil会被忽略，未指定时使用驱动默认隔离级别。
func (d *Database) Transaction(ctx context.Context, fn func(tx *gorm.DB) error, opts ...*sql.TxOptions) error {
	txOpts := make([]*sql.TxOptions, 0, len(opts))
	for _, o := range opts {
		if o != nil {
			txOpts = append(txOpts, o)
		}
	}

	var err error
	for attempt := 0; ; attempt++ {
		err = d.db.WithContext(ctx).Transaction(fn, txOpts...)
		if err == nil || !IsRetryable(err) || attempt >= d.maxRetries {
			return err
		}

		select {
		case <-ctx.Done():
			return err
		case <-time.After(retryBaseDelay * time.Duration(attempt+1)):
		}
	}
}

// SnapshotOptions 只读快照事务选项
//
// PostgreSQL使用REPEATABLE READ，事务内多条查询看到同一快照；
// SQLite连接池为1，事务期间其他写者无法提交，返回nil使用默认选项。
func (d *Database) SnapshotOptions() *sql.TxOptions {
	if d.Dialect() != "postgres" {
		return nil
	}
	return &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true}
}

// IsRetryable 判断是否为可重试的事务冲突
func IsRetryable(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgSerializationFailure || pgErr.Code == pgDeadlockDetected
	}

	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code == sqlite3.ErrBusy || sqliteErr.Code == sqlite3.ErrLocked
	}

	return false
}
