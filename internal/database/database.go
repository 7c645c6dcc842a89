// Package database 提供数据库连接和管理
package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq" // PostgreSQL 驱动
	"github.com/rs/zerolog"

	"github.com/paiban/planning/internal/config"
	"github.com/paiban/planning/pkg/logger"
)

// SlowQueryThreshold 超过该时长的语句记为慢查询
const SlowQueryThreshold = 200 * time.Millisecond

// DB 数据库连接封装
type DB struct {
	*sql.DB
	log *zerolog.Logger
}

// New 创建新的数据库连接并测试连通性
func New(ctx context.Context, cfg *config.DatabaseConfig) (*DB, error) {
	db, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("打开数据库连接失败: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("数据库连接测试失败: %w", err)
	}

	log := logger.WithField("component", "database")
	log.Info().
		Str("host", cfg.Host).
		Int("port", cfg.Port).
		Str("database", cfg.Name).
		Msg("数据库连接成功")

	return &DB{DB: db, log: log}, nil
}

// Close 关闭数据库连接
func (db *DB) Close() error {
	if db.DB != nil {
		db.log.Info().Msg("关闭数据库连接")
		return db.DB.Close()
	}
	return nil
}

// Health 健康检查
func (db *DB) Health(ctx context.Context) error {
	return db.PingContext(ctx)
}

// ExecContext 执行SQL语句并记录慢查询
func (db *DB) ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	start := time.Now()
	result, err := db.DB.ExecContext(ctx, query, args...)
	db.observe(ctx, query, time.Since(start))
	return result, err
}

// QueryContext 执行查询并记录慢查询
func (db *DB) QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	start := time.Now()
	rows, err := db.DB.QueryContext(ctx, query, args...)
	db.observe(ctx, query, time.Since(start))
	return rows, err
}

// QueryRowContext 执行单行查询
func (db *DB) QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row {
	return db.DB.QueryRowContext(ctx, query, args...)
}

func (db *DB) observe(ctx context.Context, query string, d time.Duration) {
	if d <= SlowQueryThreshold {
		return
	}
	db.log.Warn().
		Str("request_id", logger.RequestIDFromContext(ctx)).
		Str("query", truncateQuery(query)).
		Dur("duration", d).
		Msg("慢SQL查询")
}

// truncateQuery 截断长查询
func truncateQuery(query string) string {
	if len(query) > 200 {
		return query[:200] + "..."
	}
	return query
}
