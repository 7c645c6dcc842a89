// Package repository 提供数据访问层
package repository

import (
	"context"
	"database/sql"

	apperrors "github.com/paiban/planning/pkg/errors"
	"github.com/paiban/planning/pkg/model"
)

// DB 数据库接口，*database.DB 与 *sql.Tx 均满足
type DB interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// Scanner 行扫描接口
type Scanner interface {
	Scan(dest ...interface{}) error
}

// DateRange 闭区间日期过滤条件
type DateRange struct {
	Start string `json:"start_date"`
	End   string `json:"end_date"`
}

// Validate 检查日期格式与先后顺序
func (r DateRange) Validate() error {
	n, err := model.DaysBetween(r.Start, r.End)
	if err != nil {
		return apperrors.New(apperrors.CodeInvalidTimeRange, err.Error())
	}
	if n < 0 {
		return apperrors.New(apperrors.CodeInvalidTimeRange, "结束日期早于开始日期")
	}
	return nil
}

// Extend 向前后各扩展若干天，用于读取跨边界的上下文数据
func (r DateRange) Extend(before, after int) DateRange {
	return DateRange{Start: model.AddDays(r.Start, -before), End: model.AddDays(r.End, after)}
}

// dbError 包装数据库错误
func dbError(op string, err error) error {
	return apperrors.Wrap(err, apperrors.CodeDatabaseError, op+"失败")
}
