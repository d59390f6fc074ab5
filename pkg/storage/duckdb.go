package storage

import (
	"context"
	"fmt"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"
	"github.com/jmoiron/sqlx"

	"stockloader/pkg/core"
)

// barDataSchema K线主表。主键保证同一根K线重复下载时覆盖而不是重复插入。
const barDataSchema = `
CREATE TABLE IF NOT EXISTS bar_data (
	symbol        VARCHAR NOT NULL,
	exchange      VARCHAR NOT NULL,
	interval      VARCHAR NOT NULL,
	datetime      TIMESTAMP NOT NULL,
	"open"        DOUBLE NOT NULL,
	high          DOUBLE NOT NULL,
	low           DOUBLE NOT NULL,
	"close"       DOUBLE NOT NULL,
	volume        DOUBLE NOT NULL,
	turnover      DOUBLE NOT NULL,
	open_interest DOUBLE NOT NULL,
	gateway_name  VARCHAR NOT NULL,
	PRIMARY KEY (symbol, exchange, interval, datetime)
)`

// DuckDBStorage 基于 DuckDB 的关系型K线存储。
// 一批数据在单个事务中写入：要么全部入库，要么全部回滚。
type DuckDBStorage struct {
	db  *sqlx.DB
	dsn string
}

// NewDuckDBStorage 打开（或创建）DuckDB 数据库并初始化表结构
func NewDuckDBStorage(dsn string) (*DuckDBStorage, error) {
	db, err := sqlx.Open("duckdb", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open duckdb: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(0)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("duckdb ping failed: %w", err)
	}

	if _, err := db.Exec(barDataSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to init schema: %w", err)
	}

	return &DuckDBStorage{db: db, dsn: dsn}, nil
}

// SaveBarData 在单个事务中保存一批K线数据（全有或全无）
func (s *DuckDBStorage) SaveBarData(ctx context.Context, bars []core.BarData) error {
	if len(bars) == 0 {
		return nil
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction failed: %w", err)
	}

	query := `INSERT OR REPLACE INTO bar_data
		(symbol, exchange, interval, datetime, "open", high, low, "close", volume, turnover, open_interest, gateway_name)
		VALUES (:symbol, :exchange, :interval, :datetime, :open, :high, :low, :close, :volume, :turnover, :open_interest, :gateway_name)`

	if _, err := tx.NamedExecContext(ctx, query, bars); err != nil {
		tx.Rollback()
		return fmt.Errorf("insert bar data failed: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit failed: %w", err)
	}

	return nil
}

// LoadBarData 按时间范围加载K线数据，按时间升序返回
func (s *DuckDBStorage) LoadBarData(ctx context.Context, symbol string, exchange core.Exchange, interval core.Interval, start, end time.Time) ([]core.BarData, error) {
	query := `SELECT symbol, exchange, interval, datetime, "open", high, low, "close", volume, turnover, open_interest, gateway_name
		FROM bar_data
		WHERE symbol = ? AND exchange = ? AND interval = ?`
	args := []interface{}{symbol, string(exchange), string(interval)}

	if !start.IsZero() {
		query += " AND datetime >= ?"
		args = append(args, start.UTC())
	}
	if !end.IsZero() {
		query += " AND datetime <= ?"
		args = append(args, end.UTC())
	}
	query += " ORDER BY datetime"

	var bars []core.BarData
	if err := s.db.SelectContext(ctx, &bars, query, args...); err != nil {
		return nil, fmt.Errorf("query bar data failed: %w", err)
	}

	for i := range bars {
		bars[i].Datetime = bars[i].Datetime.UTC()
	}

	return bars, nil
}

// DeleteBarData 删除指定代码、交易所、周期的全部K线，返回删除条数
func (s *DuckDBStorage) DeleteBarData(ctx context.Context, symbol string, exchange core.Exchange, interval core.Interval) (int, error) {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM bar_data WHERE symbol = ? AND exchange = ? AND interval = ?`,
		symbol, string(exchange), string(interval))
	if err != nil {
		return 0, fmt.Errorf("delete bar data failed: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, nil
	}

	return int(affected), nil
}

// GetBarOverview 返回各分组的数据概览
func (s *DuckDBStorage) GetBarOverview(ctx context.Context) ([]core.BarOverview, error) {
	query := `SELECT symbol, exchange, interval,
			count(*) AS count,
			min(datetime) AS start,
			max(datetime) AS "end"
		FROM bar_data
		GROUP BY symbol, exchange, interval
		ORDER BY symbol, exchange, interval`

	var overviews []core.BarOverview
	if err := s.db.SelectContext(ctx, &overviews, query); err != nil {
		return nil, fmt.Errorf("query bar overview failed: %w", err)
	}

	for i := range overviews {
		overviews[i].Start = overviews[i].Start.UTC()
		overviews[i].End = overviews[i].End.UTC()
	}

	return overviews, nil
}

// Close 关闭数据库连接
func (s *DuckDBStorage) Close() error {
	return s.db.Close()
}

// 确保 DuckDBStorage 实现了 BarStorage 接口
var _ BarStorage = (*DuckDBStorage)(nil)
