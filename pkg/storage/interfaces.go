package storage

import (
	"context"
	"time"

	"stockloader/pkg/core"
)

// BarStorage 定义了K线数据持久化的行为。
// 管理器只依赖此接口，任何后端（内存、DuckDB、InfluxDB）都必须实现它。
type BarStorage interface {
	// SaveBarData 保存一批K线数据。写入失败必须返回错误，不允许静默吞掉。
	SaveBarData(ctx context.Context, bars []core.BarData) error

	// LoadBarData 按代码、交易所、周期和时间范围加载K线数据，按时间升序返回。
	LoadBarData(ctx context.Context, symbol string, exchange core.Exchange, interval core.Interval, start, end time.Time) ([]core.BarData, error)

	// DeleteBarData 删除指定代码、交易所、周期的全部K线，返回删除条数。
	DeleteBarData(ctx context.Context, symbol string, exchange core.Exchange, interval core.Interval) (int, error)

	// GetBarOverview 返回存储中各组K线数据的概览。
	GetBarOverview(ctx context.Context) ([]core.BarOverview, error)

	// Close 关闭存储连接并释放所有资源。
	Close() error
}
