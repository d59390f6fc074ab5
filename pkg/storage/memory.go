package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"stockloader/pkg/core"
)

// MemoryStorage 基于内存的K线存储，用于测试和不落库的试运行。
// 数据按 (代码.交易所, 周期) 分组，组内按时间升序维护，时间戳相同时覆盖。
type MemoryStorage struct {
	series map[string][]core.BarData
	mu     sync.RWMutex
	closed bool
}

// NewMemoryStorage 创建内存存储
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		series: make(map[string][]core.BarData),
	}
}

// seriesKey 一组K线的存储键
func seriesKey(symbol string, exchange core.Exchange, interval core.Interval) string {
	return fmt.Sprintf("%s.%s|%s", symbol, exchange, interval)
}

// SaveBarData 保存一批K线数据
func (s *MemoryStorage) SaveBarData(ctx context.Context, bars []core.BarData) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fmt.Errorf("memory storage is closed")
	}

	for _, bar := range bars {
		key := seriesKey(bar.Symbol, bar.Exchange, bar.Interval)
		s.series[key] = upsertBar(s.series[key], bar)
	}

	return nil
}

// upsertBar 按时间有序插入，时间戳已存在时原地覆盖
func upsertBar(bars []core.BarData, bar core.BarData) []core.BarData {
	idx := sort.Search(len(bars), func(i int) bool {
		return !bars[i].Datetime.Before(bar.Datetime)
	})

	if idx < len(bars) && bars[idx].Datetime.Equal(bar.Datetime) {
		bars[idx] = bar
		return bars
	}

	bars = append(bars, core.BarData{})
	copy(bars[idx+1:], bars[idx:])
	bars[idx] = bar
	return bars
}

// LoadBarData 按时间范围加载K线数据
func (s *MemoryStorage) LoadBarData(ctx context.Context, symbol string, exchange core.Exchange, interval core.Interval, start, end time.Time) ([]core.BarData, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, fmt.Errorf("memory storage is closed")
	}

	bars := s.series[seriesKey(symbol, exchange, interval)]
	result := make([]core.BarData, 0, len(bars))
	for _, bar := range bars {
		if !start.IsZero() && bar.Datetime.Before(start) {
			continue
		}
		if !end.IsZero() && bar.Datetime.After(end) {
			continue
		}
		result = append(result, bar)
	}

	return result, nil
}

// DeleteBarData 删除指定的K线分组，返回删除条数
func (s *MemoryStorage) DeleteBarData(ctx context.Context, symbol string, exchange core.Exchange, interval core.Interval) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, fmt.Errorf("memory storage is closed")
	}

	key := seriesKey(symbol, exchange, interval)
	count := len(s.series[key])
	delete(s.series, key)

	return count, nil
}

// GetBarOverview 返回各分组的数据概览，按键排序保证输出稳定
func (s *MemoryStorage) GetBarOverview(ctx context.Context) ([]core.BarOverview, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, fmt.Errorf("memory storage is closed")
	}

	keys := make([]string, 0, len(s.series))
	for key := range s.series {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	overviews := make([]core.BarOverview, 0, len(keys))
	for _, key := range keys {
		bars := s.series[key]
		if len(bars) == 0 {
			continue
		}

		first := bars[0]
		overviews = append(overviews, core.BarOverview{
			Symbol:   first.Symbol,
			Exchange: first.Exchange,
			Interval: first.Interval,
			Count:    len(bars),
			Start:    bars[0].Datetime,
			End:      bars[len(bars)-1].Datetime,
		})
	}

	return overviews, nil
}

// Close 关闭存储并清空数据
func (s *MemoryStorage) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.series = make(map[string][]core.BarData)
	s.closed = true
	return nil
}

// 确保 MemoryStorage 实现了 BarStorage 接口
var _ BarStorage = (*MemoryStorage)(nil)
