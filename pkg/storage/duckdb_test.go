package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockloader/pkg/core"
)

func newTestDuckDB(t *testing.T) *DuckDBStorage {
	t.Helper()

	s, err := NewDuckDBStorage(filepath.Join(t.TempDir(), "bars.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	return s
}

func TestDuckDBStorage_SaveAndLoad(t *testing.T) {
	s := newTestDuckDB(t)

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, s.SaveBarData(context.Background(), makeBars("AAPL", start, 5)))

	bars, err := s.LoadBarData(context.Background(), "AAPL", core.ExchangeNASDAQ, core.IntervalDaily, time.Time{}, time.Time{})
	require.NoError(t, err)
	require.Len(t, bars, 5)

	assert.Equal(t, "AAPL", bars[0].Symbol)
	assert.Equal(t, core.ExchangeNASDAQ, bars[0].Exchange)
	assert.Equal(t, core.IntervalDaily, bars[0].Interval)
	assert.Equal(t, start, bars[0].Datetime)
	assert.InDelta(t, 100.5, bars[0].Close, 0.001)
	assert.Equal(t, "test", bars[0].GatewayName)
}

func TestDuckDBStorage_ReplaceOnSameKey(t *testing.T) {
	s := newTestDuckDB(t)

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := makeBars("AAPL", start, 3)
	require.NoError(t, s.SaveBarData(context.Background(), bars))

	// 重复下载同一时段：主键冲突时覆盖，条数不变
	bars[1].Close = 999
	require.NoError(t, s.SaveBarData(context.Background(), bars))

	loaded, err := s.LoadBarData(context.Background(), "AAPL", core.ExchangeNASDAQ, core.IntervalDaily, time.Time{}, time.Time{})
	require.NoError(t, err)
	require.Len(t, loaded, 3)
	assert.Equal(t, float64(999), loaded[1].Close)
}

func TestDuckDBStorage_LoadRangeFilter(t *testing.T) {
	s := newTestDuckDB(t)

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, s.SaveBarData(context.Background(), makeBars("AAPL", start, 10)))

	bars, err := s.LoadBarData(context.Background(), "AAPL", core.ExchangeNASDAQ, core.IntervalDaily,
		start.AddDate(0, 0, 2), start.AddDate(0, 0, 5))
	require.NoError(t, err)
	require.Len(t, bars, 4)
	assert.Equal(t, start.AddDate(0, 0, 2), bars[0].Datetime)
	assert.Equal(t, start.AddDate(0, 0, 5), bars[3].Datetime)
}

func TestDuckDBStorage_SaveEmpty(t *testing.T) {
	s := newTestDuckDB(t)
	assert.NoError(t, s.SaveBarData(context.Background(), nil))
}

func TestDuckDBStorage_Delete(t *testing.T) {
	s := newTestDuckDB(t)

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, s.SaveBarData(context.Background(), makeBars("AAPL", start, 4)))
	require.NoError(t, s.SaveBarData(context.Background(), makeBars("MSFT", start, 2)))

	count, err := s.DeleteBarData(context.Background(), "AAPL", core.ExchangeNASDAQ, core.IntervalDaily)
	require.NoError(t, err)
	assert.Equal(t, 4, count)

	// MSFT 数据不受影响
	remaining, err := s.LoadBarData(context.Background(), "MSFT", core.ExchangeNASDAQ, core.IntervalDaily, time.Time{}, time.Time{})
	require.NoError(t, err)
	assert.Len(t, remaining, 2)
}

func TestDuckDBStorage_Overview(t *testing.T) {
	s := newTestDuckDB(t)

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, s.SaveBarData(context.Background(), makeBars("MSFT", start, 7)))
	require.NoError(t, s.SaveBarData(context.Background(), makeBars("AAPL", start, 3)))

	overviews, err := s.GetBarOverview(context.Background())
	require.NoError(t, err)
	require.Len(t, overviews, 2)

	assert.Equal(t, "AAPL", overviews[0].Symbol)
	assert.Equal(t, 3, overviews[0].Count)
	assert.Equal(t, start, overviews[0].Start)
	assert.Equal(t, start.AddDate(0, 0, 2), overviews[0].End)

	assert.Equal(t, "MSFT", overviews[1].Symbol)
	assert.Equal(t, 7, overviews[1].Count)
}

func TestDuckDBStorage_Reopen(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "bars.db")

	s, err := NewDuckDBStorage(dsn)
	require.NoError(t, err)

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, s.SaveBarData(context.Background(), makeBars("AAPL", start, 3)))
	require.NoError(t, s.Close())

	// 重新打开后数据仍在
	s2, err := NewDuckDBStorage(dsn)
	require.NoError(t, err)
	defer s2.Close()

	bars, err := s2.LoadBarData(context.Background(), "AAPL", core.ExchangeNASDAQ, core.IntervalDaily, time.Time{}, time.Time{})
	require.NoError(t, err)
	assert.Len(t, bars, 3)
}
