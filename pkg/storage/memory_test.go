package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockloader/pkg/core"
)

func makeBars(symbol string, start time.Time, count int) []core.BarData {
	bars := make([]core.BarData, 0, count)
	for i := 0; i < count; i++ {
		bars = append(bars, core.BarData{
			Symbol:      symbol,
			Exchange:    core.ExchangeNASDAQ,
			Interval:    core.IntervalDaily,
			Datetime:    start.AddDate(0, 0, i),
			Open:        100,
			High:        101,
			Low:         99,
			Close:       100.5 + float64(i),
			Volume:      1000,
			GatewayName: "test",
		})
	}
	return bars
}

func TestMemoryStorage_SaveAndLoad(t *testing.T) {
	s := NewMemoryStorage()
	defer s.Close()

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, s.SaveBarData(context.Background(), makeBars("AAPL", start, 5)))

	bars, err := s.LoadBarData(context.Background(), "AAPL", core.ExchangeNASDAQ, core.IntervalDaily, time.Time{}, time.Time{})
	require.NoError(t, err)
	assert.Len(t, bars, 5)
}

func TestMemoryStorage_LoadRangeFilter(t *testing.T) {
	s := NewMemoryStorage()
	defer s.Close()

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, s.SaveBarData(context.Background(), makeBars("AAPL", start, 10)))

	bars, err := s.LoadBarData(context.Background(), "AAPL", core.ExchangeNASDAQ, core.IntervalDaily,
		start.AddDate(0, 0, 2), start.AddDate(0, 0, 5))
	require.NoError(t, err)
	assert.Len(t, bars, 4)
	assert.Equal(t, start.AddDate(0, 0, 2), bars[0].Datetime)
	assert.Equal(t, start.AddDate(0, 0, 5), bars[3].Datetime)
}

func TestMemoryStorage_UpsertOverwrites(t *testing.T) {
	s := NewMemoryStorage()
	defer s.Close()

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := makeBars("AAPL", start, 3)
	require.NoError(t, s.SaveBarData(context.Background(), bars))

	// 同一时间戳再次保存，应覆盖而不是追加
	bars[1].Close = 999
	require.NoError(t, s.SaveBarData(context.Background(), bars[1:2]))

	loaded, err := s.LoadBarData(context.Background(), "AAPL", core.ExchangeNASDAQ, core.IntervalDaily, time.Time{}, time.Time{})
	require.NoError(t, err)
	require.Len(t, loaded, 3)
	assert.Equal(t, float64(999), loaded[1].Close)
}

func TestMemoryStorage_OutOfOrderInsertStaysSorted(t *testing.T) {
	s := NewMemoryStorage()
	defer s.Close()

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := makeBars("AAPL", start, 5)

	// 乱序保存
	shuffled := []core.BarData{bars[3], bars[0], bars[4], bars[2], bars[1]}
	require.NoError(t, s.SaveBarData(context.Background(), shuffled))

	loaded, err := s.LoadBarData(context.Background(), "AAPL", core.ExchangeNASDAQ, core.IntervalDaily, time.Time{}, time.Time{})
	require.NoError(t, err)
	require.Len(t, loaded, 5)
	for i := 1; i < len(loaded); i++ {
		assert.True(t, loaded[i-1].Datetime.Before(loaded[i].Datetime), "加载结果必须按时间升序")
	}
}

func TestMemoryStorage_SeriesIsolation(t *testing.T) {
	s := NewMemoryStorage()
	defer s.Close()

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, s.SaveBarData(context.Background(), makeBars("AAPL", start, 3)))
	require.NoError(t, s.SaveBarData(context.Background(), makeBars("MSFT", start, 7)))

	aapl, err := s.LoadBarData(context.Background(), "AAPL", core.ExchangeNASDAQ, core.IntervalDaily, time.Time{}, time.Time{})
	require.NoError(t, err)
	assert.Len(t, aapl, 3)

	// 同代码不同交易所是独立分组
	other, err := s.LoadBarData(context.Background(), "AAPL", core.ExchangeNYSE, core.IntervalDaily, time.Time{}, time.Time{})
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestMemoryStorage_Delete(t *testing.T) {
	s := NewMemoryStorage()
	defer s.Close()

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, s.SaveBarData(context.Background(), makeBars("AAPL", start, 4)))

	count, err := s.DeleteBarData(context.Background(), "AAPL", core.ExchangeNASDAQ, core.IntervalDaily)
	require.NoError(t, err)
	assert.Equal(t, 4, count)

	count, err = s.DeleteBarData(context.Background(), "AAPL", core.ExchangeNASDAQ, core.IntervalDaily)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestMemoryStorage_Overview(t *testing.T) {
	s := NewMemoryStorage()
	defer s.Close()

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, s.SaveBarData(context.Background(), makeBars("MSFT", start, 7)))
	require.NoError(t, s.SaveBarData(context.Background(), makeBars("AAPL", start, 3)))

	overviews, err := s.GetBarOverview(context.Background())
	require.NoError(t, err)
	require.Len(t, overviews, 2)

	// 按键排序输出稳定: AAPL 在前
	assert.Equal(t, "AAPL", overviews[0].Symbol)
	assert.Equal(t, 3, overviews[0].Count)
	assert.Equal(t, start, overviews[0].Start)
	assert.Equal(t, start.AddDate(0, 0, 2), overviews[0].End)

	assert.Equal(t, "MSFT", overviews[1].Symbol)
	assert.Equal(t, 7, overviews[1].Count)
}

func TestMemoryStorage_ClosedRejectsOperations(t *testing.T) {
	s := NewMemoryStorage()
	require.NoError(t, s.Close())

	err := s.SaveBarData(context.Background(), makeBars("AAPL", time.Now(), 1))
	assert.Error(t, err)

	_, err = s.LoadBarData(context.Background(), "AAPL", core.ExchangeNASDAQ, core.IntervalDaily, time.Time{}, time.Time{})
	assert.Error(t, err)

	_, err = s.GetBarOverview(context.Background())
	assert.Error(t, err)
}
