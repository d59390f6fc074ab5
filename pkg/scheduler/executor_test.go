package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockloader/pkg/core"
	"stockloader/pkg/downloader"
	"stockloader/pkg/storage"
)

// fakeDownloader 每个代码返回一根K线，failSymbols 中的代码返回失败
type fakeDownloader struct {
	failSymbols map[string]bool
	requests    []core.DownloadRequest
}

func (f *fakeDownloader) Name() string            { return "fake" }
func (f *fakeDownloader) Source() core.DataSource { return core.SourceYfinance }
func (f *fakeDownloader) IsReady() bool           { return true }

func (f *fakeDownloader) Init(ctx context.Context, opts map[string]string) error { return nil }

func (f *fakeDownloader) DownloadBars(ctx context.Context, request core.DownloadRequest) core.DownloadResult {
	f.requests = append(f.requests, request)

	if f.failSymbols[request.Symbol] {
		return core.FailedResult(request, "simulated failure")
	}

	return core.NewResult(request, []core.BarData{{
		Symbol:      request.Symbol,
		Exchange:    request.Exchange,
		Interval:    request.Interval,
		Datetime:    request.End.Truncate(time.Hour),
		Open:        100,
		High:        101,
		Low:         99,
		Close:       100.5,
		Volume:      1000,
		GatewayName: "fake",
	}})
}

func (f *fakeDownloader) SupportsInterval(interval core.Interval) bool { return true }

func (f *fakeDownloader) SupportedIntervals() []core.Interval {
	return []core.Interval{core.IntervalDaily, core.IntervalHour, core.IntervalMinute}
}

func (f *fakeDownloader) SupportedExchanges() []core.Exchange {
	return []core.Exchange{core.ExchangeNYSE, core.ExchangeNASDAQ, core.ExchangeAMEX, core.ExchangeSMART}
}

func newTestJob(symbols []string) *Job {
	return &Job{
		ID: "test-job",
		Config: JobConfig{
			Name:     "daily-us",
			Enabled:  true,
			Schedule: "0 0 9 * * *",
			Source:   core.SourceYfinance,
			Symbols:  symbols,
			Exchange: core.ExchangeNASDAQ,
			Interval: core.IntervalDaily,
			Lookback: 48 * time.Hour,
			Persist:  true,
		},
	}
}

func TestDownloadExecutor_Execute(t *testing.T) {
	store := storage.NewMemoryStorage()
	manager := downloader.NewManager(store)
	fake := &fakeDownloader{}
	require.NoError(t, manager.Register(fake))

	executor := NewDownloadExecutor(manager)
	err := executor.Execute(context.Background(), newTestJob([]string{"AAPL", "MSFT"}))
	require.NoError(t, err)

	require.Len(t, fake.requests, 2)

	// 时间窗口为 [now-lookback, now]
	window := fake.requests[0].End.Sub(fake.requests[0].Start)
	assert.InDelta(t, float64(48*time.Hour), float64(window), float64(time.Minute))

	// persist=true 时数据落库
	bars, err := store.LoadBarData(context.Background(), "AAPL", core.ExchangeNASDAQ, core.IntervalDaily, time.Time{}, time.Time{})
	require.NoError(t, err)
	assert.Len(t, bars, 1)
}

func TestDownloadExecutor_Execute_DefaultLookback(t *testing.T) {
	manager := downloader.NewManager(storage.NewMemoryStorage())
	fake := &fakeDownloader{}
	require.NoError(t, manager.Register(fake))

	job := newTestJob([]string{"AAPL"})
	job.Config.Lookback = 0

	executor := NewDownloadExecutor(manager)
	require.NoError(t, executor.Execute(context.Background(), job))

	require.Len(t, fake.requests, 1)
	window := fake.requests[0].End.Sub(fake.requests[0].Start)
	assert.InDelta(t, float64(24*time.Hour), float64(window), float64(time.Minute))
}

func TestDownloadExecutor_Execute_PartialFailure(t *testing.T) {
	manager := downloader.NewManager(storage.NewMemoryStorage())
	fake := &fakeDownloader{failSymbols: map[string]bool{"MSFT": true}}
	require.NoError(t, manager.Register(fake))

	executor := NewDownloadExecutor(manager)
	err := executor.Execute(context.Background(), newTestJob([]string{"AAPL", "MSFT", "GOOG"}))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "1/3")

	// 失败隔离：其余代码仍然全部下载
	assert.Len(t, fake.requests, 3)
}
