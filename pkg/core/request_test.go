package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewDownloadRequest(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)

	req, err := NewDownloadRequest("AAPL", ExchangeNASDAQ, start, end, IntervalDaily)
	assert.NoError(t, err)
	assert.Equal(t, "AAPL", req.Symbol)
	assert.Equal(t, "AAPL.NASDAQ", req.VtSymbol())
}

func TestNewDownloadRequest_EmptySymbol(t *testing.T) {
	_, err := NewDownloadRequest("", ExchangeNYSE, time.Time{}, time.Time{}, IntervalDaily)
	assert.ErrorIs(t, err, ErrEmptySymbol)
}

func TestNewDownloadRequest_StartAfterEnd(t *testing.T) {
	start := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	_, err := NewDownloadRequest("AAPL", ExchangeNASDAQ, start, end, IntervalDaily)
	assert.ErrorIs(t, err, ErrInvalidTimeRange)
}

func TestNewDownloadRequest_OpenEndedRange(t *testing.T) {
	// 开始或结束时间缺省时不做范围校验
	_, err := NewDownloadRequest("AAPL", ExchangeNASDAQ, time.Time{}, time.Now(), IntervalDaily)
	assert.NoError(t, err)
}

func TestNewResult(t *testing.T) {
	req, _ := NewDownloadRequest("AAPL", ExchangeNASDAQ, time.Time{}, time.Time{}, IntervalDaily)

	bars := []BarData{
		{Symbol: "AAPL", Exchange: ExchangeNASDAQ, Close: 182.3},
		{Symbol: "AAPL", Exchange: ExchangeNASDAQ, Close: 184.1},
	}

	result := NewResult(req, bars)
	assert.True(t, result.Success)
	assert.Equal(t, 2, result.TotalCount)
	assert.Len(t, result.Bars, 2)
	assert.Empty(t, result.ErrorMsg)
}

func TestNewResult_EmptyBars(t *testing.T) {
	req, _ := NewDownloadRequest("AAPL", ExchangeNASDAQ, time.Time{}, time.Time{}, IntervalDaily)

	result := NewResult(req, nil)
	assert.False(t, result.Success)
	assert.Equal(t, 0, result.TotalCount)
	assert.NotEmpty(t, result.ErrorMsg)
}

func TestFailedResult(t *testing.T) {
	req, _ := NewDownloadRequest("AAPL", ExchangeNASDAQ, time.Time{}, time.Time{}, IntervalDaily)

	result := FailedResult(req, "connection refused")
	assert.False(t, result.Success)
	assert.Equal(t, "connection refused", result.ErrorMsg)
	assert.Empty(t, result.Bars)
	assert.Equal(t, 0, result.TotalCount)
}

func TestBarData_VtSymbol(t *testing.T) {
	bar := BarData{Symbol: "MSFT", Exchange: ExchangeNYSE}
	assert.Equal(t, "MSFT.NYSE", bar.VtSymbol())
}
