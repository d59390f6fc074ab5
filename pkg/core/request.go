package core

import (
	"fmt"
	"time"
)

// DownloadRequest 历史数据下载请求，构造后不再修改
type DownloadRequest struct {
	Symbol   string    `json:"symbol"`   // 股票代码，如 AAPL
	Exchange Exchange  `json:"exchange"` // 交易所
	Start    time.Time `json:"start"`    // 开始时间
	End      time.Time `json:"end"`      // 结束时间
	Interval Interval  `json:"interval"` // 时间周期
}

// NewDownloadRequest 创建下载请求并校验基本约束
func NewDownloadRequest(symbol string, exchange Exchange, start, end time.Time, interval Interval) (DownloadRequest, error) {
	if symbol == "" {
		return DownloadRequest{}, ErrEmptySymbol
	}
	if !start.IsZero() && !end.IsZero() && start.After(end) {
		return DownloadRequest{}, ErrInvalidTimeRange
	}

	return DownloadRequest{
		Symbol:   symbol,
		Exchange: exchange,
		Start:    start,
		End:      end,
		Interval: interval,
	}, nil
}

// VtSymbol 返回 "代码.交易所" 形式的唯一标识
func (r *DownloadRequest) VtSymbol() string {
	return fmt.Sprintf("%s.%s", r.Symbol, r.Exchange)
}

// DownloadResult 一次下载调用的结果。
// 四类运行期失败（连接、不支持的周期、拉取、落库）都统一表示为
// Success=false 加可读的 ErrorMsg，不向调用方抛出原始错误。
type DownloadResult struct {
	Request    DownloadRequest `json:"request"`     // 原始请求
	Bars       []BarData       `json:"bars"`        // 下载得到的K线
	Success    bool            `json:"success"`     // 是否成功
	ErrorMsg   string          `json:"error_msg"`   // 失败原因
	TotalCount int             `json:"total_count"` // 数据条数
}

// NewResult 根据K线序列创建结果：有数据即成功，无数据视为失败
func NewResult(request DownloadRequest, bars []BarData) DownloadResult {
	if len(bars) == 0 {
		return DownloadResult{
			Request:  request,
			Bars:     []BarData{},
			Success:  false,
			ErrorMsg: "未获取到数据",
		}
	}

	return DownloadResult{
		Request:    request,
		Bars:       bars,
		Success:    true,
		TotalCount: len(bars),
	}
}

// FailedResult 创建失败结果
func FailedResult(request DownloadRequest, errorMsg string) DownloadResult {
	return DownloadResult{
		Request:  request,
		Bars:     []BarData{},
		Success:  false,
		ErrorMsg: errorMsg,
	}
}
